// 本文件用于配置加载与校验
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"salon-agent/internal/models"
)

// 各周期与超时的默认值，配置缺省或非法时回退
const (
	DefaultSessionTimeout = 30 * time.Minute
	DefaultSweepInterval  = 60 * time.Second
	DefaultAITimeout      = 20 * time.Second
	DefaultBackupInterval = 6 * time.Hour
)

// LoadConfig 加载配置文件
func LoadConfig(configFile string) (*models.Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}

	var config models.Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	// 设置默认值
	if config.DBPath == "" {
		config.DBPath = "db.sqlite"
	}
	if config.SalonName == "" {
		config.SalonName = "Salon X"
	}
	if config.AdminBind == "" {
		config.AdminBind = "127.0.0.1:5000"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	return &config, nil
}

// ValidateConfig 验证配置
func ValidateConfig(config *models.Config) error {
	if config.DBPath == "" {
		return fmt.Errorf("数据库路径不能为空")
	}
	if config.AIEnabled {
		if config.AIBaseURL == "" {
			return fmt.Errorf("AI Base URL不能为空")
		}
		if config.AIModel == "" {
			return fmt.Errorf("AI 模型不能为空")
		}
	}
	if config.BackupEnabled {
		if config.Bucket == "" {
			return fmt.Errorf("OSS Bucket不能为空")
		}
		if config.AK == "" || config.SK == "" {
			return fmt.Errorf("OSS认证信息不能为空")
		}
		if config.Endpoint == "" {
			return fmt.Errorf("OSS Endpoint不能为空")
		}
	}

	return nil
}

// SessionTimeout 返回会话跟进超时时长
func SessionTimeout(config *models.Config) time.Duration {
	return parseDuration(config.SessionTimeout, DefaultSessionTimeout)
}

// SweepInterval 返回超时巡检周期
func SweepInterval(config *models.Config) time.Duration {
	return parseDuration(config.SweepInterval, DefaultSweepInterval)
}

// AITimeout 返回 AI 请求超时时长
func AITimeout(config *models.Config) time.Duration {
	return parseDuration(config.AITimeout, DefaultAITimeout)
}

// BackupInterval 返回数据库备份周期
func BackupInterval(config *models.Config) time.Duration {
	return parseDuration(config.BackupInterval, DefaultBackupInterval)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
