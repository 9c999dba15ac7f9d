// 本文件用于数据库文件的 OSS 定时备份
package backup

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	sdk "github.com/aliyun/aliyun-oss-go-sdk/oss"

	"salon-agent/internal/config"
	"salon-agent/internal/logger"
	"salon-agent/internal/models"
)

// Uploader 周期性把数据库文件上传到 OSS
type Uploader struct {
	bucket   *sdk.Bucket
	dbPath   string
	interval time.Duration
	hostName string
}

// NewUploader 创建备份上传器，未启用备份时返回 nil
func NewUploader(cfg *models.Config, dbPath string) (*Uploader, error) {
	if cfg == nil || !cfg.BackupEnabled {
		return nil, nil
	}
	logger.Info("初始化OSS备份客户端...")

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.DisableSSL)
	if err != nil {
		return nil, err
	}
	ossClient, err := sdk.New(endpoint, cfg.AK, cfg.SK)
	if err != nil {
		return nil, fmt.Errorf("创建OSS客户端失败: %w", err)
	}
	bucket, err := ossClient.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("获取OSS Bucket失败: %w", err)
	}

	logger.Info("OSS备份客户端初始化成功")
	return &Uploader{
		bucket:   bucket,
		dbPath:   dbPath,
		interval: config.BackupInterval(cfg),
		hostName: normalizeHostName(),
	}, nil
}

// Run 周期执行备份，直到 ctx 取消
// 备份失败只记日志，不影响主流程
func (u *Uploader) Run(ctx context.Context) {
	if u == nil {
		return
	}
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()
	logger.Info("数据库备份已启动，周期 %v", u.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("数据库备份已停止")
			return
		case <-ticker.C:
			if err := u.uploadOnce(); err != nil {
				logger.Error("数据库备份失败: %v", err)
			}
		}
	}
}

func (u *Uploader) uploadOnce() error {
	if _, err := os.Stat(u.dbPath); err != nil {
		return fmt.Errorf("数据库文件不可读: %w", err)
	}
	objectKey := fmt.Sprintf("backup/%s/%s-db.sqlite",
		u.hostName, time.Now().Format("20060102-150405"))
	if err := u.bucket.PutObjectFromFile(objectKey, u.dbPath); err != nil {
		return fmt.Errorf("上传备份失败: %w", err)
	}
	logger.Info("数据库备份完成: %s", objectKey)
	return nil
}

// normalizeEndpoint 归一化 OSS Endpoint，缺 scheme 时按配置补全
func normalizeEndpoint(raw string, disableSSL bool) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("OSS Endpoint不能为空")
	}
	if !strings.Contains(trimmed, "://") {
		scheme := "https"
		if disableSSL {
			scheme = "http"
		}
		trimmed = scheme + "://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("OSS Endpoint无效: %s", raw)
	}
	return trimmed, nil
}

func normalizeHostName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
