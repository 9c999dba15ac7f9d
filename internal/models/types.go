// 本文件用于定义配置与业务模型
package models

import (
	"time"
)

// Config 配置结构体
type Config struct {
	DBPath                string `yaml:"db_path"`
	SalonName             string `yaml:"salon_name"`
	SeedFile              string `yaml:"seed_file"`
	SeedWatchEnabled      bool   `yaml:"seed_watch_enabled"`
	RobotKey              string `yaml:"robot_key"` // 主管通知机器人 Key，为空时仅控制台模拟
	SessionTimeout        string `yaml:"session_timeout"`
	SweepInterval         string `yaml:"sweep_interval"`
	LogLevel              string `yaml:"log_level"`
	LogFile               string `yaml:"log_file"`
	AdminBind             string `yaml:"admin_bind"` // 管理后台监听地址
	SystemResourceEnabled bool   `yaml:"system_resource_enabled"`
	AIEnabled             bool   `yaml:"ai_enabled"`
	AIBaseURL             string `yaml:"ai_base_url"`
	AIAPIKey              string `yaml:"ai_api_key"`
	AIModel               string `yaml:"ai_model"`
	AITimeout             string `yaml:"ai_timeout"`
	BackupEnabled         bool   `yaml:"backup_enabled"`
	BackupInterval        string `yaml:"backup_interval"`
	Bucket                string `yaml:"bucket"`
	AK                    string `yaml:"ak"`
	SK                    string `yaml:"sk"`
	Endpoint              string `yaml:"endpoint"`
	DisableSSL            bool   `yaml:"disable_ssl"`
}

// 求助请求状态，只允许 pending -> resolved 或 pending -> unresolved
const (
	StatusPending    = "pending"
	StatusResolved   = "resolved"
	StatusUnresolved = "unresolved"
)

// KnowledgeEntry 知识库条目，question 全局唯一
type KnowledgeEntry struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// HelpRequest 求助请求记录
// ResolvedAt 为零值表示尚未进入终态
type HelpRequest struct {
	ID         int64     `json:"id"`
	Question   string    `json:"question"`
	CallerID   string    `json:"callerId"`
	Status     string    `json:"status"`
	Answer     string    `json:"answer"`
	CreatedAt  time.Time `json:"createdAt"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// NotificationEvent 通知事件记录
type NotificationEvent struct {
	Time    time.Time `json:"time"`
	Channel string    `json:"channel"`
	Kind    string    `json:"kind"`
	Target  string    `json:"target"`
}

// DashboardSnapshot 管理后台仪表盘快照
type DashboardSnapshot struct {
	Host            string              `json:"host"`
	StartedAt       time.Time           `json:"startedAt"`
	SessionsTotal   uint64              `json:"sessionsTotal"`
	AnsweredTotal   uint64              `json:"answeredTotal"`
	EscalatedTotal  uint64              `json:"escalatedTotal"`
	ResolvedTotal   uint64              `json:"resolvedTotal"`
	SweptTotal      uint64              `json:"sweptTotal"`
	PendingSessions int                 `json:"pendingSessions"`
	Notifications   []NotificationEvent `json:"notifications"`
	System          *SystemSnapshot     `json:"system,omitempty"`
}

// SystemSnapshot 主机资源快照
type SystemSnapshot struct {
	Hostname       string  `json:"hostname"`
	UptimeSeconds  uint64  `json:"uptimeSeconds"`
	CPUPercent     float64 `json:"cpuPercent"`
	MemUsedPercent float64 `json:"memUsedPercent"`
	Load1          float64 `json:"load1"`
}
