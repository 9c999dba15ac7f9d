// 本文件用于 SQLite 存储初始化与结构迁移
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store 封装两张业务表的持久化操作
// 代理进程与管理后台进程各持有一个实例，共享同一个数据库文件
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open 打开数据库并完成结构迁移
// 目录创建 打开数据库 设置 WAL 和迁移收敛在一个入口
// 调用方拿到 Store 时已处于可读写状态
func Open(dbPath string) (*Store, error) {
	path := strings.TrimSpace(dbPath)
	if path == "" {
		path = "db.sqlite"
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("设置 WAL 失败: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("设置 busy_timeout 失败: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, dbPath: path}, nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DBPath 返回数据库文件路径
func (s *Store) DBPath() string {
	if s == nil {
		return ""
	}
	return s.dbPath
}

// migrate 只做幂等结构迁移 不掺杂业务写入逻辑
func migrate(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS help_requests (
			id INTEGER PRIMARY KEY,
			question TEXT NOT NULL,
			caller_id TEXT NOT NULL,
			status TEXT NOT NULL,
			answer TEXT,
			created_at TEXT NOT NULL,
			resolved_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS knowledge (
			id INTEGER PRIMARY KEY,
			question TEXT UNIQUE NOT NULL,
			answer TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_help_requests_status ON help_requests(status);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("结构迁移失败: %w", err)
		}
	}
	return nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// parseTimestamp 兼容带纳秒与不带纳秒两种历史格式
func parseTimestamp(raw string) time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return ts
	}
	return time.Time{}
}
