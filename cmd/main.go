// 本文件用于接待代理进程启动入口
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"salon-agent/internal/agent"
	"salon-agent/internal/backup"
	"salon-agent/internal/config"
	"salon-agent/internal/escalate"
	"salon-agent/internal/llm"
	"salon-agent/internal/logger"
	"salon-agent/internal/models"
	"salon-agent/internal/notify"
	"salon-agent/internal/seed"
	"salon-agent/internal/state"
	"salon-agent/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("程序退出: %v", err)
	}
}

func run() error {
	configPath := parseFlags()
	log.Printf("程序启动，配置文件: %s", configPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	if err := logger.InitLogger(cfg); err != nil {
		return err
	}
	defer logger.Close()

	logConfig(cfg)

	// 实时通道凭据缺失直接拒绝建立会话
	creds, err := agent.LoadCredentials()
	if err != nil {
		logger.Error("实时通道凭据加载失败: %v", err)
		return err
	}
	logger.Info("实时通道: %s", creds.URL)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("打开存储失败: %v", err)
		return err
	}
	defer st.Close()

	seedWatcher, err := importSeed(cfg, st)
	if err != nil {
		return err
	}
	if seedWatcher != nil {
		defer seedWatcher.Close()
	}

	runtime := state.NewRuntimeState()
	notifier := &notify.Set{
		Console: notify.NewConsoleNotifier(runtime),
		Robot:   notify.NewRobot(cfg.RobotKey, runtime),
	}
	workflow := escalate.NewWorkflow(st, notifier, runtime, escalate.Options{
		SessionTimeout: config.SessionTimeout(cfg),
		SweepInterval:  config.SweepInterval(cfg),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	llmClient := llm.NewClient(cfg)
	if llmClient != nil {
		if err := llmClient.CheckConnectivity(ctx); err != nil {
			logger.Error("LLM 端点检查失败: %v", err)
			return err
		}
	}

	go workflow.RunSweeper(ctx)

	uploader, err := backup.NewUploader(cfg, st.DBPath())
	if err != nil {
		logger.Error("初始化备份失败: %v", err)
		return err
	}
	if uploader != nil {
		go uploader.Run(ctx)
	}

	shell := agent.NewShell(workflow, llmClient, runtime, cfg.SalonName)
	if err := shell.RunSession(ctx); err != nil && err != context.Canceled {
		logger.Error("会话异常结束: %v", err)
		return err
	}

	logger.Info("程序已退出")
	return nil
}

func parseFlags() string {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()
	return configPath
}

func importSeed(cfg *models.Config, st *store.Store) (*seed.Watcher, error) {
	if strings.TrimSpace(cfg.SeedFile) == "" {
		return nil, nil
	}
	imported, err := seed.Import(st, cfg.SeedFile)
	if err != nil {
		logger.Error("导入种子文件失败: %v", err)
		return nil, err
	}
	logger.Info("种子文件导入完成，新增 %d 条", imported)

	if !cfg.SeedWatchEnabled {
		return nil, nil
	}
	watcher, err := seed.NewWatcher(st, cfg.SeedFile)
	if err != nil {
		logger.Error("创建种子文件监控失败: %v", err)
		return nil, err
	}
	watcher.Start()
	return watcher, nil
}

func logConfig(cfg *models.Config) {
	logger.Info("配置加载成功")
	logger.Info("数据库路径: %s", cfg.DBPath)
	logger.Info("门店名称: %s", cfg.SalonName)
	if strings.TrimSpace(cfg.SeedFile) != "" {
		logger.Info("种子文件: %s", cfg.SeedFile)
		logger.Info("种子热加载: %v", cfg.SeedWatchEnabled)
	}
	logger.Info("日志级别: %s", cfg.LogLevel)
	if cfg.LogFile != "" {
		logger.Info("日志文件: %s", cfg.LogFile)
	}
	logger.Info("AI 润色: %v", cfg.AIEnabled)
	if cfg.AIEnabled {
		logger.Info("AI 端点: %s", cfg.AIBaseURL)
		logger.Info("AI 模型: %s", cfg.AIModel)
	}
	logger.Info("数据库备份: %v", cfg.BackupEnabled)
	if cfg.RobotKey == "" {
		logger.Warn("未配置主管机器人 Key，通知仅输出到控制台")
	}
}
