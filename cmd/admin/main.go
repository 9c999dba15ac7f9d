// 本文件用于管理后台进程启动入口
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salon-agent/internal/admin"
	"salon-agent/internal/config"
	"salon-agent/internal/escalate"
	"salon-agent/internal/logger"
	"salon-agent/internal/notify"
	"salon-agent/internal/state"
	"salon-agent/internal/store"
	"salon-agent/internal/sysinfo"
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

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("打开存储失败: %v", err)
		return err
	}
	defer st.Close()

	// 管理后台进程不持有代理进程的会话表
	// 在这里解决请求不会触发给顾客的跟进通知
	runtime := state.NewRuntimeState()
	notifier := &notify.Set{
		Console: notify.NewConsoleNotifier(runtime),
		Robot:   notify.NewRobot(cfg.RobotKey, runtime),
	}
	workflow := escalate.NewWorkflow(st, notifier, runtime, escalate.Options{
		SessionTimeout: config.SessionTimeout(cfg),
		SweepInterval:  config.SweepInterval(cfg),
	})

	var collector *sysinfo.Collector
	if cfg.SystemResourceEnabled {
		collector = sysinfo.NewCollector()
	}

	server := admin.NewServer(cfg, st, workflow, runtime, collector)
	server.Start()

	waitForShutdown(server)
	return nil
}

func parseFlags() string {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()
	return configPath
}

func waitForShutdown(server *admin.Server) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	<-signalChan
	logger.Info("收到退出信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("关闭管理后台失败: %v", err)
	}

	logger.Info("程序已退出")
}
