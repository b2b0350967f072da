package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"FlightOnTime/src/config"
	"FlightOnTime/src/datasource/file"
	"FlightOnTime/src/pipeline"
	"FlightOnTime/src/storage"

	"github.com/joho/godotenv"
	"github.com/robfig/cron"
)

func main() {
	configPath := flag.String("config", "config/config.json", "配置文件路径（.json/.yaml）")
	dataConfig := flag.String("dataconfig", "dataconfig.json", "列名配置文件，与配置文件同目录")
	mode := flag.String("mode", "train", "运行模式: train | watch | schedule | inspect")
	var q query
	flag.StringVar(&q.airline, "airline", "", "inspect: 航空公司")
	flag.StringVar(&q.origin, "origin", "", "inspect: 起飞机场")
	flag.StringVar(&q.destination, "destination", "", "inspect: 到达机场")
	flag.Float64Var(&q.distanceKm, "distance", 0, "inspect: 航程距离(km)")
	flag.StringVar(&q.scheduled, "scheduled", "", "inspect: 计划起飞时间")
	flag.Parse()

	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("读取 .env 失败: %v", err)
	}

	cfg, dcfg, err := config.LoadConfig(filepath.Dir(*configPath), filepath.Base(*configPath), *dataConfig)
	if err != nil {
		log.Fatal("加载配置失败: ", err)
	}

	if *mode == "inspect" {
		if err := inspect(os.Stdout, cfg.ModelPath, q); err != nil {
			log.Fatal(err)
		}
		return
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	logger.SetMirror(os.Stdout)
	handleReopen(logger)

	if cfg.LogAddr != "" {
		go startWebUI(logger, cfg.LogAddr)
	}

	r := newRunner(pipeline.OptionsFrom(cfg, dcfg), logger, cfg.LogMaxSize)

	switch *mode {
	case "train":
		err = r.run()
	case "watch":
		err = watch(r, cfg, logger)
	case "schedule":
		err = schedule(r, cfg, logger)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}

	if err != nil {
		logger.Error(err.Error())
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

// watch 启动时先训练一次，之后数据集文件每次被重写都重新训练
func watch(r *runner, cfg *config.Config, logger *storage.Logger) error {
	monitor, err := file.NewFileMonitor(cfg.DataPath, time.Duration(cfg.WatchDebounce))
	if err != nil {
		return fmt.Errorf("监听数据集失败: %w", err)
	}
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	file.SetupSignalHandler(cancel)

	if err := r.run(); err != nil && !errors.Is(err, file.ErrInputNotFound) {
		logger.Warning("首次训练失败: " + err.Error())
	}

	logger.Info(fmt.Sprintf("开始监听数据集: %s (合并窗口 %v)，按Ctrl+C退出",
		monitor.Target(), time.Duration(cfg.WatchDebounce)))
	return monitor.Watch(ctx, func(path string) {
		logger.Info("检测到数据集更新: " + path)
		if err := r.run(); err != nil {
			logger.Warning("重新训练失败: " + err.Error())
		}
	})
}

// schedule 按 cron 表达式定时训练
func schedule(r *runner, cfg *config.Config, logger *storage.Logger) error {
	c := cron.New()
	err := c.AddFunc(cfg.Schedule, func() {
		logger.Info(fmt.Sprintf("开始定时训练(%s)...", cfg.Schedule))
		if err := r.run(); err != nil {
			logger.Warning("定时训练失败: " + err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("创建定时任务失败: %w", err)
	}

	c.Start()
	defer c.Stop()
	logger.Info(fmt.Sprintf("定时训练已启动(%s)，按Ctrl+C退出", cfg.Schedule))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	file.SetupSignalHandler(cancel)
	<-ctx.Done()
	return nil
}

// handleReopen 收到 SIGHUP 时重新打开日志文件，配合外部 logrotate
func handleReopen(logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)

	go func() {
		for range sigChan {
			if err := logger.Reopen(""); err != nil {
				log.Printf("Failed to reopen log: %v", err)
				continue
			}
			logger.Info("Received SIGHUP, log file reopened")
		}
	}()
}
