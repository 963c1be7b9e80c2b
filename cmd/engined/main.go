package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"matching-engine-go/config"
	"matching-engine-go/internal/container"
)

func main() {
	cfgPath := flag.String("config", "", "配置文件路径，留空使用默认配置")
	watch := flag.Bool("watch", false, "监听配置文件变更（仅日志提示，核心参数不热切）")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.LoadWithEnvOverrides(*cfgPath)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
	}

	c := container.New(cfg)
	if err := c.Build(); err != nil {
		log.Fatalf("构建组件失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		log.Fatalf("启动失败: %v", err)
	}

	if *cfgPath != "" && *watch {
		w := config.Watcher{Path: *cfgPath}
		go func() {
			_ = w.Start(ctx, func(newCfg config.AppConfig) {
				c.Logger().Info("config file changed; restart to apply engine parameters")
			})
		}()
	}

	// 时钟与 id 源就绪后向 systemd 汇报 READY
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		c.Logger().Warn("sd_notify failed: " + err.Error())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	c.Logger().Info("shutting down")
	if err := c.Stop(); err != nil {
		log.Printf("停止过程中出错: %v", err)
	}
}
