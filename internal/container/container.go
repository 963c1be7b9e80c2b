// Package container wires the process: logger, metrics, publisher,
// registry and the API server, in dependency order.
package container

import (
	"context"
	"fmt"

	"matching-engine-go/config"
	"matching-engine-go/engine"
	"matching-engine-go/infrastructure/logger"
	"matching-engine-go/internal/server"
	"matching-engine-go/market"
	"matching-engine-go/metrics"
)

// Container 持有所有组件并控制启动/停止顺序。
type Container struct {
	cfg config.AppConfig

	logger    *logger.Logger
	publisher *market.Publisher
	registry  *engine.Registry
	apiServer *server.Server

	started bool
}

// New 创建新的Container实例
func New(cfg config.AppConfig) *Container {
	return &Container{cfg: cfg}
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}
	if err := c.buildCore(); err != nil {
		return fmt.Errorf("build core failed: %w", err)
	}
	c.logger.Info("container built successfully")
	return nil
}

func (c *Container) buildInfrastructure() error {
	logCfg := logger.Config{
		Level:      c.cfg.Log.Level,
		Outputs:    c.cfg.Log.Outputs,
		OutputFile: c.cfg.Log.OutputFile,
		ErrorFile:  c.cfg.Log.ErrorFile,
		Format:     c.cfg.Log.Format,
	}
	var err error
	c.logger, err = logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}
	if c.cfg.Server.MetricsAddr != "" {
		metrics.StartMetricsServer(c.cfg.Server.MetricsAddr)
	}
	return nil
}

func (c *Container) buildCore() error {
	constraints, err := c.cfg.SymbolConstraints()
	if err != nil {
		return err
	}
	c.publisher = market.NewPublisher(c.cfg.Engine.SubscriberQueue, c.logger.Logger)
	c.registry = engine.NewRegistry(engine.RegistryConfig{
		Params: engine.Params{
			SnapshotDepth: c.cfg.Engine.SnapshotDepth,
			RecentTrades:  c.cfg.Engine.RecentTrades,
		},
		Symbols: constraints,
	}, nil, nil, c.publisher, c.logger.Logger)
	c.apiServer = server.New(c.cfg.Server.ListenAddr, c.registry, c.logger)
	return nil
}

// Start 启动 API 服务；注册表与发布器无后台任务，就地可用。
func (c *Container) Start(ctx context.Context) error {
	if c.started {
		return nil
	}
	if err := c.apiServer.Start(ctx); err != nil {
		return fmt.Errorf("start api server failed: %w", err)
	}
	c.started = true
	return nil
}

// Stop 先停 API 拒绝新请求，再关注册表排空订阅队列。
func (c *Container) Stop() error {
	if !c.started {
		return nil
	}
	c.started = false
	err := c.apiServer.Stop()
	c.registry.Close()
	_ = c.logger.Close()
	return err
}

// Health 汇总组件健康状态
func (c *Container) Health() error {
	if !c.started {
		return fmt.Errorf("container not started")
	}
	if err := c.apiServer.Health(); err != nil {
		return fmt.Errorf("api server unhealthy: %w", err)
	}
	return nil
}

// Logger 返回共享日志器
func (c *Container) Logger() *logger.Logger { return c.logger }

// Registry 返回引擎注册表
func (c *Container) Registry() *engine.Registry { return c.registry }
