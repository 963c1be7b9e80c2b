// Package logger 基于 zap 的结构化日志。
package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with the engine's structured event helpers.
type Logger struct {
	*zap.Logger
	config Config
}

// Config 日志配置
type Config struct {
	Level      string   // debug, info, warn, error
	Outputs    []string // stdout, file
	OutputFile string   // 日志文件路径
	ErrorFile  string   // 错误日志单独文件
	Format     string   // json 或 console
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Outputs: []string{"stdout"},
		Format:  "json",
	}
}

// sink 一个日志去向：写入目标、最低级别、是否允许 console 编码。
type sink struct {
	ws      zapcore.WriteSyncer
	min     zapcore.LevelEnabler
	console bool
}

// New 创建新的Logger实例
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}

	sinks, err := cfg.openSinks(level)
	if err != nil {
		return nil, err
	}

	cores := make([]zapcore.Core, 0, len(sinks))
	for _, s := range sinks {
		enc := jsonEncoder()
		if s.console && cfg.Format == "console" {
			enc = consoleEncoder()
		}
		cores = append(cores, zapcore.NewCore(enc, s.ws, s.min))
	}

	zl := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{Logger: zl, config: cfg}, nil
}

// openSinks 按配置打开所有日志去向。文件去向始终使用 JSON 编码。
func (cfg Config) openSinks(min zapcore.Level) ([]sink, error) {
	var out []sink
	for _, dst := range cfg.Outputs {
		switch dst {
		case "stdout":
			out = append(out, sink{ws: zapcore.AddSync(os.Stdout), min: min, console: true})
		case "file":
			if cfg.OutputFile == "" {
				continue
			}
			f, err := openAppend(cfg.OutputFile)
			if err != nil {
				return nil, fmt.Errorf("open log file failed: %w", err)
			}
			out = append(out, sink{ws: f, min: min})
		}
	}
	if cfg.ErrorFile != "" {
		f, err := openAppend(cfg.ErrorFile)
		if err != nil {
			return nil, fmt.Errorf("open error log file failed: %w", err)
		}
		out = append(out, sink{ws: f, min: zapcore.ErrorLevel})
	}
	return out, nil
}

func openAppend(path string) (zapcore.WriteSyncer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(f), nil
}

func jsonEncoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(ec)
}

func consoleEncoder() zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// LogSubmission 记录一次订单提交的结果
func (l *Logger) LogSubmission(symbol, orderID, status string, fills int) {
	l.Info("order_event",
		zap.String("event", "submission"),
		zap.String("symbol", symbol),
		zap.String("order_id", orderID),
		zap.String("status", status),
		zap.Int("fills", fills),
		zap.String("ts", time.Now().UTC().Format(time.RFC3339Nano)),
	)
}

// LogTrade 记录撮合产生的成交
func (l *Logger) LogTrade(symbol, tradeID, price, qty string) {
	l.Info("trade_event",
		zap.String("symbol", symbol),
		zap.String("trade_id", tradeID),
		zap.String("price", price),
		zap.String("qty", qty),
		zap.String("ts", time.Now().UTC().Format(time.RFC3339Nano)),
	)
}

// Close 关闭日志器
func (l *Logger) Close() error {
	return l.Sync()
}
