package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 是全局可用的 SugaredLogger。未初始化时为空实现，库代码与测试可直接使用。
var Log = zap.NewNop().Sugar()

// InitLogger 初始化 zap 日志到本地文件（支持滚动）
// filePath: 日志文件路径，如 "server.log"；console 为 true 时同时输出到 stderr
func InitLogger(filePath string, console bool) error {
	// 文件滚动策略：10MB 每文件，保留3个备份，最多7天
	lj := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   false,
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	// Debug 级别，握手与连接生命周期都在 Debug 输出
	core := zapcore.NewCore(encoder, zapcore.AddSync(lj), zapcore.DebugLevel)
	if console {
		core = zapcore.NewTee(core, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zapcore.InfoLevel))
	}

	logger := zap.New(core, zap.AddCaller())
	Log = logger.Sugar()
	return nil
}

// Named 返回带组件名的子 logger
func Named(name string) *zap.SugaredLogger {
	return Log.Named(name)
}

// SyncLogger 清理和同步缓冲
func SyncLogger() {
	if Log != nil {
		_ = Log.Sync()
	}
}
