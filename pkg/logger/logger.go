package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled package logger used by the API and the seeder.
// - backed by zap (JSON in production, console otherwise)
// - provides Debug/Info/Warn/Error/Fatal variants and Init(level)

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar = newLogger(level, os.Getenv("SERVER_ENVIRONMENT") == "production")
)

func newLogger(lvl zap.AtomicLevel, production bool) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	enc := zapcore.NewConsoleEncoder(encCfg)
	if production {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)
	return zap.New(core).Sugar()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	case "fatal":
		level.SetLevel(zapcore.FatalLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// Use swaps the underlying zap core (tests, or a caller that owns its own zap setup).
// The atomic level set by Init keeps applying.
func Use(core zapcore.Core) {
	filtered, err := zapcore.NewIncreaseLevelCore(core, level)
	if err != nil {
		// core is stricter than the atomic level; keep its own filtering
		filtered = core
	}
	mu.Lock()
	defer mu.Unlock()
	sugar = zap.New(filtered).Sugar()
}

// L returns the underlying sugared logger.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, v ...interface{}) { L().Debugf(format, v...) }
func Infof(format string, v ...interface{})  { L().Infof(format, v...) }
func Warnf(format string, v ...interface{})  { L().Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { L().Errorf(format, v...) }

// Fatalf logs regardless of level and exits.
func Fatalf(format string, v ...interface{}) {
	l := L()
	_ = l.Desugar().Core().Write(zapcore.Entry{Level: zapcore.FatalLevel, Time: time.Now(), Message: fmt.Sprintf(format, v...)}, nil)
	_ = l.Sync()
	os.Exit(1)
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// With returns a child logger carrying structured fields, e.g. logger.With("aggregator", "kpis").
func With(kv ...interface{}) *zap.SugaredLogger { return L().With(kv...) }

// LevelString returns the current level as text.
func LevelString() string {
	switch level.Level() {
	case zapcore.DebugLevel:
		return "debug"
	case zapcore.InfoLevel:
		return "info"
	case zapcore.WarnLevel:
		return "warn"
	case zapcore.ErrorLevel:
		return "error"
	case zapcore.FatalLevel:
		return "fatal"
	}
	return "info"
}
