package main

import (
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	authclient "github.com/goliatone/go-auth-client"
)

// loggerFactory hands out named loggers to the components
type loggerFactory interface {
	GetLogger(name string) authclient.Logger
}

type glogFactory struct {
	base *glog.BaseLogger
}

func newGlogFactory(level string) *glogFactory {
	lvl := glog.Info
	if strings.EqualFold(level, "debug") {
		lvl = glog.Trace
	}
	return &glogFactory{
		base: glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(lvl),
			glog.WithName("taskctl"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		),
	}
}

func (f *glogFactory) GetLogger(name string) authclient.Logger {
	return f.base.GetLogger(name)
}

// zapLogger adapts a sugared zap logger to authclient.Logger
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (z zapLogger) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z zapLogger) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
func (z zapLogger) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z zapLogger) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

type zapFactory struct {
	base *zap.Logger
}

func newZapFactory(level string) (*zapFactory, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapFactory{base: base}, nil
}

func (f *zapFactory) GetLogger(name string) authclient.Logger {
	return zapLogger{sugar: f.base.Named(name).Sugar()}
}

func (f *zapFactory) Sync() {
	_ = f.base.Sync()
}

func newLoggerFactory(format, level string) (loggerFactory, func(), error) {
	switch format {
	case "json":
		f, err := newZapFactory(level)
		if err != nil {
			return nil, func() {}, err
		}
		return f, f.Sync, nil
	default:
		return newGlogFactory(level), func() {}, nil
	}
}
