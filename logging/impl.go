package logging

import (
	"context"

	"go.uber.org/zap"
)

type impl struct {
	sugar *zap.SugaredLogger
}

func (l *impl) Debug(args ...interface{})                        { l.sugar.Debug(args...) }
func (l *impl) Debugf(template string, args ...interface{})      { l.sugar.Debugf(template, args...) }
func (l *impl) Debugw(msg string, kv ...interface{})             { l.sugar.Debugw(msg, kv...) }
func (l *impl) Info(args ...interface{})                         { l.sugar.Info(args...) }
func (l *impl) Infof(template string, args ...interface{})       { l.sugar.Infof(template, args...) }
func (l *impl) Infow(msg string, kv ...interface{})              { l.sugar.Infow(msg, kv...) }
func (l *impl) Warn(args ...interface{})                         { l.sugar.Warn(args...) }
func (l *impl) Warnf(template string, args ...interface{})       { l.sugar.Warnf(template, args...) }
func (l *impl) Warnw(msg string, kv ...interface{})              { l.sugar.Warnw(msg, kv...) }
func (l *impl) Error(args ...interface{})                        { l.sugar.Error(args...) }
func (l *impl) Errorf(template string, args ...interface{})      { l.sugar.Errorf(template, args...) }
func (l *impl) Errorw(msg string, kv ...interface{})             { l.sugar.Errorw(msg, kv...) }

func (l *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	if IsDebugMode(ctx) {
		l.sugar.Infof(template, args...)
		return
	}
	l.sugar.Debugf(template, args...)
}

func (l *impl) Named(name string) Logger {
	return &impl{sugar: l.sugar.Named(name)}
}

func (l *impl) AsZap() *zap.SugaredLogger {
	return l.sugar
}
