// Package zaplog adapts a zap logger to the idbridge Logger interface so
// services get structured logging without the core depending on a specific
// logging stack.
package zaplog

import (
	idbridge "github.com/arcline/go-idbridge"
	"go.uber.org/zap"
)

type Adapter struct {
	sugar *zap.SugaredLogger
}

var _ idbridge.Logger = (*Adapter)(nil)

// New wraps a zap logger. A nil logger falls back to zap.NewNop.
func New(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{sugar: logger.Sugar()}
}

func (a *Adapter) Debug(msg string, keysAndValues ...any) {
	a.sugar.Debugw(msg, keysAndValues...)
}

func (a *Adapter) Info(msg string, keysAndValues ...any) {
	a.sugar.Infow(msg, keysAndValues...)
}

func (a *Adapter) Warn(msg string, keysAndValues ...any) {
	a.sugar.Warnw(msg, keysAndValues...)
}

func (a *Adapter) Error(msg string, keysAndValues ...any) {
	a.sugar.Errorw(msg, keysAndValues...)
}
