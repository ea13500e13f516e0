// Package observability builds the zap logger and wires OpenTelemetry
// tracing and log export.
package observability

import (
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ServiceName    = "ticket-inventory"
	ServiceVersion = "0.1.0"
)

// NewLogger returns a JSON logger on stdout. In dev the level drops to debug.
func NewLogger(env string) *zap.Logger {
	return zap.New(consoleCore(env),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", ServiceName)),
	)
}

// WithOTelBridge tees records to the global OpenTelemetry logger provider,
// so they are exported alongside traces once SetupLogging has run.
func WithOTelBridge(env string) *zap.Logger {
	otelCore := otelzap.NewCore(ServiceName,
		otelzap.WithLoggerProvider(global.GetLoggerProvider()),
	)
	return zap.New(zapcore.NewTee(otelCore, consoleCore(env)),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", ServiceName)),
	)
}

func consoleCore(env string) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.InfoLevel
	if env == "dev" {
		level = zap.DebugLevel
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), level)
}
