package main

import (
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/fiffu/bonuswatch/app"
	"github.com/fiffu/bonuswatch/config"
	"github.com/fiffu/bonuswatch/lib"
	"github.com/fiffu/bonuswatch/lib/watcher"
	"github.com/fiffu/bonuswatch/senders"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),

		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),

		fx.Provide(app.NewTransport),
		fx.Provide(senders.NewSenderRegistry),
		fx.Provide(app.NewHistoryStore),
		fx.Provide(app.NewScraperFactory),

		fx.Provide(watcher.NewWatcher),
		fx.Provide(lib.NewService),
		fx.Provide(app.NewHTTPServer),

		fx.Invoke(func(*watcher.Watcher, *http.Server) {}),
	).Run()
}
