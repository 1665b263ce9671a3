package main

import (
	"net/http"
	"os"
	"time"

	"github.com/avergara/jobwatch/app"
	"github.com/avergara/jobwatch/config"
	"github.com/avergara/jobwatch/lib"
	"github.com/avergara/jobwatch/lib/flags"
	"github.com/avergara/jobwatch/lib/ingest"
	"github.com/avergara/jobwatch/lib/notify"
	"github.com/avergara/jobwatch/lib/registry"
	"github.com/avergara/jobwatch/lib/scanner"
	"github.com/avergara/jobwatch/lib/scraper"
	"github.com/avergara/jobwatch/lib/store"
	"github.com/avergara/jobwatch/senders"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
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
	godotenv.Load()

	fx.New(
		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),

		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewTransport),

		fx.Provide(senders.NewSenderRegistry),
		fx.Provide(flags.NewDBSource),
		fx.Provide(store.NewPostingStore),
		fx.Provide(registry.NewUserRegistry),
		fx.Provide(scraper.NewScraper),
		fx.Provide(ingest.NewPersister),
		fx.Provide(notify.NewDispatcher),
		fx.Provide(scanner.NewScanner),

		fx.Provide(lib.NewService),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*http.Server) {}),
		fx.Invoke(func(*scanner.Scanner) {}),
	).Run()
}
