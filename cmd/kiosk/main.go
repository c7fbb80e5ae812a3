package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devninja1/kiosk-app/internal/client"
	"github.com/devninja1/kiosk-app/internal/config"
	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	buildInfo := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	printBuildInfo(buildInfo)

	cfg, err := config.GetClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error getting configs: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFileLogger("kiosk", cfg.App.LogFile)
	log.Info().Stringer("build", buildInfo).Str("api", cfg.Adapter.HTTPAddress).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := client.NewApp(ctx, cfg, buildInfo, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	go logPendingCount(ctx, app, log)

	if err = app.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("client run error")
	}
}

// logPendingCount reports the size of the pending queue whenever it changes.
func logPendingCount(ctx context.Context, app *client.App, log *logger.Logger) {
	counts, release := app.Services().SyncEngine.PendingRequestCount()
	defer release()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-counts:
			if !ok {
				return
			}
			log.Info().Int("pending", n).Msg("pending changes")
		}
	}
}

func printBuildInfo(info models.AppBuildInfo) {
	fmt.Printf("Build version: %s\n", info.BuildVersion())
	fmt.Printf("Build date: %s\n", info.BuildDate())
	fmt.Printf("Build commit: %s\n", info.BuildCommit())
}
