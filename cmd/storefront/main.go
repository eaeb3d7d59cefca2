package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/angelmondragon/storefront/internal/app"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"storage": cfg.Storage.NormalizedDriver(),
	})

	a, err := app.New(ctx, app.Params{Config: cfg, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to bootstrap storefront", err)
		os.Exit(1)
	}

	runErr := run(ctx, a, os.Args[1:], os.Stdout)
	if err := a.Close(); err != nil {
		logg.Error(ctx, "error closing storage", err)
	}
	if runErr != nil {
		printError(runErr)
		os.Exit(1)
	}
}

func printError(err error) {
	payload, marshalErr := json.MarshalIndent(pkgerrors.Dump(err), "", "  ")
	if marshalErr != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Fprintln(os.Stderr, string(payload))
}
