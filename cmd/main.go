// Command tokenswap runs the currency swap engine: a price-fed token catalog,
// a simulated wallet and a swap API, with an optional terminal form.
//
// Usage:
//
//	tokenswap --config config.yaml
//	tokenswap -feed binance -listen :9000
//	tokenswap -tui
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vadiminshakov/tokenswap/config"
	"github.com/vadiminshakov/tokenswap/internal"
)

const tuiLogFile = "tokenswap.log"

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.TUI)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	app, err := internal.NewApp(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build swap engine", zap.Error(err))
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Error("swap engine stopped", zap.Error(err))
	}
}

// newLogger keeps the terminal free for the form when the TUI is on.
func newLogger(tui bool) (*zap.Logger, error) {
	if !tui {
		return zap.NewProduction()
	}
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   tuiLogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, zap.InfoLevel)
	return zap.New(core, zap.AddCaller()), nil
}
