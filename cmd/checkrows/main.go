package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"rowstash/internal/config"
	"rowstash/internal/rowdb"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	engine, err := rowdb.NewEngine[*noteRecord](config.NewConfig(), rowdb.JSONCodec[*noteRecord]{}, logger)
	if err != nil {
		sugar.Fatalw("new engine", "err", err)
	}

	checker := NewChecker(engine, logger)
	checker.Go(ctx)
	checker.Wait()

	if err := engine.Dispose(context.Background()); err != nil {
		sugar.Errorw("dispose", "err", err)
	}
	sugar.Infow("graceful shutdown")
}
