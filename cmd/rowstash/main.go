package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rowstash/internal/config"
	"rowstash/internal/rowdb"
)

type note struct {
	Id   int32  `json:"id"`
	Guid string `json:"guid"`
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

func (n *note) GetId() int32 {
	return n.Id
}

func (n *note) SetId(id int32) {
	n.Id = id
}

func main() {
	logger, err := zap.NewDevelopment() // or NewProduction, or NewDevelopment
	if err != nil {
		log.Fatal(err)
	}
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	engine, err := rowdb.NewEngine[*note](config.NewConfig(), rowdb.JSONCodec[*note]{}, logger)
	if err != nil {
		sugar.Fatalw("new engine", "err", err)
	}

	first, err := engine.Insert(ctx, &note{Guid: uuid.New().String(), Tag: "#first", Text: "sample text"})
	if err != nil {
		sugar.Fatalw("insert", "err", err)
	}
	second, err := engine.Insert(ctx, &note{Guid: uuid.New().String(), Tag: "#second", Text: "sample text"})
	if err != nil {
		sugar.Fatalw("insert", "err", err)
	}
	sugar.Infow("inserted", "first", first.Id, "second", second.Id)

	first.Text = "updated text"
	if _, err = engine.Update(ctx, first); err != nil {
		sugar.Fatalw("update", "err", err)
	}

	if err = engine.Delete(ctx, second); err != nil {
		sugar.Fatalw("delete", "err", err)
	}

	all, err := engine.FetchAll(ctx)
	if err != nil {
		sugar.Fatalw("fetch all", "err", err)
	}
	for _, rec := range all {
		sugar.Infow("record", "id", rec.Id, "guid", rec.Guid, "tag", rec.Tag, "text", rec.Text)
	}

	if err = engine.Dispose(ctx); err != nil {
		sugar.Fatalw("dispose", "err", err)
	}
}
