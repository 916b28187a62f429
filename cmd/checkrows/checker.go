package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rowstash/internal/rowdb"
)

const (
	displayCounter = 100
)

type noteRecord struct {
	Id   int32  `json:"id"`
	Guid string `json:"guid"`
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

func (n *noteRecord) GetId() int32 {
	return n.Id
}

func (n *noteRecord) SetId(id int32) {
	n.Id = id
}

func (n *noteRecord) String() string {
	if n.Guid == "" {
		return "uninitialized"
	}
	return fmt.Sprintf("id=%d guid=%s tag=%s", n.Id, n.Guid, n.Tag)
}

func newNoteRecord() *noteRecord {
	i := rand.Intn(100)
	return &noteRecord{
		Guid: uuid.New().String(),
		Tag:  "#tag" + strconv.Itoa(i),
		Text: "sample text " + strconv.Itoa(i),
	}
}

// Checker pushes random records through an insert -> get -> update ->
// remove pipeline against one engine instance, each stage checking what the
// previous one wrote.
type Checker struct {
	toDisplay chan string

	toGet    chan *noteRecord
	toUpdate chan *noteRecord
	toRemove chan *noteRecord

	wg sync.WaitGroup

	engine *rowdb.Engine[*noteRecord]
	sugar  *zap.SugaredLogger
}

func NewChecker(engine *rowdb.Engine[*noteRecord], logger *zap.Logger) *Checker {
	return &Checker{
		engine:    engine,
		sugar:     logger.Sugar(),
		toDisplay: make(chan string),
		toGet:     make(chan *noteRecord),
		toUpdate:  make(chan *noteRecord),
		toRemove:  make(chan *noteRecord),
	}
}

func (c *Checker) Go(ctx context.Context) {
	c.wg.Add(9)

	go c.display(ctx)

	go c.insert(ctx)
	go c.insert(ctx)
	go c.get(ctx)
	go c.get(ctx)
	go c.update(ctx)
	go c.update(ctx)
	go c.remove(ctx)
	go c.remove(ctx)
}

func (c *Checker) Wait() {
	c.wg.Wait()
}

func (c *Checker) display(ctx context.Context) {
	defer c.wg.Done()
	c.sugar.Infow("display start")

	for {
		select {
		case <-ctx.Done():
			c.sugar.Infow("display done")
			return
		case s := <-c.toDisplay:
			n, err := fmt.Fprint(os.Stdout, s)
			if err != nil {
				c.sugar.Fatalw("fprint stdout", "err", err, "n", n)
			}
		}
	}
}

func (c *Checker) insert(ctx context.Context) {
	defer c.wg.Done()

	count := 0
	c.sugar.Infow("insert start")

	for {
		select {
		case <-ctx.Done():
			c.sugar.Infow("insert done")
			return
		default:
			rec, err := c.engine.Insert(ctx, newNoteRecord())
			if err != nil {
				if ctx.Err() != nil {
					c.sugar.Infow("insert done")
					return
				}
				c.sugar.Fatalw("insert", "error", err)
			}

			count++
			if count == displayCounter {
				count = 0
				c.toDisplay <- "I"
			}

			select {
			case <-ctx.Done():
				c.sugar.Infow("insert done")
				return
			case c.toGet <- rec:
			}
		}
	}
}

func (c *Checker) get(ctx context.Context) {
	defer c.wg.Done()

	count := 0
	c.sugar.Infow("get start")

	for {
		select {
		case <-ctx.Done():
			c.sugar.Infow("get done")
			return
		case rec := <-c.toGet:
			got, ok, err := c.engine.FetchById(ctx, rec.Id)
			if err != nil {
				c.sugar.Errorw("get", "error", err)
				continue
			}
			if !ok {
				c.sugar.Fatalw("get: inserted record missing", "rec", rec)
			}
			c.compare(rec, got)

			count++
			if count == displayCounter {
				count = 0
				c.toDisplay <- "G"
			}

			select {
			case <-ctx.Done():
				c.sugar.Infow("get done")
				return
			case c.toUpdate <- got:
			}
		}
	}
}

func (c *Checker) update(ctx context.Context) {
	defer c.wg.Done()

	count := 0
	c.sugar.Infow("update start")

	for {
		select {
		case <-ctx.Done():
			c.sugar.Infow("update done")
			return
		case rec := <-c.toUpdate:
			rec.Text = "updated " + rec.Text
			after, err := c.engine.Update(ctx, rec)
			if err != nil {
				if ctx.Err() != nil {
					c.sugar.Infow("update done")
					return
				}
				c.sugar.Fatalw("update", "error", err, "rec", rec)
			}
			c.compare(rec, after)

			count++
			if count == displayCounter {
				count = 0
				c.toDisplay <- "U"
			}

			select {
			case <-ctx.Done():
				c.sugar.Infow("update done")
				return
			case c.toRemove <- after:
			}
		}
	}
}

func (c *Checker) remove(ctx context.Context) {
	defer c.wg.Done()

	count := 0
	c.sugar.Infow("remove start")

	for {
		select {
		case <-ctx.Done():
			c.sugar.Infow("remove done")
			return
		case rec := <-c.toRemove:
			if err := c.engine.Delete(ctx, rec); err != nil {
				if ctx.Err() != nil {
					c.sugar.Infow("remove done")
					return
				}
				c.sugar.Fatalw("remove", "error", err, "rec", rec)
			}

			_, ok, err := c.engine.FetchById(ctx, rec.Id)
			if err != nil {
				c.sugar.Errorw("remove: get after", "error", err)
				continue
			}
			if ok {
				c.sugar.Fatalw("remove: record still present", "rec", rec)
			}

			count++
			if count == displayCounter {
				count = 0
				c.toDisplay <- "R"
			}
		}
	}
}

func (c *Checker) compare(before, after *noteRecord) {
	if before.Id != after.Id {
		c.sugar.Fatalw("compare id", "before", before, "after", after)
	}
	if before.Guid != after.Guid {
		c.sugar.Fatalw("compare guid", "before", before, "after", after)
	}
	if before.Tag != after.Tag {
		c.sugar.Fatalw("compare tag", "before", before, "after", after)
	}
	if before.Text != after.Text {
		c.sugar.Fatalw("compare text", "before", before, "after", after)
	}
}
