package rowdb

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"rowstash/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StoreFile:  filepath.Join(t.TempDir(), "rows.data"),
		StartId:    1,
		InitialCap: 100,
	}
}

func newTestEngine(t *testing.T, conf *config.Config) *Engine[*noteRow] {
	t.Helper()
	e, err := NewEngine[*noteRow](conf, JSONCodec[*noteRow]{}, getTestLogger())
	require.NoError(t, err)
	require.NotNil(t, e)
	return e
}

func Test_engine_Insert(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	a, err := e.Insert(ctx, &noteRow{Tag: "#a"})
	require.NoError(t, err)
	b, err := e.Insert(ctx, &noteRow{Tag: "#b"})
	require.NoError(t, err)
	c, err := e.Insert(ctx, &noteRow{Tag: "#c"})
	require.NoError(t, err)

	require.EqualValues(t, 1, a.Id)
	require.EqualValues(t, 2, b.Id)
	require.EqualValues(t, 3, c.Id)

	all, err := e.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "#a", all[0].Tag)
	require.Equal(t, "#b", all[1].Tag)
	require.Equal(t, "#c", all[2].Tag)
}

func Test_engine_FetchById(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := e.Insert(ctx, &noteRow{Tag: "#tag" + strconv.Itoa(i)})
		require.NoError(t, err)
	}

	rec, ok, err := e.FetchById(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, true, ok)
	require.EqualValues(t, 4, rec.Id)
	require.Equal(t, "#tag3", rec.Tag)

	_, ok, err = e.FetchById(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, false, ok)
}

func Test_engine_Update(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	rec, err := e.Insert(ctx, &noteRow{Tag: "#before"})
	require.NoError(t, err)

	rec.Tag = "#after"
	_, err = e.Update(ctx, rec)
	require.NoError(t, err)

	got, ok, err := e.FetchById(ctx, rec.Id)
	require.NoError(t, err)
	require.Equal(t, true, ok)
	require.Equal(t, "#after", got.Tag)
}

func Test_engine_Update_missing(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	_, err := e.Insert(ctx, &noteRow{Tag: "#a"})
	require.NoError(t, err)
	before, err := e.FetchAll(ctx)
	require.NoError(t, err)

	_, err = e.Update(ctx, &noteRow{Id: 999})
	require.ErrorIs(t, err, ErrInvalidOperation)

	after, err := e.FetchAll(ctx)
	require.NoError(t, err)
	require.EqualValues(t, before, after)
}

func Test_engine_Update_resort(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.Insert(ctx, &noteRow{Tag: "#tag" + strconv.Itoa(i)})
		require.NoError(t, err)
	}
	require.NoError(t, e.Delete(ctx, &noteRow{Id: 2}))

	// re-key the maximum record to the freed smaller identifier
	rec, ok, err := e.FetchById(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, true, ok)
	rec.SetId(2)

	_, err = e.Update(ctx, rec)
	require.NoError(t, err)

	all, err := e.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.EqualValues(t, 1, all[0].Id)
	require.EqualValues(t, 2, all[1].Id)
	require.Equal(t, "#tag2", all[1].Tag)
}

func Test_engine_Delete(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	rec, err := e.Insert(ctx, &noteRow{Tag: "#a"})
	require.NoError(t, err)

	require.NoError(t, e.Delete(ctx, rec))
	_, ok, err := e.FetchById(ctx, rec.Id)
	require.NoError(t, err)
	require.Equal(t, false, ok)
}

func Test_engine_Delete_missing(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	_, err := e.Insert(ctx, &noteRow{Tag: "#a"})
	require.NoError(t, err)
	before, err := e.FetchAll(ctx)
	require.NoError(t, err)

	err = e.Delete(ctx, &noteRow{Id: 999})
	require.ErrorIs(t, err, ErrInvalidOperation)

	after, err := e.FetchAll(ctx)
	require.NoError(t, err)
	require.EqualValues(t, before, after)
}

func Test_engine_ids_not_reused(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.Insert(ctx, &noteRow{})
		require.NoError(t, err)
	}
	require.NoError(t, e.Delete(ctx, &noteRow{Id: 3}))

	rec, err := e.Insert(ctx, &noteRow{})
	require.NoError(t, err)
	require.EqualValues(t, 4, rec.Id, "identifiers are never reassigned")
}

func Test_engine_StartId(t *testing.T) {
	conf := testConfig(t)
	conf.StartId = 1000
	e := newTestEngine(t, conf)

	rec, err := e.Insert(context.Background(), &noteRow{})
	require.NoError(t, err)
	require.EqualValues(t, 1000, rec.Id)
}

func Test_engine_reopen(t *testing.T) {
	conf := testConfig(t)
	ctx := context.Background()

	e := newTestEngine(t, conf)
	for i := 0; i < 3; i++ {
		_, err := e.Insert(ctx, &noteRow{Tag: "#tag" + strconv.Itoa(i)})
		require.NoError(t, err)
	}
	require.NoError(t, e.Dispose(ctx))

	reopened := newTestEngine(t, conf)
	all, err := reopened.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	rec, err := reopened.Insert(ctx, &noteRow{})
	require.NoError(t, err)
	require.EqualValues(t, 4, rec.Id, "counter survives reopen")
}

func Test_engine_gob_codec(t *testing.T) {
	conf := testConfig(t)
	ctx := context.Background()

	e, err := NewEngine[*noteRow](conf, GobCodec[*noteRow]{}, getTestLogger())
	require.NoError(t, err)
	_, err = e.Insert(ctx, &noteRow{Tag: "#gob", Text: "sample text"})
	require.NoError(t, err)
	require.NoError(t, e.Dispose(ctx))

	reopened, err := NewEngine[*noteRow](conf, GobCodec[*noteRow]{}, getTestLogger())
	require.NoError(t, err)
	rec, ok, err := reopened.FetchById(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, true, ok)
	require.Equal(t, "#gob", rec.Tag)
}

func Test_engine_disposed(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	require.NoError(t, e.Dispose(ctx))

	_, err := e.FetchAll(ctx)
	require.ErrorIs(t, err, ErrEngineClosed)
	_, err = e.Insert(ctx, &noteRow{})
	require.ErrorIs(t, err, ErrEngineClosed)
	require.ErrorIs(t, e.Dispose(ctx), ErrEngineClosed)
}

func Test_engine_cancelled_context(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Insert(ctx, &noteRow{Tag: "#a"})
	require.ErrorIs(t, err, context.Canceled)

	all, err := e.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 0, "aborted wait must not mutate")
}

func Test_engine_corrupt_file(t *testing.T) {
	conf := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(conf.StoreFile), 0o755))
	require.NoError(t, os.WriteFile(conf.StoreFile, []byte{1, 2, 3}, 0o644))

	_, err := NewEngine[*noteRow](conf, JSONCodec[*noteRow]{}, getTestLogger())
	require.ErrorIs(t, err, ErrCorruptData)
}

func Test_engine_inGoroutines(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	ctx := context.Background()

	goroutinesCount := 20
	var wg sync.WaitGroup
	wg.Add(goroutinesCount)

	for i := 0; i < goroutinesCount; i++ {
		go func(i int) {
			defer wg.Done()

			rec, err := e.Insert(ctx, &noteRow{Tag: "#tag" + strconv.Itoa(i)})
			require.NoError(t, err)

			got, ok, err := e.FetchById(ctx, rec.Id)
			require.NoError(t, err)
			require.Equal(t, true, ok, "id=%d", rec.Id)
			require.EqualValues(t, rec.Id, got.Id)
		}(i)
	}
	wg.Wait()

	all, err := e.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, goroutinesCount)

	seen := make(map[int32]bool)
	for i, rec := range all {
		require.Equal(t, false, seen[rec.Id])
		seen[rec.Id] = true
		if i > 0 {
			require.Equal(t, true, all[i-1].Id < rec.Id, "ascending order")
		}
	}
}
