package rowdb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"rowstash/internal/config"
)

// engineHeaderSize is the nextId prefix of the backing file, one
// little-endian int32. The serialized store follows it.
const engineHeaderSize = 4

// Engine coordinates one Store, a monotonic identifier counter and the
// backing file. Every public call holds the engine's single permit for its
// full duration, persistence round-trip included, so one logical call is
// atomic with respect to other callers on the same instance. Identifiers
// are assigned strictly increasing and never reused, deletions included.
//
// Engines opened on the same path from different processes are not
// coordinated: the last save wins.
type Engine[T Record] struct {
	conf  *config.Config
	codec Codec[T]
	sem   *semaphore.Weighted

	nextId int32
	rows   *Store[T]
	closed bool

	sugar *zap.SugaredLogger
}

// NewEngine opens the backing file, creating it empty when missing, and
// loads the store from it.
func NewEngine[T Record](conf *config.Config, codec Codec[T], logger *zap.Logger) (*Engine[T], error) {
	e := &Engine[T]{
		conf:  conf,
		codec: codec,
		sem:   semaphore.NewWeighted(1),
		sugar: logger.Sugar(),
	}

	if dir := filepath.Dir(conf.StoreFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}
	if err := e.load(); err != nil {
		return nil, err
	}

	e.sugar.Infow("engine open", "file", conf.StoreFile, "records", e.rows.Len(), "nextId", e.nextId)
	return e, nil
}

// acquire takes the engine's single permit. A context cancelled before or
// during the wait aborts with the context's error and no state is touched.
func (e *Engine[T]) acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return e.sem.Acquire(ctx, 1)
}

// FetchAll returns a copy of all records in slot order. No persistence
// round-trip.
func (e *Engine[T]) FetchAll(ctx context.Context) ([]T, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.rows.ToArray(), nil
}

// FetchById returns the record with the given identifier, reporting a miss
// through the second return.
func (e *Engine[T]) FetchById(ctx context.Context, id int32) (T, bool, error) {
	var zero T
	if err := e.acquire(ctx); err != nil {
		return zero, false, err
	}
	defer e.sem.Release(1)

	if e.closed {
		return zero, false, ErrEngineClosed
	}
	rec, ok := e.rows.FindById(id)
	return rec, ok, nil
}

// Insert assigns the next identifier to rec, appends it and persists. The
// record is returned with its identifier set.
func (e *Engine[T]) Insert(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := e.acquire(ctx); err != nil {
		return zero, err
	}
	defer e.sem.Release(1)

	if e.closed {
		return zero, ErrEngineClosed
	}

	rec.SetId(e.nextId)
	e.rows.Append(rec)
	e.nextId++

	if err := e.persistAndReload(); err != nil {
		return zero, err
	}
	e.sugar.Debugw("insert", "id", rec.GetId())
	return rec, nil
}

// Update replaces the stored record sharing rec's identifier and persists.
// A missing identifier fails with ErrInvalidOperation and leaves the store
// and the file untouched.
func (e *Engine[T]) Update(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := e.acquire(ctx); err != nil {
		return zero, err
	}
	defer e.sem.Release(1)

	if e.closed {
		return zero, ErrEngineClosed
	}

	if err := e.rows.RemoveById(rec.GetId()); err != nil {
		return zero, fmt.Errorf("update id %d: %w", rec.GetId(), ErrInvalidOperation)
	}
	e.rows.Append(rec)
	// The replacement is not necessarily the maximum identifier anymore.
	e.rows.Sort(Ascending)

	if err := e.persistAndReload(); err != nil {
		return zero, err
	}
	e.sugar.Debugw("update", "id", rec.GetId())
	return rec, nil
}

// Delete removes the stored record sharing rec's identifier and persists.
// A missing identifier fails with ErrInvalidOperation and leaves the store
// and the file untouched.
func (e *Engine[T]) Delete(ctx context.Context, rec T) error {
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.sem.Release(1)

	if e.closed {
		return ErrEngineClosed
	}

	if err := e.rows.RemoveById(rec.GetId()); err != nil {
		return fmt.Errorf("delete id %d: %w", rec.GetId(), ErrInvalidOperation)
	}

	if err := e.persistAndReload(); err != nil {
		return err
	}
	e.sugar.Debugw("delete", "id", rec.GetId())
	return nil
}

// Dispose writes a final snapshot and shuts the engine down. Every later
// call fails with ErrEngineClosed.
func (e *Engine[T]) Dispose(ctx context.Context) error {
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.sem.Release(1)

	if e.closed {
		return ErrEngineClosed
	}
	if err := e.save(); err != nil {
		return err
	}
	e.closed = true
	e.sugar.Infow("engine disposed", "file", e.conf.StoreFile)
	return nil
}

func (e *Engine[T]) persistAndReload() error {
	if err := e.save(); err != nil {
		return err
	}
	return e.load()
}

// save writes [nextId][capacity][length][payload] in one contiguous write.
// The file is truncated first: a crash between truncation and the write
// leaves it empty. That is the snapshot design's durability tradeoff; there
// is no temp-file-and-rename step.
func (e *Engine[T]) save() error {
	body, err := e.rows.Serialize()
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	out := make([]byte, engineHeaderSize+len(body))
	binary.LittleEndian.PutUint32(out[0:engineHeaderSize], uint32(e.nextId))
	copy(out[engineHeaderSize:], body)

	file, err := os.OpenFile(e.conf.StoreFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	_, werr := file.Write(out)
	cerr := file.Close()
	if werr != nil {
		return fmt.Errorf("save: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("save: %w", cerr)
	}
	return nil
}

// load replaces rows wholesale with the file's content. A missing file is
// created empty; an empty file yields a fresh store of the configured
// capacity and the configured starting identifier.
func (e *Engine[T]) load() error {
	data, err := os.ReadFile(e.conf.StoreFile)
	if errors.Is(err, fs.ErrNotExist) {
		file, cerr := os.OpenFile(e.conf.StoreFile, os.O_WRONLY|os.O_CREATE, 0o644)
		if cerr != nil {
			return fmt.Errorf("load: %w", cerr)
		}
		if cerr = file.Close(); cerr != nil {
			return fmt.Errorf("load: %w", cerr)
		}
		data = nil
	} else if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	if len(data) == 0 {
		capacity := e.conf.InitialCap
		if capacity <= 0 {
			capacity = defaultCapacity
		}
		startId := e.conf.StartId
		if startId < 1 {
			startId = 1
		}
		e.rows = NewStore[T](capacity, e.codec)
		e.nextId = startId
		return nil
	}

	if len(data) < engineHeaderSize {
		return fmt.Errorf("load: %d byte file: %w", len(data), ErrCorruptData)
	}
	nextId := int32(binary.LittleEndian.Uint32(data[0:engineHeaderSize]))
	rows, err := Deserialize[T](data[engineHeaderSize:], e.codec)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	e.nextId = nextId
	e.rows = rows
	return nil
}

// defaultCapacity is the backing capacity of a fresh store when the
// configuration does not set one.
const defaultCapacity = 100
