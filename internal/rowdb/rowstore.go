// Package rowdb is an embedded single-file record store: an ordered
// in-memory container of identifiable records (Store) and an engine that
// keeps it consistent with one backing file (Engine).
package rowdb

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrOutOfRange       = errors.New("index out of range")
	ErrRecordNotFound   = errors.New("record not found")
	ErrCorruptData      = errors.New("corrupt snapshot data")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrEngineClosed     = errors.New("storage engine disposed")
)

// storeHeaderSize is the capacity and length prefix of a serialized store,
// two little-endian int32.
const storeHeaderSize = 8

// Store is an ordered, growable container of records keyed by their
// identifier. Slots [0,n) stay ascending by id as long as records arrive
// with increasing ids (the engine guarantees that); Append with an
// out-of-order id breaks the ordering until Sort.
//
// IMPORTANT: Store does not provide thread safety.
type Store[T Record] struct {
	buf   []T
	n     int
	codec Codec[T]
}

// NewStore returns an empty store with the given backing capacity.
func NewStore[T Record](capacity int, codec Codec[T]) *Store[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Store[T]{
		buf:   make([]T, capacity),
		codec: codec,
	}
}

// Len returns the number of live records.
func (s *Store[T]) Len() int {
	return s.n
}

// Cap returns the backing buffer capacity.
func (s *Store[T]) Cap() int {
	return len(s.buf)
}

// Get returns the record at slot i.
func (s *Store[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= s.n {
		return zero, fmt.Errorf("get %d of %d: %w", i, s.n, ErrOutOfRange)
	}
	return s.buf[i], nil
}

// Set overwrites the record at slot i.
func (s *Store[T]) Set(i int, v T) error {
	if i < 0 || i >= s.n {
		return fmt.Errorf("set %d of %d: %w", i, s.n, ErrOutOfRange)
	}
	s.buf[i] = v
	return nil
}

// Append writes v after the last live record, doubling the backing buffer
// when it is full.
func (s *Store[T]) Append(v T) {
	s.grow(s.n + 1)
	s.buf[s.n] = v
	s.n++
}

// InsertAt shifts the records at slots >= i one to the right and writes v
// at slot i. i is checked against the pre-insertion length.
func (s *Store[T]) InsertAt(i int, v T) error {
	if i < 0 || i >= s.n {
		return fmt.Errorf("insert at %d of %d: %w", i, s.n, ErrOutOfRange)
	}
	s.grow(s.n + 1)
	copy(s.buf[i+1:s.n+1], s.buf[i:s.n])
	s.buf[i] = v
	s.n++
	return nil
}

// RemoveAt shifts the records at slots > i one to the left.
func (s *Store[T]) RemoveAt(i int) error {
	if i < 0 || i >= s.n {
		return fmt.Errorf("remove at %d of %d: %w", i, s.n, ErrOutOfRange)
	}
	copy(s.buf[i:s.n-1], s.buf[i+1:s.n])
	s.n--
	var zero T
	s.buf[s.n] = zero
	return nil
}

// RemoveById removes the record whose identifier equals id. The search is
// binary, so the store must be ascending by id.
func (s *Store[T]) RemoveById(id int32) error {
	i, ok := s.search(id)
	if !ok {
		return fmt.Errorf("remove id %d: %w", id, ErrRecordNotFound)
	}
	return s.RemoveAt(i)
}

// FindById returns the record whose identifier equals id. The search is
// binary: on a store that is not ascending by id it may miss a present
// record, but it never panics.
func (s *Store[T]) FindById(id int32) (T, bool) {
	var zero T
	i, ok := s.search(id)
	if !ok {
		return zero, false
	}
	return s.buf[i], true
}

// search runs a half-open [low,high) binary search over the live slots.
func (s *Store[T]) search(id int32) (int, bool) {
	low, high := 0, s.n
	for low < high {
		mid := low + (high-low)/2
		got := s.buf[mid].GetId()
		if got == id {
			return mid, true
		}
		if got > id {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return 0, false
}

// Sort orders the live slots by identifier in place. The adjacent-swap pass
// keeps records with equal identifiers in their relative order.
func (s *Store[T]) Sort(order SortOrder) {
	for i := 0; i < s.n; i++ {
		for j := 0; j+1 < s.n-i; j++ {
			a, b := s.buf[j].GetId(), s.buf[j+1].GetId()
			if (order == Ascending && a > b) || (order == Descending && a < b) {
				s.buf[j], s.buf[j+1] = s.buf[j+1], s.buf[j]
			}
		}
	}
}

// ToArray returns an independent copy of the live records in slot order.
func (s *Store[T]) ToArray() []T {
	out := make([]T, s.n)
	copy(out, s.buf[:s.n])
	return out
}

// Serialize encodes the store as [capacity][length][payload], the payload
// being the codec's encoding of the live records and absent when the store
// is empty.
func (s *Store[T]) Serialize() ([]byte, error) {
	var payload []byte
	if s.n > 0 {
		var err error
		payload, err = s.codec.Encode(s.buf[:s.n])
		if err != nil {
			return nil, fmt.Errorf("serialize: %w", err)
		}
	}

	out := make([]byte, storeHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(s.buf)))
	binary.LittleEndian.PutUint32(out[4:8], uint32(s.n))
	copy(out[storeHeaderSize:], payload)
	return out, nil
}

// Deserialize reconstructs a store from the output of Serialize. A recorded
// length of zero yields an empty store of the recorded capacity; a payload
// the codec cannot decode, or one holding a different number of records
// than recorded, fails with ErrCorruptData.
func Deserialize[T Record](data []byte, codec Codec[T]) (*Store[T], error) {
	if len(data) < storeHeaderSize {
		return nil, fmt.Errorf("deserialize: %d byte header: %w", len(data), ErrCorruptData)
	}
	capacity := int(int32(binary.LittleEndian.Uint32(data[0:4])))
	length := int(int32(binary.LittleEndian.Uint32(data[4:8])))
	if capacity < 1 || length < 0 || length > capacity {
		return nil, fmt.Errorf("deserialize: capacity=%d length=%d: %w", capacity, length, ErrCorruptData)
	}

	s := NewStore[T](capacity, codec)
	if length == 0 {
		return s, nil
	}

	records, err := codec.Decode(data[storeHeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("deserialize: %v: %w", err, ErrCorruptData)
	}
	if len(records) != length {
		return nil, fmt.Errorf("deserialize: got %d records, recorded %d: %w", len(records), length, ErrCorruptData)
	}
	copy(s.buf, records)
	s.n = length
	return s, nil
}

func (s *Store[T]) grow(need int) {
	capacity := len(s.buf)
	if need <= capacity {
		return
	}
	for capacity < need {
		capacity *= 2
	}
	next := make([]T, capacity)
	copy(next, s.buf[:s.n])
	s.buf = next
}
