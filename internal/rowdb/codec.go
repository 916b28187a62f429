package rowdb

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

// Codec turns the store's live records into the snapshot payload and back.
// The store only frames the payload by byte length; its content is opaque.
type Codec[T any] interface {
	Encode(records []T) ([]byte, error)
	Decode(data []byte) ([]T, error)
}

// JSONCodec encodes the records as one JSON array.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(records []T) ([]byte, error) {
	return json.Marshal(records)
}

func (JSONCodec[T]) Decode(data []byte) ([]T, error) {
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GobCodec encodes the records as a gob stream.
type GobCodec[T any] struct{}

func (GobCodec[T]) Encode(records []T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec[T]) Decode(data []byte) ([]T, error) {
	var records []T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}
