package mux

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts values to and from the byte form kept in the persistent
// store.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

type msgpackCodec[T any] struct{}

func (msgpackCodec[T]) Encode(value T) ([]byte, error) {
	return msgpack.Marshal(value)
}

func (msgpackCodec[T]) Decode(data []byte) (T, error) {
	var value T
	err := msgpack.Unmarshal(data, &value)
	return value, err
}

// MsgpackCodec returns the default Codec, serializing values with msgpack.
func MsgpackCodec[T any]() Codec[T] {
	return msgpackCodec[T]{}
}

type jsonCodec[T any] struct{}

func (jsonCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonCodec[T]) Decode(data []byte) (T, error) {
	var value T
	err := json.Unmarshal(data, &value)
	return value, err
}

// JSONCodec returns a Codec that serializes values as JSON, for callers that
// want the persisted files to be human-readable.
func JSONCodec[T any]() Codec[T] {
	return jsonCodec[T]{}
}
