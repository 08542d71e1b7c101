package mux

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/crontab/multiplexer/store"
)

var (
	// ErrNoID is returned when a cache is constructed without an identifier.
	ErrNoID = errors.New("mux: cache id is required")
	// ErrNoProducer is returned when a cache is constructed without a
	// producer.
	ErrNoProducer = errors.New("mux: producer is required")
	// ErrEmptyKey is returned by keyed operations given an empty key.
	ErrEmptyKey = errors.New("mux: empty key")
)

// Config configures a Multiplexer. ID and Producer are required; every other
// field has a usable default.
type Config[T any] struct {
	// ID identifies the cache: it is the registry key and the domain the
	// value is persisted under. Required.
	ID string

	// Producer fetches a fresh value. Required.
	Producer Producer[T]

	// TTL is how long a fetched value stays fresh. Defaults to DefaultTTL.
	TTL time.Duration

	// Transient classifies producer errors. When it returns true and a
	// previous value is available, that value is served instead of the
	// error. Defaults to ConnectivityError.
	Transient func(error) bool

	// Store persists values across restarts. Defaults to store.Nop()
	// (memory-only).
	Store store.Store

	// Codec serializes values for the Store. Defaults to MsgpackCodec.
	Codec Codec[T]

	// Registry, when set, has the cache registered under ID at
	// construction time.
	Registry *Registry

	// Clock overrides the time source, for tests. Defaults to time.Now.
	Clock func() time.Time
}

func (cfg Config[T]) fetcherConfig(key string) (fetcherConfig[T], error) {
	if cfg.ID == "" {
		return fetcherConfig[T]{}, ErrNoID
	}
	out := fetcherConfig[T]{
		domain:    cfg.ID,
		key:       key,
		ttl:       cfg.TTL,
		produce:   cfg.Producer,
		transient: cfg.Transient,
		store:     cfg.Store,
		codec:     cfg.Codec,
		now:       cfg.Clock,
	}
	if out.ttl <= 0 {
		out.ttl = DefaultTTL
	}
	if out.transient == nil {
		out.transient = ConnectivityError
	}
	if out.store == nil {
		out.store = store.Nop()
	}
	if out.codec == nil {
		out.codec = MsgpackCodec[T]()
	}
	if out.now == nil {
		out.now = time.Now
	}
	return out, nil
}

// KeyedProducer fetches a fresh value for one key of a MultiplexerMap.
type KeyedProducer[T any] func(ctx context.Context, key string) (T, error)

// MapConfig configures a MultiplexerMap. It mirrors Config except that the
// producer receives the key being fetched.
type MapConfig[T any] struct {
	// ID identifies the cache and is the persistence domain shared by all
	// its keys. Required.
	ID string

	// Producer fetches a fresh value for a key. Required.
	Producer KeyedProducer[T]

	TTL       time.Duration
	Transient func(error) bool
	Store     store.Store
	Codec     Codec[T]
	Registry  *Registry
	Clock     func() time.Time
}
