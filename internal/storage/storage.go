package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage provides the optional result cache. Callers that leave it
// disabled get a noop store; everything stays transient per request.

// Store caches operation results keyed by (operation, normalized arguments).
type Store interface {
	Close() error
	Get(operation string, args []byte) ([]byte, bool, error)
	Put(operation string, args []byte, payload []byte) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultResultTTL       = 15 * time.Minute
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = defaultResultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                             { return nil }
func (noopStore) Get(string, []byte) ([]byte, bool, error) { return nil, false, nil }
func (noopStore) Put(string, []byte, []byte) error         { return nil }
