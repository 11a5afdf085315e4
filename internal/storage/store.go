// Package storage provides the key-value persistence used by the
// workspace and the component catalog.
//
// Values are opaque bytes; callers own the encoding. Every backend
// namespaces its keys so several deployments can share one server.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a minimal key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Options select and configure a backend.
type Options struct {
	Backend     string
	RedisURL    string
	PostgresDSN string
	Namespace   string
}

// Open builds the backend named by opts.Backend.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		store, err := NewRedis(ctx, opts.RedisURL, opts.Namespace)
		if err != nil {
			return nil, err
		}
		logger.Info("Using redis store", zap.String("namespace", opts.Namespace))
		return store, nil
	case "postgres":
		store, err := NewPostgres(ctx, opts.PostgresDSN, opts.Namespace)
		if err != nil {
			return nil, err
		}
		logger.Info("Using postgres store", zap.String("namespace", opts.Namespace))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

func namespaced(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}
