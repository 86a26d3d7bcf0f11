// Package schema holds the GraphQL schema queries are scored against and
// keeps it current as the SDL changes on disk or is pushed over Kafka.
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/observability"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// ErrNotLoaded is reported while no schema has been loaded yet.
var ErrNotLoaded = errors.New("schema: no schema loaded")

// Reload sources used as the "source" metric label.
const (
	SourceFile = "file"
	SourcePush = "push"
)

// Snapshot is one loaded schema together with the estimator built for it.
// Snapshots are immutable once published.
type Snapshot struct {
	Name      string
	SDL       string
	Schema    *ast.Schema
	Estimator complexity.Estimator
	LoadedAt  time.Time
}

// EstimatorFactory builds the estimator for a freshly loaded SDL document.
type EstimatorFactory func(sdl string) (complexity.Estimator, error)

// Registry publishes the active Snapshot. Readers never block; a failed
// load leaves the previous snapshot in place.
type Registry struct {
	current atomic.Pointer[Snapshot]
	factory EstimatorFactory
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(factory EstimatorFactory, m *observability.Metrics, logger *slog.Logger) *Registry {
	return &Registry{factory: factory, metrics: m, logger: logger}
}

// Current returns the active snapshot, or nil before the first load.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Load validates sdl, builds its estimator and publishes the result.
func (r *Registry) Load(name, sdl string) (*Snapshot, error) {
	return r.load(SourcePush, name, sdl)
}

// LoadFile reads the SDL at path and publishes it.
func (r *Registry) LoadFile(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		r.metrics.SchemaReloads.WithLabelValues(SourceFile, "error").Inc()
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return r.load(SourceFile, path, string(b))
}

func (r *Registry) load(source, name, sdl string) (*Snapshot, error) {
	snap, err := r.build(name, sdl)
	if err != nil {
		r.metrics.SchemaReloads.WithLabelValues(source, "error").Inc()
		r.logger.Warn("schema rejected", "source", source, "name", name, "error", err)
		return nil, err
	}

	r.current.Store(snap)
	r.metrics.SchemaReloads.WithLabelValues(source, "success").Inc()
	r.metrics.SchemaLoadedTime.Set(float64(snap.LoadedAt.Unix()))
	r.logger.Info("schema loaded", "source", source, "name", name, "types", len(snap.Schema.Types))
	return snap, nil
}

func (r *Registry) build(name, sdl string) (*Snapshot, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("load schema %q: %w", name, err)
	}
	est, err := r.factory(sdl)
	if err != nil {
		return nil, fmt.Errorf("build estimator for %q: %w", name, err)
	}
	return &Snapshot{
		Name:      name,
		SDL:       sdl,
		Schema:    s,
		Estimator: est,
		LoadedAt:  time.Now(),
	}, nil
}

// CheckReadiness fails until a schema has been loaded.
func (r *Registry) CheckReadiness(_ context.Context) error {
	if r.current.Load() == nil {
		return ErrNotLoaded
	}
	return nil
}
