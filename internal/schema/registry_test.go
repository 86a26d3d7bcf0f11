package schema

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/couchcryptid/graphql-complexity-gateway/estimator"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sdlV1 = `type Query { version: String }`
	sdlV2 = `type Query { version: String, user: User } type User { name: String }`
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func simpleFactory(string) (complexity.Estimator, error) {
	return estimator.NewSimple(1)
}

func newTestRegistry(t *testing.T) (*Registry, *observability.Metrics) {
	t.Helper()
	m := observability.NewTestMetrics()
	return NewRegistry(simpleFactory, m, discardLogger()), m
}

func TestRegistry_Load(t *testing.T) {
	r, m := newTestRegistry(t)
	assert.Nil(t, r.Current())

	snap, err := r.Load("v1", sdlV1)
	require.NoError(t, err)

	assert.Same(t, snap, r.Current())
	assert.Equal(t, "v1", snap.Name)
	assert.Equal(t, sdlV1, snap.SDL)
	assert.NotNil(t, snap.Schema.Query.Fields.ForName("version"))
	assert.NotNil(t, snap.Estimator)
	assert.False(t, snap.LoadedAt.IsZero())
	assert.InDelta(t, 1, testutil.ToFloat64(m.SchemaReloads.WithLabelValues(SourcePush, "success")), 0)
}

func TestRegistry_InvalidSDLKeepsPrevious(t *testing.T) {
	r, m := newTestRegistry(t)
	first, err := r.Load("v1", sdlV1)
	require.NoError(t, err)

	_, err = r.Load("broken", `type Query {`)
	require.Error(t, err)
	assert.Same(t, first, r.Current())

	_, err = r.Load("undefined type", `type Query { user: Missing }`)
	require.Error(t, err)
	assert.Same(t, first, r.Current())

	assert.InDelta(t, 2, testutil.ToFloat64(m.SchemaReloads.WithLabelValues(SourcePush, "error")), 0)
}

func TestRegistry_EstimatorErrorKeepsPrevious(t *testing.T) {
	m := observability.NewTestMetrics()
	fail := errors.New("bad settings")
	calls := 0
	r := NewRegistry(func(string) (complexity.Estimator, error) {
		calls++
		if calls > 1 {
			return nil, fail
		}
		return estimator.NewSimple(1)
	}, m, discardLogger())

	first, err := r.Load("v1", sdlV1)
	require.NoError(t, err)

	_, err = r.Load("v2", sdlV2)
	require.ErrorIs(t, err, fail)
	assert.Same(t, first, r.Current())
}

func TestRegistry_Replace(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Load("v1", sdlV1)
	require.NoError(t, err)
	_, err = r.Load("v2", sdlV2)
	require.NoError(t, err)

	assert.Equal(t, "v2", r.Current().Name)
	assert.NotNil(t, r.Current().Schema.Types["User"])
}

func TestRegistry_LoadFile(t *testing.T) {
	r, m := newTestRegistry(t)
	path := filepath.Join(t.TempDir(), "schema.graphql")
	require.NoError(t, os.WriteFile(path, []byte(sdlV2), 0o600))

	snap, err := r.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, snap.Name)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SchemaReloads.WithLabelValues(SourceFile, "success")), 0)

	_, err = r.LoadFile(filepath.Join(t.TempDir(), "missing.graphql"))
	require.Error(t, err)
	assert.Same(t, snap, r.Current())
	assert.InDelta(t, 1, testutil.ToFloat64(m.SchemaReloads.WithLabelValues(SourceFile, "error")), 0)
}

func TestRegistry_Readiness(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.ErrorIs(t, r.CheckReadiness(context.Background()), ErrNotLoaded)

	_, err := r.Load("v1", sdlV1)
	require.NoError(t, err)
	assert.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRegistry_DirectiveFactory(t *testing.T) {
	sdl := `directive @complexity(value: Int!) on FIELD_DEFINITION
		type Query { heavy: String @complexity(value: 9) }`
	r := NewRegistry(func(sdl string) (complexity.Estimator, error) {
		return estimator.Build(estimator.Settings{Kind: estimator.KindDirective, DefaultComplexity: 1}, sdl)
	}, observability.NewTestMetrics(), discardLogger())

	snap, err := r.Load("costs", sdl)
	require.NoError(t, err)

	doc, err := complexity.ParseQuery(`{ heavy }`)
	require.NoError(t, err)
	total, err := complexity.Complexity(doc, snap.Schema, snap.Estimator)
	require.NoError(t, err)
	assert.Equal(t, 9, total)
}
