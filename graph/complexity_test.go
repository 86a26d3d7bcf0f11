package graph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler/testserver"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/couchcryptid/graphql-complexity-gateway/estimator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func newComplexityServer(t *testing.T, ext *ComplexityLimit) *testserver.TestServer {
	t.Helper()
	h := testserver.New()
	h.AddTransport(transport.POST{})
	h.Use(ext)
	return h
}

func simpleEstimator(t *testing.T) complexity.Estimator {
	t.Helper()
	est, err := estimator.NewSimple(1)
	require.NoError(t, err)
	return est
}

func TestComplexityLimit_BelowLimit(t *testing.T) {
	ext := NewComplexityLimit(2, simpleEstimator(t))
	h := newComplexityServer(t, ext)

	var stats *ComplexityStats
	h.AroundOperations(func(ctx context.Context, next graphql.OperationHandler) graphql.ResponseHandler {
		stats = GetComplexityStats(ctx)
		return next(ctx)
	})

	rec := doRequest(h, `{"query":"{ a: name b: name }"}`)

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Errors)
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Complexity)
	assert.Equal(t, 2, stats.ComplexityLimit)
}

func TestComplexityLimit_OverLimit(t *testing.T) {
	h := newComplexityServer(t, NewComplexityLimit(1, simpleEstimator(t)))

	rec := doRequest(h, `{"query":"{ a: name b: name }"}`)

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "operation has complexity 2, which exceeds the limit of 1", resp.Errors[0].Message)
	assert.Equal(t, ErrCodeComplexityLimit, resp.Errors[0].Extensions["code"])
}

func TestComplexityLimit_ZeroOnlyRecords(t *testing.T) {
	h := newComplexityServer(t, NewComplexityLimit(0, simpleEstimator(t)))

	rec := doRequest(h, `{"query":"{ a: name b: name c: name }"}`)

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Errors)
}

func TestComplexityLimit_Variables(t *testing.T) {
	est, err := estimator.NewArguments([]string{"id"}, 1)
	require.NoError(t, err)
	h := newComplexityServer(t, NewComplexityLimit(5, est))

	rec := doRequest(h, `{"query":"query ($x: Boolean!) { find(id: 9) name @skip(if: $x) }","variables":{"x":true}}`)

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "complexity 9")
}

func TestComplexityLimit_Validate(t *testing.T) {
	require.Error(t, (&ComplexityLimit{Limit: 1}).Validate(nil))
	var typedNil *estimator.Simple
	require.ErrorIs(t, (&ComplexityLimit{Limit: 1, Estimator: typedNil}).Validate(nil), complexity.ErrInvalidEstimator)
	require.Error(t, (&ComplexityLimit{Limit: -1, Estimator: simpleEstimator(t)}).Validate(nil))
}

func TestGetComplexityStats_NoOperation(t *testing.T) {
	assert.Nil(t, GetComplexityStats(context.Background()))
}
