// Package gateway scores GraphQL requests before they reach the upstream
// server and turns away the ones over budget.
package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/couchcryptid/graphql-complexity-gateway/graph"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/observability"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/schema"
	"github.com/go-chi/chi/v5"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// HeaderComplexity carries the score of a forwarded request.
const HeaderComplexity = "X-Query-Complexity"

// Error codes placed in extensions.code of rejections.
const (
	ErrCodeParse      = "GRAPHQL_PARSE_FAILED"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNoSchema   = "SCHEMA_UNAVAILABLE"
)

const maxBodyBytes = 1 << 20

// SnapshotSource provides the schema requests are scored against.
type SnapshotSource interface {
	Current() *schema.Snapshot
}

// Options bounds accepted requests. Zero limits are not enforced.
type Options struct {
	MaxComplexity int
	MaxDepth      int
	Count         complexity.Config
	UpstreamURL   string
}

// Request is the standard GraphQL-over-HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Handler serves /query and /explain.
type Handler struct {
	schemas  SnapshotSource
	analyzer *complexity.Analyzer
	opts     Options
	proxy    *httputil.ReverseProxy
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New returns a handler. Accepted queries are proxied to opts.UpstreamURL,
// or answered with their score when it is empty.
func New(schemas SnapshotSource, analyzer *complexity.Analyzer, opts Options, m *observability.Metrics, logger *slog.Logger) (*Handler, error) {
	h := &Handler{
		schemas:  schemas,
		analyzer: analyzer,
		opts:     opts,
		metrics:  m,
		logger:   logger,
	}
	if opts.UpstreamURL != "" {
		target, err := url.Parse(opts.UpstreamURL)
		if err != nil {
			return nil, fmt.Errorf("parse upstream url: %w", err)
		}
		if target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("upstream url %q must be absolute", opts.UpstreamURL)
		}
		h.proxy = newProxy(target, logger)
	}
	return h, nil
}

// Routes mounts the handler's endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/query", h.Query)
	r.Post("/explain", h.Explain)
}

// Query scores the request and forwards it when it is within budget.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	body, req, ok := h.readRequest(w, r)
	if !ok {
		return
	}
	snap := h.snapshot(w)
	if snap == nil {
		return
	}

	ctx, span := observability.StartSpan(r.Context(), "gateway.score",
		attribute.String("graphql.operation.name", req.OperationName),
		attribute.String("graphql.schema.name", snap.Name),
	)
	defer span.End()

	doc, err := h.analyzer.Parse(req.Query)
	if err != nil {
		observability.RecordError(span, err)
		h.reject(w, observability.ReasonParse, parseError(err))
		return
	}

	total, err := complexity.Complexity(doc, snap.Schema, snap.Estimator, h.scoreOptions(req)...)
	if err != nil {
		observability.RecordError(span, err)
		h.reject(w, observability.ReasonParse, codedError(ErrCodeBadRequest, "%s", err))
		return
	}
	span.SetAttributes(attribute.Int("graphql.complexity", total))
	h.metrics.QueryComplexity.WithLabelValues(estimatorName(snap.Estimator)).Observe(float64(total))

	if h.opts.MaxDepth > 0 {
		if depth := operationDepth(doc, req.OperationName); depth > h.opts.MaxDepth {
			h.reject(w, observability.ReasonDepth, codedError(graph.ErrCodeDepthLimit,
				"query depth %d exceeds maximum allowed depth of %d", depth, h.opts.MaxDepth))
			return
		}
	}
	if h.opts.MaxComplexity > 0 && total > h.opts.MaxComplexity {
		gqlErr := codedError(graph.ErrCodeComplexityLimit,
			"operation has complexity %d, which exceeds the limit of %d", total, h.opts.MaxComplexity)
		gqlErr.Extensions["complexity"] = total
		gqlErr.Extensions["limit"] = h.opts.MaxComplexity
		h.reject(w, observability.ReasonComplexity, gqlErr)
		return
	}

	if h.proxy == nil {
		w.Header().Set(HeaderComplexity, strconv.Itoa(total))
		writeJSON(w, http.StatusOK, map[string]any{
			"data": nil,
			"extensions": map[string]any{
				"complexity": total,
				"limit":      h.opts.MaxComplexity,
			},
		})
		return
	}

	out := r.Clone(ctx)
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	out.Header.Set(HeaderComplexity, strconv.Itoa(total))
	h.proxy.ServeHTTP(w, out)
}

// Explain reports how the request's score is reached. The response is JSON
// unless ?format=yaml is given.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	_, req, ok := h.readRequest(w, r)
	if !ok {
		return
	}
	snap := h.snapshot(w)
	if snap == nil {
		return
	}

	_, span := observability.StartSpan(r.Context(), "gateway.explain")
	defer span.End()

	doc, err := h.analyzer.Parse(req.Query)
	if err != nil {
		observability.RecordError(span, err)
		writeErrors(w, http.StatusBadRequest, parseError(err))
		return
	}
	exp, err := complexity.Explain(req.Query, doc, snap.Schema, snap.Estimator, h.scoreOptions(req)...)
	if err != nil {
		observability.RecordError(span, err)
		writeErrors(w, http.StatusBadRequest, codedError(ErrCodeBadRequest, "%s", err))
		return
	}

	if r.URL.Query().Get("format") == "yaml" {
		out, err := yaml.Marshal(exp)
		if err != nil {
			h.logger.Error("encode explanation", "error", err)
			http.Error(w, "encode explanation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (h *Handler) readRequest(w http.ResponseWriter, r *http.Request) ([]byte, Request, bool) {
	var req Request
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeErrors(w, http.StatusRequestEntityTooLarge, codedError(ErrCodeBadRequest, "read request body: %s", err))
		return nil, req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeErrors(w, http.StatusBadRequest, codedError(ErrCodeBadRequest, "json request body could not be decoded: %s", err))
		return nil, req, false
	}
	if req.Query == "" {
		writeErrors(w, http.StatusBadRequest, codedError(ErrCodeBadRequest, "no query provided"))
		return nil, req, false
	}
	return body, req, true
}

func (h *Handler) snapshot(w http.ResponseWriter) *schema.Snapshot {
	snap := h.schemas.Current()
	if snap == nil {
		h.metrics.QueryRejections.WithLabelValues(observability.ReasonNoSchema).Inc()
		writeErrors(w, http.StatusServiceUnavailable, codedError(ErrCodeNoSchema, "no schema loaded"))
	}
	return snap
}

func (h *Handler) scoreOptions(req Request) []complexity.Option {
	return []complexity.Option{
		complexity.WithConfig(h.opts.Count),
		complexity.WithVariables(req.Variables),
		complexity.WithOperationName(req.OperationName),
	}
}

func (h *Handler) reject(w http.ResponseWriter, reason string, err *gqlerror.Error) {
	h.metrics.QueryRejections.WithLabelValues(reason).Inc()
	h.logger.Debug("query rejected", "reason", reason, "error", err.Message)
	writeErrors(w, http.StatusBadRequest, err)
}

func newProxy(target *url.URL, logger *slog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = target.Path
			pr.Out.URL.RawPath = target.RawPath
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("proxy upstream", "error", err, "upstream", target.String())
			writeErrors(w, http.StatusBadGateway, gqlerror.Errorf("upstream unavailable"))
		},
	}
}

// operationDepth is the depth of the named operation, or the deepest of all
// operations when no name is given.
func operationDepth(doc *ast.QueryDocument, name string) int {
	depth := 0
	for _, op := range doc.Operations {
		if name != "" && op.Name != name {
			continue
		}
		depth = max(depth, graph.QueryDepth(op.SelectionSet, doc.Fragments))
	}
	return depth
}

func estimatorName(est complexity.Estimator) string {
	if d, ok := est.(complexity.Describer); ok {
		return d.Name()
	}
	return "custom"
}

func codedError(code, format string, args ...any) *gqlerror.Error {
	err := gqlerror.Errorf(format, args...)
	err.Extensions = map[string]any{"code": code}
	return err
}

// parseError keeps the positions reported by the parser.
func parseError(err error) *gqlerror.Error {
	var gqlErr *gqlerror.Error
	if errors.As(err, &gqlErr) {
		out := *gqlErr
		out.Extensions = map[string]any{"code": ErrCodeParse}
		return &out
	}
	return codedError(ErrCodeParse, "%s", err)
}

func writeErrors(w http.ResponseWriter, status int, errs ...*gqlerror.Error) {
	writeJSON(w, status, map[string]any{"errors": gqlerror.List(errs)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
