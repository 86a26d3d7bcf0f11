package complexity

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of parsed documents kept by NewDocumentCache
// when no capacity is given.
const DefaultCacheSize = 256

// DocumentCache maps exact query text to its parsed document. It is safe for
// concurrent use; concurrent misses for the same text share one parse.
// Cached documents are shared and must be treated as read-only.
type DocumentCache struct {
	docs  *lru.Cache[string, *ast.QueryDocument]
	group singleflight.Group

	// OnLookup, when set, is called with true on a hit and false on a miss.
	OnLookup func(hit bool)
}

// NewDocumentCache returns a cache holding at most size documents. A size
// of zero or less selects DefaultCacheSize.
func NewDocumentCache(size int) (*DocumentCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	docs, err := lru.New[string, *ast.QueryDocument](size)
	if err != nil {
		return nil, fmt.Errorf("create document cache: %w", err)
	}
	return &DocumentCache{docs: docs}, nil
}

// Parse returns the cached document for query, parsing and storing it on a
// miss. Parse errors are returned and not cached.
func (c *DocumentCache) Parse(query string) (*ast.QueryDocument, error) {
	if doc, ok := c.docs.Get(query); ok {
		c.observe(true)
		return doc, nil
	}
	c.observe(false)

	v, err, _ := c.group.Do(query, func() (any, error) {
		doc, err := ParseQuery(query)
		if err != nil {
			return nil, err
		}
		c.docs.Add(query, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ast.QueryDocument), nil
}

// Len returns the number of cached documents.
func (c *DocumentCache) Len() int {
	return c.docs.Len()
}

func (c *DocumentCache) observe(hit bool) {
	if c.OnLookup != nil {
		c.OnLookup(hit)
	}
}

// ParseQuery parses query text without consulting any cache.
func ParseQuery(query string) (*ast.QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	return doc, nil
}
