package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a category search.
type Params struct {
	Query      string
	Limit      int    // Defaults to 20
	ActiveOnly bool   // Storefront searches hide inactive categories
	PathPrefix string // Restrict to a subtree, e.g. "/electronics"
}

// Hit is one ranked match.
type Hit struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Result holds ranked hits, best first.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Search executes a ranked query. A blank query returns no hits.
func (s *CategoryIndex) Search(ctx context.Context, params Params) (*Result, error) {
	term := strings.TrimSpace(params.Query)
	if term == "" {
		return &Result{Query: params.Query, Hits: []Hit{}}, nil
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(term, params), params.Limit, 0, false)
	req.Fields = []string{"name", "path"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if n, ok := h.Fields["name"].(string); ok {
			hit.Name = n
		}
		if p, ok := h.Fields["path"].(string); ok {
			hit.Path = p
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// buildSearchQuery ranks name matches above everything else, then
// keywords, then description and ancestor names.
func buildSearchQuery(term string, params Params) query.Query {
	lower := strings.ToLower(term)

	name := bleve.NewMatchQuery(term)
	name.SetField("name")
	name.SetBoost(5)

	namePrefix := bleve.NewPrefixQuery(lower)
	namePrefix.SetField("name")
	namePrefix.SetBoost(3)

	nameFuzzy := bleve.NewFuzzyQuery(lower)
	nameFuzzy.SetField("name")
	nameFuzzy.SetFuzziness(1)
	nameFuzzy.SetBoost(2)

	keywords := bleve.NewMatchQuery(term)
	keywords.SetField("keywords")
	keywords.SetBoost(2)

	slug := bleve.NewMatchQuery(term)
	slug.SetField("slug")

	desc := bleve.NewMatchQuery(term)
	desc.SetField("description")

	ancestors := bleve.NewMatchQuery(term)
	ancestors.SetField("ancestor_names")
	ancestors.SetBoost(0.5)

	text := bleve.NewDisjunctionQuery(name, namePrefix, nameFuzzy, keywords, slug, desc, ancestors)

	must := []query.Query{text}
	if params.ActiveOnly {
		active := bleve.NewBoolFieldQuery(true)
		active.SetField("active")
		must = append(must, active)
	}
	if params.PathPrefix != "" {
		subtree := bleve.NewPrefixQuery(params.PathPrefix)
		subtree.SetField("path")
		must = append(must, subtree)
	}
	if len(must) == 1 {
		return text
	}
	return bleve.NewConjunctionQuery(must...)
}
