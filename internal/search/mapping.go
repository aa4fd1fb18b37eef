package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for category documents.
//
// Names and descriptions use the English analyzer for stemming. Keywords
// and slugs use the simple analyzer so part numbers and codes are not
// stemmed. Path is a keyword field for subtree filters.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	ancestorFieldMapping := bleve.NewTextFieldMapping()
	ancestorFieldMapping.Analyzer = en.AnalyzerName
	ancestorFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("ancestor_names", ancestorFieldMapping)

	keywordsFieldMapping := bleve.NewTextFieldMapping()
	keywordsFieldMapping.Analyzer = simple.Name
	keywordsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("keywords", keywordsFieldMapping)

	slugFieldMapping := bleve.NewTextFieldMapping()
	slugFieldMapping.Analyzer = simple.Name
	slugFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("slug", slugFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	pathFieldMapping := bleve.NewTextFieldMapping()
	pathFieldMapping.Analyzer = keyword.Name
	pathFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("path", pathFieldMapping)

	levelFieldMapping := bleve.NewNumericFieldMapping()
	levelFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("level", levelFieldMapping)

	activeFieldMapping := bleve.NewBooleanFieldMapping()
	docMapping.AddFieldMappingsAt("active", activeFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
