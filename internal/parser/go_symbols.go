package parser

import (
	"strconv"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

const goImportQuery = `(import_spec path: (interpreted_string_literal) @import.path)`

// GoExtractor lists the import paths of a Go file
type GoExtractor struct {
	parsers *parserPool
	query   *tree_sitter.Query
}

// NewGoExtractor creates an extractor backed by tree-sitter-go
func NewGoExtractor() *GoExtractor {
	language := tree_sitter.NewLanguage(tree_sitter_go.Language())
	query, _ := tree_sitter.NewQuery(language, goImportQuery)
	return &GoExtractor{parsers: newParserPool(language), query: query}
}

func (e *GoExtractor) Language() string     { return "go" }
func (e *GoExtractor) Extensions() []string { return []string{".go"} }

func (e *GoExtractor) Extract(content []byte) ([]string, error) {
	tree, err := e.parsers.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	imports := make(symbolSet)
	// NewQuery can hand back a nil query with a typed nil error
	if e.query == nil {
		return imports.sorted(), nil
	}

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(e.query, tree.RootNode(), content)
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, c := range match.Captures {
			raw := c.Node.Utf8Text(content)
			if path, err := strconv.Unquote(raw); err == nil {
				imports.add(path)
			}
		}
	}
	return imports.sorted(), nil
}
