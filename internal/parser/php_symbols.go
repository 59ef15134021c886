package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

// PHPExtractor collects the classes a PHP file uses: use imports,
// instantiations, static calls and constant fetches, instanceof checks,
// caught exceptions, type hints and attributes. Short names are resolved
// through the file's use statements.
type PHPExtractor struct {
	parsers *parserPool
}

// NewPHPExtractor creates an extractor backed by tree-sitter-php
func NewPHPExtractor() *PHPExtractor {
	language := tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	return &PHPExtractor{parsers: newParserPool(language)}
}

func (e *PHPExtractor) Language() string     { return "php" }
func (e *PHPExtractor) Extensions() []string { return []string{".php", ".phtml"} }

// Extract returns fully qualified class names without the leading backslash
func (e *PHPExtractor) Extract(content []byte) ([]string, error) {
	tree, err := e.parsers.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &phpWalker{
		content: content,
		aliases: make(map[string]string),
		used:    make(symbolSet),
	}
	root := tree.RootNode()
	// Imports first so later references resolve regardless of position.
	w.collectImports(root)
	w.collectUsages(root)
	return w.used.sorted(), nil
}

type phpWalker struct {
	content []byte
	aliases map[string]string
	used    symbolSet
}

func (w *phpWalker) text(n *tree_sitter.Node) string {
	return n.Utf8Text(w.content)
}

func (w *phpWalker) collectImports(node *tree_sitter.Node) {
	if node == nil {
		return
	}
	if node.Kind() == "namespace_use_declaration" {
		w.useDeclaration(node)
		return
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		w.collectImports(node.NamedChild(i))
	}
}

func (w *phpWalker) useDeclaration(decl *tree_sitter.Node) {
	// use function / use const import no classes
	if decl.ChildByFieldName("type") != nil {
		return
	}
	prefix := ""
	for i := uint(0); i < decl.NamedChildCount(); i++ {
		child := decl.NamedChild(i)
		switch child.Kind() {
		case "namespace_name":
			prefix = strings.Trim(w.text(child), `\`)
		case "namespace_use_clause":
			w.useClause(child, "")
		case "namespace_use_group":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				clause := child.NamedChild(j)
				if clause.Kind() == "namespace_use_clause" || clause.Kind() == "namespace_use_group_clause" {
					w.useClause(clause, prefix)
				}
			}
		}
	}
}

func (w *phpWalker) useClause(clause *tree_sitter.Node, prefix string) {
	if clause.ChildByFieldName("type") != nil {
		return
	}
	alias := clause.ChildByFieldName("alias")
	var name *tree_sitter.Node
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		if alias != nil && child.Id() == alias.Id() {
			continue
		}
		if kind := child.Kind(); kind == "qualified_name" || kind == "name" || kind == "namespace_name" {
			name = child
			break
		}
	}
	if name == nil {
		return
	}

	full := strings.Trim(w.text(name), `\`)
	if prefix != "" {
		full = prefix + `\` + full
	}
	short := full[strings.LastIndex(full, `\`)+1:]
	if alias != nil {
		short = w.text(alias)
	}
	w.aliases[short] = full
	w.used.add(full)
}

func (w *phpWalker) collectUsages(node *tree_sitter.Node) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "namespace_use_declaration":
		return
	case "object_creation_expression":
		w.addClassChild(node)
	case "scoped_call_expression", "class_constant_access_expression":
		if scope := node.ChildByFieldName("scope"); scope != nil {
			w.addName(scope)
		} else if node.NamedChildCount() > 0 {
			w.addName(node.NamedChild(0))
		}
	case "binary_expression":
		if op := node.ChildByFieldName("operator"); op != nil && strings.EqualFold(w.text(op), "instanceof") {
			w.addName(node.ChildByFieldName("right"))
		}
	case "named_type", "attribute":
		w.addClassChild(node)
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		w.collectUsages(node.NamedChild(i))
	}
}

// addClassChild records the first name-like child of node
func (w *phpWalker) addClassChild(node *tree_sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if kind := child.Kind(); kind == "name" || kind == "qualified_name" {
			w.addName(child)
			return
		}
	}
}

func (w *phpWalker) addName(n *tree_sitter.Node) {
	if n == nil {
		return
	}
	if kind := n.Kind(); kind != "name" && kind != "qualified_name" {
		return
	}
	if resolved := w.resolve(w.text(n)); resolved != "" {
		w.used.add(resolved)
	}
}

// resolve qualifies a class reference against the use statements. Keywords
// that refer to the current class hierarchy are not class usages.
func (w *phpWalker) resolve(name string) string {
	if strings.HasPrefix(name, `\`) {
		return strings.TrimPrefix(name, `\`)
	}
	switch strings.ToLower(name) {
	case "self", "static", "parent":
		return ""
	}

	first, rest, qualified := strings.Cut(name, `\`)
	full, ok := w.aliases[first]
	if !ok {
		return name
	}
	if qualified {
		return full + `\` + rest
	}
	return full
}
