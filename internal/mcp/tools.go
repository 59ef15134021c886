package mcp

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
	"github.com/standardbeagle/fsguard/internal/tools"
)

// Tool names
const (
	ToolFindFilesByName        = "findFilesByName"
	ToolFindFilesByExtension   = "findFilesByExtension"
	ToolSearchFileContent      = "searchFileContent"
	ToolReadFile               = "readFile"
	ToolCreateFile             = "createFile"
	ToolInsertLines            = "insertLines"
	ToolDeleteLines            = "deleteLines"
	ToolReplaceLine            = "replaceLine"
	ToolListAllowedDirectories = "listAllowedDirectories"
	ToolInvalidateIndex        = "invalidateIndex"
	ToolPing                   = "ping"
)

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func integerProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

func booleanProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: description}
}

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func (s *Server) registerTools() {
	// Discovery
	s.server.AddTool(&mcp.Tool{
		Name:        ToolFindFilesByName,
		Description: "Find files under baseDir whose path relative to baseDir matches query. '*' matches within one path segment; everything else is literal and case-insensitive.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"baseDir":   stringProp("Directory to search, inside an allowed directory"),
			"query":     stringProp("Filename pattern, e.g. 'controller' or '*Test*.php'"),
			"extension": stringProp("Only files with this extension, without the dot"),
		}, "baseDir", "query"),
	}, s.handle(ToolFindFilesByName, s.handleFindFilesByName))

	s.server.AddTool(&mcp.Tool{
		Name:        ToolFindFilesByExtension,
		Description: "List every file under baseDir with the given alphanumeric extension.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"baseDir":   stringProp("Directory to search, inside an allowed directory"),
			"extension": stringProp("Extension without the dot, e.g. 'go'"),
		}, "baseDir", "extension"),
	}, s.handle(ToolFindFilesByExtension, s.handleFindFilesByExtension))

	s.server.AddTool(&mcp.Tool{
		Name:        ToolSearchFileContent,
		Description: "Search file contents under baseDir for literal text. Returns matching lines with surrounding context and each file's quickHash.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"baseDir":         stringProp("Directory to search, inside an allowed directory"),
			"contentQuery":    stringProp("Literal text to find"),
			"filePattern":     stringProp("Only files whose relative path matches this pattern"),
			"extension":       stringProp("Only files with this extension"),
			"caseInsensitive": booleanProp("Ignore case (default true)"),
			"contextLines":    integerProp("Lines of context before and after each match"),
			"maxResults":      integerProp("Stop after this many matching files"),
		}, "baseDir", "contentQuery"),
	}, s.handle(ToolSearchFileContent, s.handleSearchFileContent))

	// Files
	s.server.AddTool(&mcp.Tool{
		Name:        ToolReadFile,
		Description: "Read a text file. Content is keyed by 1-based line number; pass quickHash to the next edit of this file.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"path": stringProp("File to read"),
		}, "path"),
	}, s.handle(ToolReadFile, s.handleReadFile))

	s.server.AddTool(&mcp.Tool{
		Name:        ToolCreateFile,
		Description: "Create a new file. Fails if the file already exists or its directory is missing.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"path":    stringProp("File to create"),
			"content": stringProp("Initial content (default empty)"),
		}, "path"),
	}, s.handle(ToolCreateFile, s.handleCreateFile))

	// Edits
	s.server.AddTool(&mcp.Tool{
		Name:        ToolInsertLines,
		Description: "Insert lines after (default) or before lineNumber. referenceContent must equal the current text of lineNumber and quickHash must come from the last read or edit.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"path":             stringProp("File to edit"),
			"lineNumber":       integerProp("1-based anchor line"),
			"referenceContent": stringProp("Current text of the anchor line"),
			"newLines": {
				Type:        "array",
				Items:       &jsonschema.Schema{Type: "string"},
				Description: "Lines to insert",
			},
			"content":   stringProp("Alternative to newLines: text split on line feeds"),
			"quickHash": stringProp("quickHash from the last read or edit"),
			"after":     booleanProp("Insert after the anchor (default true)"),
		}, "path", "lineNumber", "referenceContent", "quickHash"),
	}, s.handle(ToolInsertLines, s.handleInsertLines))

	s.server.AddTool(&mcp.Tool{
		Name:        ToolDeleteLines,
		Description: "Delete the inclusive range startLine..endLine. referenceContent must equal the current text of startLine (or endLine when referenceIsStart is false).",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"path":             stringProp("File to edit"),
			"startLine":        integerProp("First line to delete, 1-based"),
			"endLine":          integerProp("Last line to delete, inclusive"),
			"referenceContent": stringProp("Current text of the reference line"),
			"quickHash":        stringProp("quickHash from the last read or edit"),
			"referenceIsStart": booleanProp("Check referenceContent against startLine (default true) or endLine"),
		}, "path", "startLine", "endLine", "referenceContent", "quickHash"),
	}, s.handle(ToolDeleteLines, s.handleDeleteLines))

	s.server.AddTool(&mcp.Tool{
		Name:        ToolReplaceLine,
		Description: "Replace one line. referenceContent must equal the line's current text; newContent must be a single line.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"path":             stringProp("File to edit"),
			"lineNumber":       integerProp("1-based line to replace"),
			"referenceContent": stringProp("Current text of the line"),
			"newContent":       stringProp("Replacement text"),
			"quickHash":        stringProp("quickHash from the last read or edit"),
		}, "path", "lineNumber", "referenceContent", "newContent", "quickHash"),
	}, s.handle(ToolReplaceLine, s.handleReplaceLine))

	// System
	s.server.AddTool(&mcp.Tool{
		Name:        ToolListAllowedDirectories,
		Description: "List the directories this server may read and edit.",
		InputSchema: objectSchema(nil),
	}, s.handle(ToolListAllowedDirectories, s.handleListAllowedDirectories))

	s.server.AddTool(&mcp.Tool{
		Name:        ToolInvalidateIndex,
		Description: "Drop the cached file index of a directory so the next search walks it again.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"path": stringProp("Base directory whose index to drop"),
		}, "path"),
	}, s.handle(ToolInvalidateIndex, s.handleInvalidateIndex))

	s.server.AddTool(&mcp.Tool{
		Name:        ToolPing,
		Description: "Check that the server is alive.",
		InputSchema: objectSchema(nil),
	}, s.handle(ToolPing, s.handlePing))
}

// decodeArgs unmarshals the raw tool arguments into v. Missing arguments
// leave v at its zero value.
func decodeArgs(req *mcp.CallToolRequest, v any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fserrors.NewInputError("arguments", "json", "invalid parameters: "+err.Error())
	}
	return nil
}

func (s *Server) handleFindFilesByName(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var params tools.FindRequest
	if err := decodeArgs(req, &params); err != nil {
		return nil, err
	}
	return s.tools.FindFilesByName(ctx, params)
}

func (s *Server) handleFindFilesByExtension(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var params tools.ExtensionRequest
	if err := decodeArgs(req, &params); err != nil {
		return nil, err
	}
	return s.tools.FindFilesByExtension(ctx, params)
}

func (s *Server) handleSearchFileContent(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var params tools.ContentRequest
	if err := decodeArgs(req, &params); err != nil {
		return nil, err
	}
	return s.tools.SearchFileContent(ctx, params)
}

func (s *Server) handleReadFile(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var params tools.PathRequest
	if err := decodeArgs(req, &params); err != nil {
		return nil, err
	}
	return s.tools.ReadFile(ctx, params)
}

func (s *Server) handleCreateFile(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var params tools.CreateRequest
	if err := decodeArgs(req, &params); err != nil {
		return nil, err
	}
	return s.tools.CreateFile(ctx, params)
}

func (s *Server) handleInsertLines(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var params tools.InsertRequest
	if err := decodeArgs(req, &params); err != nil {
		return nil, err
	}
	return s.tools.InsertLines(ctx, params)
}

func (s *Server) handleDeleteLines(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var params tools.DeleteRequest
	if err := decodeArgs(req, &params); err != nil {
		return nil, err
	}
	return s.tools.DeleteLines(ctx, params)
}

func (s *Server) handleReplaceLine(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var params tools.ReplaceRequest
	if err := decodeArgs(req, &params); err != nil {
		return nil, err
	}
	return s.tools.ReplaceLine(ctx, params)
}

func (s *Server) handleListAllowedDirectories(ctx context.Context, _ *mcp.CallToolRequest) (any, error) {
	return s.tools.ListAllowedDirectories(ctx), nil
}

func (s *Server) handleInvalidateIndex(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var params tools.PathRequest
	if err := decodeArgs(req, &params); err != nil {
		return nil, err
	}
	return s.tools.InvalidateIndex(ctx, params)
}

func (s *Server) handlePing(ctx context.Context, _ *mcp.CallToolRequest) (any, error) {
	return s.tools.Ping(ctx), nil
}
