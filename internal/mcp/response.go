package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

var errPanic = errors.New("internal error while running the tool; see the server log")

// ErrorResponse is the body of a failed tool call
type ErrorResponse struct {
	Success     bool     `json:"success"`
	Operation   string   `json:"operation"`
	Kind        string   `json:"kind"`
	Error       string   `json:"error"`
	Path        string   `json:"path,omitempty"`
	Rule        string   `json:"rule,omitempty"`
	Line        int      `json:"line,omitempty"`
	Expected    string   `json:"expected,omitempty"`
	Actual      string   `json:"actual,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse creates a standardized error response for MCP tools.
// IsError is set rather than returning a protocol error so the model sees
// the failure and can retry with corrected arguments.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	response, marshalErr := createJSONResponse(describeError(operation, err))
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

// describeError flattens the typed error into the response body
func describeError(operation string, err error) ErrorResponse {
	body := ErrorResponse{
		Operation: operation,
		Kind:      string(fserrors.TypeOf(err)),
		Error:     err.Error(),
	}

	var (
		accessErr   *fserrors.AccessError
		fileErr     *fserrors.FileError
		inputErr    *fserrors.InputError
		conflictErr *fserrors.ConflictError
		staleErr    *fserrors.StaleReferenceError
	)
	switch {
	case errors.As(err, &accessErr):
		body.Path = accessErr.Path
	case errors.As(err, &fileErr):
		body.Path = fileErr.Path
		body.Suggestions = fileErr.Suggestions
	case errors.As(err, &inputErr):
		body.Rule = inputErr.Rule
	case errors.As(err, &conflictErr):
		body.Path = conflictErr.Path
		body.Expected = conflictErr.Expected
		body.Actual = conflictErr.Actual
	case errors.As(err, &staleErr):
		body.Path = staleErr.Path
		body.Line = staleErr.Line
		body.Expected = staleErr.Expected
		body.Actual = staleErr.Actual
	}
	return body
}
