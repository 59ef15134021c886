package tools

import (
	"github.com/standardbeagle/fsguard/internal/indexing"
)

// FindRequest is the input of FindFilesByName
type FindRequest struct {
	BaseDir   string `json:"baseDir"`
	Query     string `json:"query"`
	Extension string `json:"extension,omitempty"`
}

// ExtensionRequest is the input of FindFilesByExtension
type ExtensionRequest struct {
	BaseDir   string `json:"baseDir"`
	Extension string `json:"extension"`
}

// FindResult lists the files a discovery call matched
type FindResult struct {
	Count   int                   `json:"count"`
	BaseDir string                `json:"baseDir"`
	Files   []indexing.FileRecord `json:"files"`
}

// ContentRequest is the input of SearchFileContent. Pointer fields
// distinguish "not given" from zero values.
type ContentRequest struct {
	BaseDir         string `json:"baseDir"`
	ContentQuery    string `json:"contentQuery"`
	FilePattern     string `json:"filePattern,omitempty"`
	Extension       string `json:"extension,omitempty"`
	CaseInsensitive *bool  `json:"caseInsensitive,omitempty"`
	ContextLines    *int   `json:"contextLines,omitempty"`
	MaxResults      *int   `json:"maxResults,omitempty"`
}

// PathRequest is the input of ReadFile
type PathRequest struct {
	Path string `json:"path"`
}

// CreateRequest is the input of CreateFile
type CreateRequest struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
}

// InsertRequest is the input of InsertLines. NewLines takes precedence over
// Content, which is split on line feeds.
type InsertRequest struct {
	Path             string   `json:"path"`
	LineNumber       int      `json:"lineNumber"`
	ReferenceContent string   `json:"referenceContent"`
	NewLines         []string `json:"newLines,omitempty"`
	Content          string   `json:"content,omitempty"`
	QuickHash        string   `json:"quickHash"`
	After            *bool    `json:"after,omitempty"`
}

// DeleteRequest is the input of DeleteLines
type DeleteRequest struct {
	Path             string `json:"path"`
	StartLine        int    `json:"startLine"`
	EndLine          int    `json:"endLine"`
	ReferenceContent string `json:"referenceContent"`
	QuickHash        string `json:"quickHash"`
	ReferenceIsStart *bool  `json:"referenceIsStart,omitempty"`
}

// ReplaceRequest is the input of ReplaceLine
type ReplaceRequest struct {
	Path             string `json:"path"`
	LineNumber       int    `json:"lineNumber"`
	ReferenceContent string `json:"referenceContent"`
	NewContent       string `json:"newContent"`
	QuickHash        string `json:"quickHash"`
}

// FileSnapshot is the content of a file with its fingerprints. Content is
// keyed by 1-based line number.
type FileSnapshot struct {
	Path        string         `json:"path"`
	Content     map[int]string `json:"content"`
	TotalLines  int            `json:"totalLines"`
	Checksum    string         `json:"checksum"`
	QuickHash   string         `json:"quickHash"`
	UsedSymbols []string       `json:"usedSymbols,omitempty"`
}

// CreateResult describes a created file
type CreateResult struct {
	Success   bool          `json:"success"`
	Path      string        `json:"path"`
	Created   bool          `json:"created"`
	Size      int           `json:"size"`
	Checksum  string        `json:"checksum"`
	QuickHash string        `json:"quickHash"`
	File      *FileSnapshot `json:"file,omitempty"`
}

// EditResult describes a committed line edit
type EditResult struct {
	Success             bool          `json:"success"`
	Path                string        `json:"path"`
	LinesAffected       int           `json:"linesAffected"`
	TotalLines          int           `json:"totalLines"`
	Checksum            string        `json:"checksum"`
	QuickHash           string        `json:"quickHash"`
	UpdatedFileSnapshot *FileSnapshot `json:"updatedFileSnapshot,omitempty"`
}

// DirectoryInfo describes one allowed directory
type DirectoryInfo struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
}

// DirectoriesResult is the output of ListAllowedDirectories
type DirectoriesResult struct {
	Count       int             `json:"count"`
	Directories []DirectoryInfo `json:"directories"`
}

// PingResult is the output of Ping
type PingResult struct {
	Message string `json:"message"`
	Server  string `json:"server"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// InvalidateResult is the output of InvalidateIndex
type InvalidateResult struct {
	Success bool   `json:"success"`
	BaseDir string `json:"baseDir"`
}
