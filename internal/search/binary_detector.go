package search

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/fsguard/internal/security"
)

// binaryExtensions are never opened by content search
var binaryExtensions = setOf(
	// images and fonts
	"png", "jpg", "jpeg", "gif", "bmp", "ico", "webp", "tif", "tiff",
	"woff", "woff2", "ttf", "otf", "eot",
	// archives and packages
	"zip", "tar", "gz", "tgz", "bz2", "xz", "7z", "rar", "jar", "phar",
	// compiled code
	"exe", "dll", "so", "dylib", "a", "o", "obj", "bin", "class", "pyc", "wasm",
	// media, documents, databases
	"mp3", "mp4", "mov", "avi", "wav", "flac", "ogg",
	"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx",
	"db", "sqlite", "sqlite3",
)

// textExtensions decide when a file cannot be sniffed. Dotfiles such as
// .env or .gitignore match by name.
var textExtensions = setOf(
	"txt", "md", "php", "js", "json", "xml", "html", "css", "scss", "sass",
	"yml", "yaml", "ini", "conf", "config", "log", "sql", "sh", "bash",
	"py", "rb", "java", "c", "cpp", "h", "go", "rs", "ts", "jsx", "tsx",
	"vue", "svelte", "env", "gitignore", "dockerignore", "editorconfig",
)

// textMIMETypes are sniffed types outside text/* that are still source text
var textMIMETypes = setOf(
	"application/json",
	"application/xml",
	"application/javascript",
	"application/x-httpd-php",
	"application/x-sh",
)

// BinaryDetector classifies files as text or binary before content search reads them
type BinaryDetector struct{}

// NewBinaryDetector creates a detector
func NewBinaryDetector() *BinaryDetector {
	return &BinaryDetector{}
}

// IsText reports whether path should be scanned by content search. Known
// binary extensions are rejected unopened. Otherwise the leading bytes
// decide: too many control bytes mean binary, and the sniffed MIME type must
// be textual, which also rejects image, archive and font signatures. When the
// file cannot be read the text extension allow-list decides.
func (bd *BinaryDetector) IsText(path string) bool {
	if bd.IsBinaryByExtension(path) {
		return false
	}
	sample, err := readSample(path, sniffLen)
	if err != nil {
		return bd.IsTextByExtension(path)
	}
	if security.IsBinaryData(sample) {
		return false
	}
	return isTextMIME(http.DetectContentType(sample))
}

// IsBinaryByExtension reports whether the extension names a binary format
func (bd *BinaryDetector) IsBinaryByExtension(path string) bool {
	_, ok := binaryExtensions[extensionKey(path)]
	return ok
}

// IsTextByExtension checks the text extension allow-list
func (bd *BinaryDetector) IsTextByExtension(path string) bool {
	_, ok := textExtensions[extensionKey(path)]
	return ok
}

func extensionKey(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func isTextMIME(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	_, ok := textMIMETypes[mediaType]
	return ok
}

func readSample(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:read], nil
}

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, item := range items {
		m[item] = struct{}{}
	}
	return m
}
