package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBinaryByExtension(t *testing.T) {
	bd := NewBinaryDetector()

	tests := []struct {
		path   string
		binary bool
	}{
		{"/srv/app/font.woff2", true},
		{"/srv/app/image.PNG", true},
		{"/srv/app/archive.tar.gz", true},
		{"/srv/app/library.so", true},
		{"/srv/app/db.sqlite", true},
		{"/srv/app/source.php", false},
		{"/srv/app/image.svg", false},
		{"/srv/app/bundle.min.js", false},
		{"/srv/app/noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.binary, bd.IsBinaryByExtension(tt.path))
		})
	}
}

func TestIsText(t *testing.T) {
	bd := NewBinaryDetector()
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content []byte
		text    bool
	}{
		{"plain text", "a.txt", []byte("x\ny\nz"), true},
		{"utf-8 text", "hello.md", []byte("Hello, 世界!"), true},
		{"php without a text extension", "script.inc", []byte("<?php echo 1;"), true},
		{"json", "data.json", []byte(`{"a": 1}`), true},
		{"xml", "feed.xml", []byte(`<?xml version="1.0"?><a/>`), true},
		{"svg", "logo.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), true},
		{"empty", "empty.md", nil, true},
		{"control bytes", "blob.dat", []byte{0x00, 0x01, 0x02, 0x03, 0x00, 0x00}, false},
		{"single nul in text", "mixed.txt", []byte("abc\x00def ghi jkl"), false},
		{"png signature", "picture.dat", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, false},
		{"gzip signature", "payload.dat", []byte{0x1F, 0x8B, 0x08, 0x00}, false},
		{"elf header", "tool", []byte{0x7F, 'E', 'L', 'F', 0x02, 0x01, 0x01, 0x00}, false},
		{"binary extension", "logo.png", []byte("text in disguise"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, tt.content, 0o644))
			assert.Equal(t, tt.text, bd.IsText(path))
		})
	}
}

func TestIsTextFallsBackToExtension(t *testing.T) {
	bd := NewBinaryDetector()
	dir := t.TempDir()

	// Missing files cannot be sniffed; the allow-list decides.
	assert.True(t, bd.IsText(filepath.Join(dir, "missing.go")))
	assert.False(t, bd.IsText(filepath.Join(dir, "missing.bin2")))
	assert.True(t, bd.IsTextByExtension("/srv/app/.env"))
}
