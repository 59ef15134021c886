package security

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

// FileValidator checks a file before its content is loaded for reading or editing.
// Prevents memory bloat from huge files and edits of files disguised by their extension.
type FileValidator struct {
	MaxFileSize int64 // Files larger than this are rejected
	HeaderSize  int64 // Size of header to read for signature checks
}

// NewFileValidator creates a validator with the given size cap in bytes.
// A non-positive cap disables the size check.
func NewFileValidator(maxFileSize int64) *FileValidator {
	return &FileValidator{
		MaxFileSize: maxFileSize,
		HeaderSize:  8 * 1024,
	}
}

// Validate stats path and returns its FileInfo when it is a regular file within
// the size cap whose header agrees with its extension.
func (fv *FileValidator) Validate(op, path string) (os.FileInfo, error) {
	info, err := fv.ValidateStat(op, path)
	if err != nil {
		return nil, err
	}

	header, err := fv.readHeader(path)
	if err != nil {
		return nil, fserrors.NewFileError(op, path, err)
	}
	if err := fv.checkMagicBytes(path, header); err != nil {
		return nil, fserrors.NewInputError("path", "signature_mismatch", err.Error())
	}
	return info, nil
}

// ValidateStat performs the metadata-only checks of Validate without opening the file.
func (fv *FileValidator) ValidateStat(op, path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fserrors.NewFileError(op, path, err)
	}
	if info.IsDir() {
		return nil, fserrors.NewInputError("path", "not_a_file", fmt.Sprintf("%s is a directory", path))
	}
	if !info.Mode().IsRegular() {
		return nil, fserrors.NewInputError("path", "not_a_file", fmt.Sprintf("%s is not a regular file", path))
	}
	if fv.MaxFileSize > 0 && info.Size() > fv.MaxFileSize {
		return nil, fserrors.NewInputError("path", "file_too_large",
			fmt.Sprintf("%s is %d bytes, limit is %d", path, info.Size(), fv.MaxFileSize))
	}
	return info, nil
}

func (fv *FileValidator) readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, fv.HeaderSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return header[:n], nil
}

// checkMagicBytes verifies file signature matches extension
func (fv *FileValidator) checkMagicBytes(path string, header []byte) error {
	if len(header) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(path))

	// File signatures (magic bytes)
	magicBytes := map[string][]byte{
		".png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
		".jpg":  {0xFF, 0xD8, 0xFF},
		".jpeg": {0xFF, 0xD8, 0xFF},
		".gif":  {0x47, 0x49, 0x46, 0x38},
		".pdf":  {0x25, 0x50, 0x44, 0x46, 0x2D},
		".zip":  {0x50, 0x4B, 0x03, 0x04},
		".exe":  {0x4D, 0x5A}, // PE executable
		".dll":  {0x4D, 0x5A}, // PE DLL
	}

	if magic, exists := magicBytes[ext]; exists {
		if !bytes.HasPrefix(header, magic) {
			return fmt.Errorf("magic bytes don't match %s extension (file may be disguised)", ext)
		}
	}

	return nil
}

// IsBinaryData checks if data looks like binary content:
// more than 30% control characters other than tab, LF and CR.
func IsBinaryData(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	nonPrintable := 0
	for _, b := range data {
		if b < 9 || (b > 13 && b < 32) || b == 127 {
			nonPrintable++
		}
	}

	ratio := float64(nonPrintable) / float64(len(data))
	return ratio > 0.3
}
