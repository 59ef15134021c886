package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
)

// TestFileValidator validates the pre-read file checks
func TestFileValidator(t *testing.T) {
	validator := NewFileValidator(1024)

	t.Run("ValidTextFile", func(t *testing.T) {
		path := writeTempFile(t, "a.txt", []byte("x\ny\nz"))
		info, err := validator.Validate("read", path)
		require.NoError(t, err)
		assert.Equal(t, int64(5), info.Size())
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := validator.Validate("read", filepath.Join(t.TempDir(), "missing.txt"))
		assert.True(t, fserrors.Is(err, fserrors.ErrorTypeNotFound), "got %v", err)
	})

	t.Run("Directory", func(t *testing.T) {
		_, err := validator.Validate("read", t.TempDir())
		assert.True(t, fserrors.Is(err, fserrors.ErrorTypeInvalidInput), "got %v", err)
	})

	t.Run("TooLarge", func(t *testing.T) {
		path := writeTempFile(t, "big.txt", make([]byte, 2048))
		_, err := validator.Validate("read", path)
		require.Error(t, err)
		var inputErr *fserrors.InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "file_too_large", inputErr.Rule)
	})

	t.Run("DisguisedImage", func(t *testing.T) {
		path := writeTempFile(t, "logo.png", []byte("not really a png"))
		_, err := validator.Validate("read", path)
		var inputErr *fserrors.InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "signature_mismatch", inputErr.Rule)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		path := writeTempFile(t, "empty.txt", nil)
		_, err := validator.Validate("read", path)
		assert.NoError(t, err)
	})
}

func TestIsBinaryData(t *testing.T) {
	assert.False(t, IsBinaryData(nil))
	assert.False(t, IsBinaryData([]byte("package main\n\tfunc main() {}\r\n")))
	assert.True(t, IsBinaryData([]byte{0x00, 0x01, 0x02, 0x03, 'a'}))
}

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}
