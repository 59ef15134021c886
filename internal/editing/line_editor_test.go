package editing

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/fsguard/internal/core"
	fserrors "github.com/standardbeagle/fsguard/internal/errors"
	"github.com/standardbeagle/fsguard/internal/security"
)

type editRecorder struct {
	mu  sync.Mutex
	ops []string
	err []error
}

func (r *editRecorder) ObserveEdit(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	r.err = append(r.err, err)
}

// setupFile writes content with an mtime in the past and returns the editor,
// the path and the file's quick hash.
func setupFile(t *testing.T, content string) (*LineEditor, string, string) {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	guard := security.NewPathGuard([]security.AllowedPath{{Path: root}})
	editor := NewLineEditor(guard, Options{})
	return editor, path, quickHash(t, path)
}

func quickHash(t *testing.T, path string) string {
	t.Helper()
	hash, _, err := core.StatQuickHash(path)
	require.NoError(t, err)
	return hash
}

func readLines(t *testing.T, path string) map[int]string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return SplitLines(string(content)).Map()
}

func TestReplaceLineScenario(t *testing.T) {
	editor, path, h0 := setupFile(t, "x\ny\nz")

	result, err := editor.ReplaceRange(path, 2, 2, &Reference{Line: 2, Content: "y"}, []string{"Y"}, h0)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.TotalLines)
	assert.Equal(t, 1, result.LinesAffected)
	assert.Equal(t, core.Checksum([]byte("x\nY\nz")), result.Checksum)
	assert.Equal(t, quickHash(t, path), result.QuickHash, "returned hash reflects the written file")
	assert.Equal(t, map[int]string{1: "x", 2: "Y", 3: "z"}, readLines(t, path))
}

func TestInsertBeforeScenario(t *testing.T) {
	editor, path, h0 := setupFile(t, "x\ny\nz")

	result, err := editor.Insert(path, Reference{Line: 1, Content: "x"}, []string{"w"}, h0, false)
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalLines)
	assert.Equal(t, 1, result.LinesAffected)
	assert.Equal(t, map[int]string{1: "w", 2: "x", 3: "y", 4: "z"}, readLines(t, path))
}

func TestInsertAfter(t *testing.T) {
	editor, path, h0 := setupFile(t, "x\ny\nz")

	_, err := editor.Insert(path, Reference{Line: 3, Content: "z"}, []string{"1", "2"}, h0, true)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "x", 2: "y", 3: "z", 4: "1", 5: "2"}, readLines(t, path))
}

func TestInsertThenDeleteRoundTrip(t *testing.T) {
	original := "alpha\nbeta\ngamma\n"
	editor, path, h0 := setupFile(t, original)

	inserted, err := editor.Insert(path, Reference{Line: 2, Content: "beta"}, []string{"one", "two", "three"}, h0, true)
	require.NoError(t, err)
	assert.Equal(t, 7, inserted.TotalLines)

	deleted, err := editor.DeleteRange(path, 3, 5, &Reference{Line: 3, Content: "one"}, inserted.QuickHash)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted.LinesAffected)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(content))
	assert.Equal(t, SplitLines(original).Len(), deleted.TotalLines)
	assert.Equal(t, core.Checksum([]byte(original)), deleted.Checksum)
}

func TestOldQuickHashIsRejectedAfterMutation(t *testing.T) {
	tests := []struct {
		name string
		edit func(e *LineEditor, path, hash string) (*Result, error)
	}{
		{"replace", func(e *LineEditor, path, hash string) (*Result, error) {
			return e.ReplaceRange(path, 2, 2, &Reference{Line: 2, Content: "y"}, []string{"y"}, hash)
		}},
		{"insert", func(e *LineEditor, path, hash string) (*Result, error) {
			return e.Insert(path, Reference{Line: 1, Content: "x"}, []string{"w"}, hash, true)
		}},
		{"delete", func(e *LineEditor, path, hash string) (*Result, error) {
			return e.DeleteRange(path, 3, 3, nil, hash)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor, path, h0 := setupFile(t, "x\ny\nz")

			_, err := tt.edit(editor, path, h0)
			require.NoError(t, err)

			_, err = tt.edit(editor, path, h0)
			require.Error(t, err)
			var conflict *fserrors.ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, h0, conflict.Expected)
			assert.Equal(t, quickHash(t, path), conflict.Actual)
		})
	}
}

func TestChainedEditsUseReturnedHash(t *testing.T) {
	editor, path, h0 := setupFile(t, "x\ny\nz")

	first, err := editor.ReplaceRange(path, 1, 1, &Reference{Line: 1, Content: "x"}, []string{"X"}, h0)
	require.NoError(t, err)
	second, err := editor.ReplaceRange(path, 3, 3, &Reference{Line: 3, Content: "z"}, []string{"Z"}, first.QuickHash)
	require.NoError(t, err)

	assert.Equal(t, map[int]string{1: "X", 2: "y", 3: "Z"}, readLines(t, path))
	assert.NotEqual(t, first.Checksum, second.Checksum)
}

func TestPreconditionOrder(t *testing.T) {
	t.Run("missing file is reported before hash", func(t *testing.T) {
		editor, path, _ := setupFile(t, "x")
		_, err := editor.DeleteRange(filepath.Join(filepath.Dir(path), "missing.txt"), 1, 1, nil, "bogus")
		assert.True(t, fserrors.Is(err, fserrors.ErrorTypeNotFound), "got %v", err)
	})

	t.Run("hash is checked before reference", func(t *testing.T) {
		editor, path, _ := setupFile(t, "x\ny\nz")
		_, err := editor.ReplaceRange(path, 2, 2, &Reference{Line: 2, Content: "wrong"}, []string{"Y"}, "bogus")
		assert.True(t, fserrors.Is(err, fserrors.ErrorTypeConcurrentModification), "got %v", err)
	})

	t.Run("reference is checked before range", func(t *testing.T) {
		editor, path, h0 := setupFile(t, "x\ny\nz")
		_, err := editor.DeleteRange(path, 2, 9, &Reference{Line: 2, Content: "wrong"}, h0)
		var stale *fserrors.StaleReferenceError
		require.ErrorAs(t, err, &stale)
		assert.Equal(t, 2, stale.Line)
		assert.Equal(t, "wrong", stale.Expected)
		assert.Equal(t, "y", stale.Actual)
	})

	t.Run("range is validated against the file", func(t *testing.T) {
		editor, path, h0 := setupFile(t, "x\ny\nz")
		_, err := editor.DeleteRange(path, 2, 9, &Reference{Line: 2, Content: "y"}, h0)
		var inputErr *fserrors.InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "line_out_of_range", inputErr.Rule)
	})

	t.Run("failed edits leave the file untouched", func(t *testing.T) {
		editor, path, h0 := setupFile(t, "x\ny\nz")
		_, err := editor.ReplaceRange(path, 2, 2, &Reference{Line: 2, Content: "nope"}, []string{"Y"}, h0)
		require.Error(t, err)
		assert.Equal(t, h0, quickHash(t, path))
	})
}

func TestStaleReferenceSnippetsAreTruncated(t *testing.T) {
	long := strings.Repeat("L", 500)
	editor, path, h0 := setupFile(t, long+"\nshort")

	_, err := editor.Insert(path, Reference{Line: 1, Content: strings.Repeat("C", 500)}, []string{"x"}, h0, true)
	var stale *fserrors.StaleReferenceError
	require.ErrorAs(t, err, &stale)
	assert.Len(t, stale.Expected, fserrors.SnippetLimit+3)
	assert.Len(t, stale.Actual, fserrors.SnippetLimit+3)
}

func TestArgumentValidation(t *testing.T) {
	editor, path, h0 := setupFile(t, "x\ny\nz")

	tests := []struct {
		name string
		run  func() error
		rule string
	}{
		{"insert needs payload", func() error {
			_, err := editor.Insert(path, Reference{Line: 1, Content: "x"}, nil, h0, true)
			return err
		}, "empty_payload"},
		{"insert anchor below one", func() error {
			_, err := editor.Insert(path, Reference{Line: 0}, []string{"a"}, h0, true)
			return err
		}, "line_number"},
		{"insert anchor past end", func() error {
			_, err := editor.Insert(path, Reference{Line: 4, Content: ""}, []string{"a"}, h0, true)
			return err
		}, "line_out_of_range"},
		{"delete reversed range", func() error {
			_, err := editor.DeleteRange(path, 3, 2, nil, h0)
			return err
		}, "line_range"},
		{"replace start below one", func() error {
			_, err := editor.ReplaceRange(path, 0, 1, nil, []string{"a"}, h0)
			return err
		}, "line_number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var inputErr *fserrors.InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.rule, inputErr.Rule)
		})
	}

	assert.Equal(t, map[int]string{1: "x", 2: "y", 3: "z"}, readLines(t, path))
}

func TestEditOutsideAllowList(t *testing.T) {
	editor, _, _ := setupFile(t, "x")
	outside := filepath.Join(t.TempDir(), "b.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	_, err := editor.DeleteRange(outside, 1, 1, nil, quickHash(t, outside))
	assert.True(t, fserrors.Is(err, fserrors.ErrorTypeAccessDenied), "got %v", err)

	content, _ := os.ReadFile(outside)
	assert.Equal(t, "x", string(content))
}

func TestAccessIsCheckedBeforeArguments(t *testing.T) {
	editor, _, _ := setupFile(t, "x")
	outside := filepath.Join(t.TempDir(), "b.txt")

	tests := []struct {
		name string
		run  func() error
	}{
		{"insert with anchor below one", func() error {
			_, err := editor.Insert(outside, Reference{Line: 0}, nil, "", true)
			return err
		}},
		{"delete with reversed range", func() error {
			_, err := editor.DeleteRange(outside, 3, 1, nil, "")
			return err
		}},
		{"replace with start below one", func() error {
			_, err := editor.ReplaceRange(outside, 0, 0, nil, nil, "")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assert.True(t, fserrors.Is(err, fserrors.ErrorTypeAccessDenied), "got %v", err)
		})
	}
}

func TestEditThroughSymlinkUpdatesTarget(t *testing.T) {
	editor, path, _ := setupFile(t, "x\ny\nz")
	link := filepath.Join(filepath.Dir(path), "link.txt")
	if err := os.Symlink(path, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	realPath, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)

	res, err := editor.ReplaceRange(link, 2, 2, &Reference{Line: 2, Content: "y"}, []string{"Y"}, quickHash(t, realPath))
	require.NoError(t, err)
	assert.Equal(t, realPath, res.Path)

	assert.Equal(t, map[int]string{1: "x", 2: "Y", 3: "z"}, readLines(t, path))
	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "the link itself is left in place")
	assert.Equal(t, quickHash(t, realPath), res.QuickHash)
}

func TestDeletingEveryLineLeavesOneEmptyLine(t *testing.T) {
	editor, path, h0 := setupFile(t, "x\ny")

	res, err := editor.DeleteRange(path, 1, 2, &Reference{Line: 1, Content: "x"}, h0)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "", string(content))
	assert.Equal(t, SplitLines(string(content)).Len(), res.TotalLines)
	assert.Equal(t, 1, res.TotalLines)
}

func TestWriteFailureReportsIOFailure(t *testing.T) {
	editor, path, h0 := setupFile(t, "x\ny\nz")
	editor.writer.rename = func(string, string) error { return errors.New("device busy") }

	_, err := editor.ReplaceRange(path, 2, 2, nil, []string{"Y"}, h0)
	assert.True(t, fserrors.Is(err, fserrors.ErrorTypeIOFailure), "got %v", err)
	assert.Equal(t, map[int]string{1: "x", 2: "y", 3: "z"}, readLines(t, path))
}

func TestEditObserver(t *testing.T) {
	recorder := &editRecorder{}
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	editor := NewLineEditor(security.NewPathGuard([]security.AllowedPath{{Path: root}}), Options{Observer: recorder})

	_, err := editor.ReplaceRange(path, 1, 1, nil, []string{"y"}, quickHash(t, path))
	require.NoError(t, err)
	_, err = editor.ReplaceRange(path, 1, 1, nil, []string{"y"}, "stale")
	require.Error(t, err)

	assert.Equal(t, []string{OpReplace, OpReplace}, recorder.ops)
	assert.NoError(t, recorder.err[0])
	assert.True(t, fserrors.Is(recorder.err[1], fserrors.ErrorTypeConcurrentModification))
}

func TestPermissionsArePreserved(t *testing.T) {
	editor, path, _ := setupFile(t, "x")
	require.NoError(t, os.Chmod(path, 0o600))

	_, err := editor.ReplaceRange(path, 1, 1, nil, []string{"y"}, quickHash(t, path))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
