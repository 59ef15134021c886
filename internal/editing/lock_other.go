//go:build !unix

package editing

import "os"

// Advisory locks are not available here; the temp file name is already unique.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
