package core

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// QuickHash fingerprints a file from its path, size and modification time.
// It never reads file contents, so it costs the same for any file size.
// mtime is in nanoseconds since the epoch.
func QuickHash(path string, size int64, mtime int64) string {
	buf := make([]byte, 0, len(path)+42)
	buf = append(buf, path...)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, size, 10)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, mtime, 10)
	return strconv.FormatUint(xxhash.Sum64(buf), 16)
}

// QuickHashInfo computes the quick hash from an existing stat result.
func QuickHashInfo(path string, info os.FileInfo) string {
	return QuickHash(path, info.Size(), info.ModTime().UnixNano())
}

// StatQuickHash stats path and returns its current quick hash.
func StatQuickHash(path string) (string, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}
	return QuickHashInfo(path, info), info, nil
}

// Checksum is the sha256 digest of content, hex encoded.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
