// Package hashutil computes the content-hash used for duplicate detection
// (spec.md §3) and for failed-thumbnail-job memoization (spec.md §4.5).
// Adapted from the teacher's blake3-based content hasher, trimmed to the
// single algorithm the catalog actually persists.
package hashutil

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// QuickHashThreshold is the file size above which File uses the
// first/last-chunk quick hash instead of reading the whole file, when the
// caller allows it. Indexing allows it only for videos; CreateThumbnail's
// failure-memo hash allows it for every file.
const QuickHashThreshold = 100 * 1024 * 1024

const quickHashChunkSize = 1 * 1024 * 1024

// File hashes the file at path, using the quick strategy when allowed and
// the file exceeds QuickHashThreshold.
func File(path string, allowQuick bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	if allowQuick && fi.Size() > QuickHashThreshold {
		return quickHash(f, fi.Size())
	}
	return fullHash(f)
}

// Reader hashes the entirety of r. Used when the source isn't a path yet
// (e.g. a RAW preview already decoded into memory).
func Reader(r io.Reader) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fullHash(r io.Reader) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// quickHash hashes file size + first chunk + last chunk, for large
// video/audio files where a full read would be too slow to run on every
// indexing pass.
func quickHash(f *os.File, size int64) (string, error) {
	h := blake3.New()

	sizeBytes := make([]byte, 8)
	for i := range sizeBytes {
		sizeBytes[i] = byte(size >> (i * 8))
	}
	h.Write(sizeBytes)

	first := make([]byte, quickHashChunkSize)
	n, err := f.ReadAt(first, 0)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read first chunk: %w", err)
	}
	h.Write(first[:n])

	if size > quickHashChunkSize {
		lastStart := size - quickHashChunkSize
		if lastStart < quickHashChunkSize {
			lastStart = quickHashChunkSize
		}
		last := make([]byte, quickHashChunkSize)
		n, err := f.ReadAt(last, lastStart)
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("read last chunk: %w", err)
		}
		h.Write(last[:n])
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
