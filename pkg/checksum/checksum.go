// Package checksum computes the aggregate digest recorded in a backup
// manifest. The digest is order-independent by construction: paths are
// sorted before hashing, each file is hashed on its own, and the aggregate
// is the hash of the sorted per-file digest sequence. Identical content in
// an identical layout always yields the identical aggregate, no matter how
// the filesystem iterates.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FileDigest returns the hex sha256 of one file's contents.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFiles digests every listed file and folds the digests into one
// aggregate. The input is sorted lexicographically first, so the result
// does not depend on the caller's iteration order. An unreadable file
// fails the whole computation; nothing is skipped.
func HashFiles(paths []string) (string, error) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	agg := sha256.New()
	for _, p := range sorted {
		digest, err := FileDigest(p)
		if err != nil {
			return "", err
		}
		agg.Write([]byte(digest))
	}
	return hex.EncodeToString(agg.Sum(nil)), nil
}

// HashTree hashes every regular file under root except the named skips,
// matched against the slash-separated path relative to root. The manifest
// itself is the usual skip.
func HashTree(root string, skip ...string) (string, error) {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if skipped[filepath.ToSlash(rel)] {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", root, err)
	}
	return HashFiles(files)
}
