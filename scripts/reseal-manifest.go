package main

import (
	"fmt"
	"os"
	"path/filepath"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/checksum"
	"github.com/moxforge/shellpack/pkg/manifest"
)

// Reseals a backup whose payloads were edited by hand inside the
// repository clone. Restore refuses a backup whose content no longer
// matches its manifest checksum; this recomputes the checksum and
// rewrites the manifest, keeping the old one as manifest.json.bak.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: go run ./scripts/reseal-manifest.go /path/to/backups/<name>")
		os.Exit(1)
	}

	if err := reseal(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func reseal(dir string) error {
	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}
	if err := m.CheckCompatible(); err != nil {
		return err
	}

	sum, err := checksum.HashTree(dir, shellpack.ManifestFilename)
	if err != nil {
		return err
	}
	if sum == m.Checksum {
		fmt.Println("Checksum already matches, nothing to do")
		return nil
	}

	path := filepath.Join(dir, shellpack.ManifestFilename)
	old, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path+".bak", old, 0o644); err != nil {
		return err
	}

	m.Checksum = sum
	if err := m.Write(dir); err != nil {
		_ = os.WriteFile(path, old, 0o644)
		return err
	}

	fmt.Printf("Manifest resealed (checksum %.12s...), previous manifest at %s.bak\n", sum, path)
	return nil
}
