// Package manifest reads and writes the manifest.json at the root of every
// backup. The manifest is built in two phases: the payload tree is staged
// and checksummed first, then the manifest is written exactly once. It is
// never patched in place, so a manifest that exists is always complete.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/checksum"
)

const createdLayout = "2006-01-02T15:04:05Z"

// Manifest is the on-disk record of one backup. Field order here is the
// field order in the file.
type Manifest struct {
	Version    string               `json:"version"`
	Created    string               `json:"created"`
	BackupName string               `json:"backup_name"`
	BackupType shellpack.Mode       `json:"backup_type"`
	Source     shellpack.SourceInfo `json:"source"`
	Components []string             `json:"components"`
	Checksum   string               `json:"checksum"`
}

// Build assembles the manifest for a fully staged backup. stagingDir must
// already hold every payload and nothing else; its aggregate checksum is
// computed here and frozen into the manifest.
func Build(set *shellpack.BackupSet, stagingDir string) (*Manifest, error) {
	sum, err := checksum.HashTree(stagingDir, shellpack.ManifestFilename)
	if err != nil {
		return nil, fmt.Errorf("checksumming staged backup: %w", err)
	}
	return &Manifest{
		Version:    shellpack.ManifestVersion,
		Created:    set.CreatedAt.UTC().Format(createdLayout),
		BackupName: set.Name,
		BackupType: set.Mode,
		Source:     set.Source,
		Components: set.IncludedNames(),
		Checksum:   sum,
	}, nil
}

// Write serializes the manifest into dir. One file, one write.
func (m *Manifest) Write(dir string) error {
	f, err := os.Create(filepath.Join(dir, shellpack.ManifestFilename))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	if err := enc.Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("writing manifest: %w", err)
	}
	return f.Close()
}

// Load reads the manifest from a fetched backup directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, shellpack.ManifestFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shellpack.ErrIntegrity, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", shellpack.ErrIntegrity, path, err)
	}
	return &m, nil
}

// CheckCompatible gates restore on manifest format: any manifest whose
// major version matches ours is readable, minor and patch drift is fine.
func (m *Manifest) CheckCompatible() error {
	got, err := semver.NewVersion(m.Version)
	if err != nil {
		return fmt.Errorf("%w: manifest version %q is not semver: %v", shellpack.ErrIntegrity, m.Version, err)
	}
	want := semver.MustParse(shellpack.ManifestVersion)
	if got.Major() != want.Major() {
		return fmt.Errorf("%w: manifest format v%d is not compatible with this build (v%d)",
			shellpack.ErrIntegrity, got.Major(), want.Major())
	}
	return nil
}

// VerifyTree recomputes the aggregate checksum of a fetched backup and
// compares it to the manifest. Any difference fails the whole restore;
// there is no partial trust.
func (m *Manifest) VerifyTree(dir string) error {
	if m.Checksum == "" {
		return fmt.Errorf("%w: manifest carries no checksum", shellpack.ErrIntegrity)
	}
	sum, err := checksum.HashTree(dir, shellpack.ManifestFilename)
	if err != nil {
		return fmt.Errorf("%w: %v", shellpack.ErrIntegrity, err)
	}
	if sum != m.Checksum {
		return fmt.Errorf("%w: backup content does not match its manifest (expected %.12s..., got %.12s...)",
			shellpack.ErrIntegrity, m.Checksum, sum)
	}
	return nil
}

// CreatedTime parses the created stamp, zero time when unparseable.
func (m *Manifest) CreatedTime() time.Time {
	t, err := time.Parse(createdLayout, m.Created)
	if err != nil {
		return time.Time{}
	}
	return t
}
