package component

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}
}

func TestCreateArchiveIsDeterministic(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"config.fish":                "set -g fish_greeting ''\n",
		"functions/fish_prompt.fish": "function fish_prompt\nend\n",
		"conf.d/abbr.fish":           "abbr -a gs git status\n",
	})

	out := t.TempDir()
	first := filepath.Join(out, "first.tar.gz")
	second := filepath.Join(out, "second.tar.gz")
	require.NoError(t, CreateArchive(src, first, "fish"))
	require.NoError(t, CreateArchive(src, second, "fish"))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same tree must archive to identical bytes")
}

func TestArchiveRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"config":          "Host *\n  AddKeysToAgent yes\n",
		"keys/id_ed25519": "private material",
	})
	require.NoError(t, os.Symlink("config", filepath.Join(src, "config_link")))

	archive := filepath.Join(t.TempDir(), "ssh_backup.tar.gz")
	require.NoError(t, CreateArchive(src, archive, ".ssh"))

	env := newTestEnv(t, nil)
	dest := t.TempDir()
	require.NoError(t, ExtractArchive(env, archive, dest))

	data, err := os.ReadFile(filepath.Join(dest, ".ssh", "config"))
	require.NoError(t, err)
	assert.Equal(t, "Host *\n  AddKeysToAgent yes\n", string(data))

	data, err = os.ReadFile(filepath.Join(dest, ".ssh", "keys", "id_ed25519"))
	require.NoError(t, err)
	assert.Equal(t, "private material", string(data))

	link, err := os.Readlink(filepath.Join(dest, ".ssh", "config_link"))
	require.NoError(t, err)
	assert.Equal(t, "config", link)
}

func TestExtractArchiveRejectsTraversal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "evil.tar.gz")
	f, err := os.Create(archive)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../evil.txt",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     4,
	}))
	_, err = tw.Write([]byte("pwnd"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	env := newTestEnv(t, nil)
	dest := t.TempDir()
	err = ExtractArchive(env, archive, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "evil.txt"))
}

func TestSecurePath(t *testing.T) {
	dest := t.TempDir()

	ok, err := securePath(dest, "fish/config.fish")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "fish", "config.fish"), ok)

	_, err = securePath(dest, "../outside")
	assert.Error(t, err)

	_, err = securePath(dest, "fish/../../outside")
	assert.Error(t, err)
}
