package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shellpack "github.com/moxforge/shellpack/pkg"
)

func TestCheckDependenciesOptionalMissing(t *testing.T) {
	r := newFakeRunner()
	r.paths["chsh"] = "/usr/bin/chsh"

	statuses, err := CheckDependencies(r, []Dependency{
		{Name: "chsh"},
		{Name: "conda", Hint: "conda environments will be skipped"},
	})

	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Found)
	assert.Equal(t, "/usr/bin/chsh", statuses[0].Path)
	assert.False(t, statuses[1].Found)
}

func TestCheckDependenciesRequiredMissing(t *testing.T) {
	r := newFakeRunner()

	statuses, err := CheckDependencies(r, []Dependency{
		{Name: "apt-get", Required: true},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, shellpack.ErrDependencyMissing)
	assert.Contains(t, err.Error(), "apt-get")
	assert.False(t, statuses[0].Found)
}

func TestRestoreDependenciesRequirePackageManager(t *testing.T) {
	src := shellpack.SourceInfo{OS: "linux", PackageManager: "apt"}
	deps := RestoreDependencies(src)

	var required []string
	for _, d := range deps {
		if d.Required {
			required = append(required, d.Name)
		}
	}
	assert.Equal(t, []string{"apt-get"}, required)
}

func TestBackupDependenciesAllOptional(t *testing.T) {
	src := shellpack.SourceInfo{OS: "macos", PackageManager: "brew"}
	for _, d := range BackupDependencies(src) {
		assert.False(t, d.Required, "%s must not block a backup", d.Name)
	}
}
