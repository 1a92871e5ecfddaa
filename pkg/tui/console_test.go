package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	shellpack "github.com/moxforge/shellpack/pkg"
)

func TestConsoleStatusLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Section("Analyzing system")
	c.Status(shellpack.StatusInfo, "Backup name: zsh-devbox-20250102")
	c.Status(shellpack.StatusOK, "Checksum verified")
	c.Status(shellpack.StatusSkip, "Backup cancelled")
	c.Statusf(shellpack.StatusWarn, "%s failed", "conda-envs")
	c.Status(shellpack.StatusError, "publish failed")

	out := buf.String()
	assert.Contains(t, out, "Analyzing system")
	for _, glyph := range []string{"•", "✓", "○", "!", "✗"} {
		assert.Contains(t, out, glyph)
	}
	assert.Contains(t, out, "Checksum verified")
	assert.Contains(t, out, "conda-envs failed")
}

func TestConsoleDefaultsToStdout(t *testing.T) {
	c := NewConsole(nil)
	assert.NotNil(t, c.w)
}

func TestBannerNamesTheRelease(t *testing.T) {
	out := Banner("2.0.0")
	assert.Contains(t, out, "shellpack 2.0.0")
	assert.Contains(t, out, "backup and restore")
}
