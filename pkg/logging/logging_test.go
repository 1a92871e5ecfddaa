package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineFormatter(t *testing.T) {
	log := logrus.New()
	log.SetFormatter(lineFormatter{})
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.Info("cloning repository")
	log.Warn("push to main rejected")

	lines := regexp.MustCompile(`\n`).Split(buf.String(), -1)
	require.Len(t, lines, 3) // two entries plus trailing empty

	stamp := `\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\]`
	assert.Regexp(t, `^`+stamp+` \[INFO\] cloning repository$`, lines[0])
	assert.Regexp(t, `^`+stamp+` \[WARNING\] push to main rejected$`, lines[1])
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shellpack.log")
	log := New(Options{Path: path})

	log.Info("backup started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] backup started")
}

func TestNewWithoutSinksDiscards(t *testing.T) {
	log := New(Options{})
	assert.NotPanics(t, func() { log.Info("nowhere to go") })
}

func TestLineWriterSplitsAcrossWrites(t *testing.T) {
	var got []string
	w := NewLineWriter(func(s string) { got = append(got, s) })

	_, err := w.Write([]byte("Reading package"))
	require.NoError(t, err)
	_, err = w.Write([]byte(" lists...\nBuilding dependency tree\npartial"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Reading package lists...", "Building dependency tree"}, got)

	w.Flush()
	assert.Equal(t, []string{"Reading package lists...", "Building dependency tree", "partial"}, got)
}
