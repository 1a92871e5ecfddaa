package tui

import (
	"fmt"
	"io"
	"os"

	shellpack "github.com/moxforge/shellpack/pkg"
)

// Console renders pipeline progress for an interactive run: one line
// per status, a blank line and a header before each section.
type Console struct {
	w io.Writer
}

var _ shellpack.StatusSink = (*Console)(nil)

// NewConsole writes to w, or stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Section(title string) {
	fmt.Fprintf(c.w, "\n%s\n", sectionStyle.Render("── "+title))
}

func (c *Console) Status(kind shellpack.StatusKind, msg string) {
	var glyph string
	switch kind {
	case shellpack.StatusOK:
		glyph = okStyle.Render("✓")
	case shellpack.StatusSkip:
		glyph = skipStyle.Render("○")
	case shellpack.StatusWarn:
		glyph = warnStyle.Render("!")
	case shellpack.StatusError:
		glyph = errorStyle.Render("✗")
	default:
		glyph = normalStyle.Render("•")
	}
	fmt.Fprintf(c.w, "  %s %s\n", glyph, msg)
}

func (c *Console) Statusf(kind shellpack.StatusKind, format string, a ...any) {
	c.Status(kind, fmt.Sprintf(format, a...))
}
