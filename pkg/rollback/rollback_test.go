package rollback

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newStack() *Stack {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(log)
}

func TestUnwindRunsNewestFirst(t *testing.T) {
	s := newStack()
	var order []string
	s.Record("first", func() error { order = append(order, "first"); return nil })
	s.Record("second", func() error { order = append(order, "second"); return nil })
	s.Record("third", func() error { order = append(order, "third"); return nil })

	failed := s.Unwind()

	assert.Zero(t, failed)
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestUnwindContinuesPastFailures(t *testing.T) {
	s := newStack()
	var ran []string
	s.Record("restore file", func() error { ran = append(ran, "restore file"); return nil })
	s.Record("remove dir", func() error { return errors.New("directory busy") })
	s.Record("drop symlink", func() error { ran = append(ran, "drop symlink"); return nil })

	failed := s.Unwind()

	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"drop symlink", "restore file"}, ran,
		"a failed step never blocks the ones below it")
}

func TestUnwindRunsEachActionOnce(t *testing.T) {
	s := newStack()
	calls := 0
	s.Record("only", func() error { calls++; return nil })

	s.Unwind()
	s.Unwind()

	assert.Equal(t, 1, calls)
}

func TestDiscardDropsActions(t *testing.T) {
	s := newStack()
	calls := 0
	s.Record("never", func() error { calls++; return nil })

	s.Discard()
	failed := s.Unwind()

	assert.Zero(t, failed)
	assert.Zero(t, calls)
	assert.Zero(t, s.Len())
}

func TestRecordAfterUnwindIsIgnored(t *testing.T) {
	s := newStack()
	s.Unwind()
	s.Record("late", func() error { return nil })

	assert.Zero(t, s.Len())
}
