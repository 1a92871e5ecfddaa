// Package rollback keeps an undo stack for multi-step operations that
// touch the filesystem. Steps register their undo as they go; if the
// whole operation fails the stack is unwound newest-first, and if it
// succeeds the stack is discarded.
package rollback

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Action is a single undo step. Description shows up in logs while the
// stack unwinds, Undo performs the reversal.
type Action struct {
	Description string
	Undo        func() error
}

// Stack collects undo actions during an operation. Safe for use from a
// single goroutine per operation; the mutex just guards against the
// signal-handler path racing a normal unwind.
type Stack struct {
	mu      sync.Mutex
	log     *logrus.Logger
	actions []Action
	done    bool
}

func New(log *logrus.Logger) *Stack {
	return &Stack{log: log}
}

// Record pushes an undo action. No-op after Unwind or Discard.
func (s *Stack) Record(description string, undo func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.actions = append(s.actions, Action{Description: description, Undo: undo})
}

// Len reports how many undo actions are currently pending.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// Unwind runs every recorded action in reverse registration order. Each
// action runs exactly once even when some fail; failures are logged and
// skipped so later actions still get their chance. Returns the number
// of actions that failed.
func (s *Stack) Unwind() int {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return 0
	}
	s.done = true
	actions := s.actions
	s.actions = nil
	s.mu.Unlock()

	failed := 0
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		s.log.Infof("rolling back: %s", a.Description)
		if err := a.Undo(); err != nil {
			failed++
			s.log.Warnf("rollback step %q failed: %v", a.Description, err)
		}
	}
	return failed
}

// Discard drops all recorded actions without running them. Called once
// the operation has fully succeeded.
func (s *Stack) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.actions = nil
}
