package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	shellpack "github.com/moxforge/shellpack/pkg"
)

// A short list reads fine inline; a backup catalog can run long, so
// anything past this many options gets the full-screen picker instead.
const inlinePickerMax = 8

// Terminal asks the operator through huh forms. Implements
// shellpack.Prompter.
type Terminal struct{}

var _ shellpack.Prompter = (*Terminal)(nil)

func NewTerminal() *Terminal { return &Terminal{} }

func (t *Terminal) Confirm(title string, def bool) (bool, error) {
	v := def
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&v).
		Run()
	if err != nil {
		return false, promptErr(err)
	}
	return v, nil
}

func (t *Terminal) Input(title, placeholder, def string) (string, error) {
	v := def
	err := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&v).
		Run()
	if err != nil {
		return "", promptErr(err)
	}
	return v, nil
}

func (t *Terminal) Select(title string, options []string) (int, error) {
	if len(options) > inlinePickerMax {
		return pick(title, options)
	}

	opts := make([]huh.Option[int], len(options))
	for i, option := range options {
		opts[i] = huh.NewOption(option, i)
	}
	v := 0
	err := huh.NewSelect[int]().
		Title(title).
		Options(opts...).
		Value(&v).
		Run()
	if err != nil {
		return 0, promptErr(err)
	}
	return v, nil
}

// promptErr maps huh's abort onto the pipeline's cancellation error, so
// ctrl+c at a prompt takes the same path as SIGINT between steps.
func promptErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return fmt.Errorf("%w: prompt aborted", shellpack.ErrCancelled)
	}
	return err
}
