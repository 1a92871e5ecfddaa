// Package logging configures the process-wide logger. User-facing
// progress goes through the tui console; this logger is the detailed
// trail that lands in the rotating log file, optionally mirrored to
// stderr with --verbose and to the systemd journal when one is around.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// Path of the log file. Empty disables the file sink.
	Path string
	// Verbose mirrors every entry to stderr.
	Verbose bool
	// Journal forwards entries to the systemd journal when available.
	Journal bool
}

func New(opts Options) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(lineFormatter{})
	log.SetLevel(logrus.DebugLevel)

	var sinks []io.Writer
	if opts.Path != "" {
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    5, // megabytes
			MaxBackups: 2,
			MaxAge:     30, // days
		})
	}
	if opts.Verbose {
		sinks = append(sinks, os.Stderr)
	}
	switch len(sinks) {
	case 0:
		log.SetOutput(io.Discard)
	case 1:
		log.SetOutput(sinks[0])
	default:
		log.SetOutput(io.MultiWriter(sinks...))
	}

	if opts.Journal && journal.Enabled() {
		log.AddHook(journalHook{})
	}
	return log
}

// lineFormatter renders "[2006-01-02 15:04:05] [LEVEL] message".
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(e.Level.String())
	return []byte(fmt.Sprintf("[%s] [%s] %s\n", e.Time.Format("2006-01-02 15:04:05"), level, e.Message)), nil
}

type journalHook struct{}

func (journalHook) Levels() []logrus.Level { return logrus.AllLevels }

func (journalHook) Fire(e *logrus.Entry) error {
	var pri journal.Priority
	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		pri = journal.PriCrit
	case logrus.ErrorLevel:
		pri = journal.PriErr
	case logrus.WarnLevel:
		pri = journal.PriWarning
	case logrus.InfoLevel:
		pri = journal.PriInfo
	default:
		pri = journal.PriDebug
	}
	return journal.Send(e.Message, pri, nil)
}

// LineWriter is an io.Writer that hands each complete line to a
// receiver. Used to stream external command output into the log
// without tearing lines apart across Write calls.
type LineWriter struct {
	receiver func(string)
	partial  []byte
}

func NewLineWriter(receiver func(string)) *LineWriter {
	return &LineWriter{receiver: receiver}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.receiver(string(w.partial[:i]))
		w.partial = w.partial[i+1:]
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *LineWriter) Flush() {
	if len(w.partial) > 0 {
		w.receiver(string(w.partial))
		w.partial = nil
	}
}
