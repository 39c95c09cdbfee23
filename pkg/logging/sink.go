// Package logging provides the explicit logging sink value carried through
// the program (Design Notes re-architecture item 3): rather than a global
// logger with a case-attached file handler, callers hold a Sink value and
// pass it down explicitly, with the case's log file as one more configured
// output alongside the console.
//
// Styling follows the teacher's use of github.com/fatih/color for console
// summaries (cmd/titus scan output); level vocabulary follows
// original_source/plast/framework/contexts/logger.py (debug/info/warning/
// error/exception/fault).
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level orders severities for the Warnf/Errorf-style helpers.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Sink is the logging facade every core component receives explicitly.
type Sink interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	// Errorf logs at error level. err may be nil.
	Errorf(err error, format string, args ...any)
	// Exceptionf logs at error level with the originating error appended,
	// mirroring plast's Logger.exception (log-with-trace policy).
	Exceptionf(err error, format string, args ...any)
	Close() error
}

var levelColor = map[Level]*color.Color{
	LevelDebug:   color.New(color.FgHiBlack),
	LevelInfo:    color.New(color.FgCyan),
	LevelWarning: color.New(color.FgYellow),
	LevelError:   color.New(color.FgRed, color.Bold),
}

// sink writes to one or more io.Writer destinations. stdout/stderr writers
// get color; file writers never do.
type sink struct {
	mu       sync.Mutex
	console  io.Writer
	caseFile io.Writer // nil if no case log configured
	minLevel Level
}

// New returns a Sink writing to stderr, honoring minLevel (verbose/quiet
// flags map to LevelDebug/LevelWarning respectively at the call site).
func New(minLevel Level) Sink {
	return &sink{console: os.Stderr, minLevel: minLevel}
}

// WithCaseFile returns a Sink that additionally appends every line to path
// (spec section 6's optional per-case log file), opened once and kept open
// for the sink's lifetime.
func WithCaseFile(parent Sink, path string) (Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening case log %s: %w", path, err)
	}
	base, ok := parent.(*sink)
	if !ok {
		return &sink{console: os.Stderr, caseFile: f, minLevel: LevelDebug}, nil
	}
	return &sink{console: base.console, caseFile: f, minLevel: base.minLevel}, nil
}

func (s *sink) write(level Level, msg string) {
	if level < s.minLevel {
		return
	}
	line := fmt.Sprintf("%s [%s] %s\n", time.Now().Format(time.RFC3339), level, msg)

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := levelColor[level]; ok {
		c.Fprint(s.console, line)
	} else {
		fmt.Fprint(s.console, line)
	}
	if s.caseFile != nil {
		fmt.Fprint(s.caseFile, line)
	}
}

func (s *sink) Debugf(format string, args ...any) {
	s.write(LevelDebug, fmt.Sprintf(format, args...))
}

func (s *sink) Infof(format string, args ...any) {
	s.write(LevelInfo, fmt.Sprintf(format, args...))
}

func (s *sink) Warnf(format string, args ...any) {
	s.write(LevelWarning, fmt.Sprintf(format, args...))
}

func (s *sink) Errorf(err error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	s.write(LevelError, msg)
}

func (s *sink) Exceptionf(err error, format string, args ...any) {
	s.Errorf(err, format, args...)
}

func (s *sink) Close() error {
	if closer, ok := s.caseFile.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
