// Package xsink implements the per-call exception collector that every
// fallible operation in this runtime threads through instead of returning
// a Go error. A Sink never unwinds a goroutine's stack; it only
// accumulates. Callers check Sink.IsException() after any call that took
// one, or let a qholder scoped holder do it for them.
//
// The design is forced by one fact: releasing a heap Node can run a
// user-defined destructor, and that destructor can raise. There is no
// way to return an error from a destructor, so the destructor is handed
// the sink its caller is already carrying.
package xsink

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/qorerun/qcore/qruntime"
)

var stderr = os.Stderr

// Kind distinguishes how an Exception originated.
type Kind int

const (
	// KindUser is raised by Qore-language `throw`.
	KindUser Kind = iota
	// KindSystem is raised by the runtime itself (builtin functions,
	// operators, lock primitives, ...).
	KindSystem
)

func (k Kind) String() string {
	if k == KindUser {
		return "User"
	}
	return "System"
}

// FrameKind classifies one entry of an Exception's call-stack snapshot.
type FrameKind int

const (
	FrameUser FrameKind = iota
	FrameBuiltin
	FrameRethrow
	FrameNewThread
)

func (k FrameKind) String() string {
	switch k {
	case FrameUser:
		return "user"
	case FrameBuiltin:
		return "builtin"
	case FrameRethrow:
		return "rethrow"
	case FrameNewThread:
		return "new-thread"
	default:
		return "unknown"
	}
}

// Frame is one entry of an Exception's call-stack snapshot. Frames are
// appended bottom-up as the exception unwinds (see AddStackInfo), not
// captured all at once at the raise site.
type Frame struct {
	Kind       FrameKind
	Class      string // empty for free functions
	Function   string
	File       string
	StartLine  int
	EndLine    int
}

func (f Frame) String() string {
	name := f.Function
	if f.Class != "" {
		name = f.Class + "::" + f.Function
	}
	loc := fmt.Sprintf("%s:%d", f.File, f.StartLine)
	if f.EndLine != 0 && f.EndLine != f.StartLine {
		loc = fmt.Sprintf("%s:%d-%d", f.File, f.StartLine, f.EndLine)
	}
	return fmt.Sprintf("%s (%s) [%s]", name, loc, f.Kind)
}

// Location is a source-location tag attached to an Exception at raise
// time, taken from the ThreadContext's current program location.
type Location struct {
	File      string
	StartLine int
	EndLine   int
}

func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	if l.EndLine != 0 && l.EndLine != l.StartLine {
		return fmt.Sprintf("%s:%d-%d", l.File, l.StartLine, l.EndLine)
	}
	return fmt.Sprintf("%s:%d", l.File, l.StartLine)
}

// Exception is one language-level error record.
//
// Description and Arg are typed `any` rather than qvalue.Value to avoid
// an import cycle (qvalue needs to hand a *Sink to Deref, so xsink
// cannot import qvalue back). Callers in qvalue/qops/qresource etc. pass
// a qvalue.Value here and type-assert it back out; xsink itself only
// ever needs to print it.
type Exception struct {
	Kind        Kind
	ErrorTag    string
	Description any
	Arg         any
	Location    Location
	Stack       []Frame

	// Next chains to the cause when an exception wraps another
	// (e.g. caught and rethrown with a new description).
	Next *Exception
}

func (e *Exception) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %v", e.Location, e.ErrorTag, e.Description)
	for _, f := range e.Stack {
		fmt.Fprintf(&b, "\n  at %s", f)
	}
	return b.String()
}

// Sink is a per-call-chain exception collector. A Sink is not
// goroutine-safe: exactly one call chain (one logical "thread" in the
// Qore sense, see xthread.Context) owns it at a time, mirroring the
// original's per-thread ExceptionSink.
type Sink struct {
	exceptions []*Exception
	event      bool // true once a non-exception thread-kill event occurs

	// handled, once true, suppresses the default handler on Close:
	// the exceptions were already assimilated into a parent sink.
	handled bool
}

// New returns an empty Sink.
func New() *Sink {
	return &Sink{}
}

// Raise appends a new Exception built from kind/tag/description/args and
// the supplied location. The call stack starts empty; callers unwinding
// through this raise append frames with AddStackInfo.
func (s *Sink) Raise(kind Kind, tag string, description any, loc Location, args ...any) *Exception {
	var arg any
	if len(args) > 0 {
		arg = args[0]
	}
	e := &Exception{
		Kind:        kind,
		ErrorTag:    tag,
		Description: description,
		Arg:         arg,
		Location:    loc,
	}
	s.exceptions = append(s.exceptions, e)
	return e
}

// RaiseSystem is a convenience wrapper for the common case: a
// runtime-raised error with a printf-style description and no explicit
// location (the caller didn't thread a ThreadContext through).
func (s *Sink) RaiseSystem(tag, format string, args ...any) *Exception {
	return s.Raise(KindSystem, tag, fmt.Sprintf(format, args...), Location{})
}

// RaiseAt is RaiseSystem with an explicit source location.
func (s *Sink) RaiseAt(loc Location, tag, format string, args ...any) *Exception {
	return s.Raise(KindSystem, tag, fmt.Sprintf(format, args...), loc)
}

// AddStackInfo pushes a frame onto the most recently raised exception's
// call stack. Callees call this as the exception unwinds through them,
// so the stack is built bottom-up, not captured at the raise site.
func (s *Sink) AddStackInfo(kind FrameKind, class, function, file string, startLine, endLine int) {
	if len(s.exceptions) == 0 {
		return
	}
	e := s.exceptions[len(s.exceptions)-1]
	e.Stack = append(e.Stack, Frame{
		Kind:      kind,
		Class:     class,
		Function:  function,
		File:      file,
		StartLine: startLine,
		EndLine:   endLine,
	})
}

// IsException reports whether the sink holds at least one Exception.
func (s *Sink) IsException() bool {
	return len(s.exceptions) > 0
}

// IsEvent reports whether the sink holds an exception or a non-exception
// thread-kill event (e.g. a forced thread termination).
func (s *Sink) IsEvent() bool {
	return s.event || s.IsException()
}

// SetEvent marks the sink as carrying a thread-kill event with no
// accompanying Exception (used by thread-termination plumbing in
// xthread).
func (s *Sink) SetEvent() {
	s.event = true
}

// Exceptions returns the accumulated exceptions in raise order. The
// returned slice must not be mutated by the caller.
func (s *Sink) Exceptions() []*Exception {
	return s.exceptions
}

// Clear discards all accumulated exceptions without handling them. Used
// by callers that have already decided to ignore a recoverable failure.
func (s *Sink) Clear() {
	s.exceptions = nil
	s.event = false
}

// Assimilate moves all exceptions from other into s, in order, leaving
// other empty. This is how a nested call's local sink hands its errors
// up to a caller's sink instead of letting them hit the default handler.
func (s *Sink) Assimilate(other *Sink) {
	if other == nil || len(other.exceptions) == 0 {
		if other != nil && other.event {
			s.event = true
		}
		if other != nil {
			other.handled = true
		}
		return
	}
	s.exceptions = append(s.exceptions, other.exceptions...)
	if other.event {
		s.event = true
	}
	other.exceptions = nil
	other.handled = true
}

// Handled marks the sink as already reported or assimilated, so Close
// (and any finalizer-style caller) does not run the default handler on
// it a second time.
func (s *Sink) Handled() {
	s.handled = true
}

// Close runs the default handler over any still-pending exceptions
// unless the sink was already handed off via Assimilate or Handled. This
// mirrors the original's "destroying a sink with pending exceptions
// triggers the default handler" rule; Go has no destructors, so callers
// that create a root Sink must `defer sink.Close()` explicitly.
func (s *Sink) Close() {
	if s.handled || len(s.exceptions) == 0 {
		return
	}
	DefaultHandler(s)
	s.handled = true
}

var (
	handlerMu     sync.Mutex
	customHandler func(*Sink)
)

// SetDefaultHandler installs a process-wide replacement for
// DefaultHandler. Passing nil restores the built-in stderr+log handler.
func SetDefaultHandler(h func(*Sink)) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	customHandler = h
}

// DefaultHandler formats a human-readable, multi-line report for every
// exception in the sink (including chained causes) to stderr, and emits
// a structured logrus error event carrying the same information. It is
// invoked automatically by Sink.Close unless a custom handler was
// installed with SetDefaultHandler, or the sink was assimilated into a
// parent first.
func DefaultHandler(s *Sink) {
	handlerMu.Lock()
	h := customHandler
	handlerMu.Unlock()
	if h != nil {
		h(s)
		return
	}
	for _, e := range s.exceptions {
		reportChain(e, false)
	}
}

func reportChain(e *Exception, chained bool) {
	prefix := ""
	if chained {
		prefix = "chained exception: "
	}
	fmt.Fprintf(stderr, "%sunhandled %s exception: %s: %v\n  at %s\n", prefix, e.Kind, e.ErrorTag, e.Description, e.Location)
	for _, f := range e.Stack {
		fmt.Fprintf(stderr, "   ... %s\n", f)
	}
	qruntime.Log().WithFields(logrus.Fields{
		"kind":     e.Kind.String(),
		"tag":      e.ErrorTag,
		"location": e.Location.String(),
		"chained":  chained,
		"frames":   len(e.Stack),
	}).Error(fmt.Sprintf("%v", e.Description))
	if e.Next != nil {
		reportChain(e.Next, true)
	}
}

// WarningHandler behaves like DefaultHandler but never terminates
// anything on its own (there is nothing to terminate in Go beyond the
// goroutine itself); it exists as a distinct entry point so call sites
// can signal intent ("this is a warning, not a fatal report") the way
// the original's warning variant does.
func WarningHandler(s *Sink) {
	for _, e := range s.exceptions {
		reportChain(e, false)
	}
}
