// Package diag provides the structured diagnostics raised while generating
// bindings. Every generation failure is fatal: the generator never writes
// partial output, so a diagnostic must name the declaration it gave up on.
//
//	err := diag.New(diag.PhaseAnalyze, diag.KindUnknownType).
//		Path("YDListener", "notifyTrade", "pTrade").
//		Type("void *").
//		Detail("untyped pointers cannot cross the boundary").
//		Build()
package diag

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Phase indicates which stage of generation failed
type Phase string

const (
	PhaseLoad    Phase = "load"    // declaration dump / config
	PhaseAnalyze Phase = "analyze" // model construction
	PhaseEmit    Phase = "emit"    // text generation
	PhaseWrite   Phase = "write"   // formatting and output files
)

// Kind categorizes the error
type Kind string

const (
	KindUnknownKind   Kind = "unknown_kind"
	KindUnknownType   Kind = "unknown_type"
	KindMissingChild  Kind = "missing_child"
	KindNameCollision Kind = "name_collision"
	KindUnsupported   Kind = "unsupported"
	KindLayout        Kind = "layout"
	KindInvalidInput  Kind = "invalid_input"
	KindFormat        Kind = "format"
)

// Error is the diagnostic carried by every generation failure.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Detail string
	Path   []string
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "::"))
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(fmt.Sprintf("%q", e.Type))
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on phase and kind so callers can test for categories with
// errors.Is(err, &diag.Error{Phase: ..., Kind: ...}).
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

// Path sets the declaration path, outermost first.
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = append([]string(nil), path...)
	return b
}

// Type sets the offending native type spelling.
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the diagnostic with a stack trace attached.
func (b *Builder) Build() error {
	e := b.err
	return errors.WithStackDepth(&e, 1)
}

// As extracts the diagnostic from an error chain.
func As(err error) (*Error, bool) {
	var d *Error
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
