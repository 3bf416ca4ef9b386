package gen

import (
	"go.uber.org/zap"

	"github.com/WhisperCapital/go-yd/internal/decl"
	"github.com/WhisperCapital/go-yd/internal/diag"
)

// Handler emits text fragments for one declaration under a context. A
// handler may call back into the engine to visit children with a modified
// context.
type Handler interface {
	Handle(e *Engine, n *decl.Node, ctx Context) ([]string, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(e *Engine, n *decl.Node, ctx Context) ([]string, error)

func (f HandlerFunc) Handle(e *Engine, n *decl.Node, ctx Context) ([]string, error) {
	return f(e, n, ctx)
}

type registration struct {
	id      int
	handler Handler
}

// Engine dispatches declarations to the handler registered for their kind.
type Engine struct {
	Model    *Model
	handlers map[decl.Kind]registration
	nextID   int
}

func NewEngine(m *Model) *Engine {
	return &Engine{Model: m, handlers: map[decl.Kind]registration{}}
}

// Register binds h to every given kind. Kinds registered together count as
// one handler when sibling positions are computed.
func (e *Engine) Register(h Handler, kinds ...decl.Kind) {
	e.nextID++
	for _, k := range kinds {
		e.handlers[k] = registration{id: e.nextID, handler: h}
	}
}

func (e *Engine) lookup(n *decl.Node) (registration, error) {
	r, ok := e.handlers[n.Kind]
	if !ok {
		return registration{}, diag.New(diag.PhaseEmit, diag.KindUnknownKind).
			Path(n.Path()...).
			Detail("no handler for declaration kind %q", n.Spelling).
			Build()
	}
	return r, nil
}

// Visit dispatches a single node as if it had no siblings.
func (e *Engine) Visit(n *decl.Node, ctx Context) ([]string, error) {
	return e.VisitAll([]*decl.Node{n}, ctx)
}

// VisitAll dispatches each node in order. The index and count each handler
// sees only include the nodes dispatched to that same handler, so
// unrelated declarations between two overloads do not shift positions.
func (e *Engine) VisitAll(nodes []*decl.Node, ctx Context) ([]string, error) {
	regs := make([]registration, len(nodes))
	counts := map[int]int{}
	for i, n := range nodes {
		r, err := e.lookup(n)
		if err != nil {
			return nil, err
		}
		regs[i] = r
		counts[r.id]++
	}

	var out []string
	seen := map[int]int{}
	for i, n := range nodes {
		r := regs[i]
		child := ctx.withSibling(seen[r.id], counts[r.id])
		seen[r.id]++

		frags, err := r.handler.Handle(e, n, child)
		if err != nil {
			return nil, err
		}
		out = append(out, frags...)
	}
	return out, nil
}

// VisitChildren dispatches the children of n.
func (e *Engine) VisitChildren(n *decl.Node, ctx Context) ([]string, error) {
	if Logger().Core().Enabled(zap.DebugLevel) {
		Logger().Debug("visiting children",
			zap.Strings("path", n.Path()),
			zap.Int("children", len(n.Children)),
			zap.Int("pass", int(ctx.Pass)))
	}
	return e.VisitAll(n.Children, ctx)
}
