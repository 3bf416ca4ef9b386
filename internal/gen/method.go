package gen

import (
	"fmt"
	"strings"

	"github.com/WhisperCapital/go-yd/internal/common"
	"github.com/WhisperCapital/go-yd/internal/decl"
	"github.com/WhisperCapital/go-yd/internal/diag"
)

// methodHandler emits one artifact of a virtual method, chosen by the
// method flavor. Destructors share the handler so that they count as
// siblings of the methods they are laid out between.
type methodHandler struct{}

func (methodHandler) Handle(e *Engine, n *decl.Node, ctx Context) ([]string, error) {
	if ctx.Method == MethodNone {
		return nil, nil
	}
	m := e.Model.Method(ctx.Owner, n)
	if m == nil {
		return nil, diag.New(diag.PhaseEmit, diag.KindMissingChild).
			Path(n.Path()...).
			Detail("method has no slot in %s", ctx.Owner).
			Build()
	}

	if m.Destructor {
		return destructor(m, ctx), nil
	}

	params := func(f ParamFlavor) (string, error) {
		frags, err := e.VisitAll(paramNodes(m.Params), ctx.WithParam(f))
		return strings.Join(frags, ""), err
	}
	lines := func(f ParamFlavor) ([]string, error) {
		return e.VisitAll(paramNodes(m.Params), ctx.WithParam(f))
	}

	r := m.Owner
	switch ctx.Method {
	case MethodInterfaceStub:
		decls, err := params(ParamGoDecl)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("%s(%s)%s", m.GoName, decls, resultSuffix(m.Result))}, nil

	case MethodDefaultStub:
		types, err := params(ParamGoType)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("func (Unimplemented%s) %s(%s) {}", r.Name, m.GoName, types)}, nil

	case MethodStream:
		decls, err := params(ParamGoDecl)
		if err != nil {
			return nil, err
		}
		fields, err := lines(ParamStreamMarshal)
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "func (s *%sStream) %s(%s) {\n", r.Name, m.GoName, decls)
		fmt.Fprintf(&b, "\ts.queue.Push(%s)\n}", packetLiteral(packetName(m), fields, "\t"))
		return []string{b.String()}, nil

	case MethodEventKind:
		return []string{fmt.Sprintf("%s %sEventKind = %d", eventConst(m), r.Name, ctx.Index+1)}, nil

	case MethodEventName:
		return []string{fmt.Sprintf("case %s:\n\treturn %q", eventConst(m), m.Event())}, nil

	case MethodPayload:
		return payload(e, m, ctx)

	case MethodSlotTypedef:
		decls, err := params(ParamCDecl)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("typedef %s(*%s)(%s);", cResultPrefix(m.Result), slotType(m), selfParam(r, decls))}, nil

	case MethodTableField:
		return []string{fmt.Sprintf("%s %s;", slotType(m), m.Snake)}, nil

	case MethodStaticEntry:
		return []string{fmt.Sprintf(".%s = (%s)%s,", m.Snake, slotType(m), exportName(m))}, nil

	case MethodSlotStub:
		return nil, nil

	case MethodTrampoline:
		return trampoline(e, m, ctx)

	case MethodCallShim:
		decls, err := params(ParamCDecl)
		if err != nil {
			return nil, err
		}
		names, err := params(ParamCName)
		if err != nil {
			return nil, err
		}
		args := "self"
		if names != "" {
			args += ", " + names
		}
		ret := "return "
		if m.Result.Category == CatVoid {
			ret = ""
		}
		return []string{fmt.Sprintf("static inline %s%s(%s) {\n\t%sself->vtable->%s(%s);\n}",
			cResultPrefix(m.Result), callShimName(m), selfParam(r, decls), ret, m.Snake, args)}, nil

	case MethodWrapper:
		return wrapper(e, m, ctx)
	}

	return nil, diag.New(diag.PhaseEmit, diag.KindInvalidInput).
		Path(n.Path()...).
		Detail("method flavor %d has no rendering", ctx.Method).
		Build()
}

// destructor renders the slots of a virtual destructor. They keep the
// table layout intact but are never exposed to Go callers.
func destructor(m *Method, ctx Context) []string {
	r := m.Owner
	typ := r.Name + "_destructor_fn"
	var out []string
	switch ctx.Method {
	case MethodSlotTypedef:
		out = append(out, fmt.Sprintf("typedef void (*%s)(%s);", typ, selfParam(r, "")))
	case MethodTableField:
		for _, s := range m.SlotNames {
			out = append(out, fmt.Sprintf("%s %s;", typ, s))
		}
	case MethodStaticEntry:
		for _, s := range m.SlotNames {
			out = append(out, fmt.Sprintf(".%s = ydgen_%s_%s,", s, r.Name, s))
		}
	case MethodSlotStub:
		// the Go side owns the implementation; the library deleting its
		// listener must not free Go memory
		for _, s := range m.SlotNames {
			out = append(out, fmt.Sprintf("static void ydgen_%s_%s(%s) {\n\t(void)self;\n}", r.Name, s, selfParam(r, "")))
		}
	}
	return out
}

func paramNodes(params []*Param) []*decl.Node {
	nodes := make([]*decl.Node, len(params))
	for i, p := range params {
		nodes[i] = p.Node
	}
	return nodes
}

func selfParam(r *Record, decls string) string {
	self := r.Name + " *self"
	if r.Role == RoleCallback {
		self = r.FatName() + " *self"
	}
	if decls == "" {
		return self
	}
	return self + ", " + decls
}

func slotType(m *Method) string {
	return m.Owner.Name + "_" + m.Snake + "_fn"
}

func exportName(m *Method) string {
	return "ydgen_" + m.Owner.Name + "_" + m.Snake
}

func callShimName(m *Method) string {
	return "ydgen_" + m.Owner.Name + "_" + m.Snake
}

func eventConst(m *Method) string {
	return m.Owner.Name + m.Event()
}

func packetName(m *Method) string {
	return m.Owner.Name + m.Event() + "Packet"
}

func cResultPrefix(t TypeInfo) string {
	ct := t.CType()
	if strings.HasSuffix(ct, "*") {
		return ct
	}
	return ct + " "
}

// resultGoType is the Go type an outbound call returns, empty for void.
func resultGoType(t TypeInfo) string {
	if t.Category == CatVoid {
		return ""
	}
	return t.GoType(false)
}

func resultSuffix(t TypeInfo) string {
	if g := resultGoType(t); g != "" {
		return " " + g
	}
	return ""
}

// resultConv converts the C result held in expr to its Go type.
func resultConv(t TypeInfo, expr string) string {
	switch t.Category {
	case CatScalar:
		return fmt.Sprintf("%s(%s)", GoScalar(t.Scalar, t.ABI), expr)
	case CatEnum:
		return fmt.Sprintf("%s(%s)", t.Name, expr)
	case CatString:
		return fmt.Sprintf("C.GoString(%s)", expr)
	case CatActiveRef:
		return fmt.Sprintf("wrap%s(%s)", t.Name, expr)
	}
	return expr
}

func packetLiteral(name string, fields []string, indent string) string {
	if len(fields) == 0 {
		return "&" + name + "{}"
	}
	var b strings.Builder
	b.WriteString("&" + name + "{\n")
	for _, f := range fields {
		b.WriteString(indent + "\t" + f + "\n")
	}
	b.WriteString(indent + "}")
	return b.String()
}

func payload(e *Engine, m *Method, ctx Context) ([]string, error) {
	r := m.Owner
	args, err := e.VisitAll(paramNodes(m.Params), ctx.WithParam(ParamApplyArg))
	if err != nil {
		return nil, err
	}

	name := packetName(m)
	packet := common.Struct{
		Name: name,
		Doc:  fmt.Sprintf("%s carries the arguments of %s.", name, m.Label()),
	}
	for _, p := range m.Params {
		f := common.Field{
			Name: p.Field,
			Type: p.Type.PayloadType(),
			Tag:  fmt.Sprintf("json:%q", p.JSON),
		}
		if p.Ownership == Borrowed && ctx.Lifetime != "" {
			f.Comment = ctx.Lifetime + ": valid only while the callback runs"
		}
		packet.Fields = append(packet.Fields, f)
	}

	text := goText(func(w *common.Writer) {
		w.Struct(packet)
		w.Printf("func (*%s) Kind() %sEventKind { return %s }\n\n", name, r.Name, eventConst(m))
		if len(m.Params) == 0 {
			w.Printf("func (*%s) Apply(l %s) { l.%s() }\n", name, r.Name, m.GoName)
		} else {
			w.Printf("func (p *%s) Apply(l %s) { l.%s(%s) }\n", name, r.Name, m.GoName, strings.Join(args, ""))
		}
	})
	return []string{text}, nil
}

// trampoline renders the exported function the static table points at.
// Every pointer is asserted before anything reads through it.
func trampoline(e *Engine, m *Method, ctx Context) ([]string, error) {
	r := m.Owner
	raw := ctx.WithRawPointers(true)
	decls, err := e.VisitAll(paramNodes(m.Params), raw.WithParam(ParamGoDecl))
	if err != nil {
		return nil, err
	}
	checks, err := e.VisitAll(paramNodes(m.Params), raw.WithParam(ParamSafetyCheck))
	if err != nil {
		return nil, err
	}
	fields, err := e.VisitAll(paramNodes(m.Params), raw.WithParam(ParamMarshal))
	if err != nil {
		return nil, err
	}

	params := "self *C." + r.FatName()
	if len(decls) > 0 {
		params += ", " + strings.Join(decls, "")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "//export %s\n", exportName(m))
	fmt.Fprintf(&b, "func %s(%s) {\n", exportName(m), params)
	fmt.Fprintf(&b, "\tbridge.MustNotNil(unsafe.Pointer(self), %q, \"this\")\n", m.Label())
	for _, c := range checks {
		fmt.Fprintf(&b, "\t%s\n", c)
	}
	fmt.Fprintf(&b, "\tdeliver%s(self, %s)\n}", r.Name, packetLiteral(packetName(m), fields, "\t"))
	return []string{b.String()}, nil
}

// wrapper renders the Go method of an active record.
func wrapper(e *Engine, m *Method, ctx Context) ([]string, error) {
	nodes := paramNodes(m.Params)
	preludes, err := e.VisitAll(nodes, ctx.WithParam(ParamPrelude))
	if err != nil {
		return nil, err
	}
	args, err := e.VisitAll(nodes, ctx.WithParam(ParamCallArg))
	if err != nil {
		return nil, err
	}

	call := "a.ptr"
	if len(args) > 0 {
		call += ", " + strings.Join(args, "")
	}
	call = fmt.Sprintf("C.%s(%s)", callShimName(m), call)

	doc := fmt.Sprintf("%s calls %s.", m.GoName, m.Label())
	if m.Listener != nil {
		doc = fmt.Sprintf("%s calls %s, registering the listener for callbacks.\nThe listener stays reachable for the life of the process.", m.GoName, m.Label())
	}
	text := goText(func(w *common.Writer) {
		w.ReceiverFunctionHeader(common.ReceiverFunctionHeader{
			Doc:          doc,
			ReceiverName: "a",
			ReceiverType: "*" + m.Owner.Name,
			MethodName:   m.GoName,
			Parameters:   goParams(m.Params),
			ReturnType:   resultGoType(m.Result),
		})
		writeCall(w, preludes, call, m.Result)
	})
	return []string{text}, nil
}

// writeCall completes a function opened on w: preludes, the call, and the
// converted result.
func writeCall(w *common.Writer, preludes []string, call string, result TypeInfo) {
	rows := append([]string(nil), preludes...)
	if result.Category == CatVoid {
		w.FunctionBody(common.FunctionBody{Rows: append(rows, call)})
		w.VoidReturn()
		return
	}
	w.FunctionBody(common.FunctionBody{Rows: append(rows, "ret := "+call)})
	w.ReturnValue(resultConv(result, "ret"))
}

func goParams(params []*Param) []common.Field {
	out := make([]common.Field, len(params))
	for i, p := range params {
		out[i] = common.Field{Name: p.GoName, Type: p.Type.GoType(false)}
	}
	return out
}

// goText renders through a scratch writer.
func goText(fn func(w *common.Writer)) string {
	w := common.NewWriter("")
	fn(w)
	return strings.TrimRight(string(w.Bytes()), "\n")
}
