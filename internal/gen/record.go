package gen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/WhisperCapital/go-yd/internal/common"
	"github.com/WhisperCapital/go-yd/internal/decl"
	"github.com/WhisperCapital/go-yd/internal/diag"
)

// containerHandler descends into translation units and namespaces.
type containerHandler struct{}

func (containerHandler) Handle(e *Engine, n *decl.Node, ctx Context) ([]string, error) {
	return e.VisitChildren(n, ctx)
}

// silentHandler is registered for kinds that never produce output of their
// own: typedefs are resolved before mapping, and bases and enum constants
// are read from the model by their parent.
type silentHandler struct{}

func (silentHandler) Handle(*Engine, *decl.Node, Context) ([]string, error) {
	return nil, nil
}

// nested returns the records and enums declared inside n.
func nested(n *decl.Node) []*decl.Node {
	var out []*decl.Node
	for _, c := range n.Children {
		if c.Kind == decl.KindRecord || c.Kind == decl.KindEnum {
			out = append(out, c)
		}
	}
	return out
}

// recordHandler assembles everything one record contributes to the
// current pass. For a callback record the same method declarations are
// traversed once per artifact, and each traversal walks the slots in table
// order, so the interface, the table and the events line up.
type recordHandler struct{}

func (recordHandler) Handle(e *Engine, n *decl.Node, ctx Context) ([]string, error) {
	r := e.Model.RecordOf(n)
	if r == nil {
		// forward declaration of a record defined elsewhere
		return nil, nil
	}
	ctx = ctx.WithOwner(r.Name)

	var out []string
	var err error
	switch {
	case r.Role == RoleCallback && ctx.Pass == PassSPI:
		out, err = callbackGo(e, r, ctx)
	case r.Role == RoleCallback && ctx.Pass == PassTable:
		out, err = callbackTable(e, r, ctx)
	case r.Role == RoleCallback && ctx.Pass == PassCHeader:
		out, err = callbackHeader(e, r, ctx)
	case r.Role == RoleActive && ctx.Pass == PassAPI:
		out, err = activeGo(e, r, ctx)
	case r.Role == RoleActive && ctx.Pass == PassCHeader:
		out, err = activeHeader(e, r, ctx)
	case r.Role == RoleData && ctx.Pass == PassCHeader:
		out, err = dataHeader(e, r, ctx)
	case (r.Role == RoleData || r.Role == RoleOpaque) && ctx.Pass == PassBindings:
		out = []string{fmt.Sprintf("type %s = C.%s", r.Name, r.Name)}
	}
	if err != nil {
		return nil, err
	}

	// the C header orders records itself; other passes follow declaration order
	if ctx.Pass != PassCHeader {
		inner, err := e.VisitAll(nested(n), ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, inner...)
	}
	return out, nil
}

func methodNodes(methods []*Method) []*decl.Node {
	nodes := make([]*decl.Node, len(methods))
	for i, m := range methods {
		nodes[i] = m.Node
	}
	return nodes
}

// block indents lines by one tab for the body of a type or table.
func block(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return common.Indent(strings.Join(lines, "\n")) + "\n"
}

// callbackGo emits, in order: interface, default implementation, event
// kinds, payloads, trampolines, delivery and the queue-backed stream.
func callbackGo(e *Engine, r *Record, ctx Context) ([]string, error) {
	callbacks := methodNodes(r.Callbacks())
	visit := func(f MethodFlavor) ([]string, error) {
		return e.VisitAll(callbacks, ctx.WithMethod(f))
	}

	stubs, err := visit(MethodInterfaceStub)
	if err != nil {
		return nil, err
	}
	defaults, err := visit(MethodDefaultStub)
	if err != nil {
		return nil, err
	}
	kinds, err := visit(MethodEventKind)
	if err != nil {
		return nil, err
	}
	names, err := visit(MethodEventName)
	if err != nil {
		return nil, err
	}
	payloads, err := visit(MethodPayload)
	if err != nil {
		return nil, err
	}
	trampolines, err := visit(MethodTrampoline)
	if err != nil {
		return nil, err
	}
	streams, err := visit(MethodStream)
	if err != nil {
		return nil, err
	}

	name := r.Name
	var out []string

	out = append(out, fmt.Sprintf("// %s is implemented in Go and called by the library.\n// Embed Unimplemented%s to pick the callbacks to handle.\ntype %s interface {\n%s}",
		name, name, name, block(stubs)))
	out = append(out, fmt.Sprintf("// Unimplemented%s ignores every callback.\ntype Unimplemented%s struct{}", name, name))
	out = append(out, defaults...)

	if len(kinds) > 0 {
		out = append(out, fmt.Sprintf("// %sEventKind tags the events of %s.\ntype %sEventKind int\n\nconst (\n%s)",
			name, r.Native, name, block(kinds)))
		out = append(out, fmt.Sprintf("func (k %sEventKind) String() string {\n\tswitch k {\n%s\t}\n\treturn \"%sEventKind(\" + strconv.Itoa(int(k)) + \")\"\n}",
			name, block(names), name))
	} else {
		out = append(out, fmt.Sprintf("type %sEventKind int", name))
	}
	out = append(out, fmt.Sprintf("// %sEvent is one callback, recorded with its arguments.\ntype %sEvent interface {\n\tKind() %sEventKind\n\t// Apply replays the callback on l.\n\tApply(l %s)\n}",
		name, name, name, name))
	out = append(out, payloads...)
	out = append(out, trampolines...)

	out = append(out, fmt.Sprintf(`// deliver%[1]s hands an event to the Go implementation behind self. Streams
// receive the payload itself; any other implementation is called directly
// on the library's thread.
func deliver%[1]s(self *C.%[2]s, ev %[1]sEvent) {
	target, ok := cgo.Handle(self.handle).Value().(%[1]s)
	if !ok {
		panic("ydgen: %[2]s does not hold a %[1]s")
	}
	if sink, ok := target.(bridge.Sink[%[1]sEvent]); ok {
		sink.Push(ev)
		return
	}
	ev.Apply(target)
}`, name, r.FatName()))

	out = append(out, fmt.Sprintf(`// new%[2]s pairs l with the static dispatch table. The handle is never
// deleted because the library may call back until the process exits.
func new%[2]s(l %[1]s) *C.%[2]s {
	if l == nil {
		panic("ydgen: nil %[1]s")
	}
	return C.ydgen_new_%[2]s(C.uintptr_t(cgo.NewHandle(l)))
}`, name, r.FatName()))

	q := e.Model.Config.Queue
	out = append(out, fmt.Sprintf(`// %[1]sStream implements %[1]s by queueing every callback as an
// event. The library's thread only appends; consume with Recv or All.
type %[1]sStream struct {
	queue *bridge.Queue[%[1]sEvent]
}

// New%[1]sStream returns a stream with the generated queue defaults,
// adjusted by opts.
func New%[1]sStream(opts ...bridge.Option) *%[1]sStream {
	opts = append([]bridge.Option{bridge.WithCapacity(%[2]d), bridge.WithOverflow(%[3]s)}, opts...)
	return &%[1]sStream{queue: bridge.NewQueue[%[1]sEvent](opts...)}
}

// Push appends ev; it never blocks.
func (s *%[1]sStream) Push(ev %[1]sEvent) {
	s.queue.Push(ev)
}

// Recv waits for the next event in callback order.
func (s *%[1]sStream) Recv(ctx context.Context) (%[1]sEvent, error) {
	return s.queue.Recv(ctx)
}

// All yields events in callback order until ctx is done or the stream is closed.
func (s *%[1]sStream) All(ctx context.Context) iter.Seq[%[1]sEvent] {
	return s.queue.All(ctx)
}

func (s *%[1]sStream) Len() int {
	return s.queue.Len()
}

// Dropped counts events discarded by the overflow policy or after Close.
func (s *%[1]sStream) Dropped() uint64 {
	return s.queue.Dropped()
}

// Close abandons the queue. Later callbacks are dropped.
func (s *%[1]sStream) Close() {
	s.queue.Close()
}`, name, q.Capacity, overflowConst(string(q.Overflow))))
	out = append(out, streams...)
	return out, nil
}

func overflowConst(policy string) string {
	if policy == "drop-newest" {
		return "bridge.DropNewest"
	}
	return "bridge.DropOldest"
}

func callbackTable(e *Engine, r *Record, ctx Context) ([]string, error) {
	slots := r.SlotNodes()
	stubs, err := e.VisitAll(slots, ctx.WithMethod(MethodSlotStub))
	if err != nil {
		return nil, err
	}
	entries, err := e.VisitAll(slots, ctx.WithMethod(MethodStaticEntry))
	if err != nil {
		return nil, err
	}

	var out []string
	out = append(out, stubs...)
	out = append(out, fmt.Sprintf("static const %sVTable ydgen_%s_vtable = {\n%s};", r.Name, r.Name, block(entries)))
	out = append(out, fmt.Sprintf(`%[1]s *ydgen_new_%[1]s(uintptr_t handle) {
	%[1]s *fat = malloc(sizeof(%[1]s));
	if (fat == NULL) {
		return NULL;
	}
	fat->vtable = &ydgen_%[2]s_vtable;
	fat->handle = handle;
	return fat;
}`, r.FatName(), r.Name))
	return out, nil
}

func tableStruct(e *Engine, r *Record, ctx Context) ([]string, error) {
	slots := r.SlotNodes()
	typedefs, err := e.VisitAll(slots, ctx.WithMethod(MethodSlotTypedef))
	if err != nil {
		return nil, err
	}
	fields, err := e.VisitAll(slots, ctx.WithMethod(MethodTableField))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, diag.New(diag.PhaseEmit, diag.KindMissingChild).
			Path(r.Node.Path()...).
			Detail("%s record has no virtual methods", r.Role).
			Build()
	}

	var out []string
	out = append(out, strings.Join(typedefs, "\n"))
	out = append(out, fmt.Sprintf("struct %sVTable {\n%s};", r.Name, block(fields)))
	return out, nil
}

func callbackHeader(e *Engine, r *Record, ctx Context) ([]string, error) {
	out, err := tableStruct(e, r, ctx)
	if err != nil {
		return nil, err
	}
	out = append(out, fmt.Sprintf("struct %s {\n\tconst %sVTable *vtable;\n\tuintptr_t handle;\n};", r.FatName(), r.Name))
	out = append(out, fmt.Sprintf("%s *ydgen_new_%s(uintptr_t handle);", r.FatName(), r.FatName()))
	return out, nil
}

func activeHeader(e *Engine, r *Record, ctx Context) ([]string, error) {
	out, err := tableStruct(e, r, ctx)
	if err != nil {
		return nil, err
	}
	out = append(out, fmt.Sprintf("struct %s {\n\tconst %sVTable *vtable;\n};", r.Name, r.Name))

	// destructors are never called from Go, so only methods get a shim
	var methods []*decl.Node
	for _, m := range r.Methods {
		if !m.Destructor {
			methods = append(methods, m.Node)
		}
	}
	shims, err := e.VisitAll(methods, ctx.WithMethod(MethodCallShim))
	if err != nil {
		return nil, err
	}
	return append(out, shims...), nil
}

func activeGo(e *Engine, r *Record, ctx Context) ([]string, error) {
	wrappers, err := e.VisitAll(r.SlotNodes(), ctx.WithMethod(MethodWrapper))
	if err != nil {
		return nil, err
	}

	var out []string
	out = append(out, fmt.Sprintf(`// %[1]s wraps a %[2]s owned by the library.
type %[1]s struct {
	ptr *C.%[1]s
	// fat pointers handed to the library; kept for as long as the wrapper lives
	listeners []unsafe.Pointer
}

func wrap%[1]s(p *C.%[1]s) *%[1]s {
	if p == nil {
		return nil
	}
	return &%[1]s{ptr: p}
}

func (a *%[1]s) cptr() *C.%[1]s {
	if a == nil {
		return nil
	}
	return a.ptr
}

// Raw returns the native pointer.
func (a *%[1]s) Raw() unsafe.Pointer {
	return unsafe.Pointer(a.cptr())
}`, r.Name, r.Native))
	return append(out, wrappers...), nil
}

// dataHeader lays out a data record field by field, base fields first.
func dataHeader(e *Engine, r *Record, ctx Context) ([]string, error) {
	nodes := make([]*decl.Node, len(r.Fields))
	for i, f := range r.Fields {
		nodes[i] = f.Node
	}
	fields, err := e.VisitAll(nodes, ctx)
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf("struct %s {\n%s};", r.Name, block(fields))
	if r.Packed {
		body = "#pragma pack(push, 1)\n" + body + "\n#pragma pack(pop)"
	}
	return []string{body}, nil
}

// fieldHandler renders one C field of a data record.
type fieldHandler struct{}

func (fieldHandler) Handle(e *Engine, n *decl.Node, ctx Context) ([]string, error) {
	if ctx.Pass != PassCHeader {
		return nil, nil
	}
	f := e.Model.Field(ctx.Owner, n)
	if f == nil {
		// fields of records that are not laid out
		return nil, nil
	}
	return []string{f.Type.CDecl(f.Name, true) + ";"}, nil
}

// enumHandler emits an enum as its underlying integer type plus named
// constants, so the C side never depends on the compiler's enum sizing.
type enumHandler struct{}

func (enumHandler) Handle(e *Engine, n *decl.Node, ctx Context) ([]string, error) {
	en := e.Model.EnumOf(n)
	if en == nil {
		return nil, diag.New(diag.PhaseEmit, diag.KindMissingChild).
			Path(n.Path()...).
			Detail("enum was not analysed").
			Build()
	}

	switch ctx.Pass {
	case PassCHeader:
		return []string{fmt.Sprintf("typedef %s %s;", CScalar(en.Base), en.Name)}, nil
	case PassBindings:
		enum := common.Enum{
			Name:     en.Name,
			BaseType: GoScalar(en.Base, e.Model.Config.ABI),
			Doc:      fmt.Sprintf("%s mirrors %s.", en.Name, n.QualifiedName("::")),
		}
		for _, c := range en.Constants {
			enum.Enumerators = append(enum.Enumerators, common.Enumerator{
				Name:  c.Name,
				Value: strconv.FormatInt(c.Value, 10),
			})
		}
		return []string{goText(func(w *common.Writer) { w.Enum(enum) })}, nil
	}
	return nil, nil
}
