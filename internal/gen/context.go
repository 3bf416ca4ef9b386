package gen

// Pass selects the output file a traversal is producing.
type Pass int

const (
	PassNone     Pass = iota
	PassCHeader       // yd_bindings.h
	PassBindings      // yd_bindings.go
	PassAPI           // api_wrapper.go
	PassSPI           // spi_wrapper.go
	PassTable         // spi_table.c
	PassShim          // yd_shim.cpp
)

// MethodFlavor selects which artifact the method handler emits for one
// callable. A callback method is visited under most of these over the
// course of one record.
type MethodFlavor int

const (
	MethodNone          MethodFlavor = iota
	MethodInterfaceStub              // interface method line
	MethodDefaultStub                // no-op on Unimplemented<Record>
	MethodSlotTypedef                // C function-pointer typedef for one slot
	MethodTableField                 // dispatch table struct field
	MethodStaticEntry                // designated initializer in the static table
	MethodSlotStub                   // C no-op body for destructor slots
	MethodEventKind                  // event kind constant
	MethodEventName                  // case of the event kind String method
	MethodPayload                    // payload struct plus Kind/Apply
	MethodTrampoline                 // exported Go function the table points at
	MethodStream                     // stream method that enqueues the payload
	MethodCallShim                   // static inline C shim loading the slot
	MethodWrapper                    // outbound Go wrapper method
)

// ParamFlavor selects how one parameter is rendered.
type ParamFlavor int

const (
	ParamNone          ParamFlavor = iota
	ParamGoDecl                    // "user string"
	ParamGoType                    // "string", for interface stubs without names
	ParamCDecl                     // "const char *user"
	ParamCName                     // "user", forwarding inside a C shim
	ParamCxxDecl                   // native spelling inside the C++ shim
	ParamCxxArg                    // forwarding inside the C++ shim
	ParamPrelude                   // statements before an outbound call
	ParamCallArg                   // converted argument at an outbound call site
	ParamSafetyCheck               // non-null assertion in a trampoline
	ParamMarshal                   // payload field from a trampoline argument
	ParamStreamMarshal             // payload field from a Go argument
	ParamApplyArg                  // argument when replaying a payload
)

// listFlavor reports whether fragments of this flavor form a comma
// separated list.
func (f ParamFlavor) listFlavor() bool {
	switch f {
	case ParamGoDecl, ParamGoType, ParamCDecl, ParamCName, ParamCxxDecl, ParamCxxArg, ParamCallArg, ParamApplyArg:
		return true
	}
	return false
}

// Context is the configuration handed to every handler. It is a value:
// each child visit receives its own specialised copy, and nothing a child
// does is visible to its parent.
type Context struct {
	Owner       string // record that owns the declarations being visited, e.g. "YDListener"
	Pass        Pass
	Method      MethodFlavor
	Param       ParamFlavor
	Index       int    // position among siblings served by the same handler
	Count       int    // number of siblings served by the same handler
	Lifetime    string // marker written next to borrowed payload fields
	RawPointers bool   // trampoline boundary: record pointers stay *C.T
}

func (c Context) WithOwner(owner string) Context {
	c.Owner = owner
	return c
}

func (c Context) WithPass(p Pass) Context {
	c.Pass = p
	return c
}

func (c Context) WithMethod(f MethodFlavor) Context {
	c.Method = f
	return c
}

func (c Context) WithParam(f ParamFlavor) Context {
	c.Param = f
	return c
}

func (c Context) WithRawPointers(raw bool) Context {
	c.RawPointers = raw
	return c
}

func (c Context) withSibling(index, count int) Context {
	c.Index = index
	c.Count = count
	return c
}

// Last reports whether the visited node is the last of its siblings.
func (c Context) Last() bool {
	return c.Index == c.Count-1
}
