package gen

import (
	"fmt"
	"strings"

	"github.com/WhisperCapital/go-yd/internal/decl"
	"github.com/WhisperCapital/go-yd/internal/diag"
)

// paramHandler renders one parameter under the parameter flavor of the
// context. List flavors carry their own separator, derived from the
// sibling position.
type paramHandler struct{}

func (paramHandler) Handle(e *Engine, n *decl.Node, ctx Context) ([]string, error) {
	p := e.Model.Param(n)
	if p == nil {
		return nil, diag.New(diag.PhaseEmit, diag.KindMissingChild).
			Path(n.Path()...).
			Detail("parameter was not analysed").
			Build()
	}

	text, err := renderParam(e, p, ctx)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}
	if ctx.Param.listFlavor() && !ctx.Last() {
		text += ", "
	}
	return []string{text}, nil
}

func renderParam(e *Engine, p *Param, ctx Context) (string, error) {
	t := p.Type
	switch ctx.Param {
	case ParamGoDecl:
		if ctx.RawPointers {
			// trampoline parameters keep the C types the library passes
			return p.GoName + " " + t.CgoType(), nil
		}
		return p.GoName + " " + t.GoType(false), nil
	case ParamGoType:
		return t.GoType(ctx.RawPointers), nil
	case ParamCDecl:
		return t.CDecl(p.CName, false), nil
	case ParamCName:
		return p.CName, nil
	case ParamCxxDecl:
		return cxxParam(p), nil
	case ParamCxxArg:
		return cxxArg(p), nil
	case ParamPrelude:
		return prelude(e, p, ctx), nil
	case ParamCallArg:
		return callArg(p), nil
	case ParamSafetyCheck:
		if !t.Category.IsPointer() {
			return "", nil
		}
		return fmt.Sprintf("bridge.MustNotNil(unsafe.Pointer(%s), %q, %q)", p.GoName, label(e, p, ctx), p.Native), nil
	case ParamMarshal:
		return p.Field + ": " + marshal(p) + ",", nil
	case ParamStreamMarshal:
		if t.Category == CatDataRef {
			return fmt.Sprintf("%s: bridge.Copy(%s),", p.Field, p.GoName), nil
		}
		return p.Field + ": " + p.GoName + ",", nil
	case ParamApplyArg:
		if t.Category == CatDataRef {
			return "&p." + p.Field, nil
		}
		return "p." + p.Field, nil
	}
	return "", diag.New(diag.PhaseEmit, diag.KindInvalidInput).
		Path(p.Node.Path()...).
		Detail("parameter flavor %d has no rendering", ctx.Param).
		Build()
}

func label(e *Engine, p *Param, ctx Context) string {
	if m := e.Model.Method(ctx.Owner, p.Node.Parent); m != nil {
		return m.Label()
	}
	return p.Node.Parent.QualifiedName("::")
}

// prelude renders the statements an outbound call needs before the
// argument can be passed, e.g. a C copy of a Go string.
func prelude(e *Engine, p *Param, ctx Context) string {
	switch p.Type.Category {
	case CatString:
		return fmt.Sprintf("%s := C.CString(%s)\ndefer C.free(unsafe.Pointer(%s))", p.Local, p.GoName, p.Local)
	case CatStrings:
		return fmt.Sprintf("%s := newCStringArray(%s)\ndefer %s.free()", p.Local, p.GoName, p.Local)
	case CatCallbackRef:
		return fmt.Sprintf("%s := new%s(%s)\na.listeners = append(a.listeners, unsafe.Pointer(%s))",
			p.Local, p.Type.Name+"Fat", p.GoName, p.Local)
	case CatDataRef, CatOpaqueRef, CatActiveRef:
		if p.Type.Ref {
			return fmt.Sprintf("bridge.MustNotNil(unsafe.Pointer(%s), %q, %q)", refPointer(p), label(e, p, ctx), p.Native)
		}
	}
	return ""
}

func refPointer(p *Param) string {
	if p.Type.Category == CatActiveRef {
		return p.GoName + ".cptr()"
	}
	return p.GoName
}

// callArg converts a Go argument into what the C shim takes.
func callArg(p *Param) string {
	t := p.Type
	switch t.Category {
	case CatScalar:
		return fmt.Sprintf("%s(%s)", CgoScalar(t.Scalar), p.GoName)
	case CatEnum:
		return fmt.Sprintf("C.%s(%s)", t.Name, p.GoName)
	case CatString, CatCallbackRef:
		return p.Local
	case CatStrings:
		return p.Local + ".ptr()"
	case CatDataRef, CatOpaqueRef, CatDataValue:
		return p.GoName
	case CatActiveRef:
		return p.GoName + ".cptr()"
	case CatArray:
		return fmt.Sprintf("(%s)(unsafe.Pointer(&%s[0]))", t.CgoType(), p.GoName)
	}
	return p.GoName
}

// marshal converts a trampoline argument into its payload value. Pointer
// arguments have already been asserted non-nil.
func marshal(p *Param) string {
	t := p.Type
	switch t.Category {
	case CatScalar:
		return fmt.Sprintf("%s(%s)", GoScalar(t.Scalar, t.ABI), p.GoName)
	case CatEnum:
		return fmt.Sprintf("%s(%s)", t.Name, p.GoName)
	case CatString:
		return fmt.Sprintf("C.GoString(%s)", p.GoName)
	case CatDataRef:
		return "*" + p.GoName
	case CatActiveRef:
		return fmt.Sprintf("wrap%s(%s)", t.Name, p.GoName)
	case CatArray:
		return fmt.Sprintf("*(*%s)(unsafe.Pointer(%s))", t.GoType(false), p.GoName)
	}
	return p.GoName
}

// cxxParam declares a parameter of the C++ shim. References become
// pointers so the C prototype and the C++ definition agree.
func cxxParam(p *Param) string {
	native := p.Type.Native
	if native.Kind == decl.TypeLValueReference {
		return strings.TrimSpace(native.Elem.String()) + " *" + p.CName
	}
	if p.Type.Category == CatArray {
		return p.Type.Elem.CType() + " *" + p.CName
	}
	spelled := strings.TrimSpace(native.String())
	if strings.HasSuffix(spelled, "*") {
		return starSpacing(spelled) + p.CName
	}
	if strings.HasSuffix(spelled, "]") {
		// char *names[] and friends decay to a pointer
		return p.Type.CType() + p.CName
	}
	return spelled + " " + p.CName
}

// cxxArg forwards a shim parameter to the native function.
func cxxArg(p *Param) string {
	if p.Type.Native.Kind == decl.TypeLValueReference {
		return "*" + p.CName
	}
	return p.CName
}
