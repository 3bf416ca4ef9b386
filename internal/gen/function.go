package gen

import (
	"fmt"
	"strings"

	"github.com/WhisperCapital/go-yd/internal/common"
	"github.com/WhisperCapital/go-yd/internal/decl"
)

// functionHandler emits free functions. They cannot be called from C
// directly, so each goes through an extern "C" forwarder in the C++ shim.
type functionHandler struct{}

func (functionHandler) Handle(e *Engine, n *decl.Node, ctx Context) ([]string, error) {
	f := e.Model.FunctionOf(n)
	if f == nil {
		// skipped by configuration
		return nil, nil
	}

	nodes := paramNodes(f.Params)
	params := func(flavor ParamFlavor) ([]string, error) {
		return e.VisitAll(nodes, ctx.WithParam(flavor))
	}

	switch ctx.Pass {
	case PassCHeader:
		decls, err := params(ParamCDecl)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("%s%s(%s);", cResultPrefix(f.Result), f.Shim, cParams(decls))}, nil

	case PassShim:
		decls, err := params(ParamCxxDecl)
		if err != nil {
			return nil, err
		}
		args, err := params(ParamCxxArg)
		if err != nil {
			return nil, err
		}
		call := fmt.Sprintf("%s(%s)", f.Native, strings.Join(args, ""))
		body := "return " + call + ";"
		switch {
		case f.Result.Category == CatVoid:
			body = call + ";"
		case f.Result.Native.Kind == decl.TypeLValueReference:
			body = "return &" + call + ";"
		}
		return []string{fmt.Sprintf("%s%s(%s) {\n\t%s\n}", cxxResultPrefix(f.Result), f.Shim, cParams(decls), body)}, nil

	case PassAPI:
		preludes, err := params(ParamPrelude)
		if err != nil {
			return nil, err
		}
		args, err := params(ParamCallArg)
		if err != nil {
			return nil, err
		}

		text := goText(func(w *common.Writer) {
			w.FunctionHeader(common.FunctionHeader{
				Doc:        fmt.Sprintf("%s calls %s.", f.GoName, f.Native),
				MethodName: f.GoName,
				Parameters: goParams(f.Params),
				ReturnType: resultGoType(f.Result),
			})
			writeCall(w, preludes, fmt.Sprintf("C.%s(%s)", f.Shim, strings.Join(args, "")), f.Result)
		})
		return []string{text}, nil
	}
	return nil, nil
}

func cParams(decls []string) string {
	if len(decls) == 0 {
		return "void"
	}
	return strings.Join(decls, "")
}

// cxxResultPrefix spells a result in the C++ shim using the native
// spelling, with references returned as pointers.
func cxxResultPrefix(t TypeInfo) string {
	if t.Category == CatVoid {
		return "void "
	}
	native := t.Native
	spelled := strings.TrimSpace(native.String())
	if native.Kind == decl.TypeLValueReference {
		spelled = strings.TrimSpace(native.Elem.String()) + " *"
	}
	if strings.HasSuffix(spelled, "*") {
		return starSpacing(spelled)
	}
	return spelled + " "
}

// starSpacing normalises "const char*" to "const char *".
func starSpacing(spelled string) string {
	base := strings.TrimRight(spelled, "*&")
	return strings.TrimSpace(base) + " " + spelled[len(base):]
}
