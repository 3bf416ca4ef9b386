package gen

import (
	"strings"

	"github.com/WhisperCapital/go-yd/internal/common"
	"github.com/WhisperCapital/go-yd/internal/decl"
	"github.com/WhisperCapital/go-yd/internal/diag"
)

// Output file names.
const (
	FileCHeader = "yd_bindings.h"
	FileBinding = "yd_bindings.go"
	FileAPI     = "api_wrapper.go"
	FileSPI     = "spi_wrapper.go"
	FileTable   = "spi_table.c"
	FileShim    = "yd_shim.cpp"
)

// BridgeImport is the runtime package the generated code depends on.
const BridgeImport = "github.com/WhisperCapital/go-yd/bridge"

const headerGuard = "YDGEN_BINDINGS_H"

// cHeader renders yd_bindings.h: raw types and signatures shared by every
// cgo preamble, the static table and the C++ shim prototypes.
func cHeader(e *Engine) ([]byte, error) {
	m := e.Model
	ctx := Context{Pass: PassCHeader, Lifetime: m.Config.LifetimeMarker}
	w := common.NewWriter(FileCHeader)

	w.Line("// " + common.GeneratedNotice)
	w.Blank()
	w.Line("#ifndef " + headerGuard)
	w.Line("#define " + headerGuard)
	w.Blank()
	w.Line("#include <stdbool.h>")
	w.Line("#include <stdint.h>")
	w.Line("#include <stdlib.h>")
	w.Blank()

	if len(m.Enums) > 0 {
		for _, en := range m.Enums {
			frags, err := e.Visit(en.Node, ctx)
			if err != nil {
				return nil, err
			}
			w.Lines(frags)
		}
		w.Blank()
	}

	for _, r := range m.Records {
		w.Printf("typedef struct %s %s;\n", r.Name, r.Name)
		switch r.Role {
		case RoleCallback:
			w.Printf("typedef struct %s %s;\n", r.FatName(), r.FatName())
			w.Printf("typedef struct %sVTable %sVTable;\n", r.Name, r.Name)
		case RoleActive:
			w.Printf("typedef struct %sVTable %sVTable;\n", r.Name, r.Name)
		}
	}
	w.Blank()

	data, err := dependencyOrder(m)
	if err != nil {
		return nil, err
	}
	for _, r := range data {
		if err := section(e, w, r.Node, ctx); err != nil {
			return nil, err
		}
	}
	for _, role := range []Role{RoleCallback, RoleActive} {
		for _, r := range m.RecordsWith(role) {
			w.Printf("/* %s */\n\n", r.Native)
			if err := section(e, w, r.Node, ctx); err != nil {
				return nil, err
			}
		}
	}

	if len(m.Functions) > 0 {
		w.Line("/* free functions, defined in " + FileShim + " */")
		w.Blank()
		for _, f := range m.Functions {
			frags, err := e.Visit(f.Node, ctx)
			if err != nil {
				return nil, err
			}
			w.Lines(frags)
		}
		w.Blank()
	}

	w.Line("#endif // " + headerGuard)
	return w.Bytes(), nil
}

func section(e *Engine, w *common.Writer, n *decl.Node, ctx Context) error {
	frags, err := e.Visit(n, ctx)
	if err != nil {
		return err
	}
	for _, f := range frags {
		w.Line(f)
		w.Blank()
	}
	return nil
}

// dependencyOrder sorts data records so every record embedded by value is
// defined before its user. Ties keep declaration order.
func dependencyOrder(m *Model) ([]*Record, error) {
	var out []*Record
	state := map[*Record]int{} // 1 visiting, 2 done

	var visit func(r *Record) error
	visit = func(r *Record) error {
		switch state[r] {
		case 1:
			return diag.New(diag.PhaseEmit, diag.KindLayout).
				Path(r.Node.Path()...).
				Detail("record contains itself by value").
				Build()
		case 2:
			return nil
		}
		state[r] = 1
		for _, f := range r.Fields {
			t := f.Type
			if t.Category == CatArray {
				t = *t.Elem
			}
			if t.Category != CatDataValue {
				continue
			}
			dep := m.Record(t.Name)
			if dep == nil {
				return diag.New(diag.PhaseEmit, diag.KindMissingChild).
					Path(f.Node.Path()...).
					Type(t.Name).
					Build()
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[r] = 2
		out = append(out, r)
		return nil
	}

	for _, r := range m.RecordsWith(RoleData) {
		if err := visit(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// goFile renders one cgo source file of the generated package. Imports are
// derived from what the fragments reference.
func goFile(m *Model, name string, frags []string, flags bool) ([]byte, error) {
	w := common.NewWriter(name)
	w.Line("// " + common.GeneratedNotice)
	w.Blank()
	w.Line("package " + m.Config.Package)
	w.Blank()
	w.Line("/*")
	if flags {
		cgo := m.Config.Cgo
		for _, d := range []struct{ name, value string }{
			{"CPPFLAGS", cgo.CPPFlags},
			{"CFLAGS", cgo.CFlags},
			{"CXXFLAGS", cgo.CXXFlags},
			{"LDFLAGS", cgo.LDFlags},
		} {
			if d.value != "" {
				w.Printf("#cgo %s: %s\n", d.name, d.value)
			}
		}
	}
	w.Line("#include <stdlib.h>")
	w.Line(`#include "` + FileCHeader + `"`)
	w.Line("*/")
	w.Line(`import "C"`)
	w.Blank()

	body := strings.Join(frags, "\n")
	if imports := usedImports(body); len(imports) > 0 {
		w.Line("import (")
		for _, imp := range imports {
			w.Printf("\t%q\n", imp)
		}
		w.Line(")")
		w.Blank()
	}

	for _, f := range frags {
		w.Line(f)
		w.Blank()
	}
	return w.FormatGo()
}

var importMarkers = []struct{ marker, path string }{
	{"context.", "context"},
	{"iter.", "iter"},
	{"cgo.", "runtime/cgo"},
	{"strconv.", "strconv"},
	{"unsafe.", "unsafe"},
	{"bridge.", BridgeImport},
}

func usedImports(body string) []string {
	var out []string
	for _, im := range importMarkers {
		if strings.Contains(body, im.marker) {
			out = append(out, im.path)
		}
	}
	return out
}

// cFile renders a C or C++ translation unit.
func cFile(name string, includes []string, frags []string, externC bool) []byte {
	w := common.NewWriter(name)
	w.Line("// " + common.GeneratedNotice)
	w.Blank()
	for _, inc := range includes {
		w.Line(inc)
	}
	w.Blank()
	if externC {
		w.Line(`extern "C" {`)
		w.Blank()
	}
	for _, f := range frags {
		w.Line(f)
		w.Blank()
	}
	if externC {
		w.Line(`} // extern "C"`)
	}
	return w.Bytes()
}
