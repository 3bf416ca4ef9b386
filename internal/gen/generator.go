package gen

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/WhisperCapital/go-yd/internal/common"
	"github.com/WhisperCapital/go-yd/internal/decl"
	"github.com/WhisperCapital/go-yd/internal/diag"
)

// Generator turns a declaration tree into the files of a binding package.
type Generator struct {
	cfg    *common.Config
	header *decl.Header
}

func NewGenerator(cfg *common.Config, header *decl.Header) *Generator {
	return &Generator{cfg: cfg, header: header}
}

// newEngine returns an engine with every declaration kind the generator
// understands registered. Kinds without a handler fail the run.
func newEngine(m *Model) *Engine {
	e := NewEngine(m)
	e.Register(containerHandler{}, decl.KindTranslationUnit, decl.KindNamespace)
	e.Register(recordHandler{}, decl.KindRecord)
	e.Register(methodHandler{}, decl.KindMethod, decl.KindDestructor)
	e.Register(paramHandler{}, decl.KindParameter)
	e.Register(functionHandler{}, decl.KindFunction)
	e.Register(enumHandler{}, decl.KindEnum)
	e.Register(fieldHandler{}, decl.KindField)
	e.Register(silentHandler{}, decl.KindTypedef, decl.KindBase, decl.KindEnumConstant)
	return e
}

// Generate analyses the declarations and renders every output file, keyed
// by file name. Nothing is written; the result is deterministic for a given
// input and configuration.
func (g *Generator) Generate() (map[string][]byte, error) {
	m, err := Analyze(g.header, g.cfg)
	if err != nil {
		return nil, err
	}
	e := newEngine(m)
	root := m.Header.Root
	base := Context{Lifetime: g.cfg.LifetimeMarker}

	files := map[string][]byte{}

	h, err := cHeader(e)
	if err != nil {
		return nil, err
	}
	files[FileCHeader] = h

	pass := func(p Pass) ([]string, error) {
		frags, err := e.VisitChildren(root, base.WithPass(p))
		if err != nil {
			return nil, err
		}
		Logger().Debug("pass rendered", zap.Int("pass", int(p)), zap.Int("fragments", len(frags)))
		return frags, nil
	}

	bindings, err := pass(PassBindings)
	if err != nil {
		return nil, err
	}
	if usesStringArrays(m) {
		bindings = append(bindings, cStringArraySource)
	}
	if files[FileBinding], err = goFile(m, FileBinding, bindings, true); err != nil {
		return nil, err
	}

	if len(m.RecordsWith(RoleActive)) > 0 || len(m.Functions) > 0 {
		api, err := pass(PassAPI)
		if err != nil {
			return nil, err
		}
		if files[FileAPI], err = goFile(m, FileAPI, api, false); err != nil {
			return nil, err
		}
	}

	if len(m.RecordsWith(RoleCallback)) > 0 {
		spi, err := pass(PassSPI)
		if err != nil {
			return nil, err
		}
		if files[FileSPI], err = goFile(m, FileSPI, spi, false); err != nil {
			return nil, err
		}

		table, err := pass(PassTable)
		if err != nil {
			return nil, err
		}
		files[FileTable] = cFile(FileTable, []string{
			`#include "` + FileCHeader + `"`,
			`#include "_cgo_export.h"`,
		}, table, false)
	}

	if len(m.Functions) > 0 {
		shim, err := pass(PassShim)
		if err != nil {
			return nil, err
		}
		include := g.cfg.Include
		if include == "" {
			include = m.Header.Include
		}
		files[FileShim] = cFile(FileShim, []string{`#include "` + include + `"`}, shim, true)
	}

	Logger().Info("generated bindings",
		zap.String("package", g.cfg.Package),
		zap.Int("files", len(files)),
		zap.Int("records", len(m.Records)),
		zap.Int("functions", len(m.Functions)))
	return files, nil
}

func usesStringArrays(m *Model) bool {
	for _, f := range m.Functions {
		for _, p := range f.Params {
			if p.Type.Category == CatStrings {
				return true
			}
		}
	}
	for _, r := range m.Records {
		for _, mt := range r.Methods {
			for _, p := range mt.Params {
				if p.Type.Category == CatStrings {
					return true
				}
			}
		}
	}
	return false
}

const cStringArraySource = `// cStringArray is a NULL-terminated array of C strings in C memory.
type cStringArray struct {
	items []*C.char
	array **C.char
}

func newCStringArray(values []string) *cStringArray {
	n := len(values) + 1
	array := (**C.char)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof((*C.char)(nil)))))
	items := unsafe.Slice(array, n)
	for i, v := range values {
		items[i] = C.CString(v)
	}
	items[n-1] = nil
	return &cStringArray{items: items, array: array}
}

func (s *cStringArray) ptr() **C.char {
	return s.array
}

func (s *cStringArray) free() {
	for _, p := range s.items {
		if p != nil {
			C.free(unsafe.Pointer(p))
		}
	}
	C.free(unsafe.Pointer(s.array))
}`

// Stale compares files with what dir holds and returns the names that are
// missing or differ, in name order.
func Stale(dir string, files map[string][]byte) ([]string, error) {
	var stale []string
	for _, name := range common.SortedKeys(files) {
		have, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			stale = append(stale, name)
			continue
		}
		if err != nil {
			return nil, diag.New(diag.PhaseWrite, diag.KindInvalidInput).Path(dir, name).Cause(err).Build()
		}
		if !bytes.Equal(have, files[name]) {
			stale = append(stale, name)
		}
	}
	return stale, nil
}
