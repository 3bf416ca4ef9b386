package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/WhisperCapital/go-yd/internal/diag"
)

// GeneratedNotice is the first line of every generated file.
const GeneratedNotice = "Code generated by ydgen. DO NOT EDIT."

// Writer accumulates the text of one output file.
type Writer struct {
	name string
	buf  bytes.Buffer
}

func NewWriter(name string) *Writer {
	return &Writer{name: name}
}

func (w *Writer) Name() string {
	return w.name
}

func (w *Writer) Printf(format string, args ...any) {
	fmt.Fprintf(&w.buf, format, args...)
}

func (w *Writer) Line(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

func (w *Writer) Lines(lines []string) {
	for _, l := range lines {
		w.Line(l)
	}
}

func (w *Writer) Blank() {
	w.buf.WriteByte('\n')
}

// Comment writes each line of text as a line comment using the given
// marker, e.g. "//".
func (w *Writer) Comment(marker, text string) {
	if text == "" {
		return
	}
	for _, l := range strings.Split(text, "\n") {
		w.Line(strings.TrimRight(marker+" "+l, " "))
	}
}

func (w *Writer) Struct(s Struct) {
	w.Comment("//", s.Doc)
	if len(s.Fields) == 0 {
		w.Printf("type %s struct{}\n\n", s.Name)
		return
	}
	w.Printf("type %s struct {\n", s.Name)
	for _, f := range s.Fields {
		w.Printf("\t%s %s", f.Name, f.Type)
		if f.Tag != "" {
			w.Printf(" `%s`", f.Tag)
		}
		if f.Comment != "" {
			w.Printf(" // %s", f.Comment)
		}
		w.Blank()
	}
	w.Line("}")
	w.Blank()
}

func (w *Writer) Enum(e Enum) {
	w.Comment("//", e.Doc)
	w.Printf("type %s %s\n\n", e.Name, e.BaseType)
	if len(e.Enumerators) == 0 {
		return
	}
	w.Line("const (")
	for _, en := range e.Enumerators {
		w.Printf("\t%s %s = %s\n", en.Name, e.Name, en.Value)
	}
	w.Line(")")
	w.Blank()
}

// FunctionHeader opens a top-level function, e.g. "func MakeYDApi(configFilename string) *YDApi {".
func (w *Writer) FunctionHeader(h FunctionHeader) {
	w.Comment("//", h.Doc)
	w.Printf("func %s(%s)%s {\n", h.MethodName, paramList(h.Parameters), returnSuffix(h.ReturnType))
}

// ReceiverFunctionHeader opens a method, e.g. "func (a *YDApi) Login(user string, ...) bool {".
func (w *Writer) ReceiverFunctionHeader(h ReceiverFunctionHeader) {
	w.Comment("//", h.Doc)
	recv := h.ReceiverType
	if h.ReceiverName != "" {
		recv = h.ReceiverName + " " + h.ReceiverType
	}
	w.Printf("func (%s) %s(%s)%s {\n", recv, h.MethodName, paramList(h.Parameters), returnSuffix(h.ReturnType))
}

func (w *Writer) FunctionBody(b FunctionBody) {
	for _, row := range b.Rows {
		for _, l := range strings.Split(row, "\n") {
			if l == "" {
				w.Blank()
				continue
			}
			w.Printf("\t%s\n", l)
		}
	}
}

func (w *Writer) ReturnValue(expr string) {
	w.Printf("\treturn %s\n}\n\n", expr)
}

func (w *Writer) VoidReturn() {
	w.Line("}")
	w.Blank()
}

func (w *Writer) Bytes() []byte {
	return bytes.Clone(w.buf.Bytes())
}

// FormatGo runs the accumulated Go source through goimports.
func (w *Writer) FormatGo() ([]byte, error) {
	out, err := imports.Process(w.name, w.buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, diag.New(diag.PhaseWrite, diag.KindFormat).
			Path(w.name).
			Detail("formatting generated Go").
			Cause(err).
			Build()
	}
	return out, nil
}

// WriteFiles writes every file into dir, creating it if needed. Files are
// written in name order.
func WriteFiles(dir string, files map[string][]byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return diag.New(diag.PhaseWrite, diag.KindInvalidInput).Path(dir).Cause(err).Build()
	}
	for _, name := range SortedKeys(files) {
		if err := os.WriteFile(filepath.Join(dir, name), files[name], 0o644); err != nil {
			return diag.New(diag.PhaseWrite, diag.KindInvalidInput).Path(dir, name).Cause(err).Build()
		}
	}
	return nil
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func paramList(params []Field) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Name == "" {
			parts = append(parts, p.Type)
			continue
		}
		parts = append(parts, p.Name+" "+p.Type)
	}
	return strings.Join(parts, ", ")
}

func returnSuffix(t string) string {
	if t == "" {
		return ""
	}
	return " " + t
}
