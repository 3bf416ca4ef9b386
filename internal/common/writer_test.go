package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WhisperCapital/go-yd/internal/diag"
)

func TestWriterStructAndEnum(t *testing.T) {
	w := NewWriter("x.go")
	w.Line("package yd")
	w.Blank()
	w.Struct(Struct{
		Name: "Packet",
		Doc:  "Packet is a test.",
		Fields: []Field{
			{Name: "ErrorNo", Type: "int32", Tag: `json:"error_no"`},
			{Name: "Api", Type: "*YDApi", Comment: "borrowed"},
		},
	})
	w.Enum(Enum{
		Name:        "Side",
		BaseType:    "int32",
		Enumerators: []Enumerator{{Name: "Buy", Value: "0"}, {Name: "Sell", Value: "1"}},
	})

	out, err := w.FormatGo()
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "// Packet is a test.\ntype Packet struct {")
	assert.Regexp(t, "ErrorNo\\s+int32\\s+`json:\"error_no\"`", text)
	assert.Regexp(t, `Api\s+\*YDApi\s+// borrowed`, text)
	assert.Regexp(t, `Sell\s+Side = 1`, text)
}

func TestWriterFunctions(t *testing.T) {
	w := NewWriter("")
	w.ReceiverFunctionHeader(ReceiverFunctionHeader{
		Doc:          "Login calls YDApi::login.",
		ReceiverName: "a",
		ReceiverType: "*YDApi",
		MethodName:   "Login",
		Parameters:   []Field{{Name: "user", Type: "string"}, {Name: "pass", Type: "string"}},
		ReturnType:   "bool",
	})
	w.FunctionBody(FunctionBody{Rows: []string{"ret := call()"}})
	w.ReturnValue("bool(ret)")

	assert.Equal(t, "// Login calls YDApi::login.\nfunc (a *YDApi) Login(user string, pass string) bool {\n\tret := call()\n\treturn bool(ret)\n}\n\n", string(w.Bytes()))
}

func TestFormatGoReportsSyntaxErrors(t *testing.T) {
	w := NewWriter("broken.go")
	w.Line("package yd\nfunc {")

	_, err := w.FormatGo()
	require.Error(t, err)
	d, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.KindFormat, d.Kind)
	assert.Equal(t, []string{"broken.go"}, d.Path)
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, WriteFiles(dir, map[string][]byte{"b.h": []byte("b"), "a.go": []byte("a")}))

	got, err := os.ReadFile(filepath.Join(dir, "a.go"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
	assert.Equal(t, []string{"a.go", "b.h"}, SortedKeys(map[string]int{"b.h": 1, "a.go": 2}))
}
