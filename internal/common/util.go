package common

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/golang-cz/textcase"
)

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
	// predeclared names the generated code relies on
	"C": true, "bool": true, "string": true, "len": true, "nil": true, "unsafe": true,
}

var cKeywords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extern": true, "float": true, "for": true, "goto": true,
	"if": true, "inline": true, "int": true, "long": true, "register": true,
	"restrict": true, "return": true, "short": true, "signed": true, "sizeof": true,
	"static": true, "struct": true, "switch": true, "typedef": true, "union": true,
	"unsigned": true, "void": true, "volatile": true, "while": true, "bool": true,
}

// GoName converts a native identifier to an exported Go name by upper-casing
// its first letter, e.g. "notifyLogin" → "NotifyLogin", "makeYDApi" → "MakeYDApi".
// The rest of the name is kept as declared.
func GoName(native string) string {
	r, size := utf8.DecodeRuneInString(native)
	if size == 0 {
		return native
	}
	return string(unicode.ToUpper(r)) + native[size:]
}

// GoParamName converts a native identifier to an unexported Go name,
// e.g. "errorNo" → "errorNo", "MaxOrderRef" → "maxOrderRef".
func GoParamName(native string) string {
	r, size := utf8.DecodeRuneInString(native)
	if size == 0 {
		return native
	}
	return string(unicode.ToLower(r)) + native[size:]
}

// SnakeName converts a native identifier to the snake case used for C-side
// slot names and JSON tags, e.g. "maxOrderRef" → "max_order_ref".
func SnakeName(native string) string {
	return textcase.SnakeCase(native)
}

// IsGoReserved reports whether name cannot be used as a Go identifier in
// generated code.
func IsGoReserved(name string) bool {
	return goKeywords[name]
}

// IsCReserved reports whether name cannot be used as a C identifier.
func IsCReserved(name string) bool {
	return cKeywords[name]
}

// SanitizeFieldName fixes a field name if it is not a usable identifier.
// Empty names become "argN", a leading digit gets an underscore prefix and
// reserved words get an underscore suffix, e.g. "type" → "type_".
func SanitizeFieldName(field Field, index int, reserved func(string) bool) Field {
	name := field.Name
	switch {
	case name == "":
		name = fmt.Sprintf("arg%d", index)
	case name[0] >= '0' && name[0] <= '9':
		name = "_" + name
	case reserved(name):
		name += "_"
	}

	return Field{
		Name: name,
		Type: field.Type,
	}
}

// Indent prefixes every non-empty line of text with one tab.
func Indent(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "\t" + l
		}
	}
	return strings.Join(lines, "\n")
}
