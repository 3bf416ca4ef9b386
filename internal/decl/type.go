package decl

import (
	"sort"
	"strconv"
	"strings"
)

// TypeKind is the category of a type reference.
type TypeKind int

const (
	TypeUnknown TypeKind = iota
	TypeVoid
	TypeBool
	TypeChar
	TypeSChar
	TypeUChar
	TypeShort
	TypeUShort
	TypeInt
	TypeUInt
	TypeLong
	TypeULong
	TypeLongLong
	TypeULongLong
	TypeFloat
	TypeDouble
	TypePointer
	TypeLValueReference
	TypeConstantArray
	TypeIncompleteArray
	TypeRecord
	TypeEnum
	TypeTypedef
	TypeFunctionPointer
)

var typeKindNames = [...]string{
	TypeUnknown:         "unknown",
	TypeVoid:            "void",
	TypeBool:            "bool",
	TypeChar:            "char",
	TypeSChar:           "signed char",
	TypeUChar:           "unsigned char",
	TypeShort:           "short",
	TypeUShort:          "unsigned short",
	TypeInt:             "int",
	TypeUInt:            "unsigned int",
	TypeLong:            "long",
	TypeULong:           "unsigned long",
	TypeLongLong:        "long long",
	TypeULongLong:       "unsigned long long",
	TypeFloat:           "float",
	TypeDouble:          "double",
	TypePointer:         "pointer",
	TypeLValueReference: "lvalue reference",
	TypeConstantArray:   "constant array",
	TypeIncompleteArray: "incomplete array",
	TypeRecord:          "record",
	TypeEnum:            "enum",
	TypeTypedef:         "typedef",
	TypeFunctionPointer: "function pointer",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "unknown"
}

// IsBuiltin reports whether k is a scalar builtin (including void).
func (k TypeKind) IsBuiltin() bool {
	return k >= TypeVoid && k <= TypeDouble
}

// Type is a reference to a native type as it appears on a parameter, field
// or result.
type Type struct {
	Kind       TypeKind
	Const      bool
	Elem       *Type  // pointee, referent or array element
	Len        int    // constant arrays
	Decl       string // record, enum or typedef name, "::" separated
	Underlying *Type  // resolved target of a typedef
	Spelling   string // as written in the dump
}

// Resolve strips typedefs, keeping the const qualifier of the outer reference.
func (t *Type) Resolve() *Type {
	cur := t
	constant := t.Const
	for cur != nil && cur.Kind == TypeTypedef && cur.Underlying != nil {
		cur = cur.Underlying
		constant = constant || cur.Const
	}
	if cur == nil || cur == t || cur.Const == constant {
		return cur
	}
	cp := *cur
	cp.Const = constant
	return &cp
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Spelling != "" {
		return t.Spelling
	}
	return t.spell()
}

func (t *Type) spell() string {
	var s string
	switch t.Kind {
	case TypePointer:
		s = t.Elem.spell() + " *"
	case TypeLValueReference:
		s = t.Elem.spell() + " &"
	case TypeConstantArray:
		s = t.Elem.spell() + "[" + strconv.Itoa(t.Len) + "]"
	case TypeIncompleteArray:
		s = t.Elem.spell() + "[]"
	case TypeRecord, TypeEnum, TypeTypedef:
		s = t.Decl
	default:
		s = t.Kind.String()
	}
	if t.Const {
		s = "const " + s
	}
	return s
}

// builtinWords maps a sorted multiset of specifier words to a builtin kind.
var builtinWords = map[string]TypeKind{
	"void":                   TypeVoid,
	"bool":                   TypeBool,
	"_Bool":                  TypeBool,
	"char":                   TypeChar,
	"char signed":            TypeSChar,
	"char unsigned":          TypeUChar,
	"short":                  TypeShort,
	"int short":              TypeShort,
	"short unsigned":         TypeUShort,
	"int short unsigned":     TypeUShort,
	"int":                    TypeInt,
	"signed":                 TypeInt,
	"int signed":             TypeInt,
	"unsigned":               TypeUInt,
	"int unsigned":           TypeUInt,
	"long":                   TypeLong,
	"int long":               TypeLong,
	"long unsigned":          TypeULong,
	"int long unsigned":      TypeULong,
	"long long":              TypeLongLong,
	"int long long":          TypeLongLong,
	"long long unsigned":     TypeULongLong,
	"int long long unsigned": TypeULongLong,
	"float":                  TypeFloat,
	"double":                 TypeDouble,
	"int8_t":                 TypeSChar,
	"uint8_t":                TypeUChar,
	"int16_t":                TypeShort,
	"uint16_t":               TypeUShort,
	"int32_t":                TypeInt,
	"uint32_t":               TypeUInt,
	"int64_t":                TypeLongLong,
	"uint64_t":               TypeULongLong,
}

// parseSpelling turns a C++ type spelling such as "const char *",
// "YDMarketData const &" or "char[32]" into a Type tree. Named types are
// left as TypeUnknown with Decl set; the loader resolves them afterwards.
func parseSpelling(spelling string) *Type {
	s := strings.TrimSpace(spelling)
	t := parseDeclarator(s)
	if t != nil {
		t.Spelling = s
	}
	return t
}

func parseDeclarator(s string) *Type {
	s = strings.TrimSpace(s)
	if s == "" {
		return &Type{Kind: TypeUnknown}
	}
	if strings.Contains(s, "(") {
		return &Type{Kind: TypeFunctionPointer, Spelling: s}
	}

	// trailing array extent binds loosest: "char *[4]" is an array of pointers
	if strings.HasSuffix(s, "]") {
		open := strings.LastIndex(s, "[")
		if open < 0 {
			return &Type{Kind: TypeUnknown, Spelling: s}
		}
		extent := strings.TrimSpace(s[open+1 : len(s)-1])
		elem := parseDeclarator(s[:open])
		if extent == "" {
			return &Type{Kind: TypeIncompleteArray, Elem: elem}
		}
		n, err := strconv.Atoi(extent)
		if err != nil || n <= 0 {
			return &Type{Kind: TypeUnknown, Spelling: s}
		}
		return &Type{Kind: TypeConstantArray, Elem: elem, Len: n}
	}

	constant := false
	if strings.HasSuffix(s, "const") {
		rest := strings.TrimSpace(strings.TrimSuffix(s, "const"))
		if strings.HasSuffix(rest, "*") || strings.HasSuffix(rest, "&") {
			constant = true
			s = rest
		}
	}
	switch {
	case strings.HasSuffix(s, "*"):
		return &Type{Kind: TypePointer, Const: constant, Elem: parseDeclarator(s[:len(s)-1])}
	case strings.HasSuffix(s, "&"):
		return &Type{Kind: TypeLValueReference, Elem: parseDeclarator(s[:len(s)-1])}
	}

	return parseSpecifiers(s)
}

func parseSpecifiers(s string) *Type {
	t := &Type{Kind: TypeUnknown}
	var words []string
	for _, w := range strings.Fields(s) {
		switch w {
		case "const":
			t.Const = true
		case "volatile", "struct", "class", "union", "enum", "typename":
		default:
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return t
	}

	key := append([]string(nil), words...)
	sort.Strings(key)
	if kind, ok := builtinWords[strings.Join(key, " ")]; ok {
		t.Kind = kind
		return t
	}
	if len(words) == 1 {
		t.Decl = strings.TrimPrefix(words[0], "::")
	}
	return t
}
