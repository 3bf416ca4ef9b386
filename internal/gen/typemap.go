package gen

import (
	"fmt"
	"strings"

	"github.com/WhisperCapital/go-yd/internal/common"
	"github.com/WhisperCapital/go-yd/internal/decl"
	"github.com/WhisperCapital/go-yd/internal/diag"
)

// Category is the marshaling rule chosen for one native type.
type Category int

const (
	CatVoid        Category = iota
	CatScalar               // bool, integers, floats
	CatEnum                 // enumeration, carried as its underlying integer
	CatString               // char *
	CatStrings              // char ** or char *[]
	CatDataRef              // pointer or reference to a data record
	CatDataValue            // data record by value
	CatOpaqueRef            // pointer or reference to an opaque record
	CatActiveRef            // pointer to an active record
	CatCallbackRef          // pointer to a callback record
	CatArray                // fixed-size array of scalars or enums
)

var categoryNames = [...]string{
	CatVoid:        "void",
	CatScalar:      "scalar",
	CatEnum:        "enum",
	CatString:      "string",
	CatStrings:     "string array",
	CatDataRef:     "data record pointer",
	CatDataValue:   "data record",
	CatOpaqueRef:   "opaque record pointer",
	CatActiveRef:   "active record pointer",
	CatCallbackRef: "callback record pointer",
	CatArray:       "array",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// IsPointer reports whether values of this category arrive as native
// pointers and must be checked before use.
func (c Category) IsPointer() bool {
	switch c {
	case CatString, CatStrings, CatDataRef, CatOpaqueRef, CatActiveRef, CatCallbackRef, CatArray:
		return true
	}
	return false
}

// TypeInfo is the mapped form of one native type. Every text rendering of
// the type derives from it, which keeps the Go declaration, the C
// declaration and the call-site conversion in agreement.
type TypeInfo struct {
	Category Category
	Native   *decl.Type
	Scalar   decl.TypeKind // scalars, enum underlying type, array element
	Name     string        // record or enum C/Go name
	Elem     *TypeInfo     // array element
	Len      int
	Ref      bool // lvalue reference rather than pointer
	Const    bool // pointee is const
	ABI      common.ABI
}

type scalarSpelling struct {
	c, cgo, goLP64, goLLP64 string
}

var scalars = map[decl.TypeKind]scalarSpelling{
	decl.TypeBool:      {"bool", "bool", "bool", "bool"},
	decl.TypeChar:      {"char", "char", "int8", "int8"},
	decl.TypeSChar:     {"signed char", "schar", "int8", "int8"},
	decl.TypeUChar:     {"unsigned char", "uchar", "uint8", "uint8"},
	decl.TypeShort:     {"short", "short", "int16", "int16"},
	decl.TypeUShort:    {"unsigned short", "ushort", "uint16", "uint16"},
	decl.TypeInt:       {"int", "int", "int32", "int32"},
	decl.TypeUInt:      {"unsigned int", "uint", "uint32", "uint32"},
	decl.TypeLong:      {"long", "long", "int64", "int32"},
	decl.TypeULong:     {"unsigned long", "ulong", "uint64", "uint32"},
	decl.TypeLongLong:  {"long long", "longlong", "int64", "int64"},
	decl.TypeULongLong: {"unsigned long long", "ulonglong", "uint64", "uint64"},
	decl.TypeFloat:     {"float", "float", "float32", "float32"},
	decl.TypeDouble:    {"double", "double", "float64", "float64"},
}

// GoScalar is the Go type of a scalar, e.g. TypeInt → "int32".
func GoScalar(k decl.TypeKind, abi common.ABI) string {
	s := scalars[k]
	if abi == common.ABIMSVC {
		return s.goLLP64
	}
	return s.goLP64
}

// CgoScalar is the cgo spelling of a scalar, e.g. TypeUInt → "C.uint".
func CgoScalar(k decl.TypeKind) string {
	return "C." + scalars[k].cgo
}

// CScalar is the C spelling of a scalar, e.g. TypeUInt → "unsigned int".
func CScalar(k decl.TypeKind) string {
	return scalars[k].c
}

// Position is where a type appears; some categories are only valid in
// some positions.
type Position int

const (
	PosOutboundParam Position = iota
	PosInboundParam
	PosFunctionParam
	PosResult
	PosCallbackResult
	PosField
)

type mapper struct {
	model *Model
	abi   common.ABI
}

func (mp *mapper) unsupported(owner *decl.Node, t *decl.Type, format string, args ...any) error {
	return diag.New(diag.PhaseAnalyze, diag.KindUnsupported).
		Path(owner.Path()...).
		Type(t.String()).
		Detail(format, args...).
		Build()
}

func (mp *mapper) unknown(owner *decl.Node, t *decl.Type) error {
	return diag.New(diag.PhaseAnalyze, diag.KindUnknownType).
		Path(owner.Path()...).
		Type(t.String()).
		Detail("no mapping for %s type", t.Resolve().Kind).
		Build()
}

// Map classifies a native type at a position. owner is the declaration
// using it and is named in diagnostics. Typedefs are resolved first; there
// is no fallback mapping.
func (mp *mapper) Map(owner *decl.Node, t *decl.Type, pos Position) (TypeInfo, error) {
	if t == nil {
		return TypeInfo{}, diag.New(diag.PhaseAnalyze, diag.KindMissingChild).
			Path(owner.Path()...).
			Detail("declaration has no type").
			Build()
	}

	info, err := mp.classify(owner, t, pos)
	if err != nil {
		return TypeInfo{}, err
	}
	info.Native = t
	info.ABI = mp.abi

	switch {
	case info.Category == CatVoid && pos != PosResult && pos != PosCallbackResult:
		return TypeInfo{}, mp.unsupported(owner, t, "void is only valid as a result")
	case pos == PosCallbackResult && info.Category != CatVoid:
		return TypeInfo{}, mp.unsupported(owner, t, "callbacks are delivered asynchronously and must return void")
	case info.Category == CatStrings && pos != PosOutboundParam && pos != PosFunctionParam:
		return TypeInfo{}, mp.unsupported(owner, t, "string arrays carry no length and can only be passed to the library")
	case info.Category == CatCallbackRef && pos != PosOutboundParam:
		return TypeInfo{}, mp.unsupported(owner, t, "callback records can only be handed over by the session-start method")
	case info.Category == CatArray && pos == PosResult:
		return TypeInfo{}, mp.unsupported(owner, t, "arrays cannot be returned")
	case info.Ref && pos == PosField:
		return TypeInfo{}, mp.unsupported(owner, t, "reference fields have no C layout")
	case pos == PosField && (info.Category == CatActiveRef || info.Category == CatCallbackRef):
		return TypeInfo{}, mp.unsupported(owner, t, "interface pointers cannot be data fields")
	}
	return info, nil
}

func (mp *mapper) classify(owner *decl.Node, t *decl.Type, pos Position) (TypeInfo, error) {
	r := t.Resolve()
	switch {
	case r.Kind == decl.TypeVoid:
		return TypeInfo{Category: CatVoid}, nil
	case r.Kind.IsBuiltin():
		return TypeInfo{Category: CatScalar, Scalar: r.Kind}, nil
	}

	switch r.Kind {
	case decl.TypeEnum:
		return mp.enumInfo(owner, t, r)

	case decl.TypeRecord:
		rec := mp.model.Record(r.Decl)
		if rec == nil {
			return TypeInfo{}, mp.unknown(owner, t)
		}
		if rec.Role != RoleData {
			return TypeInfo{}, mp.unsupported(owner, t, "%s record %s cannot be passed by value", rec.Role, rec.Native)
		}
		return TypeInfo{Category: CatDataValue, Name: rec.Name}, nil

	case decl.TypePointer, decl.TypeLValueReference:
		ref := r.Kind == decl.TypeLValueReference
		elem := r.Elem.Resolve()
		switch {
		case elem.Kind == decl.TypeChar && !ref:
			return TypeInfo{Category: CatString, Const: elem.Const}, nil
		case elem.Kind == decl.TypePointer && !ref && elem.Elem.Resolve().Kind == decl.TypeChar:
			return TypeInfo{Category: CatStrings, Const: elem.Elem.Resolve().Const}, nil
		case elem.Kind == decl.TypeRecord:
			rec := mp.model.Record(elem.Decl)
			if rec == nil {
				return TypeInfo{}, mp.unknown(owner, t)
			}
			info := TypeInfo{Name: rec.Name, Ref: ref, Const: elem.Const}
			switch rec.Role {
			case RoleData:
				info.Category = CatDataRef
			case RoleOpaque:
				info.Category = CatOpaqueRef
			case RoleActive:
				info.Category = CatActiveRef
			case RoleCallback:
				info.Category = CatCallbackRef
			}
			return info, nil
		case elem.Kind == decl.TypeUnknown:
			return TypeInfo{}, mp.unknown(owner, t)
		}
		return TypeInfo{}, mp.unsupported(owner, t, "pointers to %s cannot cross the boundary", elem.Kind)

	case decl.TypeIncompleteArray:
		elem := r.Elem.Resolve()
		if elem.Kind == decl.TypePointer && elem.Elem.Resolve().Kind == decl.TypeChar && pos != PosField {
			return TypeInfo{Category: CatStrings, Const: elem.Elem.Resolve().Const}, nil
		}
		return TypeInfo{}, mp.unsupported(owner, t, "arrays without an extent cannot cross the boundary")

	case decl.TypeConstantArray:
		elemType := r.Elem
		elem, err := mp.classify(owner, elemType, pos)
		if err != nil {
			return TypeInfo{}, err
		}
		elem.Native = elemType
		elem.ABI = mp.abi
		switch {
		case elem.Category == CatScalar, elem.Category == CatEnum:
		case elem.Category == CatDataValue && pos == PosField:
		default:
			return TypeInfo{}, mp.unsupported(owner, t, "arrays of %s are not supported", elem.Category)
		}
		return TypeInfo{Category: CatArray, Elem: &elem, Len: r.Len, Scalar: elem.Scalar}, nil
	}

	return TypeInfo{}, mp.unknown(owner, t)
}

func (mp *mapper) enumInfo(owner *decl.Node, t, r *decl.Type) (TypeInfo, error) {
	en := mp.model.Header.Enum(r.Decl)
	if en == nil {
		return TypeInfo{}, mp.unknown(owner, t)
	}
	info := mp.model.EnumOf(en)
	if info == nil {
		return TypeInfo{}, mp.unknown(owner, t)
	}
	return TypeInfo{Category: CatEnum, Name: info.Name, Scalar: info.Base}, nil
}

// GoType is the Go declared type. With raw set, record pointers stay the
// cgo pointer type used at the trampoline boundary.
func (ti TypeInfo) GoType(raw bool) string {
	switch ti.Category {
	case CatScalar:
		return GoScalar(ti.Scalar, ti.ABI)
	case CatEnum, CatDataValue, CatCallbackRef:
		return ti.Name
	case CatString:
		return "string"
	case CatStrings:
		return "[]string"
	case CatDataRef, CatOpaqueRef, CatActiveRef:
		if raw {
			return "*C." + ti.Name
		}
		return "*" + ti.Name
	case CatArray:
		return fmt.Sprintf("[%d]%s", ti.Len, ti.Elem.GoType(raw))
	}
	return ""
}

// PayloadType is the type stored in an event payload. Data records are
// copied so the payload owns them.
func (ti TypeInfo) PayloadType() string {
	if ti.Category == CatDataRef {
		return ti.Name
	}
	return ti.GoType(false)
}

// CgoType is the parameter type of an exported trampoline.
func (ti TypeInfo) CgoType() string {
	switch ti.Category {
	case CatScalar:
		return CgoScalar(ti.Scalar)
	case CatEnum, CatDataValue:
		return "C." + ti.Name
	case CatString:
		return "*C.char"
	case CatDataRef, CatOpaqueRef, CatActiveRef:
		return "*C." + ti.Name
	case CatArray:
		return "*" + ti.Elem.CgoType()
	}
	return ""
}

// CType is the C spelling, without a declarator name.
func (ti TypeInfo) CType() string {
	constPrefix := func(s string) string {
		if ti.Const {
			return "const " + s
		}
		return s
	}
	switch ti.Category {
	case CatVoid:
		return "void"
	case CatScalar:
		return CScalar(ti.Scalar)
	case CatEnum, CatDataValue:
		return ti.Name
	case CatString:
		return constPrefix("char") + " *"
	case CatStrings:
		return constPrefix("char") + " **"
	case CatDataRef, CatOpaqueRef, CatActiveRef:
		return constPrefix(ti.Name) + " *"
	case CatCallbackRef:
		return ti.Name + "Fat *"
	case CatArray:
		return ti.Elem.CType() + " *"
	}
	return ""
}

// CDecl declares name with this type in C, e.g. "const char *user" or, for
// fields, "char InstrumentID[32]".
func (ti TypeInfo) CDecl(name string, field bool) string {
	if ti.Category == CatArray && field {
		return fmt.Sprintf("%s %s[%d]", ti.Elem.CType(), name, ti.Len)
	}
	t := ti.CType()
	if strings.HasSuffix(t, "*") {
		return t + name
	}
	return t + " " + name
}
