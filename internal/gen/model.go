package gen

import (
	"github.com/WhisperCapital/go-yd/internal/common"
	"github.com/WhisperCapital/go-yd/internal/decl"
)

// Role is how a record crosses the boundary.
type Role int

const (
	RoleOpaque   Role = iota // only ever handled through pointers
	RoleData                 // plain fields, laid out identically in C
	RoleCallback             // implemented in Go, called by the library
	RoleActive               // implemented by the library, called from Go
)

func (r Role) String() string {
	switch r {
	case RoleData:
		return "data"
	case RoleCallback:
		return "callback"
	case RoleActive:
		return "active"
	default:
		return "opaque"
	}
}

// Ownership says whether a payload field owns its value or points into
// memory the library may reuse once the callback returns.
type Ownership int

const (
	Owned Ownership = iota
	Borrowed
)

func (o Ownership) String() string {
	if o == Borrowed {
		return "borrowed"
	}
	return "owned"
}

// Model is the analysed, immutable view of a declaration tree. Emission
// only reads it.
type Model struct {
	Config    *common.Config
	Header    *decl.Header
	Records   []*Record // declaration order
	Enums     []*Enum
	Functions []*Function

	records   map[string]*Record // by "::" path and by C name
	byNode    map[*decl.Node]*Record
	enums     map[*decl.Node]*Enum
	functions map[*decl.Node]*Function
	methods   map[methodKey]*Method
	params    map[*decl.Node]*Param
	fields    map[fieldKey]*Field
}

type methodKey struct {
	owner string
	node  *decl.Node
}

type fieldKey struct {
	owner string
	node  *decl.Node
}

// Record is one analysed record.
type Record struct {
	Node    *decl.Node
	Name    string // C and Go name, nested records joined with "_"
	Native  string // "::" qualified native name
	Role    Role
	Base    *Record
	Packed  bool
	Methods []*Method // dispatch slots in table order, inherited first
	Fields  []*Field  // data records only, base fields first
	Start   *Method   // session-start method of an active record
}

// FatName is the C aggregate handed to the library for a callback record.
func (r *Record) FatName() string {
	return r.Name + "Fat"
}

// SlotNodes returns the declarations behind the dispatch slots, in order.
func (r *Record) SlotNodes() []*decl.Node {
	nodes := make([]*decl.Node, len(r.Methods))
	for i, m := range r.Methods {
		nodes[i] = m.Node
	}
	return nodes
}

// Callbacks returns the non-destructor methods.
func (r *Record) Callbacks() []*Method {
	var out []*Method
	for _, m := range r.Methods {
		if !m.Destructor {
			out = append(out, m)
		}
	}
	return out
}

// Method is one virtual method in the table of Owner.
type Method struct {
	Node       *decl.Node
	Owner      *Record
	Declaring  string // record that declares it, differs from Owner when inherited
	Native     string // e.g. "insertOrder"
	Overload   int    // earlier same-name siblings
	Snake      string // e.g. "insert_order1"
	GoName     string // e.g. "InsertOrder1"
	Params     []*Param
	Result     TypeInfo
	Destructor bool
	Slot       int      // index of the first table slot
	SlotNames  []string // C field names, one per slot
	Listener   *Record  // callback record wired in by a session-start method
}

// Event is the variant name of a callback method, e.g. "NotifyLogin".
func (m *Method) Event() string {
	return m.GoName
}

// Label identifies the method in runtime assertions, e.g. "YDListener::notifyLogin".
func (m *Method) Label() string {
	return m.Owner.Native + "::" + m.Native
}

// Param is one analysed parameter.
type Param struct {
	Node      *decl.Node
	Native    string // as declared, e.g. "errorNo"
	GoName    string // e.g. "errorNo"
	CName     string // e.g. "error_no"
	Field     string // payload field, e.g. "ErrorNo"
	JSON      string // e.g. "error_no"
	Local     string // temporary at outbound call sites, e.g. "cUser"
	Type      TypeInfo
	Ownership Ownership
}

// Field is one C field of a data record.
type Field struct {
	Node *decl.Node
	Name string
	Type TypeInfo
}

// Enum is one analysed enumeration.
type Enum struct {
	Node      *decl.Node
	Name      string // e.g. "YDApi_ConnectionState"
	Base      decl.TypeKind
	Constants []EnumConstant
}

type EnumConstant struct {
	Name  string
	Value int64
}

// Function is a free function reached through the C++ shim.
type Function struct {
	Node   *decl.Node
	Native string // "::" qualified, e.g. "makeYDApi"
	GoName string // e.g. "MakeYDApi"
	Shim   string // e.g. "ydgen_makeYDApi"
	Params []*Param
	Result TypeInfo
}

// Record looks a record up by "::" path or C name.
func (m *Model) Record(name string) *Record {
	return m.records[name]
}

// RecordOf returns the record analysed from n.
func (m *Model) RecordOf(n *decl.Node) *Record {
	return m.byNode[n]
}

func (m *Model) Method(owner string, n *decl.Node) *Method {
	return m.methods[methodKey{owner: owner, node: n}]
}

func (m *Model) Param(n *decl.Node) *Param {
	return m.params[n]
}

func (m *Model) Field(owner string, n *decl.Node) *Field {
	return m.fields[fieldKey{owner: owner, node: n}]
}

func (m *Model) EnumOf(n *decl.Node) *Enum {
	return m.enums[n]
}

func (m *Model) FunctionOf(n *decl.Node) *Function {
	return m.functions[n]
}

// RecordsWith returns the records of the given role in declaration order.
func (m *Model) RecordsWith(role Role) []*Record {
	var out []*Record
	for _, r := range m.Records {
		if r.Role == role {
			out = append(out, r)
		}
	}
	return out
}
