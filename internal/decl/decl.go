// Package decl holds the declaration tree read from a native header. The
// tree is produced by an external front-end and is immutable once loaded.
package decl

import "strings"

// Kind is the closed set of declaration kinds the generator understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindTranslationUnit
	KindNamespace
	KindRecord
	KindBase
	KindField
	KindMethod
	KindDestructor
	KindFunction
	KindParameter
	KindEnum
	KindEnumConstant
	KindTypedef
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindTranslationUnit: "translation_unit",
	KindNamespace:       "namespace",
	KindRecord:          "record",
	KindBase:            "base",
	KindField:           "field",
	KindMethod:          "method",
	KindDestructor:      "destructor",
	KindFunction:        "function",
	KindParameter:       "parameter",
	KindEnum:            "enum",
	KindEnumConstant:    "enum_constant",
	KindTypedef:         "typedef",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps a dump spelling to a Kind. Unrecognized spellings yield
// KindUnknown so that traversal can reject them with the node in hand.
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "class", "struct":
		return KindRecord
	case "constructor":
		// constructors are not part of any dispatch table and carry no ABI slot
		return KindUnknown
	}
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return KindUnknown
}

// Node is one declaration. Children keep their source order, which is the
// order virtual slots are laid out in.
type Node struct {
	Kind     Kind
	Spelling string // kind as written in the dump, kept for diagnostics
	Name     string
	Type     *Type // field/parameter type, method result, typedef or enum underlying type
	Value    int64 // enum constants
	Virtual  bool
	Pure     bool
	Const    bool
	Static   bool
	Packed   bool
	Children []*Node
	Parent   *Node
}

// Path returns the lexical path of the node, outermost first, without the
// translation unit.
func (n *Node) Path() []string {
	var parts []string
	for c := n; c != nil; c = c.Parent {
		if c.Kind == KindTranslationUnit {
			break
		}
		name := c.Name
		if name == "" {
			name = "<" + c.Kind.String() + ">"
		}
		parts = append(parts, name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return parts
}

// QualifiedName joins the lexical path with sep, e.g. "YDApi_OrderFlag" for "_".
func (n *Node) QualifiedName(sep string) string {
	return strings.Join(n.Path(), sep)
}

// ChildrenOf returns the direct children of the given kind, in order.
func (n *Node) ChildrenOf(kind Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// IsDestructor reports whether the node is a destructor, either by kind or by
// the "~" naming convention some front-ends use for plain methods.
func (n *Node) IsDestructor() bool {
	return n.Kind == KindDestructor || strings.HasPrefix(n.Name, "~")
}

// Walk visits n and its descendants depth-first in source order.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
