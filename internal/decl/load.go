package decl

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/WhisperCapital/go-yd/internal/diag"
)

// rawNode mirrors one entry of a declaration dump. JSON dumps decode through
// the same path since YAML is a superset.
type rawNode struct {
	Kind     string    `yaml:"kind"`
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type,omitempty"`
	Result   string    `yaml:"result,omitempty"`
	Value    int64     `yaml:"value,omitempty"`
	Virtual  bool      `yaml:"virtual,omitempty"`
	Pure     bool      `yaml:"pure,omitempty"`
	Const    bool      `yaml:"const,omitempty"`
	Static   bool      `yaml:"static,omitempty"`
	Packed   bool      `yaml:"packed,omitempty"`
	Children []rawNode `yaml:"children,omitempty"`
}

type rawDump struct {
	Header string    `yaml:"header"`
	Decls  []rawNode `yaml:"decls"`
}

// Header is a loaded declaration tree plus name lookup tables.
type Header struct {
	Include string // header name as the shim should include it, e.g. "ydApi.h"
	Root    *Node

	records  map[string]*Node
	enums    map[string]*Node
	typedefs map[string]*Node
}

// Load reads a declaration dump from disk.
func Load(path string) (*Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.New(diag.PhaseLoad, diag.KindInvalidInput).
			Path(path).
			Detail("reading declaration dump").
			Cause(err).
			Build()
	}
	return Parse(data)
}

// Parse decodes a declaration dump and resolves every named type reference.
func Parse(data []byte) (*Header, error) {
	var dump rawDump
	if err := yaml.Unmarshal(data, &dump); err != nil {
		return nil, diag.New(diag.PhaseLoad, diag.KindInvalidInput).
			Detail("decoding declaration dump").
			Cause(err).
			Build()
	}

	root := &Node{Kind: KindTranslationUnit, Spelling: "translation_unit", Name: dump.Header}
	for _, rn := range dump.Decls {
		root.Children = append(root.Children, build(rn, root))
	}

	h := &Header{
		Include:  dump.Header,
		Root:     root,
		records:  map[string]*Node{},
		enums:    map[string]*Node{},
		typedefs: map[string]*Node{},
	}
	h.index(root)

	var resolveErr error
	root.Walk(func(n *Node) bool {
		if resolveErr != nil {
			return false
		}
		if n.Type != nil {
			resolveErr = h.resolve(n.Type, n, map[string]bool{})
		}
		return true
	})
	if resolveErr != nil {
		return nil, resolveErr
	}

	return h, nil
}

func build(rn rawNode, parent *Node) *Node {
	n := &Node{
		Kind:     ParseKind(rn.Kind),
		Spelling: rn.Kind,
		Name:     rn.Name,
		Value:    rn.Value,
		Virtual:  rn.Virtual,
		Pure:     rn.Pure,
		Const:    rn.Const,
		Static:   rn.Static,
		Packed:   rn.Packed,
		Parent:   parent,
	}
	if n.Pure {
		n.Virtual = true
	}

	switch n.Kind {
	case KindMethod, KindFunction:
		result := rn.Result
		if result == "" {
			result = "void"
		}
		n.Type = parseSpelling(result)
	case KindEnum:
		underlying := rn.Type
		if underlying == "" {
			underlying = "int"
		}
		n.Type = parseSpelling(underlying)
	default:
		if rn.Type != "" {
			n.Type = parseSpelling(rn.Type)
		}
	}

	for _, c := range rn.Children {
		n.Children = append(n.Children, build(c, n))
	}
	return n
}

func (h *Header) index(n *Node) {
	for _, c := range n.Children {
		switch c.Kind {
		case KindRecord:
			h.add(h.records, c)
			// nested records and enums are reachable by qualified name
			h.index(c)
		case KindEnum:
			h.add(h.enums, c)
		case KindTypedef:
			h.add(h.typedefs, c)
		case KindNamespace:
			h.index(c)
		}
	}
}

// add registers both the qualified and the bare name. A record definition
// wins over an earlier forward declaration of the same name.
func (h *Header) add(table map[string]*Node, n *Node) {
	for _, key := range []string{n.QualifiedName("::"), n.Name} {
		if prev, ok := table[key]; ok && len(prev.Children) > 0 && len(n.Children) == 0 {
			continue
		}
		table[key] = n
	}
}

func (h *Header) resolve(t *Type, owner *Node, visiting map[string]bool) error {
	if t == nil {
		return nil
	}
	if t.Elem != nil {
		if err := h.resolve(t.Elem, owner, visiting); err != nil {
			return err
		}
	}
	if t.Kind != TypeUnknown || t.Decl == "" {
		return nil
	}

	name := t.Decl
	if rec, ok := h.records[name]; ok {
		t.Kind = TypeRecord
		t.Decl = rec.QualifiedName("::")
		return nil
	}
	if en, ok := h.enums[name]; ok {
		t.Kind = TypeEnum
		t.Decl = en.QualifiedName("::")
		t.Underlying = en.Type
		return nil
	}
	if td, ok := h.typedefs[name]; ok {
		if visiting[name] {
			return diag.New(diag.PhaseLoad, diag.KindInvalidInput).
				Path(owner.Path()...).
				Type(name).
				Detail("typedef cycle").
				Build()
		}
		visiting[name] = true
		if td.Type == nil {
			return diag.New(diag.PhaseLoad, diag.KindMissingChild).
				Path(td.Path()...).
				Detail("typedef without an underlying type").
				Build()
		}
		if err := h.resolve(td.Type, td, visiting); err != nil {
			return err
		}
		t.Kind = TypeTypedef
		t.Decl = td.QualifiedName("::")
		t.Underlying = td.Type
		return nil
	}

	// leave it unknown; the type mapper reports it with the using declaration
	return nil
}

// Record returns the record declaration with the given qualified or bare name.
func (h *Header) Record(name string) *Node {
	return h.records[strings.TrimPrefix(name, "::")]
}

// Enum returns the enum declaration with the given qualified or bare name.
func (h *Header) Enum(name string) *Node {
	return h.enums[strings.TrimPrefix(name, "::")]
}
