package gen

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/WhisperCapital/go-yd/internal/common"
	"github.com/WhisperCapital/go-yd/internal/decl"
	"github.com/WhisperCapital/go-yd/internal/diag"
)

// goLocals are identifiers the emitted Go code declares itself.
var goLocals = map[string]bool{
	"a": true, "ret": true, "self": true, "packet": true, "target": true,
	"fat": true, "s": true, "p": true, "ev": true, "sink": true,
}

// payloadMethods are the methods every payload struct carries.
var payloadMethods = map[string]bool{"Kind": true, "Apply": true}

type analyzer struct {
	cfg    *common.Config
	model  *Model
	mapper *mapper
	skip   []*regexp.Regexp

	// records whose slots are being computed, for inheritance cycles
	visiting map[*Record]bool
	done     map[*Record]bool
}

// Analyze builds the model for a declaration tree in one pass. Every
// decision emission depends on is made here: roles, slot order, unique
// names, type mapping and payload ownership.
func Analyze(h *decl.Header, cfg *common.Config) (*Model, error) {
	m := &Model{
		Config:    cfg,
		Header:    h,
		records:   map[string]*Record{},
		byNode:    map[*decl.Node]*Record{},
		enums:     map[*decl.Node]*Enum{},
		functions: map[*decl.Node]*Function{},
		methods:   map[methodKey]*Method{},
		params:    map[*decl.Node]*Param{},
		fields:    map[fieldKey]*Field{},
	}
	a := &analyzer{
		cfg:      cfg,
		model:    m,
		mapper:   &mapper{model: m, abi: cfg.ABI},
		visiting: map[*Record]bool{},
		done:     map[*Record]bool{},
	}
	for _, expr := range cfg.SkipNameRegex {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, diag.New(diag.PhaseAnalyze, diag.KindInvalidInput).
				Path("config", "skipNameRegex").
				Cause(err).
				Build()
		}
		a.skip = append(a.skip, re)
	}

	if err := a.collect(h.Root); err != nil {
		return nil, err
	}
	for _, r := range m.Records {
		if err := a.layout(r); err != nil {
			return nil, err
		}
	}
	for _, f := range m.Functions {
		if err := a.function(f); err != nil {
			return nil, err
		}
	}
	if err := a.checkTopLevelNames(); err != nil {
		return nil, err
	}

	Logger().Info("analysed declarations",
		zap.Int("records", len(m.Records)),
		zap.Int("callbacks", len(m.RecordsWith(RoleCallback))),
		zap.Int("active", len(m.RecordsWith(RoleActive))),
		zap.Int("enums", len(m.Enums)),
		zap.Int("functions", len(m.Functions)))
	return m, nil
}

func (a *analyzer) skipped(names ...string) bool {
	for _, name := range names {
		if slices.Contains(a.cfg.SkippedMethods, name) {
			return true
		}
		for _, re := range a.skip {
			if re.MatchString(name) {
				return true
			}
		}
	}
	return false
}

// collect registers records, enums and free functions in declaration
// order. Roles are assigned here so that type mapping can consult them.
func (a *analyzer) collect(n *decl.Node) error {
	for _, c := range n.Children {
		switch c.Kind {
		case decl.KindNamespace:
			if err := a.collect(c); err != nil {
				return err
			}
		case decl.KindRecord:
			if err := a.record(c); err != nil {
				return err
			}
			if err := a.collect(c); err != nil {
				return err
			}
		case decl.KindEnum:
			if err := a.enum(c); err != nil {
				return err
			}
		case decl.KindFunction:
			if n.Kind == decl.KindRecord {
				continue
			}
			if a.skipped(c.QualifiedName("::"), c.Name) {
				Logger().Debug("skipping function", zap.String("name", c.Name))
				continue
			}
			f := &Function{Node: c, Native: c.QualifiedName("::")}
			a.model.Functions = append(a.model.Functions, f)
			a.model.functions[c] = f
		case decl.KindTypedef, decl.KindField, decl.KindMethod, decl.KindDestructor,
			decl.KindBase, decl.KindEnumConstant, decl.KindParameter:
			// handled by the owning declaration
		default:
			return diag.New(diag.PhaseAnalyze, diag.KindUnknownKind).
				Path(c.Path()...).
				Detail("unrecognized declaration kind %q", c.Spelling).
				Build()
		}
	}
	return nil
}

func (a *analyzer) record(n *decl.Node) error {
	native := n.QualifiedName("::")
	// forward declarations resolve to the definition
	if def := a.model.Header.Record(native); def != nil && def != n {
		return nil
	}

	r := &Record{Node: n, Name: n.QualifiedName("_"), Native: native, Packed: n.Packed}
	callback := slices.Contains(a.cfg.Callbacks, n.Name) || slices.Contains(a.cfg.Callbacks, native) ||
		(a.cfg.CallbackSuffix != "" && strings.HasSuffix(n.Name, a.cfg.CallbackSuffix))
	active := slices.Contains(a.cfg.Active, n.Name) || slices.Contains(a.cfg.Active, native)

	switch {
	case callback && active:
		return diag.New(diag.PhaseAnalyze, diag.KindInvalidInput).
			Path(n.Path()...).
			Detail("record is configured as both a callback contract and an active API").
			Build()
	case callback:
		r.Role = RoleCallback
	case active:
		r.Role = RoleActive
	case hasVirtual(n):
		r.Role = RoleOpaque
	case len(n.ChildrenOf(decl.KindField)) > 0:
		r.Role = RoleData
	default:
		r.Role = RoleOpaque
	}
	if (r.Role == RoleCallback || r.Role == RoleActive) && len(n.Children) == 0 {
		return diag.New(diag.PhaseAnalyze, diag.KindMissingChild).
			Path(n.Path()...).
			Detail("%s record has no definition", r.Role).
			Build()
	}

	if prev, ok := a.model.records[r.Name]; ok {
		return diag.New(diag.PhaseAnalyze, diag.KindNameCollision).
			Path(n.Path()...).
			Detail("C name %s is already used by %s", r.Name, prev.Native).
			Build()
	}
	a.model.Records = append(a.model.Records, r)
	a.model.records[r.Name] = r
	a.model.records[r.Native] = r
	a.model.byNode[n] = r

	Logger().Debug("classified record", zap.String("record", r.Native), zap.Stringer("role", r.Role))
	return nil
}

func hasVirtual(n *decl.Node) bool {
	for _, c := range n.Children {
		if (c.Kind == decl.KindMethod || c.Kind == decl.KindDestructor) && c.Virtual {
			return true
		}
	}
	return false
}

func (a *analyzer) enum(n *decl.Node) error {
	base := n.Type.Resolve()
	switch base.Kind {
	case decl.TypeChar, decl.TypeSChar, decl.TypeUChar, decl.TypeShort, decl.TypeUShort,
		decl.TypeInt, decl.TypeUInt, decl.TypeLong, decl.TypeULong, decl.TypeLongLong, decl.TypeULongLong:
	default:
		return diag.New(diag.PhaseAnalyze, diag.KindUnsupported).
			Path(n.Path()...).
			Type(n.Type.String()).
			Detail("enum underlying type must be an integer").
			Build()
	}

	e := &Enum{Node: n, Name: n.QualifiedName("_"), Base: base.Kind}
	prefix := ""
	if n.Parent != nil && n.Parent.Kind == decl.KindRecord {
		prefix = n.Parent.QualifiedName("_") + "_"
	}
	for _, c := range n.Children {
		if c.Kind != decl.KindEnumConstant {
			return diag.New(diag.PhaseAnalyze, diag.KindUnknownKind).
				Path(c.Path()...).
				Detail("unexpected %q inside an enum", c.Spelling).
				Build()
		}
		name := prefix + c.Name
		if name != "" && name[0] >= 'a' && name[0] <= 'z' {
			name = strings.ToUpper(name[:1]) + name[1:]
		}
		e.Constants = append(e.Constants, EnumConstant{Name: name, Value: c.Value})
	}

	a.model.Enums = append(a.model.Enums, e)
	a.model.enums[n] = e
	return nil
}

// layout computes fields or dispatch slots of a record.
func (a *analyzer) layout(r *Record) error {
	if a.done[r] {
		return nil
	}
	if a.visiting[r] {
		return diag.New(diag.PhaseAnalyze, diag.KindLayout).
			Path(r.Node.Path()...).
			Detail("record inherits from itself").
			Build()
	}
	if r.Role == RoleOpaque {
		a.done[r] = true
		return nil
	}
	a.visiting[r] = true
	defer func() {
		delete(a.visiting, r)
		a.done[r] = true
	}()

	base, err := a.base(r)
	if err != nil {
		return err
	}
	r.Base = base

	switch r.Role {
	case RoleData:
		return a.dataFields(r)
	case RoleCallback, RoleActive:
		return a.slots(r)
	}
	return nil
}

func (a *analyzer) base(r *Record) (*Record, error) {
	bases := r.Node.ChildrenOf(decl.KindBase)
	if len(bases) == 0 {
		return nil, nil
	}
	if len(bases) > 1 {
		return nil, diag.New(diag.PhaseAnalyze, diag.KindLayout).
			Path(r.Node.Path()...).
			Detail("multiple inheritance has no single dispatch table").
			Build()
	}

	b := a.model.Record(bases[0].Name)
	if b == nil {
		if n := a.model.Header.Record(bases[0].Name); n != nil {
			b = a.model.RecordOf(n)
		}
	}
	if b == nil {
		return nil, diag.New(diag.PhaseAnalyze, diag.KindMissingChild).
			Path(r.Node.Path()...).
			Type(bases[0].Name).
			Detail("base record is not declared").
			Build()
	}
	if b.Role != r.Role {
		return nil, diag.New(diag.PhaseAnalyze, diag.KindLayout).
			Path(r.Node.Path()...).
			Detail("%s record cannot derive from %s record %s", r.Role, b.Role, b.Native).
			Build()
	}
	if err := a.layout(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (a *analyzer) dataFields(r *Record) error {
	seen := map[string]bool{}
	if r.Base != nil {
		for _, f := range r.Base.Fields {
			cp := *f
			r.Fields = append(r.Fields, &cp)
			a.model.fields[fieldKey{owner: r.Name, node: f.Node}] = &cp
			seen[f.Name] = true
		}
	}

	for _, c := range r.Node.Children {
		switch c.Kind {
		case decl.KindField:
			if c.Static {
				continue
			}
			if seen[c.Name] {
				return diag.New(diag.PhaseAnalyze, diag.KindNameCollision).
					Path(c.Path()...).
					Detail("field hides an inherited field of the same name").
					Build()
			}
			seen[c.Name] = true
			info, err := a.mapper.Map(c, c.Type, PosField)
			if err != nil {
				return err
			}
			f := &Field{Node: c, Name: c.Name, Type: info}
			if common.IsCReserved(f.Name) {
				return diag.New(diag.PhaseAnalyze, diag.KindNameCollision).
					Path(c.Path()...).
					Detail("field name is a C keyword").
					Build()
			}
			r.Fields = append(r.Fields, f)
			a.model.fields[fieldKey{owner: r.Name, node: c}] = f
		case decl.KindMethod, decl.KindDestructor, decl.KindBase, decl.KindRecord,
			decl.KindEnum, decl.KindTypedef, decl.KindFunction:
			// non-virtual members do not affect the layout
		default:
			return diag.New(diag.PhaseAnalyze, diag.KindUnknownKind).
				Path(c.Path()...).
				Detail("unrecognized declaration kind %q", c.Spelling).
				Build()
		}
	}
	return nil
}

func (a *analyzer) slots(r *Record) error {
	var methods []*Method
	if r.Base != nil {
		for _, bm := range r.Base.Methods {
			cp := *bm
			cp.Owner = r
			methods = append(methods, &cp)
		}
	}

	for _, c := range r.Node.Children {
		switch {
		case c.IsDestructor() && (c.Kind == decl.KindMethod || c.Kind == decl.KindDestructor):
			if !c.Virtual || hasDestructor(methods) {
				// non-virtual destructors have no slot; an overriding one reuses the inherited slots
				continue
			}
			methods = append(methods, &Method{
				Node:       c,
				Owner:      r,
				Declaring:  r.Native,
				Native:     c.Name,
				Destructor: true,
			})

		case c.Kind == decl.KindMethod:
			if a.skipped(r.Native+"::"+c.Name, c.Name) {
				Logger().Debug("skipping method", zap.String("record", r.Native), zap.String("method", c.Name))
				continue
			}
			if !c.Virtual || c.Static {
				return diag.New(diag.PhaseAnalyze, diag.KindUnsupported).
					Path(c.Path()...).
					Detail("non-virtual member of a %s record has no dispatch slot; list it in skippedMethods", r.Role).
					Build()
			}
			for _, inherited := range methods {
				if inherited.Native == c.Name && inherited.Declaring != r.Native {
					return diag.New(diag.PhaseAnalyze, diag.KindLayout).
						Path(c.Path()...).
						Detail("overrides a virtual inherited from %s; the slot would be reused, not appended", inherited.Declaring).
						Build()
				}
			}
			m := &Method{Node: c, Owner: r, Declaring: r.Native, Native: c.Name}
			if err := a.signature(m); err != nil {
				return err
			}
			methods = append(methods, m)

		case c.Kind == decl.KindField:
			if c.Static {
				continue
			}
			if r.Role == RoleCallback {
				return diag.New(diag.PhaseAnalyze, diag.KindLayout).
					Path(c.Path()...).
					Detail("callback records with data members cannot be implemented behind a fat pointer").
					Build()
			}
			Logger().Debug("ignoring data member of active record", zap.Strings("path", c.Path()))

		case c.Kind == decl.KindBase, c.Kind == decl.KindRecord, c.Kind == decl.KindEnum,
			c.Kind == decl.KindTypedef:

		default:
			return diag.New(diag.PhaseAnalyze, diag.KindUnknownKind).
				Path(c.Path()...).
				Detail("unrecognized declaration kind %q", c.Spelling).
				Build()
		}
	}

	if err := a.name(r, methods); err != nil {
		return err
	}
	r.Methods = methods
	for _, m := range methods {
		a.model.methods[methodKey{owner: r.Name, node: m.Node}] = m
	}
	return a.sessionStart(r)
}

func hasDestructor(methods []*Method) bool {
	for _, m := range methods {
		if m.Destructor {
			return true
		}
	}
	return false
}

// name assigns overload suffixes, slot positions and slot names. The first
// declaration of a name is unsuffixed, later ones carry the number of
// earlier same-name siblings: insertOrder, insertOrder1, insertOrder2.
func (a *analyzer) name(r *Record, methods []*Method) error {
	counts := map[string]int{}
	snakes := map[string]*Method{}
	gonames := map[string]*Method{}
	slot := 0

	for _, m := range methods {
		m.Slot = slot
		if m.Destructor {
			if a.cfg.ABI == common.ABIMSVC {
				m.SlotNames = []string{"deleting_destructor"}
			} else {
				m.SlotNames = []string{"destructor", "deleting_destructor"}
			}
			for _, s := range m.SlotNames {
				snakes[s] = m
			}
			slot += len(m.SlotNames)
			continue
		}

		m.Overload = counts[m.Native]
		counts[m.Native]++
		if m.Overload > 0 && a.cfg.ABI == common.ABIMSVC {
			return diag.New(diag.PhaseAnalyze, diag.KindLayout).
				Path(m.Node.Path()...).
				Detail("MSVC groups overloaded virtuals, so their slot order does not follow declaration order").
				Build()
		}

		suffix := ""
		if m.Overload > 0 {
			suffix = strconv.Itoa(m.Overload)
		}
		m.Snake = common.SnakeName(m.Native) + suffix
		m.GoName = common.GoName(m.Native) + suffix
		m.SlotNames = []string{m.Snake}

		if prev, ok := snakes[m.Snake]; ok {
			return collision(m.Node, m.Snake, prev.Node)
		}
		if prev, ok := gonames[m.GoName]; ok {
			return collision(m.Node, m.GoName, prev.Node)
		}
		snakes[m.Snake] = m
		gonames[m.GoName] = m
		slot++
	}
	return nil
}

func collision(n *decl.Node, name string, prev *decl.Node) error {
	return diag.New(diag.PhaseAnalyze, diag.KindNameCollision).
		Path(n.Path()...).
		Detail("generated name %s is also produced by %s", name, strings.Join(prev.Path(), "::")).
		Build()
}

// sessionStart marks the method that hands a callback record to the
// library. It is the only method allowed to take a callback pointer.
func (a *analyzer) sessionStart(r *Record) error {
	for _, m := range r.Methods {
		takesListener := false
		for _, p := range m.Params {
			if p.Type.Category == CatCallbackRef {
				takesListener = true
			}
		}
		isStart := r.Role == RoleActive && m.Native == a.cfg.SessionStart && m.Overload == 0
		switch {
		case isStart && takesListener && len(m.Params) == 1:
			m.Listener = a.model.Record(m.Params[0].Type.Name)
			r.Start = m
		case takesListener:
			return diag.New(diag.PhaseAnalyze, diag.KindUnsupported).
				Path(m.Node.Path()...).
				Detail("only the session-start method %q may take a callback record", a.cfg.SessionStart).
				Build()
		}
	}
	return nil
}

// signature maps the parameters and result of a method.
func (a *analyzer) signature(m *Method) error {
	paramPos, resultPos := PosOutboundParam, PosResult
	if m.Owner.Role == RoleCallback {
		paramPos, resultPos = PosInboundParam, PosCallbackResult
	}

	params, err := a.params(m.Node, paramPos)
	if err != nil {
		return err
	}
	m.Params = params

	m.Result, err = a.mapper.Map(m.Node, m.Node.Type, resultPos)
	return err
}

func (a *analyzer) params(n *decl.Node, pos Position) ([]*Param, error) {
	var params []*Param
	goNames := map[string]bool{}
	fields := map[string]bool{}
	cNames := map[string]bool{}

	for i, c := range n.Children {
		if c.Kind != decl.KindParameter {
			return nil, diag.New(diag.PhaseAnalyze, diag.KindUnknownKind).
				Path(c.Path()...).
				Detail("unexpected %q among parameters", c.Spelling).
				Build()
		}
		info, err := a.mapper.Map(c, c.Type, pos)
		if err != nil {
			return nil, err
		}

		p := &Param{Node: c, Native: c.Name, Type: info}
		if info.Category == CatOpaqueRef || info.Category == CatActiveRef {
			p.Ownership = Borrowed
		}

		if c.Name == "" {
			p.GoName = "arg" + strconv.Itoa(i)
			p.CName = p.GoName
			p.Field = "Arg" + strconv.Itoa(i)
			p.JSON = p.GoName
		} else {
			p.GoName = common.SanitizeFieldName(common.Field{Name: common.GoParamName(c.Name)}, i, func(s string) bool {
				return common.IsGoReserved(s) || goLocals[s]
			}).Name
			p.CName = common.SanitizeFieldName(common.Field{Name: common.SnakeName(c.Name)}, i, func(s string) bool {
				return common.IsCReserved(s) || s == "self"
			}).Name
			p.Field = common.SanitizeFieldName(common.Field{Name: common.GoName(c.Name)}, i, func(s string) bool {
				return payloadMethods[s]
			}).Name
			p.JSON = common.SnakeName(c.Name)
		}
		p.Local = "c" + p.Field

		for _, name := range []string{p.GoName, p.Local} {
			if goNames[name] {
				return nil, diag.New(diag.PhaseAnalyze, diag.KindNameCollision).
					Path(c.Path()...).
					Detail("Go identifier %s is already used by another parameter", name).
					Build()
			}
			goNames[name] = true
		}
		if fields[p.Field] || cNames[p.CName] {
			return nil, diag.New(diag.PhaseAnalyze, diag.KindNameCollision).
				Path(c.Path()...).
				Detail("parameter names %s/%s collide after case conversion", p.Field, p.CName).
				Build()
		}
		fields[p.Field] = true
		cNames[p.CName] = true

		params = append(params, p)
		a.model.params[c] = p
	}
	return params, nil
}

func (a *analyzer) function(f *Function) error {
	params, err := a.params(f.Node, PosFunctionParam)
	if err != nil {
		return err
	}
	f.Params = params
	f.Result, err = a.mapper.Map(f.Node, f.Node.Type, PosResult)
	if err != nil {
		return err
	}

	// extern "C" names cannot be overloaded, so overloads get the same
	// suffix rule as methods
	overload := 0
	for _, other := range a.model.Functions {
		if other == f {
			break
		}
		if other.Native == f.Native {
			overload++
		}
	}
	suffix := ""
	if overload > 0 {
		suffix = strconv.Itoa(overload)
	}
	f.GoName = common.GoName(f.Node.Name) + suffix
	f.Shim = "ydgen_" + f.Node.QualifiedName("_") + suffix
	return nil
}

// checkTopLevelNames rejects Go package-level identifiers produced twice.
func (a *analyzer) checkTopLevelNames() error {
	seen := map[string]*decl.Node{}
	claim := func(name string, n *decl.Node) error {
		if prev, ok := seen[name]; ok {
			return collision(n, name, prev)
		}
		seen[name] = n
		return nil
	}

	for _, r := range a.model.Records {
		if err := claim(r.Name, r.Node); err != nil {
			return err
		}
	}
	for _, e := range a.model.Enums {
		if err := claim(e.Name, e.Node); err != nil {
			return err
		}
		for _, c := range e.Constants {
			if err := claim(c.Name, e.Node); err != nil {
				return err
			}
		}
	}
	for _, f := range a.model.Functions {
		if err := claim(f.GoName, f.Node); err != nil {
			return err
		}
	}
	return nil
}
