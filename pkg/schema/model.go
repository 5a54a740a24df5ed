// Package schema holds the in-memory model: class definitions, attribute
// definitions and the closed set of attribute kinds with their validation
// rules. A Model is read-only after it is built and safe for concurrent use.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Default setting values.
const (
	DefaultSerialColumnName = "serialNum"
	DefaultClassIDSuffix    = "ClassId"
	DefaultObjIDSuffix      = "ObjId"

	DeleteBehaviorDelete = "delete"
	DeleteBehaviorMark   = "mark"
)

// Settings are model-wide options, read from Settings.yaml.
type Settings struct {
	Database               string   `koanf:"database"`
	SQLSerialColumnName    string   `koanf:"sql_serial_column_name"`
	ObjRefSuffixes         []string `koanf:"obj_ref_suffixes"`
	UseBigIntObjRefColumns bool     `koanf:"use_big_int_obj_ref_columns"`
	StartingSerialNum      int64    `koanf:"starting_serial_num"`
	UseHashForClassIDs     bool     `koanf:"use_hash_for_class_ids"`
	ExternalEnums          bool     `koanf:"external_enums"`
	DeleteBehavior         string   `koanf:"delete_behavior"`
	MaxNameWidth           int      `koanf:"max_name_width"`
}

// ApplyDefaults fills unset settings.
func (s *Settings) ApplyDefaults(modelName string) {
	if s.Database == "" {
		s.Database = modelName
	}
	if s.SQLSerialColumnName == "" {
		s.SQLSerialColumnName = DefaultSerialColumnName
	}
	if len(s.ObjRefSuffixes) != 2 {
		s.ObjRefSuffixes = []string{DefaultClassIDSuffix, DefaultObjIDSuffix}
	}
	if s.DeleteBehavior == "" {
		s.DeleteBehavior = DeleteBehaviorDelete
	}
}

// ClassIDSuffix returns the suffix of the class id column of a two-column reference.
func (s Settings) ClassIDSuffix() string {
	if len(s.ObjRefSuffixes) == 2 {
		return s.ObjRefSuffixes[0]
	}
	return DefaultClassIDSuffix
}

// ObjIDSuffix returns the suffix of the object id column of a two-column reference.
func (s Settings) ObjIDSuffix() string {
	if len(s.ObjRefSuffixes) == 2 {
		return s.ObjRefSuffixes[1]
	}
	return DefaultObjIDSuffix
}

// MarksDeletes reports whether deletes set a deleted timestamp instead of removing rows.
func (s Settings) MarksDeletes() bool {
	return s.DeleteBehavior == DeleteBehaviorMark
}

// Properties is a key/value property set describing one attribute.
type Properties map[string]string

// ClassSpec describes one class before it is resolved into a Model.
type ClassSpec struct {
	Name     string
	Super    string
	Abstract bool
	Attrs    []Properties
}

// Model is the whole mapping definition.
type Model struct {
	Name        string
	Dir         string
	SamplesPath string
	Settings    Settings

	classes []*Class
	byName  map[string]*Class
	byID    map[int]*Class
	ordered []*Class
}

// Classes returns every class in declaration order.
func (m *Model) Classes() []*Class { return m.classes }

// OrderedClasses returns every class in dependency order: superclasses and
// reference targets come before the classes that depend on them.
func (m *Model) OrderedClasses() []*Class { return m.ordered }

// ConcreteClasses returns the non-abstract classes in dependency order.
func (m *Model) ConcreteClasses() []*Class {
	var out []*Class
	for _, c := range m.ordered {
		if !c.Abstract {
			out = append(out, c)
		}
	}
	return out
}

// Class looks up a class by name.
func (m *Model) Class(name string) (*Class, bool) {
	c, ok := m.byName[name]
	return c, ok
}

// ClassByID looks up a class by class id.
func (m *Model) ClassByID(id int) (*Class, bool) {
	c, ok := m.byID[id]
	return c, ok
}

// NameWidth returns the padding width used when aligning names in generated SQL.
func (m *Model) NameWidth() int {
	if m.Settings.MaxNameWidth > 0 {
		return m.Settings.MaxNameWidth
	}
	w := 0
	for _, c := range m.classes {
		for _, a := range c.allAttrs {
			for _, col := range a.ColumnNames(m.Settings) {
				if len(col) > w {
					w = len(col)
				}
			}
		}
		if n := len(c.SerialColumn()); n > w {
			w = n
		}
	}
	return w
}

var (
	attrNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z_0-9]*$`)
	reservedNames   = map[string]bool{
		"allattrs": true, "changed": true, "clone": true, "debugstr": true,
		"dumpattrs": true, "key": true, "klass": true, "serialnum": true,
		"store": true, "valueforattr": true, "valueforkey": true,
	}
)

// BuildModel resolves class specs into a Model. It is a pure function of its
// inputs.
func BuildModel(name string, specs []ClassSpec, settings Settings) (*Model, error) {
	m := &Model{
		Name:     name,
		Settings: settings,
		byName:   make(map[string]*Class, len(specs)),
		byID:     make(map[int]*Class, len(specs)),
	}
	m.Settings.ApplyDefaults(name)
	if err := m.build(specs); err != nil {
		if me, ok := err.(*ModelError); ok && me.Model == "" {
			me.Model = name
		}
		return nil, err
	}
	return m, nil
}

func (m *Model) build(specs []ClassSpec) error {
	if b := m.Settings.DeleteBehavior; b != DeleteBehaviorDelete && b != DeleteBehaviorMark {
		return modelErrorf("", "", "unknown delete behavior %q", b)
	}
	for i, spec := range specs {
		cname := strings.TrimSpace(spec.Name)
		if !attrNamePattern.MatchString(cname) {
			return modelErrorf(cname, "", "invalid class name")
		}
		if _, dup := m.byName[cname]; dup {
			return modelErrorf(cname, "", "duplicate class name")
		}
		c := &Class{
			Name:      cname,
			SuperName: strings.TrimSpace(spec.Super),
			Abstract:  spec.Abstract,
			model:     m,
			index:     i,
		}
		for _, props := range spec.Attrs {
			a, err := newAttr(c, props)
			if err != nil {
				return err
			}
			c.attrs = append(c.attrs, a)
		}
		m.classes = append(m.classes, c)
		m.byName[cname] = c
	}

	for _, c := range m.classes {
		if c.SuperName == "" {
			continue
		}
		sup, ok := m.byName[c.SuperName]
		if !ok {
			return modelErrorf(c.Name, "", "unknown superclass %q", c.SuperName)
		}
		c.super = sup
		sup.subs = append(sup.subs, c)
	}
	for _, c := range m.classes {
		seen := map[*Class]bool{}
		for k := c; k != nil; k = k.super {
			if seen[k] {
				return modelErrorf(c.Name, "", "inheritance cycle")
			}
			seen[k] = true
		}
	}

	for _, c := range m.classes {
		if err := m.collectAttrs(c); err != nil {
			return err
		}
	}
	for _, c := range m.classes {
		for _, a := range c.attrs {
			if err := m.resolveTarget(a); err != nil {
				return err
			}
		}
	}
	for _, c := range m.classes {
		for _, a := range c.attrs {
			if a.Kind == KindList {
				if err := m.resolveBackRef(a); err != nil {
					return err
				}
			}
			if !a.hasDefault {
				continue
			}
			v, err := a.parseDefault(a.rawDefault)
			if err != nil {
				return modelErrorf(c.Name, a.Name, "invalid default: %v", err)
			}
			a.def = v
		}
	}

	m.assignClassIDs()
	m.ordered = dependencyOrder(m.classes)
	return nil
}

func newAttr(c *Class, props Properties) (*Attr, error) {
	p := make(map[string]string, len(props))
	for k, v := range props {
		p[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	name := p["name"]
	if name == "" {
		name = p["attribute"]
	}
	if !attrNamePattern.MatchString(name) {
		return nil, modelErrorf(c.Name, name, "invalid attribute name")
	}
	if reservedNames[strings.ToLower(name)] {
		return nil, modelErrorf(c.Name, name, "attribute name is reserved")
	}
	typeName := p["type"]
	if typeName == "" {
		return nil, modelErrorf(c.Name, name, "missing type")
	}
	kind, target := ParseType(typeName)
	a := &Attr{
		Name:          name,
		Kind:          kind,
		Target:        target,
		BackRef:       p["backref"],
		OnDeleteOther: DeletePolicy(strings.ToLower(p["ondeleteother"])),
		OnDeleteSelf:  DeletePolicy(strings.ToLower(p["ondeleteself"])),
		class:         c,
	}
	if a.Target == "" {
		a.Target = p["target"]
	}

	var err error
	if a.Min, err = parseBound(p["min"]); err != nil {
		return nil, modelErrorf(c.Name, name, "Min: %v", err)
	}
	if a.Max, err = parseBound(p["max"]); err != nil {
		return nil, modelErrorf(c.Name, name, "Max: %v", err)
	}
	if a.Min != nil && a.Max != nil && *a.Min > *a.Max {
		return nil, modelErrorf(c.Name, name, "Min %v is greater than Max %v", *a.Min, *a.Max)
	}

	for key, dst := range map[string]*bool{
		"isrequired": &a.Required, "required": &a.Required,
		"isindexed": &a.Indexed, "indexed": &a.Indexed,
		"isunique": &a.Unique, "unique": &a.Unique,
	} {
		raw, ok := p[key]
		if !ok || raw == "" {
			continue
		}
		b, valid := parseBool(raw)
		if !valid {
			return nil, modelErrorf(c.Name, name, "invalid %s value %q", key, raw)
		}
		*dst = *dst || b
	}

	for _, pol := range []DeletePolicy{a.OnDeleteOther, a.OnDeleteSelf} {
		switch pol {
		case "", DeleteDeny, DeleteDetach, DeleteCascade:
		default:
			return nil, modelErrorf(c.Name, name, "unknown delete policy %q", pol)
		}
	}
	if a.OnDeleteOther == "" {
		a.OnDeleteOther = DeleteDeny
	}
	if a.OnDeleteSelf == "" {
		a.OnDeleteSelf = DeleteDetach
	}

	if kind == KindEnum {
		if err := a.setEnums(p["enums"]); err != nil {
			return nil, err
		}
	}

	if raw, ok := p["default"]; ok && raw != "" {
		a.rawDefault = props[defaultKey(props)]
		a.hasDefault = true
	}

	for k, v := range props {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "name", "attribute", "type", "min", "max", "default", "enums",
			"isrequired", "required", "isindexed", "indexed", "isunique", "unique",
			"target", "backref", "ondeleteother", "ondeleteself":
			continue
		}
		if a.Extras == nil {
			a.Extras = map[string]string{}
		}
		a.Extras[k] = v
	}
	return a, nil
}

// defaultKey finds the original spelling of the default key so that string
// defaults keep their surrounding whitespace.
func defaultKey(props Properties) string {
	for k := range props {
		if strings.EqualFold(strings.TrimSpace(k), "default") {
			return k
		}
	}
	return "default"
}

func (a *Attr) setEnums(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return modelErrorf(a.class.Name, a.Name, "enum attribute has no Enums")
	}
	a.enumIndex = map[string]int{}
	for _, part := range strings.Split(raw, ",") {
		label := unquote(strings.TrimSpace(part))
		if label == "" {
			return modelErrorf(a.class.Name, a.Name, "empty enum label in %q", raw)
		}
		if _, dup := a.enumIndex[label]; dup {
			continue
		}
		a.enumIndex[label] = len(a.Enums)
		a.Enums = append(a.Enums, label)
	}
	return nil
}

func (m *Model) collectAttrs(c *Class) error {
	if c.byName != nil {
		return nil
	}
	var inherited []*Attr
	if c.super != nil {
		if err := m.collectAttrs(c.super); err != nil {
			return err
		}
		inherited = c.super.allAttrs
	}
	c.byName = make(map[string]*Attr, len(inherited)+len(c.attrs))
	c.allAttrs = make([]*Attr, 0, len(inherited)+len(c.attrs))
	for _, a := range append(append([]*Attr{}, inherited...), c.attrs...) {
		if _, dup := c.byName[a.Name]; dup {
			return modelErrorf(c.Name, a.Name, "duplicate attribute name")
		}
		c.byName[a.Name] = a
		c.allAttrs = append(c.allAttrs, a)
	}
	return nil
}

func (m *Model) resolveTarget(a *Attr) error {
	switch a.Kind {
	case KindObjRef, KindList:
		if a.Target == "" {
			return modelErrorf(a.class.Name, a.Name, "%s attribute has no target class", a.Kind)
		}
		t, ok := m.byName[a.Target]
		if !ok {
			return modelErrorf(a.class.Name, a.Name, "unknown target class %q", a.Target)
		}
		a.target = t
	case KindBool, KindInt, KindLong, KindFloat, KindString, KindEnum,
		KindDate, KindTime, KindDateTime:
	default:
		panic(unhandledKind(a.Kind))
	}
	return nil
}

// resolveBackRef finds the object reference on the list target that points
// back at the list owner: the declared BackRef, an attribute named after the
// owner class, or the first reference to the owner or one of its superclasses.
func (m *Model) resolveBackRef(a *Attr) error {
	owner, target := a.class, a.target
	fits := func(b *Attr) bool {
		return b.Kind == KindObjRef && b.target != nil && owner.IsA(b.target)
	}
	if a.BackRef != "" {
		b, ok := target.Attr(a.BackRef)
		if !ok || !fits(b) {
			return modelErrorf(owner.Name, a.Name, "back reference %s.%s does not refer to %s", target.Name, a.BackRef, owner.Name)
		}
		return nil
	}
	if b, ok := target.Attr(lowerFirst(owner.Name)); ok && fits(b) {
		a.BackRef = b.Name
		return nil
	}
	for _, b := range target.allAttrs {
		if fits(b) {
			a.BackRef = b.Name
			return nil
		}
	}
	return modelErrorf(owner.Name, a.Name, "list target %s has no reference back to %s", target.Name, owner.Name)
}

func (m *Model) assignClassIDs() {
	used := map[int]bool{}
	for i, c := range m.classes {
		id := i + 1
		if m.Settings.UseHashForClassIDs {
			id = int(xxhash.Sum64String(c.Name) & 0x7fffffff)
			for id == 0 || used[id] {
				id = (id + 1) & 0x7fffffff
			}
		}
		used[id] = true
		c.ID = id
		m.byID[id] = c
	}
}

// dependencyOrder sorts classes so that every class follows its superclass and
// the targets of its references. Ties, and classes caught in reference cycles,
// keep declaration order.
func dependencyOrder(classes []*Class) []*Class {
	deps := make(map[*Class]map[*Class]bool, len(classes))
	for _, c := range classes {
		d := map[*Class]bool{}
		if c.super != nil {
			d[c.super] = true
		}
		for _, a := range c.allAttrs {
			if a.Kind == KindObjRef && a.target != nil && a.target != c && !a.target.IsA(c) {
				d[a.target] = true
			}
		}
		deps[c] = d
	}

	placed := make(map[*Class]bool, len(classes))
	out := make([]*Class, 0, len(classes))
	for len(out) < len(classes) {
		var next *Class
		for _, c := range classes {
			if placed[c] {
				continue
			}
			ready := true
			for d := range deps[c] {
				if !placed[d] {
					ready = false
					break
				}
			}
			if ready {
				next = c
				break
			}
		}
		if next == nil {
			for _, c := range classes {
				if !placed[c] {
					next = c
					break
				}
			}
		}
		placed[next] = true
		out = append(out, next)
	}
	return out
}

// MustClass returns the named class or panics. Intended for tests and
// generated code.
func (m *Model) MustClass(name string) *Class {
	c, ok := m.byName[name]
	if !ok {
		panic(fmt.Sprintf("schema: no class %q in model %s", name, m.Name))
	}
	return c
}
