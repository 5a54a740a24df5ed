package store

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/leapstack-labs/leapstore/pkg/workctx"
)

// State is the lifecycle state of an object.
type State int

// Object states.
const (
	// Transient objects are not in a store.
	Transient State = iota
	// Pending objects were added to a store and wait for their insert.
	Pending
	// Persistent objects have a row and no unsaved changes.
	Persistent
	// Modified objects have a row and unsaved changes.
	Modified
	// Deleted objects had their row removed (or marked) by a save.
	Deleted
	// Detached objects were dropped from the store by Clear.
	Detached
)

func (s State) String() string {
	switch s {
	case Transient:
		return "transient"
	case Pending:
		return "pending"
	case Persistent:
		return "persistent"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Detached:
		return "detached"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Key is the identity of a persisted object, unique within a store.
type Key struct {
	ClassID int
	Serial  int64
}

// IsZero reports whether the key names no object.
func (k Key) IsZero() bool { return k.ClassID == 0 || k.Serial == 0 }

func (k Key) String() string { return fmt.Sprintf("%d.%d", k.ClassID, k.Serial) }

// Ref is a to-one reference held as an identity pair. A reference to an
// object that has not been saved yet holds that object until the save
// assigns its serial number.
type Ref struct {
	Class  *schema.Class
	Serial int64

	pending *Object
}

// SchemaClass returns the class of the referenced object.
func (r *Ref) SchemaClass() *schema.Class { return r.Class }

// SerialNum returns the serial number of the referenced object, 0 while it
// is unsaved.
func (r *Ref) SerialNum() int64 {
	if r.pending != nil {
		return r.pending.Serial()
	}
	return r.Serial
}

// Pending returns the unsaved object the reference holds, or nil.
func (r *Ref) Pending() *Object { return r.pending }

// refersTo reports whether r points at o.
func (r *Ref) refersTo(o *Object) bool {
	if r == nil || o == nil {
		return false
	}
	if r.pending != nil {
		return r.pending == o
	}
	return r.Class == o.class && r.Serial != 0 && r.Serial == o.Serial()
}

func (r *Ref) String() string {
	if r.pending != nil && r.pending.Serial() == 0 {
		return r.Class.Name + ".new"
	}
	return r.Class.Name + "." + strconv.FormatInt(r.SerialNum(), 10)
}

// refTo builds the reference stored for inst.
func refTo(inst schema.Instance) (*Ref, bool) {
	switch x := inst.(type) {
	case *Object:
		if serial := x.Serial(); serial > 0 {
			return &Ref{Class: x.class, Serial: serial}, true
		}
		return &Ref{Class: x.class, pending: x}, true
	case *Ref:
		cp := *x
		return &cp, true
	}
	return nil, false
}

// Object is an instance of a model class. Attribute values are read with Get
// and written with Set; to-many lists change through AddTo and RemoveFrom.
// Objects are safe for concurrent use.
type Object struct {
	mu sync.RWMutex

	class  *schema.Class
	store  *Store
	unit   workctx.ID
	serial int64
	state  State

	values  map[string]any
	changed map[string]bool
	lists   map[string][]*Object
	tracked bool
}

// NewObject returns a transient object of class c holding the declared
// defaults.
func NewObject(c *schema.Class) *Object {
	o := &Object{
		class:   c,
		values:  make(map[string]any),
		changed: make(map[string]bool),
		lists:   make(map[string][]*Object),
	}
	for _, a := range c.AllAttrs() {
		switch {
		case a.Kind == schema.KindList:
			o.lists[a.Name] = nil
		case a.HasDefault():
			o.values[a.Name] = a.DefaultValue()
		}
	}
	return o
}

// Class returns the object's class.
func (o *Object) Class() *schema.Class { return o.class }

// SchemaClass implements schema.Instance.
func (o *Object) SchemaClass() *schema.Class { return o.class }

// Serial returns the serial number, 0 until the object is saved.
func (o *Object) Serial() int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.serial
}

// Key returns the identity of the object. It is zero until the object is saved.
func (o *Object) Key() Key {
	o.mu.RLock()
	st, serial := o.store, o.serial
	o.mu.RUnlock()
	if serial == 0 {
		return Key{}
	}
	if st != nil {
		return Key{ClassID: st.classID(o.class), Serial: serial}
	}
	return Key{ClassID: o.class.ID, Serial: serial}
}

// State returns the lifecycle state.
func (o *Object) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Store returns the owning store, or nil for transient objects.
func (o *Object) Store() *Store {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.store
}

// Get returns the value of the named attribute: the normalized scalar, a
// *Ref for object references, the loaded members for lists. Unknown
// attributes and unset values are nil.
func (o *Object) Get(name string) any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if lst, ok := o.lists[name]; ok {
		return append([]*Object(nil), lst...)
	}
	v := o.values[name]
	if r, ok := v.(*Ref); ok {
		cp := *r
		return &cp
	}
	return v
}

// Set validates v and stores it. Object references accept an *Object, a
// *Ref or nil. Setting a reference keeps the loaded lists of the old and new
// owners in step.
func (o *Object) Set(name string, v any) error {
	a, ok := o.class.Attr(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownAttr, o.class.Name, name)
	}
	if a.Kind == schema.KindList {
		return &RelationError{Op: "Set", Attr: a.QualifiedName(), Err: errListAssign}
	}
	nv, err := a.Validate(v)
	if err != nil {
		return err
	}
	if a.Kind == schema.KindObjRef && nv != nil {
		ref, ok := refTo(nv.(schema.Instance))
		if !ok {
			return &schema.ValidationError{Class: o.class.Name, Attr: a.Name, Value: v,
				Err: schema.ErrWrongType, Reason: "expected a store object"}
		}
		nv = ref
	}
	o.setValue(a, nv)
	return nil
}

// setValue stores an already validated value and records the change.
func (o *Object) setValue(a *schema.Attr, nv any) {
	o.mu.Lock()
	old := o.values[a.Name]
	if sameValue(old, nv) {
		o.mu.Unlock()
		return
	}
	if nv == nil {
		delete(o.values, a.Name)
	} else {
		o.values[a.Name] = nv
	}
	o.changed[a.Name] = true
	if o.state == Persistent {
		o.state = Modified
	}
	track := o.state == Modified && !o.tracked
	if track {
		o.tracked = true
	}
	st, unit := o.store, o.unit
	o.mu.Unlock()

	if track && st != nil {
		st.modified.Append(unit, o)
	}
	if a.Kind == schema.KindObjRef {
		oldRef, _ := old.(*Ref)
		newRef, _ := nv.(*Ref)
		o.syncOwners(a, oldRef, newRef)
	}
}

func sameValue(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case *Ref:
		y, ok := b.(*Ref)
		return ok && x.Class == y.Class && x.Serial == y.Serial && x.pending == y.pending
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	if _, ok := b.(*Ref); ok {
		return false
	}
	return a == b
}

// IsChanged reports whether the object has unsaved attribute changes.
func (o *Object) IsChanged() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.changed) > 0
}

// ChangedAttrs returns the names of the changed attributes in declaration order.
func (o *Object) ChangedAttrs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []string
	for _, a := range o.class.AllAttrs() {
		if o.changed[a.Name] {
			out = append(out, a.Name)
		}
	}
	return out
}

func (o *Object) String() string {
	serial := o.Serial()
	if serial == 0 {
		return o.class.Name + ".new"
	}
	return o.class.Name + "." + strconv.FormatInt(serial, 10)
}

// snapshot copies the values under the read lock.
func (o *Object) snapshot() (map[string]any, map[string]bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	values := make(map[string]any, len(o.values))
	for k, v := range o.values {
		values[k] = v
	}
	changed := make(map[string]bool, len(o.changed))
	for k, v := range o.changed {
		changed[k] = v
	}
	return values, changed
}

// refValue returns the reference stored in attribute a, or nil.
func (o *Object) refValue(a *schema.Attr) *Ref {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, _ := o.values[a.Name].(*Ref)
	return r
}

// pendingTargets returns the unsaved objects o references.
func (o *Object) pendingTargets() []*Object {
	o.mu.RLock()
	var refs []*Object
	for _, a := range o.class.ColumnAttrs() {
		if r, ok := o.values[a.Name].(*Ref); ok && r.pending != nil {
			refs = append(refs, r.pending)
		}
	}
	o.mu.RUnlock()

	out := refs[:0]
	for _, t := range refs {
		if t.Serial() == 0 {
			out = append(out, t)
		}
	}
	return out
}

// resolveRefs replaces references to objects saved since they were set
// with plain identity pairs.
func (o *Object) resolveRefs() {
	o.mu.RLock()
	pending := make(map[string]*Ref)
	for k, v := range o.values {
		if r, ok := v.(*Ref); ok && r.pending != nil {
			pending[k] = r
		}
	}
	o.mu.RUnlock()

	resolved := make(map[string]*Ref, len(pending))
	for k, r := range pending {
		if serial := r.pending.Serial(); serial > 0 {
			resolved[k] = &Ref{Class: r.Class, Serial: serial}
		}
	}
	if len(resolved) == 0 {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for k, r := range resolved {
		if o.values[k] == pending[k] {
			o.values[k] = r
		}
	}
}

func (o *Object) unitOf() workctx.ID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.unit
}

// refresh overwrites the attributes that have no unsaved change.
func (o *Object) refresh(values map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, a := range o.class.ColumnAttrs() {
		if o.changed[a.Name] {
			continue
		}
		if v, ok := values[a.Name]; ok && v != nil {
			o.values[a.Name] = v
		} else {
			delete(o.values, a.Name)
		}
	}
}

// markSaved records a successful insert or update of the saved values.
// Attributes changed again while the save ran stay changed; it reports
// whether the object is clean.
func (o *Object) markSaved(serial int64, saved map[string]any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if serial > 0 {
		o.serial = serial
	}
	for name := range o.changed {
		if sameValue(o.values[name], saved[name]) {
			delete(o.changed, name)
		}
	}
	if len(o.changed) == 0 {
		o.state = Persistent
		o.tracked = false
		return true
	}
	o.state = Modified
	o.tracked = true
	return false
}

func (o *Object) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// checkRequired reports the first required column attribute without a value.
func (o *Object) checkRequired() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, a := range o.class.ColumnAttrs() {
		if a.Required && o.values[a.Name] == nil {
			return &schema.ValidationError{Class: o.class.Name, Attr: a.Name, Err: schema.ErrRequired}
		}
	}
	return nil
}

// syncOwners keeps the loaded lists whose back reference is a in step with
// a change of o's reference from oldRef to newRef.
func (o *Object) syncOwners(a *schema.Attr, oldRef, newRef *Ref) {
	st := o.Store()
	if owner := st.resident(oldRef); owner != nil && owner != o {
		for _, l := range backLists(owner.class, o.class, a) {
			owner.removeMember(l.Name, o)
		}
	}
	if owner := st.resident(newRef); owner != nil && owner != o {
		for _, l := range backLists(owner.class, o.class, a) {
			owner.addMember(l.Name, o)
		}
	}
}

// detachFromOwners drops o from every loaded list that holds it through a
// back reference.
func (o *Object) detachFromOwners() {
	for _, a := range o.class.ColumnAttrs() {
		if a.Kind == schema.KindObjRef {
			if r := o.refValue(a); r != nil {
				o.syncOwners(a, r, nil)
			}
		}
	}
}

// backLists returns the list attributes of owner whose members are of class
// member and point back through a.
func backLists(owner, member *schema.Class, a *schema.Attr) []*schema.Attr {
	var out []*schema.Attr
	for _, l := range owner.ListAttrs() {
		if l.BackRef == a.Name && member.IsA(l.TargetClass()) {
			out = append(out, l)
		}
	}
	return out
}

// addMember appends m to a loaded list. Unloaded lists are left alone.
func (o *Object) addMember(list string, m *Object) {
	o.mu.Lock()
	defer o.mu.Unlock()
	lst, loaded := o.lists[list]
	if !loaded {
		return
	}
	for _, x := range lst {
		if x == m {
			return
		}
	}
	o.lists[list] = append(lst, m)
}

func (o *Object) removeMember(list string, m *Object) {
	o.mu.Lock()
	defer o.mu.Unlock()
	lst, loaded := o.lists[list]
	if !loaded {
		return
	}
	for i, x := range lst {
		if x == m {
			o.lists[list] = append(lst[:i:i], lst[i+1:]...)
			return
		}
	}
}
