package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapstore/pkg/schema"
)

func (o *Object) listAttr(op, name string) (*schema.Attr, error) {
	a, ok := o.class.Attr(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttr, o.class.Name, name)
	}
	if a.Kind != schema.KindList {
		return nil, &RelationError{Op: op, Attr: a.QualifiedName(), Err: ErrNotList}
	}
	return a, nil
}

// List returns the members of the named to-many list, loading them on
// first use. Members are ordered by serial number, unsaved ones last.
func (o *Object) List(ctx context.Context, name string) ([]*Object, error) {
	a, err := o.listAttr("List", name)
	if err != nil {
		return nil, err
	}
	o.mu.RLock()
	lst, loaded := o.lists[name]
	st, serial := o.store, o.serial
	o.mu.RUnlock()
	if loaded {
		return append([]*Object(nil), lst...), nil
	}
	if st == nil || serial == 0 {
		return nil, nil
	}

	members, err := st.loadList(ctx, o, a)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	if cur, ok := o.lists[name]; ok {
		members = cur
	} else {
		o.lists[name] = members
	}
	o.mu.Unlock()
	return append([]*Object(nil), members...), nil
}

// loadList collects the objects whose back reference points at owner: rows
// from the database plus resident and pending objects, judged by their
// in-memory value.
func (s *Store) loadList(ctx context.Context, owner *Object, l *schema.Attr) ([]*Object, error) {
	back := l.BackRefAttr()
	if back == nil {
		return nil, &RelationError{Op: "List", Attr: l.QualifiedName(), Err: fmt.Errorf("no back reference %s", l.BackRef)}
	}
	target := l.TargetClass()
	where := s.dialect.RefWhere(back, s.classID(owner.class), owner.Serial())
	fetched, err := s.FetchObjectsOfClass(ctx, target, Clauses(where), Refresh(false))
	if err != nil {
		return nil, err
	}

	candidates := append(fetched, s.memberCandidates(target)...)
	seen := make(map[*Object]bool, len(candidates))
	var out []*Object
	for _, m := range candidates {
		if seen[m] {
			continue
		}
		seen[m] = true
		if m.refValue(back).refersTo(owner) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Serial(), out[j].Serial()
		if a == 0 || b == 0 {
			return a != 0 && b == 0
		}
		return a < b
	})
	return out, nil
}

// memberCandidates returns the in-memory objects of class c or its
// subclasses, persisted and pending.
func (s *Store) memberCandidates(c *schema.Class) []*Object {
	var out []*Object
	s.mu.RLock()
	for _, o := range s.objects {
		if o.class.IsA(c) {
			out = append(out, o)
		}
	}
	s.mu.RUnlock()
	for _, o := range s.pending.AllItems() {
		if o.class.IsA(c) {
			out = append(out, o)
		}
	}
	return out
}

// AddTo appends other to the named list by pointing its back reference at
// o. An other without a store joins o's store.
func (o *Object) AddTo(ctx context.Context, name string, other *Object) error {
	a, err := o.listAttr("AddTo", name)
	if err != nil {
		return err
	}
	if other == nil {
		return &RelationError{Op: "AddTo", Attr: a.QualifiedName(), Err: ErrNilObject}
	}
	if !other.class.IsA(a.TargetClass()) {
		return &RelationError{Op: "AddTo", Attr: a.QualifiedName(),
			Err: fmt.Errorf("%w: %s is not a %s", ErrWrongClass, other.class.Name, a.TargetClass().Name)}
	}
	members, err := o.List(ctx, name)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m == other {
			return &RelationError{Op: "AddTo", Attr: a.QualifiedName(), Err: ErrAlreadyMember}
		}
	}

	back := a.BackRefAttr()
	if back == nil {
		return &RelationError{Op: "AddTo", Attr: a.QualifiedName(), Err: fmt.Errorf("no back reference %s", a.BackRef)}
	}
	if st := o.Store(); st != nil && other.Store() == nil {
		if err := st.AddObject(ctx, other); err != nil {
			return err
		}
	}
	if err := other.Set(back.Name, o); err != nil {
		return err
	}
	// o is not always reachable through the identity map.
	o.addMember(name, other)
	return nil
}

// RemoveFrom takes other out of the named list. A stored member whose back
// reference is required is deleted instead. A transient member is never
// saved, so its back reference is cleared either way.
func (o *Object) RemoveFrom(ctx context.Context, name string, other *Object) error {
	a, err := o.listAttr("RemoveFrom", name)
	if err != nil {
		return err
	}
	if other == nil {
		return &RelationError{Op: "RemoveFrom", Attr: a.QualifiedName(), Err: ErrNilObject}
	}
	members, err := o.List(ctx, name)
	if err != nil {
		return err
	}
	found := false
	for _, m := range members {
		if m == other {
			found = true
			break
		}
	}
	if !found {
		return &RelationError{Op: "RemoveFrom", Attr: a.QualifiedName(), Err: ErrNotMember}
	}

	back := a.BackRefAttr()
	if back.Required {
		if st := other.Store(); st != nil {
			return st.DeleteObject(ctx, other)
		}
	}
	other.setValue(back, nil)
	o.removeMember(name, other)
	return nil
}
