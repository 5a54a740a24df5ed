package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/leapstack-labs/leapstore/pkg/workctx"
	"go.uber.org/zap"
)

// deletePlan is the closure of one DeleteObject call.
type deletePlan struct {
	objects  []*Object
	seen     map[*Object]bool
	detaches []Reference
}

// DeleteObject queues obj for deletion by the context's unit of work.
//
// Objects referencing obj are handled by the OnDeleteOther policy of the
// referencing attribute: deny (the default) fails with a
// DeleteReferencedError, detach clears the reference and cascade deletes
// the referencing object. Objects obj references are handled by the
// OnDeleteSelf policy of obj's attribute: deny fails with a
// DeleteWithReferencesError, cascade deletes them. Nothing changes when the
// call fails.
//
// A pending object is simply dropped from its unit of work.
func (s *Store) DeleteObject(ctx context.Context, obj *Object) error {
	if obj == nil {
		return fmt.Errorf("delete object: %w", ErrNilObject)
	}
	if obj.Store() != s {
		return fmt.Errorf("delete %s: %w", obj, ErrNotInStore)
	}
	switch obj.State() {
	case Pending:
		s.dropPending(obj)
		return nil
	case Deleted:
		return nil
	}
	s.mu.RLock()
	_, queued := s.deleting[obj.Key()]
	s.mu.RUnlock()
	if queued {
		return nil
	}

	p := &deletePlan{seen: make(map[*Object]bool)}
	if err := s.planDelete(ctx, obj, p); err != nil {
		return err
	}
	s.applyDelete(workctx.FromContext(ctx), p)
	s.logger.Debug("object deleted",
		zap.Stringer("object", obj),
		zap.Int("cascaded", len(p.objects)-1),
		zap.Int("detached", len(p.detaches)))
	return nil
}

func (s *Store) planDelete(ctx context.Context, obj *Object, p *deletePlan) error {
	p.seen[obj] = true
	p.objects = append(p.objects, obj)

	referencing, err := s.referencing(ctx, obj)
	if err != nil {
		return err
	}
	for _, r := range referencing {
		if r.Attr.OnDeleteOther == schema.DeleteCascade && !p.seen[r.Object] {
			if err := s.planDelete(ctx, r.Object, p); err != nil {
				return err
			}
		}
	}

	referenced, err := s.referenced(ctx, obj)
	if err != nil {
		return err
	}
	for _, r := range referenced {
		if r.Attr.OnDeleteSelf == schema.DeleteCascade && !p.seen[r.Object] {
			if err := s.planDelete(ctx, r.Object, p); err != nil {
				return err
			}
		}
	}

	var denied, detach []Reference
	for _, r := range referencing {
		if p.seen[r.Object] {
			continue
		}
		switch r.Attr.OnDeleteOther {
		case schema.DeleteDetach:
			detach = append(detach, r)
		case schema.DeleteCascade:
		default:
			denied = append(denied, r)
		}
	}
	if len(denied) > 0 {
		return &DeleteReferencedError{Object: obj, Referencing: denied}
	}

	var deniedAttrs []*schema.Attr
	seenAttr := make(map[*schema.Attr]bool)
	for _, r := range referenced {
		if p.seen[r.Object] || r.Attr.OnDeleteSelf != schema.DeleteDeny || seenAttr[r.Attr] {
			continue
		}
		seenAttr[r.Attr] = true
		deniedAttrs = append(deniedAttrs, r.Attr)
	}
	if len(deniedAttrs) > 0 {
		return &DeleteWithReferencesError{Object: obj, Attrs: deniedAttrs}
	}

	p.detaches = append(p.detaches, detach...)
	return nil
}

// referencing finds the objects whose references point at obj, in the
// database and in memory. In-memory values take precedence over rows.
func (s *Store) referencing(ctx context.Context, obj *Object) ([]Reference, error) {
	var out []Reference
	for _, k := range s.model.ConcreteClasses() {
		for _, a := range k.ColumnAttrs() {
			if a.Kind != schema.KindObjRef || !obj.class.IsA(a.TargetClass()) {
				continue
			}
			var fetched []*Object
			if serial := obj.Serial(); serial > 0 {
				where := s.dialect.RefWhere(a, s.classID(obj.class), serial)
				var err error
				fetched, err = s.FetchObjectsOfClass(ctx, k, Clauses(where), Deep(false), Refresh(false))
				if err != nil {
					return nil, err
				}
			}
			seen := make(map[*Object]bool)
			for _, o := range append(fetched, s.memberCandidates(k)...) {
				if seen[o] || o.class != k {
					continue
				}
				seen[o] = true
				if o.refValue(a).refersTo(obj) {
					out = append(out, Reference{Object: o, Attr: a})
				}
			}
		}
	}
	return out, nil
}

// referenced returns the objects obj points at through attributes whose
// OnDeleteSelf policy needs them. Dangling references are skipped.
func (s *Store) referenced(ctx context.Context, obj *Object) ([]Reference, error) {
	var out []Reference
	for _, a := range obj.class.AllAttrs() {
		if a.OnDeleteSelf != schema.DeleteCascade && a.OnDeleteSelf != schema.DeleteDeny {
			continue
		}
		switch a.Kind {
		case schema.KindObjRef:
			r := obj.refValue(a)
			if r == nil {
				continue
			}
			target, err := s.resolve(ctx, r)
			var unknown *UnknownObjectError
			if errors.As(err, &unknown) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, Reference{Object: target, Attr: a})
		case schema.KindList:
			members, err := obj.List(ctx, a.Name)
			if err != nil {
				return nil, err
			}
			for _, m := range members {
				out = append(out, Reference{Object: m, Attr: a})
			}
		}
	}
	return out, nil
}

func (s *Store) applyDelete(unit workctx.ID, p *deletePlan) {
	for _, r := range p.detaches {
		if !p.seen[r.Object] {
			r.Object.setValue(r.Attr, nil)
		}
	}
	for _, o := range p.objects {
		if o.State() == Pending {
			s.dropPending(o)
			continue
		}
		o.detachFromOwners()
		key := o.Key()
		s.mu.Lock()
		delete(s.objects, key)
		s.deleting[key] = o
		s.mu.Unlock()
		s.deleted.Set(unit, key, o)
	}
}

// dropPending takes a pending object out of the store.
func (s *Store) dropPending(o *Object) {
	s.pending.Remove(o.unitOf(), func(x *Object) bool { return x == o })
	o.detachFromOwners()
	o.mu.Lock()
	o.state, o.store, o.unit = Transient, nil, workctx.Default
	o.mu.Unlock()
}
