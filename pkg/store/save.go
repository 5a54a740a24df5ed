package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/leapstack-labs/leapstore/pkg/workctx"
	"go.uber.org/zap"
)

// AddObject adds a transient object to the context's unit of work. It is
// inserted by the next SaveChanges. Unsaved objects it references, and the
// members of its lists, are added with it.
func (s *Store) AddObject(ctx context.Context, obj *Object) error {
	if obj == nil {
		return fmt.Errorf("add object: %w", ErrNilObject)
	}
	if obj.class.Abstract {
		return fmt.Errorf("add object: %w: %s", ErrAbstractClass, obj.class.Name)
	}
	if c, ok := s.model.Class(obj.class.Name); !ok || c != obj.class {
		return fmt.Errorf("add object: %w: %s", ErrUnknownClass, obj.class.Name)
	}
	return s.add(workctx.FromContext(ctx), obj, nil)
}

// add makes obj and the unsaved objects reachable from it pending in unit.
// Every object it takes into the store is appended to adopted when set.
func (s *Store) add(unit workctx.ID, obj *Object, adopted *[]*Object) error {
	obj.mu.Lock()
	if obj.store != nil || obj.serial != 0 {
		obj.mu.Unlock()
		return fmt.Errorf("add %s: %w", obj.class.Name, ErrAlreadyInStore)
	}
	obj.store, obj.unit, obj.state = s, unit, Pending
	var members []*Object
	for _, lst := range obj.lists {
		members = append(members, lst...)
	}
	obj.mu.Unlock()
	s.pending.Append(unit, obj)
	if adopted != nil {
		*adopted = append(*adopted, obj)
	}

	for _, other := range append(obj.pendingTargets(), members...) {
		if other.Store() != nil {
			continue
		}
		if err := s.add(unit, other, adopted); err != nil && !errors.Is(err, ErrAlreadyInStore) {
			return err
		}
	}
	return nil
}

// SaveChanges writes the context's unit of work in one transaction: deletes,
// then inserts, then updates of changed columns. On failure nothing is
// written and the objects keep their state.
func (s *Store) SaveChanges(ctx context.Context) error {
	return s.save(ctx, []workctx.ID{workctx.FromContext(ctx)})
}

// SaveAllChanges writes every unit of work in one transaction.
func (s *Store) SaveAllChanges(ctx context.Context) error {
	seen := make(map[workctx.ID]bool)
	var units []workctx.ID
	for _, ids := range [][]workctx.ID{s.pending.IDs(), s.modified.IDs(), s.deleted.IDs()} {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				units = append(units, id)
			}
		}
	}
	return s.save(ctx, units)
}

type saveBatch struct {
	inserts []*Object
	updates []*Object
	deletes []*Object
	units   map[workctx.ID]bool
	// adopted are the unsaved objects the save itself made pending.
	adopted []*Object
}

// fixup is a reference to an object inserted later in the same batch.
type fixup struct {
	obj    *Object
	attr   *schema.Attr
	target *Object
}

func (b *saveBatch) empty() bool {
	return len(b.inserts) == 0 && len(b.updates) == 0 && len(b.deletes) == 0
}

func (s *Store) save(ctx context.Context, units []workctx.ID) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	b, err := s.gather(units)
	if err != nil {
		if b != nil {
			s.release(b.adopted)
		}
		return err
	}
	if b.empty() {
		return nil
	}

	assigned := make(map[*Object]int64, len(b.inserts))
	saved := make(map[*Object]map[string]any, len(b.inserts)+len(b.updates))
	err = s.inTx(ctx, "save", func(tx *sql.Tx) error {
		for _, o := range b.deletes {
			if _, err := s.exec(ctx, tx, "delete", s.dialect.DeleteSQL(o.class, o.Serial())); err != nil {
				return err
			}
		}

		var fixups []fixup
		for _, o := range b.inserts {
			values, _ := o.snapshot()
			saved[o] = values
			cols, vals, later, err := s.columnLiterals(o.class.ColumnAttrs(), values, assigned, true)
			if err != nil {
				return &PersistenceError{Op: "insert", Err: fmt.Errorf("%s: %w", o.class.Name, err)}
			}
			serial, err := s.insert(ctx, tx, s.dialect.InsertSQL(o.class, cols, vals, true))
			if err != nil {
				return err
			}
			assigned[o] = serial
			for _, f := range later {
				f.obj = o
				fixups = append(fixups, f)
			}
		}

		for _, f := range fixups {
			serial, ok := assigned[f.target]
			if !ok {
				return &PersistenceError{Op: "insert", Err: fmt.Errorf("%s refers to an unsaved object", f.attr.QualifiedName())}
			}
			cols := f.attr.ColumnNames(s.model.Settings)
			vals := dialect.RefLiterals(f.attr, s.classID(f.target.class), serial)
			stmt := s.dialect.UpdateSQL(f.obj.class, cols, vals, assigned[f.obj])
			if _, err := s.exec(ctx, tx, "insert", stmt); err != nil {
				return err
			}
		}

		for _, o := range b.updates {
			values, changed := o.snapshot()
			saved[o] = values
			var attrs []*schema.Attr
			for _, a := range o.class.ColumnAttrs() {
				if changed[a.Name] {
					attrs = append(attrs, a)
				}
			}
			if len(attrs) == 0 {
				continue
			}
			cols, vals, later, err := s.columnLiterals(attrs, values, assigned, false)
			if err != nil {
				return &PersistenceError{Op: "update", Err: fmt.Errorf("%s: %w", o, err)}
			}
			if len(later) > 0 {
				return &PersistenceError{Op: "update", Err: fmt.Errorf("%s refers to an unsaved object", later[0].attr.QualifiedName())}
			}
			if _, err := s.exec(ctx, tx, "update", s.dialect.UpdateSQL(o.class, cols, vals, o.Serial())); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("save failed", zap.Error(err))
		s.release(b.adopted)
		return err
	}

	s.commitBatch(b, assigned, saved)
	s.logger.Debug("changes saved",
		zap.Int("inserts", len(b.inserts)),
		zap.Int("updates", len(b.updates)),
		zap.Int("deletes", len(b.deletes)))
	return nil
}

// gather collects the work of the units. Unsaved objects referenced by the
// batch join it. Required attributes are checked before any SQL runs.
func (s *Store) gather(units []workctx.ID) (*saveBatch, error) {
	b := &saveBatch{units: make(map[workctx.ID]bool, len(units))}
	inBatch := make(map[*Object]bool)
	deleted := make(map[*Object]bool)

	var inserts []*Object
	for _, u := range units {
		b.units[u] = true
		for _, o := range s.pending.Items(u) {
			if o.State() == Pending && !inBatch[o] {
				inBatch[o] = true
				inserts = append(inserts, o)
			}
		}
		byKey := s.deleted.Values(u)
		keys := make([]Key, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].ClassID != keys[j].ClassID {
				return keys[i].ClassID < keys[j].ClassID
			}
			return keys[i].Serial < keys[j].Serial
		})
		for _, k := range keys {
			o := byKey[k]
			if !deleted[o] {
				deleted[o] = true
				b.deletes = append(b.deletes, o)
				b.units[o.unitOf()] = true
			}
		}
	}
	for _, u := range units {
		for _, o := range s.modified.Items(u) {
			if o.State() == Modified && !deleted[o] && !inBatch[o] {
				inBatch[o] = true
				b.updates = append(b.updates, o)
			}
		}
	}

	scan := append(append([]*Object(nil), inserts...), b.updates...)
	for i := 0; i < len(scan); i++ {
		for _, t := range scan[i].pendingTargets() {
			if inBatch[t] {
				continue
			}
			switch st := t.Store(); {
			case st == nil:
				if err := s.add(scan[i].unitOf(), t, &b.adopted); err != nil && !errors.Is(err, ErrAlreadyInStore) {
					return b, err
				}
			case st != s:
				return b, fmt.Errorf("%s refers to an object of another store: %w", scan[i], ErrAlreadyInStore)
			}
			if t.State() != Pending {
				continue
			}
			inBatch[t] = true
			inserts = append(inserts, t)
			scan = append(scan, t)
		}
	}
	b.inserts = insertOrder(inserts)

	for _, o := range b.inserts {
		b.units[o.unitOf()] = true
		if err := o.checkRequired(); err != nil {
			return b, err
		}
	}
	for _, o := range b.updates {
		if err := o.checkRequired(); err != nil {
			return b, err
		}
	}
	return b, nil
}

// release returns objects adopted by a failed save to the transient state
// they had before it. Their references and lists are left as they were.
func (s *Store) release(objs []*Object) {
	for _, o := range objs {
		s.pending.Remove(o.unitOf(), func(x *Object) bool { return x == o })
		o.mu.Lock()
		o.state, o.store, o.unit = Transient, nil, workctx.Default
		o.mu.Unlock()
	}
}

// insertOrder puts referenced objects before the objects referencing them.
// Objects caught in a cycle keep their relative order.
func insertOrder(objs []*Object) []*Object {
	member := make(map[*Object]bool, len(objs))
	for _, o := range objs {
		member[o] = true
	}
	const (
		visiting = 1
		done     = 2
	)
	mark := make(map[*Object]int, len(objs))
	out := make([]*Object, 0, len(objs))
	var visit func(o *Object)
	visit = func(o *Object) {
		if mark[o] != 0 {
			return
		}
		mark[o] = visiting
		for _, t := range o.pendingTargets() {
			if member[t] {
				visit(t)
			}
		}
		mark[o] = done
		out = append(out, o)
	}
	for _, o := range objs {
		visit(o)
	}
	return out
}

// columnLiterals renders the column names and literals of attrs. References
// to objects without a serial number yet are returned as fixups. With
// skipNil, unset attributes are left out.
func (s *Store) columnLiterals(attrs []*schema.Attr, values map[string]any, assigned map[*Object]int64, skipNil bool) (cols, vals []string, later []fixup, err error) {
	for _, a := range attrs {
		v := values[a.Name]
		if a.Kind != schema.KindObjRef {
			if v == nil && skipNil {
				continue
			}
			lit, err := s.dialect.AttrLiteral(a, v)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("%s: %w", a.Name, err)
			}
			cols = append(cols, a.Name)
			vals = append(vals, lit)
			continue
		}

		r, _ := v.(*Ref)
		if r == nil {
			if skipNil {
				continue
			}
			cols = append(cols, a.ColumnNames(s.model.Settings)...)
			vals = append(vals, dialect.RefLiterals(a, 0, 0)...)
			continue
		}
		serial := r.SerialNum()
		if serial == 0 && r.pending != nil {
			n, ok := assigned[r.pending]
			if !ok {
				later = append(later, fixup{attr: a, target: r.pending})
				continue
			}
			serial = n
		}
		cols = append(cols, a.ColumnNames(s.model.Settings)...)
		vals = append(vals, dialect.RefLiterals(a, s.classID(r.Class), serial)...)
	}
	return cols, vals, later, nil
}

// insert runs an insert and reads the new serial number the way the
// dialect reports it.
func (s *Store) insert(ctx context.Context, tx *sql.Tx, stmt string) (int64, error) {
	switch s.dialect.Identity {
	case core.IdentityReturning:
		serial, err := s.queryInt(ctx, tx, "insert", stmt)
		if err != nil {
			return 0, err
		}
		return serial, s.checkWarnings(ctx, tx, "insert", stmt)
	case core.IdentityQuery:
		if _, err := s.exec(ctx, tx, "insert", stmt); err != nil {
			return 0, err
		}
		return s.queryInt(ctx, tx, "insert", s.dialect.IdentitySQL)
	case core.IdentityLastInsertID:
		res, err := s.exec(ctx, tx, "insert", stmt)
		if err != nil {
			return 0, err
		}
		serial, err := res.LastInsertId()
		if err != nil {
			return 0, &PersistenceError{Op: "insert", SQL: stmt, Err: err}
		}
		return serial, nil
	default:
		panic(fmt.Sprintf("store: unhandled identity strategy %v", s.dialect.Identity))
	}
}

// commitBatch applies a committed save to the objects and the identity map.
func (s *Store) commitBatch(b *saveBatch, assigned map[*Object]int64, saved map[*Object]map[string]any) {
	s.mu.Lock()
	for _, o := range b.deletes {
		delete(s.deleting, s.keyFor(o.class, o.Serial()))
	}
	for _, o := range b.inserts {
		s.objects[s.keyFor(o.class, assigned[o])] = o
	}
	s.mu.Unlock()

	gone := make(map[*Object]bool, len(b.deletes))
	for _, o := range b.deletes {
		gone[o] = true
		o.setState(Deleted)
	}
	inserted := make(map[*Object]bool, len(b.inserts))
	for _, o := range b.inserts {
		inserted[o] = true
		if !o.markSaved(assigned[o], saved[o]) {
			s.modified.Append(o.unitOf(), o)
		}
	}
	clean := make(map[*Object]bool, len(b.updates))
	for _, o := range b.updates {
		clean[o] = o.markSaved(0, saved[o])
	}
	for _, o := range b.inserts {
		o.resolveRefs()
	}
	for _, o := range b.updates {
		o.resolveRefs()
	}

	for u := range b.units {
		s.pending.DeleteFunc(u, func(o *Object) bool { return inserted[o] })
		s.modified.DeleteFunc(u, func(o *Object) bool { return clean[o] || gone[o] })
		for _, o := range b.deletes {
			s.deleted.Delete(u, s.keyFor(o.class, o.Serial()))
		}
	}
}
