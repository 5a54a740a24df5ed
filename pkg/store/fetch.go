package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/leapstack-labs/leapstore/pkg/workctx"
	"go.uber.org/zap"
)

type fetchOptions struct {
	clauses string
	deep    bool
	refresh bool
}

// FetchOption configures FetchObjectsOfClass.
type FetchOption func(*fetchOptions)

// Clauses appends raw SQL such as "where i > 3 order by s" to the select.
func Clauses(sql string) FetchOption {
	return func(o *fetchOptions) { o.clauses = sql }
}

// Deep includes objects of subclasses. On by default.
func Deep(deep bool) FetchOption {
	return func(o *fetchOptions) { o.deep = deep }
}

// Refresh updates the unchanged attributes of objects already in memory
// from the fetched rows. On by default.
func Refresh(refresh bool) FetchOption {
	return func(o *fetchOptions) { o.refresh = refresh }
}

// FetchObjectsOfClass returns the objects of class c, in result-set order
// per table, followed by the objects of its subclasses. Rows whose identity
// is already in memory yield the resident object.
func (s *Store) FetchObjectsOfClass(ctx context.Context, c *schema.Class, opts ...FetchOption) ([]*Object, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("fetch: %w", ErrUnknownClass)
	}
	o := fetchOptions{deep: true, refresh: true}
	for _, opt := range opts {
		opt(&o)
	}

	classes := []*schema.Class{c}
	if o.deep || c.Abstract {
		classes = append(classes, c.Descendants()...)
	}
	var out []*Object
	for _, k := range classes {
		if k.Abstract {
			continue
		}
		objs, err := s.fetchClass(ctx, k, o)
		if err != nil {
			return nil, err
		}
		out = append(out, objs...)
	}
	return out, nil
}

func (s *Store) fetchClass(ctx context.Context, c *schema.Class, o fetchOptions) ([]*Object, error) {
	stmt := s.dialect.SelectSQL(c, o.clauses)
	rows, err := s.query(ctx, s.db, "fetch", stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &PersistenceError{Op: "fetch", SQL: stmt, Err: err}
	}
	unit := workctx.FromContext(ctx)
	var out []*Object
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &PersistenceError{Op: "fetch", SQL: stmt, Err: err}
		}
		serial, err := asInt64(raw[0])
		if err != nil {
			return nil, &PersistenceError{Op: "fetch", SQL: stmt, Err: err}
		}
		values, err := s.decodeRow(c, raw[1:])
		if err != nil {
			return nil, &PersistenceError{Op: "fetch", SQL: stmt, Err: err}
		}
		if obj := s.hydrate(c, serial, values, o.refresh, unit); obj != nil {
			out = append(out, obj)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "fetch", SQL: stmt, Err: err}
	}
	return out, nil
}

// hydrate returns the resident object for the row, creating it when the
// identity is new. The first object registered for an identity wins; later
// rows for it only refresh it. Rows of objects being deleted yield nil.
func (s *Store) hydrate(c *schema.Class, serial int64, values map[string]any, refresh bool, unit workctx.ID) *Object {
	key := s.keyFor(c, serial)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deleting[key]; ok {
		return nil
	}
	if o, ok := s.objects[key]; ok {
		if refresh {
			o.refresh(values)
		}
		return o
	}
	o := &Object{
		class:   c,
		store:   s,
		unit:    unit,
		serial:  serial,
		state:   Persistent,
		values:  values,
		changed: make(map[string]bool),
		lists:   make(map[string][]*Object),
	}
	s.objects[key] = o
	return o
}

// decodeRow converts the columns following the serial number into
// attribute values.
func (s *Store) decodeRow(c *schema.Class, raw []any) (map[string]any, error) {
	big := s.model.Settings.UseBigIntObjRefColumns
	values := make(map[string]any, len(raw))
	i := 0
	for _, a := range c.ColumnAttrs() {
		if a.Kind != schema.KindObjRef {
			if i >= len(raw) {
				return nil, fmt.Errorf("row of %s is missing column %s", c.Name, a.Name)
			}
			v, err := a.ScanValue(raw[i])
			if err != nil {
				return nil, err
			}
			if v != nil {
				values[a.Name] = v
			}
			i++
			continue
		}

		var (
			classID int
			serial  int64
		)
		if big {
			if i >= len(raw) {
				return nil, fmt.Errorf("row of %s is missing column %s", c.Name, a.Name)
			}
			if raw[i] != nil {
				n, err := asInt64(raw[i])
				if err != nil {
					return nil, fmt.Errorf("%s: %w", a.QualifiedName(), err)
				}
				classID, serial = dialect.SplitObjRef(n)
			}
			i++
		} else {
			if i+1 >= len(raw) {
				return nil, fmt.Errorf("row of %s is missing columns of %s", c.Name, a.Name)
			}
			if raw[i] != nil && raw[i+1] != nil {
				cid, err := asInt64(raw[i])
				if err != nil {
					return nil, fmt.Errorf("%s: %w", a.QualifiedName(), err)
				}
				if serial, err = asInt64(raw[i+1]); err != nil {
					return nil, fmt.Errorf("%s: %w", a.QualifiedName(), err)
				}
				classID = int(cid)
			}
			i += 2
		}
		if serial == 0 {
			continue
		}
		target, ok := s.classForID(classID)
		if !ok {
			return nil, fmt.Errorf("%s: %w: class id %d", a.QualifiedName(), ErrUnknownClass, classID)
		}
		values[a.Name] = &Ref{Class: target, Serial: serial}
	}
	return values, nil
}

// FetchObject returns the object of class c with the given serial number,
// from memory when it is resident.
func (s *Store) FetchObject(ctx context.Context, c *schema.Class, serial int64) (*Object, error) {
	if c == nil {
		return nil, fmt.Errorf("fetch: %w", ErrUnknownClass)
	}
	if serial <= 0 {
		return nil, ErrZeroSerial
	}
	key := s.keyFor(c, serial)
	s.mu.RLock()
	o, ok := s.objects[key]
	_, deleting := s.deleting[key]
	s.mu.RUnlock()
	if ok {
		return o, nil
	}
	if deleting {
		return nil, &UnknownObjectError{Class: c.Name, Serial: serial}
	}

	objs, err := s.FetchObjectsOfClass(ctx, c,
		Clauses(s.dialect.WhereSerial(c, serial)), Deep(false), Refresh(false))
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, &UnknownObjectError{Class: c.Name, Serial: serial}
	}
	if len(objs) > 1 {
		s.logger.Warn("serial number matched several rows",
			zap.String("class", c.Name), zap.Int64("serial", serial), zap.Int("rows", len(objs)))
	}
	return objs[0], nil
}

// FetchObjRef resolves an identity pair.
func (s *Store) FetchObjRef(ctx context.Context, key Key) (*Object, error) {
	if key.IsZero() {
		return nil, ErrZeroSerial
	}
	c, ok := s.classForID(key.ClassID)
	if !ok {
		return nil, fmt.Errorf("%w: class id %d", ErrUnknownClass, key.ClassID)
	}
	return s.FetchObject(ctx, c, key.Serial)
}

// resolve returns the object r points at.
func (s *Store) resolve(ctx context.Context, r *Ref) (*Object, error) {
	if r.pending != nil {
		return r.pending, nil
	}
	return s.FetchObject(ctx, r.Class, r.Serial)
}

// Ref returns the object referenced by the named attribute, fetching it
// when needed. An unset reference yields nil.
func (o *Object) Ref(ctx context.Context, name string) (*Object, error) {
	a, ok := o.class.Attr(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttr, o.class.Name, name)
	}
	if a.Kind != schema.KindObjRef {
		return nil, &RelationError{Op: "Ref", Attr: a.QualifiedName(), Err: ErrNotRef}
	}
	r := o.refValue(a)
	if r == nil {
		return nil, nil
	}
	if r.pending != nil {
		return r.pending, nil
	}
	st := o.Store()
	if st == nil {
		return nil, fmt.Errorf("%s: %w", a.QualifiedName(), ErrNotInStore)
	}
	return st.resolve(ctx, r)
}

func asInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	}
	return 0, fmt.Errorf("cannot read %T as an integer", v)
}
