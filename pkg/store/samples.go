package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/dump"
	"github.com/leapstack-labs/leapstore/pkg/generate"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"go.uber.org/zap"
)

type dumpOptions struct {
	progress io.Writer
}

// DumpOption configures DumpObjectStore.
type DumpOption func(*dumpOptions)

// Progress writes a dot to w as each class is dumped.
func Progress(w io.Writer) DumpOption {
	return func(o *dumpOptions) { o.progress = w }
}

// DumpObjectStore writes every object of every concrete class to w in the
// dump format, classes in dependency order and objects by serial number.
func (s *Store) DumpObjectStore(ctx context.Context, w io.Writer, opts ...DumpOption) error {
	var o dumpOptions
	for _, opt := range opts {
		opt(&o)
	}
	dw := dump.NewWriter(w)
	for _, c := range s.model.OrderedClasses() {
		if c.Abstract {
			continue
		}
		sec, err := s.dumpClass(ctx, c)
		if err != nil {
			return err
		}
		if err := dw.WriteSection(sec); err != nil {
			return fmt.Errorf("dump %s: %w", c.Name, err)
		}
		if o.progress != nil {
			if _, err := io.WriteString(o.progress, "."); err != nil {
				return err
			}
		}
	}
	if err := dw.Close(); err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	if o.progress != nil {
		_, _ = io.WriteString(o.progress, "\n")
	}
	return nil
}

func (s *Store) dumpClass(ctx context.Context, c *schema.Class) (dump.Section, error) {
	objs, err := s.FetchObjectsOfClass(ctx, c, Deep(false))
	if err != nil {
		return dump.Section{}, err
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Serial() < objs[j].Serial() })

	attrs := c.ColumnAttrs()
	sec := dump.Section{Class: c.Name, Columns: []string{c.SerialColumn()}}
	for _, a := range attrs {
		sec.Columns = append(sec.Columns, a.Name)
	}
	for _, o := range objs {
		values, _ := o.snapshot()
		row := []string{strconv.FormatInt(o.Serial(), 10)}
		for _, a := range attrs {
			v := values[a.Name]
			if r, ok := v.(*Ref); ok {
				row = append(row, dump.Ref{Class: r.Class.Name, Serial: r.SerialNum()}.String())
				continue
			}
			row = append(row, dump.FormatValue(a.Kind, v))
		}
		sec.Rows = append(sec.Rows, row)
	}
	return sec, nil
}

// LoadSamples reads the dump format from r and inserts the rows with their
// serial numbers in one transaction. The store must have no unsaved changes.
func (s *Store) LoadSamples(ctx context.Context, r io.Reader) error {
	if s.HasAnyChanges() {
		return ErrPendingChanges
	}
	sections, err := dump.Read(r)
	if err != nil {
		return err
	}
	stmts, err := generate.SampleStatements(s.model, s.dialect, sections, s.classID)
	if err != nil {
		return err
	}
	err = s.inTx(ctx, "load samples", func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := s.exec(ctx, tx, "load samples", stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("samples loaded", zap.Int("sections", len(sections)), zap.Int("statements", len(stmts)))
	return nil
}

// ClassIDs reads the class id table written with the schema.
func (s *Store) ClassIDs(ctx context.Context) (map[int]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("select %s, %s from %s",
		s.dialect.QuoteIdent("id"), s.dialect.QuoteIdent("name"), s.dialect.QuoteIdent(dialect.ClassIDsTable))
	rows, err := s.query(ctx, s.db, "class ids", stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int]string)
	for rows.Next() {
		var (
			id   int
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, &PersistenceError{Op: "class ids", SQL: stmt, Err: err}
		}
		ids[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "class ids", SQL: stmt, Err: err}
	}
	return ids, nil
}
