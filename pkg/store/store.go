// Package store maps domain objects to rows of a relational database.
//
// A Store owns an identity map of persisted objects and tracks, per unit of
// work, the objects waiting to be inserted, updated or deleted. The unit of
// work is the workctx.ID carried by the context passed to each operation.
// SaveChanges writes a unit's changes in one transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/leapstack-labs/leapstore/pkg/workctx"
	"go.uber.org/zap"
)

// Config holds store configuration.
type Config struct {
	// Adapter selects and connects the database. Used by Open only.
	Adapter core.AdapterConfig `koanf:"adapter"`
	// IgnoreSQLWarnings stops warnings reported by the server from failing
	// the statement that raised them.
	IgnoreSQLWarnings bool `koanf:"ignore_sql_warnings"`
	// PoolSize caps open connections; 0 leaves the adapter setting.
	PoolSize int `koanf:"pool_size"`
	// SQLLog echoes every statement when Path is set.
	SQLLog SQLLogConfig `koanf:"sql_log"`
	// ReadClassIDs loads class ids from the database instead of trusting
	// the model numbering.
	ReadClassIDs bool `koanf:"read_class_ids"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSQLLog sets the logger every executed statement is echoed to.
func WithSQLLog(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.sqlLog = l
		}
	}
}

// WithConfig sets the configuration.
func WithConfig(cfg Config) Option {
	return func(s *Store) { s.cfg = cfg }
}

// Store is an object store bound to one database. It is safe for
// concurrent use.
type Store struct {
	model   *schema.Model
	db      *sql.DB
	dialect *dialect.Dialect
	cfg     Config

	logger   *zap.Logger
	sqlLog   *zap.Logger
	sqlCount atomic.Int64
	closers  []func() error
	closed   atomic.Bool

	// Guards objects and deleting. Never taken while holding an object lock.
	mu       sync.RWMutex
	objects  map[Key]*Object
	deleting map[Key]*Object

	idMu        sync.RWMutex
	classIDs    map[*schema.Class]int
	classesByID map[int]*schema.Class

	pending  workctx.List[*Object]
	modified workctx.List[*Object]
	deleted  workctx.Map[Key, *Object]
}

// New returns a store over an open pool. The caller keeps ownership of db.
func New(model *schema.Model, db *sql.DB, d *dialect.Dialect, opts ...Option) (*Store, error) {
	if model == nil {
		return nil, fmt.Errorf("store: model is required")
	}
	if db == nil {
		return nil, fmt.Errorf("store: database is required")
	}
	if d == nil {
		return nil, dialect.ErrDialectRequired
	}
	s := &Store{
		model:    model,
		db:       db,
		dialect:  d,
		logger:   zap.NewNop(),
		sqlLog:   zap.NewNop(),
		objects:  make(map[Key]*Object),
		deleting: make(map[Key]*Object),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setClassIDs(nil)
	if s.cfg.PoolSize > 0 {
		db.SetMaxOpenConns(s.cfg.PoolSize)
	}
	return s, nil
}

// Open connects to the database described by cfg.Adapter and returns a
// store that owns the connection.
func Open(ctx context.Context, model *schema.Model, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	logger := s.logger

	acfg := cfg.Adapter
	if cfg.PoolSize > 0 {
		acfg.PoolSize = cfg.PoolSize
	}
	if acfg.Database == "" && acfg.Path == "" && model.Settings.Database != "" {
		acfg.Database = model.Settings.Database
	}
	ad, err := adapter.NewAdapter(acfg, logger)
	if err != nil {
		return nil, err
	}
	if err := ad.Connect(ctx, acfg); err != nil {
		return nil, fmt.Errorf("connect %s: %w", acfg.Type, err)
	}

	// The adapter has sized the pool.
	owned := cfg
	owned.PoolSize = 0
	all := append([]Option{WithConfig(owned)}, opts...)
	var sqlLogClose func() error
	if cfg.SQLLog.Path != "" {
		l, closeLog, err := NewSQLLogger(cfg.SQLLog)
		if err != nil {
			_ = ad.Close()
			return nil, err
		}
		all = append(all, WithSQLLog(l))
		sqlLogClose = closeLog
	}

	st, err := New(model, ad.Pool(), ad.Dialect(), all...)
	if err != nil {
		_ = ad.Close()
		return nil, err
	}
	st.closers = append(st.closers, ad.Close)
	if sqlLogClose != nil {
		st.closers = append(st.closers, sqlLogClose)
	}

	if cfg.ReadClassIDs {
		ids, err := st.ClassIDs(ctx)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st.setClassIDs(ids)
	}
	logger.Debug("store opened",
		zap.String("model", model.Name),
		zap.String("dialect", ad.Dialect().Name))
	return st, nil
}

// Close releases the connection when the store opened it. Objects stay
// readable; further database operations fail with ErrClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Model returns the store's model.
func (s *Store) Model() *schema.Model { return s.model }

// Dialect returns the dialect SQL is rendered in.
func (s *Store) Dialect() *dialect.Dialect { return s.dialect }

// DB returns the connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// SQLCount returns the number of statements executed so far.
func (s *Store) SQLCount() int64 { return s.sqlCount.Load() }

// NewObject returns a transient object of the named class.
func (s *Store) NewObject(className string) (*Object, error) {
	c, ok := s.model.Class(className)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, className)
	}
	if c.Abstract {
		return nil, fmt.Errorf("%w: %s", ErrAbstractClass, className)
	}
	return NewObject(c), nil
}

// setClassIDs installs the class id numbering. Names missing from ids keep
// the model's numbering.
func (s *Store) setClassIDs(ids map[int]string) {
	byClass := make(map[*schema.Class]int, len(s.model.Classes()))
	byID := make(map[int]*schema.Class, len(s.model.Classes()))
	for _, c := range s.model.Classes() {
		byClass[c] = c.ID
	}
	for id, name := range ids {
		if c, ok := s.model.Class(name); ok {
			byClass[c] = id
		}
	}
	for c, id := range byClass {
		byID[id] = c
	}
	s.idMu.Lock()
	s.classIDs, s.classesByID = byClass, byID
	s.idMu.Unlock()
}

func (s *Store) classID(c *schema.Class) int {
	s.idMu.RLock()
	defer s.idMu.RUnlock()
	if id, ok := s.classIDs[c]; ok {
		return id
	}
	return c.ID
}

func (s *Store) classForID(id int) (*schema.Class, bool) {
	s.idMu.RLock()
	defer s.idMu.RUnlock()
	c, ok := s.classesByID[id]
	return c, ok
}

// keyFor returns the identity of serial in class c.
func (s *Store) keyFor(c *schema.Class, serial int64) Key {
	return Key{ClassID: s.classID(c), Serial: serial}
}

// ObjectForKey looks key up in the identity map without touching the
// database.
func (s *Store) ObjectForKey(key Key) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}

// resident returns the in-memory object r points at, or nil.
func (s *Store) resident(r *Ref) *Object {
	if r == nil {
		return nil
	}
	if r.pending != nil {
		return r.pending
	}
	if s == nil || r.Serial == 0 {
		return nil
	}
	o, _ := s.ObjectForKey(s.keyFor(r.Class, r.Serial))
	return o
}

// HasChanges reports whether the context's unit of work has unsaved changes.
func (s *Store) HasChanges(ctx context.Context) bool {
	id := workctx.FromContext(ctx)
	return !s.pending.IsEmpty(id) || !s.modified.IsEmpty(id) || !s.deleted.IsEmpty(id)
}

// HasAnyChanges reports whether any unit of work has unsaved changes.
func (s *Store) HasAnyChanges() bool {
	return !s.pending.IsEmptyAll() || !s.modified.IsEmptyAll() || !s.deleted.IsEmptyAll()
}

// Clear forgets every object and every unsaved change. Resident objects
// become Detached and pending ones Transient. The database is untouched.
func (s *Store) Clear() {
	s.mu.Lock()
	resident := make([]*Object, 0, len(s.objects)+len(s.deleting))
	for _, o := range s.objects {
		resident = append(resident, o)
	}
	for _, o := range s.deleting {
		resident = append(resident, o)
	}
	s.objects = make(map[Key]*Object)
	s.deleting = make(map[Key]*Object)
	s.mu.Unlock()

	for _, o := range resident {
		o.mu.Lock()
		o.state, o.store, o.tracked = Detached, nil, false
		o.mu.Unlock()
	}
	for _, o := range s.pending.AllItems() {
		o.mu.Lock()
		if o.store == s && o.state == Pending {
			o.state, o.store, o.unit = Transient, nil, workctx.Default
		}
		o.mu.Unlock()
	}
	s.pending.ClearAll()
	s.modified.ClearAll()
	s.deleted.ClearAll()
	s.logger.Debug("store cleared", zap.Int("objects", len(resident)))
}
