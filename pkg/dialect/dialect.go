// Package dialect renders DDL and value literals for a target database.
//
// A Dialect wraps a pure-data core.DialectConfig and turns it into create and
// drop scripts, column specifications and literals. Concrete dialect
// definitions are registered from pkg/dialects/*/ packages.
package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// maxConstraintName is the longest constraint or index name any supported
// server accepts.
const maxConstraintName = 128

// Dialect renders SQL for one database.
type Dialect struct {
	*core.DialectConfig
}

// Builder assembles a Dialect from a config, filling defaults.
type Builder struct {
	cfg core.DialectConfig
}

// New creates a builder seeded with cfg. The config is copied.
func New(cfg *core.DialectConfig) *Builder {
	return &Builder{cfg: *cfg}
}

// Identifiers sets identifier quoting.
func (b *Builder) Identifiers(quote, quoteEnd, escape string) *Builder {
	b.cfg.Identifiers = core.IdentifierConfig{Quote: quote, QuoteEnd: quoteEnd, Escape: escape}
	return b
}

// Identity sets how inserted serial numbers are read back.
func (b *Builder) Identity(s core.IdentityStrategy, query string) *Builder {
	b.cfg.Identity = s
	b.cfg.IdentitySQL = query
	return b
}

// Build returns the dialect.
func (b *Builder) Build() *Dialect {
	cfg := b.cfg
	if cfg.Strings.Fixed == "" {
		cfg.Strings.Fixed = "char(%d)"
	}
	if cfg.Strings.Variable == "" {
		cfg.Strings.Variable = "varchar(%d)"
	}
	if cfg.Strings.Unsized == "" {
		cfg.Strings.Unsized = "varchar(255)"
	}
	if cfg.Literals.True == "" {
		cfg.Literals.True, cfg.Literals.False = "1", "0"
	}
	if cfg.DropTable == "" {
		cfg.DropTable = "drop table if exists {table};"
	}
	if cfg.Index == "" {
		cfg.Index = "create {unique}index {index} on {table} ({col});"
	}
	if cfg.EmptyInsert == "" {
		cfg.EmptyInsert = "insert into {table} default values"
	}
	if cfg.NowSQL == "" {
		cfg.NowSQL = "CURRENT_TIMESTAMP"
	}
	if cfg.Identifiers.QuoteEnd == "" {
		cfg.Identifiers.QuoteEnd = cfg.Identifiers.Quote
	}
	return &Dialect{DialectConfig: &cfg}
}

// QuoteIdent quotes a table or column name.
func (d *Dialect) QuoteIdent(name string) string {
	id := d.Identifiers
	if id.Quote == "" {
		return name
	}
	if id.Escape != "" {
		name = strings.ReplaceAll(name, id.QuoteEnd, id.Escape)
	}
	return id.Quote + name + id.QuoteEnd
}

// ConstraintName strips brackets and truncates to a length every server accepts.
func ConstraintName(name string) string {
	name = strings.NewReplacer("[", "", "]", "").Replace(name)
	if len(name) > maxConstraintName {
		name = name[:maxConstraintName]
	}
	return name
}

// SequenceName names the serial sequence of a class table.
func SequenceName(c *schema.Class) string {
	return c.Name + "_seq"
}

// IndexName names the index on attribute a of class c.
func IndexName(c *schema.Class, a *schema.Attr) string {
	return ConstraintName("IX__" + c.Name + "__" + a.Name)
}

func (d *Dialect) expand(tmpl string, vars map[string]string) string {
	if tmpl == "" {
		return ""
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func (d *Dialect) classVars(c *schema.Class) map[string]string {
	start := startingSerial(c)
	serial := c.SerialColumn()
	return map[string]string{
		"name":  c.Name,
		"table": d.QuoteIdent(c.Name),
		"col":   d.QuoteIdent(serial),
		"pk":    ConstraintName("PK__" + c.Name + "__" + serial),
		"seq":   SequenceName(c),
		"start": strconv.FormatInt(start, 10),
		"prev":  strconv.FormatInt(start-1, 10),
	}
}

func startingSerial(c *schema.Class) int64 {
	if m := c.Model(); m != nil && m.Settings.StartingSerialNum > 0 {
		return m.Settings.StartingSerialNum
	}
	return 1
}

func settingsOf(c *schema.Class) schema.Settings {
	if m := c.Model(); m != nil {
		return m.Settings
	}
	return schema.Settings{}
}

// String returns the dialect name.
func (d *Dialect) String() string {
	return fmt.Sprintf("dialect(%s)", d.Name)
}
