package core

// DialectConfig holds the static configuration for a SQL dialect.
// It holds no functions.
//
// Statement templates use placeholders that pkg/dialect expands:
//
//	{db}       database name
//	{name}     raw table name
//	{table}    quoted table name
//	{col}      quoted column name
//	{pk}       primary key constraint name
//	{index}    index name
//	{unique}   "unique " for unique indexes, empty otherwise
//	{seq}      sequence name
//	{start}    first serial number
//	{prev}     first serial number minus one
//	{labels}   quoted enum labels
//	{max}      highest serial number inserted explicitly
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "mysql", "sqlite")
	Name string

	// Identifiers defines quoting rules. An empty Quote leaves names bare.
	Identifiers IdentifierConfig

	// FileBased dialects have no server-side database: create/use database
	// render empty, drop database drops the tables.
	FileBased bool

	// Database-level statements
	CreateDatabase string
	DropDatabase   string
	UseDatabase    string
	DropTable      string

	// PrimaryKey renders the serial column definition.
	PrimaryKey string
	// StartingSerial runs after create table when a starting serial number is set.
	StartingSerial string
	// CreateSequence and DropSequence are emitted around the table when set.
	CreateSequence string
	DropSequence   string

	// Index rendering
	IndexStyle IndexStyle
	Index      string

	Types   TypeConfig
	Strings StringConfig
	// NativeEnum renders an enumerated column type, e.g. enum({labels}).
	// Empty means enums are stored as strings (or integers with an
	// auxiliary table when the model asks for external enums).
	NativeEnum string

	Literals LiteralConfig

	// Runtime
	Identity    IdentityStrategy
	IdentitySQL string
	NowSQL      string
	WarningsSQL string

	// EmptyInsert inserts a row into a table that has only a serial column.
	EmptyInsert string
	// SerialInsertBegin and SerialInsertEnd bracket inserts that carry
	// explicit serial numbers.
	SerialInsertBegin string
	SerialInsertEnd   string
	// SerialReset moves the serial generator past explicitly inserted rows.
	SerialReset string
}

// IdentifierConfig defines how identifiers are quoted.
type IdentifierConfig struct {
	Quote    string // Quote character: ", `, [
	QuoteEnd string // End quote character (usually same as Quote, ] for [)
	Escape   string // Escape sequence for QuoteEnd inside a name: "", ``, ]]
}

// TypeConfig maps scalar attribute kinds to column types.
type TypeConfig struct {
	Bool      string
	Int       string
	Long      string
	Float     string
	Date      string
	Time      string
	DateTime  string
	ObjRef    string // each column of a two-column reference
	BigObjRef string // single wide reference column
}

// StringConfig controls string column sizing.
type StringConfig struct {
	// Always, when set, is used for every string column.
	Always string
	// Unsized is used when no Max is declared.
	Unsized string
	// Tiers switch to a large type once Max exceeds Above; checked in order.
	Tiers []StringTier
	// Fixed and Variable are fmt patterns taking the length, e.g. "char(%d)".
	Fixed    string
	Variable string
}

// StringTier is one size threshold.
type StringTier struct {
	Above int
	Type  string
}

// LiteralConfig controls value literal rendering.
type LiteralConfig struct {
	// BackslashEscapes escapes backslashes and control characters in
	// strings in addition to doubling quotes (MySQL).
	BackslashEscapes bool
	True             string
	False            string
}

// IndexStyle says where secondary indexes are declared.
type IndexStyle int

const (
	// IndexSeparate emits a create index statement after the table.
	IndexSeparate IndexStyle = iota
	// IndexInline declares indexes inside create table.
	IndexInline
)

// IdentityStrategy says how the serial number of an inserted row is read back.
type IdentityStrategy int

const (
	// IdentityLastInsertID uses the driver-reported insert id.
	IdentityLastInsertID IdentityStrategy = iota
	// IdentityQuery runs IdentitySQL on the inserting connection.
	IdentityQuery
	// IdentityReturning appends a returning clause to the insert.
	IdentityReturning
)

// String returns the strategy name.
func (s IdentityStrategy) String() string {
	switch s {
	case IdentityLastInsertID:
		return "last_insert_id"
	case IdentityQuery:
		return "query"
	case IdentityReturning:
		return "returning"
	default:
		return "unknown"
	}
}
