package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// ConfigField is one key of leapstore.yaml.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
	Category    string // "project", "database", "store", "backup"
}

// getConfigSchema lists the keys read by internal/cli/config.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Name: "model", Type: "string", Default: "model", Description: "Model directory holding Classes.csv or Classes.yaml", Category: "project"},
		{Name: "outdir", Type: "string", Default: ".", Description: "Directory GeneratedSQL is written under", Category: "project"},
		{Name: "environment", Type: "string", Default: "dev", Description: "Environment whose overrides apply", Category: "project"},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Debug logging on stderr", Category: "project"},

		{Name: "type", Type: "string", Description: "mysql, sqlite, mssql, postgres or duckdb", Category: "database"},
		{Name: "database", Type: "string", Description: "File path (sqlite, duckdb) or database name", Category: "database"},
		{Name: "host", Type: "string", Description: "Server host", Category: "database"},
		{Name: "port", Type: "int", Default: "5432 / 3306 / 1433", Description: "Server port", Category: "database"},
		{Name: "user", Type: "string", Description: "User name", Category: "database"},
		{Name: "password", Type: "string", Description: "Password, usually ${VAR}", Category: "database"},
		{Name: "pool_size", Type: "int", Description: "Maximum open connections", Category: "database"},
		{Name: "params", Type: "map[string]any", Description: "Adapter-specific settings", Category: "database"},

		{Name: "ignore_sql_warnings", Type: "bool", Default: "false", Description: "Do not fail statements that raise server warnings", Category: "store"},
		{Name: "pool_size", Type: "int", Description: "Overrides database.pool_size", Category: "store"},
		{Name: "sql_log.path", Type: "string", Description: "Echo statements to stdout, stderr or a file", Category: "store"},
		{Name: "sql_log.append", Type: "bool", Default: "false", Description: "Append to an existing SQL log file", Category: "store"},
		{Name: "read_class_ids", Type: "bool", Default: "false", Description: "Read class ids from _MKClassIds", Category: "store"},

		{Name: "region", Type: "string", Description: "AWS region of the dump bucket", Category: "backup"},
		{Name: "endpoint", Type: "string", Description: "S3-compatible endpoint URL", Category: "backup"},
		{Name: "access_key", Type: "string", Description: "Static access key; the default credential chain is used when empty", Category: "backup"},
		{Name: "secret_key", Type: "string", Description: "Static secret key", Category: "backup"},
		{Name: "use_path_style", Type: "bool", Default: "false", Description: "Path-style bucket addressing", Category: "backup"},
	}
}

// generateConfigDocs writes configuration.md.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "leapstore configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("leapstore reads `leapstore.yaml` from the project root, the nearest directory at or above the working directory that holds one.")

	sections := []struct {
		category, title, intro string
	}{
		{"project", "Project Settings", "Relative paths are resolved against the project root."},
		{"database", "Database", "Connection settings under the `database` key. Environments may override any of them."},
		{"store", "Store", "Object store settings under the `store` key."},
		{"backup", "Backup", "S3 settings under the `backup` key, used when `dump --outfile` names an `s3://bucket/key` location."},
	}
	fields := getConfigSchema()
	for _, sec := range sections {
		w.Header(2, sec.title)
		w.Paragraph(sec.intro)
		var rows [][]string
		for _, f := range fields {
			if f.Category != sec.category {
				continue
			}
			def := f.Default
			if def == "" {
				def = "-"
			}
			rows = append(rows, []string{InlineCode(f.Name), f.Type, def, f.Description})
		}
		w.Table([]string{"Field", "Type", "Default", "Description"}, rows)
	}

	w.Header(2, "Full Configuration Example")
	w.CodeBlock("yaml", `# leapstore.yaml
model: Shop.mkmodel
outdir: build

database:
  type: mysql
  database: shop
  host: localhost
  user: shop
  password: ${SHOP_DB_PASSWORD}

store:
  sql_log:
    path: stderr

backup:
  region: eu-west-1

environments:
  prod:
    database:
      host: prod-db.example.com`)

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}
