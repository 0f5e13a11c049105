// Package postgres generates the bootstrap DDL for the fixed star
// schema: the statement/blob/volume/file tables and their partial
// indexes. Unlike a generic schema generator that translates an
// arbitrary user-authored table definition into SQL for a chosen
// engine, this schema is fixed — there is exactly one shape to emit.
package postgres

import (
	"fmt"
	"strings"
)

// QuoteIdentifier double-quotes a Postgres identifier, using
// Postgres's own quoting rules rather than MySQL's backticks.
func QuoteIdentifier(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, `"`, `""`)
	return `"` + name + `"`
}

// objectColumns lists the per-kind object columns, in the fixed order
// they appear in CREATE TABLE and in every upsert built by the store
// package (internal/value.Column enumerates the same set; kept as a
// plain string slice here to avoid a dialect -> value import for what
// is, at this layer, just DDL text).
var objectColumns = []string{
	"object_statement_id",
	"object_blob_id",
	"object_integer",
	"object_decimal",
	"object_string",
	"object_boolean",
	"object_datetime",
}

// BootstrapStatements returns, in execution order, every DDL statement
// needed to create the schema from scratch. Statements are idempotent
// (IF NOT EXISTS) so bootstrap can run against an already-initialized
// database without erroring.
func BootstrapStatements() []string {
	var stmts []string
	stmts = append(stmts, createStatementTable())
	stmts = append(stmts, createStatementIndexes()...)
	stmts = append(stmts, createBlobTable())
	stmts = append(stmts, createVolumeTable())
	stmts = append(stmts, createFileTable())
	return stmts
}

func createStatementTable() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS statement (\n")
	b.WriteString("  id BIGSERIAL PRIMARY KEY,\n")
	b.WriteString("  handle BYTEA NOT NULL UNIQUE,\n")
	b.WriteString("  subject_id BIGINT REFERENCES statement(id),\n")
	b.WriteString("  predicate_id BIGINT REFERENCES statement(id),\n")
	b.WriteString("  object_statement_id BIGINT REFERENCES statement(id),\n")
	b.WriteString("  object_blob_id BIGINT,\n")
	b.WriteString("  object_integer BIGINT,\n")
	b.WriteString("  object_decimal NUMERIC,\n")
	b.WriteString("  object_string TEXT,\n")
	b.WriteString("  object_boolean BOOLEAN,\n")
	b.WriteString("  object_datetime TIMESTAMPTZ\n")
	b.WriteString(");")
	return b.String()
}

// createStatementIndexes emits one partial index per object column,
// restricted to non-null rows, plus the lookup indexes joins rely on.
func createStatementIndexes() []string {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS statement_subject_id_idx ON statement(subject_id);`,
		`CREATE INDEX IF NOT EXISTS statement_predicate_id_idx ON statement(predicate_id);`,
	}
	for _, col := range objectColumns {
		name := fmt.Sprintf("statement_%s_idx", col)
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON statement(%s) WHERE %s IS NOT NULL;`,
			name, col, col,
		))
	}
	return stmts
}

func createBlobTable() string {
	return strings.Join([]string{
		"CREATE TABLE IF NOT EXISTS blob (",
		"  id BIGSERIAL PRIMARY KEY,",
		"  handle BYTEA NOT NULL UNIQUE",
		");",
	}, "\n")
}

func createVolumeTable() string {
	return strings.Join([]string{
		"CREATE TABLE IF NOT EXISTS volume (",
		"  id BIGSERIAL PRIMARY KEY,",
		"  reference TEXT NOT NULL UNIQUE",
		");",
	}, "\n")
}

func createFileTable() string {
	return strings.Join([]string{
		"CREATE TABLE IF NOT EXISTS file (",
		"  id BIGSERIAL PRIMARY KEY,",
		"  blob_id BIGINT NOT NULL REFERENCES blob(id),",
		"  volume_id BIGINT NOT NULL REFERENCES volume(id),",
		"  path BYTEA NOT NULL,",
		"  size BIGINT NOT NULL,",
		"  mtime TIMESTAMPTZ,",
		"  lastverify TIMESTAMPTZ,",
		"  UNIQUE (volume_id, path)",
		");",
	}, "\n")
}
