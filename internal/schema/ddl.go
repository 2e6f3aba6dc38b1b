// Package schema derives a PostgreSQL schema from rendered models and
// applies it to a database.
package schema

import (
	"fmt"
	"strings"

	"suigen/internal/gen"
	"suigen/internal/naming"
	"suigen/internal/typemap"
)

// FileName is the name the DDL is written under.
const FileName = "schema.sql"

// CursorTable is the table pollers persist their Cursor in.
var CursorTable = Table{
	Name: naming.Snake(naming.CursorName),
	Columns: []Column{
		{Name: "id", Type: "TEXT", PrimaryKey: true},
		{Name: "event_seq", Type: "TEXT"},
		{Name: "tx_digest", Type: "TEXT"},
	},
}

// Schema is a set of enum types and tables.
type Schema struct {
	Enums  []Enum
	Tables []Table
}

// Enum is a PostgreSQL enum type.
type Enum struct {
	Name   string
	Values []string
}

// Table is one table.
type Table struct {
	Name    string
	Columns []Column
}

// Column is one table column.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	// Default is a SQL expression, empty for none.
	Default string
}

// Build derives the schema of models: one enum type per enum model, one
// table per struct model, then the cursor table.
func Build(models []gen.Model) Schema {
	var s Schema

	enums := make(map[string]gen.Model)

	for _, m := range models {
		if !m.IsEnum() {
			continue
		}

		enums[m.Name] = m

		values := make([]string, len(m.Variants))
		for i, v := range m.Variants {
			values[i] = v.Value
		}

		s.Enums = append(s.Enums, Enum{Name: m.Table, Values: values})
	}

	for _, m := range models {
		if m.IsEnum() {
			continue
		}

		t := Table{
			Name: m.Table,
			Columns: []Column{
				{Name: naming.KeyColumn, Type: "UUID", PrimaryKey: true, Default: "gen_random_uuid()"},
			},
		}

		for _, f := range m.Fields {
			t.Columns = append(t.Columns, column(f, enums))
		}

		s.Tables = append(s.Tables, t)
	}

	s.Tables = append(s.Tables, CursorTable)

	return s
}

// Render is Build(models).DDL().
func Render(models []gen.Model) string {
	return Build(models).DDL()
}

func column(f gen.Field, enums map[string]gen.Model) Column {
	typ, nullable := columnType(f.Type, enums)

	c := Column{Name: f.Column, Type: typ, Nullable: nullable}

	if f.Type.Kind == typemap.KindNamed {
		if e, ok := enums[f.Type.Name]; ok && len(e.Variants) > 0 {
			c.Default = quoteLiteral(e.Variants[0].Value)
		}
	}

	return c
}

// columnType maps an expression to a column type and whether the column is
// nullable.
func columnType(e typemap.Expr, enums map[string]gen.Model) (string, bool) {
	switch e.Kind {
	case typemap.KindOptional:
		if e.Elem == nil {
			return "JSONB", true
		}

		inner, _ := columnType(*e.Elem, enums)

		return inner, true
	case typemap.KindSequence:
		elem := *e.Elem
		if elem.Scalar() {
			return scalarType(elem) + "[]", false
		}

		if m, ok := enumOf(elem, enums); ok {
			return quoteIdent(m.Table) + "[]", false
		}

		return "JSONB", false
	case typemap.KindNamed:
		if m, ok := enumOf(e, enums); ok {
			return quoteIdent(m.Table), false
		}

		return "JSONB", false
	default:
		if e.Scalar() {
			return scalarType(e), false
		}

		return "JSONB", false
	}
}

func enumOf(e typemap.Expr, enums map[string]gen.Model) (gen.Model, bool) {
	if e.Kind != typemap.KindNamed {
		return gen.Model{}, false
	}

	m, ok := enums[e.Name]

	return m, ok
}

func scalarType(e typemap.Expr) string {
	switch e.Kind {
	case typemap.KindBool:
		return "BOOLEAN"
	case typemap.KindNumber:
		return "BIGINT"
	case typemap.KindDecimal:
		return "NUMERIC(78,0)"
	default:
		return "TEXT"
	}
}

// DDL renders idempotent CREATE statements.
func (s Schema) DDL() string {
	var sb strings.Builder

	sb.WriteString("-- Code generated by suigen. DO NOT EDIT.\n")

	for _, e := range s.Enums {
		values := make([]string, len(e.Values))
		for i, v := range e.Values {
			values[i] = quoteLiteral(v)
		}

		fmt.Fprintf(&sb, "\nDO $$ BEGIN\n  CREATE TYPE %s AS ENUM (%s);\nEXCEPTION WHEN duplicate_object THEN NULL;\nEND $$;\n",
			quoteIdent(e.Name), strings.Join(values, ", "))
	}

	for _, t := range s.Tables {
		fmt.Fprintf(&sb, "\nCREATE TABLE IF NOT EXISTS %s (\n", quoteIdent(t.Name))

		for i, c := range t.Columns {
			sb.WriteString("  " + c.definition())

			if i < len(t.Columns)-1 {
				sb.WriteString(",")
			}

			sb.WriteString("\n")
		}

		sb.WriteString(");\n")
	}

	return sb.String()
}

// DropDDL renders statements dropping every table and type of the schema.
func (s Schema) DropDDL() string {
	var sb strings.Builder

	for i := len(s.Tables) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "DROP TABLE IF EXISTS %s CASCADE;\n", quoteIdent(s.Tables[i].Name))
	}

	for _, e := range s.Enums {
		fmt.Fprintf(&sb, "DROP TYPE IF EXISTS %s CASCADE;\n", quoteIdent(e.Name))
	}

	return sb.String()
}

func (c Column) definition() string {
	parts := []string{quoteIdent(c.Name), c.Type}

	if c.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	} else if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}

	if c.Default != "" {
		parts = append(parts, "DEFAULT "+c.Default)
	}

	return strings.Join(parts, " ")
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
