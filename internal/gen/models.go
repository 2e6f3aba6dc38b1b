package gen

import (
	"fmt"
	"strconv"

	"suigen/internal/diagnostic"
	"suigen/internal/move"
	"suigen/internal/naming"
	"suigen/internal/resolve"
	"suigen/internal/typemap"
)

// ModelKind distinguishes struct from enum models.
type ModelKind int

const (
	ModelStruct ModelKind = iota
	ModelEnum
)

// Model is one declaration to render.
type Model struct {
	Key  move.QualifiedKey
	Kind ModelKind
	// Name is the synthesized Go type name.
	Name string
	// Table is the relational table (or enum type) name.
	Table string
	// TypeParams names the generic parameters (T0, T1, ...).
	TypeParams []string
	Fields     []Field
	Variants   []Variant
	// IsEvent is set for structs passed to event::emit; EventType is then
	// the on-chain type string.
	IsEvent   bool
	EventType string
}

// Field is one struct field with its mapped type.
type Field struct {
	// Name is the exported Go field name.
	Name string
	// JSONName is the Move field name, as it appears in event JSON.
	JSONName string
	// Column is the relational column name.
	Column string
	Type   typemap.Expr
}

// Variant is one enum variant.
type Variant struct {
	// Const is the Go constant identifier.
	Const string
	// Value is the Move variant name.
	Value string
}

// IsEnum reports whether the model is an enum.
func (m Model) IsEnum() bool {
	return m.Kind == ModelEnum
}

// Qualified returns the "address::module::Name" form of the declaration.
func (m Model) Qualified() string {
	return m.Key.Package.String() + "::" + m.Key.Module + "::" + m.Key.Name
}

// BuildModels turns a resolution result into render-ready models, ordered
// dependencies first. Findings are recorded in diags.
func BuildModels(res *resolve.Result, diags *diagnostic.Diagnostics) []Model {
	if diags == nil {
		diags = diagnostic.New()
	}

	events := make(map[move.QualifiedKey]move.EventRef, len(res.Events))
	for _, ev := range res.Events {
		events[ev.Key()] = ev
	}

	declared, keys := declare(res.Resolved, diags)

	models := make([]Model, 0, len(keys))

	for _, key := range keys {
		def := res.Resolved[key]

		m := Model{
			Key:   key,
			Name:  declared[key].name,
			Table: naming.Snake(declared[key].name),
		}

		if ev, ok := events[key]; ok {
			m.IsEvent = true
			m.EventType = ev.EventType()
		}

		switch def.Kind {
		case move.DefinitionEnum:
			m.Kind = ModelEnum
			m.Variants = variants(m.Name, def.Enum.Variants, declared)
		default:
			m.Kind = ModelStruct
			m.TypeParams = typeParams(len(def.Struct.TypeParameters))
			m.Fields = fields(key, def.Struct.Fields, declared, diags)
		}

		models = append(models, m)
	}

	return orderModels(models)
}

// declaration is what BuildModels knows about a declared key.
type declaration struct {
	name   string
	enum   bool
	params int
}

// declare assigns a Go name to every resolved key in sorted key order. A key
// whose synthesized name is already taken gets the first free numeric
// suffix: a second shop::Listing from another package is ShopListing2.
func declare(resolved move.ResolvedSet, diags *diagnostic.Diagnostics) (map[move.QualifiedKey]declaration, []move.QualifiedKey) {
	declared := make(map[move.QualifiedKey]declaration, len(resolved))
	owners := make(map[string]move.QualifiedKey, len(resolved))
	keys := resolved.SortedKeys()

	for _, key := range keys {
		base := naming.TypeName(key.Module, key.Name)
		name := base

		if first, taken := owners[base]; taken {
			for n := 2; ; n++ {
				name = base + strconv.Itoa(n)
				if _, taken := owners[name]; !taken && !naming.IsReserved(name) {
					break
				}
			}

			diags.AddInfo(diagnostic.CodeDuplicateDeclaration,
				fmt.Sprintf("type name %s already declared for %s; declared as %s", base, first, name),
				key.String(), "")
		}

		owners[name] = key

		d := declaration{name: name}

		def := resolved[key]
		if def.Kind == move.DefinitionEnum {
			d.enum = true
		} else if def.Struct != nil {
			d.params = len(def.Struct.TypeParameters)
		}

		declared[key] = d
	}

	return declared, keys
}

func fields(
	owner move.QualifiedKey,
	defs []move.FieldDef,
	declared map[move.QualifiedKey]declaration,
	diags *diagnostic.Diagnostics,
) []Field {
	out := make([]Field, 0, len(defs))
	used := make(map[string]int, len(defs))
	columns := map[string]bool{naming.KeyColumn: true}

	for _, f := range defs {
		if !typemap.Supported(f.Type) {
			diags.AddWarning(diagnostic.CodeUnknownTypeShape,
				fmt.Sprintf("type %s has no typed rendering; using json.RawMessage", f.Type),
				owner.String(), f.Name)
		}

		name := naming.FieldName(f.Name)
		if n := used[name]; n > 0 {
			used[name]++
			name += strconv.Itoa(n + 1)
		} else {
			used[name] = 1
		}

		column := naming.Snake(f.Name)
		if column == "" {
			column = "field"
		}

		if columns[column] {
			base := column
			for n := 2; columns[column]; n++ {
				column = base + "_" + strconv.Itoa(n)
			}
		}

		columns[column] = true

		out = append(out, Field{
			Name:     name,
			JSONName: f.Name,
			Column:   column,
			Type:     bind(typemap.Map(f.Type), declared),
		})
	}

	return out
}

// bind points named references at their declared names, degrades
// references to undeclared types to json.RawMessage and drops type arguments
// where the declaration cannot take them.
func bind(e typemap.Expr, declared map[move.QualifiedKey]declaration) typemap.Expr {
	return e.Rewrite(func(x typemap.Expr) typemap.Expr {
		if x.Kind != typemap.KindNamed || x.Ref == nil {
			return x
		}

		d, ok := declared[move.KeyOf(x.Ref)]
		if !ok {
			return typemap.Any()
		}

		x.Name = d.name

		if d.enum {
			x.Args = nil
			return x
		}

		if len(x.Args) != d.params {
			return typemap.Any()
		}

		return x
	})
}

func typeParams(n int) []string {
	if n == 0 {
		return nil
	}

	out := make([]string, n)
	for i := range out {
		out[i] = typemap.ParamName(i)
	}

	return out
}

func variants(typeName string, names []string, declared map[move.QualifiedKey]declaration) []Variant {
	taken := make(map[string]bool, len(declared))
	for _, d := range declared {
		taken[d.name] = true
	}

	out := make([]Variant, 0, len(names))

	for _, v := range names {
		id := typeName + naming.Pascal(v)
		if taken[id] {
			id += "Variant"
		}

		taken[id] = true

		out = append(out, Variant{Const: id, Value: v})
	}

	return out
}
