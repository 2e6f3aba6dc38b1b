// Package typemap maps normalized Move types to Go type expressions.
//
// Map applies an ordered list of rules, first match wins: primitives,
// vectors, the framework wrappers (object ids, strings, Option, the
// table-like maps, VecSet, TableVec), then any other struct by its
// synthesized name. Everything else renders as json.RawMessage. Map is pure
// and never fails.
package typemap

import (
	"strconv"
	"strings"

	"suigen/internal/common"
	"suigen/internal/move"
	"suigen/internal/naming"
)

// Kind classifies an Expr for consumers that need more than its Go spelling
// (column typing, key comparability).
type Kind int

const (
	KindAny      Kind = iota // json.RawMessage
	KindBool                 // bool
	KindNumber               // uint8, uint16, uint32
	KindDecimal              // u64 and wider, as a decimal string
	KindString               // addresses, object ids, strings
	KindSequence             // []Elem
	KindOptional             // *Elem, or *json.RawMessage when Elem is nil
	KindMap                  // map[Key]Value
	KindSet                  // map[Elem]struct{}
	KindNamed                // a declared struct or enum, maybe instantiated
	KindParam                // generic parameter of the enclosing declaration
)

// String returns a human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindOptional:
		return "optional"
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	case KindNamed:
		return "named"
	case KindParam:
		return "param"
	default:
		return "any"
	}
}

// Expr is a Go type expression.
type Expr struct {
	Kind  Kind
	Name  string          // scalar, named and param kinds
	Elem  *Expr           // sequence, optional, set
	Key   *Expr           // map
	Value *Expr           // map
	Args  []Expr          // named: instantiation arguments
	Ref   *move.StructRef // named: the struct reference it came from
}

const rawJSON = "json.RawMessage"

// Any is the fallback expression.
func Any() Expr {
	return Expr{Kind: KindAny}
}

// String renders the Go type expression.
func (e Expr) String() string {
	switch e.Kind {
	case KindBool, KindNumber, KindDecimal, KindString, KindParam:
		return e.Name
	case KindSequence:
		return "[]" + e.Elem.String()
	case KindOptional:
		if e.Elem == nil {
			return "*" + rawJSON
		}

		return "*" + e.Elem.String()
	case KindMap:
		return "map[" + e.Key.String() + "]" + e.Value.String()
	case KindSet:
		return "map[" + e.Elem.String() + "]struct{}"
	case KindNamed:
		if common.IsEmpty(e.Args) {
			return e.Name
		}

		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = a.String()
		}

		return e.Name + "[" + strings.Join(args, ", ") + "]"
	default:
		return rawJSON
	}
}

// Scalar reports whether the expression is a bool, number, decimal or string.
func (e Expr) Scalar() bool {
	switch e.Kind {
	case KindBool, KindNumber, KindDecimal, KindString:
		return true
	default:
		return false
	}
}

// Walk calls fn on e and every nested expression, depth first.
func (e Expr) Walk(fn func(Expr)) {
	fn(e)

	for _, child := range []*Expr{e.Elem, e.Key, e.Value} {
		if child != nil {
			child.Walk(fn)
		}
	}

	for _, a := range e.Args {
		a.Walk(fn)
	}
}

// Rewrite returns a copy of e with fn applied bottom-up to every node.
func (e Expr) Rewrite(fn func(Expr) Expr) Expr {
	out := e

	if e.Elem != nil {
		elem := e.Elem.Rewrite(fn)
		out.Elem = &elem
	}

	if e.Key != nil {
		key := e.Key.Rewrite(fn)
		out.Key = &key
	}

	if e.Value != nil {
		value := e.Value.Rewrite(fn)
		out.Value = &value
	}

	if e.Args != nil {
		out.Args = make([]Expr, len(e.Args))
		for i, a := range e.Args {
			out.Args[i] = a.Rewrite(fn)
		}
	}

	return fn(out)
}

// Map converts t to its Go type expression.
func Map(t *move.NormalizedType) Expr {
	if t == nil {
		return Any()
	}

	switch t.Kind {
	case move.KindPrimitive:
		return mapPrimitive(t.Primitive)
	case move.KindVector:
		elem := Map(t.Elem)
		return Expr{Kind: KindSequence, Elem: &elem}
	case move.KindStruct:
		return mapStruct(t.Struct)
	case move.KindTypeParameter:
		return Expr{Kind: KindParam, Name: ParamName(t.Param)}
	default:
		return Any()
	}
}

// TypeString is Map(t).String().
func TypeString(t *move.NormalizedType) string {
	return Map(t).String()
}

// Supported reports whether t maps without hitting the json.RawMessage
// fallback anywhere inside it.
func Supported(t *move.NormalizedType) bool {
	ok := true

	Map(t).Walk(func(x Expr) {
		if x.Kind == KindAny {
			ok = false
		}
	})

	return ok
}

// ParamName names the index-th generic parameter.
func ParamName(index int) string {
	return "T" + strconv.Itoa(index)
}

func mapPrimitive(kind move.PrimitiveKind) Expr {
	switch kind {
	case move.PrimitiveBool:
		return Expr{Kind: KindBool, Name: "bool"}
	case move.PrimitiveU8:
		return Expr{Kind: KindNumber, Name: "uint8"}
	case move.PrimitiveU16:
		return Expr{Kind: KindNumber, Name: "uint16"}
	case move.PrimitiveU32:
		return Expr{Kind: KindNumber, Name: "uint32"}
	case move.PrimitiveU64, move.PrimitiveU128, move.PrimitiveU256:
		return Expr{Kind: KindDecimal, Name: "string"}
	case move.PrimitiveAddress:
		return stringExpr()
	default:
		return Any()
	}
}

func mapStruct(ref *move.StructRef) Expr {
	args := ref.TypeArguments

	switch move.Wrapper(ref) {
	case move.WrapperObjectID, move.WrapperString:
		return stringExpr()
	case move.WrapperOption:
		if !common.IsSingle(args) {
			return Expr{Kind: KindOptional}
		}

		elem := Map(args[0])

		return Expr{Kind: KindOptional, Elem: &elem}
	case move.WrapperMap:
		if common.IsPair(args) {
			key, value := mapKey(Map(args[0])), Map(args[1])
			return Expr{Kind: KindMap, Key: &key, Value: &value}
		}
	case move.WrapperSet:
		if common.IsSingle(args) {
			elem := mapKey(Map(args[0]))
			return Expr{Kind: KindSet, Elem: &elem}
		}
	case move.WrapperSequence:
		if common.IsSingle(args) {
			elem := Map(args[0])
			return Expr{Kind: KindSequence, Elem: &elem}
		}
	}

	named := Expr{Kind: KindNamed, Name: naming.TypeName(ref.Module, ref.Name), Ref: ref}

	for _, a := range args {
		named.Args = append(named.Args, Map(a))
	}

	return named
}

// mapKey keeps the key kinds encoding/json decodes object keys into
// (integers and strings) and replaces anything else, bool included, with
// string.
func mapKey(e Expr) Expr {
	switch e.Kind {
	case KindNumber, KindDecimal, KindString:
		return e
	default:
		return stringExpr()
	}
}

func stringExpr() Expr {
	return Expr{Kind: KindString, Name: "string"}
}
