package move

import (
	"sort"
	"strconv"
	"strings"
)

// PrimitiveKind enumerates the scalar Move types.
type PrimitiveKind int

const (
	PrimitiveUnknown PrimitiveKind = iota
	PrimitiveBool
	PrimitiveU8
	PrimitiveU16
	PrimitiveU32
	PrimitiveU64
	PrimitiveU128
	PrimitiveU256
	PrimitiveAddress
)

var primitiveNames = map[PrimitiveKind]string{
	PrimitiveBool:    "Bool",
	PrimitiveU8:      "U8",
	PrimitiveU16:     "U16",
	PrimitiveU32:     "U32",
	PrimitiveU64:     "U64",
	PrimitiveU128:    "U128",
	PrimitiveU256:    "U256",
	PrimitiveAddress: "Address",
}

// String returns the wire name of the primitive ("U64", "Bool", ...).
func (k PrimitiveKind) String() string {
	if name, ok := primitiveNames[k]; ok {
		return name
	}

	return "unknown"
}

// ParsePrimitiveKind maps a wire name to a PrimitiveKind.
func ParsePrimitiveKind(name string) (PrimitiveKind, bool) {
	for k, n := range primitiveNames {
		if n == name {
			return k, true
		}
	}

	return PrimitiveUnknown, false
}

// TypeKind tags the variants of NormalizedType.
type TypeKind int

const (
	KindUnsupported   TypeKind = iota // references, signer, unknown shapes
	KindPrimitive                     // Bool, U8..U256, Address
	KindVector                        // vector<T>
	KindStruct                        // address::module::Name<T...>
	KindTypeParameter                 // generic parameter by index
)

// String returns a human-readable representation of the TypeKind.
func (k TypeKind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindVector:
		return "vector"
	case KindStruct:
		return "struct"
	case KindTypeParameter:
		return "type_parameter"
	default:
		return "unsupported"
	}
}

// StructRef names a struct declared in some module of some package.
type StructRef struct {
	Address       PackageID
	Module        string
	Name          string
	TypeArguments []*NormalizedType
}

// NormalizedType is a structured description of a Move type.
// Exactly one of the variant fields is meaningful, selected by Kind.
type NormalizedType struct {
	Kind      TypeKind
	Primitive PrimitiveKind   // KindPrimitive
	Elem      *NormalizedType // KindVector
	Struct    *StructRef      // KindStruct
	Param     int             // KindTypeParameter
	Raw       string          // KindUnsupported: original shape, for diagnostics
}

// Prim builds a primitive type.
func Prim(kind PrimitiveKind) *NormalizedType {
	return &NormalizedType{Kind: KindPrimitive, Primitive: kind}
}

// Vector builds vector<elem>.
func Vector(elem *NormalizedType) *NormalizedType {
	return &NormalizedType{Kind: KindVector, Elem: elem}
}

// Struct builds a struct reference.
func Struct(address PackageID, module, name string, args ...*NormalizedType) *NormalizedType {
	return &NormalizedType{
		Kind: KindStruct,
		Struct: &StructRef{
			Address:       address,
			Module:        module,
			Name:          name,
			TypeArguments: args,
		},
	}
}

// TypeParam builds a reference to the index-th type parameter.
func TypeParam(index int) *NormalizedType {
	return &NormalizedType{Kind: KindTypeParameter, Param: index}
}

// Unsupported builds the catch-all variant.
func Unsupported(raw string) *NormalizedType {
	return &NormalizedType{Kind: KindUnsupported, Raw: raw}
}

// String renders the type in Move syntax, for logs and diagnostics.
func (t *NormalizedType) String() string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind {
	case KindPrimitive:
		return strings.ToLower(t.Primitive.String())
	case KindVector:
		return "vector<" + t.Elem.String() + ">"
	case KindStruct:
		s := t.Struct
		out := s.Address.String() + "::" + s.Module + "::" + s.Name

		if len(s.TypeArguments) > 0 {
			args := make([]string, len(s.TypeArguments))
			for i, a := range s.TypeArguments {
				args[i] = a.String()
			}

			out += "<" + strings.Join(args, ", ") + ">"
		}

		return out
	case KindTypeParameter:
		return "T" + strconv.Itoa(t.Param)
	default:
		if t.Raw != "" {
			return "unsupported(" + t.Raw + ")"
		}

		return "unsupported"
	}
}

// FieldDef is one struct field.
type FieldDef struct {
	Name string
	Type *NormalizedType
}

// TypeParameter describes one generic parameter of a struct or enum.
type TypeParameter struct {
	Phantom bool
}

// StructDef is a struct declaration with its ordered fields.
type StructDef struct {
	TypeParameters []TypeParameter
	Fields         []FieldDef
}

// EnumDef is an enum declaration. Only variant names are modeled.
type EnumDef struct {
	TypeParameters []TypeParameter
	Variants       []string
}

// Module holds the declarations of one module.
type Module struct {
	Structs map[string]*StructDef
	Enums   map[string]*EnumDef
}

// Package is the normalized metadata of one package: module name -> Module.
type Package map[string]*Module

// DefinitionKind distinguishes struct from enum definitions.
type DefinitionKind int

const (
	DefinitionStruct DefinitionKind = iota
	DefinitionEnum
)

// String returns "struct" or "enum".
func (k DefinitionKind) String() string {
	if k == DefinitionEnum {
		return "enum"
	}

	return "struct"
}

// Definition is a struct-or-enum declaration found during resolution.
type Definition struct {
	Kind   DefinitionKind
	Struct *StructDef
	Enum   *EnumDef
}

// Lookup finds module::name among the package's structs, then enums.
func (p Package) Lookup(module, name string) (Definition, bool) {
	mod, ok := p[module]
	if !ok || mod == nil {
		return Definition{}, false
	}

	if s, ok := mod.Structs[name]; ok && s != nil {
		return Definition{Kind: DefinitionStruct, Struct: s}, true
	}

	if e, ok := mod.Enums[name]; ok && e != nil {
		return Definition{Kind: DefinitionEnum, Enum: e}, true
	}

	return Definition{}, false
}

// HasStruct reports whether module declares a struct called name.
func (p Package) HasStruct(module, name string) bool {
	mod, ok := p[module]
	if !ok || mod == nil {
		return false
	}

	_, ok = mod.Structs[name]

	return ok
}

// QualifiedKey is the resolution identity of a declaration: the owning
// package plus its local "module-Name" name.
type QualifiedKey struct {
	Package PackageID
	Module  string
	Name    string
}

// KeyOf returns the key a struct reference resolves under.
func KeyOf(ref *StructRef) QualifiedKey {
	return QualifiedKey{Package: ref.Address, Module: ref.Module, Name: ref.Name}
}

// Local returns "module-Name".
func (k QualifiedKey) Local() string {
	return k.Module + "-" + k.Name
}

// String returns "package::module-Name".
func (k QualifiedKey) String() string {
	return k.Package.String() + "::" + k.Local()
}

// Less orders keys by package, module, then name.
func (k QualifiedKey) Less(o QualifiedKey) bool {
	if k.Package != o.Package {
		return k.Package < o.Package
	}

	if k.Module != o.Module {
		return k.Module < o.Module
	}

	return k.Name < o.Name
}

// EventRef identifies a struct passed to an emit call.
type EventRef struct {
	Package PackageID
	Module  string
	Name    string
}

// Key returns the resolution key of the event struct.
func (e EventRef) Key() QualifiedKey {
	return QualifiedKey{Package: e.Package, Module: e.Module, Name: e.Name}
}

// QualifiedType returns "address::module-Name".
func (e EventRef) QualifiedType() string {
	return e.Key().String()
}

// EventType returns the on-chain event type string "address::module::Name".
func (e EventRef) EventType() string {
	return e.Package.Long() + "::" + e.Module + "::" + e.Name
}

// ResolvedSet maps each resolved key to its definition.
type ResolvedSet map[QualifiedKey]Definition

// SortedKeys returns the keys of the set in Less order.
func (s ResolvedSet) SortedKeys() []QualifiedKey {
	keys := make([]QualifiedKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}

	SortKeys(keys)

	return keys
}

// Bytecode maps module name to its disassembled text.
type Bytecode map[string]string

// SortKeys orders keys in place by Less.
func SortKeys(keys []QualifiedKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
