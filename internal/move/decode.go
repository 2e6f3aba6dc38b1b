package move

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrMalformedMetadata is returned when normalized module metadata does not
// have the expected modules/structs/enums/fields shape.
var ErrMalformedMetadata = errors.New("malformed module metadata")

type wireModule struct {
	Structs map[string]wireStruct `json:"structs"`
	Enums   map[string]wireEnum   `json:"enums"`
}

type wireTypeParameter struct {
	IsPhantom bool `json:"isPhantom"`
}

type wireField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type wireStruct struct {
	TypeParameters []wireTypeParameter `json:"typeParameters"`
	Fields         []wireField         `json:"fields"`
}

type wireEnum struct {
	TypeParameters          []wireTypeParameter        `json:"typeParameters"`
	Variants                map[string]json.RawMessage `json:"variants"`
	VariantDeclarationOrder []string                   `json:"variantDeclarationOrder"`
}

type wireStructRef struct {
	Address       string            `json:"address"`
	Module        string            `json:"module"`
	Name          string            `json:"name"`
	TypeArguments []json.RawMessage `json:"typeArguments"`
}

// DecodePackage decodes the result of sui_getNormalizedMoveModulesByPackage.
func DecodePackage(data []byte) (Package, error) {
	var wire map[string]*wireModule
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}

	if wire == nil {
		return nil, fmt.Errorf("%w: no modules", ErrMalformedMetadata)
	}

	pkg := make(Package, len(wire))

	for name, wm := range wire {
		if wm == nil {
			return nil, fmt.Errorf("%w: module %s is null", ErrMalformedMetadata, name)
		}

		mod, err := decodeModule(wm)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", name, err)
		}

		pkg[name] = mod
	}

	return pkg, nil
}

func decodeModule(wm *wireModule) (*Module, error) {
	mod := &Module{
		Structs: make(map[string]*StructDef, len(wm.Structs)),
		Enums:   make(map[string]*EnumDef, len(wm.Enums)),
	}

	for name, ws := range wm.Structs {
		def := &StructDef{TypeParameters: typeParameters(ws.TypeParameters)}

		for i, wf := range ws.Fields {
			if wf.Name == "" {
				return nil, fmt.Errorf("%w: struct %s field %d has no name", ErrMalformedMetadata, name, i)
			}

			typ, err := DecodeType(wf.Type)
			if err != nil {
				return nil, fmt.Errorf("struct %s field %s: %w", name, wf.Name, err)
			}

			def.Fields = append(def.Fields, FieldDef{Name: wf.Name, Type: typ})
		}

		mod.Structs[name] = def
	}

	for name, we := range wm.Enums {
		mod.Enums[name] = &EnumDef{
			TypeParameters: typeParameters(we.TypeParameters),
			Variants:       variantNames(we),
		}
	}

	return mod, nil
}

func typeParameters(in []wireTypeParameter) []TypeParameter {
	if len(in) == 0 {
		return nil
	}

	out := make([]TypeParameter, len(in))
	for i, p := range in {
		out[i] = TypeParameter{Phantom: p.IsPhantom}
	}

	return out
}

// variantNames prefers the node-reported declaration order and falls back
// to sorted names.
func variantNames(we wireEnum) []string {
	if len(we.VariantDeclarationOrder) == len(we.Variants) && len(we.Variants) > 0 {
		return append([]string(nil), we.VariantDeclarationOrder...)
	}

	names := make([]string, 0, len(we.Variants))
	for name := range we.Variants {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// DecodeType decodes one normalized type node. Shapes it does not model
// (references, signer, unknown objects) decode to KindUnsupported; only
// syntactically broken input is an error.
func DecodeType(data json.RawMessage) (*NormalizedType, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMetadata)
	}

	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
		}

		if kind, ok := ParsePrimitiveKind(name); ok {
			return Prim(kind), nil
		}

		return Unsupported(name), nil
	}

	var node map[string]json.RawMessage
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}

	if raw, ok := node["Vector"]; ok {
		elem, err := DecodeType(raw)
		if err != nil {
			return nil, err
		}

		return Vector(elem), nil
	}

	if raw, ok := node["Struct"]; ok {
		return decodeStructRef(raw)
	}

	if raw, ok := node["TypeParameter"]; ok {
		var index int
		if err := json.Unmarshal(raw, &index); err != nil {
			return nil, fmt.Errorf("%w: type parameter: %v", ErrMalformedMetadata, err)
		}

		return TypeParam(index), nil
	}

	tags := make([]string, 0, len(node))
	for tag := range node {
		tags = append(tags, tag)
	}

	if len(tags) == 0 {
		return Unsupported("{}"), nil
	}

	sort.Strings(tags)

	return Unsupported(tags[0]), nil
}

func decodeStructRef(raw json.RawMessage) (*NormalizedType, error) {
	var ws wireStructRef
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("%w: struct reference: %v", ErrMalformedMetadata, err)
	}

	if ws.Module == "" || ws.Name == "" {
		return nil, fmt.Errorf("%w: struct reference without module or name", ErrMalformedMetadata)
	}

	args := make([]*NormalizedType, 0, len(ws.TypeArguments))

	for _, a := range ws.TypeArguments {
		arg, err := DecodeType(a)
		if err != nil {
			return nil, err
		}

		args = append(args, arg)
	}

	return Struct(ParsePackageID(ws.Address), ws.Module, ws.Name, args...), nil
}
