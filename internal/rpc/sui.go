package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"suigen/internal/move"
)

// Sui JSON-RPC method names.
const (
	MethodNormalizedModules = "sui_getNormalizedMoveModulesByPackage"
	MethodGetObject         = "sui_getObject"
)

type objectResponse struct {
	Data *struct {
		ObjectID string `json:"objectId"`
		Content  *struct {
			DataType     string            `json:"dataType"`
			Disassembled map[string]string `json:"disassembled"`
		} `json:"content"`
	} `json:"data"`
	Error *struct {
		Code     string `json:"code"`
		ObjectID string `json:"object_id"`
	} `json:"error"`
}

// NormalizedModules fetches the normalized metadata of every module of id.
func (c *Client) NormalizedModules(ctx context.Context, id move.PackageID) (move.Package, error) {
	raw, err := c.Call(ctx, MethodNormalizedModules, id.Long())
	if err != nil {
		return nil, err
	}

	pkg, err := move.DecodePackage(raw)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", id, err)
	}

	return pkg, nil
}

// Disassembled fetches the disassembled bytecode text of every module of
// the package object id.
func (c *Client) Disassembled(ctx context.Context, id move.PackageID) (move.Bytecode, error) {
	raw, err := c.Call(ctx, MethodGetObject, id.Long(), map[string]bool{"showContent": true})
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("package %s: %w: empty object response", id, move.ErrMalformedMetadata)
	}

	var obj objectResponse
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("package %s: %w: %v", id, move.ErrMalformedMetadata, err)
	}

	if obj.Error != nil {
		return nil, fmt.Errorf("package %s: %w: object error %s", id, move.ErrMalformedMetadata, obj.Error.Code)
	}

	if obj.Data == nil || obj.Data.Content == nil || obj.Data.Content.Disassembled == nil {
		return nil, fmt.Errorf("package %s: %w: object has no disassembled content", id, move.ErrMalformedMetadata)
	}

	if dt := obj.Data.Content.DataType; dt != "" && dt != "package" {
		return nil, fmt.Errorf("package %s: %w: object is a %s, not a package", id, move.ErrMalformedMetadata, dt)
	}

	return move.Bytecode(obj.Data.Content.Disassembled), nil
}
