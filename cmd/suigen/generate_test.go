package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suigen/internal/config"
	"suigen/internal/gen"
	"suigen/internal/move"
	"suigen/internal/rpc"
	"suigen/internal/schema"
)

const shopModules = `{
	"shop": {
		"structs": {
			"ItemSold": {
				"typeParameters": [],
				"fields": [
					{"name": "price", "type": "U64"},
					{"name": "listing", "type": {"Struct": {"address": "0xabc", "module": "shop", "name": "Listing", "typeArguments": []}}}
				]
			},
			"Listing": {
				"typeParameters": [],
				"fields": [
					{"name": "id", "type": {"Struct": {"address": "0x2", "module": "object", "name": "UID", "typeArguments": []}}},
					{"name": "seller", "type": "Address"}
				]
			}
		},
		"enums": {}
	}
}`

const shopModulesWithOffer = `{
	"shop": {
		"structs": {
			"ItemSold": {
				"typeParameters": [],
				"fields": [
					{"name": "price", "type": "U64"},
					{"name": "offer", "type": {"Struct": {"address": "0xdef", "module": "market", "name": "Offer", "typeArguments": []}}}
				]
			}
		},
		"enums": {}
	}
}`

const shopBytecode = "module abc.shop {\n" +
	"use 0000000000000000000000000000000000000000000000000000000000000002::object;\n" +
	"public sell() {\n" +
	"\tCall event::emit<ItemSold>(ItemSold)\n" +
	"}\n}"

type chainServer struct {
	modules  map[string]string
	bytecode map[string]string
}

func (c chainServer) start(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64             `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}

		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.NotEmpty(t, req.Params) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var id string
		assert.NoError(t, json.Unmarshal(req.Params[0], &id))

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}

		switch req.Method {
		case rpc.MethodNormalizedModules:
			if body, ok := c.modules[id]; ok {
				resp["result"] = json.RawMessage(body)
			} else {
				resp["error"] = map[string]any{"code": -32602, "message": "package not found"}
			}
		case rpc.MethodGetObject:
			if body, ok := c.bytecode[id]; ok {
				resp["result"] = map[string]any{
					"data": map[string]any{
						"objectId": id,
						"content": map[string]any{
							"dataType":     "package",
							"disassembled": map[string]string{"shop": body},
						},
					},
				}
			} else {
				resp["error"] = map[string]any{"code": -32602, "message": "object not found"}
			}
		default:
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}

		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))

	t.Cleanup(srv.Close)

	return srv
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}

func rootID() string {
	return move.ParsePackageID("0xabc").Long()
}

func TestGenerate_WritesAllOutputs(t *testing.T) {
	srv := chainServer{
		modules:  map[string]string{rootID(): shopModules},
		bytecode: map[string]string{rootID(): shopBytecode},
	}.start(t)

	out := t.TempDir()

	stdout, stderr, err := execute(t, "generate",
		"--package", "0xabc",
		"--rpc-url", srv.URL,
		"--out", out,
		"--env-file", filepath.Join(out, "missing.env"),
	)
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "generated 2 declarations for 1 events")
	assert.NotContains(t, stderr, "warning:")
	assert.Contains(t, stderr, "run_id")

	for _, name := range []string{gen.TypesFile, gen.CursorFile, gen.EventsFile, gen.ManifestFile, schema.FileName} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	types, err := os.ReadFile(filepath.Join(out, gen.TypesFile))
	require.NoError(t, err)
	assert.Contains(t, string(types), "package events")
	assert.Contains(t, string(types), "type ShopItemSold struct")
	assert.Contains(t, string(types), "type ShopListing struct")

	events, err := os.ReadFile(filepath.Join(out, gen.EventsFile))
	require.NoError(t, err)
	assert.Contains(t, string(events), `"`+rootID()+`::shop::ItemSold"`)

	data, err := os.ReadFile(filepath.Join(out, gen.ManifestFile))
	require.NoError(t, err)

	manifest, err := gen.LoadManifest(data)
	require.NoError(t, err)
	assert.Equal(t, rootID(), manifest.Package)
	require.Len(t, manifest.Events, 1)
	assert.Equal(t, "ShopItemSold", manifest.Events[0].GoType)
	assert.Equal(t, "shop", manifest.Events[0].Module)

	ddl, err := os.ReadFile(filepath.Join(out, schema.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(ddl), `CREATE TABLE IF NOT EXISTS "shop_item_sold"`)
	assert.Contains(t, string(ddl), `CREATE TABLE IF NOT EXISTS "cursor"`)
}

func TestGenerate_UnresolvedReferenceWarns(t *testing.T) {
	srv := chainServer{
		modules:  map[string]string{rootID(): shopModulesWithOffer},
		bytecode: map[string]string{rootID(): shopBytecode},
	}.start(t)

	out := t.TempDir()
	args := []string{"generate",
		"--package", "0xabc",
		"--rpc-url", srv.URL,
		"--out", out,
		"--env-file", filepath.Join(out, "missing.env"),
	}

	stdout, stderr, err := execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "generated 1 declarations for 1 events")
	assert.Contains(t, stderr, "warning:")

	types, err := os.ReadFile(filepath.Join(out, gen.TypesFile))
	require.NoError(t, err)
	assert.Contains(t, string(types), "json.RawMessage")

	_, _, err = execute(t, append(args, "--strict")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict mode")
}

func TestGenerate_RootFetchFailureIsFatal(t *testing.T) {
	srv := chainServer{}.start(t)
	out := t.TempDir()

	_, _, err := execute(t, "generate",
		"--package", "0xabc",
		"--rpc-url", srv.URL,
		"--out", out,
		"--env-file", filepath.Join(out, "missing.env"),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, rpc.ErrNetwork)
	assert.NoFileExists(t, filepath.Join(out, gen.TypesFile))
}

func TestGenerate_InvalidNetwork(t *testing.T) {
	out := t.TempDir()

	_, _, err := execute(t, "generate",
		"--package", "0xabc",
		"--network", "moonnet",
		"--out", out,
		"--env-file", filepath.Join(out, "missing.env"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "moonnet")
}

func TestGenerate_MissingPackage(t *testing.T) {
	out := t.TempDir()

	_, _, err := execute(t, "generate", "--out", out, "--env-file", filepath.Join(out, "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package id is required")
}

func TestGenerateFlags_OnlyChangedOverride(t *testing.T) {
	flags := &generateFlags{}
	fs := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	flags.bind(fs)

	require.NoError(t, fs.Parse([]string{"--out", "./flag-out", "--strict", "--concurrency", "2"}))

	cfg := config.Default()
	cfg.Package = "0x1"
	cfg.Network = "testnet"

	flags.apply(fs, &cfg)

	assert.Equal(t, "0x1", cfg.Package)
	assert.Equal(t, "testnet", cfg.Network)
	assert.Equal(t, "./flag-out", cfg.OutDir)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, config.Default().Timeout, cfg.Timeout)
	assert.Equal(t, config.Default().GoPackage, cfg.GoPackage)
}

func TestGenerate_ConfigFile(t *testing.T) {
	srv := chainServer{
		modules:  map[string]string{rootID(): shopModules},
		bytecode: map[string]string{rootID(): shopBytecode},
	}.start(t)

	dir := t.TempDir()
	out := filepath.Join(dir, "gen")
	file := filepath.Join(dir, "suigen.yaml")

	require.NoError(t, os.WriteFile(file, []byte("package: \"0xabc\"\nrpc_url: "+srv.URL+"\nout: "+filepath.Join(dir, "ignored")+"\ngo_package: shopevents\n"), 0o644))

	_, stderr, err := execute(t, "generate", "--config", file, "--out", out, "--env-file", filepath.Join(dir, "missing.env"))
	require.NoError(t, err, stderr)

	types, err := os.ReadFile(filepath.Join(out, gen.TypesFile))
	require.NoError(t, err)
	assert.Contains(t, string(types), "package shopevents")
	assert.NoDirExists(t, filepath.Join(dir, "ignored"))
}
