package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"suigen/internal/diagnostic"
	"suigen/internal/fetch"
	"suigen/internal/move"
)

var (
	rootID  = move.ParsePackageID("0xabc")
	suiID   = move.ParsePackageID("0x2")
	stdID   = move.ParsePackageID("0x1")
	libID   = move.ParsePackageID("0x9")
	depID   = move.ParsePackageID("0xdef")
	ghostID = move.ParsePackageID("0x77")
)

var errNotFound = errors.New("package not found")

// chain is an in-memory fetch.Source.
type chain struct {
	meta map[move.PackageID]move.Package
	code map[move.PackageID]move.Bytecode
	fail map[move.PackageID]error

	mu    sync.Mutex
	calls map[string]int
}

func newChain() *chain {
	return &chain{
		meta:  make(map[move.PackageID]move.Package),
		code:  make(map[move.PackageID]move.Bytecode),
		fail:  make(map[move.PackageID]error),
		calls: make(map[string]int),
	}
}

func (c *chain) count(method string, id move.PackageID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[method+":"+id.String()]++
}

func (c *chain) callsFor(method string, id move.PackageID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls[method+":"+id.String()]
}

func (c *chain) NormalizedModules(_ context.Context, id move.PackageID) (move.Package, error) {
	c.count("meta", id)

	if err := c.fail[id]; err != nil {
		return nil, err
	}

	pkg, ok := c.meta[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, errNotFound)
	}

	return pkg, nil
}

func (c *chain) Disassembled(_ context.Context, id move.PackageID) (move.Bytecode, error) {
	c.count("code", id)

	if err := c.fail[id]; err != nil {
		return nil, err
	}

	code, ok := c.code[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, errNotFound)
	}

	return code, nil
}

func field(name string, t *move.NormalizedType) move.FieldDef {
	return move.FieldDef{Name: name, Type: t}
}

func structs(defs map[string][]move.FieldDef) *move.Module {
	mod := &move.Module{
		Structs: make(map[string]*move.StructDef, len(defs)),
		Enums:   map[string]*move.EnumDef{},
	}

	for name, fields := range defs {
		mod.Structs[name] = &move.StructDef{Fields: fields}
	}

	return mod
}

func disassembly(owner move.PackageID, module string, uses []string, emits ...string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "// Move bytecode v6\nmodule %s.%s {\n", strings.TrimPrefix(owner.Long(), "0x"), module)

	for _, u := range uses {
		fmt.Fprintf(&sb, "use %s;\n", u)
	}

	sb.WriteString("\npublic fun run() {\nB0:\n")

	for _, e := range emits {
		fmt.Fprintf(&sb, "\tCall event::emit<%s>(%s)\n", e, e)
	}

	sb.WriteString("\tRet\n}\n}\n")

	return sb.String()
}

func use(id move.PackageID, module string) string {
	return strings.TrimPrefix(id.Long(), "0x") + "::" + module
}

func key(id move.PackageID, module, name string) move.QualifiedKey {
	return move.QualifiedKey{Package: id, Module: module, Name: name}
}

func keys(rs move.ResolvedSet) []move.QualifiedKey {
	return rs.SortedKeys()
}

func dumpOnFailure(t *testing.T, v any) {
	t.Helper()

	t.Cleanup(func() {
		if t.Failed() {
			t.Log(spew.Sdump(v))
		}
	})
}

func objectID() *move.NormalizedType  { return move.Struct(suiID, "object", "ID") }
func objectUID() *move.NormalizedType { return move.Struct(suiID, "object", "UID") }
func utf8() *move.NormalizedType      { return move.Struct(stdID, "string", "String") }

func TestRunItemSold(t *testing.T) {
	src := newChain()
	src.meta[rootID] = move.Package{
		"shop": structs(map[string][]move.FieldDef{
			"ItemSold": {
				field("item_id", objectID()),
				field("price", move.Prim(move.PrimitiveU64)),
				field("buyer", move.Prim(move.PrimitiveAddress)),
			},
			"Shop": {field("id", objectUID())},
		}),
	}
	src.code[rootID] = move.Bytecode{
		"shop": disassembly(rootID, "shop", []string{use(suiID, "object"), use(suiID, "event")}, "ItemSold"),
	}

	cache := fetch.NewCache(src)

	res, err := New(cache).Run(context.Background(), rootID)
	require.NoError(t, err)
	dumpOnFailure(t, res)

	assert.Equal(t, rootID, res.Package)
	assert.Equal(t, []move.EventRef{{Package: rootID, Module: "shop", Name: "ItemSold"}}, res.Events)
	assert.Equal(t, []move.QualifiedKey{key(rootID, "shop", "ItemSold")}, keys(res.Resolved))
	assert.Equal(t, suiID, res.Imports["object"])
	assert.False(t, res.Diagnostics.HasWarnings())

	assert.Equal(t, 0, src.callsFor("meta", suiID), "leaf wrappers are never fetched")
	assert.Equal(t, fetch.Stats{MetadataCalls: 1, BytecodeCalls: 1}, cache.Stats())
}

func TestResolveCycle(t *testing.T) {
	meta := move.Package{
		"graph": structs(map[string][]move.FieldDef{
			"A": {field("b", move.Struct(rootID, "graph", "B"))},
			"B": {field("a", move.Vector(move.Struct(rootID, "graph", "A")))},
		}),
	}

	res, err := New(fetch.NewCache(newChain())).Resolve(context.Background(), meta,
		[]move.EventRef{{Package: rootID, Module: "graph", Name: "A"}})
	require.NoError(t, err)
	dumpOnFailure(t, res)

	assert.Equal(t, []move.QualifiedKey{key(rootID, "graph", "A"), key(rootID, "graph", "B")}, keys(res.Resolved))
	assert.Len(t, res.Visited, 2)
	assert.Empty(t, res.Unresolved())
}

func TestResolveCrossPackageAndTypeArguments(t *testing.T) {
	src := newChain()
	src.meta[suiID] = move.Package{
		"coin": structs(map[string][]move.FieldDef{
			"Coin": {
				field("id", objectUID()),
				field("balance", move.Struct(suiID, "balance", "Balance", move.TypeParam(0))),
			},
		}),
		"balance": structs(map[string][]move.FieldDef{
			"Balance": {field("value", move.Prim(move.PrimitiveU64))},
		}),
		"sui": structs(map[string][]move.FieldDef{
			"SUI": {field("dummy_field", move.Prim(move.PrimitiveBool))},
		}),
	}

	meta := move.Package{
		"market": structs(map[string][]move.FieldDef{
			"Listed": {
				field("payment", move.Struct(suiID, "coin", "Coin", move.Struct(suiID, "sui", "SUI"))),
				field("note", move.Struct(stdID, "option", "Option", utf8())),
				field("bids", move.Struct(suiID, "table", "Table",
					move.Prim(move.PrimitiveAddress), move.Struct(rootID, "market", "Bid"))),
			},
			"Bid": {field("amount", move.Prim(move.PrimitiveU64))},
		}),
	}

	cache := fetch.NewCache(src)

	res, err := New(cache, WithConcurrency(2)).Resolve(context.Background(), meta,
		[]move.EventRef{{Package: rootID, Module: "market", Name: "Listed"}})
	require.NoError(t, err)
	dumpOnFailure(t, res)

	assert.Equal(t, []move.QualifiedKey{
		key(suiID, "balance", "Balance"),
		key(suiID, "coin", "Coin"),
		key(suiID, "sui", "SUI"),
		key(rootID, "market", "Bid"),
		key(rootID, "market", "Listed"),
	}, keys(res.Resolved))

	assert.Equal(t, 1, src.callsFor("meta", suiID))
	assert.Equal(t, 0, src.callsFor("meta", stdID), "option and string are not fetched")
	assert.False(t, res.Diagnostics.HasWarnings())
}

func TestResolveSharedExternalStructFetchedOnce(t *testing.T) {
	src := newChain()
	src.meta[libID] = move.Package{
		"common": structs(map[string][]move.FieldDef{
			"Meta": {field("label", utf8())},
		}),
	}

	meta := move.Package{
		"shop": structs(map[string][]move.FieldDef{
			"Opened": {field("meta", move.Struct(libID, "common", "Meta"))},
			"Closed": {field("meta", move.Struct(libID, "common", "Meta"))},
			"Moved":  {field("metas", move.Vector(move.Struct(libID, "common", "Meta")))},
		}),
	}

	events := []move.EventRef{
		{Package: rootID, Module: "shop", Name: "Closed"},
		{Package: rootID, Module: "shop", Name: "Moved"},
		{Package: rootID, Module: "shop", Name: "Opened"},
	}

	res, err := New(fetch.NewCache(src), WithConcurrency(4)).Resolve(context.Background(), meta, events)
	require.NoError(t, err)

	assert.Len(t, res.Resolved, 4)
	assert.Contains(t, res.Resolved, key(libID, "common", "Meta"))
	assert.Equal(t, 1, src.callsFor("meta", libID))
}

func TestResolveLocatesModuleThroughUseMap(t *testing.T) {
	src := newChain()
	src.meta[rootID] = move.Package{
		"shop": structs(map[string][]move.FieldDef{
			"Made": {field("thing", move.Struct(rootID, "dep", "Thing"))},
		}),
	}
	src.code[rootID] = move.Bytecode{
		"shop": disassembly(rootID, "shop", []string{use(depID, "dep")}, "Made"),
	}
	src.meta[depID] = move.Package{
		"dep": structs(map[string][]move.FieldDef{
			"Thing": {field("n", move.Prim(move.PrimitiveU8))},
		}),
	}

	res, err := New(fetch.NewCache(src)).Run(context.Background(), rootID)
	require.NoError(t, err)
	dumpOnFailure(t, res)

	def, ok := res.Resolved[key(rootID, "dep", "Thing")]
	require.True(t, ok)
	assert.Equal(t, "n", def.Struct.Fields[0].Name)
	assert.Equal(t, 1, src.callsFor("code", rootID))
}

func TestResolveSharedStructLocatedThroughUseMapOnce(t *testing.T) {
	thing := move.Struct(rootID, "dep", "Thing")

	src := newChain()
	src.meta[rootID] = move.Package{
		"shop": structs(map[string][]move.FieldDef{
			"Bought": {field("thing", thing), field("qty", move.Prim(move.PrimitiveU32))},
			"Sold":   {field("things", move.Vector(thing))},
		}),
	}
	src.code[rootID] = move.Bytecode{
		"shop": disassembly(rootID, "shop", []string{use(depID, "dep")}, "Bought", "Sold"),
	}
	src.meta[depID] = move.Package{
		"dep": structs(map[string][]move.FieldDef{
			"Thing": {field("n", move.Prim(move.PrimitiveU8))},
		}),
	}

	res, err := New(fetch.NewCache(src), WithConcurrency(4)).Run(context.Background(), rootID)
	require.NoError(t, err)
	dumpOnFailure(t, res)

	assert.Equal(t, []move.QualifiedKey{
		key(rootID, "dep", "Thing"),
		key(rootID, "shop", "Bought"),
		key(rootID, "shop", "Sold"),
	}, keys(res.Resolved))
	assert.Empty(t, res.Unresolved())

	assert.Equal(t, 1, src.callsFor("code", rootID))
	assert.Equal(t, 1, src.callsFor("meta", depID))
	assert.Equal(t, 0, src.callsFor("code", depID))
	assert.False(t, res.Diagnostics.HasWarnings())
}

func TestResolveUnresolvedReferenceIsAWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	src := newChain()
	src.fail[ghostID] = errors.New("connection refused")

	meta := move.Package{
		"shop": structs(map[string][]move.FieldDef{
			"Haunted": {
				field("ghost", move.Struct(ghostID, "spirit", "Ghost")),
				field("ok", move.Prim(move.PrimitiveBool)),
			},
		}),
	}

	res, err := New(fetch.NewCache(src), WithLogger(zap.New(core))).Resolve(context.Background(), meta,
		[]move.EventRef{{Package: rootID, Module: "shop", Name: "Haunted"}})
	require.NoError(t, err)
	dumpOnFailure(t, res)

	assert.Equal(t, []move.QualifiedKey{key(rootID, "shop", "Haunted")}, keys(res.Resolved))
	assert.Equal(t, []move.QualifiedKey{key(ghostID, "spirit", "Ghost")}, res.Unresolved())

	unresolved := res.Diagnostics.WithCode(diagnostic.CodeUnresolvedReference)
	require.Len(t, unresolved, 1)
	assert.Equal(t, key(ghostID, "spirit", "Ghost").String(), unresolved[0].Subject)
	assert.Equal(t, "shop-Haunted.ghost", unresolved[0].Field)
	assert.NotEmpty(t, res.Diagnostics.WithCode(diagnostic.CodeFetchFailed))

	assert.Equal(t, 1, logs.FilterMessage("unresolved reference").Len())
	assert.GreaterOrEqual(t, logs.FilterMessage("fetch failed").Len(), 1)
}

func TestResolveEventWithoutOwnerIsUnresolved(t *testing.T) {
	meta := move.Package{
		"shop": structs(map[string][]move.FieldDef{"Sold": nil}),
	}

	res, err := New(fetch.NewCache(newChain())).Resolve(context.Background(), meta,
		[]move.EventRef{{Module: "shop", Name: "Sold"}})
	require.NoError(t, err)

	assert.Empty(t, res.Resolved)
	assert.Len(t, res.Diagnostics.WithCode(diagnostic.CodeUnresolvedReference), 1)
}

func TestResolveNodeLimit(t *testing.T) {
	meta := move.Package{
		"graph": structs(map[string][]move.FieldDef{
			"A": {field("b", move.Struct(rootID, "graph", "B"))},
			"B": {field("c", move.Struct(rootID, "graph", "C"))},
			"C": nil,
		}),
	}

	res, err := New(fetch.NewCache(newChain()), WithMaxNodes(2)).Resolve(context.Background(), meta,
		[]move.EventRef{{Package: rootID, Module: "graph", Name: "A"}})
	require.NoError(t, err)

	assert.Len(t, res.Resolved, 2)
	assert.Len(t, res.Visited, 3)

	limited := res.Diagnostics.WithCode(diagnostic.CodeNodeLimit)
	require.Len(t, limited, 1)
	assert.Equal(t, key(rootID, "graph", "C").String(), limited[0].Subject)
}

func TestResolveCancelled(t *testing.T) {
	meta := move.Package{
		"graph": structs(map[string][]move.FieldDef{"A": nil}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fetch.NewCache(newChain())).Resolve(ctx, meta,
		[]move.EventRef{{Package: rootID, Module: "graph", Name: "A"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunRootFailuresAreFatal(t *testing.T) {
	t.Run("network", func(t *testing.T) {
		src := newChain()
		src.fail[rootID] = errors.New("dial tcp: connection refused")

		_, err := New(fetch.NewCache(src)).Run(context.Background(), rootID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root package 0xabc")
	})

	t.Run("malformed", func(t *testing.T) {
		src := newChain()
		src.fail[rootID] = fmt.Errorf("decode: %w", move.ErrMalformedMetadata)

		_, err := New(fetch.NewCache(src)).Run(context.Background(), rootID)
		require.ErrorIs(t, err, move.ErrMalformedMetadata)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := New(fetch.NewCache(newChain())).Run(context.Background(), "")
		require.ErrorIs(t, err, move.ErrMalformedMetadata)
	})
}

func TestRunWithoutMarkers(t *testing.T) {
	src := newChain()
	src.meta[rootID] = move.Package{"shop": structs(map[string][]move.FieldDef{"Sold": nil})}
	src.code[rootID] = move.Bytecode{"shop": "nothing to see here"}

	res, err := New(fetch.NewCache(src)).Run(context.Background(), rootID)
	require.NoError(t, err)

	assert.Empty(t, res.Events)
	assert.Empty(t, res.Imports)
	assert.Empty(t, res.Resolved)
}

func TestReferences(t *testing.T) {
	item := move.Struct(rootID, "shop", "Item")

	tests := []struct {
		name     string
		typ      *move.NormalizedType
		expected []string
	}{
		{"primitive", move.Prim(move.PrimitiveU64), nil},
		{"leaf", objectUID(), nil},
		{"plain", item, []string{"0xabc::shop::Item"}},
		{"nested vector", move.Vector(move.Vector(item)), []string{"0xabc::shop::Item"}},
		{"option", move.Struct(stdID, "option", "Option", item), []string{"0xabc::shop::Item"}},
		{"generic", move.Struct(suiID, "coin", "Coin", item), []string{"0x2::coin::Coin", "0xabc::shop::Item"}},
		{"table of leaves", move.Struct(suiID, "table", "Table", objectID(), utf8()), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, ref := range references(tt.typ) {
				got = append(got, ref.Address.String()+"::"+ref.Module+"::"+ref.Name)
			}

			assert.Equal(t, tt.expected, got)
		})
	}
}
