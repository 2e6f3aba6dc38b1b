package resolve

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"suigen/internal/diagnostic"
	"suigen/internal/extract"
	"suigen/internal/fetch"
	"suigen/internal/move"
)

// expand resolves one key and computes its children. It runs on a worker
// goroutine and touches no coordinator state; diags is safe for concurrent
// use.
func (r *Resolver) expand(ctx context.Context, t task, diags *diagnostic.Diagnostics) outcome {
	out := outcome{task: t}
	logger := r.logger.With(zap.String("key", t.key.String()))

	if t.key.Package.IsZero() {
		r.unresolved(logger, diags, t, "owning package address is missing or malformed")
		return out
	}

	local, localID := t.local, t.localID
	if localID != t.key.Package || local == nil {
		local, localID = r.metadataFor(ctx, logger, diags, t)
	}

	def, ok := local.Lookup(t.key.Module, t.key.Name)
	if !ok {
		local, localID, def, ok = r.locate(ctx, logger, diags, t)
	}

	if !ok {
		r.unresolved(logger, diags, t, "declaration not found")
		return out
	}

	logger.Debug("resolved", zap.Stringer("kind", def.Kind), zap.String("from", localID.String()))

	out.def, out.found = def, true

	if def.Kind != move.DefinitionStruct {
		return out
	}

	for _, f := range def.Struct.Fields {
		for _, ref := range references(f.Type) {
			child := task{
				key:    move.KeyOf(ref),
				origin: t.key.Local() + "." + f.Name,
			}

			if ref.Address == localID {
				child.local, child.localID = local, localID
			}

			out.children = append(out.children, child)
		}
	}

	return out
}

// metadataFor fetches the metadata of the key's own package. A failure is
// recorded and yields no metadata; locate may still find the declaration.
func (r *Resolver) metadataFor(
	ctx context.Context,
	logger *zap.Logger,
	diags *diagnostic.Diagnostics,
	t task,
) (move.Package, move.PackageID) {
	meta, err := r.fetcher.Metadata(ctx, t.key.Package)
	if err != nil {
		r.fetchFailed(logger, diags, t.key.Package, "metadata", err)
		return nil, ""
	}

	return meta, t.key.Package
}

// locate finds a declaration through the owning package's use-map: the
// "use" marker for the key's module names the package declaring it.
func (r *Resolver) locate(
	ctx context.Context,
	logger *zap.Logger,
	diags *diagnostic.Diagnostics,
	t task,
) (move.Package, move.PackageID, move.Definition, bool) {
	code, err := r.fetcher.Bytecode(ctx, t.key.Package)
	if err != nil {
		r.fetchFailed(logger, diags, t.key.Package, "bytecode", err)
		return nil, "", move.Definition{}, false
	}

	declaring, ok := extract.Imports(code)[t.key.Module]
	if !ok || declaring.IsZero() {
		logger.Debug("module not in use-map", zap.String("module", t.key.Module))
		return nil, "", move.Definition{}, false
	}

	meta, err := r.fetcher.Metadata(ctx, declaring)
	if err != nil {
		r.fetchFailed(logger, diags, declaring, "metadata", err)
		return nil, "", move.Definition{}, false
	}

	def, ok := meta.Lookup(t.key.Module, t.key.Name)

	return meta, declaring, def, ok
}

func (r *Resolver) unresolved(logger *zap.Logger, diags *diagnostic.Diagnostics, t task, reason string) {
	logger.Warn("unresolved reference", zap.String("reason", reason), zap.String("origin", t.origin))
	diags.AddWarning(diagnostic.CodeUnresolvedReference, reason, t.key.String(), t.origin)
}

func (r *Resolver) fetchFailed(logger *zap.Logger, diags *diagnostic.Diagnostics, id move.PackageID, what string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Debug("fetch interrupted", zap.String("package", id.String()), zap.Error(err))
		return
	}

	if errors.Is(err, fetch.ErrEmptyPackage) {
		return
	}

	logger.Warn("fetch failed", zap.String("package", id.String()), zap.String("what", what), zap.Error(err))
	diags.AddWarning(diagnostic.CodeFetchFailed, fmt.Sprintf("fetch %s: %v", what, err), id.String(), "")
}

// references lists the struct references of a field type that need their
// own declaration. Vectors are unwrapped at any depth. Leaf wrappers
// (object ids, strings) are skipped entirely; generic framework wrappers are
// skipped but their type arguments are followed, as are the type arguments
// of ordinary structs.
func references(t *move.NormalizedType) []*move.StructRef {
	var out []*move.StructRef

	var walk func(*move.NormalizedType)

	walk = func(t *move.NormalizedType) {
		if t == nil {
			return
		}

		switch t.Kind {
		case move.KindVector:
			walk(t.Elem)
		case move.KindStruct:
			ref := t.Struct
			if move.IsLeafModule(ref.Module) {
				return
			}

			if move.Wrapper(ref) == move.WrapperNone {
				out = append(out, ref)
			}

			for _, arg := range ref.TypeArguments {
				walk(arg)
			}
		}
	}

	walk(t)

	return out
}
