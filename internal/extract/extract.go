// Package extract scans disassembled Move bytecode for the three facts the
// resolver needs per module: the owner address, imported module -> package
// pairs and the type names passed to event::emit.
//
// Scanning is purely lexical. Lines that do not carry a marker are ignored.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"suigen/internal/common"
	"suigen/internal/move"
)

var (
	moduleMarker = regexp.MustCompile(`module\s+([0-9a-fA-Fx]+)\.(\w+)`)
	useMarker    = regexp.MustCompile(`use\s+([0-9a-fA-Fx]+)::(\w+)`)
	emitMarker   = regexp.MustCompile(`event::emit<(\w+)>`)
)

// Facts is what one module's disassembly says about itself.
type Facts struct {
	// Owner is the declaring package address, empty when the module marker is
	// missing or malformed.
	Owner move.PackageID
	// Module is the module name from the module marker.
	Module string
	// Imports maps imported module names to their packages.
	Imports map[string]move.PackageID
	// Emits lists distinct emitted type names in first-seen order.
	Emits []string
}

// Scan extracts Facts from the disassembled text of one module.
func Scan(text string) Facts {
	facts := Facts{Imports: make(map[string]move.PackageID)}
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		if facts.Module == "" {
			if m := moduleMarker.FindStringSubmatch(line); m != nil {
				facts.Owner = move.ParsePackageID(m[1])
				facts.Module = m[2]

				continue
			}
		}

		for _, m := range useMarker.FindAllStringSubmatch(line, -1) {
			if id := move.ParsePackageID(m[1]); !id.IsZero() {
				facts.Imports[m[2]] = id
			}
		}

		for _, m := range emitMarker.FindAllStringSubmatch(line, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				facts.Emits = append(facts.Emits, m[1])
			}
		}
	}

	return facts
}

// Events returns the emitted types of every module that name a struct the
// module declares in pkg. Emit arguments that are not declared structs, such
// as generic parameters, are dropped. The result is sorted and free of
// duplicates.
func Events(bytecode move.Bytecode, pkg move.Package) []move.EventRef {
	set := make(map[move.EventRef]struct{})

	for _, module := range sortedModules(bytecode) {
		facts := Scan(bytecode[module])

		for _, name := range facts.Emits {
			if !pkg.HasStruct(module, name) {
				continue
			}

			set[move.EventRef{Package: facts.Owner, Module: module, Name: name}] = struct{}{}
		}
	}

	events := make([]move.EventRef, 0, len(set))
	for ev := range set {
		events = append(events, ev)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Key().Less(events[j].Key())
	})

	return events
}

// Imports merges the use markers of every module into a single
// module -> package map. A module name imported from two packages keeps the
// one seen last in module name order.
func Imports(bytecode move.Bytecode) map[string]move.PackageID {
	out := make(map[string]move.PackageID)

	for _, module := range sortedModules(bytecode) {
		for name, id := range Scan(bytecode[module]).Imports {
			out[name] = id
		}
	}

	return out
}

func sortedModules(bytecode move.Bytecode) []string {
	return common.SortedKeys(bytecode)
}
