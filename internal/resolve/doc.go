// Package resolve computes the closure of struct and enum declarations
// reachable from the events a package emits.
//
// Resolution starts from the emitted event structs and walks field types.
// Each declaration is identified by its owning package plus its local
// "module-Name" name and is expanded at most once. A declaration missing from
// the metadata at hand is located through the owning package's bytecode:
// its "use" markers name the package declaring the module, whose metadata is
// then fetched. References that still cannot be found are recorded as
// diagnostics and the branch stops; resolution itself only fails when the
// root package cannot be fetched or the context is cancelled.
//
// A single coordinator goroutine owns the visited and resolved sets and
// hands expansion tasks to a bounded number of workers. Workers only fetch
// through the injected Fetcher and compute child keys.
package resolve
