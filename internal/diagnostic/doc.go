// Package diagnostic collects the non-fatal findings of a generation run:
// references that could not be resolved, field types with no typed
// rendering, declarations dropped by the node cap, and renamed declarations
// whose synthesized names collided.
//
// Warnings mark output that lost type information; infos only explain it.
//
// A Diagnostics value is safe for concurrent use; resolver workers and the
// renderer record into the same instance.
package diagnostic
