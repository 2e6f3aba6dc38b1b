// Package gen renders resolved Move declarations as Go source and writes
// the event manifest.
//
// BuildModels assigns every resolved declaration a Go name, maps its field
// types and orders the result dependencies first. Generator renders the
// models with text/template and runs the output through goimports
// formatting. The output package holds:
//   - types.go: one struct or string enum per declaration
//   - cursor.go: the Cursor type pollers persist
//   - events.go: the EventTypes registry of event payload constructors
//
// References to declarations that were not resolved render as
// json.RawMessage.
package gen
