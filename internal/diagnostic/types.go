package diagnostic

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Diagnostic codes.
const (
	CodeUnresolvedReference  = "unresolved_reference"
	CodeUnknownTypeShape     = "unknown_type_shape"
	CodeNodeLimit            = "node_limit"
	CodeDuplicateDeclaration = "duplicate_declaration"
	CodeFetchFailed          = "fetch_failed"
)

// Diagnostics holds all diagnostic information from one run.
type Diagnostics struct {
	mu       sync.Mutex
	warnings []Diagnostic
	infos    []Diagnostic
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	// Severity of the diagnostic.
	Severity Severity
	// Code is a unique identifier for this type of diagnostic.
	Code string
	// Message is the human-readable description.
	Message string
	// Subject is the qualified declaration this relates to (if any).
	Subject string
	// Field identifies which field this relates to (if any).
	Field string
}

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// New returns an empty collector.
func New() *Diagnostics {
	return &Diagnostics{}
}

// AddWarning adds a warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, subject, field string) {
	d.add(&d.warnings, SeverityWarning, code, message, subject, field)
}

// AddInfo adds an info diagnostic.
func (d *Diagnostics) AddInfo(code, message, subject, field string) {
	d.add(&d.infos, SeverityInfo, code, message, subject, field)
}

func (d *Diagnostics) add(dst *[]Diagnostic, sev Severity, code, message, subject, field string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	*dst = append(*dst, Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  message,
		Subject:  subject,
		Field:    field,
	})
}

// Warnings returns a sorted copy of the warning diagnostics.
func (d *Diagnostics) Warnings() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()

	return sorted(d.warnings)
}

// Infos returns a sorted copy of the info diagnostics.
func (d *Diagnostics) Infos() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()

	return sorted(d.infos)
}

// WithCode returns the warnings and infos carrying code.
func (d *Diagnostics) WithCode(code string) []Diagnostic {
	var out []Diagnostic

	for _, diag := range append(d.Warnings(), d.Infos()...) {
		if diag.Code == code {
			out = append(out, diag)
		}
	}

	return out
}

// HasWarnings returns true if there are any warning diagnostics.
func (d *Diagnostics) HasWarnings() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.warnings) > 0
}

// String returns a formatted diagnostic string.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Subject != "" {
		prefix = append(prefix, "["+d.Subject+"]")
	}

	if d.Field != "" {
		prefix = append(prefix, d.Field)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}

// sorted copies in and orders by code, subject, field, message. Resolver
// branches finish in any order; output must not depend on it.
func sorted(in []Diagnostic) []Diagnostic {
	out := append([]Diagnostic(nil), in...)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}

		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}

		if a.Field != b.Field {
			return a.Field < b.Field
		}

		return a.Message < b.Message
	})

	return out
}
