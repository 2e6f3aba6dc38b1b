package gen

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"
	"golang.org/x/tools/imports"

	"suigen/internal/naming"
)

// Output file names.
const (
	TypesFile    = "types.go"
	CursorFile   = "cursor.go"
	EventsFile   = "events.go"
	ManifestFile = "events.yaml"
)

// GeneratorConfig holds configuration for code generation.
type GeneratorConfig struct {
	// PackageName is the name of the generated package.
	PackageName string
	// OutputDir is where unformatted sources are dumped when formatting fails.
	OutputDir string
	// GenerateComments adds a doc comment to every declaration.
	GenerateComments bool
}

// DefaultGeneratorConfig returns the default generator configuration.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		PackageName:      "events",
		OutputDir:        "./generated",
		GenerateComments: true,
	}
}

// Generator renders models as Go source.
type Generator struct {
	config GeneratorConfig
	logger *zap.Logger
}

// NewGenerator creates a new Generator with the given configuration.
func NewGenerator(config GeneratorConfig, logger *zap.Logger) *Generator {
	if config.PackageName == "" {
		config.PackageName = DefaultGeneratorConfig().PackageName
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{config: config, logger: logger}
}

// GeneratedFile represents a generated file.
type GeneratedFile struct {
	// Filename is the name of the file (e.g., "types.go").
	Filename string
	// Content is the file content; Go sources are formatted.
	Content []byte
}

// Generate renders the declarations, the cursor type and the event registry.
func (g *Generator) Generate(models []Model) ([]GeneratedFile, error) {
	data := templateData{
		PackageName: g.config.PackageName,
		Cursor:      naming.CursorName,
		Registry:    naming.RegistryName,
	}

	for _, m := range models {
		data.Models = append(data.Models, modelView{Model: m, Doc: g.doc(m)})
	}

	var files []GeneratedFile

	for _, f := range []struct {
		name string
		tmpl *template.Template
	}{
		{TypesFile, typesTemplate},
		{CursorFile, cursorTemplate},
		{EventsFile, eventsTemplate},
	} {
		file, err := g.render(f.name, f.tmpl, data)
		if err != nil {
			return nil, err
		}

		files = append(files, *file)
	}

	g.logger.Debug("rendered go sources", zap.Int("models", len(models)), zap.Int("files", len(files)))

	return files, nil
}

func (g *Generator) render(filename string, tmpl *template.Template, data templateData) (*GeneratedFile, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template %s: %w", filename, err)
	}

	// Process formats the source and drops the json import when unused.
	formatted, err := imports.Process(filename, buf.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		if g.config.OutputDir != "" {
			_ = writeDebugUnformatted(g.config.OutputDir, filename, buf.Bytes())
		}

		return nil, fmt.Errorf("formatting %s: %w", filename, err)
	}

	return &GeneratedFile{Filename: filename, Content: formatted}, nil
}

// templateData holds all data needed by the Go templates.
type templateData struct {
	PackageName string
	Models      []modelView
	Cursor      string
	Registry    string
}

type modelView struct {
	Model
	Doc string
}

func (g *Generator) doc(m Model) string {
	if !g.config.GenerateComments {
		return ""
	}

	switch {
	case m.IsEvent:
		return "// " + m.Name + " is the payload of the " + m.EventType + " event."
	case m.IsEnum():
		return "// " + m.Name + " mirrors the enum " + m.Qualified() + "."
	default:
		return "// " + m.Name + " mirrors " + m.Qualified() + "."
	}
}

var funcs = template.FuncMap{
	"typeParams": func(params []string) string {
		if len(params) == 0 {
			return ""
		}

		return "[" + strings.Join(params, ", ") + " any]"
	},
	"instantiate": func(m modelView) string {
		if len(m.TypeParams) == 0 {
			return m.Name
		}

		args := make([]string, len(m.TypeParams))
		for i := range args {
			args[i] = "json.RawMessage"
		}

		return m.Name + "[" + strings.Join(args, ", ") + "]"
	},
}

var typesTemplate = template.Must(template.New("types").Funcs(funcs).Parse(`// Code generated by suigen. DO NOT EDIT.

package {{.PackageName}}

import "encoding/json"
{{range .Models}}{{$m := .}}
{{.Doc}}
{{- if .IsEnum}}
type {{.Name}} string

const (
{{- range .Variants}}
	{{.Const}} {{$m.Name}} = "{{.Value}}"
{{- end}}
)

// UnmarshalJSON accepts a bare variant name or a {"variant": ...} object.
func (e *{{.Name}}) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*e = {{.Name}}(name)
		return nil
	}

	var tagged struct {
		Variant string ` + "`json:\"variant\"`" + `
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}

	*e = {{.Name}}(tagged.Variant)

	return nil
}
{{- else}}
type {{.Name}}{{typeParams .TypeParams}} struct {
{{- range .Fields}}
	{{.Name}} {{.Type}} ` + "`json:\"{{.JSONName}}\"`" + `
{{- end}}
}
{{- end}}
{{end}}`))

var cursorTemplate = template.Must(template.New("cursor").Parse(`// Code generated by suigen. DO NOT EDIT.

package {{.PackageName}}

// {{.Cursor}} is the position of the last processed event, persisted by
// pollers to resume from.
type {{.Cursor}} struct {
	ID       string ` + "`json:\"id\"`" + `
	EventSeq string ` + "`json:\"eventSeq\"`" + `
	TxDigest string ` + "`json:\"txDigest\"`" + `
}
`))

var eventsTemplate = template.Must(template.New("events").Funcs(funcs).Parse(`// Code generated by suigen. DO NOT EDIT.

package {{.PackageName}}

import "encoding/json"

// {{.Registry}} maps on-chain event type strings, without type arguments, to
// constructors of their payloads. Generic payloads are instantiated with
// json.RawMessage arguments.
var {{.Registry}} = map[string]func() any{
{{- range .Models}}{{if .IsEvent}}
	"{{.EventType}}": func() any { return new({{instantiate .}}) },
{{- end}}{{end}}
}
`))
