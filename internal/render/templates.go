package render

import (
	"bytes"
	"embed"
	"html/template"
	"strings"

	"resumeforge/api/internal/reconcile"
)

//go:embed templates/*.html
var templateFS embed.FS

var resumeTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"join":  strings.Join,
	}

	templateContent, err := templateFS.ReadFile("templates/resume.html")
	if err != nil {
		// Fallback to built-in template if file not found
		resumeTemplate = template.Must(template.New("resume").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	resumeTemplate = template.Must(template.New("resume").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for resume template rendering
type TemplateData struct {
	Template string
	Doc      reconcile.Document
}

// RenderResumeHTML renders the resume template for the given document.
// The template name becomes a CSS class so registry templates can restyle
// the same markup.
func RenderResumeHTML(doc reconcile.Document, templateName string) (string, error) {
	var buf bytes.Buffer
	data := TemplateData{Template: templateName, Doc: doc}
	if err := resumeTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Doc.DisplayName}}</title>
  <style>
    body { font-family: Georgia, serif; line-height: 1.4; max-width: 800px; margin: 2rem auto; }
    h1 { margin-bottom: 0; }
    h2 { border-bottom: 1px solid #333; padding-bottom: 0.25rem; }
    .contact { color: #444; font-size: 0.9em; margin-bottom: 1.5rem; }
    .item { margin-bottom: 0.75rem; }
  </style>
</head>
<body class="{{.Template | lower}}">
  <h1>{{.Doc.DisplayName}}</h1>
  <div class="contact">{{.Doc.Email}} | {{.Doc.Phone}} | {{.Doc.Location}}{{range .Doc.Links}} | {{.}}{{end}}</div>
  {{range .Doc.Sections}}
  <h2>{{.Title}}</h2>
  {{range .Items}}
  <div class="item">
    {{if .Catalog}}
    <strong>{{index .Fields "title"}}{{index .Fields "role"}}{{index .Fields "school"}}</strong>
    <ul>{{range .Bullets}}<li>{{.}}</li>{{end}}</ul>
    {{else}}
    <strong>{{.Title}}</strong> — {{.Organization}}, {{.Location}}
    <div>{{.Description}}</div>
    {{end}}
  </div>
  {{end}}
  {{end}}
</body>
</html>`
