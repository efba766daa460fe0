package compose

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"text/template"
)

//go:embed templates/document.html.tmpl
var templateFS embed.FS

// px formats a layout coordinate as a CSS pixel length.
func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

var docTemplate = template.Must(
	template.New("document.html.tmpl").
		Funcs(template.FuncMap{"px": px}).
		ParseFS(templateFS, "templates/document.html.tmpl"),
)

// HTML renders the document markup: one fixed-size zero-margin block per
// page with a single absolutely positioned image, transparent background,
// and a forced page break after every page except the last.
func (d Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := docTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("failed to execute document template: %w", err)
	}
	return buf.String(), nil
}
