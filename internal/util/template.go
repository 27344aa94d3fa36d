package util

import (
	"strings"
	"text/template"
)

// RenderTemplate fills {{.name}} references in text from vars. Text without
// template markers is returned as is. A reference to a variable vars does not
// hold fails instead of rendering "<no value>".
func RenderTemplate(text string, vars map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("instruction").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}

	if vars == nil {
		vars = map[string]any{}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", err
	}
	return sb.String(), nil
}
