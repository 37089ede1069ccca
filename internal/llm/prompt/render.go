package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

// Data is what a system prompt template can reference.
type Data struct {
	InterviewQuestions any
	OngoingExchanges   any
	Contexts           any
}

var funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	},
}

// Parse compiles a system prompt template.
func Parse(text string) (*template.Template, error) {
	tmpl, err := template.New("prompt").Funcs(funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt template: %w", err)
	}
	return tmpl, nil
}

// Render executes the agent prompt against data.
func (a Agent) Render(data Data) (string, error) {
	tmpl, err := Parse(a.Prompt)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt of %s@%s: %w", a.Name, a.Version, err)
	}
	return buf.String(), nil
}
