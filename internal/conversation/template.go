package conversation

import (
	"strings"

	"modelmux/internal/core"
)

// RenderTemplate substitutes vars into the template using its own delimiter
// pair. Every placeholder must resolve; an unknown variable or a malformed
// placeholder fails with TemplateRenderError.
func RenderTemplate(t *PromptTemplate, vars map[string]string) (string, error) {
	open, closing := t.OpenDelim, t.CloseDelim
	if open == "" || closing == "" {
		return "", core.Errorf(core.CodeTemplateRenderError,
			"template %d has empty delimiters", t.ID)
	}

	var out strings.Builder
	rest := t.Content
	for {
		start := strings.Index(rest, open)
		if start < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:start])
		rest = rest[start+len(open):]

		end := strings.Index(rest, closing)
		if end < 0 {
			return "", core.Errorf(core.CodeTemplateRenderError,
				"template %d: unterminated placeholder", t.ID)
		}
		name := strings.TrimSpace(rest[:end])
		rest = rest[end+len(closing):]

		value, ok := vars[name]
		if !ok {
			return "", core.Errorf(core.CodeTemplateRenderError,
				"template %d: no value for variable %q", t.ID, name)
		}
		out.WriteString(value)
	}
}
