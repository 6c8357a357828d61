package loader

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"

	v1 "github.com/giantswarm/chronosphere-sync/api/v1"
)

const templateSuffix = ".tmpl"

// TemplateData is passed to asset templates.
type TemplateData struct {
	Tenant string
	Pack   *v1.Pack
}

func isTemplate(path string) bool {
	return strings.HasSuffix(path, templateSuffix)
}

// render executes an asset template. Missing keys are errors so a typo never produces an empty field.
func render(name string, content []byte, data TemplateData) ([]byte, error) {
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(string(content))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return nil, errors.WithStack(err)
	}
	return out.Bytes(), nil
}
