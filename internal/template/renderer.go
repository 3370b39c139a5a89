// Package template expands configuration templates against the experiment
// store. Substitution is a single pass: a substituted value is never itself
// re-scanned for placeholders, which rules out expansion loops and value
// injection outright.
package template

import (
	"fmt"
	"os"
	"regexp"

	"github.com/donatienLeray/toychain-argos/internal/experr"
	"github.com/donatienLeray/toychain-argos/internal/expstore"
)

// placeholderPattern matches ${NAME} tokens. One token references exactly one
// store parameter.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Renderer substitutes store values into a template document. The handling
// of unresolved placeholders is fixed at construction: strict renderers fail,
// permissive renderers leave the token verbatim.
type Renderer struct {
	strict bool
}

// NewRenderer returns a strict renderer.
func NewRenderer() *Renderer {
	return &Renderer{strict: true}
}

// NewPermissiveRenderer returns a renderer that leaves unresolved
// placeholders in place instead of failing.
func NewPermissiveRenderer() *Renderer {
	return &Renderer{strict: false}
}

// Render expands every placeholder in the template with the value it resolves
// to in the store. It is a pure function of (template, store snapshot):
// identical inputs produce byte-identical output and the store is never
// mutated.
func (r *Renderer) Render(tmpl []byte, store *expstore.Store) ([]byte, error) {
	var firstErr error
	out := placeholderPattern.ReplaceAllFunc(tmpl, func(token []byte) []byte {
		name := string(token[2 : len(token)-1])
		value, ok, err := store.Resolve(name)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return token
		}
		if !ok {
			if r.strict && firstErr == nil {
				firstErr = &experr.MissingParameterError{Name: name}
			}
			return token
		}
		return []byte(value)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// RenderFile expands a template file and writes the rendered configuration
// to outPath, overwriting whatever the previous run left there.
func (r *Renderer) RenderFile(tmplPath, outPath string, store *expstore.Store) error {
	tmpl, err := os.ReadFile(tmplPath)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", tmplPath, err)
	}
	rendered, err := r.Render(tmpl, store)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, rendered, 0644); err != nil {
		return fmt.Errorf("failed to write rendered configuration %s: %w", outPath, err)
	}
	return nil
}
