package expstore

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ParamFile is a structured sub-configuration: a script-style parameter file
// holding nested assignments of the form
//
//	GROUP['SECTION']['FIELD'] = VALUE
//
// Mutation is a pattern match restricted to the one line carrying the
// addressed key; a key that does not exist leaves the file unchanged.
type ParamFile struct {
	path  string
	group string
	lines []string
}

// LoadParamFile reads a structured parameter file whose nested assignments
// are rooted at the given group name.
func LoadParamFile(path, group string) (*ParamFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file %s: %w", path, err)
	}
	return ParseParamFile(data, group, path), nil
}

// ParseParamFile builds a ParamFile from raw contents.
func ParseParamFile(data []byte, group, path string) *ParamFile {
	text := strings.TrimSuffix(string(data), "\n")
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	return &ParamFile{path: path, group: group, lines: lines}
}

// Set rewrites the value of GROUP['section']['field'] and reports whether a
// matching line was found.
func (p *ParamFile) Set(section, field, value string) bool {
	pattern := regexp.MustCompile(
		`^(\s*` + regexp.QuoteMeta(p.group) +
			`\['` + regexp.QuoteMeta(section) + `'\]` +
			`\['` + regexp.QuoteMeta(field) + `'\]\s*=\s*).*$`)
	for i, l := range p.lines {
		if m := pattern.FindStringSubmatch(l); m != nil {
			p.lines[i] = m[1] + value
			return true
		}
	}
	return false
}

// Get returns the raw value text of GROUP['section']['field'].
func (p *ParamFile) Get(section, field string) (string, bool) {
	pattern := regexp.MustCompile(
		`^\s*` + regexp.QuoteMeta(p.group) +
			`\['` + regexp.QuoteMeta(section) + `'\]` +
			`\['` + regexp.QuoteMeta(field) + `'\]\s*=\s*(.*)$`)
	for _, l := range p.lines {
		if m := pattern.FindStringSubmatch(l); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// Bytes serializes the file back into its textual form.
func (p *ParamFile) Bytes() []byte {
	if len(p.lines) == 0 {
		return nil
	}
	return []byte(strings.Join(p.lines, "\n") + "\n")
}

// Save writes the file back to the path it was loaded from.
func (p *ParamFile) Save() error {
	if err := os.WriteFile(p.path, p.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write parameter file %s: %w", p.path, err)
	}
	return nil
}
