package expstore

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// line is one physical line of the backing file. Non-parameter lines
// (comments, blanks) are preserved verbatim so a round-trip through the store
// only ever changes the values that were actually set.
type line struct {
	raw   string
	name  string
	param bool
}

// Store is an ordered mapping of parameter names to string values, persisted
// as line-oriented NAME=VALUE assignments.
type Store struct {
	lines    []line
	index    map[string]int
	formulas map[string]*Formula
	nested   *ParamFile
}

// New returns an empty store with no parameters defined.
func New() *Store {
	return &Store{
		index:    make(map[string]int),
		formulas: make(map[string]*Formula),
	}
}

// Parse builds a store from the textual NAME=VALUE form.
func Parse(data []byte) *Store {
	s := New()
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return s
	}
	for _, raw := range strings.Split(text, "\n") {
		name, ok := parseAssignment(raw)
		if !ok {
			s.lines = append(s.lines, line{raw: raw})
			continue
		}
		s.index[name] = len(s.lines)
		s.lines = append(s.lines, line{raw: raw, name: name, param: true})
	}
	return s
}

// Load reads a store from disk.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config store %s: %w", path, err)
	}
	return Parse(data), nil
}

// parseAssignment reports whether a line is a NAME=VALUE assignment and
// returns the name. Names are uppercase-style identifiers; anything else is
// passed through untouched.
func parseAssignment(raw string) (string, bool) {
	eq := strings.IndexByte(raw, '=')
	if eq <= 0 {
		return "", false
	}
	name := strings.TrimSpace(raw[:eq])
	if name == "" || strings.HasPrefix(name, "#") {
		return "", false
	}
	for _, r := range name {
		valid := r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !valid {
			return "", false
		}
	}
	return name, true
}

// Get returns the current value of a parameter.
func (s *Store) Get(name string) (string, bool) {
	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	raw := s.lines[i].raw
	return strings.TrimSpace(raw[strings.IndexByte(raw, '=')+1:]), true
}

// Set replaces the value of an existing parameter and reports whether the
// name was known. Unknown names leave the store unchanged.
//
// A dotted name such as "consensus.module" addresses the attached structured
// parameter file instead of the flat store.
func (s *Store) Set(name string, value any) bool {
	if section, field, ok := strings.Cut(name, "."); ok {
		if s.nested == nil {
			return false
		}
		return s.nested.Set(section, field, FormatValue(value))
	}
	i, ok := s.index[name]
	if !ok {
		return false
	}
	s.lines[i].raw = name + "=" + FormatValue(value)
	return true
}

// Names returns all parameter names in file order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.index))
	for _, l := range s.lines {
		if l.param {
			names = append(names, l.name)
		}
	}
	return names
}

// AttachParamFile routes dotted Set calls into a structured parameter file.
func (s *Store) AttachParamFile(pf *ParamFile) {
	s.nested = pf
}

// SaveParamFile persists the attached structured parameter file back to the
// path it was loaded from. The backend reads that file from disk, so nested
// mutations are invisible to it until this is called. A store without an
// attached file, or one built from in-memory contents, has nothing to persist.
func (s *Store) SaveParamFile() error {
	if s.nested == nil || s.nested.path == "" {
		return nil
	}
	return s.nested.Save()
}

// Snapshot returns a deep copy of the store. The copy shares no state with
// the original, so it can be serialized or rendered while the original keeps
// being mutated by the sweep.
func (s *Store) Snapshot() *Store {
	cp := New()
	cp.lines = append(cp.lines, s.lines...)
	for k, v := range s.index {
		cp.index[k] = v
	}
	for k, v := range s.formulas {
		cp.formulas[k] = v
	}
	return cp
}

// Bytes serializes the store back into its textual form.
func (s *Store) Bytes() []byte {
	var b strings.Builder
	for _, l := range s.lines {
		b.WriteString(l.raw)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Save writes the textual form to disk.
func (s *Store) Save(path string) error {
	if err := os.WriteFile(path, s.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config store %s: %w", path, err)
	}
	return nil
}

// Environ renders the parameters as KEY=VALUE pairs in file order, suitable
// for the environment of a backend child process.
func (s *Store) Environ() []string {
	env := make([]string, 0, len(s.index))
	for _, l := range s.lines {
		if !l.param {
			continue
		}
		value, _ := s.Get(l.name)
		env = append(env, l.name+"="+value)
	}
	return env
}

// FormatValue renders a parameter value the same way regardless of whether it
// arrived as a string or a number, keeping rendered output deterministic.
func FormatValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
