package sweep

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/donatienLeray/toychain-argos/internal/ctxlog"
	"github.com/donatienLeray/toychain-argos/internal/experr"
	"github.com/donatienLeray/toychain-argos/internal/fsutil"
)

// Assignment is one parameter mutation applied by a step.
type Assignment struct {
	Name  string
	Value string
}

// Step is one fully resolved parameter combination. Its label is the
// deterministic concatenation of the sweep label and the active loop values.
type Step struct {
	Label       string
	Assignments []Assignment
	Repetitions int
	Collect     bool
}

// Specification is the ordered list of steps a sweep will execute.
type Specification struct {
	Steps []Step
}

// specFile is the top-level HCL structure of a sweep file.
type specFile struct {
	Sweeps []*sweepBlock `hcl:"sweep,block"`
}

type sweepBlock struct {
	Label       string       `hcl:"label,label"`
	Repetitions int          `hcl:"repetitions,optional"`
	Collect     bool         `hcl:"collect,optional"`
	Loops       []*loopBlock `hcl:"loop,block"`
}

type loopBlock struct {
	Name   string    `hcl:"name,label"`
	Values cty.Value `hcl:"values"`
}

// Load parses every .hcl file under path (a file or a directory) and expands
// the sweep blocks into a flat, validated Specification.
func Load(ctx context.Context, path string) (*Specification, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find sweep files in %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl sweep files found in %s", path)
	}
	logger.Debug("Discovered sweep files.", "count", len(files))

	parser := hclparse.NewParser()
	var blocks []*sweepBlock
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse sweep file %s: %w", file, diags)
		}
		var root specFile
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode sweep file %s: %w", file, diags)
		}
		blocks = append(blocks, root.Sweeps...)
	}

	return expand(blocks)
}

// ParseSpec expands sweep blocks from in-memory HCL source. Used by tests
// and by callers that already hold the file contents.
func ParseSpec(src []byte, filename string) (*Specification, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse sweep source %s: %w", filename, diags)
	}
	var root specFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode sweep source %s: %w", filename, diags)
	}
	return expand(root.Sweeps)
}

// expand turns sweep blocks into concrete steps: the cartesian product of
// every loop's values in fixed outer-to-inner declaration order. A label
// collision across the whole specification is a configuration error, never a
// silent overwrite.
func expand(blocks []*sweepBlock) (*Specification, error) {
	spec := &Specification{}
	seen := make(map[string]struct{})

	for _, block := range blocks {
		reps := block.Repetitions
		if reps <= 0 {
			reps = 1
		}

		loops := make([]loopValues, 0, len(block.Loops))
		for _, l := range block.Loops {
			values, err := decodeValues(l)
			if err != nil {
				return nil, err
			}
			loops = append(loops, loopValues{name: l.Name, values: values})
		}

		steps, err := cross(block.Label, loops, reps, block.Collect)
		if err != nil {
			return nil, err
		}
		for _, step := range steps {
			if _, dup := seen[step.Label]; dup {
				return nil, &experr.ConfigurationError{
					Name:   step.Label,
					Reason: "duplicate step label; loop values must produce a unique label per combination",
				}
			}
			seen[step.Label] = struct{}{}
			spec.Steps = append(spec.Steps, step)
		}
	}

	if len(spec.Steps) == 0 {
		return nil, &experr.ConfigurationError{Name: "sweep", Reason: "specification contains no steps"}
	}
	return spec, nil
}

type loopValues struct {
	name   string
	values []string
}

// cross recursively builds the cartesian product of the loops.
func cross(label string, loops []loopValues, reps int, collect bool) ([]Step, error) {
	if len(loops) == 0 {
		return []Step{{Label: label, Repetitions: reps, Collect: collect}}, nil
	}

	var steps []Step
	var walk func(prefix string, assignments []Assignment, rest []loopValues)
	walk = func(prefix string, assignments []Assignment, rest []loopValues) {
		if len(rest) == 0 {
			steps = append(steps, Step{
				Label:       prefix,
				Assignments: append([]Assignment(nil), assignments...),
				Repetitions: reps,
				Collect:     collect,
			})
			return
		}
		loop := rest[0]
		for _, v := range loop.values {
			walk(prefix+"_"+v, append(assignments, Assignment{Name: loop.name, Value: v}), rest[1:])
		}
	}
	walk(label, nil, loops)
	return steps, nil
}

// decodeValues converts a loop's HCL values list into strings.
func decodeValues(l *loopBlock) ([]string, error) {
	if l.Values.IsNull() || !l.Values.CanIterateElements() {
		return nil, &experr.ConfigurationError{Name: l.Name, Reason: "loop values must be a non-empty list"}
	}
	var out []string
	for it := l.Values.ElementIterator(); it.Next(); {
		_, v := it.Element()
		s, err := ctyToString(v)
		if err != nil {
			return nil, &experr.ConfigurationError{Name: l.Name, Reason: err.Error()}
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, &experr.ConfigurationError{Name: l.Name, Reason: "loop values must be a non-empty list"}
	}
	return out, nil
}

// ctyToString renders a scalar cty value the way it would appear in the
// configuration file.
func ctyToString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("null value in loop values")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Number:
		return v.AsBigFloat().Text('f', -1), nil
	case cty.Bool:
		if v.True() {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("unsupported loop value type %s", v.Type().FriendlyName())
	}
}
