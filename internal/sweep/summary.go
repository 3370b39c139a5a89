package sweep

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteSummary persists a sweep summary as YAML next to the collected
// results, so a finished sweep leaves a machine-readable record of what ran.
func WriteSummary(path string, summary *Summary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write sweep summary %s: %w", path, err)
	}
	return nil
}
