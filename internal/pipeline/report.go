package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wharfhq/wharf/internal/paths"
)

// Writes the run result to path as indented JSON, for CI systems and
// other tooling to pick up.
func WriteReport(path string, res *Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, paths.DefaultFileMode); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
