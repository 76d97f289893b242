package reporting

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xkilldash9x/encore-e2e/internal/scenario"
)

// WriteJSON writes the report as indented JSON next to the screenshot
// artifacts.
func WriteJSON(path string, report *scenario.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run report %q: %w", path, err)
	}
	return nil
}
