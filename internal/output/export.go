package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// ExportJSON writes the summary to a JSON file. The file is guarded with an
// advisory lock so concurrent runs sharing an export path do not interleave.
func ExportJSON(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return writeLocked(path, append(data, '\n'))
}

// ExportYAML writes the summary to a YAML file, with the same locking as
// ExportJSON.
func ExportYAML(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return writeLocked(path, data)
}

func writeLocked(path string, data []byte) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	return os.WriteFile(path, data, 0o644)
}
