package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ApplicantsFile is the dataset file name read by the ingest command.
const ApplicantsFile = "applicants.json"

// WriteDataset serializes the applicants into applicants.json under dir.
func WriteDataset(dataset Dataset, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, ApplicantsFile)
	if err := writeJSON(path, dataset.Applicants); err != nil {
		return "", err
	}
	return path, nil
}

func writeJSON(path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}
