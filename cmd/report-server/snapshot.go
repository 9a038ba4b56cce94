package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ehr/healthreport/internal/report"
)

func extension(path string) string {
	return filepath.Ext(path)
}

// loadSnapshot decodes a report snapshot from a .json, .yaml or .yml file.
func loadSnapshot(path string) (*report.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var d report.Data
	switch strings.ToLower(extension(path)) {
	case ".json":
		err = json.Unmarshal(raw, &d)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &d)
	default:
		return nil, fmt.Errorf("snapshot %s: unsupported extension (want .json, .yaml or .yml)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &d, nil
}
