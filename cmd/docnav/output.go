package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// outputFormat is the encoding used for command results.
type outputFormat string

const (
	formatYAML outputFormat = "yaml"
	formatJSON outputFormat = "json"
)

func parseFormat(s string) (outputFormat, error) {
	switch s {
	case "yaml", "":
		return formatYAML, nil
	case "json":
		return formatJSON, nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// writeOutput encodes data to w in the given format.
func writeOutput(w io.Writer, format outputFormat, data any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func (c *cli) print(w io.Writer, data any) error {
	format, err := parseFormat(c.output)
	if err != nil {
		return err
	}
	return writeOutput(w, format, data)
}
