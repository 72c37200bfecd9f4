package cue

import (
	"encoding/json"
	"fmt"
	"os"
)

// ProgramVersion is the only show file format this build reads.
const ProgramVersion = "show.v1"

// ParseProgram decodes a show file and validates it enough to load.
func ParseProgram(data []byte) (Program, error) {
	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return Program{}, fmt.Errorf("parse show: %w", err)
	}
	if p.Version != ProgramVersion {
		return Program{}, fmt.Errorf("unsupported show version %q (want %s)", p.Version, ProgramVersion)
	}
	if len(p.Cues) == 0 {
		return Program{}, fmt.Errorf("show %q has no cues", p.Name)
	}
	return p, nil
}

// ReadProgram loads and parses a show file from disk.
func ReadProgram(path string) (Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Program{}, fmt.Errorf("read show: %w", err)
	}
	return ParseProgram(data)
}
