package olt

import (
	"strings"
)

// errorMarkers flag a failed command in device output, matched
// case-insensitively after the false-positive whitelist is suppressed.
var errorMarkers = []string{
	"% invalid input detected",
	"% incomplete command",
	"% ambiguous command",
	"syntax error",
	"command not found",
	"failed to",
	"error:",
}

// falsePositives are phrases that contain a marker substring but report
// success. They are blanked out of a line before marker matching.
var falsePositives = []string{
	"[successful]",
	"successful",
	"no error",
	"error: 0",
	"error-free",
}

// CommandResult is the outcome of one CLI command. Indeterminate marks a
// command that was written to the device but whose response was never
// classified (the session ended mid-command); callers must treat such a
// command as possibly committed.
type CommandResult struct {
	Index         int
	Command       string
	Output        string
	OK            bool
	Indeterminate bool
	Errors        []string // the lines that matched an error marker
}

// Classify scans device output for error markers and returns the matching
// lines. Empty Errors means the command succeeded.
func Classify(output string) []string {
	var errLines []string
	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if lower == "" {
			continue
		}
		for _, fp := range falsePositives {
			lower = strings.ReplaceAll(lower, fp, "")
		}
		for _, marker := range errorMarkers {
			if strings.Contains(lower, marker) {
				errLines = append(errLines, strings.TrimSpace(line))
				break
			}
		}
	}
	return errLines
}
