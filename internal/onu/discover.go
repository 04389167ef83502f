package onu

import (
	"regexp"
	"strings"

	"github.com/openisp/naps/internal/naperr"
)

// UncfgRow is one unregistered ONU as reported by the device.
type UncfgRow struct {
	OltIndex string `json:"olt_index"`
	Model    string `json:"model"`
	MAC      string `json:"mac"`
	SN       string `json:"sn"`
}

var (
	columnSplit = regexp.MustCompile(`\s{2,}`)
	ruleLine    = regexp.MustCompile(`^[-=_ ]+$`)
)

// ParseUncfg extracts unregistered ONUs from a discovery listing. The
// header is the first line carrying both OltIndex and Model, or Index plus
// one of MAC/SN; a separator rule after it is skipped, and data lines are
// split on runs of two or more spaces. Rows with no SN column are accepted.
func ParseUncfg(output string) ([]UncfgRow, error) {
	lines := strings.Split(output, "\n")

	headerAt := -1
	macOnly := false
	for i, line := range lines {
		if isUncfgHeader(line) {
			headerAt = i
			macOnly = strings.Contains(line, "MAC") && !strings.Contains(line, "SN")
			break
		}
	}
	if headerAt == -1 {
		return nil, naperr.New(naperr.Protocol, "no header line in discovery output")
	}

	var rows []UncfgRow
	for _, line := range lines[headerAt+1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || ruleLine.MatchString(trimmed) {
			continue
		}
		fields := columnSplit.Split(trimmed, -1)
		row := UncfgRow{}
		switch {
		case len(fields) >= 4:
			row = UncfgRow{OltIndex: fields[0], Model: fields[1], MAC: fields[2], SN: fields[3]}
		case len(fields) == 3:
			row = UncfgRow{OltIndex: fields[0], Model: fields[1]}
			if macOnly {
				row.MAC = fields[2]
			} else {
				row.SN = fields[2]
			}
		default:
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isUncfgHeader(line string) bool {
	if strings.Contains(line, "OltIndex") && strings.Contains(line, "Model") {
		return true
	}
	return strings.Contains(line, "Index") &&
		(strings.Contains(line, "MAC") || strings.Contains(line, "SN"))
}
