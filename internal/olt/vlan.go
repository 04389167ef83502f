package olt

import (
	"strconv"
	"strings"

	"github.com/openisp/naps/internal/naperr"
)

// ParseVLANCSV parses a comma-separated VLAN list. Every token must be a
// decimal integer in 1-4094 after trimming; an empty string is an empty
// list.
func ParseVLANCSV(csv string) ([]int, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}
	var vlans []int
	for _, token := range strings.Split(csv, ",") {
		token = strings.TrimSpace(token)
		v, err := strconv.Atoi(token)
		if err != nil {
			return nil, naperr.New(naperr.InvalidInput, "INVALID_VLAN: %q is not an integer", token)
		}
		if v < 1 || v > 4094 {
			return nil, naperr.New(naperr.InvalidInput, "INVALID_VLAN: %d out of range 1-4094", v)
		}
		vlans = append(vlans, v)
	}
	return vlans, nil
}

// VLANMember reports whether vlan appears in the parsed list.
func VLANMember(vlans []int, vlan int) bool {
	for _, v := range vlans {
		if v == vlan {
			return true
		}
	}
	return false
}
