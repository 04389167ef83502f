package onu

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/openisp/naps/internal/naperr"
)

// Two descriptor formats coexist in customer records. The interface form
// predates the login-port form; both must keep parsing.
var (
	ifaceDescriptor = regexp.MustCompile(`^gpon[-_]o(?:lt|nu)[-_](\d+/\d+/\d+):(\d+)$`)
	portDescriptor  = regexp.MustCompile(`^\S+ pon (\d+)/(\d+)/(\d+)/(\d+):\d+$`)
)

// Descriptor locates a provisioned ONU on its OLT.
type Descriptor struct {
	Path string // rack/shelf/port
	Slot int
}

// ParseDescriptor reads a stored port descriptor in either historical
// format: "gpon-olt_A/B/C:S" (also the C600 underscore variant) or
// "<ip> pon A/B/C/S:<vlan>".
func ParseDescriptor(desc string) (Descriptor, error) {
	if m := ifaceDescriptor.FindStringSubmatch(desc); m != nil {
		slot, _ := strconv.Atoi(m[2])
		return Descriptor{Path: m[1], Slot: slot}, nil
	}
	if m := portDescriptor.FindStringSubmatch(desc); m != nil {
		slot, _ := strconv.Atoi(m[4])
		return Descriptor{Path: fmt.Sprintf("%s/%s/%s", m[1], m[2], m[3]), Slot: slot}, nil
	}
	return Descriptor{}, naperr.New(naperr.InvalidInput, "unparseable port descriptor %q", desc)
}

// FormatDescriptor renders the current descriptor form stored on newly
// provisioned customers.
func FormatDescriptor(oltIP, path string, slot, vlan int) string {
	return fmt.Sprintf("%s pon %s/%d:%d", oltIP, path, slot, vlan)
}
