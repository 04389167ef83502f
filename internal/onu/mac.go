package onu

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/openisp/naps/internal/naperr"
)

var hexOnly = regexp.MustCompile(`^[0-9a-f]{12}$`)

// NormalizeMAC renders a MAC address in the switch-table quartet form
// xxxx.xxxx.xxxx, accepting colon, dash and dot separated input.
func NormalizeMAC(mac string) (string, error) {
	clean := strings.ToLower(mac)
	clean = strings.NewReplacer(":", "", "-", "", ".", "", " ", "").Replace(clean)
	if !hexOnly.MatchString(clean) {
		return "", naperr.New(naperr.InvalidInput, "malformed MAC address %q", mac)
	}
	return clean[0:4] + "." + clean[4:8] + "." + clean[8:12], nil
}

// macTableRow matches a `show mac` line: VLAN first, the service vport
// last.
var macTableRow = regexp.MustCompile(`(?m)^\s*(\d+)\s+.*vport-(\d+)/(\d+)/(\d+)\.(\d+):\d+`)

// MACLocation is a located MAC: the raw switch output plus (if the entry
// was found) the PPPoE login-port string crews and the BRAS agree on.
type MACLocation struct {
	Found     bool   `json:"found"`
	LoginPort string `json:"login_port,omitempty"`
	Output    string `json:"output"`
}

// ParseMACLocation derives "<olt_ip> pon A/B/C/D:<vlan>" from a `show mac`
// listing. Absence of a matching row is not an error; the MAC may simply
// not be learned.
func ParseMACLocation(oltIP, output string) MACLocation {
	m := macTableRow.FindStringSubmatch(output)
	if m == nil {
		return MACLocation{Found: false, Output: output}
	}
	vlan, a, b, c, d := m[1], m[2], m[3], m[4], m[5]
	return MACLocation{
		Found:     true,
		LoginPort: fmt.Sprintf("%s pon %s/%s/%s/%s:%s", oltIP, a, b, c, d, vlan),
		Output:    output,
	}
}
