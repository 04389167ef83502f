package radius

import (
	"encoding/binary"
	"log"
	"net"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2869"
)

// ExtraAttr is an additional request attribute. Either Name/Value for a
// dictionary attribute, or VendorID/VendorType/Raw for an opaque VSA.
type ExtraAttr struct {
	Name  string
	Value string

	VendorID   uint32
	VendorType byte
	Raw        []byte
}

// attrSetters maps the dictionary names the codec understands onto layeh
// setters. Unknown names are skipped with a debug log, never fatal.
var attrSetters = map[string]func(p *radius.Packet, value string) error{
	"NAS-Identifier": func(p *radius.Packet, v string) error {
		return rfc2865.NASIdentifier_SetString(p, v)
	},
	"NAS-IP-Address": func(p *radius.Packet, v string) error {
		ip := net.ParseIP(v)
		if ip == nil {
			return &net.ParseError{Type: "IP address", Text: v}
		}
		return rfc2865.NASIPAddress_Set(p, ip)
	},
	"Calling-Station-Id": func(p *radius.Packet, v string) error {
		return rfc2865.CallingStationID_SetString(p, v)
	},
	"Called-Station-Id": func(p *radius.Packet, v string) error {
		return rfc2865.CalledStationID_SetString(p, v)
	},
	"Framed-IP-Address": func(p *radius.Packet, v string) error {
		ip := net.ParseIP(v)
		if ip == nil {
			return &net.ParseError{Type: "IP address", Text: v}
		}
		return rfc2865.FramedIPAddress_Set(p, ip)
	},
	"Framed-Pool": func(p *radius.Packet, v string) error {
		return rfc2869.FramedPool_SetString(p, v)
	},
	"NAS-Port-Id": func(p *radius.Packet, v string) error {
		return rfc2869.NASPortID_SetString(p, v)
	},
}

func applyExtraAttrs(p *radius.Packet, extras []ExtraAttr) {
	for _, extra := range extras {
		if extra.VendorID != 0 {
			p.Add(rfc2865.VendorSpecific_Type, buildVSA(extra.VendorID, extra.VendorType, extra.Raw))
			continue
		}

		setter, ok := attrSetters[extra.Name]
		if !ok {
			log.Printf("radius: skipping unknown attribute %q", extra.Name)
			continue
		}
		if err := setter(p, extra.Value); err != nil {
			log.Printf("radius: skipping attribute %q: %v", extra.Name, err)
		}
	}
}

// buildVSA builds a Vendor-Specific Attribute payload:
// Vendor-ID (4) + VSA-Type (1) + VSA-Length (1) + Value
func buildVSA(vendorID uint32, attrType byte, value []byte) []byte {
	result := make([]byte, 4+2+len(value))
	binary.BigEndian.PutUint32(result[0:4], vendorID)
	result[4] = attrType
	result[5] = byte(len(value) + 2) // +2 for type and length bytes
	copy(result[6:], value)
	return result
}
