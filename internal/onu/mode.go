package onu

import (
	"github.com/openisp/naps/internal/naperr"
	"github.com/openisp/naps/internal/olt"
)

// Mode is an ONU function mode. It decides which vports, tconts and
// GEM-ports the composer emits and which inputs are mandatory.
type Mode string

const (
	ModeBridge          Mode = "BRIDGE"
	ModeRouter          Mode = "ROUTER"
	ModeData            Mode = "DATA"
	ModeBridgeMcast     Mode = "BRIDGE_MCAST"
	ModeBridgeMcastVoIP Mode = "BRIDGE_MCAST_VOIP"
	ModeRouterMcastVoIP Mode = "ROUTER_MCAST_VOIP"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeBridge, ModeRouter, ModeData, ModeBridgeMcast, ModeBridgeMcastVoIP, ModeRouterMcastVoIP:
		return true
	}
	return false
}

// Router modes carry the customer's PPPoE credentials on the ONU WAN.
func (m Mode) Router() bool {
	return m == ModeRouter || m == ModeRouterMcastVoIP
}

// Multicast modes need a TV VLAN and an IGMP mvlan binding.
func (m Mode) Multicast() bool {
	switch m {
	case ModeBridgeMcast, ModeBridgeMcastVoIP, ModeRouterMcastVoIP:
		return true
	}
	return false
}

// VoIP modes need a voice VLAN and a full SIP account.
func (m Mode) VoIP() bool {
	return m == ModeBridgeMcastVoIP || m == ModeRouterMcastVoIP
}

// VoIPAccount is one SIP subscription bound to the ONU's POTS port.
type VoIPAccount struct {
	UserID   string
	Username string
	Password string
}

var onuTypes = map[string]bool{
	"ZTE-F412":  true,
	"ZTE-F460":  true,
	"ZTE-F612":  true,
	"ZTE-F660":  true,
	"ZTE-F6600": true,
}

var speedProfiles = map[string]bool{
	"10M": true, "20M": true, "50M": true, "100M": true,
	"200M": true, "500M": true, "1G": true,
}

// Request is one register+configure job for a single ONU.
type Request struct {
	Username     string // PPPoE login, required for router modes
	Password     string
	Path         string // rack/shelf/port, e.g. "1/2/15"
	Slot         int
	Serial       string
	OnuType      string
	Mode         Mode
	VlanInternet int
	VlanTV       int
	VlanVoice    int
	Speed        string
	VoIP         *VoIPAccount
}

// AllowedVLANs are the OLT's configured per-service VLAN lists.
type AllowedVLANs struct {
	Internet []int
	TV       []int
	Voice    []int
}

// ParseAllowedVLANs builds the membership sets from the device's stored CSV
// columns.
func ParseAllowedVLANs(internet, tv, voice string) (AllowedVLANs, error) {
	var a AllowedVLANs
	var err error
	if a.Internet, err = olt.ParseVLANCSV(internet); err != nil {
		return a, err
	}
	if a.TV, err = olt.ParseVLANCSV(tv); err != nil {
		return a, err
	}
	if a.Voice, err = olt.ParseVLANCSV(voice); err != nil {
		return a, err
	}
	return a, nil
}

// Validate checks the request against the mode's requirements and the OLT's
// VLAN membership lists.
func (r *Request) Validate(allowed AllowedVLANs) error {
	if !r.Mode.Valid() {
		return naperr.New(naperr.InvalidInput, "unknown function mode %q", r.Mode)
	}
	if !onuTypes[r.OnuType] {
		return naperr.New(naperr.InvalidInput, "unknown ONU type %q", r.OnuType)
	}
	if !speedProfiles[r.Speed] {
		return naperr.New(naperr.InvalidInput, "unknown speed profile %q", r.Speed)
	}
	if r.Serial == "" {
		return naperr.New(naperr.InvalidInput, "empty ONU serial")
	}
	if r.Path == "" || r.Slot < 1 {
		return naperr.New(naperr.InvalidInput, "invalid ONU position %s:%d", r.Path, r.Slot)
	}

	if !olt.VLANMember(allowed.Internet, r.VlanInternet) {
		return naperr.New(naperr.InvalidInput,
			"INVALID_VLAN: internet vlan %d not in the device's internet list", r.VlanInternet)
	}
	if r.Mode.Router() && (r.Username == "" || r.Password == "") {
		return naperr.New(naperr.InvalidInput, "router mode %s requires PPPoE credentials", r.Mode)
	}
	if r.Mode.Multicast() {
		if r.VlanTV == 0 {
			return naperr.New(naperr.InvalidInput, "mode %s requires a TV vlan", r.Mode)
		}
		if !olt.VLANMember(allowed.TV, r.VlanTV) {
			return naperr.New(naperr.InvalidInput,
				"INVALID_VLAN: tv vlan %d not in the device's tv list", r.VlanTV)
		}
	}
	if r.Mode.VoIP() {
		if r.VlanVoice == 0 {
			return naperr.New(naperr.InvalidInput, "mode %s requires a voice vlan", r.Mode)
		}
		if !olt.VLANMember(allowed.Voice, r.VlanVoice) {
			return naperr.New(naperr.InvalidInput,
				"INVALID_VLAN: voice vlan %d not in the device's voice list", r.VlanVoice)
		}
		if r.VoIP == nil || r.VoIP.UserID == "" || r.VoIP.Username == "" || r.VoIP.Password == "" {
			return naperr.New(naperr.InvalidInput, "mode %s requires a complete SIP account", r.Mode)
		}
	}
	return nil
}
