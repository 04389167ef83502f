package onu

import (
	"strings"
	"testing"

	"github.com/openisp/naps/internal/naperr"
	"github.com/openisp/naps/internal/olt"
)

func bridgeRequest() Request {
	return Request{
		Path:         "1/2/15",
		Slot:         33,
		Serial:       "ZTEGC1234567",
		OnuType:      "ZTE-F612",
		Mode:         ModeBridge,
		VlanInternet: 1604,
		Speed:        "100M",
	}
}

func TestBridgeCommandsOnC300(t *testing.T) {
	d := olt.DialectFor("ZTE", "C300")
	cmds := BuildCommands(d, bridgeRequest())

	wantFirst := []string{
		"conf t",
		"interface gpon-olt_1/2/15",
		"onu 33 type ZTE-F612 sn ZTEGC1234567",
	}
	for i, want := range wantFirst {
		if cmds[i] != want {
			t.Errorf("command[%d] = %q, want %q", i, cmds[i], want)
		}
	}

	joined := strings.Join(cmds, "\n")
	for _, want := range []string{
		"pon-onu-mng gpon-onu_1/2/15:33",
		"interface vport-1/2/15.33:1",
		"vlan port eth_0/1 mode tag vlan 1604",
		"dhcp-ip ethuni eth_0/1 from-internet",
		"security-mgmt " + securityMgmtHost + " state enable mode forward protocol web",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
	if cmds[len(cmds)-1] != "write" {
		t.Errorf("last command = %q, want write", cmds[len(cmds)-1])
	}
}

func TestBridgeCommandsOnC650(t *testing.T) {
	d := olt.DialectFor("ZTE", "C650")
	cmds := BuildCommands(d, bridgeRequest())

	if cmds[1] != "interface gpon_olt-1/2/15" {
		t.Errorf("command[1] = %q, want interface gpon_olt-1/2/15", cmds[1])
	}
	joined := strings.Join(cmds, "\n")
	if !strings.Contains(joined, "pon-onu-mng gpon_onu-1/2/15:33") {
		t.Errorf("missing C600-family onu interface in:\n%s", joined)
	}
}

func TestRouterCommands(t *testing.T) {
	r := bridgeRequest()
	r.Mode = ModeRouter
	r.Username = "cust0001"
	r.Password = "pppoe-pass"

	cmds := BuildCommands(olt.DialectFor("ZTE", "C300"), r)
	joined := strings.Join(cmds, "\n")

	for _, want := range []string{
		"wan-ip mode pppoe username cust0001 password pppoe-pass vlan-profile vlan1604 host 1",
		"pppoe-intermediate-agent enable",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
	for _, reject := range []string{"dhcp-ip", "security-mgmt", "igmp"} {
		if strings.Contains(joined, reject) {
			t.Errorf("router mode must not emit %q:\n%s", reject, joined)
		}
	}
}

func TestDataModeUsesOwnVport(t *testing.T) {
	r := bridgeRequest()
	r.Mode = ModeData

	cmds := BuildCommands(olt.DialectFor("ZTE", "C300"), r)
	joined := strings.Join(cmds, "\n")

	for _, want := range []string{
		"interface vport-1/2/15.33:4",
		"tcont 4 name data profile 100M",
		"gemport 4 tcont 4",
		"service data gemport 4 vlan 1604",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "vport-1/2/15.33:1") {
		t.Errorf("data mode leaked vport 1:\n%s", joined)
	}
}

func TestTriplePlayCommands(t *testing.T) {
	r := bridgeRequest()
	r.Mode = ModeBridgeMcastVoIP
	r.VlanTV = 1700
	r.VlanVoice = 1800
	r.VoIP = &VoIPAccount{UserID: "9611001", Username: "sip01", Password: "sippw"}

	cmds := BuildCommands(olt.DialectFor("ZTE", "C300"), r)
	joined := strings.Join(cmds, "\n")

	for _, want := range []string{
		"tcont 2 name mcast",
		"tcont 3 name voip",
		"interface vport-1/2/15.33:2",
		"interface vport-1/2/15.33:3",
		"service mcast gemport 2 vlan 1700",
		"service voip gemport 3 vlan 1800",
		"vlan port eth_0/4 mode tag vlan 1700",
		"voip protocol sip",
		"wan-ip mode dhcp vlan-profile vlan1800 host 2",
		"sip-service pots_0/1 profile sip userid 9611001 username sip01 password sippw",
		"igmp mvlan 1700 receive-port vport-1/2/15.33:2",
		"security-mgmt",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestValidateModeRequirements(t *testing.T) {
	allowed := AllowedVLANs{Internet: []int{1604}, TV: []int{1700}, Voice: []int{1800}}

	tests := []struct {
		name   string
		mutate func(*Request)
		ok     bool
	}{
		{"bridge valid", func(r *Request) {}, true},
		{"bad mode", func(r *Request) { r.Mode = "SWITCH" }, false},
		{"bad type", func(r *Request) { r.OnuType = "ZTE-F601" }, false},
		{"bad speed", func(r *Request) { r.Speed = "150M" }, false},
		{"vlan not allowed", func(r *Request) { r.VlanInternet = 999 }, false},
		{"router without pppoe", func(r *Request) { r.Mode = ModeRouter }, false},
		{"router with pppoe", func(r *Request) {
			r.Mode = ModeRouter
			r.Username, r.Password = "u", "p"
		}, true},
		{"mcast without tv vlan", func(r *Request) { r.Mode = ModeBridgeMcast }, false},
		{"mcast tv vlan not allowed", func(r *Request) {
			r.Mode = ModeBridgeMcast
			r.VlanTV = 1999
		}, false},
		{"voip without account", func(r *Request) {
			r.Mode = ModeBridgeMcastVoIP
			r.VlanTV, r.VlanVoice = 1700, 1800
		}, false},
		{"voip incomplete account", func(r *Request) {
			r.Mode = ModeBridgeMcastVoIP
			r.VlanTV, r.VlanVoice = 1700, 1800
			r.VoIP = &VoIPAccount{UserID: "1", Username: "u"}
		}, false},
		{"voip complete", func(r *Request) {
			r.Mode = ModeBridgeMcastVoIP
			r.VlanTV, r.VlanVoice = 1700, 1800
			r.VoIP = &VoIPAccount{UserID: "1", Username: "u", Password: "p"}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bridgeRequest()
			tt.mutate(&r)
			err := r.Validate(allowed)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !naperr.IsKind(err, naperr.InvalidInput) {
				t.Errorf("want INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestDeleteCommands(t *testing.T) {
	cmds, err := DeleteCommands(olt.DialectFor("ZTE", "C300"), "1/2/15", 33)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"conf t", "interface gpon-olt_1/2/15", "no onu 33", "exit", "write"}
	if len(cmds) != len(want) {
		t.Fatalf("DeleteCommands = %v, want %v", cmds, want)
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Errorf("delete[%d] = %q, want %q", i, cmds[i], want[i])
		}
	}
}
