package onu

import (
	"testing"

	"github.com/openisp/naps/internal/naperr"
)

func TestParseUncfgGPON(t *testing.T) {
	output := `
show gpon onu uncfg
OltIndex            Model         SN
---------------------------------------------
gpon-olt_1/2/15     ZTE-F612      ZTEGC1234567
gpon-olt_1/2/16     ZTE-F660      ZTEGC7654321
`
	rows, err := ParseUncfg(output)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(rows), rows)
	}
	if rows[0].OltIndex != "gpon-olt_1/2/15" || rows[0].Model != "ZTE-F612" || rows[0].SN != "ZTEGC1234567" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[0].MAC != "" {
		t.Errorf("gpon row should have no MAC: %+v", rows[0])
	}
}

func TestParseUncfgEPONWithMAC(t *testing.T) {
	output := `Index               Model         MAC
=============================================
epon-olt_1/1/1      ZTE-F460      1234.5678.9abc

`
	rows, err := ParseUncfg(output)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1: %+v", len(rows), rows)
	}
	if rows[0].MAC != "1234.5678.9abc" || rows[0].SN != "" {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestParseUncfgFourColumns(t *testing.T) {
	output := `OltIndex     Model      MAC             SN
------------------------------------------------
1/2/15:1     ZTE-F612   1234.5678.9abc  ZTEGC1234567
`
	rows, err := ParseUncfg(output)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].MAC != "1234.5678.9abc" || rows[0].SN != "ZTEGC1234567" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestParseUncfgNoHeader(t *testing.T) {
	_, err := ParseUncfg("ZXAN#\nnothing here\n")
	if !naperr.IsKind(err, naperr.Protocol) {
		t.Fatalf("want PROTOCOL, got %v", err)
	}
}

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"AA:BB:CC:DD:EE:FF", "aabb.ccdd.eeff", false},
		{"aa-bb-cc-dd-ee-ff", "aabb.ccdd.eeff", false},
		{"aabb.ccdd.eeff", "aabb.ccdd.eeff", false},
		{"aabbccddeeff", "aabb.ccdd.eeff", false},
		{"aabbccddee", "", true},
		{"zzbb.ccdd.eeff", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeMAC(tt.in)
		if tt.wantErr {
			if !naperr.IsKind(err, naperr.InvalidInput) {
				t.Errorf("NormalizeMAC(%q): want INVALID_INPUT, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeMAC(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestParseMACLocation(t *testing.T) {
	output := `MacAddress        Vlan  Port
1604   aabb.ccdd.eeff   Dynamic   vport-1/2/15.33:1
`
	loc := ParseMACLocation("10.20.0.5", output)
	if !loc.Found {
		t.Fatalf("MAC not located in %q", output)
	}
	if loc.LoginPort != "10.20.0.5 pon 1/2/15/33:1604" {
		t.Errorf("LoginPort = %q", loc.LoginPort)
	}

	missing := ParseMACLocation("10.20.0.5", "ZXAN# no entry\n")
	if missing.Found {
		t.Error("empty table reported as found")
	}
}

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		in       string
		wantPath string
		wantSlot int
		wantErr  bool
	}{
		{"gpon-olt_1/2/15:33", "1/2/15", 33, false},
		{"gpon_olt-1/2/15:33", "1/2/15", 33, false},
		{"gpon-onu_1/2/15:33", "1/2/15", 33, false},
		{"10.20.0.5 pon 1/2/15/33:1604", "1/2/15", 33, false},
		{"something else", "", 0, true},
		{"", "", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDescriptor(tt.in)
		if tt.wantErr {
			if !naperr.IsKind(err, naperr.InvalidInput) {
				t.Errorf("ParseDescriptor(%q): want INVALID_INPUT, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDescriptor(%q): %v", tt.in, err)
			continue
		}
		if got.Path != tt.wantPath || got.Slot != tt.wantSlot {
			t.Errorf("ParseDescriptor(%q) = %+v, want {%s %d}", tt.in, got, tt.wantPath, tt.wantSlot)
		}
	}
}

func TestCoreColor(t *testing.T) {
	colors := []string{"blue", "orange", "green", "brown", "slate", "white",
		"red", "black", "yellow", "violet", "rose", "aqua"}

	tests := []struct {
		core      int
		wantTube  int
		wantColor string
	}{
		{1, 1, "blue"},
		{12, 1, "aqua"},
		{13, 2, "blue"},
		{26, 3, "orange"},
	}
	for _, tt := range tests {
		got, err := CoreColor(tt.core, colors)
		if err != nil {
			t.Fatalf("CoreColor(%d): %v", tt.core, err)
		}
		if got.Tube != tt.wantTube || got.Color != tt.wantColor {
			t.Errorf("CoreColor(%d) = %+v, want tube %d color %s", tt.core, got, tt.wantTube, tt.wantColor)
		}
	}

	if _, err := CoreColor(0, colors); !naperr.IsKind(err, naperr.InvalidInput) {
		t.Errorf("core 0: want INVALID_INPUT, got %v", err)
	}
	if _, err := CoreColor(1, nil); !naperr.IsKind(err, naperr.ConfigMissing) {
		t.Errorf("empty colors: want CONFIG_MISSING, got %v", err)
	}
}
