package olt

import (
	"testing"

	"github.com/openisp/naps/internal/naperr"
)

func TestVendorDispatch(t *testing.T) {
	const (
		path = "1/2/15"
		slot = 1
	)
	tests := []struct {
		manufacturer string
		model        string
		wantOlt      string
		wantOnu      string
		wantVport    string
	}{
		{"ZTE", "C300", "gpon-olt_1/2/15", "gpon-onu_1/2/15:1", "vport-1/2/15.1:1"},
		{"ZTE", "C320", "gpon-olt_1/2/15", "gpon-onu_1/2/15:1", "vport-1/2/15.1:1"},
		{"ZTE", "C600", "gpon_olt-1/2/15", "gpon_onu-1/2/15:1", "vport-1/2/15.1:1"},
		{"ZTE", "C650", "gpon_olt-1/2/15", "gpon_onu-1/2/15:1", "vport-1/2/15.1:1"},
		{"ZTE", "C680", "gpon_olt-1/2/15", "gpon_onu-1/2/15:1", "vport-1/2/15.1:1"},
		{"ZTE", "ZXA10 C650", "gpon_olt-1/2/15", "gpon_onu-1/2/15:1", "vport-1/2/15.1:1"},
	}
	for _, tt := range tests {
		d := DialectFor(tt.manufacturer, tt.model)
		if got := d.OltInterface(path); got != tt.wantOlt {
			t.Errorf("%s: OltInterface = %q, want %q", tt.model, got, tt.wantOlt)
		}
		if got := d.OnuInterface(path, slot); got != tt.wantOnu {
			t.Errorf("%s: OnuInterface = %q, want %q", tt.model, got, tt.wantOnu)
		}
		if got := d.VportInterface(path, slot, 1); got != tt.wantVport {
			t.Errorf("%s: VportInterface = %q, want %q", tt.model, got, tt.wantVport)
		}
	}
}

func TestUncfgAndSaveCommands(t *testing.T) {
	tests := []struct {
		manufacturer string
		model        string
		tech         Tech
		wantUncfg    string
		wantSave     string
	}{
		{"ZTE", "C300", TechGPON, "show gpon onu uncfg", "write"},
		{"ZTE", "C300", TechAuto, "show gpon onu uncfg", "write"},
		{"ZTE", "C300", TechEPON, "show onu unauthentication", "write"},
		{"ZTE", "C650", TechGPON, "show pon onu uncfg", "write"},
		{"Huawei", "MA5800-X2", TechAuto, "display ont autofind all", "save"},
		{"", "MA5600T", TechAuto, "display ont autofind all", "save"},
	}
	for _, tt := range tests {
		d := DialectFor(tt.manufacturer, tt.model)
		if got := d.UncfgCommand(tt.tech); got != tt.wantUncfg {
			t.Errorf("%s/%s %s: UncfgCommand = %q, want %q", tt.manufacturer, tt.model, tt.tech, got, tt.wantUncfg)
		}
		if got := d.SaveCommand(); got != tt.wantSave {
			t.Errorf("%s/%s: SaveCommand = %q, want %q", tt.manufacturer, tt.model, got, tt.wantSave)
		}
	}
}

func TestRollbackCommands(t *testing.T) {
	d := DialectFor("ZTE", "C300")
	cmds, err := d.RollbackCommands("1/2/15", 33)
	if err != nil {
		t.Fatalf("zte rollback: %v", err)
	}
	want := []string{"conf t", "interface gpon-olt_1/2/15", "no onu 33", "exit"}
	if len(cmds) != len(want) {
		t.Fatalf("rollback = %v, want %v", cmds, want)
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Errorf("rollback[%d] = %q, want %q", i, cmds[i], want[i])
		}
	}

	_, err = DialectFor("Huawei", "MA5800-X2").RollbackCommands("1/2/15", 33)
	if !naperr.IsKind(err, naperr.ConfigMissing) {
		t.Fatalf("huawei rollback: want CONFIG_MISSING, got %v", err)
	}
}

func TestParseVLANCSV(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"1604", []int{1604}, false},
		{"1604, 2000 ,3000", []int{1604, 2000, 3000}, false},
		{"0", nil, true},
		{"4095", nil, true},
		{"16o4", nil, true},
		{"1604,,2000", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseVLANCSV(tt.in)
		if tt.wantErr {
			if !naperr.IsKind(err, naperr.InvalidInput) {
				t.Errorf("ParseVLANCSV(%q): want INVALID_INPUT, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseVLANCSV(%q): %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseVLANCSV(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("ParseVLANCSV(%q)[%d] = %d, want %d", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantErr int
	}{
		{"clean", "ZXAN#\nOK\n", 0},
		{"invalid input", "% Invalid input detected at 'foo' position\n", 1},
		{"incomplete", "% Incomplete command\n", 1},
		{"ambiguous", "% Ambiguous command\n", 1},
		{"failed to", "Failed to set vport profile\n", 1},
		{"error colon", "Error: interface does not exist\n", 1},
		{"whitelisted error zero", "Command executed, error: 0\n", 0},
		{"whitelisted no error", "no error occurred\n", 0},
		{"whitelisted error-free", "transmission error-free\n", 0},
		{"whitelisted successful", "[Successful]\n", 0},
		{"whitelisted plain successful", "Operation successful\n", 0},
		{"mixed", "line ok\nsyntax error near token\nanother ok\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.output); len(got) != tt.wantErr {
				t.Errorf("Classify(%q) = %v, want %d error lines", tt.output, got, tt.wantErr)
			}
		})
	}
}
