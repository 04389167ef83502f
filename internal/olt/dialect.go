package olt

import (
	"fmt"
	"strings"

	"github.com/openisp/naps/internal/naperr"
)

// Tech selects which uncfg discovery listing to run.
type Tech string

const (
	TechAuto Tech = "AUTO"
	TechGPON Tech = "GPON"
	TechEPON Tech = "EPON"
)

// Dialect renders vendor-specific CLI forms. It is a pure function of the
// device's manufacturer and model strings; no state, safe to copy.
type Dialect struct {
	vendor string // "zte-c300", "zte-c600", "huawei"
}

// DialectFor maps an OLT's manufacturer/model pair to its CLI dialect.
// The ZTE C300 family is the default: unknown ZTE models speak it.
func DialectFor(manufacturer, model string) Dialect {
	man := strings.ToUpper(manufacturer)
	mod := strings.ToUpper(model)

	if strings.Contains(man, "HUAWEI") ||
		strings.Contains(mod, "MA5800") || strings.Contains(mod, "MA5600") {
		return Dialect{vendor: "huawei"}
	}
	if strings.Contains(mod, "C600") || strings.Contains(mod, "C650") ||
		strings.Contains(mod, "C680") {
		return Dialect{vendor: "zte-c600"}
	}
	return Dialect{vendor: "zte-c300"}
}

// Vendor reports the dialect family, for logging.
func (d Dialect) Vendor() string { return d.vendor }

// IsHuawei reports whether the device speaks the Huawei MA-series CLI.
func (d Dialect) IsHuawei() bool { return d.vendor == "huawei" }

// OltInterface renders the PON port interface name for a rack/shelf/port
// path such as "1/2/15".
func (d Dialect) OltInterface(path string) string {
	if d.vendor == "zte-c600" {
		return "gpon_olt-" + path
	}
	return "gpon-olt_" + path
}

// OnuInterface renders the per-ONU interface name.
func (d Dialect) OnuInterface(path string, slot int) string {
	if d.vendor == "zte-c600" {
		return fmt.Sprintf("gpon_onu-%s:%d", path, slot)
	}
	return fmt.Sprintf("gpon-onu_%s:%d", path, slot)
}

// VportInterface renders the service virtual port name.
func (d Dialect) VportInterface(path string, slot, vport int) string {
	return fmt.Sprintf("vport-%s.%d:%d", path, slot, vport)
}

// UncfgCommand is the discovery listing for unregistered ONUs.
func (d Dialect) UncfgCommand(tech Tech) string {
	if d.vendor == "huawei" {
		return "display ont autofind all"
	}
	if tech == TechEPON {
		return "show onu unauthentication"
	}
	if d.vendor == "zte-c600" {
		return "show pon onu uncfg"
	}
	return "show gpon onu uncfg"
}

// SaveCommand persists running config to startup.
func (d Dialect) SaveCommand() string {
	if d.vendor == "huawei" {
		return "save"
	}
	return "write"
}

// RollbackCommands renders the compensating sequence that deregisters an
// ONU. Huawei speaks `undo ont add` under a different interface model that
// this command set does not cover, so the dialect refuses rather than send
// ZTE syntax at an MA-series box.
func (d Dialect) RollbackCommands(path string, slot int) ([]string, error) {
	if d.IsHuawei() {
		return nil, naperr.New(naperr.ConfigMissing,
			"no rollback command set for the Huawei CLI; deregister ONU %s slot %d manually", path, slot)
	}
	return []string{
		"conf t",
		"interface " + d.OltInterface(path),
		fmt.Sprintf("no onu %d", slot),
		"exit",
	}, nil
}
