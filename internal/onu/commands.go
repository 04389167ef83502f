package onu

import (
	"fmt"

	"github.com/openisp/naps/internal/olt"
)

// securityMgmtHost is the management platform every bridge/VoIP ONU gets a
// web-management pinhole for.
const securityMgmtHost = "77.242.20.10"

// dataModeVport keeps DATA services on their own service-port numbering,
// away from the triple-play vports 1-3.
const dataModeVport = 4

// BuildCommands renders the full registration + configuration sequence for
// one ONU. The first three commands are always the registration step, so a
// rollback target exists from the moment anything might fail.
func BuildCommands(d olt.Dialect, r Request) []string {
	oltIf := d.OltInterface(r.Path)
	onuIf := d.OnuInterface(r.Path, r.Slot)

	cmds := []string{
		"conf t",
		"interface " + oltIf,
		fmt.Sprintf("onu %d type %s sn %s", r.Slot, r.OnuType, r.Serial),
		"exit",
	}

	cmds = append(cmds, r.trafficCommands(onuIf)...)
	cmds = append(cmds, r.vportCommands(d)...)
	cmds = append(cmds, r.mgmtCommands(onuIf)...)
	cmds = append(cmds, r.igmpCommands(d)...)
	cmds = append(cmds, "exit", d.SaveCommand())
	return cmds
}

// trafficCommands creates the tconts and GEM-ports on the ONU interface.
func (r Request) trafficCommands(onuIf string) []string {
	cmds := []string{"interface " + onuIf}

	switch r.Mode {
	case ModeData:
		cmds = append(cmds,
			fmt.Sprintf("tcont %d name data profile %s", dataModeVport, r.Speed),
			fmt.Sprintf("gemport %d tcont %d", dataModeVport, dataModeVport),
		)
	default:
		cmds = append(cmds,
			"tcont 1 name internet profile "+r.Speed,
			"gemport 1 tcont 1",
		)
		if r.Mode.Multicast() {
			cmds = append(cmds,
				"tcont 2 name mcast profile default",
				"gemport 2 tcont 2",
			)
		}
		if r.Mode.VoIP() {
			cmds = append(cmds,
				"tcont 3 name voip profile default",
				"gemport 3 tcont 3",
			)
		}
	}
	return append(cmds, "exit")
}

// vportCommands binds each service to its virtual port.
func (r Request) vportCommands(d olt.Dialect) []string {
	bind := func(vport, vlan int) []string {
		return []string{
			"interface " + d.VportInterface(r.Path, r.Slot, vport),
			fmt.Sprintf("service-port %d user-vlan %d vlan %d", vport, vlan, vlan),
			"exit",
		}
	}

	if r.Mode == ModeData {
		return bind(dataModeVport, r.VlanInternet)
	}
	cmds := bind(1, r.VlanInternet)
	if r.Mode.Multicast() {
		cmds = append(cmds, bind(2, r.VlanTV)...)
	}
	if r.Mode.VoIP() {
		cmds = append(cmds, bind(3, r.VlanVoice)...)
	}
	return cmds
}

// mgmtCommands configures the ONU itself through pon-onu-mng: service to
// GEM-port maps, Ethernet VLAN tagging, WAN and SIP setup.
func (r Request) mgmtCommands(onuIf string) []string {
	cmds := []string{"pon-onu-mng " + onuIf}

	switch r.Mode {
	case ModeData:
		cmds = append(cmds,
			fmt.Sprintf("service data gemport %d vlan %d", dataModeVport, r.VlanInternet),
			fmt.Sprintf("vlan port eth_0/1 mode tag vlan %d", r.VlanInternet),
		)
	default:
		cmds = append(cmds, fmt.Sprintf("service internet gemport 1 vlan %d", r.VlanInternet))
		if r.Mode.Multicast() {
			cmds = append(cmds, fmt.Sprintf("service mcast gemport 2 vlan %d", r.VlanTV))
		}
		if r.Mode.VoIP() {
			cmds = append(cmds, fmt.Sprintf("service voip gemport 3 vlan %d", r.VlanVoice))
		}
		cmds = append(cmds, r.ethernetCommands()...)
		cmds = append(cmds, r.wanCommands()...)
	}

	return append(cmds, "end")
}

// ethernetCommands maps the user-side Ethernet ports into their VLANs.
func (r Request) ethernetCommands() []string {
	switch r.Mode {
	case ModeBridge:
		return []string{fmt.Sprintf("vlan port eth_0/1 mode tag vlan %d", r.VlanInternet)}
	case ModeBridgeMcast:
		return []string{
			fmt.Sprintf("vlan port eth_0/1 mode tag vlan %d", r.VlanInternet),
			fmt.Sprintf("vlan port eth_0/2 mode tag vlan %d", r.VlanTV),
		}
	case ModeBridgeMcastVoIP:
		return []string{
			fmt.Sprintf("vlan port eth_0/1 mode tag vlan %d", r.VlanInternet),
			fmt.Sprintf("vlan port eth_0/4 mode tag vlan %d", r.VlanTV),
		}
	case ModeRouterMcastVoIP:
		return []string{fmt.Sprintf("vlan port eth_0/2 mode tag vlan %d", r.VlanTV)}
	}
	return nil
}

// wanCommands renders the WAN side: DHCP for bridge modes, PPPoE for router
// modes, plus the SIP account and the management pinhole where the mode
// calls for them.
func (r Request) wanCommands() []string {
	var cmds []string

	switch {
	case r.Mode.Router():
		cmds = append(cmds,
			fmt.Sprintf("wan-ip mode pppoe username %s password %s vlan-profile vlan%d host 1",
				r.Username, r.Password, r.VlanInternet),
			"pppoe-intermediate-agent enable",
		)
	case r.Mode == ModeBridge:
		cmds = append(cmds, "dhcp-ip ethuni eth_0/1 from-internet")
	}

	if r.Mode.VoIP() {
		cmds = append(cmds,
			"voip protocol sip",
			fmt.Sprintf("wan-ip mode dhcp vlan-profile vlan%d host 2", r.VlanVoice),
			fmt.Sprintf("sip-service pots_0/1 profile sip userid %s username %s password %s",
				r.VoIP.UserID, r.VoIP.Username, r.VoIP.Password),
		)
	}

	if r.Mode == ModeBridge || r.Mode.VoIP() {
		cmds = append(cmds,
			fmt.Sprintf("security-mgmt %s state enable mode forward protocol web", securityMgmtHost))
	}
	return cmds
}

// igmpCommands binds the multicast VLAN to the TV vport.
func (r Request) igmpCommands(d olt.Dialect) []string {
	if !r.Mode.Multicast() {
		return nil
	}
	return []string{
		fmt.Sprintf("igmp mvlan %d receive-port %s", r.VlanTV, d.VportInterface(r.Path, r.Slot, 2)),
	}
}

// RollbackCommands compensates a failed register+configure: deregister the
// ONU under the same interface, in a fresh session.
func RollbackCommands(d olt.Dialect, path string, slot int) ([]string, error) {
	return d.RollbackCommands(path, slot)
}

// DeleteCommands removes a registered ONU.
func DeleteCommands(d olt.Dialect, path string, slot int) ([]string, error) {
	cmds, err := d.RollbackCommands(path, slot)
	if err != nil {
		return nil, err
	}
	return append(cmds, d.SaveCommand()), nil
}
