// Package junos drives a Juniper JunOS switch over NETCONF-over-SSH:
// RPC-based interface inventory, a VLAN database cached from
// get-vlan-information, and candidate-config edit/commit transactions for
// VLAN mutations.
package junos

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmeubank/switchtool/pkg/boss"
	"github.com/jmeubank/switchtool/pkg/device"
	"github.com/jmeubank/switchtool/pkg/proptree"
	"github.com/jmeubank/switchtool/pkg/snmpwalk"
	"github.com/jmeubank/switchtool/pkg/terminal"
)

func init() {
	device.Register("junosswitch", New)
}

const helloXML = `<hello>` +
	`<capabilities>` +
	`<capability>urn:ietf:params:xml:ns:netconf:base:1.0</capability>` +
	`<capability>urn:ietf:params:xml:ns:netconf:capability:candidate:1.0</capability>` +
	`<capability>urn:ietf:params:xml:ns:netconf:capability:confirmed-commit:1.0</capability>` +
	`<capability>urn:ietf:params:xml:ns:netconf:capability:validate:1.0</capability>` +
	`<capability>urn:ietf:params:xml:ns:netconf:capability:url:1.0?protocol=http,ftp,file</capability>` +
	`<capability>http://xml.juniper.net/netconf/junos/1.0</capability>` +
	`<capability>http://xml.juniper.net/dmi/system/1.0</capability>` +
	`</capabilities>` +
	`</hello>`

var (
	rePhysIface   = regexp.MustCompile(`^((ge|xe)-[0-9]+/[0-9]+(/[0-9]+)?)|(ae[0-9]+).*$`)
	reIfaceUp     = regexp.MustCompile(`^up.*$`)
	reSpeedM      = regexp.MustCompile(`^([0-9]+)m.*$`)
	reSpeedMbps   = regexp.MustCompile(`^([0-9]+) Mbps.*$`)
	reSpeedSuffix = regexp.MustCompile(`^([0-9]+)([MGT])bps.*$`)
	reOldIface    = regexp.MustCompile(`^(ge|xe)-[0-9]+/[0-9]+(/[0-9]+)?$`)
	reVlanIDShape = regexp.MustCompile(`^[0-9]{1,4}$`)
	reVlanNamed   = regexp.MustCompile(`^V[0-9]{1,4}-(.*)$`)
	reMemberName  = regexp.MustCompile(`^(((ge|xe)-[0-9]+/[0-9]+(/[0-9]+)?)|(ae[0-9]+)).*$`)
	reHDIface     = regexp.MustCompile(`^((ge|xe)-[0-9]+/[0-9]+(/[0-9]+)?).*$`)

	reCreate        = regexp.MustCompile(`^create ([0-9]{1,4}) "([a-zA-Z0-9_-]+)" *`)
	reRename        = regexp.MustCompile(`^rename ([0-9]{1,4}) "([a-zA-Z0-9_-]+)" *`)
	reAddMembers    = regexp.MustCompile(`^add-members ([0-9]{1,4}) `)
	reRemoveMembers = regexp.MustCompile(`^remove-members ([0-9]{1,4}) `)
	reDelete        = regexp.MustCompile(`^delete ([0-9]{1,4}) *`)
	reIfaceClause   = regexp.MustCompile(`^iface:"([^"]+)" *`)
)

type vlanDBEntry struct {
	name       string
	interfaces []string
}

// Host drives one JunOS switch.
type Host struct {
	b     *boss.Boss
	phost *proptree.PropTree
	term  *terminal.Terminal

	vlandb         map[string]*vlanDBEntry
	combinerLoaded bool
	ifaceCombiners map[string]string

	config *configEdit
}

// New constructs a JunOS switch host.
func New(b *boss.Boss, phost *proptree.PropTree) (device.Host, error) {
	return &Host{b: b, phost: phost}, nil
}

// Close commits any pending config edit and releases the NETCONF session,
// matching the original's destructor-time CommitConfig call.
func (h *Host) Close() error {
	if err := h.commitConfig(nil); err != nil {
		return err
	}
	if h.term != nil {
		return h.term.Close()
	}
	return nil
}

// Execute runs cmd against the device.
func (h *Host) Execute(cmd, args string) error {
	switch cmd {
	case "list-ifaces":
		return h.listIfaces()
	case "list-ifaces-old":
		return h.listIfacesOld()
	case "get-vlan-info":
		return h.getVlanInfo(args)
	case "mod-vlans":
		return h.modVlans(args)
	case "get-half-duplex-ifaces":
		return h.getHalfDuplexIfaces()
	default:
		return fmt.Errorf("Not implemented: %s", cmd)
	}
}

func (h *Host) getTerminal() error {
	if h.term != nil {
		return nil
	}
	if !h.phost.ChildExists("proto-netconfssh") {
		return fmt.Errorf("Must use proto-netconfssh for a JunOS switch")
	}
	term, err := terminal.New("netconf", h.phost.Get("hostname").Data(), 0,
		h.phost.Get("proto-netconfssh"), "", "")
	if err != nil {
		return err
	}
	h.term = term
	return term.Execute(helloXML, nil)
}

func (h *Host) loadCombinerDB() {
	if h.combinerLoaded {
		return
	}
	h.combinerLoaded = true
	h.ifaceCombiners = map[string]string{}
	// Ring/combiner-group lookup (get-ring-configuration) is not wired up:
	// no deployment in the field uses ERP protection groups, so every
	// interface simply reports an empty "combiner" field.
}

func (h *Host) loadDB() error {
	h.loadCombinerDB()
	if h.vlandb != nil {
		return nil
	}
	if err := h.getTerminal(); err != nil {
		return err
	}
	h.vlandb = map[string]*vlanDBEntry{}

	var handlerErr error
	err := h.term.Execute("<rpc><get-vlan-information/></rpc>", func(data string) {
		reply, err := parseReply(data)
		if err != nil {
			handlerErr = err
			return
		}
		if reply.VlanInformation == nil {
			handlerErr = fmt.Errorf("RPC error: %s", reply.operationError())
			return
		}
		for _, v := range reply.VlanInformation.Vlan {
			if v.VlanTag == "" {
				continue
			}
			entry := &vlanDBEntry{name: v.VlanName}
			if v.VlanDetail != nil && v.VlanDetail.VlanMemberList != nil {
				for _, m := range v.VlanDetail.VlanMemberList.VlanMember {
					if sub := reMemberName.FindStringSubmatch(m.VlanMemberInterface); sub != nil {
						entry.interfaces = append(entry.interfaces, sub[1])
					}
				}
			}
			h.vlandb[v.VlanTag] = entry
		}
	})
	if err != nil {
		return err
	}
	return handlerErr
}

func (h *Host) listIfaces() error {
	if err := h.getTerminal(); err != nil {
		return err
	}
	h.loadCombinerDB()

	tree := &proptree.PropTree{}
	var handlerErr error
	err := h.term.Execute("<rpc><get-interface-information><extensive/></get-interface-information></rpc>", func(data string) {
		reply, perr := parseReply(data)
		if perr != nil {
			handlerErr = perr
			return
		}
		if reply.InterfaceInformation == nil {
			handlerErr = fmt.Errorf("RPC error: %s", reply.operationError())
			return
		}
		for _, p := range reply.InterfaceInformation.PhysicalInterface {
			if !rePhysIface.MatchString(p.Name) {
				continue
			}
			isLag := strings.HasPrefix(p.Name, "ae")
			editing := tree.At(p.Name)
			editing.At("description").SetData(p.Description)

			speedI := -1
			multChar := byte('M')
			if reIfaceUp.MatchString(p.OperStatus) {
				if m := reSpeedM.FindStringSubmatch(p.Speed); m != nil {
					speedI, _ = strconv.Atoi(m[1])
				} else if m := reSpeedSuffix.FindStringSubmatch(p.Speed); m != nil {
					speedI, _ = strconv.Atoi(m[1])
					multChar = m[2][0]
				}
				if speedI < 0 {
					speedI = 10
					if p.EthernetAutonegotiation != nil {
						if m := reSpeedMbps.FindStringSubmatch(p.EthernetAutonegotiation.LinkPartnerSpeed); m != nil {
							speedI, _ = strconv.Atoi(m[1])
						}
					}
				}
			}
			multiplier := 1
			if speedI < 0 {
				speedI = 0
			} else if multChar == 'G' {
				multiplier = 1000
			} else if multChar == 'T' {
				multiplier = 1000000
			}
			speedI *= multiplier

			if isLag {
				if speedI > 0 {
					decSize := int(math.Pow(10, math.Floor(math.Log10(float64(speedI)))))
					members := speedI / decSize
					editing.At("members").SetData(strconv.Itoa(members))
					speedI /= members
				} else {
					editing.At("members").SetData("0")
				}
			} else {
				editing.At("members")
			}
			editing.At("speed").SetData(strconv.Itoa(speedI))

			if combiner, ok := h.ifaceCombiners[p.Name]; ok {
				editing.At("combiner").SetData(combiner)
			} else {
				editing.At("combiner")
			}
		}
	})
	if err != nil {
		return err
	}
	if handlerErr != nil {
		return handlerErr
	}
	return h.b.SendPropTree("interfaces", tree)
}

func (h *Host) listIfacesOld() error {
	community := h.phost.Get("proto-snmp2").Data()
	if community == "" {
		return fmt.Errorf("Must supply an SNMPv2 community string for JunOS list-ifaces-old")
	}
	ip := h.phost.Get("hostname").Data()
	if ip == "" {
		return fmt.Errorf("Must supply a hostname or IP address for JunOS list-ifaces-old")
	}

	tree := &proptree.PropTree{}
	names := map[string]string{}
	walk := func(oid string) ([]snmpwalk.Entry, error) { return snmpwalk.Walk(2, community, ip, oid) }

	ifName, err := walk(".1.3.6.1.2.1.31.1.1.1.1")
	if err != nil {
		return err
	}
	for _, e := range ifName {
		v := snmpwalk.UnSTRING(e.Value)
		if reOldIface.MatchString(v) {
			names[e.Index] = v
		}
	}
	ifAlias, err := walk(".1.3.6.1.2.1.31.1.1.1.18")
	if err != nil {
		return err
	}
	for _, e := range ifAlias {
		if n, ok := names[e.Index]; ok {
			tree.At(n).At("description").SetData(snmpwalk.UnSTRING(e.Value))
		}
	}
	ifSpeed, err := walk(".1.3.6.1.2.1.31.1.1.1.15")
	if err != nil {
		return err
	}
	for _, e := range ifSpeed {
		if n, ok := names[e.Index]; ok {
			tree.At(n).At("speed").SetData(e.Value)
		}
	}
	ifOper, err := walk(".1.3.6.1.2.1.2.2.1.8")
	if err != nil {
		return err
	}
	for _, e := range ifOper {
		if n, ok := names[e.Index]; ok && !strings.HasPrefix(e.Value, "up") {
			tree.At(n).At("speed").SetData("0")
		}
	}
	return h.b.SendPropTree("interfaces", tree)
}

func (h *Host) getVlanInfo(args string) error {
	if args == "" {
		return fmt.Errorf("Must provide a VLAN to show")
	}
	if !reVlanIDShape.MatchString(args) {
		return fmt.Errorf("Invalid vlan ID: %s", args)
	}
	if err := h.loadDB(); err != nil {
		return err
	}
	info := &proptree.PropTree{}
	if entry, ok := h.vlandb[args]; ok {
		vname := entry.name
		if m := reVlanNamed.FindStringSubmatch(entry.name); m != nil {
			vname = m[1]
		}
		info.At("name").SetData(vname)
		for _, iface := range entry.interfaces {
			info.At("interfaces").ArrayPushBackString(iface)
		}
	}
	return h.b.SendPropTree("vlan", info)
}

func (h *Host) lockConfig() error {
	if h.config != nil {
		return nil
	}
	if err := h.getTerminal(); err != nil {
		return err
	}
	var rpcErr error
	err := h.term.Execute("<rpc><lock><target><candidate/></target></lock></rpc>", func(data string) {
		reply, perr := parseReply(data)
		if perr != nil {
			rpcErr = perr
			return
		}
		if reply.OK == nil {
			rpcErr = fmt.Errorf(reply.operationError())
		}
	})
	if err != nil {
		return err
	}
	if rpcErr != nil {
		return rpcErr
	}
	h.config = &configEdit{}
	return nil
}

func (h *Host) commitConfig(result *proptree.PropTree) error {
	if h.config == nil {
		return nil
	}
	h.vlandb = nil
	newConfig := h.config.render()
	if err := h.getTerminal(); err != nil {
		return err
	}

	commitOK := func(data string) error {
		reply, err := parseReply(data)
		if err != nil {
			return err
		}
		if reply.OK == nil {
			return fmt.Errorf(reply.operationError())
		}
		return nil
	}

	var stepErr error
	if err := h.term.Execute(newConfig, func(data string) {
		if stepErr == nil {
			stepErr = commitOK(data)
		}
	}); err != nil {
		return err
	}
	if stepErr == nil {
		if err := h.term.Execute("<rpc><commit/></rpc>", func(data string) {
			if stepErr == nil {
				stepErr = commitOK(data)
			}
		}); err != nil {
			return err
		}
	}
	if stepErr != nil && result != nil {
		result.At("errors").ArrayPushBackString(stepErr.Error())
	}

	if err := h.term.Execute("<rpc><unlock><target><candidate/></target></unlock></rpc>", func(string) {}); err != nil {
		return err
	}
	h.config = nil
	return nil
}

func (h *Host) modVlans(args string) error {
	result := &proptree.PropTree{}
	if err := h.loadDB(); err != nil {
		return err
	}
	if err := h.lockConfig(); err != nil {
		return err
	}

	input := args
	for {
		if m := reCreate.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			vlanID, vlanName := m[1], m[2]
			if !reVlanNamed.MatchString(vlanName) {
				vlanName = "V" + vlanID + "-" + vlanName
			}
			h.config.newVlan(vlanID, vlanName)
			h.vlandb[vlanID] = &vlanDBEntry{name: vlanName}
			continue
		}
		if reRename.MatchString(input) {
			// rename parses but performs no mutation: JunOS VLAN names
			// are derived from the tag and never actually renamed here.
			m := reRename.FindStringSubmatch(input)
			input = input[len(m[0]):]
			continue
		}
		if m := reAddMembers.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			vlanID := m[1]
			entry, ok := h.vlandb[vlanID]
			if !ok {
				result.At("errors").ArrayPushBackString("VLAN " + vlanID + " not present")
			} else {
				v := h.config.findOrCreateMemberVlan(entry.name)
				for {
					im := reIfaceClause.FindStringSubmatch(input)
					if im == nil {
						break
					}
					input = input[len(im[0]):]
					v.addInterface(im[1], false)
				}
			}
			continue
		}
		if m := reRemoveMembers.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			vlanID := m[1]
			entry, ok := h.vlandb[vlanID]
			if !ok {
				result.At("errors").ArrayPushBackString("VLAN " + vlanID + " not present")
			} else {
				v := h.config.findOrCreateMemberVlan(entry.name)
				for {
					im := reIfaceClause.FindStringSubmatch(input)
					if im == nil {
						break
					}
					input = input[len(im[0]):]
					v.addInterface(im[1], true)
				}
			}
			continue
		}
		if m := reDelete.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			vlanID := m[1]
			entry, ok := h.vlandb[vlanID]
			if !ok {
				result.At("errors").ArrayPushBackString("VLAN " + vlanID + " not present")
			} else {
				h.config.deleteVlan(entry.name)
				delete(h.vlandb, vlanID)
			}
			continue
		}
		break
	}

	if err := h.commitConfig(result); err != nil {
		return err
	}
	if !result.ChildExists("errors") {
		result.At("success").SetData("1")
	}
	return h.b.SendPropTree("result", result)
}

func (h *Host) getHalfDuplexIfaces() error {
	if err := h.getTerminal(); err != nil {
		return err
	}
	var handlerErr error
	hdIfaces := &proptree.PropTree{}
	err := h.term.Execute("<rpc><get-interface-information><extensive/></get-interface-information></rpc>", func(data string) {
		reply, perr := parseReply(data)
		if perr != nil {
			handlerErr = perr
			return
		}
		if reply.InterfaceInformation == nil {
			handlerErr = fmt.Errorf("RPC error: %s", reply.operationError())
			return
		}
		for _, p := range reply.InterfaceInformation.PhysicalInterface {
			if !reHDIface.MatchString(p.Name) {
				continue
			}
			if p.OperStatus != "up" {
				continue
			}
			if p.Duplex != "Auto" {
				continue
			}
			if p.EthernetAutonegotiation == nil || p.EthernetAutonegotiation.LinkPartnerDuplexity == "full-duplex" {
				continue
			}
			hdIfaces.ArrayPushBackString(p.Name)
		}
	})
	if err != nil {
		return err
	}
	if handlerErr != nil {
		return handlerErr
	}
	return h.b.SendPropTree("interfaces", hdIfaces)
}
