// Package ciscoios drives a Cisco IOS switch: SNMP for interface
// inventory, Telnet/SSH terminal scraping for VLAN reads and writes.
package ciscoios

import (
	"fmt"
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
	device.Register("ciscoios", New)
}

const (
	regexRoot       = `[a-zA-Z0-9_-]+#`
	regexConfig     = `[a-zA-Z0-9_-]+\(config\)#`
	regexConfigIf   = `[a-zA-Z0-9_-]+\(config-if\)#`
	regexConfigVlan = `[a-zA-Z0-9_-]+\(config-vlan\)#`
)

var (
	reLagMember  = regexp.MustCompile(`^(Fa|Gi|Po)[0-9]+(/[0-9]+)*$`)
	reVlanID     = regexp.MustCompile(`^[0-9]{1,4}$`)
	reVlanMember = regexp.MustCompile(`((Gi|Fa|Po)[0-9]+(/[0-9]+)*)`)
	reVlanName   = regexp.MustCompile(`^[0-9]{1,4} *(.*) active.*$`)

	reCreate        = regexp.MustCompile(`^create ([0-9]{1,4}) "([a-zA-Z0-9_-]+)" *`)
	reRename        = regexp.MustCompile(`^rename ([0-9]{1,4}) "([a-zA-Z0-9_-]+)" *`)
	reAddMembers    = regexp.MustCompile(`^add-members ([0-9]{1,4}) `)
	reRemoveMembers = regexp.MustCompile(`^remove-members ([0-9]{1,4}) `)
	reDelete        = regexp.MustCompile(`^delete ([0-9]{1,4}) *`)
	reIfaceClause   = regexp.MustCompile(`^iface:"([^"]+)" *`)
)

// Host drives one Cisco IOS switch.
type Host struct {
	b     *boss.Boss
	phost *proptree.PropTree
	term  *terminal.Terminal
}

// New constructs a Cisco IOS host.
func New(b *boss.Boss, phost *proptree.PropTree) (device.Host, error) {
	return &Host{b: b, phost: phost}, nil
}

// Close releases the terminal session.
func (h *Host) Close() error {
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
	case "get-vlan-info":
		return h.getVlanInfo(args)
	case "mod-vlans":
		return h.modVlans(args)
	default:
		return fmt.Errorf("Not implemented: %s", cmd)
	}
}

func (h *Host) listIfaces() error {
	community := h.phost.Get("proto-snmp2").Data()
	if community == "" {
		return fmt.Errorf("Must supply an proto-snmp2 community string for Cisco IOS switch")
	}
	ip := h.phost.Get("hostname").Data()
	if ip == "" {
		return fmt.Errorf("Must supply a hostname or IP address for Cisco IOS switch")
	}

	tree := &proptree.PropTree{}
	names := map[string]string{}

	walk := func(oid string) ([]snmpwalk.Entry, error) {
		return snmpwalk.Walk(2, community, ip, oid)
	}

	// step 0: ifName -> record LAG interfaces and candidate names
	ifName, err := walk(".1.3.6.1.2.1.31.1.1.1.1")
	if err != nil {
		return err
	}
	for _, e := range ifName {
		name := snmpwalk.UnSTRING(e.Value)
		if reLagMember.MatchString(name) {
			names[e.Index] = name
		}
		if strings.HasPrefix(name, "Po") {
			tree.At(name).At("members").SetData("0")
		}
	}

	// step 1: ifAlias -> description
	ifAlias, err := walk(".1.3.6.1.2.1.31.1.1.1.18")
	if err != nil {
		return err
	}
	for _, e := range ifAlias {
		if name, ok := names[e.Index]; ok {
			tree.At(name).At("description").SetData(snmpwalk.UnSTRING(e.Value))
		}
	}

	// step 2: ifHighSpeed -> speed (Mbps)
	ifSpeed, err := walk(".1.3.6.1.2.1.31.1.1.1.15")
	if err != nil {
		return err
	}
	for _, e := range ifSpeed {
		if name, ok := names[e.Index]; ok {
			t := tree.At(name)
			t.At("speed").SetData(e.Value)
			t.At("members")
			t.At("combiner")
		}
	}

	// step 3: ifOperStatus -> zero out speed for anything not up
	ifOper, err := walk(".1.3.6.1.2.1.2.2.1.8")
	if err != nil {
		return err
	}
	for _, e := range ifOper {
		name, ok := names[e.Index]
		if !ok {
			continue
		}
		if snmpwalk.UnSTRING(e.Value) != "up" && !strings.HasPrefix(e.Value, "up") {
			tree.At(name).At("speed").SetData("0")
		}
	}

	// step 4: LAG membership table -> count members per port-channel
	lagMembers, err := walk(".1.3.6.1.4.1.9.9.98.1.1.1.1.8")
	if err != nil {
		return err
	}
	for _, e := range lagMembers {
		if e.Value == e.Index || e.Value == "0" {
			continue
		}
		if name, ok := names[e.Value]; ok {
			t := tree.At(name).At("members")
			n, _ := strconv.Atoi(t.Data())
			t.SetData(strconv.Itoa(n + 1))
		}
	}

	for _, entry := range tree.Children() {
		members, _ := strconv.Atoi(entry.Value.Get("members").Data())
		if members <= 0 {
			continue
		}
		speed, _ := strconv.Atoi(entry.Value.Get("speed").Data())
		if speed <= 0 {
			continue
		}
		entry.Value.At("speed").SetData(strconv.Itoa(speed / members))
	}

	return h.b.SendPropTree("interfaces", tree)
}

func (h *Host) getVlanInfo(args string) error {
	if args == "" {
		return fmt.Errorf("Must provide a VLAN to show")
	}
	if !reVlanID.MatchString(args) {
		return fmt.Errorf("Invalid vlan ID: %s", args)
	}
	if err := h.getTerminal(); err != nil {
		return err
	}

	info := &proptree.PropTree{}
	err := h.term.Execute("show vlan id "+args, func(data string) {
		if m := reVlanName.FindStringSubmatch(data); m != nil {
			info.At("name").SetData(strings.TrimRight(m[1], " "))
		}
		for _, m := range reVlanMember.FindAllStringSubmatch(data, -1) {
			info.At("interfaces").ArrayPushBackString(m[1])
		}
	})
	if err != nil {
		return err
	}
	return h.b.SendPropTree("vlan", info)
}

func (h *Host) modVlans(args string) error {
	if err := h.getTerminal(); err != nil {
		return err
	}

	result := &proptree.PropTree{}
	onErr := func(data string) {
		result.At("errors").ArrayPushBackString(data)
	}
	onWriteMem := func(data string) {
		if !strings.HasPrefix(data, "Building configuration...") && !strings.HasPrefix(data, "[OK]") {
			result.At("errors").ArrayPushBackString(data)
		}
	}

	input := args
	for {
		if m := reCreate.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			if err := h.createOrRenameVlan(m[1], m[2], onErr); err != nil {
				return err
			}
			continue
		}
		if m := reRename.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			if err := h.createOrRenameVlan(m[1], m[2], onErr); err != nil {
				return err
			}
			continue
		}
		if m := reAddMembers.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			var err error
			input, err = h.modMembers(input, m[1], "add", onErr)
			if err != nil {
				return err
			}
			continue
		}
		if m := reRemoveMembers.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			var err error
			input, err = h.modMembers(input, m[1], "remove", onErr)
			if err != nil {
				return err
			}
			continue
		}
		if m := reDelete.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			if err := h.term.SetPromptRegex(regexConfig); err != nil {
				return err
			}
			if err := h.term.Execute("configure terminal", nil); err != nil {
				return err
			}
			if err := h.term.Execute("no vlan "+m[1], onErr); err != nil {
				return err
			}
			if err := h.term.SetPromptRegex(regexRoot); err != nil {
				return err
			}
			if err := h.term.Execute("exit", onErr); err != nil {
				return err
			}
			continue
		}
		break
	}

	if err := h.term.SetPromptRegex(regexRoot); err != nil {
		return err
	}
	if err := h.term.Execute("write memory", onWriteMem); err != nil {
		return err
	}
	if !result.ChildExists("errors") {
		result.At("success").SetData("1")
	}
	return h.b.SendPropTree("result", result)
}

func (h *Host) createOrRenameVlan(vlanID, vlanName string, onErr func(string)) error {
	t := h.term
	if err := t.SetPromptRegex(regexConfig); err != nil {
		return err
	}
	if err := t.Execute("configure terminal", nil); err != nil {
		return err
	}
	if err := t.SetPromptRegex(regexConfigVlan); err != nil {
		return err
	}
	if err := t.Execute("vlan "+vlanID, onErr); err != nil {
		return err
	}
	if err := t.Execute("name "+vlanName, onErr); err != nil {
		return err
	}
	if err := t.SetPromptRegex(regexConfig); err != nil {
		return err
	}
	if err := t.Execute("exit", onErr); err != nil {
		return err
	}
	if err := t.SetPromptRegex(regexRoot); err != nil {
		return err
	}
	return t.Execute("exit", onErr)
}

// modMembers consumes iface:"..." clauses off input and runs the
// corresponding "switchport trunk allowed vlan add/remove" commands,
// returning the remaining unconsumed input.
func (h *Host) modMembers(input, vlanID, verb string, onErr func(string)) (string, error) {
	t := h.term
	if err := t.SetPromptRegex(regexConfig); err != nil {
		return input, err
	}
	if err := t.Execute("configure terminal", nil); err != nil {
		return input, err
	}
	if err := t.SetPromptRegex(regexConfigIf); err != nil {
		return input, err
	}
	for {
		m := reIfaceClause.FindStringSubmatch(input)
		if m == nil {
			break
		}
		input = input[len(m[0]):]
		if err := t.Execute("interface "+m[1], onErr); err != nil {
			return input, err
		}
		if err := t.Execute("switchport trunk allowed vlan "+verb+" "+vlanID, onErr); err != nil {
			return input, err
		}
	}
	if err := t.SetPromptRegex(regexConfig); err != nil {
		return input, err
	}
	if err := t.Execute("exit", onErr); err != nil {
		return input, err
	}
	if err := t.SetPromptRegex(regexRoot); err != nil {
		return input, err
	}
	return input, t.Execute("exit", onErr)
}

func (h *Host) getTerminal() error {
	if h.term != nil {
		return nil
	}
	var term *terminal.Terminal
	if h.phost.ChildExists("proto-ssh") {
		t, err := terminal.New("ssh", h.phost.Get("hostname").Data(), 0,
			h.phost.Get("proto-ssh"), `[a-zA-Z0-9_-]+>`, " --More-- ")
		if err != nil {
			return err
		}
		term = t
	} else {
		if !h.phost.ChildExists("proto-telnet") {
			return fmt.Errorf("Must use -proto ssh or -proto telnet for a Cisco IOS switch")
		}
		telnetAuth := h.phost.Get("proto-telnet")
		if telnetAuth.Get("auth").Data() != "console" {
			return fmt.Errorf(`Only "console" auth type is supported for proto-telnet on Cisco IOS`)
		}
		t, err := terminal.New("telnet", h.phost.Get("hostname").Data(), 0,
			telnetAuth, `.?Password: `, " --More-- ")
		if err != nil {
			return err
		}
		term = t
		if err := term.SetPromptRegex(`[a-zA-Z0-9_-]+>`); err != nil {
			return err
		}
		if err := term.Execute(telnetAuth.Get("password").Data(), nil); err != nil {
			return err
		}
	}

	// The enable secret is read from proto-telnet even when connecting
	// over SSH, matching the original's behavior.
	enableSecret := h.phost.Get("proto-telnet").Get("enable").Data()
	if enableSecret == "" {
		return fmt.Errorf("Must use -enable <secret> for Cisco IOS")
	}
	if err := term.SetPromptRegex("Password: "); err != nil {
		return err
	}
	if err := term.Execute("enable", nil); err != nil {
		return err
	}
	if err := term.SetPromptRegex(regexRoot); err != nil {
		return err
	}
	if err := term.Execute(enableSecret, nil); err != nil {
		return fmt.Errorf("Timeout or invalid enable secret")
	}
	h.term = term
	return nil
}
