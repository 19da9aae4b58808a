// Package calixe drives a Calix E-series switch over Telnet/SSH: terminal
// scraping for inventory, VLANs, optical readings, and half-duplex
// detection.
package calixe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmeubank/switchtool/pkg/boss"
	"github.com/jmeubank/switchtool/pkg/device"
	"github.com/jmeubank/switchtool/pkg/device/opticalmath"
	"github.com/jmeubank/switchtool/pkg/proptree"
	"github.com/jmeubank/switchtool/pkg/terminal"
)

func init() {
	device.Register("calixeseries", New)
}

var (
	reIface     = regexp.MustCompile(`^(([0-9]+/)*[gx][0-9]+)(.*)(trunk|edge|uplink|peerlink|downlink) *([^ ]+).*$`)
	reSpeed     = regexp.MustCompile(`^([0-9]+)(\.[0-9]+)?(g|m)$`)
	reLag       = regexp.MustCompile(`^LAG Interface *: ([^(]+).*$`)
	reLagSpeed  = regexp.MustCompile(`^  Current Rate *: ([0-9]*).*$`)
	reVlanID    = regexp.MustCompile(`^[0-9]{1,4}$`)
	reContinue  = regexp.MustCompile(`^ +(.*)$`)
	reMAC       = regexp.MustCompile(`^MAC address *: (.*)$`)
	reSFPPres   = regexp.MustCompile(`^SFP *: .*present.*$`)
	reConnType  = regexp.MustCompile(`^Connector type *: (.*)$`)
	reSFPVendor = regexp.MustCompile(`^Vendor info *: (.*)$`)
	reSFPVers   = regexp.MustCompile(`^Version info *: (.*)$`)
	reDistance  = regexp.MustCompile(`^Link length *: (.*)$`)
	reTxWave    = regexp.MustCompile(`^Wavelength *: ([0-9]+(\.[0-9]+)?).*$`)
	reLaserTemp = regexp.MustCompile(`^.*Temp: (.*)$`)
	reTxDBm     = regexp.MustCompile(`^.*TX power: ([0-9]+)\.([0-9]+)mW.*$`)
	reRxDBm     = regexp.MustCompile(`^.*RX power: ([0-9]+)\.([0-9]+)mW.*$`)
	reVlanName  = regexp.MustCompile(`^[0-9]{1,4} "([^"]+)" *(enabled|disabled|snoop-suppress|proxy|flood).*$`)
	reVlanMem   = regexp.MustCompile(`^[0-9]{1,4} *(.*)(Ethernet|LAG|EAPS|ERPS).*membership.*$`)

	reCreate        = regexp.MustCompile(`^create ([0-9]{1,4}) "([a-zA-Z0-9_-]+)" *`)
	reRename        = regexp.MustCompile(`^rename ([0-9]{1,4}) "([a-zA-Z0-9_-]+)" *`)
	reAddMembers    = regexp.MustCompile(`^add-members ([0-9]{1,4}) `)
	reRemoveMembers = regexp.MustCompile(`^remove-members ([0-9]{1,4}) `)
	reDelete        = regexp.MustCompile(`^delete ([0-9]{1,4}) *`)
	reIfaceClause   = regexp.MustCompile(`^iface:"([^"]+)" *`)

	reHDIface      = regexp.MustCompile(`^(.*([0-9]+/)*[gx][0-9]+[^:]*).*$`)
	reHDSpeed      = regexp.MustCompile(`^Speed *: ([a-z0-9]+).*$`)
	reHDOperState  = regexp.MustCompile(`^Operational status *: .*disabled.*$`)
	reHDCurrState  = regexp.MustCompile(`^Current port state *: ((.*full-duplex)|(N/A)).*$`)
)

// Host drives one Calix E-series switch.
type Host struct {
	b     *boss.Boss
	phost *proptree.PropTree
	term  *terminal.Terminal
}

// New constructs a Calix E-series host.
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
	case "list-iface-details":
		return h.listIfaceDetails(args)
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

func (h *Host) listIfaces() error {
	if err := h.getTerminal(); err != nil {
		return err
	}
	tree := &proptree.PropTree{}
	var editing *proptree.PropTree

	onData := func(data string) {
		if m := reIface.FindStringSubmatch(data); m != nil {
			tid := m[1]
			descr := strings.Trim(m[3], " ")
			descr = strings.TrimRight(descr, "+")
			descr = strings.Trim(descr, " ")
			editing = tree.At(tid)
			editing.At("description").SetData(descr)
			speedStr := m[5]
			if sm := reSpeed.FindStringSubmatch(speedStr); sm != nil {
				n, _ := strconv.Atoi(sm[1])
				if sm[3] == "g" {
					editing.At("speed").SetData(strconv.Itoa(n * 1000))
				} else {
					editing.At("speed").SetData(strconv.Itoa(n))
				}
			} else {
				editing.At("speed").SetData("0")
			}
			editing.At("members")
			editing.At("combiner")
			return
		}
		if m := reLag.FindStringSubmatch(data); m != nil {
			tid := strings.TrimRight(m[1], " ")
			editing = tree.At(tid)
			editing.At("description").SetData(tid)
			return
		}
		if m := reLagSpeed.FindStringSubmatch(data); m != nil {
			realSpeed, _ := strconv.Atoi(m[1])
			lagCt := 0
			if realSpeed > 0 {
				digits := len(strconv.Itoa(realSpeed))
				baseSpeed := 1
				for i := 1; i < digits; i++ {
					baseSpeed *= 10
				}
				lagCt = realSpeed / baseSpeed
				realSpeed = baseSpeed
			}
			if editing != nil {
				editing.At("speed").SetData(strconv.Itoa(realSpeed * 1000))
				editing.At("members").SetData(strconv.Itoa(lagCt))
				editing.At("combiner")
			}
		}
	}

	if err := h.term.Execute("show interface", onData); err != nil {
		return err
	}
	if err := h.term.Execute("show interface lag detail", onData); err != nil {
		return err
	}
	return h.b.SendPropTree("interfaces", tree)
}

func (h *Host) listIfaceDetails(args string) error {
	if args == "" {
		return fmt.Errorf("Must provide a port to show details for")
	}
	if err := h.getTerminal(); err != nil {
		return err
	}

	data := &proptree.PropTree{}
	data.At("sfp-present").SetData("0")

	var editing *proptree.PropTree
	var lineCombine string

	flush := func() {
		if lineCombine != "" && editing != nil {
			editing.SetData(lineCombine)
		}
		lineCombine = ""
		editing = nil
	}

	err := h.term.Execute("show eth-port "+args+" detail", func(line string) {
		if lineCombine != "" {
			if m := reContinue.FindStringSubmatch(line); m != nil {
				lineCombine += " " + m[1]
				return
			}
			flush()
		}
		switch {
		case reMAC.MatchString(line):
			data.At("iface-mac").SetData(reMAC.FindStringSubmatch(line)[1])
		case reSFPPres.MatchString(line):
			data.At("sfp-present").SetData("1")
		case reConnType.MatchString(line):
			editing = data.At("connector-type")
			lineCombine = reConnType.FindStringSubmatch(line)[1]
		case reSFPVendor.MatchString(line):
			editing = data.At("sfp-vendor")
			lineCombine = reSFPVendor.FindStringSubmatch(line)[1]
		case reSFPVers.MatchString(line):
			editing = data.At("sfp-version")
			lineCombine = reSFPVers.FindStringSubmatch(line)[1]
		case reDistance.MatchString(line):
			editing = data.At("distance-rating")
			lineCombine = reDistance.FindStringSubmatch(line)[1]
		case reTxWave.MatchString(line):
			data.At("tx-wave").SetData(reTxWave.FindStringSubmatch(line)[1] + "nm")
		case reLaserTemp.MatchString(line):
			data.At("laser-temp").SetData(reLaserTemp.FindStringSubmatch(line)[1])
		case reTxDBm.MatchString(line):
			m := reTxDBm.FindStringSubmatch(line)
			whole, _ := strconv.Atoi(m[1])
			frac, _ := strconv.Atoi(m[2])
			data.At("tx-dbm").SetData(opticalmath.DBm(whole, frac))
		case reRxDBm.MatchString(line):
			m := reRxDBm.FindStringSubmatch(line)
			whole, _ := strconv.Atoi(m[1])
			frac, _ := strconv.Atoi(m[2])
			data.At("rx-dbm").SetData(opticalmath.DBm(whole, frac))
		}
	})
	if err != nil {
		return err
	}
	return h.b.SendPropTree("iface-details", data)
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
	onData := func(data string) {
		if m := reVlanName.FindStringSubmatch(data); m != nil {
			info.At("name").SetData(m[1])
			return
		}
		if m := reVlanMem.FindStringSubmatch(data); m != nil {
			info.At("interfaces").ArrayPushBackString(strings.TrimRight(m[1], " "))
		}
	}
	if err := h.term.Execute("show vlan "+args, onData); err != nil {
		return err
	}
	if err := h.term.Execute("show vlan "+args+" members", onData); err != nil {
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
		if strings.HasPrefix(data, "failed") {
			result.At("errors").ArrayPushBackString(data)
		}
	}

	input := args
	for {
		if m := reCreate.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			if err := h.term.Execute(`create vlan `+m[1]+` name "`+m[2]+`"`, onErr); err != nil {
				return err
			}
			continue
		}
		if m := reRename.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			if err := h.term.Execute(`set vlan `+m[1]+` name "`+m[2]+`"`, onErr); err != nil {
				return err
			}
			continue
		}
		if m := reAddMembers.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			for {
				im := reIfaceClause.FindStringSubmatch(input)
				if im == nil {
					break
				}
				input = input[len(im[0]):]
				if err := h.term.Execute(`add interface "`+im[1]+`" to-vlan `+m[1], onErr); err != nil {
					return err
				}
			}
			continue
		}
		if m := reRemoveMembers.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			for {
				im := reIfaceClause.FindStringSubmatch(input)
				if im == nil {
					break
				}
				input = input[len(im[0]):]
				if err := h.term.Execute(`remove interface "`+im[1]+`" from-vlan `+m[1], onErr); err != nil {
					return err
				}
			}
			continue
		}
		if m := reDelete.FindStringSubmatch(input); m != nil {
			input = input[len(m[0]):]
			if err := h.term.Execute("delete vlan "+m[1], onErr); err != nil {
				return err
			}
			continue
		}
		break
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
	ifaces := &proptree.PropTree{}
	var unverified string

	onData := func(data string) {
		if m := reHDIface.FindStringSubmatch(data); m != nil {
			if unverified != "" {
				ifaces.ArrayPushBackString(unverified)
			}
			unverified = m[1]
			return
		}
		if unverified == "" {
			return
		}
		if m := reHDSpeed.FindStringSubmatch(data); m != nil {
			if m[1] != "auto" {
				unverified = ""
			}
			return
		}
		if reHDOperState.MatchString(data) {
			unverified = ""
			return
		}
		if reHDCurrState.MatchString(data) {
			unverified = ""
			return
		}
	}
	if err := h.term.Execute("show eth-port detail", onData); err != nil {
		return err
	}
	if err := h.term.Execute("show ont-port detail", onData); err != nil {
		return err
	}
	return h.b.SendPropTree("interfaces", ifaces)
}

func (h *Host) getTerminal() error {
	if h.term != nil {
		return nil
	}
	if h.phost.ChildExists("proto-ssh") {
		term, err := terminal.New("ssh", h.phost.Get("hostname").Data(), 0,
			h.phost.Get("proto-ssh"), `[a-zA-Z0-9_-]+>`, "--MORE--")
		if err != nil {
			return err
		}
		h.term = term
		return nil
	}
	if !h.phost.ChildExists("proto-telnet") {
		return fmt.Errorf("Must use proto-ssh or proto-telnet for Calix E-series")
	}
	term, err := terminal.New("telnet", h.phost.Get("hostname").Data(), 0,
		h.phost.Get("proto-telnet"), `.?Username: `, "--MORE--")
	if err != nil {
		return err
	}
	h.term = term
	auth := h.phost.Get("proto-telnet")
	if err := term.SetPromptRegex("Password: "); err != nil {
		return err
	}
	if err := term.Execute(auth.Get("username").Data(), nil); err != nil {
		return err
	}
	if err := term.SetPromptRegex(`[a-zA-Z0-9_-]+>`); err != nil {
		return err
	}
	return term.Execute(auth.Get("password").Data(), nil)
}
