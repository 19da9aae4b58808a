// Package calixaeont drives a Calix AE-series ONT over Telnet. Its only
// supported command is passthru: there is no structured inventory/VLAN
// surface on this device family, just a raw CLI session relayed line by
// line.
package calixaeont

import (
	"fmt"

	"github.com/jmeubank/switchtool/pkg/boss"
	"github.com/jmeubank/switchtool/pkg/device"
	"github.com/jmeubank/switchtool/pkg/proptree"
	"github.com/jmeubank/switchtool/pkg/terminal"
)

func init() {
	device.Register("calixaeont", New)
}

// Host drives one Calix AE ONT session.
type Host struct {
	b     *boss.Boss
	phost *proptree.PropTree
	term  *terminal.Terminal
}

// New constructs a Calix AE ONT host. The terminal is not dialed until the
// first command needs it.
func New(b *boss.Boss, phost *proptree.PropTree) (device.Host, error) {
	return &Host{b: b, phost: phost}, nil
}

// Execute runs cmd against the device.
func (h *Host) Execute(cmd, args string) error {
	switch cmd {
	case "passthru":
		if err := h.getTerminal(); err != nil {
			return err
		}
		if err := h.term.Execute(args, func(line string) {
			h.b.SendLine(line)
		}); err != nil {
			return err
		}
		return h.b.SendOutputFinished()
	default:
		return fmt.Errorf("Not implemented: %s", cmd)
	}
}

// Close releases the terminal session.
func (h *Host) Close() error {
	if h.term != nil {
		return h.term.Close()
	}
	return nil
}

func (h *Host) getTerminal() error {
	if h.term != nil {
		return nil
	}
	proto := h.phost.Get("proto-telnet")
	if proto.Get("auth").Data() != "userpass" {
		return fmt.Errorf(`Must use proto-telnet with auth "userpass" for Calix AE ONT`)
	}

	term, err := terminal.New("telnet", h.phost.Get("hostname").Data(), 0, proto,
		".?Enter login name:", "--MORE--")
	if err != nil {
		return err
	}
	h.term = term

	if err := term.SetPromptRegex("Enter password:"); err != nil {
		return err
	}
	if err := term.Execute(proto.Get("username").Data(), nil); err != nil {
		return err
	}
	if err := term.SetPromptRegex("Enter <CR> to continue:"); err != nil {
		return err
	}
	if err := term.Execute(proto.Get("password").Data(), nil); err != nil {
		return err
	}
	if err := term.SetPromptRegex("[^>]+> "); err != nil {
		return err
	}
	return term.Execute("", nil)
}
