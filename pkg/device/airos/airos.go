// Package airos drives a Ubiquiti AirOS radio over SSH. Like calixaeont,
// its only supported command is a raw passthru CLI session.
package airos

import (
	"fmt"

	"github.com/jmeubank/switchtool/pkg/boss"
	"github.com/jmeubank/switchtool/pkg/device"
	"github.com/jmeubank/switchtool/pkg/proptree"
	"github.com/jmeubank/switchtool/pkg/terminal"
)

func init() {
	device.Register("airos", New)
}

// Host drives one AirOS session.
type Host struct {
	b     *boss.Boss
	phost *proptree.PropTree
	term  *terminal.Terminal
}

// New constructs an AirOS host.
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
	proto := h.phost.Get("proto-ssh")
	if proto.Get("auth").Data() != "userpass" {
		return fmt.Errorf(`Must use proto-ssh with auth "userpass" for AirOS`)
	}

	term, err := terminal.New("ssh", h.phost.Get("hostname").Data(), 0, proto,
		"[^#]+# ", "--MORE--")
	if err != nil {
		return err
	}
	h.term = term
	return term.Execute("", nil)
}
