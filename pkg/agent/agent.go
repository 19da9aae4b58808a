// Package agent drives the top-level boss protocol loop: read the host
// descriptor, construct its vendor handler, then dispatch commands until
// "end" or a fatal error, the Go replacement for main.cpp's try/catch-wrapped
// while loop.
package agent

import (
	"github.com/jmeubank/switchtool/internal/util"
	"github.com/jmeubank/switchtool/pkg/boss"
	"github.com/jmeubank/switchtool/pkg/device"
)

// Agent runs one boss session end to end.
type Agent struct {
	b *boss.Boss
}

// New wraps a connected Boss.
func New(b *boss.Boss) *Agent {
	return &Agent{b: b}
}

// Run reads the host descriptor, constructs its handler, and dispatches
// commands until the boss sends "end". A command that returns an error
// ends the session immediately after reporting it — matching the
// original's single top-level SendError-then-exit contract: most command
// failures (e.g. an unknown VLAN in a mod-vlans clause) are accumulated
// into the result tree by the handler itself and never reach here as Go
// errors at all.
func (a *Agent) Run() error {
	op, err := a.b.GetOp()
	if err != nil {
		return err
	}
	if !op.ChildExists("host") {
		return &InputError{Detail: "host descriptor expected"}
	}
	phost := op.Get("host")

	host, err := device.Construct(a.b, phost)
	if err != nil {
		return &ConfigError{Vendor: phost.Get("type").Data(), Detail: err.Error()}
	}

	for {
		op, err := a.b.GetOp()
		if err != nil {
			host.Close()
			return err
		}
		if op.ChildExists("end") {
			break
		}
		if !op.ChildExists("command") {
			host.Close()
			return &InputError{Detail: "Command expected"}
		}

		cmd := op.Get("command").Data()
		args := op.Get("args").Data()
		util.WithOperation(cmd).Info("dispatching command")

		if err := host.Execute(cmd, args); err != nil {
			util.WithOperation(cmd).WithField("error", err).Warn("command failed")
			host.Close()
			return err
		}
	}

	if err := host.Close(); err != nil {
		return err
	}
	return a.b.SendGoodbye()
}
