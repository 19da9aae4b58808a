// Package device is the per-vendor handler registry: every device family
// package self-registers a constructor in its init() function, and
// Construct looks one up by the "type" field of the host descriptor the
// boss sends, the Go replacement for the original's virtual-inheritance
// HostFactory/HostFactoryRegistrant pair (spec.md §9 redesign guidance).
package device

import (
	"fmt"

	"github.com/jmeubank/switchtool/pkg/boss"
	"github.com/jmeubank/switchtool/pkg/proptree"
)

// Host executes boss commands against one connected device. A Host is
// constructed once per agent invocation, holding onto the Boss it was
// built with, and torn down (its Close called) when the main loop exits.
type Host interface {
	// Execute runs one boss command (e.g. "list-ifaces", "mod-vlans")
	// with its raw argument string, sending whatever result events the
	// command produces back over the Boss it was constructed with.
	Execute(cmd, args string) error

	// Close releases any open terminal/session. Committing pending
	// configuration (JunOS) happens here too, matching the original's
	// destructor-time CommitConfig call.
	Close() error
}

// Constructor builds a Host from the boss that will receive its results
// and the host-descriptor PropTree describing how to reach the device.
type Constructor func(b *boss.Boss, phost *proptree.PropTree) (Host, error)

var factories = map[string]Constructor{}

// Register records a family's constructor under its "type" tag. Called
// from each device family package's init().
func Register(switchType string, ctor Constructor) {
	factories[switchType] = ctor
}

// Construct builds the Host named by phost's "type" field.
func Construct(b *boss.Boss, phost *proptree.PropTree) (Host, error) {
	switchType := phost.Get("type").Data()
	ctor, ok := factories[switchType]
	if !ok {
		return nil, fmt.Errorf("No function library for switch type '%s'", switchType)
	}
	return ctor(b, phost)
}
