package junos

import (
	"fmt"
	"strings"
)

// configEdit accumulates the <vlans> mutations a single mod-vlans command
// makes across several clauses, so they can be committed as one
// candidate-config transaction rather than one RPC per clause.
type configEdit struct {
	vlans []*vlanEdit
}

type vlanEdit struct {
	operation string // "" or "delete"
	name      string
	vlanID    string // set only when creating a brand new vlan element
	ifaces    []ifaceEdit
}

type ifaceEdit struct {
	operation string // "" or "delete"
	name      string
}

// newVlan appends a freshly created vlan (mod-vlans "create").
func (c *configEdit) newVlan(vlanID, name string) {
	c.vlans = append(c.vlans, &vlanEdit{name: name, vlanID: vlanID})
}

// deleteVlan appends a vlan-delete element for an existing vlan name.
func (c *configEdit) deleteVlan(name string) {
	c.vlans = append(c.vlans, &vlanEdit{operation: "delete", name: name})
}

// findOrCreateMemberVlan returns the accumulated edit for an existing
// vlan's member list, creating a bare (no vlan-id) element for it on
// first use, matching the original's "look up by name in the edit doc,
// or start a fresh <vlan> element if this is its first mutation" logic.
func (c *configEdit) findOrCreateMemberVlan(name string) *vlanEdit {
	for _, v := range c.vlans {
		if v.name == name {
			return v
		}
	}
	v := &vlanEdit{name: name}
	c.vlans = append(c.vlans, v)
	return v
}

func (v *vlanEdit) addInterface(name string, deleted bool) {
	op := ""
	if deleted {
		op = "delete"
	}
	v.ifaces = append(v.ifaces, ifaceEdit{operation: op, name: name + ".0"})
}

// render produces the full <rpc><edit-config>...</edit-config></rpc>
// envelope for every accumulated vlan mutation.
func (c *configEdit) render() string {
	var b strings.Builder
	b.WriteString("<rpc><edit-config><target><candidate/></target><config><configuration><vlans>")
	for _, v := range c.vlans {
		b.WriteString(v.render())
	}
	b.WriteString("</vlans></configuration></config></edit-config></rpc>")
	return b.String()
}

func (v *vlanEdit) render() string {
	var b strings.Builder
	if v.operation != "" {
		fmt.Fprintf(&b, `<vlan operation="%s">`, v.operation)
	} else {
		b.WriteString("<vlan>")
	}
	fmt.Fprintf(&b, "<name>%s</name>", xmlEscape(v.name))
	if v.vlanID != "" {
		fmt.Fprintf(&b, "<vlan-id>%s</vlan-id>", xmlEscape(v.vlanID))
	}
	for _, i := range v.ifaces {
		if i.operation != "" {
			fmt.Fprintf(&b, `<interface operation="%s"><name>%s</name></interface>`, i.operation, xmlEscape(i.name))
		} else {
			fmt.Fprintf(&b, "<interface><name>%s</name></interface>", xmlEscape(i.name))
		}
	}
	b.WriteString("</vlan>")
	return b.String()
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
