package junos

import "encoding/xml"

// rpcReply covers the shapes of NETCONF reply this handler needs to read:
// a plain <ok/> acknowledgement, an <rpc-error>, interface inventory, and
// VLAN inventory. JunOS nests rpc-error inside <commit-results> on a failed
// commit, so that path is modeled separately.
type rpcReply struct {
	XMLName              xml.Name              `xml:"rpc-reply"`
	OK                    *struct{}             `xml:"ok"`
	RPCError              *rpcError             `xml:"rpc-error"`
	CommitResults         *commitResults        `xml:"commit-results"`
	InterfaceInformation  *interfaceInformation `xml:"interface-information"`
	VlanInformation       *vlanInformation      `xml:"vlan-information"`
}

type commitResults struct {
	RPCError *rpcError `xml:"rpc-error"`
}

type rpcError struct {
	ErrorMessage string `xml:"error-message"`
}

type interfaceInformation struct {
	PhysicalInterface []physicalInterface `xml:"physical-interface"`
}

type physicalInterface struct {
	Name                      string              `xml:"name"`
	Description               string              `xml:"description"`
	OperStatus                string              `xml:"oper-status"`
	Speed                     string              `xml:"speed"`
	Duplex                    string              `xml:"duplex"`
	EthernetAutonegotiation   *ethernetAutoneg    `xml:"ethernet-autonegotiation"`
}

type ethernetAutoneg struct {
	LinkPartnerSpeed     string `xml:"link-partner-speed"`
	LinkPartnerDuplexity string `xml:"link-partner-duplexity"`
}

type vlanInformation struct {
	Vlan []vlanElem `xml:"vlan"`
}

type vlanElem struct {
	VlanTag    string      `xml:"vlan-tag"`
	VlanName   string      `xml:"vlan-name"`
	VlanDetail *vlanDetail `xml:"vlan-detail"`
}

type vlanDetail struct {
	VlanMemberList *vlanMemberList `xml:"vlan-member-list"`
}

type vlanMemberList struct {
	VlanMember []vlanMember `xml:"vlan-member"`
}

type vlanMember struct {
	VlanMemberInterface string `xml:"vlan-member-interface"`
}

// parseReply unmarshals one NETCONF reply. The returned error covers only
// malformed XML; a device-reported failure is read from the parsed struct
// with operationError.
func parseReply(data string) (*rpcReply, error) {
	var reply rpcReply
	if err := xml.Unmarshal([]byte(data), &reply); err != nil {
		return nil, &xmlParseError{detail: err.Error()}
	}
	return &reply, nil
}

type xmlParseError struct{ detail string }

func (e *xmlParseError) Error() string { return "XML error: " + e.detail }

// operationError extracts the device-reported failure from a reply that
// is not a bare <ok/>, preferring a commit-results error (present only on
// a failed commit) over the reply's own top-level rpc-error.
func (r *rpcReply) operationError() string {
	if r.CommitResults != nil && r.CommitResults.RPCError != nil {
		return r.CommitResults.RPCError.ErrorMessage
	}
	if r.RPCError != nil {
		return r.RPCError.ErrorMessage
	}
	return "Command failed for an unknown reason"
}
