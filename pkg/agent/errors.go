package agent

import "fmt"

// TransportError wraps a dial/read/write failure against a device's
// management session (Telnet, SSH, or NETCONF).
type TransportError struct {
	Protocol string
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Protocol, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigError covers a host descriptor the agent cannot act on: an unknown
// switch type, a missing credential, a protocol the vendor handler does
// not support. Its message is Detail alone; Vendor is not part of it.
type ConfigError struct {
	Vendor string
	Detail string
}

func (e *ConfigError) Error() string {
	return e.Detail
}

// InputError covers a malformed boss operation: a missing "command" field,
// an op that is neither a host descriptor nor a command.
type InputError struct {
	Detail string
}

func (e *InputError) Error() string { return e.Detail }
