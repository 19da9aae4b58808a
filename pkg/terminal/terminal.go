// Package terminal unifies Telnet, interactive SSH, and NETCONF-over-SSH
// behind a single Execute(cmd, onData) call, hiding the differences between
// a prompt-scraped CLI session and a single framed NETCONF exchange.
package terminal

import (
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/jmeubank/switchtool/pkg/proptree"
	"github.com/jmeubank/switchtool/pkg/transport"
)

// NetworkTimeout bounds how long Execute waits for the next character (or,
// for NETCONF, the whole reply) before giving up. Overridable by pkg/config
// at startup; 30s matches the original's hardcoded read timeout.
var NetworkTimeout = 30 * time.Second

// Terminal drives one connected session to a device.
type Terminal struct {
	proto    string
	promptRE *regexp.Regexp
	contRE   *regexp.Regexp

	conn    transport.Conn // telnet, ssh
	netconf transport.NetconfTransport

	br *byteReader
}

// New dials the device and, for Telnet/SSH, drains the login banner up to
// the first prompt match. NETCONF has no banner to drain: the subsystem
// channel is ready for framed exchanges as soon as it opens.
func New(proto, host string, port int, auth *proptree.PropTree, promptRegex, continuationRegex string) (*Terminal, error) {
	if proto != "netconf" && promptRegex == "" {
		return nil, fmt.Errorf("must supply a prompt regex")
	}

	if authPort := auth.Get("port").Data(); authPort != "" {
		if p, err := parsePort(authPort); err == nil {
			port = p
		}
	}

	t := &Terminal{proto: proto}
	if promptRegex != "" {
		re, err := anchoredRegexp(promptRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid prompt regex: %w", err)
		}
		t.promptRE = re
	}
	if continuationRegex != "" {
		re, err := anchoredRegexp(continuationRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid continuation regex: %w", err)
		}
		t.contRE = re
	}

	user := auth.Get("username").Data()
	pass := auth.Get("password").Data()

	switch proto {
	case "telnet":
		conn, err := transport.DialTelnet(host, port, NetworkTimeout)
		if err != nil {
			return nil, err
		}
		return attachConn(t, conn)
	case "ssh":
		conn, err := transport.DialSSH(host, port, user, pass, NetworkTimeout)
		if err != nil {
			return nil, err
		}
		return attachConn(t, conn)
	case "netconf":
		nc, err := transport.DialNetconfSSH(host, port, user, pass, NetworkTimeout)
		if err != nil {
			return nil, err
		}
		t.netconf = nc
		return t, nil
	default:
		return nil, fmt.Errorf("unknown terminal protocol %q", proto)
	}
}

// attachConn wires a byte-stream Conn into t and drains the login banner.
// Split out of New so tests can drive the prompt/pager state machine
// against an in-memory fake Conn without dialing a real socket.
func attachConn(t *Terminal, conn transport.Conn) (*Terminal, error) {
	t.conn = conn
	t.br = newByteReader(conn)
	if err := t.drainBanner(); err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

// NewWithConn builds a Telnet/SSH-style Terminal over an already-connected
// Conn, skipping protocol dialing entirely. It exists for tests.
func NewWithConn(conn transport.Conn, promptRegex, continuationRegex string) (*Terminal, error) {
	if promptRegex == "" {
		return nil, fmt.Errorf("must supply a prompt regex")
	}
	t := &Terminal{proto: "telnet"}
	re, err := anchoredRegexp(promptRegex)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt regex: %w", err)
	}
	t.promptRE = re
	if continuationRegex != "" {
		contRE, err := anchoredRegexp(continuationRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid continuation regex: %w", err)
		}
		t.contRE = contRE
	}
	return attachConn(t, conn)
}

// NewWithNetconfTransport builds a NETCONF-style Terminal over an
// already-connected NetconfTransport, skipping SSH dialing entirely. It
// exists for tests.
func NewWithNetconfTransport(nc transport.NetconfTransport) *Terminal {
	return &Terminal{proto: "netconf", netconf: nc}
}

func parsePort(s string) (int, error) {
	var p int
	_, err := fmt.Sscanf(s, "%d", &p)
	return p, err
}

// anchoredRegexp wraps a prompt/pager pattern so MatchString behaves like
// pcrecpp's FullMatch: the whole accumulated buffer must match, not just a
// substring of it.
func anchoredRegexp(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")$")
}

// drainBanner discards login-banner text line by line until the prompt
// first fully matches, matching the original's unconditional \r/\n-clears
// loop (no backspace/null handling here — that only applies once inside
// Execute's real capture loop).
func (t *Terminal) drainBanner() error {
	var buf []byte
	for {
		c, err := t.br.ReadByte(NetworkTimeout)
		if err != nil {
			return err
		}
		if c == '\r' || c == '\n' {
			buf = buf[:0]
			continue
		}
		buf = append(buf, c)
		if t.promptRE.Match(buf) {
			return nil
		}
	}
}

// SetPromptRegex replaces the prompt pattern mid-session, used when a
// vendor handler steps a device through nested privilege/config prompts.
func (t *Terminal) SetPromptRegex(pattern string) error {
	re, err := anchoredRegexp(pattern)
	if err != nil {
		return err
	}
	t.promptRE = re
	return nil
}

// SetContinuationRegex replaces the pager/continuation pattern mid-session.
func (t *Terminal) SetContinuationRegex(pattern string) error {
	re, err := anchoredRegexp(pattern)
	if err != nil {
		return err
	}
	t.contRE = re
	return nil
}

// Close releases the underlying connection.
func (t *Terminal) Close() error {
	if t.netconf != nil {
		return t.netconf.Close()
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// Execute sends cmd and delivers the device's response. For Telnet/SSH,
// onData is called once per completed line; the partial line that fully
// matches the prompt ends the call and is not delivered. Encountering the
// continuation/pager pattern sends a single space to page through and keeps
// reading. For NETCONF, onData is called exactly once with the whole framed
// reply, and waiting for it is bounded by NetworkTimeout.
func (t *Terminal) Execute(cmd string, onData func(line string)) error {
	if t.proto == "netconf" {
		if err := t.netconf.Send([]byte(cmd)); err != nil {
			return err
		}
		type received struct {
			reply []byte
			err   error
		}
		done := make(chan received, 1)
		go func() {
			reply, err := t.netconf.Receive()
			done <- received{reply, err}
		}()
		var r received
		select {
		case r = <-done:
		case <-time.After(NetworkTimeout):
			return fmt.Errorf("timeout waiting for NETCONF reply after %s", NetworkTimeout)
		}
		if r.err != nil {
			return r.err
		}
		if onData != nil {
			onData(string(r.reply))
		}
		return nil
	}

	if err := t.send(cmd + "\r"); err != nil {
		return err
	}
	// discard the echoed command line
	for {
		c, err := t.br.ReadByte(NetworkTimeout)
		if err != nil {
			return err
		}
		if c == '\n' {
			break
		}
	}

	var buf []byte
	for {
		c, err := t.br.ReadByte(NetworkTimeout)
		if err != nil {
			return err
		}
		switch c {
		case 8: // backspace
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
			}
			continue
		case 0:
			buf = buf[:0]
			continue
		case '\n':
			if onData != nil {
				onData(string(buf))
			}
			buf = buf[:0]
			continue
		case '\r':
			continue
		}
		buf = append(buf, c)
		// Prompt is checked before the continuation/pager pattern: a
		// device's prompt text can itself look like pageable output, and
		// the session is done once the prompt has fully returned.
		if t.promptRE != nil && t.promptRE.Match(buf) {
			return nil
		}
		if t.contRE != nil && t.contRE.Match(buf) {
			if err := t.send(" "); err != nil {
				return err
			}
		}
	}
}

func (t *Terminal) send(s string) error {
	_, err := io.WriteString(t.conn, s)
	return err
}
