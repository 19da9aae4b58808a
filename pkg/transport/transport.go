// Package transport dials the three wire protocols the agent speaks to a
// device: Telnet, interactive SSH, and NETCONF-over-SSH. Each constructor
// hides a different third-party client behind one of two small interfaces
// so that pkg/terminal can drive all of them with the same state machine.
package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/Juniper/go-netconf/netconf/transport"
	"github.com/ziutek/telnet"
	"golang.org/x/crypto/ssh"
)

// Conn is a raw byte-stream connection: Telnet and interactive SSH both
// reduce to "write a command, read a stream of bytes back".
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// NetconfTransport is the framed request/response transport NETCONF uses.
// github.com/Juniper/go-netconf's SSH transport already implements RFC 4742
// ]]>]]> framing on Send/Receive, which is exactly the sentinel-delimited
// single-shot exchange pkg/terminal needs for a NETCONF command, so it is
// used directly rather than flattened into the byte-stream Conn interface.
type NetconfTransport interface {
	Send([]byte) error
	Receive() ([]byte, error)
	Close() error
}

var defaultPorts = map[string]int{
	"telnet":  23,
	"ssh":     22,
	"netconf": 830,
}

// DefaultPort returns the conventional port for a protocol tag, used when
// a device's host entry does not specify one explicitly.
func DefaultPort(proto string) int {
	return defaultPorts[proto]
}

// SetDefaultPort overrides the conventional port for a protocol tag. Called
// by pkg/config when a site's config file customizes one.
func SetDefaultPort(proto string, port int) {
	defaultPorts[proto] = port
}

// DialTelnet opens a Telnet connection. Most of the IAC option negotiation
// ziutek/telnet performs is transparent to the caller; Terminal treats the
// resulting Conn exactly like any other byte stream.
func DialTelnet(host string, port int, timeout time.Duration) (Conn, error) {
	if port == 0 {
		port = DefaultPort("telnet")
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := telnet.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("telnet dial %s: %w", addr, err)
	}
	conn.SetUnixWriteMode(true)
	return conn, nil
}

// sshShellConn adapts an interactive SSH session's stdin/stdout pipes, plus
// the client and session that own them, to the Conn interface.
type sshShellConn struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

func (c *sshShellConn) Read(p []byte) (int, error)  { return c.stdout.Read(p) }
func (c *sshShellConn) Write(p []byte) (int, error) { return c.stdin.Write(p) }

func (c *sshShellConn) Close() error {
	c.session.Close()
	return c.client.Close()
}

// DialSSH opens an interactive SSH session with a pty and an attached shell,
// the idiom a terminal-scraping client needs rather than NewSession's
// single-command Run/Output helpers.
func DialSSH(host string, port int, user, password string, timeout time.Duration) (Conn, error) {
	if port == 0 {
		port = DefaultPort("ssh")
	}
	config := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s@%s: %w", user, addr, err)
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("SSH session %s@%s: %w", user, addr, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 9600,
		ssh.TTY_OP_OSPEED: 9600,
	}
	if err := session.RequestPty("vanilla", 200, 80, modes); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("SSH pty %s@%s: %w", user, addr, err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, err
	}
	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("SSH shell %s@%s: %w", user, addr, err)
	}

	return &sshShellConn{client: client, session: session, stdin: stdin, stdout: stdout}, nil
}

// DialNetconfSSH opens the "netconf" SSH subsystem and returns the framed
// request/response transport, used by the JunOS handler.
func DialNetconfSSH(host string, port int, user, password string, timeout time.Duration) (NetconfTransport, error) {
	if port == 0 {
		port = DefaultPort("netconf")
	}
	config := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	t, err := transport.NewSSHSession(config, addr)
	if err != nil {
		return nil, fmt.Errorf("NETCONF SSH dial %s@%s: %w", user, addr, err)
	}
	return t, nil
}
