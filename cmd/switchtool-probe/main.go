// Command switchtool-probe is a minimal interactive "boss": it listens on a
// TCP port, waits for a switchtool-agent process to dial in, then prompts an
// operator for a host descriptor and a stream of commands, printing
// whatever the agent sends back. It exists for manual testing against a
// live device (or a loopback device simulator) without standing up a real
// controller.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmeubank/switchtool/pkg/boss"
	"github.com/jmeubank/switchtool/pkg/proptree"
)

var listenPort int

func main() {
	rootCmd := &cobra.Command{
		Use:           "switchtool-probe",
		Short:         "Interactive boss-side test harness for switchtool-agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	rootCmd.Flags().IntVar(&listenPort, "port", 9191, "TCP port to listen on for the agent")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", listenPort))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", listenPort, err)
	}
	defer ln.Close()

	fmt.Printf("Waiting for switchtool-agent to connect on 127.0.0.1:%d ...\n", listenPort)
	fmt.Printf("(run: switchtool-agent %d)\n", listenPort)

	conn, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accepting agent connection: %w", err)
	}
	defer conn.Close()

	session := &probeSession{conn: conn, stdin: bufio.NewReader(os.Stdin)}

	ready, err := session.readFrame()
	if err != nil {
		return fmt.Errorf("waiting for agent ready: %w", err)
	}
	if !ready.ChildExists("ready") {
		return fmt.Errorf("expected a ready frame, got: %s", ready.ToJSON())
	}
	fmt.Println("Agent ready.")

	host := session.promptHostDescriptor()
	wrapper := &proptree.PropTree{}
	wrapper.SetChild("host", host)
	if err := session.sendFrame(wrapper); err != nil {
		return fmt.Errorf("sending host descriptor: %w", err)
	}

	for {
		cmdTree := session.promptCommand()
		if cmdTree == nil {
			break
		}
		if err := session.sendFrame(cmdTree); err != nil {
			return fmt.Errorf("sending command: %w", err)
		}
		if cmdTree.ChildExists("end") {
			break
		}
		if err := session.drainUntilSettled(); err != nil {
			return err
		}
	}

	return nil
}

type probeSession struct {
	conn  net.Conn
	stdin *bufio.Reader
}

// readFrame reads one sentinel-framed JSON document, the probe-side
// counterpart of boss.Boss.GetOp (duplicated rather than shared since this
// tool plays the opposite role in the protocol — the boss, not the agent).
func (s *probeSession) readFrame() (*proptree.PropTree, error) {
	var buf []byte
	sentLen := len(boss.Sentinel)
	b := make([]byte, 1)
	for {
		if _, err := s.conn.Read(b); err != nil {
			return nil, err
		}
		buf = append(buf, b[0])
		if len(buf) >= sentLen && string(buf[len(buf)-sentLen:]) == boss.Sentinel {
			break
		}
	}
	buf = buf[:len(buf)-sentLen]
	return proptree.FromJSON(string(buf))
}

func (s *probeSession) sendFrame(tree *proptree.PropTree) error {
	_, err := fmt.Fprintf(s.conn, "%s\n%s\n", tree.ToJSON(), boss.Sentinel)
	return err
}

func (s *probeSession) promptHostDescriptor() *proptree.PropTree {
	host := &proptree.PropTree{}
	fmt.Print("Switch type (e.g. ciscoios, junosswitch, calixeseries, calixaeont, airos): ")
	host.At("type").SetData(s.readLine())
	fmt.Print("Hostname or IP: ")
	host.At("hostname").SetData(s.readLine())

	fmt.Print("Protocol for this session (telnet, ssh, netconfssh): ")
	proto := s.readLine()
	authKey := "proto-" + proto
	auth := host.At(authKey)
	fmt.Print("Username: ")
	auth.At("username").SetData(s.readLine())
	auth.At("password").SetData(s.readPassword())
	fmt.Print("SNMP community (leave blank to skip): ")
	if community := s.readLine(); community != "" {
		host.At("proto-snmp2").SetData(community)
	}
	return host
}

func (s *probeSession) promptCommand() *proptree.PropTree {
	fmt.Print("\ncommand (blank line to send \"end\"): ")
	line := s.readLine()
	cmdTree := &proptree.PropTree{}
	if strings.TrimSpace(line) == "" {
		cmdTree.At("end").SetData("1")
		return cmdTree
	}
	fmt.Print("args: ")
	args := s.readLine()
	cmdTree.At("command").SetData(line)
	cmdTree.At("args").SetData(args)
	return cmdTree
}

// drainUntilSettled prints frames until one that ends a command's reply
// stream: a named result tree, an output-finished marker, or an error.
func (s *probeSession) drainUntilSettled() error {
	for {
		frame, err := s.readFrame()
		if err != nil {
			return fmt.Errorf("reading agent reply: %w", err)
		}
		fmt.Println(frame.ToJSON())
		if frame.ChildExists("output-finished") || frame.ChildExists("error") || frame.ChildExists("goodbye") {
			return nil
		}
		if frame.ChildExists("line") {
			continue
		}
		// Any other named top-level key is a one-shot structured result
		// (interfaces, vlan, result, iface-details).
		return nil
	}
}

func (s *probeSession) readLine() string {
	line, _ := s.stdin.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func (s *probeSession) readPassword() string {
	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return s.readLine()
	}
	return string(pw)
}
