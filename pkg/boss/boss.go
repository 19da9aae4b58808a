// Package boss implements the framed JSON control channel the agent speaks
// to its controller ("boss"): either a TCP loopback connection or, absent a
// port, standard input/output. Every JSON value in either direction is
// terminated by the fixed six-byte sentinel "}}:}}:" rather than a length
// prefix or newline, so the reader has to scan the trailing bytes of its
// buffer rather than delimiting on a single character.
package boss

import (
	"bufio"
	"fmt"
	"io"
	"net"

	"github.com/jmeubank/switchtool/internal/util"
	"github.com/jmeubank/switchtool/pkg/proptree"
)

// Sentinel terminates every JSON value sent in either direction.
const Sentinel = "}}:}}:"

// Boss is the bidirectional framed channel to the controller.
type Boss struct {
	r      *bufio.Reader
	w      *bufio.Writer
	closer io.Closer // non-nil only for the TCP-backed transport
	isTCP  bool
}

// NewStdio builds a Boss that frames JSON over the process's standard
// input and output, used when the agent is invoked with no port argument.
func NewStdio(stdin io.Reader, stdout io.Writer) *Boss {
	return &Boss{
		r: bufio.NewReader(stdin),
		w: bufio.NewWriter(stdout),
	}
}

// Dial connects to 127.0.0.1:port and frames JSON over that TCP socket.
func Dial(port int) (*Boss, error) {
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to 127.0.0.1:%d: %w", port, err)
	}
	return &Boss{
		r:      bufio.NewReader(conn),
		w:      bufio.NewWriter(conn),
		closer: conn,
		isTCP:  true,
	}, nil
}

// IsTCP reports whether this Boss is backed by a TCP socket rather than
// stdio.
func (b *Boss) IsTCP() bool { return b.isTCP }

// Close releases the underlying TCP connection, if any. Stdio-backed Boss
// instances have nothing to close.
func (b *Boss) Close() error {
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}

// GetOp blocks until one complete sentinel-terminated JSON document has
// arrived, then parses it into a PropTree. An EOF or read error on the
// underlying transport surfaces as an error naming which channel failed.
func (b *Boss) GetOp() (*proptree.PropTree, error) {
	var buf []byte
	sentLen := len(Sentinel)
	for {
		c, err := b.r.ReadByte()
		if err != nil {
			if b.isTCP {
				return nil, fmt.Errorf("EOF or error on boss TCP input: %w", err)
			}
			return nil, fmt.Errorf("EOF or error on boss stdin input: %w", err)
		}
		buf = append(buf, c)
		if len(buf) >= sentLen && string(buf[len(buf)-sentLen:]) == Sentinel {
			break
		}
	}
	buf = buf[:len(buf)-sentLen]
	return proptree.FromJSON(string(buf))
}

// send writes raw bytes and flushes immediately: the agent speaks one frame
// at a time and the boss on the other end is blocked waiting for it.
func (b *Boss) send(data string) error {
	if _, err := b.w.WriteString(data); err != nil {
		return err
	}
	return b.w.Flush()
}

// SendReady emits {"ready": 1}.
func (b *Boss) SendReady() error {
	return b.send("{\"ready\": 1}\n" + Sentinel + "\n")
}

// SendGoodbye emits {"goodbye": 1}, sent once on clean main-loop exit.
func (b *Boss) SendGoodbye() error {
	return b.send("{\"goodbye\": 1}\n" + Sentinel + "\n")
}

// SendError emits {"error": "<msg>"}, the agent's single top-level failure
// event (spec.md §7: "the process exits at most once per invocation").
func (b *Boss) SendError(msg string) error {
	util.WithField("event", "error").Warn(msg)
	return b.send("{\"error\": \"" + escapeJSONString(msg) + "\"}\n" + Sentinel + "\n")
}

// SendLine emits {"line": "<data>"}, one raw pass-through device line during
// a passthru command.
func (b *Boss) SendLine(data string) error {
	return b.send("{\"line\": \"" + escapeJSONString(data) + "\"}\n" + Sentinel + "\n")
}

// SendOutputFinished emits {"output-finished": 1}, terminating a passthru
// command's line stream.
func (b *Boss) SendOutputFinished() error {
	return b.send("{\"output-finished\": 1}\n" + Sentinel + "\n")
}

// SendPropTree emits {"<name>": <tree-as-json>}, the vehicle for every
// named structured result (interfaces, vlan, iface-details, result).
func (b *Boss) SendPropTree(name string, tree *proptree.PropTree) error {
	wrapper := &proptree.PropTree{}
	wrapper.SetChild(name, tree)
	return b.send(wrapper.ToJSON() + "\n" + Sentinel + "\n")
}

// escapeJSONString mirrors the original agent's escapeJsonString: backslash,
// quote, forward-slash, and the standard control-character escapes.
func escapeJSONString(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			out = append(out, '\\', '\\')
		case '"':
			out = append(out, '\\', '"')
		case '/':
			out = append(out, '\\', '/')
		case '\b':
			out = append(out, '\\', 'b')
		case '\f':
			out = append(out, '\\', 'f')
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// WriteReadyToStdout writes the startup-ready frame directly to stdout,
// bypassing any TCP-backed Boss. The agent calls this in addition to
// Boss.SendReady when running in TCP mode, reproducing the original's
// load-bearing dual-ready quirk for bosses that read either channel
// (spec.md §4.2, §9).
func WriteReadyToStdout(stdout io.Writer) error {
	_, err := io.WriteString(stdout, "{\"ready\": 1}\n"+Sentinel+"\n")
	return err
}
