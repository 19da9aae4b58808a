package boss

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jmeubank/switchtool/pkg/proptree"
)

func TestGetOpParsesSentinelFramedJSON(t *testing.T) {
	in := strings.NewReader(`{"op": "list-ifaces"}` + "\n" + Sentinel + "\n")
	b := NewStdio(in, &bytes.Buffer{})

	tree, err := b.GetOp()
	if err != nil {
		t.Fatal(err)
	}
	if got := tree.Get("op").Data(); got != "list-ifaces" {
		t.Fatalf("op = %q, want list-ifaces", got)
	}
}

func TestGetOpEndsFrameAtFirstSentinelEvenInsideJSONString(t *testing.T) {
	// The reader does not track JSON syntax: the first occurrence of the
	// sentinel's bytes ends the frame, even inside a string value, so the
	// truncated document that precedes it fails to parse.
	payload := `{"note": "not a }}:}}: terminator"}`
	in := strings.NewReader(payload + "\n" + Sentinel + "\n")
	b := NewStdio(in, &bytes.Buffer{})

	if _, err := b.GetOp(); err == nil {
		t.Fatal("expected a parse error for the frame cut at the embedded sentinel")
	}
}

func TestGetOpEOFReturnsError(t *testing.T) {
	b := NewStdio(strings.NewReader(""), &bytes.Buffer{})
	if _, err := b.GetOp(); err == nil {
		t.Fatal("expected an error on EOF before a complete frame arrives")
	}
}

func TestSendReadyFraming(t *testing.T) {
	var out bytes.Buffer
	b := NewStdio(strings.NewReader(""), &out)
	if err := b.SendReady(); err != nil {
		t.Fatal(err)
	}
	assertSingleFrame(t, out.String(), `{"ready": 1}`)
}

func TestSendErrorEscapesAndFrames(t *testing.T) {
	var out bytes.Buffer
	b := NewStdio(strings.NewReader(""), &out)
	if err := b.SendError(`device said "no"`); err != nil {
		t.Fatal(err)
	}
	body := assertSingleFrame(t, out.String(), "")
	if !strings.Contains(body, `\"no\"`) {
		t.Fatalf("expected escaped quotes in body, got %q", body)
	}
}

func TestSendPropTreeRoundTrips(t *testing.T) {
	var out bytes.Buffer
	b := NewStdio(strings.NewReader(""), &out)

	result := &proptree.PropTree{}
	result.At("eth0").SetData("up")
	if err := b.SendPropTree("interfaces", result); err != nil {
		t.Fatal(err)
	}

	frame := out.String()
	if !strings.HasSuffix(strings.TrimRight(frame, "\n"), Sentinel) {
		t.Fatalf("frame missing trailing sentinel: %q", frame)
	}
	body := strings.TrimSuffix(strings.TrimRight(frame, "\n"), Sentinel)
	parsed, err := proptree.FromJSON(body)
	if err != nil {
		t.Fatalf("re-parsing sent frame failed: %v", err)
	}
	if got := parsed.Get("interfaces").Get("eth0").Data(); got != "up" {
		t.Fatalf("round-tripped interfaces.eth0 = %q, want up", got)
	}
}

func TestMultipleSendsProduceIndependentFrames(t *testing.T) {
	var out bytes.Buffer
	b := NewStdio(strings.NewReader(""), &out)
	if err := b.SendLine("first"); err != nil {
		t.Fatal(err)
	}
	if err := b.SendLine("second"); err != nil {
		t.Fatal(err)
	}
	if err := b.SendOutputFinished(); err != nil {
		t.Fatal(err)
	}

	frames := strings.Split(strings.TrimSpace(out.String()), Sentinel)
	// trailing split element is empty after the last sentinel; drop it.
	var nonEmpty []string
	for _, f := range frames {
		if strings.TrimSpace(f) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(f))
		}
	}
	if len(nonEmpty) != 3 {
		t.Fatalf("expected 3 frames, got %d: %v", len(nonEmpty), nonEmpty)
	}
	if !strings.Contains(nonEmpty[0], "first") || !strings.Contains(nonEmpty[1], "second") {
		t.Fatalf("frames out of order: %v", nonEmpty)
	}
}

// assertSingleFrame checks that s is exactly one sentinel-terminated frame
// and, if want is non-empty, that the frame body equals it. It returns the
// frame body either way.
func assertSingleFrame(t *testing.T, s, want string) string {
	t.Helper()
	trimmed := strings.TrimRight(s, "\n")
	if !strings.HasSuffix(trimmed, Sentinel) {
		t.Fatalf("frame missing trailing sentinel: %q", s)
	}
	body := strings.TrimRight(strings.TrimSuffix(trimmed, Sentinel), "\n")
	if want != "" && body != want {
		t.Fatalf("frame body = %q, want %q", body, want)
	}
	return body
}
