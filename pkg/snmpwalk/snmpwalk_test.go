package snmpwalk

import "testing"

func TestUnSTRINGStripsPrefixAndQuotes(t *testing.T) {
	got := UnSTRING(`STRING: "GigabitEthernet0/1"`)
	if got != "GigabitEthernet0/1" {
		t.Fatalf("got %q", got)
	}
}

func TestUnSTRINGNonStringReturnsEmpty(t *testing.T) {
	if got := UnSTRING("INTEGER: 42"); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestUnSTRINGShortValueNoPanic(t *testing.T) {
	if got := UnSTRING("STRING: "); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestLineRegexMatchesTrailingIndex(t *testing.T) {
	m := lineRE.FindStringSubmatch(`IF-MIB::ifDescr.12 = STRING: "eth0"`)
	if m == nil {
		t.Fatal("expected a match")
	}
	if m[1] != "12" {
		t.Fatalf("index = %q, want 12", m[1])
	}
	if m[2] != `STRING: "eth0"` {
		t.Fatalf("value = %q", m[2])
	}
}
