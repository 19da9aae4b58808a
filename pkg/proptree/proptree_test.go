package proptree

import "testing"

func TestAtAutoVivifies(t *testing.T) {
	tree := &PropTree{}
	if tree.ChildExists("host") {
		t.Fatal("ChildExists should be false before At is called")
	}
	tree.At("host")
	if !tree.ChildExists("host") {
		t.Fatal("At should auto-vivify the key")
	}
}

func TestGetOnMissReturnsSharedEmpty(t *testing.T) {
	tree := &PropTree{}
	v := tree.Get("nope")
	if v.Data() != "" || v.HasChildren() {
		t.Fatalf("Get on miss should return an empty leaf, got %+v", v)
	}
	if tree.ChildExists("nope") {
		t.Fatal("Get must not mutate the tree")
	}
}

func TestArrayPushBackOrderAndNoKeys(t *testing.T) {
	tree := &PropTree{}
	for _, s := range []string{"a", "b", "c"} {
		tree.ArrayPushBackString(s)
	}
	if !tree.IsArray() {
		t.Fatal("tree built purely via ArrayPushBack should be array-shaped")
	}
	entries := tree.Children()
	if len(entries) != 3 {
		t.Fatalf("expected 3 children, got %d", len(entries))
	}
	for i, want := range []string{"a", "b", "c"} {
		if entries[i].Key != "" {
			t.Errorf("array element %d should have empty key, got %q", i, entries[i].Key)
		}
		if entries[i].Value.Data() != want {
			t.Errorf("element %d = %q, want %q", i, entries[i].Value.Data(), want)
		}
	}
}

func TestIsArrayEmptyNodeIsArray(t *testing.T) {
	tree := &PropTree{}
	if !tree.IsArray() {
		t.Fatal("a node with no children at all must report IsArray() == true")
	}
}

func TestEquals(t *testing.T) {
	tree := New("vlan100")
	if !tree.Equals("vlan100") {
		t.Fatal("Equals should compare the scalar")
	}
	if tree.Equals("other") {
		t.Fatal("Equals should not match a different string")
	}
}

func TestFromJSONObjectOrderPreserved(t *testing.T) {
	tree, err := FromJSON(`{"b": "2", "a": "1"}`)
	if err != nil {
		t.Fatal(err)
	}
	entries := tree.Children()
	if len(entries) != 2 || entries[0].Key != "b" || entries[1].Key != "a" {
		t.Fatalf("expected insertion order b,a; got %+v", entries)
	}
}

func TestFromJSONScalarMappings(t *testing.T) {
	tree, err := FromJSON(`{"n": null, "t": true, "f": false, "num": 42, "s": "x"}`)
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]string{"n": "", "t": "1", "f": "0", "num": "42", "s": "x"}
	for k, want := range cases {
		if got := tree.Get(k).Data(); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestFromJSONArrayKeyedByDecimalIndex(t *testing.T) {
	tree, err := FromJSON(`{"items": ["x", "y"]}`)
	if err != nil {
		t.Fatal(err)
	}
	items := tree.Get("items")
	if !items.IsArray() {
		t.Fatal("items should be array-shaped")
	}
	entries := items.Children()
	if len(entries) != 2 || entries[0].Key != "0" || entries[0].Value.Data() != "x" ||
		entries[1].Key != "1" || entries[1].Value.Data() != "y" {
		t.Fatal("array elements should carry their decimal-string index as key")
	}
}

func TestToJSONSkipsEmptyKeys(t *testing.T) {
	tree := &PropTree{}
	tree.At("name").SetData("foo")
	tree.children = append(tree.children, child{key: "", value: New("ghost")})
	out := tree.ToJSON()
	if contains := (func(s, sub string) bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	}); contains(out, "ghost") {
		t.Fatalf("empty-keyed entries must not be emitted: %s", out)
	}
}

func TestFromJSONParseError(t *testing.T) {
	if _, err := FromJSON(`{not json`); err == nil {
		t.Fatal("expected a parse error")
	}
}
