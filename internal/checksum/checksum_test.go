package checksum

import "testing"

func TestSum_Deterministic(t *testing.T) {
	a := Sum([]byte("<ocean> a skos:Concept ."))
	b := Sum([]byte("<ocean> a skos:Concept ."))
	if a != b {
		t.Fatalf("digests differ: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
	if Sum([]byte("other")) == a {
		t.Error("different input produced same digest")
	}
}

func TestShort(t *testing.T) {
	if got := Short("abc"); got != "abc" {
		t.Errorf("Short(abc) = %q", got)
	}
	if got := Short(Sum(nil)); len(got) != 12 {
		t.Errorf("len(Short) = %d, want 12", len(got))
	}
}
