package alloc

import "testing"

var defaultDist = []int{30, 20, 15, 10, 15, 5, 5}

func TestParseValid(t *testing.T) {
	got := Parse("30/20/15/10/15/5/5", defaultDist)
	want := []int{30, 20, 15, 10, 15, 5, 5}
	if !equal(got, want) {
		t.Fatalf("Parse returned %v, want %v", got, want)
	}
}

func TestParseRescalesToHundred(t *testing.T) {
	got := Parse("10/10/10/10/5/3/2", defaultDist) // sums to 50
	total := 0
	for _, v := range got {
		total += v
	}
	if total != 100 {
		t.Fatalf("rescaled total = %d, want 100 (dist %v)", total, got)
	}
	if got[0] != 20 {
		t.Fatalf("first slot = %d, want 20", got[0])
	}
}

func TestParseInvalidFallsBack(t *testing.T) {
	for _, in := range []string{"", "abc", "30/20/x", "30/-10/80"} {
		got := Parse(in, defaultDist)
		if !equal(got, defaultDist) {
			t.Fatalf("Parse(%q) = %v, want fallback %v", in, got, defaultDist)
		}
	}
}

func TestParsePadsAndTruncates(t *testing.T) {
	got := Parse("50/50", defaultDist)
	want := []int{50, 50, 0, 0, 0, 0, 0}
	if !equal(got, want) {
		t.Fatalf("short input: got %v, want %v", got, want)
	}
	got = Parse("20/20/20/20/20/0/0/0/0", defaultDist)
	if len(got) != len(defaultDist) {
		t.Fatalf("long input not truncated: %v", got)
	}
}

func TestParseDoesNotAliasFallback(t *testing.T) {
	got := Parse("bad", defaultDist)
	got[0] = 99
	if defaultDist[0] == 99 {
		t.Fatal("fallback slice was mutated")
	}
}

func TestFractions(t *testing.T) {
	fr := Fractions([]int{50, 50})
	if fr[0] != 0.5 || fr[1] != 0.5 {
		t.Fatalf("Fractions = %v", fr)
	}
	fr = Fractions([]int{0, 0, 0, 0})
	for _, v := range fr {
		if v != 0.25 {
			t.Fatalf("zero-sum fractions = %v", fr)
		}
	}
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
