package filter

import "testing"

func mustRule(t *testing.T, line string, priority int) Rule {
	t.Helper()
	r, err := ParseLine(line, priority, priority)
	if err != nil {
		t.Fatalf("ParseLine(%q): %v", line, err)
	}
	return r
}

func TestGlobSegments(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"*.o", "foo.o", false, true},
		{"*.o", "sub/foo.o", false, true},
		{"/*.o", "sub/foo.o", false, false},
		{"/build/*.o", "build/foo.o", false, true},
		{"**/cache", "a/b/cache", true, true},
		{"cache/", "cache", true, true},
		{"cache/", "cache", false, false},
		{"file?.txt", "file1.txt", false, true},
		{"[abc].txt", "b.txt", false, true},
		{"[abc].txt", "d.txt", false, false},
	}
	for _, c := range cases {
		g, err := Compile(c.pattern)
		if err != nil {
			t.Fatalf("Compile(%q): %v", c.pattern, err)
		}
		if got := g.Match(c.path, c.isDir); got != c.want {
			t.Errorf("Compile(%q).Match(%q, %v) = %v, want %v", c.pattern, c.path, c.isDir, got, c.want)
		}
	}
}

func TestMatcherFirstRuleWins(t *testing.T) {
	m := New("/root", []Rule{
		mustRule(t, "+ /keep.txt", 0),
		mustRule(t, "- *", 1),
	})
	d, err := m.Match("keep.txt", false)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Include {
		t.Fatal("expected keep.txt to be included")
	}
	d, err = m.Match("other.txt", false)
	if err != nil {
		t.Fatal(err)
	}
	if d.Include {
		t.Fatal("expected other.txt to be excluded")
	}
}

func TestMatcherClearResets(t *testing.T) {
	m := New("/root", []Rule{
		mustRule(t, "- *", 0),
		mustRule(t, "!", 1),
	})
	d, err := m.Match("anything.txt", false)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Include {
		t.Fatal("expected clear to reset the exclude and default to include")
	}
}

func TestImpliedDirs(t *testing.T) {
	got := ImpliedDirs("a/b/c.txt")
	want := []string{"a", "a/b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
