package filter

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Decision is the result of matching one candidate path (§4.2 "Match
// decision").
type Decision struct {
	Include bool
	Descend bool
}

// MergeLoader loads the contents of a per-directory or file merge rule's
// source file. Production code reads from the filesystem; tests can
// substitute an in-memory loader.
type MergeLoader func(path string) ([]byte, error)

// Matcher is the ordered rule set of §3 "Matcher": it decides inclusion for
// each candidate path by scanning rules in (priority, -depth, sequence)
// order, loading per-directory merge files lazily as the walk descends.
type Matcher struct {
	Root           string
	NoImpliedDirs  bool
	From0          bool
	PruneEmptyDirs bool
	Existing       bool

	base  []Rule
	load  MergeLoader
	mu    sync.Mutex
	cache map[string][]Rule // directory -> merged rules visible at that directory
}

// New constructs a Matcher from an already-parsed base rule list (the
// command-line --include/--exclude/--filter arguments in order).
func New(root string, base []Rule) *Matcher {
	return &Matcher{
		Root:  root,
		base:  append([]Rule(nil), base...),
		load:  defaultLoader,
		cache: make(map[string][]Rule),
	}
}

// SetLoader overrides how merge-file contents are read, for tests.
func (m *Matcher) SetLoader(l MergeLoader) { m.load = l }

func defaultLoader(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// rulesFor returns the fully-resolved, priority-sorted rule set visible at
// dir, loading and caching any per-directory merge files along the path
// from Root down to dir.
func (m *Matcher) rulesFor(dir string) ([]Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rules, ok := m.cache[dir]; ok {
		return rules, nil
	}

	rules := append([]Rule(nil), m.base...)
	rel, err := filepath.Rel(m.Root, dir)
	if err != nil {
		rel = dir
	}
	if rel == "." {
		rel = ""
	}
	var parts []string
	if rel != "" {
		parts = strings.Split(rel, string(filepath.Separator))
	}

	walked := m.Root
	seq := len(m.base)
	for depth, part := range parts {
		walked = filepath.Join(walked, part)
		for _, r := range rules {
			if r.Kind != DirMerge || r.Data.Source == "" {
				continue
			}
			mergePath := filepath.Join(walked, r.Data.Source)
			merged, err := m.loadMerge(mergePath, r, depth+1, &seq)
			if err != nil {
				continue // a missing per-directory merge file is not an error
			}
			rules = append(rules, merged...)
		}
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		if rules[i].Depth != rules[j].Depth {
			// Sort key is (priority, -depth, sequence): deeper per-directory
			// merge rules are more specific and are scanned first.
			return rules[i].Depth > rules[j].Depth
		}
		return rules[i].Sequence < rules[j].Sequence
	})
	m.cache[dir] = rules
	return rules, nil
}

func (m *Matcher) loadMerge(path string, parent Rule, depth int, seq *int) ([]Rule, error) {
	raw, err := m.load(path)
	if err != nil {
		return nil, err
	}
	sep := "\n"
	if m.From0 {
		sep = "\x00"
	}
	lines := strings.Split(string(raw), sep)

	cvs := parent.Data.Modifiers.Has(ModCvs)
	words := parent.Data.Modifiers.Has(ModWords)
	inherit := !parent.Data.Modifiers.Has(ModNonInheriting)

	var out []Rule
	if words {
		var fields []string
		for _, l := range lines {
			fields = append(fields, strings.Fields(l)...)
		}
		lines = fields
	}
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		var r Rule
		if cvs {
			g, err := Compile(l)
			if err != nil {
				continue
			}
			r = Rule{Kind: Exclude, Data: RuleData{Pattern: l, Glob: g}}
		} else {
			parsed, err := ParseLine(l, 0, 0)
			if err != nil {
				if IsSkippable(err) {
					continue
				}
				continue
			}
			r = parsed
		}
		if inherit {
			r.Data.Modifiers |= parent.Data.Modifiers & (ModSend | ModRecv | ModPerishable | ModXattrOnly)
		}
		r.Priority = parent.Priority
		r.Depth = depth
		r.Sequence = *seq
		*seq++
		out = append(out, r)
	}
	if parent.Data.Modifiers.Has(ModExcludeSelf) {
		g, _ := Compile(filepath.Base(path))
		out = append(out, Rule{Kind: Exclude, Data: RuleData{Glob: g}, Priority: parent.Priority, Depth: depth, Sequence: *seq})
		*seq++
	}
	return out, nil
}

// Match decides inclusion for relPath (slash-separated, relative to Root),
// per §4.2 "Match decision". The parent directory of relPath selects which
// per-directory merge rules apply.
func (m *Matcher) Match(relPath string, isDir bool) (Decision, error) {
	dir := filepath.Dir(filepath.Join(m.Root, relPath))
	rules, err := m.rulesFor(dir)
	if err != nil {
		return Decision{}, err
	}

	// A Clear rule discards every rule sorted before it.
	for i := len(rules) - 1; i >= 0; i-- {
		if rules[i].Kind == Clear {
			rules = rules[i+1:]
			break
		}
	}

	included := true
	decided := false
	for _, r := range rules {
		if r.Kind != Include && r.Kind != Exclude && r.Kind != Protect {
			continue
		}
		if r.Data.Glob == nil {
			continue
		}
		if !r.Data.Glob.Match(relPath, isDir) {
			continue
		}
		decided = true
		included = r.Kind == Include
		break
	}
	if !decided {
		included = true
	}

	descend := isDir && m.mayDescend(relPath, rules)
	if isDir && m.PruneEmptyDirs && !descend {
		included = false
	}
	return Decision{Include: included, Descend: descend}, nil
}

// mayDescend reports whether any rule could still match a descendant of
// dirPath, so the walker does not prune a directory prematurely even if the
// directory itself is excluded (§4.2 "Match decision"). Conservative by
// design: any pattern that is not obviously scoped away from dirPath's
// children keeps descend true, since failing to descend is unrecoverable
// while descending into a directory with nothing included is merely wasted
// work (caught afterwards by --prune-empty-dirs).
func (m *Matcher) mayDescend(dirPath string, rules []Rule) bool {
	prefix := dirPath + "/"
	for _, r := range rules {
		if r.Kind != Include || r.Data.Glob == nil {
			continue
		}
		if r.Data.Pattern == "" || strings.Contains(r.Data.Pattern, "**") ||
			strings.HasPrefix(r.Data.Pattern, prefix) || strings.HasPrefix(r.Data.Pattern, "/"+prefix) ||
			!r.Data.Anchored {
			return true
		}
	}
	return len(rules) == 0
}

// ImpliedDirs returns the ancestor directories that must be auto-included
// for relPath to be reachable, per §4.2 "Implied directories".
func ImpliedDirs(relPath string) []string {
	parts := strings.Split(relPath, "/")
	var dirs []string
	for i := 1; i < len(parts); i++ {
		dirs = append(dirs, strings.Join(parts[:i], "/"))
	}
	return dirs
}
