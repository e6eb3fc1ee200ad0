// Package filter implements the ordered include/exclude/protect matcher
// engine of spec.md §4.2: rule parsing, glob compilation, per-directory
// merge-file loading, and the match decision itself.
package filter

import "math"

// Kind enumerates the rule kinds of §3 "Rule": action rules plus the scope
// toggles that accompany them on the same priority/sequence axis.
type Kind int

const (
	Include Kind = iota
	Exclude
	Protect
	ImpliedDir
	DirMerge
	FileMerge
	Clear
	Existing
	NoExisting
	PruneEmptyDirs
	NoPruneEmptyDirs
)

// Modifier bits, drawn from the single-character modifier alphabet
// `-+Cenw/!srpx` of §4.2.
type Modifier uint16

const (
	ModSend Modifier = 1 << iota
	ModRecv
	ModPerishable
	ModXattrOnly
	ModCvs
	ModExcludeSelf
	ModNonInheriting
	ModWords
	ModDirOnly
	ModInvert
	ModAbsolute
)

// AnyPriority marks rules with no explicit command-line position: implicitly
// appended rules such as --cvs-exclude and the files-from trailer.
const AnyPriority = math.MaxInt32

// RuleData holds the per-rule detail attached to every non-toggle Kind.
type RuleData struct {
	Pattern   string
	Glob      *Glob
	Modifiers Modifier
	Source    string // merge-file path, set for DirMerge/FileMerge rules
	DirOnly   bool
	Anchored  bool
}

// Rule is one (priority, action) entry in a Matcher's ordered rule set.
type Rule struct {
	Kind Kind
	Data RuleData

	// Priority is the position of the originating --include/--exclude/
	// --filter argument on the command line, or AnyPriority for implicitly
	// appended rules (§3 "Rule", §4.2 "Priority & ordering").
	Priority int
	// Sequence is a secondary stable-ordering counter within a source.
	Sequence int
	// Depth is the ancestor depth at which a per-directory-merged rule was
	// loaded; deeper directories produce higher-depth rules, which the
	// Matcher scans before shallower ones of the same Priority.
	Depth int
}

func (m Modifier) Has(bit Modifier) bool { return m&bit != 0 }
