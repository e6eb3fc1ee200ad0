package filter

import (
	"fmt"
	"strings"
)

// Glob is a compiled rsync filter pattern (§4.2 "Pattern grammar"):
// `*` matches one path segment, `**` matches any number of segments, `?`
// matches one byte other than '/', and `[...]` matches a character class.
// A pattern anchored with a leading '/' only matches against the full
// relative path; otherwise it matches the basename or any path suffix
// aligned on a '/' boundary.
type Glob struct {
	anchored bool
	dirOnly  bool
	segments []segment
}

type segment struct {
	// literal is used verbatim when wild is false.
	literal string
	wild    bool
	// doubleStar marks a "**" segment, matching zero or more path segments.
	doubleStar bool
}

// Compile parses pattern into a Glob. A leading '/' anchors the pattern to
// the transfer root; a trailing '/' marks it directory-only and is stripped
// before compilation.
func Compile(pattern string) (*Glob, error) {
	if pattern == "" {
		return nil, fmt.Errorf("filter: empty pattern")
	}
	g := &Glob{}
	if strings.HasPrefix(pattern, "/") {
		g.anchored = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") && len(pattern) > 1 {
		g.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if pattern == "" {
		return nil, fmt.Errorf("filter: empty pattern after anchors")
	}
	for _, part := range strings.Split(pattern, "/") {
		switch part {
		case "**":
			g.segments = append(g.segments, segment{doubleStar: true})
		default:
			g.segments = append(g.segments, segment{literal: part, wild: strings.ContainsAny(part, "*?[")})
		}
	}
	return g, nil
}

// Match reports whether path (slash-separated, relative to the transfer
// root, never starting with '/') matches g. isDir tells Match whether path
// names a directory, which matters for dirOnly patterns.
func (g *Glob) Match(path string, isDir bool) bool {
	if g.dirOnly && !isDir {
		return false
	}
	parts := strings.Split(path, "/")
	if g.anchored {
		return matchSegments(g.segments, parts)
	}
	// Unanchored: the pattern may match at any suffix boundary of path
	// (equivalent to rsync's basename/tail matching when the pattern has no
	// slash, and to a free-floating subsequence match when it does).
	for start := 0; start <= len(parts); start++ {
		if matchSegments(g.segments, parts[start:]) {
			return true
		}
	}
	return false
}

func matchSegments(pat []segment, parts []string) bool {
	if len(pat) == 0 {
		return len(parts) == 0
	}
	if pat[0].doubleStar {
		if len(pat) == 1 {
			return true
		}
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pat[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	if !matchSegment(pat[0].literal, parts[0]) {
		return false
	}
	return matchSegments(pat[1:], parts[1:])
}

// matchSegment matches a single non-"**" path segment against shell-style
// glob syntax restricted to one segment: '*' (zero or more non-'/' bytes,
// implicit here since segments never contain '/'), '?' (one byte), and
// '[...]' character classes.
func matchSegment(pattern, name string) bool {
	return matchGlob([]rune(pattern), []rune(name))
}

func matchGlob(pattern, name []rune) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}
	switch pattern[0] {
	case '*':
		if matchGlob(pattern[1:], name) {
			return true
		}
		for len(name) > 0 {
			name = name[1:]
			if matchGlob(pattern[1:], name) {
				return true
			}
		}
		return false
	case '?':
		if len(name) == 0 {
			return false
		}
		return matchGlob(pattern[1:], name[1:])
	case '[':
		if len(name) == 0 {
			return false
		}
		end := indexRune(pattern, ']', 1)
		if end < 0 {
			// Unterminated class: treat '[' as a literal.
			if name[0] != '[' {
				return false
			}
			return matchGlob(pattern[1:], name[1:])
		}
		class := pattern[1:end]
		if !matchClass(class, name[0]) {
			return false
		}
		return matchGlob(pattern[end+1:], name[1:])
	default:
		if len(name) == 0 || name[0] != pattern[0] {
			return false
		}
		return matchGlob(pattern[1:], name[1:])
	}
}

func indexRune(s []rune, r rune, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == r {
			return i
		}
	}
	return -1
}

func matchClass(class []rune, c rune) bool {
	negate := false
	if len(class) > 0 && (class[0] == '!' || class[0] == '^') {
		negate = true
		class = class[1:]
	}
	matched := false
	for i := 0; i < len(class); i++ {
		if i+2 < len(class) && class[i+1] == '-' {
			if class[i] <= c && c <= class[i+2] {
				matched = true
			}
			i += 2
			continue
		}
		if class[i] == c {
			matched = true
		}
	}
	if negate {
		return !matched
	}
	return matched
}
