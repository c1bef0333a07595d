// Package scan locates receive boundaries inside a growing byte stream.
//
// Literal delimiters are matched with a precomputed KMP automaton so that
// every byte pulled from the transport is examined exactly once, no matter
// how many separate reads delivered it. Regular expressions rescan the
// whole unconsumed view on each arrival: a regex match can begin anywhere,
// so there is no safe resume point. That is a performance caveat, not a
// correctness one.
package scan

import "regexp"

// Literal is an incremental matcher for a fixed byte sequence.
//
// The transition table maps (automaton state, next byte) to the next state,
// where state k means "the last k bytes seen are the first k bytes of the
// delimiter". Reaching state len(delim) is a match.
type Literal struct {
	table [][256]int
	state int
}

// NewLiteral builds the automaton for delim. delim must be non-empty.
func NewLiteral(delim []byte) *Literal {
	if len(delim) == 0 {
		panic("scan: empty delimiter")
	}
	table := make([][256]int, len(delim))
	lps := 0
	for row, want := range delim {
		for b := 0; b < 256; b++ {
			if byte(b) == want {
				table[row][b] = row + 1
			} else {
				table[row][b] = table[lps][b]
			}
		}
		if row != 0 {
			lps = table[lps][want]
		}
	}
	return &Literal{table: table}
}

// Feed advances the automaton over p. It returns how many bytes of p were
// examined and whether the delimiter completed. On a match the count stops
// at the byte that completed the delimiter, so the caller's running total
// equals the match end offset (delimiter inclusive).
func (l *Literal) Feed(p []byte) (int, bool) {
	for i, b := range p {
		l.state = l.table[l.state][b]
		if l.state == len(l.table) {
			return i + 1, true
		}
	}
	return len(p), false
}

// Reset rewinds the automaton to its initial state.
func (l *Literal) Reset() {
	l.state = 0
}

// Regex matches a compiled regular expression against the unconsumed view.
type Regex struct {
	re *regexp.Regexp
}

// NewRegex compiles pattern. A compile failure is surfaced before any
// transport interaction happens.
func NewRegex(pattern string) (*Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Regex{re: re}, nil
}

// Find searches view for the expression. On a match it returns the offset
// one past the match end and copies of the capture groups (nil entries for
// groups that did not participate).
func (r *Regex) Find(view []byte) (end int, groups [][]byte, ok bool) {
	loc := r.re.FindSubmatchIndex(view)
	if loc == nil {
		return 0, nil, false
	}
	for i := 1; 2*i < len(loc); i++ {
		lo, hi := loc[2*i], loc[2*i+1]
		if lo < 0 {
			groups = append(groups, nil)
			continue
		}
		g := make([]byte, hi-lo)
		copy(g, view[lo:hi])
		groups = append(groups, g)
	}
	return loc[1], groups, true
}
