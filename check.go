// check.go: bracket matching validation for ddmm keyword source.
//
// CheckBracketMatching walks the input with the same context-tracking scanner
// as Transform/ReverseTransform but performs no rewriting: it only watches
// keyword occurrences in active contexts and keeps a stack of open brackets
// with the line they opened on. Problems come back as a list of Diagnostics,
// never as an error, since malformed input is exactly what this reports.
package ddmm

import (
	"fmt"
	"strings"
)

// Diagnostic is one bracket-matching finding. Line is 1-based. Text, when
// set, carries the offending source line for display.
type Diagnostic struct {
	Message string
	Name    string
	Line    int
	Text    string
}

// Error renders the diagnostic in the conventional positioned-error shape:
//
//	<message>
//	  File "<name>", line <line>
//	    <text>
//
// The File line is omitted when no name/line is known, the text line when no
// excerpt was captured.
func (d *Diagnostic) Error() string {
	parts := []string{d.Message}
	if d.Name != "" && d.Line > 0 {
		parts = append(parts, fmt.Sprintf("  File %q, line %d", d.Name, d.Line))
	}
	if d.Text != "" {
		parts = append(parts, "    "+d.Text)
	}
	return strings.Join(parts, "\n")
}

// closerToOpener maps each closing keyword to the opener it must pair with.
var closerToOpener = map[string]string{
	"maye": "drake",
	"Maye": "Drake",
	"MAYE": "DRAKE",
}

func isOpener(kw string) bool {
	switch kw {
	case "drake", "Drake", "DRAKE":
		return true
	}
	return false
}

type openBracket struct {
	keyword string
	line    int
}

type checkSink struct {
	name  string
	stack []openBracket
	diags []*Diagnostic
}

func (s *checkSink) text(string) {}

func (s *checkSink) bracket(byte, int, byte, bool) {}

func (s *checkSink) keyword(kw string, line int, _ byte, _ bool) {
	if isOpener(kw) {
		s.stack = append(s.stack, openBracket{keyword: kw, line: line})
		return
	}
	expected := closerToOpener[kw]
	if len(s.stack) == 0 {
		s.diags = append(s.diags, &Diagnostic{
			Message: fmt.Sprintf("Unexpected closing '%s' (%s) with no matching opener",
				kw, bracketFamily[kw]),
			Name: s.name,
			Line: line,
		})
		return
	}
	open := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if open.keyword != expected {
		s.diags = append(s.diags, &Diagnostic{
			Message: fmt.Sprintf("Mismatched brackets — opened with '%s' (%s) on line %d but closed with '%s' (%s)",
				open.keyword, bracketFamily[open.keyword], open.line, kw, bracketFamily[kw]),
			Name: s.name,
			Line: line,
		})
	}
}

// CheckBracketMatching validates keyword bracket nesting in source. name is
// the display name used in diagnostics; empty means "<string>". The returned
// slice is in source order (still-open brackets are reported last, at the
// line they opened on); an empty result means the source is fully balanced.
func CheckBracketMatching(source, name string) []*Diagnostic {
	if name == "" {
		name = "<string>"
	}
	s := &checkSink{name: name}
	scan(source, s)
	for _, open := range s.stack {
		s.diags = append(s.diags, &Diagnostic{
			Message: fmt.Sprintf("Unclosed '%s' (%s)", open.keyword, bracketFamily[open.keyword]),
			Name:    name,
			Line:    open.line,
		})
	}
	return s.diags
}
