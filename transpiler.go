// transpiler.go: bidirectional keyword/bracket source rewriting.
//
// The ddmm dialect spells Python's bracket characters as reserved words:
//
//	drake / maye  →  ( )
//	Drake / Maye  →  { }
//	DRAKE / MAYE  →  [ ]
//
// Transform rewrites keywords to brackets, ReverseTransform goes the other
// way, and CheckBracketMatching (check.go) validates nesting. All three walk
// the input with the same context-tracking scanner so they can never disagree
// about where strings, comments, and f-string expressions begin and end. The
// scanner emits classified events to a small sink interface; each operation is
// a sink that decides what to do with keyword and bracket occurrences.
package ddmm

// keywordToBracket maps each reserved word to the bracket it stands for.
var keywordToBracket = map[string]byte{
	"drake": '(',
	"maye":  ')',
	"Drake": '{',
	"Maye":  '}',
	"DRAKE": '[',
	"MAYE":  ']',
}

// bracketToKeyword is the inverse of keywordToBracket.
var bracketToKeyword = map[byte]string{
	'(': "drake",
	')': "maye",
	'{': "Drake",
	'}': "Maye",
	'[': "DRAKE",
	']': "MAYE",
}

// matchKeyword tries the keywords in this order; the set is prefix-free so
// the order only has to be deterministic.
var keywordOrder = [...]string{"drake", "Drake", "DRAKE", "maye", "Maye", "MAYE"}

func isIdentChar(b byte) bool {
	return (b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') ||
		b == '_'
}

func isQuote(b byte) bool { return b == '"' || b == '\'' }

func isBracketChar(b byte) bool {
	_, ok := bracketToKeyword[b]
	return ok
}

// isPrefixChar reports whether b can start a string-literal prefix
// (f-string, raw, bytes, unicode; any case combination).
func isPrefixChar(b byte) bool {
	switch b {
	case 'f', 'F', 'r', 'R', 'b', 'B', 'u', 'U':
		return true
	}
	return false
}

// matchKeyword returns the keyword at src[pos] if it is isolated by word
// boundaries: the characters immediately before and after the match (when
// present) must not be identifier characters. "drakesmith", "x_drake" and
// "DRAKES" never match.
func matchKeyword(src string, pos int) (string, bool) {
	for _, kw := range keywordOrder {
		end := pos + len(kw)
		if end > len(src) || src[pos:end] != kw {
			continue
		}
		if pos > 0 && isIdentChar(src[pos-1]) {
			continue
		}
		if end < len(src) && isIdentChar(src[end]) {
			continue
		}
		return kw, true
	}
	return "", false
}

// stringPrefix scans the run of prefix letters at src[pos] and reports the
// run length plus the flags it encodes. The bytes flag changes nothing the
// scanner cares about, so only f and r are returned.
func stringPrefix(src string, pos int) (n int, interp, raw bool) {
	i := pos
	for i < len(src) && isPrefixChar(src[i]) {
		switch src[i] {
		case 'f', 'F':
			interp = true
		case 'r', 'R':
			raw = true
		}
		i++
	}
	return i - pos, interp, raw
}

// ----- context-tracking scanner -----

type frameKind uint8

const (
	frameCode frameKind = iota
	frameComment
	frameString
	frameInterp
)

// frame is one entry of the lexical context stack. Only the fields for its
// kind are meaningful: quote/triple/raw/interp for frameString, depth for
// frameInterp.
type frame struct {
	kind   frameKind
	quote  byte
	triple bool
	raw    bool
	interp bool
	depth  int
}

// sink receives classified scan events. text spans are verbatim input.
// keyword fires for a boundary-isolated reserved word in an active context;
// bracket fires for a literal bracket character in an active context. next is
// the input byte following the token (hasNext false at end of input) so sinks
// can decide boundary spacing.
type sink interface {
	text(s string)
	keyword(kw string, line int, next byte, hasNext bool)
	bracket(ch byte, line int, next byte, hasNext bool)
}

// scan walks src left to right, maintaining the context stack and feeding
// events to e. It never fails: an unterminated string or comment simply runs
// to end of input inside its frame.
func scan(src string, e sink) {
	n := len(src)
	stack := []frame{{kind: frameCode}}
	line := 1
	i := 0

	follow := func(pos int) (byte, bool) {
		if pos < n {
			return src[pos], true
		}
		return 0, false
	}

	for i < n {
		f := &stack[len(stack)-1]
		ch := src[i]

		switch f.kind {
		case frameComment:
			e.text(src[i : i+1])
			i++
			if ch == '\n' {
				line++
				stack = stack[:len(stack)-1]
			}

		case frameString:
			if f.triple {
				if i+3 <= n && src[i] == f.quote && src[i+1] == f.quote && src[i+2] == f.quote {
					e.text(src[i : i+3])
					i += 3
					stack = stack[:len(stack)-1]
					continue
				}
			} else if ch == f.quote {
				if !f.raw && oddBackslashesBefore(src, i) {
					// escaped quote, still inside the literal
					e.text(src[i : i+1])
					i++
					continue
				}
				e.text(src[i : i+1])
				i++
				stack = stack[:len(stack)-1]
				continue
			}
			if f.interp && ch == '{' {
				if i+1 < n && src[i+1] == '{' {
					e.text(src[i : i+2])
					i += 2
					continue
				}
				e.text(src[i : i+1])
				i++
				stack = append(stack, frame{kind: frameInterp, depth: 1})
				continue
			}
			if f.interp && ch == '}' && i+1 < n && src[i+1] == '}' {
				e.text(src[i : i+2])
				i += 2
				continue
			}
			if !f.raw && ch == '\\' && i+1 < n {
				if src[i+1] == '\n' {
					line++
				}
				e.text(src[i : i+2])
				i += 2
				continue
			}
			if ch == '\n' {
				line++
			}
			e.text(src[i : i+1])
			i++

		default: // frameCode, frameInterp
			if f.kind == frameCode && ch == '#' {
				e.text(src[i : i+1])
				i++
				stack = append(stack, frame{kind: frameComment})
				continue
			}

			// String literal opening, with optional prefix letters.
			if isQuote(ch) || (isPrefixChar(ch) && i+1 < n) {
				plen, interp, raw := stringPrefix(src, i)
				pe := i + plen
				if pe < n && isQuote(src[pe]) {
					q := src[pe]
					triple := pe+3 <= n && src[pe+1] == q && src[pe+2] == q
					end := pe + 1
					if triple {
						end = pe + 3
					}
					e.text(src[i:end])
					i = end
					stack = append(stack, frame{
						kind: frameString, quote: q,
						triple: triple, raw: raw, interp: interp,
					})
					continue
				}
				// Prefix letters not followed by a quote: fall through and
				// treat src[i] as an ordinary character.
			}

			// Literal braces steer the interpolation frame. The brace that
			// brings the depth back to zero terminates the expression and is
			// never a substitution target.
			if f.kind == frameInterp {
				if ch == '{' {
					f.depth++
					nb, ok := follow(i + 1)
					e.bracket('{', line, nb, ok)
					i++
					continue
				}
				if ch == '}' {
					f.depth--
					if f.depth == 0 {
						e.text(src[i : i+1])
						i++
						stack = stack[:len(stack)-1]
						continue
					}
					nb, ok := follow(i + 1)
					e.bracket('}', line, nb, ok)
					i++
					continue
				}
			}

			if kw, ok := matchKeyword(src, i); ok {
				end := i + len(kw)
				nb, has := follow(end)
				e.keyword(kw, line, nb, has)
				i = end
				continue
			}

			if isBracketChar(ch) {
				nb, ok := follow(i + 1)
				e.bracket(ch, line, nb, ok)
				i++
				continue
			}

			if ch == '\n' {
				line++
			}
			e.text(src[i : i+1])
			i++
		}
	}
}

// oddBackslashesBefore reports whether the quote at src[pos] is preceded by
// an odd run of backslashes, i.e. the quote itself is escaped.
func oddBackslashesBefore(src string, pos int) bool {
	count := 0
	for j := pos - 1; j >= 0 && src[j] == '\\'; j-- {
		count++
	}
	return count%2 == 1
}

// ----- forward rewriting -----

type forwardSink struct {
	out []byte
}

func (s *forwardSink) text(t string) { s.out = append(s.out, t...) }

func (s *forwardSink) keyword(kw string, _ int, next byte, hasNext bool) {
	if len(s.out) > 0 && isIdentChar(s.out[len(s.out)-1]) {
		s.out = append(s.out, ' ')
	}
	s.out = append(s.out, keywordToBracket[kw])
	if hasNext && (isIdentChar(next) || isQuote(next)) {
		s.out = append(s.out, ' ')
	}
}

// Literal brackets in the input are already host syntax; copy them.
func (s *forwardSink) bracket(ch byte, _ int, _ byte, _ bool) {
	s.out = append(s.out, ch)
}

// Transform rewrites ddmm keyword source into host (bracket) source. Every
// boundary-isolated keyword in code or in an f-string expression becomes its
// bracket character; string contents, comments, and everything else are
// copied byte for byte. A space is inserted where the substitution would
// otherwise glue the bracket onto an identifier or a following string.
//
// Transform never fails. Malformed nesting (for example an unterminated
// string) makes the scanner run to end of input inside that context, and the
// accumulated output is returned as-is; the host compiler reports the real
// error. Output line numbering always matches the input 1:1.
func Transform(source string) string {
	s := &forwardSink{out: make([]byte, 0, len(source))}
	scan(source, s)
	return string(s.out)
}

// ----- reverse rewriting -----

type reverseSink struct {
	out []byte
}

func (s *reverseSink) text(t string) { s.out = append(s.out, t...) }

// Keywords already present in host source stay verbatim; they are ordinary
// identifiers there.
func (s *reverseSink) keyword(kw string, _ int, _ byte, _ bool) {
	s.out = append(s.out, kw...)
}

func (s *reverseSink) bracket(ch byte, _ int, next byte, hasNext bool) {
	kw := bracketToKeyword[ch]
	if n := len(s.out); n > 0 {
		last := s.out[n-1]
		if isIdentChar(last) || isQuote(last) {
			s.out = append(s.out, ' ')
		}
	}
	s.out = append(s.out, kw...)
	if hasNext && (isIdentChar(next) || isQuote(next) || isBracketChar(next)) {
		s.out = append(s.out, ' ')
	}
}

// ReverseTransform rewrites host (bracket) source into ddmm keyword source:
// the exact mirror of Transform. Brackets in code and in f-string expressions
// become keywords, with spacing inserted so adjacent brackets, identifiers,
// and string quotes stay separate tokens. Inside an f-string expression the
// closing brace that ends the expression is consumed as the terminator, never
// rewritten; parentheses and square brackets there are substituted without
// affecting the expression's brace depth, since only literal braces can close
// it. Like Transform, it never fails and preserves line numbering 1:1.
func ReverseTransform(source string) string {
	s := &reverseSink{out: make([]byte, 0, len(source)*2)}
	scan(source, s)
	return string(s.out)
}

// bracketFamily names the bracket family of each keyword for validator
// diagnostics.
var bracketFamily = map[string]string{
	"drake": "paren", "maye": "paren",
	"Drake": "curly brace", "Maye": "curly brace",
	"DRAKE": "square bracket", "MAYE": "square bracket",
}
