// transpiler_test.go
package ddmm

import "testing"

func wantTransform(t *testing.T, src, want string) {
	t.Helper()
	got := Transform(src)
	if got != want {
		t.Fatalf("\nsource:\n%s\nwant:\n%s\ngot:\n%s\n", src, want, got)
	}
}

func wantReverse(t *testing.T, src, want string) {
	t.Helper()
	got := ReverseTransform(src)
	if got != want {
		t.Fatalf("\nsource:\n%s\nwant:\n%s\ngot:\n%s\n", src, want, got)
	}
}

func Test_Transform_BasicBrackets(t *testing.T) {
	wantTransform(t, "print drake 'hi' maye", "print ( 'hi' )")
	wantTransform(t, "d = Drake 'a': 1 Maye", "d = { 'a': 1 }")
	wantTransform(t, "x = DRAKE 1, 2, 3 MAYE", "x = [ 1, 2, 3 ]")
}

func Test_Transform_MixedNesting(t *testing.T) {
	wantTransform(t,
		"x DRAKE Drake 'k': v Maye for k, v in items drake maye MAYE",
		"x [ { 'k': v } for k, v in items ( ) ]")
}

func Test_Transform_StringsPreserved(t *testing.T) {
	cases := []string{
		`x = "drake maye"`,
		`x = 'Drake Maye'`,
		`x = """drake DRAKE Drake"""`,
		`x = '''drake maye'''`,
	}
	for _, src := range cases {
		wantTransform(t, src, src)
	}
}

func Test_Transform_CommentsPreserved(t *testing.T) {
	wantTransform(t, "# drake maye Drake Maye", "# drake maye Drake Maye")
	wantTransform(t, "x = 1  # drake maye", "x = 1  # drake maye")
	// A newline ends the comment; code resumes on the next line.
	wantTransform(t, "# drake\nmaye", "# drake\n)")
}

func Test_Transform_FStrings(t *testing.T) {
	wantTransform(t, `f"{x.upper drake maye}"`, `f"{x.upper ( )}"`)
	wantTransform(t, `f"{d DRAKE key MAYE}"`, `f"{d [ key ]}"`)
	wantTransform(t, `f"drake maye"`, `f"drake maye"`)
	wantTransform(t, `f"{{not an expression}}"`, `f"{{not an expression}}"`)
	wantTransform(t, `f"{'hello'}"`, `f"{'hello'}"`)
}

func Test_Transform_WordBoundaries(t *testing.T) {
	cases := []string{
		"drakesmith = 1",
		"x_drake = 1",
		"mayefield = 1",
		"DRAKES = 1",
	}
	for _, src := range cases {
		wantTransform(t, src, src)
	}
}

func Test_Transform_StringPrefixes(t *testing.T) {
	cases := []string{
		`r"drake maye"`,
		`rf"drake maye"`,
		`b"drake maye"`,
		`F"drake maye"`,
		`Rb"drake maye"`,
	}
	for _, src := range cases {
		wantTransform(t, src, src)
	}
}

func Test_Transform_RawFStringExpression(t *testing.T) {
	// raw disables escapes, interpolation still applies
	wantTransform(t, `rf"{x drake maye}"`, `rf"{x ( )}"`)
}

func Test_Transform_RealWorld(t *testing.T) {
	wantTransform(t,
		"result = Drake k: v for k, v in items drake maye if v > 0 Maye",
		"result = { k: v for k, v in items ( ) if v > 0 }")
	wantTransform(t,
		"data = Drake 'users': DRAKE Drake 'name': 'Alice' Maye, Drake 'name': 'Bob' Maye MAYE Maye",
		"data = { 'users': [ { 'name': 'Alice' }, { 'name': 'Bob' } ] }")
	wantTransform(t,
		"class Foo drake Bar, metaclass=ABCMeta maye:",
		"class Foo ( Bar, metaclass=ABCMeta ):")
	wantTransform(t,
		"def add drake a: int, b: int maye -> int:\n    return a + b",
		"def add ( a: int, b: int ) -> int:\n    return a + b")
	wantTransform(t,
		"async def fetch drake url maye:\n    return await get drake url maye",
		"async def fetch ( url ):\n    return await get ( url )")
	wantTransform(t,
		"if drake n := 10 maye > 5:\n    print drake n maye",
		"if ( n := 10 ) > 5:\n    print ( n )")
	wantTransform(t,
		"x: list DRAKE int MAYE = DRAKE 1, 2, 3 MAYE",
		"x: list [ int ] = [ 1, 2, 3 ]")
	wantTransform(t,
		"@decorator drake arg1, arg2 maye\ndef func drake maye:\n    pass",
		"@decorator ( arg1, arg2 )\ndef func ( ):\n    pass")
}

func Test_Transform_EdgeCases(t *testing.T) {
	wantTransform(t, "", "")
	wantTransform(t, "x = 1 + 2", "x = 1 + 2")
	wantTransform(t, "drake drake maye maye", "( ( ) )")
	wantTransform(t, "drake maye", "( )")
	wantTransform(t, "f drake x maye", "f ( x )")
	wantTransform(t, "x = drake\n  1 + 2\nmaye", "x = (\n  1 + 2\n)")
	wantTransform(t, `x = "dra\"ke"`, `x = "dra\"ke"`)
	wantTransform(t, "x = drake \\\n  1 + 2 \\\nmaye", "x = ( \\\n  1 + 2 \\\n)")
	wantTransform(t, "x = drake 42 maye", "x = ( 42 )")
}

func Test_Transform_BoundarySpacing(t *testing.T) {
	// No space in input around the keyword: spaces are inserted so the
	// bracket does not glue onto neighbors.
	wantTransform(t, "f drake\"s\" maye", `f ( "s" )`)
	// An unterminated string runs to end of input without failing.
	wantTransform(t, `x = "unclosed drake`, `x = "unclosed drake`)
}

func Test_Transform_MultilineString(t *testing.T) {
	src := "\"\"\"\ndrake maye\nDrake Maye\n\"\"\""
	wantTransform(t, src, src)
}

func Test_ReverseTransform_Basic(t *testing.T) {
	wantReverse(t, "print('hi')", "print drake 'hi' maye")
	wantReverse(t, "d = {'a': 1}", "d = Drake 'a': 1 Maye")
	wantReverse(t, "x = [1, 2]", "x = DRAKE 1, 2 MAYE")
}

func Test_ReverseTransform_Opaque(t *testing.T) {
	cases := []string{
		`x = "( ) { } [ ]"`,
		"# (parens) stay [put] {here}",
		`r"\(x\)"`,
	}
	for _, src := range cases {
		wantReverse(t, src, src)
	}
}

func Test_ReverseTransform_AdjacentBrackets(t *testing.T) {
	// A bracket followed by another bracket gets a separating space so the
	// keywords do not fuse.
	wantReverse(t, "f()[0]", "f drake maye DRAKE 0 MAYE")
	wantReverse(t, "([])", "drake DRAKE MAYE maye")
}

func Test_ReverseTransform_FStringExpression(t *testing.T) {
	// The terminating brace counts as a following bracket, so a space lands
	// before it.
	wantReverse(t, `f"{d[key]}"`, `f"{d DRAKE key MAYE }"`)
	wantReverse(t, `f"{{literal}}"`, `f"{{literal}}"`)
	// The closing brace of the expression is the terminator, never Maye.
	wantReverse(t, `f"{x}"`, `f"{x}"`)
}

func Test_ReverseTransform_KeywordsInHostSource(t *testing.T) {
	// Identifiers that happen to spell keywords stay verbatim.
	wantReverse(t, "drake = 1", "drake = 1")
	wantReverse(t, "maye(x)", "maye drake x maye")
}

func Test_RoundTrip(t *testing.T) {
	cases := []string{
		"print drake 'hello' maye",
		"x = DRAKE Drake 'a': 1 Maye, Drake 'b': 2 Maye MAYE",
		"x DRAKE Drake 'k': v Maye for k, v in items drake maye MAYE",
	}
	for _, original := range cases {
		host := Transform(original)
		back := ReverseTransform(host)
		if back != original {
			t.Fatalf("round trip failed:\noriginal: %s\nhost:     %s\nback:     %s",
				original, host, back)
		}
	}
}

func Test_Transform_NoOpIdempotence(t *testing.T) {
	// Inputs with no keywords and no brackets pass through both directions.
	cases := []string{
		"x = 1 + 2\ny = x * 3\n",
		"# just a comment\n",
		`s = "text"` + "\n",
	}
	for _, src := range cases {
		wantTransform(t, src, src)
		wantReverse(t, src, src)
	}
}

func Test_MatchKeyword_Boundaries(t *testing.T) {
	cases := []struct {
		src  string
		pos  int
		want string
		ok   bool
	}{
		{"drake", 0, "drake", true},
		{"drakes", 0, "", false},
		{"xdrake", 1, "", false},
		{"x drake", 2, "drake", true},
		{"_maye", 1, "", false},
		{"9MAYE", 1, "", false},
		{"MAYE", 0, "MAYE", true},
		{"(maye)", 1, "maye", true},
	}
	for _, c := range cases {
		got, ok := matchKeyword(c.src, c.pos)
		if got != c.want || ok != c.ok {
			t.Fatalf("matchKeyword(%q, %d) = %q, %v; want %q, %v",
				c.src, c.pos, got, ok, c.want, c.ok)
		}
	}
}

func Test_StringPrefix_Flags(t *testing.T) {
	cases := []struct {
		src         string
		n           int
		interp, raw bool
	}{
		{`f"x"`, 1, true, false},
		{`rb"x"`, 2, false, true},
		{`FR"x"`, 2, true, true},
		{`u'x'`, 1, false, false},
		{`"x"`, 0, false, false},
	}
	for _, c := range cases {
		n, interp, raw := stringPrefix(c.src, 0)
		if n != c.n || interp != c.interp || raw != c.raw {
			t.Fatalf("stringPrefix(%q) = %d, %v, %v; want %d, %v, %v",
				c.src, n, interp, raw, c.n, c.interp, c.raw)
		}
	}
}
