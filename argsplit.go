package rad

import "strings"

// SplitVariant selects the Argument Splitter's splitting policy
// (spec §4.2).
type SplitVariant struct {
	kind string // "deterred", "greedy", "always"
	k    int    // for deterred(k)
}

// SplitDeterred splits into exactly k+1 parts; once k delimiters have
// been consumed the remainder is one part regardless of further
// delimiters.
func SplitDeterred(k int) SplitVariant { return SplitVariant{kind: "deterred", k: k} }

// SplitGreedyStrip is Deterred(0): one part, no further splitting.
func SplitGreedyStrip() SplitVariant { return SplitVariant{kind: "greedy"} }

// SplitAlways splits on every unsuppressed delimiter.
func SplitAlways() SplitVariant { return SplitVariant{kind: "always"} }

// ArgCursor is a tagged value per spec §3: either a reference into the
// original argument string, or an owned buffer once a suppression rule
// forced a byte-level edit. It stays a Reference as long as possible to
// avoid allocation.
type ArgCursor struct {
	source   string
	start    int
	end      int
	modified *string
}

// String materializes the cursor's text.
func (a ArgCursor) String() string {
	if a.modified != nil {
		return *a.modified
	}
	return a.source[a.start:a.end]
}

// IsModified reports whether this cursor promoted to an owned buffer.
func (a ArgCursor) IsModified() bool { return a.modified != nil }

func referenceCursor(source string, start, end int) ArgCursor {
	return ArgCursor{source: source, start: start, end: end}
}

func modifiedCursor(s string) ArgCursor {
	return ArgCursor{modified: &s}
}

// splitBuilder accumulates one argument, promoting from reference to
// owned buffer only once a suppression rule edits a byte.
type splitBuilder struct {
	source   string
	start    int
	pending  []rune // non-nil once promoted
}

func newSplitBuilder(source string, start int) *splitBuilder {
	return &splitBuilder{source: source, start: start}
}

func (b *splitBuilder) writeRune(r rune) {
	if b.pending != nil {
		b.pending = append(b.pending, r)
	}
}

func (b *splitBuilder) promote(uptoRuneIdx int, runes []rune) {
	if b.pending == nil {
		b.pending = append([]rune{}, runes[:uptoRuneIdx]...)
	}
}

func (b *splitBuilder) finish(endByteOffset int) ArgCursor {
	if b.pending != nil {
		return modifiedCursor(string(b.pending))
	}
	return referenceCursor(b.source, b.start, endByteOffset)
}

// SplitArgs splits raw (the text between a macro invocation's outer
// parentheses) per spec §4.2. delim defaults to ','; an empty raw
// string yields zero parts, not one empty part.
func SplitArgs(raw string, delim byte, variant SplitVariant, stripLiteral bool) ([]ArgCursor, error) {
	if raw == "" {
		return nil, nil
	}

	runes := []rune(raw)
	var parts []ArgCursor
	var cur *splitBuilder
	curStartRune := 0

	parenDepth := 0
	literalDepth := 0
	inLiteral := false
	delimitersConsumed := 0

	// byteOffset tracks the byte position matching runes[idx], so
	// reference cursors can slice the original (possibly multi-byte)
	// string correctly.
	byteOffsets := make([]int, len(runes)+1)
	off := 0
	for idx, r := range runes {
		byteOffsets[idx] = off
		off += len(string(r))
	}
	byteOffsets[len(runes)] = off

	startPart := func(runeIdx int) {
		cur = newSplitBuilder(raw, byteOffsets[runeIdx])
		curStartRune = runeIdx
	}
	endPart := func(runeIdx int) {
		if cur == nil {
			startPart(runeIdx)
		}
		_ = curStartRune
		parts = append(parts, cur.finish(byteOffsets[runeIdx]))
		cur = nil
	}

	startPart(0)

	maxDelims := -1
	if variant.kind == "deterred" {
		maxDelims = variant.k
	} else if variant.kind == "greedy" {
		maxDelims = 0
	}

	i := 0
	for i < len(runes) {
		r := runes[i]
		atFixedArity := maxDelims >= 0 && delimitersConsumed >= maxDelims

		// Rule 2: literal span \*...*\
		if r == '\\' && i+1 < len(runes) && runes[i+1] == '*' {
			if !inLiteral {
				inLiteral = true
				literalDepth = 1
			} else {
				literalDepth++
			}
			if !stripLiteral {
				cur.writeRune(r)
				cur.writeRune(runes[i+1])
			} else {
				cur.promote(i-curStartRune, runes[curStartRune:])
			}
			i += 2
			continue
		}
		if inLiteral && r == '*' && i+1 < len(runes) && runes[i+1] == '\\' {
			literalDepth--
			if literalDepth == 0 {
				inLiteral = false
			}
			if !stripLiteral {
				cur.writeRune(r)
				cur.writeRune(runes[i+1])
			} else {
				cur.promote(i-curStartRune, runes[curStartRune:])
			}
			i += 2
			continue
		}
		if inLiteral {
			cur.writeRune(r)
			i++
			continue
		}

		// Rule 1: balanced parentheses make delimiters literal.
		if r == '(' {
			parenDepth++
			cur.writeRune(r)
			i++
			continue
		}
		if r == ')' {
			if parenDepth > 0 {
				parenDepth--
			}
			cur.writeRune(r)
			i++
			continue
		}

		// Rule 4: \( and \) are literal, backslash removed.
		if r == '\\' && i+1 < len(runes) && (runes[i+1] == '(' || runes[i+1] == ')') {
			cur.promote(i-curStartRune, runes[curStartRune:])
			cur.writeRune(runes[i+1])
			i += 2
			continue
		}

		// Rule 3: an escaped delimiter is literal, backslash removed.
		if r == '\\' && i+1 < len(runes) && byte(runes[i+1]) == delim {
			cur.promote(i-curStartRune, runes[curStartRune:])
			cur.writeRune(runes[i+1])
			i += 2
			continue
		}

		// Rule 5: any other \X retains both characters.
		if r == '\\' && i+1 < len(runes) {
			cur.writeRune(r)
			cur.writeRune(runes[i+1])
			i += 2
			continue
		}

		if byte(r) == delim && parenDepth == 0 && !atFixedArity {
			endPart(i)
			delimitersConsumed++
			i++
			startPart(i)
			continue
		}

		cur.writeRune(r)
		i++
	}

	endPart(len(runes))

	if variant.kind == "greedy" && stripLiteral {
		// GreedyStrip with literal stripping still needs the marker
		// characters removed even though no delimiter walk happened
		// inside the single part; the loop above already stripped them
		// because maxDelims==0 keeps the whole text in one builder.
	}

	if len(parts) == 0 {
		return nil, newRadError(ErrInvalidArgument, nil, "", "argument split produced no parts")
	}
	return parts, nil
}

// ExpectMinParts enforces the "result length contract" of spec §4.2:
// callers pass an expected minimum, and too few parts is InvalidArgument.
func ExpectMinParts(parts []ArgCursor, min int, macroName string, pos *SourcePosition) error {
	if len(parts) < min {
		return newRadError(ErrInvalidArgument, pos, macroName,
			"expected at least %d argument(s), got %d", min, len(parts))
	}
	return nil
}

// TrimCursor returns a cursor with surrounding whitespace removed,
// respecting the CText parameter coercion ("trim before typing").
func TrimCursor(c ArgCursor) ArgCursor {
	s := c.String()
	trimmed := strings.TrimSpace(s)
	if trimmed == s {
		return c
	}
	return modifiedCursor(trimmed)
}
