package segment

import "regexp"

var reDef = regexp.MustCompile(`\b(?:async[ \t]+)?def[ \t]+[A-Za-z_][A-Za-z0-9_]*[ \t]*\(`)

// pyLine describes one physical line of a masked Python source.
type pyLine struct {
	start, end int // byte offsets, end excludes the newline
	indent     int
	blank      bool // whitespace or comment only
	cont       bool // continues the previous logical line
	lastCode   int  // offset just past the last non-space byte, or -1
}

func pythonSpans(content string) []span {
	m := mask(content, LangPython)
	lines := pyLines(content, m)
	li := newLineIndex(content)
	var out []span
	for _, loc := range reDef.FindAllIndex(m.text, -1) {
		start := loc[0]
		open := loc[1] - 1
		closeParen := matchForward(m.text, open, '(', ')')
		if closeParen < 0 {
			continue
		}
		colon := headerColon(m.text, closeParen+1)
		if colon < 0 {
			continue
		}
		defLine := li.line(start) - 1
		colonLine := li.line(colon) - 1
		indent := lines[defLine].indent
		last := colonLine
		if hasContentAfter(content, m, colon+1, lines[colonLine].end) {
			// single-line body; extend over continuation lines only
			for j := colonLine + 1; j < len(lines) && lines[j].cont; j++ {
				if lines[j].lastCode > 0 {
					last = j
				}
			}
		} else {
			for j := colonLine + 1; j < len(lines); j++ {
				l := lines[j]
				if !l.cont && !l.blank && l.indent <= indent {
					break
				}
				if l.lastCode > 0 {
					last = j
				}
			}
		}
		end := lines[last].lastCode
		if end <= start {
			end = colon + 1
		}
		out = append(out, span{start: start, end: end, unitType: FunctionDefinition})
	}
	return out
}

// pyLines classifies each physical line. Bracket depth and backslash joins
// are tracked on the masked text so strings and comments cannot disturb them.
func pyLines(content string, m masked) []pyLine {
	var out []pyLine
	depth := 0
	prevBackslash := false
	pos := 0
	for pos <= len(content) {
		end := pos
		for end < len(content) && content[end] != '\n' {
			end++
		}
		l := pyLine{start: pos, end: end, lastCode: -1}
		l.cont = depth > 0 || prevBackslash
		col := 0
		first := -1
		for i := pos; i < end; i++ {
			c := content[i]
			if first < 0 {
				if c == ' ' {
					col++
					continue
				}
				if c == '\r' {
					continue
				}
				if c == '\t' {
					col = (col/8 + 1) * 8
					continue
				}
				first = i
			}
		}
		l.indent = col
		switch {
		case first < 0:
			l.blank = true
		case m.class[first] == classComment:
			l.blank = true
		case m.class[first] == classString && m.tokStart[first] < pos:
			l.cont = true
		}
		prevBackslash = false
		for i := pos; i < end; i++ {
			if m.class[i] == classComment {
				continue
			}
			if content[i] != ' ' && content[i] != '\t' && content[i] != '\r' {
				l.lastCode = i + 1
			}
			if m.class[i] != classCode {
				continue
			}
			switch m.text[i] {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				if depth > 0 {
					depth--
				}
			}
		}
		if l.lastCode > 0 && m.class[l.lastCode-1] == classCode && m.text[l.lastCode-1] == '\\' {
			prevBackslash = true
		}
		out = append(out, l)
		pos = end + 1
	}
	return out
}

// headerColon finds the ':' ending a def header, skipping a return
// annotation that may contain brackets.
func headerColon(text []byte, from int) int {
	depth := 0
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return -1
			}
		case ':':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func hasContentAfter(content string, m masked, from, to int) bool {
	for i := from; i < to && i < len(content); i++ {
		if m.class[i] == classComment {
			continue
		}
		switch content[i] {
		case ' ', '\t', '\r':
		default:
			return true
		}
	}
	return false
}

// matchForward returns the offset of the bracket closing the one at open.
func matchForward(text []byte, open int, o, c byte) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case o:
			depth++
		case c:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
