package segment

// tok is a lexical token of masked C-like source.
type tok struct {
	text string
	off  int
	end  int
	word bool
}

// braceFile is a tokenized masked source with precomputed bracket pairs.
type braceFile struct {
	toks  []tok
	match []int // index of the matching bracket token, or -1
	// enclosing holds, for every token, the index of the innermost open '{'
	// containing it, or -1 at top level.
	enclosing []int
	kind      map[int]blockKind // keyed by '{' token index
}

type blockKind int

const (
	blockPlain blockKind = iota
	blockClass
	blockObject
)

// ruleSet finds unit spans in a tokenized file.
type ruleSet func(f *braceFile) []span

func braceSpans(content, language string, rules ruleSet) []span {
	m := mask(content, language)
	f := tokenize(m.text)
	return rules(f)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func tokenize(text []byte) *braceFile {
	f := &braceFile{kind: map[int]blockKind{}}
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			f.toks = append(f.toks, tok{text: string(text[i:j]), off: i, end: j, word: true})
			i = j
		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(text) && (isIdentPart(text[j]) || text[j] == '.') {
				j++
			}
			f.toks = append(f.toks, tok{text: string(text[i:j]), off: i, end: j})
			i = j
		default:
			f.toks = append(f.toks, tok{text: string(c), off: i, end: i + 1})
			i++
		}
	}
	f.pair()
	return f
}

// pair matches (), [] and {} and records the innermost enclosing brace of
// every token. Unbalanced closers are ignored.
func (f *braceFile) pair() {
	f.match = make([]int, len(f.toks))
	f.enclosing = make([]int, len(f.toks))
	for i := range f.match {
		f.match[i] = -1
	}
	var stack []int
	var braces []int
	for i, t := range f.toks {
		f.enclosing[i] = -1
		if len(braces) > 0 {
			f.enclosing[i] = braces[len(braces)-1]
		}
		switch t.text {
		case "(", "[", "{":
			stack = append(stack, i)
			if t.text == "{" {
				braces = append(braces, i)
			}
		case ")", "]", "}":
			open := map[string]string{")": "(", "]": "[", "}": "{"}[t.text]
			for k := len(stack) - 1; k >= 0; k-- {
				if f.toks[stack[k]].text == open {
					f.match[stack[k]] = i
					f.match[i] = stack[k]
					if open == "{" {
						for len(braces) > 0 && braces[len(braces)-1] >= stack[k] {
							braces = braces[:len(braces)-1]
						}
					}
					stack = stack[:k]
					break
				}
			}
		}
	}
}

func (f *braceFile) text(i int) string {
	if i < 0 || i >= len(f.toks) {
		return ""
	}
	return f.toks[i].text
}

// closeOf returns the matching bracket for the token at i, or -1.
func (f *braceFile) closeOf(i int) int {
	if i < 0 || i >= len(f.toks) {
		return -1
	}
	return f.match[i]
}

// skipAngles skips a balanced <...> group starting at i and returns the index
// after it; i is returned unchanged when toks[i] is not '<'.
func (f *braceFile) skipAngles(i int) int {
	if f.text(i) != "<" {
		return i
	}
	depth := 0
	for j := i; j < len(f.toks); j++ {
		switch f.toks[j].text {
		case "<":
			depth++
		case ">":
			depth--
			if depth == 0 {
				return j + 1
			}
		case "{", "}", ";":
			return i
		}
	}
	return i
}

// bodyAfter returns the index of the body's opening brace when the token at
// i starts one, either directly or after a ':' return type or a throws
// clause. It returns -1 for bodiless declarations and anything else.
func (f *braceFile) bodyAfter(i int) int {
	switch f.text(i) {
	case "{":
		return i
	case ":", "throws":
	default:
		return -1
	}
	depth := 0
	for j := i + 1; j < len(f.toks); j++ {
		switch f.toks[j].text {
		case "{":
			if depth == 0 {
				return j
			}
			depth++
		case "(", "[", "<":
			depth++
		case ")", "]", "}":
			if depth > 0 {
				depth--
			}
		case ">":
			if f.text(j-1) != "=" && depth > 0 {
				depth--
			}
		case ";":
			return -1
		case "=":
			if depth == 0 && f.text(j+1) != ">" {
				return -1
			}
		}
	}
	return -1
}
