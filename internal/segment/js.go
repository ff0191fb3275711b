package segment

var jsKeywords = setOf("if", "for", "while", "switch", "catch", "function", "return", "typeof",
	"new", "do", "else", "try", "with", "super", "this", "await", "yield", "import", "export",
	"class", "extends", "void", "delete", "in", "of", "instanceof", "let", "const", "var",
	"case", "default", "throw", "finally")

var jsModifiers = setOf("static", "async", "get", "set", "public", "private", "protected",
	"readonly", "override", "abstract", "declare", "accessor", "*")

// tokens after which "function" starts an expression rather than a declaration
var jsExprContext = setOf("=", "(", ",", ":", "?", "return", "[", "!", "&", "|", "+", "-",
	"*", "/", "%", "<", ">", "^", "~", "yield", "await", "new", "typeof", "void", "in", "of",
	"throw", "case", ".")

// tokens after which '{' opens an object literal
var jsObjectContext = setOf("=", "(", ",", ":", "?", "return", "[", "|", "&", "!", "yield", "await")

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func jsRules(f *braceFile) []span {
	f.classifyJSBlocks()
	var out []span
	for i, t := range f.toks {
		if !t.word {
			continue
		}
		if t.text == "function" {
			if s, ok := f.jsFunction(i); ok {
				out = append(out, s)
			}
			continue
		}
		if s, ok := f.jsMethod(i); ok {
			out = append(out, s)
		}
	}
	return out
}

func (f *braceFile) jsFunction(i int) (span, bool) {
	if f.text(i-1) == "." {
		return span{}, false
	}
	j := i + 1
	if f.text(j) == "*" {
		j++
	}
	if j >= len(f.toks) || !f.toks[j].word || jsKeywords[f.toks[j].text] {
		return span{}, false
	}
	j = f.skipAngles(j + 1)
	if f.text(j) != "(" {
		return span{}, false
	}
	end, ok := f.bodyEnd(j)
	if !ok {
		return span{}, false
	}
	start := i
	if f.text(i-1) == "async" {
		start = i - 1
	}
	if start > 0 && jsExprContext[f.text(start-1)] {
		return span{}, false
	}
	return span{start: f.toks[start].off, end: f.toks[end].end, unitType: FunctionDeclaration}, true
}

func (f *braceFile) jsMethod(i int) (span, bool) {
	name := f.toks[i].text
	if jsKeywords[name] || f.text(i-1) == "." {
		return span{}, false
	}
	encl := f.enclosing[i]
	if encl < 0 || f.kind[encl] == blockPlain {
		return span{}, false
	}
	j := f.skipAngles(i + 1)
	if f.text(j) != "(" {
		return span{}, false
	}
	end, ok := f.bodyEnd(j)
	if !ok {
		return span{}, false
	}
	k := i - 1
	for k > encl && jsModifiers[f.text(k)] {
		k--
	}
	if !f.memberBoundary(k, encl) {
		return span{}, false
	}
	return span{start: f.toks[k+1].off, end: f.toks[end].end, unitType: MethodDefinition}, true
}

// memberBoundary reports whether token k ends the previous class or object
// member, so the token after it can start a new one.
func (f *braceFile) memberBoundary(k, encl int) bool {
	if k == encl {
		return true
	}
	switch f.text(k) {
	case "}", ";", ",":
		return true
	case ")":
		// decorator with arguments: @dec(...)
		open := f.closeOf(k)
		return open > 1 && f.toks[open-1].word && f.text(open-2) == "@"
	}
	// bare decorator: @dec
	return k > 0 && f.toks[k].word && f.text(k-1) == "@"
}

// bodyEnd takes the index of a parameter list's '(' and returns the index of
// the closing '}' of the body that follows it.
func (f *braceFile) bodyEnd(open int) (int, bool) {
	closeParen := f.closeOf(open)
	if closeParen < 0 {
		return 0, false
	}
	b := f.bodyAfter(closeParen + 1)
	if b < 0 {
		return 0, false
	}
	end := f.closeOf(b)
	if end < 0 {
		return 0, false
	}
	return end, true
}

func (f *braceFile) classifyJSBlocks() {
	for i, t := range f.toks {
		if t.text != "{" {
			continue
		}
		switch {
		case f.classHeadBefore(i):
			f.kind[i] = blockClass
		case i == 0:
			f.kind[i] = blockPlain
		case jsObjectContext[f.text(i-1)]:
			f.kind[i] = blockObject
		default:
			f.kind[i] = blockPlain
		}
	}
}

// classHeadBefore reports whether the '{' at i opens a class body.
func (f *braceFile) classHeadBefore(i int) bool {
	for k := i - 1; k >= 0; k-- {
		switch t := f.toks[k].text; t {
		case "{", "}", ";":
			return false
		case ")", "]":
			open := f.closeOf(k)
			if open < 0 || open > k {
				return false
			}
			k = open
		case "class":
			return f.text(k-1) != "."
		}
	}
	return false
}
