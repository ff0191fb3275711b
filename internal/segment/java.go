package segment

var javaKeywords = setOf("if", "for", "while", "switch", "catch", "synchronized", "return",
	"new", "else", "do", "try", "this", "super", "throw", "assert", "case", "default",
	"finally", "class", "interface", "enum", "record")

// words that may precede a call or type name but never a method's return type
var javaNotType = setOf("new", "return", "throw", "else", "case", "assert", "yield", "record",
	"class", "interface", "enum", "extends", "implements", "package", "import", "instanceof",
	"throws", "do", "try", "finally",
	// modifiers directly before a name mark a constructor
	"public", "private", "protected", "static", "final", "abstract", "native", "transient",
	"volatile", "strictfp", "default", "sealed")

func javaRules(f *braceFile) []span {
	var out []span
	for i, t := range f.toks {
		if !t.word || javaKeywords[t.text] || f.text(i+1) != "(" {
			continue
		}
		if !f.javaReturnTypeBefore(i) {
			continue
		}
		closeParen := f.closeOf(i + 1)
		if closeParen < 0 {
			continue
		}
		k := closeParen + 1
		for f.text(k) == "[" && f.text(k+1) == "]" {
			k += 2
		}
		var end int
		switch f.text(k) {
		case ";":
			end = k
		case "{", "throws":
			b := f.bodyAfter(k)
			if b < 0 {
				if bodiless := f.throwsThenSemicolon(k); bodiless >= 0 {
					end = bodiless
					break
				}
				continue
			}
			if end = f.closeOf(b); end < 0 {
				continue
			}
		default:
			continue
		}
		start := f.javaMemberStart(i)
		out = append(out, span{start: f.toks[start].off, end: f.toks[end].end, unitType: MethodDeclaration})
	}
	return out
}

func (f *braceFile) javaReturnTypeBefore(i int) bool {
	if i == 0 {
		return false
	}
	prev := f.toks[i-1]
	switch {
	case prev.word:
		// an annotation directly before a name also marks a constructor
		return !javaNotType[prev.text] && f.text(i-2) != "@"
	case prev.text == "]":
		return true
	case prev.text == ">":
		// reject explicit type arguments on a call: recv.<T>name(...)
		depth := 0
		for k := i - 1; k >= 0; k-- {
			switch f.toks[k].text {
			case ">":
				depth++
			case "<":
				depth--
				if depth == 0 {
					return f.text(k-1) != "."
				}
			case ";", "{", "}":
				return false
			}
		}
	}
	return false
}

// throwsThenSemicolon handles abstract methods with a throws clause.
func (f *braceFile) throwsThenSemicolon(k int) int {
	if f.text(k) != "throws" {
		return -1
	}
	for j := k + 1; j < len(f.toks); j++ {
		switch f.toks[j].text {
		case ";":
			return j
		case "{", "}", "(", ")":
			return -1
		}
	}
	return -1
}

// javaMemberStart walks back from a method name over its return type,
// modifiers and annotations to the first token of the declaration.
func (f *braceFile) javaMemberStart(i int) int {
	k := i - 1
	for k >= 0 {
		switch f.toks[k].text {
		case "{", "}", ";":
			return k + 1
		case ")":
			if open := f.closeOf(k); open >= 0 && open < k {
				k = open - 1
				continue
			}
		}
		k--
	}
	return 0
}
