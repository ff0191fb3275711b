package segment

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// byte classes in a masked source
const (
	classCode byte = iota
	classString
	classComment
)

// masked is source text with string and comment bytes replaced by spaces.
// Newlines are kept so offsets and line numbers match the original.
type masked struct {
	text  []byte
	class []byte
	// tokStart holds, for string bytes, the offset where the enclosing run of
	// string tokens began; -1 elsewhere.
	tokStart []int
}

var lexerNames = map[string]string{
	LangPython:     "python",
	LangJavaScript: "javascript",
	LangJSX:        "react",
	LangTypeScript: "typescript",
	LangTSX:        "tsx",
	LangJava:       "java",
}

// mask lexes content with chroma. When no lexer is available or the token
// stream does not reproduce the input, the content is returned unmasked.
func mask(content, language string) masked {
	m := masked{
		text:     []byte(content),
		class:    make([]byte, len(content)),
		tokStart: make([]int, len(content)),
	}
	for i := range m.tokStart {
		m.tokStart[i] = -1
	}
	lexer := lexers.Get(lexerNames[language])
	if lexer == nil {
		lexer = lexers.Match("file." + language)
	}
	if lexer == nil {
		return m
	}
	it, err := lexer.Tokenise(nil, content)
	if err != nil {
		return m
	}
	toks := it.Tokens()
	var joined strings.Builder
	for _, t := range toks {
		joined.WriteString(t.Value)
	}
	if !strings.HasPrefix(joined.String(), content) {
		return m
	}
	off, runStart := 0, -1
	for _, t := range toks {
		if off >= len(content) {
			break
		}
		end := off + len(t.Value)
		if end > len(content) {
			end = len(content)
		}
		var cls byte
		switch {
		case t.Type.InCategory(chroma.Comment):
			cls = classComment
		case t.Type.InCategory(chroma.LiteralString):
			cls = classString
		}
		if cls != classString {
			runStart = -1
		} else if runStart < 0 {
			runStart = off
		}
		if cls != classCode {
			for i := off; i < end; i++ {
				m.class[i] = cls
				if cls == classString {
					m.tokStart[i] = runStart
				}
				if m.text[i] != '\n' {
					m.text[i] = ' '
				}
			}
		}
		off = end
	}
	return m
}
