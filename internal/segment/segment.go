// Package segment partitions source files into function- and method-level
// code units. Go sources are parsed with go/parser; other languages are
// lexed with chroma to blank out strings and comments and then scanned
// structurally (braces for C-like languages, indentation for Python).
//
// Segment is total: unsupported languages and unparsable input yield no
// units rather than an error.
package segment

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/shipsafe/shipsafe/internal/types"
)

// Unit types, named after the grammar nodes they correspond to.
const (
	FunctionDeclaration = "function_declaration"
	MethodDeclaration   = "method_declaration"
	FunctionDefinition  = "function_definition"
	MethodDefinition    = "method_definition"
)

// Canonical language tags.
const (
	LangGo         = "go"
	LangPython     = "python"
	LangJavaScript = "javascript"
	LangJSX        = "jsx"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
	LangJava       = "java"
)

var aliases = map[string]string{
	"go": LangGo, "golang": LangGo,
	"py": LangPython, "python": LangPython,
	"js": LangJavaScript, "javascript": LangJavaScript, "mjs": LangJavaScript, "cjs": LangJavaScript,
	"jsx": LangJSX,
	"ts": LangTypeScript, "typescript": LangTypeScript,
	"tsx": LangTSX,
	"java": LangJava,
}

// Normalize maps a language name or alias to its canonical tag, or "" when
// the language is not supported.
func Normalize(language string) string {
	return aliases[strings.ToLower(strings.TrimSpace(language))]
}

// LanguageForPath returns the language tag for a file path based on its
// extension, or "" when the extension is not supported.
func LanguageForPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return ""
	}
	return Normalize(ext)
}

// Supported reports whether Segment understands language.
func Supported(language string) bool { return Normalize(language) != "" }

// span is a unit located by byte offsets into the original content.
type span struct {
	start, end int // [start, end)
	unitType   string
}

// Segment returns the callable units of content in document order. Nested
// units are emitted independently of their container.
func Segment(content, language string) []types.CodeUnit {
	var spans []span
	switch Normalize(language) {
	case LangGo:
		spans = goSpans(content)
	case LangPython:
		spans = pythonSpans(content)
	case LangJavaScript, LangJSX, LangTypeScript, LangTSX:
		spans = braceSpans(content, Normalize(language), jsRules)
	case LangJava:
		spans = braceSpans(content, LangJava, javaRules)
	default:
		return nil
	}
	return toUnits(content, spans)
}

func toUnits(content string, spans []span) []types.CodeUnit {
	if len(spans) == 0 {
		return nil
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})
	idx := newLineIndex(content)
	out := make([]types.CodeUnit, 0, len(spans))
	seen := make(map[span]bool, len(spans))
	for _, s := range spans {
		if s.start < 0 || s.end > len(content) || s.start >= s.end || seen[s] {
			continue
		}
		seen[s] = true
		start := idx.line(s.start)
		end := idx.line(s.end - 1)
		if end > idx.count() {
			end = idx.count()
		}
		if end < start {
			end = start
		}
		out = append(out, types.CodeUnit{
			StartLine: start,
			EndLine:   end,
			Text:      content[s.start:s.end],
			UnitType:  s.unitType,
		})
	}
	return out
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex struct {
	starts []int
}

func newLineIndex(content string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{starts: starts}
}

func (li lineIndex) line(off int) int {
	return sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > off })
}

func (li lineIndex) count() int { return len(li.starts) }

// LineCount returns the number of lines in content as Segment counts them.
func LineCount(content string) int { return strings.Count(content, "\n") + 1 }
