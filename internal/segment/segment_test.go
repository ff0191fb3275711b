package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipsafe/shipsafe/internal/types"
)

type want struct {
	start, end int
	kind       string
}

func spansOf(units []types.CodeUnit) []want {
	out := make([]want, len(units))
	for i, u := range units {
		out[i] = want{u.StartLine, u.EndLine, u.UnitType}
	}
	return out
}

const goSample = `package main

import "fmt"

type T struct{}

func (t T) Hello() string {
	return "hi"
}

func main() {
	f := func() {}
	f()
	fmt.Println(T{}.Hello())
}
`

const pySample = `import os


@decorator
def outer(a,
          b):
    """Doc { with brace."""
    def inner():
        return "}"
# comment at column zero
    x = {
'k': 1,
    }
    return inner

class C:
    def method(self): return 1

    async def run(self) -> dict[str, int]:
        s = """
line
"""
        return s

def last(): pass
`

const jsSample = `// helper { not a block
function add(a, b) {
  return a + b;
}

const mul = function named(a, b) { return a * b; };

class Greeter extends Base {
  constructor(name) {
    super();
    this.name = name;
  }

  static async greet(other) {
    function inner() {
      return "}";
    }
    return inner();
  }

  handler = () => {
    return 1;
  };
}

const api = {
  fetch(url) {
    return url;
  },
  other: 1,
};

export async function load() {
  if (x) {
    run(x);
  }
}
`

const tsSample = `export class Repo<T> {
  private items: T[] = [];
  public add(item: T): void {
    this.items.push(item);
  }
  async list(): Promise<Array<T>> {
    return this.items;
  }
  count(): number;
}
`

const javaSample = `package demo;

import java.util.List;

public class Service implements Runnable {
    private final String name = "x{";

    public Service(String name) {
        this.name = name;
    }

    @Override
    public void run() {
        Runnable r = new Runnable() {
            public void run() {
                helper(1);
            }
        };
    }

    static <T> List<T> wrap(T item) throws Exception {
        return List.of(item);
    }

    private int helper(int x) { return x; }
}

interface Shape {
    double area();
}
`

func TestSegmentGo(t *testing.T) {
	units := Segment(goSample, "go")
	assert.Equal(t, []want{
		{7, 9, MethodDeclaration},
		{11, 15, FunctionDeclaration},
	}, spansOf(units))
	assert.Contains(t, units[0].Text, "func (t T) Hello() string {")
}

func TestSegmentPython(t *testing.T) {
	assert.Equal(t, []want{
		{5, 14, FunctionDefinition},
		{8, 9, FunctionDefinition},
		{17, 17, FunctionDefinition},
		{19, 23, FunctionDefinition},
		{25, 25, FunctionDefinition},
	}, spansOf(Segment(pySample, "python")))
}

func TestSegmentJavaScript(t *testing.T) {
	units := Segment(jsSample, "js")
	assert.Equal(t, []want{
		{2, 4, FunctionDeclaration},
		{9, 12, MethodDefinition},
		{14, 19, MethodDefinition},
		{15, 17, FunctionDeclaration},
		{27, 29, MethodDefinition},
		{33, 37, FunctionDeclaration},
	}, spansOf(units))
	require.NotEmpty(t, units)
	assert.True(t, len(units[2].Text) > 0 && units[2].Text[:6] == "static")
}

func TestSegmentTypeScript(t *testing.T) {
	assert.Equal(t, []want{
		{3, 5, MethodDefinition},
		{6, 8, MethodDefinition},
	}, spansOf(Segment(tsSample, "typescript")))
}

func TestSegmentJava(t *testing.T) {
	assert.Equal(t, []want{
		{12, 19, MethodDeclaration},
		{15, 17, MethodDeclaration},
		{21, 23, MethodDeclaration},
		{25, 25, MethodDeclaration},
		{29, 29, MethodDeclaration},
	}, spansOf(Segment(javaSample, "java")))
}

func TestSegmentUnsupportedLanguage(t *testing.T) {
	assert.Empty(t, Segment(goSample, "cobol"))
	assert.Empty(t, Segment(goSample, ""))
}

func TestSegmentTotalOnGarbage(t *testing.T) {
	inputs := []string{"", "}}}{{{", "func (", "def f(:\n", "class { foo( {", "\x00\xff", "function"}
	for _, lang := range []string{"go", "python", "javascript", "typescript", "tsx", "jsx", "java"} {
		for _, in := range inputs {
			assert.NotPanics(t, func() { Segment(in, lang) }, "%s %q", lang, in)
		}
	}
}

func TestSegmentBoundsAndIdempotence(t *testing.T) {
	samples := map[string]string{
		"go": goSample, "python": pySample, "javascript": jsSample,
		"typescript": tsSample, "java": javaSample,
	}
	for lang, src := range samples {
		first := Segment(src, lang)
		require.NotEmpty(t, first, lang)
		n := LineCount(src)
		for _, u := range first {
			assert.LessOrEqual(t, 1, u.StartLine, lang)
			assert.LessOrEqual(t, u.StartLine, u.EndLine, lang)
			assert.LessOrEqual(t, u.EndLine, n, lang)
		}
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Segment(src, lang), lang)
		}
	}
}

func TestLanguageForPath(t *testing.T) {
	cases := map[string]string{
		"a/b.py": LangPython, "x.JS": LangJavaScript, "c.jsx": LangJSX, "d.ts": LangTypeScript,
		"e.tsx": LangTSX, "f.go": LangGo, "g.java": LangJava, "README.md": "", "Makefile": "",
	}
	for p, lang := range cases {
		assert.Equal(t, lang, LanguageForPath(p), p)
	}
}
