package enrich

import (
	"strconv"
	"strings"
)

// ContextLines is how many lines around a range a snippet includes.
const ContextLines = 3

// headLines is the snippet size when no range is known.
const headLines = 20

// ParseLineRange parses "a-b" or "a" into a 1-based inclusive range.
func ParseLineRange(s string) (start, end int, ok bool) {
	a, b, found := strings.Cut(strings.TrimSpace(s), "-")
	start, err := strconv.Atoi(a)
	if err != nil || start < 1 {
		return 0, 0, false
	}
	end = start
	if found {
		end, err = strconv.Atoi(b)
		if err != nil || end < start {
			return 0, 0, false
		}
	}
	return start, end, true
}

// Snippet returns the lines of content covering lineRange plus ContextLines
// on each side, or the first 20 lines when lineRange cannot be parsed.
func Snippet(content, lineRange string) string {
	lines := strings.Split(content, "\n")
	start, end, ok := ParseLineRange(lineRange)
	if !ok {
		if len(lines) > headLines {
			lines = lines[:headLines]
		}
		return strings.Join(lines, "\n")
	}
	from := start - 1 - ContextLines
	if from < 0 {
		from = 0
	}
	to := end + ContextLines
	if to > len(lines) {
		to = len(lines)
	}
	if from >= to {
		return ""
	}
	return strings.Join(lines[from:to], "\n")
}

// FileLookup builds a CodeContextLookup over an in-memory file set. Missing
// files report false.
func FileLookup(files map[string]string) CodeContextLookup {
	return func(file, lineRange string) (string, bool) {
		content, ok := files[file]
		if !ok {
			return "", false
		}
		return Snippet(content, lineRange), true
	}
}
