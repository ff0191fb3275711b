package detectors

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shipsafe/shipsafe/internal/types"
)

const (
	// EntropyThreshold is the bits-per-character score a token must exceed.
	EntropyThreshold = 3.5
	// MinEntropyTokenLen is the shortest token the entropy pass scores.
	MinEntropyTokenLen = 20
	// MinDecodeTokenLen is the shortest token the decode pass probes.
	MinDecodeTokenLen = 12
	// MinDecodedLen is the decoded text length (in runes) a probe must exceed.
	MinDecodedLen = 6
)

var (
	reEntropyToken = regexp.MustCompile(`[A-Za-z0-9/+=]{` + strconv.Itoa(MinEntropyTokenLen) + `,}`)
	reDecodeToken  = regexp.MustCompile(`[A-Za-z0-9/+=]{` + strconv.Itoa(MinDecodeTokenLen) + `,}`)
)

// Extract runs the pattern, entropy and decode passes over every line of
// content and returns the union of their candidates in line order. Within a
// line, pattern candidates come first, then entropy, then decoded.
func Extract(content string) []types.Candidate {
	var out []types.Candidate
	for i, line := range strings.Split(content, "\n") {
		n := i + 1
		out = append(out, patternPass(line, n)...)
		out = append(out, entropyPass(line, n)...)
		out = append(out, decodePass(line, n)...)
	}
	return dedupe(out)
}

func patternPass(line string, n int) []types.Candidate {
	var out []types.Candidate
	for _, r := range rules {
		for _, sm := range r.Re.FindAllStringSubmatch(line, -1) {
			m := sm[0]
			if r.Group > 0 && r.Group < len(sm) {
				m = sm[r.Group]
			}
			if m == "" {
				continue
			}
			out = append(out, types.Candidate{
				Value: m, Line: n, Origin: types.OriginPattern,
				Entropy: Entropy(m), Rule: r.ID,
			})
		}
	}
	return out
}

func entropyPass(line string, n int) []types.Candidate {
	var out []types.Candidate
	for _, tok := range reEntropyToken.FindAllString(line, -1) {
		if h := Entropy(tok); h > EntropyThreshold {
			out = append(out, types.Candidate{Value: tok, Line: n, Origin: types.OriginEntropy, Entropy: h})
		}
	}
	return out
}

func decodePass(line string, n int) []types.Candidate {
	var out []types.Candidate
	for _, tok := range reDecodeToken.FindAllString(line, -1) {
		dec, ok := tryBase64(tok)
		if !ok || utf8.RuneCountInString(dec) <= MinDecodedLen {
			continue
		}
		out = append(out, types.Candidate{
			Value: tok, Line: n, Origin: types.OriginDecoded,
			Entropy: Entropy(dec), DecodedValue: dec,
		})
	}
	return out
}

// tryBase64 pads tok to a multiple of four and decodes it strictly. The
// result must be valid UTF-8 made of printable characters.
func tryBase64(tok string) (string, bool) {
	if pad := len(tok) % 4; pad != 0 {
		tok += strings.Repeat("=", 4-pad)
	}
	b, err := base64.StdEncoding.Strict().DecodeString(tok)
	if err != nil || len(b) == 0 || !utf8.Valid(b) {
		return "", false
	}
	s := string(b)
	for _, r := range s {
		if !unicode.IsPrint(r) && r != '\t' {
			return "", false
		}
	}
	return s, true
}

func dedupe(cands []types.Candidate) []types.Candidate {
	seen := make(map[string]bool)
	var result []types.Candidate
	for _, c := range cands {
		key := strconv.Itoa(c.Line) + "|" + string(c.Origin) + "|" + c.Value
		if !seen[key] {
			seen[key] = true
			result = append(result, c)
		}
	}
	return result
}
