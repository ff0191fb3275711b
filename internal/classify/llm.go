package classify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shipsafe/shipsafe/internal/llm"
	"github.com/shipsafe/shipsafe/internal/types"
)

const unitPrompt = `You are ShipSafe Code Classifier.
Decide whether the following %s code unit from %s contains a security vulnerability.
Return ONLY a JSON object:
{"label": "vulnerable" | "safe", "category": string, "probability": number between 0 and 1}
The probability is the likelihood that the unit IS vulnerable, whatever the label.
The category is a short vulnerability class such as "SQL Injection" or "None".

CODE (lines %d-%d):
%s
`

const candidatePrompt = `You are ShipSafe Secret Classifier.
A local detector (%s) flagged a token in %s on line %d.
Decide whether it is a real credential or secret.
Return ONLY a JSON object:
{"label": "secret" | "benign", "category": string, "probability": number between 0 and 1}
The probability is the likelihood that the token IS a real secret, whatever the label.
The category is the secret type, for example "aws_access_key" or "password".

TOKEN: %s
DECODED: %s
ENTROPY: %.2f
`

// Verdict labels.
const (
	labelVulnerable = "vulnerable"
	labelSafe       = "safe"
	labelSecret     = "secret"
	labelBenign     = "benign"
)

// LLMClassifier asks a chat model for a JSON verdict.
type LLMClassifier struct {
	c        llm.Completer
	maxChars int
}

// NewLLM returns a Classifier backed by c. Unit text longer than maxChars is
// truncated before it is sent; zero means 6000.
func NewLLM(c llm.Completer, maxChars int) Classifier {
	if maxChars <= 0 {
		maxChars = 6000
	}
	return &LLMClassifier{c: c, maxChars: maxChars}
}

func (l *LLMClassifier) ClassifyUnit(ctx context.Context, path string, unit types.CodeUnit) (Verdict, error) {
	text := truncate(unit.Text, l.maxChars)
	prompt := fmt.Sprintf(unitPrompt, unit.UnitType, path, unit.StartLine, unit.EndLine, text)
	return l.ask(ctx, prompt, labelVulnerable, labelSafe)
}

func (l *LLMClassifier) ClassifyCandidate(ctx context.Context, path string, c types.Candidate) (Verdict, error) {
	origin := string(c.Origin)
	if c.Rule != "" {
		origin += ":" + c.Rule
	}
	prompt := fmt.Sprintf(candidatePrompt, origin, path, c.Line, c.Value, c.DecodedValue, c.Entropy)
	return l.ask(ctx, prompt, labelSecret, labelBenign)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ask decodes a verdict and reconciles it with its label. The probability
// always refers to the positive label; a negative label with a probability
// at or above Threshold was scored as confidence in the label and is flipped.
func (l *LLMClassifier) ask(ctx context.Context, prompt, positive, negative string) (Verdict, error) {
	ans, err := l.c.Complete(ctx, prompt)
	if err != nil {
		return Verdict{}, err
	}
	var v Verdict
	if err := llm.DecodeJSON(ans, &v); err != nil {
		return Verdict{}, err
	}
	v.Label = strings.ToLower(strings.TrimSpace(v.Label))
	if err := v.Validate(); err != nil {
		return Verdict{}, fmt.Errorf("invalid verdict: %w", err)
	}
	switch v.Label {
	case positive:
	case negative:
		if v.Probability >= Threshold {
			v.Probability = 1 - v.Probability
		}
	default:
		return Verdict{}, fmt.Errorf("invalid verdict: unexpected label %q", v.Label)
	}
	if v.Category == "" {
		v.Category = "Unknown"
	}
	return v, nil
}
