package classify

import (
	"context"
	"regexp"
	"strings"

	"github.com/shipsafe/shipsafe/internal/types"
)

type unitSignal struct {
	category string
	re       *regexp.Regexp
	weight   float64
}

// unitSignals are sink patterns scored by the offline classifier. The
// highest-weight match decides the verdict.
var unitSignals = []unitSignal{
	{"Command Injection", regexp.MustCompile(`\b(os\.system|subprocess\.(call|run|Popen)\([^)]*shell\s*=\s*True|child_process|exec\.Command\("(sh|bash)"|Runtime\.getRuntime\(\)\.exec)`), 0.85},
	{"Remote Code Execution", regexp.MustCompile(`\b(eval|exec)\s*\(|new\s+Function\s*\(`), 0.8},
	{"SQL Injection", regexp.MustCompile(`(?i)(select|insert|update|delete)\b[^\n]*("\s*\+|\+\s*"|%s|\{[a-z_]+\}|f")|(?i)\.(execute|query|raw)\([^)]*(\+|%|format\(|\$\{)`), 0.75},
	{"Deserialization", regexp.MustCompile(`\b(pickle\.loads?|yaml\.unsafe_load|yaml\.load|ObjectInputStream|unserialize)\(`), 0.7},
	{"XSS", regexp.MustCompile(`\.(innerHTML|outerHTML)\s*=|dangerouslySetInnerHTML|document\.write\(`), 0.7},
	{"Path Traversal", regexp.MustCompile(`(open|readFile|sendFile|os\.ReadFile)\([^)]*(req\.|request\.|params|query|\+)`), 0.65},
	{"Weak Cryptography", regexp.MustCompile(`(?i)\b(md5|sha1)\b|\bDES\b|\bECB\b`), 0.55},
	{"Insecure Randomness", regexp.MustCompile(`Math\.random\(\)|\brandom\.random\(\)|math/rand`), 0.3},
}

var reSecretContext = regexp.MustCompile(`(?i)(secret|token|passw(or)?d|api[_-]?key|auth|bearer|credential|private)`)

// HeuristicClassifier is an offline Classifier based on sink patterns and
// candidate origin. It never fails.
type HeuristicClassifier struct{}

// NewHeuristic returns the offline classifier.
func NewHeuristic() Classifier { return HeuristicClassifier{} }

func (HeuristicClassifier) ClassifyUnit(_ context.Context, _ string, unit types.CodeUnit) (Verdict, error) {
	best := Verdict{Label: "safe", Category: "None", Probability: 0.05}
	for _, s := range unitSignals {
		if s.weight > best.Probability && s.re.MatchString(unit.Text) {
			best = Verdict{Label: "vulnerable", Category: s.category, Probability: s.weight}
		}
	}
	return best, nil
}

func (HeuristicClassifier) ClassifyCandidate(_ context.Context, _ string, c types.Candidate) (Verdict, error) {
	switch c.Origin {
	case types.OriginPattern:
		return Verdict{Label: "secret", Category: c.Rule, Probability: 0.95}, nil
	case types.OriginDecoded:
		if reSecretContext.MatchString(c.DecodedValue) {
			return Verdict{Label: "secret", Category: "encoded_credential", Probability: 0.8}, nil
		}
		return Verdict{Label: "benign", Category: "encoded_text", Probability: 0.2}, nil
	default:
		p := 0.4
		if c.Entropy > 4.5 {
			p = 0.65
		}
		if strings.ContainsAny(c.Value, "/") && !strings.ContainsAny(c.Value, "0123456789") {
			// path-like tokens
			p = 0.1
		}
		label := "benign"
		if p >= Threshold {
			label = "secret"
		}
		return Verdict{Label: label, Category: "high_entropy_string", Probability: p}, nil
	}
}
