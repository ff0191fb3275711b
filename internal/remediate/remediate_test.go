package remediate

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipsafe/shipsafe/internal/llm"
	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

func vuln() toon.Record {
	return toon.New(
		types.KeyKind, types.KindVulnerability,
		types.KeySeverity, "HIGH",
		types.KeyFile, "app/run.py",
		types.KeyLineRange, "4-9",
		types.KeyDetectorType, "code_classifier",
		types.KeyCategory, "Command Injection",
	)
}

func fixed(s string) llm.Completer {
	return llm.CompleterFunc(func(context.Context, string) (string, error) { return s, nil })
}

func TestRemediateAllAlternativesDenied(t *testing.T) {
	c := fixed(`{"fix_type":"sanitization","explanation":"x","alternatives":[
		{"explanation":"a","code":"subprocess.run(args)"},
		{"explanation":"b","code":"eval(user)"},
		{"explanation":"c","code":"exec.Command(\"sh\")"}]}`)
	p, err := New(c, 3, nil).Remediate(context.Background(), vuln(), "")
	require.NoError(t, err)
	assert.Empty(t, p.Alternatives)
	assert.NotNil(t, p.Alternatives)
	assert.Equal(t, AllRejectedMessage, p.Explanation)
	assert.Equal(t, "app/run.py", p.File)
	assert.Equal(t, "4-9", p.LineRange)
}

func TestRemediateKeepsSafeAlternativesUpToN(t *testing.T) {
	c := fixed("```json\n" + `{"fix_type":"sanitization","explanation":"quote args","alternatives":[
		{"explanation":"a","code":"shlex.quote(arg)"},
		{"explanation":"b","code":"os.system(cmd)"},
		{"explanation":"c","code":"validate(arg)"},
		{"explanation":"d","code":"allowlist(arg)"}]}` + "\n```")
	p, err := New(c, 2, nil).Remediate(context.Background(), vuln(), "os.system(cmd)")
	require.NoError(t, err)
	require.Len(t, p.Alternatives, 2)
	assert.Equal(t, "shlex.quote(arg)", p.Alternatives[0].Code)
	assert.Equal(t, "validate(arg)", p.Alternatives[1].Code)
	assert.Equal(t, "sanitization", p.FixType)
	assert.Equal(t, "quote args", p.Explanation)
	assert.Equal(t, types.SevHigh, p.Severity)
}

func TestRemediateFailure(t *testing.T) {
	c := llm.CompleterFunc(func(context.Context, string) (string, error) { return "", errors.New("boom") })
	p, err := New(c, 0, nil).Remediate(context.Background(), vuln(), "")
	require.Error(t, err)
	assert.Empty(t, p.Alternatives)
	assert.True(t, strings.HasPrefix(p.Explanation, "patch generation failed: "))
	assert.Contains(t, p.Explanation, "boom")

	p, err = New(fixed("no json here"), 0, nil).Remediate(context.Background(), vuln(), "")
	require.Error(t, err)
	assert.Empty(t, p.Alternatives)
}

func TestRemediateSecretIsDeterministic(t *testing.T) {
	calls := 0
	c := llm.CompleterFunc(func(context.Context, string) (string, error) { calls++; return "", nil })
	sec := toon.New(
		types.KeyKind, types.KindSecret,
		types.KeySeverity, "CRIT",
		types.KeyFile, "cfg/settings.py",
		types.KeyLineRange, "3",
		types.KeyDetectorType, "secret_classifier",
		types.KeyRule, "aws_access_key",
	)
	r := New(c, 3, nil)
	p1, err := r.Remediate(context.Background(), sec, "")
	require.NoError(t, err)
	p2, _ := r.Remediate(context.Background(), sec, "")
	assert.Equal(t, p1, p2)
	assert.Zero(t, calls)
	assert.Equal(t, FixEnvVariable, p1.FixType)
	assert.Equal(t, SecretExplanation, p1.Explanation)
	require.Len(t, p1.Alternatives, 1)
	assert.Equal(t, `os.environ["AWS_ACCESS_KEY"]`, p1.Alternatives[0].Code)
}

func TestPatchID(t *testing.T) {
	id := PatchID("a.go", "1-2", types.KindVulnerability, "code_classifier")
	assert.Regexp(t, regexp.MustCompile(`^patch_[0-9a-f]{16}$`), id)
	assert.Equal(t, id, PatchID("a.go", "1-2", types.KindVulnerability, "code_classifier"))
	assert.NotEqual(t, id, PatchID("a.go", "1-3", types.KindVulnerability, "code_classifier"))
}

func TestDenied(t *testing.T) {
	for _, s := range []string{
		`import "os/exec"`, "child_process.spawn()", "Runtime.getRuntime().exec(cmd)",
		"new ProcessBuilder(cmd)", "os.popen(x)", "new Function(body)", "__import__('os')",
		"vm.runInNewContext(src)", "exec(code)", "compile(src, 'f', 'exec')",
		"code = compile(src, '<x>', 'eval')",
	} {
		assert.True(t, Denied(s), s)
	}
	for _, s := range []string{"html.escape(s)", "cursor.execute(q, (a,))", "db.Query(q, id)",
		`pattern = re.compile(r"^[a-z0-9_]+$")`, "regexp.MustCompile(`^\\w+$`)", "tmpl_compile(x)",
	} {
		assert.False(t, Denied(s), s)
	}
}

func TestEnvAccess(t *testing.T) {
	assert.Equal(t, `os.Getenv("K")`, envAccess("x.go", "K"))
	assert.Equal(t, "process.env.K", envAccess("x.ts", "K"))
	assert.Equal(t, `System.getenv("K")`, envAccess("X.java", "K"))
	assert.Equal(t, "${K}", envAccess(".env", "K"))
}
