package detectors

import (
	"regexp"
	"sort"
)

// Rule is a named provider key pattern. Each match becomes a pattern-origin
// candidate. The value is the whole match, or capture group Group when it is
// set, so assignment prefixes stay out of the candidate.
type Rule struct {
	ID    string
	Re    *regexp.Regexp
	Group int
}

func rule(id, expr string) Rule { return Rule{ID: id, Re: regexp.MustCompile(expr)} }

func ruleGroup(id, expr string, group int) Rule {
	return Rule{ID: id, Re: regexp.MustCompile(expr), Group: group}
}

// rules is the fixed pattern table. Entries are fixed-prefix or fixed-shape
// tokens; generic long-token matching belongs to the entropy pass.
var rules = []Rule{
	// cloud
	rule("aws_access_key", `AKIA[0-9A-Z]{16}`),
	ruleGroup("aws_secret_key", `(?i)(?:aws_secret_access_key|aws_secret_key|secretKey)["'\s:=]+([A-Za-z0-9/+=]{40})`, 1),
	ruleGroup("azure_storage_key", `(?i)AccountName=[^;\s]+;AccountKey=([A-Za-z0-9+/=]{80,});`, 1),
	rule("azure_sas_token", `https?://[A-Za-z0-9.-]+\.core\.windows\.net/[^?\s]+\?[^\s]*sig=[^\s&]+`),
	rule("google_api_key", `\bAIza[0-9A-Za-z_-]{35}\b`),
	rule("digitalocean_pat", `\bdop_v1_[a-f0-9]{64}\b`),
	rule("databricks_pat", `\bdapi[A-Za-z0-9]{26,40}\b`),
	rule("flyio_token", `\bflyv1_[A-Za-z0-9_-]{43,}\b`),
	ruleGroup("heroku_api_key", `(?i)heroku(?:[_\s-]*api[_\s-]*key)?[\s:="]+([A-Za-z0-9_-]{32,})`, 1),
	rule("render_api_key", `\brnd_[A-Za-z0-9]{32,}\b`),
	rule("terraform_cloud_token", `\btf[ec]\.[A-Za-z0-9]{30,}\b`),
	rule("vercel_token", `\bvercel_[A-Za-z0-9]{24,}\b`),

	// source hosting and registries
	rule("github_token", `gh[pousr]_[A-Za-z0-9]{36}`),
	rule("gitlab_token", `\bglpat-[A-Za-z0-9_-]{20}\b`),
	rule("npm_token", `\bnpm_[A-Za-z0-9]{36}\b`),
	ruleGroup("npmrc_auth_token", `:_authToken=(\S+)`, 1),
	rule("pypi_token", `\bpypi-[A-Za-z0-9_-]{50,}\b`),
	ruleGroup("rubygems_credentials", `:rubygems_api_key:\s*(\S+)`, 1),
	rule("dockerhub_pat", `\bdckr_pat_[A-Za-z0-9]{64}\b`),
	ruleGroup("docker_config_auth", `"auth"\s*:\s*"([A-Za-z0-9+/=]{12,})"`, 1),
	rule("git_credentials_url_secret", `https?://[^:\s/@]+:[^@\s/]+@[^\s]+`),

	// AI providers
	rule("anthropic_api_key", `\bsk-ant-[A-Za-z0-9_-]{30,}\b`),
	rule("openai_api_key", `\bsk-(?:proj-)?[A-Za-z0-9]{32,}\b`),
	rule("openrouter_api_key", `\bsk-or-v1-[A-Za-z0-9_-]{20,}\b`),
	rule("groq_api_key", `\bgsk_[A-Za-z0-9]{30,}\b`),
	rule("huggingface_token", `\bhf_[A-Za-z0-9]{35,}\b`),
	rule("perplexity_api_key", `\bpplx-[A-Za-z0-9]{30,}\b`),
	rule("replicate_api_token", `\br8_[A-Za-z0-9]{30,}\b`),

	// databases and brokers
	rule("postgres_uri_creds", `\bpostgres(?:ql)?://[^\s:@/]+:[^\s@/]+@[^\s/]+/[^\s?]+`),
	rule("mysql_uri_creds", `\bmysql://[^\s:@/]+:[^\s@/]+@[^\s/]+/[^\s?]+`),
	rule("mongodb_uri_creds", `\bmongodb(?:\+srv)?://[^\s:@/]+:[^\s@/]+@[^\s/]+/[^\s?]+`),
	rule("redis_uri_creds", `\bredis(?:\+ssl)?://:[^@\s]+@`),
	rule("amqp_uri_creds", `\bamqps?://[^:/\s]+:[^@\s]+@`),
	rule("sqlserver_uri_creds", `\bsqlserver://[^:/\s]+:[^@\s]+@`),
	rule("cloudinary_url_creds", `\bcloudinary://\d{6,}:[A-Za-z0-9_-]{10,}@`),
	rule("prisma_data_proxy_url", `\bprisma://[A-Za-z0-9._-]+/[^ \t\r\n'"<>]+`),

	// SaaS
	rule("stripe_secret", `sk_live_[A-Za-z0-9]{24,}`),
	rule("stripe_webhook_secret", `\bwhsec_[A-Za-z0-9]{16,}\b`),
	rule("sendgrid_api_key", `\bSG\.[A-Za-z0-9_-]{16}\.[A-Za-z0-9_-]{32,}\b`),
	rule("mailgun_api_key", `\bkey-[0-9a-f]{32}\b`),
	rule("twilio_account_sid", `\bAC[0-9a-fA-F]{32}\b`),
	rule("twilio_api_key_sid", `\bSK[0-9a-fA-F]{32}\b`),
	rule("shopify_token", `\bshp(?:at|ua|ss)_[a-f0-9]{32,}\b`),
	rule("linear_api_key", `\blin_api_[A-Za-z0-9]{40}\b`),
	rule("notion_api_key", `\bsecret_[A-Za-z0-9]{40,}\b`),
	rule("newrelic_api_key", `\b(?:NRAK|NRAL|NRII|NRAA)-[A-Z0-9]{27,}\b`),
	rule("sentry_dsn", `https://[0-9a-f]{32}@o\d+\.ingest\.sentry\.io/\d+`),
	rule("sentry_auth_token", `\bsntrys_[A-Za-z0-9_-]{40,}\b`),
	rule("snyk_token", `\bsnyk_[A-Za-z0-9]{30,}\b`),
	rule("posthog_project_key", `\bphc_[A-Za-z0-9]{32}\b`),
	rule("posthog_personal_key", `\bphx_[A-Za-z0-9]{32}\b`),
	rule("mapbox_token", `\b(?:pk\.[A-Za-z0-9]{50,}|sk\.[A-Za-z0-9]{70,})\b`),
	rule("jwt", `eyJ[A-Za-z0-9_-]+?\.[A-Za-z0-9._-]+?\.[A-Za-z0-9._-]+`),

	// messaging and webhooks
	rule("slack_token", `xox[baprs]-[A-Za-z0-9-]{10,48}`),
	rule("slack_webhook", `https://hooks\.slack\.com/services/[A-Z0-9]{9,}/[A-Z0-9]{9,}/[A-Za-z0-9]{24,}`),
	rule("discord_webhook", `https://discord(?:app)?\.com/api/webhooks/\d+/[A-Za-z0-9_-]+`),
	rule("telegram_bot_token", `\b\d{9,10}:[A-Za-z0-9_-]{35,}\b`),
	rule("netlify_build_hook", `https://api\.netlify\.com/build_hooks/[A-Za-z0-9]{20,}`),
	rule("zapier_webhook", `https://hooks\.zapier\.com/hooks/catch/\d+/[A-Za-z0-9]+`),
	rule("ifttt_webhook", `https://maker\.ifttt\.com/use/[A-Za-z0-9_-]+`),

	rule("private_key_block", `-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY( BLOCK)?-----`),
}

// RuleIDs returns the pattern table IDs in sorted order.
func RuleIDs() []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}
