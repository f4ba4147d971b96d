package cliutil

import (
	"regexp"
	"strings"
)

const redactedPlaceholder = "[redacted]"

var (
	templateVarPattern = regexp.MustCompile(`\$\{[^}]+\}`)
	secretKeyPattern   = regexp.MustCompile(`(?i)\b(` + strings.Join(secretKeys(), "|") + `)\b(\s*[:=]\s*)(["']?)([^"'\s]+)(["']?)`)
	secretFlagPattern  = regexp.MustCompile(`(?i)(^|\s)(--?(?:password|passwd|token|secret|api-key|apikey))(=|\s+)(\S+)`)
)

func secretKeys() []string {
	keys := []string{
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
		"AWS_SESSION_TOKEN",
		"AZURE_CLIENT_SECRET",
		"GITHUB_TOKEN",
		"DATABASE_PASSWORD",
		"DB_PASSWORD",
		"PGPASSWORD",
		"MYSQL_PWD",
		"REDIS_PASSWORD",
		"API_KEY",
		"ACCESS_TOKEN",
		"CLIENT_SECRET",
	}
	escaped := make([]string, len(keys))
	for i, key := range keys {
		escaped[i] = regexp.QuoteMeta(key)
	}
	return escaped
}

// RedactSecrets masks secrets in a job command line before it is shown in
// the TUI, served over HTTP or written to the event log. Template references,
// KEY=value assignments for known secret variables and flags such as
// --password=x are replaced with [redacted]. The text typed at the prompt is
// still echoed verbatim by bglist.
func RedactSecrets(command string) string {
	if command == "" {
		return command
	}
	redacted := templateVarPattern.ReplaceAllStringFunc(command, func(string) string {
		return "${" + redactedPlaceholder + "}"
	})
	redacted = secretFlagPattern.ReplaceAllString(redacted, "${1}${2}${3}"+redactedPlaceholder)
	return secretKeyPattern.ReplaceAllString(redacted, "$1$2$3"+redactedPlaceholder+"$5")
}
