package scanner

import (
	"regexp"

	"github.com/warden-sec/warden/internal/models"
)

// Rule is a named signature matched against file content. Rules are loaded
// once at startup and never mutated.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Severity    models.Severity
	Description string
}

// DefaultRules returns the built-in signature table. Order is fixed; the
// engine evaluates rules in this order so results stay deterministic.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "eval_base64",
			Pattern:     regexp.MustCompile(`(?i)eval\s*\(\s*base64_decode\s*\(`),
			Severity:    models.SeverityCritical,
			Description: "Obfuscated code execution via eval(base64_decode())",
		},
		{
			Name:        "gzinflate_exec",
			Pattern:     regexp.MustCompile(`(?i)(eval|assert)\s*\(\s*gzinflate\s*\(`),
			Severity:    models.SeverityCritical,
			Description: "Compressed payload execution via gzinflate",
		},
		{
			Name:        "preg_replace_eval",
			Pattern:     regexp.MustCompile(`(?i)preg_replace\s*\(\s*['"][^'"]*/[a-z]*e[a-z]*['"]`),
			Severity:    models.SeverityCritical,
			Description: "preg_replace with /e modifier executing replacement as code",
		},
		{
			Name:        "create_function_request",
			Pattern:     regexp.MustCompile(`(?i)create_function\s*\([^)]*\$_(GET|POST|REQUEST|COOKIE)`),
			Severity:    models.SeverityHigh,
			Description: "Dynamic function creation from request input",
		},
		{
			Name:        "assert_backdoor",
			Pattern:     regexp.MustCompile(`(?i)assert\s*\(\s*(stripslashes\s*\()?\s*\$_(GET|POST|REQUEST|COOKIE)`),
			Severity:    models.SeverityHigh,
			Description: "assert() evaluating request input",
		},
		{
			Name:        "shell_exec_request",
			Pattern:     regexp.MustCompile(`(?i)(shell_exec|exec|system|passthru|popen|proc_open)\s*\([^)]*\$_(GET|POST|REQUEST|COOKIE)`),
			Severity:    models.SeverityCritical,
			Description: "Shell command execution driven by request input",
		},
		{
			Name:        "suspicious_upload",
			Pattern:     regexp.MustCompile(`(?i)move_uploaded_file\s*\([^)]*\$_(GET|POST|REQUEST|FILES)`),
			Severity:    models.SeverityHigh,
			Description: "File upload handled directly from request input",
		},
		{
			Name:        "known_webshell",
			Pattern:     regexp.MustCompile(`(?i)(c99shell|c99_|r57shell|r57_|wso_version|FilesMan|b374k|weevely)`),
			Severity:    models.SeverityCritical,
			Description: "Known web shell signature (c99/r57/WSO family)",
		},
		{
			Name:        "remote_fetch",
			Pattern:     regexp.MustCompile(`(?i)(file_get_contents|curl_exec|fsockopen)\s*\([^)]*https?://`),
			Severity:    models.SeverityMedium,
			Description: "Remote content fetch from hardcoded URL",
		},
		{
			Name:        "admin_account_creation",
			Pattern:     regexp.MustCompile(`(?i)(wp_create_user|wp_insert_user)\s*\([^)]*(admin|administrator)`),
			Severity:    models.SeverityHigh,
			Description: "Programmatic administrator account creation",
		},
		{
			Name:        "crypto_miner",
			Pattern:     regexp.MustCompile(`(?i)(coinhive|cryptoloot|coin-?imp|minero\.cc|webminepool|stratum\+tcp)`),
			Severity:    models.SeverityHigh,
			Description: "Browser or server crypto miner signature",
		},
	}
}
