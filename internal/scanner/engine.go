package scanner

import "github.com/warden-sec/warden/internal/models"

// snippetLimit bounds stored match excerpts so threat rows stay small.
const snippetLimit = 100

// Match is one rule hit against a file's content.
type Match struct {
	Rule        string
	Severity    models.Severity
	Description string
	Snippet     string
}

// Engine applies an immutable rule set to file content.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine over the given rules. Pass DefaultRules() for
// the built-in signature table.
func NewEngine(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// ScanContent tests content against every rule in order. Each rule matches at
// most once; all matching rules are reported. A previous rule's hit never
// excludes later rules.
func (e *Engine) ScanContent(content []byte) []Match {
	var matches []Match
	for _, rule := range e.rules {
		loc := rule.Pattern.FindIndex(content)
		if loc == nil {
			continue
		}

		end := loc[0] + snippetLimit
		if end > len(content) {
			end = len(content)
		}

		matches = append(matches, Match{
			Rule:        rule.Name,
			Severity:    rule.Severity,
			Description: rule.Description,
			Snippet:     string(content[loc[0]:end]),
		})
	}
	return matches
}
