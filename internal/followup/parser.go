package followup

import (
	"regexp"
	"strings"
)

// Parse tiers, in the order they are attempted.
const (
	TierStructured = "structured"
	TierNumbered   = "numbered"
	TierPattern    = "pattern"
	TierDefaults   = "defaults"
)

var (
	numberedPrefix = regexp.MustCompile(`^\d+[.)]\s*`)
	boldLabel      = regexp.MustCompile(`\*\*.*?\*\*:\s*`)
)

// DefaultQuestions is the fallback set used when generation or parsing
// cannot produce three questions.
func DefaultQuestions() []string {
	return []string{
		"What technical challenges did you face this week that you'd like help with?",
		"Have you encountered any bugs or issues that are taking longer than expected to resolve?",
		"What new skills or concepts have you learned recently that you'd like to discuss?",
	}
}

// ParseQuestions extracts exactly three questions from a model response.
// Three strategies are tried in order, each against the full response: a
// labeled "**Question Text**" format, numbered lines, and finally any line
// containing a question mark. A strategy that yields fewer than three
// questions is discarded in favor of the next. Whatever the last strategy
// produced is topped up from the defaults. The returned tier names the
// strategy that supplied the questions.
func ParseQuestions(response string) ([]string, string) {
	lines := strings.Split(response, "\n")

	tier := TierStructured
	questions := parseStructured(lines)

	if len(questions) < 3 {
		tier = TierNumbered
		questions = parseNumbered(lines)
	}
	if len(questions) < 3 {
		tier = TierPattern
		questions = parsePatterns(lines)
	}

	if len(questions) > 3 {
		questions = questions[:3]
	}
	if len(questions) == 0 {
		tier = TierDefaults
	}
	for defaults := DefaultQuestions(); len(questions) < 3; {
		questions = append(questions, defaults[len(questions)])
	}
	return questions, tier
}

func parseStructured(lines []string) []string {
	var questions []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "**Question Text**") {
			continue
		}
		_, after, found := strings.Cut(trimmed, ":")
		if !found {
			continue
		}
		question := strings.TrimSpace(after)
		if len(question) > 10 {
			questions = append(questions, question)
		}
	}
	return questions
}

func parseNumbered(lines []string) []string {
	var questions []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !numberedPrefix.MatchString(trimmed) {
			continue
		}
		question := strings.TrimSpace(numberedPrefix.ReplaceAllString(trimmed, ""))
		question = boldLabel.ReplaceAllString(question, "")
		if len(question) > 10 {
			questions = append(questions, question)
		}
	}
	return questions
}

func parsePatterns(lines []string) []string {
	var questions []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "**") && !strings.HasSuffix(trimmed, "?") {
			continue
		}
		if !strings.Contains(trimmed, "?") || len(trimmed) <= 15 {
			continue
		}

		question := numberedPrefix.ReplaceAllString(trimmed, "")
		question = strings.TrimSpace(boldLabel.ReplaceAllString(question, ""))
		if question == "" || containsAny(question, questions) {
			continue
		}

		questions = append(questions, question)
		if len(questions) >= 3 {
			break
		}
	}
	return questions
}

// containsAny reports whether any already-collected question appears inside
// candidate, case-insensitively. Used to drop near-duplicate lines.
func containsAny(candidate string, collected []string) bool {
	lower := strings.ToLower(candidate)
	for _, q := range collected {
		if strings.Contains(lower, strings.ToLower(q)) {
			return true
		}
	}
	return false
}
