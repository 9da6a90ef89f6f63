package followup

import (
	"strings"

	"checkin/internal/logging"
	"checkin/internal/store"
)

// WorkData is the slice of a work update the prompt builder needs.
type WorkData struct {
	Description string
	Challenges  string
	Plans       string
}

// BuildCurrentContext renders the day's submission as a labeled block. Blank
// optional fields are omitted rather than rendered empty.
func BuildCurrentContext(data WorkData) string {
	lines := []string{"CURRENT WORK UPDATE:"}

	if description := strings.TrimSpace(data.Description); description != "" {
		lines = append(lines, "Work Description: "+description)
	}
	if challenges := strings.TrimSpace(data.Challenges); challenges != "" {
		lines = append(lines, "Challenges Today: "+challenges)
	}

	lines = append(lines, "---")
	return strings.Join(lines, "\n")
}

// BuildHistoryContext renders recent work update documents as dated blocks,
// one per document in the order given.
func BuildHistoryContext(docs []store.Document, logger logging.Logger) string {
	lines := []string{"RECENT WORK HISTORY:"}

	for _, doc := range docs {
		dateStr := "Unknown"
		if ts, ok := ExtractTimestamp(doc, logger); ok {
			dateStr = ts.Format("2006-01-02")
		}
		lines = append(lines, "Date: "+dateStr)

		if description := docString(doc, store.FieldDescription); description != "" {
			lines = append(lines, "Work: "+description)
		}
		if challenges := docString(doc, store.FieldChallenges); challenges != "" {
			lines = append(lines, "Challenges: "+challenges)
		}
		if plans := docString(doc, store.FieldPlans); plans != "" {
			lines = append(lines, "Plans: "+plans)
		}
		lines = append(lines, "---")
	}

	return strings.Join(lines, "\n")
}

func docString(doc store.Document, field string) string {
	value, _ := doc[field].(string)
	return strings.TrimSpace(value)
}
