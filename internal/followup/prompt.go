package followup

import (
	"fmt"
	"strings"
	"time"

	"checkin/internal/logging"
	"checkin/internal/store"
)

// NoPlansFound is the sentinel the prompt carries when no prior plans exist.
const NoPlansFound = "No previous plans found"

// NoChallengesMentioned is the sentinel for an update without challenges.
const NoChallengesMentioned = "No challenges mentioned"

// promptTemplate takes, in order: today's work context, yesterday's plans,
// current challenges, the seven-day history, and then plans and today's
// context again for the comparison directives.
const promptTemplate = `You're an AI supervisor helping generate simple, easy-to-answer follow-up questions for an intern's daily work update. This is just an end-of-day check-in to see how things went.

## CONTEXT:
**Today's Work:** %[1]s
**What They Planned (from yesterday):** %[2]s
**Current Challenges:** %[3]s
**Recent Work History:** %[4]s

## GOALS:
- Detect gaps, inefficiencies, or deviations from expected progress.
- Verify whether the intern's work today matches the tasks they planned yesterday.
- Detect whether the intern's trajectory shows steady progress toward final completion.
- Provide signals that can later be aggregated into a supervisor performance report.
- Identify whether the intern followed through on their planned tasks.

## YOUR TASK:
Generate exactly 3 conversational questions that:
- Are quick and easy to answer (1-2 sentences each)
- Sound like a supervisor checking in, slightly formal style
- Help understand if they're progressing well
- Focus on practical stuff they are working with
- Are specific to their actual work, not generic
- Don't ask about plans for tomorrow
- Prioritize the information in the current update if no history is provided
- Each question should help measure progress objectively (e.g., completion of planned work, handling of challenges, alignment with project goals).
- Ask the question directly, no need to explain why you are asking it.
- Avoid asking the intern directly about effort or feelings; instead, frame questions that can later be answered by analyzing the data.
- Always compare %[2]s with %[1]s practically when generating follow-up technical questions.
- Generate questions that ONLY ask about the exact work, challenges, and plans mentioned in %[2]s

## QUESTION STYLE:
Keep it conversational.

## WHAT TO FOCUS ON:
- If they had plans yesterday, check whether they completed them and note any progress
- Look at whether they are actually working or just filling in the work update
- Look for any recurring issues that need attention

Generate exactly 3 questions in this format:
1. [First question]
2. [Second question]
3. [Third question]

Make them feel natural to answer.`

// BuildPrompt assembles the generation prompt from the current update, the
// rendered history, and the raw recent documents (used for plan extraction).
func BuildPrompt(currentContext, historyContext string, recentDocs []store.Document, now time.Time, logger logging.Logger) string {
	plans := YesterdayPlans(recentDocs, now, logger)
	challenges := CurrentChallenges(currentContext)
	return fmt.Sprintf(promptTemplate, currentContext, plans, challenges, historyContext)
}

// YesterdayPlans finds the plans the intern stated most recently. An entry
// dated exactly yesterday wins; otherwise the newest non-today entry with
// plans is used. Documents are expected newest first.
func YesterdayPlans(recentDocs []store.Document, now time.Time, logger logging.Logger) string {
	logger = logging.OrNop(logger)
	if len(recentDocs) == 0 {
		return NoPlansFound
	}

	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	today := now.Format("2006-01-02")

	for _, doc := range recentDocs {
		ts, ok := ExtractTimestamp(doc, logger)
		if !ok || ts.Format("2006-01-02") != yesterday {
			continue
		}
		if plans := docString(doc, store.FieldPlans); plans != "" {
			logger.Info("Found yesterday's plans from %s", yesterday)
			return plans
		}
	}

	for _, doc := range recentDocs {
		ts, ok := ExtractTimestamp(doc, logger)
		if ok && ts.Format("2006-01-02") == today {
			continue
		}
		if plans := docString(doc, store.FieldPlans); plans != "" {
			dateStr := "Unknown date"
			if ok {
				dateStr = ts.Format("2006-01-02")
			}
			logger.Info("Found most recent plans from %s", dateStr)
			return plans
		}
	}

	logger.Info("No previous plans found in recent work updates")
	return NoPlansFound
}

// CurrentChallenges reads the challenges line back out of a rendered current
// work context.
func CurrentChallenges(currentContext string) string {
	for _, line := range strings.Split(currentContext, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Challenges Today:") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "Challenges Today:"))
		}
	}
	return NoChallengesMentioned
}
