package followup

import (
	"time"

	"checkin/internal/logging"
	"checkin/internal/store"
)

// Field precedence for ExtractTimestamp. Older records wrote "timestamp" or
// "date" instead of "submittedAt", and all three still occur in stored
// documents.
var timestampFields = []string{store.FieldSubmittedAt, "timestamp", "date"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ExtractTimestamp pulls the submission time out of a stored work update
// document. It accepts time.Time values or string encodings and reports false
// when no field is present or the value cannot be parsed.
func ExtractTimestamp(doc store.Document, logger logging.Logger) (time.Time, bool) {
	logger = logging.OrNop(logger)

	for _, field := range timestampFields {
		value, ok := doc[field]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case time.Time:
			return v, true
		case string:
			for _, layout := range timestampLayouts {
				if ts, err := time.Parse(layout, v); err == nil {
					return ts, true
				}
			}
			logger.Warn("Error parsing date string: %s", v)
			return time.Time{}, false
		default:
			logger.Warn("Unsupported timestamp type %T in field %s", value, field)
			return time.Time{}, false
		}
	}
	return time.Time{}, false
}
