package dynamo

import "time"

// Timestamp bookkeeping fields, written as ISO-8601 strings with
// millisecond precision, always UTC.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// hasTimestamp reports whether rec carries a usable value for field.
// Absent, nil and empty-string values all count as missing.
func hasTimestamp(rec Record, field string) bool {
	v, ok := rec[field]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString && s == "" {
		return false
	}
	return true
}

// stampMissing returns a copy of rec with createdAt and updatedAt filled
// where missing. When both are generated in one call they carry the same
// instant. Values the caller supplied are preserved as-is.
func stampMissing(rec Record, now time.Time) Record {
	out := make(Record, len(rec)+2)
	for k, v := range rec {
		out[k] = v
	}
	ts := formatTimestamp(now)
	if !hasTimestamp(out, FieldCreatedAt) {
		out[FieldCreatedAt] = ts
	}
	if !hasTimestamp(out, FieldUpdatedAt) {
		out[FieldUpdatedAt] = ts
	}
	return out
}

// stampUpdated returns a copy of rec with updatedAt overwritten. createdAt
// is left exactly as the caller sent it.
func stampUpdated(rec Record, now time.Time) Record {
	out := make(Record, len(rec)+1)
	for k, v := range rec {
		out[k] = v
	}
	out[FieldUpdatedAt] = formatTimestamp(now)
	return out
}
