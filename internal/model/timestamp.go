package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeLayouts are the formats accepted for schedule dates, both in upload forms
// and JSON patches. The short forms are what a datetime-local input produces.
var TimeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// ParseTime parses raw against TimeLayouts. Layouts without a zone are read as UTC.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range TimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", raw)
}

// Timestamp is a time.Time that decodes from any of TimeLayouts.
type Timestamp struct {
	time.Time
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid time %s", data)
	}
	t, err := ParseTime(raw)
	if err != nil {
		return err
	}
	ts.Time = t
	return nil
}

// TimeOr resolves a patched date against its current value.
func TimeOr(o Optional[Timestamp], current *time.Time) *time.Time {
	if !o.Set {
		return current
	}
	if o.Value == nil {
		return nil
	}
	t := o.Value.Time
	return &t
}
