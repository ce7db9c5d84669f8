package analysis

import (
	"regexp"
	"strings"
)

// Placeholder names used when a reply yields nothing extractable
const (
	PlaceholderItem = "Unknown Item"
	PlaceholderLab  = "Lab Result"
)

// Extracted is the structured record pulled out of a model reply
type Extracted struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"` // numeric string, lab results only
}

// nameLineRe matches a "Name:" label, optionally bold-marked, and
// captures the trailing value. Applied per line, first match wins.
var nameLineRe = regexp.MustCompile(`(?i)\*{0,2}name\*{0,2}\s*[:：]\s*(.+)$`)

// labValueRe matches the first decimal number immediately followed by a
// recognized measurement unit
var labValueRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:mg/dl|mmol/l|g/dl|u/l|meq/l|ng/ml|miu/l|mmhg|bpm|%)`)

// Extract opportunistically pulls a structured record out of a reply.
// It never fails: a reply with no recognizable labels yields a
// placeholder name and an empty value. The boolean reports whether
// anything beyond the placeholder was found, which is what the caller
// gates history writes on.
func Extract(text string, mode ScanMode) (Extracted, bool) {
	var record Extracted
	found := false

	for _, line := range strings.Split(text, "\n") {
		if m := nameLineRe.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(strings.ReplaceAll(m[1], "*", ""))
			if name != "" {
				record.Name = name
				found = true
			}
			break
		}
	}

	if mode == ModeLabResult {
		if m := labValueRe.FindStringSubmatch(text); m != nil {
			record.Value = m[1]
			found = true
			if record.Name == "" {
				record.Name = PlaceholderLab
			}
		}
	}

	if record.Name == "" {
		record.Name = PlaceholderItem
	}
	return record, found
}
