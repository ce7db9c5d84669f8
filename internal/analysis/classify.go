package analysis

import "strings"

// RiskLevel is the discrete classification of a model reply
type RiskLevel string

const (
	RiskSafe    RiskLevel = "SAFE"
	RiskCaution RiskLevel = "CAUTION"
	RiskDanger  RiskLevel = "DANGER"
	RiskInfo    RiskLevel = "INFO"
)

// riskRule binds one risk level to its matching signals. Rules are
// evaluated in order and the first hit wins, so a reply containing both
// a caution and a safe keyword always classifies as CAUTION.
type riskRule struct {
	level    RiskLevel
	glyphs   []string               // matched against the original text, case preserved
	keywords func(Locale) []string  // per-language keyword set, matched lower-cased
}

var riskRules = []riskRule{
	{
		level:    RiskDanger,
		glyphs:   []string{"⚠️"},
		keywords: func(l Locale) []string { return l.DangerKeywords },
	},
	{
		level:    RiskCaution,
		keywords: func(l Locale) []string { return l.CautionKeywords },
	},
	{
		level:    RiskSafe,
		keywords: func(l Locale) []string { return l.SafeKeywords },
	},
}

// Classify derives a risk level from an unstructured model reply.
// The level depends on the text alone; replies are not trusted to
// report their own risk through any structured channel.
func Classify(text string) RiskLevel {
	lowered := strings.ToLower(text)
	for _, rule := range riskRules {
		for _, glyph := range rule.glyphs {
			if strings.Contains(text, glyph) {
				return rule.level
			}
		}
		for _, loc := range locales {
			for _, keyword := range rule.keywords(loc) {
				if strings.Contains(lowered, strings.ToLower(keyword)) {
					return rule.level
				}
			}
		}
	}
	return RiskInfo
}
