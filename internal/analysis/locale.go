package analysis

import (
	"fmt"
	"sort"
)

// Language is a supported display language tag
type Language string

const (
	LangEnglish Language = "en"
	LangThai    Language = "th"
	LangChinese Language = "cn"
)

// Locale holds the per-language strings and keyword sets. Every field
// must be populated for every registered language; ValidateLocales
// enforces this at startup so a partially translated table cannot ship.
type Locale struct {
	Name string // natural-language name used in prompt directives

	// Risk keyword sets matched against lower-cased model replies
	DangerKeywords  []string
	CautionKeywords []string
	SafeKeywords    []string

	// Tri-state verdict words the interaction-check template asks for
	VerdictSafe    string
	VerdictCaution string
	VerdictDanger  string

	// Fallback strings substituted for the model reply on failure
	AnalyzeFailure     string
	InteractionFailure string
	EmptyReply         string
}

var locales = map[Language]Locale{
	LangEnglish: {
		Name:               "English",
		DangerKeywords:     []string{"dangerous", "danger"},
		CautionKeywords:    []string{"caution", "avoid"},
		SafeKeywords:       []string{"safe", "recommended"},
		VerdictSafe:        "Safe",
		VerdictCaution:     "Caution",
		VerdictDanger:      "Dangerous",
		AnalyzeFailure:     "An error occurred while communicating with the AI. Please check your connection and try again.",
		InteractionFailure: "Error checking interaction.",
		EmptyReply:         "I couldn't analyze the data. Please try again.",
	},
	LangThai: {
		Name:               "Thai",
		DangerKeywords:     []string{"อันตราย"},
		CautionKeywords:    []string{"ระวัง"},
		SafeKeywords:       []string{"ปลอดภัย"},
		VerdictSafe:        "ปลอดภัย",
		VerdictCaution:     "ควรระวัง",
		VerdictDanger:      "อันตราย",
		AnalyzeFailure:     "เกิดข้อผิดพลาดในการเชื่อมต่อกับ AI กรุณาตรวจสอบอินเทอร์เน็ตแล้วลองใหม่อีกครั้ง",
		InteractionFailure: "ไม่สามารถตรวจสอบการตีกันของยาได้",
		EmptyReply:         "ไม่สามารถวิเคราะห์ข้อมูลได้ กรุณาลองใหม่อีกครั้ง",
	},
	LangChinese: {
		Name:               "Simplified Chinese",
		DangerKeywords:     []string{"危险"},
		CautionKeywords:    []string{"注意"},
		SafeKeywords:       []string{"安全"},
		VerdictSafe:        "安全",
		VerdictCaution:     "注意",
		VerdictDanger:      "危险",
		AnalyzeFailure:     "与 AI 通信时发生错误，请检查网络后重试。",
		InteractionFailure: "无法完成相互作用检查。",
		EmptyReply:         "无法分析该数据，请重试。",
	},
}

// LocaleFor returns the locale for a language tag
func LocaleFor(lang Language) (Locale, bool) {
	loc, ok := locales[lang]
	return loc, ok
}

// LocaleOrDefault falls back to English for unknown tags
func LocaleOrDefault(lang Language) Locale {
	if loc, ok := locales[lang]; ok {
		return loc
	}
	return locales[LangEnglish]
}

// Languages returns all registered language tags in stable order
func Languages() []Language {
	tags := make([]Language, 0, len(locales))
	for tag := range locales {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// ValidateLocales checks every registered locale for completeness.
// Called once at startup; a missing string or keyword set is a
// configuration bug, not a runtime condition.
func ValidateLocales() error {
	if _, ok := locales[LangEnglish]; !ok {
		return fmt.Errorf("locale table must include English")
	}
	for tag, loc := range locales {
		if loc.Name == "" {
			return fmt.Errorf("locale %q: missing language name", tag)
		}
		for field, keywords := range map[string][]string{
			"danger keywords":  loc.DangerKeywords,
			"caution keywords": loc.CautionKeywords,
			"safe keywords":    loc.SafeKeywords,
		} {
			if len(keywords) == 0 {
				return fmt.Errorf("locale %q: missing %s", tag, field)
			}
			for _, kw := range keywords {
				if kw == "" {
					return fmt.Errorf("locale %q: empty entry in %s", tag, field)
				}
			}
		}
		for field, value := range map[string]string{
			"safe verdict":        loc.VerdictSafe,
			"caution verdict":     loc.VerdictCaution,
			"danger verdict":      loc.VerdictDanger,
			"analyze failure":     loc.AnalyzeFailure,
			"interaction failure": loc.InteractionFailure,
			"empty reply":         loc.EmptyReply,
		} {
			if value == "" {
				return fmt.Errorf("locale %q: missing %s", tag, field)
			}
		}
	}
	return nil
}
