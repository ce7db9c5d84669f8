package analysis

import (
	"fmt"
	"strings"
)

// ScanMode selects the prompt template and extraction rule
type ScanMode string

const (
	ModeMedication ScanMode = "MEDICATION"
	ModeMeal       ScanMode = "MEAL"
	ModeLabResult  ScanMode = "LAB_RESULT"

	// ModeInteraction tags direct interaction-check results; it is not a
	// scannable mode and never writes to history
	ModeInteraction ScanMode = "FDI_CHECK"
)

// ScanInput is the user-supplied content for one scan: either inline
// image bytes or a text description, never both
type ScanInput struct {
	Text        string
	Image       []byte
	ContentType string // content type of Image as delivered by the capture boundary
}

// ProfileContext is the serialized snapshot of the user profile
// embedded in every prompt so the model can cross-reference
// contraindications
type ProfileContext struct {
	Name        string
	Age         int
	Conditions  string
	Medications string
	Allergies   string
	History     []string // pre-rendered history lines, oldest first
}

// Guest is the substitute context for interaction checks performed
// without a saved profile
func Guest() ProfileContext {
	return ProfileContext{
		Name:        "Guest",
		Conditions:  "None",
		Medications: "None",
		Allergies:   "None",
	}
}

const (
	scanTemperature        = 0.4
	interactionTemperature = 0.2
)

// systemInstruction builds the standing instruction sent with every
// call. The language directive is embedded here and re-stated as the
// final line of the user prompt so template text cannot override it.
func systemInstruction(loc Locale) string {
	var b strings.Builder
	b.WriteString("### Role & Identity\n")
	b.WriteString("You are the \"Dose & Dish AI Specialist,\" a high-tech health companion. ")
	b.WriteString("Your role is to manage user profiles, analyze medications and meals, and track medical progress. ")
	b.WriteString("You act as a safety net to prevent dangerous drug-food interactions (FDI).\n\n")
	b.WriteString("### Language Requirement\n")
	fmt.Fprintf(&b, "**IMPORTANT:** You MUST respond in **%s**.\n\n", loc.Name)
	b.WriteString("### User Profile Context\n")
	b.WriteString("Use the provided user profile to check for contraindications (Age, Conditions, Medications, Allergies, Scan History).\n\n")
	b.WriteString("### Interaction & Safety Logic (The \"Red Alert\")\n")
	b.WriteString("1. **Cross-Reference:** Check against their \"Current Medications\" and \"Allergies\".\n")
	fmt.Fprintf(&b, "2. **Interaction Warning:** If a Food-Drug Interaction (FDI) or Drug-Drug Interaction is found, start with \"⚠️ **INTERACTION DETECTED**\" (Translate \"INTERACTION DETECTED\" to %s).\n", loc.Name)
	b.WriteString("3. **Logic:** Explain *why* they interact clearly.\n\n")
	b.WriteString("### Visual Recommendations (Dose & Dish Style)\n")
	b.WriteString("- **Visual Guidance:** Describe food vividly.\n")
	b.WriteString("- **Dos & Don'ts Table:** Always include a markdown table for recommendations if analyzing food.\n")
	b.WriteString("| Status | Food Type | Why? |\n| :--- | :--- | :--- |\n")
	b.WriteString("| ✅ **Recommended** | [Name] | [Benefit] |\n")
	b.WriteString("| ❌ **Avoid** | [Name] | [Risk] |\n")
	fmt.Fprintf(&b, "(Translate table headers to %s).\n\n", loc.Name)
	b.WriteString("### Tone\n")
	b.WriteString("Empathetic, precise, visual-oriented, and safe. Remind users you are an AI, not a doctor.\n")
	return b.String()
}

// renderProfile serializes the profile snapshot for embedding
func renderProfile(profile ProfileContext) string {
	var b strings.Builder
	b.WriteString("User Profile Data:\n")
	fmt.Fprintf(&b, "- Name: %s\n", profile.Name)
	fmt.Fprintf(&b, "- Age: %d\n", profile.Age)
	fmt.Fprintf(&b, "- Conditions: %s\n", profile.Conditions)
	fmt.Fprintf(&b, "- Current Medications: %s\n", profile.Medications)
	fmt.Fprintf(&b, "- Allergies: %s\n", profile.Allergies)
	if len(profile.History) == 0 {
		b.WriteString("- Scan History: None recorded\n")
	} else {
		b.WriteString("- Scan History:\n")
		for _, line := range profile.History {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}
	return b.String()
}

// languageDirective is always the final instruction so it cannot be
// overridden by anything earlier in the template
func languageDirective(loc Locale) string {
	return fmt.Sprintf("IMPORTANT: Write your entire response in %s, including all table headers and status words.", loc.Name)
}

// scanTask returns the mode-specific instruction text
func scanTask(mode ScanMode, input ScanInput) string {
	fromImage := len(input.Image) > 0
	switch mode {
	case ModeMeal:
		if fromImage {
			return "I am scanning a meal. Identify the food items and start your reply with a line \"Name: <dish name>\". " +
				"Estimate the nutritional value (calories, protein, carbs, fat). " +
				"Check for interactions with my medications or conditions."
		}
		return fmt.Sprintf("I am asking about this food: %q. Start your reply with a line \"Name: <dish name>\". "+
			"Analyze it for nutritional value and check for interactions with my medications/conditions.", input.Text)
	case ModeMedication:
		if fromImage {
			return "I am scanning a medication package or pill. Identify the drug and start your reply with a line \"Name: <drug name>\". " +
				"Check for interactions with my current medications or allergies. Tell me the usage instructions if visible. " +
				"Include a markdown table with columns: Name | Dosage | Purpose | Usage | Warning."
		}
		return fmt.Sprintf("I am asking about this medication: %q. Start your reply with a line \"Name: <drug name>\". "+
			"Explain what it is and check for interactions with my current medications or allergies. "+
			"Include a markdown table with columns: Name | Dosage | Purpose | Usage | Warning.", input.Text)
	case ModeLabResult:
		if fromImage {
			return "I am scanning a medical lab result document. Start your reply with a line \"Name: <test name>\". " +
				"Extract the key findings with their numeric values and units, explain them simply, " +
				"and tell me if they are within normal range."
		}
		return fmt.Sprintf("I am providing my lab result data: %q. Start your reply with a line \"Name: <test name>\". "+
			"State the numeric value with its unit, explain these results simply, "+
			"and tell me if they are within normal range.", input.Text)
	}
	return ""
}

// ComposeScan builds the payload for a scan or free-text question.
// Pure function of its inputs; the caller rejects empty input before
// calling here.
func ComposeScan(mode ScanMode, input ScanInput, profile ProfileContext, lang Language) Prompt {
	loc := LocaleOrDefault(lang)

	var b strings.Builder
	b.WriteString(scanTask(mode, input))
	b.WriteString("\n\n")
	b.WriteString(renderProfile(profile))
	b.WriteString("\n")
	b.WriteString(languageDirective(loc))

	return Prompt{
		System:      systemInstruction(loc),
		Text:        b.String(),
		Image:       input.Image,
		ImageType:   input.ContentType,
		Temperature: scanTemperature,
	}
}

// ComposeInteraction builds the payload for a direct interaction check
// between a food/supplement and a drug. An empty drug name means the
// item is checked against the whole profile instead.
func ComposeInteraction(item, drug string, profile ProfileContext, lang Language) Prompt {
	loc := LocaleOrDefault(lang)

	var b strings.Builder
	b.WriteString("ACT AS: Clinical Pharmacist & Dietitian.\n")
	if drug == "" {
		fmt.Fprintf(&b, "TASK: Check %q against the patient's entire profile for any food-drug or drug-drug interactions.\n", item)
	} else {
		b.WriteString("TASK: Check for Food-Drug Interactions (FDI).\n")
	}
	fmt.Fprintf(&b, "LANGUAGE: %s\n\n", loc.Name)
	b.WriteString("INPUTS:\n")
	fmt.Fprintf(&b, "1. Food: %q\n", item)
	if drug != "" {
		fmt.Fprintf(&b, "2. Drug: %q\n", drug)
	}
	b.WriteString("3. Patient Profile:\n")
	fmt.Fprintf(&b, "   - Conditions: %s\n", profile.Conditions)
	fmt.Fprintf(&b, "   - Other Meds: %s\n", profile.Medications)
	fmt.Fprintf(&b, "   - Allergies: %s\n\n", profile.Allergies)
	b.WriteString("OUTPUT FORMAT:\n")
	b.WriteString("- Start with a clear header.\n")
	fmt.Fprintf(&b, "- Risk Level: one of [%s / %s / %s] on its own line.\n", loc.VerdictSafe, loc.VerdictCaution, loc.VerdictDanger)
	b.WriteString("- Interaction Table: a markdown table of interacting pairs and their mechanism (e.g., CYP450 inhibition).\n")
	b.WriteString("- Lab & Health Impact: how this combination affects lab values or existing conditions.\n")
	b.WriteString("- Recommendation: what should the user do?\n\n")
	b.WriteString(languageDirective(loc))

	return Prompt{
		System:      systemInstruction(loc),
		Text:        b.String(),
		Temperature: interactionTemperature,
	}
}

// ComposeChat builds a conversational payload. Prior turns are replayed
// in send order so the model keeps context; the new turn goes last.
func ComposeChat(history []Turn, text string, image []byte, imageType string, profile ProfileContext, lang Language) Prompt {
	loc := LocaleOrDefault(lang)

	var b strings.Builder
	b.WriteString(systemInstruction(loc))
	b.WriteString("\n### Consultation Context\n")
	b.WriteString("You are acting as the user's AI pharmacist. Answer questions about medications, chronic diseases, and diet, citing established guidance (UpToDate, WHO) where relevant.\n\n")
	b.WriteString(renderProfile(profile))
	b.WriteString("\n")
	b.WriteString(languageDirective(loc))

	// Copy so later appends by the caller cannot alias into the prompt
	turns := make([]Turn, len(history))
	copy(turns, history)

	return Prompt{
		System:      b.String(),
		History:     turns,
		Text:        text,
		Image:       image,
		ImageType:   imageType,
		Temperature: scanTemperature,
	}
}
