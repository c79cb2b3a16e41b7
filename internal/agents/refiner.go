package agents

import (
	"context"
	"fmt"
	"strings"

	"Mimic_1.0/internal/llm"
	"Mimic_1.0/internal/models"
	"Mimic_1.0/internal/persona"
)

const refinerMaxExamples = 5

// Refiner transforms the neutral draft into the persona's first-person voice,
// then runs the deterministic enforcement pass so hard formatting constraints
// hold regardless of oracle compliance.
type Refiner struct {
	llm       llm.LLM
	artifacts *persona.Artifacts
}

// NewRefiner creates a Refiner bound to one persona's artifacts.
func NewRefiner(client llm.LLM, artifacts *persona.Artifacts) *Refiner {
	return &Refiner{llm: client, artifacts: artifacts}
}

// Refine rewrites the neutral draft per the style policy and enforces the
// hard constraints on the result.
func (r *Refiner) Refine(ctx context.Context, neutralDraft string, pack *models.StylePolicy, userMessage string) (string, error) {
	prompt := r.buildPrompt(neutralDraft, pack, userMessage)

	system := "You are the persona from the transcript. Respond in first person using their exact speaking style."
	if p := r.artifacts.Profile; p != nil {
		phrases := "your natural phrases"
		if len(p.SpeakingStyle.SignaturePhrases) > 0 {
			capped := p.SpeakingStyle.SignaturePhrases
			if len(capped) > 2 {
				capped = capped[:2]
			}
			phrases = strings.Join(capped, ", ")
		}
		system = fmt.Sprintf(`You ARE %s. This is not a roleplay - you ARE this person. You must respond using YOUR actual voice, words, and speaking patterns from the transcript. Speak in first person ("I", "my", "me"). Match your exact speaking style including phrases like "%s".`, p.Name, phrases)
	}

	response, err := r.llm.Generate(ctx, []llm.Message{{Role: models.SpeakerUser, Content: prompt}}, llm.Options{
		Temperature: 0.8,
		MaxTokens:   600,
		System:      system,
	})
	if err != nil {
		return "", fmt.Errorf("refiner generation failed: %w", err)
	}
	return EnforceStyle(strings.TrimSpace(response), userMessage), nil
}

// Enforce re-applies the deterministic constraints without a new oracle call.
// Used after the judge's targeted edits, whose output bypasses the oracle-side
// style instructions.
func (r *Refiner) Enforce(response, userMessage string) string {
	return EnforceStyle(response, userMessage)
}

func (r *Refiner) buildPrompt(neutralDraft string, pack *models.StylePolicy, userMessage string) string {
	personaName := "this person"
	var personaContext, styleDetails string
	if p := r.artifacts.Profile; p != nil {
		personaName = p.Name
		personaContext = fmt.Sprintf(`
You ARE %s. Here's who you are:
- Backstory: %s
- Values: %s
- Topics you know about: %s
`, p.Name, p.Backstory, orDefault(strings.Join(p.Values, ", "), "Not specified"),
			orDefault(strings.Join(p.TopicsOfExpertise, ", "), "Various"))

		style := p.SpeakingStyle
		sentenceRange := "natural"
		if len(style.AvgSentenceLen) == 2 {
			sentenceRange = fmt.Sprintf("%d-%d words", style.AvgSentenceLen[0], style.AvgSentenceLen[1])
		}
		styleDetails = fmt.Sprintf(`
Speaking Style Specifications:
- Average sentence length: %s
- Hedging level: %d/5
- Formality: %d/5
- Emoji policy: %s
- Your signature phrases: %s
`, sentenceRange, style.HedgingLevel, style.Formality, style.EmojiPolicy,
			orDefault(strings.Join(style.SignaturePhrases, ", "), "None specified"))
	}

	var examplesText string
	if len(r.artifacts.Examples) > 0 {
		examples := r.artifacts.Examples
		if len(examples) > refinerMaxExamples {
			examples = examples[:refinerMaxExamples]
		}
		var sb strings.Builder
		sb.WriteString("\n\n**ACTUAL TRANSCRIPT EXAMPLES - Match this EXACT style:**\n\n")
		for i, ex := range examples {
			fmt.Fprintf(&sb, "Example %d:\nUser: %s\n%s: %s\n\n", i+1, ex.User, personaName, ex.Assistant)
		}
		examplesText = sb.String()
	}

	var fewShotsStr string
	if len(pack.FewShots) > 0 {
		var pairs []string
		shots := pack.FewShots
		if len(shots) > 3 {
			shots = shots[:3]
		}
		for _, ex := range shots {
			pairs = append(pairs, fmt.Sprintf("User: %s\nYou: %s", ex.User, ex.Assistant))
		}
		fewShotsStr = "\n\nAdditional Style Examples:\n" + strings.Join(pairs, "\n\n")
	}

	var negativeStr string
	if pack.NegativeExample != nil {
		negativeStr = fmt.Sprintf("\n\n**What NOT to do (avoid this style):**\nUser: %s\nYou: %s",
			pack.NegativeExample.User, pack.NegativeExample.Assistant)
	}

	var movesStr string
	if len(pack.SignatureMoves) > 0 {
		movesStr = fmt.Sprintf("\n\n**Signature phrases you use:** %s\nUse these naturally in your response.",
			strings.Join(pack.SignatureMoves, ", "))
	}

	var taboosStr string
	if len(pack.Taboos) > 0 {
		taboosStr = fmt.Sprintf("\n\n**Things to avoid:** %s", strings.Join(pack.Taboos, ", "))
	}

	followUpStr := "\n- End with a short follow-up question that keeps the conversation going."
	if !pack.FollowUpRequired {
		followUpStr = "\n- Do NOT end your response with a question."
	}

	return fmt.Sprintf(`You ARE %s. Respond EXACTLY as they would, using their actual voice, word choices, and speaking patterns from the transcript.%s

**Your Task:** Transform this neutral factual response into YOUR voice - as if YOU (the persona) are speaking directly.

**User asked:** %s

**Neutral base response (preserve its factual content):**
%s

%s
**Current Style Requirements:**
- Tone: %s
- Target length: ~%d tokens%s%s%s%s%s%s

**CRITICAL INSTRUCTIONS:**
1. You MUST sound EXACTLY like the persona from the transcript examples above.
2. Match their speaking patterns, word choices, and sentence structure.
3. Use their signature phrases naturally when appropriate.
4. Preserve all factual details from the neutral response; do not contradict or omit key information.
5. Speak as if this is YOUR memory, YOUR experience, YOUR thoughts.
6. Use "I", "my", "me" - this is YOUR perspective.
7. Match the tone, formality, and style from the examples EXACTLY.
8. If the examples show uncertainty/hedging, use similar language.
9. If the examples are direct/confident, be direct/confident.
10. Keep the response fluent and personal without referencing internal processes or note IDs.

**Response in YOUR voice:**`,
		personaName, personaContext, userMessage, neutralDraft, styleDetails,
		pack.Tone, pack.TargetLenTokens, followUpStr,
		movesStr, taboosStr, examplesText, fewShotsStr, negativeStr)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
