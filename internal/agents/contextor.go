package agents

import (
	"context"
	"fmt"
	"math"
	"strings"

	"Mimic_1.0/internal/llm"
	"Mimic_1.0/internal/models"
	"Mimic_1.0/internal/persona"
	"Mimic_1.0/pkg/logger"
)

// Intent labels and their token length targets.
const (
	IntentAdvice       = "advice"
	IntentStorytelling = "storytelling"
	IntentOpinion      = "opinion"
	IntentChitChat     = "chit-chat"
	IntentDefault      = "default"
)

// lengthTargets maps intent to a [min, max] token budget.
var lengthTargets = map[string][2]int{
	IntentAdvice:       {150, 220},
	IntentChitChat:     {60, 120},
	IntentStorytelling: {200, 350},
	IntentOpinion:      {100, 180},
	IntentDefault:      {100, 200},
}

// Word-budget clamp bounds applied before token conversion.
const (
	minReplyWords = 6
	maxReplyWords = 40
)

// followUpBanMarkers are the phrases in persona artifacts that revoke the
// permission to ask follow-up questions.
var followUpBanMarkers = []string{"never ask", "no questions", "no follow-up", "avoid questions"}

// Contextor builds the per-turn Style+Policy configuration from the persona
// artifacts, the detected intent and the retrieval confidence.
type Contextor struct {
	log       *logger.Logger
	llm       llm.LLM
	artifacts *persona.Artifacts

	// followUpAllowed is inferred once from the artifacts and reused for the
	// lifetime of this persona session.
	followUpAllowed bool
}

// NewContextor creates a Contextor bound to one persona's artifacts.
func NewContextor(client llm.LLM, artifacts *persona.Artifacts, log *logger.Logger) *Contextor {
	return &Contextor{
		log:             log,
		llm:             client,
		artifacts:       artifacts,
		followUpAllowed: inferFollowUpPermission(artifacts),
	}
}

// BuildPack asks the generation oracle for a style policy and then applies the
// deterministic post-adjustments. A malformed oracle response falls back to a
// fixed default policy so the pipeline never stalls on this stage.
func (c *Contextor) BuildPack(ctx context.Context, userMessage string, history []models.HistoryTurn, retrievedConfidence float64) *models.StylePolicy {
	intent := c.ClassifyIntent(userMessage)
	target := lengthTargets[intent]

	prompt := c.buildPrompt(userMessage, intent, retrievedConfidence, target)
	response, err := c.llm.Generate(ctx, []llm.Message{{Role: models.SpeakerUser, Content: prompt}}, llm.Options{
		Temperature: 0.5,
		MaxTokens:   800,
	})
	if err != nil {
		c.log.Warn(fmt.Sprintf("Contextor oracle call failed, using default policy: %v", err))
		return c.defaultPack(userMessage, intent, target, retrievedConfidence)
	}

	var parsed struct {
		Tone            string           `json:"tone"`
		HedgingLevel    *int             `json:"hedging_level"`
		Formality       *int             `json:"formality"`
		EmojiPolicy     string           `json:"emoji_policy"`
		TargetLenTokens *int             `json:"target_len_tokens"`
		CadenceNotes    string           `json:"cadence_notes"`
		SignatureMoves  []string         `json:"signature_moves"`
		Taboos          []string         `json:"taboos"`
		FewShots        []models.Example `json:"few_shots"`
		NegativeExample *models.Example  `json:"negative_example"`
	}
	if err := decodeOracleJSON(response, &parsed); err != nil {
		c.log.Warn(fmt.Sprintf("Contextor returned unparseable policy, using default: %v", err))
		return c.defaultPack(userMessage, intent, target, retrievedConfidence)
	}

	pack := &models.StylePolicy{
		Tone:             "neutral",
		HedgingLevel:     2,
		Formality:        3,
		EmojiPolicy:      "none",
		TargetLenTokens:  target[0],
		CadenceNotes:     parsed.CadenceNotes,
		FollowUpRequired: c.followUpAllowed,
		SignatureMoves:   parsed.SignatureMoves,
		Taboos:           parsed.Taboos,
		NegativeExample:  parsed.NegativeExample,
	}
	if parsed.Tone != "" {
		pack.Tone = parsed.Tone
	}
	if parsed.HedgingLevel != nil {
		pack.HedgingLevel = *parsed.HedgingLevel
	}
	if parsed.Formality != nil {
		pack.Formality = *parsed.Formality
	}
	if parsed.EmojiPolicy != "" {
		pack.EmojiPolicy = parsed.EmojiPolicy
	}
	if parsed.TargetLenTokens != nil {
		pack.TargetLenTokens = *parsed.TargetLenTokens
	}
	if len(parsed.FewShots) > 3 {
		parsed.FewShots = parsed.FewShots[:3]
	}
	pack.FewShots = parsed.FewShots
	if len(pack.FewShots) == 0 {
		pack.FewShots = c.SelectFewShots(intent, 2)
	}
	if len(pack.Taboos) == 0 {
		pack.Taboos = capTaboos(c.artifacts.Taboos, 5)
	}

	c.adjustPack(pack, userMessage, retrievedConfidence)
	return pack
}

// ClassifyIntent buckets the message by keyword heuristics.
func (c *Contextor) ClassifyIntent(message string) string {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "advice", "should", "recommend", "suggest", "how to"):
		return IntentAdvice
	case containsAny(lower, "story", "tell", "remember", "once"):
		return IntentStorytelling
	case containsAny(lower, "think", "opinion", "believe", "feel"):
		return IntentOpinion
	case len(strings.Fields(message)) < 10:
		return IntentChitChat
	default:
		return IntentDefault
	}
}

// SelectFewShots picks up to count examples labeled with the intent, falling
// back to the first examples of any intent when too few match.
func (c *Contextor) SelectFewShots(intent string, count int) []models.Example {
	var matching []models.Example
	for _, ex := range c.artifacts.Examples {
		if ex.Intent == intent {
			matching = append(matching, ex)
		}
	}
	if len(matching) >= count {
		return matching[:count]
	}
	if len(c.artifacts.Examples) >= count {
		return c.artifacts.Examples[:count]
	}
	return nil
}

// FollowUpAllowed reports whether the persona may end replies with questions.
func (c *Contextor) FollowUpAllowed() bool {
	return c.followUpAllowed
}

// adjustPack applies the deterministic post-adjustments: hedging floor under
// low confidence, and the length clamps that scale the reply with the user
// message while respecting the persona's declared sentence length.
func (c *Contextor) adjustPack(pack *models.StylePolicy, userMessage string, retrievedConfidence float64) {
	if retrievedConfidence < 0.5 && pack.HedgingLevel < 3 {
		pack.HedgingLevel = 3
	}

	userWords := len(strings.Fields(userMessage))
	words := int(math.Round(float64(userWords)*1.2)) + 4
	if words < minReplyWords {
		words = minReplyWords
	}
	if words > maxReplyWords {
		words = maxReplyWords
	}
	if style := c.speakingStyle(); style != nil && len(style.AvgSentenceLen) == 2 {
		if limit := 2 * style.AvgSentenceLen[1]; limit > 0 && words > limit {
			words = limit
		}
	}
	pack.TargetLenTokens = words * 4 / 3
}

func (c *Contextor) speakingStyle() *models.SpeakingStyle {
	if c.artifacts.Profile == nil {
		return nil
	}
	return &c.artifacts.Profile.SpeakingStyle
}

// defaultPack is the parse-failure fallback policy.
func (c *Contextor) defaultPack(userMessage, intent string, target [2]int, retrievedConfidence float64) *models.StylePolicy {
	pack := &models.StylePolicy{
		Tone:             "neutral",
		HedgingLevel:     2,
		Formality:        3,
		EmojiPolicy:      "none",
		TargetLenTokens:  target[0],
		FollowUpRequired: c.followUpAllowed,
		Taboos:           capTaboos(c.artifacts.Taboos, 5),
		FewShots:         c.SelectFewShots(intent, 2),
	}
	c.adjustPack(pack, userMessage, retrievedConfidence)
	return pack
}

func (c *Contextor) buildPrompt(userMessage, intent string, retrievedConfidence float64, target [2]int) string {
	var profileStr string
	if p := c.artifacts.Profile; p != nil {
		profileStr = fmt.Sprintf(`
Persona Profile:
- Name: %s
- Backstory: %s
- Values: %s
- Expertise: %s
- Style: avg_sentence_len=%v, hedging=%d, formality=%d, emoji=%s, phrases=%s
`,
			p.Name, p.Backstory,
			strings.Join(p.Values, ", "),
			strings.Join(p.TopicsOfExpertise, ", "),
			p.SpeakingStyle.AvgSentenceLen, p.SpeakingStyle.HedgingLevel,
			p.SpeakingStyle.Formality, p.SpeakingStyle.EmojiPolicy,
			strings.Join(p.SpeakingStyle.SignaturePhrases, ", "))
	}

	styleRules := c.artifacts.StyleRules
	if len(styleRules) > 500 {
		styleRules = styleRules[:500]
	}
	taboos := capTaboos(c.artifacts.Taboos, 10)

	return fmt.Sprintf(`You are a style coordinator. Based on the persona profile and user's current message, generate a Style+Policy Pack.

%s

Style Rules (excerpt):
%s

Taboos:
%s

User Message: %s
Detected Intent: %s
Retrieved Confidence: %.2f

Generate a JSON Style+Policy Pack with:
- tone: string (e.g., "warm", "professional", "casual", "enthusiastic")
- hedging_level: integer 0-5 (adjust based on retrieved confidence: if <0.5, increase hedging)
- formality: integer 0-5
- emoji_policy: "none", "light", or "rich"
- target_len_tokens: integer (based on intent: %d-%d)
- cadence_notes: short string describing the persona's rhythm of speech
- signature_moves: array of strings (2-3 phrases/patterns from persona)
- taboos: array of strings (relevant taboos for this query)
- few_shots: array of 2-3 examples (user/assistant pairs from examples)
- negative_example: optional object with user/assistant showing what NOT to do

Return ONLY valid JSON, no markdown or explanation.`,
		profileStr, styleRules, strings.Join(taboos, "\n"),
		userMessage, intent, retrievedConfidence, target[0], target[1])
}

// inferFollowUpPermission scans the persona artifacts once for markers that
// forbid asking the user questions.
func inferFollowUpPermission(artifacts *persona.Artifacts) bool {
	var corpus strings.Builder
	corpus.WriteString(strings.ToLower(artifacts.StyleRules))
	for _, taboo := range artifacts.Taboos {
		corpus.WriteString(" " + strings.ToLower(taboo))
	}
	if artifacts.Profile != nil {
		corpus.WriteString(" " + strings.ToLower(artifacts.Profile.Backstory))
	}
	text := corpus.String()
	for _, marker := range followUpBanMarkers {
		if strings.Contains(text, marker) {
			return false
		}
	}
	return true
}

func capTaboos(taboos []string, n int) []string {
	if len(taboos) > n {
		return taboos[:n]
	}
	return taboos
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
