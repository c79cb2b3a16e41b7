package agents

import (
	"context"
	"fmt"
	"strings"

	"Mimic_1.0/internal/llm"
	"Mimic_1.0/internal/models"
	"Mimic_1.0/pkg/logger"
)

// acceptThreshold is the minimum per-axis score for acceptance.
const acceptThreshold = 4.0

const judgeMaxNotes = 5

// Judge scores styled responses on factuality, persona fidelity, helpfulness
// and safety, and issues targeted edits when rejecting.
type Judge struct {
	log *logger.Logger
	llm llm.LLM
}

// NewJudge creates a Judge on the given generation oracle.
func NewJudge(client llm.LLM, log *logger.Logger) *Judge {
	return &Judge{log: log, llm: client}
}

// Judge evaluates the response. A malformed oracle reply degrades to a
// conservative reject with a generic manual-review edit instead of an error,
// so the revision loop always has a decision to act on.
func (j *Judge) Judge(
	ctx context.Context,
	response string,
	userMessage string,
	retrievedFacts []*models.RetrievalCandidate,
	profile *models.PersonaProfile,
	pack *models.StylePolicy,
) models.JudgeDecision {
	prompt := j.buildPrompt(response, userMessage, retrievedFacts, profile, pack)

	raw, err := j.llm.Generate(ctx, []llm.Message{{Role: models.SpeakerUser, Content: prompt}}, llm.Options{
		Temperature: 0.2,
		MaxTokens:   400,
	})
	if err != nil {
		j.log.Warn(fmt.Sprintf("Judge oracle call failed, rejecting conservatively: %v", err))
		return fallbackDecision(err)
	}

	var parsed struct {
		Factuality    *float64 `json:"factuality"`
		Persona       *float64 `json:"persona"`
		Helpfulness   *float64 `json:"helpfulness"`
		Safety        *float64 `json:"safety"`
		Overall       *float64 `json:"overall"`
		Accept        bool     `json:"accept"`
		TargetedEdits []string `json:"targeted_edits"`
		Reasoning     string   `json:"reasoning"`
	}
	if err := decodeOracleJSON(raw, &parsed); err != nil {
		j.log.Warn(fmt.Sprintf("Judge returned unparseable decision, rejecting conservatively: %v", err))
		return fallbackDecision(err)
	}

	scores := models.JudgeScores{
		Factuality:  scoreOr(parsed.Factuality, 3.0),
		Persona:     scoreOr(parsed.Persona, 3.0),
		Helpfulness: scoreOr(parsed.Helpfulness, 3.0),
		Safety:      scoreOr(parsed.Safety, 5.0),
		Overall:     scoreOr(parsed.Overall, 3.0),
	}

	// Reconcile the oracle's verdict with the threshold: a "reject" whose
	// scores all clear the bar is promoted to accept.
	accept := parsed.Accept
	if !accept {
		accept = scores.Factuality >= acceptThreshold &&
			scores.Persona >= acceptThreshold &&
			scores.Helpfulness >= acceptThreshold &&
			scores.Safety >= acceptThreshold
	}

	edits := parsed.TargetedEdits
	if len(edits) > 3 {
		edits = edits[:3]
	}
	return models.JudgeDecision{
		Accept:        accept,
		Scores:        scores,
		TargetedEdits: edits,
		Reasoning:     parsed.Reasoning,
	}
}

// ApplyEdits asks the generation oracle to apply the targeted edits while
// preserving facts and citations. The output is returned verbatim; the
// orchestrator re-runs the enforcement pass before the next judging pass.
func (j *Judge) ApplyEdits(ctx context.Context, response string, edits []string, userMessage string) (string, error) {
	var numbered []string
	for i, edit := range edits {
		numbered = append(numbered, fmt.Sprintf("%d. %s", i+1, edit))
	}

	prompt := fmt.Sprintf(`Apply the following edits to improve this response.

Original response:
%s

Edit instructions:
%s

User message: %s

Apply the edits and return the revised response. Keep all facts and citations intact.`,
		response, strings.Join(numbered, "\n"), userMessage)

	revised, err := j.llm.Generate(ctx, []llm.Message{{Role: models.SpeakerUser, Content: prompt}}, llm.Options{
		Temperature: 0.4,
		MaxTokens:   600,
	})
	if err != nil {
		return "", fmt.Errorf("failed to apply targeted edits: %w", err)
	}
	return strings.TrimSpace(revised), nil
}

func (j *Judge) buildPrompt(
	response, userMessage string,
	retrievedFacts []*models.RetrievalCandidate,
	profile *models.PersonaProfile,
	pack *models.StylePolicy,
) string {
	var notes []string
	facts := retrievedFacts
	if len(facts) > judgeMaxNotes {
		facts = facts[:judgeMaxNotes]
	}
	for _, cand := range facts {
		notes = append(notes, fmt.Sprintf("- [%s] %s", cand.Fact.ID, cand.Fact.Text))
	}

	personaName := "Unknown"
	var speakingStyle models.SpeakingStyle
	if profile != nil {
		personaName = profile.Name
		speakingStyle = profile.SpeakingStyle
	}

	return fmt.Sprintf(`You are a quality judge evaluating a persona chatbot response. Score it on four dimensions (1-5 scale) and decide if it should be accepted or revised.

User message: %s

Retrieved facts used:
%s

Persona profile excerpt:
- Name: %s
- Speaking style: %+v

Style requirements:
- Tone: %s
- Formality: %d
- Taboos: %s

Response to judge:
%s

Evaluation Criteria:
1. **Factuality (1-5)**: Are all claims supported by retrieved notes? Are citations correct? No hallucinations?
2. **Persona (1-5)**: Does it sound like the persona? Matches tone, formality, style?
3. **Helpfulness (1-5)**: Does it address the user's question? Useful and relevant?
4. **Safety (1-5)**: No taboo violations? Appropriate content?

Return JSON with:
{
  "factuality": <1-5>,
  "persona": <1-5>,
  "helpfulness": <1-5>,
  "safety": <1-5>,
  "overall": <average>,
  "accept": <true if all scores >= 4.0, else false>,
  "targeted_edits": [<array of specific edit instructions if not accepting>],
  "reasoning": "<brief explanation>"
}

If accept is false, provide 1-3 specific, actionable edits in targeted_edits. Return ONLY valid JSON.`,
		userMessage, strings.Join(notes, "\n"), personaName, speakingStyle,
		pack.Tone, pack.Formality, strings.Join(capTaboos(pack.Taboos, 5), ", "), response)
}

// fallbackDecision is the conservative reject used when judging itself fails.
func fallbackDecision(cause error) models.JudgeDecision {
	return models.JudgeDecision{
		Accept: false,
		Scores: models.JudgeScores{
			Factuality:  3.0,
			Persona:     3.0,
			Helpfulness: 3.0,
			Safety:      5.0,
			Overall:     3.5,
		},
		TargetedEdits: []string{"Unable to parse judge response. Please review manually."},
		Reasoning:     fmt.Sprintf("Parsing error: %v", cause),
	}
}

func scoreOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
