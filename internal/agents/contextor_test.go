package agents

import (
	"context"
	"testing"

	"Mimic_1.0/internal/models"
	"Mimic_1.0/internal/persona"
	"Mimic_1.0/pkg/logger"
)

func testArtifacts() *persona.Artifacts {
	return &persona.Artifacts{
		Name: "ava",
		Profile: &models.PersonaProfile{
			Name:      "Ava",
			Backstory: "a retired mountain guide",
			Values:    []string{"honesty"},
			SpeakingStyle: models.SpeakingStyle{
				AvgSentenceLen:   []int{8, 14},
				HedgingLevel:     2,
				Formality:        2,
				EmojiPolicy:      "none",
				SignaturePhrases: []string{"you know", "up there"},
			},
		},
		StyleRules: "Short sentences. Warm tone.",
		Taboos:     []string{"politics", "health advice", "finance", "religion", "gossip", "legal advice"},
		Examples: []models.Example{
			{User: "any advice?", Assistant: "pack light, you know", Intent: IntentAdvice},
			{User: "tell me a story", Assistant: "once, up there...", Intent: IntentStorytelling},
			{User: "hi", Assistant: "hey there", Intent: IntentChitChat},
		},
	}
}

func agentLogger() *logger.Logger {
	return logger.New("test", "", "")
}

func TestClassifyIntent(t *testing.T) {
	c := NewContextor(&scriptedLLM{}, testArtifacts(), agentLogger())

	cases := []struct {
		message string
		want    string
	}{
		{"What should I do about my career path going forward in the next year", IntentAdvice},
		{"Tell me a story about the mountains and what happened on that long trip", IntentStorytelling},
		{"What do you think about modern alpinism and its culture these days overall", IntentOpinion},
		{"hello", IntentChitChat},
		{"the weather over the ridge has been strange for several weeks now somehow", IntentDefault},
	}
	for _, tc := range cases {
		if got := c.ClassifyIntent(tc.message); got != tc.want {
			t.Errorf("ClassifyIntent(%q) = %s, want %s", tc.message, got, tc.want)
		}
	}
}

func TestBuildPack_FallsBackOnMalformedJSON(t *testing.T) {
	c := NewContextor(&scriptedLLM{responses: []string{"not json at all"}}, testArtifacts(), agentLogger())

	pack := c.BuildPack(context.Background(), "any advice for a first trip", nil, 0.8)
	if pack == nil {
		t.Fatal("BuildPack must never return nil")
	}
	if pack.Tone != "neutral" {
		t.Errorf("fallback tone = %q, want neutral", pack.Tone)
	}
	if len(pack.Taboos) != 5 {
		t.Errorf("fallback taboos capped at 5, got %d", len(pack.Taboos))
	}
	if len(pack.FewShots) == 0 {
		t.Error("fallback pack should carry few-shots from the artifacts")
	}
}

func TestBuildPack_ParsesOraclePolicy(t *testing.T) {
	policy := "```json\n" + `{"tone":"warm","hedging_level":1,"formality":2,"emoji_policy":"light","target_len_tokens":120,"signature_moves":["you know"],"taboos":["politics"],"few_shots":[{"user":"hi","assistant":"hey"}]}` + "\n```"
	c := NewContextor(&scriptedLLM{responses: []string{policy}}, testArtifacts(), agentLogger())

	pack := c.BuildPack(context.Background(), "what should i pack for a week in the hills this autumn", nil, 0.9)
	if pack.Tone != "warm" {
		t.Errorf("tone = %q, want warm", pack.Tone)
	}
	if pack.HedgingLevel != 1 {
		t.Errorf("hedging = %d, want 1", pack.HedgingLevel)
	}
	if pack.EmojiPolicy != "light" {
		t.Errorf("emoji policy = %q, want light", pack.EmojiPolicy)
	}
}

func TestBuildPack_LowConfidenceForcesHedging(t *testing.T) {
	c := NewContextor(&scriptedLLM{responses: []string{"garbage"}}, testArtifacts(), agentLogger())

	pack := c.BuildPack(context.Background(), "hello there", nil, 0.35)
	if pack.HedgingLevel < 3 {
		t.Errorf("hedging = %d, want >= 3 under low confidence", pack.HedgingLevel)
	}
}

func TestBuildPack_LengthScalesWithUserMessage(t *testing.T) {
	c := NewContextor(&scriptedLLM{responses: []string{"garbage", "garbage"}}, testArtifacts(), agentLogger())

	// 10 user words: round(10*1.2)+4 = 16 words -> 21 tokens.
	pack := c.BuildPack(context.Background(), "one two three four five six seven eight nine ten", nil, 0.9)
	if pack.TargetLenTokens != 16*4/3 {
		t.Errorf("target tokens = %d, want %d", pack.TargetLenTokens, 16*4/3)
	}

	// 2 user words floor at 6 words -> 8 tokens.
	pack = c.BuildPack(context.Background(), "hi there", nil, 0.9)
	if pack.TargetLenTokens != 8 {
		t.Errorf("target tokens = %d, want 8", pack.TargetLenTokens)
	}
}

func TestBuildPack_LengthCappedByPersonaSentenceLength(t *testing.T) {
	artifacts := testArtifacts()
	artifacts.Profile.SpeakingStyle.AvgSentenceLen = []int{4, 5}
	c := NewContextor(&scriptedLLM{responses: []string{"garbage"}}, artifacts, agentLogger())

	// 20 user words would give 28, but 2x the persona max of 5 caps at 10.
	msg := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty"
	pack := c.BuildPack(context.Background(), msg, nil, 0.9)
	if pack.TargetLenTokens != 10*4/3 {
		t.Errorf("target tokens = %d, want %d", pack.TargetLenTokens, 10*4/3)
	}
}

func TestFollowUpPermission_InferredFromArtifacts(t *testing.T) {
	allowed := NewContextor(&scriptedLLM{}, testArtifacts(), agentLogger())
	if !allowed.FollowUpAllowed() {
		t.Error("persona without ban markers should allow follow-ups")
	}

	banned := testArtifacts()
	banned.StyleRules += "\nNever ask the user questions."
	denied := NewContextor(&scriptedLLM{}, banned, agentLogger())
	if denied.FollowUpAllowed() {
		t.Error("'never ask' marker should revoke follow-up permission")
	}
}

func TestSelectFewShots_PrefersMatchingIntent(t *testing.T) {
	c := NewContextor(&scriptedLLM{}, testArtifacts(), agentLogger())

	shots := c.SelectFewShots(IntentStorytelling, 1)
	if len(shots) != 1 || shots[0].Intent != IntentStorytelling {
		t.Errorf("expected a storytelling example, got %+v", shots)
	}

	// No opinion examples: falls back to the leading examples.
	shots = c.SelectFewShots(IntentOpinion, 2)
	if len(shots) != 2 {
		t.Errorf("expected fallback to any 2 examples, got %d", len(shots))
	}
}
