package agents

import (
	"context"
	"strings"
	"testing"

	"Mimic_1.0/internal/models"
)

func testPack() *models.StylePolicy {
	return &models.StylePolicy{
		Tone:      "warm",
		Formality: 2,
		Taboos:    []string{"politics"},
	}
}

func TestJudge_AcceptsGoodResponse(t *testing.T) {
	resp := `{"factuality":5,"persona":4.5,"helpfulness":4,"safety":5,"overall":4.6,"accept":true,"targeted_edits":[],"reasoning":"solid"}`
	j := NewJudge(&scriptedLLM{responses: []string{resp}}, agentLogger())

	decision := j.Judge(context.Background(), "a response", "a question", nil, testArtifacts().Profile, testPack())
	if !decision.Accept {
		t.Error("expected acceptance")
	}
	if decision.Scores.Factuality != 5 || decision.Scores.Overall != 4.6 {
		t.Errorf("unexpected scores %+v", decision.Scores)
	}
}

func TestJudge_PromotesRejectWhenScoresClearThreshold(t *testing.T) {
	// The oracle says reject but every axis clears 4.0; the threshold wins.
	resp := `{"factuality":4,"persona":4,"helpfulness":4.5,"safety":5,"overall":4.4,"accept":false,"targeted_edits":["tighten it"],"reasoning":"hesitant"}`
	j := NewJudge(&scriptedLLM{responses: []string{resp}}, agentLogger())

	decision := j.Judge(context.Background(), "a response", "a question", nil, testArtifacts().Profile, testPack())
	if !decision.Accept {
		t.Error("reject with all scores >= 4.0 should be promoted to accept")
	}
}

func TestJudge_RejectsBelowThreshold(t *testing.T) {
	resp := `{"factuality":3,"persona":4,"helpfulness":4,"safety":5,"overall":4,"accept":false,"targeted_edits":["cite the note about decisions","drop the second claim"],"reasoning":"unsupported claim"}`
	j := NewJudge(&scriptedLLM{responses: []string{resp}}, agentLogger())

	decision := j.Judge(context.Background(), "a response", "a question", nil, testArtifacts().Profile, testPack())
	if decision.Accept {
		t.Error("expected rejection")
	}
	if len(decision.TargetedEdits) != 2 {
		t.Errorf("expected 2 edits, got %d", len(decision.TargetedEdits))
	}
}

func TestJudge_MalformedResponseFallsBackConservatively(t *testing.T) {
	j := NewJudge(&scriptedLLM{responses: []string{"the model rambled instead of returning json"}}, agentLogger())

	decision := j.Judge(context.Background(), "a response", "a question", nil, testArtifacts().Profile, testPack())
	if decision.Accept {
		t.Error("parse failure must reject conservatively")
	}
	want := models.JudgeScores{Factuality: 3, Persona: 3, Helpfulness: 3, Safety: 5, Overall: 3.5}
	if decision.Scores != want {
		t.Errorf("fallback scores = %+v, want %+v", decision.Scores, want)
	}
	if len(decision.TargetedEdits) != 1 {
		t.Errorf("fallback must carry one generic edit, got %v", decision.TargetedEdits)
	}
}

func TestJudge_CapsEditsAtThree(t *testing.T) {
	resp := `{"factuality":2,"persona":2,"helpfulness":2,"safety":5,"overall":2.8,"accept":false,"targeted_edits":["a","b","c","d","e"]}`
	j := NewJudge(&scriptedLLM{responses: []string{resp}}, agentLogger())

	decision := j.Judge(context.Background(), "a response", "a question", nil, testArtifacts().Profile, testPack())
	if len(decision.TargetedEdits) != 3 {
		t.Errorf("edits must cap at 3, got %d", len(decision.TargetedEdits))
	}
}

func TestApplyEdits_NumbersInstructions(t *testing.T) {
	fake := &scriptedLLM{responses: []string{"revised response"}}
	j := NewJudge(fake, agentLogger())

	out, err := j.ApplyEdits(context.Background(), "original", []string{"fix tone", "add citation"}, "question")
	if err != nil {
		t.Fatalf("ApplyEdits() error = %v", err)
	}
	if out != "revised response" {
		t.Errorf("unexpected output %q", out)
	}
	prompt := fake.prompts[len(fake.prompts)-1]
	if !strings.Contains(prompt, "1. fix tone") || !strings.Contains(prompt, "2. add citation") {
		t.Errorf("edits should be numbered in the prompt:\n%s", prompt)
	}
}
