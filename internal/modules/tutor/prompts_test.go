package tutor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildPromptNeverEmpty(t *testing.T) {
	lib := NewPromptLibrary()
	subjects := []string{"math", "science", "writing", "history", "general", "underwater basket weaving", ""}
	levels := []Level{LevelElementary, LevelMiddle, LevelHigh, LevelAdvanced, Level("bogus")}

	for _, mode := range allModes {
		for _, subject := range subjects {
			for _, level := range levels {
				got := lib.Build(mode, subject, level)
				if strings.TrimSpace(got) == "" {
					t.Fatalf("Build(%s, %q, %s) returned empty prompt", mode, subject, level)
				}
				if !strings.Contains(got, "Teaching policy:") {
					t.Fatalf("Build(%s, %q, %s) missing policy block", mode, subject, level)
				}
			}
		}
	}
}

func TestBuildPromptSocraticPolicy(t *testing.T) {
	lib := NewPromptLibrary()

	practice := lib.Build(ModePractice, "math", LevelElementary)
	if !strings.Contains(practice, "Never state the final answer") {
		t.Fatalf("practice prompt does not forbid direct answers:\n%s", practice)
	}
	if !strings.Contains(practice, "never solve the problem outright") {
		t.Fatalf("practice prompt does not forbid solving outright:\n%s", practice)
	}

	check := lib.Build(ModeAnswerCheck, "math", LevelElementary)
	if !strings.Contains(check, "never") || !strings.Contains(check, "restate the correct value") {
		t.Fatalf("answer-check prompt does not forbid revealing the value:\n%s", check)
	}
}

func TestBuildPromptExplanationInvitesNextStep(t *testing.T) {
	lib := NewPromptLibrary()
	got := lib.Build(ModeExplanation, "science", LevelMiddle)
	if !strings.Contains(got, "explain the concept directly") {
		t.Fatalf("explanation prompt should permit direct explanation:\n%s", got)
	}
	if !strings.Contains(got, "inviting the learner to choose what to do next") {
		t.Fatalf("explanation prompt should end with a forward invitation:\n%s", got)
	}
}

func TestBuildPromptWordCeilingScalesWithLevel(t *testing.T) {
	lib := NewPromptLibrary()
	elem := lib.Build(ModeDiscovery, "science", LevelElementary)
	adv := lib.Build(ModeDiscovery, "science", LevelAdvanced)
	if !strings.Contains(elem, "under 80 words") {
		t.Fatalf("elementary prompt missing 80-word ceiling:\n%s", elem)
	}
	if !strings.Contains(adv, "under 250 words") {
		t.Fatalf("advanced prompt missing 250-word ceiling:\n%s", adv)
	}
}

func TestBuildPromptSubjectLevelSpecialization(t *testing.T) {
	lib := NewPromptLibrary()
	got := lib.Build(ModePractice, "math", LevelElementary)
	if !strings.Contains(got, "young children") {
		t.Fatalf("expected elementary math specialization, got:\n%s", got)
	}

	// Unknown cells fall back to the generic persona, still with the policy.
	fallback := lib.Build(ModePractice, "astronomy", LevelAdvanced)
	if !strings.Contains(fallback, "work through a problem they need to solve themselves") {
		t.Fatalf("expected generic practice persona, got:\n%s", fallback)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	content := `templates:
  - mode: practice
    subject: chemistry
    level: high
    text: |
      You are Lilibet, a chemistry lab tutor. The learner has a stoichiometry
      problem to balance on their own.
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write overrides: %v", err)
	}

	lib := NewPromptLibrary()
	if err := lib.LoadOverrides(path); err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}

	got := lib.Build(ModePractice, "chemistry", LevelHigh)
	if !strings.Contains(got, "stoichiometry") {
		t.Fatalf("override not applied:\n%s", got)
	}
	// The policy block survives overrides unconditionally.
	if !strings.Contains(got, "Never state the final answer") {
		t.Fatalf("override dropped the policy block:\n%s", got)
	}
}

func TestLoadOverridesRejectsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	content := "templates:\n  - mode: lecture\n    text: nope\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write overrides: %v", err)
	}
	lib := NewPromptLibrary()
	if err := lib.LoadOverrides(path); err == nil {
		t.Fatal("LoadOverrides accepted an unknown mode")
	}
}
