package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

type fakeProvider struct {
	name   string
	reply  string
	err    error
	calls  int
	system string
	user   string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, system string, history []Turn, user string) (string, error) {
	f.calls++
	f.system = system
	f.user = user
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testDeps(t *testing.T, openai, anthropic *fakeProvider) Deps {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	deps := Deps{
		Log:     log,
		Prompts: NewPromptLibrary(),
	}
	if openai != nil {
		deps.OpenAI = openai
		deps.Avail.OpenAI = true
	}
	if anthropic != nil {
		deps.Anthropic = anthropic
		deps.Avail.Anthropic = true
	}
	return deps
}

func TestRespondRoutesPracticeToOpenAI(t *testing.T) {
	oa := &fakeProvider{name: "openai", reply: "What do you get if you count up 2 from 4?"}
	an := &fakeProvider{name: "anthropic", reply: "should not be used"}
	deps := testDeps(t, oa, an)

	res, err := Respond(context.Background(), deps, Input{
		Message: "What is 4+2?",
		Subject: "math",
		Level:   LevelElementary,
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Metadata.Mode != ModePractice {
		t.Fatalf("mode = %s, want practice", res.Metadata.Mode)
	}
	if res.Metadata.ModelUsed != string(ProviderOpenAI) || res.Metadata.ModelRequested != string(ProviderOpenAI) {
		t.Fatalf("model used/requested = %s/%s, want openai/openai", res.Metadata.ModelUsed, res.Metadata.ModelRequested)
	}
	if an.calls != 0 {
		t.Fatalf("anthropic called %d times, want 0", an.calls)
	}
	if !strings.Contains(oa.system, "Never state the final answer") {
		t.Fatalf("provider did not receive the Socratic prompt:\n%s", oa.system)
	}
	if res.Metadata.Error != "" {
		t.Fatalf("unexpected metadata error %q", res.Metadata.Error)
	}
}

func TestRespondRoutesExplanationToAnthropic(t *testing.T) {
	oa := &fakeProvider{name: "openai", reply: "unused"}
	an := &fakeProvider{name: "anthropic", reply: "Warm air holds water vapor..."}
	deps := testDeps(t, oa, an)

	res, err := Respond(context.Background(), deps, Input{
		Message: "Why does it rain?",
		Subject: "science",
		Level:   LevelMiddle,
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Metadata.Mode != ModeExplanation {
		t.Fatalf("mode = %s, want explanation", res.Metadata.Mode)
	}
	if res.Metadata.ModelUsed != string(ProviderAnthropic) {
		t.Fatalf("model used = %s, want anthropic", res.Metadata.ModelUsed)
	}
	if !strings.Contains(an.system, "inviting the learner to choose what to do next") {
		t.Fatalf("explanation prompt missing forward invitation:\n%s", an.system)
	}
}

func TestRespondFallsBackAcrossProviders(t *testing.T) {
	oa := &fakeProvider{name: "openai", err: errors.New("rate limited")}
	an := &fakeProvider{name: "anthropic", reply: "Let's take it one step at a time."}
	deps := testDeps(t, oa, an)

	res, err := Respond(context.Background(), deps, Input{
		Message: "help me solve my homework problem",
		Subject: "math",
		Level:   LevelMiddle,
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Metadata.ModelRequested != string(ProviderOpenAI) {
		t.Fatalf("model requested = %s, want openai", res.Metadata.ModelRequested)
	}
	if res.Metadata.ModelUsed != string(ProviderAnthropic) {
		t.Fatalf("model used = %s, want anthropic (fallback)", res.Metadata.ModelUsed)
	}
	if res.Metadata.Error != "" {
		t.Fatalf("fallback success should not set metadata error, got %q", res.Metadata.Error)
	}
	if res.Response != an.reply {
		t.Fatalf("response = %q, want fallback provider reply", res.Response)
	}
}

func TestRespondTotalFailureServesCannedResponse(t *testing.T) {
	oa := &fakeProvider{name: "openai", err: errors.New("boom: secret upstream detail")}
	an := &fakeProvider{name: "anthropic", err: errors.New("also down")}
	deps := testDeps(t, oa, an)

	res, err := Respond(context.Background(), deps, Input{
		Message: "what is 9*9",
		Subject: "math",
		Level:   LevelMiddle,
	})
	if err != nil {
		t.Fatalf("Respond must not fail on provider errors: %v", err)
	}
	if strings.TrimSpace(res.Response) == "" {
		t.Fatal("total failure must still return a non-empty response")
	}
	if res.Metadata.ModelUsed != ModelFallback {
		t.Fatalf("model used = %s, want fallback", res.Metadata.ModelUsed)
	}
	if res.Metadata.Error == "" {
		t.Fatal("total failure must populate metadata error")
	}
	if strings.Contains(res.Response, "secret upstream detail") {
		t.Fatal("raw provider error text leaked into the learner-facing response")
	}
}

func TestRespondNoProvidersConfigured(t *testing.T) {
	deps := testDeps(t, nil, nil)

	res, err := Respond(context.Background(), deps, Input{
		Message: "tell me about volcanoes",
		Subject: "science",
		Level:   LevelMiddle,
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Metadata.ModelRequested != string(ProviderNone) {
		t.Fatalf("model requested = %s, want none", res.Metadata.ModelRequested)
	}
	if res.Metadata.ModelUsed != ModelFallback || res.Metadata.Error == "" {
		t.Fatalf("want canned fallback with error, got used=%s error=%q", res.Metadata.ModelUsed, res.Metadata.Error)
	}
	if res.Response != CannedResponse(ModeDiscovery) {
		t.Fatalf("response = %q, want discovery canned text", res.Response)
	}
}

func TestRespondForcedModeBypassesClassifier(t *testing.T) {
	oa := &fakeProvider{name: "openai", reply: "Here is your challenge."}
	an := &fakeProvider{name: "anthropic", reply: "unused"}
	deps := testDeps(t, oa, an)

	res, err := Respond(context.Background(), deps, Input{
		Message:    "Why does it rain?", // would classify as explanation
		Subject:    "science",
		Level:      LevelHigh,
		ForcedMode: ModeChallenge,
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Metadata.Mode != ModeChallenge {
		t.Fatalf("mode = %s, want forced challenge", res.Metadata.Mode)
	}
	if res.Metadata.ModelUsed != string(ProviderOpenAI) {
		t.Fatalf("model used = %s, want openai (challenge preference)", res.Metadata.ModelUsed)
	}
}

func TestRespondAnswerCheckScenario(t *testing.T) {
	oa := &fakeProvider{name: "openai", reply: "Not quite. What do you get if you start at 4 and count up 2?"}
	an := &fakeProvider{name: "anthropic", reply: "unused"}
	deps := testDeps(t, oa, an)

	history := []Turn{
		{Role: "user", Content: "give me a practice problem"},
		{Role: "assistant", Content: "What is 4 + 2?"},
	}
	res, err := Respond(context.Background(), deps, Input{
		Message: "5",
		Subject: "math",
		Level:   LevelElementary,
		History: history,
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Metadata.Mode != ModeAnswerCheck {
		t.Fatalf("mode = %s, want answer_check", res.Metadata.Mode)
	}
	if !strings.Contains(oa.system, "restate the correct value") {
		t.Fatalf("answer-check prompt missing strict policy:\n%s", oa.system)
	}
}

func TestDetectMode(t *testing.T) {
	avail := Availability{OpenAI: true, Anthropic: true}
	d := DetectMode("Why does it rain?", nil, LevelMiddle, avail)
	if d.Mode != ModeExplanation || d.RecommendedProvider != ProviderAnthropic {
		t.Fatalf("DetectMode = %+v, want explanation/anthropic", d)
	}

	d = DetectMode("what is 4+2?", nil, LevelElementary, Availability{Anthropic: true})
	if d.Mode != ModePractice || d.RecommendedProvider != ProviderAnthropic {
		t.Fatalf("DetectMode with only anthropic = %+v, want practice/anthropic", d)
	}
}
