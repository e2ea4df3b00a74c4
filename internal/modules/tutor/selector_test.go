package tutor

import "testing"

var allModes = []LearningMode{
	ModeDiscovery, ModePractice, ModeExplanation, ModeChallenge, ModeReview, ModeAnswerCheck,
}

func TestSelectProviderPreferences(t *testing.T) {
	both := Availability{OpenAI: true, Anthropic: true}

	cases := []struct {
		mode LearningMode
		want ProviderChoice
	}{
		{ModeDiscovery, ProviderAnthropic},
		{ModeExplanation, ProviderAnthropic},
		{ModePractice, ProviderOpenAI},
		{ModeChallenge, ProviderOpenAI},
		{ModeReview, ProviderOpenAI},
		{ModeAnswerCheck, ProviderOpenAI},
	}
	for _, tc := range cases {
		if got := SelectProvider(tc.mode, both); got != tc.want {
			t.Fatalf("SelectProvider(%s, both) = %s, want %s", tc.mode, got, tc.want)
		}
	}
}

func TestSelectProviderFallsBackToOther(t *testing.T) {
	onlyOpenAI := Availability{OpenAI: true}
	onlyAnthropic := Availability{Anthropic: true}

	for _, mode := range allModes {
		if got := SelectProvider(mode, onlyOpenAI); got != ProviderOpenAI {
			t.Fatalf("SelectProvider(%s, only openai) = %s", mode, got)
		}
		if got := SelectProvider(mode, onlyAnthropic); got != ProviderAnthropic {
			t.Fatalf("SelectProvider(%s, only anthropic) = %s", mode, got)
		}
	}
}

func TestSelectProviderNoneAvailable(t *testing.T) {
	for _, mode := range allModes {
		if got := SelectProvider(mode, Availability{}); got != ProviderNone {
			t.Fatalf("SelectProvider(%s, none) = %s, want none", mode, got)
		}
	}
}

func TestSelectProviderNeverReturnsUnavailable(t *testing.T) {
	avails := []Availability{
		{}, {OpenAI: true}, {Anthropic: true}, {OpenAI: true, Anthropic: true},
	}
	for _, avail := range avails {
		for _, mode := range allModes {
			got := SelectProvider(mode, avail)
			if got != ProviderNone && !avail.Has(got) {
				t.Fatalf("SelectProvider(%s, %+v) returned unavailable %s", mode, avail, got)
			}
		}
	}
}

func TestSelectProviderUnknownModeUsesDefault(t *testing.T) {
	both := Availability{OpenAI: true, Anthropic: true}
	if got := SelectProvider(LearningMode("bogus"), both); got != SelectProvider(DefaultMode, both) {
		t.Fatalf("SelectProvider(unknown mode) = %s, want default-mode preference", got)
	}
}
