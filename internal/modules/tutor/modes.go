// Package tutor implements the learning-mode routing and prompt-selection
// engine: a rule-based classifier over pedagogical modes, a mode-to-provider
// selector, a prompt builder encoding teaching policy, and the per-request
// orchestration across two chat-completion providers with canned fallback.
package tutor

import "strings"

// LearningMode is the pedagogical strategy selected for a reply. The set is
// closed; assistant message metadata only ever carries one of these values.
type LearningMode string

const (
	ModeDiscovery   LearningMode = "discovery"
	ModePractice    LearningMode = "practice"
	ModeExplanation LearningMode = "explanation"
	ModeChallenge   LearningMode = "challenge"
	ModeReview      LearningMode = "review"
	// ModeAnswerCheck is the strict answer-verification sub-case: confirm
	// correctness only, never restate the correct value.
	ModeAnswerCheck LearningMode = "answer_check"
)

// DefaultMode is what the classifier falls back to when no pattern group
// matches. Product decision: discovery, not practice.
const DefaultMode = ModeDiscovery

func (m LearningMode) Valid() bool {
	switch m {
	case ModeDiscovery, ModePractice, ModeExplanation, ModeChallenge, ModeReview, ModeAnswerCheck:
		return true
	default:
		return false
	}
}

func ParseMode(s string) (LearningMode, bool) {
	m := LearningMode(strings.ToLower(strings.TrimSpace(s)))
	if m.Valid() {
		return m, true
	}
	return "", false
}

// ProviderChoice identifies an upstream chat-completion provider. It is
// recomputed per interaction, never persisted as a standing preference.
type ProviderChoice string

const (
	ProviderOpenAI    ProviderChoice = "openai"
	ProviderAnthropic ProviderChoice = "anthropic"
	ProviderNone      ProviderChoice = "none"

	// ModelFallback marks responses served from the canned table after all
	// providers were exhausted.
	ModelFallback = "fallback"
)

// Level is the learner proficiency tier used to scale prompt complexity and
// response length.
type Level string

const (
	LevelElementary Level = "elementary"
	LevelMiddle     Level = "middle"
	LevelHigh       Level = "high"
	LevelAdvanced   Level = "advanced"
)

// NormalizeLevel maps free-form input onto a known tier, defaulting to middle.
func NormalizeLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "elementary", "primary", "beginner":
		return LevelElementary
	case "middle", "intermediate", "":
		return LevelMiddle
	case "high", "highschool", "high_school", "secondary":
		return LevelHigh
	case "advanced", "college", "university", "expert":
		return LevelAdvanced
	default:
		return LevelMiddle
	}
}
