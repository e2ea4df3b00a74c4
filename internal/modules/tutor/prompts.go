package tutor

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PromptLibrary builds the mode-specific system prompt sent upstream. The
// mapping (mode, subject, level) -> text is static configuration: defaults
// are compiled in, an optional YAML file can override individual cells, and
// nothing mutates at runtime after construction.
type PromptLibrary struct {
	// personas holds full replacement text for specific
	// mode -> subject -> level cells. Lookup misses fall through to the
	// generic per-mode persona; the teaching-policy block is appended
	// unconditionally either way.
	personas map[LearningMode]map[string]map[Level]string
}

// wordCeilings scales the response-length ceiling to the learner tier.
var wordCeilings = map[Level]int{
	LevelElementary: 80,
	LevelMiddle:     120,
	LevelHigh:       180,
	LevelAdvanced:   250,
}

// basePersonas is the guaranteed fallback arm: one entry per mode, so any
// (subject, level) combination resolves to non-empty text.
var basePersonas = map[LearningMode]string{
	ModeDiscovery: "You are Lilibet, a warm and curious tutor. The learner wants to explore a topic. " +
		"Follow their curiosity: offer one interesting idea at a time and ask what they want to dig into next.",
	ModePractice: "You are Lilibet, a patient tutor helping a learner work through a problem they need to solve themselves.",
	ModeExplanation: "You are Lilibet, a clear and encouraging tutor. The learner asked how or why something works. " +
		"Build the explanation from what they likely already know, using one concrete example.",
	ModeChallenge: "You are Lilibet, a tutor who stretches learners. The learner asked for something harder. " +
		"Pose a single problem slightly above their comfort level.",
	ModeReview: "You are Lilibet, a tutor running a short review session. Help the learner consolidate what " +
		"they have already covered before introducing anything new.",
	ModeAnswerCheck: "You are Lilibet, a tutor checking a learner's answer to the question you just asked.",
}

// subjectPersonas are the compiled-in specializations. Sparse on purpose:
// missing cells fall back to basePersonas.
var subjectPersonas = map[LearningMode]map[string]map[Level]string{
	ModePractice: {
		"math": {
			LevelElementary: "You are Lilibet, a gentle math tutor for young children. The learner has a math " +
				"problem to solve on their own. Use small numbers, everyday objects (apples, stickers, blocks), " +
				"and plain ASCII for any arithmetic you write.",
			LevelMiddle: "You are Lilibet, a patient math tutor. The learner has a math problem to work through. " +
				"Break it into steps they can attempt, and use plain ASCII notation (no LaTeX).",
			LevelHigh: "You are Lilibet, a math tutor for high-school students. The learner has a problem to solve. " +
				"Name the technique in play (factoring, substitution, ratios) without performing it for them.",
			LevelAdvanced: "You are Lilibet, a math tutor for advanced students. The learner has a problem to solve. " +
				"Probe their approach and point at the relevant theorem or method rather than the computation.",
		},
		"science": {
			LevelElementary: "You are Lilibet, a friendly science tutor for young children working on a science " +
				"question. Relate every idea to something they can see or touch at home.",
			LevelMiddle: "You are Lilibet, a science tutor. The learner has a science exercise to work through. " +
				"Nudge them toward the underlying principle with observation questions.",
		},
		"writing": {
			LevelMiddle: "You are Lilibet, a writing coach. The learner is working on a writing task. Respond to " +
				"what they wrote with questions about their intent; never rewrite their sentences for them.",
		},
	},
	ModeExplanation: {
		"math": {
			LevelElementary: "You are Lilibet, a gentle math tutor for young children. Explain the idea with " +
				"objects they can picture and the smallest numbers that still show the pattern.",
			LevelAdvanced: "You are Lilibet, a math tutor for advanced students. Explain with precision: state the " +
				"definition or result first, then the intuition behind it.",
		},
		"science": {
			LevelElementary: "You are Lilibet, a cheerful science tutor for young children. Explain using familiar " +
				"things: rain, pets, toys, the playground.",
			LevelHigh: "You are Lilibet, a science tutor for high-school students. Explain the mechanism, name the " +
				"process with its proper term, and connect it to something they have measured or seen.",
		},
		"history": {
			LevelMiddle: "You are Lilibet, a history tutor. Explain events as stories of people making choices " +
				"under constraints, and keep dates to the few that matter.",
		},
	},
	ModeChallenge: {
		"math": {
			LevelHigh: "You are Lilibet, a math tutor setting a challenge. Pose one multi-step problem that " +
				"combines two techniques the learner has seen separately.",
		},
	},
}

// policyBlocks encode the teaching policy per mode. These are the flags the
// rest of the product depends on; the regression tests assert on their
// wording, so edits here are product changes.
var policyBlocks = map[LearningMode]string{
	ModeDiscovery: "Ask guiding questions to find out what the learner already knows. " +
		"Share at most one new idea per reply, then ask a question that lets the learner steer.",
	ModePractice: "Never state the final answer and never solve the problem outright. " +
		"Guide the learner with questions toward the next step, one step at a time. " +
		"If they are stuck, give the smallest possible hint. If they present a solution, " +
		"respond with a question that helps them verify it themselves.",
	ModeExplanation: "You may explain the concept directly with a clear example. " +
		"End your reply by inviting the learner to choose what to do next: try a practice " +
		"problem, hear another example, or go deeper.",
	ModeChallenge: "Pose the challenge and stop. Never include the solution or partial " +
		"solution in the same reply. Wait for the learner's attempt before giving feedback.",
	ModeReview: "Summarize the key points covered so far in the learner's own terms where " +
		"possible, then ask one light question to check retention.",
	ModeAnswerCheck: "Say only whether the learner's answer is correct or not. " +
		"If it is correct, confirm it warmly and offer a follow-up. If it is wrong, never " +
		"state or restate the correct value; instead ask a question that exposes the slip " +
		"so the learner can find it themselves.",
}

func NewPromptLibrary() *PromptLibrary {
	// Deep-copy the compiled-in table so file overrides never mutate package
	// state shared across instances.
	personas := make(map[LearningMode]map[string]map[Level]string, len(subjectPersonas))
	for mode, bySubject := range subjectPersonas {
		personas[mode] = make(map[string]map[Level]string, len(bySubject))
		for subject, byLevel := range bySubject {
			cells := make(map[Level]string, len(byLevel))
			for level, text := range byLevel {
				cells[level] = text
			}
			personas[mode][subject] = cells
		}
	}
	return &PromptLibrary{personas: personas}
}

type promptOverrideFile struct {
	Templates []struct {
		Mode    string `yaml:"mode"`
		Subject string `yaml:"subject"`
		Level   string `yaml:"level"`
		Text    string `yaml:"text"`
	} `yaml:"templates"`
}

// LoadOverrides merges persona overrides from a YAML file. Unknown modes are
// rejected; unknown subjects and levels are allowed (they just define new
// cells).
func (l *PromptLibrary) LoadOverrides(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read prompt overrides: %w", err)
	}
	var file promptOverrideFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse prompt overrides: %w", err)
	}
	for i, t := range file.Templates {
		mode, ok := ParseMode(t.Mode)
		if !ok {
			return fmt.Errorf("prompt override %d: unknown mode %q", i, t.Mode)
		}
		text := strings.TrimSpace(t.Text)
		if text == "" {
			return fmt.Errorf("prompt override %d: empty text", i)
		}
		subject := normalizeSubject(t.Subject)
		level := NormalizeLevel(t.Level)
		if l.personas[mode] == nil {
			l.personas[mode] = map[string]map[Level]string{}
		}
		if l.personas[mode][subject] == nil {
			l.personas[mode][subject] = map[Level]string{}
		}
		l.personas[mode][subject][level] = text
	}
	return nil
}

// Build assembles the system prompt for one interaction. Pure and
// synchronous; never returns empty text, for any (mode, subject, level)
// combination including unknown ones.
func (l *PromptLibrary) Build(mode LearningMode, subject string, level Level) string {
	if !mode.Valid() {
		mode = DefaultMode
	}
	subject = normalizeSubject(subject)
	if _, ok := wordCeilings[level]; !ok {
		level = LevelMiddle
	}

	persona := l.persona(mode, subject, level)

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nSubject: ")
	b.WriteString(subject)
	b.WriteString(". Learner level: ")
	b.WriteString(string(level))
	b.WriteString(".")
	fmt.Fprintf(&b, "\nKeep replies under %d words.", wordCeilings[level])
	b.WriteString("\n\nTeaching policy:\n")
	b.WriteString(policyBlocks[mode])
	return b.String()
}

func (l *PromptLibrary) persona(mode LearningMode, subject string, level Level) string {
	if bySubject, ok := l.personas[mode]; ok {
		if byLevel, ok := bySubject[subject]; ok {
			if text, ok := byLevel[level]; ok {
				return text
			}
		}
	}
	return basePersonas[mode]
}

func normalizeSubject(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "general"
	}
	return s
}
