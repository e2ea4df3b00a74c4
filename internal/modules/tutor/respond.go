package tutor

import (
	"context"
	"fmt"
	"time"

	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

// Deps carries everything one interaction needs. Providers are injected, so
// the engine is testable with fakes and never reads process-global state.
type Deps struct {
	Log       *logger.Logger
	OpenAI    Provider
	Anthropic Provider
	Avail     Availability
	Prompts   *PromptLibrary
}

// Input is one incoming tutoring message plus its thin context.
type Input struct {
	Message string
	Subject string
	Level   Level
	History []Turn

	// ForcedMode bypasses the classifier when set. Escape hatch for callers
	// that already know the mode.
	ForcedMode LearningMode
}

// Metadata records how an interaction was routed. Folded into the persisted
// assistant message so the mode/model pairing is an immutable historical
// record.
type Metadata struct {
	Mode           LearningMode `json:"mode"`
	ModelUsed      string       `json:"model_used"`
	ModelRequested string       `json:"model_requested"`
	Subject        string       `json:"subject"`
	Level          Level        `json:"level"`
	Timestamp      time.Time    `json:"timestamp"`
	Error          string       `json:"error,omitempty"`
}

type Result struct {
	Response string   `json:"response"`
	Metadata Metadata `json:"metadata"`
}

// Detection is the read-only diagnostic view of the classifier+selector
// pipeline; no provider is invoked.
type Detection struct {
	Mode                LearningMode   `json:"mode"`
	RecommendedProvider ProviderChoice `json:"recommended_provider"`
}

func DetectMode(message string, history []Turn, level Level, avail Availability) Detection {
	mode := Classify(message, history, level)
	return Detection{
		Mode:                mode,
		RecommendedProvider: SelectProvider(mode, avail),
	}
}

// Respond runs the full pipeline for one message: classify, select a
// provider, build the system prompt, call upstream, and fall back across the
// other provider and finally the canned table. Provider failures never
// surface as an error return; only missing deps do. The learner always gets
// a non-empty Response, and Metadata.Error is populated whenever routing
// degraded to the canned path.
func Respond(ctx context.Context, deps Deps, in Input) (Result, error) {
	if deps.Log == nil || deps.Prompts == nil {
		return Result{}, fmt.Errorf("tutor respond: missing deps")
	}
	log := deps.Log.With("step", "TutorRespond")

	mode := in.ForcedMode
	if !mode.Valid() {
		mode = Classify(in.Message, in.History, in.Level)
	}
	level := NormalizeLevel(string(in.Level))

	requested := SelectProvider(mode, deps.Avail)
	prompt := deps.Prompts.Build(mode, in.Subject, level)

	meta := Metadata{
		Mode:           mode,
		ModelRequested: string(requested),
		Subject:        in.Subject,
		Level:          level,
		Timestamp:      time.Now().UTC(),
	}

	if requested == ProviderNone {
		log.Warn("No provider configured, serving canned response", "mode", string(mode))
		meta.ModelUsed = ModelFallback
		meta.Error = "no provider configured"
		return Result{Response: CannedResponse(mode), Metadata: meta}, nil
	}

	text, err := deps.call(ctx, requested, prompt, in.History, in.Message)
	if err == nil {
		meta.ModelUsed = string(requested)
		return Result{Response: text, Metadata: meta}, nil
	}
	log.Warn("Primary provider failed, trying fallback",
		"mode", string(mode),
		"provider", string(requested),
		"error", err.Error(),
	)

	fallback := otherProvider(requested)
	if deps.Avail.Has(fallback) {
		text, ferr := deps.call(ctx, fallback, prompt, in.History, in.Message)
		if ferr == nil {
			// ModelUsed differing from ModelRequested is how callers detect
			// degraded routing.
			meta.ModelUsed = string(fallback)
			return Result{Response: text, Metadata: meta}, nil
		}
		log.Error("Fallback provider failed",
			"mode", string(mode),
			"provider", string(fallback),
			"error", ferr.Error(),
		)
		meta.ModelUsed = ModelFallback
		meta.Error = fmt.Sprintf("%s failed; %s failed", requested, fallback)
		return Result{Response: CannedResponse(mode), Metadata: meta}, nil
	}

	meta.ModelUsed = ModelFallback
	meta.Error = fmt.Sprintf("%s failed; no fallback configured", requested)
	return Result{Response: CannedResponse(mode), Metadata: meta}, nil
}

func (d Deps) call(ctx context.Context, choice ProviderChoice, system string, history []Turn, user string) (string, error) {
	p := d.provider(choice)
	if p == nil {
		return "", &ProviderError{Provider: choice, Err: fmt.Errorf("not configured")}
	}
	text, err := p.Complete(ctx, system, history, user)
	if err != nil {
		return "", &ProviderError{Provider: choice, Err: err}
	}
	if text == "" {
		return "", &ProviderError{Provider: choice, Err: fmt.Errorf("empty completion")}
	}
	return text, nil
}

func (d Deps) provider(choice ProviderChoice) Provider {
	switch choice {
	case ProviderOpenAI:
		return d.OpenAI
	case ProviderAnthropic:
		return d.Anthropic
	default:
		return nil
	}
}
