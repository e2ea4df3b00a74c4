package tutor

// modePreference maps each learning mode to its preferred provider.
// Discovery and explanation lean on the reasoning-oriented provider;
// practice, challenge, review, and answer checking get the structured,
// terse one.
var modePreference = map[LearningMode]ProviderChoice{
	ModeDiscovery:   ProviderAnthropic,
	ModeExplanation: ProviderAnthropic,
	ModePractice:    ProviderOpenAI,
	ModeChallenge:   ProviderOpenAI,
	ModeReview:      ProviderOpenAI,
	ModeAnswerCheck: ProviderOpenAI,
}

// SelectProvider picks the upstream provider for a mode given which
// providers are configured. Pure lookup: unavailability is expressed in the
// return value, never an error. The preferred provider wins when available;
// otherwise the other one; ProviderNone when neither is configured.
func SelectProvider(mode LearningMode, avail Availability) ProviderChoice {
	preferred, ok := modePreference[mode]
	if !ok {
		preferred = modePreference[DefaultMode]
	}
	if avail.Has(preferred) {
		return preferred
	}
	if other := otherProvider(preferred); avail.Has(other) {
		return other
	}
	return ProviderNone
}

func otherProvider(p ProviderChoice) ProviderChoice {
	switch p {
	case ProviderOpenAI:
		return ProviderAnthropic
	case ProviderAnthropic:
		return ProviderOpenAI
	default:
		return ProviderNone
	}
}
