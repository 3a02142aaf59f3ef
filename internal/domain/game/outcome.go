package game

// Tier buckets a final score for the end-of-round message.
type Tier int

const (
	TierZero Tier = iota
	TierBeginner
	TierGood
	TierExcellent
	TierMaster
	TierLegendary
)

var tierNames = [...]string{"zero", "beginner", "good", "excellent", "master", "legendary"}

var tierMessages = [...]string{
	"Ouch! Maybe try opening your eyes next time? 😅",
	"Not bad for a beginner! Keep practicing! 🎯",
	"Pretty good! You're getting the hang of it! 👍",
	"Excellent work! You've got some serious skills! 🏆",
	"Wow! You're a Shiba Bonk master! Incredible! 🌟",
	"LEGENDARY! You're the Shiba Bonk champion! 🥇👑",
}

func (t Tier) String() string {
	if t < TierZero || int(t) >= len(tierNames) {
		return "unknown"
	}
	return tierNames[t]
}

// Outcome is the summary shown when a round ends.
type Outcome struct {
	Score   int    `json:"score"`
	Tier    Tier   `json:"tier"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// TierFor maps a score to its tier: 0 | 1-5 | 6-10 | 11-15 | 16-20 | 21+.
func TierFor(score int) Tier {
	switch {
	case score <= 0:
		return TierZero
	case score <= 5:
		return TierBeginner
	case score <= 10:
		return TierGood
	case score <= 15:
		return TierExcellent
	case score <= 20:
		return TierMaster
	default:
		return TierLegendary
	}
}

// OutcomeFor builds the end-of-round outcome for score.
func OutcomeFor(score int) Outcome {
	t := TierFor(score)
	return Outcome{Score: score, Tier: t, Label: t.String(), Message: tierMessages[t]}
}
