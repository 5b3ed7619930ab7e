package quiz

// RewardPolicy turns a correct-answer count into tokens.
type RewardPolicy interface {
	Tokens(correct int) int64
}

// FlatRate pays PerCorrect tokens for every correct answer.
type FlatRate struct {
	PerCorrect int64
}

func (f FlatRate) Tokens(correct int) int64 {
	if correct <= 0 || f.PerCorrect <= 0 {
		return 0
	}
	return int64(correct) * f.PerCorrect
}

// DefaultPolicy is two tokens per correct answer.
var DefaultPolicy RewardPolicy = FlatRate{PerCorrect: 2}
