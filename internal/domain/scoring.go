package domain

// LegScore is the point breakdown for one completed leg.
type LegScore struct {
	MCQPoints      int
	PuzzlePoints   int
	TimeBonus      int
	ElapsedSeconds int64
}

// Total returns the leg's net contribution to the team total.
func (s LegScore) Total() int {
	return s.MCQPoints + s.PuzzlePoints + s.TimeBonus
}

// BonusThresholdMinutes is the cutoff under which a leg earns a time bonus:
// 40% of the round time, never below one minute.
func BonusThresholdMinutes(s Settings) int {
	threshold := s.RoundTimeMinutes * 4 / 10
	if threshold < 1 {
		threshold = 1
	}
	return threshold
}

// ScoreLeg computes the score for a leg answered after elapsedSeconds with an
// option worth optionPoints. Bonus applies strictly under the threshold,
// penalty strictly over the round time; the boundary minutes themselves score
// a zero time bonus. The time bonus is clamped so a leg never contributes a
// negative total.
func ScoreLeg(s Settings, optionPoints int, elapsedSeconds int64) LegScore {
	elapsedMinutes := int(elapsedSeconds / 60)
	threshold := BonusThresholdMinutes(s)

	var timeBonus int
	switch {
	case elapsedMinutes < threshold:
		timeBonus = s.BonusPerMinute * (threshold - elapsedMinutes)
	case elapsedMinutes <= s.RoundTimeMinutes:
		timeBonus = 0
	default:
		timeBonus = -(s.PenaltyPerMinute * (elapsedMinutes - s.RoundTimeMinutes))
	}

	if floor := -(optionPoints + s.BasePoints); timeBonus < floor {
		timeBonus = floor
	}

	return LegScore{
		MCQPoints:      optionPoints,
		PuzzlePoints:   s.BasePoints,
		TimeBonus:      timeBonus,
		ElapsedSeconds: elapsedSeconds,
	}
}
