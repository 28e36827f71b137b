package domain

import "testing"

func testSettings() Settings {
	return Settings{
		BasePoints:       20,
		BonusPerMinute:   5,
		PenaltyPerMinute: 3,
		RoundTimeMinutes: 5,
	}
}

func TestBonusThresholdMinutes(t *testing.T) {
	if got := BonusThresholdMinutes(testSettings()); got != 2 {
		t.Fatalf("expected threshold 2, got %d", got)
	}
	// Floor at one minute for very short rounds.
	if got := BonusThresholdMinutes(Settings{RoundTimeMinutes: 1}); got != 1 {
		t.Fatalf("expected threshold floor 1, got %d", got)
	}
}

func TestScoreLegBonus(t *testing.T) {
	score := ScoreLeg(testSettings(), 10, 90) // 1 full minute, under threshold 2
	if score.TimeBonus != 5 {
		t.Fatalf("expected bonus 5, got %d", score.TimeBonus)
	}
	if score.Total() != 35 {
		t.Fatalf("expected leg total 35, got %d", score.Total())
	}
}

func TestScoreLegPenalty(t *testing.T) {
	score := ScoreLeg(testSettings(), 3, 360) // 6 minutes, 1 over round time
	if score.TimeBonus != -3 {
		t.Fatalf("expected penalty -3, got %d", score.TimeBonus)
	}
	if score.Total() != 20 {
		t.Fatalf("expected leg total 20, got %d", score.Total())
	}
}

func TestScoreLegNeutralWindow(t *testing.T) {
	score := ScoreLeg(testSettings(), 10, 180) // 3 minutes, between threshold and round time
	if score.TimeBonus != 0 {
		t.Fatalf("expected no adjustment, got %d", score.TimeBonus)
	}
}

func TestScoreLegBoundaries(t *testing.T) {
	// Exactly at the bonus threshold: no bonus (bonus requires strictly less).
	if score := ScoreLeg(testSettings(), 10, 120); score.TimeBonus != 0 {
		t.Fatalf("expected zero bonus at threshold, got %d", score.TimeBonus)
	}
	// Exactly at the round time: no penalty (inclusive on the no-penalty side).
	if score := ScoreLeg(testSettings(), 10, 300); score.TimeBonus != 0 {
		t.Fatalf("expected zero penalty at round time, got %d", score.TimeBonus)
	}
	// One minute past the round time tips into penalty.
	if score := ScoreLeg(testSettings(), 10, 360); score.TimeBonus != -3 {
		t.Fatalf("expected penalty one minute past round time, got %d", score.TimeBonus)
	}
}

func TestScoreLegClampsPenalty(t *testing.T) {
	// 65 minutes: raw penalty 3*60=180 would exceed the earned points.
	score := ScoreLeg(testSettings(), 3, 3900)
	if score.Total() != 0 {
		t.Fatalf("expected clamped leg total 0, got %d", score.Total())
	}
	if score.TimeBonus != -23 {
		t.Fatalf("expected clamped bonus -23, got %d", score.TimeBonus)
	}
}

func TestScoreLegPartialMinutesFloor(t *testing.T) {
	// 119s floors to 1 minute, still under the threshold of 2.
	if score := ScoreLeg(testSettings(), 10, 119); score.TimeBonus != 5 {
		t.Fatalf("expected bonus for floored minute, got %d", score.TimeBonus)
	}
}
