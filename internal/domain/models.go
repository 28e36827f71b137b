package domain

// Checkpoint is a physical location with a unique arrival code posted on site.
type Checkpoint struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ArrivalCode string `json:"arrivalCode"`
	Puzzle      string `json:"puzzle"` // clue leading to this checkpoint
	IsEntry     bool   `json:"isEntry"`
}

// Option represents a possible answer for a question with its point value.
type Option struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Points int    `json:"points"`
}

// Question models an MCQ question; options carry their own point values.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// Option returns the option with the given id, if present.
func (q Question) Option(optionID string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return Option{}, false
}

// Settings holds the scoring configuration in effect for a game.
type Settings struct {
	BasePoints       int `json:"basePoints" yaml:"basePoints"`
	BonusPerMinute   int `json:"bonusPerMinute" yaml:"bonusPerMinute"`
	PenaltyPerMinute int `json:"penaltyPerMinute" yaml:"penaltyPerMinute"`
	RoundTimeMinutes int `json:"roundTimeMinutes" yaml:"roundTimeMinutes"`
}

// Valid reports whether the settings are usable for scoring.
func (s Settings) Valid() bool {
	return s.RoundTimeMinutes > 0
}

// Leg records one team's visit to one checkpoint. StartEpoch and EndEpoch are
// unix seconds; zero means not-yet-arrived / not-yet-completed.
type Leg struct {
	CheckpointID      string `json:"checkpointId"`
	IsEntry           bool   `json:"isEntry"`
	StartEpoch        int64  `json:"startEpoch"`
	EndEpoch          int64  `json:"endEpoch"`
	MCQPoints         int    `json:"mcqPoints"`
	PuzzlePoints      int    `json:"puzzlePoints"`
	TimeBonus         int    `json:"timeBonus"`
	ElapsedSeconds    int64  `json:"elapsedSeconds"`
	ChosenOptionID    string `json:"chosenOptionId"`
	PendingQuestionID string `json:"pendingQuestionId"` // question drawn on first scan, re-served on re-scan
}

// Total is the leg's net score contribution once completed.
func (l Leg) Total() int {
	return l.MCQPoints + l.PuzzlePoints + l.TimeBonus
}

// Completed reports whether the leg has been scored.
func (l Leg) Completed() bool {
	return l.EndEpoch > 0
}

// Team is the authoritative progression record for one team.
// Roadmap is the team's personalized checkpoint order; Legs is parallel to it.
// Cursor == len(Roadmap) means the team has finished.
type Team struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	CredentialHash      string   `json:"credentialHash"`
	Roadmap             []string `json:"roadmap"`
	Cursor              int      `json:"cursor"`
	IsActive            bool     `json:"isActive"`
	GameStartEpoch      int64    `json:"gameStartEpoch"`
	TotalPoints         int      `json:"totalPoints"`
	TotalElapsedSeconds int64    `json:"totalElapsedSeconds"`
	Legs                []Leg    `json:"legs"`
}

// Finished reports whether the team has completed its whole roadmap.
func (t Team) Finished() bool {
	return len(t.Roadmap) > 0 && t.Cursor >= len(t.Roadmap)
}

// CurrentLeg returns a pointer to the leg at the cursor, or nil when finished.
func (t *Team) CurrentLeg() *Leg {
	if t.Cursor < 0 || t.Cursor >= len(t.Legs) {
		return nil
	}
	return &t.Legs[t.Cursor]
}

// TeamStatus classifies a team for monitoring purposes.
type TeamStatus string

const (
	StatusNotStarted TeamStatus = "notStarted"
	StatusInProgress TeamStatus = "inProgress"
	StatusStuck      TeamStatus = "stuck"
	StatusCompleted  TeamStatus = "completed"
)

// LegSummary is a monitoring-friendly view of a completed leg.
type LegSummary struct {
	CheckpointID   string `json:"checkpointId"`
	MCQPoints      int    `json:"mcqPoints"`
	PuzzlePoints   int    `json:"puzzlePoints"`
	TimeBonus      int    `json:"timeBonus"`
	ElapsedSeconds int64  `json:"elapsedSeconds"`
}

// TeamView is the derived per-team monitoring state. It never feeds back into
// progression decisions.
type TeamView struct {
	TeamID                  string      `json:"teamId"`
	Name                    string      `json:"name"`
	CompletionPercent       int         `json:"completionPercent"`
	Status                  TeamStatus  `json:"status"`
	TotalPoints             int         `json:"totalPoints"`
	TotalElapsedSeconds     int64       `json:"totalElapsedSeconds"`
	CurrentCheckpointID     string      `json:"currentCheckpointId,omitempty"`
	TimeOnCurrentCheckpoint int64       `json:"timeOnCurrentCheckpoint,omitempty"`
	LastCompleted           *LegSummary `json:"lastCompleted,omitempty"`
}

// Scoreboard is an ordered snapshot of all team views.
type Scoreboard struct {
	Entries   []TeamView `json:"entries"`
	UpdatedAt int64      `json:"updatedAt"`
}

// ArrivalOutcome is returned by a successful arrival-code submission.
// Exactly one of Question (regular checkpoint, awaiting an answer) or Puzzle
// (entry fast path, pointing at the new current checkpoint) is populated
// unless the game just completed.
type ArrivalOutcome struct {
	CheckpointID string    `json:"checkpointId"`
	GameComplete bool      `json:"gameComplete"`
	Question     *Question `json:"question,omitempty"`
	Puzzle       string    `json:"puzzle,omitempty"`
}

// AnswerOutcome is returned by a successful answer submission.
type AnswerOutcome struct {
	CheckpointID string `json:"checkpointId"`
	GameComplete bool   `json:"gameComplete"`
	LegTotal     int    `json:"legTotal"`
	MCQPoints    int    `json:"mcqPoints"`
	PuzzlePoints int    `json:"puzzlePoints"`
	TimeBonus    int    `json:"timeBonus"`
	TotalPoints  int    `json:"totalPoints"`
	Puzzle       string `json:"puzzle,omitempty"` // clue for the new current checkpoint
}
