package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"treasurehunt-service/internal/domain"
	"treasurehunt-service/internal/metrics"
)

// TeamRepository abstracts how team progression records are stored
// (in-memory, Redis-backed, etc). Save persists a snapshot after a mutation;
// the engine always calls it with the team's mutex held, so snapshots for one
// team never interleave.
type TeamRepository interface {
	Get(teamID string) (*TeamState, bool)
	All() []*TeamState
	Save(ctx context.Context, team domain.Team) error
}

// GameRepository loads game content (from cache/backing store): the
// checkpoint catalog, the question pool, and the scoring settings.
type GameRepository interface {
	Checkpoint(ctx context.Context, checkpointID string) (domain.Checkpoint, error)
	Question(ctx context.Context, questionID string) (domain.Question, error)
	RandomQuestion(ctx context.Context) (domain.Question, error)
	Settings(ctx context.Context) (domain.Settings, error)
}

// GameService is the progression engine: it validates checkpoint arrivals,
// enforces per-team checkpoint ordering, scores answers, and advances the
// roadmap cursor. It is the only component that mutates team state during play.
type GameService struct {
	teams      TeamRepository
	content    GameRepository
	now        func() time.Time
	stuckAfter time.Duration

	broadcaster
}

// Option configures a GameService.
type Option func(*GameService)

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

// WithStuckThreshold sets how long a team may sit on one checkpoint before
// monitoring flags it as stuck.
func WithStuckThreshold(d time.Duration) Option {
	return func(s *GameService) {
		if d > 0 {
			s.stuckAfter = d
		}
	}
}

const defaultStuckThreshold = 15 * time.Minute

func NewGameService(teams TeamRepository, content GameRepository, opts ...Option) *GameService {
	s := &GameService{
		teams:      teams,
		content:    content,
		now:        time.Now,
		stuckAfter: defaultStuckThreshold,
	}
	s.broadcaster.init()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate verifies a team's access code against its stored bcrypt hash.
// Teams without a credential hash are open (useful for demos and tests).
func (s *GameService) Authenticate(_ context.Context, teamID, accessCode string) error {
	ts, ok := s.teams.Get(teamID)
	if !ok {
		return domain.ErrTeamNotFound
	}
	ts.mu.Lock()
	hash := ts.team.CredentialHash
	ts.mu.Unlock()
	if hash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(accessCode)); err != nil {
		return domain.ErrBadCredential
	}
	return nil
}

// TeamState returns a snapshot of the team's full progression record.
func (s *GameService) TeamState(_ context.Context, teamID string) (domain.Team, error) {
	ts, ok := s.teams.Get(teamID)
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	return ts.Snapshot(), nil
}

// SubmitArrivalCode validates a scanned code against the team's current
// checkpoint. A correct first scan starts the leg timer and draws a question;
// a re-scan is idempotent and re-returns the same question. The entry
// checkpoint self-completes with zero points and hands back the puzzle for
// the next checkpoint instead.
func (s *GameService) SubmitArrivalCode(ctx context.Context, teamID, code string) (domain.ArrivalOutcome, error) {
	ts, ok := s.teams.Get(teamID)
	if !ok {
		metrics.Arrivals.WithLabelValues("team_not_found").Inc()
		return domain.ArrivalOutcome{}, domain.ErrTeamNotFound
	}

	ts.mu.Lock()
	outcome, err := s.arrivalLocked(ctx, ts, code)
	metrics.Arrivals.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		err = s.teams.Save(ctx, ts.snapshotLocked())
	}
	ts.mu.Unlock()

	if err != nil {
		return domain.ArrivalOutcome{}, err
	}
	s.publish(s.scoreboardSnapshot())
	return outcome, nil
}

func (s *GameService) arrivalLocked(ctx context.Context, ts *TeamState, code string) (domain.ArrivalOutcome, error) {
	team := &ts.team
	if team.Finished() {
		return domain.ArrivalOutcome{}, domain.ErrAlreadyComplete
	}
	if !team.IsActive {
		return domain.ArrivalOutcome{}, domain.ErrGameNotActive
	}

	checkpoint, err := s.content.Checkpoint(ctx, team.Roadmap[team.Cursor])
	if err != nil {
		return domain.ArrivalOutcome{}, err
	}
	if code != checkpoint.ArrivalCode {
		return domain.ArrivalOutcome{}, &domain.WrongCodeError{
			CheckpointID: checkpoint.ID,
			Expected:     checkpoint.ArrivalCode,
		}
	}

	leg := team.CurrentLeg()
	if leg == nil {
		// Active flag without legs means the record skipped activation.
		return domain.ArrivalOutcome{}, domain.ErrGameNotActive
	}

	if leg.IsEntry {
		// Entry checkpoint establishes the common starting line: instant,
		// award-free completion regardless of when it was scanned. The next
		// checkpoint is resolved before any mutation so a failed read leaves
		// the team exactly where it was.
		finished := team.Cursor+1 >= len(team.Roadmap)
		var next domain.Checkpoint
		if !finished {
			next, err = s.content.Checkpoint(ctx, team.Roadmap[team.Cursor+1])
			if err != nil {
				return domain.ArrivalOutcome{}, err
			}
		}
		if leg.StartEpoch == 0 {
			leg.StartEpoch = s.now().Unix()
		}
		leg.EndEpoch = leg.StartEpoch
		team.Cursor++
		if finished {
			team.IsActive = false
			metrics.ActiveTeams.Dec()
			return domain.ArrivalOutcome{CheckpointID: checkpoint.ID, GameComplete: true}, nil
		}
		return domain.ArrivalOutcome{CheckpointID: checkpoint.ID, Puzzle: next.Puzzle}, nil
	}

	question, err := s.pendingQuestion(ctx, leg)
	if err != nil {
		return domain.ArrivalOutcome{}, err
	}
	// The timer starts on the first successful scan only; a scan that could
	// not draw a question must not charge the team for the outage.
	if leg.StartEpoch == 0 {
		leg.StartEpoch = s.now().Unix()
	}
	return domain.ArrivalOutcome{CheckpointID: checkpoint.ID, Question: &question}, nil
}

// pendingQuestion draws a question on the first scan and pins it on the leg
// so re-scans see the same question instead of a fresh draw.
func (s *GameService) pendingQuestion(ctx context.Context, leg *domain.Leg) (domain.Question, error) {
	if leg.PendingQuestionID != "" {
		return s.content.Question(ctx, leg.PendingQuestionID)
	}
	question, err := s.content.RandomQuestion(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	leg.PendingQuestionID = question.ID
	return question, nil
}

// SubmitAnswer scores the pending leg exactly once and advances the cursor.
// The scanned code must still match the current checkpoint; scoring uses the
// settings in effect at submission time.
func (s *GameService) SubmitAnswer(ctx context.Context, teamID, code, optionID string) (domain.AnswerOutcome, error) {
	ts, ok := s.teams.Get(teamID)
	if !ok {
		metrics.Answers.WithLabelValues("team_not_found").Inc()
		return domain.AnswerOutcome{}, domain.ErrTeamNotFound
	}

	ts.mu.Lock()
	outcome, err := s.answerLocked(ctx, ts, code, optionID)
	metrics.Answers.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		err = s.teams.Save(ctx, ts.snapshotLocked())
	}
	ts.mu.Unlock()

	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	s.publish(s.scoreboardSnapshot())
	return outcome, nil
}

func (s *GameService) answerLocked(ctx context.Context, ts *TeamState, code, optionID string) (domain.AnswerOutcome, error) {
	team := &ts.team
	if team.Finished() {
		return domain.AnswerOutcome{}, domain.ErrAlreadyComplete
	}
	if !team.IsActive {
		return domain.AnswerOutcome{}, domain.ErrGameNotActive
	}

	checkpoint, err := s.content.Checkpoint(ctx, team.Roadmap[team.Cursor])
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if code != checkpoint.ArrivalCode {
		// A code that matches the just-completed leg means the caller re-sent
		// an answer the engine already scored.
		if prev := s.previousLeg(ctx, team, code); prev != nil {
			return domain.AnswerOutcome{}, domain.ErrAlreadyAnswered
		}
		return domain.AnswerOutcome{}, domain.ErrStaleCode
	}

	leg := team.CurrentLeg()
	if leg == nil {
		return domain.AnswerOutcome{}, domain.ErrGameNotActive
	}
	if leg.IsEntry {
		return domain.AnswerOutcome{}, domain.ErrEntryNoAnswer
	}
	if leg.Completed() {
		return domain.AnswerOutcome{}, domain.ErrAlreadyAnswered
	}
	if leg.StartEpoch == 0 || leg.PendingQuestionID == "" {
		// Answer without a preceding arrival scan.
		return domain.AnswerOutcome{}, domain.ErrStaleCode
	}

	question, err := s.content.Question(ctx, leg.PendingQuestionID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	option, ok := question.Option(optionID)
	if !ok {
		return domain.AnswerOutcome{}, domain.ErrInvalidOption
	}

	settings, err := s.content.Settings(ctx)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if !settings.Valid() {
		return domain.AnswerOutcome{}, domain.ErrSettingsMissing
	}

	now := s.now().Unix()
	score := domain.ScoreLeg(settings, option.Points, now-leg.StartEpoch)

	// Resolve the next checkpoint before mutating so a failed read leaves the
	// leg unscored and the answer retryable.
	finished := team.Cursor+1 >= len(team.Roadmap)
	var next domain.Checkpoint
	if !finished {
		next, err = s.content.Checkpoint(ctx, team.Roadmap[team.Cursor+1])
		if err != nil {
			return domain.AnswerOutcome{}, err
		}
	}

	leg.EndEpoch = now
	leg.MCQPoints = score.MCQPoints
	leg.PuzzlePoints = score.PuzzlePoints
	leg.TimeBonus = score.TimeBonus
	leg.ElapsedSeconds = score.ElapsedSeconds
	leg.ChosenOptionID = option.ID

	team.TotalPoints += score.Total()
	team.TotalElapsedSeconds = now - team.GameStartEpoch
	team.Cursor++

	outcome := domain.AnswerOutcome{
		CheckpointID: checkpoint.ID,
		LegTotal:     score.Total(),
		MCQPoints:    score.MCQPoints,
		PuzzlePoints: score.PuzzlePoints,
		TimeBonus:    score.TimeBonus,
		TotalPoints:  team.TotalPoints,
	}
	if finished {
		team.IsActive = false
		metrics.ActiveTeams.Dec()
		outcome.GameComplete = true
		return outcome, nil
	}
	outcome.Puzzle = next.Puzzle
	return outcome, nil
}

// previousLeg returns the most recently completed leg when its checkpoint's
// arrival code matches the submitted code.
func (s *GameService) previousLeg(ctx context.Context, team *domain.Team, code string) *domain.Leg {
	if team.Cursor == 0 {
		return nil
	}
	leg := &team.Legs[team.Cursor-1]
	checkpoint, err := s.content.Checkpoint(ctx, leg.CheckpointID)
	if err != nil || checkpoint.ArrivalCode != code {
		return nil
	}
	return leg
}

// ActivateAllTeams starts the game for every team at once. It is
// all-or-nothing: if any team lacks a roadmap, nothing is activated and the
// offenders are reported together.
func (s *GameService) ActivateAllTeams(ctx context.Context) (int, error) {
	states := s.teams.All()

	// Validate everything up front so a bad team or roadmap cannot leave the
	// game half-activated.
	var missing []string
	legsByTeam := make(map[string][]domain.Leg, len(states))
	for _, ts := range states {
		ts.mu.Lock()
		roadmap := append([]string(nil), ts.team.Roadmap...)
		teamID := ts.team.ID
		ts.mu.Unlock()

		if len(roadmap) == 0 {
			missing = append(missing, teamID)
			continue
		}
		legs := make([]domain.Leg, len(roadmap))
		for i, checkpointID := range roadmap {
			checkpoint, err := s.content.Checkpoint(ctx, checkpointID)
			if err != nil {
				return 0, fmt.Errorf("team %s roadmap: %w", teamID, err)
			}
			legs[i] = domain.Leg{CheckpointID: checkpointID, IsEntry: checkpoint.IsEntry}
		}
		legsByTeam[teamID] = legs
	}
	if len(missing) > 0 {
		return 0, &domain.MissingRoadmapError{TeamIDs: missing}
	}

	startEpoch := s.now().Unix()
	for _, ts := range states {
		ts.mu.Lock()
		team := &ts.team
		team.Legs = legsByTeam[team.ID]
		team.Cursor = 0
		team.IsActive = true
		team.GameStartEpoch = startEpoch
		team.TotalPoints = 0
		team.TotalElapsedSeconds = 0
		if err := s.teams.Save(ctx, ts.snapshotLocked()); err != nil {
			ts.mu.Unlock()
			return 0, fmt.Errorf("persist team %s: %w", team.ID, err)
		}
		ts.mu.Unlock()
	}

	metrics.ActiveTeams.Set(float64(len(states)))
	s.publish(s.scoreboardSnapshot())
	return len(states), nil
}

// ResetAllTeams zeroes all progress while preserving each team's roadmap.
func (s *GameService) ResetAllTeams(ctx context.Context) (int, error) {
	states := s.teams.All()
	for _, ts := range states {
		ts.mu.Lock()
		team := &ts.team
		team.Cursor = 0
		team.IsActive = false
		team.GameStartEpoch = 0
		team.TotalPoints = 0
		team.TotalElapsedSeconds = 0
		team.Legs = nil
		if err := s.teams.Save(ctx, ts.snapshotLocked()); err != nil {
			ts.mu.Unlock()
			return 0, fmt.Errorf("persist team %s: %w", team.ID, err)
		}
		ts.mu.Unlock()
	}

	metrics.ActiveTeams.Set(0)
	s.publish(s.scoreboardSnapshot())
	return len(states), nil
}

// resultLabel maps an engine outcome onto a stable metric label so the
// counters break down submissions by rejection class.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrAlreadyAnswered):
		return "already_answered"
	case errors.Is(err, domain.ErrAlreadyComplete):
		return "already_complete"
	case errors.Is(err, domain.ErrGameNotActive):
		return "not_active"
	case errors.Is(err, domain.ErrStaleCode):
		return "stale_code"
	case errors.Is(err, domain.ErrInvalidOption):
		return "invalid_option"
	case errors.Is(err, domain.ErrEntryNoAnswer):
		return "entry_no_answer"
	case errors.Is(err, domain.ErrNoQuestions):
		return "no_questions"
	case errors.Is(err, domain.ErrSettingsMissing):
		return "settings_missing"
	}
	var wrongCode *domain.WrongCodeError
	if errors.As(err, &wrongCode) {
		return "wrong_code"
	}
	return "error"
}
