package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTeamNotFound is returned when the team id resolves to nothing.
	ErrTeamNotFound = errors.New("team not found")
	// ErrGameNotActive is returned for progression calls before activation or after reset.
	ErrGameNotActive = errors.New("game not active for team")
	// ErrAlreadyComplete is returned once a team has finished its roadmap.
	ErrAlreadyComplete = errors.New("team already completed its roadmap")
	// ErrInvalidOption indicates a submitted option id is unknown for the pending question.
	ErrInvalidOption = errors.New("option not found for question")
	// ErrAlreadyAnswered rejects a second answer for a leg that has been scored.
	ErrAlreadyAnswered = errors.New("leg already answered")
	// ErrEntryNoAnswer guards the entry leg, which completes during arrival handling.
	ErrEntryNoAnswer = errors.New("entry checkpoint takes no answer")
	// ErrStaleCode indicates the answer's code no longer matches the current checkpoint.
	ErrStaleCode = errors.New("code does not match current checkpoint")
	// ErrNoQuestions indicates the question pool is empty.
	ErrNoQuestions = errors.New("no questions available")
	// ErrSettingsMissing indicates scoring settings are absent or unusable.
	ErrSettingsMissing = errors.New("scoring settings missing")
	// ErrCheckpointNotFound indicates a roadmap references an unknown checkpoint.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrQuestionNotFound indicates a cached question id no longer resolves.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrBadCredential is returned when a team's access code does not verify.
	ErrBadCredential = errors.New("invalid team credential")
)

// WrongCodeError reports a scan of the wrong code and carries the expected
// one so the operator can self-correct. Revealing the code is deliberate:
// it is physically posted at the checkpoint.
type WrongCodeError struct {
	CheckpointID string
	Expected     string
}

func (e *WrongCodeError) Error() string {
	return fmt.Sprintf("wrong code for checkpoint %s (expected %s)", e.CheckpointID, e.Expected)
}

// MissingRoadmapError lists every team blocking a bulk activation.
type MissingRoadmapError struct {
	TeamIDs []string
}

func (e *MissingRoadmapError) Error() string {
	return "teams missing roadmap: " + strings.Join(e.TeamIDs, ", ")
}
