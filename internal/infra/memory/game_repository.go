package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"treasurehunt-service/internal/domain"
)

// GameLoader fetches game content from a backing store (e.g., Postgres).
type GameLoader interface {
	LoadCheckpoints(ctx context.Context) ([]domain.Checkpoint, error)
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
	LoadSettings(ctx context.Context) (domain.Settings, error)
	LoadTeams(ctx context.Context) ([]domain.Team, error)
}

// GameRepository caches the checkpoint catalog, question pool, and scoring
// settings with TTL to avoid repeated DB hits. Settings are re-read when the
// cache expires, so mid-game settings changes apply to later legs without
// rescoring completed ones.
type GameRepository struct {
	loader GameLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu     sync.RWMutex
	cached *content
}

type content struct {
	checkpoints map[string]domain.Checkpoint
	questions   map[string]domain.Question
	questionIDs []string
	settings    domain.Settings
	expiresAt   time.Time
}

func NewGameRepository(loader GameLoader, ttl time.Duration) *GameRepository {
	return &GameRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *GameRepository) Checkpoint(ctx context.Context, checkpointID string) (domain.Checkpoint, error) {
	c, err := r.content(ctx)
	if err != nil {
		return domain.Checkpoint{}, err
	}
	checkpoint, ok := c.checkpoints[checkpointID]
	if !ok {
		return domain.Checkpoint{}, domain.ErrCheckpointNotFound
	}
	return checkpoint, nil
}

func (r *GameRepository) Question(ctx context.Context, questionID string) (domain.Question, error) {
	c, err := r.content(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	question, ok := c.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

// RandomQuestion draws uniformly from the active pool.
func (r *GameRepository) RandomQuestion(ctx context.Context) (domain.Question, error) {
	c, err := r.content(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	if len(c.questionIDs) == 0 {
		return domain.Question{}, domain.ErrNoQuestions
	}
	r.mu.Lock()
	id := c.questionIDs[r.rnd.Intn(len(c.questionIDs))]
	r.mu.Unlock()
	return c.questions[id], nil
}

func (r *GameRepository) Settings(ctx context.Context) (domain.Settings, error) {
	c, err := r.content(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if !c.settings.Valid() {
		return domain.Settings{}, domain.ErrSettingsMissing
	}
	return c.settings, nil
}

func (r *GameRepository) content(ctx context.Context) (*content, error) {
	now := r.clock()

	r.mu.RLock()
	if r.cached != nil && r.cached.expiresAt.After(now) {
		c := r.cached
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("content", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.cached != nil && r.cached.expiresAt.After(now) {
			c := r.cached
			r.mu.RUnlock()
			return c, nil
		}
		r.mu.RUnlock()

		c, err := r.load(ctx)
		if err != nil {
			return nil, err
		}
		c.expiresAt = now.Add(r.ttlWithJitter())

		r.mu.Lock()
		r.cached = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*content), nil
}

func (r *GameRepository) load(ctx context.Context) (*content, error) {
	checkpoints, err := r.loader.LoadCheckpoints(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := r.loader.LoadQuestions(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := r.loader.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}

	c := &content{
		checkpoints: make(map[string]domain.Checkpoint, len(checkpoints)),
		questions:   make(map[string]domain.Question, len(questions)),
		settings:    settings,
	}
	for _, checkpoint := range checkpoints {
		c.checkpoints[checkpoint.ID] = checkpoint
	}
	for _, question := range questions {
		c.questions[question.ID] = question
		c.questionIDs = append(c.questionIDs, question.ID)
	}
	return c, nil
}

func (r *GameRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticGameLoader is a loader backed by in-memory data (useful for tests/demos).
type StaticGameLoader struct {
	Checkpoints  []domain.Checkpoint
	Questions    []domain.Question
	GameSettings domain.Settings
	Teams        []domain.Team
}

func (l *StaticGameLoader) LoadCheckpoints(_ context.Context) ([]domain.Checkpoint, error) {
	return l.Checkpoints, nil
}

func (l *StaticGameLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	return l.Questions, nil
}

func (l *StaticGameLoader) LoadSettings(_ context.Context) (domain.Settings, error) {
	return l.GameSettings, nil
}

func (l *StaticGameLoader) LoadTeams(_ context.Context) ([]domain.Team, error) {
	return l.Teams, nil
}
