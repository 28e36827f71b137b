package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"treasurehunt-service/internal/domain"
	"treasurehunt-service/internal/infra/memory"
)

const contentKey = "hunt:content"

// GameRepository caches the full game content bundle (catalog, question pool,
// settings) in Redis and falls back to a loader on cache miss. Cached as:
// SET hunt:content {json} EX ttl+jitter
type GameRepository struct {
	client *redis.Client
	loader memory.GameLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

type contentDoc struct {
	Checkpoints []domain.Checkpoint `json:"checkpoints"`
	Questions   []domain.Question   `json:"questions"`
	Settings    domain.Settings     `json:"settings"`
}

func NewGameRepository(client *redis.Client, loader memory.GameLoader, ttl time.Duration) *GameRepository {
	return &GameRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *GameRepository) Checkpoint(ctx context.Context, checkpointID string) (domain.Checkpoint, error) {
	doc, err := r.content(ctx)
	if err != nil {
		return domain.Checkpoint{}, err
	}
	for _, checkpoint := range doc.Checkpoints {
		if checkpoint.ID == checkpointID {
			return checkpoint, nil
		}
	}
	return domain.Checkpoint{}, domain.ErrCheckpointNotFound
}

func (r *GameRepository) Question(ctx context.Context, questionID string) (domain.Question, error) {
	doc, err := r.content(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	for _, question := range doc.Questions {
		if question.ID == questionID {
			return question, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (r *GameRepository) RandomQuestion(ctx context.Context) (domain.Question, error) {
	doc, err := r.content(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	if len(doc.Questions) == 0 {
		return domain.Question{}, domain.ErrNoQuestions
	}
	r.mu.Lock()
	i := r.rnd.Intn(len(doc.Questions))
	r.mu.Unlock()
	return doc.Questions[i], nil
}

func (r *GameRepository) Settings(ctx context.Context) (domain.Settings, error) {
	doc, err := r.content(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if !doc.Settings.Valid() {
		return domain.Settings{}, domain.ErrSettingsMissing
	}
	return doc.Settings, nil
}

func (r *GameRepository) content(ctx context.Context) (contentDoc, error) {
	raw, err := r.client.Get(ctx, contentKey).Bytes()
	if err == nil {
		var doc contentDoc
		if err := json.Unmarshal(raw, &doc); err == nil {
			return doc, nil
		}
		// fall through and rebuild on a corrupt cache entry
	}

	result, err, _ := r.sf.Do(contentKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := r.client.Get(ctx, contentKey).Bytes()
		if err == nil {
			var doc contentDoc
			if err := json.Unmarshal(raw, &doc); err == nil {
				return doc, nil
			}
		}

		doc, err := r.load(ctx)
		if err != nil {
			return contentDoc{}, err
		}

		encoded, err := json.Marshal(doc)
		if err != nil {
			return contentDoc{}, fmt.Errorf("marshal game content: %w", err)
		}
		_ = r.client.Set(ctx, contentKey, encoded, r.ttlWithJitter()).Err()
		return doc, nil
	})
	if err != nil {
		return contentDoc{}, err
	}
	return result.(contentDoc), nil
}

func (r *GameRepository) load(ctx context.Context) (contentDoc, error) {
	checkpoints, err := r.loader.LoadCheckpoints(ctx)
	if err != nil {
		return contentDoc{}, err
	}
	questions, err := r.loader.LoadQuestions(ctx)
	if err != nil {
		return contentDoc{}, err
	}
	settings, err := r.loader.LoadSettings(ctx)
	if err != nil {
		return contentDoc{}, err
	}
	return contentDoc{Checkpoints: checkpoints, Questions: questions, Settings: settings}, nil
}

func (r *GameRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
