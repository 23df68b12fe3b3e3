package data

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/repo"
	"github.com/autoreply/wa-autoreply-bridge/internal/conf"
	"github.com/autoreply/wa-autoreply-bridge/internal/infra/whatsapp"
)

// Repositories contains all repositories
type Repositories struct {
	Message    repo.MessageRepo
	Completion repo.CompletionRepo
	Journal    repo.JournalRepo
	Seen       repo.SeenRepo // nil selects the in-memory cache

	redis *redis.Client
}

// NewRepositories creates all repositories
func NewRepositories(
	ctx context.Context,
	cfg *conf.Config,
	waClient *whatsapp.Client,
	persona PromptBuilder,
	logger zerolog.Logger,
) (*Repositories, error) {
	journal, err := NewJournalRepo(cfg.Journal.DBPath)
	if err != nil {
		return nil, err
	}

	repos := &Repositories{
		Message:    NewWhatsAppRepo(waClient),
		Completion: NewRateLimitedCompletionRepo(
			NewCompletionRepo(cfg.Completion.APIKey, cfg.Completion.BaseURL, cfg.Completion.Model, persona),
			cfg.Completion.PerMinute,
		),
		Journal: journal,
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			journal.Close()
			client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		repos.redis = client
		repos.Seen = NewRedisSeenRepo(client, cfg.Reply.SeenRetention, logger)
	}

	return repos, nil
}

// Close releases database and cache connections
func (r *Repositories) Close() error {
	var firstErr error
	if err := r.Journal.Close(); err != nil {
		firstErr = err
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
