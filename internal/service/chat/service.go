package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/mediminder/mediminder-api/internal/chat"
	apperrors "github.com/mediminder/mediminder-api/pkg/errors"
	"github.com/mediminder/mediminder-api/pkg/logger"
	"github.com/mediminder/mediminder-api/pkg/retry"
)

// metaReplyRe catches answers where the model talks about itself instead of
// answering, which a larger token budget usually fixes.
var metaReplyRe = regexp.MustCompile(`(?i)^(as an ai|i am an ai|i'm an ai|i cannot answer|i can't answer)`)

const minUsefulAnswerLen = 20

type Config struct {
	Cooldown      time.Duration
	CacheTTL      time.Duration
	InitialTokens int
	RetryTokens   int
}

// Service answers medication questions through a primary provider with a
// quota-triggered fallback. Answers are cached so repeated questions cost
// nothing, and a cooldown throttles how often uncached questions go out.
type Service struct {
	primary  chat.Provider
	fallback chat.Provider
	limiter  *rate.Limiter
	cache    *gocache.Cache
	policy   retry.Policy
	cfg      Config
	logger   *logger.Logger
}

func NewService(primary, fallback chat.Provider, cfg Config, log *logger.Logger) *Service {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	if cfg.InitialTokens <= 0 {
		cfg.InitialTokens = 256
	}
	if cfg.RetryTokens <= cfg.InitialTokens {
		cfg.RetryTokens = cfg.InitialTokens * 2
	}
	return &Service{
		primary:  primary,
		fallback: fallback,
		limiter:  rate.NewLimiter(rate.Every(cfg.Cooldown), 1),
		cache:    gocache.New(cfg.CacheTTL, cfg.CacheTTL),
		policy: retry.Policy{
			MaxAttempts: 2,
			Backoff:     time.Second,
			Retryable: func(err error) bool {
				// Quota and empty replies have dedicated handling; only
				// transport-level failures are worth a blind retry.
				return !errors.Is(err, chat.ErrQuota) && !errors.Is(err, chat.ErrEmptyReply)
			},
		},
		cfg:    cfg,
		logger: log.WithComponent("chat"),
	}
}

// Ask answers one question. Cached answers bypass the cooldown; uncached
// questions are throttled. Quota exhaustion on the primary provider fails
// over to the fallback, and only both failing surfaces an error.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	key := cacheKey(question)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string), nil
	}

	if !s.limiter.Allow() {
		return "", apperrors.TooManyRequests("please wait a moment before asking again")
	}

	answer, err := s.askProvider(ctx, s.primary, question)
	if err != nil && errors.Is(err, chat.ErrQuota) && s.fallback != nil {
		s.logger.Warn("primary chat provider out of quota, failing over",
			"primary", s.primary.Name(), "fallback", s.fallback.Name())
		var fbErr error
		answer, fbErr = s.askProvider(ctx, s.fallback, question)
		if fbErr != nil {
			return "", fmt.Errorf("all chat providers failed: %s: %v; %s: %w",
				s.primary.Name(), err, s.fallback.Name(), fbErr)
		}
		err = nil
	}
	if err != nil {
		return "", err
	}

	s.cache.Set(key, answer, gocache.DefaultExpiration)
	return answer, nil
}

// askProvider asks with the initial token budget and retries once with a
// larger budget when the answer is empty or a meta reply.
func (s *Service) askProvider(ctx context.Context, p chat.Provider, question string) (string, error) {
	answer, err := s.ask(ctx, p, question, s.cfg.InitialTokens)
	if err == nil && isUseful(answer) {
		return answer, nil
	}
	if err != nil && !errors.Is(err, chat.ErrEmptyReply) {
		return "", err
	}

	s.logger.Debug("retrying with larger token budget", "provider", p.Name())
	answer, err = s.ask(ctx, p, question, s.cfg.RetryTokens)
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (s *Service) ask(ctx context.Context, p chat.Provider, question string, tokens int) (string, error) {
	var answer string
	err := s.policy.Do(ctx, func() error {
		var err error
		answer, err = p.Ask(ctx, question, tokens)
		return err
	})
	return answer, err
}

func isUseful(answer string) bool {
	return len(answer) >= minUsefulAnswerLen && !metaReplyRe.MatchString(answer)
}

func cacheKey(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}
