package ai

import (
	"context"

	"github.com/rs/zerolog"
)

// Service orchestrates cached stock-list generation across platforms.
type Service struct {
	creds CredentialSource
	cache *Cache
	log   zerolog.Logger
}

// NewService creates the AI service.
func NewService(creds CredentialSource, cache *Cache, log zerolog.Logger) *Service {
	return &Service{
		creds: creds,
		cache: cache,
		log:   log.With().Str("service", "ai").Logger(),
	}
}

// StockList returns symbols for a prompt, serving from cache when fresh.
// cached reports whether the result came from the cache. An empty list with
// a nil error means the platform produced nothing usable.
func (s *Service) StockList(ctx context.Context, platform, prompt string) (symbols []string, cached bool, err error) {
	if prompt == "" {
		return nil, false, nil
	}
	if platform == "" {
		platform = DefaultPlatform
	}

	if list, ok := s.cache.Get(prompt, platform); ok {
		s.log.Info().Str("platform", platform).Int("count", len(list)).Msg("Using cached AI stock list")
		return list, true, nil
	}

	client := NewClient(platform, s.creds, s.log)
	text, err := client.GenerateStockListText(ctx, prompt)
	if err != nil {
		return nil, false, err
	}
	if text == "" {
		return nil, false, nil
	}

	list := ParseStockList(text)
	if len(list) == 0 {
		s.log.Warn().Str("platform", platform).Msg("AI response contained no symbols")
		return nil, false, nil
	}

	if err := s.cache.Put(prompt, platform, list); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache AI stock list")
	}
	s.log.Info().Str("platform", platform).Int("count", len(list)).Msg("Generated AI stock list")
	return list, false, nil
}
