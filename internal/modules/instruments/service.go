package instruments

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// InfoEnricher supplies display metadata for a symbol. A nil result means
// the vendors had nothing; the instrument is still created.
type InfoEnricher interface {
	EnrichInstrument(symbol string) (name, exchange, currency string, ok bool)
}

// Scorer computes and persists instrument scores. Failures are logged but
// never block watchlist membership.
type Scorer interface {
	ScoreInstrument(inst *Instrument) error
}

// Service wraps the repository with watchlist behaviour.
type Service struct {
	repo     *Repository
	enricher InfoEnricher
	scorer   Scorer
	log      zerolog.Logger
}

// NewService creates the instrument service. enricher and scorer may be nil.
func NewService(repo *Repository, enricher InfoEnricher, scorer Scorer, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		enricher: enricher,
		scorer:   scorer,
		log:      log.With().Str("service", "instruments").Logger(),
	}
}

// EnsureExists returns the instrument for symbol, creating a minimal row if
// missing.
func (s *Service) EnsureExists(symbol string) (*Instrument, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is empty")
	}

	inst, err := s.repo.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if inst != nil {
		return inst, nil
	}

	inst = &Instrument{
		Symbol:   symbol,
		Name:     symbol,
		Currency: "USD",
		IsActive: true,
	}
	if _, err := s.repo.Create(inst); err != nil {
		return nil, err
	}
	s.log.Info().Str("symbol", symbol).Msg("Created instrument")
	return inst, nil
}

// Lookup returns the instrument for symbol, nil when unknown.
func (s *Service) Lookup(symbol string) (*Instrument, error) {
	return s.repo.GetBySymbol(strings.ToUpper(strings.TrimSpace(symbol)))
}

// Watchlist lists watchlisted instruments.
func (s *Service) Watchlist() ([]Instrument, error) {
	return s.repo.ListWatchlist()
}

// AddToWatchlist is idempotent create-or-flag: a missing instrument is
// created (enriched with vendor metadata when available), the watchlist flag
// is set, and scoring is attempted afterwards. A scoring failure does not
// undo the flag.
func (s *Service) AddToWatchlist(symbol string) (*Instrument, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is empty")
	}

	inst, err := s.repo.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}

	if inst == nil {
		inst = &Instrument{
			Symbol:   symbol,
			Name:     symbol,
			Currency: "USD",
			IsActive: true,
		}
		if s.enricher != nil {
			if name, exchange, currency, ok := s.enricher.EnrichInstrument(symbol); ok {
				if name != "" {
					inst.Name = name
				}
				inst.Exchange = exchange
				if currency != "" {
					inst.Currency = currency
				}
			}
		}
		if _, err := s.repo.Create(inst); err != nil {
			return nil, err
		}
		s.log.Info().Str("symbol", symbol).Msg("Created instrument for watchlist")
	}

	if !inst.WatchList {
		if err := s.repo.SetWatchlist(inst.ID, true); err != nil {
			return nil, err
		}
		inst.WatchList = true
	}

	if s.scorer != nil {
		if err := s.scorer.ScoreInstrument(inst); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Scoring failed after watchlist add")
		}
	}

	return inst, nil
}
