package scoring

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/paperprofit/internal/modules/instruments"
)

// DataFetcher supplies the raw metric bundle for a symbol. ok is false when
// no vendor had data.
type DataFetcher interface {
	FetchStockData(symbol string) (StockData, bool, error)
}

// Service computes scores from live vendor data and persists them on the
// instrument row. Implements instruments.Scorer.
type Service struct {
	repo       *instruments.Repository
	fetcher    DataFetcher
	thresholds Thresholds
	log        zerolog.Logger
}

// NewService creates the scoring service.
func NewService(repo *instruments.Repository, fetcher DataFetcher, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		fetcher:    fetcher,
		thresholds: DefaultThresholds(),
		log:        log.With().Str("service", "scoring").Logger(),
	}
}

// ScoreInstrument fetches fresh data, computes risk/overall scores and the
// sector bucket, and stores them.
func (s *Service) ScoreInstrument(inst *instruments.Instrument) error {
	data, ok, err := s.fetcher.FetchStockData(inst.Symbol)
	if err != nil {
		return fmt.Errorf("failed to fetch data for %s: %w", inst.Symbol, err)
	}
	if !ok {
		return fmt.Errorf("no vendor data for %s", inst.Symbol)
	}

	risk := RiskScore(data, s.thresholds)
	overall := OverallScore(data, risk, s.thresholds)
	bucket := SectorBucket(inst.Symbol, data, s.thresholds)

	if err := s.repo.UpdateScores(inst.ID, float64(overall), float64(risk), bucket); err != nil {
		return err
	}

	s.log.Info().
		Str("symbol", inst.Symbol).
		Int("overall", overall).
		Int("risk", risk).
		Str("bucket", bucket).
		Msg("Scored instrument")

	inst.OverallScore = floatPtr(float64(overall))
	inst.RiskScore = floatPtr(float64(risk))
	inst.SectorBucket = bucket
	return nil
}

func floatPtr(v float64) *float64 { return &v }
