package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"diamond-price-service/internal/core/domain"
	"diamond-price-service/internal/core/features"
	ports "diamond-price-service/internal/core/ports/output"
	"diamond-price-service/internal/core/regression"
)

type TrainingOptions struct {
	Folds       int
	Seed        int64
	RidgeLambda float64
	// DryRun evaluates the candidate without touching the registry.
	DryRun bool
}

// TrainingReport summarizes one training run.
type TrainingReport struct {
	Rows            int
	Dropped         int
	CandidateMetric float64
	PreviousMetric  *float64
	Promoted        bool
	ArtifactPath    string
	Metadata        *domain.RegistryMetadata
}

type TrainingService struct {
	source   ports.DiamondSource
	registry ports.ModelRegistry
	metrics  ports.TrainingMetrics
	opts     TrainingOptions
	now      func() time.Time
}

func NewTrainingService(source ports.DiamondSource, registry ports.ModelRegistry, metrics ports.TrainingMetrics, opts TrainingOptions) *TrainingService {
	return &TrainingService{
		source:   source,
		registry: registry,
		metrics:  metrics,
		opts:     opts,
		now:      time.Now,
	}
}

// LoadDataset reads every labeled row from the data source.
func (s *TrainingService) LoadDataset(ctx context.Context) ([]domain.DiamondRow, error) {
	rows, err := s.source.LoadDiamonds(ctx)
	if err != nil {
		return nil, err
	}
	log.WithField("rows", len(rows)).Info("dataset loaded")
	return rows, nil
}

// Fit cleans rows, measures the cross-validated MAE and fits the candidate on
// every cleaned row.
func (s *TrainingService) Fit(ctx context.Context, rows []domain.DiamondRow) (*regression.Model, float64, error) {
	model, metric, _, err := s.fit(ctx, rows)
	return model, metric, err
}

func (s *TrainingService) fit(ctx context.Context, rows []domain.DiamondRow) (*regression.Model, float64, int, error) {
	kept, dropped := features.Clean(rows)
	if len(kept) == 0 {
		return nil, 0, dropped, fmt.Errorf("%w: %w", domain.ErrDataSource, domain.ErrEmptyDataset)
	}
	log.WithFields(log.Fields{"kept": len(kept), "dropped": dropped}).Info("dataset cleaned")

	x, y, err := features.Matrix(kept)
	if err != nil {
		return nil, 0, dropped, fmt.Errorf("encode dataset: %w", err)
	}

	cv, err := regression.CrossValidate(ctx, x, y, regression.CVOptions{
		Folds:       s.opts.Folds,
		Seed:        s.opts.Seed,
		RidgeLambda: s.opts.RidgeLambda,
	})
	if err != nil {
		return nil, 0, dropped, fmt.Errorf("cross-validate: %w", err)
	}

	model, err := regression.Fit(x, y, s.opts.RidgeLambda)
	if err != nil {
		return nil, 0, dropped, fmt.Errorf("fit candidate: %w", err)
	}
	model.SchemaVersion = features.SchemaVersion
	model.Columns = features.Columns()
	model.ValidationFolds = cv.Folds

	log.WithFields(log.Fields{"mae": cv.MAE, "folds": cv.Folds}).Info("candidate evaluated")
	return model, cv.MAE, dropped, nil
}

// CurrentMetadata returns the active metadata, or nil when nothing has been
// promoted yet.
func (s *TrainingService) CurrentMetadata(ctx context.Context) (*domain.RegistryMetadata, error) {
	m, err := s.registry.ReadMetadata(ctx)
	if errors.Is(err, domain.ErrNoActiveModel) {
		return nil, nil
	}
	return m, err
}

// Promote publishes candidate when it beats current, or unconditionally when
// current is nil. The artifact is written before the metadata so the metadata
// never names a file that does not exist. Older artifacts are kept.
func (s *TrainingService) Promote(ctx context.Context, candidate *regression.Model, metric float64, current *domain.RegistryMetadata) (*domain.RegistryMetadata, bool, error) {
	fields := log.Fields{"mae": metric}
	if current != nil {
		fields["previous_mae"] = current.ValidationMetric
	}

	if !current.Outperformed(metric) {
		log.WithFields(fields).Info("candidate not better than active model, registry unchanged")
		return current, false, nil
	}

	path, err := s.registry.SaveArtifact(ctx, candidate)
	if err != nil {
		return nil, false, err
	}

	params := candidate.Params()
	params["seed"] = float64(s.opts.Seed)

	next := &domain.RegistryMetadata{
		ActiveModelPath:  path,
		ValidationMetric: metric,
		ModelName:        candidate.Kind,
		ModelParams:      params,
		PromotedAt:       s.now().UTC(),
	}
	if err := s.registry.WriteMetadata(ctx, next); err != nil {
		return nil, false, err
	}

	fields["artifact"] = path
	log.WithFields(fields).Info("candidate promoted")
	return next, true, nil
}

// Run executes the whole workflow: read the registry, load and fit the
// dataset, then promote if the candidate is better.
func (s *TrainingService) Run(ctx context.Context) (*TrainingReport, error) {
	start := s.now()

	current, err := s.CurrentMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	if current == nil {
		log.Info("registry is empty, first candidate will be promoted")
	}

	rows, err := s.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}

	candidate, metric, dropped, err := s.fit(ctx, rows)
	if err != nil {
		return nil, err
	}

	report := &TrainingReport{
		Rows:            len(rows),
		Dropped:         dropped,
		CandidateMetric: metric,
		Metadata:        current,
	}
	if current != nil {
		prev := current.ValidationMetric
		report.PreviousMetric = &prev
	}

	if s.opts.DryRun {
		log.WithFields(log.Fields{
			"mae":           metric,
			"would_promote": current.Outperformed(metric),
		}).Info("dry run, registry unchanged")
		s.observe(metric, false, start)
		return report, nil
	}

	meta, promoted, err := s.Promote(ctx, candidate, metric, current)
	if err != nil {
		return nil, fmt.Errorf("promote: %w", err)
	}
	report.Promoted = promoted
	report.Metadata = meta
	if promoted {
		report.ArtifactPath = meta.ActiveModelPath
	}

	s.observe(metric, promoted, start)
	return report, nil
}

func (s *TrainingService) observe(metric float64, promoted bool, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveTraining(metric, promoted, s.now().Sub(start))
}
