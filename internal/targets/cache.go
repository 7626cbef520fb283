package targets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/dustin/go-humanize"

	"cupart/internal/dataset"
	"cupart/internal/logging"
	"cupart/internal/split"
)

var ErrTooManyFailures = errors.New("too many sample load failures")

type Config struct {
	DatabaseElements     uint64
	TrainingTargets      int
	ValidationTargets    int
	GenerationsPerReload uint64
	Strategy             Strategy
	// MaxLoadFailures bounds skipped draws per fill. Zero means the pool
	// capacity.
	MaxLoadFailures int
	Seed            int64
}

func (c Config) Validate() error {
	if c.DatabaseElements == 0 {
		return errors.New("database elements must be > 0")
	}
	if c.TrainingTargets <= 0 {
		return errors.New("training targets must be > 0")
	}
	if c.ValidationTargets <= 0 {
		return errors.New("validation targets must be > 0")
	}
	if c.GenerationsPerReload == 0 {
		return errors.New("generations per reload must be > 0")
	}
	if c.MaxLoadFailures < 0 {
		return errors.New("max load failures must be >= 0")
	}
	if c.Strategy == WithoutReplacement {
		if uint64(c.TrainingTargets) > c.DatabaseElements || uint64(c.ValidationTargets) > c.DatabaseElements {
			return fmt.Errorf("%w: without_replacement needs at most %d targets per pool", ErrExhausted, c.DatabaseElements)
		}
	}
	if _, err := ParseStrategy(string(c.Strategy)); err != nil {
		return err
	}
	return nil
}

// ShouldReload reports whether the training pool is rebuilt at generation.
func ShouldReload(generation, every uint64) bool {
	return generation == 0 || (every > 0 && generation%every == 0)
}

type CacheOptions struct {
	Logger  *slog.Logger
	Metrics *Metrics
}

// Cache owns the training and validation pools. Only the training driver
// holds a *Cache; workers receive a View.
type Cache[S dataset.Sample] struct {
	loader  dataset.Loader[S]
	cfg     Config
	rng     *rand.Rand
	logger  *slog.Logger
	metrics *Metrics

	mu         sync.RWMutex
	training   *Pool[S]
	validation *Pool[S]
}

func NewCache[S dataset.Sample](loader dataset.Loader[S], cfg Config, opts CacheOptions) (*Cache[S], error) {
	if loader == nil {
		return nil, errors.New("sample loader is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Strategy == "" {
		cfg.Strategy = WithReplacement
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("targets")
	}
	return &Cache[S]{
		loader:  loader,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

func (c *Cache[S]) Config() Config {
	return c.cfg
}

// Reload applies the reload schedule for generation. Generation 0 loads the
// validation pool (once) and the training pool; every GenerationsPerReload
// generations the training pool is replaced. A failed fill leaves the
// published pools untouched.
func (c *Cache[S]) Reload(ctx context.Context, generation uint64) (bool, error) {
	if c.loader == nil {
		return false, errors.New("cache has no loader")
	}
	if !ShouldReload(generation, c.cfg.GenerationsPerReload) {
		return false, nil
	}

	if generation == 0 && c.View().Validation() == nil {
		validation, err := c.fill(ctx, BucketValidation, c.cfg.ValidationTargets)
		if err != nil {
			return false, fmt.Errorf("load validation targets: %w", err)
		}
		c.mu.Lock()
		c.validation = validation
		c.mu.Unlock()
		c.metrics.published(BucketValidation)
	}

	training, err := c.fill(ctx, BucketTraining, c.cfg.TrainingTargets)
	if err != nil {
		return false, fmt.Errorf("reload training targets at generation %d: %w", generation, err)
	}
	c.mu.Lock()
	c.training = training
	c.mu.Unlock()
	c.metrics.published(BucketTraining)
	c.logger.Info("training targets reloaded",
		"generation", generation,
		"targets", humanize.Comma(int64(training.Len())),
		"epoch", training.Epoch(),
	)
	return true, nil
}

func (c *Cache[S]) fill(ctx context.Context, bucket string, count int) (*Pool[S], error) {
	return draw(ctx, c.loader, c.rng, DrawRequest{
		Bucket:           bucket,
		Count:            count,
		DatabaseElements: c.cfg.DatabaseElements,
		Strategy:         c.cfg.Strategy,
		MaxFailures:      c.cfg.MaxLoadFailures,
	}, c.logger, c.metrics)
}

func (c *Cache[S]) View() View[S] {
	return View[S]{cache: c}
}

// View is the read-only face of a Cache. Each call returns the pool
// currently published; the returned pool never changes.
type View[S dataset.Sample] struct {
	cache *Cache[S]
}

// StaticView wraps fixed pools, for inference and tests.
func StaticView[S dataset.Sample](training, validation *Pool[S]) View[S] {
	return View[S]{cache: &Cache[S]{training: training, validation: validation}}
}

func (v View[S]) Training() *Pool[S] {
	if v.cache == nil {
		return nil
	}
	v.cache.mu.RLock()
	defer v.cache.mu.RUnlock()
	return v.cache.training
}

func (v View[S]) Validation() *Pool[S] {
	if v.cache == nil {
		return nil
	}
	v.cache.mu.RLock()
	defer v.cache.mu.RUnlock()
	return v.cache.validation
}

type DrawRequest struct {
	Bucket           string
	Count            int
	DatabaseElements uint64
	Strategy         Strategy
	MaxFailures      int
}

// Draw fills a new pool of req.Count samples from loader.
func Draw[S dataset.Sample](ctx context.Context, loader dataset.Loader[S], rng *rand.Rand, req DrawRequest) (*Pool[S], error) {
	return draw(ctx, loader, rng, req, logging.New("targets"), nil)
}

func draw[S dataset.Sample](ctx context.Context, loader dataset.Loader[S], rng *rand.Rand, req DrawRequest, logger *slog.Logger, metrics *Metrics) (*Pool[S], error) {
	if req.Count <= 0 {
		return nil, errors.New("target count must be > 0")
	}
	next, err := newDrawer(req.Strategy, rng, req.DatabaseElements)
	if err != nil {
		return nil, err
	}
	maxFailures := req.MaxFailures
	if maxFailures <= 0 {
		maxFailures = req.Count
	}

	samples := make([]S, 0, req.Count)
	labels := make([]split.Split, 0, req.Count)
	failures := 0
	for len(samples) < req.Count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index, ok := next.next()
		if !ok {
			return nil, fmt.Errorf("%w: %d of %d %s targets loaded", ErrExhausted, len(samples), req.Count, req.Bucket)
		}
		sample, label, err := loader.Load(index)
		if err != nil {
			failures++
			metrics.loadFailed(req.Bucket)
			logger.Warn("sample load failed", "bucket", req.Bucket, "index", index, "error", err)
			if failures > maxFailures {
				return nil, fmt.Errorf("%w: %d failures filling %s pool: %w", ErrTooManyFailures, failures, req.Bucket, err)
			}
			continue
		}
		samples = append(samples, sample)
		labels = append(labels, label)
		metrics.targetLoaded(req.Bucket)
	}
	if failures > 0 {
		logger.Info("target pool filled with skipped samples",
			"bucket", req.Bucket,
			"loaded", humanize.Comma(int64(len(samples))),
			"failures", failures,
		)
	}
	return newPool(samples, labels, req.Count), nil
}
