package tasks

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
)

// ValuationOpts contains configuration for saved-list valuation.
type ValuationOpts struct {
	NumWorkers int     // Concurrent workers (default: 5, max: 10)
	RateLimit  float64 // Catalog requests per second (default: 5)
}

type valuationJob struct {
	index int
	card  models.SavedCard
}

type valuationResult struct {
	index     int
	valuation models.CardValuation
}

// Valuate fetches each card's catalog record concurrently with rate limiting and progress tracking.
//
// Per-card failures are recorded on the valuation and counted; the run itself only fails when ctx is done.
func (e *CardEngine) Valuate(
	ctx context.Context,
	cards []models.SavedCard,
	opts ValuationOpts,
	progress chan<- ProgressUpdate,
) (*models.Portfolio, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	total := len(cards)
	result := &models.Portfolio{Cards: make([]models.CardValuation, total)}
	if total == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan valuationJob)
	results := make(chan valuationResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.valuationWorker(ctx, &wg, jobs, results)
	}

	go func() {
		defer close(jobs)
		e.sendProgress(progress, valuateStartUpdate(total))

		for i, card := range cards {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case jobs <- valuationJob{index: i, card: card}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		v := res.valuation
		result.Cards[res.index] = v

		switch {
		case v.Error != "":
			result.Failed++
			e.sendProgress(progress, valuateFailedUpdate(completed, total, v))
		default:
			if v.Market > 0 {
				result.Priced++
				result.Total += v.Market
			}
			if v.Stale {
				result.Stale++
			}
			e.sendProgress(progress, valuatedCardUpdate(completed, total, v))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("valuation interrupted after %d of %d cards: %w", completed, total, err)
	}

	e.logger.Debug("valuation complete", "cards", total, "priced", result.Priced, "failed", result.Failed)
	return result, nil
}

// valuationWorker fetches catalog records for jobs until the channel closes.
func (e *CardEngine) valuationWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan valuationJob,
	results chan<- valuationResult,
) {
	defer wg.Done()

	for job := range jobs {
		card, err := e.catalog.Card(ctx, job.card.CardID)
		if err != nil {
			v := models.NewCardValuation(job.card, nil)
			v.Error = err.Error()
			results <- valuationResult{index: job.index, valuation: v}
			continue
		}
		results <- valuationResult{index: job.index, valuation: models.NewCardValuation(job.card, card)}
	}
}

func sortedVariants(m map[string]models.PriceRange) []string {
	return slices.Sorted(maps.Keys(m))
}
