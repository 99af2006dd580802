package regression

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// CVOptions configures k-fold cross-validation.
type CVOptions struct {
	Folds       int
	Seed        int64
	RidgeLambda float64
}

// CVResult holds the per-fold and averaged validation error.
type CVResult struct {
	Folds    int
	FoldMAEs []float64
	MAE      float64
}

// KFold shuffles 0..n-1 with seed and cuts the permutation into folds
// contiguous chunks. The first n%folds chunks get one extra index. The same
// (n, folds, seed) always yields the same partition.
func KFold(n, folds int, seed int64) [][]int {
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	out := make([][]int, folds)
	start := 0
	for k := 0; k < folds; k++ {
		size := n / folds
		if k < n%folds {
			size++
		}
		out[k] = perm[start : start+size]
		start += size
	}
	return out
}

// CrossValidate fits one model per fold on the remaining rows and measures
// MAE on the held-out fold. Folds are fitted concurrently. The reported MAE
// is the mean over folds rounded to 3 decimals.
func CrossValidate(ctx context.Context, x [][]float64, y []float64, opts CVOptions) (*CVResult, error) {
	if len(x) != len(y) {
		return nil, ErrShape
	}
	folds := opts.Folds
	if folds > len(x) {
		folds = len(x)
	}
	if folds < 2 {
		return nil, fmt.Errorf("%w: %d rows, need at least 2", ErrNotEnough, len(x))
	}

	partition := KFold(len(x), folds, opts.Seed)
	maes := make([]float64, folds)

	g, gctx := errgroup.WithContext(ctx)
	for k := range partition {
		k := k
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			held := make(map[int]struct{}, len(partition[k]))
			for _, i := range partition[k] {
				held[i] = struct{}{}
			}

			trainX := make([][]float64, 0, len(x)-len(held))
			trainY := make([]float64, 0, len(x)-len(held))
			for i := range x {
				if _, ok := held[i]; ok {
					continue
				}
				trainX = append(trainX, x[i])
				trainY = append(trainY, y[i])
			}

			m, err := Fit(trainX, trainY, opts.RidgeLambda)
			if err != nil {
				return fmt.Errorf("fold %d: %w", k, err)
			}

			heldX := make([][]float64, 0, len(partition[k]))
			truth := make([]float64, 0, len(partition[k]))
			for _, i := range partition[k] {
				heldX = append(heldX, x[i])
				truth = append(truth, y[i])
			}
			pred, err := m.PredictAll(heldX)
			if err != nil {
				return fmt.Errorf("fold %d: %w", k, err)
			}
			maes[k] = MeanAbsoluteError(truth, pred)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := 0.0
	for _, v := range maes {
		sum += v
	}
	return &CVResult{
		Folds:    folds,
		FoldMAEs: maes,
		MAE:      Round(sum/float64(folds), 3),
	}, nil
}
