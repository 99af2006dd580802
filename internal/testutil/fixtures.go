package testutil

import (
	"time"

	"diamond-price-service/internal/core/domain"
	"diamond-price-service/internal/core/features"
	"diamond-price-service/internal/core/regression"
)

func Ptr[T any](v T) *T { return &v }

// LinearModel returns a model predicting intercept + perCarat*carat for
// reference-level diamonds.
func LinearModel(intercept, perCarat float64) *regression.Model {
	coef := make([]float64, features.Width)
	coef[0] = intercept
	coef[1] = perCarat
	return &regression.Model{
		Kind:          regression.Kind,
		SchemaVersion: features.SchemaVersion,
		Columns:       features.Columns(),
		Coefficients:  coef,
		TrainedRows:   1,
		TrainedAt:     time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
	}
}

// DiamondRows builds n distinct rows whose price is an exact linear function
// of the encoded features, cycling through every category level.
func DiamondRows(n int) []domain.DiamondRow {
	rows := make([]domain.DiamondRow, 0, n)
	for i := 0; i < n; i++ {
		cut := features.CutLevels[i%len(features.CutLevels)]
		color := features.ColorLevels[i%len(features.ColorLevels)]
		clarity := features.ClarityLevels[i%len(features.ClarityLevels)]
		carat := 0.3 + 0.05*float64(i%13) + 0.001*float64(i)

		price := 300 + 4000*carat +
			150*float64(i%len(features.CutLevels)) +
			100*float64(i%len(features.ColorLevels)) +
			200*float64(i%len(features.ClarityLevels))

		rows = append(rows, domain.DiamondRow{
			Carat:   Ptr(carat),
			Cut:     Ptr(cut),
			Color:   Ptr(color),
			Clarity: Ptr(clarity),
			Price:   Ptr(price),
		})
	}
	return rows
}

// Diamond returns a valid inference payload.
func Diamond(carat float64) domain.Diamond {
	return domain.Diamond{Carat: Ptr(carat), Cut: "Fair", Color: "J", Clarity: "I1"}
}
