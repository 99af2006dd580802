// Package regression fits and evaluates ridge-regularized linear models.
package regression

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Kind identifies the estimator in artifacts and registry metadata.
const Kind = "LinearRegression"

var (
	ErrShape        = errors.New("design matrix and target have mismatched shapes")
	ErrNotEnough    = errors.New("not enough rows to fit")
	ErrIllPosed     = errors.New("normal equations are not positive definite")
	ErrIncompatible = errors.New("model is incompatible with the feature schema")
)

// Model is a fitted linear model. Column 0 of every input vector is the
// intercept term and is never penalized.
type Model struct {
	Kind          string    `json:"kind"`
	SchemaVersion int       `json:"schema_version"`
	Columns       []string  `json:"columns"`
	Coefficients  []float64 `json:"coefficients"`
	RidgeLambda   float64   `json:"ridge_lambda"`
	TrainedRows   int       `json:"trained_rows"`
	TrainedAt     time.Time `json:"trained_at"`

	// ValidationFolds is the fold count the reported MAE was measured with.
	ValidationFolds int `json:"validation_folds,omitempty"`
}

// Fit solves (XᵀX + λI')β = Xᵀy with a Cholesky factorization, where I' is
// the identity without its intercept entry.
func Fit(x [][]float64, y []float64, lambda float64) (*Model, error) {
	if len(x) != len(y) {
		return nil, ErrShape
	}
	if len(x) == 0 {
		return nil, ErrNotEnough
	}
	p := len(x[0])
	if p == 0 {
		return nil, ErrShape
	}

	design := mat.NewDense(len(x), p, nil)
	for i, row := range x {
		if len(row) != p {
			return nil, fmt.Errorf("row %d: %w", i, ErrShape)
		}
		design.SetRow(i, row)
	}
	target := mat.NewVecDense(len(y), append([]float64(nil), y...))

	var gram mat.SymDense
	gram.SymOuterK(1, design.T())
	for j := 1; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+lambda)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return nil, ErrIllPosed
	}

	var moment mat.VecDense
	moment.MulVec(design.T(), target)

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &moment); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("solve normal equations: %w", err)
		}
	}

	coef := make([]float64, p)
	for j := range coef {
		coef[j] = beta.AtVec(j)
	}
	if !finite(coef) {
		return nil, ErrIllPosed
	}

	return &Model{
		Kind:         Kind,
		Coefficients: coef,
		RidgeLambda:  lambda,
		TrainedRows:  len(x),
		TrainedAt:    time.Now().UTC(),
	}, nil
}

func (m *Model) Predict(x []float64) (float64, error) {
	if len(x) != len(m.Coefficients) {
		return 0, fmt.Errorf("got %d features, model expects %d: %w", len(x), len(m.Coefficients), ErrShape)
	}
	return floats.Dot(m.Coefficients, x), nil
}

// PredictAll predicts every row of x.
func (m *Model) PredictAll(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		v, err := m.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// CheckSchema returns ErrIncompatible unless the model was fitted on the given
// feature layout.
func (m *Model) CheckSchema(version int, columns []string) error {
	if m.Kind != Kind {
		return fmt.Errorf("%w: kind %q", ErrIncompatible, m.Kind)
	}
	if m.SchemaVersion != version {
		return fmt.Errorf("%w: schema version %d, want %d", ErrIncompatible, m.SchemaVersion, version)
	}
	if len(m.Coefficients) != len(columns) || len(m.Columns) != len(columns) {
		return fmt.Errorf("%w: %d coefficients for %d columns", ErrIncompatible, len(m.Coefficients), len(columns))
	}
	for i, c := range columns {
		if m.Columns[i] != c {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrIncompatible, i, m.Columns[i], c)
		}
	}
	if !finite(m.Coefficients) {
		return fmt.Errorf("%w: non-finite coefficient", ErrIncompatible)
	}
	return nil
}

// Params returns the hyperparameters recorded in registry metadata.
func (m *Model) Params() map[string]float64 {
	params := map[string]float64{
		"ridge_lambda": m.RidgeLambda,
		"trained_rows": float64(m.TrainedRows),
	}
	if m.ValidationFolds > 0 {
		params["folds"] = float64(m.ValidationFolds)
	}
	return params
}

func (m *Model) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "    ")
}

func Unmarshal(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &m, nil
}

// MeanAbsoluteError of pred against truth.
func MeanAbsoluteError(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	return floats.Distance(truth, pred, 1) / float64(len(truth))
}

// Round to the given number of decimals.
func Round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

func finite(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
