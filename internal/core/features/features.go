// Package features turns diamonds into model inputs. Training and inference
// both go through Encode, so a model always sees the column layout it was
// fitted on.
package features

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"diamond-price-service/internal/core/domain"
)

// SchemaVersion changes whenever the vector layout changes. Artifacts record
// the version they were fitted with.
const SchemaVersion = 1

// Category levels. The first level of each list is the reference level and
// has no column of its own.
var (
	CutLevels     = []string{"Fair", "Good", "Very Good", "Premium", "Ideal"}
	ColorLevels   = []string{"J", "I", "H", "G", "F", "E", "D"}
	ClarityLevels = []string{"I1", "SI2", "SI1", "VS2", "VS1", "VVS2", "VVS1", "IF"}
)

// Width is the length of every encoded vector: intercept, carat and the
// one-hot columns.
var Width = 2 + len(CutLevels) - 1 + len(ColorLevels) - 1 + len(ClarityLevels) - 1

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	for tag, levels := range map[string][]string{
		"cut":     CutLevels,
		"color":   ColorLevels,
		"clarity": ClarityLevels,
	} {
		levels := levels
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return levelIndex(levels, fl.Field().String()) >= 0
		})
	}
	return v
}

// Validate checks that every attribute is present and inside the domain the
// model was trained on.
func Validate(d domain.Diamond) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = describe(fe)
	}
	return &domain.ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "cut":
		return "must be one of " + strings.Join(CutLevels, ", ")
	case "color":
		return "must be one of " + strings.Join(ColorLevels, ", ")
	case "clarity":
		return "must be one of " + strings.Join(ClarityLevels, ", ")
	}
	return "failed " + fe.Tag() + " check"
}

// Encode validates d and returns its feature vector.
func Encode(d domain.Diamond) ([]float64, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	return encode(d), nil
}

func encode(d domain.Diamond) []float64 {
	x := make([]float64, Width)
	x[0] = 1
	x[1] = *d.Carat

	off := 2
	off = oneHot(x, off, CutLevels, d.Cut)
	off = oneHot(x, off, ColorLevels, d.Color)
	oneHot(x, off, ClarityLevels, d.Clarity)
	return x
}

func oneHot(x []float64, off int, levels []string, value string) int {
	if i := levelIndex(levels, value); i > 0 {
		x[off+i-1] = 1
	}
	return off + len(levels) - 1
}

func levelIndex(levels []string, value string) int {
	for i, l := range levels {
		if l == value {
			return i
		}
	}
	return -1
}

// Columns names the entries of an encoded vector, in order.
func Columns() []string {
	cols := make([]string, 0, Width)
	cols = append(cols, "intercept", "carat")
	for _, group := range []struct {
		name   string
		levels []string
	}{
		{"cut", CutLevels},
		{"color", ColorLevels},
		{"clarity", ClarityLevels},
	} {
		for _, l := range group.levels[1:] {
			cols = append(cols, group.name+"="+l)
		}
	}
	return cols
}

type rowKey struct {
	carat   float64
	cut     string
	color   string
	clarity string
	price   float64
}

// Clean drops rows with NULL columns, rows outside the feature domain and
// exact duplicates. The first occurrence of a duplicate is kept and the
// input order is preserved.
func Clean(rows []domain.DiamondRow) ([]domain.DiamondRow, int) {
	kept := make([]domain.DiamondRow, 0, len(rows))
	seen := make(map[rowKey]struct{}, len(rows))

	for _, r := range rows {
		if !r.Complete() {
			continue
		}
		if math.IsNaN(*r.Price) || math.IsInf(*r.Price, 0) {
			continue
		}
		if Validate(r.Diamond()) != nil {
			continue
		}

		key := rowKey{*r.Carat, *r.Cut, *r.Color, *r.Clarity, *r.Price}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}
	return kept, len(rows) - len(kept)
}

// Matrix encodes cleaned rows into a design matrix and target vector.
func Matrix(rows []domain.DiamondRow) ([][]float64, []float64, error) {
	x := make([][]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	for i, r := range rows {
		if !r.Complete() {
			return nil, nil, fmt.Errorf("row %d: %w", i, &domain.ValidationError{Fields: map[string]string{"row": "has NULL columns"}})
		}
		vec, err := Encode(r.Diamond())
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		x = append(x, vec)
		y = append(y, *r.Price)
	}
	return x, y, nil
}
