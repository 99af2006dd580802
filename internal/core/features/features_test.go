package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diamond-price-service/internal/core/domain"
)

func ptr[T any](v T) *T { return &v }

func validDiamond() domain.Diamond {
	return domain.Diamond{Carat: ptr(0.7), Cut: "Ideal", Color: "E", Clarity: "VS2"}
}

func row(carat float64, cut, color, clarity string, price float64) domain.DiamondRow {
	return domain.DiamondRow{Carat: ptr(carat), Cut: ptr(cut), Color: ptr(color), Clarity: ptr(clarity), Price: ptr(price)}
}

func TestEncode_Layout(t *testing.T) {
	x, err := Encode(validDiamond())
	require.NoError(t, err)
	require.Len(t, x, Width)
	assert.Len(t, Columns(), Width)

	cols := Columns()
	hot := map[string]float64{}
	for i, v := range x {
		if v != 0 {
			hot[cols[i]] = v
		}
	}
	assert.Equal(t, map[string]float64{
		"intercept":   1,
		"carat":       0.7,
		"cut=Ideal":   1,
		"color=E":     1,
		"clarity=VS2": 1,
	}, hot)
}

func TestEncode_ReferenceLevelsHaveNoColumn(t *testing.T) {
	x, err := Encode(domain.Diamond{Carat: ptr(1.0), Cut: "Fair", Color: "J", Clarity: "I1"})
	require.NoError(t, err)

	sum := 0.0
	for _, v := range x[2:] {
		sum += v
	}
	assert.Zero(t, sum)
}

func TestEncode_Pure(t *testing.T) {
	d := validDiamond()
	first, err := Encode(d)
	require.NoError(t, err)
	second, err := Encode(d)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEncode_RowAndRequestAgree(t *testing.T) {
	r := row(0.7, "Ideal", "E", "VS2", 3000)
	x, y, err := Matrix([]domain.DiamondRow{r})
	require.NoError(t, err)

	fromRequest, err := Encode(validDiamond())
	require.NoError(t, err)
	assert.Equal(t, fromRequest, x[0])
	assert.Equal(t, []float64{3000}, y)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input domain.Diamond
		field string
	}{
		{"missing carat", domain.Diamond{Cut: "Ideal", Color: "E", Clarity: "VS2"}, "carat"},
		{"carat too small", domain.Diamond{Carat: ptr(0.1), Cut: "Ideal", Color: "E", Clarity: "VS2"}, "carat"},
		{"carat too large", domain.Diamond{Carat: ptr(6.0), Cut: "Ideal", Color: "E", Clarity: "VS2"}, "carat"},
		{"unknown cut", domain.Diamond{Carat: ptr(1.0), Cut: "Excellent", Color: "E", Clarity: "VS2"}, "cut"},
		{"missing color", domain.Diamond{Carat: ptr(1.0), Cut: "Good", Clarity: "VS2"}, "color"},
		{"unknown clarity", domain.Diamond{Carat: ptr(1.0), Cut: "Good", Color: "E", Clarity: "I3"}, "clarity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)

			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, tt.field)
		})
	}
}

func TestValidate_Boundaries(t *testing.T) {
	for _, c := range []float64{0.2, 5.01} {
		d := validDiamond()
		d.Carat = ptr(c)
		assert.NoError(t, Validate(d))
	}
}

func TestClean(t *testing.T) {
	rows := []domain.DiamondRow{
		row(0.5, "Good", "E", "SI1", 1500),
		{Carat: ptr(0.6), Cut: ptr("Good"), Color: nil, Clarity: ptr("SI1"), Price: ptr(1600.0)},
		row(0.5, "Good", "E", "SI1", 1500),
		row(0.9, "Excellent", "E", "SI1", 4000),
		row(1.1, "Premium", "G", "VS1", 6000),
	}

	kept, dropped := Clean(rows)
	assert.Equal(t, 3, dropped)
	require.Len(t, kept, 2)
	assert.Equal(t, 1500.0, *kept[0].Price)
	assert.Equal(t, 6000.0, *kept[1].Price)
}

func TestMatrix_RejectsIncompleteRow(t *testing.T) {
	_, _, err := Matrix([]domain.DiamondRow{{Carat: ptr(1.0)}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
