package domain

// Diamond is the attribute set a price is predicted from.
type Diamond struct {
	Carat   *float64 `json:"carat" validate:"required,gte=0.2,lte=5.01"`
	Cut     string   `json:"cut" validate:"required,cut"`
	Color   string   `json:"color" validate:"required,color"`
	Clarity string   `json:"clarity" validate:"required,clarity"`
}

// DiamondRow is one labeled row of the training dataset.
// Nil fields are NULL columns in the source table.
type DiamondRow struct {
	Carat   *float64
	Cut     *string
	Color   *string
	Clarity *string
	Price   *float64
}

// Complete reports whether every column of the row is set.
func (r DiamondRow) Complete() bool {
	return r.Carat != nil && r.Cut != nil && r.Color != nil && r.Clarity != nil && r.Price != nil
}

// Diamond returns the feature part of a complete row.
func (r DiamondRow) Diamond() Diamond {
	d := Diamond{Carat: r.Carat}
	if r.Cut != nil {
		d.Cut = *r.Cut
	}
	if r.Color != nil {
		d.Color = *r.Color
	}
	if r.Clarity != nil {
		d.Clarity = *r.Clarity
	}
	return d
}
