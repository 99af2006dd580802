package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"diamond-price-service/internal/core/domain"
	ports "diamond-price-service/internal/core/ports/output"
)

const undefinedTable = "42P01"

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type diamondRepo struct {
	db Querier
}

func NewDiamondRepository(db Querier) ports.DiamondSource {
	return &diamondRepo{db: db}
}

func (r *diamondRepo) LoadDiamonds(ctx context.Context) ([]domain.DiamondRow, error) {
	query := `SELECT carat, cut, color, clarity, price FROM diamonds`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, wrapSourceError(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DiamondRow, error) {
		var d domain.DiamondRow
		err := row.Scan(&d.Carat, &d.Cut, &d.Color, &d.Clarity, &d.Price)
		return d, err
	})
	if err != nil {
		return nil, wrapSourceError(err)
	}
	return out, nil
}

func wrapSourceError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: table diamonds does not exist: %v", domain.ErrDataSource, err)
	}
	return fmt.Errorf("%w: load diamonds: %v", domain.ErrDataSource, err)
}
