package checkout

import (
	"context"

	"giftdrive-storefront/internal/domain"
	"github.com/jackc/pgx/v5"
)

// DBPool is the subset of *pgxpool.Pool the repository needs.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	Create(ctx context.Context, s domain.CheckoutSession) (*domain.CheckoutSession, error)
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	GetActiveByDonor(ctx context.Context, donorKey string) (*domain.CheckoutSession, error)
	Update(ctx context.Context, s domain.CheckoutSession) (*domain.CheckoutSession, error)
}
