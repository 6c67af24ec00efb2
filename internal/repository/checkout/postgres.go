package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"giftdrive-storefront/internal/domain"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id::text, donor_key, cart_id, step, identity, client_secret, payment_intent_id, transaction_id, failure_reason, created_at, updated_at`

type postgresRepo struct {
	db DBPool
}

func NewPostgres(db DBPool) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Create(ctx context.Context, s domain.CheckoutSession) (*domain.CheckoutSession, error) {
	identity, err := marshalIdentity(s.Identity)
	if err != nil {
		return nil, err
	}
	q := `
INSERT INTO checkout_sessions (id, donor_key, cart_id, step, identity, client_secret, payment_intent_id, transaction_id, failure_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, q,
		s.ID, s.DonorKey, s.CartID, string(s.Step), identity,
		s.ClientSecret, s.PaymentIntentID, s.TransactionID, s.FailureReason,
	))
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	q := `
SELECT ` + sessionColumns + `
FROM checkout_sessions
WHERE id = $1
`
	return scanSession(r.db.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetActiveByDonor(ctx context.Context, donorKey string) (*domain.CheckoutSession, error) {
	q := `
SELECT ` + sessionColumns + `
FROM checkout_sessions
WHERE donor_key = $1 AND step NOT IN ('confirmed', 'failed')
ORDER BY updated_at DESC
LIMIT 1
`
	return scanSession(r.db.QueryRow(ctx, q, donorKey))
}

func (r *postgresRepo) Update(ctx context.Context, s domain.CheckoutSession) (*domain.CheckoutSession, error) {
	identity, err := marshalIdentity(s.Identity)
	if err != nil {
		return nil, err
	}
	q := `
UPDATE checkout_sessions
SET cart_id = $2,
    step = $3,
    identity = $4,
    client_secret = $5,
    payment_intent_id = $6,
    transaction_id = $7,
    failure_reason = $8,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, q,
		s.ID, s.CartID, string(s.Step), identity,
		s.ClientSecret, s.PaymentIntentID, s.TransactionID, s.FailureReason,
	))
}

func scanSession(row pgx.Row) (*domain.CheckoutSession, error) {
	var (
		s        domain.CheckoutSession
		step     string
		identity []byte
	)
	if err := row.Scan(
		&s.ID,
		&s.DonorKey,
		&s.CartID,
		&step,
		&identity,
		&s.ClientSecret,
		&s.PaymentIntentID,
		&s.TransactionID,
		&s.FailureReason,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	s.Step = domain.CheckoutStep(step)
	if len(identity) > 0 && string(identity) != "null" {
		var bi domain.BuyerIdentity
		if err := json.Unmarshal(identity, &bi); err != nil {
			return nil, fmt.Errorf("decode identity: %w", err)
		}
		s.Identity = &bi
	}
	return &s, nil
}

func marshalIdentity(bi *domain.BuyerIdentity) ([]byte, error) {
	if bi == nil {
		return nil, nil
	}
	raw, err := json.Marshal(bi)
	if err != nil {
		return nil, fmt.Errorf("encode identity: %w", err)
	}
	return raw, nil
}
