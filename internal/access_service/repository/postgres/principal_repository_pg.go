package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/domain"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool is the subset of *pgxpool.Pool the repository uses. Implemented by
// pgxmock in tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// maxCodeAttempts bounds referral-code regeneration when the generated code
// collides with an existing one. At 36^8 codes a single retry is already
// unlikely; hitting the bound means something is wrong with randomness.
const maxCodeAttempts = 5

const principalColumns = `telegram_id, username, first_name, last_name, referral_code,
       referred_by, is_active, coins, referral_count, created_at, updated_at`

type pgPrincipalRepository struct {
	db DBPool
}

// NewPgPrincipalRepository creates a Postgres-backed principal repository.
func NewPgPrincipalRepository(db DBPool) repository.PrincipalRepository {
	return &pgPrincipalRepository{db: db}
}

func (r *pgPrincipalRepository) Create(ctx context.Context, principal *domain.Principal) (*domain.Principal, error) {
	now := time.Now().UTC()
	principal.CreatedAt = now
	principal.UpdatedAt = now

	query := `
		INSERT INTO principals (telegram_id, username, first_name, last_name, referral_code,
		                        referred_by, is_active, coins, referral_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8, $9)
	`

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := domain.NewReferralCode()
		if err != nil {
			return nil, err
		}
		principal.ReferralCode = code
		principal.Coins = 0
		principal.ReferralCount = 0

		_, err = r.db.Exec(ctx, query,
			principal.TelegramID, principal.Username, principal.FirstName, principal.LastName,
			principal.ReferralCode, principal.ReferredBy, principal.IsActive,
			principal.CreatedAt, principal.UpdatedAt,
		)
		if err == nil {
			return principal, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "principals_referral_code_key" {
				// Code collision: generate a new one and retry.
				continue
			}
			return nil, domain.ErrDuplicatePrincipal
		}
		return nil, fmt.Errorf("failed to insert principal: %w", err)
	}
	return nil, fmt.Errorf("failed to assign a unique referral code after %d attempts", maxCodeAttempts)
}

func (r *pgPrincipalRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE telegram_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, telegramID))
}

func (r *pgPrincipalRepository) GetByReferralCode(ctx context.Context, code string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE referral_code = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, code))
}

func (r *pgPrincipalRepository) Activate(ctx context.Context, telegramID int64) error {
	query := `UPDATE principals SET is_active = TRUE, updated_at = $2 WHERE telegram_id = $1`
	tag, err := r.db.Exec(ctx, query, telegramID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to activate principal %d: %w", telegramID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPrincipalNotFound
	}
	return nil
}

func (r *pgPrincipalRepository) CreditReferrer(ctx context.Context, telegramID int64) (*domain.Principal, error) {
	// In-place increment: never computed from a prior read, so two
	// redemptions landing at once both count.
	query := `
		UPDATE principals
		SET coins = coins + 1, referral_count = referral_count + 1, updated_at = $2
		WHERE telegram_id = $1
		RETURNING ` + principalColumns
	return r.scanOne(r.db.QueryRow(ctx, query, telegramID, time.Now().UTC()))
}

func (r *pgPrincipalRepository) scanOne(row pgx.Row) (*domain.Principal, error) {
	p := &domain.Principal{}
	err := row.Scan(
		&p.TelegramID, &p.Username, &p.FirstName, &p.LastName, &p.ReferralCode,
		&p.ReferredBy, &p.IsActive, &p.Coins, &p.ReferralCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to scan principal: %w", err)
	}
	return p, nil
}
