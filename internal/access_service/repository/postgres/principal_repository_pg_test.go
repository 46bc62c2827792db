package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var principalColumnList = []string{
	"telegram_id", "username", "first_name", "last_name", "referral_code",
	"referred_by", "is_active", "coins", "referral_count", "created_at", "updated_at",
}

func setupPrincipalTest(t *testing.T) (pgxmock.PgxPoolIface, func()) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mockPool, mockPool.Close
}

func principalRow(pool pgxmock.PgxPoolIface, p *domain.Principal) *pgxmock.Rows {
	return pool.NewRows(principalColumnList).AddRow(
		p.TelegramID, p.Username, p.FirstName, p.LastName, p.ReferralCode,
		p.ReferredBy, p.IsActive, p.Coins, p.ReferralCount, p.CreatedAt, p.UpdatedAt,
	)
}

func TestGetByTelegramID(t *testing.T) {
	mockPool, closePool := setupPrincipalTest(t)
	defer closePool()
	repo := NewPgPrincipalRepository(mockPool)

	expected := &domain.Principal{
		TelegramID:   42,
		FirstName:    "Anna",
		ReferralCode: "AAAA1111",
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	t.Run("Found", func(t *testing.T) {
		mockPool.ExpectQuery(`SELECT .+ FROM principals WHERE telegram_id = \$1`).
			WithArgs(int64(42)).
			WillReturnRows(principalRow(mockPool, expected))

		p, err := repo.GetByTelegramID(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, expected.TelegramID, p.TelegramID)
		assert.Equal(t, expected.ReferralCode, p.ReferralCode)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool.ExpectQuery(`SELECT .+ FROM principals WHERE telegram_id = \$1`).
			WithArgs(int64(99)).
			WillReturnRows(mockPool.NewRows(principalColumnList))

		_, err := repo.GetByTelegramID(context.Background(), 99)
		assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestGetByReferralCode(t *testing.T) {
	mockPool, closePool := setupPrincipalTest(t)
	defer closePool()
	repo := NewPgPrincipalRepository(mockPool)

	t.Run("NotFound", func(t *testing.T) {
		mockPool.ExpectQuery(`SELECT .+ FROM principals WHERE referral_code = \$1`).
			WithArgs("NOPE0000").
			WillReturnRows(mockPool.NewRows(principalColumnList))

		_, err := repo.GetByReferralCode(context.Background(), "NOPE0000")
		assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestCreate(t *testing.T) {
	referrerID := int64(100)

	t.Run("Success", func(t *testing.T) {
		mockPool, closePool := setupPrincipalTest(t)
		defer closePool()
		repo := NewPgPrincipalRepository(mockPool)

		mockPool.ExpectExec(`INSERT INTO principals`).
			WithArgs(int64(42), "anna", "Anna", "", pgxmock.AnyArg(), &referrerID, true,
				pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		created, err := repo.Create(context.Background(), &domain.Principal{
			TelegramID: 42,
			Username:   "anna",
			FirstName:  "Anna",
			ReferredBy: &referrerID,
			IsActive:   true,
		})
		require.NoError(t, err)
		assert.Len(t, created.ReferralCode, domain.ReferralCodeLength)
		assert.Zero(t, created.Coins)
		assert.Zero(t, created.ReferralCount)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DuplicateTelegramID", func(t *testing.T) {
		mockPool, closePool := setupPrincipalTest(t)
		defer closePool()
		repo := NewPgPrincipalRepository(mockPool)

		mockPool.ExpectExec(`INSERT INTO principals`).
			WithArgs(int64(42), "", "Anna", "", pgxmock.AnyArg(), (*int64)(nil), true,
				pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "principals_pkey"})

		_, err := repo.Create(context.Background(), &domain.Principal{
			TelegramID: 42, FirstName: "Anna", IsActive: true,
		})
		assert.ErrorIs(t, err, domain.ErrDuplicatePrincipal)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("CodeCollisionRetries", func(t *testing.T) {
		mockPool, closePool := setupPrincipalTest(t)
		defer closePool()
		repo := NewPgPrincipalRepository(mockPool)

		mockPool.ExpectExec(`INSERT INTO principals`).
			WithArgs(int64(42), "", "Anna", "", pgxmock.AnyArg(), (*int64)(nil), true,
				pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "principals_referral_code_key"})
		mockPool.ExpectExec(`INSERT INTO principals`).
			WithArgs(int64(42), "", "Anna", "", pgxmock.AnyArg(), (*int64)(nil), true,
				pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		created, err := repo.Create(context.Background(), &domain.Principal{
			TelegramID: 42, FirstName: "Anna", IsActive: true,
		})
		require.NoError(t, err)
		assert.Len(t, created.ReferralCode, domain.ReferralCodeLength)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestActivate(t *testing.T) {
	mockPool, closePool := setupPrincipalTest(t)
	defer closePool()
	repo := NewPgPrincipalRepository(mockPool)

	t.Run("Success", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE principals SET is_active = TRUE`).
			WithArgs(int64(42), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.Activate(context.Background(), 42))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE principals SET is_active = TRUE`).
			WithArgs(int64(99), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Activate(context.Background(), 99)
		assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestCreditReferrer(t *testing.T) {
	mockPool, closePool := setupPrincipalTest(t)
	defer closePool()
	repo := NewPgPrincipalRepository(mockPool)

	credited := &domain.Principal{
		TelegramID:    100,
		FirstName:     "Boris",
		ReferralCode:  "REFCODE1",
		IsActive:      true,
		Coins:         1,
		ReferralCount: 1,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	// The increment must happen in SQL, not be computed from a prior read.
	mockPool.ExpectQuery(`UPDATE principals\s+SET coins = coins \+ 1, referral_count = referral_count \+ 1`).
		WithArgs(int64(100), pgxmock.AnyArg()).
		WillReturnRows(principalRow(mockPool, credited))

	p, err := repo.CreditReferrer(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Coins)
	assert.Equal(t, 1, p.ReferralCount)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
