package bankbook

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fuel-station-go/internal/models"
)

// GormStore is the postgres-backed Store. InTransaction maps onto a database
// transaction, so AccountForUpdate's row locks hold until commit.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) AccountByID(ctx context.Context, id uint) (*models.Account, error) {
	var a models.Account
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *GormStore) AccountForUpdate(ctx context.Context, id uint) (*models.Account, error) {
	var a models.Account
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, translatePgError(err)
	}
	return &a, nil
}

func (s *GormStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&accounts).Error
	return accounts, err
}

func (s *GormStore) CreateAccount(ctx context.Context, a *models.Account) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *GormStore) SaveAccount(ctx context.Context, a *models.Account) error {
	return translatePgError(s.db.WithContext(ctx).Save(a).Error)
}

func (s *GormStore) DeleteAccount(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Account{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *GormStore) FindAccountByNumber(ctx context.Context, number, bankName string, userID *uint) (*models.Account, error) {
	q := s.db.WithContext(ctx).Where("account_number = ? AND bank_name = ?", number, bankName)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var a models.Account
	if err := q.First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *GormStore) CreateTransaction(ctx context.Context, t *models.BankTransaction) error {
	err := s.db.WithContext(ctx).Create(t).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return ErrDuplicateTransactionID
	}
	return translatePgError(err)
}

func (s *GormStore) TransactionByID(ctx context.Context, id uint) (*models.BankTransaction, error) {
	var t models.BankTransaction
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.BankTransaction, error) {
	q := s.db.WithContext(ctx).Order("date desc, created_at desc")
	if f.AccountID != 0 {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("LOWER(category) = LOWER(?)", f.Category)
	}
	if !f.Start.IsZero() {
		q = q.Where("date >= ?", f.Start)
	}
	if !f.End.IsZero() {
		q = q.Where("date <= ?", f.End)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var txns []models.BankTransaction
	err := q.Find(&txns).Error
	return txns, err
}

func (s *GormStore) HasTransactions(ctx context.Context, accountID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.BankTransaction{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) SumByType(ctx context.Context, accountID uint, txType string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := s.db.WithContext(ctx).Model(&models.BankTransaction{}).
		Select("SUM(amount)").
		Where("account_id = ? AND type = ?", accountID, txType).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (s *GormStore) InTransaction(ctx context.Context, fn func(Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
	return translatePgError(err)
}

// translatePgError maps postgres serialization failures and deadlocks to
// ErrConcurrentModification so callers know the unit had no effect and can
// retry. Everything else passes through untouched.
func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ErrConcurrentModification
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
