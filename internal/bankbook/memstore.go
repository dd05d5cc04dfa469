package bankbook

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"fuel-station-go/internal/models"
)

// MemStore is an in-memory Store for tests and local development. A single
// mutex serializes units of work, so InTransaction gives the same
// all-or-nothing visibility as the postgres store: writes are staged and
// only applied when fn returns nil.
type MemStore struct {
	mu         sync.Mutex
	accounts   map[uint]models.Account
	txns       map[uint]models.BankTransaction
	nextAcctID uint
	nextTxnID  uint

	// FailAfterWrites, when >= 0, injects a write failure after that many
	// successful writes inside a unit. Used to prove abort leaves no
	// partial state.
	FailAfterWrites int
	FailErr         error
}

func NewMemStore() *MemStore {
	return &MemStore{
		accounts:        make(map[uint]models.Account),
		txns:            make(map[uint]models.BankTransaction),
		FailAfterWrites: -1,
	}
}

// memTx stages writes for one unit of work. The parent mutex is held for
// the unit's whole lifetime, so row locks degenerate to plain reads.
type memTx struct {
	store   *MemStore
	accts   map[uint]models.Account
	deleted map[uint]bool
	txns    []models.BankTransaction
	writes  int
}

func (m *MemStore) InTransaction(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{
		store:   m,
		accts:   make(map[uint]models.Account),
		deleted: make(map[uint]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id, a := range tx.accts {
		m.accounts[id] = a
	}
	for id := range tx.deleted {
		delete(m.accounts, id)
	}
	for _, t := range tx.txns {
		m.txns[t.ID] = t
	}
	return nil
}

func (m *MemStore) AccountByID(ctx context.Context, id uint) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accountByIDLocked(id)
}

func (m *MemStore) accountByIDLocked(id uint) (*models.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := a
	return &cp, nil
}

func (m *MemStore) AccountForUpdate(ctx context.Context, id uint) (*models.Account, error) {
	return m.AccountByID(ctx, id)
}

func (m *MemStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemStore) CreateAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAcctID++
	a.ID = m.nextAcctID
	m.accounts[a.ID] = *a
	return nil
}

func (m *MemStore) SaveAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return ErrAccountNotFound
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *MemStore) DeleteAccount(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *MemStore) FindAccountByNumber(ctx context.Context, number, bankName string, userID *uint) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findAccountByNumberLocked(number, bankName, userID)
}

func (m *MemStore) findAccountByNumberLocked(number, bankName string, userID *uint) (*models.Account, error) {
	for _, a := range m.accounts {
		if a.AccountNumber != number || a.BankName != bankName {
			continue
		}
		if userID != nil && (a.UserID == nil || *a.UserID != *userID) {
			continue
		}
		cp := a
		return &cp, nil
	}
	return nil, ErrAccountNotFound
}

func (m *MemStore) CreateTransaction(ctx context.Context, t *models.BankTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txnIDExistsLocked(t.TransactionID, nil) {
		return ErrDuplicateTransactionID
	}
	m.nextTxnID++
	t.ID = m.nextTxnID
	m.txns[t.ID] = *t
	return nil
}

func (m *MemStore) TransactionByID(ctx context.Context, id uint) (*models.BankTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := t
	return &cp, nil
}

func (m *MemStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.BankTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listTransactionsLocked(f), nil
}

func (m *MemStore) listTransactionsLocked(f TransactionFilter) []models.BankTransaction {
	out := make([]models.BankTransaction, 0)
	for _, t := range m.txns {
		if f.AccountID != 0 && t.AccountID != f.AccountID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if !f.Start.IsZero() && t.Date.Before(f.Start) {
			continue
		}
		if !f.End.IsZero() && t.Date.After(f.End) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func (m *MemStore) HasTransactions(ctx context.Context, accountID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) SumByType(ctx context.Context, accountID uint, txType string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sumByTypeLocked(accountID, txType), nil
}

func (m *MemStore) sumByTypeLocked(accountID uint, txType string) decimal.Decimal {
	total := decimal.Zero
	for _, t := range m.txns {
		if t.AccountID == accountID && t.Type == txType {
			total = total.Add(t.Amount)
		}
	}
	return total
}

func (m *MemStore) txnIDExistsLocked(transactionID string, staged []models.BankTransaction) bool {
	for _, t := range m.txns {
		if t.TransactionID == transactionID {
			return true
		}
	}
	for _, t := range staged {
		if t.TransactionID == transactionID {
			return true
		}
	}
	return false
}

// --- memTx: Store view inside a unit of work (parent mutex already held) ---

func (tx *memTx) failNextWrite() error {
	if tx.store.FailAfterWrites >= 0 && tx.writes >= tx.store.FailAfterWrites {
		if tx.store.FailErr != nil {
			return tx.store.FailErr
		}
		return errors.New("injected write failure")
	}
	tx.writes++
	return nil
}

func (tx *memTx) AccountByID(ctx context.Context, id uint) (*models.Account, error) {
	if tx.deleted[id] {
		return nil, ErrAccountNotFound
	}
	if a, ok := tx.accts[id]; ok {
		cp := a
		return &cp, nil
	}
	return tx.store.accountByIDLocked(id)
}

func (tx *memTx) AccountForUpdate(ctx context.Context, id uint) (*models.Account, error) {
	return tx.AccountByID(ctx, id)
}

func (tx *memTx) ListAccounts(ctx context.Context) ([]models.Account, error) {
	out := make([]models.Account, 0, len(tx.store.accounts))
	for id, a := range tx.store.accounts {
		if tx.deleted[id] {
			continue
		}
		if staged, ok := tx.accts[id]; ok {
			a = staged
		}
		out = append(out, a)
	}
	return out, nil
}

func (tx *memTx) CreateAccount(ctx context.Context, a *models.Account) error {
	if err := tx.failNextWrite(); err != nil {
		return err
	}
	tx.store.nextAcctID++
	a.ID = tx.store.nextAcctID
	tx.accts[a.ID] = *a
	return nil
}

func (tx *memTx) SaveAccount(ctx context.Context, a *models.Account) error {
	if err := tx.failNextWrite(); err != nil {
		return err
	}
	if _, ok := tx.store.accounts[a.ID]; !ok {
		if _, staged := tx.accts[a.ID]; !staged {
			return ErrAccountNotFound
		}
	}
	tx.accts[a.ID] = *a
	return nil
}

func (tx *memTx) DeleteAccount(ctx context.Context, id uint) error {
	if err := tx.failNextWrite(); err != nil {
		return err
	}
	if tx.deleted[id] {
		return ErrAccountNotFound
	}
	_, staged := tx.accts[id]
	_, exists := tx.store.accounts[id]
	if !staged && !exists {
		return ErrAccountNotFound
	}
	delete(tx.accts, id)
	tx.deleted[id] = true
	return nil
}

func (tx *memTx) FindAccountByNumber(ctx context.Context, number, bankName string, userID *uint) (*models.Account, error) {
	return tx.store.findAccountByNumberLocked(number, bankName, userID)
}

func (tx *memTx) CreateTransaction(ctx context.Context, t *models.BankTransaction) error {
	if tx.store.txnIDExistsLocked(t.TransactionID, tx.txns) {
		return ErrDuplicateTransactionID
	}
	if err := tx.failNextWrite(); err != nil {
		return err
	}
	tx.store.nextTxnID++
	t.ID = tx.store.nextTxnID
	tx.txns = append(tx.txns, *t)
	return nil
}

func (tx *memTx) TransactionByID(ctx context.Context, id uint) (*models.BankTransaction, error) {
	for _, t := range tx.txns {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	t, ok := tx.store.txns[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := t
	return &cp, nil
}

func (tx *memTx) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.BankTransaction, error) {
	return tx.store.listTransactionsLocked(f), nil
}

func (tx *memTx) HasTransactions(ctx context.Context, accountID uint) (bool, error) {
	for _, t := range tx.txns {
		if t.AccountID == accountID {
			return true, nil
		}
	}
	for _, t := range tx.store.txns {
		if t.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) SumByType(ctx context.Context, accountID uint, txType string) (decimal.Decimal, error) {
	return tx.store.sumByTypeLocked(accountID, txType), nil
}

func (tx *memTx) InTransaction(ctx context.Context, fn func(Store) error) error {
	// Nested units join the current one.
	return fn(tx)
}
