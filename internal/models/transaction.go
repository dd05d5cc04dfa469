package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionDeposit    = "deposit"
	TransactionWithdrawal = "withdrawal"
)

// BankTransaction is a posted deposit or withdrawal against one account.
// Amount, Type and AccountID are immutable once the row exists; only
// reconciliation metadata may change after posting.
type BankTransaction struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	TransactionID    string          `gorm:"uniqueIndex" json:"transaction_id"`
	AccountID        uint            `gorm:"index" json:"account_id"`
	Account          Account         `json:"-" gorm:"foreignKey:AccountID"`
	Amount           decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	Type             string          `json:"type"` // deposit or withdrawal
	Date             time.Time       `json:"date"`
	Description      string          `json:"description"`
	Category         string          `gorm:"default:Uncategorized" json:"category"`
	Reference        string          `json:"reference"`
	Notes            string          `json:"notes"`
	IsReconciled     bool            `gorm:"default:false" json:"is_reconciled"`
	IsTransfer       bool            `gorm:"default:false" json:"is_transfer"`
	RelatedAccountID *uint           `json:"related_account_id,omitempty"` // counterpart account on transfers
	Attachments      AttachmentList  `gorm:"type:jsonb" json:"attachments"`
	UserID           *uint           `json:"user_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Attachment is an uploaded receipt or statement linked to a transaction.
type Attachment struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	UploadDate time.Time `json:"upload_date"`
}

type AttachmentList []Attachment

func (al AttachmentList) Value() (driver.Value, error) {
	if len(al) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(al)
}

func (al *AttachmentList) Scan(value interface{}) error {
	if value == nil {
		*al = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for AttachmentList: %T", value)
	}
	if len(data) == 0 {
		*al = nil
		return nil
	}
	return json.Unmarshal(data, al)
}
