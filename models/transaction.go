package models

import "time"

// TransactionKind distinguishes balance credits from debits.
type TransactionKind string

const (
	TransactionPayout   TransactionKind = "payout"
	TransactionPurchase TransactionKind = "purchase"
)

// Transaction is one journaled balance change.
type Transaction struct {
	ID           string          `bson:"_id" json:"id"`
	SessionID    string          `bson:"sessionId" json:"sessionId"`
	Kind         TransactionKind `bson:"kind" json:"kind"`
	Amount       Money           `bson:"amount" json:"amount"`
	BalanceAfter Money           `bson:"balanceAfter" json:"balanceAfter"`
	Reference    string          `bson:"reference,omitempty" json:"reference,omitempty"` // listing id or certificate type
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
}
