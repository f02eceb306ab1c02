package models

// TransactionType distinguishes deposits from withdrawals.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// TransactionStatus is the settlement state of a transfer.
type TransactionStatus string

const (
	TransactionOK       TransactionStatus = "ok"
	TransactionCanceled TransactionStatus = "canceled"
)

// Transaction is a unified deposit or withdrawal.
type Transaction struct {
	ID        string            `json:"id"`
	Timestamp *int64            `json:"timestamp"`
	Datetime  string            `json:"datetime,omitempty"`
	Currency  string            `json:"currency"`
	Amount    *float64          `json:"amount"`
	Address   string            `json:"address,omitempty"`
	Tag       string            `json:"tag,omitempty"`
	Status    TransactionStatus `json:"status"`
	Type      TransactionType   `json:"type"`
	Updated   *int64            `json:"updated"`
	TxID      string            `json:"txid,omitempty"`
	Fee       *Fee              `json:"fee"`
	Info      Raw               `json:"info"`
}
