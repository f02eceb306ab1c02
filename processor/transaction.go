package processor

import (
	"strings"

	"cryptonorm/internal/extract"
	"cryptonorm/models"
)

// ParseTransaction converts one deposit or withdrawal. A negative amount marks
// a withdrawal and is reported as its magnitude. currency is the unified code
// used when the record carries no currency of its own.
//
// The label either packs "amount;address;fee" or holds the address alone.
// Exactly three parts select the packed form; any other count is an address.
func (e *Engine) ParseTransaction(raw models.Raw, currency string) models.Transaction {
	f := e.profile.Transactions

	id, _ := extract.String(raw, f.ID)

	amount := e.float(raw, models.KindTransaction, f.Amount)
	txType := models.TransactionDeposit
	if amount != nil && *amount < 0 {
		amount = abs(amount)
		txType = models.TransactionWithdrawal
	}

	code := currency
	if c, ok := extract.String(raw, f.Currency); ok {
		code = e.resolver.Currency(c)
	}

	ts := e.timestamp(raw, models.KindTransaction, f.Timestamp, false)

	label, _ := extract.String(raw, f.Label)
	address := label
	var fee *models.Fee
	if parts := strings.Split(label, e.profile.LabelSeparator); len(parts) == 3 {
		if packed := extract.ParseFloat(parts[0]); packed != nil {
			amount = packed
		} else {
			e.degraded(models.KindTransaction, f.Label, label)
		}
		address = parts[1]
		if cost := extract.ParseFloat(parts[2]); cost != nil {
			fee = &models.Fee{Cost: cost, Currency: code}
		} else {
			e.degraded(models.KindTransaction, f.Label, label)
		}
	}

	status := models.TransactionOK
	txid, _ := extract.String(raw, f.TxID)
	if e.profile.CanceledTxID != "" && txid == e.profile.CanceledTxID {
		txid = ""
		status = models.TransactionCanceled
	}

	return models.Transaction{
		ID:        id,
		Timestamp: ts,
		Datetime:  extract.ISO8601(ts),
		Currency:  code,
		Amount:    amount,
		Address:   address,
		Status:    status,
		Type:      txType,
		TxID:      txid,
		Fee:       fee,
		Info:      raw,
	}
}
