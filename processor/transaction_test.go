package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptonorm/models"
)

func TestParseTransactionPackedLabel(t *testing.T) {
	e := newTestEngine()
	raw := models.Raw{
		"Id":            "96974373",
		"Coin":          "DOGE",
		"Amount":        "483848.64312050",
		"TimeStamp":     "2017-09-29 08:10:09",
		"Label":         "483848.64312050;DJVJZ58tJC8UeUv9Tqcdtn6uhWobouxFLT;10.00000000",
		"TransactionId": "8563105276cf798385fee7e5a563c620fea639ab132b089ea880d4d1f4309432",
	}

	tx := e.ParseTransaction(raw, "")

	assert.Equal(t, "96974373", tx.ID)
	assert.Equal(t, "DOGE", tx.Currency)
	require.NotNil(t, tx.Amount)
	assert.Equal(t, 483848.6431205, *tx.Amount)
	assert.Equal(t, "DJVJZ58tJC8UeUv9Tqcdtn6uhWobouxFLT", tx.Address)
	require.NotNil(t, tx.Fee)
	assert.Equal(t, 10.0, *tx.Fee.Cost)
	assert.Equal(t, "DOGE", tx.Fee.Currency)
	assert.Equal(t, models.TransactionDeposit, tx.Type)
	assert.Equal(t, models.TransactionOK, tx.Status)
	assert.Equal(t, "8563105276cf798385fee7e5a563c620fea639ab132b089ea880d4d1f4309432", tx.TxID)
	assert.Equal(t, ms(venueTime, "2017-09-29 08:10:09"), *tx.Timestamp)
	assert.Equal(t, "", tx.Tag)
	assert.Nil(t, tx.Updated)
	assert.Equal(t, raw, tx.Info)
}

func TestParseTransactionCanceledWithdrawal(t *testing.T) {
	e := newTestEngine()
	raw := models.Raw{
		"Id":            "12",
		"Coin":          "PER",
		"Amount":        "-0.71200000",
		"TimeStamp":     "2017-11-22 22:29:05",
		"Label":         "0.71200000;PER9VM2txt4BTdfyWgvv3GziECRdVEPN63;0.00100000",
		"TransactionId": "CANCELED",
	}

	tx := e.ParseTransaction(raw, "")

	assert.Equal(t, models.TransactionCanceled, tx.Status)
	assert.Equal(t, "", tx.TxID)
	assert.Equal(t, models.TransactionWithdrawal, tx.Type)
	assert.Equal(t, 0.712, *tx.Amount)
	assert.Equal(t, "PER9VM2txt4BTdfyWgvv3GziECRdVEPN63", tx.Address)
	assert.Equal(t, 0.001, *tx.Fee.Cost)
}

func TestParseTransactionLabelPartCounts(t *testing.T) {
	e := newTestEngine()
	labels := []string{
		"DQqSjjhzCm3ozT4vAevMUHgv4vsi9LBkoE",
		"a;b",
		"1;b;2;3",
		"",
		";;;",
	}
	for _, label := range labels {
		tx := e.ParseTransaction(models.Raw{"Amount": "-5", "Label": label}, "DOGE")
		assert.Equal(t, label, tx.Address, label)
		assert.Nil(t, tx.Fee, label)
		assert.Equal(t, 5.0, *tx.Amount, label)
		assert.Equal(t, models.TransactionWithdrawal, tx.Type, label)
	}
}

func TestParseTransactionUnparseableLabelParts(t *testing.T) {
	e := newTestEngine()

	tx := e.ParseTransaction(models.Raw{"Amount": "3", "Label": "x;addr;y"}, "")
	assert.Equal(t, "addr", tx.Address)
	assert.Equal(t, 3.0, *tx.Amount)
	assert.Nil(t, tx.Fee)
}

func TestParseTransactionCurrency(t *testing.T) {
	e := newTestEngine()

	assert.Equal(t, "BTC", e.ParseTransaction(models.Raw{"Coin": "XBT"}, "ETH").Currency)
	assert.Equal(t, "ETH", e.ParseTransaction(models.Raw{}, "ETH").Currency)

	tx := e.ParseTransaction(models.Raw{}, "")
	assert.Nil(t, tx.Amount)
	assert.Nil(t, tx.Timestamp)
	assert.Equal(t, models.TransactionDeposit, tx.Type)
	assert.Equal(t, models.TransactionOK, tx.Status)
}
