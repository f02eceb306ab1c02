package writer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"cryptonorm/models"
)

// Row layouts. Nullable unified fields map to OPTIONAL columns so an
// unknown value is stored as null rather than zero.

type TickerRow struct {
	Venue       string   `parquet:"name=venue, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol      string   `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp   *int64   `parquet:"name=timestamp, type=INT64, repetitiontype=OPTIONAL"`
	High        *float64 `parquet:"name=high, type=DOUBLE, repetitiontype=OPTIONAL"`
	Low         *float64 `parquet:"name=low, type=DOUBLE, repetitiontype=OPTIONAL"`
	Bid         *float64 `parquet:"name=bid, type=DOUBLE, repetitiontype=OPTIONAL"`
	Ask         *float64 `parquet:"name=ask, type=DOUBLE, repetitiontype=OPTIONAL"`
	Open        *float64 `parquet:"name=open, type=DOUBLE, repetitiontype=OPTIONAL"`
	Last        *float64 `parquet:"name=last, type=DOUBLE, repetitiontype=OPTIONAL"`
	Change      *float64 `parquet:"name=change, type=DOUBLE, repetitiontype=OPTIONAL"`
	Percentage  *float64 `parquet:"name=percentage, type=DOUBLE, repetitiontype=OPTIONAL"`
	BaseVolume  *float64 `parquet:"name=base_volume, type=DOUBLE, repetitiontype=OPTIONAL"`
	QuoteVolume *float64 `parquet:"name=quote_volume, type=DOUBLE, repetitiontype=OPTIONAL"`
	Info        string   `parquet:"name=info, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type TradeRow struct {
	Venue     string   `parquet:"name=venue, type=BYTE_ARRAY, convertedtype=UTF8"`
	ID        string   `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol    string   `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp *int64   `parquet:"name=timestamp, type=INT64, repetitiontype=OPTIONAL"`
	Side      string   `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price     *float64 `parquet:"name=price, type=DOUBLE, repetitiontype=OPTIONAL"`
	Amount    *float64 `parquet:"name=amount, type=DOUBLE, repetitiontype=OPTIONAL"`
	Cost      *float64 `parquet:"name=cost, type=DOUBLE, repetitiontype=OPTIONAL"`
	Order     string   `parquet:"name=order_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Info      string   `parquet:"name=info, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type OrderRow struct {
	Venue              string   `parquet:"name=venue, type=BYTE_ARRAY, convertedtype=UTF8"`
	ID                 string   `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol             string   `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp          *int64   `parquet:"name=timestamp, type=INT64, repetitiontype=OPTIONAL"`
	LastTradeTimestamp *int64   `parquet:"name=last_trade_timestamp, type=INT64, repetitiontype=OPTIONAL"`
	Side               string   `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status             string   `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price              *float64 `parquet:"name=price, type=DOUBLE, repetitiontype=OPTIONAL"`
	Cost               *float64 `parquet:"name=cost, type=DOUBLE, repetitiontype=OPTIONAL"`
	Average            *float64 `parquet:"name=average, type=DOUBLE, repetitiontype=OPTIONAL"`
	Amount             *float64 `parquet:"name=amount, type=DOUBLE, repetitiontype=OPTIONAL"`
	Filled             *float64 `parquet:"name=filled, type=DOUBLE, repetitiontype=OPTIONAL"`
	Remaining          *float64 `parquet:"name=remaining, type=DOUBLE, repetitiontype=OPTIONAL"`
	FeeCost            *float64 `parquet:"name=fee_cost, type=DOUBLE, repetitiontype=OPTIONAL"`
	FeeCurrency        string   `parquet:"name=fee_currency, type=BYTE_ARRAY, convertedtype=UTF8"`
	Info               string   `parquet:"name=info, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type TransactionRow struct {
	Venue     string   `parquet:"name=venue, type=BYTE_ARRAY, convertedtype=UTF8"`
	ID        string   `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp *int64   `parquet:"name=timestamp, type=INT64, repetitiontype=OPTIONAL"`
	Currency  string   `parquet:"name=currency, type=BYTE_ARRAY, convertedtype=UTF8"`
	Type      string   `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status    string   `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount    *float64 `parquet:"name=amount, type=DOUBLE, repetitiontype=OPTIONAL"`
	Address   string   `parquet:"name=address, type=BYTE_ARRAY, convertedtype=UTF8"`
	TxID      string   `parquet:"name=txid, type=BYTE_ARRAY, convertedtype=UTF8"`
	FeeCost   *float64 `parquet:"name=fee_cost, type=DOUBLE, repetitiontype=OPTIONAL"`
	Info      string   `parquet:"name=info, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// BookLevelRow is one price level of an order book snapshot. Level starts at
// 1 for the best price of each side.
type BookLevelRow struct {
	Venue     string  `parquet:"name=venue, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol    string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp *int64  `parquet:"name=timestamp, type=INT64, repetitiontype=OPTIONAL"`
	Side      string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level     int32   `parquet:"name=level, type=INT32"`
	Price     float64 `parquet:"name=price, type=DOUBLE"`
	Amount    float64 `parquet:"name=amount, type=DOUBLE"`
}

// memoryFileWriter implements source.ParquetFile on top of a buffer.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (m *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return m, nil }
func (m *memoryFileWriter) Open(name string) (source.ParquetFile, error) { return m, nil }

// Seek only reports the write position; the writer never seeks back.
func (m *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(m.buffer.Len()), nil
}

func (m *memoryFileWriter) Read(b []byte) (int, error) { return m.buffer.Read(b) }
func (m *memoryFileWriter) Write(b []byte) (int, error) { return m.buffer.Write(b) }
func (m *memoryFileWriter) Close() error { return nil }
func (m *memoryFileWriter) Bytes() []byte { return m.buffer.Bytes() }

func compressionCodec(name string) parquet.CompressionCodec {
	switch name {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "lzo":
		return parquet.CompressionCodec_LZO
	default:
		return parquet.CompressionCodec_UNCOMPRESSED
	}
}

func infoJSON(raw models.Raw) string {
	if raw == nil {
		return ""
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	return string(b)
}

// rowsFor flattens the records of batch into parquet rows and returns the
// schema object for them.
func rowsFor(batch models.Batch) (interface{}, []interface{}) {
	var rows []interface{}
	switch batch.Kind {
	case models.KindTicker:
		for _, t := range batch.Tickers {
			rows = append(rows, TickerRow{
				Venue: batch.Venue, Symbol: t.Symbol, Timestamp: t.Timestamp,
				High: t.High, Low: t.Low, Bid: t.Bid, Ask: t.Ask, Open: t.Open, Last: t.Last,
				Change: t.Change, Percentage: t.Percentage,
				BaseVolume: t.BaseVolume, QuoteVolume: t.QuoteVolume,
				Info: infoJSON(t.Info),
			})
		}
		return new(TickerRow), rows
	case models.KindTrade:
		for _, t := range batch.Trades {
			rows = append(rows, TradeRow{
				Venue: batch.Venue, ID: t.ID, Symbol: t.Symbol, Timestamp: t.Timestamp,
				Side: string(t.Side), Price: t.Price, Amount: t.Amount, Cost: t.Cost,
				Order: t.Order, Info: infoJSON(t.Info),
			})
		}
		return new(TradeRow), rows
	case models.KindOrder:
		for _, o := range batch.Orders {
			row := OrderRow{
				Venue: batch.Venue, ID: o.ID, Symbol: o.Symbol, Timestamp: o.Timestamp,
				LastTradeTimestamp: o.LastTradeTimestamp, Side: string(o.Side), Status: string(o.Status),
				Price: o.Price, Cost: o.Cost, Average: o.Average, Amount: o.Amount,
				Filled: o.Filled, Remaining: o.Remaining, Info: infoJSON(o.Info),
			}
			if o.Fee != nil {
				row.FeeCost, row.FeeCurrency = o.Fee.Cost, o.Fee.Currency
			}
			rows = append(rows, row)
		}
		return new(OrderRow), rows
	case models.KindTransaction:
		for _, tx := range batch.Transactions {
			row := TransactionRow{
				Venue: batch.Venue, ID: tx.ID, Timestamp: tx.Timestamp, Currency: tx.Currency,
				Type: string(tx.Type), Status: string(tx.Status), Amount: tx.Amount,
				Address: tx.Address, TxID: tx.TxID, Info: infoJSON(tx.Info),
			}
			if tx.Fee != nil {
				row.FeeCost = tx.Fee.Cost
			}
			rows = append(rows, row)
		}
		return new(TransactionRow), rows
	case models.KindOrderBook:
		for _, ob := range batch.OrderBooks {
			for i, l := range ob.Bids {
				rows = append(rows, BookLevelRow{Venue: batch.Venue, Symbol: ob.Symbol, Timestamp: ob.Timestamp, Side: "bid", Level: int32(i + 1), Price: l.Price(), Amount: l.Amount()})
			}
			for i, l := range ob.Asks {
				rows = append(rows, BookLevelRow{Venue: batch.Venue, Symbol: ob.Symbol, Timestamp: ob.Timestamp, Side: "ask", Level: int32(i + 1), Price: l.Price(), Amount: l.Amount()})
			}
		}
		return new(BookLevelRow), rows
	}
	return nil, nil
}

// encodeParquet writes rows with the given schema into an in-memory parquet
// file.
func encodeParquet(schema interface{}, rows []interface{}, compression string) ([]byte, error) {
	fw := newMemoryFileWriter()
	pw, err := writer.NewParquetWriter(fw, schema, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return fw.Bytes(), nil
}
