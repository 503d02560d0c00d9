package mexc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// API paths (MEXC spot v3, Binance-compatible surface).
const (
	orderPath        = "/api/v3/order"
	exchangeInfoPath = "/api/v3/exchangeInfo"
	listenKeyPath    = "/api/v3/userDataStream"
)

// Order lifecycle statuses that end an order.
const (
	statusFilled   = "FILLED"
	statusCanceled = "CANCELED"
)

// num accepts both JSON numbers and numeric strings.
type num string

func (n *num) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*n = num(s)
	return nil
}

func (n num) String() string { return string(n) }

func (n num) Decimal() (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// orderResponse is the shape of order placement and order query replies.
type orderResponse struct {
	OrderID             num    `json:"orderId"`
	Status              string `json:"status"`
	ExecutedQty         num    `json:"executedQty"`
	CummulativeQuoteQty num    `json:"cummulativeQuoteQty"`
	AvgPrice            num    `json:"avgPrice"`
}

// entryPrice derives the average fill price, preferring the explicit
// field and falling back to quote volume / quantity.
func (o *orderResponse) entryPrice() (decimal.Decimal, bool) {
	if px, ok := o.AvgPrice.Decimal(); ok && px.Sign() > 0 {
		return px, true
	}
	quote, okQ := o.CummulativeQuoteQty.Decimal()
	qty, okN := o.ExecutedQty.Decimal()
	if okQ && okN && qty.Sign() > 0 {
		return quote.Div(qty), true
	}
	return decimal.Zero, false
}

// exchangeInfoResponse carries the per-symbol precision data the tick
// grid is derived from.
type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol             string `json:"symbol"`
		QuotePrecision     int32  `json:"quotePrecision"`
		BaseAssetPrecision int32  `json:"baseAssetPrecision"`
	} `json:"symbols"`
}

type listenKeyResponse struct {
	ListenKey string `json:"listenKey"`
}

// executionReport is one private-stream order update.
type executionReport struct {
	Event   string `json:"e"`
	Symbol  string `json:"s"`
	OrderID num    `json:"i"`
	Status  string `json:"X"`
}

func (r *executionReport) terminal() bool {
	return r.Status == statusFilled || r.Status == statusCanceled
}

func jsonUnmarshal(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode mexc reply: %w", err)
	}
	return nil
}
