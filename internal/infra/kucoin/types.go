package kucoin

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// API paths (KuCoin futures v1).
const (
	stOrdersPath       = "/api/v1/st-orders"
	contractDetailPath = "/api/v1/contracts/"
	markPricePath      = "/api/v1/mark-price/%s/current"
	tickerPath         = "/api/v1/ticker"
)

// successCode is the embedded status the venue uses for accepted calls.
const successCode = "200000"

// apiResponse is the outer wrapper of every KuCoin reply.
type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// num accepts both JSON numbers and numeric strings; KuCoin mixes the
// two across endpoints.
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

func (n num) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(string(n))
}

func (n num) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// unmarshal decodes a data payload with error context.
func unmarshal(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("kucoin decode payload: %w. Body=%s", err, string(raw))
	}
	return nil
}

// contractDetail carries the instrument reference data we size and
// round against.
type contractDetail struct {
	Symbol     string `json:"symbol"`
	TickSize   num    `json:"tickSize"`
	LotSize    num    `json:"lotSize"`
	Multiplier num    `json:"multiplier"`
}

type markPriceData struct {
	Value      num `json:"value"`
	IndexPrice num `json:"indexPrice"`
}

type tickerData struct {
	Price           num `json:"price"`
	LastTradedPrice num `json:"lastTradedPrice"`
	IndexPrice      num `json:"indexPrice"`
}

// stOrderRequest is the single-call bracket order: market entry plus
// both protective triggers. Exactly one of ValueQty (notional) or
// Size (integer lots) is set.
type stOrderRequest struct {
	ClientOid            string `json:"clientOid"`
	Side                 string `json:"side"`
	Symbol               string `json:"symbol"`
	Type                 string `json:"type"`
	MarginMode           string `json:"marginMode"`
	ReduceOnly           bool   `json:"reduceOnly"`
	CloseOrder           bool   `json:"closeOrder"`
	Leverage             int    `json:"leverage,omitempty"`
	ValueQty             string `json:"valueQty,omitempty"`
	Size                 int64  `json:"size,omitempty"`
	StopPriceType        string `json:"stopPriceType,omitempty"`
	TriggerStopUpPrice   string `json:"triggerStopUpPrice,omitempty"`
	TriggerStopDownPrice string `json:"triggerStopDownPrice,omitempty"`
}
