package models

import (
	"encoding/json"
	"time"
)

type Strategy struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	Status         string          `json:"status"`
	IsPaper        bool            `json:"is_paper"`
	BaselineMethod string          `json:"baseline_method"`
	BudgetUSD      float64         `json:"budget_usd"`
	BuyMultiple    float64         `json:"buy_multiple"`
	SellMultiple   float64         `json:"sell_multiple"`
	TradingHours   json.RawMessage `json:"trading_hours"`
	Params         json.RawMessage `json:"params"`
	CreatedAt      time.Time       `json:"created_at"`
}

// StrategySpec is the caller-supplied part of a Strategy. Nil multipliers mean
// "unspecified" and default to 1.0; nil IsPaper defaults to true.
type StrategySpec struct {
	Name           string          `json:"name"`
	BaselineMethod string          `json:"baseline_method"`
	IsPaper        *bool           `json:"is_paper"`
	BudgetUSD      float64         `json:"budget_usd"`
	BuyMultiple    *float64        `json:"buy_multiple"`
	SellMultiple   *float64        `json:"sell_multiple"`
	TradingHours   json.RawMessage `json:"trading_hours"`
	Params         json.RawMessage `json:"params"`
}
