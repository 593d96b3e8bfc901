package domain

import "github.com/shopspring/decimal"

type Item struct {
	ID    int64           `json:"itemId"`
	Name  string          `json:"itemName"`
	Price decimal.Decimal `json:"itemPrice"`
}
