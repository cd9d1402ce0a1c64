package models

import "time"

// PriceTick is a live spot price update from a streaming source.
type PriceTick struct {
	Symbol    string
	Price     float64
	Timestamp time.Time
}
