package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Donation struct {
	ID             string          `json:"id"`
	Reference      string          `json:"reference"`
	DonorName      string          `json:"donor_name"`
	DonorEmail     string          `json:"donor_email"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Frequency      string          `json:"frequency"` // once, monthly
	PaymentMethod  string          `json:"payment_method"`
	PaymentDetails *PaymentDetails `json:"payment_details,omitempty"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}
