package handlers

import (
	"net/http"

	"craft-platform/models"
	"craft-platform/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

type DonationHandler struct {
	donations *services.DonationService
}

func NewDonationHandler(donations *services.DonationService) *DonationHandler {
	return &DonationHandler{donations: donations}
}

// Create records a donation and sends the receipt email.
func (h *DonationHandler) Create(e *core.RequestEvent) error {
	var req struct {
		DonorName     string  `json:"donor_name"`
		DonorEmail    string  `json:"donor_email"`
		Amount        float64 `json:"amount"`
		Currency      string  `json:"currency"`
		Frequency     string  `json:"frequency"`
		PaymentMethod string  `json:"payment_method"`
		TransactionID string  `json:"transaction_id"`
		AccountName   string  `json:"account_name"`
	}
	if err := e.BindBody(&req); err != nil {
		return apiError(err)
	}

	amount := decimal.NewFromFloat(req.Amount)
	donationReq := services.DonationRequest{
		DonorName:     req.DonorName,
		DonorEmail:    req.DonorEmail,
		Amount:        amount,
		Currency:      req.Currency,
		Frequency:     req.Frequency,
		PaymentMethod: req.PaymentMethod,
	}
	if req.TransactionID != "" || req.AccountName != "" {
		donationReq.Details = &models.PaymentDetails{
			TransactionID: req.TransactionID,
			AccountName:   req.AccountName,
			Amount:        amount,
		}
	}

	donation, err := h.donations.Create(e.Request.Context(), donationReq)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusCreated, donation)
}

// Status returns the review status for a donation reference.
func (h *DonationHandler) Status(e *core.RequestEvent) error {
	donationID := e.Request.PathValue("donationId")

	donation, err := h.donations.Status(e.Request.Context(), donationID)
	if err != nil {
		return apis.NewNotFoundError("Donation not found.", err)
	}
	return e.JSON(http.StatusOK, map[string]string{
		"reference": donation.Reference,
		"status":    donation.Status,
	})
}
