package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tupakrantina/backoffice/internal/external/webhook"
	"github.com/tupakrantina/backoffice/internal/leads"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

const maxFormBytes = 16 << 10

// LeadHandler serves the public lead capture endpoints
type LeadHandler struct {
	service *leads.Service
	logger  *logger.Logger
}

// NewLeadHandler creates a lead handler
func NewLeadHandler(service *leads.Service, log *logger.Logger) *LeadHandler {
	return &LeadHandler{service: service, logger: log}
}

// VerifyRequest is the body of a number check
type VerifyRequest struct {
	Number string `json:"number"`
}

// Submit validates, verifies and forwards a lead
// POST /api/leads
func (h *LeadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var form leads.Form
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	link, err := h.service.Submit(r.Context(), form, clientID(r))
	if err != nil {
		h.respondLeadError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"link":   link,
	})
}

// Verify checks whether a number has a WhatsApp account. A missing
// account is a regular answer, not an error.
// POST /api/whatsapp/verify
func (h *LeadHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.VerifyNumber(r.Context(), req.Number, clientID(r))
	if errors.Is(err, leads.ErrNumberNotFound) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"exists":  false,
			"number":  res.Number,
			"message": err.Error(),
		})
		return
	}
	if err != nil {
		h.respondLeadError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (h *LeadHandler) respondLeadError(w http.ResponseWriter, err error) {
	var verr *leads.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "Por favor, complete correctamente todos los campos.",
			"fields": verr.Fields,
		})
	case errors.Is(err, leads.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, leads.ErrRateLimited.Error())
	case errors.Is(err, leads.ErrNumberNotFound):
		respondError(w, http.StatusUnprocessableEntity, leads.ErrNumberNotFound.Error())
	case errors.Is(err, webhook.ErrNoLink):
		respondError(w, http.StatusBadGateway, webhook.ErrNoLink.Error())
	case errors.Is(err, leads.ErrVerificationFailed):
		respondError(w, http.StatusBadGateway, leads.ErrVerificationFailed.Error())
	case errors.Is(err, leads.ErrSubmitFailed):
		respondError(w, http.StatusBadGateway, leads.ErrSubmitFailed.Error())
	default:
		h.logger.WithError(err).Error("Unexpected lead error")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
