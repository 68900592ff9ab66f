package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zatekoja/viewingscheduler/internal/application/services"
)

// PostcodeValidator resolves a postcode and the trip to it from the office
type PostcodeValidator interface {
	ValidatePostcode(ctx context.Context, postcode string) (*services.PostcodeValidation, error)
}

// GeolocationHandler handles postcode endpoints.
type GeolocationHandler struct {
	validator PostcodeValidator
}

// NewGeolocationHandler creates a new geolocation handler.
func NewGeolocationHandler(validator PostcodeValidator) *GeolocationHandler {
	return &GeolocationHandler{validator: validator}
}

// ValidatePostcode handles POST /api/validate-postcode
func (h *GeolocationHandler) ValidatePostcode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Postcode string `json:"postcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	h.lookup(w, r, body.Postcode)
}

// LookupPostcode handles GET /api/postcodes/{postcode}
func (h *GeolocationHandler) LookupPostcode(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, r.PathValue("postcode"))
}

func (h *GeolocationHandler) lookup(w http.ResponseWriter, r *http.Request, postcode string) {
	postcode = strings.TrimSpace(postcode)
	if postcode == "" {
		respondWithError(w, http.StatusBadRequest, "postcode is required")
		return
	}

	result, err := h.validator.ValidatePostcode(r.Context(), postcode)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
