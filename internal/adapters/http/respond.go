package httpadapter

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"deedflow/internal/api"
	"deedflow/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func errorResponse(kind, message string, meta map[string]string) api.ErrorResponse {
	return api.ErrorResponse{Error: api.ErrorBody{Kind: kind, Message: message, Meta: meta}}
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindDealNotFound, domain.KindStepNotFound, domain.KindDocumentNotFound,
		domain.KindNotificationNotFound, domain.KindJobNotFound:
		return http.StatusNotFound
	case domain.KindInvalidTransition, domain.KindConflict:
		return http.StatusConflict
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindUnknownEventType:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		writeJSON(w, statusFor(de.Kind), errorResponse(string(de.Kind), de.Message, de.Meta))
		return
	}
	log.Printf("http: internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse("internal", "internal server error", nil))
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse("bad_request", message, nil))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
