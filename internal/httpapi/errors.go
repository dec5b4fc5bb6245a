package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nikolayk812/marketplace/internal/domain"
	"go.uber.org/zap"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// statusForCode maps every domain error code to an HTTP status. The switch
// is exhaustive over the closed code set; anything else is an internal
// error and stays opaque to the client.
func statusForCode(code domain.ErrorCode) int {
	switch code {
	case domain.CodeEmptyCart,
		domain.CodeProductUnavailable,
		domain.CodeInsufficientStock,
		domain.CodeUnlinkedProduct,
		domain.CodeInvalidStatusTransition,
		domain.CodeMustAcceptFirst,
		domain.CodeCannotCancel,
		domain.CodeInvalidPaymentSignature:
		return http.StatusBadRequest
	case domain.CodeOrderNotFound:
		return http.StatusNotFound
	case domain.CodeAccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		writeJSON(w, statusForCode(domainErr.Code), errorResponse{
			Error: errorBody{Code: string(domainErr.Code), Message: domainErr.Message},
		})
		return
	}

	h.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err))

	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: errorBody{Code: "INTERNAL", Message: "internal error"},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
