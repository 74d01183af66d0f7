package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"trafikskolan/internal/auth"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
	"trafikskolan/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	Service *service.PaymentService
	Logger  *zap.Logger
}

func NewPaymentHandler(svc *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Service: svc, Logger: logger}
}

func (h *PaymentHandler) StartBookingPayment(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, httperr.ErrValidation("invalid booking id"))
		return
	}

	var req entities.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	resp, err := h.Service.StartBookingPayment(r.Context(), actor.UserID, actor.Role, id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, resp)
}

func (h *PaymentHandler) StartGroupBookingPayment(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if code == "" {
		respondError(w, httperr.ErrValidation("booking code is required"))
		return
	}

	var req entities.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, httperr.ErrValidation("invalid request body"))
		return
	}

	resp, err := h.Service.StartGroupBookingPayment(r.Context(), code, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, resp)
}

// SwishCallback receives Swish's server-to-server status push. Gateways
// retry on non-2xx, so only genuinely unprocessable payloads fail.
func (h *PaymentHandler) SwishCallback(w http.ResponseWriter, r *http.Request) {
	var cb entities.SwishCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		h.Logger.Warn("undecodable swish callback", zap.Error(err))
		respondError(w, httperr.ErrValidation("invalid callback body"))
		return
	}

	if err := h.Service.HandleSwishCallback(r.Context(), cb); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (h *PaymentHandler) QliroCallback(w http.ResponseWriter, r *http.Request) {
	var cb entities.QliroCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		h.Logger.Warn("undecodable qliro callback", zap.Error(err))
		respondError(w, httperr.ErrValidation("invalid callback body"))
		return
	}

	if err := h.Service.HandleQliroCallback(r.Context(), cb); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"CallbackResponse": "received"})
}
