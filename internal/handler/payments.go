package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/bistro-boss/internal/model"
)

type paymentIntentRequest struct {
	Price float64 `json:"price"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// CreatePaymentIntent создаёт платёжное намерение у провайдера и возвращает client secret.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	secret, err := h.service.CreatePaymentIntent(r.Context(), req.Price)
	if err != nil {
		h.writeError(w, "create payment intent", err)
		return
	}
	h.writeJSON(w, http.StatusOK, paymentIntentResponse{ClientSecret: secret})
}

// FinalizePayment оформляет оплаченный заказ.
func (h *Handler) FinalizePayment(w http.ResponseWriter, r *http.Request) {
	var p model.Payment
	if err := decodeJSON(w, r, &p); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res, err := h.service.FinalizePayment(r.Context(), p)
	if err != nil {
		h.writeError(w, "finalize payment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// ListPayments возвращает историю оплат пользователя.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPayments(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeError(w, "list payments", err)
		return
	}
	h.writeJSON(w, http.StatusOK, orEmpty(payments))
}

// AdminStats возвращает сводку для панели администратора.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.AdminStats(r.Context())
	if err != nil {
		h.writeError(w, "admin stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// OrderStats возвращает продажи по категориям меню.
func (h *Handler) OrderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.OrderStats(r.Context())
	if err != nil {
		h.writeError(w, "order stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, orEmpty(stats))
}
