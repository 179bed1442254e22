package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/bistro-boss/internal/model"
)

// ListCartItems возвращает корзину пользователя по параметру email.
func (h *Handler) ListCartItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListCartItems(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.writeError(w, "list cart", err)
		return
	}
	h.writeJSON(w, http.StatusOK, orEmpty(items))
}

// AddCartItem добавляет позицию в корзину.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var item model.CartItem
	if err := decodeJSON(w, r, &item); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res, err := h.service.AddCartItem(r.Context(), item)
	if err != nil {
		h.writeError(w, "add cart item", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// DeleteCartItem удаляет позицию корзины.
func (h *Handler) DeleteCartItem(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.DeleteCartItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "delete cart item", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}
