package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/bistro-boss/internal/model"
	"github.com/mmeshcher/bistro-boss/internal/repository"
)

// ListMenu возвращает всё меню.
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListMenu(r.Context())
	if err != nil {
		h.writeError(w, "list menu", err)
		return
	}
	h.writeJSON(w, http.StatusOK, orEmpty(items))
}

// GetMenuItem возвращает блюдо по идентификатору; отсутствующее блюдо отдаётся как null.
func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetMenuItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.writeError(w, "get menu item", err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// CreateMenuItem добавляет блюдо в меню.
func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var item model.MenuItem
	if err := decodeJSON(w, r, &item); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res, err := h.service.CreateMenuItem(r.Context(), item)
	if err != nil {
		h.writeError(w, "create menu item", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// UpdateMenuItem изменяет поля блюда.
func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	var patch model.MenuItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res, err := h.service.UpdateMenuItem(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, "update menu item", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// DeleteMenuItem удаляет блюдо.
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.DeleteMenuItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "delete menu item", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// ListReviews возвращает отзывы.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListReviews(r.Context())
	if err != nil {
		h.writeError(w, "list reviews", err)
		return
	}
	h.writeJSON(w, http.StatusOK, orEmpty(reviews))
}
