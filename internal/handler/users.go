package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/bistro-boss/internal/model"
	"github.com/mmeshcher/bistro-boss/internal/repository"
)

type userExistsResponse struct {
	Message    string  `json:"message"`
	InsertedID *string `json:"insertedId"`
}

// CreateUser создаёт пользователя, если его ещё нет.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var u model.User
	if err := decodeJSON(w, r, &u); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res, err := h.service.CreateUser(r.Context(), u)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			h.writeJSON(w, http.StatusOK, userExistsResponse{Message: "User already exists"})
			return
		}
		h.writeError(w, "create user", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// ListUsers возвращает всех пользователей.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, "list users", err)
		return
	}
	h.writeJSON(w, http.StatusOK, orEmpty(users))
}

// CheckAdmin сообщает, является ли вызывающий администратором.
func (h *Handler) CheckAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.service.IsAdmin(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeError(w, "check admin", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"admin": admin})
}

// DeleteUser удаляет пользователя.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "delete user", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// PromoteUser назначает пользователя администратором.
func (h *Handler) PromoteUser(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.PromoteUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "promote user", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}
