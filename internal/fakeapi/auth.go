package fakeapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/memoria-app/memoria/internal/model/auth"
	"github.com/memoria-app/memoria/pkg/utils"
)

const maxJSONBody = 1 << 20

type ownerKey struct{}

// ownerFrom 返回经过认证的用户名
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// RequireBearer 校验 Authorization: Bearer <token>，未通过返回 401
func RequireBearer(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				utils.RespondDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
				return
			}

			owner, ok := store.Authenticate(token)
			if !ok {
				utils.RespondDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
		})
	}
}

// authHandler 用户注册与登录
type authHandler struct {
	store *Store
}

func (h *authHandler) RegisterRoutes(r chi.Router) {
	r.Post("/users/register/", h.handleRegister)
	r.Post("/users/login/", h.handleLogin)
}

// handleRegister 注册并签发令牌
func (h *authHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := utils.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.store.Register(req)
	var fieldErrs FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		utils.RespondFieldErrors(w, fieldErrs)
		return
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"user":   map[string]string{"username": strings.TrimSpace(req.Username), "email": req.Email},
		"tokens": tokens,
	})
}

// handleLogin 校验密码并签发令牌
func (h *authHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := utils.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.store.Login(req.Username, req.Password)
	if err != nil {
		utils.RespondDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	utils.RespondJSON(w, http.StatusOK, tokens)
}
