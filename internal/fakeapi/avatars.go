package fakeapi

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/model/avatar"
	"github.com/memoria-app/memoria/pkg/utils"
)

const maxUpload = 10 << 20

// avatarHandler avatar 资源的HTTP处理器
type avatarHandler struct {
	store  *Store
	logger *zap.Logger
}

func (h *avatarHandler) RegisterRoutes(r chi.Router) {
	r.Get("/avatars/", h.handleList)
	r.Post("/avatars/", h.handleCreate)
	r.Get("/avatars/{avatarID}/", h.handleGet)
	r.Post("/avatars/{avatarID}/finalize/", h.handleFinalize)
}

// handleList 列出当前用户的 avatar
func (h *avatarHandler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.store.ListAvatars(ownerFrom(r.Context())))
}

// handleCreate 解析 multipart 表单并创建草稿
func (h *avatarHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	fields := avatar.Fields{
		Name:         r.FormValue("name"),
		Relationship: r.FormValue("relationship"),
		Description:  r.FormValue("description"),
		Gender:       avatar.Gender(r.FormValue("gender")),
	}

	var imageName string
	file, header, err := r.FormFile("profile_image")
	switch {
	case err == nil:
		file.Close()
		imageName = filepath.Base(header.Filename)
	case !errors.Is(err, http.ErrMissingFile):
		utils.RespondError(w, http.StatusBadRequest, "invalid profile_image")
		return
	}

	created, err := h.store.CreateAvatar(ownerFrom(r.Context()), fields, imageName)
	var fieldErrs FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		utils.RespondFieldErrors(w, fieldErrs)
		return
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info("avatar draft stored", zap.Int64("avatar_id", created.ID), zap.Bool("has_image", imageName != ""))
	utils.RespondJSON(w, http.StatusCreated, created)
}

// handleGet 获取单个 avatar
func (h *avatarHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "avatarID")
	if !ok {
		return
	}

	item, err := h.store.GetAvatar(ownerFrom(r.Context()), id)
	if err != nil {
		utils.RespondDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}

// handleFinalize 将草稿转为 ready
func (h *avatarHandler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "avatarID")
	if !ok {
		return
	}

	item, err := h.store.FinalizeAvatar(ownerFrom(r.Context()), id)
	switch {
	case errors.Is(err, ErrAvatarNotFound):
		utils.RespondDetail(w, http.StatusNotFound, "Not found.")
		return
	case errors.Is(err, ErrImageRequired):
		utils.RespondError(w, http.StatusBadRequest, "Please upload at least one image")
		return
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "Avatar finalized",
		"avatar":  item,
	})
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondDetail(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}
