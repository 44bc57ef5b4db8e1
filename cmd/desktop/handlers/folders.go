package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/repstack/backend/internal/errors"
	"github.com/repstack/backend/internal/services"
)

// FolderHandler exposes folder CRUD over REST for the dev harness.
type FolderHandler struct {
	folders *services.FolderService
}

// NewFolderHandler creates a new FolderHandler.
func NewFolderHandler(folders *services.FolderService) *FolderHandler {
	return &FolderHandler{folders: folders}
}

type folderRequest struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Icon     string `json:"icon"`
	Position int    `json:"position"`
}

// Handle routes /folders and /folders/{id}.
func (h *FolderHandler) Handle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/folders")
	id = strings.Trim(id, "/")

	switch {
	case id == "" && r.Method == http.MethodGet:
		h.list(w)
	case id == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case id != "" && r.Method == http.MethodGet:
		h.get(w, id)
	case id != "" && r.Method == http.MethodPut:
		h.update(w, r, id)
	case id != "" && r.Method == http.MethodDelete:
		h.delete(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *FolderHandler) list(w http.ResponseWriter) {
	folders, err := h.folders.ListFolders()
	if err != nil {
		http.Error(w, "Failed to list folders", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"folders": folders})
}

func (h *FolderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.folders.CreateFolder(req.Name, req.Color, req.Icon, req.Position)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (h *FolderHandler) get(w http.ResponseWriter, id string) {
	folder, err := h.folders.GetFolder(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.folders.UpdateFolder(id, req.Name, req.Color, req.Icon, req.Position)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) delete(w http.ResponseWriter, id string) {
	if err := h.folders.DeleteFolder(id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps application error codes to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.ErrValidation, errors.ErrInvalid:
		status = http.StatusBadRequest
	case errors.ErrFolderNotFound, errors.ErrMacroNotFound, errors.ErrNotFound:
		status = http.StatusNotFound
	}

	writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"code":  string(errors.CodeOf(err)),
	})
}
