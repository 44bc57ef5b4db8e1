package services

import (
	"strings"
	"time"

	"github.com/repstack/backend/internal/db"
	"github.com/repstack/backend/internal/errors"
	"github.com/repstack/backend/internal/models"
	syncpkg "github.com/repstack/backend/internal/sync"
	"github.com/repstack/backend/internal/uuid"
)

// FolderService manages routine folders.
type FolderService struct {
	repo       *db.Repository
	dispatcher Dispatcher
}

func (s *FolderService) dispatch(code syncpkg.MutationCode, payload interface{}) {
	dispatchMutation(s.dispatcher, code, payload)
}

// NewFolderService creates a FolderService.
func NewFolderService(repo *db.Repository, dispatcher Dispatcher) *FolderService {
	return &FolderService{repo: repo, dispatcher: dispatcher}
}

// CreateFolder validates and persists a new folder, then dispatches the
// mutation. The returned folder reflects the committed local row.
func (s *FolderService) CreateFolder(name, color, icon string, position int) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.ErrValidation, "folder name must not be empty")
	}

	now := time.Now().Unix()
	folder := &models.Folder{
		ID:        models.UUID(uuid.New()),
		Name:      name,
		Color:     color,
		Icon:      icon,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateFolder(folder); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to create folder", err)
	}

	s.dispatch(syncpkg.CodeFolderCreate, syncpkg.FolderPayload{
		ID:       folder.ID,
		Name:     folder.Name,
		Color:    folder.Color,
		Icon:     folder.Icon,
		Position: folder.Position,
	})

	return folder, nil
}

// UpdateFolder applies new attributes to an existing folder.
func (s *FolderService) UpdateFolder(id string, name, color, icon string, position int) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.ErrValidation, "folder name must not be empty")
	}

	folder, err := s.repo.GetFolder(id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrFolderNotFound, "folder not found", err)
	}

	folder.Name = name
	folder.Color = color
	folder.Icon = icon
	folder.Position = position
	folder.UpdatedAt = time.Now().Unix()

	if err := s.repo.UpdateFolder(folder); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to update folder", err)
	}

	s.dispatch(syncpkg.CodeFolderUpdate, syncpkg.FolderPayload{
		ID:       folder.ID,
		Name:     folder.Name,
		Color:    folder.Color,
		Icon:     folder.Icon,
		Position: folder.Position,
	})

	return folder, nil
}

// DeleteFolder removes a folder. Routines inside it revert to the
// unfiled state via the schema's ON DELETE SET NULL.
func (s *FolderService) DeleteFolder(id string) error {
	if err := s.repo.DeleteFolder(id); err != nil {
		return errors.Wrap(errors.ErrFolderNotFound, "folder not found", err)
	}

	s.dispatch(syncpkg.CodeFolderDelete, syncpkg.DeletePayload{ID: models.UUID(id)})
	return nil
}

// GetFolder returns one folder by ID.
func (s *FolderService) GetFolder(id string) (*models.Folder, error) {
	folder, err := s.repo.GetFolder(id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrFolderNotFound, "folder not found", err)
	}
	return folder, nil
}

// ListFolders returns all folders in display order.
func (s *FolderService) ListFolders() ([]*models.Folder, error) {
	return s.repo.ListFolders()
}
