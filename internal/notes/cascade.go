package notes

import (
	"fmt"
	"strings"

	"notes-go/internal/model"
)

// Folder operations

// CreateFolder creates a folder owned by actorID.
func (s *Service) CreateFolder(name, actorID string) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("folder name is required: %w", ErrInvalidInput)
	}
	if err := s.authz.Authorize(actorID, actorID, model.ActionCreate); err != nil {
		return nil, err
	}

	folder := &model.Folder{
		ID:        s.idgen.New(),
		OwnerID:   actorID,
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := s.database.CreateFolder(folder); err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}

	s.logger.Info("folder created", "folder", folder.ID)
	return folder, nil
}

// ListFolders returns the actor's folders that are not deleted.
func (s *Service) ListFolders(actorID string) ([]*model.Folder, error) {
	folders, err := s.database.FindActiveFoldersByOwner(actorID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return folders, nil
}

// DeleteFolder marks the folder deleted. Contained notes are not written;
// they disappear from every read path through IsVisible.
// Deleting an already-deleted folder succeeds without a write.
func (s *Service) DeleteFolder(folderID, actorID string) (*model.Folder, error) {
	folder, err := s.loadOwnedFolder(folderID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actorID, folder.OwnerID, model.ActionDelete); err != nil {
		return nil, err
	}
	if folder.DeletedAt != nil {
		return folder, nil
	}

	now := s.now()
	folder.DeletedAt = &now
	if err := s.database.SaveFolder(folder); err != nil {
		return nil, fmt.Errorf("deleting folder: %w", err)
	}

	s.logger.Info("folder deleted", "folder", folder.ID)
	return folder, nil
}

// RestoreFolder clears the folder's deletion mark. Notes that were deleted
// directly keep their own mark and stay hidden.
// Restoring a folder that is not deleted succeeds without a write.
func (s *Service) RestoreFolder(folderID, actorID string) (*model.Folder, error) {
	folder, err := s.loadOwnedFolder(folderID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actorID, folder.OwnerID, model.ActionDelete); err != nil {
		return nil, err
	}
	if folder.DeletedAt == nil {
		return folder, nil
	}

	folder.DeletedAt = nil
	if err := s.database.SaveFolder(folder); err != nil {
		return nil, fmt.Errorf("restoring folder: %w", err)
	}

	s.logger.Info("folder restored", "folder", folder.ID)
	return folder, nil
}

// ListFolderNotes returns the visible notes of a visible, owned folder.
func (s *Service) ListFolderNotes(folderID, actorID string) ([]*model.Note, error) {
	folder, err := s.loadOwnedFolder(folderID, actorID)
	if err != nil {
		return nil, err
	}
	if folder.DeletedAt != nil {
		return nil, fmt.Errorf("folder %s: %w", folderID, ErrNotFound)
	}
	if err := s.authz.Authorize(actorID, folder.OwnerID, model.ActionRead); err != nil {
		return nil, err
	}

	found, err := s.database.FindVisibleNotesByFolder(folder.ID)
	if err != nil {
		return nil, fmt.Errorf("listing folder notes: %w", err)
	}
	return visibleOnly(found), nil
}

// loadOwnedFolder returns the folder when it exists and is owned by actorID.
// Deleted folders are returned; callers decide whether that matters.
func (s *Service) loadOwnedFolder(folderID, actorID string) (*model.Folder, error) {
	folder, err := s.database.FindFolder(folderID)
	if err != nil {
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	if folder == nil || folder.OwnerID != actorID {
		return nil, fmt.Errorf("folder %s: %w", folderID, ErrNotFound)
	}
	return folder, nil
}

// Note operations

// CreateNote creates a note in folderID. A missing or deleted folder is
// ErrNotFound; a folder owned by someone else is ErrForbidden.
func (s *Service) CreateNote(folderID, content, actorID string) (*model.Note, error) {
	folder, err := s.database.FindFolder(folderID)
	if err != nil {
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	if folder == nil {
		return nil, fmt.Errorf("folder %s: %w", folderID, ErrNotFound)
	}
	if err := s.authz.Authorize(actorID, folder.OwnerID, model.ActionCreate); err != nil {
		return nil, err
	}
	if folder.DeletedAt != nil {
		return nil, fmt.Errorf("folder %s: %w", folderID, ErrNotFound)
	}

	now := s.now()
	note := &model.Note{
		ID:        s.idgen.New(),
		OwnerID:   actorID,
		FolderID:  folder.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		Folder:    folder,
	}
	if note.OwnerID != folder.OwnerID {
		return nil, fmt.Errorf("note owner must match folder owner: %w", ErrConflict)
	}
	if err := s.database.CreateNote(note); err != nil {
		return nil, fmt.Errorf("creating note: %w", err)
	}

	s.logger.Info("note created", "note", note.ID, "folder", folder.ID)
	return note, nil
}

// GetNote returns a visible note owned by actorID. Absent, not owned and
// hidden notes are all reported as ErrNotFound.
func (s *Service) GetNote(noteID, actorID string) (*model.Note, error) {
	note, err := s.loadVisibleNote(noteID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actorID, note.OwnerID, model.ActionRead); err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotes returns all visible notes owned by actorID.
func (s *Service) ListNotes(actorID string) ([]*model.Note, error) {
	found, err := s.database.FindVisibleNotesByOwner(actorID)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return visibleOnly(found), nil
}

// UpdateNote overwrites the content of a visible note.
func (s *Service) UpdateNote(noteID, content, actorID string) (*model.Note, error) {
	note, err := s.loadVisibleNote(noteID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actorID, note.OwnerID, model.ActionUpdate); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.database.UpdateNoteContent(note.ID, content, now); err != nil {
		return nil, fmt.Errorf("updating note: %w", err)
	}
	note.Content = content
	note.UpdatedAt = now
	return note, nil
}

// DeleteNote marks a visible note deleted. The mark belongs to the note and
// survives any later restore of its folder.
func (s *Service) DeleteNote(noteID, actorID string) (*model.Note, error) {
	note, err := s.loadVisibleNote(noteID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actorID, note.OwnerID, model.ActionDelete); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.database.SetNoteDeleted(note.ID, &now); err != nil {
		return nil, fmt.Errorf("deleting note: %w", err)
	}
	note.DeletedAt = &now

	s.logger.Info("note deleted", "note", note.ID)
	return note, nil
}

// RestoreNote clears a note's own deletion mark. Only directly deleted notes
// qualify: a note hidden solely by its folder is ErrNotFound here. If the
// folder is still deleted the restored note stays hidden.
func (s *Service) RestoreNote(noteID, actorID string) (*model.Note, error) {
	note, err := s.database.FindNote(noteID)
	if err != nil {
		return nil, fmt.Errorf("finding note: %w", err)
	}
	if note == nil || note.OwnerID != actorID || note.DeletedAt == nil {
		return nil, fmt.Errorf("note %s: %w", noteID, ErrNotFound)
	}
	if err := s.authz.Authorize(actorID, note.OwnerID, model.ActionDelete); err != nil {
		return nil, err
	}

	if err := s.database.SetNoteDeleted(note.ID, nil); err != nil {
		return nil, fmt.Errorf("restoring note: %w", err)
	}
	note.DeletedAt = nil

	s.logger.Info("note restored", "note", note.ID)
	return note, nil
}

// loadVisibleNote is the shared lookup of every owner read path.
func (s *Service) loadVisibleNote(noteID, actorID string) (*model.Note, error) {
	note, err := s.database.FindNote(noteID)
	if err != nil {
		return nil, fmt.Errorf("finding note: %w", err)
	}
	if note == nil || note.OwnerID != actorID || !IsVisible(note) {
		return nil, fmt.Errorf("note %s: %w", noteID, ErrNotFound)
	}
	return note, nil
}

func visibleOnly(found []*model.Note) []*model.Note {
	out := make([]*model.Note, 0, len(found))
	for _, n := range found {
		if IsVisible(n) {
			out = append(out, n)
		}
	}
	return out
}
