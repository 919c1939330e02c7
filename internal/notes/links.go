package notes

import (
	"errors"
	"fmt"
	"time"

	"notes-go/internal/model"
)

// maxTokenAttempts bounds token regeneration after a uniqueness collision.
const maxTokenAttempts = 5

// EvaluateLink derives the admission state of link for action at now.
// Checks run in a fixed order and the first failing one wins, so a link
// that is both revoked and deleted always reports revocation.
func EvaluateLink(link *model.SharedLink, action model.Action, now time.Time) LinkState {
	switch {
	case link.RevokedAt != nil:
		return LinkRevoked
	case link.ExpiresAt != nil && !link.ExpiresAt.After(now):
		return LinkExpired
	case !link.Actions.Contains(action):
		return LinkActionDenied
	case noteDeleted(link.Note):
		return LinkNoteDeleted
	case folderDeleted(link.Note):
		return LinkFolderDeleted
	default:
		return LinkValid
	}
}

// CreateLink issues a shared link for a visible note owned by actorID.
// An empty action set grants READ only. expiresAt, when given, must lie in the future.
func (s *Service) CreateLink(noteID, actorID string, actions []model.Action, expiresAt *time.Time) (*model.SharedLink, error) {
	note, err := s.loadVisibleNote(noteID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actorID, note.OwnerID, model.ActionShare); err != nil {
		return nil, err
	}

	set := model.NewActionSet(actions...)
	if len(set) == 0 {
		set = model.NewActionSet(model.ActionRead)
	}
	for a := range set {
		if !a.Known() {
			return nil, fmt.Errorf("unknown action %q: %w", a, ErrInvalidInput)
		}
	}

	now := s.now()
	if expiresAt != nil {
		at := expiresAt.UTC()
		if !at.After(now) {
			return nil, fmt.Errorf("expiry must be in the future: %w", ErrInvalidInput)
		}
		expiresAt = &at
	}

	for attempt := 1; ; attempt++ {
		token, err := s.tokens.NewToken()
		if err != nil {
			return nil, fmt.Errorf("generating token: %w", err)
		}

		link := &model.SharedLink{
			ID:        s.idgen.New(),
			Token:     token,
			NoteID:    note.ID,
			CreatorID: actorID,
			Actions:   set,
			CreatedAt: now,
			ExpiresAt: expiresAt,
			Note:      note,
		}
		err = s.database.CreateSharedLink(link)
		if err == nil {
			s.logger.Info("shared link created", "link", link.ID, "note", note.ID)
			return link, nil
		}
		if !errors.Is(err, ErrDuplicateToken) || attempt >= maxTokenAttempts {
			return nil, fmt.Errorf("creating shared link: %w", err)
		}
		s.logger.Warn("shared link token collision, regenerating", "attempt", attempt)
	}
}

// ValidateLink runs the admission chain for token and action.
// An unknown token is ErrNotFound; every other rejection is a *LinkError.
func (s *Service) ValidateLink(token string, action model.Action) (*model.SharedLink, error) {
	link, err := s.database.FindSharedLinkByToken(token)
	if err != nil {
		return nil, fmt.Errorf("finding shared link: %w", err)
	}
	if link == nil {
		return nil, fmt.Errorf("invalid link: %w", ErrNotFound)
	}
	if state := EvaluateLink(link, action, s.clock.Now()); state != LinkValid {
		return nil, &LinkError{State: state}
	}
	return link, nil
}

// RevokeLink marks a link revoked. Only the owner of the bound note may
// revoke it. Revoking an already-revoked link is a no-op.
func (s *Service) RevokeLink(token, actorID string) (*model.SharedLink, error) {
	link, err := s.database.FindSharedLinkByToken(token)
	if err != nil {
		return nil, fmt.Errorf("finding shared link: %w", err)
	}
	if link == nil {
		return nil, fmt.Errorf("invalid link: %w", ErrNotFound)
	}

	ownerID := link.CreatorID
	if link.Note != nil {
		ownerID = link.Note.OwnerID
	}
	if err := s.authz.Authorize(actorID, ownerID, model.ActionShare); err != nil {
		return nil, err
	}
	if link.RevokedAt != nil {
		return link, nil
	}

	now := s.now()
	link.RevokedAt = &now
	if err := s.database.SaveSharedLink(link); err != nil {
		return nil, fmt.Errorf("revoking shared link: %w", err)
	}

	s.logger.Info("shared link revoked", "link", link.ID)
	return link, nil
}

// ListLinks returns the links created by actorID.
func (s *Service) ListLinks(actorID string) ([]*model.SharedLink, error) {
	links, err := s.database.FindSharedLinksByCreator(actorID)
	if err != nil {
		return nil, fmt.Errorf("listing shared links: %w", err)
	}
	return links, nil
}

// ReadViaLink returns the note bound to a link that grants READ.
func (s *Service) ReadViaLink(token string) (*model.Note, error) {
	link, err := s.ValidateLink(token, model.ActionRead)
	if err != nil {
		return nil, err
	}
	s.logger.Info("shared link accessed", "link", link.ID)
	return link.Note, nil
}

// UpdateViaLink overwrites the bound note's content through a link that
// grants UPDATE. The token is the capability: no owner check is made, but
// the deletion gate of ValidateLink still applies, and the write itself is
// refused if the note or its folder was deleted after validation. A nil
// content leaves the note unchanged.
func (s *Service) UpdateViaLink(token string, content *string) (*model.Note, error) {
	link, err := s.ValidateLink(token, model.ActionUpdate)
	if err != nil {
		return nil, err
	}

	note := link.Note
	if content == nil {
		return note, nil
	}

	now := s.now()
	if err := s.database.UpdateNoteContent(note.ID, *content, now); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, s.hiddenSince(note.ID, err)
		}
		return nil, fmt.Errorf("updating note via shared link: %w", err)
	}
	note.Content = *content
	note.UpdatedAt = now

	s.logger.Info("shared link updated note", "link", link.ID, "note", note.ID)
	return note, nil
}

// hiddenSince reports why a note that passed validation refused a write.
func (s *Service) hiddenSince(noteID string, cause error) error {
	current, err := s.database.FindNote(noteID)
	if err != nil {
		return fmt.Errorf("finding note: %w", err)
	}
	switch {
	case current == nil:
		return fmt.Errorf("note %s: %w", noteID, cause)
	case noteDeleted(current):
		return &LinkError{State: LinkNoteDeleted}
	case folderDeleted(current):
		return &LinkError{State: LinkFolderDeleted}
	default:
		return fmt.Errorf("updating note via shared link: %w", cause)
	}
}
