package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"notes-go/internal/model"
	"notes-go/internal/notes"
)

// linkColumns selects a shared link, its comma-joined actions and its note
// (aliases l, n and f).
const linkColumns = `l.id, l.token, l.note_id, l.creator_id, l.created_at, l.expires_at, l.revoked_at,
	(SELECT group_concat(a.action, ',') FROM shared_link_actions a WHERE a.shared_link_id = l.id),
	` + noteColumns

const linkJoins = ` FROM shared_links l
	JOIN notes n ON n.id = l.note_id
	JOIN folders f ON f.id = n.folder_id`

func (s *SQLiteDatabase) CreateSharedLink(link *model.SharedLink) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", classify(err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO shared_links (id, token, note_id, creator_id, created_at, expires_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		link.ID, link.Token, link.NoteID, link.CreatorID, link.CreatedAt.UTC(),
		nullTime(link.ExpiresAt), nullTime(link.RevokedAt))
	if err != nil {
		if isUniqueViolation(err, "shared_links.token") {
			return notes.ErrDuplicateToken
		}
		return fmt.Errorf("inserting shared link: %w", classify(err))
	}

	for _, action := range link.Actions.Sorted() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO shared_link_actions (shared_link_id, action) VALUES (?, ?)`,
			link.ID, string(action))
		if err != nil {
			return fmt.Errorf("inserting shared link action %s: %w", action, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", classify(err))
	}
	return nil
}

func (s *SQLiteDatabase) FindSharedLinkByToken(token string) (*model.SharedLink, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+linkColumns+linkJoins+` WHERE l.token = ?`, token)
	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding shared link: %w", classify(err))
	}
	return link, nil
}

func (s *SQLiteDatabase) FindSharedLinksByCreator(creatorID string) ([]*model.SharedLink, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+linkColumns+linkJoins+` WHERE l.creator_id = ? ORDER BY l.created_at DESC, l.id DESC`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("listing shared links: %w", classify(err))
	}
	defer rows.Close()

	var result []*model.SharedLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning shared link: %w", err)
		}
		result = append(result, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing shared links: %w", classify(err))
	}
	return result, nil
}

func (s *SQLiteDatabase) SaveSharedLink(link *model.SharedLink) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE shared_links SET revoked_at = ? WHERE id = ?`,
		nullTime(link.RevokedAt), link.ID)
	if err != nil {
		return fmt.Errorf("updating shared link: %w", classify(err))
	}
	return requireRow(res, "shared link", link.ID)
}

func (s *SQLiteDatabase) DeleteExpiredLinksBefore(t time.Time) (int64, error) {
	ctx := context.Background()
	cutoff := t.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", classify(err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM shared_link_actions WHERE shared_link_id IN
			(SELECT id FROM shared_links WHERE expires_at IS NOT NULL AND expires_at < ?)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired link actions: %w", classify(err))
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM shared_links WHERE expires_at IS NOT NULL AND expires_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired links: %w", classify(err))
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", classify(err))
	}
	return deleted, nil
}

func scanLink(sc scanner) (*model.SharedLink, error) {
	var l model.SharedLink
	var expiresAt, revokedAt sql.NullTime
	var actions sql.NullString

	note, err := scanNote(sc,
		&l.ID, &l.Token, &l.NoteID, &l.CreatorID, &l.CreatedAt, &expiresAt, &revokedAt, &actions)
	if err != nil {
		return nil, err
	}

	l.CreatedAt = l.CreatedAt.UTC()
	l.ExpiresAt = timePtr(expiresAt)
	l.RevokedAt = timePtr(revokedAt)
	l.Actions = model.NewActionSet()
	if actions.Valid && actions.String != "" {
		for _, a := range strings.Split(actions.String, ",") {
			l.Actions[model.Action(a)] = struct{}{}
		}
	}
	l.Note = note
	return &l, nil
}
