package notes_test

import (
	"errors"
	"testing"
	"time"

	"notes-go/internal/notes"
)

func TestCascade_FolderRestoreKeepsDirectDeletes(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com")
	folder := f.folder(t, a, "F")
	n1 := f.note(t, folder, "N1")
	n2 := f.note(t, folder, "N2")

	if _, err := f.svc.DeleteNote(n1.ID, a.ID); err != nil {
		t.Fatalf("DeleteNote(N1) error = %v", err)
	}
	if _, err := f.svc.DeleteFolder(folder.ID, a.ID); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}
	if f.visible(t, n2) {
		t.Error("N2 visible while its folder is deleted")
	}

	if _, err := f.svc.RestoreFolder(folder.ID, a.ID); err != nil {
		t.Fatalf("RestoreFolder() error = %v", err)
	}
	if f.visible(t, n1) {
		t.Error("N1 visible after folder restore, want hidden")
	}
	if !f.visible(t, n2) {
		t.Error("N2 hidden after folder restore, want visible")
	}
}

func TestCascade_FolderDeleteDoesNotTouchNotes(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com")
	folder := f.folder(t, a, "F")
	n := f.note(t, folder, "N")

	if _, err := f.svc.DeleteFolder(folder.ID, a.ID); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}

	stored, err := f.db.FindNote(n.ID)
	if err != nil {
		t.Fatalf("FindNote() error = %v", err)
	}
	if stored.DeletedAt != nil {
		t.Errorf("note DeletedAt = %v after folder delete, want nil", stored.DeletedAt)
	}
	if !stored.UpdatedAt.Equal(n.UpdatedAt) {
		t.Errorf("note UpdatedAt changed from %v to %v", n.UpdatedAt, stored.UpdatedAt)
	}
	if stored.Folder.DeletedAt == nil {
		t.Error("folder DeletedAt not set")
	}
}

func TestCascade_RestoreNote(t *testing.T) {
	t.Run("hidden only by folder is not found", func(t *testing.T) {
		f := newFixture(t)
		a := f.user(t, "a@example.com")
		folder := f.folder(t, a, "F")
		n := f.note(t, folder, "N")

		if _, err := f.svc.DeleteFolder(folder.ID, a.ID); err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}
		if _, err := f.svc.RestoreNote(n.ID, a.ID); !errors.Is(err, notes.ErrNotFound) {
			t.Errorf("RestoreNote() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("restored note in deleted folder stays hidden", func(t *testing.T) {
		f := newFixture(t)
		a := f.user(t, "a@example.com")
		folder := f.folder(t, a, "F")
		n := f.note(t, folder, "N")

		if _, err := f.svc.DeleteNote(n.ID, a.ID); err != nil {
			t.Fatalf("DeleteNote() error = %v", err)
		}
		if _, err := f.svc.DeleteFolder(folder.ID, a.ID); err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}

		restored, err := f.svc.RestoreNote(n.ID, a.ID)
		if err != nil {
			t.Fatalf("RestoreNote() error = %v", err)
		}
		if restored.DeletedAt != nil {
			t.Errorf("DeletedAt = %v, want nil", restored.DeletedAt)
		}
		if f.visible(t, n) {
			t.Error("note visible while folder is deleted")
		}

		if _, err := f.svc.RestoreFolder(folder.ID, a.ID); err != nil {
			t.Fatalf("RestoreFolder() error = %v", err)
		}
		if !f.visible(t, n) {
			t.Error("note hidden after both restores")
		}
	})

	t.Run("not deleted is not found", func(t *testing.T) {
		f := newFixture(t)
		a := f.user(t, "a@example.com")
		n := f.note(t, f.folder(t, a, "F"), "N")

		if _, err := f.svc.RestoreNote(n.ID, a.ID); !errors.Is(err, notes.ErrNotFound) {
			t.Errorf("RestoreNote() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("other owner is not found", func(t *testing.T) {
		f := newFixture(t)
		a := f.user(t, "a@example.com")
		b := f.user(t, "b@example.com")
		n := f.note(t, f.folder(t, a, "F"), "N")
		if _, err := f.svc.DeleteNote(n.ID, a.ID); err != nil {
			t.Fatalf("DeleteNote() error = %v", err)
		}

		if _, err := f.svc.RestoreNote(n.ID, b.ID); !errors.Is(err, notes.ErrNotFound) {
			t.Errorf("RestoreNote() error = %v, want ErrNotFound", err)
		}
	})
}

func TestCascade_GetNoteConflatesMissingAndForeign(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")
	n := f.note(t, f.folder(t, a, "F"), "N")

	tests := []struct {
		name   string
		noteID string
		actor  string
	}{
		{"missing", "no-such-note", a.ID},
		{"other owner", n.ID, b.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GetNote(tt.noteID, tt.actor)
			if !errors.Is(err, notes.ErrNotFound) {
				t.Errorf("GetNote() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestCascade_CreateNote(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")
	folder := f.folder(t, a, "F")

	t.Run("missing folder", func(t *testing.T) {
		if _, err := f.svc.CreateNote("nope", "x", a.ID); !errors.Is(err, notes.ErrNotFound) {
			t.Errorf("CreateNote() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("foreign folder", func(t *testing.T) {
		if _, err := f.svc.CreateNote(folder.ID, "x", b.ID); !errors.Is(err, notes.ErrForbidden) {
			t.Errorf("CreateNote() error = %v, want ErrForbidden", err)
		}
	})

	t.Run("deleted folder", func(t *testing.T) {
		other := f.folder(t, a, "G")
		if _, err := f.svc.DeleteFolder(other.ID, a.ID); err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}
		if _, err := f.svc.CreateNote(other.ID, "x", a.ID); !errors.Is(err, notes.ErrNotFound) {
			t.Errorf("CreateNote() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("stores owner and timestamps", func(t *testing.T) {
		n, err := f.svc.CreateNote(folder.ID, "hello", a.ID)
		if err != nil {
			t.Fatalf("CreateNote() error = %v", err)
		}
		if n.OwnerID != a.ID || n.FolderID != folder.ID || n.DeletedAt != nil {
			t.Errorf("CreateNote() = %+v", n)
		}
		if !n.CreatedAt.Equal(f.clock.Now()) || !n.UpdatedAt.Equal(f.clock.Now()) {
			t.Errorf("timestamps = %v/%v, want %v", n.CreatedAt, n.UpdatedAt, f.clock.Now())
		}
	})
}

func TestCascade_UpdateNote(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")
	n := f.note(t, f.folder(t, a, "F"), "v1")

	f.clock.Advance(time.Minute)
	updated, err := f.svc.UpdateNote(n.ID, "v2", a.ID)
	if err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	if updated.Content != "v2" {
		t.Errorf("Content = %q, want v2", updated.Content)
	}
	if !updated.UpdatedAt.Equal(f.clock.Now()) {
		t.Errorf("UpdatedAt = %v, want %v", updated.UpdatedAt, f.clock.Now())
	}

	if _, err := f.svc.UpdateNote(n.ID, "v3", b.ID); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("UpdateNote() by other owner error = %v, want ErrNotFound", err)
	}

	if _, err := f.svc.DeleteNote(n.ID, a.ID); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	if _, err := f.svc.UpdateNote(n.ID, "v4", a.ID); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("UpdateNote() on deleted note error = %v, want ErrNotFound", err)
	}
}

func TestCascade_FolderOperationsAreIdempotent(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com")
	folder := f.folder(t, a, "F")

	first, err := f.svc.DeleteFolder(folder.ID, a.ID)
	if err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}
	f.clock.Advance(time.Hour)
	second, err := f.svc.DeleteFolder(folder.ID, a.ID)
	if err != nil {
		t.Fatalf("second DeleteFolder() error = %v", err)
	}
	if !second.DeletedAt.Equal(*first.DeletedAt) {
		t.Errorf("second delete moved DeletedAt from %v to %v", first.DeletedAt, second.DeletedAt)
	}

	for i := 0; i < 2; i++ {
		restored, err := f.svc.RestoreFolder(folder.ID, a.ID)
		if err != nil {
			t.Fatalf("RestoreFolder() #%d error = %v", i+1, err)
		}
		if restored.DeletedAt != nil {
			t.Errorf("RestoreFolder() #%d DeletedAt = %v, want nil", i+1, restored.DeletedAt)
		}
	}
}

func TestCascade_Listings(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")
	inbox := f.folder(t, a, "Inbox")
	archive := f.folder(t, a, "Archive")
	f.folder(t, b, "Theirs")

	keep := f.note(t, inbox, "keep")
	gone := f.note(t, inbox, "gone")
	f.note(t, archive, "archived")

	if _, err := f.svc.DeleteNote(gone.ID, a.ID); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	if _, err := f.svc.DeleteFolder(archive.ID, a.ID); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}

	folders, err := f.svc.ListFolders(a.ID)
	if err != nil {
		t.Fatalf("ListFolders() error = %v", err)
	}
	if len(folders) != 1 || folders[0].ID != inbox.ID {
		t.Errorf("ListFolders() = %d folders, want only Inbox", len(folders))
	}

	inInbox, err := f.svc.ListFolderNotes(inbox.ID, a.ID)
	if err != nil {
		t.Fatalf("ListFolderNotes() error = %v", err)
	}
	if len(inInbox) != 1 || inInbox[0].ID != keep.ID {
		t.Errorf("ListFolderNotes(Inbox) returned %d notes, want only keep", len(inInbox))
	}

	if _, err := f.svc.ListFolderNotes(archive.ID, a.ID); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("ListFolderNotes(deleted) error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.ListFolderNotes(inbox.ID, b.ID); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("ListFolderNotes(foreign) error = %v, want ErrNotFound", err)
	}

	all, err := f.svc.ListNotes(a.ID)
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}
	if len(all) != 1 || all[0].ID != keep.ID {
		t.Errorf("ListNotes() returned %d notes, want only keep", len(all))
	}
}

func TestCascade_CreateFolderRequiresName(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com")

	if _, err := f.svc.CreateFolder("   ", a.ID); !errors.Is(err, notes.ErrInvalidInput) {
		t.Errorf("CreateFolder() error = %v, want ErrInvalidInput", err)
	}
}
