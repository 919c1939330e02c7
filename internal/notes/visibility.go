package notes

import "notes-go/internal/model"

// IsVisible reports whether a note can be seen through any read path:
// the note itself is not deleted and neither is its folder.
// A note loaded without its folder is never visible.
func IsVisible(note *model.Note) bool {
	return !noteDeleted(note) && !folderDeleted(note)
}

func noteDeleted(note *model.Note) bool {
	return note == nil || note.DeletedAt != nil
}

func folderDeleted(note *model.Note) bool {
	return note == nil || note.Folder == nil || note.Folder.DeletedAt != nil
}
