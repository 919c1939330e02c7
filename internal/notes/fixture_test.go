package notes_test

import (
	"testing"

	"notes-go/internal/database"
	"notes-go/internal/model"
	"notes-go/internal/notes"
	"notes-go/internal/testutil"
)

type fixture struct {
	svc      *notes.Service
	db       *database.SQLiteDatabase
	clock    *testutil.StubClock
	tokens   *testutil.StubTokenGenerator
	notifier *testutil.RecordingNotifier
	logger   *testutil.RecordingLogger
}

func newFixture(t *testing.T, tokenScript ...string) *fixture {
	t.Helper()

	f := &fixture{
		db:       testutil.NewTestDatabase(t),
		clock:    testutil.FixedClock(),
		tokens:   testutil.NewStubTokenGenerator(tokenScript...),
		notifier: testutil.NewRecordingNotifier(),
		logger:   &testutil.RecordingLogger{},
	}
	f.svc = notes.NewService(f.db, testutil.StubHasher{}, f.notifier, f.logger,
		f.clock, testutil.NewStubIDGenerator(), f.tokens)
	return f
}

func (f *fixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := f.svc.RegisterUser(email, "password", model.RoleUser)
	if err != nil {
		t.Fatalf("RegisterUser(%s) error = %v", email, err)
	}
	return u
}

func (f *fixture) folder(t *testing.T, owner *model.User, name string) *model.Folder {
	t.Helper()
	folder, err := f.svc.CreateFolder(name, owner.ID)
	if err != nil {
		t.Fatalf("CreateFolder(%s) error = %v", name, err)
	}
	return folder
}

func (f *fixture) note(t *testing.T, folder *model.Folder, content string) *model.Note {
	t.Helper()
	n, err := f.svc.CreateNote(folder.ID, content, folder.OwnerID)
	if err != nil {
		t.Fatalf("CreateNote(%s) error = %v", content, err)
	}
	return n
}

func (f *fixture) visible(t *testing.T, n *model.Note) bool {
	t.Helper()
	_, err := f.svc.GetNote(n.ID, n.OwnerID)
	return err == nil
}
