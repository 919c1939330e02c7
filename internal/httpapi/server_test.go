package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"notes-go/internal/auth"
	"notes-go/internal/httpapi"
	"notes-go/internal/notes"
	"notes-go/internal/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type apiFixture struct {
	router http.Handler
	clock  *testutil.StubClock
	logger *testutil.RecordingLogger
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db := testutil.NewTestDatabase(t)
	clock := testutil.FixedClock()
	logger := &testutil.RecordingLogger{}
	svc := notes.NewService(db, testutil.StubHasher{}, nil, logger, clock,
		testutil.NewStubIDGenerator(), testutil.NewStubTokenGenerator())
	authn, err := auth.NewTokenAuthenticator("test-secret", time.Hour, svc, clock)
	if err != nil {
		t.Fatalf("NewTokenAuthenticator() error = %v", err)
	}

	return &apiFixture{
		router: httpapi.NewHandler(svc, authn, clock, logger).Router(),
		clock:  clock,
		logger: logger,
	}
}

// do sends a JSON request and decodes the JSON response into out when given.
func (f *apiFixture) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decoding response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func (f *apiFixture) register(t *testing.T, email string) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	code := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": "pw"}, &resp)
	if code != http.StatusCreated {
		t.Fatalf("register %s status = %d, want 201", email, code)
	}
	return resp.Token
}

type idResponse struct {
	ID      string `json:"id"`
	Token   string `json:"token"`
	Content string `json:"content"`
}

type errResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (f *apiFixture) folderAndNote(t *testing.T, token, content string) (folderID, noteID string) {
	t.Helper()
	var folder, note idResponse
	if code := f.do(t, http.MethodPost, "/folders", token, map[string]string{"name": "F"}, &folder); code != http.StatusCreated {
		t.Fatalf("create folder status = %d", code)
	}
	if code := f.do(t, http.MethodPost, "/folders/"+folder.ID+"/notes", token, map[string]string{"content": content}, &note); code != http.StatusCreated {
		t.Fatalf("create note status = %d", code)
	}
	return folder.ID, note.ID
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	if code := f.do(t, http.MethodGet, "/health", "", nil, nil); code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
}

func TestAuthFlow(t *testing.T) {
	f := newAPIFixture(t)
	token := f.register(t, "Alice@Example.com")

	var me struct {
		Email string `json:"email"`
	}
	if code := f.do(t, http.MethodGet, "/me", token, nil, &me); code != http.StatusOK {
		t.Fatalf("GET /me status = %d", code)
	}
	if me.Email != "alice@example.com" {
		t.Errorf("email = %q, want alice@example.com", me.Email)
	}

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"valid", map[string]string{"email": "alice@example.com", "password": "pw"}, http.StatusOK},
		{"wrong password", map[string]string{"email": "alice@example.com", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"email": "bob@example.com", "password": "pw"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := f.do(t, http.MethodPost, "/auth/login", "", tt.body, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}

	t.Run("duplicate registration", func(t *testing.T) {
		code := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "alice@example.com", "password": "pw"}, nil)
		if code != http.StatusConflict {
			t.Errorf("status = %d, want 409", code)
		}
	})

	t.Run("bad email", func(t *testing.T) {
		code := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "nope", "password": "pw"}, nil)
		if code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", code)
		}
	})
}

func TestRequireUser(t *testing.T) {
	f := newAPIFixture(t)
	token := f.register(t, "a@example.com")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/notes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCascadeOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	token := f.register(t, "a@example.com")
	folderID, n1 := f.folderAndNote(t, token, "N1")
	var second idResponse
	if code := f.do(t, http.MethodPost, "/folders/"+folderID+"/notes", token, map[string]string{"content": "N2"}, &second); code != http.StatusCreated {
		t.Fatalf("create note status = %d", code)
	}
	n2 := second.ID

	steps := []struct {
		method, path string
		want         int
	}{
		{http.MethodDelete, "/notes/" + n1, http.StatusOK},
		{http.MethodDelete, "/folders/" + folderID, http.StatusOK},
		{http.MethodGet, "/notes/" + n2, http.StatusNotFound},
		{http.MethodGet, "/folders/" + folderID + "/notes", http.StatusNotFound},
		{http.MethodPost, "/notes/" + n2 + "/restore", http.StatusNotFound},
		{http.MethodPost, "/folders/" + folderID + "/restore", http.StatusOK},
		{http.MethodGet, "/notes/" + n1, http.StatusNotFound},
		{http.MethodGet, "/notes/" + n2, http.StatusOK},
		{http.MethodPost, "/notes/" + n1 + "/restore", http.StatusOK},
		{http.MethodGet, "/notes/" + n1, http.StatusOK},
	}
	for _, s := range steps {
		if code := f.do(t, s.method, s.path, token, nil, nil); code != s.want {
			t.Errorf("%s %s status = %d, want %d", s.method, s.path, code, s.want)
		}
	}

	var listed []idResponse
	if code := f.do(t, http.MethodGet, "/notes", token, nil, &listed); code != http.StatusOK {
		t.Fatalf("GET /notes status = %d", code)
	}
	if len(listed) != 2 {
		t.Errorf("GET /notes returned %d notes, want 2", len(listed))
	}
}

func TestOwnershipOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	alice := f.register(t, "a@example.com")
	bob := f.register(t, "b@example.com")
	folderID, noteID := f.folderAndNote(t, alice, "private")

	tests := []struct {
		name         string
		method, path string
		body         any
		want         int
	}{
		{"read", http.MethodGet, "/notes/" + noteID, nil, http.StatusNotFound},
		{"update", http.MethodPut, "/notes/" + noteID, map[string]string{"content": "x"}, http.StatusNotFound},
		{"delete folder", http.MethodDelete, "/folders/" + folderID, nil, http.StatusNotFound},
		{"create in folder", http.MethodPost, "/folders/" + folderID + "/notes", map[string]string{"content": "x"}, http.StatusForbidden},
		{"share", http.MethodPost, "/notes/" + noteID + "/share", map[string]any{}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := f.do(t, tt.method, tt.path, bob, tt.body, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestSharedLinkOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	token := f.register(t, "a@example.com")
	folderID, noteID := f.folderAndNote(t, token, "shared")

	var link idResponse
	code := f.do(t, http.MethodPost, "/notes/"+noteID+"/share", token,
		map[string]any{"actions": []string{"read"}, "expiresInSeconds": 100}, &link)
	if code != http.StatusCreated {
		t.Fatalf("share status = %d", code)
	}

	var note idResponse
	if code := f.do(t, http.MethodGet, "/shared/"+link.Token, "", nil, &note); code != http.StatusOK {
		t.Fatalf("GET shared status = %d", code)
	}
	if note.Content != "shared" {
		t.Errorf("content = %q, want shared", note.Content)
	}

	var denied errResponse
	code = f.do(t, http.MethodPut, "/shared/"+link.Token, "", map[string]string{"content": "x"}, &denied)
	if code != http.StatusForbidden || denied.Message != "Action not allowed" {
		t.Errorf("PUT shared = %d %q, want 403 Action not allowed", code, denied.Message)
	}

	if code := f.do(t, http.MethodDelete, "/folders/"+folderID, token, nil, nil); code != http.StatusOK {
		t.Fatalf("delete folder status = %d", code)
	}
	var hidden errResponse
	code = f.do(t, http.MethodGet, "/shared/"+link.Token, "", nil, &hidden)
	if code != http.StatusForbidden || hidden.Message != "Note's folder deleted" {
		t.Errorf("GET shared = %d %q, want 403 Note's folder deleted", code, hidden.Message)
	}

	if code := f.do(t, http.MethodPost, "/folders/"+folderID+"/restore", token, nil, nil); code != http.StatusOK {
		t.Fatalf("restore folder status = %d", code)
	}
	f.clock.Advance(101 * time.Second)
	var expired errResponse
	code = f.do(t, http.MethodGet, "/shared/"+link.Token, "", nil, &expired)
	if code != http.StatusForbidden || expired.Message != "Link expired" {
		t.Errorf("GET shared = %d %q, want 403 Link expired", code, expired.Message)
	}

	if code := f.do(t, http.MethodGet, "/shared/unknown", "", nil, nil); code != http.StatusNotFound {
		t.Errorf("unknown token status = %d, want 404", code)
	}

	for _, e := range f.logger.Entries() {
		if strings.Contains(e, link.Token) {
			t.Errorf("log entry leaks token: %q", e)
		}
	}
}

func TestSharedUpdateAndRevoke(t *testing.T) {
	f := newAPIFixture(t)
	token := f.register(t, "a@example.com")
	_, noteID := f.folderAndNote(t, token, "v1")

	var link idResponse
	code := f.do(t, http.MethodPost, "/notes/"+noteID+"/share", token,
		map[string]any{"actions": []string{"READ", "UPDATE"}}, &link)
	if code != http.StatusCreated {
		t.Fatalf("share status = %d", code)
	}

	var updated idResponse
	if code := f.do(t, http.MethodPut, "/shared/"+link.Token, "", map[string]string{"content": "v2"}, &updated); code != http.StatusOK {
		t.Fatalf("PUT shared status = %d", code)
	}
	if updated.Content != "v2" {
		t.Errorf("content = %q, want v2", updated.Content)
	}

	var links []idResponse
	if code := f.do(t, http.MethodGet, "/links", token, nil, &links); code != http.StatusOK || len(links) != 1 {
		t.Fatalf("GET /links = %d with %d links", code, len(links))
	}

	other := f.register(t, "b@example.com")
	if code := f.do(t, http.MethodPost, "/links/"+link.Token+"/revoke", other, nil, nil); code != http.StatusForbidden {
		t.Errorf("revoke by other status = %d, want 403", code)
	}
	for i := 0; i < 2; i++ {
		if code := f.do(t, http.MethodPost, "/links/"+link.Token+"/revoke", token, nil, nil); code != http.StatusOK {
			t.Errorf("revoke #%d status = %d, want 200", i+1, code)
		}
	}

	var revoked errResponse
	code = f.do(t, http.MethodGet, "/shared/"+link.Token, "", nil, &revoked)
	if code != http.StatusForbidden || revoked.Message != "Link revoked" {
		t.Errorf("GET shared = %d %q, want 403 Link revoked", code, revoked.Message)
	}
}

func TestShareValidation(t *testing.T) {
	f := newAPIFixture(t)
	token := f.register(t, "a@example.com")
	_, noteID := f.folderAndNote(t, token, "x")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"unknown action", map[string]any{"actions": []string{"PUBLISH"}}, http.StatusBadRequest},
		{"past expiry", map[string]any{"expiresInSeconds": -5}, http.StatusBadRequest},
		{"expiry overflows duration", map[string]any{"expiresInSeconds": int64(18446744074)}, http.StatusBadRequest},
		{"expiry at int64 max", map[string]any{"expiresInSeconds": int64(9223372036854775807)}, http.StatusBadRequest},
		{"malformed", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := f.do(t, http.MethodPost, "/notes/"+noteID+"/share", token, tt.body, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestSharedNoteOmitsOwner(t *testing.T) {
	f := newAPIFixture(t)
	token := f.register(t, "a@example.com")
	_, noteID := f.folderAndNote(t, token, "v1")

	var link idResponse
	code := f.do(t, http.MethodPost, "/notes/"+noteID+"/share", token,
		map[string]any{"actions": []string{"READ", "UPDATE"}}, &link)
	if code != http.StatusCreated {
		t.Fatalf("share status = %d", code)
	}

	requests := []struct {
		method string
		body   any
	}{
		{http.MethodGet, nil},
		{http.MethodPut, map[string]string{"content": "v2"}},
	}
	for _, r := range requests {
		t.Run(r.method, func(t *testing.T) {
			var got map[string]any
			if code := f.do(t, r.method, "/shared/"+link.Token, "", r.body, &got); code != http.StatusOK {
				t.Fatalf("%s shared status = %d", r.method, code)
			}
			for _, key := range []string{"ownerId", "folderId", "deletedAt"} {
				if _, ok := got[key]; ok {
					t.Errorf("response has %q: %v", key, got)
				}
			}
			if got["id"] != noteID {
				t.Errorf("id = %v, want %s", got["id"], noteID)
			}
		})
	}
}
