package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"policyassist-backend/models"
	"policyassist-backend/repository"
	"policyassist-backend/service"
	"policyassist-backend/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if u, ok := f[username]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type fakeAssistant struct {
	got    service.QueryRequest
	answer *models.StructuredAnswer
	err    error
}

func (f *fakeAssistant) AnswerQuery(_ context.Context, req service.QueryRequest) (*models.StructuredAnswer, error) {
	f.got = req
	return f.answer, f.err
}

type fakeHistory struct {
	questions  []models.QuestionSummary
	thread     *models.Thread
	err        error
	department string
}

func (f *fakeHistory) ListQuestions(_ context.Context, department string, _ int) ([]models.QuestionSummary, error) {
	f.department = department
	return f.questions, f.err
}

func (f *fakeHistory) Thread(_ context.Context, id int64, department string) (*models.Thread, error) {
	f.department = department
	if f.err != nil {
		return nil, f.err
	}
	if f.thread == nil || f.thread.Question.ID != id {
		return nil, repository.ErrNotFound
	}
	return f.thread, nil
}

type fakeCatalog struct {
	docs map[uuid.UUID]*models.PolicyDocument
}

func (f *fakeCatalog) Upsert(_ context.Context, doc *models.PolicyDocument) error {
	if f.docs == nil {
		f.docs = map[uuid.UUID]*models.PolicyDocument{}
	}
	for id, existing := range f.docs {
		if existing.StorageKey == doc.StorageKey {
			doc.ID, doc.CreatedAt = id, existing.CreatedAt
			f.docs[id] = doc
			return nil
		}
	}
	doc.ID = uuid.New()
	doc.CreatedAt = time.Now()
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id uuid.UUID) (*models.PolicyDocument, error) {
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalog) List(context.Context) ([]*models.PolicyDocument, error) {
	out := []*models.PolicyDocument{}
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, nil
}

type testServer struct {
	router    *gin.Engine
	assistant *fakeAssistant
	history   *fakeHistory
	catalog   *fakeCatalog
	sessions  *session.MemoryStore
}

func newTestServer(t *testing.T, docs *DocumentHandler) *testServer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hrpass"), bcrypt.MinCost)
	require.NoError(t, err)
	empHash, err := bcrypt.GenerateFromPassword([]byte("emp123"), bcrypt.MinCost)
	require.NoError(t, err)

	users := fakeUsers{
		"hr_bob": {Username: "hr_bob", PasswordHash: string(hash), Roles: []string{"HR"}, Department: "hr"},
		"emp":    {Username: "emp", PasswordHash: string(empHash), Roles: []string{"employee"}, Department: "engineering"},
	}
	sessions := session.NewMemoryStore(time.Hour)
	auth := service.NewAuthService(users, sessions)

	ts := &testServer{
		assistant: &fakeAssistant{},
		history:   &fakeHistory{},
		catalog:   &fakeCatalog{},
		sessions:  sessions,
	}
	ts.router = NewRouter(Routes{
		Sessions:  auth,
		Auth:      NewAuthHandler(auth, false, time.Hour),
		Query:     NewQueryHandler(ts.assistant),
		History:   NewHistoryHandler(ts.history),
		Documents: docs,
	})
	return ts
}

// login returns the session cookie for a demo user
func (ts *testServer) login(t *testing.T, username, password string, extra map[string]string) *http.Cookie {
	t.Helper()
	body := map[string]string{"username": username, "password": password}
	for k, v := range extra {
		body[k] = v
	}
	rec := ts.do(t, http.MethodPost, "/api/login", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func (ts *testServer) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}
