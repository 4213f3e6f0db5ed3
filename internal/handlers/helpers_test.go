package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/vidtube/internal/logger"
	"github.com/nkiryanov/vidtube/internal/models"
	"github.com/nkiryanov/vidtube/internal/repository"
	"github.com/nkiryanov/vidtube/internal/repository/postgres"
	"github.com/nkiryanov/vidtube/internal/service/auth"
	"github.com/nkiryanov/vidtube/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/vidtube/internal/service/media"
	"github.com/nkiryanov/vidtube/internal/service/user"
	"github.com/nkiryanov/vidtube/internal/testutil"
)

// Media host double. Fails uploads of files which name starts with 'fail'
type fakeUploader struct {
	mu    sync.Mutex
	names []string
}

func (u *fakeUploader) Upload(ctx context.Context, file media.File) (media.Asset, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.names = append(u.names, file.Name)
	if strings.HasPrefix(file.Name, "fail") {
		return media.Asset{}, errors.New("media host is down")
	}
	return media.Asset{URL: "https://media.example.com/" + file.Name, Key: file.Name}, nil
}

func (u *fakeUploader) calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.names)
}

type testEnv struct {
	url      string
	auth     *auth.AuthService
	users    *user.UserService
	storage  repository.Storage
	uploader *fakeUploader
}

// Run http server with production router and services within db transaction
func withServer(dbpool *pgxpool.Pool, t *testing.T, fn func(env testEnv)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		tokenManager, err := tokenmanager.New(tokenmanager.Config{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
		})
		require.NoError(t, err, "token manager should be created without errors")

		authService, err := auth.NewService(auth.Config{}, tokenManager, storage.User())
		require.NoError(t, err, "auth service starting error", err)

		uploader := &fakeUploader{}
		userService := user.NewService(authService.Hasher(), storage, uploader, logger.NewNoOpLogger())

		srv := httptest.NewServer(NewRouter(authService, userService, logger.NewNoOpLogger()))
		defer srv.Close()

		fn(testEnv{
			url:      srv.URL + usersPrefix,
			auth:     authService,
			users:    userService,
			storage:  storage,
			uploader: uploader,
		})
	})
}

// Register user 'alice' with password 'correct'
func registerAlice(t *testing.T, env testEnv) models.User {
	u, err := env.users.Register(t.Context(), user.RegisterParams{
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice Liddell",
		Password: "correct",
		Avatar:   &media.File{Name: "alice.png", Body: strings.NewReader("png")},
	})
	require.NoError(t, err)
	return u
}

// Send request and return response with its body read
func doRequest(t *testing.T, method string, url string, contentType string, body io.Reader, cookies ...*http.Cookie) (*http.Response, string) {
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(data)
}

func postJSON(t *testing.T, url string, data string, cookies ...*http.Cookie) (*http.Response, string) {
	return doRequest(t, http.MethodPost, url, "application/json", strings.NewReader(data), cookies...)
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Login alice and return her auth cookies
func loginAlice(t *testing.T, env testEnv) []*http.Cookie {
	resp, body := postJSON(t, env.url+"/login", `{"username": "alice", "password": "correct"}`)
	require.Equalf(t, http.StatusOK, resp.StatusCode, "login failed. Body: %s", body)
	require.Len(t, resp.Cookies(), 2)
	return resp.Cookies()
}

type uploadFile struct {
	field   string
	name    string
	content string
}

// Build multipart body; returns body and content type
func multipartBody(t *testing.T, fields map[string]string, files ...uploadFile) (io.Reader, string) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return buf, mw.FormDataContentType()
}
