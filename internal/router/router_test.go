package router

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/kidneyhealth/internal/db/memorystorage"
	"github.com/patric-chuzhbe/kidneyhealth/internal/logger"
	"github.com/patric-chuzhbe/kidneyhealth/internal/mockstorage"
	"github.com/patric-chuzhbe/kidneyhealth/internal/models"
	"github.com/patric-chuzhbe/kidneyhealth/internal/repository"
)

func setupTestServer(t *testing.T, seed ...*models.Dataset) (*httptest.Server, *memorystorage.MemoryStorage) {
	t.Helper()
	require.NoError(t, logger.Init("debug"))

	theStorage, err := memorystorage.New(seed...)
	require.NoError(t, err)

	srv := httptest.NewServer(New(repository.New(theStorage), theStorage))
	t.Cleanup(srv.Close)

	return srv, theStorage
}

func setupMockServer(t *testing.T, theStorage *mockstorage.StorageMock) *httptest.Server {
	t.Helper()
	require.NoError(t, logger.Init("debug"))

	srv := httptest.NewServer(New(repository.New(theStorage), theStorage))
	t.Cleanup(srv.Close)

	return srv
}

func send(t *testing.T, method, url string, body any) *resty.Response {
	t.Helper()
	req := resty.New().R()
	req.Method = method
	req.URL = url
	if body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}

	resp, err := req.Send()
	require.NoError(t, err, "error making HTTP request")

	return resp
}

func getSummary(t *testing.T, srv *httptest.Server, userID int) models.UserSummary {
	t.Helper()
	resp := send(t, http.MethodGet, fmt.Sprintf("%s/user/%d", srv.URL, userID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var summary models.UserSummary
	require.NoError(t, json.Unmarshal(resp.Body(), &summary))

	return summary
}

func createUser(t *testing.T, srv *httptest.Server, name string) *models.User {
	t.Helper()
	resp := send(t, http.MethodPost, srv.URL+"/user", map[string]string{"name": name})
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var created models.CreateUserResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &created))
	assert.Equal(t, "User added successfully!", created.Msg)
	require.NotNil(t, created.User)

	return created.User
}

func aliceWithKidneys(kidneys ...bool) *models.Dataset {
	usr := &models.User{ID: 1, Name: "Alice", Kidneys: []models.Kidney{}}
	for _, healthy := range kidneys {
		usr.Kidneys = append(usr.Kidneys, models.Kidney{Healthy: healthy})
	}

	return &models.Dataset{Users: []*models.User{usr}}
}

func TestGetRoot(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp := send(t, http.MethodGet, srv.URL+"/", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, WelcomeMessage, resp.String())
	assert.NotEmpty(t, resp.Header().Get(logger.RequestIDHeader))
}

func TestGetPing(t *testing.T) {
	srv, _ := setupTestServer(t)
	assert.Equal(t, http.StatusOK, send(t, http.MethodGet, srv.URL+"/ping", nil).StatusCode())

	theStorage := &mockstorage.StorageMock{}
	theStorage.On("Ping", mock.Anything).Return(errors.New("database is down"))
	mockSrv := setupMockServer(t, theStorage)

	resp := send(t, http.MethodGet, mockSrv.URL+"/ping", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.Contains(t, resp.String(), "database is down")
}

func TestUserIDsAreNotReused(t *testing.T) {
	srv, _ := setupTestServer(t)

	assert.Equal(t, 1, createUser(t, srv, "Alice").ID)
	assert.Equal(t, 2, createUser(t, srv, "Bob").ID)

	resp := send(t, http.MethodDelete, srv.URL+"/user/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"msg":"User deleted successfully!"}`, resp.String())

	assert.Equal(t, 3, createUser(t, srv, "Carol").ID)
}

func TestPostUser(t *testing.T) {
	srv, theStorage := setupTestServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "positive", body: `{"name": "Alice"}`, wantCode: http.StatusOK},
		{name: "missing name", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "malformed JSON", body: `{"name": `, wantCode: http.StatusBadRequest},
		{name: "empty body", body: ``, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := send(t, http.MethodPost, srv.URL+"/user", tt.body)
			assert.Equal(t, tt.wantCode, resp.StatusCode())
			assert.Contains(t, resp.String(), `"msg"`)
		})
	}

	dataset, err := theStorage.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, dataset.Users, 1, "rejected requests must not create users")
	assert.Equal(t, "Alice", dataset.Users[0].Name)
}

func TestNonexistentUserAnswers404(t *testing.T) {
	srv, _ := setupTestServer(t, aliceWithKidneys(true))

	paths := []string{"/user/2", "/user/-1", "/user/abc", "/user/1.5"}
	methods := []struct {
		method string
		suffix string
		body   any
	}{
		{method: http.MethodGet},
		{method: http.MethodDelete},
		{method: http.MethodPost, suffix: "/kidneys", body: map[string]bool{"isHealthy": true}},
		{method: http.MethodPut, suffix: "/kidneys"},
		{method: http.MethodDelete, suffix: "/kidneys"},
	}

	for _, path := range paths {
		for _, m := range methods {
			t.Run(m.method+" "+path+m.suffix, func(t *testing.T) {
				resp := send(t, m.method, srv.URL+path+m.suffix, m.body)
				assert.Equal(t, http.StatusNotFound, resp.StatusCode())
				assert.JSONEq(t, `{"msg":"User not found"}`, resp.String())
			})
		}
	}
}

func TestGetUser(t *testing.T) {
	srv, _ := setupTestServer(t, aliceWithKidneys(true, false, true))

	resp := send(t, http.MethodGet, srv.URL+"/user/1", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	assert.JSONEq(
		t,
		`{"name":"Alice","numberOfKidneys":3,"numberOfHealthyKidneys":2,"numberOfUnhealthyKidneys":1}`,
		resp.String(),
	)
}

func TestPostUserKidneys(t *testing.T) {
	srv, _ := setupTestServer(t, aliceWithKidneys(true))

	before := getSummary(t, srv, 1)

	resp := send(t, http.MethodPost, srv.URL+"/user/1/kidneys", map[string]bool{"isHealthy": false})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"msg":"Kidney added successfully!"}`, resp.String())

	after := getSummary(t, srv, 1)
	assert.Equal(t, before.NumberOfKidneys+1, after.NumberOfKidneys)
	assert.Equal(t, before.NumberOfUnhealthyKidneys+1, after.NumberOfUnhealthyKidneys)
	assert.Equal(t, before.NumberOfHealthyKidneys, after.NumberOfHealthyKidneys)

	resp = send(t, http.MethodPost, srv.URL+"/user/1/kidneys", map[string]bool{"isHealthy": true})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, before.NumberOfHealthyKidneys+1, getSummary(t, srv, 1).NumberOfHealthyKidneys)
}

func TestPostUserKidneysBadBody(t *testing.T) {
	srv, _ := setupTestServer(t, aliceWithKidneys())

	for _, body := range []string{`{}`, `{"isHealthy": "yes"}`, `not json`} {
		t.Run(body, func(t *testing.T) {
			resp := send(t, http.MethodPost, srv.URL+"/user/1/kidneys", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		})
	}

	assert.Equal(t, 0, getSummary(t, srv, 1).NumberOfKidneys)
}

func TestPutUserKidneys(t *testing.T) {
	srv, _ := setupTestServer(t, aliceWithKidneys(false, true, false))

	resp := send(t, http.MethodPut, srv.URL+"/user/1/kidneys", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"msg":"All kidneys updated to healthy!"}`, resp.String())

	summary := getSummary(t, srv, 1)
	assert.Equal(t, 3, summary.NumberOfKidneys)
	assert.Equal(t, 0, summary.NumberOfUnhealthyKidneys)
	assert.Equal(t, 3, summary.NumberOfHealthyKidneys)
}

func TestDeleteUserKidneys(t *testing.T) {
	t.Run("removes only unhealthy kidneys", func(t *testing.T) {
		srv, theStorage := setupTestServer(t, aliceWithKidneys(false, true, false, true))

		resp := send(t, http.MethodDelete, srv.URL+"/user/1/kidneys", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		assert.JSONEq(t, `{"msg":"Unhealthy kidneys removed!"}`, resp.String())

		dataset, err := theStorage.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []models.Kidney{{Healthy: true}, {Healthy: true}}, dataset.Users[0].Kidneys)
	})

	t.Run("nothing to remove", func(t *testing.T) {
		srv, _ := setupTestServer(t, aliceWithKidneys(true, true))

		resp := send(t, http.MethodDelete, srv.URL+"/user/1/kidneys", nil)
		assert.Equal(t, StatusNoUnhealthyKidneys, resp.StatusCode())
		assert.JSONEq(t, `{"msg":"User has no unhealthy kidneys"}`, resp.String())

		assert.Equal(t, 2, getSummary(t, srv, 1).NumberOfKidneys)
	})

	t.Run("no kidneys at all", func(t *testing.T) {
		srv, _ := setupTestServer(t, aliceWithKidneys())

		resp := send(t, http.MethodDelete, srv.URL+"/user/1/kidneys", nil)
		assert.Equal(t, StatusNoUnhealthyKidneys, resp.StatusCode())
	})
}

func TestInternalErrorsAnswer500(t *testing.T) {
	theStorage := &mockstorage.StorageMock{}
	theStorage.On("Load", mock.Anything).Return(aliceWithKidneys(false), nil)
	theStorage.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	srv := setupMockServer(t, theStorage)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{method: http.MethodPost, path: "/user", body: map[string]string{"name": "Bob"}},
		{method: http.MethodDelete, path: "/user/1"},
		{method: http.MethodPost, path: "/user/1/kidneys", body: map[string]bool{"isHealthy": true}},
		{method: http.MethodPut, path: "/user/1/kidneys"},
		{method: http.MethodDelete, path: "/user/1/kidneys"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := send(t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())

			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(resp.Body(), &body))
			assert.Equal(t, "Internal server error", body.Msg)
			assert.Contains(t, body.Error, "connection reset")
		})
	}
}

func TestUnsupportedMethods(t *testing.T) {
	srv, _ := setupTestServer(t, aliceWithKidneys())

	for _, tt := range []struct{ method, path string }{
		{http.MethodPatch, "/user/1"},
		{http.MethodPut, "/user"},
		{http.MethodGet, "/user/1/kidneys"},
	} {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, http.StatusMethodNotAllowed, send(t, tt.method, srv.URL+tt.path, nil).StatusCode())
		})
	}
}

func gzipString(t *testing.T, input string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	return buf.Bytes()
}

func TestPostUserForGzip(t *testing.T) {
	srv, _ := setupTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/user", bytes.NewReader(gzipString(t, `{"name":"Alice"}`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept-Encoding", "gzip")

	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"msg":"User added successfully!","user":{"id":1,"name":"Alice","kidneys":[]}}`, string(plain))
}

func TestGzipCanBeDisabled(t *testing.T) {
	theStorage, err := memorystorage.New()
	require.NoError(t, err)
	srv := httptest.NewServer(New(repository.New(theStorage), theStorage, WithDisableGzip(true)))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Empty(t, resp.Header.Get("Content-Encoding"))
	plain, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, WelcomeMessage, string(plain))
}
