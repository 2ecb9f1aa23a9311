package api

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"dailyquest/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	v1     *gin.RouterGroup
	tokens *auth.TokenProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens, err := auth.NewTokenProvider(auth.JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)

	router := gin.New()
	return &testServer{router: router, v1: router.Group("/api/v1"), tokens: tokens}
}

func (s *testServer) bearer(t *testing.T, userID int64, role string) string {
	t.Helper()

	pair, err := s.tokens.Issue(userID, role)
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, authorization string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

