package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyno-health/cyno/pkg/config"
	"github.com/cyno-health/cyno/pkg/database"
	"github.com/cyno-health/cyno/pkg/services"
	testdb "github.com/cyno-health/cyno/test/database"
)

// testServer bundles the API server with its backing database client so
// tests can seed rows directly.
type testServer struct {
	server *Server
	db     *database.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := testdb.NewTestClient(t)
	cfg := &config.Settings{
		JWTSecretKey:     "test-secret",
		JWTExpiry:        time.Hour,
		SecondsPerReport: 300,
	}

	server := NewServer(cfg, Deps{
		Hospitals:  services.NewHospitalService(client.Client),
		Patients:   services.NewPatientService(client.Client),
		Reports:    services.NewReportService(client.Client),
		AIReports:  services.NewAIReportService(client.Client, cfg.SecondsPerReport),
		BoardCases: services.NewTumorBoardService(client.Client),
		Activity:   services.NewActivityService(client.Client),
		DBClient:   client,
	})
	return &testServer{server: server, db: client}
}

// do performs one request against the server, JSON-encoding body when set.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// signup registers a hospital and returns its bearer token.
func (ts *testServer) signup(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name":               "General Hospital",
		"email":              "admin@general.example.org",
		"password":           "a-long-password",
		"registrationNumber": "REG-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token, ok := decodeBody(t, rec)["access_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

func TestAuth_SignupAndSignin(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t)

	t.Run("signin with valid credentials", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/auth/signin", "", gin.H{
			"email":    "admin@general.example.org",
			"password": "a-long-password",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.NotEmpty(t, body["access_token"])
		hospital := body["hospital"].(map[string]any)
		assert.Equal(t, "General Hospital", hospital["name"])
	})

	t.Run("signin with wrong password", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/auth/signin", "", gin.H{
			"email":    "admin@general.example.org",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("duplicate signup rejected", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
			"name":               "Impostor",
			"email":              "admin@general.example.org",
			"password":           "another-password",
			"registrationNumber": "REG-2",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestAuth_MiddlewareGatesProtectedRoutes(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/patients", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/patients", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token passes", func(t *testing.T) {
		token := ts.signup(t)
		rec := ts.do(t, http.MethodGet, "/api/patients", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_RootAndHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])

	rec = ts.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	db := body["database"].(map[string]any)
	assert.Equal(t, true, db["healthy"])
}

func TestAzure_CheckConfigUnconfigured(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/azure/check-config", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "warning", body["status"])
	assert.Equal(t, false, body["endpoint_configured"])
}
