package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partscope/internal/auth"
	"partscope/internal/database"
	"partscope/internal/inventory"
	"partscope/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubClassifier struct {
	score float64
	label int
}

func (s stubClassifier) Classify(ctx context.Context, imageBytes []byte) (float64, int, error) {
	return s.score, s.label, nil
}

type testServer struct {
	router *gin.Engine
	users  *store.UserStore
}

func newTestServer(t *testing.T, classifier stubClassifier, tokenManager *auth.Manager) *testServer {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedDefaultData(db))
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	inventoryStore := store.NewInventoryStore(db)
	predictionStore := store.NewPredictionStore(db)
	userStore := store.NewUserStore(db)

	svc := inventory.NewService(inventory.Deps{
		Store:       inventoryStore,
		Predictions: predictionStore,
		Classifier:  classifier,
		ImagesDir:   t.TempDir(),
		Log:         log,
	})

	server := NewServer(Config{
		Service:     svc,
		Predictions: predictionStore,
		Users:       userStore,
		Auth:        tokenManager,
		Log:         log,
	})
	return &testServer{router: server.Router(), users: userStore}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func encodedPNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestPredictEndpoint(t *testing.T) {
	ts := newTestServer(t, stubClassifier{score: 0.77, label: 1}, nil)

	w := ts.do(t, http.MethodPost, "/api/predict", gin.H{"image_base64": encodedPNG(t)}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Score float64 `json:"score"`
		Label int     `json:"label"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, 0.77, resp.Score)
	assert.Equal(t, 1, resp.Label)
}

func TestPredictRequiresImage(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodPost, "/api/predict", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInventoryListStartsEmpty(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodGet, "/api/inventory", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestUploadAndList(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodPost, "/api/inventory/upload", gin.H{
		"items": []gin.H{{"image_base64": encodedPNG(t), "name": "Bracket"}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var items []map[string]interface{}
	decodeBody(t, w, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Bracket", items[0]["name"])
	assert.Equal(t, "awaiting_review", items[0]["status"])
	assert.Nil(t, items[0]["score"])
}

func TestUploadRejectsBadStatus(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodPost, "/api/inventory/upload", gin.H{
		"items": []gin.H{{"image_base64": encodedPNG(t), "status": "bogus"}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRequiresItems(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodPost, "/api/inventory/upload", gin.H{"items": []gin.H{}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyEndpoint(t *testing.T) {
	ts := newTestServer(t, stubClassifier{score: 0.92, label: 1}, nil)

	w := ts.do(t, http.MethodPost, "/api/inventory/upload", gin.H{
		"items": []gin.H{{"image_base64": encodedPNG(t)}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/inventory/classify", gin.H{}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var items []map[string]interface{}
	decodeBody(t, w, &items)
	require.Len(t, items, 1)
	assert.Equal(t, 0.92, items[0]["score"])
	assert.Equal(t, "needs_attention", items[0]["status"])
}

func TestUpdateEndpoint(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodPost, "/api/inventory/upload", gin.H{
		"items": []gin.H{{"image_base64": encodedPNG(t)}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]interface{}
	decodeBody(t, w, &items)
	id := items[0]["id"].(string)

	w = ts.do(t, http.MethodPatch, "/api/inventory/"+id, gin.H{"status": "cleared", "owner": "Team Delta"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var updated map[string]interface{}
	decodeBody(t, w, &updated)
	assert.Equal(t, "cleared", updated["status"])
	assert.Equal(t, "Team Delta", updated["owner"])
}

func TestUpdateRejectsBadStatusAtBinding(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodPatch, "/api/inventory/whatever", gin.H{"status": "bogus"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateUnknownID(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodPatch, "/api/inventory/missing", gin.H{"status": "cleared"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Inventory item not found")
}

func TestBatchUpdateEndpoint(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodPost, "/api/inventory/upload", gin.H{
		"items": []gin.H{{"image_base64": encodedPNG(t)}, {"image_base64": encodedPNG(t)}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]interface{}
	decodeBody(t, w, &items)
	ids := []string{items[0]["id"].(string), items[1]["id"].(string)}

	w = ts.do(t, http.MethodPost, "/api/inventory/batch-update", gin.H{
		"item_ids": ids,
		"status":   "in_review",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	decodeBody(t, w, &items)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, "in_review", item["status"])
	}
}

func TestBatchUpdateNoMatches(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodPost, "/api/inventory/batch-update", gin.H{
		"item_ids": []string{"ghost"},
		"status":   "cleared",
	}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodPost, "/api/inventory/upload", gin.H{
		"items": []gin.H{{"image_base64": encodedPNG(t)}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]interface{}
	decodeBody(t, w, &items)
	id := items[0]["id"].(string)

	w = ts.do(t, http.MethodDelete, "/api/inventory/"+id, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/inventory/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchDeleteEndpoint(t *testing.T) {
	ts := newTestServer(t, stubClassifier{}, nil)

	w := ts.do(t, http.MethodPost, "/api/inventory/upload", gin.H{
		"items": []gin.H{{"image_base64": encodedPNG(t)}, {"image_base64": encodedPNG(t)}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]interface{}
	decodeBody(t, w, &items)

	w = ts.do(t, http.MethodPost, "/api/inventory/batch-delete", gin.H{
		"item_ids": []string{items[0]["id"].(string), items[1]["id"].(string), "ghost"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Removed int64 `json:"removed"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, int64(2), resp.Removed)
}

func TestInsightsEndpoint(t *testing.T) {
	ts := newTestServer(t, stubClassifier{score: 0.91, label: 1}, nil)

	w := ts.do(t, http.MethodPost, "/api/inventory/upload", gin.H{
		"items": []gin.H{{"image_base64": encodedPNG(t)}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]interface{}
	decodeBody(t, w, &items)
	id := items[0]["id"].(string)

	w = ts.do(t, http.MethodPost, "/api/inventory/classify", gin.H{"item_ids": []string{id}}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/inventory/ai-insights", gin.H{"item_ids": []string{id, "ghost"}}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Insights []map[string]interface{} `json:"insights"`
		Missing  []string                 `json:"missing"`
	}
	decodeBody(t, w, &resp)
	require.Len(t, resp.Insights, 1)
	assert.Equal(t, "needs_attention", resp.Insights[0]["recommended_status"])
	assert.Equal(t, "critical", resp.Insights[0]["priority"])
	assert.Equal(t, []string{"ghost"}, resp.Missing)
}

func TestPredictionHistoryEndpoint(t *testing.T) {
	ts := newTestServer(t, stubClassifier{score: 0.3, label: 0}, nil)

	w := ts.do(t, http.MethodPost, "/api/predict", gin.H{"image_base64": encodedPNG(t)}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/predictions?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []map[string]interface{}
	decodeBody(t, w, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.3, rows[0]["score"])
}

func TestAuthProtectsMutatingRoutes(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)
	ts := newTestServer(t, stubClassifier{}, manager)

	w := ts.do(t, http.MethodPost, "/api/inventory/upload", gin.H{
		"items": []gin.H{{"image_base64": encodedPNG(t)}},
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/token", gin.H{"username": "admin"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tokenResp struct {
		Token string `json:"token"`
	}
	decodeBody(t, w, &tokenResp)
	require.NotEmpty(t, tokenResp.Token)

	w = ts.do(t, http.MethodPost, "/api/inventory/upload", gin.H{
		"items": []gin.H{{"image_base64": encodedPNG(t)}},
	}, map[string]string{"Authorization": "Bearer " + tokenResp.Token})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRejectsUnknownUser(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)
	ts := newTestServer(t, stubClassifier{}, manager)

	w := ts.do(t, http.MethodPost, "/api/auth/token", gin.H{"username": "nobody"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReadRoutesStayOpenWithAuth(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)
	ts := newTestServer(t, stubClassifier{}, manager)

	w := ts.do(t, http.MethodGet, "/api/inventory", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
