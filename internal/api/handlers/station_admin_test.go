package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/api/middleware"
	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/testutil"
)

// adminRouter wires the sync-config endpoints the way the real router does,
// with the error-handler middleware rendering AppErrors.
func adminRouter(t *testing.T, prefix string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.OpenGorm(t, prefix)
	s := NewServer(ServerDeps{DB: db})

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/sync-configs/", s.ListSyncConfigs)
	r.POST("/sync-configs/", s.CreateSyncConfig)
	r.GET("/sync-configs/:id/", s.GetSyncConfig)
	r.PATCH("/sync-configs/:id/", s.UpdateSyncConfig)
	r.DELETE("/sync-configs/:id/", s.DeleteSyncConfig)
	r.GET("/workstation-list/", s.ListWorkstations)
	return r, db
}

func adminRequest(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSyncConfig_CreateAndGet(t *testing.T) {
	t.Parallel()
	r, db := adminRouter(t, "admin-create")
	require.NoError(t, db.Create(&model.Station{ID: 1, Name: "Station A"}).Error)

	w := adminRequest(t, r, http.MethodPost, "/sync-configs/",
		`{"station_id": 1, "base_url": "http://station-a.local:8000", "api_key": "key-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID      int `json:"id"`
		Station struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"station"`
		BaseURL string `json:"base_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 1, created.Station.ID)
	assert.Equal(t, "Station A", created.Station.Name)
	assert.Equal(t, "http://station-a.local:8000", created.BaseURL)
	// The api_key is write-only.
	assert.NotContains(t, w.Body.String(), "key-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	w = adminRequest(t, r, http.MethodGet, fmt.Sprintf("/sync-configs/%d/", created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Station A"`)
}

func TestSyncConfig_CreateRejectsUnknownStation(t *testing.T) {
	t.Parallel()
	r, _ := adminRouter(t, "admin-nostation")

	w := adminRequest(t, r, http.MethodPost, "/sync-configs/",
		`{"station_id": 99, "base_url": "http://nowhere.local", "api_key": "key-bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "STATION_NOT_FOUND")
}

func TestSyncConfig_CreateRejectsMissingFields(t *testing.T) {
	t.Parallel()
	r, _ := adminRouter(t, "admin-missing")

	w := adminRequest(t, r, http.MethodPost, "/sync-configs/", `{"station_id": 1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
}

func TestSyncConfig_DuplicateStationConflicts(t *testing.T) {
	t.Parallel()
	r, db := adminRouter(t, "admin-dup")
	require.NoError(t, db.Create(&model.Station{ID: 1, Name: "Station A"}).Error)

	w := adminRequest(t, r, http.MethodPost, "/sync-configs/",
		`{"station_id": 1, "base_url": "http://a.local", "api_key": "key-cccccccccccccccccccccccccccccccc"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// One credential per station.
	w = adminRequest(t, r, http.MethodPost, "/sync-configs/",
		`{"station_id": 1, "base_url": "http://a2.local", "api_key": "key-dddddddddddddddddddddddddddddddd"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SYNC_CONFIG_EXISTS")
}

func TestSyncConfig_List(t *testing.T) {
	t.Parallel()
	r, db := adminRouter(t, "admin-list")
	stations := []model.Station{{ID: 1, Name: "Station A"}, {ID: 2, Name: "Station B"}}
	require.NoError(t, db.Create(&stations).Error)
	creds := []model.StationCredential{
		{StationID: 1, APIKey: "key-e1", BaseURL: "http://a.local"},
		{StationID: 2, APIKey: "key-e2", BaseURL: "http://b.local"},
	}
	require.NoError(t, db.Create(&creds).Error)

	w := adminRequest(t, r, http.MethodGet, "/sync-configs/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.NotContains(t, w.Body.String(), "key-e1")
}

func TestSyncConfig_Update(t *testing.T) {
	t.Parallel()
	r, db := adminRouter(t, "admin-update")
	require.NoError(t, db.Create(&model.Station{ID: 1, Name: "Station A"}).Error)
	cred := model.StationCredential{StationID: 1, APIKey: "key-f1", BaseURL: "http://old.local"}
	require.NoError(t, db.Create(&cred).Error)

	w := adminRequest(t, r, http.MethodPatch, fmt.Sprintf("/sync-configs/%d/", cred.ID),
		`{"base_url": "http://new.local"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"base_url":"http://new.local"`)

	var stored model.StationCredential
	require.NoError(t, db.First(&stored, cred.ID).Error)
	assert.Equal(t, "http://new.local", stored.BaseURL)
	assert.Equal(t, "key-f1", stored.APIKey, "unsent fields stay put")
}

func TestSyncConfig_DeleteThenNotFound(t *testing.T) {
	t.Parallel()
	r, db := adminRouter(t, "admin-del")
	require.NoError(t, db.Create(&model.Station{ID: 1, Name: "Station A"}).Error)
	cred := model.StationCredential{StationID: 1, APIKey: "key-g1", BaseURL: "http://a.local"}
	require.NoError(t, db.Create(&cred).Error)

	w := adminRequest(t, r, http.MethodDelete, fmt.Sprintf("/sync-configs/%d/", cred.ID), "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = adminRequest(t, r, http.MethodDelete, fmt.Sprintf("/sync-configs/%d/", cred.ID), "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "SYNC_CONFIG_NOT_FOUND")

	w = adminRequest(t, r, http.MethodGet, fmt.Sprintf("/sync-configs/%d/", cred.ID), "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncConfig_InvalidID(t *testing.T) {
	t.Parallel()
	r, _ := adminRouter(t, "admin-badid")

	w := adminRequest(t, r, http.MethodGet, "/sync-configs/abc/", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
}

func TestWorkstationList(t *testing.T) {
	t.Parallel()
	r, db := adminRouter(t, "admin-stations")
	stations := []model.Station{{ID: 1, Name: "Station A"}, {ID: 2, Name: "Station B"}}
	require.NoError(t, db.Create(&stations).Error)

	w := adminRequest(t, r, http.MethodGet, "/workstation-list/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id": 1, "name": "Station A"}, {"id": 2, "name": "Station B"}]`, w.Body.String())
}
