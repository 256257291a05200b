package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/model"
	apperrors "orcsync.io/hub/internal/pkg/errors"
)

// syncConfigCreateRequest is the body of POST /sync-configs.
type syncConfigCreateRequest struct {
	StationID int    `json:"station_id" binding:"required"`
	BaseURL   string `json:"base_url" binding:"required"`
	APIKey    string `json:"api_key" binding:"required"`
}

// syncConfigUpdateRequest is the body of PATCH /sync-configs/:id. Pointer
// fields distinguish "leave unchanged" from explicit values.
type syncConfigUpdateRequest struct {
	StationID *int    `json:"station_id"`
	BaseURL   *string `json:"base_url"`
	APIKey    *string `json:"api_key"`
}

type stationInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// syncConfigResponse renders a credential without its api_key; the key is
// write-only and never leaves the hub once stored.
type syncConfigResponse struct {
	ID        int         `json:"id"`
	Station   stationInfo `json:"station"`
	BaseURL   string      `json:"base_url"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func syncConfigFromModel(cred *model.StationCredential) syncConfigResponse {
	resp := syncConfigResponse{
		ID:        cred.ID,
		BaseURL:   cred.BaseURL,
		CreatedAt: cred.CreatedAt,
		UpdatedAt: cred.UpdatedAt,
	}
	if cred.Station != nil {
		resp.Station = stationInfo{ID: cred.Station.ID, Name: cred.Station.Name}
	} else {
		resp.Station = stationInfo{ID: cred.StationID}
	}
	return resp
}

// ListSyncConfigs handles GET /sync-configs.
func (s *Server) ListSyncConfigs(c *gin.Context) {
	var creds []model.StationCredential
	err := s.db.WithContext(c.Request.Context()).
		Preload("Station").
		Order("id").
		Find(&creds).Error
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternalError, "Failed to list sync configs", http.StatusInternalServerError))
		return
	}

	out := make([]syncConfigResponse, len(creds))
	for i := range creds {
		out[i] = syncConfigFromModel(&creds[i])
	}
	c.JSON(http.StatusOK, out)
}

// CreateSyncConfig handles POST /sync-configs.
func (s *Server) CreateSyncConfig(c *gin.Context) {
	var req syncConfigCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "station_id, base_url and api_key are required"))
		return
	}

	ctx := c.Request.Context()
	var station model.Station
	if err := s.db.WithContext(ctx).First(&station, req.StationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeStationNotFound, "Referenced station does not exist"))
			return
		}
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternalError, "Failed to load station", http.StatusInternalServerError))
		return
	}

	cred := model.StationCredential{
		StationID: req.StationID,
		APIKey:    req.APIKey,
		BaseURL:   req.BaseURL,
	}
	if err := s.db.WithContext(ctx).Create(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			_ = c.Error(apperrors.Conflict(apperrors.CodeSyncConfigExists, "The station already has a credential or the api_key is taken"))
			return
		}
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternalError, "Failed to create sync config", http.StatusInternalServerError))
		return
	}

	cred.Station = &station
	c.JSON(http.StatusCreated, syncConfigFromModel(&cred))
}

// GetSyncConfig handles GET /sync-configs/:id.
func (s *Server) GetSyncConfig(c *gin.Context) {
	cred, ok := s.loadSyncConfig(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, syncConfigFromModel(cred))
}

// UpdateSyncConfig handles PATCH /sync-configs/:id.
func (s *Server) UpdateSyncConfig(c *gin.Context) {
	cred, ok := s.loadSyncConfig(c)
	if !ok {
		return
	}

	var req syncConfigUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "Malformed request body"))
		return
	}

	ctx := c.Request.Context()
	updates := map[string]any{}
	if req.StationID != nil {
		var station model.Station
		if err := s.db.WithContext(ctx).First(&station, *req.StationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				_ = c.Error(apperrors.BadRequest(apperrors.CodeStationNotFound, "Referenced station does not exist"))
				return
			}
			_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternalError, "Failed to load station", http.StatusInternalServerError))
			return
		}
		updates["station_id"] = *req.StationID
	}
	if req.BaseURL != nil {
		updates["base_url"] = *req.BaseURL
	}
	if req.APIKey != nil {
		updates["api_key"] = *req.APIKey
	}

	if len(updates) > 0 {
		err := s.db.WithContext(ctx).Model(cred).Updates(updates).Error
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				_ = c.Error(apperrors.Conflict(apperrors.CodeSyncConfigExists, "The station already has a credential or the api_key is taken"))
				return
			}
			_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternalError, "Failed to update sync config", http.StatusInternalServerError))
			return
		}
	}

	// Re-read so the response carries the station and fresh timestamps.
	var fresh model.StationCredential
	if err := s.db.WithContext(ctx).Preload("Station").First(&fresh, cred.ID).Error; err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternalError, "Failed to reload sync config", http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, syncConfigFromModel(&fresh))
}

// DeleteSyncConfig handles DELETE /sync-configs/:id.
func (s *Server) DeleteSyncConfig(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "id must be an integer"))
		return
	}

	res := s.db.WithContext(c.Request.Context()).Delete(&model.StationCredential{}, id)
	if res.Error != nil {
		_ = c.Error(apperrors.Wrap(res.Error, apperrors.CodeInternalError, "Failed to delete sync config", http.StatusInternalServerError))
		return
	}
	if res.RowsAffected == 0 {
		_ = c.Error(apperrors.NotFound(apperrors.CodeSyncConfigNotFound, "Sync config not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

// ListWorkstations handles GET /workstation-list — the station roster used
// when wiring new sync relationships.
func (s *Server) ListWorkstations(c *gin.Context) {
	var stations []model.Station
	err := s.db.WithContext(c.Request.Context()).
		Order("id").
		Find(&stations).Error
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternalError, "Failed to list stations", http.StatusInternalServerError))
		return
	}

	out := make([]stationInfo, len(stations))
	for i, st := range stations {
		out[i] = stationInfo{ID: st.ID, Name: st.Name}
	}
	c.JSON(http.StatusOK, out)
}

/// loadSyncConfig parses :id and loads the credential with its station,
// rendering the error response itself when either step fails.
func (s *Server) loadSyncConfig(c *gin.Context) (*model.StationCredential, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "id must be an integer"))
		return nil, false
	}

	var cred model.StationCredential
	err = s.db.WithContext(c.Request.Context()).
		Preload("Station").
		First(&cred, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.Error(apperrors.NotFound(apperrors.CodeSyncConfigNotFound, "Sync config not found"))
			return nil, false
		}
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternalError, "Failed to load sync config", http.StatusInternalServerError))
		return nil, false
	}
	return &cred, true
}
