package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"device-tracking-backend/internal/catalog"
	"device-tracking-backend/internal/model"
	"device-tracking-backend/internal/session"
	"device-tracking-backend/internal/store"
	"device-tracking-backend/internal/validate"
)

const (
	msgConfigCreated      = "Configuration created successfully!"
	msgConfigCreateFailed = "Failed to create configuration."
	msgConfigUpdated      = "Configuration updated successfully."
	msgConfigUpdateFailed = "Failed to update configuration."
	msgConfigNotFound     = "Configuration not found."
	msgConfigFetchFailed  = "Error fetching configuration data."
)

var deviceTypes = []catalog.DeviceType{catalog.MultiMode, catalog.SingleMode}

type createConfigurationRequest struct {
	DeviceType string            `json:"deviceType"`
	Values     map[string]string `json:"values"`
}

type updateConfigurationRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

// ConfigurationSummary is one row of the configurations list.
type ConfigurationSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DeviceType string `json:"deviceType"`
	CreatedOn  string `json:"createdOn"`
}

func configurationDocument(cfg *model.Configuration) map[string]any {
	doc := cfg.Document()
	doc["id"] = cfg.ID
	return doc
}

// GetCatalog handles GET /api/catalog. With ?deviceType= only the fields
// visible for that type are listed.
func (h *Handler) GetCatalog(c *gin.Context) {
	fields := catalog.All()
	if dt := catalog.DeviceType(c.Query("deviceType")); dt != "" {
		if !catalog.ValidDeviceType(dt) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown device type"})
			return
		}
		fields = catalog.Visible(dt)
	}

	tia := make(map[catalog.DeviceType]float64, len(deviceTypes))
	for _, dt := range deviceTypes {
		tia[dt], _ = catalog.TIARegister(dt)
	}
	c.JSON(http.StatusOK, gin.H{
		"deviceTypes": deviceTypes,
		"tiaRegister": tia,
		"fields":      fields,
	})
}

// ListConfigurations handles GET /api/configurations.
func (h *Handler) ListConfigurations(c *gin.Context) {
	list, err := h.configs.List(c.Request.Context())
	if err != nil {
		h.log.Error("error listing configurations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgConfigFetchFailed})
		return
	}
	docs := make([]map[string]any, 0, len(list))
	for i := range list {
		docs = append(docs, configurationDocument(&list[i]))
	}
	c.JSON(http.StatusOK, docs)
}

// GetConfiguration handles GET /api/configurations/:id.
func (h *Handler) GetConfiguration(c *gin.Context) {
	cfg, err := h.configs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.configFetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, configurationDocument(cfg))
}

// CreateConfiguration handles POST /api/configurations.
func (h *Handler) CreateConfiguration(c *gin.Context) {
	var req createConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	cfg, err := h.configs.Create(c.Request.Context(), req.DeviceType, req.Values)
	if err != nil {
		var verrs validate.Errors
		if errors.As(err, &verrs) {
			validationFailed(c, verrs, nil)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgConfigCreateFailed})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msgConfigCreated, "configuration": configurationDocument(cfg)})
}

// UpdateConfiguration handles PUT /api/configurations/:id. Device type and
// TIA register are kept whatever the body says.
func (h *Handler) UpdateConfiguration(c *gin.Context) {
	var req updateConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	cfg, err := h.configs.Update(c.Request.Context(), c.Param("id"), req.Values)
	if err != nil {
		var verrs validate.Errors
		switch {
		case errors.As(err, &verrs):
			validationFailed(c, verrs, nil)
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": msgConfigNotFound})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgConfigUpdateFailed})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgConfigUpdated, "configuration": configurationDocument(cfg)})
}

// ConfigurationsView handles GET /configurations.
func (h *Handler) ConfigurationsView(c *gin.Context) {
	list, err := h.configs.List(c.Request.Context())
	if err != nil {
		h.log.Error("error listing configurations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgConfigFetchFailed})
		return
	}
	rows := make([]ConfigurationSummary, 0, len(list))
	for _, cfg := range list {
		rows = append(rows, ConfigurationSummary{
			ID:         cfg.ID,
			Name:       cfg.Name,
			DeviceType: cfg.DeviceType,
			CreatedOn:  h.configs.FormatTime(cfg.CreatedOn),
		})
	}
	c.JSON(http.StatusOK, gin.H{"user": userView(session.Current(c)), "configurations": rows})
}

// ConfigurationInfoView handles GET /configurations/:id/info.
func (h *Handler) ConfigurationInfoView(c *gin.Context) {
	id := c.Param("id")
	rows, err := h.configs.View(c.Request.Context(), id)
	if err != nil {
		h.configFetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userView(session.Current(c)), "id": id, "fields": rows})
}

// ConfigurationEditView handles GET /configurations/:id/edit. The device
// type is shown but cannot be changed.
func (h *Handler) ConfigurationEditView(c *gin.Context) {
	cfg, values, fields, err := h.configs.EditForm(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.configFetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":       userView(session.Current(c)),
		"id":         cfg.ID,
		"deviceType": cfg.DeviceType,
		"values":     values,
		"fields":     fields,
	})
}

// CreateConfigurationView handles GET /create-configuration. Until a device
// type is chosen only the common fields are shown.
func (h *Handler) CreateConfigurationView(c *gin.Context) {
	dt := catalog.DeviceType(c.Query("deviceType"))
	fields := catalog.Common()
	if catalog.ValidDeviceType(dt) {
		fields = catalog.Visible(dt)
	} else {
		dt = ""
	}

	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f.Key] = ""
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        userView(session.Current(c)),
		"deviceTypes": deviceTypes,
		"deviceType":  dt,
		"fields":      fields,
		"values":      values,
	})
}

func (h *Handler) configFetchError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": msgConfigNotFound})
		return
	}
	h.log.Error("error fetching configuration", zap.String("id", c.Param("id")), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msgConfigFetchFailed})
}
