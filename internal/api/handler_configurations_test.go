package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"device-tracking-backend/internal/catalog"
	"device-tracking-backend/internal/configs"
	"device-tracking-backend/internal/validate"
)

func configurationValues(dt catalog.DeviceType) map[string]string {
	values := map[string]string{
		catalog.KeyName:            "Cfg-1",
		catalog.KeyHardwareVersion: "v1.2",
		catalog.KeyADCResolution:   "16",
		catalog.KeyUniqueDeviceID:  "DEV001",
	}
	for _, f := range catalog.Scoped(dt) {
		values[f.Key] = "0.5"
	}
	return values
}

type validationBody struct {
	Error  string          `json:"error"`
	Fields validate.Errors `json:"fields"`
	First  string          `json:"first"`
}

func createConfiguration(t *testing.T, ts *testServer, token string, dt catalog.DeviceType) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/configurations", gin.H{"deviceType": dt, "values": configurationValues(dt)}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		Message       string         `json:"message"`
		Configuration map[string]any `json:"configuration"`
	}
	decode(t, w, &body)
	assert.Equal(t, msgConfigCreated, body.Message)
	return body.Configuration["id"].(string)
}

func TestCreateConfiguration(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signIn(t)

	t.Run("invalid fields are reported in order", func(t *testing.T) {
		values := configurationValues(catalog.MultiMode)
		values[catalog.KeyHardwareVersion] = "v 1"
		values["responsivity850"] = "abc"

		w := ts.do(t, http.MethodPost, "/api/configurations", gin.H{"deviceType": "MM", "values": values}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body validationBody
		decode(t, w, &body)
		assert.Equal(t, "validation failed", body.Error)
		assert.Equal(t, catalog.KeyHardwareVersion, body.First)
		require.Len(t, body.Fields, 2)
		assert.Equal(t, validate.MsgNumber, body.Fields[1].Message)

		list, err := ts.store.ListConfigurations(context.Background())
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("unknown device type", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/configurations", gin.H{"deviceType": "XX", "values": map[string]string{}}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body validationBody
		decode(t, w, &body)
		assert.Equal(t, catalog.KeyDeviceType, body.First)
	})

	t.Run("SM ignores MM fields", func(t *testing.T) {
		id := createConfiguration(t, ts, token, catalog.SingleMode)

		w := ts.do(t, http.MethodGet, "/api/configurations/"+id, nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		var doc map[string]any
		decode(t, w, &doc)
		assert.Equal(t, "SM", doc["deviceType"])
		assert.Equal(t, float64(1240), doc["tiaRegister"])
		assert.Contains(t, doc, "responsivity1550")
		assert.NotContains(t, doc, "responsivity850")
	})
}

func TestConfigurationViews(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signIn(t)
	id := createConfiguration(t, ts, token, catalog.MultiMode)

	t.Run("info lists fields in display order", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/configurations/"+id+"/info", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Fields []configs.FieldView `json:"fields"`
		}
		decode(t, w, &body)

		keys := make([]string, 0, len(body.Fields))
		for _, f := range body.Fields {
			keys = append(keys, f.Key)
		}
		assert.Equal(t, catalog.OrderedKeys(catalog.MultiMode), keys)
		last := body.Fields[len(body.Fields)-1]
		assert.Equal(t, "19 Oct 2026, 3:04:05 pm", last.Value)
	})

	t.Run("edit form carries stored values", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/configurations/"+id+"/edit", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			DeviceType string            `json:"deviceType"`
			Values     map[string]string `json:"values"`
			Fields     []catalog.Field   `json:"fields"`
		}
		decode(t, w, &body)
		assert.Equal(t, "MM", body.DeviceType)
		assert.Equal(t, "Cfg-1", body.Values[catalog.KeyName])
		assert.Equal(t, "0.5", body.Values["responsivity850"])
		assert.Len(t, body.Fields, len(catalog.Visible(catalog.MultiMode)))
	})

	t.Run("list", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/configurations", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Configurations []ConfigurationSummary `json:"configurations"`
		}
		decode(t, w, &body)
		require.Len(t, body.Configurations, 1)
		assert.Equal(t, ConfigurationSummary{ID: id, Name: "Cfg-1", DeviceType: "MM", CreatedOn: "19 Oct 2026, 3:04:05 pm"}, body.Configurations[0])
	})

	t.Run("create form follows the chosen device type", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/create-configuration", nil, token)
		var body struct {
			Fields []catalog.Field `json:"fields"`
		}
		decode(t, w, &body)
		assert.Len(t, body.Fields, len(catalog.Common()))

		w = ts.do(t, http.MethodGet, "/create-configuration?deviceType=SM", nil, token)
		decode(t, w, &body)
		assert.Len(t, body.Fields, len(catalog.Visible(catalog.SingleMode)))
	})

	t.Run("missing configuration", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/configurations/nope/info", nil, token)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Configuration not found."}`, w.Body.String())
	})
}

func TestUpdateConfiguration(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signIn(t)
	id := createConfiguration(t, ts, token, catalog.MultiMode)

	// Prime the list cache.
	w := ts.do(t, http.MethodGet, "/api/configurations", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPut, "/api/configurations/"+id, gin.H{"values": map[string]string{
		catalog.KeyName:        "Cfg-2",
		catalog.KeyDeviceType:  "SM",
		catalog.KeyTIARegister: "1",
	}}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated struct {
		Message       string         `json:"message"`
		Configuration map[string]any `json:"configuration"`
	}
	decode(t, w, &updated)
	assert.Equal(t, msgConfigUpdated, updated.Message)
	assert.Equal(t, "Cfg-2", updated.Configuration["name"])
	assert.Equal(t, "MM", updated.Configuration["deviceType"])
	assert.Equal(t, float64(124000), updated.Configuration["tiaRegister"])

	// The write flushed the cached list.
	w = ts.do(t, http.MethodGet, "/api/configurations", nil, token)
	var list []map[string]any
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Cfg-2", list[0]["name"])

	w = ts.do(t, http.MethodPut, "/api/configurations/"+id, gin.H{"values": map[string]string{catalog.KeyADCResolution: "-4"}}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/api/configurations/missing", gin.H{"values": map[string]string{}}, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Configuration not found."}`, w.Body.String())
}

func TestGetCatalog(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signIn(t)

	w := ts.do(t, http.MethodGet, "/api/catalog?deviceType=MM", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		DeviceTypes []string           `json:"deviceTypes"`
		TIARegister map[string]float64 `json:"tiaRegister"`
		Fields      []catalog.Field    `json:"fields"`
	}
	decode(t, w, &body)
	assert.Equal(t, []string{"MM", "SM"}, body.DeviceTypes)
	assert.Equal(t, map[string]float64{"MM": 124000, "SM": 1240}, body.TIARegister)
	assert.Equal(t, catalog.Visible(catalog.MultiMode), body.Fields)

	w = ts.do(t, http.MethodGet, "/api/catalog?deviceType=XX", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
