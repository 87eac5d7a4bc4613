/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tschaefer/wren/internal/config"
	"github.com/tschaefer/wren/internal/controller"
	"github.com/tschaefer/wren/internal/model"
	"github.com/tschaefer/wren/internal/profiler"
	"github.com/tschaefer/wren/internal/request"
)

func setup(t *testing.T) (*Handler, *controller.Controller, *config.Config) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err, "open database")

	err = db.AutoMigrate(&model.Run{})
	assert.NoError(t, err, "migrate database")

	cfg := config.NewFromData(&config.Data{
		Enable:   true,
		Database: "sqlite://:memory:",
		Hostname: "wren.example.com",
		Secret:   "s3cret",
		Credentials: config.Credentials{
			Username: "wren",
			Password: "secret",
		},
	}, "")

	ctrl := controller.New(model.New(db), cfg, profiler.NewFactory())
	return New(ctrl, cfg), ctrl, cfg
}

func authed(req *http.Request) *http.Request {
	req.SetBasicAuth("wren", "secret")
	return req
}

func recordedRun(ctrl *controller.Controller, t *testing.T) string {
	ctx := request.New()
	ctx.Server[request.UniqueID] = "req-1"
	ctrl.RecordRun(controller.RunKindTrace, "/tmp/trace.1234.xt", 0.25, 0, ctx, nil)

	runs, err := ctrl.ListRuns()
	assert.NoError(t, err, "list runs")
	assert.Len(t, runs, 1, "run recorded")
	return runs[0]["rid"]
}

func Test_ReturnsError404_PathNotFound(t *testing.T) {
	handler, _, _ := setup(t)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusNotFound, rr.Code, "http status")
}

func Test_ReturnsError405_MethodNotAllowed(t *testing.T) {
	handler, _, _ := setup(t)

	req := authed(httptest.NewRequest(http.MethodPut, "/api/v1/run", nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusMethodNotAllowed, rr.Code, "http status")
}

func Test_ReturnsError401_MissingCredentials(t *testing.T) {
	handler, _, _ := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/run", nil)
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusUnauthorized, rr.Code, "http status")
}

func Test_ReturnsError401_WrongCredentials(t *testing.T) {
	handler, _, _ := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/run", nil)
	req.SetBasicAuth("wren", "wrong")
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusUnauthorized, rr.Code, "http status")
}

func Test_ListRunsReturnsRecordedRuns(t *testing.T) {
	handler, ctrl, _ := setup(t)
	rid := recordedRun(ctrl, t)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/run", nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusOK, rr.Code, "http status")

	var runs []map[string]string
	err := json.NewDecoder(rr.Body).Decode(&runs)
	assert.NoError(t, err, "decode response")
	assert.Len(t, runs, 1, "one run")
	assert.Equal(t, rid, runs[0]["rid"], "resource id")
}

func Test_GetRunReturnsRun(t *testing.T) {
	handler, ctrl, _ := setup(t)
	rid := recordedRun(ctrl, t)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/run/"+rid, nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusOK, rr.Code, "http status")

	var run map[string]any
	err := json.NewDecoder(rr.Body).Decode(&run)
	assert.NoError(t, err, "decode response")
	assert.Equal(t, rid, run["resource_id"], "resource id")
	assert.Equal(t, "trace", run["kind"], "kind")
}

func Test_GetRunReturnsDecryptedCapture(t *testing.T) {
	handler, ctrl, _ := setup(t)

	ctx := request.New()
	ctx.Server[request.UniqueID] = "req-1"
	capture := map[string]map[string]string{"GET": {"user": "alice"}}
	ctrl.RecordRun(controller.RunKindTrace, "/tmp/trace.1234.xt", 0.25, 0, ctx, capture)

	runs, err := ctrl.ListRuns()
	assert.NoError(t, err, "list runs")
	assert.Len(t, runs, 1, "run recorded")

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/run/"+runs[0]["rid"], nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusOK, rr.Code, "http status")

	var run map[string]any
	err = json.NewDecoder(rr.Body).Decode(&run)
	assert.NoError(t, err, "decode response")

	captured, ok := run["capture"].(map[string]any)
	assert.True(t, ok, "capture present")
	group, ok := captured["GET"].(map[string]any)
	assert.True(t, ok, "capture group present")
	assert.Equal(t, "alice", group["user"], "decrypted capture value")
}

func Test_GetRunOmitsCapture_NothingCaptured(t *testing.T) {
	handler, ctrl, _ := setup(t)
	rid := recordedRun(ctrl, t)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/run/"+rid, nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusOK, rr.Code, "http status")

	var run map[string]any
	err := json.NewDecoder(rr.Body).Decode(&run)
	assert.NoError(t, err, "decode response")
	assert.NotContains(t, run, "capture", "no capture attached")
}

func Test_GetRunReturnsError404_UnknownRun(t *testing.T) {
	handler, _, _ := setup(t)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/run/rid:wren:run:missing", nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusNotFound, rr.Code, "http status")
}

func Test_DeleteRunRemovesRun(t *testing.T) {
	handler, ctrl, _ := setup(t)
	rid := recordedRun(ctrl, t)

	req := authed(httptest.NewRequest(http.MethodDelete, "/api/v1/run/"+rid, nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusNoContent, rr.Code, "http status")

	runs, err := ctrl.ListRuns()
	assert.NoError(t, err, "list runs")
	assert.Empty(t, runs, "run removed")
}

func Test_DownloadRunReturns410_FileGone(t *testing.T) {
	handler, ctrl, _ := setup(t)
	rid := recordedRun(ctrl, t)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/run/"+rid+"/download", nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusGone, rr.Code, "http status")
}

func Test_GetStatusReportsToggles(t *testing.T) {
	handler, _, _ := setup(t)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusOK, rr.Code, "http status")

	var status map[string]any
	err := json.NewDecoder(rr.Body).Decode(&status)
	assert.NoError(t, err, "decode response")
	assert.Equal(t, true, status["enable"], "master switch")
	assert.Equal(t, false, status["collect_memory"], "memory toggle")
	assert.Equal(t, false, status["collect_time"], "time toggle")
}

func Test_GetSettingsReturnsLiveValues(t *testing.T) {
	handler, _, _ := setup(t)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusOK, rr.Code, "http status")

	var settings map[string]any
	err := json.NewDecoder(rr.Body).Decode(&settings)
	assert.NoError(t, err, "decode response")
	assert.Equal(t, true, settings["enable"], "master switch")
	assert.Equal(t, "trace.%c", settings["trace.output_name"], "trace output name default")
}

func Test_PatchSettingsFlipsToggle(t *testing.T) {
	handler, _, cfg := setup(t)

	body := bytes.NewBufferString(`{"collect_memory": true}`)
	req := authed(httptest.NewRequest(http.MethodPatch, "/api/v1/settings", body))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusOK, rr.Code, "http status")
	assert.True(t, cfg.CollectMemory(), "toggle flipped")
}

func Test_PatchSettingsReturnsError400_NoToggle(t *testing.T) {
	handler, _, _ := setup(t)

	body := bytes.NewBufferString(`{"trace.output_dir": "/var/tmp"}`)
	req := authed(httptest.NewRequest(http.MethodPatch, "/api/v1/settings", body))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusBadRequest, rr.Code, "http status")
}

func Test_CreateTokenReturnsToken(t *testing.T) {
	handler, ctrl, _ := setup(t)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/token", nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusCreated, rr.Code, "http status")

	var response map[string]string
	err := json.NewDecoder(rr.Body).Decode(&response)
	assert.NoError(t, err, "decode response")
	assert.NotEmpty(t, response["token"], "token issued")

	err = ctrl.ValidateControlToken(response["token"])
	assert.NoError(t, err, "token validates")
}

func Test_GetServiceInfoReturnsDetails(t *testing.T) {
	handler, _, _ := setup(t)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/info", nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusOK, rr.Code, "http status")

	var info map[string]string
	err := json.NewDecoder(rr.Body).Decode(&info)
	assert.NoError(t, err, "decode response")
	assert.Equal(t, "wren.example.com", info["hostname"], "hostname")
	assert.NotEmpty(t, info["release"], "release")
}

func Test_GetOpenAPISpecServesDocument(t *testing.T) {
	handler, _, _ := setup(t)

	req := authed(httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	rr := httptest.NewRecorder()
	handler.Router().ServeHTTP(rr, req)

	assert.EqualValues(t, http.StatusOK, rr.Code, "http status")
	assert.Contains(t, rr.Body.String(), "wren control API", "spec content")
}
