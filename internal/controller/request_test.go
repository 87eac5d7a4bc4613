/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tschaefer/wren/internal/config"
	"github.com/tschaefer/wren/internal/coverage"
)

func Test_BindRequestReturnsIdleBinding(t *testing.T) {
	ctrl := newController(t, nil)
	req := ctrl.BindRequest(newRequestContext("req-1"))

	assert.NotNil(t, req, "binding created")
	assert.False(t, req.Collecting(), "nothing collecting")
	assert.False(t, req.CoverageStarted(), "coverage stopped")
}

func Test_StopTraceRecordsRun(t *testing.T) {
	ctrl := newController(t, nil)
	req := ctrl.BindRequest(newRequestContext("req-1"))

	assert.NoError(t, req.Init(), "request init")

	_, ok, err := req.StartTrace("", 0)
	assert.NoError(t, err, "start trace")
	assert.True(t, ok, "trace started")

	path, ok := req.StopTrace()
	assert.True(t, ok, "trace stopped")

	runs, err := ctrl.ListRuns()
	assert.NoError(t, err, "list runs")
	assert.Len(t, runs, 1, "run recorded")
	assert.Equal(t, RunKindTrace, runs[0]["kind"], "trace run")
	assert.Equal(t, path, runs[0]["path"], "run path")

	req.Shutdown()
}

func Test_ShutdownRecordsActiveSinks(t *testing.T) {
	ctrl := newController(t, nil)
	req := ctrl.BindRequest(newRequestContext("req-1"))

	assert.NoError(t, req.Init(), "request init")

	_, ok, err := req.StartTrace("", 0)
	assert.NoError(t, err, "start trace")
	assert.True(t, ok, "trace started")

	_, ok, err = req.StartProfile()
	assert.NoError(t, err, "start profile")
	assert.True(t, ok, "profile started")

	req.Shutdown()

	runs, err := ctrl.ListRuns()
	assert.NoError(t, err, "list runs")
	assert.Len(t, runs, 2, "both sinks recorded")
}

func Test_ShutdownWithoutInstrumentationRecordsNothing(t *testing.T) {
	ctrl := newController(t, nil)
	req := ctrl.BindRequest(newRequestContext("req-1"))

	assert.NoError(t, req.Init(), "request init")
	req.Shutdown()

	runs, err := ctrl.ListRuns()
	assert.NoError(t, err, "list runs")
	assert.Empty(t, runs, "no runs recorded")
}

func Test_RecordedRunCarriesRequestDetails(t *testing.T) {
	ctrl := newController(t, func(data *config.Data) {
		data.Dump = map[string]string{"SERVER": "*"}
	})
	req := ctrl.BindRequest(newRequestContext("req-1"))

	assert.NoError(t, req.Init(), "request init")

	_, ok, err := req.StartTrace("", 0)
	assert.NoError(t, err, "start trace")
	assert.True(t, ok, "trace started")
	req.Shutdown()

	runs, err := ctrl.ListRuns()
	assert.NoError(t, err, "list runs")
	assert.Len(t, runs, 1, "run recorded")

	run, err := ctrl.GetRun(runs[0]["rid"])
	assert.NoError(t, err, "get run")
	assert.Equal(t, "wren.example.com", run.Host, "host")
	assert.Equal(t, "/checkout", run.RequestURI, "request uri")
	assert.Equal(t, "req-1", run.RequestId, "request id")
	assert.GreaterOrEqual(t, run.Duration, 0.0, "duration")
	assert.Contains(t, run.Dump, "HTTP_HOST", "decrypted capture")
}

func Test_CoverageRoundTrip(t *testing.T) {
	ctrl := newController(t, nil)
	req := ctrl.BindRequest(newRequestContext("req-1"))

	assert.NoError(t, req.StartCoverage(0), "start coverage")
	assert.True(t, req.CoverageStarted(), "coverage running")

	req.CountLine("/app/index.go", 10)
	req.CountLine("/app/index.go", 10)
	req.StopCoverage(false)

	report := req.Coverage()
	assert.Equal(t, 2, report["/app/index.go"][10], "line counts")
}

func Test_StartCoverageWarnsInNestedContext(t *testing.T) {
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctrl := newController(t, nil)
	ctx := newRequestContext("req-1")
	ctx.Nested = true
	req := ctrl.BindRequest(ctx)

	assert.NoError(t, req.StartCoverage(0), "nested start proceeds")
	assert.True(t, req.CoverageStarted(), "coverage running")
	assert.Contains(t, buf.String(), "nested execution context", "advisory warning")
}

func Test_StartCoverageStaysSilentInTopLevelContext(t *testing.T) {
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctrl := newController(t, nil)
	req := ctrl.BindRequest(newRequestContext("req-1"))

	assert.NoError(t, req.StartCoverage(0), "start coverage")
	assert.NotContains(t, buf.String(), "nested execution context", "no advisory warning")
}

func Test_StartCoverageRejectsOptions(t *testing.T) {
	ctrl := newController(t, nil)
	req := ctrl.BindRequest(newRequestContext("req-1"))

	err := req.StartCoverage(1)
	assert.ErrorIs(t, err, coverage.ErrUnsupportedOption, "options rejected")
}

func Test_ShutdownDiscardsCoverage(t *testing.T) {
	ctrl := newController(t, nil)
	req := ctrl.BindRequest(newRequestContext("req-1"))

	assert.NoError(t, req.StartCoverage(0), "start coverage")
	req.CountLine("/app/index.go", 10)

	req.Shutdown()
	assert.Empty(t, req.Coverage(), "coverage discarded")
}

func Test_MemoryUsageReportsHeap(t *testing.T) {
	ctrl := newController(t, nil)
	req := ctrl.BindRequest(newRequestContext("req-1"))

	usage := req.MemoryUsage()
	assert.Greater(t, usage, uint64(0), "current usage")
	assert.GreaterOrEqual(t, req.PeakMemoryUsage(), usage, "peak at least current")
}

func Test_CallFunctionReturnsCallingFunction(t *testing.T) {
	ctrl := newController(t, nil)
	req := ctrl.BindRequest(newRequestContext("req-1"))

	function := func() string {
		return req.CallFunction()
	}()
	assert.Contains(t, function, "CallFunctionReturnsCallingFunction", "caller of the closure")

	file := func() string {
		return req.CallFile()
	}()
	assert.Contains(t, file, "request_test.go", "caller file")

	line := func() int {
		return req.CallLine()
	}()
	assert.Greater(t, line, 0, "caller line")
}

func Test_DumpContextFiltersGroups(t *testing.T) {
	ctrl := newController(t, func(data *config.Data) {
		data.Dump = map[string]string{
			"GET":    "user, page",
			"COOKIE": "*",
			"POST":   "",
		}
	})

	ctx := newRequestContext("req-1")
	ctx.Get["user"] = "alice"
	ctx.Get["token"] = "secret"
	ctx.Cookie["theme"] = "dark"
	ctx.Post["body"] = "data"
	req := ctrl.BindRequest(ctx)

	capture := req.DumpContext()
	assert.Equal(t, "alice", capture["GET"]["user"], "named key taken")
	assert.NotContains(t, capture["GET"], "token", "unnamed key skipped")
	assert.Equal(t, "dark", capture["COOKIE"]["theme"], "wildcard group")
	assert.NotContains(t, capture, "POST", "empty selector skipped")
	assert.NotContains(t, capture, "SERVER", "unselected group skipped")
}
