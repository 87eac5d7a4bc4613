/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package monitor

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tschaefer/wren/internal/config"
)

func Test_NewReturnsDisabledMonitor_NoAddress(t *testing.T) {
	cfg := config.NewFromData(&config.Data{Monitor: ""}, "")

	m := New(cfg, false)
	assert.NotNil(t, m, "create monitor")

	v := reflect.ValueOf(m).Elem()
	assert.False(t, v.FieldByName("enabled").Bool(), "monitor disabled")

	err := m.Run()
	assert.NoError(t, err, "disabled run is a no-op")
	m.Stop()
}

func Test_NewSetsServerAddressAndLoggingOn(t *testing.T) {
	cfg := config.NewFromData(&config.Data{Monitor: "https://pyroscope.example.com"}, "")

	m := New(cfg, true)
	assert.NotNil(t, m, "create monitor")

	v := reflect.ValueOf(m).Elem()
	cfgField := v.FieldByName("config")
	addr := cfgField.FieldByName("ServerAddress")
	assert.Equal(t, "https://pyroscope.example.com", addr.String(), "set server address")

	logger := cfgField.FieldByName("Logger")
	assert.False(t, logger.IsNil(), "logging is on")
	assert.True(t, v.FieldByName("enabled").Bool(), "monitor enabled")
}

func Test_NewLeavesLoggerNil_LoggingOff(t *testing.T) {
	cfg := config.NewFromData(&config.Data{Monitor: "http://pyroscope:4040"}, "")

	m := New(cfg, false)
	v := reflect.ValueOf(m).Elem()
	logger := v.FieldByName("config").FieldByName("Logger")
	assert.True(t, logger.IsNil(), "logging is off")
}
