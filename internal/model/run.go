/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	RunKindTrace   = "trace"
	RunKindProfile = "profile"
)

// Run is one recorded instrumentation output, a trace or profile file
// written for a single request. Dump holds the request context capture,
// stored encrypted and excluded from marshaling; the control API attaches
// the decrypted capture to its run detail payload itself.
type Run struct {
	ID         uint      `gorm:"primarykey" json:"-"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
	ResourceId string    `gorm:"not null;unique;uniqueIndex:uidx_runs_resource_id" json:"resource_id"`
	Kind       string    `gorm:"not null" json:"kind"`
	Path       string    `gorm:"not null" json:"path"`
	Host       string    `json:"host"`
	RequestURI string    `json:"request_uri"`
	RequestId  string    `gorm:"not null" json:"request_id"`
	StartedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"started_at"`
	Duration   float64   `json:"duration"`
	PeakMemory uint64    `json:"peak_memory"`
	Dump       string    `json:"-"`
}

var (
	ErrRunNotFound = errors.New("run not found")
)

func (m *Model) CreateRun(run *Run) (*Run, error) {
	if err := m.db.Create(run).Error; err != nil {
		return nil, err
	}

	m.notifyRunEvent("create", run.ResourceId)
	return run, nil
}

func (m *Model) DeleteRun(run *Run) error {
	if err := m.db.Delete(run).Error; err != nil {
		return err
	}

	m.notifyRunEvent("delete", run.ResourceId)
	return nil
}

func (m *Model) GetRun(run *Run) (*Run, error) {
	if err := m.db.Where(run).First(run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	return run, nil
}

func (m *Model) ListRuns(runs *[]Run) (*[]Run, error) {
	if err := m.db.Order("started_at DESC").Find(runs).Error; err != nil {
		return nil, err
	}

	return runs, nil
}
