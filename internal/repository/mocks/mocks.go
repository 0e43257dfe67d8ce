// Package mocks provides testify mocks for the repository and engine
// interfaces.
package mocks

import (
	"context"

	"github.com/ganot/sitewatch/internal/domain/capture"
	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/stretchr/testify/mock"
)

// WebsiteRepository is a mock for website.Repository.
type WebsiteRepository struct {
	mock.Mock
}

func (m *WebsiteRepository) LoadAll(ctx context.Context) ([]website.Website, error) {
	args := m.Called(ctx)
	if records, ok := args.Get(0).([]website.Website); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WebsiteRepository) SaveAll(ctx context.Context, records []website.Website) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *WebsiteRepository) UpdateFavorite(ctx context.Context, id int64, favorite bool) error {
	args := m.Called(ctx, id, favorite)
	return args.Error(0)
}

func (m *WebsiteRepository) UpdateIndustry(ctx context.Context, id int64, industry string) error {
	args := m.Called(ctx, id, industry)
	return args.Error(0)
}

func (m *WebsiteRepository) UpdateProjectStatus(ctx context.Context, id int64, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// StatusRepository is a mock for website.StatusRepository.
type StatusRepository struct {
	mock.Mock
}

func (m *StatusRepository) ListStatuses(ctx context.Context) ([]website.StatusOption, error) {
	args := m.Called(ctx)
	if opts, ok := args.Get(0).([]website.StatusOption); ok {
		return opts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StatusRepository) AddStatus(ctx context.Context, opt website.StatusOption) error {
	args := m.Called(ctx, opt)
	return args.Error(0)
}

// RunRepository is a mock for capture.RunRepository.
type RunRepository struct {
	mock.Mock
}

func (m *RunRepository) RecordRun(ctx context.Context, run *capture.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *RunRepository) ListRuns(ctx context.Context, limit int) ([]capture.Run, error) {
	args := m.Called(ctx, limit)
	if runs, ok := args.Get(0).([]capture.Run); ok {
		return runs, args.Error(1)
	}
	return nil, args.Error(1)
}

// Engine is a mock for capture.Engine.
type Engine struct {
	mock.Mock
}

func (m *Engine) CheckSite(ctx context.Context, url string) (capture.CheckResult, error) {
	args := m.Called(ctx, url)
	if res, ok := args.Get(0).(capture.CheckResult); ok {
		return res, args.Error(1)
	}
	return capture.CheckResult{}, args.Error(1)
}

func (m *Engine) CaptureScreenshot(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

func (m *Engine) StartBulkCapture(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Engine) CancelBulkCapture(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
