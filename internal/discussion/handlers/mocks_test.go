package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/discussion"
	"github.com/zjrosen/discussions/internal/profanity"
	"github.com/zjrosen/discussions/internal/sites"
)

type mockSiteResolver struct {
	mock.Mock
}

func (m *mockSiteResolver) CurrentSite(ctx context.Context) (*sites.Site, error) {
	args := m.Called(ctx)
	site, _ := args.Get(0).(*sites.Site)
	return site, args.Error(1)
}

type mockConfigLookup struct {
	mock.Mock
}

func (m *mockConfigLookup) Configuration(ctx context.Context, site *sites.Site) (*sites.Configuration, error) {
	args := m.Called(ctx, site)
	cfg, _ := args.Get(0).(*sites.Configuration)
	return cfg, args.Error(1)
}

type mockMessageSender struct {
	mock.Mock
}

func (m *mockMessageSender) SendMessage(ctx context.Context, comment *discussion.Post, site *sites.Site) error {
	return m.Called(ctx, comment, site).Error(0)
}

type mockProfanityChecker struct {
	mock.Mock
}

func (m *mockProfanityChecker) CheckForProfanityAndReport(ctx context.Context, check profanity.Check) (*profanity.Result, error) {
	args := m.Called(ctx, check)
	result, _ := args.Get(0).(*profanity.Result)
	return result, args.Error(1)
}

type mockMapUpdater struct {
	mock.Mock
}

func (m *mockMapUpdater) UpdateDiscussionsMap(ctx context.Context, key course.CourseKey) error {
	return m.Called(ctx, key).Error(0)
}
