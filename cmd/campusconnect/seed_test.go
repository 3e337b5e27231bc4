package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusconnect/internal/app/services/auth"
	"campusconnect/internal/domain/listings"
	"campusconnect/internal/infra/security"
)

func TestSeedDemoDataIsRepeatable(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := openMemory(logger)
	authSvc := &auth.Service{Users: b.users, Sessions: b.sessions, Tokens: security.RandomTokenGenerator{}}

	require.NoError(t, seedDemoData(ctx, b, authSvc, "", logger))
	require.NoError(t, seedDemoData(ctx, b, authSvc, "", logger))

	admin, err := b.users.ByID(ctx, "demo-admin")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	res, err := b.listings.Search(ctx, listings.SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestSeedDemoDataReportsMissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := openMemory(logger)
	err := seedDemoData(context.Background(), b, &auth.Service{Users: b.users, Sessions: b.sessions}, "/nonexistent/demo.json", logger)
	assert.ErrorContains(t, err, "read fixtures")
}
