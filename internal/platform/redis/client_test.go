// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/taibuivan/bcbbs/internal/platform/redis"
)

/*
TestParseOptions_Limits checks that the URL database index survives the tuning.
*/
func TestParseOptions_Limits(t *testing.T) {
	options, err := redisstore.ParseOptions("redis://cache.internal:6379/3")
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6379", options.Addr)
	assert.Equal(t, 3, options.DB)
	assert.Equal(t, 10, options.PoolSize)
}

/*
TestParseOptions_InvalidURL checks that a non-redis scheme is rejected.
*/
func TestParseOptions_InvalidURL(t *testing.T) {
	_, err := redisstore.ParseOptions("http://cache.internal:6379")
	require.Error(t, err)
}

/*
TestNewClient_Connects checks the startup ping against an in-memory server.
*/
func TestNewClient_Connects(t *testing.T) {
	server := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := redisstore.NewClient(context.Background(), "redis://"+server.Addr(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, redisstore.Ping(context.Background(), client))
}

/*
TestNewClient_Unreachable checks that a closed server fails the startup ping.
*/
func TestNewClient_Unreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := redisstore.NewClient(context.Background(), "redis://"+addr, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping")
}
