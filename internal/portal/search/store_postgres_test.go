// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search_test

import (
	"context"
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/bcbbs/internal/platform/postgres/pgtest"
	"github.com/taibuivan/bcbbs/internal/portal/search"
)

/*
TestPostgresRepository_Search matches title or description case-insensitively
and treats wildcard characters literally.
*/
func TestPostgresRepository_Search(t *testing.T) {
	pool := pgtest.Open(t)
	ctx := context.Background()
	tag := ksuid.New().String()

	insert := func(title string, description any) {
		_, err := pool.Exec(ctx,
			`INSERT INTO portal.searchitem (title, description, url) VALUES ($1, $2, '/x')`,
			title, description,
		)
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM portal.searchitem WHERE title LIKE $1`, "%"+tag+"%")
	})

	insert(tag+" Agent onboarding", nil)
	insert(tag+" Member FAQ", "covers AGENT logins too")
	insert(tag+" 100% uptime", "status page")
	insert(tag+" 1000 uptime", "status page")

	repository := search.NewPostgresRepository(pool)

	items, total, err := repository.Search(ctx, tag+" agent", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Description)

	items, total, err = repository.Search(ctx, "100%", 10, 0)
	require.NoError(t, err)
	for _, item := range items {
		assert.Contains(t, item.Title, "100%")
	}
	assert.GreaterOrEqual(t, total, 1)

	items, total, err = repository.Search(ctx, tag, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, items, 1)
}
