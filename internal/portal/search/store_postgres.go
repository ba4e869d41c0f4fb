// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/bcbbs/internal/platform/dberr"
	"github.com/taibuivan/bcbbs/pkg/query"
)

// PostgresRepository searches portal.searchitem with ILIKE.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Search matches keyword literally; '%' and '_' in the input carry no wildcard meaning.

The total is computed with a window function so a page and its count come
back in one round-trip.
*/
func (repository *PostgresRepository) Search(context context.Context, keyword string, limit, offset int) ([]*Item, int, error) {
	const sql = `
		SELECT id, title, COALESCE(description, ''), url,
		       COUNT(*) OVER() AS total_count
		FROM portal.searchitem
		WHERE title ILIKE $1 OR description ILIKE $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3`

	rows, err := repository.pool.Query(context, sql, query.ContainsPattern(keyword), limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "Search item")
	}
	defer rows.Close()

	items := make([]*Item, 0, limit)
	total := 0
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.URL, &total); err != nil {
			return nil, 0, dberr.Wrap(err, "Search item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "Search item")
	}

	return items, total, nil
}
