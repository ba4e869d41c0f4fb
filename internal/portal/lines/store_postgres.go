// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package lines

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/bcbbs/internal/platform/dberr"
)

// PostgresRepository reads lines from portal.accessline.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (repository *PostgresRepository) ListActive(context context.Context, types []LineType) ([]*Line, error) {
	const query = `
		SELECT id, name, url, type, lastpingms
		FROM portal.accessline
		WHERE active AND type = ANY($1)
		ORDER BY sortorder ASC, id ASC`

	names := make([]string, len(types))
	for i, lineType := range types {
		names[i] = string(lineType)
	}

	rows, err := repository.pool.Query(context, query, names)
	if err != nil {
		return nil, dberr.Wrap(err, "Access line")
	}
	defer rows.Close()

	lines := make([]*Line, 0)
	for rows.Next() {
		var lineType string
		line := &Line{}
		if err := rows.Scan(&line.ID, &line.Name, &line.URL, &lineType, &line.PingMs); err != nil {
			return nil, dberr.Wrap(err, "Access line")
		}
		line.Type = LineType(lineType)
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "Access line")
	}
	return lines, nil
}
