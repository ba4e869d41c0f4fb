// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/bcbbs/internal/platform/ctxutil"
)

// ChallengePurger removes challenges that can no longer be redeemed.
type ChallengePurger interface {
	DeleteExpired(context context.Context) (int64, error)
}

// PurgeChallenges runs one purge immediately and then once per interval until
// context is cancelled. Failures are logged and retried on the next tick.
func PurgeChallenges(context context.Context, purger ChallengePurger, interval time.Duration) {
	logger := ctxutil.GetLogger(context)

	purge := func() {
		removed, err := purger.DeleteExpired(context)
		if err != nil {
			logger.ErrorContext(context, "captcha_purge_failed", slog.Any("error", err))
			return
		}
		if removed > 0 {
			logger.InfoContext(context, "captcha_purged", slog.Int64("removed", removed))
		}
	}

	purge()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			purge()
		case <-context.Done():
			return
		}
	}
}
