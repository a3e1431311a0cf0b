package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fwojciec/concierge"
	"github.com/fwojciec/concierge/fs"
	"github.com/fwojciec/concierge/redis"
	"github.com/fwojciec/concierge/sqlite"
)

// openStore opens the session store selected by cfg. The returned close
// function releases it.
func openStore(ctx context.Context, cfg config) (concierge.Store, func() error, error) {
	switch cfg.store {
	case "fs":
		return fs.NewStore(filepath.Join(cfg.dataDir, "sessions")), func() error { return nil }, nil
	case "sqlite":
		s, err := sqlite.Open(filepath.Join(cfg.dataDir, "concierge.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		var opts []redis.Option
		if cfg.redisTTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.redisTTL))
		}
		s, err := redis.Dial(ctx, cfg.redisURL, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.store)
	}
}

// printSessions writes one line per cached session, most recent first.
func printSessions(w io.Writer, sessions []concierge.SessionSummary) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No cached sessions.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUPDATED\tTITLE")
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.UpdatedAt.Local().Format(time.DateTime), title)
	}
	return tw.Flush()
}
