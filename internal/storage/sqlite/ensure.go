package sqlite

import (
	"github.com/felixgeelhaar/stint/internal/leaderboard"
	"github.com/felixgeelhaar/stint/internal/split"
	"github.com/felixgeelhaar/stint/internal/tracker"
)

// Compile-time checks that the SQLite stores satisfy every consumer interface.
var (
	_ tracker.SessionStore      = (*SessionStore)(nil)
	_ split.SessionStore        = (*SessionStore)(nil)
	_ leaderboard.SessionStore  = (*SessionStore)(nil)
	_ tracker.UserDirectory     = (*UserStore)(nil)
	_ leaderboard.UserDirectory = (*UserStore)(nil)
	_ split.MarkStore           = (*MarkStore)(nil)
)
