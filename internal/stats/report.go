package stats

import (
	"context"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions    []model.SessionRecord
	Summary     model.UserStats
	Mistakes    []model.MistakeCount
	Leaderboard []model.LeaderboardEntry
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}

	mistakes, err := st.MistakesForSessions(ctx, sessionIDs(sessions))
	if err != nil {
		return Report{}, err
	}
	board, err := st.Leaderboard(ctx)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Sessions:    sessions,
		Summary:     UserStats(sessions),
		Mistakes:    TopMistakes(mistakes, cfg.Top),
		Leaderboard: SortLeaderboard(board),
	}, nil
}

func sessionIDs(sessions []model.SessionRecord) []int64 {
	ids := make([]int64, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return ids
}
