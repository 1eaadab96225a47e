package repository

import (
	"sort"

	"github.com/okian/proctor/internal/domain/legacy"
	"github.com/okian/proctor/internal/domain/model"
)

// Score sources reported on watchlist rows.
const (
	SourceBehavioral = "behavioral"
	SourceLegacy     = "legacy"
)

// WatchEntry is one row of the at-risk watchlist.
type WatchEntry struct {
	Rank          int                 `json:"rank"`
	SessionID     string              `json:"session_id"`
	CandidateName string              `json:"candidate_name"`
	Status        model.SessionStatus `json:"status"`
	Score         int                 `json:"score"`
	Source        string              `json:"source"`
}

// Watchlist ranks sessions by effective integrity score ascending, so the
// most at-risk candidates come first. limit <= 0 is rejected; a limit larger
// than the session count returns every session.
func Watchlist(sessions []model.Session, limit int) ([]WatchEntry, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	entries := make([]WatchEntry, 0, len(sessions))
	for _, s := range sessions {
		source := SourceLegacy
		if s.BehavioralScore != nil {
			source = SourceBehavioral
		}
		entries = append(entries, WatchEntry{
			SessionID:     s.ID,
			CandidateName: s.CandidateName,
			Status:        s.Status,
			Score:         legacy.EffectiveScore(s.BehavioralScore, s.LegacyScore),
			Source:        source,
		})
	}
	sortEntries(entries)
	assignRanksWithTies(entries)
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func sortEntries(entries []WatchEntry) {
	sort.Slice(entries, func(i, j int) bool {
		// Lower score comes first
		if entries[i].Score != entries[j].Score {
			return entries[i].Score < entries[j].Score
		}
		// Tie-breaker: session id in ascending order
		return entries[i].SessionID < entries[j].SessionID
	})
}

// assignRanksWithTies gives equal scores the same rank; the next distinct
// score takes the following rank.
func assignRanksWithTies(entries []WatchEntry) {
	if len(entries) == 0 {
		return
	}

	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		sameScoreCount := 1
		for j := i + 1; j < len(entries) && entries[j].Score == entries[i].Score; j++ {
			entries[j].Rank = currentRank
			sameScoreCount++
		}

		currentRank++
		i += sameScoreCount - 1
	}
}
