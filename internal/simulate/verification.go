package simulate

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/proctor/internal/adapters/repository"
	"github.com/okian/proctor/pkg/logger"
)

// profileOrder is the expected watchlist order, riskiest first.
var profileOrder = map[Profile]int{
	ProfileSuspicious: 0,
	ProfileDistracted: 1,
	ProfileClean:      2,
}

// verifyWatchlist checks that no clean session is ranked riskier than a
// suspicious one. Sessions missing from the watchlist are ignored.
func verifyWatchlist(outcomes []Outcome, watchlist []repository.WatchEntry) error {
	if len(watchlist) == 0 {
		return fmt.Errorf("empty watchlist")
	}

	profiles := make(map[string]Profile, len(outcomes))
	for _, o := range outcomes {
		profiles[o.SessionID] = o.Profile
	}

	worstSuspicious, bestClean := 0, -1
	for _, e := range watchlist {
		switch profiles[e.SessionID] {
		case ProfileSuspicious:
			worstSuspicious = max(worstSuspicious, e.Rank)
		case ProfileClean:
			if bestClean < 0 || e.Rank < bestClean {
				bestClean = e.Rank
			}
		}
	}
	if bestClean >= 0 && worstSuspicious > bestClean {
		return fmt.Errorf("clean session ranked %d ahead of suspicious session ranked %d", bestClean, worstSuspicious)
	}
	return nil
}

// displayOutcomes logs each profile's average score and, when verbose,
// every session.
func displayOutcomes(ctx context.Context, outcomes []Outcome, verbose bool) {
	sorted := make([]Outcome, len(outcomes))
	copy(sorted, outcomes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return profileOrder[sorted[i].Profile] < profileOrder[sorted[j].Profile]
	})

	totals := make(map[Profile]int)
	counts := make(map[Profile]int)
	for _, o := range sorted {
		totals[o.Profile] += o.Report.EffectiveScore
		counts[o.Profile]++
		if verbose {
			logger.Get().Info(ctx, "session outcome",
				logger.Session(o.SessionID),
				logger.String("profile", string(o.Profile)),
				logger.Int("events", o.Events),
				logger.Int("integrityScore", o.Report.Analysis.IntegrityScore),
				logger.String("riskLevel", string(o.Report.Analysis.RiskLevel)),
				logger.Int("legacyScore", o.Report.LegacyScore))
		}
	}

	for _, p := range Profiles() {
		if counts[p] == 0 {
			continue
		}
		logger.Get().Info(ctx, "profile summary",
			logger.String("profile", string(p)),
			logger.Int("sessions", counts[p]),
			logger.Float64("averageScore", float64(totals[p])/float64(counts[p])))
	}
}
