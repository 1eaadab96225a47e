package repository_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/proctor/internal/adapters/repository"
	"github.com/okian/proctor/internal/domain/model"
)

func scored(id string, legacyScore int, behavioral *int) model.Session {
	return model.Session{ID: id, CandidateName: "c-" + id, Status: model.StatusInProgress, LegacyScore: legacyScore, BehavioralScore: behavioral}
}

func intp(v int) *int { return &v }

func TestWatchlist(t *testing.T) {
	Convey("Given a set of scored sessions", t, func() {
		sessions := []model.Session{
			scored("d", 90, nil),
			scored("a", 95, intp(40)),
			scored("c", 40, nil),
			scored("b", 10, intp(0)),
			scored("e", 100, nil),
		}

		Convey("When the full watchlist is built", func() {
			entries, err := repository.Watchlist(sessions, 10)
			So(err, ShouldBeNil)

			Convey("Then the most at-risk session comes first", func() {
				So(entries, ShouldHaveLength, 5)
				So(entries[0].SessionID, ShouldEqual, "b")
				So(entries[0].Score, ShouldEqual, 0)
				So(entries[0].Source, ShouldEqual, repository.SourceBehavioral)
			})

			Convey("Then equal scores share a rank and ties break by id", func() {
				So(entries[1].SessionID, ShouldEqual, "a")
				So(entries[2].SessionID, ShouldEqual, "c")
				So(entries[1].Rank, ShouldEqual, 2)
				So(entries[2].Rank, ShouldEqual, 2)
				So(entries[2].Source, ShouldEqual, repository.SourceLegacy)
			})

			Convey("Then ranks stay dense after a tie", func() {
				So(entries[3].SessionID, ShouldEqual, "d")
				So(entries[3].Rank, ShouldEqual, 3)
				So(entries[4].Rank, ShouldEqual, 4)
			})
		})

		Convey("When the limit is smaller than the set", func() {
			entries, err := repository.Watchlist(sessions, 2)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 2)
			So(entries[1].SessionID, ShouldEqual, "a")
		})

		Convey("When the limit is not positive", func() {
			_, err := repository.Watchlist(sessions, 0)
			So(err, ShouldEqual, repository.ErrInvalidLimit)
		})

		Convey("When there are no sessions", func() {
			entries, err := repository.Watchlist(nil, 5)
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})
	})
}
