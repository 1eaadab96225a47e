package simulate_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/proctor/internal/domain/integrity"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/simulate"
)

var scriptStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func mustScript(p simulate.Profile, seed uint64) simulate.Script {
	s, err := simulate.NewScript("sess-"+string(p), p, scriptStart, 30*time.Minute, seed)
	if err != nil {
		panic(err)
	}
	return s
}

func TestNewScript(t *testing.T) {
	Convey("Given generated interview scripts", t, func() {
		Convey("When the same seed is used twice", func() {
			a := mustScript(simulate.ProfileSuspicious, 11)
			b := mustScript(simulate.ProfileSuspicious, 11)

			Convey("Then the streams are identical, ids included", func() {
				So(a, ShouldResemble, b)
			})
		})

		Convey("When the seed changes", func() {
			a := mustScript(simulate.ProfileDistracted, 1)
			b := mustScript(simulate.ProfileDistracted, 2)

			Convey("Then the event ids differ", func() {
				So(a.Started.ID, ShouldNotEqual, b.Started.ID)
			})
		})

		for _, p := range simulate.Profiles() {
			script := mustScript(p, 3)
			Convey("When the "+string(p)+" stream is inspected", func() {
				events := script.Events()

				Convey("Then it is bounded by the interview events", func() {
					So(events[0].Type, ShouldEqual, model.EventInterviewStarted)
					So(events[0].Timestamp.Equal(scriptStart), ShouldBeTrue)
					So(events[len(events)-1].Type, ShouldEqual, model.EventInterviewEnded)
					So(events[len(events)-1].Timestamp.Equal(scriptStart.Add(30*time.Minute)), ShouldBeTrue)
				})

				Convey("Then every event is valid, ordered and unique", func() {
					ids := make(map[string]bool, len(events))
					for i, e := range events {
						So(e.Validate(), ShouldBeNil)
						So(e.SessionID, ShouldEqual, script.SessionID)
						So(e.Severity.Valid(), ShouldBeTrue)
						So(ids[e.ID], ShouldBeFalse)
						ids[e.ID] = true
						if i > 0 {
							So(e.Timestamp.Before(events[i-1].Timestamp), ShouldBeFalse)
						}
					}
				})
			})
		}

		Convey("When an unknown profile is requested", func() {
			_, err := simulate.NewScript("s", "reckless", scriptStart, time.Hour, 1)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, simulate.ErrUnknownProfile), ShouldBeTrue)
			})
		})

		Convey("When the length is not positive", func() {
			_, err := simulate.NewScript("s", simulate.ProfileClean, scriptStart, 0, 1)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestProfileBehavior(t *testing.T) {
	Convey("Given a clean and a suspicious interview", t, func() {
		clean := mustScript(simulate.ProfileClean, 5)
		suspicious := mustScript(simulate.ProfileSuspicious, 5)

		Convey("Then the clean stream carries no critical events", func() {
			So(clean.Body, ShouldNotBeEmpty)
			for _, e := range clean.Body {
				So(integrity.IsCritical(e.Type), ShouldBeFalse)
			}
		})

		Convey("Then the suspicious stream shows objects and extra faces", func() {
			kinds := make(map[model.EventType]int)
			for _, e := range suspicious.Body {
				kinds[e.Type]++
			}
			So(kinds[model.EventObjectDetected], ShouldBeGreaterThanOrEqualTo, 4)
			So(kinds[model.EventMultipleFaces], ShouldBeGreaterThanOrEqualTo, 1)
			So(kinds[model.EventAudioViolation], ShouldBeGreaterThanOrEqualTo, 3)
		})

		Convey("When both are analyzed", func() {
			cleanResult := integrity.Analyze(clean.Events(), clean.Length)
			suspiciousResult := integrity.Analyze(suspicious.Events(), suspicious.Length)

			Convey("Then the suspicious interview is critical and scores lower", func() {
				So(suspiciousResult.RiskLevel, ShouldEqual, integrity.RiskCritical)
				So(cleanResult.IntegrityScore, ShouldBeGreaterThan, suspiciousResult.IntegrityScore)
			})
		})
	})
}

func TestParseProfiles(t *testing.T) {
	Convey("Given profile lists", t, func() {
		Convey("When all is requested", func() {
			got, err := simulate.ParseProfiles("all")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, simulate.Profiles())
		})

		Convey("When names are mixed case and padded", func() {
			got, err := simulate.ParseProfiles(" Clean, suspicious ")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []simulate.Profile{simulate.ProfileClean, simulate.ProfileSuspicious})
		})

		Convey("When a name is unknown", func() {
			_, err := simulate.ParseProfiles("clean,nervous")
			So(errors.Is(err, simulate.ErrUnknownProfile), ShouldBeTrue)
		})

		Convey("When the list is empty", func() {
			_, err := simulate.ParseProfiles(" , ")
			So(err, ShouldNotBeNil)
		})
	})
}
