package legacy_test

import (
	"testing"
	"time"

	"github.com/okian/proctor/internal/domain/legacy"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func event(sec int, typ model.EventType) model.Event {
	return model.Event{SessionID: "s-1", Type: typ, Timestamp: start.Add(time.Duration(sec) * time.Second)}
}

func TestScore(t *testing.T) {
	convey.Convey("Given legacy summaries", t, func() {
		convey.Convey("When only counts are present", func() {
			s := model.Summary{FocusLostEvents: 5, ObjectDetections: 2, MultipleFaceEvents: 1, AudioViolations: 1, FocusPercentage: 100}

			convey.Convey("Then each count is deducted at its rate", func() {
				convey.So(legacy.Score(s), convey.ShouldEqual, 74)
			})
		})

		convey.Convey("When every deduction hits its cap", func() {
			s := model.Summary{
				FocusLostEvents:         20,
				ObjectDetections:        10,
				MultipleFaceEvents:      10,
				AudioViolations:         10,
				FocusPercentage:         50,
				MaxConsecutiveFocusLoss: 60,
			}

			convey.Convey("Then the score floors at zero", func() {
				convey.So(legacy.Score(s), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When focus is low and a streak is long", func() {
			s := model.Summary{FocusPercentage: 40, MaxConsecutiveFocusLoss: 40}

			convey.Convey("Then both focus deductions apply", func() {
				convey.So(legacy.Score(s), convey.ShouldEqual, 86)
			})
		})

		convey.Convey("When the summary is clean", func() {
			convey.Convey("Then the score is perfect", func() {
				convey.So(legacy.Score(model.Summary{FocusPercentage: 100}), convey.ShouldEqual, 100)
			})
		})
	})
}

func TestSummarize(t *testing.T) {
	convey.Convey("Given a ten minute session", t, func() {
		duration := 10 * time.Minute

		convey.Convey("When focus is lost and regained out of order", func() {
			events := []model.Event{
				event(300, model.EventFocusGained),
				event(0, model.EventFocusLost),
				event(500, model.EventFocusLost),
				event(60, model.EventFocusGained),
				event(220, model.EventFocusLost),
				event(100, model.EventFaceAbsent),
				event(200, model.EventFocusLost),
				event(400, model.EventObjectDetected),
				event(410, model.EventMultipleFaces),
				event(420, model.EventAudioViolation),
			}
			s := legacy.Summarize(events, duration)

			convey.Convey("Then face absence counts as lost focus", func() {
				convey.So(s.FocusLostEvents, convey.ShouldEqual, 5)
				convey.So(s.ObjectDetections, convey.ShouldEqual, 1)
				convey.So(s.MultipleFaceEvents, convey.ShouldEqual, 1)
				convey.So(s.AudioViolations, convey.ShouldEqual, 1)
			})

			convey.Convey("Then paired spans drive percentage and streak", func() {
				convey.So(s.FocusPercentage, convey.ShouldEqual, 77)
				convey.So(s.MaxConsecutiveFocusLoss, convey.ShouldEqual, 80)
			})

			convey.Convey("Then the caller's slice keeps its order", func() {
				convey.So(events[0].Type, convey.ShouldEqual, model.EventFocusGained)
			})

			convey.Convey("And the score follows", func() {
				convey.So(legacy.Score(s), convey.ShouldEqual, 69)
			})
		})

		convey.Convey("When focus is away for most of the session", func() {
			s := legacy.Summarize([]model.Event{
				event(0, model.EventFocusLost),
				event(540, model.EventFocusGained),
			}, duration)

			convey.Convey("Then low focus and the long streak are both penalized", func() {
				convey.So(s.FocusPercentage, convey.ShouldEqual, 10)
				convey.So(legacy.Score(s), convey.ShouldEqual, 70)
			})
		})

		convey.Convey("When there are no focus events or no duration", func() {
			none := legacy.Summarize([]model.Event{event(0, model.EventObjectDetected)}, duration)
			zero := legacy.Summarize([]model.Event{event(0, model.EventFocusLost), event(10, model.EventFocusGained)}, 0)

			convey.Convey("Then focus stays at 100 percent", func() {
				convey.So(none.FocusPercentage, convey.ShouldEqual, 100)
				convey.So(zero.FocusPercentage, convey.ShouldEqual, 100)
				convey.So(zero.MaxConsecutiveFocusLoss, convey.ShouldEqual, 10)
			})
		})
	})
}

func TestEffectiveScore(t *testing.T) {
	convey.Convey("Given both scores", t, func() {
		convey.Convey("When the behavioral score was computed", func() {
			zero := 0

			convey.Convey("Then it wins even when it is zero", func() {
				convey.So(legacy.EffectiveScore(&zero, 88), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When it was not", func() {
			convey.Convey("Then the legacy score is used", func() {
				convey.So(legacy.EffectiveScore(nil, 88), convey.ShouldEqual, 88)
			})
		})
	})
}
