package integrity_test

import (
	"slices"
	"testing"
	"time"

	integrity "github.com/okian/proctor/internal/domain/integrity"
	model "github.com/okian/proctor/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func at(sec float64, typ model.EventType) model.Event {
	return model.Event{
		SessionID: "s-1",
		Type:      typ,
		Timestamp: t0.Add(time.Duration(sec * float64(time.Second))),
	}.WithDefaults()
}

func objectAt(sec float64, name string) model.Event {
	e := at(sec, model.EventObjectDetected)
	e.Data = model.EventData{Payload: model.ObjectPayload{ObjectType: name, ObjectCount: 1}}
	return e
}

func TestAnalyzeNeutral(t *testing.T) {
	Convey("Given nothing to analyze", t, func() {
		Convey("When the event list is empty", func() {
			r := integrity.Analyze(nil, 30*time.Minute)

			Convey("Then the neutral result is returned", func() {
				So(r.IntegrityScore, ShouldEqual, 100)
				So(r.RiskLevel, ShouldEqual, integrity.RiskLow)
				So(r.BehaviorInsights, ShouldBeEmpty)
				So(r.BehaviorInsights, ShouldNotBeNil)
				So(r.RecommendedActions, ShouldBeEmpty)
				So(r.RecommendedActions, ShouldNotBeNil)
				So(r.ConfidenceLevel, ShouldAlmostEqual, 0.85, 1e-9)
			})
		})

		Convey("When the duration is not positive", func() {
			events := []model.Event{objectAt(0, "phone"), objectAt(10, "phone")}
			zero := integrity.Analyze(events, 0)
			negative := integrity.Analyze(events, -time.Minute)

			Convey("Then the neutral result is returned without NaN", func() {
				So(zero.IntegrityScore, ShouldEqual, 100)
				So(zero.RiskLevel, ShouldEqual, integrity.RiskLow)
				So(negative.IntegrityScore, ShouldEqual, 100)
				So(zero.ConfidenceLevel, ShouldAlmostEqual, 0.8, 1e-9)
			})
		})
	})
}

func TestTemporal(t *testing.T) {
	Convey("Given the temporal analyzer", t, func() {
		Convey("When two events are 119 seconds apart", func() {
			tp := integrity.AnalyzeTemporal([]model.Event{
				at(0, model.EventFocusLost), at(119, model.EventFocusLost),
			}, 30*time.Minute)

			Convey("Then they form one cluster", func() {
				So(tp.Clusters, ShouldHaveLength, 1)
				So(tp.Clusters[0].Intensity, ShouldEqual, 2)
				So(tp.Clusters[0].Types, ShouldResemble, []model.EventType{model.EventFocusLost})
			})
		})

		Convey("When two events are 121 seconds apart", func() {
			tp := integrity.AnalyzeTemporal([]model.Event{
				at(0, model.EventFocusLost), at(121, model.EventFocusLost),
			}, 30*time.Minute)

			Convey("Then no cluster is reported", func() {
				So(tp.Clusters, ShouldBeEmpty)
				So(tp.StressPatterns, ShouldBeEmpty)
			})
		})

		Convey("When violations pile up late in the session", func() {
			tp := integrity.AnalyzeTemporal([]model.Event{
				at(0, model.EventFocusLost),
				at(100, model.EventFaceAbsent),
				at(400, model.EventFocusLost),
				at(700, model.EventFocusLost),
				at(750, model.EventMultipleFaces),
				at(800, model.EventFocusLost),
				at(850, model.EventMultipleFaces),
			}, 900*time.Second)

			Convey("Then phases are measured from the first event", func() {
				So(tp.EarlyViolations, ShouldEqual, 2)
				So(tp.MidViolations, ShouldEqual, 1)
				So(tp.LateViolations, ShouldEqual, 4)
				So(tp.AttentionDecline, ShouldBeTrue)
			})

			Convey("And the four-event cluster is a stress pattern", func() {
				So(tp.Clusters, ShouldHaveLength, 2)
				So(tp.StressPatterns, ShouldHaveLength, 1)
				stress := tp.StressPatterns[0]
				So(stress.Intensity, ShouldEqual, 4)
				So(stress.StartTime, ShouldEqual, t0.Add(700*time.Second))
				So(stress.EndTime, ShouldEqual, t0.Add(850*time.Second))
				So(stress.Types, ShouldResemble, []model.EventType{model.EventFocusLost, model.EventMultipleFaces})
			})
		})

		Convey("When late violations do not exceed one and a half times early ones", func() {
			tp := integrity.AnalyzeTemporal([]model.Event{
				at(0, model.EventFocusLost),
				at(10, model.EventFocusLost),
				at(700, model.EventFocusLost),
				at(710, model.EventFocusLost),
				at(720, model.EventFocusLost),
			}, 900*time.Second)

			Convey("Then attention is not declining", func() {
				So(tp.EarlyViolations, ShouldEqual, 2)
				So(tp.LateViolations, ShouldEqual, 3)
				So(tp.AttentionDecline, ShouldBeFalse)
			})
		})
	})
}

func TestFrequency(t *testing.T) {
	Convey("Given the frequency analyzer", t, func() {
		Convey("When the stream is empty", func() {
			f := integrity.AnalyzeFrequency(nil)

			Convey("Then the score is perfect", func() {
				So(f.FrequencyScore, ShouldEqual, 100)
				So(f.TotalViolations, ShouldEqual, 0)
				So(f.RepeatedPatterns, ShouldNotBeNil)
				So(f.RepeatedPatterns, ShouldBeEmpty)
			})
		})

		Convey("When critical and ordinary events are mixed", func() {
			f := integrity.AnalyzeFrequency([]model.Event{
				objectAt(0, "phone"),
				at(10, model.EventFocusLost),
				objectAt(20, "book"),
				at(30, model.EventAudioViolation),
			})

			Convey("Then fallback weights apply per type", func() {
				So(f.TotalViolations, ShouldEqual, 4)
				So(f.CriticalViolations, ShouldEqual, 3)
				So(f.ViolationDiversity, ShouldEqual, 3)
				So(f.FrequencyScore, ShouldEqual, 65)
			})
		})

		Convey("When the penalty exceeds one hundred", func() {
			events := make([]model.Event, 0, 20)
			for i := range 20 {
				events = append(events, objectAt(float64(i), "phone"))
			}
			f := integrity.AnalyzeFrequency(events)

			Convey("Then the score is clamped at zero", func() {
				So(f.FrequencyScore, ShouldEqual, 0)
			})
		})

		Convey("When an event type is empty or unknown", func() {
			f := integrity.AnalyzeFrequency([]model.Event{at(0, ""), at(1, "tab-switched")})

			Convey("Then it carries the non-critical default weight", func() {
				So(f.CriticalViolations, ShouldEqual, 0)
				So(f.FrequencyScore, ShouldEqual, 90)
			})
		})

		Convey("When a three-event signature repeats", func() {
			patterns := integrity.RepeatedPatterns([]model.Event{
				at(0, model.EventFocusLost),
				at(1, model.EventFaceAbsent),
				at(2, model.EventFocusLost),
				at(3, model.EventFaceAbsent),
				at(4, model.EventFocusLost),
			})

			Convey("Then only the repeated signature is reported", func() {
				So(patterns, ShouldHaveLength, 1)
				So(patterns[0].Sequence, ShouldEqual, "focus-lost,face-absent,focus-lost")
				So(patterns[0].Frequency, ShouldEqual, 2)
			})
		})
	})
}

func TestConsistency(t *testing.T) {
	Convey("Given the consistency analyzer", t, func() {
		Convey("When focus changes are evenly spaced in one window", func() {
			c := integrity.AnalyzeConsistency([]model.Event{
				at(0, model.EventFocusLost),
				at(30, model.EventFocusGained),
				at(60, model.EventFocusLost),
			})

			Convey("Then everything is fully consistent", func() {
				So(c.FocusConsistency, ShouldEqual, 100)
				So(c.BehaviorStability, ShouldEqual, 100)
				So(c.OverallConsistency, ShouldEqual, 100)
			})
		})

		Convey("When focus gaps are irregular", func() {
			c := integrity.AnalyzeConsistency([]model.Event{
				at(0, model.EventFocusLost),
				at(10, model.EventFocusGained),
				at(100, model.EventFocusLost),
			})

			Convey("Then focus consistency drops by twenty per unit of variation", func() {
				So(c.FocusConsistency, ShouldAlmostEqual, 84, 1e-9)
				So(c.BehaviorStability, ShouldEqual, 100)
				So(c.OverallConsistency, ShouldAlmostEqual, 93.6, 1e-9)
			})
		})

		Convey("When only one focus event exists", func() {
			c := integrity.AnalyzeConsistency([]model.Event{at(0, model.EventFocusLost)})

			Convey("Then focus consistency stays at 100", func() {
				So(c.FocusConsistency, ShouldEqual, 100)
			})
		})

		Convey("When windows carry different loads", func() {
			c := integrity.AnalyzeConsistency([]model.Event{
				objectAt(0, "phone"),
				objectAt(400, "phone"),
				objectAt(410, "phone"),
				objectAt(420, "phone"),
			})

			Convey("Then the window variance lowers stability", func() {
				So(c.BehaviorStability, ShouldEqual, 0)
				So(c.OverallConsistency, ShouldEqual, 40)
			})
		})

		Convey("When all events share a timestamp", func() {
			c := integrity.AnalyzeConsistency([]model.Event{
				at(5, model.EventFocusLost),
				at(5, model.EventFocusGained),
			})

			Convey("Then the zero mean gap does not produce NaN", func() {
				So(c.FocusConsistency, ShouldEqual, 100)
			})
		})
	})
}

func TestFuseScore(t *testing.T) {
	Convey("Given score fusion", t, func() {
		Convey("When every analysis is perfect", func() {
			score := integrity.FuseScore(
				integrity.Temporal{},
				integrity.Frequency{FrequencyScore: 100},
				integrity.Consistency{OverallConsistency: 100},
			)

			Convey("Then the focused bonus is clamped away", func() {
				So(score, ShouldEqual, 100)
			})
		})

		Convey("When every penalty applies", func() {
			cluster := integrity.Episode{Intensity: 4}
			score := integrity.FuseScore(
				integrity.Temporal{
					AttentionDecline: true,
					Clusters:         []integrity.Episode{cluster, cluster, cluster},
					StressPatterns:   []integrity.Episode{cluster},
				},
				integrity.Frequency{FrequencyScore: 80, ViolationDiversity: 2},
				integrity.Consistency{OverallConsistency: 90},
			)

			Convey("Then they combine as documented", func() {
				So(score, ShouldEqual, 57)
			})
		})

		Convey("When sub-scores are out of range", func() {
			score := integrity.FuseScore(
				integrity.Temporal{},
				integrity.Frequency{FrequencyScore: -500, ViolationDiversity: 9},
				integrity.Consistency{OverallConsistency: -500},
			)

			Convey("Then they are clamped before combination", func() {
				So(score, ShouldEqual, 10)
			})
		})
	})
}

func TestClassifyRisk(t *testing.T) {
	Convey("Given the risk classifier", t, func() {
		objects := func(n int) []model.Event {
			out := make([]model.Event, n)
			for i := range out {
				out[i] = objectAt(float64(i), "phone")
			}
			return out
		}

		Convey("Then score boundaries are strict", func() {
			So(integrity.ClassifyRisk(49, nil), ShouldEqual, integrity.RiskCritical)
			So(integrity.ClassifyRisk(50, nil), ShouldEqual, integrity.RiskHigh)
			So(integrity.ClassifyRisk(69, nil), ShouldEqual, integrity.RiskHigh)
			So(integrity.ClassifyRisk(70, nil), ShouldEqual, integrity.RiskMedium)
			So(integrity.ClassifyRisk(84, nil), ShouldEqual, integrity.RiskMedium)
			So(integrity.ClassifyRisk(85, nil), ShouldEqual, integrity.RiskLow)
		})

		Convey("Then critical events raise the level regardless of score", func() {
			So(integrity.ClassifyRisk(50, objects(3)), ShouldEqual, integrity.RiskHigh)
			So(integrity.ClassifyRisk(95, objects(2)), ShouldEqual, integrity.RiskHigh)
			So(integrity.ClassifyRisk(95, objects(4)), ShouldEqual, integrity.RiskCritical)
		})

		Convey("Then audio violations do not count as critical events", func() {
			audio := []model.Event{
				at(0, model.EventAudioViolation), at(1, model.EventAudioViolation),
				at(2, model.EventAudioViolation), at(3, model.EventAudioViolation),
			}
			So(integrity.ClassifyRisk(95, audio), ShouldEqual, integrity.RiskLow)
		})
	})
}

func TestConfidence(t *testing.T) {
	Convey("Given the confidence level", t, func() {
		Convey("Then data sufficiency drives it", func() {
			So(integrity.Confidence(10, 10*time.Minute), ShouldAlmostEqual, 0.95, 1e-9)
			So(integrity.Confidence(3, 10*time.Minute), ShouldAlmostEqual, 0.85, 1e-9)
			So(integrity.Confidence(3, time.Minute), ShouldAlmostEqual, 0.8, 1e-9)
			So(integrity.Confidence(25, 10*time.Minute), ShouldAlmostEqual, 0.97, 1e-9)
			So(integrity.Confidence(25, time.Minute), ShouldAlmostEqual, 0.92, 1e-9)
		})

		Convey("Then it never leaves its bounds", func() {
			for _, n := range []int{0, 1, 5, 21, 100000} {
				for _, d := range []time.Duration{-time.Hour, 0, time.Second, 10 * time.Hour} {
					c := integrity.Confidence(n, d)
					So(c, ShouldBeBetweenOrEqual, 0.5, 0.99)
				}
			}
		})
	})
}

func TestInsightsAndRecommendations(t *testing.T) {
	Convey("Given the insight generator", t, func() {
		Convey("When focus shifts happen often", func() {
			var events []model.Event
			for i := range 6 {
				events = append(events, at(float64(i*600), model.EventFocusLost))
			}
			insights := integrity.Insights(events, integrity.Temporal{})

			Convey("Then a focus pattern insight is emitted", func() {
				So(insights, ShouldHaveLength, 1)
				So(insights[0].Type, ShouldEqual, integrity.InsightFocusPattern)
				So(insights[0].Confidence, ShouldEqual, 0.85)
			})
		})

		Convey("When objects were detected", func() {
			insights := integrity.Insights([]model.Event{
				objectAt(0, "cell phone"), objectAt(5, "book"), objectAt(9, "cell phone"),
			}, integrity.Temporal{})

			Convey("Then unique object names are listed in order", func() {
				So(insights, ShouldHaveLength, 1)
				So(insights[0].Type, ShouldEqual, integrity.InsightUnauthorizedItems)
				So(insights[0].Message, ShouldEqual, "Detected unauthorized items: cell phone, book")
				So(insights[0].Confidence, ShouldEqual, 0.95)
			})
		})

		Convey("When detections carry no object name", func() {
			insights := integrity.Insights([]model.Event{at(0, model.EventObjectDetected)}, integrity.Temporal{})

			Convey("Then the item is reported as unidentified", func() {
				So(insights[0].Message, ShouldEqual, "Detected unauthorized items: unidentified object")
			})
		})

		Convey("When decline and clusters were found", func() {
			insights := integrity.Insights(nil, integrity.Temporal{
				AttentionDecline: true,
				Clusters:         []integrity.Episode{{Intensity: 2}},
			})

			Convey("Then both insights fire in rule order", func() {
				So(insights, ShouldHaveLength, 2)
				So(insights[0].Type, ShouldEqual, integrity.InsightAttentionDecline)
				So(insights[0].Confidence, ShouldEqual, 0.78)
				So(insights[1].Type, ShouldEqual, integrity.InsightBehaviorClustering)
				So(insights[1].Confidence, ShouldEqual, 0.82)
			})
		})
	})

	Convey("Given the recommendation generator", t, func() {
		Convey("When every rule applies", func() {
			recs := integrity.Recommendations(40, integrity.RiskCritical, []integrity.Insight{
				{Type: integrity.InsightAttentionDecline},
			})

			Convey("Then actions are emitted with their priorities", func() {
				So(recs, ShouldHaveLength, 3)
				So(recs[0].Type, ShouldEqual, integrity.ActionIntegrityConcern)
				So(recs[0].Priority, ShouldEqual, integrity.PriorityHigh)
				So(recs[1].Type, ShouldEqual, integrity.ActionImmediate)
				So(recs[1].Priority, ShouldEqual, integrity.PriorityCritical)
				So(recs[2].Type, ShouldEqual, integrity.ActionInterviewAdjustment)
				So(recs[2].Priority, ShouldEqual, integrity.PriorityMedium)
			})
		})

		Convey("When the score is healthy", func() {
			recs := integrity.Recommendations(70, integrity.RiskMedium, nil)

			Convey("Then nothing is recommended", func() {
				So(recs, ShouldNotBeNil)
				So(recs, ShouldBeEmpty)
			})
		})
	})
}

func TestPredict(t *testing.T) {
	Convey("Given the live predictor", t, func() {
		now := t0.Add(time.Hour)

		Convey("When only two events exist", func() {
			p := integrity.Predict([]model.Event{objectAt(0, "phone"), objectAt(1, "phone")}, now)

			Convey("Then the prediction is unknown", func() {
				So(p.Probability, ShouldEqual, 0.1)
				So(p.Type, ShouldEqual, integrity.UnknownType)
				So(p.TimeWindowSeconds, ShouldEqual, 60)
				So(p.ConfidenceLabel, ShouldEqual, integrity.LabelLow)
				So(p.GeneratedAt, ShouldEqual, now)
			})
		})

		Convey("When the last five events repeat a signature twice", func() {
			events := []model.Event{
				at(0, model.EventSystemAlert),
				at(1, model.EventConnectionLost),
				at(2, model.EventFocusLost),
				at(3, model.EventFaceAbsent),
				at(4, model.EventFocusLost),
				at(5, model.EventFaceAbsent),
				at(6, model.EventFocusLost),
			}
			slices.Reverse(events)
			p := integrity.Predict(events, now)

			Convey("Then the pattern drives a medium prediction", func() {
				So(p.Probability, ShouldAlmostEqual, 0.4, 1e-9)
				So(p.Type, ShouldEqual, model.EventFocusLost)
				So(p.ConfidenceLabel, ShouldEqual, integrity.LabelMedium)
			})

			Convey("And the caller's slice keeps its order", func() {
				So(events[0].Type, ShouldEqual, model.EventFocusLost)
				So(events[6].Type, ShouldEqual, model.EventSystemAlert)
			})
		})

		Convey("When the same event repeats five times", func() {
			var events []model.Event
			for i := range 5 {
				events = append(events, objectAt(float64(i), "phone"))
			}
			p := integrity.Predict(events, now)

			Convey("Then the prediction is high", func() {
				So(p.Probability, ShouldAlmostEqual, 0.6, 1e-9)
				So(p.Type, ShouldEqual, model.EventObjectDetected)
				So(p.ConfidenceLabel, ShouldEqual, integrity.LabelHigh)
			})
		})

		Convey("When nothing repeats", func() {
			p := integrity.Predict([]model.Event{
				at(0, model.EventFocusLost), at(1, model.EventFaceAbsent), at(2, model.EventMultipleFaces),
			}, now)

			Convey("Then focus loss is the fallback guess", func() {
				So(p.Probability, ShouldEqual, 0.1)
				So(p.Type, ShouldEqual, model.EventFocusLost)
				So(p.ConfidenceLabel, ShouldEqual, integrity.LabelMedium)
			})
		})
	})
}

func TestAnalyze(t *testing.T) {
	Convey("Given a short session with scattered focus loss", t, func() {
		base := []model.Event{
			at(0, model.EventFocusLost),
			at(60, model.EventFocusLost),
			at(600, model.EventFocusLost),
		}
		duration := 30 * time.Minute

		Convey("When it is analyzed", func() {
			r := integrity.Analyze(base, duration)

			Convey("Then the fused score reflects all three analyses", func() {
				So(r.IntegrityScore, ShouldEqual, 80)
				So(r.RiskLevel, ShouldEqual, integrity.RiskMedium)
				So(r.Temporal.Clusters, ShouldHaveLength, 1)
				So(r.BehaviorInsights, ShouldHaveLength, 1)
				So(r.BehaviorInsights[0].Type, ShouldEqual, integrity.InsightBehaviorClustering)
				So(r.RecommendedActions, ShouldBeEmpty)
				So(r.ConfidenceLevel, ShouldAlmostEqual, 0.85, 1e-9)
			})
		})

		Convey("When an object detection is added", func() {
			before := integrity.Analyze(base, duration)
			after := integrity.Analyze(append(slices.Clone(base), objectAt(1200, "phone")), duration)

			Convey("Then the score does not increase", func() {
				So(after.IntegrityScore, ShouldEqual, 75)
				So(after.IntegrityScore, ShouldBeLessThanOrEqualTo, before.IntegrityScore)
			})
		})

		Convey("When it is analyzed twice from shuffled input", func() {
			shuffled := []model.Event{base[2], base[0], base[1]}
			snapshot := slices.Clone(shuffled)
			first := integrity.Analyze(shuffled, duration)
			second := integrity.Analyze(shuffled, duration)

			Convey("Then the output is identical and the input untouched", func() {
				So(second, ShouldResemble, first)
				So(first, ShouldResemble, integrity.Analyze(base, duration))
				So(shuffled, ShouldResemble, snapshot)
			})
		})

		Convey("When a single event has an unknown type", func() {
			r := integrity.Analyze([]model.Event{at(0, "")}, 10*time.Minute)

			Convey("Then it only costs the default weight", func() {
				So(r.IntegrityScore, ShouldEqual, 99)
				So(r.RiskLevel, ShouldEqual, integrity.RiskLow)
			})
		})
	})

	Convey("Given a saturating stream of object detections", t, func() {
		events := []model.Event{objectAt(0, "phone")}
		for _, start := range []float64{2400, 2600, 2800, 3000} {
			for i := range 25 {
				events = append(events, objectAt(start+float64(i*2), "phone"))
			}
		}
		r := integrity.Analyze(events, time.Hour)

		Convey("Then the score bottoms out at zero", func() {
			So(r.IntegrityScore, ShouldEqual, 0)
			So(r.RiskLevel, ShouldEqual, integrity.RiskCritical)
			So(r.Temporal.Clusters, ShouldHaveLength, 4)
			So(r.Temporal.AttentionDecline, ShouldBeTrue)
			So(r.Frequency.FrequencyScore, ShouldEqual, 0)
			So(r.Consistency.BehaviorStability, ShouldEqual, 0)
			So(r.ConfidenceLevel, ShouldAlmostEqual, 0.97, 1e-9)
		})

		Convey("And every recommendation fires", func() {
			So(r.RecommendedActions, ShouldHaveLength, 3)
			So(r.RecommendedActions[1].Priority, ShouldEqual, integrity.PriorityCritical)
		})
	})

	Convey("Given a thousand critical events within one minute", t, func() {
		events := make([]model.Event, 0, 1000)
		for i := range 1000 {
			events = append(events, objectAt(float64(i)*0.06, "phone"))
		}
		r := integrity.Analyze(events, time.Minute)

		Convey("Then the result stays in range and is critical", func() {
			So(r.IntegrityScore, ShouldBeBetweenOrEqual, 0, 100)
			So(r.RiskLevel, ShouldEqual, integrity.RiskCritical)
			So(r.ConfidenceLevel, ShouldBeBetweenOrEqual, 0.5, 0.99)
		})
	})
}

func TestTopInsights(t *testing.T) {
	Convey("Given five insights", t, func() {
		in := make([]integrity.Insight, 5)
		for i := range in {
			in[i] = integrity.Insight{Confidence: float64(i)}
		}

		Convey("Then the first three are kept in order", func() {
			top := integrity.TopInsights(in, 3)
			So(top, ShouldHaveLength, 3)
			So(top[2].Confidence, ShouldEqual, 2)
		})

		Convey("Then asking for more than exist returns all", func() {
			So(integrity.TopInsights(in, 10), ShouldHaveLength, 5)
			So(integrity.TopInsights(nil, 3), ShouldNotBeNil)
		})
	})
}
