package advice_test

import (
	"testing"

	"github.com/okian/vibrapulse/internal/domain/advice"
	"github.com/okian/vibrapulse/internal/domain/failure"
	"github.com/okian/vibrapulse/internal/domain/inference"
	. "github.com/smartystreets/goconvey/convey"
)

func pred(row int, kind failure.Kind, label string, risk float64) inference.Prediction {
	return inference.Prediction{Row: row, Kind: kind, Label: label, Risk: risk}
}

func TestRecommend(t *testing.T) {
	Convey("Given an Unbalance row at 90% risk", t, func() {
		a := advice.Recommend([]inference.Prediction{pred(3, failure.Unbalance, "Unbalance", 90)})

		Convey("Then the unbalance guidance is produced for that row", func() {
			So(a.Items, ShouldHaveLength, 1)
			So(a.Message, ShouldBeEmpty)
			So(a.Items[0].Row, ShouldEqual, 3)
			So(a.Items[0].Level, ShouldEqual, advice.LevelWarning)
			So(a.Items[0].Message, ShouldStartWith, "Record 3: high risk of unbalance")
			So(a.Items[0].Message, ShouldContainSubstring, "rotor balance")
		})
	})

	Convey("Given an Unbalance row at exactly 85% risk", t, func() {
		a := advice.Recommend([]inference.Prediction{pred(0, failure.Unbalance, "Unbalance", 85)})

		Convey("Then nothing is recommended", func() {
			So(a.Items, ShouldBeEmpty)
			So(a.Message, ShouldEqual, advice.NoActionMessage)
		})
	})

	Convey("Given twelve Normal rows with high risk", t, func() {
		preds := make([]inference.Prediction, 12)
		for i := range preds {
			preds[i] = pred(i, failure.Normal, "Normal", 99)
		}

		Convey("Then only the no-action message is emitted", func() {
			a := advice.Recommend(preds)
			So(a.Items, ShouldBeEmpty)
			So(a.Message, ShouldEqual, advice.NoActionMessage)
		})
	})

	Convey("Given a mix of failure kinds", t, func() {
		a := advice.Recommend([]inference.Prediction{
			pred(0, failure.Rubbing, "Rubbing", 86),
			pred(1, failure.FaultySensor, "Faulty sensor", 50),
			pred(2, failure.FaultySensor, "Faulty sensor", 95),
			pred(3, failure.Misalignment, "Misalignment", 88),
			pred(4, failure.Other, "Cavitation", 97),
		})

		Convey("Then items keep row order and unknown kinds fall back to info", func() {
			So(a.Items, ShouldHaveLength, 4)
			So(a.Items[0].Message, ShouldContainSubstring, "bearings")
			So(a.Items[1].Row, ShouldEqual, 2)
			So(a.Items[1].Message, ShouldContainSubstring, "sensor")
			So(a.Items[2].Message, ShouldContainSubstring, "Realign")
			So(a.Items[3].Level, ShouldEqual, advice.LevelInfo)
			So(a.Items[3].Message, ShouldContainSubstring, "type: Cavitation")
			So(a.Items[3].Message, ShouldContainSubstring, "inspect the pump fully")
		})
	})
}
