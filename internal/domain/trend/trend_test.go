package trend_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/vibrapulse/internal/domain/trend"
	. "github.com/smartystreets/goconvey/convey"
)

func series(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestCompute(t *testing.T) {
	Convey("Given fewer than ten risk values", t, func() {
		for n := 0; n < trend.Window; n++ {
			e := trend.Compute(series(10, 30, n))
			So(e.Status, ShouldEqual, trend.StatusInsufficient)
			So(e.Message, ShouldContainSubstring, "at least 10 records")
			So(e.Warning(), ShouldBeFalse)
		}
	})

	Convey("Given the series 10, 20, ... 100", t, func() {
		e := trend.Compute(series(10, 10, 10))

		Convey("Then growth is 10 and the seven day boundary is likely", func() {
			So(e.Growth, ShouldAlmostEqual, 10, 1e-9)
			So(e.Days, ShouldEqual, 7)
			So(e.Status, ShouldEqual, trend.StatusLikely)
			So(e.Message, ShouldEqual, "Failure likely in approximately 7–7 days")
			So(e.Warning(), ShouldBeTrue)
		})
	})

	Convey("Given a constant series", t, func() {
		e := trend.Compute(series(60, 0, 10))
		So(e.Status, ShouldEqual, trend.StatusStable)
		So(e.Growth, ShouldEqual, 0)

		raw, err := json.Marshal(e)
		So(err, ShouldBeNil)
		So(string(raw), ShouldContainSubstring, `"warning":false`)
	})

	Convey("Given a falling series", t, func() {
		e := trend.Compute(series(100, -8, 12))
		So(e.Status, ShouldEqual, trend.StatusStable)
		So(e.Growth, ShouldBeLessThan, 0)
	})

	Convey("Given growth of exactly five", t, func() {
		e := trend.Compute(series(40, 5, 10))
		So(e.Status, ShouldEqual, trend.StatusStable)
	})

	Convey("Given steep growth", t, func() {
		e := trend.Compute(series(0, 25, 10))

		Convey("Then days truncate to two and the message is urgent", func() {
			So(e.Days, ShouldEqual, 2)
			So(e.Status, ShouldEqual, trend.StatusUrgent)
		})
	})

	Convey("Given mild growth", t, func() {
		e := trend.Compute(series(20, 6, 10))

		Convey("Then days is eleven and the range ends at eighteen", func() {
			So(e.Days, ShouldEqual, 11)
			So(e.Status, ShouldEqual, trend.StatusPossible)
			So(e.Message, ShouldEqual, "Failure possible in 7–18 days")
			So(e.Warning(), ShouldBeTrue)
		})

		Convey("Then the encoded estimate carries the warning flag", func() {
			raw, err := json.Marshal(e)
			So(err, ShouldBeNil)
			var out map[string]interface{}
			So(json.Unmarshal(raw, &out), ShouldBeNil)
			So(out["status"], ShouldEqual, "possible")
			So(out["warning"], ShouldEqual, true)
			So(out["days"], ShouldEqual, 11.0)
		})
	})

	Convey("Given a long series", t, func() {
		risks := append(series(90, -10, 5), series(40, 0, 10)...)

		Convey("Then only the trailing window is used", func() {
			So(trend.Compute(risks).Status, ShouldEqual, trend.StatusStable)
		})
	})
}
