package chart_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/okian/vibrapulse/internal/adapters/http/chart"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRender(t *testing.T) {
	Convey("Given a risk series", t, func() {
		var buf bytes.Buffer
		err := chart.Render(&buf, []float64{42, 55.5, 71, 88, 93}, chart.DefaultSize)

		Convey("Then an SVG with the reference legend is produced", func() {
			So(err, ShouldBeNil)
			out := buf.String()
			So(out, ShouldContainSubstring, "<svg")
			So(out, ShouldContainSubstring, "Threshold 70%")
			So(out, ShouldContainSubstring, "Critical 90%")
		})
	})

	Convey("Given a single reading", t, func() {
		var buf bytes.Buffer
		So(chart.Render(&buf, []float64{12}, chart.DefaultSize), ShouldBeNil)
		So(buf.Len(), ShouldBeGreaterThan, 0)
	})

	Convey("Given no readings", t, func() {
		var buf bytes.Buffer
		err := chart.Render(&buf, nil, chart.DefaultSize)
		So(errors.Is(err, chart.ErrEmptySeries), ShouldBeTrue)
	})
}
