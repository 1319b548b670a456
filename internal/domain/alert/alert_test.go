package alert_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/vibrapulse/internal/domain/alert"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Boundaries are exclusive", t, func() {
		So(alert.Classify(85), ShouldEqual, alert.SeverityOK)
		So(alert.Classify(85.01), ShouldEqual, alert.SeverityWarning)
		So(alert.Classify(90), ShouldEqual, alert.SeverityWarning)
		So(alert.Classify(90.01), ShouldEqual, alert.SeverityCritical)
		So(alert.Classify(100), ShouldEqual, alert.SeverityCritical)
	})
}

func TestSummarize(t *testing.T) {
	Convey("Given a series peaking at exactly 90", t, func() {
		s := alert.Summarize([]float64{40, 90, 70})

		Convey("Then the summary is a warning with one decimal", func() {
			So(s.Severity, ShouldEqual, alert.SeverityWarning)
			So(s.MaxRisk, ShouldEqual, 90)
			So(s.Message, ShouldEqual, "High risk! Max risk: 90.0%")
		})
	})

	Convey("Given a critical series", t, func() {
		s := alert.Summarize([]float64{97.25, 12})
		So(s.Severity, ShouldEqual, alert.SeverityCritical)
		So(s.Message, ShouldEqual, "Critical alert! Max risk: 97.2%")
	})

	Convey("Given a calm series", t, func() {
		s := alert.Summarize([]float64{33.3, 85})
		So(s.Severity, ShouldEqual, alert.SeverityOK)
		So(s.Message, ShouldEqual, "All normal. Max risk: 85.0%")
	})

	Convey("Severity round-trips through JSON by name", t, func() {
		b, err := json.Marshal(alert.Summarize([]float64{95}))
		So(err, ShouldBeNil)
		So(string(b), ShouldContainSubstring, `"severity":"critical"`)

		var s alert.Summary
		So(json.Unmarshal(b, &s), ShouldBeNil)
		So(s.Severity, ShouldEqual, alert.SeverityCritical)
		So(s.Severity.String(), ShouldEqual, "critical")
		So(json.Unmarshal([]byte(`{"severity":"panic"}`), &s), ShouldNotBeNil)
	})
}
