package model_test

import (
	"testing"

	"github.com/okian/vibrapulse/internal/domain/alert"
	"github.com/okian/vibrapulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNotificationAlerting(t *testing.T) {
	Convey("Only warning and critical notifications are alerting", t, func() {
		So(model.Notification{Severity: alert.SeverityOK}.Alerting(), ShouldBeFalse)
		So(model.Notification{Severity: alert.SeverityWarning}.Alerting(), ShouldBeTrue)
		So(model.Notification{Severity: alert.SeverityCritical}.Alerting(), ShouldBeTrue)
	})
}
