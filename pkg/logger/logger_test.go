package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}
	logger.Info(context.Background(), "test message", String("k", "v"))
}

func TestLoggerFormats(t *testing.T) {
	Convey("Given a logger writing JSON to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWith(&buf, FormatJSON), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with structured fields", func() {
			Named("upload").Info(ctx, "analysis finished",
				String("report_id", "r-1"),
				Int("rows", 12),
				Bool("duplicate", false),
				Duration("took", 15*time.Millisecond),
			)

			Convey("Then the line is valid JSON carrying the fields", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "analysis finished")
				So(rec["component"], ShouldEqual, "upload")
				So(rec["report_id"], ShouldEqual, "r-1")
				So(rec["rows"], ShouldEqual, float64(12))
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(ctx, "hidden")

			Convey("Then info lines are suppressed", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given an unknown format", t, func() {
		So(InitWith(&bytes.Buffer{}, "xml"), ShouldNotBeNil)
	})

	Convey("Given an unknown level", t, func() {
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}

func TestLoggerNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		So(func() { Nop().Named("x").Error(context.Background(), "nothing") }, ShouldNotPanic)
	})
}
