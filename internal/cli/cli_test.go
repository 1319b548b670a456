package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vibrapulse/internal/domain/reading"
	"github.com/okian/vibrapulse/internal/domain/report"
	"github.com/okian/vibrapulse/pkg/logger"
)

var (
	modelPath  = filepath.Join("..", "..", "models", "esp_failure_model_multi.yaml")
	samplePath = filepath.Join("..", "..", "testdata", "esp_readings.csv")

	timeoutForTests = 5 * time.Second
)

func TestParseFlags(t *testing.T) {
	Convey("Given command line arguments", t, func() {
		Convey("When a file is given", func() {
			cfg, err := ParseFlags([]string{"-file", "x.csv", "-json"}, io.Discard)
			So(err, ShouldBeNil)
			So(cfg.File, ShouldEqual, "x.csv")
			So(cfg.JSON, ShouldBeTrue)
			So(cfg.ModelPath, ShouldEqual, "models/esp_failure_model_multi.yaml")
		})

		Convey("When nothing is given", func() {
			_, err := ParseFlags(nil, io.Discard)
			So(errors.Is(err, ErrUsage), ShouldBeTrue)
		})

		Convey("When server and sidecar are both set", func() {
			_, err := ParseFlags([]string{"-file", "x.csv", "-url", "http://a", "-model-url", "http://b"}, io.Discard)
			So(errors.Is(err, ErrUsage), ShouldBeTrue)
		})

		Convey("When only generation is requested", func() {
			cfg, err := ParseFlags([]string{"-generate", "20", "-fault", "Rubbing"}, io.Discard)
			So(err, ShouldBeNil)
			So(cfg.Generate, ShouldEqual, 20)
		})
	})
}

func TestGenerate(t *testing.T) {
	Convey("Given a generated file", t, func() {
		var buf bytes.Buffer
		So(Generate(&buf, 24, "Misalignment", 7), ShouldBeNil)

		Convey("Then it parses with identifiers and labels dropped", func() {
			table, err := reading.Parse(&buf)
			So(err, ShouldBeNil)
			So(table.Len(), ShouldEqual, 24)
			So(table.Columns, ShouldResemble, []string{
				"vibration_rms", "vibration_peak", "temperature", "pressure", "current", "frequency",
			})
		})

		Convey("Then the second half is labeled with the fault", func() {
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			So(lines[1], ShouldEndWith, ";Normal")
			So(lines[len(lines)-1], ShouldEndWith, ";Misalignment")
		})
	})

	Convey("Given the same seed twice", t, func() {
		var a, b bytes.Buffer
		So(Generate(&a, 5, "Unbalance", 3), ShouldBeNil)
		So(Generate(&b, 5, "Unbalance", 3), ShouldBeNil)

		Convey("Then the readings match apart from the pump id", func() {
			strip := func(s string) []string {
				var out []string
				for _, l := range strings.Split(s, "\n") {
					if f := strings.Split(l, ";"); len(f) > 2 {
						out = append(out, strings.Join(f[2:], ";"))
					}
				}
				return out
			}
			So(strip(a.String()), ShouldResemble, strip(b.String()))
		})
	})

	Convey("Given an unknown fault", t, func() {
		err := Generate(io.Discard, 5, "Corrosion", 1)
		So(errors.Is(err, ErrUsage), ShouldBeTrue)
	})
}

func TestRunLocal(t *testing.T) {
	ctx := context.Background()

	Convey("Given the sample file and the shipped model", t, func() {
		So(logger.InitWith(io.Discard, logger.FormatText), ShouldBeNil)
		cfg := Config{File: samplePath, ModelPath: modelPath}

		Convey("When printed as text", func() {
			var out bytes.Buffer
			err := Run(ctx, cfg, nil, &out)

			Convey("Then the dashboard sections appear in order", func() {
				So(err, ShouldBeNil)
				text := out.String()
				risk := strings.Index(text, report.RiskHeader)
				ttf := strings.Index(text, "Time to failure:")
				recs := strings.Index(text, "Recommendations:")
				So(risk, ShouldBeGreaterThan, 0)
				So(ttf, ShouldBeGreaterThan, risk)
				So(recs, ShouldBeGreaterThan, ttf)
				So(text, ShouldContainSubstring, report.KindHeader)
				So(text, ShouldContainSubstring, "Max risk")
			})
		})

		Convey("When printed as JSON", func() {
			cfg.JSON = true
			var out bytes.Buffer
			So(Run(ctx, cfg, nil, &out), ShouldBeNil)

			var rep report.Report
			So(json.Unmarshal(out.Bytes(), &rep), ShouldBeNil)
			So(rep.Rows, ShouldHaveLength, 15)
			So(rep.FileName, ShouldEqual, "esp_readings.csv")
		})

		Convey("When the input comes from stdin", func() {
			cfg.File = "-"
			var out bytes.Buffer
			err := Run(ctx, cfg, strings.NewReader("vibration_rms\n1\n"), &out)

			Convey("Then missing model features are reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "vibration_peak")
			})
		})
	})
}

func TestRunRemote(t *testing.T) {
	ctx := context.Background()

	Convey("Given a server that accepts uploads", t, func() {
		var gotName string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotName = r.Header.Get("X-File-Name")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(report.Report{
				ID:       "abc",
				FileName: gotName,
				Rows:     []report.Row{{Index: 0, Risk: 91, Type: "Rubbing"}},
			})
		}))
		defer srv.Close()

		var out bytes.Buffer
		err := Run(ctx, Config{File: samplePath, ServerURL: srv.URL + "/", Timeout: timeoutForTests}, nil, &out)

		So(err, ShouldBeNil)
		So(gotName, ShouldEqual, "esp_readings.csv")
		So(out.String(), ShouldContainSubstring, "Rubbing")
	})

	Convey("Given a server that rejects uploads", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"code":"invalid_upload","message":"load readings: line 3"}`)
		}))
		defer srv.Close()

		err := Run(ctx, Config{File: samplePath, ServerURL: srv.URL, Timeout: timeoutForTests}, nil, io.Discard)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "invalid_upload")
	})
}
