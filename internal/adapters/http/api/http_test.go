package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vibrapulse/internal/adapters/http/api"
	"github.com/okian/vibrapulse/internal/adapters/repository"
	"github.com/okian/vibrapulse/internal/domain/analysis"
	"github.com/okian/vibrapulse/internal/domain/failure"
	"github.com/okian/vibrapulse/internal/domain/reading"
	"github.com/okian/vibrapulse/internal/domain/report"
	logging "github.com/okian/vibrapulse/pkg/logger"
)

// riskPredictor scores the single feature directly as Unbalance probability.
type riskPredictor struct {
	err error
}

func (riskPredictor) Classes() []string  { return []string{"Normal", "Unbalance"} }
func (riskPredictor) Features() []string { return []string{"vibration_rms"} }

func (p riskPredictor) PredictProba(_ context.Context, rows [][]float64) ([][]float64, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = []float64{1 - r[0], r[0]}
	}
	return out, nil
}

type fakeDeps struct {
	mu      sync.Mutex
	pred    riskPredictor
	classes *failure.ClassSet
	reports map[string]*report.Report
	order   []string
	uploads []report.Upload
}

func newFakeDeps(p riskPredictor) *fakeDeps {
	cs, err := failure.Compile(p.Classes())
	if err != nil {
		panic(err)
	}
	return &fakeDeps{pred: p, classes: cs, reports: map[string]*report.Report{}}
}

func (f *fakeDeps) Analyze(ctx context.Context, up report.Upload) (*report.Report, error) {
	t, err := reading.Parse(bytes.NewReader(up.Data))
	if err != nil {
		return nil, err
	}
	res, err := analysis.Analyze(ctx, f.pred, f.classes, t)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, up)
	id := fmt.Sprintf("r%d", len(f.order)+1)
	rep := report.New(report.Meta{ID: id, FileName: up.FileName}, t.Columns, res)
	f.reports[id] = rep
	f.order = append(f.order, id)
	return rep, nil
}

func (f *fakeDeps) Report(_ context.Context, id string) (*report.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rep, nil
}

func (f *fakeDeps) TopReports(_ context.Context, n int) ([]report.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []report.Summary
	for _, id := range f.order {
		if len(out) == n {
			break
		}
		out = append(out, f.reports[id].Summary())
	}
	return out, nil
}

func (f *fakeDeps) Classes() []failure.Class { return f.classes.Classes() }
func (f *fakeDeps) Features() []string       { return f.pred.Features() }

type staticStats map[string]interface{}

func (s staticStats) GetStats() map[string]interface{} { return s }

func newRouter(deps api.Dependencies, opts ...api.Option) *mux.Router {
	r := mux.NewRouter()
	api.NewServer(deps, staticStats{"reports_stored": 0}, opts...).Register(r)
	return r
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func csvBody(risks ...float64) string {
	var b strings.Builder
	b.WriteString("id;esp_id;vibration_rms\n")
	for i, r := range risks {
		fmt.Fprintf(&b, "%d;ESP-1;%g\n", i+1, r)
	}
	return b.String()
}

func multipartBody(field, name, content string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "ignored")
	fw, _ := mw.CreateFormFile(field, name)
	_, _ = io.WriteString(fw, content)
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestAnalyze(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := newFakeDeps(riskPredictor{})
		router := newRouter(deps, api.WithMaxUploadBytes(1024))

		Convey("When a CSV is uploaded as a multipart form", func() {
			body, ct := multipartBody("file", `C:\data\pump_7.csv`, csvBody(0.2, 0.95))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
			req.Header.Set("Content-Type", ct)
			w := serve(router, req)

			Convey("Then a report is created with per-row risk and type", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Header().Get("Location"), ShouldEqual, "/api/v1/reports/r1")

				var rep report.Report
				So(json.Unmarshal(w.Body.Bytes(), &rep), ShouldBeNil)
				So(rep.FileName, ShouldEqual, "pump_7.csv")
				So(rep.Rows, ShouldHaveLength, 2)
				So(rep.Rows[0].Type, ShouldEqual, "Normal")
				So(rep.Rows[1].Type, ShouldEqual, "Unbalance")
				So(rep.Rows[1].Risk, ShouldAlmostEqual, 95, 1e-9)
				So(rep.Alert.MaxRisk, ShouldAlmostEqual, 95, 1e-9)
				So(rep.Advice.Items, ShouldHaveLength, 1)
			})
		})

		Convey("When the raw CSV is posted with a file name header", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(csvBody(0.5)))
			req.Header.Set("Content-Type", "text/csv")
			req.Header.Set("X-File-Name", "esp.csv")
			w := serve(router, req)

			Convey("Then the upload is analyzed under that name", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.uploads[0].FileName, ShouldEqual, "esp.csv")
			})
		})

		Convey("When the multipart form has no file part", func() {
			body, ct := multipartBody("attachment", "x.csv", csvBody(0.5))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
			req.Header.Set("Content-Type", ct)
			w := serve(router, req)

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the upload is not a valid table", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("a;b\n1;x\n"))
			w := serve(router, req)

			Convey("Then the load error is reported with its line", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				e := decodeError(w)
				So(e["code"], ShouldEqual, "invalid_upload")
				So(e["message"], ShouldContainSubstring, "line 2")
			})
		})

		Convey("When a model feature is missing", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("temperature\n70\n"))
			w := serve(router, req)

			Convey("Then it is unprocessable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decodeError(w)["code"], ShouldEqual, "missing_feature")
			})
		})

		Convey("When the upload exceeds the size cap", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(strings.Repeat("9", 2048)))
			w := serve(router, req)

			Convey("Then it is rejected as too large", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(decodeError(w)["code"], ShouldEqual, "too_large")
			})
		})

		Convey("When the wrong method is used", func() {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/analyze", nil))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)

			w = serve(router, httptest.NewRequest(http.MethodDelete, "/api/v1/reports", nil))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	Convey("Given a model that fails", t, func() {
		router := newRouter(newFakeDeps(riskPredictor{err: errors.New("boom")}))
		w := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(csvBody(0.1))))

		Convey("Then a model error is returned", func() {
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decodeError(w)["code"], ShouldEqual, "model_error")
		})
	})

	Convey("Given a model whose labels no longer match the compiled classes", t, func() {
		deps := newFakeDeps(riskPredictor{})
		cs, err := failure.Compile([]string{"Normal", "Rubbing"})
		So(err, ShouldBeNil)
		deps.classes = cs
		w := serve(newRouter(deps), httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(csvBody(0.9))))

		Convey("Then the upload fails as a model error", func() {
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decodeError(w)["code"], ShouldEqual, "model_error")
		})
	})
}

func TestReports(t *testing.T) {
	Convey("Given two analyzed uploads", t, func() {
		deps := newFakeDeps(riskPredictor{})
		router := newRouter(deps, api.WithListLimits(1, 5))
		for _, body := range []string{csvBody(0.1, 0.2), csvBody(0.9)} {
			w := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body)))
			So(w.Code, ShouldEqual, http.StatusCreated)
		}

		Convey("When a report is fetched by id", func() {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/reports/r2", nil))

			Convey("Then it is returned in full", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var rep report.Report
				So(json.Unmarshal(w.Body.Bytes(), &rep), ShouldBeNil)
				So(rep.ID, ShouldEqual, "r2")
				So(rep.Series, ShouldHaveLength, 1)
			})
		})

		Convey("When an unknown report is fetched", func() {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/reports/nope", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When the chart is requested", func() {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/reports/r1/chart.svg", nil))

			Convey("Then an SVG is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/svg+xml")
				So(w.Body.String(), ShouldContainSubstring, "<svg")
			})
		})

		Convey("When reports are listed without a limit", func() {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))

			Convey("Then the default limit applies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out struct {
					Reports []report.Summary `json:"reports"`
					Count   int              `json:"count"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out.Count, ShouldEqual, 1)
			})
		})

		Convey("When the limit is above the maximum", func() {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/reports?limit=6", nil))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When the limit is not a number", func() {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/reports?limit=ten", nil))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "bad_request")
		})
	})
}

func TestMetadataEndpoints(t *testing.T) {
	Convey("Given the API router", t, func() {
		router := newRouter(newFakeDeps(riskPredictor{}))

		Convey("Then classes expose labels, headers and thresholds", func() {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/classes", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			body := w.Body.String()
			So(body, ShouldContainSubstring, `"label":"Unbalance"`)
			So(body, ShouldContainSubstring, `"kind":"Unbalance"`)
			So(body, ShouldContainSubstring, "Тип поломки")
			So(body, ShouldContainSubstring, `"critical":90`)
		})

		Convey("Then health reports ok", func() {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then stats come from the provider", func() {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/stats", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "reports_stored")
		})

		Convey("Then metrics are exposed for scraping", func() {
			_ = serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			w := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})
	})
}

func TestHarden(t *testing.T) {
	if err := logging.InitWith(io.Discard, logging.FormatText); err != nil {
		t.Fatal(err)
	}

	Convey("Given a hardened router", t, func() {
		r := mux.NewRouter()
		r.HandleFunc("/panic", func(http.ResponseWriter, *http.Request) { panic("kaboom") })
		r.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "fine") })
		var access bytes.Buffer
		h := api.Harden(r, api.HardenOptions{AllowedOrigins: []string{"http://ops.local"}, AccessLog: &access})

		Convey("When a handler panics", func() {
			w := serve(h, httptest.NewRequest(http.MethodGet, "/panic", nil))

			Convey("Then the panic becomes a 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When a cross origin request arrives", func() {
			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			req.Header.Set("Origin", "http://ops.local")
			w := serve(h, req)

			Convey("Then CORS headers are set and the request is logged", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "http://ops.local")
				So(access.String(), ShouldContainSubstring, "GET /ok")
			})
		})
	})
}
