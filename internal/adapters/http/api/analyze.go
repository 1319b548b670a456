package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/okian/vibrapulse/internal/domain/report"
)

const (
	uploadField     = "file"
	fileNameHeader  = "X-File-Name"
	defaultFileName = "upload.csv"
)

// AnalyzeHandler handles CSV uploads.
type AnalyzeHandler struct {
	deps     Dependencies
	maxBytes int64
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps Dependencies, maxBytes int64) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps, maxBytes: maxBytes}
}

// HandleAnalyze handles POST /api/v1/analyze. The body is either a
// multipart form with a "file" part or the raw CSV itself.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	up, err := readUpload(r)
	if err != nil {
		fail(w, annotate(op, err))
		return
	}

	rep, err := h.deps.Analyze(r.Context(), up)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	w.Header().Set("Location", apiPrefix+"/reports/"+rep.ID)
	writeJSON(w, http.StatusCreated, rep)
}

func readUpload(r *http.Request) (report.Upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return report.Upload{}, err
		}
		name := r.Header.Get(fileNameHeader)
		if name == "" {
			name = r.URL.Query().Get("name")
		}
		return report.Upload{FileName: cleanName(name), Data: data}, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return report.Upload{}, errors.Join(ErrBadRequest, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return report.Upload{}, errors.Join(ErrBadRequest, errors.New(`missing "file" part`))
		}
		if err != nil {
			return report.Upload{}, err
		}
		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return report.Upload{}, err
		}
		return report.Upload{FileName: cleanName(part.FileName()), Data: data}, nil
	}
}

// annotate classifies body read failures.
func annotate(op string, err error) error {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return WrapKind(op, ErrTooLarge, err)
	case errors.Is(err, ErrBadRequest):
		return Wrap(op, err)
	default:
		return WrapKind(op, ErrBadRequest, err)
	}
}

func cleanName(name string) string {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, `\`, "/")))
	if name == "" || name == "." || name == "/" {
		return defaultFileName
	}
	return name
}
