package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/vibrapulse/internal/adapters/model"
	"github.com/okian/vibrapulse/internal/domain/analysis"
	"github.com/okian/vibrapulse/internal/domain/dedupe"
	"github.com/okian/vibrapulse/internal/domain/failure"
	"github.com/okian/vibrapulse/internal/domain/reading"
	"github.com/okian/vibrapulse/internal/domain/report"
	"github.com/okian/vibrapulse/pkg/logger"
)

// Run executes cfg and writes the outcome to stdout.
func Run(ctx context.Context, cfg Config, stdin io.Reader, stdout io.Writer) error {
	if cfg.Generate > 0 {
		return Generate(stdout, cfg.Generate, cfg.Fault, cfg.Seed)
	}

	up, err := readInput(cfg.File, stdin)
	if err != nil {
		return err
	}

	var rep *report.Report
	if cfg.ServerURL != "" {
		rep, err = analyzeRemote(ctx, cfg, up)
	} else {
		rep, err = analyzeLocal(ctx, cfg, up)
	}
	if err != nil {
		return err
	}

	if cfg.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return WriteText(stdout, rep)
}

func readInput(path string, stdin io.Reader) (report.Upload, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return report.Upload{}, fmt.Errorf("read stdin: %w", err)
		}
		return report.Upload{FileName: "stdin.csv", Data: data}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return report.Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return report.Upload{FileName: filepath.Base(path), Data: data}, nil
}

func analyzeLocal(ctx context.Context, cfg Config, up report.Upload) (*report.Report, error) {
	log := logger.Get().Named("analyze")

	opts := model.Options{Kind: model.KindFile, Path: cfg.ModelPath}
	if cfg.ModelURL != "" {
		opts = model.Options{Kind: model.KindRemote, URL: cfg.ModelURL, Timeout: cfg.Timeout}
	}
	p, err := model.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	classes, err := failure.Compile(p.Classes())
	if err != nil {
		return nil, err
	}

	t, err := reading.Parse(bytes.NewReader(up.Data))
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "table parsed", logger.Int("rows", t.Len()), logger.Any("columns", t.Columns))

	res, err := analysis.Analyze(ctx, p, classes, t)
	if err != nil {
		return nil, err
	}
	return report.New(report.Meta{
		ID:        "local",
		FileName:  up.FileName,
		Digest:    dedupe.Digest(up.Data),
		CreatedAt: time.Now(),
	}, t.Columns, res), nil
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func analyzeRemote(ctx context.Context, cfg Config, up report.Upload) (*report.Report, error) {
	url := strings.TrimRight(cfg.ServerURL, "/") + "/api/v1/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(up.Data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("X-File-Name", up.FileName)

	client := &http.Client{Timeout: cfg.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		var e apiError
		if json.Unmarshal(body, &e) == nil && e.Code != "" {
			return nil, fmt.Errorf("server rejected upload (%d %s): %s", resp.StatusCode, e.Code, e.Message)
		}
		return nil, fmt.Errorf("server rejected upload: %s", resp.Status)
	}

	var rep report.Report
	if err := json.Unmarshal(body, &rep); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &rep, nil
}
