package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/okian/vibrapulse/internal/domain/report"
)

// WriteText prints rep in dashboard order: table, trend, recommendations,
// alert. The chart is only available from the server.
func WriteText(w io.Writer, rep *report.Report) error {
	ew := &errWriter{w: w}

	ew.printf("File: %s (%d records)\n\n", rep.FileName, len(rep.Rows))

	tw := tabwriter.NewWriter(ew, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "#\t%s\t%s\n", report.RiskHeader, report.KindHeader)
	for _, r := range rep.Rows {
		fmt.Fprintf(tw, "%d\t%.1f\t%s\n", r.Index, r.Risk, r.Type)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ew.printf("\nTime to failure: %s\n", rep.Trend.Message)

	ew.printf("\nRecommendations:\n")
	if len(rep.Advice.Items) == 0 {
		ew.printf("  %s\n", rep.Advice.Message)
	}
	for _, r := range rep.Advice.Items {
		ew.printf("  [%s] %s\n", r.Level, r.Message)
	}

	ew.printf("\n[%s] %s\n", rep.Alert.Severity, rep.Alert.Message)
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(e, format, args...)
}
