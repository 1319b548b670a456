package cli

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/vibrapulse/internal/domain/failure"
	"github.com/okian/vibrapulse/internal/domain/reading"
)

// Columns written by Generate.
var generatedColumns = []string{
	"id", "esp_id", "vibration_rms", "vibration_peak", "temperature",
	"pressure", "current", "frequency", "label",
}

// baseline is a healthy pump operating point.
var baseline = [6]float64{1.6, 4.9, 72, 15.5, 28, 50}

// drift is the per-step change towards each fault, in generatedColumns order
// after esp_id.
var drift = map[failure.Kind][6]float64{
	failure.Unbalance:    {0.12, 0.30, 0.3, 0, 0.35, 0.02},
	failure.Rubbing:      {0.08, 0.25, 0.9, -0.02, 0.25, 0},
	failure.Misalignment: {0.10, 0.10, 0.4, 0.01, 0.45, -0.06},
	failure.FaultySensor: {-0.05, 0.45, 0, -0.12, 0, 0},
	failure.Normal:       {},
}

// noise is the standard deviation of each reading.
var noise = [6]float64{0.05, 0.15, 0.4, 0.15, 0.4, 0.05}

// Generate writes n synthetic readings for one pump that starts healthy and
// drifts towards fault over its second half.
func Generate(w io.Writer, n int, fault string, seed uint64) error {
	kind := failure.KindOf(fault)
	d, ok := drift[kind]
	if !ok {
		return fmt.Errorf("%w: unknown fault %q", ErrUsage, fault)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	espID := "ESP-" + strings.ToUpper(uuid.NewString()[:8])

	var b strings.Builder
	b.WriteString(strings.Join(generatedColumns, string(reading.Delimiter)))
	b.WriteByte('\n')

	onset := n / 2
	for i := 0; i < n; i++ {
		steps := float64(max(i-onset, 0))
		label := failure.Normal.String()
		if steps > 0 {
			label = kind.String()
		}
		fmt.Fprintf(&b, "%d;%s", i+1, espID)
		for j := range baseline {
			v := baseline[j] + d[j]*steps + rng.NormFloat64()*noise[j]
			fmt.Fprintf(&b, ";%.3f", v)
		}
		fmt.Fprintf(&b, ";%s\n", label)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
