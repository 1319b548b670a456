package dedupe

const defaultMaxSize = 10000

// Option configures the in-memory deduper.
type Option func(*fifoDeduper)

// WithMaxSize bounds the number of remembered digests. Zero or negative
// means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *fifoDeduper) {
		d.maxSize = maxSize
	}
}
