package api

const (
	defaultMaxUploadBytes   int64 = 10 << 20
	defaultListLimit              = 10
	defaultMaxListLimit           = 100
)

type options struct {
	maxUploadBytes   int64
	defaultListLimit int
	maxListLimit     int
}

func defaultOptions() options {
	return options{
		maxUploadBytes:   defaultMaxUploadBytes,
		defaultListLimit: defaultListLimit,
		maxListLimit:     defaultMaxListLimit,
	}
}

// Option configures the API server.
type Option func(*options)

// WithMaxUploadBytes caps the request body accepted by POST /api/v1/analyze.
func WithMaxUploadBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxUploadBytes = n
		}
	}
}

// WithListLimits sets the default and maximum report listing size.
func WithListLimits(def, ceiling int) Option {
	return func(o *options) {
		if ceiling > 0 {
			o.maxListLimit = ceiling
		}
		if def > 0 {
			o.defaultListLimit = def
		}
		if o.defaultListLimit > o.maxListLimit {
			o.defaultListLimit = o.maxListLimit
		}
	}
}
