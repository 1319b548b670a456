// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/vibrapulse/internal/domain/alert"
)

// Notification is handed to background sinks after a report is stored.
type Notification struct {
	ReportID  string
	FileName  string
	Digest    string // hex sha256 of Upload
	CreatedAt time.Time
	Severity  alert.Severity
	MaxRisk   float64
	Message   string // alert banner text
	Rows      int
	Upload    []byte // raw uploaded file
}

// Alerting reports whether the notification carries a warning or worse.
func (n Notification) Alerting() bool {
	return n.Severity >= alert.SeverityWarning
}
