package models

import "time"

// ScanRunResult summarizes one generation or refresh pass.
type ScanRunResult struct {
	StartedAt time.Time `json:"started_at"`
	Duration  float64   `json:"duration_seconds"`
	Scanned   int       `json:"scanned"`
	Generated int       `json:"generated"`
	Updated   int       `json:"updated"`
	Closed    int       `json:"closed"`
	Failed    int       `json:"failed"`
}

// ScanStatus reports the state of the background scanner.
type ScanStatus struct {
	Running         bool       `json:"running"`
	ScanInterval    float64    `json:"scan_interval_seconds"`
	RefreshInterval float64    `json:"refresh_interval_seconds"`
	ScanCount       int        `json:"scan_count"`
	LastScanAt      *time.Time `json:"last_scan_at,omitempty"`
	LastRefreshAt   *time.Time `json:"last_refresh_at,omitempty"`
	NextScanAt      *time.Time `json:"next_scan_at,omitempty"`
}

// HealthStatus reports per-component health for the health endpoint.
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}
