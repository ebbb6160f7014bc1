package model

import "time"

type QualityMetrics struct {
	AverageQuality float64 `json:"avg_quality"`
	TotalCount     int     `json:"total_count"`
}

type QueueMetrics struct {
	Queued            int       `json:"queued"`
	Processing        int       `json:"processing"`
	CompletedToday    int       `json:"completed_today"`
	FailedToday       int       `json:"failed_today"`
	CancelledToday    int       `json:"cancelled_today"`
	AverageQuality    float64   `json:"average_quality"`
	RecentResults     int       `json:"recent_results"`
	QualityWindowDays int       `json:"quality_window_days"`
	Capacity          int       `json:"capacity"`
	Running           bool      `json:"running"`
	GeneratedAt       time.Time `json:"generated_at"`
}
