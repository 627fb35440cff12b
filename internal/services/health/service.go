package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Report is the health payload.
type Report struct {
	OK       bool   `json:"ok"`
	Storage  string `json:"storage"`
	Database string `json:"database,omitempty"`
}

// Service reports process and storage health.
type Service struct {
	DB *sql.DB
}

// NewService constructs a health service. db may be nil for in-memory storage.
func NewService(db *sql.DB) *Service {
	return &Service{DB: db}
}

// Status pings the database when one is configured.
func (s *Service) Status(ctx context.Context) Report {
	if s == nil || s.DB == nil {
		return Report{OK: true, Storage: "memory"}
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		return Report{OK: false, Storage: "postgres", Database: err.Error()}
	}
	return Report{OK: true, Storage: "postgres", Database: "ok"}
}
