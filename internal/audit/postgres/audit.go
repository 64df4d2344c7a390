package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/openshelf/openshelf/internal/audit"
	"gorm.io/gorm"
)

// AuditLog is the persisted form of an audit entry.
type AuditLog struct {
	ID         int64     `gorm:"primaryKey"`
	ActorID    int64     `gorm:"column:actor_id"`
	ActorEmail string    `gorm:"column:actor_email"`
	Action     string    `gorm:"column:action;not null"`
	Resource   string    `gorm:"column:resource"`
	ResourceID string    `gorm:"column:resource_id"`
	Granted    bool      `gorm:"column:granted"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
	RemoteAddr string    `gorm:"column:remote_addr"`
	UserAgent  string    `gorm:"column:user_agent"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Sink persists authorization decisions to the audit_logs table. Failures are
// logged and swallowed so a broken audit store never blocks a request.
type Sink struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewSink(db *gorm.DB, logger *slog.Logger) *Sink {
	return &Sink{db: db, logger: logger}
}

func (s *Sink) Record(ctx context.Context, entry audit.Entry) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}

	row := AuditLog{
		ActorID:    entry.ActorID,
		ActorEmail: entry.ActorEmail,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		Granted:    entry.Granted,
		OccurredAt: entry.OccurredAt,
		RemoteAddr: entry.RemoteAddr,
		UserAgent:  entry.UserAgent,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logger.Error("failed to persist audit entry",
			"action", entry.Action,
			"resource", entry.Resource,
			"error", err)
	}
}

func (s *Sink) List() []audit.Entry {
	var rows []AuditLog
	if err := s.db.Order("id ASC").Find(&rows).Error; err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		return nil
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, audit.Entry{
			ActorID:    row.ActorID,
			ActorEmail: row.ActorEmail,
			Action:     row.Action,
			Resource:   row.Resource,
			ResourceID: row.ResourceID,
			Granted:    row.Granted,
			OccurredAt: row.OccurredAt,
			RemoteAddr: row.RemoteAddr,
			UserAgent:  row.UserAgent,
		})
	}
	return entries
}

func (s *Sink) Clear() {
	if err := s.db.Exec("DELETE FROM audit_logs").Error; err != nil {
		s.logger.Error("failed to clear audit entries", "error", err)
	}
}
