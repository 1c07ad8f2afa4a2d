package database

import (
	"context"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"

	"gorm.io/gorm"
)

// AuditLog stores submission attempts in the audit database
type AuditLog struct {
	db *gorm.DB
}

func NewAuditLog(db *gorm.DB) *AuditLog {
	return &AuditLog{db: db}
}

// Record inserts one audit row
func (a *AuditLog) Record(ctx context.Context, entry *models.SubmissionLog) error {
	return a.db.WithContext(ctx).Create(entry).Error
}

// Recent returns the latest audit rows, newest first
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]models.SubmissionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.SubmissionLog
	err := a.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// ByIdentity returns every audit row for a normalized CPF, newest first
func (a *AuditLog) ByIdentity(ctx context.Context, normalizedCPF string) ([]models.SubmissionLog, error) {
	var logs []models.SubmissionLog
	err := a.db.WithContext(ctx).Where("identity = ?", normalizedCPF).Order("id DESC").Find(&logs).Error
	return logs, err
}
