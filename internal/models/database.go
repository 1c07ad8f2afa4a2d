package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel provides common fields for all database models
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// Audit operations
const (
	OperationCreate       = "create"
	OperationUpdate       = "update"
	OperationDelete       = "delete"
	OperationStatusChange = "status_change"
)

// SubmissionLog records every outbound mutation attempted against the remote store
type SubmissionLog struct {
	BaseModel
	Operation string `json:"operation" gorm:"size:20;not null;index"`
	RecordID  string `json:"record_id" gorm:"size:100;index"`
	Identity  string `json:"identity" gorm:"size:20;index"` // normalized CPF
	Actor     string `json:"actor" gorm:"size:100"`
	Outcome   string `json:"outcome" gorm:"size:20;not null"` // accepted, rejected, failed
	Detail    string `json:"detail" gorm:"type:text"`
}
