package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/upb/emr-gateway/auth"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionLogin           AuditAction = "login"
	AuditActionLoginFailed     AuditAction = "login_failed"
	AuditActionUserCreated     AuditAction = "user_created"
	AuditActionPermissionCheck AuditAction = "permission_check"
	AuditActionRecordCreated   AuditAction = "record_created"
	AuditActionAccessGranted   AuditAction = "access_granted"
	AuditActionAccessRevoked   AuditAction = "access_revoked"
)

// AuditLog represents one access attempt recorded for compliance
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       string          `json:"userId" db:"user_id"`
	Role         auth.Role       `json:"role" db:"role"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resourceType" db:"resource_type"` // record, user, session
	ResourceID   string          `json:"resourceId,omitempty" db:"resource_id"`
	Success      bool            `json:"success" db:"success"`
	Reason       string          `json:"reason,omitempty" db:"reason"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"` // JSONB
	RequestID    string          `json:"requestId,omitempty" db:"request_id"`
	IPAddress    string          `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent    string          `json:"userAgent,omitempty" db:"user_agent"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(actor auth.Principal, action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		UserID:       actor.UserID,
		Role:         actor.Role,
		Action:       action,
		ResourceType: resourceType,
		Timestamp:    time.Now().UTC(),
	}
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID string) *AuditLog {
	a.ResourceID = resourceID
	return a
}

// WithOutcome records whether access was granted and why
func (a *AuditLog) WithOutcome(success bool, reason string) *AuditLog {
	a.Success = success
	a.Reason = reason
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
