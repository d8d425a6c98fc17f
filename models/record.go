package models

import "time"

// Record anchors a medical record held outside the gateway. Only ownership
// is stored here; the content lives with the record store.
type Record struct {
	ID          string    `json:"recordId" db:"id"`
	PatientID   string    `json:"patientId" db:"patient_id"`
	CreatorID   string    `json:"creatorId" db:"creator_id"`
	ContentHash string    `json:"contentHash,omitempty" db:"content_hash"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// TableName returns the table name for the Record model
func (Record) TableName() string {
	return "records"
}

// NewRecord creates a new Record instance
func NewRecord(id, patientID, creatorID, contentHash string) *Record {
	return &Record{
		ID:          id,
		PatientID:   patientID,
		CreatorID:   creatorID,
		ContentHash: contentHash,
		CreatedAt:   time.Now().UTC(),
	}
}

// IsOwner reports whether userID is the record's patient or its creator
func (r *Record) IsOwner(userID string) bool {
	return userID != "" && (userID == r.PatientID || userID == r.CreatorID)
}

// RecordGrant gives one user access to one record up to Action. Revoked
// grants are kept for history.
type RecordGrant struct {
	RecordID  string     `json:"recordId" db:"record_id"`
	GranteeID string     `json:"granteeId" db:"grantee_id"`
	Action    string     `json:"action" db:"action"`
	GrantedBy string     `json:"grantedBy" db:"granted_by"`
	GrantedAt time.Time  `json:"grantedAt" db:"granted_at"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
	RevokedAt *time.Time `json:"revokedAt,omitempty" db:"revoked_at"`
}

// TableName returns the table name for the RecordGrant model
func (RecordGrant) TableName() string {
	return "record_grants"
}

// NewRecordGrant creates an active grant
func NewRecordGrant(recordID, granteeID, action, grantedBy string, expiresAt *time.Time) *RecordGrant {
	return &RecordGrant{
		RecordID:  recordID,
		GranteeID: granteeID,
		Action:    action,
		GrantedBy: grantedBy,
		GrantedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
}

// Active reports whether the grant has not been revoked
func (g *RecordGrant) Active() bool {
	return g.RevokedAt == nil
}

// ExpiredAt reports whether the grant has expired at now. A grant without
// an expiry never expires.
func (g *RecordGrant) ExpiredAt(now time.Time) bool {
	return g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}
