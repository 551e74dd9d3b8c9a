package audit

import "fmt"

// Session operations
const (
	SessionIssue  = "issue"
	SessionRevoke = "revoke"
	SessionExpire = "expire"
)

// SessionEvent records the issue, revocation or expiry of a session.
type SessionEvent struct {
	UserID    string
	SessionID string
	Operation string
	ClientIP  string
}

func (e SessionEvent) MessageID() string {
	return "session"
}

func (e SessionEvent) Message() string {
	switch e.Operation {
	case SessionIssue:
		return fmt.Sprintf("session %s issued to %s", e.SessionID, e.UserID)
	case SessionExpire:
		return fmt.Sprintf("session %s of %s expired", e.SessionID, e.UserID)
	default:
		return fmt.Sprintf("session %s of %s revoked", e.SessionID, e.UserID)
	}
}

func (e SessionEvent) Severity() Severity {
	if e.Operation == SessionIssue {
		return SeverityInfo
	}
	return SeverityNotice
}

func (e SessionEvent) Facility() int {
	return FacilityAuthPriv
}

func (e SessionEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDSubject: {
			"user":    e.UserID,
			"session": e.SessionID,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    "success",
		},
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	return sd
}
