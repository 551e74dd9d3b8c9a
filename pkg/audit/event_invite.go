package audit

import "fmt"

// Invitation operations
const (
	InviteCreate  = "create"
	InviteAccept  = "accept"
	InviteDecline = "decline"
	InviteRevoke  = "revoke"
	InviteExpire  = "expire"
)

// InviteEvent records a step in an invitation's lifecycle.
type InviteEvent struct {
	Actor        string
	Email        string
	Role         string
	Operation    string
	Success      bool
	ErrorMessage string
}

func (e InviteEvent) MessageID() string {
	return "invite"
}

func (e InviteEvent) Message() string {
	var msg string
	if e.Success {
		msg = fmt.Sprintf("%s performed %s on invitation for %s", e.Actor, e.Operation, e.Email)
	} else {
		msg = fmt.Sprintf("%s failed to %s invitation for %s", e.Actor, e.Operation, e.Email)
	}
	if e.Role != "" {
		msg += fmt.Sprintf(" (role %s)", e.Role)
	}
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e InviteEvent) Severity() Severity {
	return severity(e.Success)
}

func (e InviteEvent) Facility() int {
	return FacilityAuth
}

func (e InviteEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.Actor,
		},
		SDIDSubject: {
			"email": e.Email,
			"role":  e.Role,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    result(e.Success),
		},
	}
}
