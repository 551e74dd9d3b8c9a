package audit

import "fmt"

// RegisterEvent records the creation of a principal.
type RegisterEvent struct {
	UserID string
	Email  string
	Role   string
	Source string // "invite" or "bootstrap"
}

func (e RegisterEvent) MessageID() string {
	return "register"
}

func (e RegisterEvent) Message() string {
	return fmt.Sprintf("%s registered as %s via %s", e.Email, e.Role, e.Source)
}

func (e RegisterEvent) Severity() Severity {
	return SeverityNotice
}

func (e RegisterEvent) Facility() int {
	return FacilityAuth
}

func (e RegisterEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDSubject: {
			"user":  e.UserID,
			"email": e.Email,
			"role":  e.Role,
		},
		SDIDAction: {
			"operation": "register",
			"source":    e.Source,
			"result":    "success",
		},
	}
}

// RoleUpdateEvent records an administrative role change.
type RoleUpdateEvent struct {
	Actor        string
	Target       string
	From         string
	To           string
	Success      bool
	ErrorMessage string
}

func (e RoleUpdateEvent) MessageID() string {
	return "role-update"
}

func (e RoleUpdateEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s changed the role of %s from %s to %s", e.Actor, e.Target, e.From, e.To)
	}
	msg := fmt.Sprintf("%s failed to change the role of %s to %s", e.Actor, e.Target, e.To)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e RoleUpdateEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e RoleUpdateEvent) Facility() int {
	return FacilityAuthPriv
}

func (e RoleUpdateEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.Actor,
		},
		SDIDSubject: {
			"user": e.Target,
			"from": e.From,
			"to":   e.To,
		},
		SDIDAction: {
			"operation": "update-role",
			"result":    result(e.Success),
		},
	}
}

// RemoveEvent records the removal of an actor and the principal anchored at it.
type RemoveEvent struct {
	Actor        string
	ActorID      string
	Email        string
	Success      bool
	ErrorMessage string
}

func (e RemoveEvent) MessageID() string {
	return "remove"
}

func (e RemoveEvent) Message() string {
	target := e.ActorID
	if e.Email != "" {
		target = e.Email
	}
	if e.Success {
		return fmt.Sprintf("%s removed %s", e.Actor, target)
	}
	msg := fmt.Sprintf("%s failed to remove %s", e.Actor, target)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e RemoveEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e RemoveEvent) Facility() int {
	return FacilityAuthPriv
}

func (e RemoveEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.Actor,
		},
		SDIDSubject: {
			"actor": e.ActorID,
			"user":  e.Email,
		},
		SDIDAction: {
			"operation": "remove",
			"result":    result(e.Success),
		},
	}
}
