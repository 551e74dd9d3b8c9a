package audit

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.now = func() time.Time { return time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC) }

	event := AuthenticateEvent{
		User:              "alice@example.com",
		ClientIP:          "192.168.1.1",
		AuthenticatorName: "password",
		Success:           true,
	}

	logger.Log(event)

	output := buf.String()

	if !strings.HasPrefix(output, "<86>1 2026-05-04T03:02:01.000Z ") {
		t.Errorf("unexpected header: %q", output)
	}
	if !strings.Contains(output, " "+AppName+" ") {
		t.Errorf("Expected app name %q in output", AppName)
	}
	if !strings.Contains(output, " authn ") {
		t.Error("Expected message ID 'authn' in output")
	}
	if !strings.Contains(output, "alice@example.com") {
		t.Error("Expected user in output")
	}
	if !strings.Contains(output, `[client@32473 ip="192.168.1.1"]`) {
		t.Error("Expected client IP in output")
	}
	if !strings.Contains(output, "successfully authenticated") {
		t.Error("Expected success message in output")
	}
}

func TestFormatStructuredDataIsSorted(t *testing.T) {
	sd := map[string]map[string]string{
		"b@1": {"z": "1", "a": "2"},
		"a@1": {"k": "v"},
	}
	got := formatStructuredData(sd)
	want := `[a@1 k="v"][b@1 a="2" z="1"]`
	if got != want {
		t.Errorf("formatStructuredData() = %q, want %q", got, want)
	}
}

func TestEscapeSDValue(t *testing.T) {
	got := escapeSDValue(`a"b]c\d`)
	want := `"a\"b\]c\\d"`
	if got != want {
		t.Errorf("escapeSDValue() = %q, want %q", got, want)
	}
}

func TestAuthenticateEvent(t *testing.T) {
	tests := []struct {
		name      string
		event     AuthenticateEvent
		wantMsg   string
		wantSev   Severity
		wantFac   int
		wantMsgID string
	}{
		{
			name: "successful authentication",
			event: AuthenticateEvent{
				User:              "alice@example.com",
				ClientIP:          "10.0.0.1",
				AuthenticatorName: "password",
				Success:           true,
			},
			wantMsg:   "successfully authenticated",
			wantSev:   SeverityInfo,
			wantFac:   FacilityAuthPriv,
			wantMsgID: "authn",
		},
		{
			name: "failed authentication",
			event: AuthenticateEvent{
				User:              "alice@example.com",
				ClientIP:          "10.0.0.1",
				AuthenticatorName: "password",
				Success:           false,
				ErrorMessage:      "invalid credentials",
			},
			wantMsg:   "failed to authenticate",
			wantSev:   SeverityWarning,
			wantFac:   FacilityAuthPriv,
			wantMsgID: "authn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.MessageID(); got != tt.wantMsgID {
				t.Errorf("MessageID() = %v, want %v", got, tt.wantMsgID)
			}
			if got := tt.event.Message(); !strings.Contains(got, tt.wantMsg) {
				t.Errorf("Message() = %v, want to contain %v", got, tt.wantMsg)
			}
			if got := tt.event.Severity(); got != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", got, tt.wantSev)
			}
			if got := tt.event.Facility(); got != tt.wantFac {
				t.Errorf("Facility() = %v, want %v", got, tt.wantFac)
			}
		})
	}
}

func TestSessionEvent(t *testing.T) {
	tests := []struct {
		op      string
		wantMsg string
		wantSev Severity
	}{
		{SessionIssue, "issued to", SeverityInfo},
		{SessionRevoke, "revoked", SeverityNotice},
		{SessionExpire, "expired", SeverityNotice},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			event := SessionEvent{UserID: "u1", SessionID: "s1", Operation: tt.op}
			if got := event.Message(); !strings.Contains(got, tt.wantMsg) {
				t.Errorf("Message() = %v, want to contain %v", got, tt.wantMsg)
			}
			if got := event.Severity(); got != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", got, tt.wantSev)
			}
			if got := event.StructuredData()[SDIDAction]["operation"]; got != tt.op {
				t.Errorf("operation = %v, want %v", got, tt.op)
			}
			if _, ok := event.StructuredData()[SDIDClient]; ok {
				t.Error("client element should be omitted without an IP")
			}
		})
	}
}

func TestInviteEvent(t *testing.T) {
	ok := InviteEvent{Actor: "owner@example.com", Email: "new@example.com", Role: "admin", Operation: InviteCreate, Success: true}
	if got := ok.Message(); got != "owner@example.com performed create on invitation for new@example.com (role admin)" {
		t.Errorf("Message() = %q", got)
	}
	if ok.Severity() != SeverityInfo {
		t.Errorf("Severity() = %v, want %v", ok.Severity(), SeverityInfo)
	}

	failed := InviteEvent{Actor: "admin@example.com", Email: "x@example.com", Operation: InviteCreate, ErrorMessage: "forbidden"}
	if got := failed.Message(); !strings.HasSuffix(got, ": forbidden") {
		t.Errorf("Message() = %q", got)
	}
	if got := failed.StructuredData()[SDIDAction]["result"]; got != "failure" {
		t.Errorf("result = %v, want failure", got)
	}
}

func TestRoleUpdateEvent(t *testing.T) {
	event := RoleUpdateEvent{Actor: "a", Target: "b", From: "admin", To: "owner", Success: true}
	if got := event.Message(); got != "a changed the role of b from admin to owner" {
		t.Errorf("Message() = %q", got)
	}
	if event.MessageID() != "role-update" {
		t.Errorf("MessageID() = %v", event.MessageID())
	}
}

type recorded struct{ events []Event }

func (r *recorded) Record(e Event) { r.events = append(r.events, e) }

func TestAuditorWritesLogLine(t *testing.T) {
	var buf bytes.Buffer
	a := &Auditor{Logger: NewLogger(&buf)}
	a.Record(RegisterEvent{UserID: "u1", Email: "jane@example.com", Role: "admin", Source: "invite"})

	if !strings.Contains(buf.String(), "jane@example.com registered as admin via invite") {
		t.Errorf("unexpected output: %q", buf.String())
	}

	var _ Recorder = a
	var _ Recorder = &recorded{}
	Discard.Record(RegisterEvent{})
}
