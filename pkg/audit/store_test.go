package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := AuthenticateEvent{
		User:              "alice@example.com",
		ClientIP:          "10.0.0.1",
		AuthenticatorName: "password",
		Success:           true,
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityAuthPriv,  // facility
			int(SeverityInfo), // severity
			sqlmock.AnyArg(),  // timestamp
			sqlmock.AnyArg(),  // hostname
			AppName,           // appname
			sqlmock.AnyArg(),  // procid
			"authn",           // msgid
			sqlmock.AnyArg(),  // sdata (JSON)
			sqlmock.AnyArg(),  // message
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveInviteEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityAuth,
			int(SeverityWarning),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			AppName,
			sqlmock.AnyArg(),
			"invite",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(InviteEvent{Actor: "a", Email: "b@example.com", Operation: InviteAccept, ErrorMessage: "expired"})
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}
}

func TestStoreRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, timestamp, severity, msgid, sdata, message FROM messages`).
		WithArgs(AppName, "remove", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp", "severity", "msgid", "sdata", "message"}).
			AddRow(7, at, int(SeverityNotice), "remove",
				[]byte(`{"subject@32473":{"actor":"a-1","user":"gone@example.com"}}`),
				"owner@example.com removed gone@example.com"))

	entries, err := store.Recent(context.Background(), "remove", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Recent() returned %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Severity != SeverityNotice || e.MsgID != "remove" || !e.Timestamp.Equal(at) {
		t.Errorf("unexpected entry %+v", e)
	}
	if got := e.Subject()["user"]; got != "gone@example.com" {
		t.Errorf("Subject()[user] = %q, want gone@example.com", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreRecentBadData(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp", "severity", "msgid", "sdata", "message"}).
			AddRow(1, time.Now(), 5, "authn", []byte(`not json`), "x"))

	if _, err := NewStoreWithDB(db).Recent(context.Background(), "", 0); err == nil {
		t.Error("expected undecodable structured data to fail")
	}
}

func TestStoreNil(t *testing.T) {
	var store *Store
	if err := store.Save(SessionEvent{}); err != nil {
		t.Errorf("Save() on nil store = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() on nil store = %v", err)
	}

	if entries, err := store.Recent(context.Background(), "", 5); err != nil || entries != nil {
		t.Errorf("Recent() on nil store = %v, %v", entries, err)
	}

	s, err := NewStore("")
	if err != nil || s != nil {
		t.Errorf("NewStore(\"\") = %v, %v; want nil, nil", s, err)
	}
}

func TestStoreClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	mock.ExpectClose()

	store := NewStoreWithDB(db)
	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAuditorReportsSaveFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO messages`).WillReturnError(errors.New("relation \"messages\" does not exist"))

	var logBuf, errBuf bytes.Buffer
	a := &Auditor{
		Logger:   NewLogger(&logBuf),
		Store:    NewStoreWithDB(db),
		ErrorLog: slog.New(slog.NewTextHandler(&errBuf, nil)),
	}
	a.Record(SessionEvent{UserID: "u1", SessionID: "s1", Operation: SessionRevoke})

	if logBuf.Len() == 0 {
		t.Error("expected the syslog line to be written despite the store failure")
	}
	if !strings.Contains(errBuf.String(), "failed to save event") {
		t.Errorf("expected failure to be logged, got %q", errBuf.String())
	}
}
