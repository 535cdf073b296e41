package trigger

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/haasonsaas/nexus/pkg/models"
)

// TestSQLiteStore_CreateIssuesExpectedInsert exercises the exact SQL shape
// emitted by Create against a mocked driver, independent of a real SQLite
// file — useful for pinning the statement without needing cgo or a
// filesystem-backed database in CI.
func TestSQLiteStore_CreateIssuesExpectedInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := &SQLiteStore{db: db}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO triggers")).
		WithArgs(sqlmock.AnyArg(), "reminders", "water the plants", string(StatusActive),
			sqlmock.AnyArg(), sqlmock.AnyArg(), "", "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.TriggerRecord{AgentName: "reminders", Payload: "water the plants", Status: string(StatusActive)}
	if err := store.Create(context.Background(), record); err != nil {
		t.Fatal(err)
	}
	if record.TriggerID == "" {
		t.Fatal("expected Create to assign a trigger id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteStore_UpdateNoRowsAffectedIsAnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := &SQLiteStore{db: db}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE triggers SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.Update(context.Background(), &models.TriggerRecord{TriggerID: "missing", AgentName: "a", Payload: "p", Status: string(StatusActive)})
	if err == nil {
		t.Fatal("expected an error when no rows were affected")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
