package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"certmailer/internal/domain"
)

func rosterFixture() (*mockEventRepository, *mockParticipantRepository, domain.RosterService) {
	events := &mockEventRepository{events: map[string]*domain.Event{
		"e1": {ID: "e1", OwnerID: "u1", Name: "Go Conf"},
	}}
	participants := &mockParticipantRepository{participants: map[string]*domain.Participant{}}
	svc := NewRosterService(events, participants, discardLogger())
	return events, participants, svc
}

func xlsxRoster(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestRosterService_AddParticipant(t *testing.T) {
	tests := []struct {
		name      string
		eventID   string
		ownerID   string
		pName     string
		email     string
		wantErr   bool
		wantEmail string
	}{
		{
			name: "normalizes name and email", eventID: "e1", ownerID: "u1",
			pName: "  Ada Lovelace ", email: " Ada@Example.COM ",
			wantEmail: "ada@example.com",
		},
		{
			name: "empty name rejected", eventID: "e1", ownerID: "u1",
			pName: "  ", email: "a@example.com", wantErr: true,
		},
		{
			name: "invalid email rejected", eventID: "e1", ownerID: "u1",
			pName: "Ada", email: "not-an-email", wantErr: true,
		},
		{
			name: "foreign event", eventID: "e1", ownerID: "intruder",
			pName: "Ada", email: "a@example.com", wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, svc := rosterFixture()
			p, err := svc.AddParticipant(context.Background(), tt.eventID, tt.ownerID, tt.pName, tt.email)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got err=%v", tt.wantErr, err)
			}
			if err != nil {
				return
			}
			if p.Email != tt.wantEmail {
				t.Errorf("email = %q, want %q", p.Email, tt.wantEmail)
			}
			if p.Status != domain.StatusPending {
				t.Errorf("status = %q, want pending", p.Status)
			}
		})
	}
}

func TestRosterService_AddParticipant_Duplicate(t *testing.T) {
	_, _, svc := rosterFixture()
	if _, err := svc.AddParticipant(context.Background(), "e1", "u1", "Ada", "ada@example.com"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := svc.AddParticipant(context.Background(), "e1", "u1", "Ada Again", "ADA@example.com")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRosterService_ImportXLSX(t *testing.T) {
	_, participants, svc := rosterFixture()
	participants.participants["p0"] = &domain.Participant{
		ID: "p0", EventID: "e1", Name: "Existing", Email: "existing@example.com", Status: domain.StatusPending,
	}

	buf := xlsxRoster(t, [][]interface{}{
		{"Name", "Email"},
		{"Ada Lovelace", "ada@example.com"},
		{"Grace Hopper", "GRACE@Example.com"},
		{"", "noname@example.com"},
		{"Bad Email", "not-an-email"},
		{"Ada Duplicate", "ada@example.com"},
		{"Already There", "existing@example.com"},
		{"", ""}, // blank rows are ignored silently
		{"Last One", "last@example.com"},
	})

	result, err := svc.ImportXLSX(context.Background(), "e1", "u1", buf)
	if err != nil {
		t.Fatalf("ImportXLSX: %v", err)
	}
	if result.Added != 3 {
		t.Errorf("added = %d, want 3", result.Added)
	}
	if result.Skipped != 4 {
		t.Errorf("skipped = %d, want 4 (problems: %v)", result.Skipped, result.Problems)
	}
	if len(result.Problems) != 4 {
		t.Errorf("problems = %v, want 4 entries", result.Problems)
	}

	grace, err := participants.GetByEventAndEmail(context.Background(), "e1", "grace@example.com")
	if err != nil {
		t.Fatalf("imported email not normalized: %v", err)
	}
	if grace.Status != domain.StatusPending {
		t.Errorf("imported status = %q, want pending", grace.Status)
	}
}

func TestRosterService_ImportXLSX_BadInput(t *testing.T) {
	t.Run("not a workbook", func(t *testing.T) {
		_, _, svc := rosterFixture()
		_, err := svc.ImportXLSX(context.Background(), "e1", "u1", bytes.NewReader([]byte("plain text")))
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("missing header columns", func(t *testing.T) {
		_, _, svc := rosterFixture()
		buf := xlsxRoster(t, [][]interface{}{
			{"Full Name", "Address"},
			{"Ada", "ada@example.com"},
		})
		_, err := svc.ImportXLSX(context.Background(), "e1", "u1", buf)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestRosterService_DeleteParticipant(t *testing.T) {
	_, participants, svc := rosterFixture()
	participants.participants["p1"] = &domain.Participant{ID: "p1", EventID: "e1"}
	participants.participants["p9"] = &domain.Participant{ID: "p9", EventID: "other-event"}

	if err := svc.DeleteParticipant(context.Background(), "e1", "u1", "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := participants.participants["p1"]; ok {
		t.Fatal("participant not deleted")
	}
	// A participant of another event is unreachable through this event.
	if err := svc.DeleteParticipant(context.Background(), "e1", "u1", "p9"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
