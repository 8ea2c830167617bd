package order

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TableVoice/TableVoice/internal/common/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gormDB, err := db.NewSQLite(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return NewStore(NewTable(gormDB))
}

func intp(v int) *int { return &v }

func TestAddAndGetByIDRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := &Order{
		ID:              "order-1",
		AudioURI:        "file:///tmp/rec.wav",
		TranscribedText: "Two burgers with fries",
		StaffName:       "Alice",
		Timestamp:       "2026-08-28T10:00:00Z",
		Duration:        "0:15",
		TableNumber:     intp(4),
		GuestCount:      intp(2),
	}
	if _, err := s.Add(ctx, in); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.GetByID(ctx, "order-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TranscribedText != in.TranscribedText || got.StaffName != in.StaffName ||
		got.Timestamp != in.Timestamp || got.Duration != in.Duration {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.TableNumber == nil || *got.TableNumber != 4 {
		t.Fatalf("expected table number 4, got %v", got.TableNumber)
	}
	if got.Status != StatusOpen {
		t.Fatalf("expected default status open, got %s", got.Status)
	}
}

func TestAddGeneratesIDWhenAbsent(t *testing.T) {
	s := newTestStore(t)
	o, err := s.Add(context.Background(), &Order{AudioURI: "file:///a.wav", StaffName: "Bob"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if o.ID == "" {
		t.Fatalf("expected generated id")
	}
	if o.Timestamp == "" {
		t.Fatalf("expected generated timestamp")
	}
}

func TestAddDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Add(ctx, &Order{ID: "dup", StaffName: "Alice"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := s.Add(ctx, &Order{ID: "dup", StaffName: "Bob"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestAddRejectsNonPositiveCounts(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add(context.Background(), &Order{StaffName: "Alice", TableNumber: intp(0)})
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder for table number 0, got %v", err)
	}
	_, err = s.Add(context.Background(), &Order{StaffName: "Alice", GuestCount: intp(-1)})
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder for guest count -1, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchMatchesTextAndStaffCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []*Order{
		{ID: "a", TranscribedText: "Pepperoni Pizza", StaffName: "Alice", Timestamp: "2026-08-28T10:00:00Z"},
		{ID: "b", TranscribedText: "Caesar salad", StaffName: "Bob", Timestamp: "2026-08-28T11:00:00Z"},
		{ID: "c", TranscribedText: "Iced coffee", StaffName: "PIZZA-PETE", Timestamp: "2026-08-28T12:00:00Z"},
	}
	for _, o := range seed {
		if _, err := s.Add(ctx, o); err != nil {
			t.Fatalf("Add %s: %v", o.ID, err)
		}
	}

	got, err := s.Search(ctx, "pizza")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	// 按 timestamp 倒序
	if got[0].ID != "c" || got[1].ID != "a" {
		t.Fatalf("expected order [c a], got [%s %s]", got[0].ID, got[1].ID)
	}

	all, err := s.Search(ctx, "")
	if err != nil {
		t.Fatalf("Search empty: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected empty query to match everything, got %d", len(all))
	}
	if all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("expected descending timestamp order, got %s..%s", all[0].ID, all[2].ID)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Add(ctx, &Order{ID: "x", StaffName: "Alice"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Delete(ctx, "x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetByID(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "x"); err != nil {
		t.Fatalf("expected delete on missing id to succeed, got %v", err)
	}
}

func TestCloseAndReopenRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Add(ctx, &Order{ID: "o1", StaffName: "Alice"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	closed, err := s.CloseOrder(ctx, "o1")
	if err != nil {
		t.Fatalf("CloseOrder: %v", err)
	}
	if closed.Status != StatusClosed {
		t.Fatalf("expected closed, got %s", closed.Status)
	}

	reopened, err := s.ReopenOrder(ctx, "o1")
	if err != nil {
		t.Fatalf("ReopenOrder: %v", err)
	}
	if reopened.Status != StatusOpen {
		t.Fatalf("expected open after reopen, got %s", reopened.Status)
	}

	got, err := s.GetByID(ctx, "o1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusOpen {
		t.Fatalf("expected persisted status open, got %s", got.Status)
	}

	if _, err := s.CloseOrder(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendItemsKeepsExistingTextFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Add(ctx, &Order{ID: "o1", TranscribedText: "A", StaffName: "Alice"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.AppendItems(ctx, "o1", "X")
	if err != nil {
		t.Fatalf("AppendItems: %v", err)
	}
	ia := strings.Index(got.TranscribedText, "A")
	ix := strings.Index(got.TranscribedText, "X")
	if ia < 0 || ix < 0 || ia > ix {
		t.Fatalf("expected A before X, got %q", got.TranscribedText)
	}

	stored, err := s.GetByID(ctx, "o1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.TranscribedText != got.TranscribedText {
		t.Fatalf("append not persisted: %q", stored.TranscribedText)
	}

	if _, err := s.AppendItems(ctx, "missing", "X"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.AppendItems(ctx, "o1", "  "); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder for blank text, got %v", err)
	}
}
