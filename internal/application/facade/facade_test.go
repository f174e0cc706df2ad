package facade_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"memberdesk/internal/adapters/storage"
	docStore "memberdesk/internal/adapters/storage/document"
	"memberdesk/internal/application/facade"
	"memberdesk/internal/domain/activity"
	"memberdesk/internal/domain/document"
	"memberdesk/internal/domain/event"
	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/session"
	"memberdesk/internal/domain/transaction"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// stubIdentity returns a fixed caller.
type stubIdentity struct{ user *session.User }

func (s stubIdentity) CurrentUser() *session.User { return s.user }

// failingStore fails selected operations on one collection.
type failingStore struct {
	docStore.Store
	collection string
	failAdd    bool
	failRead   bool
}

var errInjected = errors.New("injected store failure")

func (f *failingStore) Add(ctx context.Context, collection string, fields document.Fields) (string, error) {
	if f.failAdd && collection == f.collection {
		return "", errInjected
	}
	return f.Store.Add(ctx, collection, fields)
}

func (f *failingStore) Query(ctx context.Context, q document.Query) ([]document.Document, error) {
	if f.failRead && q.Collection == f.collection {
		return nil, errInjected
	}
	return f.Store.Query(ctx, q)
}

func (f *failingStore) Count(ctx context.Context, q document.Query) (int, error) {
	if f.failRead && q.Collection == f.collection {
		return 0, errInjected
	}
	return f.Store.Count(ctx, q)
}

func newTestStore(t *testing.T) *docStore.SQLiteStore {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "facade.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return docStore.NewSQLiteStore(db)
}

func newFacade(store docStore.Store) *facade.Facade {
	return facade.New(facade.Deps{
		Store:    store,
		Identity: stubIdentity{user: &session.User{UID: "admin-1", Email: "admin@club.org.nz"}},
		Now:      func() time.Time { return fixedNow },
	})
}

// TestDeleteMember_SoftDelete tests that deleted members stay readable but drop out of active reads.
func TestDeleteMember_SoftDelete(t *testing.T) {
	f := newFacade(newTestStore(t))
	ctx := context.Background()

	keepID, err := f.AddMember(ctx, member.Input{Name: "Aroha"})
	if err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
	goneID, err := f.AddMember(ctx, member.Input{Name: "Tama", Email: "tama@club.org.nz"})
	if err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}

	if err := f.DeleteMember(ctx, goneID); err != nil {
		t.Fatalf("DeleteMember() failed: %v", err)
	}

	all, err := f.GetMembers(ctx, facade.MemberFilter{})
	if err != nil {
		t.Fatalf("GetMembers() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 members in unfiltered read, got %d", len(all))
	}
	if all[0].ID != goneID {
		t.Errorf("expected newest first, got %s", all[0].ID)
	}

	active, err := f.GetMembers(ctx, facade.MemberFilter{Status: member.StatusActive})
	if err != nil {
		t.Fatalf("GetMembers() failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != keepID {
		t.Errorf("expected only %s active, got %+v", keepID, active)
	}

	gone, err := f.GetMember(ctx, goneID)
	if err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	if gone.Status != member.StatusInactive || !gone.IsDeleted() {
		t.Errorf("expected inactive with deletedAt, got %+v", gone)
	}
	if gone.Name != "Tama" {
		t.Errorf("soft delete should keep fields, got %+v", gone)
	}
}

// TestUpdateMember tests partial updates and missing records.
func TestUpdateMember(t *testing.T) {
	f := newFacade(newTestStore(t))
	ctx := context.Background()

	id, err := f.AddMember(ctx, member.Input{Name: "Mere", Phone: "021 000"})
	if err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
	if err := f.UpdateMember(ctx, id, member.Input{Notes: "committee"}); err != nil {
		t.Fatalf("UpdateMember() failed: %v", err)
	}
	m, err := f.GetMember(ctx, id)
	if err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	if m.Name != "Mere" || m.Phone != "021 000" || m.Notes != "committee" {
		t.Errorf("unexpected member after update: %+v", m)
	}
	if err := f.UpdateMember(ctx, "missing", member.Input{Notes: "x"}); !errors.Is(err, document.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestMember_ExtraFields tests that free-form fields survive add, read and update.
func TestMember_ExtraFields(t *testing.T) {
	f := newFacade(newTestStore(t))
	ctx := context.Background()

	id, err := f.AddMember(ctx, member.Input{
		Name:  "Tama",
		Extra: map[string]any{"dateOfBirth": "2001-04-02", "grade": 3.0},
	})
	if err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
	m, err := f.GetMember(ctx, id)
	if err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	if m.Extra["dateOfBirth"] != "2001-04-02" || m.Extra["grade"] != 3.0 {
		t.Errorf("Extra = %v, want dateOfBirth and grade kept", m.Extra)
	}
	if m.Status != member.StatusActive {
		t.Errorf("Status = %q, want active", m.Status)
	}

	if err := f.UpdateMember(ctx, id, member.Input{Extra: map[string]any{"grade": 4.0}}); err != nil {
		t.Fatalf("UpdateMember() failed: %v", err)
	}
	m, err = f.GetMember(ctx, id)
	if err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	if m.Extra["grade"] != 4.0 || m.Extra["dateOfBirth"] != "2001-04-02" {
		t.Errorf("Extra after update = %v", m.Extra)
	}
}

// TestUpdateMember_Reactivate tests that status active undoes a soft delete.
func TestUpdateMember_Reactivate(t *testing.T) {
	f := newFacade(newTestStore(t))
	ctx := context.Background()

	id, err := f.AddMember(ctx, member.Input{Name: "Tama"})
	if err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
	if err := f.DeleteMember(ctx, id); err != nil {
		t.Fatalf("DeleteMember() failed: %v", err)
	}
	if err := f.UpdateMember(ctx, id, member.Input{Status: member.StatusActive}); err != nil {
		t.Fatalf("UpdateMember() failed: %v", err)
	}

	m, err := f.GetMember(ctx, id)
	if err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	if !m.IsActive() || m.IsDeleted() {
		t.Errorf("expected active without deletedAt, got %+v", m)
	}
	active, err := f.GetMembers(ctx, facade.MemberFilter{Status: member.StatusActive})
	if err != nil {
		t.Fatalf("GetMembers() failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != id {
		t.Errorf("expected %s among active members, got %+v", id, active)
	}

	if err := f.UpdateMember(ctx, id, member.Input{Status: "archived"}); !errors.Is(err, member.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

// TestUpdateMember_Clear tests that named fields are removed.
func TestUpdateMember_Clear(t *testing.T) {
	f := newFacade(newTestStore(t))
	ctx := context.Background()

	id, err := f.AddMember(ctx, member.Input{Name: "Mere", Phone: "021 000", Extra: map[string]any{"locker": "12"}})
	if err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
	if err := f.UpdateMember(ctx, id, member.Input{Clear: []string{"phone", "locker"}}); err != nil {
		t.Fatalf("UpdateMember() failed: %v", err)
	}
	m, err := f.GetMember(ctx, id)
	if err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	if m.Phone != "" || m.Extra["locker"] != nil {
		t.Errorf("expected phone and locker cleared, got %+v", m)
	}
	if m.Name != "Mere" {
		t.Errorf("Name = %q, want Mere", m.Name)
	}

	if err := f.UpdateMember(ctx, id, member.Input{Clear: []string{"createdAt"}}); !errors.Is(err, member.ErrServerField) {
		t.Errorf("expected ErrServerField, got %v", err)
	}
}

func seedTransactions(t *testing.T, f *facade.Facade) {
	t.Helper()
	inputs := []transaction.Input{
		{Type: transaction.TypeIncome, Amount: 100, Date: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), Category: "subs"},
		{Type: transaction.TypeExpense, Amount: 30, Date: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC), Category: "hall"},
		{Type: transaction.TypeIncome, Amount: 20, Date: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)},
		{Type: transaction.TypeIncome, Amount: 500, Date: time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)},
	}
	for _, in := range inputs {
		if _, err := f.AddTransaction(context.Background(), in); err != nil {
			t.Fatalf("AddTransaction() failed: %v", err)
		}
	}
}

// TestGetFinancialSummary tests the current-month aggregate.
func TestGetFinancialSummary(t *testing.T) {
	f := newFacade(newTestStore(t))
	seedTransactions(t, f)

	got, err := f.GetFinancialSummary(context.Background())
	if err != nil {
		t.Fatalf("GetFinancialSummary() failed: %v", err)
	}
	want := transaction.Summary{TotalIncome: 120, TotalExpenses: 30, Balance: 90, TransactionsCount: 3}
	if got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
}

// TestGetTransactions tests ordering, attribution and the both-bounds rule.
func TestGetTransactions(t *testing.T) {
	f := newFacade(newTestStore(t))
	seedTransactions(t, f)
	ctx := context.Background()

	all, err := f.GetTransactions(ctx, time.Time{}, fixedNow)
	if err != nil {
		t.Fatalf("GetTransactions() failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected range ignored with one bound, got %d", len(all))
	}
	if all[0].Amount != 20 || all[3].Amount != 500 {
		t.Errorf("expected newest date first, got %+v", all)
	}
	if all[0].RecordedBy != "admin-1" {
		t.Errorf("RecordedBy = %q", all[0].RecordedBy)
	}
}

// TestAddTransaction_RequiresCaller tests attribution is mandatory.
func TestAddTransaction_RequiresCaller(t *testing.T) {
	f := facade.New(facade.Deps{Store: newTestStore(t), Identity: stubIdentity{}})
	_, err := f.AddTransaction(context.Background(), transaction.Input{
		Type: transaction.TypeIncome, Amount: 1, Date: fixedNow,
	})
	if !errors.Is(err, facade.ErrNotSignedIn) {
		t.Errorf("expected ErrNotSignedIn, got %v", err)
	}
}

// TestGetUpcomingEvents tests past events are excluded and order is soonest first.
func TestGetUpcomingEvents(t *testing.T) {
	f := newFacade(newTestStore(t))
	ctx := context.Background()

	for _, in := range []event.Input{
		{Title: "AGM", Date: fixedNow.Add(72 * time.Hour)},
		{Title: "Past picnic", Date: fixedNow.Add(-24 * time.Hour)},
		{Title: "Working bee", Date: fixedNow.Add(24 * time.Hour)},
	} {
		if _, err := f.AddEvent(ctx, in); err != nil {
			t.Fatalf("AddEvent() failed: %v", err)
		}
	}

	got, err := f.GetUpcomingEvents(ctx, 0)
	if err != nil {
		t.Fatalf("GetUpcomingEvents() failed: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Working bee" || got[1].Title != "AGM" {
		t.Errorf("unexpected upcoming events: %+v", got)
	}
	if got[0].CreatedBy != "admin-1" || got[0].Attendees == nil || len(got[0].Attendees) != 0 {
		t.Errorf("expected empty attendees and creator, got %+v", got[0])
	}
}

// TestRegisterAttendee tests attendee registration and duplicates.
func TestRegisterAttendee(t *testing.T) {
	f := newFacade(newTestStore(t))
	ctx := context.Background()

	id, err := f.AddEvent(ctx, event.Input{Title: "AGM", Date: fixedNow.Add(time.Hour)})
	if err != nil {
		t.Fatalf("AddEvent() failed: %v", err)
	}
	if err := f.RegisterAttendee(ctx, id, "member-7"); err != nil {
		t.Fatalf("RegisterAttendee() failed: %v", err)
	}
	if err := f.RegisterAttendee(ctx, id, "member-7"); !errors.Is(err, event.ErrAlreadyAttending) {
		t.Errorf("expected ErrAlreadyAttending, got %v", err)
	}
	ev, err := f.GetEvent(ctx, id)
	if err != nil {
		t.Fatalf("GetEvent() failed: %v", err)
	}
	if len(ev.Attendees) != 1 || ev.Attendees[0] != "member-7" {
		t.Errorf("attendees = %v", ev.Attendees)
	}
}

// TestLogActivity_FailureDoesNotPropagate tests that audit failures never reach the caller.
func TestLogActivity_FailureDoesNotPropagate(t *testing.T) {
	base := newTestStore(t)
	f := newFacade(&failingStore{Store: base, collection: activity.Collection, failAdd: true})
	ctx := context.Background()

	id, err := f.AddMember(ctx, member.Input{Name: "Aroha"})
	if err != nil {
		t.Fatalf("AddMember() should succeed despite activity failure: %v", err)
	}
	if _, err := f.GetMember(ctx, id); err != nil {
		t.Errorf("member should be stored: %v", err)
	}
	n, err := base.Count(ctx, document.Query{Collection: activity.Collection})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no activity entries, got %d", n)
	}
}

// TestLogActivity_Entries tests that writes append attributed entries newest first.
func TestLogActivity_Entries(t *testing.T) {
	f := newFacade(newTestStore(t))
	ctx := context.Background()

	if _, err := f.AddMember(ctx, member.Input{Name: "Aroha"}); err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
	if _, err := f.AddEvent(ctx, event.Input{Title: "AGM", Date: fixedNow}); err != nil {
		t.Fatalf("AddEvent() failed: %v", err)
	}

	entries, err := f.GetRecentActivities(ctx, 0)
	if err != nil {
		t.Fatalf("GetRecentActivities() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != activity.ActionEventCreated || entries[0].Details != "Created event: AGM" {
		t.Errorf("unexpected newest entry: %+v", entries[0])
	}
	if entries[1].Details != "Added member: Aroha" || entries[1].UserEmail != "admin@club.org.nz" {
		t.Errorf("unexpected oldest entry: %+v", entries[1])
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("timestamp should be server-assigned")
	}
}

// TestGetDashboardStats tests the aggregate on success.
func TestGetDashboardStats(t *testing.T) {
	f := newFacade(newTestStore(t))
	ctx := context.Background()
	seedTransactions(t, f)

	id, err := f.AddMember(ctx, member.Input{Name: "Aroha"})
	if err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
	if _, err := f.AddMember(ctx, member.Input{Name: "Tama"}); err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
	if err := f.DeleteMember(ctx, id); err != nil {
		t.Fatalf("DeleteMember() failed: %v", err)
	}
	if _, err := f.AddEvent(ctx, event.Input{Title: "AGM", Date: fixedNow.Add(time.Hour)}); err != nil {
		t.Fatalf("AddEvent() failed: %v", err)
	}

	stats, err := f.GetDashboardStats(ctx)
	if err != nil {
		t.Fatalf("GetDashboardStats() failed: %v", err)
	}
	if stats.MemberCount != 1 {
		t.Errorf("MemberCount = %d, want 1", stats.MemberCount)
	}
	if stats.EventCount != 1 || len(stats.UpcomingEvents) != 1 {
		t.Errorf("EventCount = %d", stats.EventCount)
	}
	if stats.FinancialSummary.Balance != 90 {
		t.Errorf("Balance = %v, want 90", stats.FinancialSummary.Balance)
	}
	if len(stats.RecentActivities) != 5 {
		t.Errorf("expected 5 recent activities, got %d", len(stats.RecentActivities))
	}
}

// TestGetDashboardStats_AnyFailureFailsAll tests that one failing part fails the aggregate.
func TestGetDashboardStats_AnyFailureFailsAll(t *testing.T) {
	for _, collection := range []string{member.Collection, event.Collection, transaction.Collection, activity.Collection} {
		t.Run(collection, func(t *testing.T) {
			f := newFacade(&failingStore{Store: newTestStore(t), collection: collection, failRead: true})
			stats, err := f.GetDashboardStats(context.Background())
			if !errors.Is(err, errInjected) {
				t.Fatalf("expected injected error, got %v", err)
			}
			if stats.MemberCount != 0 || stats.UpcomingEvents != nil || stats.RecentActivities != nil {
				t.Errorf("expected no partial data, got %+v", stats)
			}
		})
	}
}
