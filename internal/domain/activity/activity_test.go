package activity_test

import (
	"testing"

	"memberdesk/internal/domain/activity"
)

// TestNewEntry tests actor attribution and stored field names.
func TestNewEntry(t *testing.T) {
	e := activity.NewEntry(activity.ActionMemberAdded, "Added member: Ana", "u1", "admin@club.nz")
	f := e.Fields()
	want := map[string]any{
		"action":    "member_added",
		"details":   "Added member: Ana",
		"userId":    "u1",
		"userEmail": "admin@club.nz",
	}
	for k, v := range want {
		if f[k] != v {
			t.Errorf("field %s = %v, want %v", k, f[k], v)
		}
	}
	if _, ok := f["timestamp"]; ok {
		t.Error("timestamp must be left to the store")
	}
	if !e.Timestamp.IsZero() {
		t.Error("expected zero timestamp before persistence")
	}
}
