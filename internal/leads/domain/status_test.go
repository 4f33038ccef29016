package domain

import "testing"

func TestIsValidStatusAcceptsLifecycleStates(t *testing.T) {
	for _, value := range []string{"new", "contacted", "qualified", "converted", "lost"} {
		if !IsValidStatus(value) {
			t.Errorf("expected %q to be a valid status", value)
		}
	}
}

func TestIsValidStatusRejectsUnknownValues(t *testing.T) {
	for _, value := range []string{"", "open", "won", "NEW", "Lost "} {
		if IsValidStatus(value) {
			t.Errorf("expected %q to be rejected", value)
		}
	}
}

func TestDidStatusChange(t *testing.T) {
	cases := []struct {
		name      string
		oldStatus string
		newStatus string
		want      bool
	}{
		{"same status is not a change", "new", "new", false},
		{"empty new status is not a change", "qualified", "", false},
		{"forward transition is a change", "new", "contacted", true},
		{"backward transition still counts", "lost", "new", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DidStatusChange(tc.oldStatus, tc.newStatus); got != tc.want {
				t.Fatalf("DidStatusChange(%q, %q) = %v, want %v", tc.oldStatus, tc.newStatus, got, tc.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	if !StatusConverted.IsTerminal() || !StatusLost.IsTerminal() {
		t.Fatal("converted and lost must be terminal")
	}
	for _, s := range []Status{StatusNew, StatusContacted, StatusQualified} {
		if s.IsTerminal() {
			t.Fatalf("%q must not be terminal", s)
		}
	}
}

func TestTouchesContact(t *testing.T) {
	for _, typ := range []ActivityType{ActivityCall, ActivityEmail, ActivityMeeting} {
		if !typ.TouchesContact() {
			t.Errorf("expected %q to touch contact", typ)
		}
	}
	for _, typ := range []ActivityType{ActivityNote, ActivityTask} {
		if typ.TouchesContact() {
			t.Errorf("expected %q not to touch contact", typ)
		}
	}
}
