package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestClassifyEvent(t *testing.T) {
	cases := []struct {
		eventType string
		deleted   bool
		want      EventKind
	}{
		{"invoice_created", false, EventUpsert},
		{"invoice_updated", false, EventUpsert},
		{"invoice_deleted", false, EventVoid},
		{"INVOICE_DELETED", false, EventVoid},
		{"delete", false, EventVoid},
		{"invoice_updated", true, EventVoid},
		{"", false, EventIgnore},
		{"something_unrecognized", false, EventIgnore},
	}
	for _, c := range cases {
		if got := ClassifyEvent(c.eventType, c.deleted); got != c.want {
			t.Errorf("ClassifyEvent(%q, %v) = %v, want %v", c.eventType, c.deleted, got, c.want)
		}
	}
}

func TestStatusAfterPayment(t *testing.T) {
	if got := statusAfterPayment(StatusUnpaid, decimal.Zero); got != StatusPaid {
		t.Errorf("zero balance should be paid, got %s", got)
	}
	if got := statusAfterPayment(StatusPartiallyPaid, decimal.Zero); got != StatusPaid {
		t.Errorf("zero balance should be paid, got %s", got)
	}
	// A partial payment leaves the prior status alone: the next remote
	// reconciliation owns any intermediate state change.
	if got := statusAfterPayment(StatusUnpaid, decimal.NewFromInt(150)); got != StatusUnpaid {
		t.Errorf("partial payment should keep unpaid, got %s", got)
	}
	if got := statusAfterPayment(StatusOverdue, decimal.NewFromInt(10)); got != StatusOverdue {
		t.Errorf("partial payment should keep overdue, got %s", got)
	}
}

func TestClampBalance(t *testing.T) {
	total := decimal.NewFromInt(100)

	if got := clampBalance(decimal.NewFromInt(-5), total); !got.IsZero() {
		t.Errorf("negative balance should clamp to 0, got %s", got)
	}
	if got := clampBalance(decimal.NewFromInt(150), total); !got.Equal(total) {
		t.Errorf("balance above total should clamp to total, got %s", got)
	}
	mid := decimal.NewFromInt(40)
	if got := clampBalance(mid, total); !got.Equal(mid) {
		t.Errorf("in-range balance should be untouched, got %s", got)
	}
}

func TestCanApplyPayment(t *testing.T) {
	payable := []InvoiceStatus{StatusUnpaid, StatusPartiallyPaid, StatusSent, StatusViewed, StatusOverdue}
	for _, s := range payable {
		if !s.CanApplyPayment() {
			t.Errorf("status %s should accept payments", s)
		}
	}
	for _, s := range []InvoiceStatus{StatusPaid, StatusVoid, StatusDraft} {
		if s.CanApplyPayment() {
			t.Errorf("status %s should not accept payments", s)
		}
	}
}

func TestNormalizeRemoteStatus(t *testing.T) {
	if got := normalizeRemoteStatus("partially_paid"); got != StatusPartiallyPaid {
		t.Errorf("got %s", got)
	}
	if got := normalizeRemoteStatus("not_a_status"); got != StatusUnpaid {
		t.Errorf("unknown status should fall back to unpaid, got %s", got)
	}
	if got := normalizeRemoteStatus(""); got != StatusUnpaid {
		t.Errorf("empty status should fall back to unpaid, got %s", got)
	}
}
