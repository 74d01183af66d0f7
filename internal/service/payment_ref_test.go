package service

import "testing"

func TestMerchantRefRoundTrip(t *testing.T) {
	cases := []struct {
		kind RefKind
		id   int
	}{
		{RefBooking, 42},
		{RefTeori, 7},
		{RefHandledar, 130},
	}
	for _, c := range cases {
		ref := FormatMerchantRef(c.kind, c.id)
		kind, id, err := ParseMerchantRef(ref)
		if err != nil {
			t.Fatalf("parse %q: %v", ref, err)
		}
		if kind != c.kind || id != c.id {
			t.Fatalf("round trip %q: got %s/%d", ref, kind, id)
		}
	}
}

func TestParseMerchantRefRejectsGarbage(t *testing.T) {
	for _, ref := range []string{"", "booking", "booking_", "_42", "booking_zero", "invoice_42", "booking_-3"} {
		if _, _, err := ParseMerchantRef(ref); err == nil {
			t.Fatalf("expected error for %q", ref)
		}
	}
}
