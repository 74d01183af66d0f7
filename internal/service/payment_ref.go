package service

import (
	"fmt"
	"strconv"
	"strings"
)

// RefKind identifies which local table a merchant reference points at.
type RefKind string

const (
	RefBooking   RefKind = "booking"
	RefTeori     RefKind = "teori"
	RefHandledar RefKind = "handledar"
)

// FormatMerchantRef builds the `<type>_<id>` token embedded in gateway
// orders so callbacks can find the local row.
func FormatMerchantRef(kind RefKind, id int) string {
	return fmt.Sprintf("%s_%d", kind, id)
}

// ParseMerchantRef splits a merchant reference back into its kind and id.
func ParseMerchantRef(ref string) (RefKind, int, error) {
	idx := strings.LastIndex(ref, "_")
	if idx <= 0 || idx == len(ref)-1 {
		return "", 0, fmt.Errorf("malformed merchant reference %q", ref)
	}
	kind := RefKind(ref[:idx])
	switch kind {
	case RefBooking, RefTeori, RefHandledar:
	default:
		return "", 0, fmt.Errorf("unknown merchant reference type %q", ref[:idx])
	}
	id, err := strconv.Atoi(ref[idx+1:])
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("malformed merchant reference id %q", ref)
	}
	return kind, id, nil
}
