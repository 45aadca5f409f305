package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies why an operation was rejected. The kind, not a bare
// boolean, is the contract surfaced to callers so screens can show an
// actionable message.
type Kind string

const (
	KindAccessDenied         Kind = "access_denied"
	KindRestrictionDenied    Kind = "restriction_denied"
	KindQuotaExceeded        Kind = "quota_exceeded"
	KindSlotFull             Kind = "slot_full"
	KindAttractionPaused     Kind = "attraction_paused"
	KindInvalidGroupSize     Kind = "invalid_group_size"
	KindDuplicateBooking     Kind = "duplicate_booking"
	KindAuthenticationFailed Kind = "authentication_failed"
	KindNotCalledYet         Kind = "not_called_yet"
	KindNotFound             Kind = "not_found"
	KindStoreUnavailable     Kind = "store_unavailable"
)

// Restriction reasons carried in the Rejection detail. The three gates are
// independent and all must pass.
const (
	ReasonBlacklisted    = "blacklisted"
	ReasonNotWhitelisted = "not_whitelisted"
	ReasonStaffOnly      = "staff_only"
)

// Rejection is a rule violation detected before (or, for conditional
// updates, during) a mutation.
type Rejection struct {
	Kind   Kind
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Detail)
}

func Reject(kind Kind, detail string) *Rejection {
	return &Rejection{Kind: kind, Detail: detail}
}

// KindOf extracts the rejection kind from an error chain. Transport and
// database failures come back as StoreUnavailable.
func KindOf(err error) Kind {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Kind
	}
	return KindStoreUnavailable
}

// HTTPStatus maps a rejection kind to the status handlers reply with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAccessDenied, KindRestrictionDenied:
		return http.StatusForbidden
	case KindAuthenticationFailed:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindQuotaExceeded, KindSlotFull, KindDuplicateBooking:
		return http.StatusConflict
	case KindAttractionPaused, KindInvalidGroupSize, KindNotCalledYet:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
