// Package fault classifies errors crossing component boundaries into a small
// set of kinds (validation, permission, not found, timeout, connection,
// unavailable). Retry policies and the HTTP error mapper dispatch on the kind
// instead of inspecting concrete dependency errors.
//
// Wrap an error at the point where its meaning is known:
//
//	if resp.StatusCode == http.StatusTooManyRequests {
//		return fault.Unavailable(err)
//	}
//
// and dispatch on it where the policy lives:
//
//	switch fault.KindOf(err) {
//	case fault.KindValidation, fault.KindPermission, fault.KindNotFound:
//		// permanent, do not retry
//	}
package fault
