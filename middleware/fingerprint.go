package middleware

import (
	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/pkg/fingerprint"
)

type fingerprintContextKey struct{}

// FingerprintConfig configures the device fingerprint middleware.
type FingerprintConfig struct {
	// Skip defines a function to skip middleware execution for specific requests.
	Skip func(ctx handler.Context) bool

	// Options are passed through to fingerprint generation. Binding to the
	// client IP makes the fingerprint stricter but breaks mobile clients
	// that hop networks.
	Options []fingerprint.Option
}

// Fingerprint computes a stable device fingerprint from request headers and
// stores it in context. Sessions persist it for hijack detection.
func Fingerprint[C handler.Context]() handler.Middleware[C] {
	return FingerprintWithConfig[C](FingerprintConfig{})
}

// FingerprintWithConfig creates a fingerprint middleware with custom
// configuration.
func FingerprintWithConfig[C handler.Context](cfg FingerprintConfig) handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			ctx.SetValue(fingerprintContextKey{}, fingerprint.Generate(ctx.Request(), cfg.Options...))
			return next(ctx)
		}
	}
}

// GetFingerprint retrieves the device fingerprint stored by Fingerprint.
func GetFingerprint(ctx handler.Context) (string, bool) {
	fp, ok := ctx.Value(fingerprintContextKey{}).(string)
	return fp, ok
}
