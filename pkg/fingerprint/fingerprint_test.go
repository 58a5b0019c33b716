package fingerprint_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movedesk/chatbot/pkg/fingerprint"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("stable across identical requests", func(t *testing.T) {
		t.Parallel()

		a := httptest.NewRequest("GET", "/", nil)
		a.Header.Set("User-Agent", "Mozilla/5.0")
		a.Header.Set("Accept-Language", "en-US")

		b := httptest.NewRequest("GET", "/other", nil)
		b.Header.Set("User-Agent", "Mozilla/5.0")
		b.Header.Set("Accept-Language", "en-US")

		assert.Equal(t, fingerprint.Generate(a), fingerprint.Generate(b))
	})

	t.Run("differs across user agents", func(t *testing.T) {
		t.Parallel()

		a := httptest.NewRequest("GET", "/", nil)
		a.Header.Set("User-Agent", "Mozilla/5.0")

		b := httptest.NewRequest("GET", "/", nil)
		b.Header.Set("User-Agent", "curl/8.4.0")

		assert.NotEqual(t, fingerprint.Generate(a), fingerprint.Generate(b))
	})

	t.Run("versioned format", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("GET", "/", nil)
		fp := fingerprint.Generate(r)

		assert.True(t, strings.HasPrefix(fp, "v1:"))
		assert.Len(t, fp, 35)
	})

	t.Run("ip only matters when included", func(t *testing.T) {
		t.Parallel()

		a := httptest.NewRequest("GET", "/", nil)
		a.Header.Set("User-Agent", "Mozilla/5.0")
		a.RemoteAddr = "192.0.2.1:1000"

		b := httptest.NewRequest("GET", "/", nil)
		b.Header.Set("User-Agent", "Mozilla/5.0")
		b.RemoteAddr = "192.0.2.2:1000"

		assert.Equal(t, fingerprint.Generate(a), fingerprint.Generate(b))
		assert.NotEqual(t,
			fingerprint.Generate(a, fingerprint.WithIP()),
			fingerprint.Generate(b, fingerprint.WithIP()),
		)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("matches stored fingerprint", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("User-Agent", "Mozilla/5.0")

		stored := fingerprint.Generate(r)
		require.NoError(t, fingerprint.Validate(r, stored))
	})

	t.Run("detects drift", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("User-Agent", "Mozilla/5.0")
		stored := fingerprint.Generate(r)

		r.Header.Set("User-Agent", "Evil/1.0")
		assert.ErrorIs(t, fingerprint.Validate(r, stored), fingerprint.ErrMismatch)
	})

	t.Run("rejects malformed stored value", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("GET", "/", nil)
		assert.ErrorIs(t, fingerprint.Validate(r, "garbage"), fingerprint.ErrInvalidFingerprint)
		assert.ErrorIs(t, fingerprint.Validate(r, "v2:0123456789abcdef0123456789abcdef"), fingerprint.ErrInvalidFingerprint)
	})
}
