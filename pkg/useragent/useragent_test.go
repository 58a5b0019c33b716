package useragent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movedesk/chatbot/pkg/useragent"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ua   string
		want useragent.DeviceType
	}{
		{
			name: "desktop chrome on windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			want: useragent.DeviceTypeDesktop,
		},
		{
			name: "desktop safari on mac",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Version/17.0 Safari/605.1.15",
			want: useragent.DeviceTypeDesktop,
		},
		{
			name: "iphone",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1",
			want: useragent.DeviceTypeMobile,
		},
		{
			name: "android phone",
			ua:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36",
			want: useragent.DeviceTypeMobile,
		},
		{
			name: "ipad classified as tablet not mobile",
			ua:   "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1",
			want: useragent.DeviceTypeTablet,
		},
		{
			name: "android tablet",
			ua:   "Mozilla/5.0 (Linux; Android 13; SM-X710 Tablet) AppleWebKit/537.36 Safari/537.36",
			want: useragent.DeviceTypeTablet,
		},
		{
			name: "googlebot",
			ua:   "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			want: useragent.DeviceTypeBot,
		},
		{
			name: "curl",
			ua:   "curl/8.4.0",
			want: useragent.DeviceTypeBot,
		},
		{
			name: "unrecognized",
			ua:   "SomethingEntirelyNew/1.0",
			want: useragent.DeviceTypeUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ua, err := useragent.Parse(tc.ua)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ua.DeviceType())
			assert.Equal(t, tc.ua, ua.String())
		})
	}
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	ua, err := useragent.Parse("")
	assert.ErrorIs(t, err, useragent.ErrEmptyUserAgent)
	assert.Equal(t, useragent.DeviceTypeUnknown, ua.DeviceType())
}

func TestConvenienceMethods(t *testing.T) {
	t.Parallel()

	ua, err := useragent.Parse("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148")
	require.NoError(t, err)

	assert.True(t, ua.IsMobile())
	assert.False(t, ua.IsTablet())
	assert.False(t, ua.IsBot())
}
