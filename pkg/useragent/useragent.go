// Package useragent classifies User-Agent strings into device types for
// session analytics and bot filtering.
//
// Detection is keyword-based with a fixed precedence: bots are identified
// first, then tablets, then mobiles, then desktops. Tablet keywords are
// checked before mobile ones because most tablet agents also contain
// "Mobile". Anything unmatched is reported as unknown rather than failing
// the request.
package useragent

import (
	"errors"
	"strings"
)

// ErrEmptyUserAgent is returned by Parse for an empty User-Agent header.
var ErrEmptyUserAgent = errors.New("useragent: empty user agent")

// DeviceType is the coarse device class extracted from a User-Agent.
type DeviceType string

const (
	DeviceTypeUnknown DeviceType = "unknown"
	DeviceTypeDesktop DeviceType = "desktop"
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeTablet  DeviceType = "tablet"
	DeviceTypeBot     DeviceType = "bot"
)

var (
	botKeywords = []string{
		"bot", "crawler", "spider", "slurp", "curl/", "wget/",
		"facebookexternalhit", "whatsapp", "telegrambot", "headless",
	}
	tabletKeywords = []string{"ipad", "tablet", "kindle", "silk", "playbook"}
	mobileKeywords = []string{"mobile", "iphone", "ipod", "android", "blackberry", "windows phone", "opera mini"}
	desktopKeywords = []string{"windows", "macintosh", "x11", "linux", "cros"}
)

// UserAgent holds the parsed classification of a single User-Agent string.
type UserAgent struct {
	raw    string
	device DeviceType
}

// Parse classifies the given User-Agent string.
// An empty string returns ErrEmptyUserAgent along with a usable zero-ish
// UserAgent whose device type is unknown, so callers can keep going.
func Parse(raw string) (UserAgent, error) {
	if strings.TrimSpace(raw) == "" {
		return UserAgent{raw: raw, device: DeviceTypeUnknown}, ErrEmptyUserAgent
	}
	return UserAgent{raw: raw, device: classify(strings.ToLower(raw))}, nil
}

func classify(ua string) DeviceType {
	for _, kw := range botKeywords {
		if strings.Contains(ua, kw) {
			return DeviceTypeBot
		}
	}
	for _, kw := range tabletKeywords {
		if strings.Contains(ua, kw) {
			return DeviceTypeTablet
		}
	}
	for _, kw := range mobileKeywords {
		if strings.Contains(ua, kw) {
			return DeviceTypeMobile
		}
	}
	for _, kw := range desktopKeywords {
		if strings.Contains(ua, kw) {
			return DeviceTypeDesktop
		}
	}
	return DeviceTypeUnknown
}

// String returns the original User-Agent string.
func (ua UserAgent) String() string { return ua.raw }

// DeviceType returns the detected device class.
func (ua UserAgent) DeviceType() DeviceType { return ua.device }

// IsMobile reports whether the agent is a phone-class device.
func (ua UserAgent) IsMobile() bool { return ua.device == DeviceTypeMobile }

// IsTablet reports whether the agent is a tablet-class device.
func (ua UserAgent) IsTablet() bool { return ua.device == DeviceTypeTablet }

// IsBot reports whether the agent looks like an automated client.
func (ua UserAgent) IsBot() bool { return ua.device == DeviceTypeBot }
