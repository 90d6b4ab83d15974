package notify

import (
	"strings"

	"github.com/mssola/useragent"
)

// DeviceSummary extracts a human-readable "Browser on OS" line from a
// User-Agent string for the operator notification. The raw User-Agent is
// never forwarded; only this summary leaves the request.
func DeviceSummary(userAgentString string) string {
	if userAgentString == "" {
		return ""
	}

	ua := useragent.New(userAgentString)

	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}

	return strings.TrimSpace(browser + " on " + os)
}
