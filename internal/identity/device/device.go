// Package device derives a coarse device summary from the User-Agent header.
// The summary is attached to login audit events for after-the-fact review; it
// never gates any business decision.
package device

import (
	"fmt"

	"github.com/mssola/useragent"
)

// Summarize renders "Browser major-version on OS" from a raw User-Agent
// string, or "unknown" when the header is absent or unparseable.
func Summarize(userAgentString string) string {
	if userAgentString == "" {
		return "unknown"
	}

	ua := useragent.New(userAgentString)
	browser, version := ua.Browser()
	if browser == "" {
		return "unknown"
	}

	os := ua.OS()
	if os == "" {
		os = "unknown OS"
	}
	if version == "" {
		return fmt.Sprintf("%s on %s", browser, os)
	}
	return fmt.Sprintf("%s %s on %s", browser, version, os)
}
