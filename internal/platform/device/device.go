// Package device summarizes client User-Agent strings for audit events.
package device

import "github.com/mssola/useragent"

// Summarize renders a User-Agent as "Browser on OS" for audit trails.
// Empty or unparseable agents summarize as "unknown".
func Summarize(rawUA string) string {
	if rawUA == "" {
		return "unknown"
	}

	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OS()

	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	}
	return "unknown"
}
