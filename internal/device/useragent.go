// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

// Package device derives coarse device attributes from a client's declared
// user-agent string. Matching is substring-based with a fixed priority
// order; the first match wins. This is intentionally not a full user-agent
// parser - the session record only needs platform, browser, and a mobile
// flag for the analytics surface.
package device

import "strings"

// Info holds the device attributes derived from a user-agent string.
type Info struct {
	Platform string `json:"platform"`
	Browser  string `json:"browser"`
	IsMobile bool   `json:"is_mobile"`
}

// Unknown is the fallback value when no substring matches.
const Unknown = "Unknown"

// platformMatchers is checked in order; first match wins. Android must be
// checked before Linux since Android user agents contain both tokens.
var platformMatchers = []struct {
	token    string
	platform string
}{
	{"Android", "Android"},
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"Windows", "Windows"},
	{"Macintosh", "macOS"},
	{"Linux", "Linux"},
}

// browserMatchers is checked in order; first match wins. Edge and Opera
// embed "Chrome" in their user agents, and Chrome embeds "Safari", so the
// more specific tokens come first.
var browserMatchers = []struct {
	token   string
	browser string
}{
	{"Edg", "Edge"},
	{"OPR", "Opera"},
	{"Opera", "Opera"},
	{"Chrome", "Chrome"},
	{"Safari", "Safari"},
	{"Firefox", "Firefox"},
}

var mobileTokens = []string{"Android", "iPhone", "iPad", "Mobile"}

// Parse derives device attributes from the given user-agent string.
// An empty string yields Unknown platform and browser with IsMobile false.
func Parse(userAgent string) Info {
	info := Info{Platform: Unknown, Browser: Unknown}

	for _, m := range platformMatchers {
		if strings.Contains(userAgent, m.token) {
			info.Platform = m.platform
			break
		}
	}

	for _, m := range browserMatchers {
		if strings.Contains(userAgent, m.token) {
			info.Browser = m.browser
			break
		}
	}

	for _, token := range mobileTokens {
		if strings.Contains(userAgent, token) {
			info.IsMobile = true
			break
		}
	}

	return info
}
