package tomato

import "regexp"

// TokenExtractor locates the session token in the body returned by a
// successful login request. Extraction is a text match, never an HTML
// parse: the token sits inside the page's inline scripts and its exact
// surroundings drift between firmware versions.
type TokenExtractor func(body string) (string, bool)

// OutputStripper isolates command stdout from whatever UI chrome the
// console endpoint wraps around it. A body without recognizable markers
// must be returned unchanged so legitimate output is never dropped.
type OutputStripper func(body string) string

var (
	// 'http_id': 'TID4bad0f0eba40bd0c' inside the nvram blob of the page
	// scripts. Double quotes and = assignments appear on some builds.
	httpIDAssignRe = regexp.MustCompile(`['"]?http_id['"]?\s*[:=]\s*['"]([^'"]+)['"]`)
	// older firmware embeds the token in hrefs as a query parameter
	httpIDQueryRe = regexp.MustCompile(`_http_id=([A-Za-z0-9._-]+)`)

	textareaRe = regexp.MustCompile(`(?s)<textarea[^>]*>(.*?)</textarea>`)
	preRe      = regexp.MustCompile(`(?s)<pre[^>]*>(.*?)</pre>`)
)

// DefaultTokenExtractor matches the http_id value wherever the page
// scripts embed it.
func DefaultTokenExtractor(body string) (string, bool) {
	if m := httpIDAssignRe.FindStringSubmatch(body); m != nil {
		return m[1], true
	}
	if m := httpIDQueryRe.FindStringSubmatch(body); m != nil {
		return m[1], true
	}
	return "", false
}

// DefaultOutputStripper unwraps the textarea or pre element shell.cgi
// renders around command output. With nojs=1 most builds return the raw
// stdout, which passes through untouched.
func DefaultOutputStripper(body string) string {
	if m := textareaRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	if m := preRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return body
}
