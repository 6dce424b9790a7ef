package metrics

import (
	"regexp"
	"strings"
)

// status-data.jsx is the blob of JavaScript assignments backing the stock
// status page. It is not JSON: keys are bare, strings single-quoted. The
// collectors below cut out one assignment and mechanically rewrite it
// into JSON rather than evaluating anything.
const statusDataPage = "status-data.jsx"

var jsBareKeyRe = regexp.MustCompile(`([{,\[]\s*)([$_a-zA-Z][$_a-zA-Z0-9]*)\s*:`)

func jsObjectToJSON(js string) string {
	s := strings.Replace(js, "'", `"`, -1)
	return jsBareKeyRe.ReplaceAllString(s, `$1"$2":`)
}
