package stream

import (
	"net/url"
	"slices"
	"strings"
)

// SocketURI builds "{baseURL}/{public|private}/?stream=a&stream=b...".
// Topics are sorted lexicographically; the input slice is left untouched.
func SocketURI(baseURL string, mode AuthMode, topics []string) string {
	sorted := slices.Clone(topics)
	slices.Sort(sorted)

	params := make([]string, 0, len(sorted))
	for _, topic := range sorted {
		params = append(params, "stream="+url.QueryEscape(topic))
	}

	return strings.TrimRight(baseURL, "/") + "/" + string(mode) + "/?" + strings.Join(params, "&")
}
