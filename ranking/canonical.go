package ranking

import (
	"net"
	"net/url"
	"path"
	"sort"
	"strings"
)

// trackingParams are dropped from canonical URLs in addition to every utm_* key
var trackingParams = map[string]bool{
	"fbclid": true, "gclid": true, "msclkid": true, "mc_cid": true, "mc_eid": true,
	"igshid": true, "yclid": true, "_hsenc": true, "_hsmi": true, "ref_src": true,
}

// CanonicalURL normalizes raw so that trivially different links to the same
// page compare equal. ok is false when raw is not an absolute http(s) URL.
func CanonicalURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	u.Scheme = "https"

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host = net.JoinHostPort(host, port)
	}
	u.Host = host
	u.User = nil

	// Remove fragment
	u.Fragment = ""
	u.RawFragment = ""

	if u.Path != "" {
		cleaned := path.Clean(u.Path)
		if cleaned == "/" || cleaned == "." {
			cleaned = ""
		}
		u.Path = strings.TrimSuffix(cleaned, "/")
		u.RawPath = ""
	}

	// Remove tracking parameters, then sort what is left
	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
			q.Del(k)
		}
	}
	u.RawQuery = encodeSorted(q)
	u.ForceQuery = false

	return u.String(), true
}

// encodeSorted is url.Values.Encode with the values of each key sorted too
func encodeSorted(q url.Values) string {
	for k := range q {
		sort.Strings(q[k])
	}
	return q.Encode()
}
