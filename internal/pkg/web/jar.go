package web

import (
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// pathPriorityJar is a cookie jar that, when several cookies share a name,
// sends only the one with the most specific (longest) matching path.
// The portal issues session cookies with overlapping paths and only the
// most specific one is valid.
type pathPriorityJar struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]map[string]jarEntry // jar key -> name;domain;path -> cookie
}

// jarEntry is a stored cookie with its resolved scope. Host-only cookies
// match their exact host, domain cookies the domain and its subdomains.
type jarEntry struct {
	cookie   http.Cookie
	domain   string
	hostOnly bool
}

func (e jarEntry) matchesHost(host string) bool {
	if e.hostOnly {
		return host == e.domain
	}
	return domainMatch(host, e.domain)
}

func newPathPriorityJar(now func() time.Time) *pathPriorityJar {
	return &pathPriorityJar{
		now:     now,
		entries: make(map[string]map[string]jarEntry),
	}
}

// jarKey groups hosts by registrable domain, IPs and single labels by host.
func jarKey(host string) string {
	host = strings.ToLower(host)
	if net.ParseIP(host) != nil {
		return host
	}
	key, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return key
}

func domainMatch(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// cookieDomain resolves the scope of a cookie set by host. A Domain attribute
// must cover host and may not be a public suffix or an IP.
func cookieDomain(host, attr string) (domain string, hostOnly bool, ok bool) {
	attr = strings.ToLower(strings.TrimPrefix(attr, "."))
	if attr == "" {
		return host, true, true
	}
	if net.ParseIP(host) != nil {
		return host, true, attr == host
	}
	if !domainMatch(host, attr) {
		return "", false, false
	}
	if ps, _ := publicsuffix.PublicSuffix(attr); ps == attr {
		// a public suffix is only acceptable as the host itself.
		return host, true, attr == host
	}
	return attr, false, true
}

func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func pathMatch(requestPath, cookiePath string) bool {
	if requestPath == "" {
		requestPath = "/"
	}
	if requestPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || requestPath[len(cookiePath)] == '/'
}

func (j *pathPriorityJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	host := strings.ToLower(u.Hostname())
	key := jarKey(host)
	bucket := j.entries[key]
	if bucket == nil {
		bucket = make(map[string]jarEntry)
		j.entries[key] = bucket
	}
	now := j.now()
	for _, c := range cookies {
		domain, hostOnly, ok := cookieDomain(host, c.Domain)
		if !ok {
			continue
		}
		cookie := *c
		if cookie.Path == "" || cookie.Path[0] != '/' {
			cookie.Path = defaultPath(u.Path)
		}
		id := cookie.Name + ";" + domain + ";" + cookie.Path
		if cookie.MaxAge < 0 || (!cookie.Expires.IsZero() && !cookie.Expires.After(now)) {
			delete(bucket, id)
			continue
		}
		if cookie.MaxAge > 0 {
			cookie.Expires = now.Add(time.Duration(cookie.MaxAge) * time.Second)
		}
		bucket[id] = jarEntry{cookie: cookie, domain: domain, hostOnly: hostOnly}
	}
}

func (j *pathPriorityJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	host := strings.ToLower(u.Hostname())
	bucket := j.entries[jarKey(host)]
	now := j.now()
	best := map[string]http.Cookie{}
	for id, e := range bucket {
		c := e.cookie
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			delete(bucket, id)
			continue
		}
		if !e.matchesHost(host) {
			continue
		}
		if c.Secure && u.Scheme != "https" {
			continue
		}
		if !pathMatch(u.Path, c.Path) {
			continue
		}
		if cur, ok := best[c.Name]; !ok || len(c.Path) > len(cur.Path) {
			best[c.Name] = c
		}
	}
	out := make([]*http.Cookie, 0, len(best))
	for _, c := range best {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	slices.SortFunc(out, func(a, b *http.Cookie) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Clear drops every cookie stored for host's domain.
func (j *pathPriorityJar) Clear(host string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, jarKey(host))
}
