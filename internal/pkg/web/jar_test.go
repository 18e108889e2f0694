package web

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPathPriorityJar(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	jar := newPathPriorityJar(func() time.Time { return now })
	login, _ := url.Parse("https://mein-senec.de/auth/login")
	jar.SetCookies(login, []*http.Cookie{
		{Name: "JSESSIONID", Value: "root", Path: "/"},
		{Name: "JSESSIONID", Value: "endkunde", Path: "/endkunde"},
		{Name: "JSESSIONID", Value: "api", Path: "/endkunde/api"},
		{Name: "lang", Value: "de", Path: "/", Domain: ".mein-senec.de"},
		{Name: "foreign", Value: "x", Path: "/", Domain: "example.com"},
		{Name: "suffix", Value: "x", Path: "/", Domain: "de"},
		{Name: "gone", Value: "x", Path: "/", MaxAge: -1},
		{Name: "old", Value: "x", Path: "/", Expires: now.Add(-time.Hour)},
	})

	tests := map[string]struct {
		url      string
		expected map[string]string
	}{
		"most specific path wins": {
			url:      "https://mein-senec.de/endkunde/api/status/getstatusoverview.php",
			expected: map[string]string{"JSESSIONID": "api", "lang": "de"},
		},
		"middle path": {
			url:      "https://mein-senec.de/endkunde/index",
			expected: map[string]string{"JSESSIONID": "endkunde", "lang": "de"},
		},
		"prefix is not a path match": {
			url:      "https://mein-senec.de/endkundeX",
			expected: map[string]string{"JSESSIONID": "root", "lang": "de"},
		},
		"subdomain only gets domain cookies": {
			url:      "https://www.mein-senec.de/endkunde/api/status",
			expected: map[string]string{"lang": "de"},
		},
		"other domain": {
			url:      "https://example.com/",
			expected: map[string]string{},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			u, _ := url.Parse(test.url)
			got := map[string]string{}
			for _, c := range jar.Cookies(u) {
				got[c.Name] = c.Value
			}
			assert.Equal(t, test.expected, got)
		})
	}

	jar.Clear("mein-senec.de")
	assert.Empty(t, jar.Cookies(login))
}

func TestPathPriorityJar_DefaultPathAndExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	jar := newPathPriorityJar(func() time.Time { return now })
	u, _ := url.Parse("http://127.0.0.1:8080/endkunde/api/login")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "session", Value: "a", MaxAge: 60},
		{Name: "secure", Value: "b", Secure: true},
	})

	api, _ := url.Parse("http://127.0.0.1:8080/endkunde/api/status")
	cookies := jar.Cookies(api)
	assert.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)

	root, _ := url.Parse("http://127.0.0.1:8080/")
	assert.Empty(t, jar.Cookies(root))

	now = now.Add(2 * time.Minute)
	assert.Empty(t, jar.Cookies(api))
}
