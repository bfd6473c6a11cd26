package portal

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// loginSniffBytes is how much of a page is searched for login wording.
const loginSniffBytes = 20000

var (
	loginURL = regexp.MustCompile(`(?i)login|giris|oturum`)

	tokenInput  = regexp.MustCompile(`(?i)name=["']__RequestVerificationToken["'][^>]*value=["']([^"']+)["']`)
	tokenHidden = regexp.MustCompile(`(?i)__RequestVerificationToken["']\s*type=["']hidden["']\s*value=["']([^"']+)["']`)

	announcementHref = regexp.MustCompile(`(?i)href=["']([^"']*duyuru[^"']*)["']`)
)

var loginWords = []string{"giris", "oturum", "sifre", "parola", "kullanici", "login"}

// IsLoggedOut reports whether a response looks like the portal's sign-in page:
// either the final URL is a login route or the start of the page talks about
// signing in.
func IsLoggedOut(finalURL, body string) bool {
	if loginURL.MatchString(finalURL) {
		return true
	}
	if len(body) > loginSniffBytes {
		body = body[:loginSniffBytes]
	}
	body = strings.ToLower(body)
	for _, w := range loginWords {
		if strings.Contains(body, w) {
			return true
		}
	}
	return false
}

// ExtractToken returns the anti-forgery token embedded in a page, or "".
func ExtractToken(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err == nil {
		if v, ok := doc.Find(`input[name="__RequestVerificationToken"]`).First().Attr("value"); ok && v != "" {
			return v
		}
	}
	for _, re := range []*regexp.Regexp{tokenInput, tokenHidden} {
		if m := re.FindStringSubmatch(body); m != nil {
			return m[1]
		}
	}
	return ""
}

// findAnnouncementURL returns the first link on the page pointing at an
// announcements route.
func findAnnouncementURL(body, base string) string {
	for _, m := range announcementHref.FindAllStringSubmatch(body, -1) {
		if u := resolveURL(m[1], base); u != "" {
			return u
		}
	}
	return ""
}

func resolveURL(href, base string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}
