// Package viewer describes who is looking at a page.
//
// A Viewer is parsed once per request from the session cookies and passed
// explicitly to whatever needs it. Nothing in the portal reads cookies on
// its own.
package viewer

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/communicare/portal/internal/authclient"
)

// Cookie names written after login or registration.
const (
	CookieAccessToken      = "access_token"
	CookieDisplayName      = "displayName"
	CookieUsername         = "username"
	CookieCompanyName      = "company_name"
	CookieCommunityName    = "community_name"
	CookieSubscriptionTier = "subscription_tier"
	CookieUserType         = "user_type"
)

// Subscription tiers.
const (
	TierBasic    = "basic"
	TierStandard = "standard"
	TierPremium  = "premium"
)

var sessionCookies = []string{
	CookieAccessToken,
	CookieDisplayName,
	CookieUsername,
	CookieCompanyName,
	CookieCommunityName,
	CookieSubscriptionTier,
	CookieUserType,
}

// Viewer is the person making a request.
type Viewer struct {
	AccessToken      string `json:"-"`
	DisplayName      string `json:"display_name,omitempty"`
	Username         string `json:"username,omitempty"`
	CompanyName      string `json:"company_name,omitempty"`
	CommunityName    string `json:"community_name,omitempty"`
	SubscriptionTier string `json:"subscription_tier"`
	UserType         string `json:"user_type,omitempty"`
}

// LoggedIn reports whether the viewer holds an access token.
func (v Viewer) LoggedIn() bool {
	return v.AccessToken != ""
}

// IsMember reports whether the viewer is a plain community member.
func (v Viewer) IsMember() bool {
	return v.UserType == authclient.UserTypeMember
}

// FromRequest parses the viewer from r's cookies.
func FromRequest(r *http.Request) Viewer {
	return FromCookies(r.Cookies())
}

// FromCookies parses the viewer from cookies. Values are URL-decoded when
// possible. A missing subscription tier reads as basic.
func FromCookies(cookies []*http.Cookie) Viewer {
	vals := make(map[string]string, len(sessionCookies))
	for _, c := range cookies {
		vals[c.Name] = decode(c.Value)
	}

	v := Viewer{
		AccessToken:      vals[CookieAccessToken],
		DisplayName:      vals[CookieDisplayName],
		Username:         vals[CookieUsername],
		CompanyName:      vals[CookieCompanyName],
		CommunityName:    vals[CookieCommunityName],
		SubscriptionTier: strings.ToLower(vals[CookieSubscriptionTier]),
		UserType:         vals[CookieUserType],
	}
	if v.SubscriptionTier == "" {
		v.SubscriptionTier = TierBasic
	}
	return v
}

func decode(s string) string {
	if d, err := url.QueryUnescape(s); err == nil {
		return d
	}
	return s
}

// CookieOptions controls the attributes of session cookies.
type CookieOptions struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

// SessionCookies returns the cookies that record s in the browser. Only the
// access token is HttpOnly; the rest are read by the page.
func SessionCookies(s *authclient.Session, opts CookieOptions) []*http.Cookie {
	tier := s.SubscriptionTier
	if tier == "" {
		tier = TierBasic
	}
	vals := map[string]string{
		CookieAccessToken:      s.AccessToken,
		CookieDisplayName:      s.DisplayName,
		CookieUsername:         s.Username,
		CookieCompanyName:      s.CompanyName,
		CookieCommunityName:    s.CommunityName,
		CookieSubscriptionTier: tier,
		CookieUserType:         s.UserType,
	}

	out := make([]*http.Cookie, 0, len(sessionCookies))
	for _, name := range sessionCookies {
		if vals[name] == "" {
			continue
		}
		c := newCookie(name, url.QueryEscape(vals[name]), opts)
		c.MaxAge = int(opts.MaxAge.Seconds())
		c.HttpOnly = name == CookieAccessToken
		out = append(out, c)
	}
	return out
}

// ClearCookies returns cookies that delete every session cookie.
func ClearCookies(opts CookieOptions) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(sessionCookies))
	for _, name := range sessionCookies {
		c := newCookie(name, "", opts)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		out = append(out, c)
	}
	return out
}

func newCookie(name, value string, opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   opts.Domain,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
