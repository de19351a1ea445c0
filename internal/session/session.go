// File: internal/session/session.go

// Package session persists and validates the Medium login session. A session
// is an ordered set of browser cookies, serialized whole to a single JSON
// file and applied wholesale to a fresh browser tab; it is never mutated in
// place.
package session

import (
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
)

// Cookie is one persisted credential record. The JSON shape matches what the
// browser reports for a cookie, so a harvested session round-trips through
// the store without translation loss.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Session is the ordered collection of cookies for one logged-in state.
type Session []Cookie

// Empty reports whether the session carries no credentials. A structurally
// present but empty session is treated the same as an absent one.
func (s Session) Empty() bool {
	return len(s) == 0
}

// FromBrowserCookies converts cookies harvested from a live browser context.
func FromBrowserCookies(cookies []*network.Cookie) Session {
	sess := make(Session, 0, len(cookies))
	for _, c := range cookies {
		sess = append(sess, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return sess
}

// CookieParams renders the session in the form the browser accepts.
func (s Session) CookieParams() []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(s))
	for _, c := range s {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &expires
		}
		params = append(params, p)
	}
	return params
}
