package appstate

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core/report"
)

type View string

const (
	ViewHub         View = "HUB"
	ViewForm        View = "FORM"
	ViewCaringForm  View = "PENYAYANG_FORM"
	ViewList        View = "LIST"
	ViewCaringList  View = "PENYAYANG_LIST"
	ViewDashboard   View = "DASHBOARD"
	ViewAdminPortal View = "ADMIN_PORTAL"
	ViewTakwim      View = "TAKWIM"
)

var (
	Views = []View{ViewHub, ViewForm, ViewCaringForm, ViewList, ViewCaringList, ViewDashboard, ViewAdminPortal, ViewTakwim}

	ErrUnknownView     = errors.New("unknown view")
	ErrForbiddenView   = errors.New("view requires an admin session")
	ErrSessionNotFound = errors.New("session not found")
)

func ParseView(s string) (View, error) {
	v := View(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Views {
		if v == known {
			return v, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownView, "%q", s)
}

// Session is a logged in staff member. Its ID is the token id, so dropping it revokes the token.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	IsAdmin    bool      `json:"is_admin"`
	View       View      `json:"view"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Login registers s and routes it to the admin portal, or the hub for non admins.
func (a *App) Login(s Session) (Session, error) {
	if s.ID == "" {
		return Session{}, errors.New("session id is required")
	}
	if s.IsAdmin {
		s.View = ViewAdminPortal
	} else {
		s.View = ViewHub
	}
	if s.LoggedInAt.IsZero() {
		s.LoggedInAt = time.Now()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return Session{}, ErrClosed
	}
	a.evictSessions(time.Now())
	a.sessions[s.ID] = &s
	return s, nil
}

// Logout drops the session.
func (a *App) Logout(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(a.sessions, id)
	return nil
}

func (a *App) Session(id string) (Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if s, ok := a.sessions[id]; ok && !a.expired(s, time.Now()) {
		return *s, true
	}
	return Session{}, false
}

// Navigate moves a session to view.
func (a *App) Navigate(sessionID string, view View) error {
	if _, err := ParseView(string(view)); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[sessionID]
	if !ok || a.expired(s, time.Now()) {
		return ErrSessionNotFound
	}
	if view == ViewAdminPortal && !s.IsAdmin {
		return ErrForbiddenView
	}
	s.View = view
	return nil
}

// Sessions returns the number of live sessions.
func (a *App) Sessions() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// evictSessions drops the sessions past their TTL. a.mu must be held.
func (a *App) evictSessions(now time.Time) {
	for id, s := range a.sessions {
		if a.expired(s, now) {
			delete(a.sessions, id)
		}
	}
}

func (a *App) expired(s *Session, now time.Time) bool {
	return a.opts.SessionTTL > 0 && now.Sub(s.LoggedInAt) > a.opts.SessionTTL
}

func listView(kind report.Kind) View {
	if kind == report.KindCaring {
		return ViewCaringList
	}
	return ViewList
}

func sortUnconfirmed(recs []UnconfirmedRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].At.Equal(recs[j].At) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].At.Before(recs[j].At)
	})
}

func sortStrings(lists ...[]string) {
	for _, l := range lists {
		sort.Strings(l)
	}
}
