package model

import "time"

// App is a sub-application attached to a project
type App struct {
	Base
	Homepage      string         `json:"homepage,omitempty"`
	ProjectID     string         `json:"project_id,omitempty"`
	StartsAt      Timestamp      `json:"starts_at"`
	EndsAt        Timestamp      `json:"ends_at"`
	StylesheetURL string         `json:"stylesheet_url,omitempty"`
	CallbackURL   string         `json:"callback_url,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
	PlayersCount  int            `json:"players_count,omitempty"`
}

func (*App) Kind() Kind { return KindApp }

func (a *App) IndexValues() map[string]string {
	return map[string]string{"project_id": a.ProjectID}
}

// Live returns true if the app has started and not yet ended at now
func (a *App) Live(now time.Time) bool {
	if a.StartsAt.IsZero() || a.StartsAt.After(now) {
		return false
	}
	if !a.EndsAt.IsZero() && a.EndsAt.Before(now) {
		return false
	}
	return true
}

// PubAccount is a publishing account linked to a project
type PubAccount struct {
	Base
	ProjectID string `json:"project_id,omitempty"`
}

func (*PubAccount) Kind() Kind { return KindPubAccount }

func (a *PubAccount) IndexValues() map[string]string {
	return map[string]string{"project_id": a.ProjectID}
}
