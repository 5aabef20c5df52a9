package models

import (
	"strings"
	"time"
)

type RegistrationType string

const (
	RegistrationSolitaire RegistrationType = "solitaire"
	RegistrationTeam      RegistrationType = "team"
	RegistrationJoin      RegistrationType = "join"
)

// ParseRegistrationType принимает токен без учета регистра и пробелов по краям.
func ParseRegistrationType(s string) (RegistrationType, bool) {
	switch RegistrationType(strings.ToLower(strings.TrimSpace(s))) {
	case RegistrationSolitaire:
		return RegistrationSolitaire, true
	case RegistrationTeam:
		return RegistrationTeam, true
	case RegistrationJoin:
		return RegistrationJoin, true
	}
	return "", false
}

type Platform string

const (
	PlatformPC       Platform = "pc"
	PlatformPS5      Platform = "ps5"
	PlatformXbox     Platform = "xbox"
	PlatformNintendo Platform = "nintendo"
	PlatformMobile   Platform = "mobile"
)

var Platforms = []Platform{PlatformPC, PlatformPS5, PlatformXbox, PlatformNintendo, PlatformMobile}

// Participant is one registration row. CurrentTeamSize is read from the
// team aggregate, so every row sharing an invitation code reports the same value.
type Participant struct {
	ID               int              `json:"id" db:"id"`
	TournamentID     *int             `json:"tournament_id,omitempty" db:"tournament_id"`
	Username         string           `json:"username" db:"username"`
	Rank             *string          `json:"rank,omitempty" db:"rank"`
	Platform         Platform         `json:"platform" db:"platform"`
	RegistrationType RegistrationType `json:"registration_type" db:"registration_type"`
	InvitationCode   *string          `json:"invitation_code,omitempty" db:"invitation_code"`
	TeamID           *int             `json:"team_id,omitempty" db:"team_id"`
	CurrentTeamSize  int              `json:"current_team_size" db:"-"`
	ContactInfo      *string          `json:"contact_info,omitempty" db:"contact_info"`
	ConsentDocument  *string          `json:"consent_document,omitempty" db:"consent_document"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}
