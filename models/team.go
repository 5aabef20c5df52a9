package models

import "time"

// Team is the aggregate behind an invitation code. MemberCount is the single
// source of truth for the team's size.
type Team struct {
	ID                   int       `json:"id" db:"id"`
	InvitationCode       string    `json:"invitation_code" db:"invitation_code"`
	TournamentID         *int      `json:"tournament_id,omitempty" db:"tournament_id"`
	FounderParticipantID *int      `json:"founder_participant_id,omitempty" db:"founder_participant_id"`
	Name                 string    `json:"name" db:"name"`
	Tag                  *string   `json:"tag,omitempty" db:"tag"`
	Description          *string   `json:"description,omitempty" db:"description"`
	IsPublic             bool      `json:"is_public" db:"is_public"`
	LogoPath             *string   `json:"logo_path,omitempty" db:"logo_path"`
	MemberCount          int       `json:"member_count" db:"member_count"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}
