package models

import "time"

type BracketStyle string

const (
	BracketStyleSingle BracketStyle = "single"
	BracketStyleDouble BracketStyle = "double"
)

const (
	DefaultFormatCategory  = "standard"
	DefaultFormat          = "standard"
	DefaultMaxParticipants = 32
	DefaultBracketSize     = 16
	DefaultMatchCheckIn    = "Off"
	DefaultBracketTime     = "19:00"
)

// Tournament представляет турнир вместе с его сетками.
type Tournament struct {
	ID              int        `json:"id" db:"id"`
	Game            string     `json:"game" db:"game"`
	Name            string     `json:"name" db:"name"`
	StartDate       time.Time  `json:"start_date" db:"start_date"`
	Description     *string    `json:"description,omitempty" db:"description"`
	Rules           *string    `json:"rules,omitempty" db:"rules"`
	Prizes          *string    `json:"prizes,omitempty" db:"prizes"`
	FormatCategory  string     `json:"format_category" db:"format_category"`
	Format          string     `json:"format" db:"format"`
	CheckIn         bool       `json:"check_in" db:"check_in"`
	CheckInDate     *time.Time `json:"check_in_date,omitempty" db:"check_in_date"`
	MaxParticipants int        `json:"max_participants" db:"max_participants"`
	AllowTeams      bool       `json:"allow_teams" db:"allow_teams"`
	MaxTeamMembers  *int       `json:"max_team_members,omitempty" db:"max_team_members"`
	PublicResults   bool       `json:"public_results" db:"public_results"`
	BannerImage     *string    `json:"banner_image,omitempty" db:"banner_image"`
	RulesPDF        *string    `json:"rules_pdf,omitempty" db:"rules_pdf"`
	SliderImages    []string   `json:"slider_images" db:"slider_images"`
	WhatsappLink    *string    `json:"whatsapp_link,omitempty" db:"whatsapp_link"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`

	Brackets []Bracket `json:"brackets" db:"-"`
}

// TeamCapacity returns the per-team member limit. The limit only applies
// when the tournament allows teams and has one configured.
func (t *Tournament) TeamCapacity() (int, bool) {
	if t == nil || !t.AllowTeams || t.MaxTeamMembers == nil {
		return 0, false
	}
	return *t.MaxTeamMembers, true
}

type Bracket struct {
	ID              int          `json:"id" db:"id"`
	TournamentID    int          `json:"tournament_id" db:"tournament_id"`
	Name            string       `json:"name" db:"name"`
	StartDate       time.Time    `json:"start_date" db:"start_date"`
	MatchCheckIn    string       `json:"match_check_in" db:"match_check_in"`
	Style           BracketStyle `json:"style" db:"style"`
	ThirdPlaceMatch bool         `json:"third_place_match" db:"third_place_match"`
	Size            int          `json:"size" db:"size"`
}
