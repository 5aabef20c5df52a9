package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-registration/live"
	"github.com/Dosada05/tournament-registration/metrics"
	"github.com/Dosada05/tournament-registration/models"
	"github.com/Dosada05/tournament-registration/repositories"
	"github.com/Dosada05/tournament-registration/storage"
	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	defaultTournamentsLimit = 20
	maxTournamentsLimit     = 100
	MaxSliderImages         = 5
)

// TournamentBasics содержит основные сведения о турнире.
type TournamentBasics struct {
	Game      string `json:"game"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
}

// TournamentInfo содержит описание, правила и призы.
type TournamentInfo struct {
	Description *string `json:"description,omitempty"`
	Rules       *string `json:"rules,omitempty"`
	Prizes      *string `json:"prizes,omitempty"`
}

// TournamentSettings задаёт формат, чек-ин и ограничения турнира.
type TournamentSettings struct {
	FormatCategory  string `json:"format_category"`
	Format          string `json:"format"`
	CheckIn         *bool  `json:"check_in"`
	CheckInDate     string `json:"check_in_date,omitempty"`
	MaxParticipants *int   `json:"max_participants"`
	AllowTeams      *bool  `json:"allow_teams"`
	MaxTeamMembers  *int   `json:"max_team_members,omitempty"`
	PublicResults   *bool  `json:"public_results"`
}

// TournamentResources содержит внешние ссылки турнира.
type TournamentResources struct {
	WhatsappLink *string `json:"whatsapp_link,omitempty"`
}

// BracketSpec описывает сетку в том виде, в каком её прислал организатор.
type BracketSpec struct {
	Name         string `json:"bracketName"`
	StartDate    string `json:"bracketStartDate"`
	StartTime    string `json:"bracketStartTime"`
	MatchCheckIn string `json:"matchCheckIn"`
	Style        string `json:"bracketStyle"`
	ThirdPlace   bool   `json:"enableThirdPlace"`
	Size         *int   `json:"bracketSize"`
}

// CreateTournamentInput объединяет все секции формы создания турнира.
type CreateTournamentInput struct {
	Basics    TournamentBasics     `json:"basics"`
	Info      *TournamentInfo      `json:"info,omitempty"`
	Settings  TournamentSettings   `json:"settings"`
	Resources *TournamentResources `json:"resources,omitempty"`
	Brackets  []BracketSpec        `json:"brackets,omitempty"`
}

// Validate проверяет только поля, для которых нет значения по умолчанию.
func (in *CreateTournamentInput) Validate() error {
	err := validation.ValidateStruct(&in.Basics,
		validation.Field(&in.Basics.Game, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Basics.Name, validation.Required, validation.Length(1, 255)),
	)
	if err != nil {
		return err
	}
	return validation.ValidateStruct(&in.Settings,
		validation.Field(&in.Settings.MaxParticipants, validation.Min(1)),
		validation.Field(&in.Settings.MaxTeamMembers, validation.Min(1)),
	)
}

// AssemblyReport показывает, какие значения были подставлены по умолчанию
// и какие сетки не удалось сохранить.
type AssemblyReport struct {
	StartDateDefaulted bool             `json:"start_date_defaulted"`
	CheckInDateDropped bool             `json:"check_in_date_dropped"`
	DefaultedFields    []string         `json:"defaulted_fields"`
	Brackets           []BracketOutcome `json:"brackets"`
}

// BracketOutcome описывает результат сохранения одной сетки.
type BracketOutcome struct {
	Index          int    `json:"index"`
	BracketID      int    `json:"bracket_id,omitempty"`
	NameDefaulted  bool   `json:"name_defaulted"`
	StyleDefaulted bool   `json:"style_defaulted"`
	StartDefaulted bool   `json:"start_defaulted"`
	SizeDefaulted  bool   `json:"size_defaulted"`
	Error          string `json:"error,omitempty"`
}

// Failed сообщает, что сетку не удалось сохранить.
func (o BracketOutcome) Failed() bool { return o.Error != "" }

// AssemblyResult возвращается после создания турнира.
type AssemblyResult struct {
	Tournament *models.Tournament `json:"tournament"`
	Report     AssemblyReport     `json:"report"`
}

// UpdateTournamentInput содержит изменяемые поля турнира; nil означает "не менять".
type UpdateTournamentInput struct {
	Game            *string `json:"game,omitempty"`
	Name            *string `json:"name,omitempty"`
	StartDate       *string `json:"start_date,omitempty"`
	Description     *string `json:"description,omitempty"`
	Rules           *string `json:"rules,omitempty"`
	Prizes          *string `json:"prizes,omitempty"`
	FormatCategory  *string `json:"format_category,omitempty"`
	Format          *string `json:"format,omitempty"`
	CheckIn         *bool   `json:"check_in,omitempty"`
	CheckInDate     *string `json:"check_in_date,omitempty"`
	MaxParticipants *int    `json:"max_participants,omitempty"`
	AllowTeams      *bool   `json:"allow_teams,omitempty"`
	MaxTeamMembers  *int    `json:"max_team_members,omitempty"`
	PublicResults   *bool   `json:"public_results,omitempty"`
	WhatsappLink    *string `json:"whatsapp_link,omitempty"`
}

// Validate проверяет переданные поля обновления.
func (in *UpdateTournamentInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Game, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&in.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&in.StartDate, validation.NilOrNotEmpty, validation.By(isDateString)),
		validation.Field(&in.CheckInDate, validation.By(isDateString)),
		validation.Field(&in.MaxParticipants, validation.Min(1)),
		validation.Field(&in.MaxTeamMembers, validation.Min(0)),
	)
}

func isDateString(value interface{}) error {
	s, _ := value.(*string)
	if s == nil || *s == "" {
		return nil
	}
	if _, ok := parseDate(*s); !ok {
		return errors.New("must be an ISO 8601 date")
	}
	return nil
}

// TournamentService инкапсулирует бизнес-логику турниров и их сеток.
type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*AssemblyResult, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	GetLatestTournament(ctx context.Context) (*models.Tournament, error)
	ListTournaments(ctx context.Context, limit, offset int) ([]models.Tournament, error)
	UpdateTournament(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error
	UploadBanner(ctx context.Context, id int, banner *Asset) (*models.Tournament, error)
	UploadSliderImages(ctx context.Context, id int, images []*Asset) (*models.Tournament, error)
	UploadRulesPDF(ctx context.Context, id int, pdf *Asset) (*models.Tournament, error)
}

// TournamentServiceOption настраивает сервис турниров.
type TournamentServiceOption func(*tournamentService)

// WithClock подменяет источник текущего времени для дат по умолчанию.
func WithClock(clock Clock) TournamentServiceOption {
	return func(s *tournamentService) { s.now = clock }
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	bracketRepo    repositories.BracketRepository
	uploader       storage.FileUploader
	broadcaster    EventBroadcaster
	now            Clock
	logger         *slog.Logger
}

// NewTournamentService создаёт TournamentService с внедрением зависимостей.
func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	bracketRepo repositories.BracketRepository,
	uploader storage.FileUploader,
	broadcaster EventBroadcaster,
	logger *slog.Logger,
	opts ...TournamentServiceOption,
) TournamentService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	s := &tournamentService{
		tournamentRepo: tournamentRepo,
		bracketRepo:    bracketRepo,
		uploader:       uploader,
		broadcaster:    broadcaster,
		now:            time.Now,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTournament сохраняет турнир, затем каждую сетку по отдельности.
// Ошибка сетки попадает в лог и отчёт, но не прерывает создание турнира.
func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*AssemblyResult, error) {
	input.Basics.Game = strings.TrimSpace(input.Basics.Game)
	input.Basics.Name = strings.TrimSpace(input.Basics.Name)
	if err := input.Validate(); err != nil {
		return nil, validationError(err)
	}

	tournament, report := s.buildTournament(&input)
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	metrics.TournamentsCreated.Inc()
	log := s.logger.With(slog.Int("tournament_id", tournament.ID))
	if report.CheckInDateDropped {
		log.Warn("unparseable check-in date ignored", slog.String("check_in_date", input.Settings.CheckInDate))
	}

	report.Brackets = make([]BracketOutcome, 0, len(input.Brackets))
	for i, spec := range input.Brackets {
		bracket, outcome := s.buildBracket(tournament.ID, i, spec)
		if err := s.bracketRepo.Create(ctx, bracket); err != nil {
			metrics.BracketFailures.Inc()
			outcome.Error = err.Error()
			log.Error("failed to create bracket", slog.Int("index", i), slog.String("name", bracket.Name), slog.Any("error", err))
		} else {
			outcome.BracketID = bracket.ID
		}
		report.Brackets = append(report.Brackets, outcome)
	}

	created, err := s.GetTournament(ctx, tournament.ID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastToRoom(live.LobbyRoom, live.Message{Type: live.EventTournamentCreated, Payload: created})
	if len(created.Brackets) > 0 {
		s.broadcaster.BroadcastToRoom(live.TournamentRoom(created.ID), live.Message{Type: live.EventBracketsAssembled, Payload: created.Brackets})
	}

	return &AssemblyResult{Tournament: created, Report: report}, nil
}

func (s *tournamentService) buildTournament(in *CreateTournamentInput) (*models.Tournament, AssemblyReport) {
	var report AssemblyReport
	defaulted := func(field string) { report.DefaultedFields = append(report.DefaultedFields, field) }

	t := &models.Tournament{
		Game:            in.Basics.Game,
		Name:            in.Basics.Name,
		FormatCategory:  strings.TrimSpace(in.Settings.FormatCategory),
		Format:          strings.TrimSpace(in.Settings.Format),
		MaxParticipants: models.DefaultMaxParticipants,
		PublicResults:   true,
		SliderImages:    []string{},
	}

	if start, ok := parseDate(in.Basics.StartDate); ok {
		t.StartDate = start
	} else {
		t.StartDate = s.now().UTC()
		report.StartDateDefaulted = true
		defaulted("start_date")
	}

	if in.Info != nil {
		t.Description = nonBlank(in.Info.Description)
		t.Rules = nonBlank(in.Info.Rules)
		t.Prizes = nonBlank(in.Info.Prizes)
	}
	if in.Resources != nil {
		t.WhatsappLink = nonBlank(in.Resources.WhatsappLink)
	}

	if t.FormatCategory == "" {
		t.FormatCategory = models.DefaultFormatCategory
		defaulted("format_category")
	}
	if t.Format == "" {
		t.Format = models.DefaultFormat
		defaulted("format")
	}
	if in.Settings.CheckIn != nil {
		t.CheckIn = *in.Settings.CheckIn
	} else {
		defaulted("check_in")
	}
	if in.Settings.MaxParticipants != nil && *in.Settings.MaxParticipants != 0 {
		t.MaxParticipants = *in.Settings.MaxParticipants
	} else {
		defaulted("max_participants")
	}
	if in.Settings.MaxTeamMembers != nil && *in.Settings.MaxTeamMembers != 0 {
		v := *in.Settings.MaxTeamMembers
		t.MaxTeamMembers = &v
	}
	if in.Settings.AllowTeams != nil {
		t.AllowTeams = *in.Settings.AllowTeams
	} else {
		defaulted("allow_teams")
	}
	if in.Settings.PublicResults != nil {
		t.PublicResults = *in.Settings.PublicResults
	} else {
		defaulted("public_results")
	}

	if raw := strings.TrimSpace(in.Settings.CheckInDate); raw != "" {
		if checkIn, ok := parseDate(raw); ok {
			t.CheckInDate = &checkIn
		} else {
			report.CheckInDateDropped = true
		}
	}

	return t, report
}

func (s *tournamentService) buildBracket(tournamentID, index int, spec BracketSpec) (*models.Bracket, BracketOutcome) {
	outcome := BracketOutcome{Index: index}
	now := s.now().UTC()

	b := &models.Bracket{
		TournamentID:    tournamentID,
		Name:            strings.TrimSpace(spec.Name),
		MatchCheckIn:    strings.TrimSpace(spec.MatchCheckIn),
		ThirdPlaceMatch: spec.ThirdPlace,
	}

	b.Style, outcome.StyleDefaulted = ParseBracketStyle(spec.Style)

	if b.Name == "" {
		b.Name = fmt.Sprintf("Bracket %d", now.UnixMilli())
		outcome.NameDefaulted = true
	}
	if b.MatchCheckIn == "" {
		b.MatchCheckIn = models.DefaultMatchCheckIn
	}

	// Размер передаётся как есть, допустимость проверяет база.
	if spec.Size == nil || *spec.Size == 0 {
		b.Size = models.DefaultBracketSize
		outcome.SizeDefaulted = true
	} else {
		b.Size = *spec.Size
	}

	if start, ok := ComposeBracketStart(spec.StartDate, spec.StartTime); ok {
		b.StartDate = start
	} else {
		b.StartDate = now
		outcome.StartDefaulted = true
	}

	return b, outcome
}

// ParseBracketStyle переводит произвольную строку в стиль сетки. Всё, кроме
// "double", становится single, флаг сообщает о такой подстановке.
func ParseBracketStyle(token string) (models.BracketStyle, bool) {
	switch models.BracketStyle(strings.ToLower(strings.TrimSpace(token))) {
	case models.BracketStyleDouble:
		return models.BracketStyleDouble, false
	case models.BracketStyleSingle:
		return models.BracketStyleSingle, false
	}
	return models.BracketStyleSingle, true
}

// ComposeBracketStart собирает из даты и времени HH:MM момент в UTC.
// Время по умолчанию 19:00.
func ComposeBracketStart(date, clock string) (time.Time, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, false
	}
	if i := strings.IndexByte(date, 'T'); i >= 0 {
		date = date[:i]
	}

	clock = strings.TrimSpace(clock)
	if clock == "" {
		clock = models.DefaultBracketTime
	}
	if len(clock) == len("15:04") {
		clock += ":00"
	}

	start, err := time.Parse(time.RFC3339, date+"T"+clock+"Z")
	if err != nil {
		return time.Time{}, false
	}
	return start.UTC(), true
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	return optionalString(*s)
}

// GetTournament возвращает турнир вместе с сетками.
func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrTournamentNotFound, id)
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	if err := s.attachBrackets(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetLatestTournament возвращает последний созданный турнир.
func (s *tournamentService) GetLatestTournament(ctx context.Context) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetLatest(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get latest tournament: %w", err)
	}
	if err := s.attachBrackets(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) attachBrackets(ctx context.Context, t *models.Tournament) error {
	brackets, err := s.bracketRepo.ListByTournamentID(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to load brackets for tournament %d: %w", t.ID, err)
	}
	t.Brackets = brackets
	return nil
}

// ListTournaments возвращает страницу турниров, новые первыми.
func (s *tournamentService) ListTournaments(ctx context.Context, limit, offset int) ([]models.Tournament, error) {
	if limit < 1 {
		limit = defaultTournamentsLimit
	}
	if limit > maxTournamentsLimit {
		limit = maxTournamentsLimit
	}
	if offset < 0 {
		offset = 0
	}

	tournaments, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}

	ids := make([]int, len(tournaments))
	for i := range tournaments {
		ids[i] = tournaments[i].ID
	}
	byTournament, err := s.bracketRepo.ListByTournamentIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load brackets: %w", err)
	}
	for i := range tournaments {
		if brackets, ok := byTournament[tournaments[i].ID]; ok {
			tournaments[i].Brackets = brackets
		} else {
			tournaments[i].Brackets = []models.Bracket{}
		}
	}
	return tournaments, nil
}

// UpdateTournament применяет частичное обновление турнира.
func (s *tournamentService) UpdateTournament(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	if err := input.Validate(); err != nil {
		return nil, validationError(err)
	}

	t, err := s.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Game != nil {
		t.Game = strings.TrimSpace(*input.Game)
	}
	if input.Name != nil {
		t.Name = strings.TrimSpace(*input.Name)
	}
	if input.StartDate != nil {
		t.StartDate, _ = parseDate(*input.StartDate)
	}
	if input.Description != nil {
		t.Description = nonBlank(input.Description)
	}
	if input.Rules != nil {
		t.Rules = nonBlank(input.Rules)
	}
	if input.Prizes != nil {
		t.Prizes = nonBlank(input.Prizes)
	}
	if input.FormatCategory != nil && strings.TrimSpace(*input.FormatCategory) != "" {
		t.FormatCategory = strings.TrimSpace(*input.FormatCategory)
	}
	if input.Format != nil && strings.TrimSpace(*input.Format) != "" {
		t.Format = strings.TrimSpace(*input.Format)
	}
	if input.CheckIn != nil {
		t.CheckIn = *input.CheckIn
	}
	if input.CheckInDate != nil {
		if checkIn, ok := parseDate(*input.CheckInDate); ok {
			t.CheckInDate = &checkIn
		} else {
			t.CheckInDate = nil
		}
	}
	if input.MaxParticipants != nil && *input.MaxParticipants > 0 {
		t.MaxParticipants = *input.MaxParticipants
	}
	if input.AllowTeams != nil {
		t.AllowTeams = *input.AllowTeams
	}
	if input.MaxTeamMembers != nil {
		if *input.MaxTeamMembers == 0 {
			t.MaxTeamMembers = nil
		} else {
			v := *input.MaxTeamMembers
			t.MaxTeamMembers = &v
		}
	}
	if input.PublicResults != nil {
		t.PublicResults = *input.PublicResults
	}
	if input.WhatsappLink != nil {
		t.WhatsappLink = nonBlank(input.WhatsappLink)
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrTournamentNotFound, id)
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}

	s.broadcaster.BroadcastToRoom(live.TournamentRoom(id), live.Message{Type: live.EventTournamentUpdated, Payload: t})
	return t, nil
}

// DeleteTournament удаляет турнир и его сетки. Регистрации остаются,
// их ссылка на турнир просто повисает.
func (s *tournamentService) DeleteTournament(ctx context.Context, id int) error {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return fmt.Errorf("%w: id %d", ErrTournamentNotFound, id)
		}
		return fmt.Errorf("failed to get tournament %d: %w", id, err)
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return fmt.Errorf("%w: id %d", ErrTournamentNotFound, id)
		}
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}

	keys := append([]string{}, t.SliderImages...)
	if t.BannerImage != nil {
		keys = append(keys, *t.BannerImage)
	}
	if t.RulesPDF != nil {
		keys = append(keys, *t.RulesPDF)
	}
	s.deleteAssets(ctx, id, keys)

	payload := map[string]int{"tournament_id": id}
	s.broadcaster.BroadcastToRoom(live.TournamentRoom(id), live.Message{Type: live.EventTournamentDeleted, Payload: payload})
	s.broadcaster.BroadcastToRoom(live.LobbyRoom, live.Message{Type: live.EventTournamentDeleted, Payload: payload})
	return nil
}

func (s *tournamentService) deleteAssets(ctx context.Context, tournamentID int, keys []string) {
	if s.uploader == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.uploader.Delete(ctx, key); err != nil {
			metrics.AssetFailures.WithLabelValues("tournament_cleanup").Inc()
			s.logger.Warn("failed to delete tournament asset",
				slog.Int("tournament_id", tournamentID), slog.String("key", key), slog.Any("error", err))
		}
	}
}
