package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/tournament-registration/live"
	"github.com/Dosada05/tournament-registration/metrics"
	"github.com/Dosada05/tournament-registration/models"
	"github.com/Dosada05/tournament-registration/repositories"
	"github.com/Dosada05/tournament-registration/storage"
	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	defaultParticipantsPage  = 1
	defaultParticipantsLimit = 10
	maxParticipantsLimit     = 100
)

// RegisterParticipantInput описывает заявку на регистрацию участника.
// Файлы логотипа и согласия родителей передаются отдельно от JSON.
type RegisterParticipantInput struct {
	TournamentID     *int   `json:"tournamentId,omitempty"`
	Username         string `json:"username"`
	Rank             string `json:"rank,omitempty"`
	Platform         string `json:"platform"`
	RegistrationType string `json:"registration_type"`
	TeamName         string `json:"teamName,omitempty"`
	TeamTag          string `json:"teamTag,omitempty"`
	TeamDescription  string `json:"teamDescription,omitempty"`
	IsPublic         bool   `json:"isPublic,omitempty"`
	ContactInfo      string `json:"contactInfo,omitempty"`
	DiscordID        string `json:"discordId,omitempty"`
	InvitationCode   string `json:"invitationCode,omitempty"`

	TeamLogo        *Asset `json:"-"`
	ParentalConsent *Asset `json:"-"`
}

func (in *RegisterParticipantInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Rank = strings.TrimSpace(in.Rank)
	in.Platform = strings.ToLower(strings.TrimSpace(in.Platform))
	in.TeamName = strings.TrimSpace(in.TeamName)
	in.TeamTag = strings.TrimSpace(in.TeamTag)
	in.TeamDescription = strings.TrimSpace(in.TeamDescription)
	in.ContactInfo = strings.TrimSpace(in.ContactInfo)
	in.DiscordID = strings.TrimSpace(in.DiscordID)
	in.InvitationCode = strings.ToUpper(strings.TrimSpace(in.InvitationCode))
}

// Validate проверяет поля заявки с учётом типа регистрации. Код приглашения
// обязателен для вступления, турнир обязателен для создания команды.
func (in *RegisterParticipantInput) Validate(regType models.RegistrationType) error {
	platforms := make([]interface{}, 0, len(models.Platforms))
	for _, p := range models.Platforms {
		platforms = append(platforms, string(p))
	}

	codeRules := []validation.Rule{validation.Length(0, 20)}
	if regType == models.RegistrationJoin {
		codeRules = append(codeRules, validation.Required)
	}
	// Лимит состава берётся из турнира, поэтому команда без турнира не примет ни одного участника.
	var tournamentRules []validation.Rule
	if regType == models.RegistrationTeam {
		tournamentRules = append(tournamentRules, validation.Required)
	}

	return validation.ValidateStruct(in,
		validation.Field(&in.TournamentID, tournamentRules...),
		validation.Field(&in.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Rank, validation.Length(0, 100)),
		validation.Field(&in.Platform, validation.Required, validation.In(platforms...)),
		validation.Field(&in.TeamName, validation.Length(0, 100)),
		validation.Field(&in.TeamTag, validation.Length(0, 4)),
		validation.Field(&in.ContactInfo, validation.Length(0, 100)),
		validation.Field(&in.DiscordID, validation.Length(0, 100)),
		validation.Field(&in.InvitationCode, codeRules...),
	)
}

// contact берёт contactInfo, а при его отсутствии Discord ID.
func (in *RegisterParticipantInput) contact() *string {
	if in.ContactInfo != "" {
		return optionalString(in.ContactInfo)
	}
	return optionalString(in.DiscordID)
}

// ListParticipantsParams задаёт поиск и пагинацию списка участников.
type ListParticipantsParams struct {
	Search string
	Page   int
	Limit  int
}

// ParticipantPage содержит страницу участников и общее число найденных записей.
type ParticipantPage struct {
	Data  []models.Participant `json:"data"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// ParticipantService определяет бизнес-логику регистрации участников и команд.
type ParticipantService interface {
	// Register регистрирует участника одним из трёх способов: соло, создание команды или вступление по коду.
	Register(ctx context.Context, input RegisterParticipantInput) (*models.Participant, error)
	// GetByID возвращает регистрацию вместе с командой.
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	// List возвращает страницу регистраций с поиском по имени.
	List(ctx context.Context, params ListParticipantsParams) (*ParticipantPage, error)
	// Delete удаляет регистрацию и освобождает место в команде.
	Delete(ctx context.Context, id int) error
}

// ParticipantServiceOption настраивает сервис участников.
type ParticipantServiceOption func(*participantService)

// WithCodeGenerator подменяет генератор кодов приглашения.
func WithCodeGenerator(gen CodeGenerator) ParticipantServiceOption {
	return func(s *participantService) { s.generateCode = gen }
}

type participantService struct {
	tx              repositories.Transactor
	participantRepo repositories.ParticipantRepository
	teamRepo        repositories.TeamRepository
	tournamentRepo  repositories.TournamentRepository
	uploader        storage.FileUploader
	broadcaster     EventBroadcaster
	generateCode    CodeGenerator
	logger          *slog.Logger
}

// NewParticipantService создаёт сервис участников. broadcaster и uploader
// могут быть nil: тогда события и файлы не отправляются.
func NewParticipantService(
	tx repositories.Transactor,
	participantRepo repositories.ParticipantRepository,
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	uploader storage.FileUploader,
	broadcaster EventBroadcaster,
	logger *slog.Logger,
	opts ...ParticipantServiceOption,
) ParticipantService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	s := &participantService{
		tx:              tx,
		participantRepo: participantRepo,
		teamRepo:        teamRepo,
		tournamentRepo:  tournamentRepo,
		uploader:        uploader,
		broadcaster:     broadcaster,
		generateCode:    GenerateInvitationCode,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register определяет тип регистрации, проверяет заявку и выполняет её.
// Сбой загрузки файлов не отменяет регистрацию.
func (s *participantService) Register(ctx context.Context, input RegisterParticipantInput) (*models.Participant, error) {
	regType, ok := models.ParseRegistrationType(input.RegistrationType)
	if !ok {
		metrics.Registrations.WithLabelValues("invalid", metrics.OutcomeRejected).Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidRegistrationType, input.RegistrationType)
	}

	input.normalize()
	if err := input.Validate(regType); err != nil {
		metrics.Registrations.WithLabelValues(string(regType), metrics.OutcomeRejected).Inc()
		return nil, validationError(err)
	}

	var (
		participant *models.Participant
		err         error
	)
	switch regType {
	case models.RegistrationSolitaire:
		participant, err = s.registerSolo(ctx, &input)
	case models.RegistrationTeam:
		participant, err = s.registerTeam(ctx, &input)
	case models.RegistrationJoin:
		participant, err = s.joinTeam(ctx, &input)
	}
	if err != nil {
		s.recordFailure(regType, err)
		return nil, err
	}

	s.storeConsentDocument(ctx, participant, input.ParentalConsent)
	metrics.Registrations.WithLabelValues(string(regType), metrics.OutcomeSuccess).Inc()
	s.announce(ctx, participant)

	return participant, nil
}

func (s *participantService) recordFailure(regType models.RegistrationType, err error) {
	switch {
	case errors.Is(err, ErrTeamCapacityExceeded):
		metrics.TeamJoinRejections.WithLabelValues("capacity").Inc()
	case errors.Is(err, ErrInvitationCodeNotFound):
		metrics.TeamJoinRejections.WithLabelValues("unknown_code").Inc()
	case errors.Is(err, ErrAssociatedTournamentNotFound):
		metrics.TeamJoinRejections.WithLabelValues("tournament_missing").Inc()
	default:
		metrics.Registrations.WithLabelValues(string(regType), metrics.OutcomeError).Inc()
		return
	}
	metrics.Registrations.WithLabelValues(string(regType), metrics.OutcomeRejected).Inc()
}

func newParticipantRow(in *RegisterParticipantInput, regType models.RegistrationType) *models.Participant {
	return &models.Participant{
		TournamentID:     in.TournamentID,
		Username:         in.Username,
		Rank:             optionalString(in.Rank),
		Platform:         models.Platform(in.Platform),
		RegistrationType: regType,
		ContactInfo:      in.contact(),
		CurrentTeamSize:  1,
	}
}

// ensureTournament проверяет, что указанный турнир существует.
func (s *participantService) ensureTournament(ctx context.Context, id *int) error {
	if id == nil {
		return nil
	}
	_, err := s.tournamentRepo.GetByID(ctx, nil, *id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return fmt.Errorf("%w: id %d", ErrTournamentNotFound, *id)
		}
		return fmt.Errorf("failed to load tournament %d: %w", *id, err)
	}
	return nil
}

func (s *participantService) registerSolo(ctx context.Context, in *RegisterParticipantInput) (*models.Participant, error) {
	if err := s.ensureTournament(ctx, in.TournamentID); err != nil {
		return nil, err
	}

	p := newParticipantRow(in, models.RegistrationSolitaire)
	if err := s.participantRepo.Create(ctx, nil, p); err != nil {
		return nil, fmt.Errorf("failed to create solo registration: %w", err)
	}
	p.CurrentTeamSize = 1
	return p, nil
}

func (s *participantService) registerTeam(ctx context.Context, in *RegisterParticipantInput) (*models.Participant, error) {
	if err := s.ensureTournament(ctx, in.TournamentID); err != nil {
		return nil, err
	}

	code := in.InvitationCode
	if code == "" {
		code = s.generateCode()
	}
	teamName := in.TeamName
	if teamName == "" {
		teamName = in.Username
	}

	p := newParticipantRow(in, models.RegistrationTeam)
	p.InvitationCode = &code
	team := &models.Team{
		InvitationCode: code,
		TournamentID:   in.TournamentID,
		Name:           teamName,
		Tag:            optionalString(in.TeamTag),
		Description:    optionalString(in.TeamDescription),
		IsPublic:       in.IsPublic,
		MemberCount:    1,
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.participantRepo.Create(ctx, exec, p); err != nil {
			return fmt.Errorf("failed to create founder registration: %w", err)
		}
		team.FounderParticipantID = &p.ID
		if err := s.teamRepo.Create(ctx, exec, team); err != nil {
			if errors.Is(err, repositories.ErrInvitationCodeConflict) {
				return fmt.Errorf("%w: %s", ErrInvitationCodeConflict, code)
			}
			return fmt.Errorf("failed to create team: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.CurrentTeamSize = team.MemberCount
	p.Team = team
	s.storeTeamLogo(ctx, team, in.TeamLogo)
	return p, nil
}

// joinTeam добавляет участника под блокировкой строки команды, чтобы проверка
// лимита и увеличение счётчика не пересекались с другим вступлением по тому же коду.
func (s *participantService) joinTeam(ctx context.Context, in *RegisterParticipantInput) (*models.Participant, error) {
	var p *models.Participant

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		team, err := s.teamRepo.LockFoundedByCode(ctx, exec, in.InvitationCode)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return fmt.Errorf("%w: %s", ErrInvitationCodeNotFound, in.InvitationCode)
			}
			return fmt.Errorf("failed to lock team %s: %w", in.InvitationCode, err)
		}

		if team.TournamentID == nil {
			return fmt.Errorf("%w: team %s has no tournament", ErrAssociatedTournamentNotFound, team.InvitationCode)
		}
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, *team.TournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return fmt.Errorf("%w: tournament %d", ErrAssociatedTournamentNotFound, *team.TournamentID)
			}
			return fmt.Errorf("failed to load tournament %d: %w", *team.TournamentID, err)
		}

		if limit, ok := tournament.TeamCapacity(); ok && team.MemberCount >= limit {
			return fmt.Errorf("%w: the team has reached the maximum of %d members", ErrTeamCapacityExceeded, limit)
		}

		p = newParticipantRow(in, models.RegistrationJoin)
		p.TournamentID = team.TournamentID
		p.InvitationCode = &team.InvitationCode
		p.TeamID = team.FounderParticipantID
		if err := s.participantRepo.Create(ctx, exec, p); err != nil {
			return fmt.Errorf("failed to create member registration: %w", err)
		}

		count, err := s.teamRepo.IncrementMemberCount(ctx, exec, team.ID)
		if err != nil {
			return fmt.Errorf("failed to update team size: %w", err)
		}
		team.MemberCount = count
		p.CurrentTeamSize = count
		p.Team = team
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *participantService) storeTeamLogo(ctx context.Context, team *models.Team, logo *Asset) {
	if logo == nil || s.uploader == nil {
		return
	}
	log := s.logger.With(slog.Int("team_id", team.ID), slog.String("invitation_code", team.InvitationCode))

	if !logo.isImage() {
		metrics.AssetFailures.WithLabelValues("team_logo").Inc()
		log.Warn("team logo skipped: not an image", slog.String("content_type", logo.ContentType))
		return
	}

	key := storage.TeamLogoKey(team.InvitationCode, team.Name)
	if _, err := s.uploader.Upload(ctx, key, logo.ContentType, logo.Reader); err != nil {
		metrics.AssetFailures.WithLabelValues("team_logo").Inc()
		log.Error("team logo upload failed", slog.Any("error", fmt.Errorf("%w: %w", ErrAssetOperationFailed, err)))
		return
	}
	if err := s.teamRepo.UpdateLogoPath(ctx, team.ID, &key); err != nil {
		metrics.AssetFailures.WithLabelValues("team_logo").Inc()
		log.Error("failed to record team logo path", slog.String("key", key), slog.Any("error", err))
		return
	}
	team.LogoPath = &key
}

func (s *participantService) storeConsentDocument(ctx context.Context, p *models.Participant, doc *Asset) {
	if doc == nil || s.uploader == nil {
		return
	}
	log := s.logger.With(slog.Int("participant_id", p.ID))

	key := storage.UniqueDocumentKey("consent", doc.Ext())
	if _, err := s.uploader.Upload(ctx, key, doc.ContentType, doc.Reader); err != nil {
		metrics.AssetFailures.WithLabelValues("parental_consent").Inc()
		log.Error("parental consent upload failed", slog.Any("error", fmt.Errorf("%w: %w", ErrAssetOperationFailed, err)))
		return
	}
	if err := s.participantRepo.UpdateConsentDocument(ctx, p.ID, &key); err != nil {
		metrics.AssetFailures.WithLabelValues("parental_consent").Inc()
		log.Error("failed to record parental consent path", slog.String("key", key), slog.Any("error", err))
		return
	}
	p.ConsentDocument = &key
}

func (s *participantService) announce(ctx context.Context, p *models.Participant) {
	if p.TournamentID == nil {
		return
	}
	count, err := s.participantRepo.CountByTournament(ctx, *p.TournamentID)
	if err != nil {
		s.logger.Warn("failed to count registrations for live feed", slog.Int("tournament_id", *p.TournamentID), slog.Any("error", err))
		return
	}
	s.broadcaster.BroadcastToRoom(live.TournamentRoom(*p.TournamentID), live.Message{
		Type: live.EventParticipantRegistered,
		Payload: map[string]interface{}{
			"tournament_id":     *p.TournamentID,
			"registration_type": p.RegistrationType,
			"registrations":     count,
		},
	})
}

// GetByID возвращает регистрацию по ID.
func (s *participantService) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	p, err := s.participantRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant %d: %w", id, err)
	}
	return p, nil
}

// List нормализует параметры пагинации и возвращает страницу регистраций.
func (s *participantService) List(ctx context.Context, params ListParticipantsParams) (*ParticipantPage, error) {
	if params.Page < 1 {
		params.Page = defaultParticipantsPage
	}
	if params.Limit < 1 {
		params.Limit = defaultParticipantsLimit
	}
	if params.Limit > maxParticipantsLimit {
		params.Limit = maxParticipantsLimit
	}

	participants, total, err := s.participantRepo.List(ctx, repositories.ListParticipantsFilter{
		Search: strings.TrimSpace(params.Search),
		Limit:  params.Limit,
		Offset: (params.Page - 1) * params.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	return &ParticipantPage{
		Data:  participants,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}, nil
}

// Delete удаляет регистрацию и для командных записей освобождает место в
// команде в той же транзакции.
func (s *participantService) Delete(ctx context.Context, id int) error {
	var removed *models.Participant

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		p, err := s.participantRepo.GetByID(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrParticipantNotFound
			}
			return fmt.Errorf("failed to get participant %d: %w", id, err)
		}
		if err := s.participantRepo.Delete(ctx, exec, id); err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrParticipantNotFound
			}
			return fmt.Errorf("failed to delete participant %d: %w", id, err)
		}
		if p.InvitationCode != nil && p.RegistrationType != models.RegistrationSolitaire {
			err := s.teamRepo.DecrementMemberCountByCode(ctx, exec, *p.InvitationCode)
			if err != nil && !errors.Is(err, repositories.ErrTeamNotFound) {
				return fmt.Errorf("failed to release team slot: %w", err)
			}
		}
		removed = p
		return nil
	})
	if err != nil {
		return err
	}

	if removed.ConsentDocument != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *removed.ConsentDocument); err != nil {
			metrics.AssetFailures.WithLabelValues("parental_consent").Inc()
			s.logger.Warn("failed to delete parental consent document", slog.Int("participant_id", id), slog.Any("error", err))
		}
	}
	return nil
}
