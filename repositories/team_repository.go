package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/tournament-registration/models"
)

var (
	ErrTeamNotFound           = errors.New("team not found")
	ErrInvitationCodeConflict = errors.New("invitation code already in use")
	ErrTeamFounderInvalid     = errors.New("team founder reference is invalid")
)

const invitationCodeUniqueConstr = "teams_invitation_code_key"

// TeamRepository определяет интерфейс для работы с командами.
type TeamRepository interface {
	// Create сохраняет команду. Повтор кода приглашения даёт ErrInvitationCodeConflict.
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	// LockFoundedByCode возвращает команду по коду и блокирует её строку до конца
	// транзакции. Подходят только команды, чей основатель ещё зарегистрирован
	// с registration_type 'team'.
	LockFoundedByCode(ctx context.Context, exec SQLExecutor, code string) (*models.Team, error)
	// IncrementMemberCount увеличивает счётчик состава и возвращает новое значение.
	IncrementMemberCount(ctx context.Context, exec SQLExecutor, teamID int) (int, error)
	// DecrementMemberCountByCode уменьшает счётчик состава, но не ниже нуля.
	DecrementMemberCountByCode(ctx context.Context, exec SQLExecutor, code string) error
	// UpdateLogoPath сохраняет путь к логотипу команды.
	UpdateLogoPath(ctx context.Context, teamID int, path *string) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

// NewPostgresTeamRepository создаёт репозиторий команд.
func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `
	t.id, t.invitation_code, t.tournament_id, t.founder_participant_id, t.name, t.tag,
	t.description, t.is_public, t.logo_path, t.member_count, t.created_at`

func scanTeam(row rowScanner) (*models.Team, error) {
	var (
		team         models.Team
		tournamentID sql.NullInt64
		founderID    sql.NullInt64
		tag          sql.NullString
		description  sql.NullString
		logoPath     sql.NullString
	)
	err := row.Scan(
		&team.ID, &team.InvitationCode, &tournamentID, &founderID, &team.Name, &tag,
		&description, &team.IsPublic, &logoPath, &team.MemberCount, &team.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	team.TournamentID = nullInt(tournamentID)
	team.FounderParticipantID = nullInt(founderID)
	team.Tag = nullString(tag)
	team.Description = nullString(description)
	team.LogoPath = nullString(logoPath)
	return &team, nil
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (invitation_code, tournament_id, founder_participant_id, name, tag, description, is_public, logo_path, member_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		team.InvitationCode, team.TournamentID, team.FounderParticipantID, team.Name, team.Tag,
		team.Description, team.IsPublic, team.LogoPath, team.MemberCount,
	).Scan(&team.ID, &team.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err, invitationCodeUniqueConstr):
			return ErrInvitationCodeConflict
		case isForeignKeyViolation(err):
			return ErrTeamFounderInvalid
		}
		return err
	}
	return nil
}

func (r *postgresTeamRepository) LockFoundedByCode(ctx context.Context, exec SQLExecutor, code string) (*models.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		JOIN participants f ON f.id = t.founder_participant_id
		WHERE t.invitation_code = $1 AND f.registration_type = 'team'
		FOR UPDATE OF t`

	team, err := scanTeam(executorOr(exec, r.db).QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) IncrementMemberCount(ctx context.Context, exec SQLExecutor, teamID int) (int, error) {
	var count int
	err := executorOr(exec, r.db).QueryRowContext(ctx,
		`UPDATE teams SET member_count = member_count + 1 WHERE id = $1 RETURNING member_count`,
		teamID,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTeamNotFound
		}
		return 0, err
	}
	return count, nil
}

func (r *postgresTeamRepository) DecrementMemberCountByCode(ctx context.Context, exec SQLExecutor, code string) error {
	result, err := executorOr(exec, r.db).ExecContext(ctx,
		`UPDATE teams SET member_count = GREATEST(member_count - 1, 0) WHERE invitation_code = $1`,
		code,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateLogoPath(ctx context.Context, teamID int, path *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE teams SET logo_path = $1 WHERE id = $2`, path, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
