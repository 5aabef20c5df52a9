package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/tournament-registration/models"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantInvalid  = errors.New("participant violates a table constraint")
)

// ListParticipantsFilter задаёт поиск по имени и смещение выборки.
type ListParticipantsFilter struct {
	Search string
	Limit  int
	Offset int
}

// ParticipantRepository определяет интерфейс для работы с регистрациями участников.
type ParticipantRepository interface {
	// Create сохраняет регистрацию через exec или напрямую через базу, если exec равен nil.
	Create(ctx context.Context, exec SQLExecutor, participant *models.Participant) error
	// GetByID возвращает регистрацию вместе с командой.
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error)
	// List возвращает страницу регистраций и общее число совпадений.
	List(ctx context.Context, filter ListParticipantsFilter) ([]models.Participant, int, error)
	// CountByTournament считает регистрации турнира.
	CountByTournament(ctx context.Context, tournamentID int) (int, error)
	// UpdateConsentDocument сохраняет путь к согласию родителей.
	UpdateConsentDocument(ctx context.Context, id int, path *string) error
	// Delete удаляет регистрацию.
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

// NewPostgresParticipantRepository создаёт репозиторий участников.
func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

// currentTeamSize берётся из счётчика команды, запись без команды считается за одного.
const participantSelect = `
	SELECT
		p.id, p.tournament_id, p.username, p.rank, p.platform, p.registration_type,
		p.invitation_code, p.team_id, p.contact_info, p.consent_document, p.created_at,
		COALESCE(t.member_count, 1),
		t.id, t.name, t.tag, t.logo_path
	FROM participants p
	LEFT JOIN teams t ON t.invitation_code = p.invitation_code`

func scanParticipant(row rowScanner) (*models.Participant, error) {
	var (
		p               models.Participant
		tournamentID    sql.NullInt64
		rank            sql.NullString
		invitationCode  sql.NullString
		teamID          sql.NullInt64
		contactInfo     sql.NullString
		consentDocument sql.NullString
		aggID           sql.NullInt64
		aggName         sql.NullString
		aggTag          sql.NullString
		aggLogo         sql.NullString
	)

	err := row.Scan(
		&p.ID, &tournamentID, &p.Username, &rank, &p.Platform, &p.RegistrationType,
		&invitationCode, &teamID, &contactInfo, &consentDocument, &p.CreatedAt,
		&p.CurrentTeamSize,
		&aggID, &aggName, &aggTag, &aggLogo,
	)
	if err != nil {
		return nil, err
	}

	p.TournamentID = nullInt(tournamentID)
	p.Rank = nullString(rank)
	p.InvitationCode = nullString(invitationCode)
	p.TeamID = nullInt(teamID)
	p.ContactInfo = nullString(contactInfo)
	p.ConsentDocument = nullString(consentDocument)

	if aggID.Valid {
		p.Team = &models.Team{
			ID:             int(aggID.Int64),
			InvitationCode: invitationCode.String,
			Name:           aggName.String,
			Tag:            nullString(aggTag),
			LogoPath:       nullString(aggLogo),
			MemberCount:    p.CurrentTeamSize,
		}
	}
	return &p, nil
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (
			tournament_id, username, rank, platform, registration_type,
			invitation_code, team_id, contact_info, consent_document
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		p.TournamentID, p.Username, p.Rank, p.Platform, p.RegistrationType,
		p.InvitationCode, p.TeamID, p.ContactInfo, p.ConsentDocument,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", ErrParticipantInvalid, err)
		}
		return err
	}
	if p.CurrentTeamSize == 0 {
		p.CurrentTeamSize = 1
	}
	return nil
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error) {
	p, err := scanParticipant(executorOr(exec, r.db).QueryRowContext(ctx, participantSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresParticipantRepository) List(ctx context.Context, filter ListParticipantsFilter) ([]models.Participant, int, error) {
	where := ""
	args := []interface{}{}
	argID := 1

	if filter.Search != "" {
		where = fmt.Sprintf(` WHERE p.username ILIKE $%d ESCAPE '\'`, argID)
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		argID++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := participantSelect + where + ` ORDER BY p.created_at DESC, p.id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		p, scanErr := scanParticipant(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		participants = append(participants, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return participants, total, nil
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants WHERE tournament_id = $1`, tournamentID).Scan(&count)
	return count, err
}

func (r *postgresParticipantRepository) UpdateConsentDocument(ctx context.Context, id int, path *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE participants SET consent_document = $1 WHERE id = $2`, path, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := executorOr(exec, r.db).ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
