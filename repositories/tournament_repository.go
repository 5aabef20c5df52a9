package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-registration/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentInvalid  = errors.New("tournament violates a table constraint")
)

// ListTournamentsFilter задаёт фильтр по игре и смещение выборки.
type ListTournamentsFilter struct {
	Game   *string
	Limit  int
	Offset int
}

// TournamentRepository определяет интерфейс для работы с турнирами.
type TournamentRepository interface {
	// Create сохраняет турнир и заполняет ID и временные метки.
	Create(ctx context.Context, tournament *models.Tournament) error
	// GetByID возвращает турнир по ID.
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetLatest возвращает последний созданный турнир.
	GetLatest(ctx context.Context) (*models.Tournament, error)
	// List возвращает турниры, новые первыми.
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	// Update перезаписывает изменяемые поля турнира.
	Update(ctx context.Context, tournament *models.Tournament) error
	// UpdateBannerImage сохраняет путь к баннеру.
	UpdateBannerImage(ctx context.Context, id int, path *string) error
	// UpdateRulesPDF сохраняет путь к PDF с правилами.
	UpdateRulesPDF(ctx context.Context, id int, path *string) error
	// UpdateSliderImages заменяет список изображений слайдера.
	UpdateSliderImages(ctx context.Context, id int, paths []string) error
	// Delete удаляет турнир вместе с сетками.
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

// NewPostgresTournamentRepository создаёт репозиторий турниров.
func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `
	id, game, name, start_date, description, rules, prizes,
	format_category, format, check_in, check_in_date, max_participants,
	allow_teams, max_team_members, public_results, banner_image, rules_pdf,
	slider_images, whatsapp_link, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	var (
		t              models.Tournament
		description    sql.NullString
		rules          sql.NullString
		prizes         sql.NullString
		checkInDate    sql.NullTime
		maxTeamMembers sql.NullInt64
		bannerImage    sql.NullString
		rulesPDF       sql.NullString
		whatsappLink   sql.NullString
		sliderImages   pq.StringArray
	)

	err := row.Scan(
		&t.ID, &t.Game, &t.Name, &t.StartDate, &description, &rules, &prizes,
		&t.FormatCategory, &t.Format, &t.CheckIn, &checkInDate, &t.MaxParticipants,
		&t.AllowTeams, &maxTeamMembers, &t.PublicResults, &bannerImage, &rulesPDF,
		&sliderImages, &whatsappLink, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Description = nullString(description)
	t.Rules = nullString(rules)
	t.Prizes = nullString(prizes)
	if checkInDate.Valid {
		v := checkInDate.Time
		t.CheckInDate = &v
	}
	t.MaxTeamMembers = nullInt(maxTeamMembers)
	t.BannerImage = nullString(bannerImage)
	t.RulesPDF = nullString(rulesPDF)
	t.WhatsappLink = nullString(whatsappLink)
	t.SliderImages = []string(sliderImages)
	if t.SliderImages == nil {
		t.SliderImages = []string{}
	}
	t.Brackets = []models.Bracket{}
	return &t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	if t.SliderImages == nil {
		t.SliderImages = []string{}
	}
	query := `
		INSERT INTO tournaments (
			game, name, start_date, description, rules, prizes,
			format_category, format, check_in, check_in_date, max_participants,
			allow_teams, max_team_members, public_results, banner_image, rules_pdf,
			slider_images, whatsapp_link
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Game, t.Name, t.StartDate, t.Description, t.Rules, t.Prizes,
		t.FormatCategory, t.Format, t.CheckIn, t.CheckInDate, t.MaxParticipants,
		t.AllowTeams, t.MaxTeamMembers, t.PublicResults, t.BannerImage, t.RulesPDF,
		pq.Array(t.SliderImages), t.WhatsappLink,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t, err := scanTournament(executorOr(exec, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetLatest(ctx context.Context) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments ORDER BY created_at DESC, id DESC LIMIT 1`

	t, err := scanTournament(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Game != nil {
		query += fmt.Sprintf(" AND game = $%d", argID)
		args = append(args, *filter.Game)
		argID++
	}

	query += " ORDER BY created_at DESC, id DESC"

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
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			game = $1,
			name = $2,
			start_date = $3,
			description = $4,
			rules = $5,
			prizes = $6,
			format_category = $7,
			format = $8,
			check_in = $9,
			check_in_date = $10,
			max_participants = $11,
			allow_teams = $12,
			max_team_members = $13,
			public_results = $14,
			whatsapp_link = $15,
			updated_at = NOW()
		WHERE id = $16
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Game, t.Name, t.StartDate, t.Description, t.Rules, t.Prizes,
		t.FormatCategory, t.Format, t.CheckIn, t.CheckInDate, t.MaxParticipants,
		t.AllowTeams, t.MaxTeamMembers, t.PublicResults, t.WhatsappLink,
		t.ID,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTournamentNotFound
	}
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) UpdateBannerImage(ctx context.Context, id int, path *string) error {
	return r.updateColumn(ctx, "banner_image", id, path)
}

func (r *postgresTournamentRepository) UpdateRulesPDF(ctx context.Context, id int, path *string) error {
	return r.updateColumn(ctx, "rules_pdf", id, path)
}

func (r *postgresTournamentRepository) UpdateSliderImages(ctx context.Context, id int, paths []string) error {
	if paths == nil {
		paths = []string{}
	}
	return r.updateColumn(ctx, "slider_images", id, pq.Array(paths))
}

// column всегда константа из этого файла.
func (r *postgresTournamentRepository) updateColumn(ctx context.Context, column string, id int, value interface{}) error {
	query := fmt.Sprintf(`UPDATE tournaments SET %s = $1, updated_at = NOW() WHERE id = $2`, column)
	result, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if isCheckViolation(err) {
		return fmt.Errorf("%w: %v", ErrTournamentInvalid, err)
	}
	return err
}
