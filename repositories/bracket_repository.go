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
	ErrBracketInvalid            = errors.New("bracket violates a table constraint")
	ErrBracketTournamentNotFound = errors.New("bracket references a missing tournament")
)

// BracketRepository определяет интерфейс для работы с сетками турниров.
type BracketRepository interface {
	// Create сохраняет сетку. Недопустимые значения дают ErrBracketInvalid.
	Create(ctx context.Context, bracket *models.Bracket) error
	// ListByTournamentID возвращает сетки турнира в порядке создания.
	ListByTournamentID(ctx context.Context, tournamentID int) ([]models.Bracket, error)
	// ListByTournamentIDs возвращает сетки нескольких турниров одним запросом.
	ListByTournamentIDs(ctx context.Context, tournamentIDs []int) (map[int][]models.Bracket, error)
}

type postgresBracketRepository struct {
	db *sql.DB
}

// NewPostgresBracketRepository создаёт репозиторий сеток.
func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) Create(ctx context.Context, b *models.Bracket) error {
	query := `
		INSERT INTO brackets (tournament_id, name, start_date, match_check_in, style, third_place_match, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		b.TournamentID, b.Name, b.StartDate, b.MatchCheckIn, b.Style, b.ThirdPlaceMatch, b.Size,
	).Scan(&b.ID)
	if err != nil {
		switch {
		case isCheckViolation(err):
			return fmt.Errorf("%w: %v", ErrBracketInvalid, err)
		case isForeignKeyViolation(err):
			return ErrBracketTournamentNotFound
		}
		return err
	}
	return nil
}

func (r *postgresBracketRepository) ListByTournamentID(ctx context.Context, tournamentID int) ([]models.Bracket, error) {
	byTournament, err := r.ListByTournamentIDs(ctx, []int{tournamentID})
	if err != nil {
		return nil, err
	}
	brackets := byTournament[tournamentID]
	if brackets == nil {
		brackets = []models.Bracket{}
	}
	return brackets, nil
}

func (r *postgresBracketRepository) ListByTournamentIDs(ctx context.Context, tournamentIDs []int) (map[int][]models.Bracket, error) {
	result := make(map[int][]models.Bracket, len(tournamentIDs))
	if len(tournamentIDs) == 0 {
		return result, nil
	}

	ids := make([]int64, len(tournamentIDs))
	for i, id := range tournamentIDs {
		ids[i] = int64(id)
	}

	query := `
		SELECT id, tournament_id, name, start_date, match_check_in, style, third_place_match, size
		FROM brackets
		WHERE tournament_id = ANY($1)
		ORDER BY tournament_id, id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b models.Bracket
		if err := rows.Scan(
			&b.ID, &b.TournamentID, &b.Name, &b.StartDate, &b.MatchCheckIn, &b.Style, &b.ThirdPlaceMatch, &b.Size,
		); err != nil {
			return nil, err
		}
		result[b.TournamentID] = append(result[b.TournamentID], b)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
