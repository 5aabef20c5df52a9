package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/tournament-registration/live"
	"github.com/Dosada05/tournament-registration/models"
	"github.com/Dosada05/tournament-registration/repositories"
	"github.com/Dosada05/tournament-registration/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore backs all fake repositories so that the fake transactor can
// snapshot and restore it as one unit.
type memStore struct {
	mu           sync.Mutex
	nextID       int
	tournaments  map[int]models.Tournament
	brackets     map[int]models.Bracket
	participants map[int]models.Participant
	teams        map[int]models.Team
	users        map[int]models.User
}

func newMemStore() *memStore {
	return &memStore{
		tournaments:  map[int]models.Tournament{},
		brackets:     map[int]models.Bracket{},
		participants: map[int]models.Participant{},
		teams:        map[int]models.Team{},
		users:        map[int]models.User{},
	}
}

func (m *memStore) id() int {
	m.nextID++
	return m.nextID
}

type memSnapshot struct {
	nextID       int
	tournaments  map[int]models.Tournament
	brackets     map[int]models.Bracket
	participants map[int]models.Participant
	teams        map[int]models.Team
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memSnapshot{
		nextID:       m.nextID,
		tournaments:  cloneMap(m.tournaments),
		brackets:     cloneMap(m.brackets),
		participants: cloneMap(m.participants),
		teams:        cloneMap(m.teams),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = s.nextID
	m.tournaments = s.tournaments
	m.brackets = s.brackets
	m.participants = s.participants
	m.teams = s.teams
}

func (m *memStore) teamByCodeLocked(code string) (models.Team, bool) {
	for _, t := range m.teams {
		if t.InvitationCode == code {
			return t, true
		}
	}
	return models.Team{}, false
}

func (m *memStore) countByCode(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.participants {
		if p.InvitationCode != nil && *p.InvitationCode == code {
			n++
		}
	}
	return n
}

// fakeTransactor serializes units of work and rolls the store back on error.
type fakeTransactor struct {
	mu    sync.Mutex
	store *memStore
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := f.store.snapshot()
	if err := fn(nil); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

type fakeTournamentRepo struct{ store *memStore }

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t.ID = r.store.id()
	t.CreatedAt = time.Unix(int64(t.ID), 0)
	t.UpdatedAt = t.CreatedAt
	cp := *t
	cp.Brackets = nil
	r.store.tournaments[t.ID] = cp
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	t.SliderImages = append([]string{}, t.SliderImages...)
	return &t, nil
}

func (r *fakeTournamentRepo) GetLatest(ctx context.Context) (*models.Tournament, error) {
	r.store.mu.Lock()
	latest := 0
	for id := range r.store.tournaments {
		if id > latest {
			latest = id
		}
	}
	r.store.mu.Unlock()
	if latest == 0 {
		return nil, repositories.ErrTournamentNotFound
	}
	return r.GetByID(ctx, nil, latest)
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	all := make([]models.Tournament, 0, len(r.store.tournaments))
	for _, t := range r.store.tournaments {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if filter.Offset >= len(all) {
		return []models.Tournament{}, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	cp := *t
	cp.Brackets = nil
	r.store.tournaments[t.ID] = cp
	return nil
}

func (r *fakeTournamentRepo) mutate(id int, fn func(t *models.Tournament)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	fn(&t)
	r.store.tournaments[id] = t
	return nil
}

func (r *fakeTournamentRepo) UpdateBannerImage(ctx context.Context, id int, path *string) error {
	return r.mutate(id, func(t *models.Tournament) { t.BannerImage = path })
}

func (r *fakeTournamentRepo) UpdateRulesPDF(ctx context.Context, id int, path *string) error {
	return r.mutate(id, func(t *models.Tournament) { t.RulesPDF = path })
}

func (r *fakeTournamentRepo) UpdateSliderImages(ctx context.Context, id int, paths []string) error {
	return r.mutate(id, func(t *models.Tournament) { t.SliderImages = append([]string{}, paths...) })
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.store.tournaments, id)
	for bid, b := range r.store.brackets {
		if b.TournamentID == id {
			delete(r.store.brackets, bid)
		}
	}
	return nil
}

type fakeBracketRepo struct{ store *memStore }

func (r *fakeBracketRepo) Create(ctx context.Context, b *models.Bracket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if b.Size <= 0 {
		return fmt.Errorf("%w: size must be positive", repositories.ErrBracketInvalid)
	}
	if _, ok := r.store.tournaments[b.TournamentID]; !ok {
		return repositories.ErrBracketTournamentNotFound
	}
	b.ID = r.store.id()
	r.store.brackets[b.ID] = *b
	return nil
}

func (r *fakeBracketRepo) ListByTournamentID(ctx context.Context, tournamentID int) ([]models.Bracket, error) {
	byTournament, _ := r.ListByTournamentIDs(ctx, []int{tournamentID})
	if byTournament[tournamentID] == nil {
		return []models.Bracket{}, nil
	}
	return byTournament[tournamentID], nil
}

func (r *fakeBracketRepo) ListByTournamentIDs(ctx context.Context, ids []int) (map[int][]models.Bracket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wanted := make(map[int]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := map[int][]models.Bracket{}
	for _, b := range r.store.brackets {
		if wanted[b.TournamentID] {
			out[b.TournamentID] = append(out[b.TournamentID], b)
		}
	}
	for id := range out {
		sort.Slice(out[id], func(i, j int) bool { return out[id][i].ID < out[id][j].ID })
	}
	return out, nil
}

type fakeParticipantRepo struct {
	store     *memStore
	createErr error
}

func (r *fakeParticipantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p.ID = r.store.id()
	p.CreatedAt = time.Unix(int64(p.ID), 0)
	cp := *p
	cp.Team = nil
	r.store.participants[p.ID] = cp
	return nil
}

func (r *fakeParticipantRepo) hydrateLocked(p models.Participant) models.Participant {
	p.CurrentTeamSize = 1
	if p.InvitationCode != nil {
		if team, ok := r.store.teamByCodeLocked(*p.InvitationCode); ok {
			p.CurrentTeamSize = team.MemberCount
			p.Team = &team
		}
	}
	return p
}

func (r *fakeParticipantRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Participant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	p = r.hydrateLocked(p)
	return &p, nil
}

func (r *fakeParticipantRepo) List(ctx context.Context, filter repositories.ListParticipantsFilter) ([]models.Participant, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matched := make([]models.Participant, 0)
	for _, p := range r.store.participants {
		if filter.Search == "" || strings.Contains(strings.ToLower(p.Username), strings.ToLower(filter.Search)) {
			matched = append(matched, r.hydrateLocked(p))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := len(matched)
	if filter.Offset >= len(matched) {
		return []models.Participant{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (r *fakeParticipantRepo) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for _, p := range r.store.participants {
		if p.TournamentID != nil && *p.TournamentID == tournamentID {
			n++
		}
	}
	return n, nil
}

func (r *fakeParticipantRepo) UpdateConsentDocument(ctx context.Context, id int, path *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.ConsentDocument = path
	r.store.participants[id] = p
	return nil
}

func (r *fakeParticipantRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.participants[id]; !ok {
		return repositories.ErrParticipantNotFound
	}
	delete(r.store.participants, id)
	for tid, team := range r.store.teams {
		if team.FounderParticipantID != nil && *team.FounderParticipantID == id {
			team.FounderParticipantID = nil
			r.store.teams[tid] = team
		}
	}
	return nil
}

type fakeTeamRepo struct{ store *memStore }

func (r *fakeTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.teamByCodeLocked(team.InvitationCode); exists {
		return repositories.ErrInvitationCodeConflict
	}
	team.ID = r.store.id()
	team.CreatedAt = time.Unix(int64(team.ID), 0)
	r.store.teams[team.ID] = *team
	return nil
}

// GetByCode нужен тестам для проверки счётчика состава.
func (r *fakeTeamRepo) GetByCode(ctx context.Context, code string) (*models.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team, ok := r.store.teamByCodeLocked(code)
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return &team, nil
}

func (r *fakeTeamRepo) LockFoundedByCode(ctx context.Context, exec repositories.SQLExecutor, code string) (*models.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team, ok := r.store.teamByCodeLocked(code)
	if !ok || team.FounderParticipantID == nil {
		return nil, repositories.ErrTeamNotFound
	}
	founder, ok := r.store.participants[*team.FounderParticipantID]
	if !ok || founder.RegistrationType != models.RegistrationTeam {
		return nil, repositories.ErrTeamNotFound
	}
	return &team, nil
}

func (r *fakeTeamRepo) IncrementMemberCount(ctx context.Context, exec repositories.SQLExecutor, teamID int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team, ok := r.store.teams[teamID]
	if !ok {
		return 0, repositories.ErrTeamNotFound
	}
	team.MemberCount++
	r.store.teams[teamID] = team
	return team.MemberCount, nil
}

func (r *fakeTeamRepo) DecrementMemberCountByCode(ctx context.Context, exec repositories.SQLExecutor, code string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team, ok := r.store.teamByCodeLocked(code)
	if !ok {
		return repositories.ErrTeamNotFound
	}
	if team.MemberCount > 0 {
		team.MemberCount--
	}
	r.store.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) UpdateLogoPath(ctx context.Context, teamID int, path *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team, ok := r.store.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.LogoPath = path
	r.store.teams[teamID] = team
	return nil
}

type fakeUploader struct {
	mu        sync.Mutex
	files     map[string]string
	deleted   []string
	uploadErr error
	// failKey makes only this key fail.
	failKey string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{files: map[string]string{}}
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.uploadErr != nil {
		return nil, u.uploadErr
	}
	if u.failKey != "" && u.failKey == key {
		return nil, errors.New("upload rejected")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.files[key] = string(data)
	return &storage.UploadResult{Key: key, Location: "/public/" + key}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.files, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string { return "/public/" + key }

func (u *fakeUploader) has(key string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.files[key]
	return ok
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []live.Message
	rooms    []string
}

func (b *recordingBroadcaster) BroadcastToRoom(roomID string, msg live.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, roomID)
	b.messages = append(b.messages, msg)
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.messages))
	for i, m := range b.messages {
		out[i] = m.Type
	}
	return out
}

type fakeUserRepo struct{ store *memStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if u.Username != nil && user.Username != nil && *u.Username == *user.Username {
			return repositories.ErrUserUsernameConflict
		}
	}
	user.ID = r.store.id()
	user.CreatedAt = time.Unix(int64(user.ID), 0)
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.LastLoginAt = &at
	r.store.users[id] = u
	return nil
}
