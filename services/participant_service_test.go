package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Dosada05/tournament-registration/live"
	"github.com/Dosada05/tournament-registration/models"
	"github.com/Dosada05/tournament-registration/repositories"
	"github.com/Dosada05/tournament-registration/utils"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type participantFixture struct {
	store        *memStore
	tournaments  *fakeTournamentRepo
	participants *fakeParticipantRepo
	teams        *fakeTeamRepo
	uploader     *fakeUploader
	broadcaster  *recordingBroadcaster
	svc          ParticipantService
}

func newParticipantFixture(t *testing.T, opts ...ParticipantServiceOption) *participantFixture {
	t.Helper()
	store := newMemStore()
	f := &participantFixture{
		store:        store,
		tournaments:  &fakeTournamentRepo{store: store},
		participants: &fakeParticipantRepo{store: store},
		teams:        &fakeTeamRepo{store: store},
		uploader:     newFakeUploader(),
		broadcaster:  &recordingBroadcaster{},
	}
	f.svc = NewParticipantService(
		&fakeTransactor{store: store},
		f.participants, f.teams, f.tournaments,
		f.uploader, f.broadcaster, discardLogger(), opts...,
	)
	return f
}

func (f *participantFixture) tournament(t *testing.T, allowTeams bool, maxMembers *int) int {
	t.Helper()
	tour := &models.Tournament{
		Game:            "Valorant",
		Name:            "Cup",
		MaxParticipants: 32,
		AllowTeams:      allowTeams,
		MaxTeamMembers:  maxMembers,
	}
	require.NoError(t, f.tournaments.Create(context.Background(), tour))
	return tour.ID
}

func fixedCodes(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code
	}
}

func TestRegister_Solo(t *testing.T) {
	f := newParticipantFixture(t)
	tid := f.tournament(t, false, nil)

	p, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		TournamentID:     &tid,
		Username:         "  ace  ",
		Platform:         "PC",
		RegistrationType: "Solitaire",
		DiscordID:        "ace#0001",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RegistrationSolitaire, p.RegistrationType)
	assert.Equal(t, "ace", p.Username)
	assert.Equal(t, models.PlatformPC, p.Platform)
	assert.Nil(t, p.TeamID)
	assert.Nil(t, p.InvitationCode)
	assert.Equal(t, 1, p.CurrentTeamSize)
	require.NotNil(t, p.ContactInfo)
	assert.Equal(t, "ace#0001", *p.ContactInfo)
	assert.Len(t, f.store.participants, 1)
	assert.Empty(t, f.store.teams)

	assert.Equal(t, []string{live.EventParticipantRegistered}, f.broadcaster.types())
	assert.Equal(t, live.TournamentRoom(tid), f.broadcaster.rooms[0])
}

func TestRegister_SoloUnknownTournament(t *testing.T) {
	f := newParticipantFixture(t)
	missing := 999

	_, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		TournamentID:     &missing,
		Username:         "ace",
		Platform:         "pc",
		RegistrationType: "solitaire",
	})
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	assert.Empty(t, f.store.participants)
}

func TestRegister_InvalidType(t *testing.T) {
	f := newParticipantFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		Username:         "ace",
		Platform:         "pc",
		RegistrationType: "duo",
	})
	assert.ErrorIs(t, err, ErrInvalidRegistrationType)
	assert.Empty(t, f.store.participants)
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterParticipantInput
	}{
		{"missing username", RegisterParticipantInput{Platform: "pc", RegistrationType: "solitaire"}},
		{"unknown platform", RegisterParticipantInput{Username: "ace", Platform: "dreamcast", RegistrationType: "solitaire"}},
		{"join without code", RegisterParticipantInput{Username: "ace", Platform: "pc", RegistrationType: "join"}},
		{"tag too long", RegisterParticipantInput{TournamentID: utils.Ptr(1), Username: "ace", Platform: "pc", RegistrationType: "team", TeamTag: "TOOLONG"}},
		{"team without tournament", RegisterParticipantInput{Username: "ace", Platform: "pc", RegistrationType: "team", TeamName: "Loners"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newParticipantFixture(t)
			_, err := f.svc.Register(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrValidationFailed)
			assert.Empty(t, f.store.participants)
		})
	}
}

func TestRegister_TeamFounding(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("ABCD-EF23")))
	tid := f.tournament(t, true, utils.Ptr(5))

	p, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		TournamentID:     &tid,
		Username:         "captain",
		Platform:         "ps5",
		RegistrationType: "team",
		TeamName:         "Night Owls",
		TeamTag:          "NOWL",
		IsPublic:         true,
	})
	require.NoError(t, err)

	require.NotNil(t, p.InvitationCode)
	assert.Equal(t, "ABCD-EF23", *p.InvitationCode)
	assert.Equal(t, models.RegistrationTeam, p.RegistrationType)
	assert.Equal(t, 1, p.CurrentTeamSize)
	require.NotNil(t, p.Team)
	assert.Equal(t, "Night Owls", p.Team.Name)
	assert.Equal(t, 1, p.Team.MemberCount)
	require.NotNil(t, p.Team.FounderParticipantID)
	assert.Equal(t, p.ID, *p.Team.FounderParticipantID)

	team, err := f.teams.GetByCode(context.Background(), "ABCD-EF23")
	require.NoError(t, err)
	assert.Equal(t, 1, team.MemberCount)
	assert.True(t, team.IsPublic)
}

func TestRegister_TeamNameFallsBackToUsername(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("WXYZ-2345")))
	tid := f.tournament(t, true, nil)

	p, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		TournamentID:     &tid,
		Username:         "solo captain",
		Platform:         "pc",
		RegistrationType: "team",
	})
	require.NoError(t, err)
	require.NotNil(t, p.Team)
	assert.Equal(t, "solo captain", p.Team.Name)
}

func TestRegister_TeamCodeConflictRollsBack(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("SAME-CODE")))
	tid := f.tournament(t, true, nil)
	in := RegisterParticipantInput{TournamentID: &tid, Username: "a", Platform: "pc", RegistrationType: "team"}

	_, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)

	in.Username = "b"
	_, err = f.svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvitationCodeConflict)
	assert.Len(t, f.store.participants, 1, "founder row of the failed team must be rolled back")
	assert.Len(t, f.store.teams, 1)
}

func TestRegister_TeamLogoStored(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("LOGO-2345")))
	tid := f.tournament(t, true, nil)

	p, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		TournamentID:     &tid,
		Username:         "cap",
		Platform:         "pc",
		RegistrationType: "team",
		TeamName:         "Red Fox",
		TeamLogo:         &Asset{Filename: "fox.jpg", ContentType: "image/jpeg", Reader: strings.NewReader("img")},
	})
	require.NoError(t, err)
	require.NotNil(t, p.Team.LogoPath)
	assert.Equal(t, "images/LOGO-2345_Red_Fox.jpg", *p.Team.LogoPath)
	assert.True(t, f.uploader.has("images/LOGO-2345_Red_Fox.jpg"))
}

func TestRegister_TeamLogosWithSameNameDoNotCollide(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("FOXA-2345", "FOXB-2345")))
	tid := f.tournament(t, true, nil)

	var paths []string
	for _, captain := range []string{"first", "second"} {
		p, err := f.svc.Register(context.Background(), RegisterParticipantInput{
			TournamentID:     &tid,
			Username:         captain,
			Platform:         "pc",
			RegistrationType: "team",
			TeamName:         "Red Fox",
			TeamLogo:         &Asset{Filename: "fox.jpg", ContentType: "image/jpeg", Reader: strings.NewReader(captain)},
		})
		require.NoError(t, err)
		require.NotNil(t, p.Team.LogoPath)
		paths = append(paths, *p.Team.LogoPath)
	}
	assert.NotEqual(t, paths[0], paths[1])
	assert.True(t, f.uploader.has(paths[0]))
	assert.True(t, f.uploader.has(paths[1]))
}

func TestRegister_TeamRequiresTournament(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("NONE-2345")))

	_, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		Username:         "captain",
		Platform:         "pc",
		RegistrationType: "team",
		TeamName:         "Drifters",
	})
	require.ErrorIs(t, err, ErrValidationFailed)

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "tournamentId")
	assert.Empty(t, f.store.participants)
	assert.Empty(t, f.store.teams)
}

func TestRegister_TeamLogoFailureIsNotFatal(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("FAIL-2345")))
	f.uploader.uploadErr = errors.New("bucket unavailable")
	tid := f.tournament(t, true, nil)

	p, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		TournamentID:     &tid,
		Username:         "cap",
		Platform:         "pc",
		RegistrationType: "team",
		TeamLogo:         &Asset{Filename: "fox.png", ContentType: "image/png", Reader: strings.NewReader("img")},
		ParentalConsent:  &Asset{Filename: "consent.pdf", ContentType: "application/pdf", Reader: strings.NewReader("pdf")},
	})
	require.NoError(t, err)
	assert.Nil(t, p.Team.LogoPath)
	assert.Nil(t, p.ConsentDocument)
	assert.Len(t, f.store.teams, 1)
}

func TestRegister_ParentalConsentStored(t *testing.T) {
	f := newParticipantFixture(t)

	p, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		Username:         "minor",
		Platform:         "mobile",
		RegistrationType: "solitaire",
		ParentalConsent:  &Asset{Filename: "Consent.PDF", ContentType: "application/pdf", Reader: strings.NewReader("pdf")},
	})
	require.NoError(t, err)
	require.NotNil(t, p.ConsentDocument)
	assert.True(t, strings.HasPrefix(*p.ConsentDocument, "documents/consent_"))
	assert.True(t, strings.HasSuffix(*p.ConsentDocument, ".pdf"))
	assert.True(t, f.uploader.has(*p.ConsentDocument))

	stored, err := f.svc.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ConsentDocument, stored.ConsentDocument)
}

func foundTeam(t *testing.T, f *participantFixture, tid int) string {
	t.Helper()
	p, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		TournamentID:     &tid,
		Username:         "captain",
		Platform:         "pc",
		RegistrationType: "team",
	})
	require.NoError(t, err)
	return *p.InvitationCode
}

func TestRegister_JoinIncrementsTeam(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("JOIN-2345")))
	tid := f.tournament(t, true, utils.Ptr(5))
	code := foundTeam(t, f, tid)

	p, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		Username:         "member",
		Platform:         "pc",
		RegistrationType: "join",
		InvitationCode:   " join-2345 ",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RegistrationJoin, p.RegistrationType)
	assert.Equal(t, 2, p.CurrentTeamSize)
	require.NotNil(t, p.TournamentID)
	assert.Equal(t, tid, *p.TournamentID, "joiners inherit the team's tournament")
	require.NotNil(t, p.TeamID)
	assert.Equal(t, *p.Team.FounderParticipantID, *p.TeamID)

	team, err := f.teams.GetByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, 2, team.MemberCount)
	assert.Equal(t, f.store.countByCode(code), team.MemberCount)
}

func TestRegister_JoinUnknownCode(t *testing.T) {
	f := newParticipantFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		Username:         "member",
		Platform:         "pc",
		RegistrationType: "join",
		InvitationCode:   "NOPE-NOPE",
	})
	assert.ErrorIs(t, err, ErrInvitationCodeNotFound)
	assert.Empty(t, f.store.participants)
}

func TestRegister_JoinMissingTournament(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("GONE-2345")))
	tid := f.tournament(t, true, nil)
	code := foundTeam(t, f, tid)
	require.NoError(t, f.tournaments.Delete(context.Background(), tid))

	_, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		Username:         "member",
		Platform:         "pc",
		RegistrationType: "join",
		InvitationCode:   code,
	})
	assert.ErrorIs(t, err, ErrAssociatedTournamentNotFound)
	assert.Equal(t, 1, f.store.countByCode(code))
}

func TestRegister_JoinCapacityIgnoredWithoutTeams(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("FREE-2345")))
	tid := f.tournament(t, false, utils.Ptr(1))
	code := foundTeam(t, f, tid)

	_, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		Username:         "member",
		Platform:         "pc",
		RegistrationType: "join",
		InvitationCode:   code,
	})
	assert.NoError(t, err)
}

func TestRegister_JoinFullTeam(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("FULL-2345")))
	tid := f.tournament(t, true, utils.Ptr(2))
	code := foundTeam(t, f, tid)
	join := RegisterParticipantInput{Username: "m", Platform: "pc", RegistrationType: "join", InvitationCode: code}

	_, err := f.svc.Register(context.Background(), join)
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), join)
	require.ErrorIs(t, err, ErrTeamCapacityExceeded)
	assert.Contains(t, err.Error(), "maximum of 2 members")
	assert.Equal(t, 2, f.store.countByCode(code))
}

func TestRegister_ConcurrentJoinsRespectCapacity(t *testing.T) {
	const (
		limit   = 4
		joiners = 12
	)
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("RACE-2345")))
	tid := f.tournament(t, true, utils.Ptr(limit))
	code := foundTeam(t, f, tid)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		rejected int
	)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), RegisterParticipantInput{
				Username:         fmt.Sprintf("member-%d", i),
				Platform:         "pc",
				RegistrationType: "join",
				InvitationCode:   code,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, ErrTeamCapacityExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, limit-1, admitted)
	assert.Equal(t, joiners-(limit-1), rejected)

	team, err := f.teams.GetByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, limit, team.MemberCount)
	assert.Equal(t, limit, f.store.countByCode(code))
}

func TestParticipantList_Paging(t *testing.T) {
	f := newParticipantFixture(t)
	for i := 0; i < 15; i++ {
		_, err := f.svc.Register(context.Background(), RegisterParticipantInput{
			Username:         fmt.Sprintf("player-%02d", i),
			Platform:         "pc",
			RegistrationType: "solitaire",
		})
		require.NoError(t, err)
	}

	page, err := f.svc.List(context.Background(), ListParticipantsParams{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 15, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, defaultParticipantsLimit, page.Limit)
	require.Len(t, page.Data, 5)
	assert.Equal(t, "player-04", page.Data[0].Username)

	page, err = f.svc.List(context.Background(), ListParticipantsParams{Search: "PLAYER-1", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, maxParticipantsLimit, page.Limit)
	assert.Equal(t, 5, page.Total)
}

func TestParticipantDelete_ReleasesTeamSlot(t *testing.T) {
	f := newParticipantFixture(t, WithCodeGenerator(fixedCodes("DROP-2345")))
	tid := f.tournament(t, true, utils.Ptr(2))
	code := foundTeam(t, f, tid)
	join := RegisterParticipantInput{Username: "m", Platform: "pc", RegistrationType: "join", InvitationCode: code}

	member, err := f.svc.Register(context.Background(), join)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), member.ID))

	team, err := f.teams.GetByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, 1, team.MemberCount)

	_, err = f.svc.Register(context.Background(), join)
	assert.NoError(t, err, "the freed slot can be taken again")
}

func TestParticipantDelete_RemovesConsentDocument(t *testing.T) {
	f := newParticipantFixture(t)
	p, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		Username:         "minor",
		Platform:         "pc",
		RegistrationType: "solitaire",
		ParentalConsent:  &Asset{Filename: "c.pdf", ContentType: "application/pdf", Reader: strings.NewReader("pdf")},
	})
	require.NoError(t, err)
	key := *p.ConsentDocument

	require.NoError(t, f.svc.Delete(context.Background(), p.ID))
	assert.False(t, f.uploader.has(key))
	assert.Contains(t, f.uploader.deleted, key)
}

func TestParticipantDelete_NotFound(t *testing.T) {
	f := newParticipantFixture(t)
	err := f.svc.Delete(context.Background(), 42)
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	_, err = f.svc.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestRegister_StoreFailureSurfaces(t *testing.T) {
	f := newParticipantFixture(t)
	f.participants.createErr = fmt.Errorf("%w: boom", repositories.ErrParticipantInvalid)

	_, err := f.svc.Register(context.Background(), RegisterParticipantInput{
		Username:         "ace",
		Platform:         "pc",
		RegistrationType: "solitaire",
	})
	assert.ErrorIs(t, err, repositories.ErrParticipantInvalid)
	assert.Empty(t, f.broadcaster.types())
}
