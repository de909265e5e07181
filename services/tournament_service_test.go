package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTournamentEnv(t *testing.T) (*memStore, *memTournamentRepo, TournamentService, *models.User) {
	t.Helper()
	store := newMemStore()
	users := &memUserRepo{store: store}
	repo := &memTournamentRepo{store: store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewTournamentService(repo, nil, nil, logger)

	admin := &models.User{
		PhoneNumber: "+8801712000099",
		Nickname:    "organizer",
		FreeFireUID: "uid-org",
		Role:        models.RoleAdmin,
	}
	require.NoError(t, users.Create(context.Background(), admin))
	return store, repo, svc, admin
}

func validInput() CreateTournamentInput {
	return CreateTournamentInput{
		Title:     "Weekend Showdown",
		EntryFee:  50,
		PrizePool: 500,
		StartTime: time.Now().Add(24 * time.Hour),
		MaxTeams:  16,
		Mode:      models.ModeSquad,
	}
}

func TestCreateTournament_Success(t *testing.T) {
	_, _, svc, admin := newTournamentEnv(t)

	tournament, err := svc.CreateTournament(context.Background(), admin.ID, validInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusUpcoming, tournament.Status)
	assert.Equal(t, 0, tournament.RegisteredTeams)
	assert.Equal(t, 16, tournament.MaxTeams)
	assert.Equal(t, admin.ID, tournament.CreatedBy)
	assert.Equal(t, 16, tournament.SlotsLeft())
}

func TestCreateTournament_Validation(t *testing.T) {
	_, _, svc, admin := newTournamentEnv(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*CreateTournamentInput)
		wantErr error
	}{
		{"short title", func(in *CreateTournamentInput) { in.Title = "ab" }, ErrValidationFailed},
		{"zero capacity", func(in *CreateTournamentInput) { in.MaxTeams = 0 }, ErrTournamentInvalidCapacity},
		{"negative capacity", func(in *CreateTournamentInput) { in.MaxTeams = -3 }, ErrTournamentInvalidCapacity},
		{"negative fee", func(in *CreateTournamentInput) { in.EntryFee = -1 }, ErrTournamentInvalidFee},
		{"negative prize", func(in *CreateTournamentInput) { in.PrizePool = -1 }, ErrTournamentInvalidPrize},
		{"unknown mode", func(in *CreateTournamentInput) { in.Mode = "trio" }, ErrTournamentInvalidMode},
		{"end before start", func(in *CreateTournamentInput) {
			end := in.StartTime.Add(-time.Hour)
			in.EndTime = &end
		}, ErrTournamentInvalidDates},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := svc.CreateTournament(ctx, admin.ID, input)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateTournament_UnknownCreator(t *testing.T) {
	_, _, svc, _ := newTournamentEnv(t)
	_, err := svc.CreateTournament(context.Background(), 9999, validInput())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestListTournaments_OrderAndFilter(t *testing.T) {
	_, repo, svc, admin := newTournamentEnv(t)
	ctx := context.Background()

	base := time.Now()
	seed := func(title string, start time.Time, mode models.TournamentMode) {
		require.NoError(t, repo.Create(ctx, &models.Tournament{
			Title:     title,
			StartTime: start,
			MaxTeams:  8,
			Mode:      mode,
			Status:    models.StatusUpcoming,
			CreatedBy: admin.ID,
		}))
	}
	seed("later", base.Add(3*time.Hour), models.ModeSolo)
	seed("sooner", base.Add(time.Hour), models.ModeSquad)
	seed("middle", base.Add(2*time.Hour), models.ModeSolo)

	all, err := svc.ListTournaments(ctx, repositories.ListTournamentsFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "sooner", all[0].Title)
	assert.Equal(t, "middle", all[1].Title)
	assert.Equal(t, "later", all[2].Title)

	solo := models.ModeSolo
	filtered, err := svc.ListTournaments(ctx, repositories.ListTournamentsFilter{Mode: &solo})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "middle", filtered[0].Title)
}

func TestGetTournamentByID_NotFound(t *testing.T) {
	_, _, svc, _ := newTournamentEnv(t)
	_, err := svc.GetTournamentByID(context.Background(), 404)
	require.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestAutoUpdateStatuses_AdvancesDueTournaments(t *testing.T) {
	_, repo, svc, admin := newTournamentEnv(t)
	ctx := context.Background()

	now := time.Now()
	pastEnd := now.Add(-time.Hour)

	started := &models.Tournament{
		Title:     "already started",
		StartTime: now.Add(-2 * time.Hour),
		MaxTeams:  8,
		Mode:      models.ModeSolo,
		Status:    models.StatusUpcoming,
		CreatedBy: admin.ID,
	}
	require.NoError(t, repo.Create(ctx, started))

	finished := &models.Tournament{
		Title:     "already finished",
		StartTime: now.Add(-4 * time.Hour),
		EndTime:   &pastEnd,
		MaxTeams:  8,
		Mode:      models.ModeSolo,
		Status:    models.StatusUpcoming,
		CreatedBy: admin.ID,
	}
	require.NoError(t, repo.Create(ctx, finished))
	require.NoError(t, repo.UpdateStatus(ctx, nil, finished.ID, models.StatusLive))

	future := &models.Tournament{
		Title:     "not yet",
		StartTime: now.Add(2 * time.Hour),
		MaxTeams:  8,
		Mode:      models.ModeSolo,
		Status:    models.StatusUpcoming,
		CreatedBy: admin.ID,
	}
	require.NoError(t, repo.Create(ctx, future))

	require.NoError(t, svc.AutoUpdateStatusesByDates(ctx))

	got, err := repo.GetByID(ctx, nil, started.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, got.Status)

	got, err = repo.GetByID(ctx, nil, finished.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	got, err = repo.GetByID(ctx, nil, future.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpcoming, got.Status)
}

func TestStatusTransitionsAreOneDirectional(t *testing.T) {
	assert.True(t, models.StatusUpcoming.CanTransitionTo(models.StatusLive))
	assert.True(t, models.StatusLive.CanTransitionTo(models.StatusCompleted))
	assert.False(t, models.StatusLive.CanTransitionTo(models.StatusUpcoming))
	assert.False(t, models.StatusCompleted.CanTransitionTo(models.StatusLive))
	assert.False(t, models.StatusCompleted.CanTransitionTo(models.StatusUpcoming))
}
