package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/repositories"
)

// memStore backs the in-memory repository fakes. One mutex guards the
// whole store; memTransactor holds it for the duration of a transaction
// and restores a snapshot on error, mirroring the commit/rollback
// semantics the real repositories get from Postgres.
type memStore struct {
	mu           sync.Mutex
	users        map[int]models.User
	tournaments  map[int]models.Tournament
	teams        map[int]models.Team
	transactions []models.Transaction

	nextUserID       int
	nextTournamentID int
	nextTeamID       int
	nextTxnID        int
	clock            time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:            make(map[int]models.User),
		tournaments:      make(map[int]models.Tournament),
		teams:            make(map[int]models.Team),
		nextUserID:       1,
		nextTournamentID: 1,
		nextTeamID:       1,
		nextTxnID:        1,
		clock:            time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so ordering assertions
// are deterministic.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// enter acquires the store lock unless the caller already holds it
// through a transaction-scoped executor.
func (s *memStore) enter(exec repositories.SQLExecutor) func() {
	if exec == nil {
		s.mu.Lock()
		return s.mu.Unlock
	}
	return func() {}
}

type memSnapshot struct {
	users        map[int]models.User
	tournaments  map[int]models.Tournament
	teams        map[int]models.Team
	transactions []models.Transaction
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		users:        make(map[int]models.User, len(s.users)),
		tournaments:  make(map[int]models.Tournament, len(s.tournaments)),
		teams:        make(map[int]models.Team, len(s.teams)),
		transactions: append([]models.Transaction(nil), s.transactions...),
	}
	for id, u := range s.users {
		snap.users[id] = u
	}
	for id, t := range s.tournaments {
		snap.tournaments[id] = t
	}
	for id, t := range s.teams {
		t.Members = append([]models.TeamMember(nil), t.Members...)
		snap.teams[id] = t
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.users = snap.users
	s.tournaments = snap.tournaments
	s.teams = snap.teams
	s.transactions = snap.transactions
}

// memExecutor marks a call as transaction-scoped. The fakes never run
// SQL, so all methods panic.
type memExecutor struct{}

func (memExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	panic("memExecutor does not run SQL")
}
func (memExecutor) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	panic("memExecutor does not run SQL")
}
func (memExecutor) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	panic("memExecutor does not run SQL")
}

type memTransactor struct {
	store *memStore
}

func (t *memTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, exec repositories.SQLExecutor) error) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	snap := t.store.snapshot()
	if err := fn(ctx, memExecutor{}); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type memUserRepo struct {
	store *memStore
}

func (r *memUserRepo) Create(ctx context.Context, u *models.User) error {
	s := r.store
	defer s.enter(nil)()
	for _, existing := range s.users {
		if existing.PhoneNumber == u.PhoneNumber {
			return repositories.ErrUserPhoneConflict
		}
	}
	u.ID = s.nextUserID
	s.nextUserID++
	u.CreatedAt = s.tick()
	s.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error) {
	s := r.store
	defer s.enter(exec)()
	u, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r *memUserRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	s := r.store
	defer s.enter(nil)()
	for _, u := range s.users {
		if u.PhoneNumber == phone {
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *memUserRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	s := r.store
	defer s.enter(nil)()
	existing, ok := s.users[u.ID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	existing.Nickname = u.Nickname
	existing.FreeFireUID = u.FreeFireUID
	existing.Division = u.Division
	s.users[u.ID] = existing
	return nil
}

func (r *memUserRepo) UpdateAvatarKey(ctx context.Context, userID int, avatarKey *string) error {
	s := r.store
	defer s.enter(nil)()
	u, ok := s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarKey = avatarKey
	s.users[userID] = u
	return nil
}

func (r *memUserRepo) TouchLastLogin(ctx context.Context, userID int, at time.Time) error {
	s := r.store
	defer s.enter(nil)()
	u, ok := s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.LastLogin = &at
	s.users[userID] = u
	return nil
}

func (r *memUserRepo) AdjustBalance(ctx context.Context, exec repositories.SQLExecutor, userID int, delta int64) error {
	s := r.store
	defer s.enter(exec)()
	u, ok := s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	if u.Balance+delta < 0 {
		return repositories.ErrBalanceConstraint
	}
	u.Balance += delta
	s.users[userID] = u
	return nil
}

type memTournamentRepo struct {
	store *memStore
}

func (r *memTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	s := r.store
	defer s.enter(nil)()
	if _, ok := s.users[t.CreatedBy]; !ok {
		return repositories.ErrTournamentInvalidOwner
	}
	t.ID = s.nextTournamentID
	s.nextTournamentID++
	t.RegisteredTeams = 0
	t.CreatedAt = s.tick()
	s.tournaments[t.ID] = *t
	return nil
}

func (r *memTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	s := r.store
	defer s.enter(exec)()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *memTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	s := r.store
	defer s.enter(nil)()
	result := make([]models.Tournament, 0)
	for _, t := range s.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Mode != nil && t.Mode != *filter.Mode {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.Before(result[j].StartTime)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if filter.Offset > 0 && filter.Offset < len(result) {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *memTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	s := r.store
	defer s.enter(exec)()
	t, ok := s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	s.tournaments[id] = t
	return nil
}

func (r *memTournamentRepo) UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error {
	s := r.store
	defer s.enter(nil)()
	t, ok := s.tournaments[tournamentID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	s.tournaments[tournamentID] = t
	return nil
}

func (r *memTournamentRepo) TryReserveSlot(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	s := r.store
	defer s.enter(exec)()
	t, ok := s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.Status != models.StatusUpcoming {
		return repositories.ErrTournamentNotOpen
	}
	if t.RegisteredTeams >= t.MaxTeams {
		return repositories.ErrTournamentFull
	}
	t.RegisteredTeams++
	s.tournaments[id] = t
	return nil
}

func (r *memTournamentRepo) GetDueForStatusUpdate(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	s := r.store
	defer s.enter(nil)()
	var due []*models.Tournament
	for _, t := range s.tournaments {
		t := t
		switch {
		case t.Status == models.StatusUpcoming && !t.StartTime.After(now):
			due = append(due, &t)
		case t.Status == models.StatusLive && t.EndTime != nil && !t.EndTime.After(now):
			due = append(due, &t)
		}
	}
	return due, nil
}

type memTeamRepo struct {
	store *memStore
}

func (r *memTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	s := r.store
	defer s.enter(exec)()
	for _, existing := range s.teams {
		if existing.TournamentID == team.TournamentID && existing.CaptainID == team.CaptainID {
			return repositories.ErrTeamAlreadyRegistered
		}
	}
	team.ID = s.nextTeamID
	s.nextTeamID++
	team.CreatedAt = s.tick()
	for i := range team.Members {
		team.Members[i].TeamID = team.ID
		team.Members[i].Slot = i + 1
	}
	stored := *team
	stored.Members = append([]models.TeamMember(nil), team.Members...)
	s.teams[team.ID] = stored
	return nil
}

func (r *memTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	s := r.store
	defer s.enter(nil)()
	t, ok := s.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	t.Members = append([]models.TeamMember(nil), t.Members...)
	return &t, nil
}

func (r *memTeamRepo) ListByTournament(ctx context.Context, tournamentID int) ([]models.Team, error) {
	s := r.store
	defer s.enter(nil)()
	result := make([]models.Team, 0)
	for _, t := range s.teams {
		if t.TournamentID != tournamentID {
			continue
		}
		t.Members = append([]models.TeamMember(nil), t.Members...)
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type memTransactionRepo struct {
	store *memStore
}

func (r *memTransactionRepo) Create(ctx context.Context, exec repositories.SQLExecutor, txn *models.Transaction) error {
	s := r.store
	defer s.enter(exec)()
	if _, ok := s.users[txn.UserID]; !ok {
		return repositories.ErrTransactionInvalidUser
	}
	txn.ID = s.nextTxnID
	s.nextTxnID++
	txn.CreatedAt = s.tick()
	s.transactions = append(s.transactions, *txn)
	return nil
}

func (r *memTransactionRepo) ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Transaction, error) {
	s := r.store
	defer s.enter(nil)()
	result := make([]models.Transaction, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID == userID {
			result = append(result, s.transactions[i])
		}
	}
	if offset > 0 {
		if offset >= len(result) {
			return []models.Transaction{}, nil
		}
		result = result[offset:]
	}
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (r *memTransactionRepo) SumCompletedByUser(ctx context.Context, exec repositories.SQLExecutor, userID int) (int64, error) {
	s := r.store
	defer s.enter(exec)()
	var sum int64
	for _, txn := range s.transactions {
		if txn.UserID == userID && txn.Status == models.TxCompleted {
			sum += txn.Amount
		}
	}
	return sum, nil
}

// memLeaderboardRepo mirrors the SQL recompute: wins from completed
// tournament_winning entries, played from captained teams.
type memLeaderboardRepo struct {
	store   *memStore
	mu      sync.Mutex
	entries map[models.LeaderboardWindow][]models.LeaderboardEntry
}

func newMemLeaderboardRepo(store *memStore) *memLeaderboardRepo {
	return &memLeaderboardRepo{
		store:   store,
		entries: make(map[models.LeaderboardWindow][]models.LeaderboardEntry),
	}
}

func (r *memLeaderboardRepo) RecomputeWindow(ctx context.Context, window models.LeaderboardWindow, since time.Time) error {
	s := r.store
	defer s.enter(nil)()

	entries := make([]models.LeaderboardEntry, 0, len(s.users))
	for _, u := range s.users {
		wins, played := 0, 0
		for _, txn := range s.transactions {
			if txn.UserID == u.ID && txn.Kind == models.KindTournamentWinning &&
				txn.Status == models.TxCompleted && !txn.CreatedAt.Before(since) {
				wins++
			}
		}
		for _, team := range s.teams {
			if team.CaptainID == u.ID && !team.CreatedAt.Before(since) {
				played++
			}
		}
		entries = append(entries, models.LeaderboardEntry{
			UserID:            u.ID,
			Window:            window,
			Nickname:          u.Nickname,
			Points:            wins*50 + played*10,
			Wins:              wins,
			TournamentsPlayed: played,
		})
	}

	r.mu.Lock()
	r.entries[window] = entries
	r.mu.Unlock()
	return nil
}

func (r *memLeaderboardRepo) TopN(ctx context.Context, window models.LeaderboardWindow, limit int) ([]models.LeaderboardEntry, error) {
	r.mu.Lock()
	entries := append([]models.LeaderboardEntry(nil), r.entries[window]...)
	r.mu.Unlock()

	r.store.mu.Lock()
	createdAt := make(map[int]time.Time, len(r.store.users))
	for id, u := range r.store.users {
		createdAt[id] = u.CreatedAt
	}
	r.store.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		if !createdAt[entries[i].UserID].Equal(createdAt[entries[j].UserID]) {
			return createdAt[entries[i].UserID].Before(createdAt[entries[j].UserID])
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
