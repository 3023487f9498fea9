package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kegtrack/bracket-engine/brackets"
	"github.com/kegtrack/bracket-engine/models"
	"github.com/kegtrack/bracket-engine/repositories"
)

// In-memory fakes backing the service tests. They enforce the same
// contracts as the Postgres implementations: not-found sentinels, name
// conflict detection, optimistic version checks, and transactional
// rollback when the function handed to the tx runner fails.

type snapshotter interface {
	// snapshot returns a function restoring the store to its state at the
	// time of the call.
	snapshot() func()
}

type fakeTxRunner struct {
	stores []snapshotter
}

func (r *fakeTxRunner) RunInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	restores := make([]func(), 0, len(r.stores))
	for _, s := range r.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(nil); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type fakeTournamentRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{rows: map[int]*models.Tournament{}}
}

func (r *fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if strings.EqualFold(existing.Name, t.Name) {
			return repositories.ErrTournamentNameConflict
		}
	}
	r.nextID++
	t.ID = r.nextID
	t.Version = 1
	t.CreatedAt = time.Now()
	clone := *t
	r.rows[t.ID] = &clone
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, limit, offset int) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Tournament, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return []models.Tournament{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id, version int, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if row.Version != version {
		return repositories.ErrTournamentVersionConflict
	}
	row.Status = status
	row.Version++
	return nil
}

func (r *fakeTournamentRepo) BumpVersion(_ context.Context, _ repositories.SQLExecutor, id, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if row.Version != version {
		return repositories.ErrTournamentVersionConflict
	}
	row.Version++
	return nil
}

func (r *fakeTournamentRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[int]*models.Tournament, len(r.rows))
	for id, row := range r.rows {
		clone := *row
		saved[id] = &clone
	}
	nextID := r.nextID
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = saved
		r.nextID = nextID
	}
}

func (r *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.rows, id)
	return nil
}

type fakeTeamRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{rows: map[int]*models.Team{}}
}

func (r *fakeTeamRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.TournamentID == t.TournamentID && strings.EqualFold(existing.Name, t.Name) {
			return repositories.ErrTeamNameConflict
		}
	}
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = time.Now()
	clone := *t
	r.rows[t.ID] = &clone
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *fakeTeamRepo) ListByTournament(_ context.Context, tournamentID int) ([]models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Team{}
	for _, row := range r.rows {
		if row.TournamentID == tournamentID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeamRepo) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	teams, _ := r.ListByTournament(ctx, tournamentID)
	return len(teams), nil
}

func (r *fakeTeamRepo) UpdateCrestKey(_ context.Context, teamID int, crestKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	row.CrestKey = crestKey
	return nil
}

func (r *fakeTeamRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[int]*models.Team, len(r.rows))
	for id, row := range r.rows {
		clone := *row
		saved[id] = &clone
	}
	nextID := r.nextID
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = saved
		r.nextID = nextID
	}
}

func (r *fakeTeamRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.rows, id)
	return nil
}

type fakeMatchRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{rows: map[int]*models.Match{}}
}

func (r *fakeMatchRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, matches []*models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range matches {
		r.nextID++
		m.ID = r.nextID
		m.Version = 1
		m.CreatedAt = time.Now()
		clone := *m
		r.rows[m.ID] = &clone
	}
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *fakeMatchRepo) GetByPosition(_ context.Context, _ repositories.SQLExecutor, tournamentID int, round models.Round, index int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.TournamentID == tournamentID && row.Round == round && row.BracketIndex == index {
			clone := *row
			return &clone, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int) ([]models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Match{}
	for _, row := range r.rows {
		if row.TournamentID == tournamentID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) locked(id, version int) (*models.Match, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	if row.Version != version {
		return nil, repositories.ErrMatchVersionConflict
	}
	return row, nil
}

func (r *fakeMatchRepo) UpdateSlot(_ context.Context, _ repositories.SQLExecutor, id, version int, slot brackets.Slot, teamID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, err := r.locked(id, version)
	if err != nil {
		return err
	}
	tid := teamID
	if slot == brackets.SlotA {
		row.SlotATeamID = &tid
	} else {
		row.SlotBTeamID = &tid
	}
	row.Version++
	return nil
}

func (r *fakeMatchRepo) UpdateStarted(_ context.Context, _ repositories.SQLExecutor, id, version int, startedAt time.Time, batchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, err := r.locked(id, version)
	if err != nil {
		return err
	}
	ts := startedAt
	bid := batchID
	row.Status = models.MatchRunning
	row.StartedAt = &ts
	row.ConsumptionBatchID = &bid
	row.Version++
	return nil
}

func (r *fakeMatchRepo) UpdateStartUndone(_ context.Context, _ repositories.SQLExecutor, id, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, err := r.locked(id, version)
	if err != nil {
		return err
	}
	row.Status = models.MatchPending
	row.StartedAt = nil
	row.ConsumptionBatchID = nil
	row.Version++
	return nil
}

func (r *fakeMatchRepo) UpdateDecided(_ context.Context, _ repositories.SQLExecutor, id, version, winnerTeamID int, decidedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, err := r.locked(id, version)
	if err != nil {
		return err
	}
	wid := winnerTeamID
	ts := decidedAt
	row.Status = models.MatchDecided
	row.WinnerTeamID = &wid
	row.DecidedAt = &ts
	row.Version++
	return nil
}

func (r *fakeMatchRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[int]*models.Match, len(r.rows))
	for id, row := range r.rows {
		clone := *row
		saved[id] = &clone
	}
	nextID := r.nextID
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = saved
		r.nextID = nextID
	}
}

type fakePoolRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.PoolTeam
}

func newFakePoolRepo() *fakePoolRepo {
	return &fakePoolRepo{rows: map[int]*models.PoolTeam{}}
}

func (r *fakePoolRepo) Create(_ context.Context, t *models.PoolTeam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if strings.EqualFold(existing.Name, t.Name) {
			return repositories.ErrPoolTeamNameConflict
		}
	}
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = time.Now()
	clone := *t
	r.rows[t.ID] = &clone
	return nil
}

func (r *fakePoolRepo) GetByID(_ context.Context, id int) (*models.PoolTeam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrPoolTeamNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *fakePoolRepo) List(_ context.Context) ([]models.PoolTeam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.PoolTeam{}
	for _, row := range r.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type ledgerEntry struct {
	participantID int
	matchID       int
	batchID       string
	units         int
}

// fakeLedger appends signed entries exactly like the Postgres ledger.
type fakeLedger struct {
	mu      sync.Mutex
	entries []ledgerEntry
}

func (l *fakeLedger) Increment(_ context.Context, _ repositories.SQLExecutor, participantID, matchID int, batchID string, units int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ledgerEntry{participantID, matchID, batchID, units})
	return nil
}

func (l *fakeLedger) Decrement(_ context.Context, _ repositories.SQLExecutor, participantID, matchID int, batchID string, units int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ledgerEntry{participantID, matchID, batchID, -units})
	return nil
}

// total sums the signed entries for one participant.
func (l *fakeLedger) total(participantID int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum := 0
	for _, e := range l.entries {
		if e.participantID == participantID {
			sum += e.units
		}
	}
	return sum
}

func (l *fakeLedger) entryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *fakeLedger) snapshot() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	saved := make([]ledgerEntry, len(l.entries))
	copy(saved, l.entries)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.entries = saved
	}
}

type fakeDirectory struct {
	names map[int]string
}

func (d *fakeDirectory) DisplayNames(_ context.Context, ids []int) (map[int]string, error) {
	out := map[int]string{}
	for _, id := range ids {
		if name, ok := d.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

// engine bundles the fully wired services over in-memory fakes.
type engine struct {
	tournamentRepo *fakeTournamentRepo
	teamRepo       *fakeTeamRepo
	matchRepo      *fakeMatchRepo
	poolRepo       *fakePoolRepo
	ledger         *fakeLedger
	tx             *fakeTxRunner

	tournaments TournamentService
	teams       TeamService
	matches     *matchService
}

func newEngine() *engine {
	e := &engine{
		tournamentRepo: newFakeTournamentRepo(),
		teamRepo:       newFakeTeamRepo(),
		matchRepo:      newFakeMatchRepo(),
		poolRepo:       newFakePoolRepo(),
		ledger:         &fakeLedger{},
	}
	e.tx = &fakeTxRunner{stores: []snapshotter{
		e.tournamentRepo, e.teamRepo, e.matchRepo, e.ledger,
	}}
	coordinator := NewConsumptionCoordinator(e.ledger)
	e.tournaments = NewTournamentService(e.tournamentRepo, e.teamRepo, e.matchRepo, nil, nil, e.tx, nil, nil)
	e.teams = NewTeamService(e.teamRepo, e.tournamentRepo, e.matchRepo, e.poolRepo, e.tx, nil)
	e.matches = NewMatchService(e.matchRepo, e.teamRepo, e.tournamentRepo, coordinator, e.tx, nil, nil).(*matchService)
	return e
}

// setClock pins the match service's clock to a mutable instant.
func (e *engine) setClock(at *time.Time) {
	e.matches.now = func() time.Time { return *at }
}
