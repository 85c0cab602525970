// Package memory provides a mutex-guarded in-memory persistence
// implementation for tests and local development.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

type store struct {
	mu sync.Mutex

	subprocesses map[int64]models.Subprocess
	processes    map[int64]models.Process
	units        map[int64]models.Unit
	movements    map[int64][]models.Movement
	analyses     map[int64][]models.Analysis
	maps         map[int64]models.CompetencyMap
	activities   map[int64][]models.Activity
	competencies map[int64][]models.Competency

	nextID int64
}

type snapshot struct {
	subprocesses map[int64]models.Subprocess
	processes    map[int64]models.Process
	units        map[int64]models.Unit
	movements    map[int64][]models.Movement
	analyses     map[int64][]models.Analysis
	maps         map[int64]models.CompetencyMap
	activities   map[int64][]models.Activity
	competencies map[int64][]models.Competency
	nextID       int64
}

func (s *store) snapshot() snapshot {
	return snapshot{
		subprocesses: cloneMap(s.subprocesses),
		processes:    cloneMap(s.processes),
		units:        cloneMap(s.units),
		movements:    cloneSliceMap(s.movements),
		analyses:     cloneSliceMap(s.analyses),
		maps:         cloneMap(s.maps),
		activities:   cloneSliceMap(s.activities),
		competencies: cloneSliceMap(s.competencies),
		nextID:       s.nextID,
	}
}

func (s *store) restore(snap snapshot) {
	s.subprocesses = snap.subprocesses
	s.processes = snap.processes
	s.units = snap.units
	s.movements = snap.movements
	s.analyses = snap.analyses
	s.maps = snap.maps
	s.activities = snap.activities
	s.competencies = snap.competencies
	s.nextID = snap.nextID
}

func cloneMap[V any](m map[int64]V) map[int64]V {
	clone := make(map[int64]V, len(m))
	for k, v := range m {
		clone[k] = v
	}

	return clone
}

func cloneSliceMap[V any](m map[int64][]V) map[int64][]V {
	clone := make(map[int64][]V, len(m))
	for k, v := range m {
		clone[k] = slices.Clone(v)
	}

	return clone
}

func (s *store) allocateID() int64 {
	s.nextID++

	return s.nextID
}

// Persistence is the in-memory storage handle.
type Persistence struct {
	s *store
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{s: &store{
		subprocesses: make(map[int64]models.Subprocess),
		processes:    make(map[int64]models.Process),
		units:        make(map[int64]models.Unit),
		movements:    make(map[int64][]models.Movement),
		analyses:     make(map[int64][]models.Analysis),
		maps:         make(map[int64]models.CompetencyMap),
		activities:   make(map[int64][]models.Activity),
		competencies: make(map[int64][]models.Competency),
	}}
}

func (p *Persistence) Subprocesses() persistence.SubprocessRepository {
	return &subprocessRepo{s: p.s, locking: true}
}

func (p *Persistence) Processes() persistence.ProcessRepository {
	return &processRepo{s: p.s, locking: true}
}

func (p *Persistence) Units() persistence.UnitRepository {
	return &unitRepo{s: p.s, locking: true}
}

func (p *Persistence) Movements() persistence.MovementRepository {
	return &movementRepo{s: p.s, locking: true}
}

func (p *Persistence) Analyses() persistence.AnalysisRepository {
	return &analysisRepo{s: p.s, locking: true}
}

func (p *Persistence) Maps() persistence.MapRepository {
	return &mapRepo{s: p.s, locking: true}
}

type tx struct {
	s *store
}

func (t *tx) Subprocesses() persistence.SubprocessRepository { return &subprocessRepo{s: t.s} }
func (t *tx) Processes() persistence.ProcessRepository       { return &processRepo{s: t.s} }
func (t *tx) Units() persistence.UnitRepository              { return &unitRepo{s: t.s} }
func (t *tx) Movements() persistence.MovementRepository      { return &movementRepo{s: t.s} }
func (t *tx) Analyses() persistence.AnalysisRepository       { return &analysisRepo{s: t.s} }
func (t *tx) Maps() persistence.MapRepository                { return &mapRepo{s: t.s} }

// WithTx holds the store lock for the whole unit of work, serializing
// concurrent transitions, and restores the pre-transaction snapshot when fn
// fails so no partial writes survive.
func (p *Persistence) WithTx(_ context.Context, fn func(tx persistence.Tx) error) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	snap := p.s.snapshot()

	if err := fn(&tx{s: p.s}); err != nil {
		p.s.restore(snap)

		return err
	}

	return nil
}

func (p *Persistence) HealthCheck(context.Context) error { return nil }

func (p *Persistence) Close(context.Context) error { return nil }

// PutActivity registers a fixture activity for a map. The workflow only reads
// activity data; writing it belongs to the cadastre editing surface.
func (p *Persistence) PutActivity(activity models.Activity) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	p.s.activities[activity.MapID] = append(p.s.activities[activity.MapID], activity)
}

// PutCompetency registers a fixture competency for a map.
func (p *Persistence) PutCompetency(competency models.Competency) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	p.s.competencies[competency.MapID] = append(p.s.competencies[competency.MapID], competency)
}

type subprocessRepo struct {
	s       *store
	locking bool
}

func (r *subprocessRepo) locked() func() {
	if !r.locking {
		return func() {}
	}

	r.s.mu.Lock()

	return r.s.mu.Unlock
}

func (r *subprocessRepo) GetByID(_ context.Context, id int64) (*models.Subprocess, error) {
	defer r.locked()()

	subprocess, ok := r.s.subprocesses[id]
	if !ok {
		return nil, persistence.ErrSubprocessNotFound
	}

	return &subprocess, nil
}

// GetForUpdate is equivalent to GetByID here: the store mutex held by WithTx
// already serializes concurrent transactions.
func (r *subprocessRepo) GetForUpdate(ctx context.Context, id int64) (*models.Subprocess, error) {
	return r.GetByID(ctx, id)
}

func (r *subprocessRepo) GetByProcessAndUnit(_ context.Context, processID, unitID int64) (*models.Subprocess, error) {
	defer r.locked()()

	for _, subprocess := range r.s.subprocesses {
		if subprocess.ProcessID == processID && subprocess.UnitID == unitID {
			match := subprocess

			return &match, nil
		}
	}

	return nil, persistence.ErrSubprocessNotFound
}

func (r *subprocessRepo) ByProcess(_ context.Context, processID int64) ([]*models.Subprocess, error) {
	defer r.locked()()

	var result []*models.Subprocess

	for _, subprocess := range r.s.subprocesses {
		if subprocess.ProcessID == processID {
			match := subprocess
			result = append(result, &match)
		}
	}

	slices.SortFunc(result, func(a, b *models.Subprocess) int {
		return int(a.ID - b.ID)
	})

	return result, nil
}

func (r *subprocessRepo) Save(_ context.Context, subprocess *models.Subprocess) error {
	defer r.locked()()

	if subprocess.ID == 0 {
		subprocess.ID = r.s.allocateID()
		subprocess.CreatedAt = time.Now().UTC()
	}

	r.s.subprocesses[subprocess.ID] = *subprocess

	return nil
}

func (r *subprocessRepo) Overdue(_ context.Context, now time.Time) ([]*models.Subprocess, error) {
	defer r.locked()()

	var result []*models.Subprocess

	for _, subprocess := range r.s.subprocesses {
		if isOverdue(subprocess, now) {
			match := subprocess
			result = append(result, &match)
		}
	}

	return result, nil
}

func isOverdue(subprocess models.Subprocess, now time.Time) bool {
	if subprocess.PrazoEtapa1 != nil && subprocess.DataFimEtapa1 == nil && subprocess.PrazoEtapa1.Before(now) {
		return true
	}

	if subprocess.PrazoEtapa2 != nil && subprocess.DataFimEtapa2 == nil && subprocess.PrazoEtapa2.Before(now) {
		return true
	}

	return false
}

type processRepo struct {
	s       *store
	locking bool
}

func (r *processRepo) locked() func() {
	if !r.locking {
		return func() {}
	}

	r.s.mu.Lock()

	return r.s.mu.Unlock
}

func (r *processRepo) GetByID(_ context.Context, id int64) (*models.Process, error) {
	defer r.locked()()

	process, ok := r.s.processes[id]
	if !ok {
		return nil, persistence.ErrProcessNotFound
	}

	return &process, nil
}

func (r *processRepo) Save(_ context.Context, process *models.Process) error {
	defer r.locked()()

	if process.ID == 0 {
		process.ID = r.s.allocateID()
		process.CreatedAt = time.Now().UTC()
	}

	r.s.processes[process.ID] = *process

	return nil
}

type unitRepo struct {
	s       *store
	locking bool
}

func (r *unitRepo) locked() func() {
	if !r.locking {
		return func() {}
	}

	r.s.mu.Lock()

	return r.s.mu.Unlock
}

func (r *unitRepo) GetByID(_ context.Context, id int64) (*models.Unit, error) {
	defer r.locked()()

	unit, ok := r.s.units[id]
	if !ok {
		return nil, persistence.ErrUnitNotFound
	}

	return &unit, nil
}

func (r *unitRepo) ByCode(_ context.Context, code int64) (*models.Unit, error) {
	defer r.locked()()

	for _, unit := range r.s.units {
		if unit.Code == code {
			match := unit

			return &match, nil
		}
	}

	return nil, persistence.ErrUnitNotFound
}

func (r *unitRepo) BySigla(_ context.Context, sigla string) (*models.Unit, error) {
	defer r.locked()()

	for _, unit := range r.s.units {
		if unit.Sigla == sigla {
			match := unit

			return &match, nil
		}
	}

	return nil, persistence.ErrUnitNotFound
}

func (r *unitRepo) SuperiorOf(ctx context.Context, unit *models.Unit) (*models.Unit, error) {
	if unit.SuperiorID == nil {
		return nil, nil
	}

	return r.GetByID(ctx, *unit.SuperiorID)
}

func (r *unitRepo) Save(_ context.Context, unit *models.Unit) error {
	defer r.locked()()

	if unit.ID == 0 {
		unit.ID = r.s.allocateID()
	}

	r.s.units[unit.ID] = *unit

	return nil
}

type movementRepo struct {
	s       *store
	locking bool
}

func (r *movementRepo) locked() func() {
	if !r.locking {
		return func() {}
	}

	r.s.mu.Lock()

	return r.s.mu.Unlock
}

func (r *movementRepo) Append(_ context.Context, movement *models.Movement) error {
	defer r.locked()()

	r.s.movements[movement.SubprocessID] = append(r.s.movements[movement.SubprocessID], *movement)

	return nil
}

func (r *movementRepo) BySubprocess(_ context.Context, subprocessID int64) ([]*models.Movement, error) {
	defer r.locked()()

	stored := r.s.movements[subprocessID]
	result := make([]*models.Movement, 0, len(stored))

	for i := range stored {
		movement := stored[i]
		result = append(result, &movement)
	}

	slices.SortFunc(result, func(a, b *models.Movement) int {
		return b.Date.Compare(a.Date)
	})

	return result, nil
}

func (r *movementRepo) Latest(ctx context.Context, subprocessID int64) (*models.Movement, error) {
	movements, err := r.BySubprocess(ctx, subprocessID)
	if err != nil {
		return nil, err
	}

	if len(movements) == 0 {
		return nil, nil
	}

	return movements[0], nil
}

type analysisRepo struct {
	s       *store
	locking bool
}

func (r *analysisRepo) locked() func() {
	if !r.locking {
		return func() {}
	}

	r.s.mu.Lock()

	return r.s.mu.Unlock
}

func (r *analysisRepo) Append(_ context.Context, analysis *models.Analysis) error {
	defer r.locked()()

	r.s.analyses[analysis.SubprocessID] = append(r.s.analyses[analysis.SubprocessID], *analysis)

	return nil
}

func (r *analysisRepo) BySubprocess(_ context.Context, subprocessID int64) ([]*models.Analysis, error) {
	defer r.locked()()

	stored := r.s.analyses[subprocessID]
	result := make([]*models.Analysis, 0, len(stored))

	for i := range stored {
		analysis := stored[i]
		result = append(result, &analysis)
	}

	slices.SortFunc(result, func(a, b *models.Analysis) int {
		return b.Date.Compare(a.Date)
	})

	return result, nil
}

func (r *analysisRepo) ClearForSubprocess(_ context.Context, subprocessID int64, stage models.AnalysisStage) error {
	defer r.locked()()

	kept := r.s.analyses[subprocessID][:0]

	for _, analysis := range r.s.analyses[subprocessID] {
		if analysis.Stage != stage {
			kept = append(kept, analysis)
		}
	}

	r.s.analyses[subprocessID] = kept

	return nil
}

type mapRepo struct {
	s       *store
	locking bool
}

func (r *mapRepo) locked() func() {
	if !r.locking {
		return func() {}
	}

	r.s.mu.Lock()

	return r.s.mu.Unlock
}

func (r *mapRepo) GetByID(_ context.Context, id int64) (*models.CompetencyMap, error) {
	defer r.locked()()

	competencyMap, ok := r.s.maps[id]
	if !ok {
		return nil, persistence.ErrMapNotFound
	}

	return &competencyMap, nil
}

func (r *mapRepo) Save(_ context.Context, competencyMap *models.CompetencyMap) error {
	defer r.locked()()

	if competencyMap.ID == 0 {
		competencyMap.ID = r.s.allocateID()
	}

	r.s.maps[competencyMap.ID] = *competencyMap

	return nil
}

func (r *mapRepo) Activities(_ context.Context, mapID int64) ([]*models.Activity, error) {
	defer r.locked()()

	stored := r.s.activities[mapID]
	result := make([]*models.Activity, 0, len(stored))

	for i := range stored {
		activity := stored[i]
		result = append(result, &activity)
	}

	return result, nil
}

func (r *mapRepo) Competencies(_ context.Context, mapID int64) ([]*models.Competency, error) {
	defer r.locked()()

	stored := r.s.competencies[mapID]
	result := make([]*models.Competency, 0, len(stored))

	for i := range stored {
		competency := stored[i]
		result = append(result, &competency)
	}

	return result, nil
}

func (r *mapRepo) SaveActivity(_ context.Context, activity *models.Activity) error {
	defer r.locked()()

	if activity.ID == 0 {
		activity.ID = r.s.allocateID()
	}

	for i := range activity.Knowledge {
		if activity.Knowledge[i].ID == 0 {
			activity.Knowledge[i].ID = r.s.allocateID()
		}

		activity.Knowledge[i].ActivityID = activity.ID
	}

	stored := r.s.activities[activity.MapID]
	for i := range stored {
		if stored[i].ID == activity.ID {
			stored[i] = *activity

			return nil
		}
	}

	r.s.activities[activity.MapID] = append(stored, *activity)

	return nil
}

func (r *mapRepo) SaveCompetency(_ context.Context, competency *models.Competency) error {
	defer r.locked()()

	if competency.ID == 0 {
		competency.ID = r.s.allocateID()
	}

	stored := r.s.competencies[competency.MapID]
	for i := range stored {
		if stored[i].ID == competency.ID {
			stored[i] = *competency

			return nil
		}
	}

	r.s.competencies[competency.MapID] = append(stored, *competency)

	return nil
}

func (r *mapRepo) ClearSugestoes(_ context.Context, mapID int64) error {
	defer r.locked()()

	competencyMap, ok := r.s.maps[mapID]
	if !ok {
		return persistence.ErrMapNotFound
	}

	competencyMap.Sugestoes = ""
	competencyMap.SugestoesApresentadasEm = nil
	r.s.maps[mapID] = competencyMap

	return nil
}
