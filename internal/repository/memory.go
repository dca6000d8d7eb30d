package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/rating"
)

// MemoryStore is an in-process ledger. The views it hands out share one lock
// so open-decision queries see settlements immediately.
type MemoryStore struct {
	mu          sync.RWMutex
	games       map[string]models.GameRecord
	quotes      []models.MarketQuote
	decisions   map[uuid.UUID]models.StakeDecision
	order       []uuid.UUID
	settlements map[uuid.UUID]models.Settlement
	checkpoints []rating.Checkpoint
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:       make(map[string]models.GameRecord),
		decisions:   make(map[uuid.UUID]models.StakeDecision),
		settlements: make(map[uuid.UUID]models.Settlement),
	}
}

// Games returns the game view
func (m *MemoryStore) Games() GameRepository { return memoryGames{m} }

// Quotes returns the quote view
func (m *MemoryStore) Quotes() QuoteRepository { return memoryQuotes{m} }

// Decisions returns the decision view
func (m *MemoryStore) Decisions() DecisionRepository { return memoryDecisions{m} }

// Settlements returns the settlement view
func (m *MemoryStore) Settlements() SettlementRepository { return memorySettlements{m} }

// Checkpoints returns the checkpoint view
func (m *MemoryStore) Checkpoints() CheckpointRepository { return memoryCheckpoints{m} }

type memoryGames struct{ m *MemoryStore }

func (g memoryGames) Name() string { return "memory_games" }

func (g memoryGames) UpsertGames(ctx context.Context, games []models.GameRecord) error {
	for _, rec := range games {
		if err := rec.Validate(); err != nil {
			return err
		}
	}
	g.m.mu.Lock()
	defer g.m.mu.Unlock()
	for _, rec := range games {
		rec.Date = models.Day(rec.Date)
		g.m.games[rec.Key()] = rec
	}
	return nil
}

func (g memoryGames) GamesBetween(ctx context.Context, start, end time.Time) ([]models.GameRecord, error) {
	g.m.mu.RLock()
	defer g.m.mu.RUnlock()

	from, to := models.Day(start), models.Day(end)
	out := []models.GameRecord{}
	for _, rec := range g.m.games {
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Key() < out[j].Key()
	})
	return out, nil
}

func (g memoryGames) GetByID(ctx context.Context, id string) (*models.GameRecord, error) {
	g.m.mu.RLock()
	defer g.m.mu.RUnlock()
	rec, ok := g.m.games[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &rec, nil
}

type memoryQuotes struct{ m *MemoryStore }

func (q memoryQuotes) Name() string { return "memory_quotes" }

func (q memoryQuotes) InsertQuotes(ctx context.Context, quotes []models.MarketQuote) error {
	q.m.mu.Lock()
	defer q.m.mu.Unlock()
	for _, mq := range quotes {
		mq.Date = models.Day(mq.Date)
		if mq.CapturedAt.IsZero() {
			mq.CapturedAt = time.Now().UTC()
		}
		q.m.quotes = append(q.m.quotes, mq)
	}
	return nil
}

func (q memoryQuotes) QuotesOn(ctx context.Context, date time.Time) ([]models.MarketQuote, error) {
	q.m.mu.RLock()
	defer q.m.mu.RUnlock()

	day := models.Day(date)
	latest := make(map[string]models.MarketQuote)
	var keys []string
	for _, mq := range q.m.quotes {
		if !mq.Date.Equal(day) {
			continue
		}
		k := mq.Key() + "|" + mq.Bookmaker
		prev, ok := latest[k]
		if !ok {
			keys = append(keys, k)
		}
		if !ok || !mq.CapturedAt.Before(prev.CapturedAt) {
			latest[k] = mq
		}
	}
	sort.Strings(keys)
	out := make([]models.MarketQuote, 0, len(keys))
	for _, k := range keys {
		out = append(out, latest[k])
	}
	return out, nil
}

func (q memoryQuotes) ClosingQuote(ctx context.Context, date time.Time, home, away string) (*models.MarketQuote, error) {
	q.m.mu.RLock()
	defer q.m.mu.RUnlock()

	key := models.MatchupKey(date, home, away)
	var found *models.MarketQuote
	for i := range q.m.quotes {
		mq := q.m.quotes[i]
		if mq.Key() != key {
			continue
		}
		if found == nil || !mq.CapturedAt.Before(found.CapturedAt) {
			found = &mq
		}
	}
	if found == nil {
		return nil, models.ErrNotFound
	}
	return found, nil
}

type memoryDecisions struct{ m *MemoryStore }

func (d memoryDecisions) SaveDecisions(ctx context.Context, decisions []models.StakeDecision) error {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(decisions))
	for _, dec := range decisions {
		if _, ok := d.m.decisions[dec.ID]; ok {
			return fmt.Errorf("failed to insert decision %s: %w", dec.ID, models.ErrDuplicateKey)
		}
		if _, ok := seen[dec.ID]; ok {
			return fmt.Errorf("failed to insert decision %s: %w", dec.ID, models.ErrDuplicateKey)
		}
		seen[dec.ID] = struct{}{}
	}
	for _, dec := range decisions {
		dec.GameDate = models.Day(dec.GameDate)
		d.m.decisions[dec.ID] = dec
		d.m.order = append(d.m.order, dec.ID)
	}
	return nil
}

func (d memoryDecisions) GetByID(ctx context.Context, id uuid.UUID) (*models.StakeDecision, error) {
	d.m.mu.RLock()
	defer d.m.mu.RUnlock()
	dec, ok := d.m.decisions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &dec, nil
}

func (d memoryDecisions) GetByDate(ctx context.Context, date time.Time) ([]models.StakeDecision, error) {
	day := models.Day(date)
	return d.filter(func(dec models.StakeDecision) bool { return dec.GameDate.Equal(day) }), nil
}

func (d memoryDecisions) GetOpen(ctx context.Context, through time.Time) ([]models.StakeDecision, error) {
	day := models.Day(through)
	open := d.filter(func(dec models.StakeDecision) bool {
		_, settled := d.m.settlements[dec.ID]
		return !settled && !dec.GameDate.After(day)
	})
	sort.SliceStable(open, func(i, j int) bool { return open[i].GameDate.Before(open[j].GameDate) })
	return open, nil
}

func (d memoryDecisions) filter(keep func(models.StakeDecision) bool) []models.StakeDecision {
	d.m.mu.RLock()
	defer d.m.mu.RUnlock()
	out := []models.StakeDecision{}
	for _, id := range d.m.order {
		if dec := d.m.decisions[id]; keep(dec) {
			out = append(out, dec)
		}
	}
	return out
}

type memorySettlements struct{ m *MemoryStore }

func (s memorySettlements) SaveSettlements(ctx context.Context, settlements []models.Settlement) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(settlements))
	for _, st := range settlements {
		if _, ok := s.m.decisions[st.DecisionID]; !ok {
			return fmt.Errorf("failed to insert settlement for %s: %w", st.DecisionID, models.ErrNotFound)
		}
		_, dup := seen[st.DecisionID]
		if _, ok := s.m.settlements[st.DecisionID]; ok || dup {
			return fmt.Errorf("failed to insert settlement for %s: %w", st.DecisionID, models.ErrAlreadySettled)
		}
		seen[st.DecisionID] = struct{}{}
	}
	for _, st := range settlements {
		s.m.settlements[st.DecisionID] = st
	}
	return nil
}

func (s memorySettlements) GetByDecisionID(ctx context.Context, decisionID uuid.UUID) (*models.Settlement, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	st, ok := s.m.settlements[decisionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &st, nil
}

func (s memorySettlements) GetBetween(ctx context.Context, start, end time.Time) ([]models.Settlement, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := []models.Settlement{}
	for _, st := range s.m.settlements {
		if st.SettledAt.Before(start) || st.SettledAt.After(end) {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SettledAt.Before(out[j].SettledAt) })
	return out, nil
}

func (s memorySettlements) TotalProfitLoss(ctx context.Context) (decimal.Decimal, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	total := decimal.Zero
	for _, st := range s.m.settlements {
		total = total.Add(st.ProfitLoss)
	}
	return total, nil
}

type memoryCheckpoints struct{ m *MemoryStore }

func (c memoryCheckpoints) Save(ctx context.Context, cp *rating.Checkpoint) error {
	if cp == nil {
		return rating.ErrNoCheckpoint
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	saved := *cp
	saved.Ratings = make(map[string]float64, len(cp.Ratings))
	for k, v := range cp.Ratings {
		saved.Ratings[k] = v
	}
	c.m.checkpoints = append(c.m.checkpoints, saved)
	return nil
}

func (c memoryCheckpoints) Load(ctx context.Context) (*rating.Checkpoint, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	if len(c.m.checkpoints) == 0 {
		return nil, rating.ErrNoCheckpoint
	}
	cp := c.m.checkpoints[len(c.m.checkpoints)-1]
	return &cp, nil
}
