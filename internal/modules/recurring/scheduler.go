package recurring

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/foliotrack/folio/internal/modules/portfolio"
)

// TransactionCreator records a materialized transaction
type TransactionCreator interface {
	CreateTransaction(tx *portfolio.Transaction) (*portfolio.Transaction, error)
}

// Scheduler runs active plans on their cron schedules. Each registered plan
// owns exactly one cron entry, tracked in an explicit plan-to-entry map so
// unregistering a plan removes its entry and nothing else.
type Scheduler struct {
	cron    *cron.Cron
	repo    *Repository
	txs     TransactionCreator
	log     zerolog.Logger
	nowFunc func() time.Time

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewScheduler creates a scheduler. It does not start the cron loop;
// call Start after registering the active plans.
func NewScheduler(repo *Repository, txs TransactionCreator, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		repo:    repo,
		txs:     txs,
		log:     log.With().Str("component", "recurring-scheduler").Logger(),
		nowFunc: time.Now,
		entries: make(map[string]cron.EntryID),
	}
}

// Start registers every active plan and starts the cron loop
func (s *Scheduler) Start() error {
	plans, err := s.repo.GetActive()
	if err != nil {
		return fmt.Errorf("failed to load active plans: %w", err)
	}

	for i := range plans {
		if err := s.Register(&plans[i]); err != nil {
			// A bad schedule in one plan must not keep the rest from running.
			s.log.Error().Err(err).Str("plan", plans[i].ID).Msg("Skipping plan with invalid schedule")
		}
	}

	s.cron.Start()
	s.log.Info().Int("plans", s.Count()).Msg("Recurring scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Recurring scheduler stopped")
}

// Register adds a plan to the running schedule. Registering an already
// registered plan replaces its entry.
func (s *Scheduler) Register(p *Plan) error {
	plan := *p
	entryID, err := s.cron.AddFunc(plan.Schedule, func() {
		s.run(plan)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for plan %s: %w", plan.Schedule, plan.ID, err)
	}

	s.mu.Lock()
	if old, ok := s.entries[plan.ID]; ok {
		s.cron.Remove(old)
	}
	s.entries[plan.ID] = entryID
	s.mu.Unlock()

	s.log.Info().
		Str("plan", plan.ID).
		Str("schedule", plan.Schedule).
		Str("type", string(plan.Type)).
		Msg("Plan registered")
	return nil
}

// Unregister removes a plan from the running schedule
func (s *Scheduler) Unregister(planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[planID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, planID)
		s.log.Info().Str("plan", planID).Msg("Plan unregistered")
	}
}

// Count returns the number of registered plans
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunNow materializes a plan immediately, outside its schedule
func (s *Scheduler) RunNow(p *Plan) error {
	return s.materialize(*p)
}

func (s *Scheduler) run(p Plan) {
	if err := s.materialize(p); err != nil {
		s.log.Error().Err(err).Str("plan", p.ID).Msg("Plan run failed")
	}
}

func (s *Scheduler) materialize(p Plan) error {
	now := s.nowFunc().UTC()

	tx := &portfolio.Transaction{
		PortfolioID: p.PortfolioID,
		AssetID:     p.AssetID,
		Type:        p.Type,
		Date:        now,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Note:        fmt.Sprintf("recurring plan %s", p.ID),
	}

	if _, err := s.txs.CreateTransaction(tx); err != nil {
		return fmt.Errorf("failed to materialize plan %s: %w", p.ID, err)
	}
	if err := s.repo.SetLastRun(p.ID, now); err != nil {
		return err
	}

	s.log.Debug().
		Str("plan", p.ID).
		Str("amount", p.Amount.String()).
		Str("currency", p.Currency).
		Msg("Plan materialized")
	return nil
}
