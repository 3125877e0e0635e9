package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"trivia-party/internal/models"
	"trivia-party/internal/session"
)

// DeadlineStore is what the scheduler needs from the session repository.
type DeadlineStore interface {
	FetchNextDeadline(ctx context.Context) (*session.NextDeadline, error)
	FetchSessionsDue(ctx context.Context, limit int32) ([]uuid.UUID, error)
}

// SessionAdvancer drives the phase machine when a countdown runs out.
// Satisfied by session.App; HandleDeadline re-checks the timer itself, so
// stale or duplicate fires are harmless.
type SessionAdvancer interface {
	HandleDeadline(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// Orchestrator sleeps until the soonest countdown deadline across all
// in-progress sessions and fires HandleDeadline for each session that is
// due. Deadlines live in the database (sessions.next_deadline), so the
// scheduler rebuilds its state from a plain query on every iteration and
// restarts are free. Domain events on the bus only serve to wake it early
// when a sooner deadline may have appeared.
type Orchestrator struct {
	store      DeadlineStore
	advancer   SessionAdvancer
	batchSize  int32
	clock      clockwork.Clock
	wakeCh     chan struct{}
	instanceID string

	numWorkers int
	workCh     chan uuid.UUID

	// Track in-flight sessions so a slow advance is not enqueued twice.
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

func NewOrchestrator(store DeadlineStore, advancer SessionAdvancer, batchSize int32) *Orchestrator {
	numWorkers := 10
	return &Orchestrator{
		store:      store,
		advancer:   advancer,
		batchSize:  batchSize,
		clock:      clockwork.NewRealClock(),
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8],

		numWorkers: numWorkers,
		workCh:     make(chan uuid.UUID, numWorkers*2),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// WithClock swaps the clock; tests pass a clockwork.FakeClock.
func (o *Orchestrator) WithClock(clock clockwork.Clock) *Orchestrator {
	o.clock = clock
	return o
}

// wake nudges the scheduler without blocking; the channel has capacity one
// and a pending wake is as good as ten.
func (o *Orchestrator) wake() {
	select {
	case o.wakeCh <- struct{}{}:
	default:
	}
}

// RunScheduler loops forever, sleeping until the next deadline and firing
// expired countdowns. Returns when ctx is cancelled.
func (o *Orchestrator) RunScheduler(ctx context.Context) error {
	log.Info().Str("instance", o.instanceID).Int("workers", o.numWorkers).Msg("scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < o.numWorkers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}

	defer func() {
		log.Info().Str("instance", o.instanceID).Msg("shutting down workers")
		cancelWorkers()
		close(o.workCh)
		wg.Wait()
		log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	}()

	// Created stopped with an empty channel so the first Reset waits its
	// full duration; a zero-duration timer would leave a pending fire.
	timer := o.clock.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	const idlePollDuration = 5 * time.Second
	retryCount := 0
	const maxRetries = 3

	for {
		// Drain any pending wake so a wake that arrived while we were
		// processing does not cause a spurious extra loop later.
		select {
		case <-o.wakeCh:
			log.Debug().Str("instance", o.instanceID).Msg("drained wake channel")
		default:
		}

		nd, err := o.store.FetchNextDeadline(ctx)
		if err != nil {
			retryCount++
			if retryCount <= maxRetries {
				log.Error().
					Err(err).
					Int("retry", retryCount).
					Str("instance", o.instanceID).
					Msg("error fetching next deadline, retrying")
				timer.Reset(time.Second * time.Duration(retryCount))
				select {
				case <-timer.Chan():
					continue
				case <-ctx.Done():
					return nil
				}
			}
			log.Error().Err(err).Str("instance", o.instanceID).Msg("error fetching next deadline after retries")
			return err
		}
		retryCount = 0

		if nd == nil || nd.Deadline == nil {
			// No live countdown anywhere; idle until a poll tick or an
			// event wakes us.
			timer.Reset(idlePollDuration)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				log.Info().Str("instance", o.instanceID).Msg("shutdown during idle")
				return nil
			case <-o.wakeCh:
				log.Debug().Str("instance", o.instanceID).Msg("woken up from idle")
				continue
			}
		}

		wait := nd.Deadline.Sub(o.clock.Now())
		if wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.Chan():
				log.Debug().Str("instance", o.instanceID).Msg("timer fired, fetching due sessions")
			case <-ctx.Done():
				log.Info().Str("instance", o.instanceID).Msg("shutdown during wait")
				return nil
			case <-o.wakeCh:
				log.Debug().Str("instance", o.instanceID).Msg("woken up early, rechecking deadline")
				continue
			}
		}

		due, err := o.store.FetchSessionsDue(ctx, o.batchSize)
		if err != nil {
			log.Error().Err(err).Str("instance", o.instanceID).Msg("error fetching due sessions")
			timer.Reset(time.Second)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if len(due) > 0 {
			log.Info().
				Int("count_due", len(due)).
				Str("instance", o.instanceID).
				Msg("processing due sessions")
		}

		for _, sessionID := range due {
			o.inFlightMu.Lock()
			if o.inFlight[sessionID] {
				log.Debug().Str("session_id", sessionID.String()).Str("instance", o.instanceID).Msg("skipping session already in flight")
				o.inFlightMu.Unlock()
				continue
			}
			o.inFlight[sessionID] = true
			o.inFlightMu.Unlock()

			select {
			case <-ctx.Done():
				o.inFlightMu.Lock()
				delete(o.inFlight, sessionID)
				o.inFlightMu.Unlock()
				log.Info().Str("instance", o.instanceID).Msg("shutdown while queueing deadlines")
				return nil
			case o.workCh <- sessionID:
				log.Debug().Str("session_id", sessionID.String()).Str("instance", o.instanceID).Msg("queued deadline for worker")
			}
		}
	}
}

// worker drains the work channel and fires deadlines.
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case sessionID, ok := <-o.workCh:
			if !ok {
				return
			}

			if err := o.fireDeadline(ctx, sessionID); err != nil {
				log.Error().
					Err(err).
					Str("session_id", sessionID.String()).
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("deadline handling failed")
			}

			o.inFlightMu.Lock()
			delete(o.inFlight, sessionID)
			o.inFlightMu.Unlock()
		}
	}
}

func (o *Orchestrator) fireDeadline(ctx context.Context, sessionID uuid.UUID) error {
	log.Info().Str("session_id", sessionID.String()).Msg("countdown deadline firing")

	updated, err := o.advancer.HandleDeadline(ctx, sessionID)
	if err != nil {
		return err
	}
	if updated == nil {
		// Timer was already gone, paused, or moved; nothing to do.
		log.Debug().Str("session_id", sessionID.String()).Msg("deadline fire was stale")
		return nil
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("phase", string(updated.Phase)).
		Str("status", string(updated.Status)).
		Msg("session advanced on deadline")
	return nil
}
