// Package bot is the conversation engine: it classifies inbound events,
// advances the subject's session and delivers the resulting replies in
// order.
package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hopeland/leasebot/internal/catalog"
	"github.com/hopeland/leasebot/internal/compose"
	"github.com/hopeland/leasebot/internal/enquiry"
	"github.com/hopeland/leasebot/internal/logger"
	"github.com/hopeland/leasebot/internal/metrics"
	"github.com/hopeland/leasebot/internal/session"
)

// Sender delivers one message to a subject. Errors are reported per
// message; the engine never retries.
type Sender interface {
	Send(ctx context.Context, to string, msg compose.Message) error
}

type Deps struct {
	Catalog  *catalog.Catalog
	Composer *compose.Composer
	Store    session.Store
	Locks    *session.Locker
	Sender   Sender
	Resolver compose.ImageResolver
	Recorder enquiry.Recorder
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

type Option func(*Handler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithImageInterval spaces consecutive image sends; zero disables pacing.
func WithImageInterval(d time.Duration) Option {
	return func(h *Handler) { h.imageInterval = d }
}

type Handler struct {
	catalog  *catalog.Catalog
	composer *compose.Composer
	store    session.Store
	locks    *session.Locker
	sender   Sender
	resolver compose.ImageResolver
	recorder enquiry.Recorder
	metrics  *metrics.Metrics
	log      zerolog.Logger

	now           func() time.Time
	imageInterval time.Duration
}

func NewHandler(d Deps, opts ...Option) *Handler {
	h := &Handler{
		catalog:       d.Catalog,
		composer:      d.Composer,
		store:         d.Store,
		locks:         d.Locks,
		sender:        d.Sender,
		resolver:      d.Resolver,
		recorder:      d.Recorder,
		metrics:       d.Metrics,
		log:           logger.Component(d.Logger, "bot"),
		now:           time.Now,
		imageInterval: 200 * time.Millisecond,
	}
	if h.locks == nil {
		h.locks = session.NewLocker()
	}
	if h.store == nil {
		h.store = session.NewMemoryStore()
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Outcome summarizes what HandleEvent did with one event.
type Outcome struct {
	Intent     Intent
	Suppressed bool // subject is in human handoff, nothing was sent
	Dropped    bool // session could not be loaded
	Sent       int
	Failed     int
}

// HandleEvent processes one inbound event. Events for the same subject are
// serialized; the state change is committed once, after delivery. It never
// fails: every error is logged and turned into a skip.
func (h *Handler) HandleEvent(ctx context.Context, ev Event) Outcome {
	var out Outcome
	if ev.SubjectID == "" {
		out.Dropped = true
		return out
	}

	start := time.Now()
	h.locks.WithLock(ev.SubjectID, func() {
		out = h.handleLocked(ctx, ev)
	})
	h.metrics.ObserveHandle(time.Since(start).Seconds())
	return out
}

func (h *Handler) handleLocked(ctx context.Context, ev Event) Outcome {
	log := h.log.With().Str("subject", ev.SubjectID).Logger()

	sess, err := h.store.GetOrCreate(ctx, ev.SubjectID, h.now())
	if err != nil {
		log.Error().Err(err).Msg("loading session, event dropped")
		return Outcome{Dropped: true}
	}

	if sess.HandedOff() {
		h.metrics.ObserveInbound("suppressed")
		h.commit(ctx, log, sess)
		return Outcome{Suppressed: true}
	}

	intent := Classify(sess, ev, h.catalog)
	h.metrics.ObserveInbound(intent.Kind.String())
	log.Debug().
		Str("intent", intent.Kind.String()).
		Str("state", string(sess.State)).
		Msg("classified event")

	next, plan := Decide(h.composer, h.catalog, sess, intent)
	sent, failed := h.run(ctx, log, ev, plan)
	h.commit(ctx, log, next)

	return Outcome{Intent: intent, Sent: sent, Failed: failed}
}

func (h *Handler) commit(ctx context.Context, log zerolog.Logger, s session.Session) {
	if err := h.store.Put(ctx, s); err != nil {
		log.Error().Err(err).Msg("saving session")
	}
}

// run executes the plan strictly in order. A failed send is logged and the
// next message is still attempted.
func (h *Handler) run(ctx context.Context, log zerolog.Logger, ev Event, plan Plan) (sent, failed int) {
	deliver := func(msg compose.Message) {
		if h.deliver(ctx, log, ev.SubjectID, msg) {
			sent++
		} else {
			failed++
		}
	}

	for _, step := range plan {
		switch step.Kind {
		case StepSend:
			deliver(step.Message)

		case StepRecord:
			h.record(ctx, log, ev, step.Listing)

		case StepDetail:
			pace := h.imageLimiter()
			for _, msg := range h.composer.ListingDetail(ctx, step.Listing, h.resolver) {
				if msg.Kind() == compose.KindImage {
					if err := pace.Wait(ctx); err != nil {
						log.Warn().Err(err).Msg("image pacing interrupted")
					}
				}
				deliver(msg)
			}
		}
	}
	return sent, failed
}

func (h *Handler) deliver(ctx context.Context, log zerolog.Logger, to string, msg compose.Message) bool {
	err := h.sender.Send(ctx, to, msg)
	h.metrics.ObserveOutbound(string(msg.Kind()), err == nil)
	if err == nil {
		return true
	}
	log.Warn().Err(err).Str("kind", string(msg.Kind())).Msg("delivery failed, continuing")

	menu, ok := msg.(compose.Menu)
	if !ok || menu.Fallback == "" {
		return false
	}
	fb := compose.Text{Body: menu.Fallback}
	err = h.sender.Send(ctx, to, fb)
	h.metrics.ObserveOutbound(string(fb.Kind()), err == nil)
	if err != nil {
		log.Warn().Err(err).Msg("menu text fallback failed")
		return false
	}
	return true
}

func (h *Handler) record(ctx context.Context, log zerolog.Logger, ev Event, l catalog.Listing) {
	if h.recorder == nil {
		return
	}
	rec := enquiry.Record{
		TimestampUTC:       h.now().UTC(),
		SubjectID:          ev.SubjectID,
		SubjectName:        ev.DisplayName,
		Category:           l.Category,
		ListingID:          l.ID,
		ListingTitle:       l.Title,
		ListingDescription: l.Description,
	}
	err := h.recorder.Record(ctx, rec)
	h.metrics.ObserveEnquiry(err == nil)
	if err != nil {
		log.Error().Err(err).Str("listing", l.ID).Msg("recording enquiry")
	}
}

func (h *Handler) imageLimiter() *rate.Limiter {
	if h.imageInterval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(h.imageInterval), 1)
}

// Resume returns a handed-off subject to automated replies. The subject's
// browsing position is kept. A subject with no stored session yields
// session.ErrNotFound and nothing is written.
func (h *Handler) Resume(ctx context.Context, subjectID string) error {
	var err error
	h.locks.WithLock(subjectID, func() {
		var s session.Session
		s, err = h.store.Lookup(ctx, subjectID)
		if err != nil {
			return
		}
		s.Mode = session.ModeBot
		err = h.store.Put(ctx, s)
	})
	return err
}
