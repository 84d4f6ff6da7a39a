// Package flow runs the per-user conversation state machine sequencing
// search -> selection -> thumbnail -> render -> preview -> publish. It is
// the only component that mutates conversation sessions.
package flow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/postbot/internal/caption"
	"github.com/xaenox/postbot/internal/models"
	"github.com/xaenox/postbot/internal/normalize"
	"github.com/xaenox/postbot/internal/provider"
	"github.com/xaenox/postbot/internal/session"
	"github.com/xaenox/postbot/internal/storage"
	"github.com/xaenox/postbot/internal/thumbnail"
)

// Fetcher is the provider surface the machine depends on.
type Fetcher interface {
	Search(ctx context.Context, kind models.Kind, query string) (string, []byte, error)
	Detail(ctx context.Context, kind models.Kind, id int64) (string, []byte, error)
}

// Quota is the premium-policy check consulted once per new query.
type Quota interface {
	Check(ctx context.Context, userID int64) (bool, error)
}

// Compositor builds the preview thumbnail.
type Compositor interface {
	Composite(ctx context.Context, in thumbnail.Input) (*models.RenderedThumbnail, error)
}

// Publisher delivers the finished post. Transport failures are its concern;
// the session resets either way so the user is never stuck mid-flow.
type Publisher interface {
	Publish(ctx context.Context, userID int64, image []byte, caption string) error
}

// Config fixes the machine's operating bounds at process start.
type Config struct {
	FetchTimeout    time.Duration
	InactivityBound time.Duration
}

type Machine struct {
	fetcher    Fetcher
	normalizer *normalize.Normalizer
	sessions   session.Store
	store      storage.Storage
	quota      Quota
	compositor Compositor
	publisher  Publisher
	cfg        Config
	gates      *gateTable
	logger     *zap.Logger
}

func NewMachine(
	fetcher Fetcher,
	normalizer *normalize.Normalizer,
	sessions session.Store,
	store storage.Storage,
	quota Quota,
	compositor Compositor,
	publisher Publisher,
	cfg Config,
	logger *zap.Logger,
) *Machine {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.InactivityBound <= 0 {
		cfg.InactivityBound = 10 * time.Minute
	}
	return &Machine{
		fetcher:    fetcher,
		normalizer: normalizer,
		sessions:   sessions,
		store:      store,
		quota:      quota,
		compositor: compositor,
		publisher:  publisher,
		cfg:        cfg,
		gates:      newGateTable(),
		logger:     logger,
	}
}

// HandleUserEvent is the sole entry point the chat transport calls. Events
// for the same user are serialized; events for different users run in
// parallel.
func (m *Machine) HandleUserEvent(ctx context.Context, userID int64, ev Event) Outcome {
	g := m.gates.forUser(userID)

	// Cancel and Timeout supersede whatever fetch is in flight for this
	// user before queueing for the gate.
	if ev.Type == EventCancel || ev.Type == EventTimeout {
		g.interrupt()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	sess, err := m.sessions.Load(ctx, userID)
	if err != nil {
		m.logger.Error("failed to load session", zap.Error(err), zap.Int64("user_id", userID))
		return message("Something went wrong. Please try again.")
	}
	if sess == nil {
		sess = models.NewSession(userID)
	}

	// Stale sessions are reset before the event is processed.
	if sess.Active() && sess.Expired(m.cfg.InactivityBound) {
		m.logger.Info("session expired, resetting",
			zap.Int64("user_id", userID),
			zap.String("state", string(sess.State)))
		sess.Reset()
	}

	switch ev.Type {
	case EventNewQuery:
		return m.handleNewQuery(ctx, g, sess, ev)
	case EventSelectionMade:
		return m.handleSelection(ctx, g, sess, ev)
	case EventThumbnailProvided:
		return m.handleThumbnail(ctx, sess, ev.Image)
	case EventSkipThumbnail:
		return m.handleThumbnail(ctx, sess, nil)
	case EventPublishConfirmed:
		return m.handlePublish(ctx, sess)
	case EventCancel:
		return m.handleReset(ctx, sess, "Cancelled.")
	case EventTimeout:
		return m.resetSilently(ctx, sess)
	}
	return none()
}

func (m *Machine) handleNewQuery(ctx context.Context, g *gate, sess *models.ConversationSession, ev Event) Outcome {
	if !models.ValidKind(ev.Kind) || ev.Query == "" {
		return message("I didn't understand that search. Try /movie <title>.")
	}

	allowed, err := m.quota.Check(ctx, sess.UserID)
	if err != nil {
		m.logger.Error("quota check failed", zap.Error(err), zap.Int64("user_id", sess.UserID))
		return message("Something went wrong. Please try again.")
	}
	if !allowed {
		return message("You've reached your daily post limit. Try again tomorrow.")
	}

	// Policy: a new query while another flow is active resets the old one
	// and restarts.
	if sess.Active() {
		m.logger.Info("new query supersedes active session",
			zap.Int64("user_id", sess.UserID),
			zap.String("prior_state", string(sess.State)))
		sess.Reset()
	}

	sess.State = models.StateSearching
	sess.Kind = ev.Kind
	sess.Query = ev.Query

	fetchCtx, done := g.arm(ctx)
	defer done()
	fetchCtx, cancelTimeout := context.WithTimeout(fetchCtx, m.cfg.FetchTimeout)
	defer cancelTimeout()

	providerName, payload, err := m.fetcher.Search(fetchCtx, ev.Kind, ev.Query)

	// A result arriving after a cancel is never applied; the cancel handler
	// waiting on the gate owns the session from here.
	if errors.Is(fetchCtx.Err(), context.Canceled) {
		return none()
	}
	if err != nil {
		return m.fetchFailure(ctx, sess, err)
	}

	candidates, err := m.normalizer.Candidates(providerName, ev.Kind, payload)
	if err != nil {
		return m.normalizeFailure(ctx, sess, err)
	}
	if len(candidates) == 0 {
		sess.Reset()
		m.save(ctx, sess)
		return message("No results found. Try a different title.")
	}

	sess.PendingCandidates = candidates
	sess.State = models.StateAwaitingSelection
	sess.Touch()
	m.save(ctx, sess)

	return Outcome{Type: OutcomeShowCandidates, Candidates: candidates}
}

func (m *Machine) handleSelection(ctx context.Context, g *gate, sess *models.ConversationSession, ev Event) Outcome {
	if sess.State != models.StateAwaitingSelection {
		// Rejected in place: no transition, pending data untouched.
		return message("There's nothing to select right now. Start with a search.")
	}
	if ev.Index < 0 || ev.Index >= len(sess.PendingCandidates) {
		return message("That option isn't available. Pick one from the list.")
	}

	chosen := sess.PendingCandidates[ev.Index]

	fetchCtx, done := g.arm(ctx)
	defer done()
	fetchCtx, cancelTimeout := context.WithTimeout(fetchCtx, m.cfg.FetchTimeout)
	defer cancelTimeout()

	providerName, payload, err := m.fetcher.Detail(fetchCtx, sess.Kind, chosen.ID)

	if errors.Is(fetchCtx.Err(), context.Canceled) {
		return none()
	}
	if err != nil {
		return m.fetchFailure(ctx, sess, err)
	}

	record, err := m.normalizer.Record(providerName, sess.Kind, payload)
	if err != nil {
		return m.normalizeFailure(ctx, sess, err)
	}

	sess.PendingRecord = record
	sess.State = models.StateAwaitingThumbnail
	sess.Touch()
	m.save(ctx, sess)

	return Outcome{
		Type: OutcomeRequestThumbnail,
		Text: "Send a custom thumbnail image, or skip to use the auto-generated one.",
	}
}

func (m *Machine) handleThumbnail(ctx context.Context, sess *models.ConversationSession, override []byte) Outcome {
	if sess.State != models.StateAwaitingThumbnail {
		return message("I'm not expecting a thumbnail right now.")
	}
	if sess.PendingRecord == nil {
		// Should be unreachable: the machine never enters
		// AwaitingThumbnail without a record.
		m.logger.Error("awaiting thumbnail with no pending record", zap.Int64("user_id", sess.UserID))
		return m.handleReset(ctx, sess, "Something went wrong. Please start over.")
	}

	sess.ThumbnailOverride = override
	sess.State = models.StateRendering
	record := sess.PendingRecord

	settings, err := m.store.GetUserSettings(ctx, sess.UserID)
	if err != nil {
		m.logger.Error("failed to load user settings", zap.Error(err), zap.Int64("user_id", sess.UserID))
		settings = &models.UserSettings{UserID: sess.UserID}
	}

	body := caption.DefaultTemplate(record.Kind)
	if tpl, err := m.store.GetActiveTemplate(ctx, sess.UserID, record.Kind); err != nil {
		m.logger.Error("failed to load active template", zap.Error(err), zap.Int64("user_id", sess.UserID))
	} else if tpl != nil {
		body = tpl.Body
	}
	rendered := caption.Render(body, record)

	in := thumbnail.Input{
		Title:     record.Title,
		Watermark: settings.Watermark,
		Override:  override,
	}
	if record.BackdropURL != nil {
		in.BackdropURL = *record.BackdropURL
	}
	if record.PosterURL != nil {
		in.PosterURL = *record.PosterURL
	}

	thumb, err := m.compositor.Composite(ctx, in)
	if thumb == nil {
		m.logger.Error("compositor produced no output", zap.Error(err), zap.Int64("user_id", sess.UserID))
		return m.handleReset(ctx, sess, "Couldn't build the thumbnail. Please try again.")
	}
	if err != nil {
		// Source fetch failures degrade to the fallback canvas; the flow
		// continues with whatever the compositor produced.
		m.logger.Warn("thumbnail degraded to fallback", zap.Error(err), zap.Int64("user_id", sess.UserID))
	}

	sess.Caption = rendered
	sess.ThumbnailJPEG = thumb.ImageBytes
	sess.State = models.StatePreviewing
	sess.Touch()
	m.save(ctx, sess)

	return Outcome{
		Type:    OutcomeShowPreview,
		Preview: &Preview{Image: thumb.ImageBytes, Caption: rendered},
	}
}

func (m *Machine) handlePublish(ctx context.Context, sess *models.ConversationSession) Outcome {
	if sess.State != models.StatePreviewing {
		return message("There's no preview to publish.")
	}

	image := sess.ThumbnailJPEG
	text := sess.Caption
	userID := sess.UserID

	// The session resets whatever the transport does, so the user is never
	// stuck mid-flow after attempting to publish.
	sess.Reset()
	m.save(ctx, sess)

	if err := m.publisher.Publish(ctx, userID, image, text); err != nil {
		m.logger.Warn("publish failed", zap.Error(err), zap.Int64("user_id", userID))
		return message("Couldn't publish the post. Check that a channel is configured and the bot is an admin there.")
	}
	if err := m.store.IncrementPostCount(ctx, userID); err != nil {
		m.logger.Error("failed to count post", zap.Error(err), zap.Int64("user_id", userID))
	}
	return message("Posted!")
}

func (m *Machine) handleReset(ctx context.Context, sess *models.ConversationSession, text string) Outcome {
	sess.Reset()
	m.save(ctx, sess)
	return message(text)
}

func (m *Machine) resetSilently(ctx context.Context, sess *models.ConversationSession) Outcome {
	sess.Reset()
	m.save(ctx, sess)
	return none()
}

// fetchFailure maps a provider error onto the user-facing outcome and
// returns the session to idle: no partial or stuck sessions.
func (m *Machine) fetchFailure(ctx context.Context, sess *models.ConversationSession, err error) Outcome {
	kind := sess.Kind
	sess.Reset()
	m.save(ctx, sess)

	if provider.IsNotFound(err) {
		return message("No results found. Try a different title.")
	}
	m.logger.Warn("provider fetch failed",
		zap.Error(err),
		zap.Int64("user_id", sess.UserID),
		zap.String("kind", string(kind)))
	return message("The content service is having trouble right now. Please try again in a moment.")
}

func (m *Machine) normalizeFailure(ctx context.Context, sess *models.ConversationSession, err error) Outcome {
	sess.Reset()
	m.save(ctx, sess)

	if normalize.IsShapeChanged(err) {
		m.logger.Error("provider payload shape changed", zap.Error(err))
		return message("Could not read this title's data.")
	}
	m.logger.Error("normalization failed", zap.Error(err))
	return message("Something went wrong. Please try again.")
}

func (m *Machine) save(ctx context.Context, sess *models.ConversationSession) {
	if err := m.sessions.Save(ctx, sess); err != nil {
		m.logger.Error("failed to save session", zap.Error(err), zap.Int64("user_id", sess.UserID))
	}
}
