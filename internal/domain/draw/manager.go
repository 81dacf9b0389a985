package draw

import (
	"context"
	"errors"

	"github.com/puzpuzpuz/xsync"
	"github.com/rafflelive/backend/internal/domain/fair"
	"github.com/rafflelive/backend/internal/repository"
	"github.com/rafflelive/backend/pkg/errorx"
	"github.com/rafflelive/backend/pkg/lock"
	"github.com/rafflelive/backend/pkg/pubsub"
	"github.com/rafflelive/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// Manager owns every live draw session of this instance, at most one per
// raffle.
type Manager struct {
	raffleRepo      repository.RaffleRepository
	participantRepo repository.ParticipantRepository
	winnerRepo      repository.WinnerRepository

	fairEngine *fair.Engine
	hub        *Hub
	locker     lock.Locker
	publisher  pubsub.Publisher

	sessions *xsync.MapOf[string, *session]
}

func NewManager(
	raffleRepo repository.RaffleRepository,
	participantRepo repository.ParticipantRepository,
	winnerRepo repository.WinnerRepository,
	fairEngine *fair.Engine,
	hub *Hub,
	locker lock.Locker,
	publisher pubsub.Publisher,
) *Manager {
	return &Manager{
		raffleRepo:      raffleRepo,
		participantRepo: participantRepo,
		winnerRepo:      winnerRepo,
		fairEngine:      fairEngine,
		hub:             hub,
		locker:          locker,
		publisher:       publisher,
		sessions:        xsync.NewMapOf[*session](),
	}
}

func (m *Manager) Hub() *Hub {
	return m.hub
}

// StartSession begins the live draw for a raffle. At most one session per
// raffle runs at a time; a second call while one is live is refused.
func (m *Manager) StartSession(ctx context.Context, raffleID string) error {
	raffle, err := m.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return errorx.Unknown
	}

	if raffle.IsCompleted {
		return errorx.New(errorx.Unavailable, "The raffle has already completed")
	}

	sess := newSession(ctx, raffleID)
	if _, existed := m.sessions.LoadOrStore(raffleID, sess); existed {
		sess.cancel()
		return errorx.New(errorx.AlreadyExists, "A draw session is already running for this raffle")
	}

	// A resumed session finds draw_started already set; that is fine, the
	// flag only fences the first start.
	if err := m.raffleRepo.MarkDrawStarted(ctx, raffleID); err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		m.sessions.Delete(raffleID)
		sess.cancel()
		xcontext.Logger(ctx).Errorf("Cannot mark draw as started: %v", err)
		return errorx.Unknown
	}

	go m.run(sess.ctx, sess, raffle)
	return nil
}

// Stop is the external "end raffle now" signal. It interrupts the session
// between rounds; the round in flight finishes first.
func (m *Manager) Stop(raffleID string) {
	if sess, ok := m.sessions.Load(raffleID); ok {
		sess.cancel()
	}
}

func (m *Manager) IsRunning(raffleID string) bool {
	_, ok := m.sessions.Load(raffleID)
	return ok
}

// RoundSeq reports the session's current round sequence number, zero when
// no session is live. Sent to viewers on connect so a late joiner can
// reconcile instead of replaying from zero.
func (m *Manager) RoundSeq(raffleID string) int64 {
	sess, ok := m.sessions.Load(raffleID)
	if !ok {
		return 0
	}

	return sess.roundSeq()
}

// SubmitClientSeed offers viewer entropy for the position currently in its
// commit window. Only the first seed per position is taken.
func (m *Manager) SubmitClientSeed(ctx context.Context, raffleID string, position int, seed string) bool {
	sess, ok := m.sessions.Load(raffleID)
	if !ok || seed == "" {
		return false
	}

	accepted := sess.submitSeed(position, seed)
	if accepted {
		xcontext.Logger(ctx).Debugf(
			"Accepted client seed for raffle %s position %d", raffleID, position)
	}

	return accepted
}

// SubmitWinnerAck records a legacy client-side winner acknowledgment. The
// server-side reveal is the only source of truth; a mismatch is logged and
// otherwise ignored.
func (m *Manager) SubmitWinnerAck(ctx context.Context, raffleID string, position int, telegramID int64) {
	sess, ok := m.sessions.Load(raffleID)
	if !ok {
		return
	}

	sess.mutex.Lock()
	defer sess.mutex.Unlock()

	for _, w := range sess.winners {
		if w.Position == position {
			if w.User.ID != telegramID {
				xcontext.Logger(ctx).Warnf(
					"Viewer acknowledged wrong winner %d for raffle %s position %d",
					telegramID, raffleID, position)
			}
			return
		}
	}

	xcontext.Logger(ctx).Debugf(
		"Viewer acknowledgment for raffle %s position %d arrived before the reveal", raffleID, position)
}

func (m *Manager) teardown(sess *session) {
	sess.cancel()
	m.sessions.Delete(sess.raffleID)
	m.hub.EndSession(sess.raffleID)
}
