package draw

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rafflelive/backend/internal/entity"
	"github.com/stretchr/testify/require"
)

func sessionUser(telegramID int64) entity.User {
	return entity.User{
		Base:       entity.Base{ID: uuid.NewString()},
		TelegramID: telegramID,
	}
}

func Test_session_RestoreExcludesPersistedWinners(t *testing.T) {
	sess := newSession(context.Background(), "raffle-1")

	users := []entity.User{sessionUser(1), sessionUser(2), sessionUser(3), sessionUser(4)}
	sess.restore(users, []entity.Winner{
		{RaffleID: "raffle-1", Position: 3, UserID: users[1].ID, User: users[1], Prize: "Bronze"},
	})

	require.True(t, sess.isCompleted(3))
	require.False(t, sess.isCompleted(1))
	require.Equal(t, 1, sess.completedCount())

	remaining := sess.remainingUsers()
	require.Len(t, remaining, 3)
	require.EqualValues(t, 1, remaining[0].TelegramID)
	require.EqualValues(t, 3, remaining[1].TelegramID)
	require.EqualValues(t, 4, remaining[2].TelegramID)
}

func Test_session_MarkWonKeepsOrder(t *testing.T) {
	sess := newSession(context.Background(), "raffle-1")

	users := []entity.User{sessionUser(1), sessionUser(2), sessionUser(3)}
	sess.restore(users, nil)

	sess.markWon(2, users[1], "Silver")

	remaining := sess.remainingUsers()
	require.Len(t, remaining, 2)
	require.EqualValues(t, 1, remaining[0].TelegramID)
	require.EqualValues(t, 3, remaining[1].TelegramID)
	require.True(t, sess.isCompleted(2))
}

func Test_session_SeqIsMonotonic(t *testing.T) {
	sess := newSession(context.Background(), "raffle-1")

	require.Zero(t, sess.roundSeq())
	require.EqualValues(t, 1, sess.nextSeq())
	require.EqualValues(t, 2, sess.nextSeq())
	require.EqualValues(t, 2, sess.roundSeq())
}

func Test_session_FirstSeedPerPositionWins(t *testing.T) {
	sess := newSession(context.Background(), "raffle-1")

	sess.openSeedWindow(1)
	require.True(t, sess.submitSeed(1, "first"))
	require.False(t, sess.submitSeed(1, "second"))
	require.Equal(t, "first", <-sess.seedChan(1))

	// A different position has its own slot once its own window opens.
	sess.openSeedWindow(2)
	require.True(t, sess.submitSeed(2, "other"))
}

func Test_session_SeedRefusedOutsideCommitWindow(t *testing.T) {
	sess := newSession(context.Background(), "raffle-1")

	// No window open yet: the round's commitment does not exist, so no
	// client entropy may be taken.
	require.False(t, sess.submitSeed(1, "too-early"))

	sess.openSeedWindow(2)
	require.False(t, sess.submitSeed(1, "wrong-position"))
	require.True(t, sess.submitSeed(2, "in-window"))

	sess.closeSeedWindow()
	require.False(t, sess.submitSeed(2, "too-late"))

	// Nothing leaked into the closed position's slot.
	select {
	case seed := <-sess.seedChan(1):
		t.Fatalf("unexpected seed %q for position 1", seed)
	default:
	}
}
