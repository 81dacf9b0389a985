package fair

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Engine_CommitRevealRoundtrip(t *testing.T) {
	engine := NewEngine()

	serverSeed, err := engine.GenerateServerSeed()
	require.NoError(t, err)
	require.Len(t, serverSeed, 64)

	commitment, err := engine.Commit("raffle-1", 2, serverSeed, 5)
	require.NoError(t, err)
	require.NotEmpty(t, commitment.CommitHash)
	require.NotContains(t, commitment.CommitHash, serverSeed)
	require.Equal(t, 5, commitment.ParticipantsCount)

	reveal, err := engine.Reveal("raffle-1", 2, "client-entropy")
	require.NoError(t, err)
	require.Equal(t, serverSeed, reveal.ServerSeed)
	require.Equal(t, "client-entropy", reveal.ClientSeed)
	require.Equal(t, commitment.CommitHash, reveal.CommitHash)
	require.Equal(t, commitment.CommitHash, reveal.VerificationHash)
	require.GreaterOrEqual(t, reveal.WinnerIndex, 0)
	require.Less(t, reveal.WinnerIndex, 5)
}

func Test_Engine_RevealIsSingleUse(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Reveal("raffle-1", 1, "seed")
	require.ErrorIs(t, err, ErrNoSuchCommitment)

	serverSeed, err := engine.GenerateServerSeed()
	require.NoError(t, err)

	_, err = engine.Commit("raffle-1", 1, serverSeed, 3)
	require.NoError(t, err)

	_, err = engine.Reveal("raffle-1", 1, "seed")
	require.NoError(t, err)

	_, err = engine.Reveal("raffle-1", 1, "seed")
	require.ErrorIs(t, err, ErrNoSuchCommitment)
}

func Test_Engine_DropDiscardsCommitment(t *testing.T) {
	engine := NewEngine()

	serverSeed, err := engine.GenerateServerSeed()
	require.NoError(t, err)

	_, err = engine.Commit("raffle-1", 3, serverSeed, 4)
	require.NoError(t, err)

	engine.Drop("raffle-1", 3)

	_, err = engine.Reveal("raffle-1", 3, "seed")
	require.ErrorIs(t, err, ErrNoSuchCommitment)
}

func Test_Engine_CommitRejectsEmptyPool(t *testing.T) {
	engine := NewEngine()

	serverSeed, err := engine.GenerateServerSeed()
	require.NoError(t, err)

	_, err = engine.Commit("raffle-1", 1, serverSeed, 0)
	require.Error(t, err)

	_, err = engine.Commit("raffle-1", 1, serverSeed, -2)
	require.Error(t, err)
}

func Test_WinnerIndex_Deterministic(t *testing.T) {
	first := WinnerIndex("server-seed", "client-seed", 17)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, WinnerIndex("server-seed", "client-seed", 17))
	}

	require.NotEqual(t,
		WinnerIndex("server-seed", "client-seed", 1<<30),
		WinnerIndex("server-seed", "other-seed", 1<<30),
	)

	require.Equal(t, 0, WinnerIndex("any", "thing", 1))
}

func Test_VerifyFairness(t *testing.T) {
	engine := NewEngine()

	serverSeed, err := engine.GenerateServerSeed()
	require.NoError(t, err)

	commitment, err := engine.Commit("raffle-9", 1, serverSeed, 7)
	require.NoError(t, err)

	reveal, err := engine.Reveal("raffle-9", 1, "viewer-seed")
	require.NoError(t, err)

	require.True(t, VerifyFairness(
		"raffle-9", 1, commitment.CommitHash,
		reveal.ServerSeed, reveal.ClientSeed, 7, reveal.WinnerIndex))

	// Any tampered field must break the proof.
	require.False(t, VerifyFairness(
		"raffle-9", 1, commitment.CommitHash,
		reveal.ServerSeed, reveal.ClientSeed, 7, (reveal.WinnerIndex+1)%7))
	require.False(t, VerifyFairness(
		"raffle-9", 1, commitment.CommitHash,
		"forged-seed", reveal.ClientSeed, 7, reveal.WinnerIndex))
	require.False(t, VerifyFairness(
		"raffle-9", 2, commitment.CommitHash,
		reveal.ServerSeed, reveal.ClientSeed, 7, reveal.WinnerIndex))
	require.False(t, VerifyFairness(
		"other-raffle", 1, commitment.CommitHash,
		reveal.ServerSeed, reveal.ClientSeed, 7, reveal.WinnerIndex))
	require.False(t, VerifyFairness(
		"raffle-9", 1, commitment.CommitHash,
		reveal.ServerSeed, reveal.ClientSeed, 8, reveal.WinnerIndex))
	require.False(t, VerifyFairness(
		"raffle-9", 1, commitment.CommitHash,
		reveal.ServerSeed, reveal.ClientSeed, 0, reveal.WinnerIndex))
}
