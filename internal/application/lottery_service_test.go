package application

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottosix/lottery-api/internal/domain/entity"
	"github.com/lottosix/lottery-api/pkg/cryptobox"
)

func newLotteryFixture(t *testing.T) (*LotteryService, *fakeUserRepo, *fakeDrawRepo) {
	t.Helper()
	users := newFakeUserRepo()
	draws := newFakeDrawRepo()
	svc := &LotteryService{
		Draws:  draws,
		Users:  users,
		Logger: testLogger(),
	}
	return svc, users, draws
}

func addUser(t *testing.T, users *fakeUserRepo, email, role string) *entity.User {
	t.Helper()
	key, err := cryptobox.GenerateKey()
	require.NoError(t, err)
	u := &entity.User{Email: email, Role: role, EncryptionKey: key}
	require.NoError(t, users.Create(u))
	return u
}

// publishMaster installs a winning draw with known numbers, encrypted
// with the admin's key, the way PublishMasterDraw stores it.
func publishMaster(t *testing.T, draws *fakeDrawRepo, admin *entity.User, numbers []int, round int) *entity.Draw {
	t.Helper()
	ct, err := cryptobox.Encrypt(CanonicalNumbers(numbers), admin.EncryptionKey)
	require.NoError(t, err)
	d := &entity.Draw{UserID: admin.ID, Numbers: ct, MasterDraw: true, LotteryRound: round}
	require.NoError(t, draws.Create(d))
	return d
}

func TestValidateNumbers(t *testing.T) {
	cases := []struct {
		name    string
		numbers []int
		wantErr bool
	}{
		{"valid ascending", []int{1, 2, 3, 4, 5, 6}, false},
		{"valid unsorted", []int{60, 1, 33, 2, 47, 10}, false},
		{"too few", []int{1, 2, 3, 4, 5}, true},
		{"too many", []int{1, 2, 3, 4, 5, 6, 7}, true},
		{"zero", []int{0, 2, 3, 4, 5, 6}, true},
		{"above range", []int{1, 2, 3, 4, 5, 61}, true},
		{"adjacent repeat", []int{1, 2, 2, 4, 5, 6}, true},
		// Non-adjacent duplicates have always been accepted.
		{"alternating duplicates", []int{1, 2, 1, 2, 1, 2}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateNumbers(tc.numbers)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDraw)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubmitDrawEncryptsAtRest(t *testing.T) {
	svc, users, draws := newLotteryFixture(t)
	u := addUser(t, users, "ada@example.com", entity.RoleUser)
	ctx := context.Background()

	canonical, err := svc.SubmitDraw(ctx, u.ID, []int{4, 8, 15, 16, 23, 42})
	require.NoError(t, err)
	assert.Equal(t, "4 8 15 16 23 42", canonical)

	stored, err := draws.ListUserDraws(u.ID, false)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotContains(t, string(stored[0].Numbers), "15 16 23", "numbers must not be stored in plaintext")
	assert.False(t, stored[0].BeenPlayed)
	assert.Zero(t, stored[0].LotteryRound)

	plain, err := cryptobox.Decrypt(stored[0].Numbers, u.EncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, "4 8 15 16 23 42", plain)
}

func TestSubmitDrawRejectsInvalid(t *testing.T) {
	svc, users, _ := newLotteryFixture(t)
	u := addUser(t, users, "ada@example.com", entity.RoleUser)

	_, err := svc.SubmitDraw(context.Background(), u.ID, []int{1, 1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, ErrInvalidDraw)
}

func TestPlayableDrawsDecrypts(t *testing.T) {
	svc, users, _ := newLotteryFixture(t)
	u := addUser(t, users, "ada@example.com", entity.RoleUser)
	ctx := context.Background()

	_, err := svc.SubmitDraw(ctx, u.ID, []int{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	_, err = svc.SubmitDraw(ctx, u.ID, []int{10, 20, 30, 40, 50, 60})
	require.NoError(t, err)

	views, err := svc.PlayableDraws(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "1 2 3 4 5 6", views[0].Numbers)
	assert.Equal(t, "10 20 30 40 50 60", views[1].Numbers)
}

func TestPlayableDrawsIntegrityFailureAborts(t *testing.T) {
	svc, users, draws := newLotteryFixture(t)
	u := addUser(t, users, "ada@example.com", entity.RoleUser)
	ctx := context.Background()

	_, err := svc.SubmitDraw(ctx, u.ID, []int{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	stored, _ := draws.ListUserDraws(u.ID, false)
	stored[0].Numbers[len(stored[0].Numbers)-1] ^= 0xff
	require.NoError(t, draws.Update(stored[0]))

	_, err = svc.PlayableDraws(ctx, u.ID)
	assert.ErrorIs(t, err, cryptobox.ErrIntegrity)
}

func TestPublishMasterDraw(t *testing.T) {
	svc, users, draws := newLotteryFixture(t)
	admin := addUser(t, users, "admin@example.com", entity.RoleAdmin)
	ctx := context.Background()

	first, err := svc.PublishMasterDraw(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.LotteryRound)

	parts := strings.Fields(first.Numbers)
	require.Len(t, parts, 6)
	prev := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		require.NoError(t, err)
		assert.Greater(t, n, prev, "winning numbers are distinct and sorted")
		assert.LessOrEqual(t, n, 60)
		prev = n
	}

	// Publishing again supersedes the unplayed master and bumps the round.
	second, err := svc.PublishMasterDraw(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.LotteryRound)

	active, err := draws.ActiveMasterDraw()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, 2, active.LotteryRound)

	view, err := svc.ActiveMasterDraw(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Numbers, view.Numbers)
}

func TestActiveMasterDrawNone(t *testing.T) {
	svc, _, _ := newLotteryFixture(t)
	_, err := svc.ActiveMasterDraw(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishMasterDrawLookupFailurePreservesRoundCounter(t *testing.T) {
	svc, users, draws := newLotteryFixture(t)
	admin := addUser(t, users, "admin@example.com", entity.RoleAdmin)
	ctx := context.Background()

	// A played round-5 master is on record.
	d := publishMaster(t, draws, admin, []int{1, 2, 3, 4, 5, 6}, 5)
	d.BeenPlayed = true
	require.NoError(t, draws.Update(d))

	// A failed round lookup must abort, not restart numbering at 1.
	draws.latestMasterErr = errors.New("connection reset")
	_, err := svc.PublishMasterDraw(ctx, admin.ID)
	require.Error(t, err)

	// Once the store recovers, numbering continues from the record.
	draws.latestMasterErr = nil
	published, err := svc.PublishMasterDraw(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, published.LotteryRound)
}

func TestActiveMasterDrawLookupFailurePropagates(t *testing.T) {
	svc, _, draws := newLotteryFixture(t)
	draws.activeMasterErr = errors.New("connection reset")

	_, err := svc.ActiveMasterDraw(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "an outage must not read as an empty round")
}

func TestRunLotteryLookupFailureIsNotASteadyState(t *testing.T) {
	svc, users, draws := newLotteryFixture(t)
	u := addUser(t, users, "ada@example.com", entity.RoleUser)
	ctx := context.Background()

	_, err := svc.SubmitDraw(ctx, u.ID, []int{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	draws.activeMasterErr = errors.New("connection reset")
	res, err := svc.RunLottery(ctx)
	require.Error(t, err)
	assert.Nil(t, res, "a failed lookup must not report no_active_draw")

	// The entry is untouched once the store recovers.
	draws.activeMasterErr = nil
	views, err := svc.PlayableDraws(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestRunLotteryNoActiveDraw(t *testing.T) {
	svc, users, _ := newLotteryFixture(t)
	u := addUser(t, users, "ada@example.com", entity.RoleUser)
	ctx := context.Background()

	_, err := svc.SubmitDraw(ctx, u.ID, []int{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	res, err := svc.RunLottery(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoActiveDraw, res.Outcome)

	// The entry is untouched and stays playable.
	views, err := svc.PlayableDraws(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestRunLotteryNoEntries(t *testing.T) {
	svc, users, draws := newLotteryFixture(t)
	admin := addUser(t, users, "admin@example.com", entity.RoleAdmin)
	publishMaster(t, draws, admin, []int{1, 2, 3, 4, 5, 6}, 1)
	ctx := context.Background()

	res, err := svc.RunLottery(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoEntries, res.Outcome)

	// Master stays active for a future run.
	active, err := draws.ActiveMasterDraw()
	require.NoError(t, err)
	assert.NotNil(t, active)
}

func TestRunLotteryMatchingIsOrderSensitive(t *testing.T) {
	svc, users, draws := newLotteryFixture(t)
	admin := addUser(t, users, "admin@example.com", entity.RoleAdmin)
	winner := addUser(t, users, "winner@example.com", entity.RoleUser)
	loser := addUser(t, users, "loser@example.com", entity.RoleUser)
	reversed := addUser(t, users, "reversed@example.com", entity.RoleUser)
	ctx := context.Background()

	publishMaster(t, draws, admin, []int{1, 2, 3, 4, 5, 6}, 1)

	_, err := svc.SubmitDraw(ctx, winner.ID, []int{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	_, err = svc.SubmitDraw(ctx, loser.ID, []int{7, 8, 9, 10, 11, 12})
	require.NoError(t, err)
	// Same numbers, different order: not a match.
	_, err = svc.SubmitDraw(ctx, reversed.ID, []int{6, 5, 4, 3, 2, 1})
	require.NoError(t, err)

	res, err := svc.RunLottery(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 1, res.LotteryRound)
	assert.Equal(t, 3, res.Processed)
	require.Len(t, res.Winners, 1)
	assert.Equal(t, winner.ID, res.Winners[0].UserID)
	assert.Equal(t, "winner@example.com", res.Winners[0].Email)
	assert.Equal(t, "1 2 3 4 5 6", res.Winners[0].Numbers)

	// Every entry is now played with plaintext numbers and the round stamped.
	for _, u := range []*entity.User{winner, loser, reversed} {
		played, err := svc.PlayedDraws(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, played, 1)
		assert.Equal(t, 1, played[0].LotteryRound)
	}
	wins, _ := svc.PlayedDraws(ctx, winner.ID)
	assert.True(t, wins[0].MatchesMaster)
	losses, _ := svc.PlayedDraws(ctx, reversed.ID)
	assert.False(t, losses[0].MatchesMaster)
}

func TestRunLotteryProcessesEachDrawOnce(t *testing.T) {
	svc, users, draws := newLotteryFixture(t)
	admin := addUser(t, users, "admin@example.com", entity.RoleAdmin)
	u := addUser(t, users, "ada@example.com", entity.RoleUser)
	ctx := context.Background()

	publishMaster(t, draws, admin, []int{1, 2, 3, 4, 5, 6}, 1)
	_, err := svc.SubmitDraw(ctx, u.ID, []int{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	first, err := svc.RunLottery(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, first.Outcome)

	// The master is consumed; a second run finds no open round and the
	// played entry is never re-examined.
	second, err := svc.RunLottery(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoActiveDraw, second.Outcome)
}

func TestRunLotteryIntegrityFailureAborts(t *testing.T) {
	svc, users, draws := newLotteryFixture(t)
	admin := addUser(t, users, "admin@example.com", entity.RoleAdmin)
	u := addUser(t, users, "ada@example.com", entity.RoleUser)
	ctx := context.Background()

	publishMaster(t, draws, admin, []int{1, 2, 3, 4, 5, 6}, 1)
	_, err := svc.SubmitDraw(ctx, u.ID, []int{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	stored, _ := draws.ListUserDraws(u.ID, false)
	stored[0].Numbers[0] ^= 0xff
	require.NoError(t, draws.Update(stored[0]))

	_, err = svc.RunLottery(ctx)
	assert.ErrorIs(t, err, cryptobox.ErrIntegrity)
}

func TestRunLotteryPartialFailureKeepsCompletedRecords(t *testing.T) {
	svc, users, draws := newLotteryFixture(t)
	admin := addUser(t, users, "admin@example.com", entity.RoleAdmin)
	a := addUser(t, users, "a@example.com", entity.RoleUser)
	b := addUser(t, users, "b@example.com", entity.RoleUser)
	ctx := context.Background()

	publishMaster(t, draws, admin, []int{1, 2, 3, 4, 5, 6}, 1)
	_, err := svc.SubmitDraw(ctx, a.ID, []int{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	_, err = svc.SubmitDraw(ctx, b.ID, []int{7, 8, 9, 10, 11, 12})
	require.NoError(t, err)

	// Update 1 marks the master played, update 2 commits the first
	// entry, update 3 (second entry) fails.
	draws.failUpdateAfter = 3

	res, err := svc.RunLottery(ctx)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Processed)

	// First entry committed as played, second left for a retry.
	playedA, _ := svc.PlayedDraws(ctx, a.ID)
	assert.Len(t, playedA, 1)
	remaining, _ := draws.ListUnplayedUserDraws()
	assert.Len(t, remaining, 1)
}

func TestPlayAgainDeletesOnlyPlayedDraws(t *testing.T) {
	svc, users, draws := newLotteryFixture(t)
	admin := addUser(t, users, "admin@example.com", entity.RoleAdmin)
	u := addUser(t, users, "ada@example.com", entity.RoleUser)
	other := addUser(t, users, "other@example.com", entity.RoleUser)
	ctx := context.Background()

	publishMaster(t, draws, admin, []int{1, 2, 3, 4, 5, 6}, 1)
	_, err := svc.SubmitDraw(ctx, u.ID, []int{7, 8, 9, 10, 11, 12})
	require.NoError(t, err)
	_, err = svc.SubmitDraw(ctx, other.ID, []int{7, 8, 9, 10, 11, 12})
	require.NoError(t, err)

	_, err = svc.RunLottery(ctx)
	require.NoError(t, err)

	// A fresh unplayed entry must survive the purge.
	_, err = svc.SubmitDraw(ctx, u.ID, []int{13, 14, 15, 16, 17, 18})
	require.NoError(t, err)

	n, err := svc.PlayAgain(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	playable, _ := svc.PlayableDraws(ctx, u.ID)
	assert.Len(t, playable, 1)
	played, _ := svc.PlayedDraws(ctx, u.ID)
	assert.Empty(t, played)

	// The other user's results are untouched, and so is the played master.
	otherPlayed, _ := svc.PlayedDraws(ctx, other.ID)
	assert.Len(t, otherPlayed, 1)
	latest, _ := draws.LatestMasterDraw()
	require.NotNil(t, latest)
	assert.True(t, latest.BeenPlayed)
}
