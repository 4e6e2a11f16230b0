package application

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lottosix/lottery-api/internal/domain/entity"
	repo "github.com/lottosix/lottery-api/internal/domain/repository"
	"github.com/lottosix/lottery-api/pkg/cryptobox"
	"github.com/lottosix/lottery-api/pkg/helpers"
	"github.com/lottosix/lottery-api/pkg/mailer"
)

const (
	drawSize  = 6
	numberMin = 1
	numberMax = 60
)

// LotteryService covers the draw registry and the reconciliation pass:
// user draw submission and listing, master draw publication, and the
// admin-triggered run that matches every unplayed entry against the
// active winning draw exactly once.
type LotteryService struct {
	Draws  repo.DrawRepository
	Users  repo.UserRepository
	Logger *logrus.Logger

	Pub         *helpers.RabbitPublisher
	MailEnabled bool
}

// CanonicalNumbers renders a draw in its canonical space-joined form.
// Matching is exact string equality of this representation, so entry
// order matters: the same six numbers in a different order do not
// match.
func CanonicalNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}

// ValidateNumbers applies the submission rules: exactly six numbers in
// [1,60], and no entry equal to the one immediately before it. Only
// adjacent repeats are rejected; non-adjacent duplicates pass, matching
// the product's long-standing behavior.
func ValidateNumbers(numbers []int) error {
	if len(numbers) != drawSize {
		return fmt.Errorf("%w: expected %d numbers, got %d", ErrInvalidDraw, drawSize, len(numbers))
	}
	previous := 0
	for _, n := range numbers {
		if n < numberMin || n > numberMax {
			return fmt.Errorf("%w: number %d out of range [%d,%d]", ErrInvalidDraw, n, numberMin, numberMax)
		}
		if n == previous {
			return fmt.Errorf("%w: numbers cannot repeat", ErrInvalidDraw)
		}
		previous = n
	}
	return nil
}

// DrawView is a decrypted draw prepared for display.
type DrawView struct {
	ID            string `json:"id"`
	Numbers       string `json:"numbers"`
	BeenPlayed    bool   `json:"been_played"`
	MatchesMaster bool   `json:"matches_master"`
	LotteryRound  int    `json:"lottery_round"`
}

// SubmitDraw validates and stores a user entry: encrypted with the
// owner's key, unplayed, round 0.
func (s *LotteryService) SubmitDraw(ctx context.Context, userID string, numbers []int) (string, error) {
	if err := ValidateNumbers(numbers); err != nil {
		return "", err
	}
	u, err := s.Users.GetByID(userID)
	if err != nil || u == nil {
		return "", ErrUserNotFound
	}

	canonical := CanonicalNumbers(numbers)
	ciphertext, err := cryptobox.Encrypt(canonical, u.EncryptionKey)
	if err != nil {
		return "", err
	}

	d := &entity.Draw{
		UserID:       userID,
		Numbers:      ciphertext,
		MasterDraw:   false,
		LotteryRound: 0,
	}
	if err := s.Draws.Create(d); err != nil {
		return "", err
	}
	return canonical, nil
}

// PlayableDraws returns the user's unplayed draws, decrypted for
// display. A decryption failure aborts the whole listing.
func (s *LotteryService) PlayableDraws(ctx context.Context, userID string) ([]DrawView, error) {
	u, err := s.Users.GetByID(userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	draws, err := s.Draws.ListUserDraws(userID, false)
	if err != nil {
		return nil, err
	}
	views := make([]DrawView, 0, len(draws))
	for _, d := range draws {
		plain, err := cryptobox.Decrypt(d.Numbers, u.EncryptionKey)
		if err != nil {
			return nil, err
		}
		views = append(views, DrawView{ID: d.ID, Numbers: plain})
	}
	return views, nil
}

// PlayedDraws returns the user's results. Played draws store plaintext
// (the reconciler replaces the ciphertext), so no decryption happens.
func (s *LotteryService) PlayedDraws(ctx context.Context, userID string) ([]DrawView, error) {
	draws, err := s.Draws.ListUserDraws(userID, true)
	if err != nil {
		return nil, err
	}
	views := make([]DrawView, 0, len(draws))
	for _, d := range draws {
		views = append(views, DrawView{
			ID:            d.ID,
			Numbers:       string(d.Numbers),
			BeenPlayed:    true,
			MatchesMaster: d.MatchesMaster,
			LotteryRound:  d.LotteryRound,
		})
	}
	return views, nil
}

// PlayAgain bulk-deletes the user's played draws. Master draws and
// unplayed entries are never removed.
func (s *LotteryService) PlayAgain(ctx context.Context, userID string) (int64, error) {
	return s.Draws.DeletePlayedUserDraws(userID)
}

// MasterDrawView is the decrypted active winning draw for the admin page.
type MasterDrawView struct {
	Numbers      string `json:"numbers"`
	LotteryRound int    `json:"lottery_round"`
}

// PublishMasterDraw generates a sorted random winning draw for the next
// round, encrypted with the publishing admin's key. An existing
// unplayed master draw is superseded (deleted) first; played masters
// are kept forever and only feed the round counter.
//
// Concurrent publishes race last-write-wins; acceptable for an
// admin-only, low-frequency action.
func (s *LotteryService) PublishMasterDraw(ctx context.Context, adminID string) (*MasterDrawView, error) {
	admin, err := s.Users.GetByID(adminID)
	if err != nil || admin == nil {
		return nil, ErrUserNotFound
	}

	// Round numbering must survive restarts, so a failed lookup aborts
	// the publish rather than silently restarting the counter at 1.
	latest, err := s.Draws.LatestMasterDraw()
	if err != nil {
		return nil, err
	}
	round := 1
	if latest != nil {
		round = latest.LotteryRound + 1
	}

	active, err := s.Draws.ActiveMasterDraw()
	if err != nil {
		return nil, err
	}
	if active != nil {
		if err := s.Draws.Delete(active.ID); err != nil {
			return nil, err
		}
	}

	numbers := randomDraw()
	canonical := CanonicalNumbers(numbers)
	ciphertext, err := cryptobox.Encrypt(canonical, admin.EncryptionKey)
	if err != nil {
		return nil, err
	}

	d := &entity.Draw{
		UserID:       adminID,
		Numbers:      ciphertext,
		MasterDraw:   true,
		LotteryRound: round,
	}
	if err := s.Draws.Create(d); err != nil {
		return nil, err
	}
	return &MasterDrawView{Numbers: canonical, LotteryRound: round}, nil
}

// randomDraw picks six distinct numbers in [1,60] and sorts them.
func randomDraw() []int {
	perm := rand.Perm(numberMax)
	numbers := make([]int, drawSize)
	for i := 0; i < drawSize; i++ {
		numbers[i] = perm[i] + 1
	}
	sort.Ints(numbers)
	return numbers
}

// ActiveMasterDraw returns the current winning draw decrypted with its
// publisher's key, or ErrNotFound when no round is open.
func (s *LotteryService) ActiveMasterDraw(ctx context.Context) (*MasterDrawView, error) {
	master, err := s.Draws.ActiveMasterDraw()
	if err != nil {
		return nil, err
	}
	if master == nil {
		return nil, ErrNotFound
	}
	owner, err := s.Users.GetByID(master.UserID)
	if err != nil || owner == nil {
		return nil, ErrUserNotFound
	}
	plain, err := cryptobox.Decrypt(master.Numbers, owner.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return &MasterDrawView{Numbers: plain, LotteryRound: master.LotteryRound}, nil
}

// RunOutcome distinguishes the reconciliation pass's steady states from
// a completed run. The first two are informational, not errors.
type RunOutcome string

const (
	OutcomeNoActiveDraw RunOutcome = "no_active_draw"
	OutcomeNoEntries    RunOutcome = "no_entries"
	OutcomeCompleted    RunOutcome = "completed"
)

// WinnerResult is one matched draw.
type WinnerResult struct {
	LotteryRound int    `json:"lottery_round"`
	Numbers      string `json:"numbers"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
}

// LotteryRunResult is what the admin page renders after a run.
type LotteryRunResult struct {
	Outcome      RunOutcome     `json:"outcome"`
	LotteryRound int            `json:"lottery_round,omitempty"`
	Winners      []WinnerResult `json:"winners"`
	Processed    int            `json:"processed"`
}

// RunLottery reconciles every unplayed user draw against the active
// winning draw, exactly once per draw.
//
// Each record update commits individually; a failure mid-batch leaves
// earlier draws played and the remainder for a retry. Draws submitted
// while the pass runs may miss this round and are picked up next time.
// A decryption integrity failure aborts the run: it means corrupted
// data or a key mismatch and must surface, not be skipped.
func (s *LotteryService) RunLottery(ctx context.Context) (*LotteryRunResult, error) {
	// "No active draw" is a valid steady state; a failed lookup is not,
	// and must never masquerade as one.
	master, err := s.Draws.ActiveMasterDraw()
	if err != nil {
		return nil, err
	}
	if master == nil {
		return &LotteryRunResult{Outcome: OutcomeNoActiveDraw, Winners: []WinnerResult{}}, nil
	}

	entries, err := s.Draws.ListUnplayedUserDraws()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		// Master draw stays active for a future run.
		return &LotteryRunResult{Outcome: OutcomeNoEntries, LotteryRound: master.LotteryRound, Winners: []WinnerResult{}}, nil
	}

	publisher, err := s.Users.GetByID(master.UserID)
	if err != nil || publisher == nil {
		return nil, ErrUserNotFound
	}
	masterPlain, err := cryptobox.Decrypt(master.Numbers, publisher.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("master draw round %d: %w", master.LotteryRound, err)
	}

	master.BeenPlayed = true
	if err := s.Draws.Update(master); err != nil {
		return nil, err
	}

	result := &LotteryRunResult{
		Outcome:      OutcomeCompleted,
		LotteryRound: master.LotteryRound,
		Winners:      []WinnerResult{},
	}

	for _, d := range entries {
		owner, err := s.Users.GetByID(d.UserID)
		if err != nil || owner == nil {
			return result, ErrUserNotFound
		}
		plain, err := cryptobox.Decrypt(d.Numbers, owner.EncryptionKey)
		if err != nil {
			return result, fmt.Errorf("draw %s: %w", d.ID, err)
		}

		if plain == masterPlain {
			d.MatchesMaster = true
			result.Winners = append(result.Winners, WinnerResult{
				LotteryRound: master.LotteryRound,
				Numbers:      plain,
				UserID:       d.UserID,
				Email:        owner.Email,
			})
			s.notifyWinner(ctx, owner, plain, master.LotteryRound)
		}

		// Played draws store plaintext from here on; the record is
		// final after this update.
		d.BeenPlayed = true
		d.Numbers = []byte(plain)
		d.LotteryRound = master.LotteryRound
		if err := s.Draws.Update(d); err != nil {
			return result, err
		}
		result.Processed++
	}

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"round":   master.LotteryRound,
			"entries": result.Processed,
			"winners": len(result.Winners),
		}).Info("lottery round reconciled")
	}
	return result, nil
}

func (s *LotteryService) notifyWinner(ctx context.Context, u *entity.User, numbers string, round int) {
	if s.Pub == nil || !s.MailEnabled {
		return
	}
	job := mailer.EmailJob{To: u.Email, Template: mailer.TemplateWinner, Data: map[string]any{
		"Firstname": u.Firstname,
		"Numbers":   numbers,
		"Round":     round,
	}}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("email", u.Email).Warn("winner email enqueue failed")
	}
}
