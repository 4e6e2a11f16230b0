package entity

import "time"

// Draw is a lottery entry. Numbers holds ciphertext while the draw is
// unplayed; the reconciliation pass replaces it with the decrypted
// plaintext when it marks the draw played. MasterDraw distinguishes the
// admin-published winning draw from user submissions.
//
// Invariant: at most one draw has MasterDraw && !BeenPlayed at a time
// (enforced by a partial unique index). Once BeenPlayed is set, the
// record is final.
type Draw struct {
	ID            string
	UserID        string
	Numbers       []byte
	BeenPlayed    bool
	MatchesMaster bool
	MasterDraw    bool
	LotteryRound  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
