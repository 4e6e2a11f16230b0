package repository

import "github.com/lottosix/lottery-api/internal/domain/entity"

// DrawRepository defines draw persistence. Every mutation commits
// individually; the reconciliation loop deliberately updates one record
// per transaction so a mid-batch failure leaves prior records played.
type DrawRepository interface {
	Create(d *entity.Draw) error
	// ActiveMasterDraw returns the single unplayed master draw, or
	// (nil, nil) when no round is open. A non-nil error always means
	// an infrastructure failure, never absence.
	ActiveMasterDraw() (*entity.Draw, error)
	// LatestMasterDraw returns the most recent master draw regardless
	// of played state, for round numbering. (nil, nil) means no master
	// draw has ever been published.
	LatestMasterDraw() (*entity.Draw, error)
	ListUnplayedUserDraws() ([]*entity.Draw, error)
	ListUserDraws(userID string, played bool) ([]*entity.Draw, error)
	Update(d *entity.Draw) error
	Delete(id string) error
	// DeletePlayedUserDraws removes played, non-master draws owned by
	// the user ("play again"). Master and unplayed rows are never
	// touched.
	DeletePlayedUserDraws(userID string) (int64, error)
}
