// Package jobs holds the periodic reconciliation sweeps and their scheduler.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Leganyst/hotel-reservations/internal/clock"
	"github.com/Leganyst/hotel-reservations/internal/lock"
	"github.com/Leganyst/hotel-reservations/internal/model"
	"github.com/Leganyst/hotel-reservations/internal/notify"
	"github.com/Leganyst/hotel-reservations/internal/repository"
)

type CompletionSummary struct {
	Scanned int
	Updated int
	Failed  int
}

type OccupancySummary struct {
	Set     int
	Cleared int
	Failed  int
}

// Sweeper repairs state that nobody corrected by hand: stays whose dates
// passed without a check-in, and room occupancy flags that drifted from the
// reservations.
type Sweeper struct {
	db       *gorm.DB
	repos    repository.Set
	locker   lock.Locker
	clock    clock.Clock
	notifier notify.Notifier
	logger   *logrus.Logger
}

func NewSweeper(
	db *gorm.DB,
	repos repository.Set,
	locker lock.Locker,
	clk clock.Clock,
	notifier notify.Notifier,
	logger *logrus.Logger,
) *Sweeper {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Sweeper{
		db:       db,
		repos:    repos,
		locker:   locker,
		clock:    clk,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *Sweeper) inTx(ctx context.Context, fn func(repos repository.Set) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.repos.WithTx(tx))
	})
}

// RunCompletionSweep moves CONFIRMED reservations whose check-out day is
// already behind us to COMPLETED. One failing reservation does not stop the
// batch.
func (s *Sweeper) RunCompletionSweep(ctx context.Context) (CompletionSummary, error) {
	var summary CompletionSummary

	today := clock.Today(s.clock)
	due, err := s.repos.Reservations.ListConfirmedEndingBefore(ctx, today)
	if err != nil {
		return summary, fmt.Errorf("list due reservations: %w", err)
	}
	summary.Scanned = len(due)

	for i := range due {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res := &due[i]
		entry := s.logger.WithFields(logrus.Fields{
			"job":            "completion",
			"reservation_id": res.ID,
			"room_id":        res.RoomID,
		})

		updated, err := s.completeOne(ctx, res)
		switch {
		case err != nil:
			summary.Failed++
			entry.WithError(err).Error("complete reservation")
		case updated:
			summary.Updated++
			entry.Info("reservation completed by sweep")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"job":     "completion",
		"scanned": summary.Scanned,
		"updated": summary.Updated,
		"failed":  summary.Failed,
	}).Info("completion sweep finished")
	return summary, nil
}

func (s *Sweeper) completeOne(ctx context.Context, res *model.Reservation) (bool, error) {
	release, err := s.locker.Acquire(ctx, lock.ReservationKey(res.ID), lock.RoomKey(res.RoomID))
	if err != nil {
		return false, err
	}
	defer release()

	var (
		updated bool
		guest   *model.Guest
		room    *model.Room
	)
	err = s.inTx(ctx, func(repos repository.Set) error {
		var err error
		updated, err = repos.Reservations.CompareAndSetStatus(ctx, res.ID, model.ReservationStatusConfirmed, model.ReservationStatusCompleted)
		if err != nil || !updated {
			return err
		}
		res.Status = model.ReservationStatusCompleted

		if err := repos.Events.Create(ctx, model.NewReservationEvent(model.EventTypeReservationCompleted, res, map[string]any{
			"actor": "sweep",
		})); err != nil {
			return err
		}
		if guest, err = repos.Guests.GetByID(ctx, res.GuestID); err != nil {
			return fmt.Errorf("load guest: %w", err)
		}
		if room, err = repos.Rooms.GetByID(ctx, res.RoomID); err != nil {
			return fmt.Errorf("load room: %w", err)
		}
		return nil
	})
	if err != nil || !updated {
		return false, err
	}

	s.notifier.Notify(notify.NewMessage(notify.KindStayCompleted, res, guest, room, 0, s.clock.Now()))
	return true, nil
}

// RunOccupancySweep makes each room's occupied flag match whether a
// CHECKED_IN reservation covers today. The snapshot only picks candidate
// rooms; each one is decided again under its lock.
func (s *Sweeper) RunOccupancySweep(ctx context.Context) (OccupancySummary, error) {
	var summary OccupancySummary

	today := clock.Today(s.clock)
	covering, err := s.repos.Reservations.ListCheckedInCovering(ctx, today)
	if err != nil {
		return summary, fmt.Errorf("list checked-in reservations: %w", err)
	}
	occupiedIDs, err := s.repos.Rooms.ListOccupiedIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("list occupied rooms: %w", err)
	}

	shouldBe := make(map[uuid.UUID]struct{}, len(covering))
	for _, r := range covering {
		shouldBe[r.RoomID] = struct{}{}
	}
	flagged := make(map[uuid.UUID]struct{}, len(occupiedIDs))
	for _, id := range occupiedIDs {
		flagged[id] = struct{}{}
	}

	corrections := make(map[uuid.UUID]bool)
	for id := range flagged {
		if _, ok := shouldBe[id]; !ok {
			corrections[id] = false
		}
	}
	for id := range shouldBe {
		if _, ok := flagged[id]; !ok {
			corrections[id] = true
		}
	}

	ids := make([]uuid.UUID, 0, len(corrections))
	for id := range corrections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		entry := s.logger.WithFields(logrus.Fields{
			"job":     "occupancy",
			"room_id": id,
		})

		changed, occupied, err := s.correctRoom(ctx, id)
		switch {
		case err != nil:
			summary.Failed++
			entry.WithError(err).Error("correct room occupancy")
		case changed && occupied:
			summary.Set++
			entry.Warn("room marked occupied by sweep")
		case changed:
			summary.Cleared++
			entry.Warn("room marked free by sweep")
		default:
			entry.WithField("planned_occupied", corrections[id]).Debug("room already consistent under lock")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"job":     "occupancy",
		"set":     summary.Set,
		"cleared": summary.Cleared,
		"failed":  summary.Failed,
	}).Info("occupancy sweep finished")
	return summary, nil
}

// correctRoom recomputes the flag for one room while holding its lock, so a
// check-in or check-out that committed after the sweep's snapshot wins.
func (s *Sweeper) correctRoom(ctx context.Context, roomID uuid.UUID) (changed, occupied bool, err error) {
	release, err := s.locker.Acquire(ctx, lock.RoomKey(roomID))
	if err != nil {
		return false, false, err
	}
	defer release()

	today := clock.Today(s.clock)
	err = s.inTx(ctx, func(repos repository.Set) error {
		var err error
		occupied, err = repos.Reservations.HasCheckedInCovering(ctx, roomID, today)
		if err != nil {
			return fmt.Errorf("check stays: %w", err)
		}
		changed, err = repos.Rooms.SetOccupied(ctx, roomID, occupied)
		if err != nil || !changed {
			return err
		}
		return repos.Events.Create(ctx, model.NewRoomEvent(model.EventTypeOccupancyCorrected, roomID, map[string]any{
			"occupied": occupied,
			"day":      today.Format(time.DateOnly),
		}))
	})
	return changed, occupied, err
}
