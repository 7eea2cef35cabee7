package service

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/Leganyst/hotel-reservations/internal/lock"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidState          = errors.New("invalid reservation state")
	ErrConflict              = errors.New("conflict")
	ErrPaymentRequired       = errors.New("payment required")
	ErrPaymentGatewayFailure = errors.New("payment gateway failure")
	ErrInvalidInput          = errors.New("invalid input")
)

var (
	ErrCheckInTooEarly = fmt.Errorf("%w: check-in date has not started yet", ErrInvalidState)
	ErrCheckInTooLate  = fmt.Errorf("%w: stay has already ended", ErrInvalidState)
	ErrRoomOccupied    = fmt.Errorf("%w: room is currently occupied", ErrConflict)
	ErrRoomUnavailable = fmt.Errorf("%w: room is not available for the selected dates", ErrConflict)
)

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func lockErr(err error) error {
	if errors.Is(err, lock.ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

func gatewayErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPaymentGatewayFailure, op, err)
}

// ToStatus maps engine errors to gRPC status errors.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrInvalidState):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, ErrPaymentRequired):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrPaymentGatewayFailure):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Errorf(codes.Internal, "internal: %v", err)
	}
}
