package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender writes messages to the log instead of a broker.
type LogSender struct {
	logger *logrus.Logger
}

func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.WithFields(logrus.Fields{
		"kind":           msg.Kind,
		"email":          msg.Email,
		"reservation_id": msg.ReservationID,
		"status":         msg.Status,
		"check_in":       msg.CheckIn,
		"check_out":      msg.CheckOut,
	}).Info("notification")
	return nil
}
