package events

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"confide/internal/ratelimit/models"
	"confide/internal/ratelimit/ports"
)

// runEventLogContract checks the behavior every backend shares.
// The backend must be empty for the addresses used here.
func runEventLogContract(s *suite.Suite, log ports.EventLog, address string) {
	ctx := context.Background()
	since := time.Now().Add(-time.Minute)

	s.Run("empty bucket counts zero", func() {
		n, err := log.CountSince(ctx, address, models.ClassComment, since)
		s.Require().NoError(err)
		s.Equal(0, n)
	})

	s.Run("recorded events are counted per bucket", func() {
		for range 3 {
			s.Require().NoError(log.Record(ctx, address, models.ClassComment))
		}
		s.Require().NoError(log.Record(ctx, address, models.ClassPost))

		n, err := log.CountSince(ctx, address, models.ClassComment, since)
		s.Require().NoError(err)
		s.Equal(3, n)

		n, err = log.CountSince(ctx, address, models.ClassPost, since)
		s.Require().NoError(err)
		s.Equal(1, n)

		n, err = log.CountSince(ctx, address+"0", models.ClassComment, since)
		s.Require().NoError(err)
		s.Equal(0, n, "other addresses are isolated")
	})

	s.Run("events before the window start are excluded", func() {
		n, err := log.CountSince(ctx, address, models.ClassComment, time.Now().Add(time.Hour))
		s.Require().NoError(err)
		s.Equal(0, n)
	})
}
