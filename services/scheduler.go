// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartExpirySweep runs a periodic sweep over pending challenges whose
// deadline has passed. The in-process timers normally win this race; the
// sweep exists for challenges that outlived a restart, since persisted
// challenges survive but their timers do not.
func (s *ChallengeService) StartExpirySweep() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	sched.Start()

	_, err = sched.NewJob(
		gocron.DurationJob(15*time.Second),
		gocron.NewTask(func() {
			ctx := context.Background()
			stale, err := s.Challenges.StalePendingChallenges(ctx, s.Clock.Now())
			if err != nil {
				log.Printf("[Sweep] DB error: %v", err)
				return
			}

			for _, challenge := range stale {
				if err := s.Expire(ctx, challenge.ID); err != nil {
					log.Printf("[Sweep] Failed to expire challenge %s: %v", challenge.ID, err)
				} else {
					log.Printf("✅ Swept expired challenge: %s", challenge.ID)
				}
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	return sched, nil
}
