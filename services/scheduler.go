package services

import (
	"time"

	"lore-governance-system/config"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs the periodic maintenance jobs: the deadline resolution
// sweep, retention archival, and the leaderboard recomputation.
type Scheduler struct {
	Cfg         *config.Config
	Workflow    *WorkflowService
	Leaderboard *LeaderboardService

	sched gocron.Scheduler
}

func NewScheduler(cfg *config.Config, workflow *WorkflowService, leaderboard *LeaderboardService) *Scheduler {
	return &Scheduler{Cfg: cfg, Workflow: workflow, Leaderboard: leaderboard}
}

// Start registers and launches the background jobs. Each tick is independent;
// a failed run logs and waits for the next interval.
func (s *Scheduler) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.sched = sched

	// Resolve proposals whose voting period has ended.
	if _, err := sched.NewJob(
		gocron.DurationJob(s.Cfg.ResolveSweepInterval),
		gocron.NewTask(func() {
			if n := s.Workflow.ResolveDue(time.Now()); n > 0 {
				log.WithField("resolved", n).Info("deadline sweep resolved proposals")
			}
		}),
	); err != nil {
		return err
	}

	// Daily housekeeping: archive old resolutions, rebuild the leaderboard.
	if _, err := sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			now := time.Now()
			if n, err := s.Workflow.ArchiveExpired(now); err != nil {
				log.WithError(err).Error("retention archival failed")
			} else if n > 0 {
				log.WithField("archived", n).Info("retention archival complete")
			}
			if _, err := s.Leaderboard.Recompute(now); err != nil {
				log.WithError(err).Error("leaderboard recomputation failed")
			}
		}),
	); err != nil {
		return err
	}

	sched.Start()
	log.Info("scheduler started")
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.sched != nil {
		if err := s.sched.Shutdown(); err != nil {
			log.WithError(err).Warn("scheduler shutdown error")
		}
	}
}
