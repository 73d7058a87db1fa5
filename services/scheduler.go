package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
)

// Scheduler runs the periodic maintenance jobs: reloading the acronym
// table so edits to the reference sheet show up without a restart, and
// a daily digest of questions awaiting review.
type Scheduler struct {
	scheduler *gocron.Scheduler
	acronyms  *AcronymService
	audit     *AuditService
}

func NewScheduler(acronyms *AcronymService, audit *AuditService) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		acronyms:  acronyms,
		audit:     audit,
	}
}

// Start registers the jobs and begins the schedule in the background.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(6).Hours().Do(s.reloadAcronyms); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(1).Day().At("08:00").Do(s.pendingDigest); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	logger.Info("Scheduler started", "jobs", len(s.scheduler.Jobs()))
	return nil
}

// Stop halts the schedule and waits for running jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) reloadAcronyms() {
	if err := s.acronyms.Reload(); err != nil {
		logger.Error("Scheduled acronym reload failed", "error", err)
	}
}

func (s *Scheduler) pendingDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-24 * time.Hour)
	count, err := s.audit.PendingSince(ctx, cutoff)
	if err != nil {
		logger.Error("Pending digest failed", "error", err)
		return
	}

	logger.Info("Daily review digest", "pending_last_24h", count)
}
