package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sharath-chandra-glean/peopleDateExporter/config"
	"github.com/sharath-chandra-glean/peopleDateExporter/glean"
	"github.com/sharath-chandra-glean/peopleDateExporter/keycloak"
)

// Service orchestrates one sync run: users first, then groups, each fetched
// from the source, transformed, and pushed to the destination. Nothing is
// persisted between runs; every run is a full idempotent re-push.
type Service struct {
	source      Source
	destination Destination
	dryRun      bool
	maxUsers    int
	log         *logrus.Entry
}

// NewService wires a sync service from already-constructed clients.
func NewService(source Source, destination Destination, app config.AppConfig) *Service {
	return &Service{
		source:      source,
		destination: destination,
		dryRun:      app.DryRun,
		maxUsers:    app.MaxUsers,
		log:         logrus.WithField("component", "syncer"),
	}
}

// NewFromConfig builds the real Keycloak and Glean clients and wires a sync
// service around them.
func NewFromConfig(cfg *config.Config) *Service {
	return NewService(keycloak.NewClient(cfg.Keycloak), glean.NewClient(cfg.Glean), cfg.App)
}

// SyncUsers fetches, transforms and pushes users. An empty source collection
// is a successful no-op. The returned count is the number of records
// transformed; in individual push mode per-record failures are logged but do
// not fail the phase.
func (s *Service) SyncUsers(ctx context.Context) (int, error) {
	s.log.Info("Starting user sync")

	users, err := s.source.FetchUsers(ctx, s.maxUsers)
	if err != nil {
		return 0, fmt.Errorf("user sync: %w", err)
	}
	if len(users) == 0 {
		s.log.Warn("No users found in source realm")
		return 0, nil
	}

	employees := make([]glean.Employee, len(users))
	for i, u := range users {
		employees[i] = glean.FormatEmployee(u)
	}

	if s.dryRun {
		s.log.Infof("DRY RUN: would push %d employees", len(employees))
		return len(employees), nil
	}

	result, err := s.destination.PushUsers(ctx, employees)
	if err != nil {
		return 0, fmt.Errorf("user sync: %w", err)
	}
	if result != nil && result.Failed > 0 {
		s.log.Warnf("User push finished with %d/%d failures", result.Failed, result.Total)
	}

	s.log.Infof("Successfully synced %d users", len(employees))
	return len(employees), nil
}

// SyncGroups fetches groups, joins their membership against a fresh
// user-id-to-email map, and pushes the resulting teams. A group whose member
// fetch fails is logged and skipped; the phase continues with the remaining
// groups.
func (s *Service) SyncGroups(ctx context.Context) (int, error) {
	s.log.Info("Starting group sync")

	groups, err := s.source.FetchGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("group sync: %w", err)
	}
	if len(groups) == 0 {
		s.log.Warn("No groups found in source realm")
		return 0, nil
	}

	// Membership entries only carry user IDs, so build the id-to-email
	// lookup from a full, unbounded user fetch. Users without an email
	// cannot appear in a team member list and are left out of the map.
	users, err := s.source.FetchUsers(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("group sync: %w", err)
	}
	emailByID := make(map[string]string, len(users))
	for _, u := range users {
		if u.Email != "" {
			emailByID[u.ID] = u.Email
		}
	}

	var teams []glean.Team
	for _, group := range groups {
		if group.ID == "" {
			continue
		}

		members, err := s.source.FetchGroupMembers(ctx, group.ID)
		if err != nil {
			s.log.WithError(err).Errorf("Failed to process group %s, skipping", group.Name)
			continue
		}

		var memberEmails []string
		for _, m := range members {
			if email, ok := emailByID[m.ID]; ok {
				memberEmails = append(memberEmails, email)
			}
		}

		teams = append(teams, glean.FormatTeam(group, memberEmails))
	}

	if len(teams) == 0 {
		s.log.Warn("No teams to sync")
		return 0, nil
	}

	if s.dryRun {
		s.log.Infof("DRY RUN: would push %d teams", len(teams))
		return len(teams), nil
	}

	if _, err := s.destination.PushTeams(ctx, teams); err != nil {
		return 0, fmt.Errorf("group sync: %w", err)
	}

	s.log.Infof("Successfully synced %d teams", len(teams))
	return len(teams), nil
}

// Run executes the complete sync: authenticate once, then the user phase and the
// group phase in order. Both clients are released on every exit path.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	defer s.source.Close()
	defer s.destination.Close()

	start := time.Now()
	s.log.Info("Starting sync run")

	if err := s.source.Authenticate(ctx); err != nil {
		return Summary{}, err
	}

	usersSynced, err := s.SyncUsers(ctx)
	if err != nil {
		return Summary{}, err
	}

	groupsSynced, err := s.SyncGroups(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		UsersSynced:  usersSynced,
		GroupsSynced: groupsSynced,
		Duration:     time.Since(start),
	}
	s.log.WithFields(logrus.Fields{
		"users":    summary.UsersSynced,
		"groups":   summary.GroupsSynced,
		"duration": summary.Duration.Round(time.Millisecond),
	}).Info("Sync completed successfully")
	return summary, nil
}
