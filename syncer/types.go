package syncer

import (
	"context"
	"time"

	"github.com/sharath-chandra-glean/peopleDateExporter/glean"
	"github.com/sharath-chandra-glean/peopleDateExporter/keycloak"
)

// Summary is the outcome of one complete sync run.
type Summary struct {
	UsersSynced  int           `json:"users_synced"`
	GroupsSynced int           `json:"groups_synced"`
	Duration     time.Duration `json:"-"`
}

// Source is the identity-provider side of the sync. Satisfied by
// *keycloak.Client; faked in tests.
type Source interface {
	Authenticate(ctx context.Context) error
	FetchUsers(ctx context.Context, maxUsers int) ([]keycloak.User, error)
	FetchGroups(ctx context.Context) ([]keycloak.Group, error)
	FetchGroupMembers(ctx context.Context, groupID string) ([]keycloak.GroupMember, error)
	Close()
}

// Destination is the indexing side of the sync. Satisfied by *glean.Client;
// faked in tests.
type Destination interface {
	PushUsers(ctx context.Context, employees []glean.Employee) (*glean.PushResult, error)
	PushTeams(ctx context.Context, teams []glean.Team) (*glean.IndexResponse, error)
	Close()
}
