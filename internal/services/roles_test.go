package services

import (
	"errors"
	"testing"

	"imposter-game-backend/internal/apperr"
	"imposter-game-backend/internal/models"
	"imposter-game-backend/internal/random"
)

func TestAssignRolesCounts(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f"}
	for count := 1; count < len(ids); count++ {
		roles, err := AssignRoles(ids, count, random.New(int64(count)))
		if err != nil {
			t.Fatalf("AssignRoles(%d): %v", count, err)
		}
		imposters := 0
		for _, id := range ids {
			switch roles[id] {
			case models.RoleImposter:
				imposters++
			case models.RoleCivilian:
			default:
				t.Fatalf("player %s got role %q", id, roles[id])
			}
		}
		if imposters != count {
			t.Fatalf("imposters = %d, want %d", imposters, count)
		}
	}
}

func TestAssignRolesRejectsBadCounts(t *testing.T) {
	ids := []string{"a", "b", "c"}
	for _, count := range []int{0, 3, 4, -1} {
		if _, err := AssignRoles(ids, count, random.New(1)); !errors.Is(err, apperr.ErrInsufficientPlayers) {
			t.Fatalf("AssignRoles(%d) error = %v, want InsufficientPlayers", count, err)
		}
	}
}

func TestAssignRolesScripted(t *testing.T) {
	roles, err := AssignRoles([]string{"a", "b", "c", "d"}, 1, random.NewSequence(2))
	if err != nil {
		t.Fatalf("AssignRoles: %v", err)
	}
	if roles["c"] != models.RoleImposter {
		t.Fatalf("roles = %v, want c as imposter", roles)
	}
}

func TestAssignRolesIsRoughlyUniform(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	rng := random.New(2024)
	hits := map[string]int{}
	const trials = 8000
	for i := 0; i < trials; i++ {
		roles, err := AssignRoles(ids, 1, rng)
		if err != nil {
			t.Fatalf("AssignRoles: %v", err)
		}
		for id, role := range roles {
			if role == models.RoleImposter {
				hits[id]++
			}
		}
	}
	// Expected 2000 per player; allow a generous band.
	for _, id := range ids {
		if hits[id] < 1700 || hits[id] > 2300 {
			t.Fatalf("player %s imposter %d times out of %d", id, hits[id], trials)
		}
	}
}

func TestAssignRolesLeavesInputOrder(t *testing.T) {
	ids := []string{"a", "b", "c"}
	if _, err := AssignRoles(ids, 1, random.NewSequence(2)); err != nil {
		t.Fatalf("AssignRoles: %v", err)
	}
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("input reordered: %v", ids)
	}
}
