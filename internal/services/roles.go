package services

import (
	"imposter-game-backend/internal/apperr"
	"imposter-game-backend/internal/models"
	"imposter-game-backend/internal/random"
)

// AssignRoles partitions playerIDs into imposterCount imposters and
// civilians. The draw is a partial Fisher-Yates shuffle, so every subset of
// the given size is equally likely.
func AssignRoles(playerIDs []string, imposterCount int, rng random.Source) (map[string]string, error) {
	n := len(playerIDs)
	if imposterCount < 1 || imposterCount >= n {
		return nil, apperr.Newf(apperr.InsufficientPlayers,
			"%d players cannot hold %d imposters", n, imposterCount)
	}

	order := make([]string, n)
	copy(order, playerIDs)
	for i := 0; i < imposterCount; i++ {
		j := i + rng.IntN(n-i)
		order[i], order[j] = order[j], order[i]
	}

	roles := make(map[string]string, n)
	for i, id := range order {
		if i < imposterCount {
			roles[id] = models.RoleImposter
		} else {
			roles[id] = models.RoleCivilian
		}
	}
	return roles, nil
}

// RoleInformation is what a player sees on their card.
func RoleInformation(session *models.Session, role string) string {
	if role == models.RoleImposter {
		return session.ImposterHint
	}
	return session.SecretTopic
}
