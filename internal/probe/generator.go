package probe

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/pulse/internal/domain/model"
)

func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// generateUsers returns n fresh user ids so repeated runs never collide.
func generateUsers(n int) []string {
	run := uuid.NewString()[:8]
	users := make([]string, n)
	for i := range users {
		users[i] = "probe-" + run + "-" + uuid.NewString()[:8]
	}
	return users
}

// generateEvents spreads n events with random types over users.
func generateEvents(n int, users []string) []Event {
	events := make([]Event, n)
	for i := range events {
		events[i] = Event{
			Type:     string(model.EventTypes[randomIndex(len(model.EventTypes))]),
			UserID:   users[randomIndex(len(users))],
			Metadata: map[string]any{"source": "probe", "seq": i},
		}
	}
	return events
}
