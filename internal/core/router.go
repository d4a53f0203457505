package core

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Router fans a decoded change notification into the subscription
// registry. The recipient set is taken as-is from the producer; the
// router applies no filtering of its own, so delivery policy questions
// (does a removed member hear about its own removal, does a sender hear
// its own message) are settled entirely at the write path.
type Router struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewRouter builds a router publishing into registry.
func NewRouter(registry *Registry, logger *zerolog.Logger) *Router {
	return &Router{registry: registry, log: logger}
}

// Publish enqueues the notification's event for every recipient.
// O(|recipients|), no database access, side effect only.
func (rt *Router) Publish(n *ChangeNotification) {
	recipients := lo.Uniq(n.Recipients)
	for _, userID := range recipients {
		rt.registry.Publish(userID, n.Event)
	}
	rt.log.Debug().
		Str("event", n.Event.Name()).
		Int("recipients", len(recipients)).
		Msg("event routed")
}
