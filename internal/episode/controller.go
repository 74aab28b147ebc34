// Package episode owns the episode counter and fans out episode boundary
// notifications to registered receivers.
package episode

import (
	"go.uber.org/zap"
)

// Receiver is notified around every episode boundary. Calls are
// synchronous and happen in registration order.
type Receiver interface {
	EpisodeWillEnd(episode int)
	EpisodeDidEnd(episode int)
	EpisodeWillStart(episode int)
	EpisodeDidStart(episode int)
}

// Controller holds the current episode number, the episode limit and the
// receiver list. Episodes are numbered from 1.
//
// Reaching the limit is terminal: once an episode >= limit has ended the
// controller is finished, no start notifications are sent and the counter
// stays on the last episode. A limit <= 0 means no limit.
type Controller struct {
	episode   int
	limit     int
	finished  bool
	receivers []Receiver
	log       *zap.Logger
}

func NewController(limit int, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{episode: 1, limit: limit, log: log}
}

// Register adds r to the receiver list. Registering the same receiver
// twice is ignored and reported as false.
func (c *Controller) Register(r Receiver) bool {
	for _, existing := range c.receivers {
		if existing == r {
			return false
		}
	}
	c.receivers = append(c.receivers, r)
	return true
}

// Unregister removes r. It reports whether r was registered.
func (c *Controller) Unregister(r Receiver) bool {
	for i, existing := range c.receivers {
		if existing == r {
			c.receivers = append(c.receivers[:i], c.receivers[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Controller) Episode() int   { return c.episode }
func (c *Controller) Limit() int     { return c.limit }
func (c *Controller) Finished() bool { return c.finished }

// LimitReached reports whether the current episode is the last one.
func (c *Controller) LimitReached() bool {
	return c.limit > 0 && c.episode >= c.limit
}

// Next ends the current episode and, unless the limit has been reached,
// starts the following one.
func (c *Controller) Next() {
	if c.finished {
		return
	}
	ended := c.episode
	for _, r := range c.receivers {
		r.EpisodeWillEnd(ended)
	}
	c.log.Info("episode ended", zap.Int("episode", ended))
	for _, r := range c.receivers {
		r.EpisodeDidEnd(ended)
	}

	if c.LimitReached() {
		c.finished = true
		c.log.Info("episode limit reached", zap.Int("episode", ended), zap.Int("limit", c.limit))
		return
	}

	next := ended + 1
	for _, r := range c.receivers {
		r.EpisodeWillStart(next)
	}
	c.episode = next
	c.log.Debug("episode started", zap.Int("episode", next))
	for _, r := range c.receivers {
		r.EpisodeDidStart(next)
	}
}
