package imsdk

import (
	"go.uber.org/zap"

	"imkit/internal/domain"
)

// UserInfo resolves a user through the registered provider. With caching
// enabled a resolved user is served from memory afterwards; misses are not
// cached.
func (c *Client) UserInfo(userID string) *domain.UserInfo {
	c.mu.RLock()
	p, cache := c.userInfo, c.cacheUserInfo
	if cache {
		if u, ok := c.userCache[userID]; ok {
			c.mu.RUnlock()
			return &u
		}
	}
	c.mu.RUnlock()

	if p == nil {
		return nil
	}
	u := p.UserInfo(userID)
	if u != nil && cache {
		c.mu.Lock()
		c.userCache[userID] = *u
		c.mu.Unlock()
	}
	return u
}

// RefreshUserInfo drops a cached user so the next lookup asks the provider.
func (c *Client) RefreshUserInfo(userID string) {
	c.mu.Lock()
	delete(c.userCache, userID)
	c.mu.Unlock()
}

func (c *Client) Friends() []domain.UserInfo {
	c.mu.RLock()
	p := c.friends
	c.mu.RUnlock()
	if p == nil {
		return nil
	}
	return p.Friends()
}

func (c *Client) GroupInfo(groupID string) *domain.Group {
	c.mu.RLock()
	p := c.groups
	c.mu.RUnlock()
	if p == nil {
		return nil
	}
	return p.GroupInfo(groupID)
}

// ClickPortrait simulates a tap on a user's avatar in a conversation. It
// reports whether the client ran its default handling.
func (c *Client) ClickPortrait(nav domain.Navigator, convType domain.ConversationType, user domain.UserInfo) bool {
	c.mu.RLock()
	l := c.behavior
	c.mu.RUnlock()

	if l != nil && l.OnUserPortraitClick(nav, convType, user) {
		return false
	}
	c.lg.Debug("default portrait handling", zap.String("user_id", user.UserID))
	return true
}

// ClickMessage simulates a tap on a message bubble. It reports whether the
// client ran its default handling.
func (c *Client) ClickMessage(nav domain.Navigator, msg domain.Message) bool {
	c.mu.RLock()
	l := c.behavior
	c.mu.RUnlock()

	if l != nil && l.OnMessageClick(nav, msg) {
		return false
	}
	c.lg.Debug("default message handling", zap.String("id", msg.ID), zap.String("object_name", msg.ObjectName()))
	return true
}

// StartLocation asks the location provider for a position to share. Without
// a provider cb fails immediately.
func (c *Client) StartLocation(nav domain.Navigator, cb domain.LocationCallback) {
	c.mu.RLock()
	p := c.location
	c.mu.RUnlock()

	if p == nil {
		cb.OnFailure("no location provider")
		return
	}
	p.OnStartLocation(nav, cb)
}
