package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iksnae/sahayak/internal"
)

const opNotifications = "notifications"

// Notifications lists the notifications addressed to a user
func (c *Client) Notifications(ctx context.Context, userID string) ([]internal.Notification, error) {
	var list []internal.Notification
	path := "/notifications/" + url.PathEscape(userID)
	if err := c.do(ctx, opNotifications, http.MethodGet, path, nil, &list, true); err != nil {
		return nil, err
	}
	return list, nil
}
