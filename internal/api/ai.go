package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iksnae/sahayak/internal"
)

const (
	opChat              = "chat"
	opChatPublic        = "chat_public"
	opSchemeExplanation = "scheme_explanation"
)

type chatRequest struct {
	Message string `json:"message"`
}

// Chat sends a message to the assistant as the logged-in user
func (c *Client) Chat(ctx context.Context, message string) (internal.ChatReply, error) {
	var reply internal.ChatReply
	err := c.do(ctx, opChat, http.MethodPost, "/ai/chat", chatRequest{message}, &reply, true)
	return reply, err
}

// ChatPublic sends a message without authentication
func (c *Client) ChatPublic(ctx context.Context, message string) (internal.ChatReply, error) {
	var reply internal.ChatReply
	err := c.do(ctx, opChatPublic, http.MethodPost, "/ai/chat/public", chatRequest{message}, &reply, false)
	return reply, err
}

// SchemeExplanation asks the assistant to explain one scheme
func (c *Client) SchemeExplanation(ctx context.Context, schemeID string) (string, error) {
	var body struct {
		Explanation string `json:"explanation"`
	}
	path := "/ai/scheme-info/" + url.PathEscape(schemeID)
	if err := c.do(ctx, opSchemeExplanation, http.MethodPost, path, nil, &body, false); err != nil {
		return "", err
	}
	return body.Explanation, nil
}
