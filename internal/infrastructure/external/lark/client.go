package lark

import (
	"context"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Receive ID types accepted by the IM message API
const (
	ReceiveByOpenID = "open_id"
	ReceiveByEmail  = "email"
)

// Config holds Lark app credentials
type Config struct {
	AppID     string
	AppSecret string
}

// messageCreator is the part of the SDK IM service used here
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Client sends IM messages through the Lark open platform
type Client struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewClient creates a Lark client with token caching enabled
func NewClient(cfg Config, logger *zap.Logger) *Client {
	sdk := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)
	return &Client{
		messages: sdk.Im.Message,
		logger:   logger,
	}
}

// send creates one message and returns its message id
func (c *Client) send(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.messages.Create(ctx, req)
	if err != nil {
		c.logger.Error("Failed to send Lark message",
			zap.String("receive_id_type", receiveIDType),
			zap.String("receive_id", receiveID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		c.logger.Error("Lark API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	c.logger.Info("Lark message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id_type", receiveIDType))
	return messageID, nil
}
