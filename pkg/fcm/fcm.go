package fcm

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// multicastLimit is the most tokens FCM accepts in one multicast call
const multicastLimit = 500

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
}

// NewClient creates a new FCM client using the provided credentials file
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	log.Println("[FCM] Client initialized successfully")
	return &Client{
		messagingClient: messagingClient,
	}, nil
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title string
	Body  string
	Data  map[string]string
	// ClickAction is the app path opened when the notification is clicked
	ClickAction string
}

// SendToDevices sends a push notification to multiple device tokens.
// Returns the tokens that failed so callers can prune them.
func (c *Client) SendToDevices(ctx context.Context, tokens []string, notification NotificationData) ([]string, error) {
	var failedTokens []string
	for start := 0; start < len(tokens); start += multicastLimit {
		end := min(start+multicastLimit, len(tokens))
		failed, err := c.sendBatch(ctx, tokens[start:end], notification)
		if err != nil {
			return failedTokens, err
		}
		failedTokens = append(failedTokens, failed...)
	}
	return failedTokens, nil
}

func (c *Client) sendBatch(ctx context.Context, tokens []string, notification NotificationData) ([]string, error) {
	response, err := c.messagingClient.SendEachForMulticast(ctx, BuildMulticast(tokens, notification))
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	log.Printf("[FCM] Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)

	var failedTokens []string
	for i, resp := range response.Responses {
		if !resp.Success {
			failedTokens = append(failedTokens, tokens[i])
			log.Printf("[FCM] Failed to send to token %s: %v", maskToken(tokens[i]), resp.Error)
		}
	}
	return failedTokens, nil
}

// BuildMulticast converts NotificationData into an FCM multicast message
func BuildMulticast(tokens []string, notification NotificationData) *messaging.MulticastMessage {
	webpush := &messaging.WebpushConfig{
		Notification: &messaging.WebpushNotification{
			Title: notification.Title,
			Body:  notification.Body,
			Icon:  "/icon-192.svg",
		},
	}
	if notification.ClickAction != "" {
		webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: notification.ClickAction}
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data:    notification.Data,
		Webpush: webpush,
	}
}

func maskToken(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
