package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultExpoEndpoint = "https://exp.host/--/api/v2/push/send"
	expoChunkSize       = 100
	expoConcurrency     = 4
)

var expoTokenPattern = regexp.MustCompile(`^Expo(nent)?PushToken\[.+\]$`)

// IsExpoPushToken reports whether token looks like an Expo device token.
func IsExpoPushToken(token string) bool {
	return expoTokenPattern.MatchString(token)
}

type Message struct {
	Title string
	Body  string
	Data  map[string]interface{}
}

type Dispatcher interface {
	Notify(ctx context.Context, tokens []string, msg Message) error
}

type expoMessage struct {
	To       string                 `json:"to"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Data     map[string]interface{} `json:"data"`
	Sound    string                 `json:"sound"`
	Priority string                 `json:"priority"`
}

type expoTicket struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

type expoResponse struct {
	Data   []expoTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

type ExpoConfig struct {
	Endpoint    string
	AccessToken string
	HTTPClient  *http.Client
}

// ExpoClient sends push notifications through the Expo push service.
type ExpoClient struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
}

func NewExpoClient(cfg ExpoConfig) *ExpoClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultExpoEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ExpoClient{endpoint: endpoint, accessToken: cfg.AccessToken, httpClient: client}
}

// Notify sends msg to every valid token. Invalid tokens are skipped; an empty
// token list is a no-op. Tickets rejected by Expo are reported as one error.
func (c *ExpoClient) Notify(ctx context.Context, tokens []string, msg Message) error {
	messages := make([]expoMessage, 0, len(tokens))
	for _, token := range tokens {
		if !IsExpoPushToken(token) {
			continue
		}
		data := msg.Data
		if data == nil {
			data = map[string]interface{}{}
		}
		messages = append(messages, expoMessage{
			To:       token,
			Title:    msg.Title,
			Body:     msg.Body,
			Data:     data,
			Sound:    "default",
			Priority: "high",
		})
	}
	if len(messages) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(expoConcurrency)
	results := make([]error, (len(messages)+expoChunkSize-1)/expoChunkSize)
	for i := 0; i < len(messages); i += expoChunkSize {
		end := min(i+expoChunkSize, len(messages))
		chunk := messages[i:end]
		slot := i / expoChunkSize
		g.Go(func() error {
			results[slot] = c.send(gctx, chunk)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(results...)
}

func (c *ExpoClient) send(ctx context.Context, chunk []expoMessage) error {
	body, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to encode push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("push service returned status %d with unreadable body: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(decoded.Errors) > 0 {
			return fmt.Errorf("push service returned status %d: %s", resp.StatusCode, decoded.Errors[0].Message)
		}
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}

	failed := 0
	var first string
	for _, ticket := range decoded.Data {
		if ticket.Status == "error" {
			if failed == 0 {
				first = ticket.Message
				if ticket.Details.Error != "" {
					first = ticket.Details.Error + ": " + first
				}
			}
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d push tickets rejected (first: %s)", failed, len(chunk), first)
	}
	return nil
}
