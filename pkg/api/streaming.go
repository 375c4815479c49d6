package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parlato/pkg/helpers"
)

const doneSentinel = "[DONE]"

type streamRequest struct {
	Content string `json:"content"`
}

type streamPayload struct {
	Token string `json:"token"`
	Error string `json:"error"`
}

// StreamReply sends a prompt to the chat-scoped streaming endpoint and
// returns the reply as a lazy sequence of text fragments. The channel is
// closed when the backend emits its completion sentinel; a terminal error
// (including context cancellation) is delivered as the last element.
func (c *Client) StreamReply(ctx context.Context, chatID string, prompt string) (<-chan helpers.Result[string], error) {
	b, err := json.Marshal(streamRequest{Content: prompt})
	if err != nil {
		return nil, err
	}

	url := c.BaseURL + "/api/chats/" + chatID + "/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: http.MethodPost, URL: url, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() {
			_ = resp.Body.Close()
		}()
		msg, _ := bufio.NewReader(resp.Body).ReadString('\n')
		return nil, &TransportError{
			Method:     http.MethodPost,
			URL:        url,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(msg),
		}
	}

	out := make(chan helpers.Result[string])

	go func() {
		defer close(out)
		defer func() {
			_ = resp.Body.Close()
		}()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == doneSentinel {
				return
			}

			var payload streamPayload
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				log.Warn().Str("data", data).Msg("skipping unparsable stream event")
				continue
			}
			if payload.Error != "" {
				out <- helpers.NewErrorResult[string](errors.New(payload.Error))
				return
			}

			select {
			case out <- helpers.NewValueResult(payload.Token):
			case <-ctx.Done():
				out <- helpers.NewErrorResult[string](ctx.Err())
				return
			}
		}
		if err := scanner.Err(); err != nil {
			out <- helpers.NewErrorResult[string](err)
		}
	}()

	return out, nil
}
