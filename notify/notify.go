// Package notify provides notifiers reporting debounced transitions.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/containrrr/shoutrrr/pkg/types"
)

// BaseNotifier sends raw notifications.
type BaseNotifier interface {
	Notify(ctx context.Context, title string, message string, priority int) error
}

type dummyNotifier struct{}

func (*dummyNotifier) Notify(
	ctx context.Context,
	title string,
	message string,
	priority int,
) error {
	return nil
}

// NewDummyNotifier creates a notifier that discards every notification.
func NewDummyNotifier() BaseNotifier {
	return &dummyNotifier{}
}

type goNotifierMessage struct {
	Title    string `json:"title"`
	Priority int    `json:"priority"`
	Message  string `json:"message"`
}

type gonotifier struct {
	*http.Client
	endpoint string
	token    string
}

// NewGoNotifier creates a notifier for a Gotify server.
func NewGoNotifier(client *http.Client, endpoint string, token string) BaseNotifier {
	return &gonotifier{
		Client:   client,
		endpoint: endpoint,
		token:    token,
	}
}

func (n *gonotifier) Notify(
	ctx context.Context,
	title string,
	message string,
	priority int,
) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if message == "" {
		message = title
	}

	var bb bytes.Buffer
	if err := json.NewEncoder(&bb).Encode(goNotifierMessage{
		Title:    fmt.Sprintf("debounce-go: %s", title),
		Message:  message,
		Priority: priority,
	}); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint+"/message", &bb)
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", n.token))

	resp, err := n.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification failed: %s", string(out))
	}

	return nil
}

type shoutrrrNotifier struct {
	*router.ServiceRouter
}

// NewShoutrrrNotifier creates a notifier sending to every shoutrrr URL.
func NewShoutrrrNotifier(urls ...string) (BaseNotifier, error) {
	r, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, err
	}
	return &shoutrrrNotifier{r}, nil
}

func (n *shoutrrrNotifier) Notify(
	ctx context.Context,
	title string,
	message string,
	priority int,
) error {
	if message == "" {
		message = title
	}
	errs := n.Send(message, &types.Params{
		"title":    fmt.Sprintf("debounce-go: %s", title),
		"priority": strconv.Itoa(priority),
	})
	return errors.Join(errs...)
}
