package notify

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"authwatchd/internal/types"
)

// Notifier posts raised alerts to a webhook as JSON. Fire-and-forget with
// a bounded timeout so a slow endpoint can never stall the poll loop.
type Notifier struct {
	mu         sync.Mutex
	webhookURL string
	client     *http.Client
}

// NewNotifier creates a notifier for the given webhook URL. An empty URL
// disables delivery.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// UpdateURL swaps the webhook target, used on config reload.
func (n *Notifier) UpdateURL(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.webhookURL = url
}

// Notify delivers the alert asynchronously. Failures are logged, never
// surfaced to the caller.
func (n *Notifier) Notify(a types.SecurityAlert) {
	n.mu.Lock()
	url := n.webhookURL
	n.mu.Unlock()
	if url == "" {
		return
	}
	go n.send(url, a)
}

func (n *Notifier) send(url string, a types.SecurityAlert) {
	body, err := json.Marshal(a)
	if err != nil {
		log.Printf("[NOTIFY] Failed to encode alert: %v", err)
		return
	}

	resp, err := n.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[NOTIFY] Failed to send alert webhook: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("[NOTIFY] Webhook returned status %d", resp.StatusCode)
	}
}
