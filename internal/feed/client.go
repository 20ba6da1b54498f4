// Package feed fetches machine states from the upstream status API and
// normalizes them into snapshots.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"laundry-notifier/config"
	"laundry-notifier/internal/model"
	"laundry-notifier/internal/parse"
)

// Batch is the result of one fetch. Skipped lists the ids of machines whose
// status payload could not be decoded.
type Batch struct {
	Snapshots []model.Snapshot
	Skipped   []string
}

// Source produces snapshot batches on demand.
type Source interface {
	Fetch(ctx context.Context) (Batch, error)
}

var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64; rv:140.0) Gecko/20100101 Firefox/140.0",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-GB,en;q=0.5",
	"Origin":          "https://wa.sqinsights.com",
	"Referer":         "https://wa.sqinsights.com/",
	"Sec-Fetch-Dest":  "empty",
	"Sec-Fetch-Mode":  "cors",
	"Sec-Fetch-Site":  "same-site",
}

// fetchRetries bounds the extra attempts made by one Fetch.
const fetchRetries = 2

// Client is the HTTP implementation of Source.
type Client struct {
	url        string
	headers    map[string]string
	client     *http.Client
	debug      bool
	newBackoff func() backoff.BackOff
}

// NewClient creates a feed client from the feed configuration.
func NewClient(cfg *config.FeedConfig) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Feed client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Client{
		url:     cfg.URL,
		headers: buildHeaders(cfg),
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		debug:      cfg.Debug,
		newBackoff: defaultBackoff,
	}
}

func defaultBackoff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(500*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
	)
}

func buildHeaders(cfg *config.FeedConfig) map[string]string {
	headers := make(map[string]string, len(defaultHeaders)+len(cfg.Headers)+1)
	for k, v := range defaultHeaders {
		headers[k] = v
	}
	if cfg.OrganizationID != "" {
		headers["alliancels-organization-id"] = cfg.OrganizationID
	}
	if cfg.AdditionalHeaders != "" {
		extra, err := parse.Headers(cfg.AdditionalHeaders)
		if err != nil {
			log.Printf("Warning: %v", err)
		}
		for k, v := range extra {
			headers[k] = v
		}
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	return headers
}

// Fetch retrieves the full machine list. Transport errors and 5xx responses
// are retried a few times with backoff. Machines that cannot be decoded are
// reported in Batch.Skipped instead of failing the whole fetch.
func (c *Client) Fetch(ctx context.Context) (Batch, error) {
	boff := backoff.WithContext(backoff.WithMaxRetries(c.newBackoff(), fetchRetries), ctx)
	body, err := backoff.RetryWithData(func() ([]byte, error) { return c.get(ctx) }, boff)
	if err != nil {
		return Batch{}, err
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return Batch{}, fmt.Errorf("failed to unmarshal api response: %w", err)
	}

	batch := Batch{Snapshots: make([]model.Snapshot, 0, len(elems))}
	for i, elem := range elems {
		var raw rawMachine
		if err := json.Unmarshal(elem, &raw); err != nil {
			id := bestEffortID(elem, i)
			log.Printf("Error decoding machine %s: %v", id, err)
			batch.Skipped = append(batch.Skipped, id)
			continue
		}
		snap, err := c.normalize(raw)
		if err != nil {
			log.Printf("Error parsing status for machine %s: %v", raw.ID, err)
			batch.Skipped = append(batch.Skipped, raw.ID)
			continue
		}
		batch.Snapshots = append(batch.Snapshots, snap)
	}
	return batch, nil
}

// get performs one request. Errors worth retrying are returned as is; the
// rest are wrapped with backoff.Permanent.
func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(fmt.Errorf("http request failed: %w", err))
		}
		log.Printf("Feed request failed, retrying: %v", err)
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		log.Printf("Feed answered %d, retrying", resp.StatusCode)
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("received non-200 status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// bestEffortID pulls an id out of a record that did not decode, falling back
// to its position in the response.
func bestEffortID(elem json.RawMessage, index int) string {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(elem, &head); err == nil && len(head.ID) > 0 && string(head.ID) != "null" {
		var id string
		if json.Unmarshal(head.ID, &id) == nil {
			return id
		}
		return string(head.ID)
	}
	return "#" + strconv.Itoa(index)
}

var errEmptyStatus = errors.New("empty currentStatus")

func (c *Client) normalize(raw rawMachine) (model.Snapshot, error) {
	if raw.CurrentStatus == "" {
		return model.Snapshot{}, errEmptyStatus
	}
	var st rawStatus
	if err := json.Unmarshal([]byte(raw.CurrentStatus), &st); err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to decode currentStatus: %w", err)
	}

	if c.debug {
		log.Printf("[DEBUG] Machine %s (%s) raw statusId=%q", raw.MachineName, raw.ID, st.StatusID)
	}

	snap := model.Snapshot{
		ID:            raw.ID,
		Name:          raw.MachineName,
		Number:        raw.MachineNumber,
		IsWasher:      raw.MachineType.IsWasher,
		IsDryer:       raw.MachineType.IsDryer,
		Status:        MapStatus(st.StatusID),
		Cycle:         model.UnknownCycle,
		RemainingVend: st.RemainingVend,
	}
	if st.RemainingSeconds != nil && *st.RemainingSeconds > 0 {
		snap.RemainingSeconds = *st.RemainingSeconds
	}
	if st.IsDoorOpen != nil {
		snap.DoorOpen = *st.IsDoorOpen
	}
	if st.SelectedCycle != nil && st.SelectedCycle.Name != "" {
		snap.Cycle = st.SelectedCycle.Name
	}
	return snap, nil
}

// MapStatus converts an upstream status code into the closed status set.
// Unrecognized codes become StatusUnknown.
func MapStatus(statusID string) model.Status {
	switch statusID {
	case "AVAILABLE":
		return model.StatusAvailable
	case "IN_USE":
		return model.StatusInUse
	case "COMPLETE":
		return model.StatusFinished
	case "OUT_OF_ORDER":
		return model.StatusOutOfOrder
	default:
		log.Printf("[WARN] Unknown statusId encountered: %q - mapping to UNKNOWN", statusID)
		return model.StatusUnknown
	}
}
