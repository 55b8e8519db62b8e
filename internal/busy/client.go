package busy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/louispotok/frieden/internal/interval"
	appLog "github.com/louispotok/frieden/internal/log"
	"github.com/louispotok/frieden/internal/model"
	"github.com/louispotok/frieden/internal/timeutil"
)

// dataRequest is the POST body of the aggregation endpoint.
type dataRequest struct {
	TimeMin string `json:"timeMin"`
	TimeMax string `json:"timeMax"`
}

// dataResponse maps calendar ids to their busy interval lists. The
// client flattens all calendars into one list; calendar identity is
// discarded past this boundary.
type dataResponse struct {
	Calendars map[string]calendarBusy `json:"calendars"`
}

type calendarBusy struct {
	Busy []wireInterval `json:"busy"`
}

type wireInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Client talks to the /data freebusy endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient builds a Client for the given /data URL.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// FetchBusy requests busy intervals for the half-open range
// [start, start + days*DAY) and flattens all calendars into one list.
// Unparseable timestamps and end-before-start intervals are dropped
// with a diagnostic rather than crashing the render path.
func (c *Client) FetchBusy(ctx context.Context, start model.Instant, days int) ([]model.BusyInterval, error) {
	end := start + model.Instant(int64(days)*timeutil.Day)

	body, err := json.Marshal(dataRequest{
		TimeMin: start.ISO(),
		TimeMax: end.ISO(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}

	var decoded dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("busy: decode response: %w", err)
	}

	return flatten(decoded), nil
}

// flatten merges every calendar's busy list into one slice. Calendar
// ids are walked in sorted order so the result is deterministic.
func flatten(resp dataResponse) []model.BusyInterval {
	ids := make([]string, 0, len(resp.Calendars))
	for id := range resp.Calendars {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.BusyInterval, 0)
	for _, id := range ids {
		cal := resp.Calendars[id]
		parsed := make([]model.BusyInterval, 0, len(cal.Busy))
		for _, w := range cal.Busy {
			s, err := model.ParseISO(w.Start)
			if err != nil {
				appLog.Error("skipping busy interval with bad start", err, "calendar", id, "start", w.Start)
				continue
			}
			e, err := model.ParseISO(w.End)
			if err != nil {
				appLog.Error("skipping busy interval with bad end", err, "calendar", id, "end", w.End)
				continue
			}
			parsed = append(parsed, model.BusyInterval{Start: s, End: e})
		}
		out = append(out, interval.Sanitize(id, parsed)...)
	}
	return out
}
