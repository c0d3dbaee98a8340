package homework

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/eliseohh/reviewbot/internal/failure"
	"github.com/eliseohh/reviewbot/internal/logger"
)

type Client struct {
	Endpoint string
	Token    string
	HTTP     *http.Client

	now func() time.Time
}

func NewClient(endpoint, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		Endpoint: endpoint,
		Token:    token,
		HTTP:     &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// GetAPIAnswer requests the homework statuses updated since from (epoch
// seconds). A zero from means "now". The decoded body is returned only
// for HTTP 200; it is not validated beyond being JSON.
func (c *Client) GetAPIAnswer(ctx context.Context, from int64) (gjson.Result, error) {
	const op = "get api answer"

	if from == 0 {
		from = c.now().Unix()
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return gjson.Result{}, failure.Wrap(failure.UnreachableEndpoint, op, err, "invalid endpoint "+c.Endpoint)
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(from, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return gjson.Result{}, failure.Wrap(failure.UnreachableEndpoint, op, err, "building request failed")
	}
	req.Header.Set("Authorization", "OAuth "+c.Token)
	req.Header.Set("Accept", "application/json")

	logger.Debugf("requesting %s from_date=%d", c.Endpoint, from)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return gjson.Result{}, failure.Wrap(failure.UnreachableEndpoint, op, err,
			fmt.Sprintf("request to %s failed", c.Endpoint))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, failure.Wrap(failure.UnreachableEndpoint, op, err, "reading response body failed")
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, failure.New(failure.UnreachableEndpoint, op,
			"endpoint %s is unavailable, API status code: %d%s", c.Endpoint, resp.StatusCode, apiErrorDetail(body))
	}

	if len(strings.TrimSpace(string(body))) > 0 && !gjson.ValidBytes(body) {
		return gjson.Result{}, failure.New(failure.TypeMismatch, op, "response from %s is not valid JSON", c.Endpoint)
	}
	return gjson.ParseBytes(body), nil
}

// apiErrorDetail extracts the code/message fields the API includes in
// error bodies.
func apiErrorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	res := gjson.GetManyBytes(body, "code", "message", "error.error")
	var parts []string
	for _, r := range res {
		if s := strings.TrimSpace(r.String()); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ": ") + ")"
}
