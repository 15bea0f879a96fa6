package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sansad-av/talktime/internal/broadcast"
)

// Client reads chairpersons, members and bills from the directory service
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) Chairpersons(ctx context.Context) ([]Chairperson, error) {
	var chairpersons []Chairperson
	if err := c.get(ctx, "/api/chairpersons", nil, &chairpersons); err != nil {
		return nil, err
	}
	return chairpersons, nil
}

// SelectedChairperson returns the chairperson marked as selected, or the first one
// listed if none is
func (c *Client) SelectedChairperson(ctx context.Context) (broadcast.Chair, error) {
	chairpersons, err := c.Chairpersons(ctx)
	if err != nil {
		return broadcast.Chair{}, err
	}
	if len(chairpersons) == 0 {
		return broadcast.Chair{}, ErrNotFound
	}
	for _, cp := range chairpersons {
		if cp.IsSelected {
			return cp.Chair(), nil
		}
	}
	return chairpersons[0].Chair(), nil
}

func (c *Client) Members(ctx context.Context) ([]broadcast.Member, error) {
	var members []broadcast.Member
	if err := c.get(ctx, "/api/members", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Client) Member(ctx context.Context, seatNo broadcast.SeatNo) (broadcast.Member, error) {
	var member broadcast.Member
	path := "/api/member/" + url.PathEscape(string(seatNo))
	if err := c.get(ctx, path, nil, &member); err != nil {
		return broadcast.Member{}, err
	}
	if member.Name == "" {
		return broadcast.Member{}, ErrNotFound
	}
	return member, nil
}

// Bills lists bills with the given status ("current", "archived"); an empty status
// lists all bills
func (c *Client) Bills(ctx context.Context, status string) ([]Bill, error) {
	var query url.Values
	if status != "" {
		query = url.Values{"status": {status}}
	}
	var bills []Bill
	if err := c.get(ctx, "/api/bill-details", query, &bills); err != nil {
		return nil, err
	}
	return bills, nil
}

func (c *Client) Bill(ctx context.Context, id int) (Bill, error) {
	bills, err := c.Bills(ctx, "")
	if err != nil {
		return Bill{}, err
	}
	for _, b := range bills {
		if b.ID == id {
			return b, nil
		}
	}
	return Bill{}, fmt.Errorf("bill %d: %w", id, ErrNotFound)
}

func (c *Client) ConsumedTime(ctx context.Context, billID int) (ConsumedTime, error) {
	consumed := make(ConsumedTime)
	if err := c.get(ctx, "/api/bill-consumed-time/"+strconv.Itoa(billID), nil, &consumed); err != nil {
		return nil, err
	}
	return consumed, nil
}

func (c *Client) MemberTotals(ctx context.Context, billID int) (MemberTotals, error) {
	raw := make(map[string]Seconds)
	if err := c.get(ctx, "/api/bill-member-totals/"+strconv.Itoa(billID), nil, &raw); err != nil {
		return nil, err
	}
	return normalizeTotals(raw), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer res.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(res.Body).Decode(&env)
	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &apiError{status: res.StatusCode, message: env.message()}
	}
	if decodeErr != nil {
		return &apiError{status: res.StatusCode, message: fmt.Sprintf("invalid response: %v", decodeErr)}
	}
	if !env.Success {
		return &apiError{status: res.StatusCode, message: env.message()}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (e envelope) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
