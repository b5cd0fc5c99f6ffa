// Package bookingapi is an HTTP client for the remote restaurant booking
// API. All write operations use form-urlencoded bodies; reads are plain
// GETs. The client carries one bearer credential that is attached to every
// outgoing request once installed.
package bookingapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tavolo/internal/models"
)

// CredentialStore is the single persisted slot for the owner credential.
// Both the client and the session store go through it, so there is exactly
// one write path that can touch the durable copy.
type CredentialStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// APIError is a structured failure returned by the remote API. Detail holds
// the server's human-readable message when one was present.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("http %d", e.Status)
}

// Detail extracts the server-supplied detail from an error, or returns the
// given fallback. Pages use this to show remote messages verbatim and fall
// back to a page-specific one otherwise.
func Detail(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// Client issues requests against one fixed base endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialStore

	mu     sync.RWMutex
	bearer string

	redis    *redis.Client
	cacheTTL time.Duration
}

// New constructs a client bound to baseURL. If the credential store already
// holds a token, it is installed immediately so a process restart does not
// require a fresh login.
func New(baseURL string, creds CredentialStore, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
	}
	if creds != nil {
		if saved, err := creds.Get(context.Background()); err == nil && saved != "" {
			c.bearer = saved
		}
	}
	return c
}

// UseRedisCache configures optional Redis caching for read endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// SetCredential installs token as the default bearer for all subsequent
// requests and writes it to the persisted slot.
func (c *Client) SetCredential(ctx context.Context, token string) error {
	c.mu.Lock()
	c.bearer = token
	c.mu.Unlock()
	if c.creds == nil {
		return nil
	}
	return c.creds.Set(ctx, token)
}

// ClearCredential removes the default bearer and the persisted value.
// Clearing an absent credential is a no-op, not an error.
func (c *Client) ClearCredential(ctx context.Context) error {
	c.mu.Lock()
	c.bearer = ""
	c.mu.Unlock()
	if c.creds == nil {
		return nil
	}
	return c.creds.Clear(ctx)
}

// Credential returns the currently installed bearer, or "".
func (c *Client) Credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearer
}

// AvailabilityResponse is the response from POST /AvailabilitySearch.
type AvailabilityResponse struct {
	VisitDate      string        `json:"visit_date,omitempty"`
	PartySize      int           `json:"party_size,omitempty"`
	AvailableSlots []models.Slot `json:"available_slots"`
}

// SearchAvailability fetches slots for a date (YYYY-MM-DD) and party size.
func (c *Client) SearchAvailability(ctx context.Context, date string, partySize int, channelCode string) ([]models.Slot, error) {
	cacheKey := fmt.Sprintf("availability:%s:%d", date, partySize)
	var resp AvailabilityResponse
	if c.readCache(ctx, cacheKey, &resp) {
		return resp.AvailableSlots, nil
	}

	form := url.Values{}
	form.Set("VisitDate", date)
	form.Set("PartySize", strconv.Itoa(partySize))
	form.Set("ChannelCode", channelCode)
	if err := c.postForm(ctx, "/AvailabilitySearch", form, &resp); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, resp)
	return resp.AvailableSlots, nil
}

// CreateBookingRequest carries the fields for a new booking. Empty customer
// fields are omitted from the form.
type CreateBookingRequest struct {
	VisitDate       string
	VisitTime       string
	PartySize       int
	Title           string
	FirstName       string
	Surname         string
	Email           string
	Mobile          string
	SpecialRequests string
}

// CreateBooking creates a booking and returns the server-assigned reference.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest, channelCode string) (string, error) {
	form := url.Values{}
	form.Set("VisitDate", req.VisitDate)
	form.Set("VisitTime", req.VisitTime)
	form.Set("PartySize", strconv.Itoa(req.PartySize))
	form.Set("ChannelCode", channelCode)
	setIfPresent(form, "Customer[Title]", req.Title)
	setIfPresent(form, "Customer[FirstName]", req.FirstName)
	setIfPresent(form, "Customer[Surname]", req.Surname)
	setIfPresent(form, "Customer[Email]", req.Email)
	setIfPresent(form, "Customer[Mobile]", req.Mobile)
	setIfPresent(form, "SpecialRequests", req.SpecialRequests)

	var resp struct {
		BookingReference string `json:"booking_reference"`
	}
	if err := c.postForm(ctx, "/BookingWithStripeToken", form, &resp); err != nil {
		return "", err
	}
	return resp.BookingReference, nil
}

// GetBooking fetches the full booking record for a reference.
func (c *Client) GetBooking(ctx context.Context, ref string) (*models.Booking, error) {
	var booking models.Booking
	if err := c.doGet(ctx, "/Booking/"+url.PathEscape(ref), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// BookingPatch holds the fields of a modify request. Zero values are
// treated as "unchanged" and left out of the form; SpecialRequests is a
// pointer so an explicit empty string still clears the notes.
type BookingPatch struct {
	VisitDate       string
	VisitTime       string
	PartySize       int
	SpecialRequests *string
}

// IsEmpty reports whether the patch would send nothing at all.
func (p *BookingPatch) IsEmpty() bool {
	return p.VisitDate == "" && p.VisitTime == "" && p.PartySize <= 0 && p.SpecialRequests == nil
}

// UpdateBooking applies a partial modification and returns the refreshed
// updated_at timestamp.
func (c *Client) UpdateBooking(ctx context.Context, ref string, patch BookingPatch) (string, error) {
	form := url.Values{}
	setIfPresent(form, "VisitDate", patch.VisitDate)
	setIfPresent(form, "VisitTime", patch.VisitTime)
	if patch.PartySize > 0 {
		form.Set("PartySize", strconv.Itoa(patch.PartySize))
	}
	if patch.SpecialRequests != nil {
		form.Set("SpecialRequests", *patch.SpecialRequests)
	}

	var resp struct {
		UpdatedAt string `json:"updated_at"`
	}
	if err := c.doForm(ctx, http.MethodPatch, "/Booking/"+url.PathEscape(ref), form, &resp); err != nil {
		return "", err
	}
	return resp.UpdatedAt, nil
}

// CancelResponse is the response from POST /Booking/{ref}/Cancel.
type CancelResponse struct {
	BookingReference string `json:"booking_reference,omitempty"`
	CancelledAt      string `json:"cancelled_at"`
	Message          string `json:"message,omitempty"`
}

// CancelBooking requests cancellation with a selected reason id.
func (c *Client) CancelBooking(ctx context.Context, micrositeName, ref string, reasonID int64) (*CancelResponse, error) {
	form := url.Values{}
	form.Set("micrositeName", micrositeName)
	form.Set("bookingReference", ref)
	form.Set("cancellationReasonId", strconv.FormatInt(reasonID, 10))

	var resp CancelResponse
	if err := c.postForm(ctx, "/Booking/"+url.PathEscape(ref)+"/Cancel", form, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancellationReasons returns the server-defined reason list.
func (c *Client) CancellationReasons(ctx context.Context) ([]models.CancellationReason, error) {
	cacheKey := "cancellation_reasons"
	var reasons []models.CancellationReason
	if c.readCache(ctx, cacheKey, &reasons) {
		return reasons, nil
	}
	if err := c.doGet(ctx, "/CancellationReasons", &reasons); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, reasons)
	return reasons, nil
}

// ListBookings returns every booking. The remote API requires the bearer
// credential for this endpoint.
func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := c.doGet(ctx, "/Bookings", &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func setIfPresent(form url.Values, key, value string) {
	if value != "" {
		form.Set(key, value)
	}
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.doForm(ctx, http.MethodPost, path, form, out)
}

func (c *Client) doForm(ctx context.Context, method, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return apiErr
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		apiErr.Detail = detail
	} else {
		// Structured detail: show it as compact JSON.
		apiErr.Detail = string(payload.Detail)
	}
	return apiErr
}

func (c *Client) addHeaders(req *http.Request) {
	c.mu.RLock()
	bearer := c.bearer
	c.mu.RUnlock()
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}
