package cartservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/enums"
)

const (
	defaultTimeout             = 10 * time.Second
	responseBodyReadLimit int64 = 1 << 20
	errorBodyReadLimit    int64 = 4096
)

var errBaseURLRequired = errors.New("cart service base url is required")

// Client talks to the remote cart service over HTTP. It is safe for
// concurrent use; bind it to a session with ForToken.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every call.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(userAgent)
	}
}

// NewClient builds the cart service client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("parse cart service base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return client, nil
}

// ForToken returns a Remote that forwards token as the bearer credential.
func (c *Client) ForToken(token string) Remote {
	return &session{client: c, token: strings.TrimSpace(token)}
}

type session struct {
	client *Client
	token  string
}

func (s *session) GetCart(ctx context.Context) (Snapshot, error) {
	var payload cartPayload
	if err := s.do(ctx, http.MethodGet, "cart", nil, &payload); err != nil {
		return Snapshot{}, err
	}
	snapshot, err := payload.toSnapshot()
	if err != nil {
		return Snapshot{}, Unavailable(err, "decode cart response")
	}
	return snapshot, nil
}

func (s *session) AddItem(ctx context.Context, productID string, quantity int) (*Snapshot, error) {
	var resp mutationResponse
	body := addItemRequest{ProductID: productID, Quantity: quantity}
	if err := s.do(ctx, http.MethodPost, "cart/items", body, &resp); err != nil {
		return nil, err
	}
	return decodeOptional(resp.Cart)
}

func (s *session) UpdateItem(ctx context.Context, productID string, quantity int) (*Snapshot, error) {
	var resp mutationResponse
	path := fmt.Sprintf("cart/items/%s?quantity=%s", url.PathEscape(productID), strconv.Itoa(quantity))
	if err := s.do(ctx, http.MethodPut, path, nil, &resp); err != nil {
		return nil, err
	}
	return decodeOptional(resp.Cart)
}

func (s *session) RemoveItem(ctx context.Context, productID string) (*Snapshot, error) {
	var resp mutationResponse
	if err := s.do(ctx, http.MethodDelete, "cart/items/"+url.PathEscape(productID), nil, &resp); err != nil {
		return nil, err
	}
	return decodeOptional(resp.Cart)
}

func (s *session) ClearCart(ctx context.Context) error {
	return s.do(ctx, http.MethodDelete, "cart", nil, nil)
}

func (s *session) ApplyVoucher(ctx context.Context, code string) (VoucherResult, error) {
	var resp applyVoucherResponse
	if err := s.do(ctx, http.MethodPost, "cart/apply-voucher", applyVoucherRequest{VoucherCode: code}, &resp); err != nil {
		return VoucherResult{}, err
	}
	if resp.Voucher == nil {
		return VoucherResult{}, Unavailable(nil, "apply voucher response missing voucher")
	}
	voucher, err := resp.Voucher.toApplication()
	if err != nil {
		return VoucherResult{}, Unavailable(err, "decode voucher response")
	}
	snapshot, err := decodeOptional(resp.Cart)
	if err != nil {
		return VoucherResult{}, err
	}
	return VoucherResult{Voucher: voucher, Cart: snapshot}, nil
}

func (s *session) RemoveVoucher(ctx context.Context) (*Snapshot, error) {
	var resp mutationResponse
	if err := s.do(ctx, http.MethodDelete, "cart/remove-voucher", nil, &resp); err != nil {
		return nil, err
	}
	return decodeOptional(resp.Cart)
}

func (s *session) VoucherInfo(ctx context.Context) (*cart.VoucherApplication, error) {
	var resp voucherInfoResponse
	err := s.do(ctx, http.MethodGet, "cart/voucher-info", nil, &resp)
	switch KindOf(err) {
	case "":
		if err != nil {
			return nil, err
		}
	case enums.RemoteErrorKindNotFound, enums.RemoteErrorKindNoVoucherApplied:
		return nil, nil
	default:
		return nil, err
	}
	if resp.Voucher == nil || strings.TrimSpace(resp.Voucher.Code) == "" {
		return nil, nil
	}
	voucher, err := resp.Voucher.toApplication()
	if err != nil {
		return nil, Unavailable(err, "decode voucher response")
	}
	return &voucher, nil
}

func (s *session) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Unavailable(err, "marshal cart request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.client.buildURL(path), reader)
	if err != nil {
		return Unavailable(err, "build cart request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if s.client.userAgent != "" {
		req.Header.Set("User-Agent", s.client.userAgent)
	}

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return Unavailable(err, "execute cart request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return decodeError(resp.StatusCode, raw, rejectionKind(path))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return Unavailable(err, "read cart response")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return Unavailable(err, "decode cart response")
	}
	return nil
}

// rejectionKind is the kind given to a 4xx reply that carries no known
// error code. The service then only sends {"detail": "..."}.
func rejectionKind(path string) enums.RemoteErrorKind {
	if path == "cart/apply-voucher" {
		return enums.RemoteErrorKindInvalidVoucher
	}
	return enums.RemoteErrorKindRejected
}

// decodeError maps a non-2xx response onto a RemoteError. A 401 always means
// the session is gone, whatever the body says. Other 4xx replies are
// rejections and keep the service's message; 408, 429 and 5xx are outages.
func decodeError(status int, raw []byte, rejection enums.RemoteErrorKind) *RemoteError {
	var payload errorPayload
	_ = json.Unmarshal(raw, &payload)

	message := strings.TrimSpace(payload.Detail)
	var remote *RemoteError
	if payload.Error != nil {
		if payload.Error.Message != "" {
			message = payload.Error.Message
		}
		if kind, err := enums.ParseRemoteErrorKind(strings.ToUpper(strings.TrimSpace(payload.Error.Code))); err == nil {
			remote = &RemoteError{
				Kind:      kind,
				Message:   message,
				Available: payload.Error.Available,
				Required:  payload.Error.Required,
			}
		}
	}
	if message == "" && !json.Valid(raw) {
		message = strings.TrimSpace(string(raw))
	}

	switch {
	case status == http.StatusUnauthorized:
		remote = NewRemoteError(enums.RemoteErrorKindNotAuthenticated, message)
	case remote != nil:
	case status == http.StatusNotFound:
		remote = NewRemoteError(enums.RemoteErrorKindNotFound, message)
	case isRejection(status):
		if message == "" {
			message = http.StatusText(status)
		}
		remote = NewRemoteError(rejection, message)
	default:
		remote = Unavailable(fmt.Errorf("status %d: %s", status, message), "cart request failed")
	}
	remote.Status = status
	return remote
}

func isRejection(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return false
	}
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}

func decodeOptional(p *cartPayload) (*Snapshot, error) {
	snapshot, err := optionalSnapshot(p)
	if err != nil {
		return nil, Unavailable(err, "decode cart response")
	}
	return snapshot, nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}
