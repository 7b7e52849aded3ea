package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zaziork/photocat-client/internal/dto"
	"github.com/zaziork/photocat-client/internal/models"
	appErrors "github.com/zaziork/photocat-client/pkg/errors"
	"github.com/zaziork/photocat-client/pkg/metrics"
)

// Channel is a logical request category. At most one request per channel is
// in flight at any time; a newer request supersedes the older one.
type Channel string

const (
	ChannelList    Channel = "list"
	ChannelMutate  Channel = "mutate"
	ChannelSuggest Channel = "suggest"
	ChannelProcess Channel = "process"
	ChannelAuth    Channel = "auth"
)

// Operation identifies one of the closed set of request kinds.
type Operation string

const (
	OpFetchList        Operation = "fetch-list"
	OpMutateItem       Operation = "mutate-item"
	OpMutateProcessing Operation = "mutate-processing"
	OpFetchSuggestions Operation = "fetch-suggestions"
	OpAuthenticate     Operation = "authenticate"
	OpChangeCredential Operation = "change-credential"
	OpEndSession       Operation = "end-session"
)

// ProcessFlags select the server-side batch jobs to trigger.
type ProcessFlags struct {
	Retag   bool
	Scan    bool
	CleanDB bool
}

// Params carries the inputs a request is built from. Only the fields the
// operation needs are read; everything else is ignored.
type Params struct {
	// URL, when set, is a server-issued cursor URL reused verbatim for
	// list navigation instead of recomputing from meta.
	URL string

	Meta     *models.RecordMeta
	Term     string
	Update   *dto.UpdatePhotoRequest
	Flags    ProcessFlags
	Body     interface{}
	Username string
}

// Result is the raw outcome of a successful request.
type Result struct {
	Payload   []byte
	Status    int
	RequestID string
}

// CredentialSource supplies the current session credential, if any.
type CredentialSource interface {
	Credential() (models.Credential, bool)
}

// CSRFSink is notified when a response refreshes the csrftoken cookie.
type CSRFSink interface {
	SetCSRFToken(token string)
}

type flight struct {
	cancel     context.CancelFunc
	requestID  string
	superseded bool
}

// Client issues requests against the photo-management API with a
// single-flight discipline per channel.
type Client struct {
	httpClient *http.Client
	apiRoute   string
	dataRoute  string
	creds      CredentialSource
	csrfSink   CSRFSink
	logger     *zap.Logger

	mu       sync.Mutex
	inflight map[Channel]*flight
}

// Config configures the API client.
type Config struct {
	// Route is the base URL for auth endpoints, DataRoute for catalog data.
	Route     string
	DataRoute string
	Timeout   time.Duration
}

// New builds a Client. creds may be nil for an unauthenticated client;
// csrfSink may be nil when cookie capture is not wanted.
func New(cfg Config, creds CredentialSource, csrfSink CSRFSink, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiRoute:   cfg.Route,
		dataRoute:  cfg.DataRoute,
		creds:      creds,
		csrfSink:   csrfSink,
		logger:     logger,
		inflight:   make(map[Channel]*flight),
	}
}

// ChannelFor maps an operation onto its request channel.
func ChannelFor(op Operation) Channel {
	switch op {
	case OpFetchList:
		return ChannelList
	case OpMutateItem:
		return ChannelMutate
	case OpFetchSuggestions:
		return ChannelSuggest
	case OpMutateProcessing:
		return ChannelProcess
	default:
		return ChannelAuth
	}
}

// Execute builds and issues the request for op, superseding any request still
// in flight on the same channel. A superseded request's caller receives a
// CANCELLED error and its response is never delivered.
func (c *Client) Execute(ctx context.Context, op Operation, params Params) (*Result, error) {
	method, reqURL, body, err := c.buildRequest(op, params)
	if err != nil {
		return nil, err
	}

	channel := ChannelFor(op)
	reqCtx, fl := c.claimChannel(ctx, channel)
	defer c.releaseChannel(channel, fl)

	res, err := c.do(reqCtx, method, reqURL, body, fl.requestID)
	if err != nil {
		outcome := metrics.OutcomeNetworkErr
		classified := appErrors.Wrap(err, appErrors.ErrNetworkFailure.Code, 0, appErrors.ErrNetworkFailure.Message)
		if c.wasSuperseded(channel, fl) || errors.Is(err, context.Canceled) {
			outcome = metrics.OutcomeCancelled
			classified = appErrors.Clone(appErrors.ErrCancelled, "")
		}
		metrics.ObserveRequest(string(channel), outcome)
		if outcome == metrics.OutcomeNetworkErr {
			c.logger.Warn("request failed",
				zap.String("op", string(op)),
				zap.String("request_id", fl.requestID),
				zap.Error(err))
		}
		return nil, classified
	}

	// The body may have been fully read before the successor claimed the
	// channel, in which case cancelling the context did nothing. The payload
	// is still stale and must not reach the caller.
	if c.wasSuperseded(channel, fl) {
		metrics.ObserveRequest(string(channel), metrics.OutcomeCancelled)
		return nil, appErrors.Clone(appErrors.ErrCancelled, "")
	}

	if res.Status >= http.StatusBadRequest {
		metrics.ObserveRequest(string(channel), metrics.OutcomeRejected)
		c.logger.Warn("request rejected",
			zap.String("op", string(op)),
			zap.String("request_id", fl.requestID),
			zap.Int("status", res.Status))
		return nil, appErrors.ServerRejected(res.Status)
	}

	metrics.ObserveRequest(string(channel), metrics.OutcomeSuccess)
	c.logger.Debug("request completed",
		zap.String("op", string(op)),
		zap.String("request_id", fl.requestID),
		zap.Int("status", res.Status))
	return res, nil
}

// claimChannel cancels any in-flight request on the channel and installs a
// fresh cancellation handle for the new one.
func (c *Client) claimChannel(ctx context.Context, channel Channel) (context.Context, *flight) {
	reqCtx, cancel := context.WithCancel(ctx)
	fl := &flight{cancel: cancel, requestID: uuid.NewString()}

	c.mu.Lock()
	if prev, ok := c.inflight[channel]; ok {
		prev.superseded = true
		prev.cancel()
		metrics.ObserveSuperseded(string(channel))
	}
	c.inflight[channel] = fl
	c.mu.Unlock()

	return reqCtx, fl
}

// releaseChannel clears the channel slot if it still belongs to fl.
func (c *Client) releaseChannel(channel Channel, fl *flight) {
	c.mu.Lock()
	if cur, ok := c.inflight[channel]; ok && cur == fl {
		delete(c.inflight, channel)
	}
	c.mu.Unlock()
	fl.cancel()
}

func (c *Client) wasSuperseded(channel Channel, fl *flight) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fl.superseded
}

func (c *Client) do(ctx context.Context, method, reqURL string, body interface{}, requestID string) (*Result, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.creds != nil {
		if cred, ok := c.creds.Credential(); ok {
			req.Header.Set("Authorization", "Token "+cred.Token)
			if cred.CSRFToken != "" {
				req.Header.Set("X-CSRFToken", cred.CSRFToken)
			}
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.captureCSRF(resp)

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Result{Payload: payload, Status: resp.StatusCode, RequestID: requestID}, nil
}

func (c *Client) captureCSRF(resp *http.Response) {
	if c.csrfSink == nil {
		return
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrftoken" && cookie.Value != "" {
			c.csrfSink.SetCSRFToken(cookie.Value)
		}
	}
}

func (c *Client) buildRequest(op Operation, params Params) (method, reqURL string, body interface{}, err error) {
	switch op {
	case OpFetchList:
		if params.URL != "" {
			return http.MethodGet, params.URL, nil, nil
		}
		if params.Meta == nil {
			return "", "", nil, appErrors.Clone(appErrors.ErrValidation, "list fetch requires meta or a cursor URL")
		}
		return http.MethodGet, c.listURL(*params.Meta), nil, nil

	case OpMutateItem:
		if params.Update == nil {
			return "", "", nil, appErrors.Clone(appErrors.ErrValidation, "item mutation requires an update payload")
		}
		reqURL = fmt.Sprintf("%s/photos/%d/", c.dataRoute, params.Update.ID)
		return http.MethodPatch, reqURL, params.Update, nil

	case OpMutateProcessing:
		q := url.Values{}
		q.Set("retag", boolParam(params.Flags.Retag))
		q.Set("scan", boolParam(params.Flags.Scan))
		q.Set("clean_db", boolParam(params.Flags.CleanDB))
		return http.MethodGet, fmt.Sprintf("%s/process_photos?%s", c.dataRoute, q.Encode()), nil, nil

	case OpFetchSuggestions:
		q := url.Values{}
		q.Set("term", params.Term)
		return http.MethodGet, fmt.Sprintf("%s/tags/?%s", c.dataRoute, q.Encode()), nil, nil

	case OpAuthenticate:
		return http.MethodPost, c.apiRoute + "/api-token-auth/", params.Body, nil

	case OpEndSession:
		return http.MethodPost, c.apiRoute + "/v2/logout/", params.Body, nil

	case OpChangeCredential:
		if params.Username == "" {
			return "", "", nil, appErrors.Clone(appErrors.ErrValidation, "change-credential requires a username")
		}
		reqURL = fmt.Sprintf("%s/v2/change-password/%s/", c.apiRoute, url.PathEscape(params.Username))
		return http.MethodPatch, reqURL, params.Body, nil

	default:
		return "", "", nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown operation %q", op))
	}
}

// listURL builds the photo list URL from meta. Offset math only applies here;
// cursor navigation reuses server URLs verbatim via Params.URL.
func (c *Client) listURL(meta models.RecordMeta) string {
	limit := meta.Limit
	if limit <= 0 {
		limit = 1
	}
	page := meta.Page
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", page*limit-limit))
	q.Set("order_by", meta.OrderDir+meta.OrderBy)
	q.Set("tag", meta.Search)
	return fmt.Sprintf("%s/photos/?%s", c.dataRoute, q.Encode())
}

func boolParam(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
