package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-observations/internal/models"
	appErrors "github.com/noah-isme/sma-observations/pkg/errors"
	"github.com/noah-isme/sma-observations/pkg/pagination"
)

const (
	resourcePath     = "/observations"
	totalCountHeader = "X-Total-Count"
	requestIDHeader  = "X-Request-ID"
)

// HTTPConfig configures an HTTPCollection.
type HTTPConfig struct {
	BaseURL string
	Token   string
	// Timeout bounds each request. Zero leaves requests unbounded.
	Timeout time.Duration
	Client  *http.Client
	Logger  *zap.Logger
	Now     func() time.Time
}

// HTTPCollection talks to the /observations REST resource.
type HTTPCollection struct {
	baseURL *url.URL
	token   string
	client  *http.Client
	logger  *zap.Logger
	now     func() time.Time
}

// envelope mirrors the server response contract.
type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *pagination.Descriptor `json:"pagination"`
}

type createPayload struct {
	StudentName string    `json:"studentName"`
	Observation string    `json:"observation"`
	IsFavorite  bool      `json:"isFavorite"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewHTTPCollection validates the configuration and builds the adapter.
func NewHTTPCollection(cfg HTTPConfig) (*HTTPCollection, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("remote collection base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &HTTPCollection{baseURL: base, token: cfg.Token, client: client, logger: logger, now: now}, nil
}

// List fetches one window, or the whole collection for unwindowed queries.
func (c *HTTPCollection) List(ctx context.Context, query ListQuery) (ListResult, error) {
	params := url.Values{}
	filter := query.Filter
	if filter == "" {
		filter = models.FilterAll
	}
	params.Set("filter", string(filter))
	switch filter {
	case models.FilterActive:
		params.Set("isCompleted", "false")
	case models.FilterCompleted:
		params.Set("isCompleted", "true")
	case models.FilterFavorites:
		params.Set("isFavorite", "true")
	}
	sort := query.Sort
	if sort.Field == "" {
		sort = DefaultSort
	}
	params.Set("_sort", sort.Field)
	if sort.Desc {
		params.Set("_order", "desc")
	} else {
		params.Set("_order", "asc")
	}
	if !query.Unwindowed() {
		params.Set("_page", strconv.Itoa(query.Page))
		params.Set("_limit", strconv.Itoa(query.Limit))
	}

	var items []models.Observation
	env, header, err := c.do(ctx, http.MethodGet, resourcePath, params, nil, &items)
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []models.Observation{}
	}
	total := len(items)
	if raw := header.Get(totalCountHeader); raw != "" {
		if parsed, perr := strconv.Atoi(raw); perr == nil {
			total = parsed
		}
	} else if env.Pagination != nil {
		total = env.Pagination.TotalItems
	}
	return ListResult{Items: items, TotalCount: total}, nil
}

// Create posts a new observation. The server assigns the id.
func (c *HTTPCollection) Create(ctx context.Context, data models.CreateObservationData) (models.Observation, error) {
	payload := createPayload{
		StudentName: data.StudentName,
		Observation: data.Observation,
		IsFavorite:  data.IsFavorite,
		IsCompleted: data.IsCompleted,
		CreatedAt:   c.now().UTC(),
	}
	var created models.Observation
	if _, _, err := c.do(ctx, http.MethodPost, resourcePath, nil, payload, &created); err != nil {
		return models.Observation{}, err
	}
	return created, nil
}

// Update replaces the stored observation with the given one.
func (c *HTTPCollection) Update(ctx context.Context, id string, observation models.Observation) (models.Observation, error) {
	var updated models.Observation
	if _, _, err := c.do(ctx, http.MethodPut, resourcePath+"/"+url.PathEscape(id), nil, observation, &updated); err != nil {
		return models.Observation{}, err
	}
	return updated, nil
}

// Delete removes an observation.
func (c *HTTPCollection) Delete(ctx context.Context, id string) error {
	_, _, err := c.do(ctx, http.MethodDelete, resourcePath+"/"+url.PathEscape(id), nil, nil, nil)
	return err
}

func (c *HTTPCollection) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) (envelope, http.Header, error) {
	var env envelope
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path
	if params != nil {
		endpoint.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return env, nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return env, nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("remote request failed",
			zap.String("method", method), zap.String("path", path), zap.String("request_id", reqID), zap.Error(err))
		return env, nil, appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, appErrors.ErrRemote.Message)
	}
	defer resp.Body.Close()
	c.logger.Debug("remote request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", reqID),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return env, resp.Header, appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, "read response body")
	}
	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if env, err = decodeBody(raw, success); err != nil {
		if !success {
			return env, resp.Header, remoteError(resp.StatusCode, nil)
		}
		return env, resp.Header, appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, "decode response body")
	}
	if !success {
		return env, resp.Header, remoteError(resp.StatusCode, env.Error)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env, resp.Header, appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, "decode response data")
		}
	}
	return env, resp.Header, nil
}

// decodeBody reads either the API envelope or a plain json-server body: a bare
// array for listings, a bare object for single items.
func decodeBody(raw []byte, success bool) (envelope, error) {
	var env envelope
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return env, nil
	}
	if trimmed[0] == '[' {
		if !json.Valid(trimmed) {
			return env, fmt.Errorf("invalid json array body")
		}
		env.Data = json.RawMessage(trimmed)
		return env, nil
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return env, err
	}
	if success && len(env.Data) == 0 && env.Error == nil && env.Pagination == nil {
		env.Data = json.RawMessage(trimmed)
	}
	return env, nil
}

func remoteError(status int, serverErr *appErrors.Error) *appErrors.Error {
	if serverErr != nil && serverErr.Message != "" {
		clone := *serverErr
		clone.Status = status
		return &clone
	}
	switch status {
	case http.StatusNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, "observation not found")
	case http.StatusUnauthorized:
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	default:
		return &appErrors.Error{
			Code:    appErrors.ErrRemote.Code,
			Status:  status,
			Message: fmt.Sprintf("remote collection responded %d", status),
		}
	}
}
