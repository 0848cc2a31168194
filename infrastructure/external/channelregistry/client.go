// Package channelregistry resolves publication channel claims from the
// channel registry service.
package channelregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"publication-backend/application/ports"
	pkgerrors "publication-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const serviceName = "channel registry"

// Config holds configuration for the registry client
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Circuit breaker settings
	MaxRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig returns a default configuration for baseURL
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		Timeout:          3 * time.Second,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		OpenTimeout:      60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

type claimResponse struct {
	ChannelIdentifier string `json:"channelIdentifier"`
	CustomerID        string `json:"customerId"`
	OrganizationID    string `json:"organizationId"`
}

// Client implements ports.ChannelClaimResolver over HTTP behind a circuit breaker
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

var _ ports.ChannelClaimResolver = (*Client)(nil)

// NewClient creates a registry client
func NewClient(config Config, logger *zap.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        serviceName,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// ResolveClaim returns the claim on the channel, or nil when nobody claims it
func (c *Client) ResolveClaim(ctx context.Context, channelIdentifier string) (*ports.ChannelClaim, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, channelIdentifier)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, pkgerrors.NewUnavailableError(serviceName, err)
		}
		return nil, err
	}

	claim, _ := result.(*ports.ChannelClaim)
	return claim, nil
}

func (c *Client) fetch(ctx context.Context, channelIdentifier string) (*ports.ChannelClaim, error) {
	endpoint := fmt.Sprintf("%s/channels/%s/claim", c.baseURL, url.PathEscape(channelIdentifier))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.NewInternalError("build channel claim request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.NewExternalError(serviceName, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, pkgerrors.NewExternalError(serviceName,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var claim claimResponse
	if err := json.NewDecoder(resp.Body).Decode(&claim); err != nil {
		return nil, pkgerrors.NewExternalError(serviceName, fmt.Errorf("decode claim: %w", err))
	}
	if claim.CustomerID == "" {
		return nil, nil
	}
	if claim.ChannelIdentifier == "" {
		claim.ChannelIdentifier = channelIdentifier
	}

	c.logger.Debug("Resolved channel claim",
		zap.String("channel", channelIdentifier),
		zap.String("customerID", claim.CustomerID),
	)
	return &ports.ChannelClaim{
		ChannelIdentifier: claim.ChannelIdentifier,
		CustomerID:        claim.CustomerID,
		OrganizationID:    claim.OrganizationID,
	}, nil
}
