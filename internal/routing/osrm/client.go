// Package osrm provides a client for an OSRM-compatible routing API.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lakbaysafe/lakbaysafe/internal/provider/resilience"
	"github.com/lakbaysafe/lakbaysafe/internal/routing"
	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "https://router.project-osrm.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OSRM client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to the OSRM demo server).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OSRM API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OSRM client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetDirections retrieves route candidates between two points.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	profile := profileFor(req.TravelMode)

	// OSRM uses {lon},{lat} coordinate order.
	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?alternatives=%d&steps=true&overview=full&geometries=polyline",
		c.baseURL, profile,
		req.Origin.Lon, req.Origin.Lat,
		req.Destination.Lon, req.Destination.Lat,
		req.MaxAlternatives,
	)
	if req.AvoidTolls {
		url += "&exclude=toll"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().
		Str("profile", profile).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Msg("requesting directions from OSRM")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var osrmResp osrmResponse
	if err := json.Unmarshal(respBody, &osrmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if osrmResp.Code != codeOk {
		return nil, c.handleAPIError(&osrmResp)
	}

	result := c.toDirectionsResponse(&osrmResp)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received directions from OSRM")

	return result, nil
}

// handleErrorResponse maps HTTP error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var osrmErr osrmResponse
	if err := json.Unmarshal(body, &osrmErr); err == nil && osrmErr.Code == codeNoRoute {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case statusCode >= 500:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "routing provider is temporarily unavailable",
			Err:      routing.ErrProviderUnavailable,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("routing provider returned status %d", statusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

// handleAPIError maps OSRM body-level error codes to domain errors.
func (c *Client) handleAPIError(resp *osrmResponse) error {
	if resp.Code == codeNoRoute {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	}

	return &routing.Error{
		Provider: ProviderName,
		Code:     resp.Code,
		Message:  resp.Message,
		Err:      routing.ErrProviderUnavailable,
	}
}

// toDirectionsResponse converts an OSRM response to the domain model.
func (c *Client) toDirectionsResponse(resp *osrmResponse) *routing.DirectionsResponse {
	routes := make([]routing.Route, 0, len(resp.Routes))

	for i := range resp.Routes {
		osrmRoute := &resp.Routes[i]

		coords := polyline.Decode(osrmRoute.Geometry)

		route := routing.Route{
			ID:              "rt_" + uuid.New().String()[:8],
			Coordinates:     coords,
			DistanceKm:      osrmRoute.Distance / 1000,
			DurationMinutes: osrmRoute.Duration / 60,
			Bounds:          boundsFor(coords),
		}

		for j := range osrmRoute.Legs {
			leg := &osrmRoute.Legs[j]
			for k := range leg.Steps {
				step := &leg.Steps[k]
				route.Steps = append(route.Steps, routing.Step{
					Instruction:       instructionFor(step),
					StreetName:        step.Name,
					DistanceMeters:    step.Distance,
					TravelTimeSeconds: step.Duration,
					Maneuver:          maneuverFor(step.Maneuver.Type),
				})
			}
		}

		routes = append(routes, route)
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}

// boundsFor computes a bounding box over the decoded polyline.
func boundsFor(coords []polyline.Coordinate) *routing.BoundingBox {
	if len(coords) == 0 {
		return nil
	}

	sw := coords[0]
	ne := coords[0]
	for _, c := range coords[1:] {
		if c.Lat < sw.Lat {
			sw.Lat = c.Lat
		}
		if c.Lon < sw.Lon {
			sw.Lon = c.Lon
		}
		if c.Lat > ne.Lat {
			ne.Lat = c.Lat
		}
		if c.Lon > ne.Lon {
			ne.Lon = c.Lon
		}
	}

	return &routing.BoundingBox{Southwest: sw, Northeast: ne}
}

// instructionFor builds a human-readable instruction from an OSRM step.
func instructionFor(step *osrmStep) string {
	var sb strings.Builder

	switch step.Maneuver.Type {
	case "depart":
		sb.WriteString("Head out")
	case "arrive":
		sb.WriteString("Arrive at your destination")
	case "turn":
		sb.WriteString("Turn")
		if step.Maneuver.Modifier != "" {
			sb.WriteString(" " + step.Maneuver.Modifier)
		}
	case "merge":
		sb.WriteString("Merge")
		if step.Maneuver.Modifier != "" {
			sb.WriteString(" " + step.Maneuver.Modifier)
		}
	case "roundabout", "rotary":
		sb.WriteString("Take the roundabout")
	default:
		sb.WriteString("Continue")
		if step.Maneuver.Modifier != "" && step.Maneuver.Modifier != "straight" {
			sb.WriteString(" " + step.Maneuver.Modifier)
		}
	}

	if step.Name != "" && step.Maneuver.Type != "arrive" {
		sb.WriteString(" onto " + step.Name)
	}

	return sb.String()
}

// maneuverFor maps OSRM maneuver types to the domain enum.
func maneuverFor(osrmType string) routing.ManeuverType {
	switch osrmType {
	case "depart":
		return routing.ManeuverDepart
	case "arrive":
		return routing.ManeuverArrive
	case "turn", "end of road", "fork":
		return routing.ManeuverTurn
	case "merge", "on ramp", "off ramp":
		return routing.ManeuverMerge
	case "roundabout", "rotary":
		return routing.ManeuverRoundabout
	default:
		return routing.ManeuverContinue
	}
}

// profileFor maps the travel mode to an OSRM profile.
func profileFor(mode routing.TravelMode) string {
	switch mode {
	case routing.ModeWalking:
		return "foot"
	case routing.ModeCycling:
		return "bike"
	default:
		return "driving"
	}
}
