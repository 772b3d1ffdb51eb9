// Package external talks to the prediction model service: HTTP client,
// prediction cache tiers and the circuit breaker around them.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pharmaco-risk-server/internal/domain"
)

const (
	defaultModelType      = "ensemble"
	defaultModelTimeout   = 5 * time.Second
	defaultModelRateLimit = 10 // requests per second
	maxModelResponseBytes = 1 << 20
)

// ModelClient calls the risk prediction service over HTTP.
type ModelClient struct {
	baseURL    string
	modelType  string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	logger     *logrus.Logger
}

// predictRequest is the body of POST /predict
type predictRequest struct {
	Features  domain.RiskFeatures `json:"features"`
	DrugName  string              `json:"drug_name"`
	ModelType string              `json:"model_type"`
}

// predictResponse accepts both response shapes the model service has used:
// {success, risk_level, risk_probability, confidence} and
// {prediction, probability, risk_level, model_type, confidence}. The class
// label in "prediction" is ignored: the level is derived from the probability.
type predictResponse struct {
	Success         *bool           `json:"success"`
	RiskLevel       string          `json:"risk_level"`
	RiskProbability *float64        `json:"risk_probability"`
	Probability     *float64        `json:"probability"`
	Confidence      json.RawMessage `json:"confidence"`
	ModelType       string          `json:"model_type"`
	Error           string          `json:"error"`
}

// NewModelClient creates a new prediction service client
func NewModelClient(config domain.PredictorConfig, logger *logrus.Logger) *ModelClient {
	if config.Timeout == 0 {
		config.Timeout = defaultModelTimeout
	}
	if config.RateLimit == 0 {
		config.RateLimit = defaultModelRateLimit
	}
	if config.ModelType == "" {
		config.ModelType = defaultModelType
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &ModelClient{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		modelType: config.ModelType,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit),
		logger:    logger,
	}
}

// ModelType returns the model variant requested from the service.
func (c *ModelClient) ModelType() string {
	return c.modelType
}

// Predict implements domain.Predictor.
func (c *ModelClient) Predict(ctx context.Context, features domain.RiskFeatures, drugName string) (*domain.Prediction, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	body, err := json.Marshal(predictRequest{Features: features, DrugName: drugName, ModelType: c.modelType})
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute prediction request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxModelResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read prediction response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("model service returned status %d", resp.StatusCode)
	}

	var decoded predictResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPrediction, err)
	}

	prediction, err := decoded.toPrediction(c.modelType)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"drug_name":   drugName,
		"model_type":  prediction.ModelType,
		"probability": prediction.RiskProbability,
		"risk_level":  prediction.RiskLevel.String(),
	}).Debug("Model prediction received")

	return prediction, nil
}

// Health checks GET /health on the model service.
func (c *ModelClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model service unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxModelResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("model service health returned status %d", resp.StatusCode)
	}
	return nil
}

func (r *predictResponse) toPrediction(requestedModel string) (*domain.Prediction, error) {
	if r.Success != nil && !*r.Success {
		if r.Error != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrPredictionUnsuccessful, r.Error)
		}
		return nil, domain.ErrPredictionUnsuccessful
	}

	probability := r.RiskProbability
	if probability == nil {
		probability = r.Probability
	}
	if probability == nil {
		return nil, fmt.Errorf("%w: response carries no probability", domain.ErrMalformedPrediction)
	}
	p := *probability

	confidence, err := parseConfidence(r.Confidence, p)
	if err != nil {
		return nil, err
	}

	// An unknown label is dropped; the scorer derives the level from p anyway.
	level, _ := domain.ParseRiskLevel(strings.TrimSpace(r.RiskLevel))

	modelType := r.ModelType
	if modelType == "" {
		modelType = requestedModel
	}

	return &domain.Prediction{
		Success:         true,
		RiskLevel:       level,
		RiskProbability: p,
		Confidence:      confidence,
		ModelType:       modelType,
	}, nil
}

// parseConfidence accepts a numeric confidence as-is. A categorical label
// (HIGH, MEDIUM, LOW) or a missing value is replaced by the distance of the
// probability from the decision boundary, |p - 0.5| * 2.
func parseConfidence(raw json.RawMessage, probability float64) (float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return boundaryDistance(probability), nil
	}

	var numeric float64
	if err := json.Unmarshal(trimmed, &numeric); err == nil {
		return numeric, nil
	}

	var label string
	if err := json.Unmarshal(trimmed, &label); err != nil {
		return 0, fmt.Errorf("%w: confidence is neither a number nor a label", domain.ErrMalformedPrediction)
	}
	return boundaryDistance(probability), nil
}

func boundaryDistance(p float64) float64 {
	return math.Abs(p-0.5) * 2
}
