package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/pkg/monitoring"
)

// ScoreOutcome is what a scorer reports for one submission
type ScoreOutcome struct {
	Payload        models.ResultPayload
	Score          *float64
	IsPassed       bool
	ElapsedSeconds *int
}

// ScoringGateway turns a final answer set into a result. Transient failures
// wrap ErrUpstreamFailure.
type ScoringGateway interface {
	Score(ctx context.Context, assessment *models.Assessment, answers map[string]interface{}) (*ScoreOutcome, error)
}

// ===== HTTP GATEWAY =====

type HTTPScoringGateway struct {
	url    string
	client *http.Client
}

func NewHTTPScoringGateway(url string, client *http.Client) *HTTPScoringGateway {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPScoringGateway{url: url, client: client}
}

type scoringRequest struct {
	AssessmentID uint                   `json:"assessment_id"`
	TypeTag      string                 `json:"type_tag"`
	PassingScore int                    `json:"passing_score"`
	Questions    []*models.Question     `json:"questions"`
	Answers      map[string]interface{} `json:"answers"`
}

type scoringResponse struct {
	Result         json.RawMessage `json:"result"`
	Score          *float64        `json:"score"`
	IsPassed       *bool           `json:"is_passed"`
	ElapsedSeconds *int            `json:"elapsed_seconds"`
	Error          string          `json:"error"`
}

func (g *HTTPScoringGateway) Score(ctx context.Context, assessment *models.Assessment, answers map[string]interface{}) (*ScoreOutcome, error) {
	questions := make([]*models.Question, 0, len(assessment.Questions))
	for i := range assessment.Questions {
		questions = append(questions, &assessment.Questions[i])
	}

	body, err := json.Marshal(scoringRequest{
		AssessmentID: assessment.ID,
		TypeTag:      assessment.TypeTag,
		PassingScore: assessment.PassingScore,
		Questions:    questions,
		Answers:      answers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scoring request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: scoring request failed: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read scoring response: %v", ErrUpstreamFailure, err)
	}

	var decoded scoringResponse
	decodeErr := json.Unmarshal(data, &decoded)

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: scorer returned status %d", ErrUpstreamFailure, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		msg := decoded.Error
		if msg == "" {
			msg = fmt.Sprintf("scorer rejected the answers with status %d", resp.StatusCode)
		}
		return nil, NewValidationError("answers", msg, nil)
	case decodeErr != nil:
		return nil, fmt.Errorf("%w: invalid scoring response: %v", ErrUpstreamFailure, decodeErr)
	}

	outcome := &ScoreOutcome{
		Payload:        models.NormalizeResultPayload(decoded.Result),
		Score:          decoded.Score,
		ElapsedSeconds: decoded.ElapsedSeconds,
	}
	if decoded.IsPassed != nil {
		outcome.IsPassed = *decoded.IsPassed
	} else if decoded.Score != nil {
		outcome.IsPassed = *decoded.Score >= float64(assessment.PassingScore)
	}
	return outcome, nil
}

// ===== DIMENSION GATEWAY =====

// DimensionScoringGateway scores trait-style assessments in process. Answers are
// keyed by question ID. Each question whose options carry dimensions forms an
// axis (E/I, S/N, D/I/S/C...); the most chosen pole of every axis contributes one
// letter to the type tag. The score is the share of required questions answered.
type DimensionScoringGateway struct{}

func NewDimensionScoringGateway() *DimensionScoringGateway {
	return &DimensionScoringGateway{}
}

func (g *DimensionScoringGateway) Score(ctx context.Context, assessment *models.Assessment, answers map[string]interface{}) (*ScoreOutcome, error) {
	counts := map[string]int{}
	var axes [][]string
	axisIndex := map[string]int{}
	required, answeredRequired, answered := 0, 0, 0

	for i := range assessment.Questions {
		q := &assessment.Questions[i]
		value, ok := answers[strconv.FormatUint(uint64(q.ID), 10)]
		isAnswered := ok && hasAnswer(value)
		if isAnswered {
			answered++
		}
		if q.Required {
			required++
			if isAnswered {
				answeredRequired++
			}
		}

		options, err := q.ParsedOptions()
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("questions[%d].options", q.ID), err.Error(), nil)
		}
		poles := axisOf(options)
		if len(poles) == 0 {
			continue
		}
		key := strings.Join(poles, "/")
		if _, seen := axisIndex[key]; !seen {
			axisIndex[key] = len(axes)
			axes = append(axes, poles)
		}
		if !isAnswered {
			continue
		}
		for _, opt := range options {
			if opt.Dimension != "" && answerSelects(value, opt.Value) {
				counts[opt.Dimension]++
			}
		}
	}

	var tag strings.Builder
	for _, poles := range axes {
		best := poles[0]
		for _, pole := range poles[1:] {
			if counts[pole] > counts[best] {
				best = pole
			}
		}
		tag.WriteString(best)
	}

	score := 100.0
	if required > 0 {
		score = math.Round(float64(answeredRequired)/float64(required)*10000) / 100
	}

	dimensions := make(map[string]interface{}, len(counts))
	for dim, n := range counts {
		dimensions[dim] = n
	}

	return &ScoreOutcome{
		Payload: models.StructuredPayload(map[string]interface{}{
			"type":       tag.String(),
			"dimensions": dimensions,
			"answered":   answered,
			"required":   required,
		}),
		Score:    &score,
		IsPassed: score >= float64(assessment.PassingScore),
	}, nil
}

// axisOf returns the distinct dimensions of a question's options in option order
func axisOf(options []models.QuestionOption) []string {
	var poles []string
	seen := map[string]bool{}
	for _, opt := range options {
		if opt.Dimension == "" || seen[opt.Dimension] {
			continue
		}
		seen[opt.Dimension] = true
		poles = append(poles, opt.Dimension)
	}
	return poles
}

func hasAnswer(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case []interface{}:
		return len(val) > 0
	default:
		return true
	}
}

func answerSelects(answer interface{}, optionValue string) bool {
	if list, ok := answer.([]interface{}); ok {
		for _, v := range list {
			if fmt.Sprint(v) == optionValue {
				return true
			}
		}
		return false
	}
	return fmt.Sprint(answer) == optionValue
}

// ===== RETRY WRAPPER =====

type retryingGateway struct {
	inner   ScoringGateway
	timeout time.Duration
	logger  *slog.Logger
}

// NewRetryingGateway bounds every call by timeout and retries an upstream
// failure once
func NewRetryingGateway(inner ScoringGateway, timeout time.Duration, logger *slog.Logger) ScoringGateway {
	return &retryingGateway{inner: inner, timeout: timeout, logger: logger}
}

func (g *retryingGateway) Score(ctx context.Context, assessment *models.Assessment, answers map[string]interface{}) (*ScoreOutcome, error) {
	const attempts = 2

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		outcome, err := g.call(ctx, assessment, answers)
		if err == nil {
			return outcome, nil
		}
		lastErr = err
		if !errors.Is(err, ErrUpstreamFailure) || ctx.Err() != nil {
			break
		}
		g.logger.Warn("Scoring call failed",
			"assessment_id", assessment.ID,
			"attempt", attempt,
			"error", err)
	}
	return nil, lastErr
}

func (g *retryingGateway) call(ctx context.Context, assessment *models.Assessment, answers map[string]interface{}) (*ScoreOutcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	outcome, err := g.inner.Score(callCtx, assessment, answers)

	status := "ok"
	if err != nil {
		status = "error"
		// a call that ran out of its own time budget is transient
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && !errors.Is(err, ErrUpstreamFailure) {
			err = fmt.Errorf("%w: scoring timed out after %s", ErrUpstreamFailure, g.timeout)
		}
	}
	monitoring.ScoringDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return outcome, err
}
