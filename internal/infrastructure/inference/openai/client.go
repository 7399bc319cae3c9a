package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/infrastructure/resilience"
)

// pageMetadataSchema is the strict output contract for title-block reading.
// Every field is required; the model returns empty strings for fields it
// cannot read rather than omitting them.
var pageMetadataSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"metadata": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"drawing_number": map[string]any{"type": "string"},
				"sheet_title":    map[string]any{"type": "string"},
				"discipline":     map[string]any{"type": "string"},
				"revision":       map[string]any{"type": "string"},
				"scale":          map[string]any{"type": "string"},
			},
			"required":             []string{"drawing_number", "sheet_title", "discipline", "revision", "scale"},
			"additionalProperties": false,
		},
		"confidence": map[string]any{
			"type":    "number",
			"minimum": 0.0,
			"maximum": 1.0,
		},
	},
	"required":             []string{"metadata", "confidence"},
	"additionalProperties": false,
}

type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
}

func (c Config) normalize() Config {
	if c.Model == "" {
		c.Model = shared.ChatModelGPT5Mini
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 90 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.Burst <= 0 {
		c.Burst = 4
	}
	return c
}

// Client reads drawing metadata off single-page documents with a vision model.
// A shared rate limiter keeps concurrent page fan-out under the provider quota.
type Client struct {
	api      openai.Client
	cfg      Config
	limiter  *rate.Limiter
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	cfg = cfg.normalize()

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:      openai.NewClient(opts...),
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		executor: executor,
	}
}

func (c *Client) InferPageMetadata(ctx context.Context, pageDoc []byte, mimeType string, candidates []domain.ProjectInfo) (domain.PageMetadataResult, error) {
	if len(pageDoc) == 0 {
		return domain.PageMetadataResult{}, fmt.Errorf("empty page document")
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.PageMetadataResult{}, fmt.Errorf("inference rate limiter: %w", err)
	}

	var result domain.PageMetadataResult
	call := func(ctx context.Context) error {
		parsed, err := c.inferOnce(ctx, pageDoc, mimeType, candidates)
		if err != nil {
			return err
		}
		result = parsed
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai.infer_page", call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.PageMetadataResult{}, wrapTemporaryIfNeeded(err)
	}
	return result, nil
}

func (c *Client) inferOnce(ctx context.Context, pageDoc []byte, mimeType string, candidates []domain.ProjectInfo) (domain.PageMetadataResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	encoded := base64.StdEncoding.EncodeToString(pageDoc)
	response, err := c.api.Responses.New(ctx, responses.ResponseNewParams{
		Model: c.cfg.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						responses.ResponseInputContentUnionParam{
							OfInputFile: &responses.ResponseInputFileParam{
								FileData: openai.String("data:" + mimeType + ";base64," + encoded),
								Filename: openai.String("page.pdf"),
							},
						},
						responses.ResponseInputContentParamOfInputText(buildInferencePrompt(pageDoc, candidates)),
					},
					"user",
				),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema("page_metadata", pageMetadataSchema),
		},
	})
	if err != nil {
		return domain.PageMetadataResult{}, fmt.Errorf("openai infer page: %w", err)
	}

	var parsed domain.PageMetadataResult
	if err := json.Unmarshal([]byte(response.OutputText()), &parsed); err != nil {
		return domain.PageMetadataResult{}, fmt.Errorf("parse inference json: %w", err)
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	parsed.Metadata.DrawingNumber = domain.NormalizeDrawingNumber(parsed.Metadata.DrawingNumber)
	return parsed, nil
}
