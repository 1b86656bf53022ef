package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"go.uber.org/zap"

	"github.com/velohub/audio-qa-server/internal/repository/models"
)

const scoreCallTimeout = 60 * time.Second

// CallScore is one automated quality assessment of a transcribed call.
type CallScore struct {
	Pass          models.ScoringPass
	Emotion       models.Emotion
	Nuance        models.Nuance
	CriticalWords []string
}

// GeminiScorer scores call transcripts with a generative model.
type GeminiScorer struct {
	model  *genai.GenerativeModel
	client *genai.Client
	logger *zap.Logger
}

func NewGeminiScorer(ctx context.Context, projectID, location, modelName string, logger *zap.Logger) (*GeminiScorer, error) {
	if projectID == "" {
		return nil, fmt.Errorf("gemini scorer: project id is required")
	}
	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("create vertex client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)
	return &GeminiScorer{model: model, client: client, logger: logger.Named("gemini")}, nil
}

// scorePayload is the JSON shape the prompt asks the model to return.
type scorePayload struct {
	Analysis      string                  `json:"analysis"`
	Criteria      *models.QualityCriteria `json:"criteria"`
	Score         *float64                `json:"score"`
	Confidence    float64                 `json:"confidence"`
	CriticalWords []string                `json:"criticalWords"`
	Rationale     []string                `json:"rationale"`
	Emotion       models.Emotion          `json:"emotion"`
	Nuance        models.Nuance           `json:"nuance"`
}

// ScoreCall sends the transcript through the scoring prompt and parses the
// first JSON object found in the free-text response.
func (g *GeminiScorer) ScoreCall(ctx context.Context, transcript string, words []models.WordTimestamp) (CallScore, error) {
	ctx, cancel := context.WithTimeout(ctx, scoreCallTimeout)
	defer cancel()

	prompt := buildScoringPrompt(transcript, words)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return CallScore{}, fmt.Errorf("generate content: %w", err)
	}

	text, err := firstText(resp)
	if err != nil {
		return CallScore{}, err
	}

	payload, err := parseScorePayload(text)
	if err != nil {
		// keep the offending payload in the logs for diagnostics,
		// callers only see the sentinel
		g.logger.Error("unparseable scoring response",
			zap.Error(err),
			zap.String("raw_response", text))
		return CallScore{}, err
	}

	g.logger.Info("call scored",
		zap.Float64("score", *payload.Score),
		zap.Float64("confidence", payload.Confidence))

	return CallScore{
		Pass: models.ScoringPass{
			Criteria:     *payload.Criteria,
			Score:        *payload.Score,
			Confidence:   payload.Confidence,
			Rationale:    payload.Rationale,
			AnalysisText: payload.Analysis,
		},
		Emotion:       payload.Emotion,
		Nuance:        payload.Nuance,
		CriticalWords: payload.CriticalWords,
	}, nil
}

func (g *GeminiScorer) Close() error {
	return g.client.Close()
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty response", ErrNoJSON)
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			return string(t), nil
		}
	}
	return "", fmt.Errorf("%w: no text part", ErrNoJSON)
}

// parseScorePayload extracts and validates the first {...} block of a model
// response.
func parseScorePayload(text string) (scorePayload, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return scorePayload{}, ErrNoJSON
	}

	var payload scorePayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return scorePayload{}, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}

	if payload.Criteria == nil {
		return scorePayload{}, fmt.Errorf("%w: criteria block missing", ErrMalformedScore)
	}
	if payload.Score == nil || *payload.Score < 0 || *payload.Score > 100 {
		return scorePayload{}, fmt.Errorf("%w: score missing or out of range", ErrMalformedScore)
	}
	return payload, nil
}

func buildScoringPrompt(transcript string, words []models.WordTimestamp) string {
	duration := 0.0
	if n := len(words); n > 0 {
		duration = words[n-1].EndTime
	}

	return fmt.Sprintf(`You are auditing a recorded customer-service call for a financial services company.
The call lasted %.0f seconds. Analyze the transcript below and return a single JSON object, nothing else.

Evaluate each quality criterion as true or false:
- greetingAdequate: did the agent greet the customer properly?
- activeListening: did the agent listen actively and ask relevant questions?
- clarityObjectivity: was the communication clear and objective?
- issueResolved: was the customer's issue resolved following procedure?
- subjectMastery: did the agent demonstrate command of the subject?
- empathyCordiality: did the agent show empathy and cordiality?
- surveyDirected: did the agent direct the customer to the satisfaction survey?
- incorrectProcedure: did the agent pass on incorrect information? (true is negative)
- abruptClosure: did the agent end the contact abruptly? (true is negative)

Compute a 0-100 score: positive criteria add 10-25 points each, negative criteria subtract 60-100 points each.
List critical words or phrases that signal problems, and short rationale entries explaining the scoring.

Return JSON with this exact structure:
{
  "analysis": "full written assessment",
  "criteria": {"greetingAdequate": bool, "activeListening": bool, "clarityObjectivity": bool, "issueResolved": bool, "subjectMastery": bool, "empathyCordiality": bool, "surveyDirected": bool, "incorrectProcedure": bool, "abruptClosure": bool},
  "score": number,
  "confidence": number,
  "criticalWords": ["..."],
  "rationale": ["..."],
  "emotion": {"tone": "positive|neutral|negative", "empathy": number, "professionalism": number},
  "nuance": {"clarity": number, "tension": number}
}

TRANSCRIPT:
%s`, duration, transcript)
}
