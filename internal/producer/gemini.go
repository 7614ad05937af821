package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"paperforge/internal/bank"
	"paperforge/internal/planner"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProducer generates questions via the Gemini generateContent API.
type GeminiProducer struct {
	APIKey     string
	Model      string
	CourseCode string
	CourseName string
	AuthorID   string
	httpc      *http.Client
}

// NewGemini builds a producer from explicit values, falling back to the
// GEMINI_API_KEY and GEMINI_MODEL environment variables.
func NewGemini(apiKey, model, courseCode, authorID string) *GeminiProducer {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if model == "" {
		model = os.Getenv("GEMINI_MODEL")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProducer{
		APIKey:     apiKey,
		Model:      model,
		CourseCode: courseCode,
		AuthorID:   authorID,
		httpc:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *GeminiProducer) Name() string { return "gemini" }

var bloomNames = map[int]string{
	1: "Remember",
	2: "Understand",
	3: "Apply",
	4: "Analyze",
	5: "Evaluate",
	6: "Create",
}

// Produce asks the model for one exam question matching the spec.
func (p *GeminiProducer) Produce(ctx context.Context, spec planner.QuestionSpec) (bank.Question, error) {
	if p.APIKey == "" {
		return bank.Question{}, fmt.Errorf("GEMINI_API_KEY is empty")
	}
	if err := planner.ValidateSpec(spec); err != nil {
		return bank.Question{}, err
	}

	prompt := fmt.Sprintf(`You write university exam questions.
Write ONE exam question for course %s with these properties:
- syllabus unit: %s
- course outcome: %s
- Bloom level: %d (%s)
- difficulty: %s
- worth %d marks

Return STRICT JSON with the following fields and nothing else:
{
  "question_text": string,
  "question_type": "short_answer" | "long_answer" | "numerical",
  "expected_time_minutes": number
}`,
		p.CourseCode, spec.UnitID, spec.COID, spec.BloomLevel, bloomNames[spec.BloomLevel],
		spec.Difficulty, spec.Marks)

	body := map[string]any{
		"contents": []any{
			map[string]any{
				"parts": []any{
					map[string]any{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]any{"temperature": 0},
	}
	payload, _ := json.Marshal(body)
	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1/models/%s:generateContent?key=%s", p.Model, p.APIKey)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return bank.Question{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return bank.Question{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return bank.Question{}, fmt.Errorf("gemini %d: %s", resp.StatusCode, string(x))
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return bank.Question{}, err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return bank.Question{}, fmt.Errorf("gemini returned no candidates")
	}

	text := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	text = stripCodeFence(text)

	var parsed struct {
		QuestionText        string  `json:"question_text"`
		QuestionType        string  `json:"question_type"`
		ExpectedTimeMinutes float64 `json:"expected_time_minutes"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		// Fall back to the raw text when the model ignored the JSON contract.
		parsed.QuestionText = text
	}
	if strings.TrimSpace(parsed.QuestionText) == "" {
		return bank.Question{}, fmt.Errorf("gemini returned an empty question")
	}

	return bank.Question{
		Text:         parsed.QuestionText,
		QuestionType: parsed.QuestionType,
		PrimaryCO:    spec.COID,
		UnitID:       spec.UnitID,
		BloomLevel:   spec.BloomLevel,
		Difficulty:   spec.Difficulty,
		Marks:        spec.Marks,
		TimeMinutes:  int(parsed.ExpectedTimeMinutes),
		CourseCode:   p.CourseCode,
		ReviewStatus: bank.ReviewAccepted,
		AuthorID:     p.AuthorID,
	}, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
