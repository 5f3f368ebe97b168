package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yikao-labs/shenlun-api/internal/dto"
)

// ErrNoJSONFound indicates the model reply contained no JSON object at all.
var ErrNoJSONFound = errors.New("no json object in model response")

// ErrInvalidJSON indicates the candidate JSON slice failed to parse.
var ErrInvalidJSON = errors.New("malformed json in model response")

// ExtractionError wraps an extraction failure together with the raw model
// text so operators can diagnose what the model actually said.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract grading result: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractResult recovers the grading result from raw model text. The model
// is instructed to emit bare JSON but may still wrap it in prose or code
// fences; the object is located as the span from the first '{' to the last
// '}'. Beyond what parsing guarantees there is no deep schema validation:
// shape conformance is the prompt's contract, and optional fields may be
// missing.
func ExtractResult(content string) (dto.GradingResult, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return dto.GradingResult{}, &ExtractionError{Raw: content, Err: ErrNoJSONFound}
	}

	var result dto.GradingResult
	if err := json.Unmarshal([]byte(content[start:end+1]), &result); err != nil {
		return dto.GradingResult{}, &ExtractionError{Raw: content, Err: fmt.Errorf("%w: %v", ErrInvalidJSON, err)}
	}

	return result, nil
}
