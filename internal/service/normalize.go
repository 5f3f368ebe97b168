package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/yikao-labs/shenlun-api/internal/dto"
)

// DefaultTopic replaces a blank topic so the prompt never carries an empty
// header line.
const DefaultTopic = "未提供题目"

// ErrMissingMaterial indicates neither material text nor material images
// were supplied.
var ErrMissingMaterial = errors.New("missing material")

// ErrMissingAnswer indicates neither answer text nor answer images were
// supplied.
var ErrMissingAnswer = errors.New("missing text or image")

// ErrMissingTopic indicates the topic was blank while the caller policy
// requires one.
var ErrMissingTopic = errors.New("missing topic")

// ErrInvalidImage indicates an image reference that is neither a fetchable
// URL nor a decodable image data URI.
var ErrInvalidImage = errors.New("invalid image reference")

// GradingRequest is the canonical input record for one grading call.
// WordLimit is zero when the caller supplied none.
type GradingRequest struct {
	Topic          string
	MaterialText   string
	MaterialImages []string
	AnswerText     string
	AnswerImages   []string
	WordLimit      int
	UseMultimodal  bool
}

// Normalizer validates and canonicalizes raw grading requests. It is a pure
// transformation; no I/O happens here.
type Normalizer struct {
	// RequireTopic makes a blank topic a validation failure instead of
	// substituting DefaultTopic.
	RequireTopic bool
}

// Normalize trims and canonicalizes the raw request, decides the backend
// path, and rejects requests that are missing mandatory material or answer
// content.
func (n Normalizer) Normalize(raw dto.GradeRequest) (GradingRequest, error) {
	topic := strings.TrimSpace(raw.Topic)
	if topic == "" {
		if n.RequireTopic {
			return GradingRequest{}, ErrMissingTopic
		}
		topic = DefaultTopic
	}

	materialText := strings.TrimSpace(raw.Material)
	materialImages := normalizeImages(raw.MaterialImages)

	answerText := strings.TrimSpace(raw.Text)
	answerImages := normalizeImages(raw.Images)
	if legacy := strings.TrimSpace(raw.Image); legacy != "" {
		answerImages = append([]string{legacy}, answerImages...)
	}

	if materialText == "" && len(materialImages) == 0 {
		return GradingRequest{}, ErrMissingMaterial
	}
	if answerText == "" && len(answerImages) == 0 {
		return GradingRequest{}, ErrMissingAnswer
	}

	for _, ref := range append(append([]string{}, materialImages...), answerImages...) {
		if err := checkImageRef(ref); err != nil {
			return GradingRequest{}, err
		}
	}

	return GradingRequest{
		Topic:          topic,
		MaterialText:   materialText,
		MaterialImages: materialImages,
		AnswerText:     answerText,
		AnswerImages:   answerImages,
		WordLimit:      coerceWordLimit(raw.WordLimit),
		UseMultimodal:  len(answerImages) > 0 || len(materialImages) > 0,
	}, nil
}

func normalizeImages(refs []string) []string {
	result := make([]string, 0, len(refs))
	for _, ref := range refs {
		trimmed := strings.TrimSpace(ref)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// coerceWordLimit accepts the untyped wordLimit field as a JSON number or a
// numeric string. Anything that is not a finite positive number is dropped.
func coerceWordLimit(value any) int {
	var parsed float64
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		parsed = v
	case int:
		parsed = float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		parsed = f
	default:
		return 0
	}

	if math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed <= 0 {
		return 0
	}
	return int(parsed)
}

// checkImageRef accepts http(s) URLs as-is and sniffs data URIs to confirm
// the payload really is an image before it is forwarded to the vision
// backend.
func checkImageRef(ref string) error {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return nil
	}
	if !strings.HasPrefix(ref, "data:") {
		return fmt.Errorf("%w: unsupported scheme", ErrInvalidImage)
	}

	comma := strings.IndexByte(ref, ',')
	if comma < 0 || !strings.Contains(ref[:comma], ";base64") {
		return fmt.Errorf("%w: malformed data uri", ErrInvalidImage)
	}

	payload := ref[comma+1:]
	// The first few hundred bytes are enough for magic number detection.
	if len(payload) > 512 {
		payload = payload[:512]
		payload = payload[:len(payload)-len(payload)%4]
	}
	head, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: undecodable data uri", ErrInvalidImage)
	}

	if !strings.HasPrefix(mimetype.Detect(head).String(), "image/") {
		return fmt.Errorf("%w: data uri is not an image", ErrInvalidImage)
	}
	return nil
}
