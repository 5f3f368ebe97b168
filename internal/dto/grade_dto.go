package dto

// GradeRequest is the inbound JSON body for a grading call. Image references
// are data URIs or fetchable URLs. Image is the legacy singular field kept
// for older clients; when present it is treated as the first answer image.
// WordLimit is left untyped because clients send it as either a number or a
// numeric string; the normalizer owns the coercion.
type GradeRequest struct {
	Topic          string   `json:"topic" validate:"omitempty,max=500"`
	Material       string   `json:"material"`
	MaterialImages []string `json:"materialImages" validate:"omitempty,dive,required"`
	Text           string   `json:"text"`
	Image          string   `json:"image"`
	Images         []string `json:"images" validate:"omitempty,dive,required"`
	WordLimit      any      `json:"wordLimit"`
}

// Dimension is one scored rubric dimension of the grading report.
// The value key is "A" on the wire; the radar chart consumers expect the
// historical recharts field name.
type Dimension struct {
	Subject  string  `json:"subject"`
	Score    float64 `json:"A"`
	FullMark float64 `json:"fullMark"`
}

// CommentTypePositive and CommentTypeNegative are the two allowed comment
// kinds; a well-formed result carries exactly one of each.
const (
	CommentTypePositive = "positive"
	CommentTypeNegative = "negative"
)

// GradeComment is one qualitative comment block.
type GradeComment struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Annotation ties a remark to a quoted span of the submitted answer.
type Annotation struct {
	OriginalText string `json:"originalText"`
	Comment      string `json:"comment"`
}

// ChecklistItem is one row of the material point coverage table.
type ChecklistItem struct {
	MaterialPoint string `json:"materialPoint"`
	Covered       bool   `json:"covered"`
	Reason        string `json:"reason"`
}

// GradingResult is the structured grading report recovered from the model
// reply. Annotations, PointChecklist and ReportMarkdown are optional;
// consumers must treat their absence as "not available", not as an error.
type GradingResult struct {
	TotalScore     int             `json:"totalScore"`
	RankPercentile int             `json:"rankPercentile"`
	Dimensions     []Dimension     `json:"dimensions"`
	Comments       []GradeComment  `json:"comments"`
	Advice         string          `json:"advice"`
	Annotations    []Annotation    `json:"annotations,omitempty"`
	PointChecklist []ChecklistItem `json:"pointChecklist,omitempty"`
	ReportMarkdown string          `json:"reportMarkdown,omitempty"`
}

// ProgressEvent is one incremental status update pushed to streaming
// clients while a grading call runs.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// StreamError is the terminal error payload of a streaming call.
type StreamError struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Status  int    `json:"status,omitempty"`
}
