package domain

import (
	"encoding/json"
	"time"
)

type Visibility string

const (
	// VisibilityLink rows can be fetched by anyone holding the id.
	VisibilityLink Visibility = "link"
	// VisibilityPrivate rows are only returned to their owner.
	VisibilityPrivate Visibility = "private"
)

func ParseVisibility(s string) (Visibility, bool) {
	switch Visibility(s) {
	case "":
		return VisibilityLink, true
	case VisibilityLink, VisibilityPrivate:
		return Visibility(s), true
	}
	return "", false
}

// CurrentSchemaVersion is stamped on every newly persisted plan.
const CurrentSchemaVersion = 1

// ProjectPlan is one persisted generation result. Rows are immutable after insert.
type ProjectPlan struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	IdeaText      string          `json:"project_idea"`
	Content       json.RawMessage `json:"generated_content"`
	SchemaVersion int             `json:"schema_version"`
	Visibility    Visibility      `json:"visibility"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProjectList is the history payload, also the cached value.
type ProjectList struct {
	Projects []ProjectPlan `json:"projects"`
	Count    int           `json:"count"`
}

func NewProjectList(plans []ProjectPlan) ProjectList {
	if plans == nil {
		plans = []ProjectPlan{}
	}
	return ProjectList{Projects: plans, Count: len(plans)}
}

// GenerationStatus tracks the persistence phase of one generation.
type GenerationStatus string

const (
	StatusPending GenerationStatus = "pending"
	StatusSaved   GenerationStatus = "saved"
	StatusFailed  GenerationStatus = "failed"
	// StatusSkipped means the generation had no session, so nothing was stored.
	StatusSkipped GenerationStatus = "skipped"
)
