package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// PlanContent is the structured plan produced by the model.
type PlanContent struct {
	ID            string       `json:"id,omitempty"`
	ProjectName   string       `json:"projectName" validate:"required"`
	Description   string       `json:"description" validate:"required"`
	Category      string       `json:"category" validate:"required"`
	Complexity    string       `json:"complexity" validate:"required,oneof=Simple Moderate Complex"`
	Context       *PlanContext `json:"context,omitempty"`
	TechStack     TechStack    `json:"techStack" validate:"required"`
	Architecture  Architecture `json:"architecture" validate:"required"`
	Phases        []Phase      `json:"phases" validate:"required,max=5,dive"`
	LearningPath  LearningPath `json:"learningPath" validate:"required"`
	BestPractices string       `json:"bestPractices" validate:"required"`
	Security      string       `json:"security" validate:"required"`
	Testing       string       `json:"testing" validate:"required"`
	Performance   string       `json:"performance" validate:"required"`
	Risks         []Risk       `json:"risks,omitempty" validate:"max=3,dive"`
	Resources     []Resource   `json:"resources" validate:"required,max=6,dive"`
	Roadmap       Roadmap      `json:"roadmap" validate:"required"`
}

type PlanContext struct {
	TeamSize        string `json:"teamSize" validate:"required"`
	ExperienceLevel string `json:"experienceLevel" validate:"required"`
}

type TechStack struct {
	Frontend   TechChoice `json:"frontend" validate:"required"`
	Backend    TechChoice `json:"backend" validate:"required"`
	Database   TechChoice `json:"database" validate:"required"`
	Deployment TechChoice `json:"deployment" validate:"required"`
	AI         TechChoice `json:"ai" validate:"required"`
}

type TechChoice struct {
	Name             string `json:"name" validate:"required"`
	Reasoning        string `json:"reasoning" validate:"required"`
	Alternatives     string `json:"alternatives" validate:"required"`
	Difficulty       string `json:"difficulty" validate:"required,oneof=Beginner-friendly Intermediate Advanced"`
	KeyBenefits      string `json:"keyBenefits" validate:"required"`
	CommunitySupport string `json:"communitySupport,omitempty"`
	CostCategory     string `json:"costCategory,omitempty" validate:"omitempty,oneof=Free/Open-source Freemium Paid Enterprise"`
}

type Architecture struct {
	Pattern             string `json:"pattern" validate:"required"`
	Description         string `json:"description" validate:"required"`
	IntegrationStrategy string `json:"integrationStrategy,omitempty"`
}

type Phase struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type LearningPath struct {
	Prerequisites string `json:"prerequisites" validate:"required"`
	StudyOrder    string `json:"studyOrder" validate:"required"`
}

type Risk struct {
	Description string `json:"description" validate:"required"`
	Severity    string `json:"severity" validate:"required,oneof=Low Medium High"`
	Mitigation  string `json:"mitigation" validate:"required"`
}

type Resource struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	URL         string `json:"url,omitempty"`
}

type Roadmap struct {
	MustDo   []string `json:"mustDo" validate:"min=10,max=20,dive,required"`
	Optional []string `json:"optional" validate:"required,max=8,dive,required"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func contentValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the content against the plan contract.
func (p *PlanContent) Validate() error {
	if err := contentValidator().Struct(p); err != nil {
		return describeValidation(err)
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

// ParseContent decodes raw model output into the plan shape. Unknown fields
// are tolerated, wrong types are not.
func ParseContent(raw []byte) (*PlanContent, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var p PlanContent
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode plan: trailing data after object")
	}
	return &p, nil
}

// DecodeContent reads a stored document according to the schema version it was
// written with.
func DecodeContent(version int, raw []byte) (*PlanContent, error) {
	switch version {
	case 1:
		return ParseContent(raw)
	default:
		return nil, &UnsupportedSchemaError{Version: version}
	}
}
