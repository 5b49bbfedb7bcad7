package domain

// DecisionStructure is the single-choice architecture graph returned by the
// "let AI decide" flow.
type DecisionStructure struct {
	ProjectName       string           `json:"projectName" validate:"required"`
	Description       string           `json:"description" validate:"required"`
	TechStack         DecisionStack    `json:"techStack" validate:"required"`
	Nodes             []DecisionNode   `json:"nodes" validate:"min=1,dive"`
	Edges             []DecisionEdge   `json:"edges" validate:"dive"`
	Recommendations   DecisionAdvice   `json:"recommendations"`
	EstimatedTimeline DecisionTimeline `json:"estimatedTimeline" validate:"required"`
}

type DecisionStack struct {
	Frontend   []string `json:"frontend" validate:"min=1"`
	Backend    []string `json:"backend" validate:"min=1"`
	Database   []string `json:"database" validate:"min=1"`
	Deployment []string `json:"deployment"`
	Additional []string `json:"additional"`
}

type DecisionNode struct {
	ID       string           `json:"id" validate:"required"`
	Type     string           `json:"type" validate:"required"`
	Data     DecisionNodeData `json:"data" validate:"required"`
	Position NodePosition     `json:"position"`
}

type DecisionNodeData struct {
	Label        string   `json:"label" validate:"required"`
	Description  string   `json:"description"`
	Category     string   `json:"category" validate:"required,oneof=frontend backend database auth deployment external testing monitoring"`
	Technologies []string `json:"technologies"`
	IsCore       bool     `json:"isCore"`
}

type NodePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type DecisionEdge struct {
	ID       string `json:"id" validate:"required"`
	Source   string `json:"source" validate:"required"`
	Target   string `json:"target" validate:"required"`
	Label    string `json:"label,omitempty"`
	Animated bool   `json:"animated,omitempty"`
}

type DecisionAdvice struct {
	BestPractices          []string `json:"bestPractices"`
	SecurityConsiderations []string `json:"securityConsiderations"`
	ScalabilityTips        []string `json:"scalabilityTips"`
	DevelopmentWorkflow    []string `json:"developmentWorkflow"`
}

type DecisionTimeline struct {
	Planning    string `json:"planning" validate:"required"`
	Development string `json:"development" validate:"required"`
	Testing     string `json:"testing" validate:"required"`
	Deployment  string `json:"deployment" validate:"required"`
}

// Validate also checks that every edge connects known nodes.
func (d *DecisionStructure) Validate() error {
	if err := contentValidator().Struct(d); err != nil {
		return describeValidation(err)
	}
	ids := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		ids[n.ID] = struct{}{}
	}
	for _, e := range d.Edges {
		if _, ok := ids[e.Source]; !ok {
			return NewValidationError("edge %s: unknown source node %q", e.ID, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return NewValidationError("edge %s: unknown target node %q", e.ID, e.Target)
		}
	}
	return nil
}
