// Package plantest holds fixtures shared by the plans tests.
package plantest

import (
	"encoding/json"
	"fmt"

	"github.com/stackpilot/stackpilot-backend/internal/plans/domain"
)

const WaterIntakeIdea = "A mobile app for tracking daily water intake with reminders"

func choice(name string) domain.TechChoice {
	return domain.TechChoice{
		Name:         name,
		Reasoning:    name + " fits a small team",
		Alternatives: "several, " + name + " is the simplest",
		Difficulty:   "Intermediate",
		KeyBenefits:  "fast iteration",
		CostCategory: "Free/Open-source",
	}
}

// Content returns a plan that satisfies every validation rule.
func Content(id string) *domain.PlanContent {
	mustDo := make([]string, 12)
	for i := range mustDo {
		mustDo[i] = fmt.Sprintf("step %d", i+1)
	}
	return &domain.PlanContent{
		ID:          id,
		ProjectName: "HydroTrack",
		Description: "Track daily water intake and get reminders",
		Category:    "Health",
		Complexity:  "Simple",
		Context:     &domain.PlanContext{TeamSize: "1-2", ExperienceLevel: "Intermediate"},
		TechStack: domain.TechStack{
			Frontend:   choice("React Native"),
			Backend:    choice("Go"),
			Database:   choice("PostgreSQL"),
			Deployment: choice("Fly.io"),
			AI:         choice("None"),
		},
		Architecture: domain.Architecture{Pattern: "Monolith", Description: "Single API with a mobile client"},
		Phases: []domain.Phase{
			{Name: "MVP", Description: "Logging and reminders"},
			{Name: "Beta", Description: "Streaks and stats"},
			{Name: "Launch", Description: "Store release"},
		},
		LearningPath:  domain.LearningPath{Prerequisites: "JavaScript", StudyOrder: "React Native then Go"},
		BestPractices: "Keep it small",
		Security:      "Use HTTPS",
		Testing:       "Unit tests for reminders",
		Performance:   "Cache daily totals",
		Risks:         []domain.Risk{{Description: "Notification limits", Severity: "Medium", Mitigation: "Use local notifications"}},
		Resources:     []domain.Resource{{Title: "React Native docs", Description: "Official docs", URL: "https://reactnative.dev"}},
		Roadmap:       domain.Roadmap{MustDo: mustDo, Optional: []string{"Apple Health sync"}},
	}
}

// JSON is Content marshalled the way a model would return it.
func JSON(id string) string {
	raw, err := json.Marshal(Content(id))
	if err != nil {
		panic(err)
	}
	return string(raw)
}
