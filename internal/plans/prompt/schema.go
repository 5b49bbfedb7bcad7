package prompt

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func enum(desc string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "enum": values}
}

func strList(desc string, min, max int) map[string]any {
	s := map[string]any{"type": "array", "description": desc, "items": map[string]any{"type": "string"}}
	if min > 0 {
		s["minItems"] = min
	}
	if max > 0 {
		s["maxItems"] = max
	}
	return s
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func list(item map[string]any, max int) map[string]any {
	return map[string]any{"type": "array", "items": item, "maxItems": max}
}

func techChoice(category string) map[string]any {
	return object(map[string]any{
		"name":             str("The single recommended " + category + " technology."),
		"reasoning":        str("Why this choice fits the project."),
		"alternatives":     str("Alternatives considered and why this one was preferred."),
		"difficulty":       enum("Learning difficulty.", "Beginner-friendly", "Intermediate", "Advanced"),
		"keyBenefits":      str("Key benefits for this project."),
		"communitySupport": str("Size and health of the community."),
		"costCategory":     enum("Cost model.", "Free/Open-source", "Freemium", "Paid", "Enterprise"),
	}, "name", "reasoning", "alternatives", "difficulty", "keyBenefits")
}

// ContentSchema is the JSON schema of a plan. The required lists mirror the
// validate tags on domain.PlanContent.
func ContentSchema() map[string]any {
	return object(map[string]any{
		"id":          str("The plan identifier given in the instructions, copied verbatim."),
		"projectName": str("A short, marketable project name."),
		"description": str("What the project does and for whom."),
		"category":    str("Project category, e.g. Health, E-commerce, Developer tooling."),
		"complexity":  enum("Overall complexity.", "Simple", "Moderate", "Complex"),
		"context": object(map[string]any{
			"teamSize":        str("Recommended team size."),
			"experienceLevel": str("Experience level the plan assumes."),
		}, "teamSize", "experienceLevel"),
		"techStack": object(map[string]any{
			"frontend":   techChoice("frontend"),
			"backend":    techChoice("backend"),
			"database":   techChoice("database"),
			"deployment": techChoice("deployment"),
			"ai":         techChoice("AI/ML"),
		}, "frontend", "backend", "database", "deployment", "ai"),
		"architecture": object(map[string]any{
			"pattern":             str("Architectural pattern."),
			"description":         str("How the pieces fit together."),
			"integrationStrategy": str("How components and services integrate."),
		}, "pattern", "description"),
		"phases": list(object(map[string]any{
			"name":        str("Phase name."),
			"description": str("What the phase delivers."),
		}, "name", "description"), 5),
		"learningPath": object(map[string]any{
			"prerequisites": str("What to know before starting."),
			"studyOrder":    str("Order in which to learn the chosen technologies."),
		}, "prerequisites", "studyOrder"),
		"bestPractices": str("Development best practices."),
		"security":      str("Security recommendations."),
		"testing":       str("Testing strategy."),
		"performance":   str("Performance recommendations."),
		"risks": list(object(map[string]any{
			"description": str("The risk."),
			"severity":    enum("Severity.", "Low", "Medium", "High"),
			"mitigation":  str("How to mitigate it."),
		}, "description", "severity", "mitigation"), 3),
		"resources": list(object(map[string]any{
			"title":       str("Resource title."),
			"description": str("Why it helps."),
			"url":         str("Official documentation URL."),
		}, "title", "description"), 6),
		"roadmap": object(map[string]any{
			"mustDo":   strList("Mandatory implementation steps in order.", 10, 20),
			"optional": strList("Optional enhancements.", 0, 8),
		}, "mustDo", "optional"),
	},
		"projectName", "description", "category", "complexity", "techStack", "architecture",
		"phases", "learningPath", "bestPractices", "security", "testing", "performance",
		"resources", "roadmap",
	)
}

// DecisionSchema is the JSON schema of the single-choice architecture graph.
func DecisionSchema() map[string]any {
	stack := func(desc string) map[string]any { return strList(desc, 0, 0) }
	return object(map[string]any{
		"projectName": str("Project name."),
		"description": str("Short project description."),
		"techStack": object(map[string]any{
			"frontend":   stack("Exactly the chosen frontend technologies."),
			"backend":    stack("Exactly the chosen backend technology."),
			"database":   stack("Exactly the chosen database."),
			"deployment": stack("Hosting and CI/CD choices."),
			"additional": stack("Other chosen services."),
		}, "frontend", "backend", "database", "deployment", "additional"),
		"nodes": map[string]any{"type": "array", "items": object(map[string]any{
			"id":   str("Unique node id."),
			"type": str("Node type, usually default."),
			"data": object(map[string]any{
				"label":        str("Display label."),
				"description":  str("What this component does."),
				"category":     enum("Component category.", "frontend", "backend", "database", "auth", "deployment", "external", "testing", "monitoring"),
				"technologies": strList("Technologies used by the component.", 0, 0),
				"isCore":       map[string]any{"type": "boolean"},
			}, "label", "description", "category", "technologies", "isCore"),
			"position": object(map[string]any{
				"x": map[string]any{"type": "number"},
				"y": map[string]any{"type": "number"},
			}, "x", "y"),
		}, "id", "type", "data", "position")},
		"edges": map[string]any{"type": "array", "items": object(map[string]any{
			"id":       str("Unique edge id."),
			"source":   str("Source node id."),
			"target":   str("Target node id."),
			"label":    str("Edge label."),
			"animated": map[string]any{"type": "boolean"},
		}, "id", "source", "target")},
		"recommendations": object(map[string]any{
			"bestPractices":          stack("Best practices."),
			"securityConsiderations": stack("Security considerations."),
			"scalabilityTips":        stack("Scalability tips."),
			"developmentWorkflow":    stack("Development workflow."),
		}, "bestPractices", "securityConsiderations", "scalabilityTips", "developmentWorkflow"),
		"estimatedTimeline": object(map[string]any{
			"planning":    str("Planning duration."),
			"development": str("Development duration."),
			"testing":     str("Testing duration."),
			"deployment":  str("Deployment duration."),
		}, "planning", "development", "testing", "deployment"),
	}, "projectName", "description", "techStack", "nodes", "edges", "recommendations", "estimatedTimeline")
}
