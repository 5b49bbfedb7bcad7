// Package prompt builds the model instructions for plan generation, idea
// classification and the single-choice architecture flow.
package prompt

import (
	"fmt"
	"strings"
)

// System is the system instruction shared by plan generation calls.
const System = "You are a senior software architect and mentor. You recommend practical, " +
	"production-ready technology stacks and realistic roadmaps, and you always answer " +
	"with a single JSON object that follows the provided schema exactly."

// Build returns the plan generation prompt. The id is embedded verbatim so the
// model echoes it in its output.
func Build(idea, id string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a complete technology stack recommendation and implementation roadmap for the project idea below.\n\n")
	fmt.Fprintf(&b, "Project idea: %q\n\n", idea)
	fmt.Fprintf(&b, "Set the \"id\" field of your answer to exactly %q. Do not change or invent an id.\n\n", id)
	b.WriteString(`Include every section below:

1. Basic info: projectName, description, category, and complexity (one of Simple, Moderate, Complex).
2. Context: teamSize and experienceLevel the plan assumes.
3. techStack with exactly five categories: frontend, backend, database, deployment and ai.
   For each give name, reasoning, alternatives, difficulty (Beginner-friendly, Intermediate or Advanced)
   and keyBenefits. Optionally add communitySupport and costCategory (Free/Open-source, Freemium, Paid or Enterprise).
   If the project needs no AI, recommend the simplest useful option and say so in the reasoning.
4. architecture: pattern, description and integrationStrategy.
5. phases: 3 to 5 development phases, each with name and description.
6. learningPath: prerequisites and studyOrder.
7. bestPractices, security, testing and performance as short narrative paragraphs.
8. risks: up to 3 risks, each with description, severity (Low, Medium or High) and mitigation.
9. resources: up to 6 official documentation resources with title, description and url.
10. roadmap: mustDo with 10 to 20 ordered mandatory steps, and optional with up to 8 enhancements.

Prefer widely adopted, well documented technologies that work well together. Keep reasoning specific to this idea.`)
	return b.String()
}

// Classify returns the yes/no prompt that decides whether an input describes
// a software project.
func Classify(idea string) string {
	return fmt.Sprintf(`Decide whether the following text describes a software project idea that a developer could build.

Text: %q

Answer "yes" if it describes an application, website, service, tool, game or similar software project, even briefly.
Answer "no" if it is gibberish, a greeting, a question unrelated to building software, or harmful.
Reply with "yes" or "no" on the first line, then one short sentence explaining the decision.`, idea)
}

// Decide returns the prompt for the decisive single-choice architecture graph.
func Decide(idea string) string {
	return fmt.Sprintf(`You are an expert software architect with decisive authority. The user asked you to decide the stack for them.

Project idea: %q

Rules:
- Decide, do not suggest. Choose ONE specific named technology per category.
- Do not list alternatives. Choices must work well together and be production ready.

Tasks:
1. Analyse the requirements and fill techStack with the chosen technologies.
2. Produce nodes and edges describing the architecture. Node data.category is one of
   frontend, backend, database, auth, deployment, external, testing, monitoring.
   Every edge source and target must be an existing node id.
3. Place nodes on a canvas: frontend x 100-300 y 50-200, backend x 400-600 y 50-200,
   database x 700-900 y 50-200, auth x 200-400 y 250-350, external x 500-700 y 250-350,
   deployment x 100-300 y 400-500, testing x 400-600 y 400-500, monitoring x 700-900 y 400-500.
4. Add recommendations and an estimatedTimeline for planning, development, testing and deployment.`, idea)
}

// ParseClassification reads the model's yes/no answer. Anything that does not
// start with yes is a rejection.
func ParseClassification(answer string) (bool, string) {
	answer = strings.TrimSpace(answer)
	first, rest, _ := strings.Cut(answer, "\n")
	first = strings.ToLower(strings.Trim(strings.TrimSpace(first), ".!\"'*"))

	valid := first == "yes" || strings.HasPrefix(first, "yes,") || strings.HasPrefix(first, "yes ")
	msg := strings.TrimSpace(rest)
	if msg == "" {
		// Single-line answers such as "Yes, this is a web app."
		if _, after, ok := strings.Cut(answer, " "); ok {
			msg = strings.TrimSpace(after)
		}
	}
	if msg == "" {
		if valid {
			msg = "Looks like a buildable project idea."
		} else {
			msg = "This does not look like a software project idea. Please describe what you want to build."
		}
	}
	return valid, msg
}
