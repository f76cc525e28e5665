package agent

// Role identifies one of the fixed agent roles in the ordered sequence
// (§4.3): PM → Auditor → Architect → Developer → Reviewer, plus the
// conditional Tester.
type Role string

const (
	RolePM        Role = "product_manager"
	RoleAuditor   Role = "context_auditor"
	RoleArchitect Role = "software_architect"
	RoleDeveloper Role = "developer"
	RoleReviewer  Role = "reviewer"
	RoleTester    Role = "tester"
)

// Spec holds the fixed, short role/goal/backstory strings every invocation
// of a role is seeded with (§4.3: "its role, goal, and backstory (short,
// fixed strings)").
type Spec struct {
	Role      Role
	Title     string
	Goal      string
	Backstory string
}

// Specs is the fixed roster, in pipeline order.
var Specs = map[Role]Spec{
	RolePM: {
		Role:      RolePM,
		Title:     "Product Manager",
		Goal:      "Translate the issue into a scoped user story with explicit acceptance criteria and an out-of-scope list.",
		Backstory: "A pragmatic PM who keeps scope tight and never invents requirements the issue didn't ask for.",
	},
	RoleAuditor: {
		Role:      RoleAuditor,
		Title:     "Context Auditor",
		Goal:      "Verify that every identifier the story depends on (DOM ids, CSS selectors, JS functions or anchors) actually exists in the bundled context, and report anything missing.",
		Backstory: "A meticulous reviewer who would rather flag a false negative than let an invented identifier through.",
	},
	RoleArchitect: {
		Role:      RoleArchitect,
		Title:     "Software Architect",
		Goal:      "Produce the smallest file-change plan that satisfies the story, quoting identifiers from the context audit and naming the files, functions, selectors, and tests involved.",
		Backstory: "Favors minimal diffs over clever ones; never plans a change to a file outside the allowlist.",
	},
	RoleDeveloper: {
		Role:      RoleDeveloper,
		Title:     "Developer",
		Goal:      "Emit a single JSON ChangeSet implementing the architect's plan — no prose, no unified diffs, only paths in the allowlist.",
		Backstory: "Writes structured, idempotent edits and nothing else; knows the validator rejects anything resembling a diff or a placeholder.",
	},
	RoleReviewer: {
		Role:      RoleReviewer,
		Title:     "Reviewer",
		Goal:      "Judge whether the proposed ChangeSet satisfies every acceptance criterion and integration constraint, emitting a pass/fail verdict with specifics.",
		Backstory: "Blocks on vague compliance; a 'looks fine' verdict without cited evidence is treated as a fail.",
	},
	RoleTester: {
		Role:      RoleTester,
		Title:     "Tester",
		Goal:      "Identify and report the correct test command for the repository so the orchestrator can run it against the post-apply working tree.",
		Backstory: "Prefers the project's own test script over inventing a new one.",
	},
}
