package categorize

import "strings"

// Category is one label of the fixed taxonomy.
type Category struct {
	Name string
	Hint string
}

// CategoryNew is the catch-all label for papers that fit no fixed category.
const CategoryNew = "new category"

// Categories is the fixed taxonomy in reporting order.
var Categories = []Category{
	{"code generation", "produces executable code or scaffolding directly from natural language or specifications"},
	{"code translation", "converts code between languages, frameworks, or versions"},
	{"code repair", "generates patches or fix suggestions automatically (APR and similar)"},
	{"code understanding", "explains or summarizes code intent and behavior, semantic understanding"},
	{"code optimization", "improves performance, resource use, or readability"},
	{"test case generation", "generates unit or integration tests and assertions"},
	{"code completion", "context-based completion or fill-in-the-middle in editors and IDEs"},
	{"code suggestion", "style, security, or refactoring advice without editing the code"},
	{"requirements to code", "turns requirements or specifications into designs, interfaces, or task breakdowns"},
	{"fault localization", "locates faults or defects precisely (SBFL and similar)"},
	{"commit message generation", "generates commit messages from changes or diffs"},
	{"code question answering", "answers questions about code, libraries, or APIs"},
	{"counterexample creation", "reproduces issues, builds PoCs, adversarial inputs, or counterexamples"},
	{"data science tasks", "data cleaning, feature engineering, modeling, or visualization as code"},
	{"error identification", "detects errors and classifies their type"},
	{"code search", "retrieves functions, APIs, or snippets by meaning or keywords"},
}

// Names returns the fixed category names followed by CategoryNew.
func Names() []string {
	names := make([]string, 0, len(Categories)+1)
	for _, c := range Categories {
		names = append(names, c.Name)
	}

	return append(names, CategoryNew)
}

// Normalize maps a model label to a taxonomy name, ignoring case and
// surrounding space. Anything unknown becomes CategoryNew.
func Normalize(label string) string {
	label = strings.TrimSpace(label)

	for _, c := range Categories {
		if strings.EqualFold(c.Name, label) {
			return c.Name
		}
	}

	return CategoryNew
}
