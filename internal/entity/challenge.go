package entity

type ChallengeStatus string

const (
	StatusInProgress ChallengeStatus = "inprogress"
	StatusComplete   ChallengeStatus = "complete"
)

// SupportedLanguages is every language a progress record keeps a slot for.
var SupportedLanguages = []string{"java", "C++", "python"}

// Boilerplates are shown when a code slot is still empty.
var Boilerplates = map[string]string{
	"java":   "public class Runner {\n  public static void main(String[] args) {\n    \n  }\n}\n",
	"C++":    "int main() {\n  return 0;\n}\n",
	"python": "\n",
}

func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

type TestCases struct {
	Inputs  string `json:"inputs"`
	Outputs string `json:"outputs"`
}

type Challenge struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Languages   []string          `json:"languages"`
	Boilerplate map[string]string `json:"boilerplate"`
	TestCases   TestCases         `json:"testCases"`
	Amount      int               `json:"amount"`
}

func (c Challenge) SupportsLanguage(lang string) bool {
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// BoilerplateFor prefers the challenge's own starter code.
func (c Challenge) BoilerplateFor(lang string) string {
	if code, ok := c.Boilerplate[lang]; ok && code != "" {
		return code
	}
	return Boilerplates[lang]
}

// ChallengeProgress is users/{uid}/challenges/{challengeID}.
type ChallengeProgress struct {
	ID     string            `json:"id"`
	Status ChallengeStatus   `json:"status"`
	Code   map[string]string `json:"code"`
}

// NewChallengeProgress is the only default a progress record is created with.
func NewChallengeProgress(id string) ChallengeProgress {
	code := make(map[string]string, len(SupportedLanguages))
	for _, lang := range SupportedLanguages {
		code[lang] = ""
	}
	return ChallengeProgress{
		ID:     id,
		Status: StatusInProgress,
		Code:   code,
	}
}

func (p ChallengeProgress) Complete() bool {
	return p.Status == StatusComplete
}

// TestResult is one judged test case.
type TestResult struct {
	Success bool   `json:"success"`
	Test    string `json:"test"`
	Output  string `json:"output"`
}

// AllPassed is false for an empty run.
func AllPassed(results []TestResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}
