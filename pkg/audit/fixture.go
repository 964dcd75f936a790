package audit

// ExpectedOutcome is the outcome a FixtureCase asserts the fixture runner's
// matcher must predict.
type ExpectedOutcome string

const (
	ExpectedPass        ExpectedOutcome = "pass"
	ExpectedFail        ExpectedOutcome = "fail"
	ExpectedReviewQueue ExpectedOutcome = "review_queue"
)

// FixtureCase is one fixture-pack test case.
type FixtureCase struct {
	CaseID             string
	Description        string
	InputText          string
	ExpectedOutcome    ExpectedOutcome
	ExpectedReasonCodes []string
	ExpectedFields     map[string]string
	Required           bool
}

// FixturePack is the set of fixture cases bound to one TemplateVersion, plus
// its content hash (computed over case-id-sorted JSON of Cases).
type FixturePack struct {
	PackVersion string
	HashSha256  string
	Cases       []FixtureCase
}
