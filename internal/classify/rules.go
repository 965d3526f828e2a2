package classify

import "regexp"

// Category tags a scoring rule as evidence of completion or of being stuck.
type Category string

const (
	CategoryCompletion Category = "completion"
	CategoryStuck      Category = "stuck"
)

// Rule is one weighted pattern in the scoring table.
type Rule struct {
	Pattern  *regexp.Regexp
	Weight   float64
	Category Category
}

// ScoringRules is the heuristic table folded over by Score. Weights per
// category sum and cap at 1.0.
var ScoringRules = []Rule{
	{regexp.MustCompile(`(?i)\ball (?:\w+ )?tasks?\b[^.\n]*\b(?:complete|completed|done|finished)\b`), 0.40, CategoryCompletion},
	{regexp.MustCompile(`(?i)\bsuccessfully (?:implemented|completed|finished)\b`), 0.30, CategoryCompletion},
	{regexp.MustCompile(`(?i)\bimplementation is (?:now )?complete\b`), 0.40, CategoryCompletion},
	{regexp.MustCompile(`(?i)\b(?:all )?tests? (?:are )?(?:now )?passing\b`), 0.25, CategoryCompletion},
	{regexp.MustCompile(`(?i)\bbuild (?:succeeds|passes|is green)\b`), 0.20, CategoryCompletion},
	{regexp.MustCompile(`(?i)\bnothing (?:left|more|else) to (?:do|implement|fix)\b`), 0.40, CategoryCompletion},
	{regexp.MustCompile(`(?i)\bno (?:further|more|remaining) (?:changes|work|tasks)\b`), 0.35, CategoryCompletion},
	{regexp.MustCompile(`(?i)\bready for (?:review|release|merge)\b`), 0.20, CategoryCompletion},
	{regexp.MustCompile(`(?i)\bchecked off the (?:last|final) (?:task|item)\b`), 0.35, CategoryCompletion},

	{regexp.MustCompile(`(?i)\bsame (?:error|failure)\b[^.\n]*\b(?:again|persists|keeps)\b`), 0.35, CategoryStuck},
	{regexp.MustCompile(`(?i)\b(?:still|keeps?) failing\b`), 0.30, CategoryStuck},
	{regexp.MustCompile(`(?i)\bgoing in circles\b`), 0.40, CategoryStuck},
	{regexp.MustCompile(`(?i)\bi(?: a|')m (?:stuck|lost|out of ideas)\b`), 0.40, CategoryStuck},
	{regexp.MustCompile(`(?i)\bcannot (?:figure out|resolve|determine|reproduce)\b`), 0.30, CategoryStuck},
	{regexp.MustCompile(`(?i)\btried (?:everything|multiple approaches|several approaches)\b`), 0.30, CategoryStuck},
	{regexp.MustCompile(`(?i)\b(?:requires?|needs?) (?:human|manual|user) (?:intervention|input|help)\b`), 0.45, CategoryStuck},
	{regexp.MustCompile(`(?i)\bno (?:way|path) forward\b`), 0.35, CategoryStuck},
	{regexp.MustCompile(`(?i)\brepeated(?:ly)? (?:failed|failing|errors?)\b`), 0.30, CategoryStuck},
	{regexp.MustCompile(`(?i)\bgiving up\b`), 0.40, CategoryStuck},
}

// completionPhrases are legacy markers matched as case-insensitive
// substrings before heuristic scoring runs.
var completionPhrases = []string{
	"all tasks complete",
	"all tasks are complete",
	"implementation complete",
	"everything is done",
	"nothing left to do",
	"no remaining tasks",
	"finished all tasks",
}

// blockedPhrases terminate the run when present. Matched case-insensitively.
var blockedPhrases = []string{
	"cannot proceed",
	"can't proceed",
	"unable to proceed",
	"cannot continue",
	"unable to continue",
	"fatal error",
	"permission denied",
	"rate limit exceeded",
	"usage limit reached",
	"manual intervention required",
	"waiting for user input",
}
