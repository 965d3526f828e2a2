package git

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CommitType represents the type prefix for conventional commits.
type CommitType string

// Supported commit types following conventional commits specification.
const (
	// CommitTypeFeat indicates a new feature.
	CommitTypeFeat CommitType = "feat"

	// CommitTypeFix indicates a bug fix.
	CommitTypeFix CommitType = "fix"

	// CommitTypeChore indicates maintenance or other changes.
	CommitTypeChore CommitType = "chore"

	// CommitTypeDocs indicates documentation-only changes.
	CommitTypeDocs CommitType = "docs"

	// CommitTypeTest indicates test-only changes.
	CommitTypeTest CommitType = "test"
)

// validCommitTypes contains all supported commit types for validation.
var validCommitTypes = map[CommitType]bool{
	CommitTypeFeat:  true,
	CommitTypeFix:   true,
	CommitTypeChore: true,
	CommitTypeDocs:  true,
	CommitTypeTest:  true,
}

// String returns the string representation of the commit type.
func (ct CommitType) String() string {
	return string(ct)
}

// IsValid returns true if the commit type is a supported value.
func (ct CommitType) IsValid() bool {
	return validCommitTypes[ct]
}

// featKeywords are keywords that indicate a feat commit type.
var featKeywords = []string{
	"add",
	"implement",
	"create",
	"new",
	"build",
}

// fixKeywords are keywords that indicate a fix commit type.
var fixKeywords = []string{
	"fix",
	"repair",
	"resolve",
	"correct",
}

// choreKeywords are keywords that indicate a chore commit type.
var choreKeywords = []string{
	"update",
	"refactor",
	"clean",
	"remove",
	"rename",
	"move",
}

// InferCommitType analyzes the task title and returns an appropriate
// CommitType based on its leading keyword. Defaults to chore.
func InferCommitType(title string) CommitType {
	titleLower := strings.ToLower(title)

	for _, keyword := range featKeywords {
		if strings.HasPrefix(titleLower, keyword+" ") || strings.HasPrefix(titleLower, keyword+":") {
			return CommitTypeFeat
		}
	}

	for _, keyword := range fixKeywords {
		if strings.HasPrefix(titleLower, keyword+" ") || strings.HasPrefix(titleLower, keyword+":") {
			return CommitTypeFix
		}
	}

	for _, keyword := range choreKeywords {
		if strings.HasPrefix(titleLower, keyword+" ") || strings.HasPrefix(titleLower, keyword+":") {
			return CommitTypeChore
		}
	}

	return CommitTypeChore
}

// InferCommitTypeFromFiles classifies a change by the kinds of files it
// touched: documentation-only changes are docs, test-only changes are test,
// anything else is chore.
func InferCommitTypeFromFiles(files []string) CommitType {
	if len(files) == 0 {
		return CommitTypeChore
	}

	allDocs := true
	allTests := true
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		if ext != ".md" && ext != ".rst" && ext != ".txt" {
			allDocs = false
		}
		if !strings.HasSuffix(f, "_test.go") {
			allTests = false
		}
	}

	if allDocs {
		return CommitTypeDocs
	}
	if allTests {
		return CommitTypeTest
	}
	return CommitTypeChore
}

// FormatCommitMessage builds the commit message for an automated round
// commit. With a task title the type is inferred from the title; otherwise
// the subject summarizes the changed files and the type is inferred from
// their kinds. The body records the round number.
// Format: "<type>: <subject>\n\nDrover round <n>".
func FormatCommitMessage(taskTitle string, round int, changedFiles []string) string {
	var commitType CommitType
	var subject string

	if taskTitle != "" {
		commitType = InferCommitType(taskTitle)
		subject = taskTitle
	} else {
		commitType = InferCommitTypeFromFiles(changedFiles)
		subject = summarizeFiles(changedFiles)
	}

	header := fmt.Sprintf("%s: %s", commitType, subject)
	if round <= 0 {
		return header
	}
	return fmt.Sprintf("%s\n\nDrover round %d", header, round)
}

// summarizeFiles produces a short subject for a taskless commit.
func summarizeFiles(files []string) string {
	switch len(files) {
	case 0:
		return "update working tree"
	case 1:
		return "update " + filepath.Base(files[0])
	default:
		return fmt.Sprintf("update %d files", len(files))
	}
}

// ParseConventionalCommit parses a conventional commit message and returns
// the commit type, subject, and body. Returns empty values if the message
// doesn't follow the conventional commit format.
func ParseConventionalCommit(message string) (commitType CommitType, subject, body string) {
	if message == "" {
		return "", "", ""
	}

	lines := strings.SplitN(message, "\n", 2)
	firstLine := lines[0]

	typeStr, subjectStr, found := strings.Cut(firstLine, ":")
	if !found {
		return "", "", ""
	}

	typeStr = strings.TrimSpace(typeStr)
	subject = strings.TrimSpace(subjectStr)

	ct := CommitType(typeStr)
	if !ct.IsValid() {
		return "", "", ""
	}

	if len(lines) > 1 {
		body = strings.TrimPrefix(lines[1], "\n")
	}

	return ct, subject, body
}

// ValidateCommitMessage validates that a commit message follows the
// conventional commit format with a supported type.
func ValidateCommitMessage(message string) error {
	if message == "" {
		return fmt.Errorf("commit message is empty")
	}

	lines := strings.SplitN(message, "\n", 2)
	firstLine := lines[0]

	typeStr, subjectStr, found := strings.Cut(firstLine, ":")
	if !found {
		return fmt.Errorf("commit message missing colon separator")
	}

	typeStr = strings.TrimSpace(typeStr)
	if typeStr == "" {
		return fmt.Errorf("commit message missing type prefix")
	}

	ct := CommitType(typeStr)
	if !ct.IsValid() {
		return fmt.Errorf("commit message has unknown type: %q", typeStr)
	}

	subject := strings.TrimSpace(subjectStr)
	if subject == "" {
		return fmt.Errorf("commit message has empty subject")
	}

	return nil
}
