package prompt

import (
	"fmt"
	"strings"
)

// feedbackSection is one command block inside validation feedback.
type feedbackSection struct {
	header string
	body   string
}

// CompressFeedback bounds validation feedback to a character budget. Section
// headers survive ahead of bodies: headers are kept in order up to half the
// budget, the rest is split evenly across the kept bodies, and a
// "[N more sections omitted]" marker records anything dropped. Feedback that
// already fits is returned untouched.
func CompressFeedback(s string, budget int) string {
	if budget <= 0 || len(s) <= budget {
		return s
	}

	secs := splitFeedbackSections(s)
	if len(secs) <= 1 {
		return TruncateBytes(s, budget)
	}

	kept := 0
	used := 0
	for _, sec := range secs {
		need := len(sec.header) + 1
		if used+need > budget/2 {
			break
		}
		used += need
		kept++
	}
	if kept == 0 {
		// The first header always survives, even oversized.
		kept = 1
		used = len(secs[0].header) + 1
	}

	marker := ""
	if omitted := len(secs) - kept; omitted > 0 {
		marker = fmt.Sprintf("[%d more sections omitted]", omitted)
	}

	remaining := budget - used - len(marker)
	if remaining < 0 {
		remaining = 0
	}
	bodyBudget := remaining/kept - 1

	var b strings.Builder
	for i := 0; i < kept; i++ {
		if secs[i].header != "" {
			b.WriteString(secs[i].header)
			b.WriteString("\n")
		}
		body := strings.TrimRight(secs[i].body, "\n")
		if body != "" && bodyBudget > len(TruncationMarker)+1 {
			b.WriteString(TruncateBytes(body, bodyBudget))
			b.WriteString("\n")
		}
	}
	b.WriteString(marker)

	return strings.TrimRight(b.String(), "\n")
}

// splitFeedbackSections groups feedback lines under their "Command:" or
// markdown headers. Leading text before any header forms a headerless
// section.
func splitFeedbackSections(s string) []feedbackSection {
	var secs []feedbackSection
	var cur *feedbackSection

	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "Command:") || strings.HasPrefix(line, "### ") {
			if cur != nil {
				secs = append(secs, *cur)
			}
			cur = &feedbackSection{header: line}
			continue
		}
		if cur == nil {
			cur = &feedbackSection{}
		}
		cur.body += line + "\n"
	}
	if cur != nil {
		secs = append(secs, *cur)
	}
	return secs
}
