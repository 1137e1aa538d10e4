package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Label vocabularies take precedence over title keywords: maintainers who
// label their work have told us what it is.
var (
	bugfixLabels      = []string{"bug", "bugfix", "fix"}
	featureLabels     = []string{"feature", "enhancement", "new-feature"}
	docsLabels        = []string{"documentation", "docs"}
	maintenanceLabels = []string{"maintenance", "refactor", "cleanup"}

	issueBugLabels      = []string{"bug", "error", "broken"}
	issueFeatureLabels  = []string{"feature", "enhancement", "feature-request"}
	issueQuestionLabels = []string{"question", "help", "support"}

	criticalLabels = []string{"critical", "urgent", "high-priority"}
	highLabels     = []string{"high", "important"}
	mediumLabels   = []string{"medium", "normal"}
	lowLabels      = []string{"low", "minor"}

	breakingLabels = []string{"breaking", "breaking-change", "major"}

	breakingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`breaking\s*change`),
		regexp.MustCompile(`breaking\s*api`),
		regexp.MustCompile(`backwards?\s*incompatible`),
		regexp.MustCompile(`major\s*version`),
		regexp.MustCompile(`removed?\s+deprecated`),
		regexp.MustCompile(`api\s*change`),
	}
)

func hasAnyLabel(labels []string, wanted []string) bool {
	for _, l := range labels {
		ll := strings.ToLower(l)
		for _, w := range wanted {
			if ll == w {
				return true
			}
		}
	}
	return false
}

func hasAnyWord(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// classifyPRType buckets a pull request as feature, bugfix, maintenance or
// docs from its labels, falling back to title keywords.
func classifyPRType(title string, labels []string) string {
	switch {
	case hasAnyLabel(labels, bugfixLabels):
		return "bugfix"
	case hasAnyLabel(labels, featureLabels):
		return "feature"
	case hasAnyLabel(labels, docsLabels):
		return "docs"
	case hasAnyLabel(labels, maintenanceLabels):
		return "maintenance"
	}

	t := strings.ToLower(title)
	switch {
	case hasAnyWord(t, []string{"fix", "bug", "patch", "hotfix"}):
		return "bugfix"
	case hasAnyWord(t, []string{"add", "feature", "implement", "new"}):
		return "feature"
	case hasAnyWord(t, []string{"doc", "readme", "documentation"}):
		return "docs"
	case hasAnyWord(t, []string{"refactor", "cleanup", "maintenance", "update"}):
		return "maintenance"
	}
	return "feature"
}

// classifyIssueType buckets an issue as bug, feature, question or
// documentation. Unclassifiable issues default to question.
func classifyIssueType(title string, labels []string) string {
	switch {
	case hasAnyLabel(labels, issueBugLabels):
		return "bug"
	case hasAnyLabel(labels, issueFeatureLabels):
		return "feature"
	case hasAnyLabel(labels, issueQuestionLabels):
		return "question"
	case hasAnyLabel(labels, docsLabels):
		return "documentation"
	}

	t := strings.ToLower(title)
	switch {
	case hasAnyWord(t, []string{"bug", "error", "broken", "issue", "problem"}):
		return "bug"
	case hasAnyWord(t, []string{"feature", "request", "add", "implement"}):
		return "feature"
	case hasAnyWord(t, []string{"how", "question", "?"}):
		return "question"
	case hasAnyWord(t, []string{"doc", "documentation", "readme"}):
		return "documentation"
	}
	return "question"
}

// priorityFromLabels maps priority labels to a fixed scale, defaulting to
// medium when no priority label is present.
func priorityFromLabels(labels []string) string {
	switch {
	case hasAnyLabel(labels, criticalLabels):
		return "critical"
	case hasAnyLabel(labels, highLabels):
		return "high"
	case hasAnyLabel(labels, mediumLabels):
		return "medium"
	case hasAnyLabel(labels, lowLabels):
		return "low"
	}
	return "medium"
}

// isBreakingChange reports whether a change advertises itself as breaking,
// either by label or by conventional phrases in the title/body.
func isBreakingChange(title, body string, labels []string) bool {
	if hasAnyLabel(labels, breakingLabels) {
		return true
	}
	text := strings.ToLower(title + " " + body)
	for _, p := range breakingPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// numberFromURL extracts the trailing item number from an API URL such as
// .../issues/123 or .../pulls/123. Returns 0 when no number is present.
func numberFromURL(url string) int {
	if url == "" {
		return 0
	}
	idx := strings.LastIndex(url, "/")
	if idx < 0 || idx == len(url)-1 {
		return 0
	}
	n, err := strconv.Atoi(url[idx+1:])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// parentKindFromHTMLURL classifies a comment's parent from its web URL,
// which uses /pull/ for pull requests and /issues/ for issues.
func parentKindFromHTMLURL(url string) string {
	if strings.Contains(url, "/pull/") {
		return "pull_request"
	}
	return "issue"
}
