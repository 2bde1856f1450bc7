package parser

import (
	"regexp"
	"strings"

	"github.com/samber/mo"

	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

var (
	pullRequestURLRegex = regexp.MustCompile(`(?i)https?://(?:www\.)?github\.com/([\w.-]+)/([\w.-]+)/pull/(\d+)`)
	anyURLRegex         = regexp.MustCompile(`https?://\S+`)

	conflictRegex = regexp.MustCompile(`(?i)\bconflict(?:s|ing|ed)?\b|\bmerge\s+(?:issues?|problems?|errors?)\b|\brebase\b`)

	qaVerbRegex     = regexp.MustCompile(`(?i)\bqa\b`)
	reviewVerbRegex = regexp.MustCompile(`(?i)\breview\b`)
	runVerbRegex    = regexp.MustCompile(`(?i)\brun\b`)

	onHintRegex = regexp.MustCompile(`(?i)\bon\s+([A-Za-z0-9][\w.-]*)`)

	verbHintRegexes = map[models.JobKind]*regexp.Regexp{
		models.JobKindRun:    regexp.MustCompile(`(?i)\brun\s+([A-Za-z0-9][\w.-]*)`),
		models.JobKindReview: regexp.MustCompile(`(?i)\breview\s+([A-Za-z0-9][\w.-]*)`),
		models.JobKindQA:     regexp.MustCompile(`(?i)\bqa\s+([A-Za-z0-9][\w.-]*)`),
	}
)

var hintStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "my": true, "our": true, "your": true, "their": true, "his": true, "her": true,
	"me": true, "us": true, "them": true, "and": true, "or": true, "of": true, "for": true, "to": true,
	"with": true, "from": true, "in": true, "at": true, "by": true, "on": true, "now": true,
	"please": true, "pls": true, "asap": true, "again": true, "today": true, "tonight": true,
	"tomorrow": true, "here": true, "there": true, "pr": true, "prs": true, "pull": true,
	"run": true, "review": true, "qa": true, "job": true, "jobs": true, "all": true, "some": true,
	"something": true, "everything": true, "up": true, "quick": true, "quickly": true, "first": true,
	"then": true, "fix": true, "merge": true, "conflicts": true, "changes": true, "code": true,
	"tests": true, "test": true, "can": true, "you": true, "someone": true, "real": true, "once": true,
	"too": true, "also": true, "next": true, "last": true, "branch": true,
}

// pullRequestRef is a parsed github pull request URL
type pullRequestRef struct {
	Owner  string
	Repo   string
	Number string
}

func findPullRequestRef(clean string) mo.Option[pullRequestRef] {
	m := pullRequestURLRegex.FindStringSubmatch(clean)
	if m == nil {
		return mo.None[pullRequestRef]()
	}
	return mo.Some(pullRequestRef{Owner: m[1], Repo: m[2], Number: m[3]})
}

// stripURLs removes URLs so that words inside them are never read as verbs or hints
func stripURLs(clean string) string {
	return anyURLRegex.ReplaceAllString(clean, " ")
}

func isHintCandidate(token string) bool {
	token = stripTrailingPunctuation(token)
	if token == "" || hintStopWords[strings.ToLower(token)] {
		return false
	}
	return true
}

// hintAfterOn returns the first non stop word that follows "on"
func hintAfterOn(prose string) string {
	for _, m := range onHintRegex.FindAllStringSubmatch(prose, -1) {
		if isHintCandidate(m[1]) {
			return stripTrailingPunctuation(m[1])
		}
	}
	return ""
}

// hintAfterVerb returns the token directly following the verb, if it looks like a project
func hintAfterVerb(prose string, verb models.JobKind) string {
	re, ok := verbHintRegexes[verb]
	if !ok {
		return ""
	}
	for _, m := range re.FindAllStringSubmatch(prose, -1) {
		if isHintCandidate(m[1]) {
			return stripTrailingPunctuation(m[1])
		}
	}
	return ""
}

// detectJobVerb picks the most specific verb present: qa, then review, then run
func detectJobVerb(prose string) mo.Option[models.JobKind] {
	switch {
	case qaVerbRegex.MatchString(prose):
		return mo.Some(models.JobKindQA)
	case reviewVerbRegex.MatchString(prose):
		return mo.Some(models.JobKindReview)
	case runVerbRegex.MatchString(prose):
		return mo.Some(models.JobKindRun)
	}
	return mo.None[models.JobKind]()
}

// HasConflictLanguage reports whether text talks about merge conflicts
func HasConflictLanguage(text string) bool {
	return conflictRegex.MatchString(stripURLs(normalize(text)))
}

// ParseJobRequest recognizes run/review/qa requests.
//
// Project hint precedence: "on <project>", then the repository of a PR URL,
// then the token right after the verb. A PR link or conflict language without
// an explicit verb is read as a review.
func ParseJobRequest(text string) mo.Option[models.JobRequest] {
	clean := normalize(text)
	prose := stripURLs(clean)

	pr := findPullRequestRef(clean)
	fixConflicts := conflictRegex.MatchString(prose)

	verb, hasVerb := detectJobVerb(prose).Get()
	if !hasVerb {
		if !pr.IsPresent() && !fixConflicts {
			return mo.None[models.JobRequest]()
		}
		verb = models.JobKindReview
	}

	request := models.JobRequest{
		Job:          verb,
		FixConflicts: fixConflicts,
	}

	if ref, ok := pr.Get(); ok {
		request.PRNumber = ref.Number
	}

	switch {
	case hintAfterOn(prose) != "":
		request.ProjectHint = hintAfterOn(prose)
	case pr.IsPresent():
		request.ProjectHint = pr.MustGet().Repo
	default:
		request.ProjectHint = hintAfterVerb(prose, verb)
	}

	return mo.Some(request)
}
