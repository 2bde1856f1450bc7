package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/samber/mo"

	"github.com/jonit-dev/night-watch-cli-sub005/models"
)

var (
	issueURLRegex     = regexp.MustCompile(`(?i)https?://(?:www\.)?github\.com/([\w.-]+)/([\w.-]+)/issues/(\d+)`)
	projectBoardRegex = regexp.MustCompile(`(?i)https?://(?:www\.)?github\.com/(?:orgs|users)/[\w.-]+/projects/\d+\S*`)
	issueNumberRegex  = regexp.MustCompile(`^\d+$`)
	pickupIntentRegex = regexp.MustCompile(`(?i)\bpick(?:\s+|-)?up\b|\bwork\s+on\b|\bimplement\b|\btackle\b|\btake\s+on\b`)
)

// issueRef is a resolved tracker issue
type issueRef struct {
	Owner  string
	Repo   string
	Number string
}

func (r issueRef) URL() string {
	return fmt.Sprintf("https://github.com/%s/%s/issues/%s", r.Owner, r.Repo, r.Number)
}

// findIssueRef finds an issue either as a plain issue URL or as a project board
// link carrying a URL-encoded "owner|repo|number" issue parameter.
func findIssueRef(clean string) mo.Option[issueRef] {
	if m := issueURLRegex.FindStringSubmatch(clean); m != nil {
		return mo.Some(issueRef{Owner: m[1], Repo: m[2], Number: m[3]})
	}

	for _, raw := range projectBoardRegex.FindAllString(clean, -1) {
		parsed, err := url.Parse(stripTrailingPunctuation(raw))
		if err != nil {
			continue
		}
		parts := strings.Split(parsed.Query().Get("issue"), "|")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || !issueNumberRegex.MatchString(parts[2]) {
			continue
		}
		return mo.Some(issueRef{Owner: parts[0], Repo: parts[1], Number: parts[2]})
	}

	return mo.None[issueRef]()
}

// ParseIssuePickupRequest recognizes "pick up / work on / implement / tackle" plus an issue link.
// Pull request links are not issues and never match.
func ParseIssuePickupRequest(text string) mo.Option[models.IssuePickupRequest] {
	clean := normalize(text)
	if !pickupIntentRegex.MatchString(stripURLs(clean)) {
		return mo.None[models.IssuePickupRequest]()
	}

	ref, ok := findIssueRef(clean).Get()
	if !ok {
		return mo.None[models.IssuePickupRequest]()
	}

	return mo.Some(models.IssuePickupRequest{
		IssueNumber: ref.Number,
		IssueURL:    ref.URL(),
		RepoHint:    ref.Repo,
	})
}

// ParseIssueReviewable recognizes any issue link regardless of wording
func ParseIssueReviewable(text string) mo.Option[models.IssueReviewable] {
	ref, ok := findIssueRef(normalize(text)).Get()
	if !ok {
		return mo.None[models.IssueReviewable]()
	}

	return mo.Some(models.IssueReviewable{
		IssueNumber: ref.Number,
		IssueURL:    ref.URL(),
		RepoHint:    ref.Repo,
	})
}
