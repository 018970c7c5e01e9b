package forensic

import (
	"regexp"
	"strconv"
)

var (
	daysRe        = regexp.MustCompile(`(\d+)\s*days?`)
	tenderVocabRe = regexp.MustCompile(`(?i)tender|bid|submission`)
)

// TimelineIssue is one implausibly short tender period.
type TimelineIssue struct {
	Days    int    `json:"days"`
	Context string `json:"context"`
}

// AnalyzeTimeline finds "<N> day(s)" mentions whose surrounding window
// contains tender vocabulary and whose N is below the minimum notice
// period.
func (c Config) AnalyzeTimeline(text string) []TimelineIssue {
	var issues []TimelineIssue
	for _, loc := range daysRe.FindAllStringSubmatchIndex(text, -1) {
		days, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || days >= c.MinNoticeDays {
			continue
		}
		ctx := window(text, loc[0], loc[1], c.ContextRadius)
		if !tenderVocabRe.MatchString(ctx) {
			continue
		}
		issues = append(issues, TimelineIssue{Days: days, Context: ctx})
	}
	return issues
}
