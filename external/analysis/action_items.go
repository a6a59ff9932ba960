package analysis

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"

	minTaskLength = 10
)

var (
	actionKeywords = []string{
		"will", "should", "need to", "have to", "must", "going to",
		"action item", "task", "todo", "to do", "follow up", "follow-up",
		"take care of", "responsible for", "assigned to", "deadline",
		"by next", "by end of", "complete by", "finish by",
	}
	ownerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\w+) will\b`),
		regexp.MustCompile(`(?i)(\w+) should\b`),
		regexp.MustCompile(`(?i)(\w+) needs? to\b`),
		regexp.MustCompile(`(?i)assigned to (\w+)`),
		regexp.MustCompile(`(?i)(\w+) is responsible`),
	}
	notOwners = wordSet("i", "we", "you", "they", "it", "someone", "everyone", "he", "she", "this", "that")

	deadlinePatterns = []struct {
		re   *regexp.Regexp
		kind string
	}{
		{regexp.MustCompile(`by (monday|tuesday|wednesday|thursday|friday|saturday|sunday)`), "weekday"},
		{regexp.MustCompile(`by end of (week|month|day|quarter)`), "end_of"},
		{regexp.MustCompile(`by (\d{1,2}/\d{1,2}(?:/\d{2,4})?)`), "date"},
		{regexp.MustCompile(`by (tomorrow|next week|next month)`), "relative"},
		{regexp.MustCompile(`within (\d+) (days?|weeks?|months?)`), "within"},
		{regexp.MustCompile(`(asap|immediately|urgent)`), "urgent"},
	}
	taskPrefixes = []string{"action item:", "task:", "todo:", "to do:"}
	whitespace   = regexp.MustCompile(`\s+`)
)

// PatternActionItemExtractor finds commitments in the transcript by keyword
// and merges them with the items the summary already named.
type PatternActionItemExtractor struct {
	now func() time.Time
}

func NewPatternActionItemExtractor() analysis.ActionItemExtractor {
	return &PatternActionItemExtractor{now: time.Now}
}

func (e *PatternActionItemExtractor) ExtractActionItems(ctx context.Context, transcript transcriber.Transcript, summary analysis.Summary) (analysis.ActionItems, error) {
	if err := ctx.Err(); err != nil {
		return analysis.ActionItems{}, err
	}
	var items []analysis.ActionItem
	for _, a := range summary.ActionItems {
		if strings.TrimSpace(a.Task) == "" {
			continue
		}
		if a.Priority == "" {
			a.Priority = PriorityMedium
		}
		items = append(items, a)
	}
	for _, sentence := range sentencePattern.Split(transcript.Text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" || !containsAny(strings.ToLower(sentence), actionKeywords) {
			continue
		}
		if item, ok := e.parseSentence(sentence); ok {
			items = append(items, item)
		}
	}

	items = dedupeActionItems(items)
	result := analysis.ActionItems{Items: items, Total: len(items)}
	for i := range result.Items {
		result.Items[i].ID = i + 1
		if result.Items[i].Owner != "" {
			result.WithOwners++
		}
		if result.Items[i].Deadline != "" {
			result.WithDeadlines++
		}
	}
	return result, nil
}

func (e *PatternActionItemExtractor) parseSentence(sentence string) (analysis.ActionItem, bool) {
	lower := strings.ToLower(sentence)
	task := sentence
	for _, prefix := range taskPrefixes {
		if strings.HasPrefix(strings.ToLower(task), prefix) {
			task = strings.TrimSpace(task[len(prefix):])
		}
	}
	if len(task) < minTaskLength {
		return analysis.ActionItem{}, false
	}

	item := analysis.ActionItem{Task: task, Priority: PriorityMedium}
	for _, re := range ownerPatterns {
		m := re.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}
		if _, skip := notOwners[strings.ToLower(m[1])]; !skip {
			item.Owner = titleCase(m[1])
			break
		}
	}
	for _, p := range deadlinePatterns {
		if m := p.re.FindString(lower); m != "" {
			item.Deadline = e.parseDeadline(m, p.kind)
			break
		}
	}
	switch {
	case containsAny(lower, []string{"urgent", "asap", "immediately", "critical"}):
		item.Priority = PriorityHigh
	case containsAny(lower, []string{"when possible", "eventually", "low priority"}):
		item.Priority = PriorityLow
	}
	return item, true
}

func (e *PatternActionItemExtractor) parseDeadline(match, kind string) string {
	today := e.now()
	const layout = "2006-01-02"
	switch kind {
	case "urgent":
		return "ASAP"
	case "relative":
		switch {
		case strings.Contains(match, "tomorrow"):
			return today.AddDate(0, 0, 1).Format(layout)
		case strings.Contains(match, "next week"):
			return today.AddDate(0, 0, 7).Format(layout)
		case strings.Contains(match, "next month"):
			return today.AddDate(0, 0, 30).Format(layout)
		}
	case "end_of":
		switch {
		case strings.Contains(match, "week"):
			days := (int(time.Friday) - int(today.Weekday()) + 7) % 7
			return today.AddDate(0, 0, days).Format(layout)
		case strings.Contains(match, "month"):
			firstOfNext := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, today.Location())
			return firstOfNext.AddDate(0, 0, -1).Format(layout)
		case strings.Contains(match, "day"):
			return today.Format(layout)
		}
	}
	return match
}

func dedupeActionItems(items []analysis.ActionItem) []analysis.ActionItem {
	unique := []analysis.ActionItem{}
	var seen []string
	for _, item := range items {
		normalized := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(item.Task)), " ")
		dup := false
		for _, s := range seen {
			if strings.Contains(s, normalized) || strings.Contains(normalized, s) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, normalized)
		unique = append(unique, item)
	}
	return unique
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
