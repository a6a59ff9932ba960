package analysis

import (
	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/llm"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (analysis.Diarizer, error) {
		return NewActivityDiarizer(), nil
	})
	do.Provide(injector, func(i do.Injector) (analysis.TopicSegmenter, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewTopicSegmenter(do.MustInvoke[llm.Generator](i), c.Features.MaxTopics), nil
	})
	do.Provide(injector, func(i do.Injector) (analysis.SentimentAnalyzer, error) {
		return NewKeywordSentimentAnalyzer(), nil
	})
	do.Provide(injector, func(i do.Injector) (analysis.Summarizer, error) {
		return NewLLMSummarizer(do.MustInvoke[llm.Generator](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (analysis.ActionItemExtractor, error) {
		return NewPatternActionItemExtractor(), nil
	})
	do.Provide(injector, func(i do.Injector) (analysis.AnalyticsComputer, error) {
		return NewMetricsComputer(), nil
	})
	do.Provide(injector, func(i do.Injector) (analysis.FollowupWriter, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewTemplateFollowupWriter(c.Features.SenderName, c.Features.CompanyName), nil
	})
}
