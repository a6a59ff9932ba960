package session

import (
	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/mailer"
	"github.com/foxseedlab/meetbot/internal/meeting"
	"github.com/foxseedlab/meetbot/internal/memory"
	"github.com/foxseedlab/meetbot/internal/recording"
	"github.com/foxseedlab/meetbot/internal/report"
	"github.com/foxseedlab/meetbot/internal/repository"
	"github.com/foxseedlab/meetbot/internal/transcriber"
	"github.com/foxseedlab/meetbot/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewManager(OptionsFromConfig(cfg), Dependencies{
			Joiner:      do.MustInvoke[meeting.Joiner](i),
			Recorder:    do.MustInvoke[recording.Recorder](i),
			Transcriber: do.MustInvoke[transcriber.Transcriber](i),
			Diarizer:    do.MustInvoke[analysis.Diarizer](i),
			Topics:      do.MustInvoke[analysis.TopicSegmenter](i),
			Sentiment:   do.MustInvoke[analysis.SentimentAnalyzer](i),
			Summarizer:  do.MustInvoke[analysis.Summarizer](i),
			ActionItems: do.MustInvoke[analysis.ActionItemExtractor](i),
			Analytics:   do.MustInvoke[analysis.AnalyticsComputer](i),
			Followup:    do.MustInvoke[analysis.FollowupWriter](i),
			Renderer:    do.MustInvoke[report.Renderer](i),
			Repository:  do.MustInvoke[repository.Repository](i),
			Memory:      do.MustInvoke[memory.Index](i),
			Mailer:      do.MustInvoke[mailer.Mailer](i),
			Webhook:     do.MustInvoke[webhook.Sender](i),
		}), nil
	})
}
