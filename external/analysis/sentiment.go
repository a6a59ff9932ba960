package analysis

import (
	"context"
	"regexp"
	"strings"

	"github.com/foxseedlab/meetbot/internal/analysis"
	"github.com/foxseedlab/meetbot/internal/transcriber"
)

const (
	ToneAgreement    = "agreement"
	ToneDisagreement = "disagreement"
	ToneEnthusiasm   = "enthusiasm"
	ToneConcern      = "concern"
	ToneFrustration  = "frustration"
	ToneNeutral      = "neutral"

	maxKeyMoments = 5
	// Conflict is flagged once disagreement shows up in more than this share of sentences.
	conflictShare = 0.2
)

var (
	positiveWords = wordSet("great", "excellent", "good", "agree", "yes", "perfect", "wonderful",
		"fantastic", "amazing", "love", "happy", "excited", "pleased",
		"successful", "achievement", "progress", "improvement", "opportunity")
	negativeWords = wordSet("bad", "terrible", "disagree", "no", "problem", "issue", "concern",
		"worried", "frustrated", "disappointed", "failed", "failure", "risk",
		"difficult", "challenge", "obstacle", "delay", "blocked")

	agreementPhrases = []string{"i agree", "that's right", "exactly", "absolutely", "definitely",
		"good point", "makes sense", "sounds good", "let's do it"}
	disagreementPhrases = []string{"i disagree", "i don't think", "not sure about", "however",
		"on the other hand", "that won't work", "i'm concerned"}
	enthusiasmWords  = []string{"excited", "amazing", "fantastic"}
	concernWords     = []string{"worried", "concern", "risk", "careful"}
	frustrationWords = []string{"frustrated", "annoying", "difficult", "blocked"}

	wordPattern     = regexp.MustCompile(`\b\w+'?\w*\b`)
	sentencePattern = regexp.MustCompile(`[.!?]+`)
)

func wordSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

type KeywordSentimentAnalyzer struct{}

func NewKeywordSentimentAnalyzer() analysis.SentimentAnalyzer {
	return &KeywordSentimentAnalyzer{}
}

type scoredSentence struct {
	text       string
	speaker    string
	sentiment  string
	confidence float64
	tones      []string
}

func (a *KeywordSentimentAnalyzer) AnalyzeSentiment(ctx context.Context, transcript transcriber.Transcript, diarization analysis.Diarization) (analysis.Sentiment, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Sentiment{}, err
	}
	sentences := splitForSentiment(transcript, diarization)
	result := analysis.EmptySentiment()
	if len(sentences) == 0 {
		return result, nil
	}

	counts := map[string]int{}
	totalConfidence := 0.0
	agreement, disagreement := 0, 0
	perSpeaker := map[string]map[string]int{}
	for _, s := range sentences {
		counts[s.sentiment]++
		totalConfidence += s.confidence
		for _, tone := range s.tones {
			result.Tones[tone]++
			switch tone {
			case ToneAgreement:
				agreement++
			case ToneDisagreement:
				disagreement++
			}
		}
		if s.speaker != "" {
			if perSpeaker[s.speaker] == nil {
				perSpeaker[s.speaker] = map[string]int{}
			}
			perSpeaker[s.speaker][s.sentiment]++
		}
	}

	n := float64(len(sentences))
	for _, label := range []string{analysis.SentimentPositive, analysis.SentimentNeutral, analysis.SentimentNegative} {
		result.Distribution[label] = round1(float64(counts[label]) / n * 100)
	}
	result.Overall = dominant(counts)
	result.Confidence = round2(totalConfidence / n)
	result.ConflictDetected = float64(disagreement) > conflictShare*n
	if agreement+disagreement > 0 {
		result.AgreementLevel = round2(float64(agreement) / float64(agreement+disagreement))
	}
	result.KeyMoments = keyMoments(sentences)
	for speaker, c := range perSpeaker {
		result.SpeakerSentiment[speaker] = dominant(c)
	}
	return result, nil
}

// dominant prefers neutral on ties, then positive.
func dominant(counts map[string]int) string {
	best := analysis.SentimentNeutral
	for _, label := range []string{analysis.SentimentPositive, analysis.SentimentNegative} {
		if counts[label] > counts[best] {
			best = label
		}
	}
	return best
}

func splitForSentiment(transcript transcriber.Transcript, diarization analysis.Diarization) []scoredSentence {
	var out []scoredSentence
	add := func(text, speaker string) {
		for _, part := range sentenceParts(text) {
			sentiment, confidence := keywordSentiment(part)
			out = append(out, scoredSentence{
				text:       part,
				speaker:    speaker,
				sentiment:  sentiment,
				confidence: confidence,
				tones:      detectTones(part),
			})
		}
	}
	if len(transcript.Segments) > 0 {
		segments := transcript.Segments
		if len(diarization.Segments) > 0 {
			segments = analysis.AlignSpeakers(segments, diarization)
		}
		for _, seg := range segments {
			speaker := seg.Speaker
			if speaker == analysis.UnknownSpeaker {
				speaker = ""
			}
			add(seg.Text, speaker)
		}
		return out
	}
	add(transcript.Text, "")
	return out
}

func sentenceParts(text string) []string {
	var parts []string
	for _, p := range sentenceSplit(text) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// sentenceSplit keeps the terminating punctuation so exclamations can be detected.
func sentenceSplit(text string) []string {
	idx := sentencePattern.FindAllStringIndex(text, -1)
	parts := make([]string, 0, len(idx)+1)
	start := 0
	for _, loc := range idx {
		parts = append(parts, text[start:loc[1]])
		start = loc[1]
	}
	return append(parts, text[start:])
}

func keywordSentiment(text string) (string, float64) {
	pos, neg := 0, 0
	seen := map[string]struct{}{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	total := pos + neg
	switch {
	case total == 0 || pos == neg:
		return analysis.SentimentNeutral, 0.5
	case pos > neg:
		return analysis.SentimentPositive, float64(pos) / float64(total)
	default:
		return analysis.SentimentNegative, float64(neg) / float64(total)
	}
}

func detectTones(text string) []string {
	lower := strings.ToLower(text)
	var tones []string
	if containsAny(lower, agreementPhrases) {
		tones = append(tones, ToneAgreement)
	}
	if containsAny(lower, disagreementPhrases) {
		tones = append(tones, ToneDisagreement)
	}
	if strings.Contains(text, "!") || containsAny(lower, enthusiasmWords) {
		tones = append(tones, ToneEnthusiasm)
	}
	if containsAny(lower, concernWords) {
		tones = append(tones, ToneConcern)
	}
	if containsAny(lower, frustrationWords) {
		tones = append(tones, ToneFrustration)
	}
	if len(tones) == 0 {
		tones = append(tones, ToneNeutral)
	}
	return tones
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func keyMoments(sentences []scoredSentence) []string {
	moments := []string{}
	seen := map[string]struct{}{}
	add := func(m string) {
		if _, ok := seen[m]; ok || len(moments) >= maxKeyMoments {
			return
		}
		seen[m] = struct{}{}
		moments = append(moments, m)
	}
	for _, s := range sentences {
		if s.confidence > 0.8 && s.sentiment != analysis.SentimentNeutral {
			add("[" + strings.ToUpper(s.sentiment) + "] " + truncate(s.text, 100))
		}
		for _, tone := range s.tones {
			if tone == ToneDisagreement {
				add("[DISAGREEMENT] " + truncate(s.text, 100))
			}
		}
	}
	return moments
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
