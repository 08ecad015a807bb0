// Package qa answers questions from indexed evidence, refusing when the
// evidence is missing or too weak.
package qa

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/domain"
	"github.com/kailas-cloud/unihelp/internal/domain/answer"
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
	"github.com/kailas-cloud/unihelp/internal/domain/lang"
	"github.com/kailas-cloud/unihelp/internal/domain/prompt"
	domqa "github.com/kailas-cloud/unihelp/internal/domain/qa"
	"github.com/kailas-cloud/unihelp/internal/domain/refusal"
	domusage "github.com/kailas-cloud/unihelp/internal/domain/usage"
	"github.com/kailas-cloud/unihelp/internal/metrics"
)

// Config holds the question-time knobs.
type Config struct {
	DefaultTopK         int
	MaxTopK             int
	SimilarityFloor     float64
	ConfidenceThreshold float64
	Temperature         float32
	MaxQuestionLength   int
	DefaultLanguage     lang.Language
}

// ConfigFrom extracts question-time settings from the pipeline config.
func ConfigFrom(p domain.PipelineConfig) Config {
	return Config{
		DefaultTopK:         p.TopK,
		MaxTopK:             p.MaxTopK,
		SimilarityFloor:     p.SimilarityFloor,
		ConfidenceThreshold: p.ConfidenceThreshold,
		Temperature:         p.Temperature,
		MaxQuestionLength:   p.MaxQuestionLength,
		DefaultLanguage:     lang.Language(p.DefaultLanguage).Or(lang.Default),
	}
}

// Request is an unvalidated question.
type Request struct {
	RequestID string // generated when empty
	Question  string
	TopK      int    // 0 selects the default
	Language  string // empty or unsupported selects the default
}

// Service runs the question lifecycle. Safe for concurrent use.
type Service struct {
	retriever Retriever
	generator Generator
	builder   *prompt.Builder
	recorder  UsageRecorder
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Q&A service. recorder can be nil.
func New(retriever Retriever, generator Generator, recorder UsageRecorder, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
		builder:   prompt.NewBuilder(cfg.DefaultLanguage),
		recorder:  recorder,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Validate normalizes req into a Question.
func (s *Service) Validate(req Request) (domqa.Question, error) {
	text := strings.TrimSpace(req.Question)
	if text == "" {
		return domqa.Question{}, fmt.Errorf("question is required: %w", domain.ErrInvalidRequest)
	}
	if s.cfg.MaxQuestionLength > 0 && utf8.RuneCountInString(text) > s.cfg.MaxQuestionLength {
		return domqa.Question{}, fmt.Errorf(
			"question exceeds %d characters: %w", s.cfg.MaxQuestionLength, domain.ErrInvalidRequest,
		)
	}

	topK := req.TopK
	if topK == 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK < 1 || (s.cfg.MaxTopK > 0 && topK > s.cfg.MaxTopK) {
		return domqa.Question{}, fmt.Errorf(
			"topK must be between 1 and %d: %w", s.cfg.MaxTopK, domain.ErrInvalidRequest,
		)
	}

	l, _ := lang.Parse(req.Language)
	return domqa.Question{Text: text, TopK: topK, Language: l.Or(s.cfg.DefaultLanguage)}, nil
}

// Ask answers a question. Refusals are successful answers with Found=false;
// collaborator failures are errors tagged with their failure kind.
func (s *Service) Ask(ctx context.Context, req Request) (domqa.Answer, error) {
	start := s.now()

	q, err := s.Validate(req)
	if err != nil {
		return domqa.Answer{}, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := s.logger.With(zap.String("request_id", requestID))
	lc := newLifecycle(log)

	log.Info("Question received",
		zap.String("question", truncate(q.Text, 80)),
		zap.Int("top_k", q.TopK),
		zap.String("lang", string(q.Language)),
	)

	lc.advance(domqa.Retrieving)
	ev, err := s.retriever.Retrieve(ctx, q.Text, q.TopK, s.cfg.SimilarityFloor)
	if err != nil {
		return domqa.Answer{}, s.fail(lc, log, q, err)
	}
	metrics.EvidenceCount.Observe(float64(len(ev)))

	if len(ev) == 0 {
		lc.advance(domqa.NoEvidence)
		lc.advance(domqa.Refused)
		log.Warn("No evidence above similarity floor", zap.Float64("floor", s.cfg.SimilarityFloor))
		return s.finish(ctx, q, requestID, start, s.refusal(q, requestID, domqa.OutcomeNoEvidence)), nil
	}

	lc.advance(domqa.Scoring)
	confidence := evidence.Confidence(ev)
	metrics.AnswerConfidence.Observe(confidence)

	if confidence < s.cfg.ConfidenceThreshold {
		lc.advance(domqa.Refused)
		log.Warn("Confidence below threshold",
			zap.Float64("confidence", confidence),
			zap.Float64("threshold", s.cfg.ConfidenceThreshold),
			zap.Int("evidence", len(ev)),
		)
		return s.finish(ctx, q, requestID, start, s.refusal(q, requestID, domqa.OutcomeLowConfidence)), nil
	}

	lc.advance(domqa.Prompting)
	built := s.builder.Build(q.Text, ev, q.Language)

	lc.advance(domqa.Generating)
	gen, err := s.generator.Generate(ctx, domain.GenerationRequest{
		System:      built.System,
		User:        built.User,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return domqa.Answer{}, s.fail(lc, log, q, domain.Unavailable(domain.ErrGenerationUnavailable, err))
	}
	domain.UsageFromContext(ctx).AddGenerationTokens(gen.PromptTokens + gen.CompletionTokens)

	lc.advance(domqa.Classifying)
	verdict := answer.Classify(gen.Text)

	a := domqa.Answer{
		RequestID:  requestID,
		Text:       gen.Text,
		Sources:    domqa.SourcesFrom(built.EvidenceUsed),
		Confidence: confidence,
		Found:      verdict.Found,
		Outcome:    domqa.OutcomeAnswered,
		Language:   q.Language,
	}
	if !verdict.Found {
		a.Text = refusal.Message(q.Language)
		a.Outcome = domqa.OutcomeModelRefused
	}

	lc.advance(domqa.Answered)
	log.Info("Question answered",
		zap.Bool("found", a.Found),
		zap.Float64("confidence", confidence),
		zap.Int("sources", len(a.Sources)),
		zap.Duration("duration", s.now().Sub(start)),
	)
	return s.finish(ctx, q, requestID, start, a), nil
}

func (s *Service) refusal(q domqa.Question, requestID string, outcome domqa.Outcome) domqa.Answer {
	return domqa.Answer{
		RequestID:  requestID,
		Text:       refusal.Message(q.Language),
		Sources:    []domqa.Source{},
		Confidence: 0,
		Found:      false,
		Outcome:    outcome,
		Language:   q.Language,
	}
}

func (s *Service) finish(ctx context.Context, q domqa.Question, requestID string, start time.Time, a domqa.Answer) domqa.Answer {
	duration := s.now().Sub(start)
	metrics.QuestionsTotal.WithLabelValues(string(a.Outcome), string(q.Language)).Inc()
	metrics.QuestionDuration.Observe(duration.Seconds())

	if s.recorder != nil {
		s.recorder.Record(ctx, domusage.Record{
			RequestID:  requestID,
			Question:   q.Text,
			Language:   string(q.Language),
			Outcome:    string(a.Outcome),
			Found:      a.Found,
			Confidence: a.Confidence,
			Duration:   duration,
			Documents:  distinctDocuments(a.Sources),
		})
	}
	return a
}

func (s *Service) fail(lc *lifecycle, log *zap.Logger, q domqa.Question, err error) error {
	lc.advance(domqa.Failed)
	kind := domain.FailureKindOf(err)
	if kind == domain.FailureCanceled {
		metrics.QuestionsTotal.WithLabelValues("canceled", string(q.Language)).Inc()
		log.Info("Question canceled by caller", zap.Error(err))
		return fmt.Errorf("ask: %w", err)
	}
	metrics.QuestionsTotal.WithLabelValues("failed", string(q.Language)).Inc()
	metrics.QuestionFailuresTotal.WithLabelValues(string(kind)).Inc()
	log.Error("Question failed", zap.String("kind", string(kind)), zap.Error(err))
	return fmt.Errorf("ask: %w", err)
}

func distinctDocuments(sources []domqa.Source) []string {
	seen := make(map[string]bool, len(sources))
	var out []string
	for _, src := range sources {
		if !seen[src.Document] {
			seen[src.Document] = true
			out = append(out, src.Document)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
