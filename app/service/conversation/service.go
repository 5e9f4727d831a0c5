package conversation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"maizedigest/app/client/llm"
	"maizedigest/app/config"
	"maizedigest/app/service/composer"
	"maizedigest/app/service/export"
	"maizedigest/app/service/retrieval"
	"maizedigest/app/service/scoring"

	"github.com/benbjohnson/clock"
	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/samber/do"
	"github.com/samber/oops"
)

// CodeGenerationFailed marks LLM call failures.
const CodeGenerationFailed = "generation_failed"

const (
	// Offer prompts fire a fixed delay after the previous action was
	// delivered, mirroring the pacing of the original frontend.
	digestOfferDelay = 2 * time.Second
	exportOfferDelay = 1300 * time.Millisecond

	sessionCleanupInterval = 10 * time.Minute
)

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]scoring.ScoredDocument, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Exporter interface {
	Render(digest *composer.Digest) ([]byte, error)
}

type Service struct {
	cfg         *config.Config
	retriever   Retriever
	generator   Generator
	composerSvc *composer.Service
	exporter    Exporter
	clock       clock.Clock

	sessions *cache.Cache
}

func New(di *do.Injector) (*Service, error) {
	return NewEngine(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*retrieval.Service](di),
		do.MustInvoke[*llm.Client](di),
		do.MustInvoke[*composer.Service](di),
		do.MustInvoke[*export.Service](di),
		do.MustInvoke[clock.Clock](di),
	), nil
}

func NewEngine(
	cfg *config.Config,
	retriever Retriever,
	generator Generator,
	composerSvc *composer.Service,
	exporter Exporter,
	clk clock.Clock,
) *Service {
	ttl := time.Duration(cfg.Chat.SessionTTLMinutes) * time.Minute
	sessions := cache.New(ttl, sessionCleanupInterval)

	sessions.OnEvicted(func(_ string, value any) {
		sess := value.(*Session)

		sess.mu.Lock()
		defer sess.mu.Unlock()

		if sess.offerTimer != nil {
			sess.offerTimer.Stop()
			sess.offerTimer = nil
		}
	})

	return &Service{
		cfg:         cfg,
		retriever:   retriever,
		generator:   generator,
		composerSvc: composerSvc,
		exporter:    exporter,
		clock:       clk,
		sessions:    sessions,
	}
}

// CreateSession starts a fresh conversation.
func (s *Service) CreateSession() *Session {
	sess := &Session{
		id:       uuid.NewString(),
		state:    StateIdle,
		messages: []Message{{Role: RoleAssistant, Content: msgGreeting}},
	}

	s.sessions.Set(sess.id, sess, cache.DefaultExpiration)

	slog.Debug("Session created", "session_id", sess.id)

	return sess
}

func (s *Service) Session(id string) (*Session, bool) {
	value, found := s.sessions.Get(id)
	if !found {
		return nil, false
	}

	// touch to keep active conversations alive
	s.sessions.SetDefault(id, value)

	return value.(*Session), true
}

// HandleUtterance runs one full turn of the state machine. The session lock
// is held for the whole turn, so a second utterance for the same session
// waits until retrieval and generation finish.
func (s *Service) HandleUtterance(ctx context.Context, sess *Session, text string) *Turn {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.append(Message{Role: RoleUser, Content: text})

	turn := &Turn{}

	switch sess.state {
	case StateAwaitingDigestConfirm:
		s.handleDigestConfirm(ctx, sess, text, turn)
	case StateAwaitingExportConfirm:
		s.handleExportConfirm(ctx, sess, text, turn)
	default:
		s.handleQuery(ctx, sess, text, turn)
	}

	return turn
}

func (s *Service) handleQuery(ctx context.Context, sess *Session, text string, turn *Turn) {
	result, err := s.Answer(ctx, text)
	if err != nil {
		slog.Error("Answer generation failed", "session_id", sess.id, "error", err)
		sess.append(turn.add(Message{Role: RoleAssistant, Content: msgAnswerError, Error: true}))
		return
	}

	sess.append(turn.add(Message{
		Role:    RoleAssistant,
		Content: result.Response,
		Sources: result.Sources,
	}))

	sess.state = StateAwaitingDigestConfirm
	sess.pendingQuery = text

	s.scheduleOffer(sess, digestOfferDelay, StateAwaitingDigestConfirm, msgDigestOffer)
}

func (s *Service) handleDigestConfirm(ctx context.Context, sess *Session, text string, turn *Turn) {
	s.stopOffer(sess)

	query := sess.pendingQuery
	sess.pendingQuery = ""

	// the confirmation is consumed either way, success or not
	sess.state = StateIdle

	if !isAffirmative(text) {
		sess.append(turn.add(Message{Role: RoleAssistant, Content: msgDigestDecline}))
		return
	}

	result, err := s.BuildDigest(ctx, query)
	if err != nil {
		var invalid *composer.InvalidOutputError
		if errors.As(err, &invalid) {
			slog.Warn("Model broke the digest contract", "session_id", sess.id, "raw", invalid.Raw)
			sess.append(turn.add(Message{
				Role:    RoleAssistant,
				Content: "Sorry, I encountered an error: " + invalid.Error(),
				Error:   true,
				Raw:     invalid.Raw,
			}))
			return
		}

		slog.Error("Digest generation failed", "session_id", sess.id, "error", err)
		sess.append(turn.add(Message{Role: RoleAssistant, Content: msgDigestError, Error: true}))
		return
	}

	sess.lastDigest = result.Digest
	sess.append(turn.add(Message{
		Role:    RoleAssistant,
		Content: formatDigest(result.Digest),
		Sources: result.Sources,
		Digest:  result.Digest,
	}))

	sess.state = StateAwaitingExportConfirm

	s.scheduleOffer(sess, exportOfferDelay, StateAwaitingExportConfirm, msgExportOffer)
}

func (s *Service) handleExportConfirm(_ context.Context, sess *Session, text string, turn *Turn) {
	s.stopOffer(sess)

	sess.state = StateIdle

	if !isAffirmative(text) {
		sess.lastDigest = nil
		sess.append(turn.add(Message{Role: RoleAssistant, Content: msgExportDecline}))
		return
	}

	if sess.lastDigest == nil {
		sess.append(turn.add(Message{Role: RoleAssistant, Content: msgExportDecline}))
		return
	}

	blob, err := s.exporter.Render(sess.lastDigest)
	if err != nil {
		// digest stays around so the user can retry the export by hand
		slog.Error("Export failed", "session_id", sess.id, "error", err)
		sess.append(turn.add(Message{Role: RoleAssistant, Content: msgExportError, Error: true}))
		return
	}

	sess.lastDigest = nil
	sess.append(turn.add(Message{Role: RoleAssistant, Content: msgExportDone}))
	turn.Document = blob
}

// AnswerResult is the stateless answer for a single query.
type AnswerResult struct {
	Response string
	Sources  []string
}

func (s *Service) Answer(ctx context.Context, query string) (*AnswerResult, error) {
	docs, err := s.retriever.Retrieve(ctx, query, s.cfg.Chat.AnswerTopK)
	if err != nil {
		return nil, err
	}

	response, err := s.generator.Generate(ctx, s.composerSvc.AnswerPrompt(query, docs))
	if err != nil {
		return nil, oops.Code(CodeGenerationFailed).Wrapf(err, "failed to generate answer")
	}

	return &AnswerResult{
		Response: response,
		Sources:  sourcesOf(docs),
	}, nil
}

// DigestResult is the stateless digest for a single query.
type DigestResult struct {
	Digest  *composer.Digest
	Sources []string
}

func (s *Service) BuildDigest(ctx context.Context, query string) (*DigestResult, error) {
	docs, err := s.retriever.Retrieve(ctx, query, s.cfg.Chat.DigestTopK)
	if err != nil {
		return nil, err
	}

	raw, err := s.generator.Generate(ctx, s.composerSvc.DigestPrompt(query, docs))
	if err != nil {
		return nil, oops.Code(CodeGenerationFailed).Wrapf(err, "failed to generate digest")
	}

	digest, err := s.composerSvc.ParseDigest(raw)
	if err != nil {
		return nil, err
	}

	return &DigestResult{
		Digest:  digest,
		Sources: sourcesOf(docs),
	}, nil
}

// scheduleOffer queues a follow-up prompt. The callback re-checks the state
// so an offer never lands after the user already moved the conversation on.
func (s *Service) scheduleOffer(sess *Session, delay time.Duration, expected State, content string) {
	s.stopOffer(sess)

	sess.offerTimer = s.clock.AfterFunc(delay, func() {
		sess.mu.Lock()
		defer sess.mu.Unlock()

		sess.offerTimer = nil

		if sess.state != expected {
			return
		}

		sess.append(Message{Role: RoleAssistant, Content: content})
	})
}

func (s *Service) stopOffer(sess *Session) {
	if sess.offerTimer != nil {
		sess.offerTimer.Stop()
		sess.offerTimer = nil
	}
}

func sourcesOf(docs []scoring.ScoredDocument) []string {
	return pie.Map(docs, func(doc scoring.ScoredDocument) string {
		return doc.Metadata.Source
	})
}

func formatDigest(digest *composer.Digest) string {
	formatted := ""

	if digest.Executive != "" {
		formatted += "**Executive Summary**\n" + digest.Executive + "\n\n"
	}
	if digest.Opening != "" {
		formatted += "**Opening**\n" + digest.Opening + "\n\n"
	}
	if !digest.Main.IsEmpty() {
		formatted += "**Main Content**\n" + digest.Main.Flatten()
	}

	return formatted
}
