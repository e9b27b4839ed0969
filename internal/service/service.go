package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fakearchive/internal/archive"
	"fakearchive/internal/model"
	"fakearchive/internal/observability"
	"fakearchive/internal/page"
)

var ErrUnknownToken = errors.New("unknown or expired save token")

type Mode string

const (
	ModeViewer Mode = "viewer"
	ModeSaver  Mode = "saver"
)

// Result is the outcome of processing one host page.
type Result struct {
	Mode   Mode
	Markup string
	// Captured is the number of store links rewritten (saver mode).
	Captured int
	// Failures holds per-message extraction errors (saver mode) or the
	// reason the archive could not be placed on the page (viewer mode).
	Failures error
}

// Service wires the archive repository to the host page: it renders the
// archive on the archive view and hooks store links everywhere else.
type Service struct {
	repo      *archive.Repository
	extractor page.Extractor
	renderer  page.Renderer
	baseURL   string
	pending   *pendingSaves
	metrics   *observability.Metrics
}

type Options struct {
	BaseURL      string
	PendingLimit int
	Extractor    page.Extractor
	Location     *time.Location
}

func New(repo *archive.Repository, metrics *observability.Metrics, opts Options) *Service {
	extractor := opts.Extractor
	if extractor == nil {
		extractor = page.NewRegexExtractor()
	}
	s := &Service{
		repo:      repo,
		extractor: extractor,
		baseURL:   opts.BaseURL,
		pending:   newPendingSaves(opts.PendingLimit),
		metrics:   metrics,
	}
	s.renderer = page.Renderer{DeleteURL: s.DeleteURL, Location: opts.Location}
	return s
}

// SaveURL is the link target that commits a pending save.
func (s *Service) SaveURL(token string) string {
	return s.baseURL + "/save/" + token
}

// DeleteURL is the link target of an archived message's delete control.
func (s *Service) DeleteURL(id int64) string {
	return fmt.Sprintf("%s/messages/%d/delete", s.baseURL, id)
}

// Process picks the viewer or saver behaviour for the page.
func (s *Service) Process(ctx context.Context, markup string) (Result, error) {
	p, err := page.Parse(markup)
	if err != nil {
		return Result{}, err
	}

	var res Result
	if p.IsArchiveOpened() {
		res.Mode = ModeViewer
		// 戻るリンクが無いページはそのまま返す
		if err := s.loadViewer(ctx, p); errors.Is(err, page.ErrBackLinkNotFound) {
			res.Failures = err
		} else if err != nil {
			return Result{}, err
		}
	} else {
		res.Mode = ModeSaver
		res.Captured, res.Failures = s.loadSaver(p)
		if res.Failures != nil {
			s.metrics.ExtractionFailures.Inc()
		}
	}
	s.metrics.PagesProcessed.WithLabelValues(string(res.Mode)).Inc()

	res.Markup, err = p.String()
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Service) loadViewer(ctx context.Context, p *page.Page) error {
	messages, err := s.List(ctx)
	if err != nil {
		return err
	}
	if err := s.renderer.Render(p, messages); err != nil {
		return fmt.Errorf("render archive: %w", err)
	}
	return nil
}

func (s *Service) loadSaver(p *page.Page) (int, error) {
	captures, err := s.extractor.Extract(p)
	for _, c := range captures {
		token := s.pending.put(c.Message)
		page.RewriteLink(c.Link, s.SaveURL(token))
	}
	return len(captures), err
}

// Save appends the message captured under token. The timestamp is the one
// taken when the page was processed. The token stays valid, so clicking the
// same link twice archives the message twice.
func (s *Service) Save(ctx context.Context, token string) (model.Message, error) {
	msg, ok := s.pending.get(token)
	if !ok {
		return model.Message{}, ErrUnknownToken
	}
	if err := s.Append(ctx, msg); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

func (s *Service) List(ctx context.Context) ([]model.Message, error) {
	messages, err := s.repo.List(ctx)
	s.metrics.ObserveOp("list", err)
	if err != nil {
		return nil, err
	}
	s.metrics.ArchiveSize.Set(float64(len(messages)))
	return messages, nil
}

func (s *Service) Append(ctx context.Context, msg model.Message) error {
	err := s.repo.Append(ctx, msg)
	s.metrics.ObserveOp("append", err)
	if err == nil {
		s.metrics.ArchiveSize.Inc()
	}
	return err
}

// Delete removes the first archived message with id. It returns
// archive.ErrNotFound when there is none.
func (s *Service) Delete(ctx context.Context, id int64) error {
	removed, err := s.repo.Remove(ctx, id)
	s.metrics.ObserveOp("remove", err)
	if err != nil {
		return err
	}
	if !removed {
		return archive.ErrNotFound
	}
	s.metrics.ArchiveSize.Dec()
	return nil
}

// CheckArchive validates the stored archive format.
func (s *Service) CheckArchive(ctx context.Context) error {
	raw, err := s.repo.Raw(ctx)
	if err != nil {
		return err
	}
	return s.repo.Codec().Validate(raw)
}
