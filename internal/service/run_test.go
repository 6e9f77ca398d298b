package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"neurobot/internal/delivery"
	"neurobot/internal/domain"
	"neurobot/internal/format"
	"neurobot/internal/service/mocks"
	"neurobot/internal/storage/ledger"
)

// stubChannel accepts every message unless told to fail specific texts.
type stubChannel struct {
	sent   []string
	failOn map[string]error
}

func (c *stubChannel) Send(_ context.Context, text string) error {
	if err, ok := c.failOn[text]; ok {
		return err
	}
	c.sent = append(c.sent, text)
	return nil
}

type RunServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	monitor *mocks.MockMonitor
	ledger  *ledger.Store
	channel *stubChannel
	logger  *slog.Logger
}

func (s *RunServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.monitor = mocks.NewMockMonitor(s.ctrl)
	s.channel = &stubChannel{failOn: map[string]error{}}
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.ledger = ledger.New(ledger.Config{
		Path:          filepath.Join(s.T().TempDir(), "posted_urls.txt"),
		RetentionDays: 90,
		MaxEntries:    5000,
	}, s.logger)
}

func (s *RunServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestRunServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RunServiceTestSuite))
}

func (s *RunServiceTestSuite) newService(sources ...Source) *RunService {
	pipeline := delivery.NewPipeline(s.channel, s.ledger, s.monitor, 0, s.logger)
	return NewRunService(sources, s.ledger, pipeline, s.monitor, s.logger)
}

func (s *RunServiceTestSuite) newSource(name string, items []domain.Item, err error) *mocks.MockSource {
	src := mocks.NewMockSource(s.ctrl)
	src.EXPECT().Name().Return(name).AnyTimes()
	src.EXPECT().Fetch(gomock.Any()).Return(items, err).AnyTimes()
	return src
}

func newsItem(title, url string) domain.Item {
	return domain.Item{Title: title, URL: url, Category: domain.CategoryNews}
}

func (s *RunServiceTestSuite) TestRun_PostsNewItems() {
	srcA := s.newSource("site-a", []domain.Item{
		newsItem("A", "https://x/a"),
		newsItem("B", "https://x/b"),
	}, nil)
	srcB := s.newSource("site-b", []domain.Item{
		newsItem("B", "https://x/b-duplicate"),
		newsItem("C", "https://x/c"),
	}, nil)

	s.monitor.EXPECT().Start().Return("run-1")
	s.monitor.EXPECT().Complete(true, 3, gomock.Any())

	stats, err := s.newService(srcA, srcB).Run(context.Background())

	s.Require().NoError(err)
	s.Equal("run-1", stats.RunID)
	s.Equal(4, stats.Fetched)
	s.Equal(3, stats.Cleaned)
	s.Equal(3, stats.Emitted)
	s.Equal(3, stats.Sent)
	s.Equal("OK (2 items)", stats.PerSource["site-a"])
	s.Equal("OK (2 items)", stats.PerSource["site-b"])
	s.Len(s.channel.sent, 3)

	posted := s.ledger.Load()
	s.Contains(posted, "https://x/a")
	s.Contains(posted, "https://x/b")
	s.Contains(posted, "https://x/c")
	s.NotContains(posted, "https://x/b-duplicate")
}

func (s *RunServiceTestSuite) TestRun_SecondRunPostsNothing() {
	src := s.newSource("site", []domain.Item{
		newsItem("A", "https://x/a"),
		newsItem("B", "https://x/b"),
	}, nil)

	s.monitor.EXPECT().Start().Return("run-1")
	s.monitor.EXPECT().Complete(true, 2, gomock.Any())
	s.monitor.EXPECT().Start().Return("run-2")
	s.monitor.EXPECT().Complete(true, 0, gomock.Any())

	svc := s.newService(src)

	first, err := svc.Run(context.Background())
	s.Require().NoError(err)
	s.Equal(2, first.Sent)

	second, err := svc.Run(context.Background())
	s.Require().NoError(err)
	s.Equal(0, second.Emitted)
	s.Equal(0, second.Sent)
	s.Len(s.channel.sent, 2)
}

func (s *RunServiceTestSuite) TestRun_SourceFailureIsContained() {
	broken := s.newSource("broken-site", nil, errors.New("connection refused"))
	working := s.newSource("working-site", []domain.Item{
		newsItem("A", "https://x/a"),
	}, nil)

	s.monitor.EXPECT().Start().Return("run-1")
	s.monitor.EXPECT().RecordError("broken-site", "connection refused")
	s.monitor.EXPECT().Complete(true, 1, gomock.Any())

	stats, err := s.newService(broken, working).Run(context.Background())

	s.Require().NoError(err)
	s.Equal("No data", stats.PerSource["broken-site"])
	s.Equal("OK (1 items)", stats.PerSource["working-site"])
	s.Equal(1, stats.Sent)
}

func (s *RunServiceTestSuite) TestRun_PartialDeliveryIsFailedRun() {
	src := s.newSource("site", []domain.Item{
		newsItem("Good", "https://x/good"),
		newsItem("Bad", "https://x/bad"),
	}, nil)

	s.monitor.EXPECT().Start().Return("run-1")
	s.monitor.EXPECT().RecordError("delivery", gomock.Any())
	s.monitor.EXPECT().Complete(false, 1, gomock.Any())

	svc := s.newService(src)
	for _, msg := range s.renderedMessages("Bad", "https://x/bad") {
		s.channel.failOn[msg] = errors.New("message too long")
	}

	stats, err := svc.Run(context.Background())

	s.Require().NoError(err)
	s.Equal(2, stats.Emitted)
	s.Equal(1, stats.Sent)

	posted := s.ledger.Load()
	s.Contains(posted, "https://x/good")
	s.NotContains(posted, "https://x/bad")
}

// renderedMessages formats a single item the same way the run does, so
// the stub channel can be told to fail exactly that message.
func (s *RunServiceTestSuite) renderedMessages(title, url string) []string {
	categorized := map[domain.Category][]domain.Item{
		domain.CategoryNews: {newsItem(title, url)},
	}
	texts := make([]string, 0, 1)
	for _, msg := range format.Messages(categorized, nil, s.logger) {
		texts = append(texts, msg.Text)
	}
	return texts
}

func (s *RunServiceTestSuite) TestRun_UnknownCategoryFallsBackToNews() {
	src := s.newSource("site", []domain.Item{
		{Title: "A", URL: "https://x/a", Category: "misc"},
	}, nil)

	s.monitor.EXPECT().Start().Return("run-1")
	s.monitor.EXPECT().Complete(true, 1, gomock.Any())

	stats, err := s.newService(src).Run(context.Background())

	s.Require().NoError(err)
	s.Equal(1, stats.Fallbacks)
	s.Equal(1, stats.Sent)
}

func (s *RunServiceTestSuite) TestRun_CancelledContextSkipsSources() {
	src := mocks.NewMockSource(s.ctrl)
	src.EXPECT().Name().Return("site").AnyTimes()

	s.monitor.EXPECT().Start().Return("run-1")
	s.monitor.EXPECT().Complete(true, 0, gomock.Any())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := s.newService(src).Run(ctx)

	s.ErrorIs(err, context.Canceled)
	s.Equal(0, stats.Fetched)
	s.Empty(s.channel.sent)
}
