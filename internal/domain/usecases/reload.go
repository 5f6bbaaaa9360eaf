package usecases

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
)

const DefaultReloadDebounce = 500 * time.Millisecond

// Reloader rebuilds the serving index from the corpus.
type Reloader interface {
	Reload(ctx context.Context) error
}

// CorpusSync reloads the engine whenever the corpus file changes.
// Bursts of events (editors often write a file several times) collapse into
// one reload after the debounce window.
type CorpusSync struct {
	watcher  ports.FileWatcher
	reloader Reloader
	debounce time.Duration
	log      logrus.FieldLogger
}

// NewCorpusSync creates a CorpusSync.
func NewCorpusSync(watcher ports.FileWatcher, reloader Reloader, debounce time.Duration, log logrus.FieldLogger) *CorpusSync {
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CorpusSync{
		watcher:  watcher,
		reloader: reloader,
		debounce: debounce,
		log:      log.WithField("component", "corpus-sync"),
	}
}

// Run watches path until ctx is cancelled or the watcher closes.
func (s *CorpusSync) Run(ctx context.Context, path string) error {
	events, err := s.watcher.Watch(ctx, path)
	if err != nil {
		return err
	}
	s.log.WithField("path", path).Info("watching corpus for changes")

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Operation == ports.FileDeleted {
				s.log.WithField("path", event.Path).Warn("corpus removed, keeping current index")
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			if err := s.reloader.Reload(ctx); err != nil {
				s.log.WithError(err).Error("reloading corpus failed, keeping current index")
				continue
			}
		}
	}
}
