package cli

import (
	"github.com/moodysaroha/postboy/internal/config"
	"github.com/moodysaroha/postboy/internal/coordinator"
	"github.com/moodysaroha/postboy/internal/notify"
	"github.com/moodysaroha/postboy/internal/updater"
)

func newUpdater(settings config.Update, opts ...updater.Option) *updater.Updater {
	opts = append([]updater.Option{updater.WithFeed(config.FeedSettings(settings.Packaged))}, opts...)
	return updater.New(buildVersion, opts...)
}

func newCoordinator(settings config.Update, presenter notify.Presenter, opts ...updater.Option) *coordinator.Coordinator {
	return coordinator.New(
		newUpdater(settings, opts...),
		updater.NewInstaller(config.StagingDir()),
		presenter,
		settings,
		coordinator.WithCacheDir(config.Dir()),
	)
}
