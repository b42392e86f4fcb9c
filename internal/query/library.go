// Package query is the reactive query layer: every view is a
// continuously-updating subscription over the local cache, recomputed
// whenever the cache, a side-store, or a view parameter changes. The UI
// never issues a manual refresh.
package query

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/photonav/gallery/internal/models"
	"github.com/photonav/gallery/internal/observability"
	"github.com/photonav/gallery/internal/reactive"
	"github.com/photonav/gallery/internal/repository"
)

// State gates derived queries on store readiness. Nothing recomputes while
// Uninitialized; MarkReady runs the first pass.
type State int

const (
	Uninitialized State = iota
	Ready
)

// DefaultSearchDebounce is how long after the last keystroke a search runs.
const DefaultSearchDebounce = 300 * time.Millisecond

// Library owns every reactive view. All parameter mutation goes through
// named methods; reads go through the Feed accessors.
type Library struct {
	log       *observability.Logger
	media     repository.MediaRepo
	favorites repository.FavoriteRepo
	labels    repository.LabelRepo
	changes   *repository.Changes

	locationFor    LocationFunc
	weekStart      time.Weekday
	searchDebounce time.Duration
	now            func() time.Time

	mu          sync.Mutex
	runCtx      context.Context
	state       State
	sortMode    models.SortMode
	groupMode   models.GroupMode
	albumFilter string
	searchText  string
	searchTimer *time.Timer

	searchGen atomic.Uint64

	allMedia    *reactive.Feed[[]models.MediaItem]
	images      *reactive.Feed[[]models.MediaItem]
	videos      *reactive.Feed[[]models.MediaItem]
	albumMedia  *reactive.Feed[[]models.MediaItem]
	favoritesV  *reactive.Feed[[]models.MediaItem]
	searchV     *reactive.Feed[[]models.MediaItem]
	grouped     *reactive.Feed[[]models.DateGroup]
	albums      *reactive.Feed[[]models.Album]
	categorized *reactive.Feed[models.CategorizedAlbums]
	loading     *reactive.Feed[bool]

	loadingCleared atomic.Bool

	kick chan struct{}
	stop chan struct{}
	once sync.Once
}

// Option customizes a Library.
type Option func(*Library)

// WithLocationFunc sets the group-location resolver.
func WithLocationFunc(fn LocationFunc) Option {
	return func(l *Library) { l.locationFor = fn }
}

// WithWeekStart sets the locale's first day of week for date filters.
func WithWeekStart(d time.Weekday) Option {
	return func(l *Library) { l.weekStart = d }
}

// WithSearchDebounce overrides the keystroke debounce window.
func WithSearchDebounce(d time.Duration) Option {
	return func(l *Library) { l.searchDebounce = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// NewLibrary creates the query layer over the given repositories.
func NewLibrary(media repository.MediaRepo, favorites repository.FavoriteRepo,
	labels repository.LabelRepo, changes *repository.Changes, opts ...Option) *Library {

	l := &Library{
		log:            observability.GetLogger().WithField("component", "library"),
		media:          media,
		favorites:      favorites,
		labels:         labels,
		changes:        changes,
		weekStart:      time.Monday,
		searchDebounce: DefaultSearchDebounce,
		now:            time.Now,
		sortMode:       models.SortDateDesc,
		groupMode:      models.GroupByDay,
		albumFilter:    models.AlbumAll,

		allMedia:    reactive.NewFeed[[]models.MediaItem](),
		images:      reactive.NewFeed[[]models.MediaItem](),
		videos:      reactive.NewFeed[[]models.MediaItem](),
		albumMedia:  reactive.NewFeed[[]models.MediaItem](),
		favoritesV:  reactive.NewFeed[[]models.MediaItem](),
		searchV:     reactive.NewFeed[[]models.MediaItem](),
		grouped:     reactive.NewFeed[[]models.DateGroup](),
		albums:      reactive.NewFeed[[]models.Album](),
		categorized: reactive.NewFeed[models.CategorizedAlbums](),
		loading:     reactive.NewFeedOf(true),

		kick: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Feed accessors.

func (l *Library) AllMedia() *reactive.Feed[[]models.MediaItem]   { return l.allMedia }
func (l *Library) Images() *reactive.Feed[[]models.MediaItem]     { return l.images }
func (l *Library) Videos() *reactive.Feed[[]models.MediaItem]     { return l.videos }
func (l *Library) AlbumMedia() *reactive.Feed[[]models.MediaItem] { return l.albumMedia }
func (l *Library) Favorites() *reactive.Feed[[]models.MediaItem]  { return l.favoritesV }
func (l *Library) SearchResults() *reactive.Feed[[]models.MediaItem] {
	return l.searchV
}
func (l *Library) Grouped() *reactive.Feed[[]models.DateGroup] { return l.grouped }
func (l *Library) Albums() *reactive.Feed[[]models.Album]      { return l.albums }
func (l *Library) Categorized() *reactive.Feed[models.CategorizedAlbums] {
	return l.categorized
}

// Loading starts true and flips false on the first non-empty all-media
// emission, decoupling perceived load time from sync duration.
func (l *Library) Loading() *reactive.Feed[bool] { return l.loading }

// Start runs the recompute loop until the context ends. The context also
// bounds every debounced search job, so teardown cancels in-flight queries.
func (l *Library) Start(ctx context.Context) {
	l.mu.Lock()
	l.runCtx = ctx
	l.mu.Unlock()

	sub := l.changes.Subscribe(
		repository.TopicMedia, repository.TopicFavorites, repository.TopicLabels)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stop:
				return
			case <-sub:
				l.recompute(ctx)
			case <-l.kick:
				l.recompute(ctx)
			}
		}
	}()
}

// Close stops the recompute loop.
func (l *Library) Close() {
	l.once.Do(func() { close(l.stop) })
}

// MarkReady opens the readiness gate and schedules the first recompute.
func (l *Library) MarkReady() {
	l.mu.Lock()
	l.state = Ready
	l.mu.Unlock()
	l.requestRecompute()
}

func (l *Library) requestRecompute() {
	select {
	case l.kick <- struct{}{}:
	default:
	}
}

// SetSortMode switches the all-media ordering. Invalid modes are ignored.
func (l *Library) SetSortMode(mode models.SortMode) {
	if !mode.Valid() {
		l.log.Warnf("ignoring invalid sort mode %q", mode)
		return
	}
	l.mu.Lock()
	changed := l.sortMode != mode
	l.sortMode = mode
	l.mu.Unlock()
	if changed {
		l.requestRecompute()
	}
}

// SetGroupMode toggles day/month grouping.
func (l *Library) SetGroupMode(mode models.GroupMode) {
	l.mu.Lock()
	changed := l.groupMode != mode
	l.groupMode = mode
	l.mu.Unlock()
	if changed {
		l.requestRecompute()
	}
}

// SetAlbumFilter selects the per-album view's bucket; models.AlbumAll
// clears the filter.
func (l *Library) SetAlbumFilter(bucketID string) {
	if bucketID == "" {
		bucketID = models.AlbumAll
	}
	l.mu.Lock()
	changed := l.albumFilter != bucketID
	l.albumFilter = bucketID
	l.mu.Unlock()
	if changed {
		l.requestRecompute()
	}
}

// SetSearchQuery updates the search text. Execution is debounced; a
// superseding keystroke cancels the pending run, and a stale in-flight run
// never publishes.
func (l *Library) SetSearchQuery(text string) {
	gen := l.searchGen.Add(1)

	l.mu.Lock()
	l.searchText = text
	if l.searchTimer != nil {
		l.searchTimer.Stop()
	}
	if text == "" {
		l.searchTimer = nil
		l.mu.Unlock()
		l.searchV.Publish([]models.MediaItem{})
		return
	}
	l.searchTimer = time.AfterFunc(l.searchDebounce, func() {
		l.mu.Lock()
		ctx := l.runCtx
		l.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		l.runSearch(ctx, text, gen)
	})
	l.mu.Unlock()
}

// ToggleFavorite flips the favorite mark for a media id. The visible state
// never changes optimistically; a failed write leaves every view as it was.
func (l *Library) ToggleFavorite(ctx context.Context, mediaID int64) error {
	set, err := l.favorites.IsSet(ctx, mediaID)
	if err != nil {
		l.log.Errorf("favorite lookup %d: %v", mediaID, err)
		return err
	}
	if set {
		err = l.favorites.Unset(ctx, mediaID)
	} else {
		err = l.favorites.Set(ctx, mediaID)
	}
	if err != nil {
		l.log.Errorf("favorite toggle %d: %v", mediaID, err)
	}
	return err
}

// HideFromSmartAlbum subtracts a label from an item so it stops surfacing
// in the corresponding derived album.
func (l *Library) HideFromSmartAlbum(ctx context.Context, mediaID int64, label string) error {
	return l.labels.SubtractLabel(ctx, mediaID, label)
}

// ForceLoaded clears the loading flag regardless of emissions; the sync
// engine calls it on failure so the UI never sticks in a spinner.
func (l *Library) ForceLoaded() {
	if l.loadingCleared.CompareAndSwap(false, true) {
		l.loading.Publish(false)
	}
}

// recompute re-reads every view from the store and publishes. It runs on a
// single goroutine, so emissions stay totally ordered across views.
func (l *Library) recompute(ctx context.Context) {
	l.mu.Lock()
	if l.state != Ready {
		l.mu.Unlock()
		return
	}
	sortMode := l.sortMode
	groupMode := l.groupMode
	albumFilter := l.albumFilter
	searchText := l.searchText
	l.mu.Unlock()

	all, err := l.media.List(ctx, repository.ListOptions{Sort: sortMode})
	if err != nil {
		l.log.Errorf("all-media query: %v", err)
		return
	}
	l.allMedia.Publish(all)
	if len(all) > 0 {
		l.ForceLoaded()
	}

	if imgs, err := l.media.List(ctx, repository.ListOptions{Sort: sortMode, Kind: repository.KindImages}); err == nil {
		l.images.Publish(imgs)
	} else {
		l.log.Errorf("images query: %v", err)
	}
	if vids, err := l.media.List(ctx, repository.ListOptions{Sort: sortMode, Kind: repository.KindVideos}); err == nil {
		l.videos.Publish(vids)
	} else {
		l.log.Errorf("videos query: %v", err)
	}
	if byAlbum, err := l.media.List(ctx, repository.ListOptions{Sort: sortMode, BucketID: albumFilter}); err == nil {
		l.albumMedia.Publish(byAlbum)
	} else {
		l.log.Errorf("album query: %v", err)
	}
	if favs, err := l.media.List(ctx, repository.ListOptions{Sort: sortMode, FavoritesOnly: true}); err == nil {
		l.favoritesV.Publish(favs)
	} else {
		l.log.Errorf("favorites query: %v", err)
	}

	l.grouped.Publish(GroupItems(all, groupMode, l.now(), l.locationFor))

	albums := BuildAlbums(all)
	l.albums.Publish(albums)
	l.categorized.Publish(Categorize(albums))

	// An active search tracks store changes too, without the keystroke
	// debounce.
	if searchText != "" {
		l.runSearch(ctx, searchText, l.searchGen.Load())
	}
}

// runSearch executes the detection pass and the routed query variant, then
// publishes unless a newer search superseded this one.
func (l *Library) runSearch(ctx context.Context, text string, gen uint64) {
	ctx, span := observability.StartServiceSpan(ctx, "library", "search")
	defer span.End()

	filters := DetectFilters(text, l.now(), l.weekStart)
	route := Resolve(filters)

	l.mu.Lock()
	sortMode := l.sortMode
	l.mu.Unlock()
	route.Options.Sort = sortMode

	// Label-guess: a plain text query whose term matches accumulated ML
	// labels widens to those ids.
	if route.UseLabels {
		if ids, err := l.labels.SearchIDs(ctx, filters.Residual); err == nil && len(ids) > 0 {
			labelIDs := make([]int64, 0, len(ids))
			for id := range ids {
				labelIDs = append(labelIDs, id)
			}
			route.Options.LabelIDs = labelIDs
			route.Name = "label"
		}
	}

	items, err := l.media.List(ctx, route.Options)
	if err != nil {
		observability.RecordError(span, err)
		l.log.Errorf("search %q (%s): %v", text, route.Name, err)
		return
	}

	// A superseded search never publishes partial or stale results.
	if l.searchGen.Load() != gen {
		return
	}
	l.log.Debugf("search %q routed to %s: %d results", text, route.Name, len(items))
	l.searchV.Publish(items)
	observability.SetSuccess(span)
}
