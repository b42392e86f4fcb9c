package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/photonav/gallery/internal/repository"
)

// TypeFilter is an explicit media-class keyword detected in a query.
type TypeFilter int

const (
	TypeNone TypeFilter = iota
	TypeVideo
	TypePhoto
)

// SpecialRoute is one of the keyword routes that bypass generic type
// filtering: screenshots, camera captures, GIFs, and label-guess.
type SpecialRoute int

const (
	SpecialNone SpecialRoute = iota
	SpecialScreenshot
	SpecialCamera
	SpecialGIF
	SpecialLabel
)

// SizeFilter buckets a size keyword.
type SizeFilter int

const (
	SizeNone   SizeFilter = iota
	SizeSmall             // 0-5MB
	SizeMedium            // 5-100MB
	SizeLarge             // >100MB
)

const (
	mb         = int64(1024 * 1024)
	sizeSmall  = 5 * mb
	sizeMedium = 100 * mb
)

// DateRange is a concrete [StartMs, EndMs) window resolved at detection
// time.
type DateRange struct {
	StartMs int64
	EndMs   int64
}

// Filters is the outcome of the detection pass over a raw query string.
type Filters struct {
	Type     TypeFilter
	Special  SpecialRoute
	Size     SizeFilter
	Date     *DateRange
	Residual string
}

// HasAny reports whether anything beyond plain text was detected.
func (f *Filters) HasAny() bool {
	return f.Type != TypeNone || f.Special != SpecialNone || f.Size != SizeNone || f.Date != nil
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var stopwords = map[string]bool{
	"from": true, "in": true, "on": true, "the": true, "a": true, "an": true,
}

// DetectFilters lowercases the query and independently detects date, type,
// and size filters plus the residual free text. now anchors all relative
// date words; weekStart is the locale's first day of week.
func DetectFilters(raw string, now time.Time, weekStart time.Weekday) Filters {
	q := strings.ToLower(strings.TrimSpace(raw))
	var f Filters

	consumed := map[string]bool{}
	tokens := strings.Fields(q)

	// Date: multi-word phrases first, then single tokens.
	f.Date, f.Residual = detectDate(q, tokens, now, weekStart, consumed)

	// Type keywords by substring containment; explicit keywords take
	// precedence over the filename-pattern special routes.
	switch {
	case strings.Contains(q, "video"):
		f.Type = TypeVideo
		consumed["video"] = true
		consumed["videos"] = true
	case strings.Contains(q, "photo"), strings.Contains(q, "image"):
		f.Type = TypePhoto
		for _, w := range []string{"photo", "photos", "image", "images"} {
			consumed[w] = true
		}
	}
	switch {
	case strings.Contains(q, "screenshot"):
		f.Special = SpecialScreenshot
		consumed["screenshot"] = true
		consumed["screenshots"] = true
	case strings.Contains(q, "camera"), strings.Contains(q, "dcim"):
		f.Special = SpecialCamera
		consumed["camera"] = true
		consumed["dcim"] = true
	case strings.Contains(q, "gif"):
		f.Special = SpecialGIF
		consumed["gif"] = true
		consumed["gifs"] = true
	}

	switch {
	case strings.Contains(q, "small"):
		f.Size = SizeSmall
		consumed["small"] = true
	case strings.Contains(q, "medium"):
		f.Size = SizeMedium
		consumed["medium"] = true
	case strings.Contains(q, "large"), strings.Contains(q, "big"):
		f.Size = SizeLarge
		consumed["large"] = true
		consumed["big"] = true
	}

	// Residual: everything not recognized, stopwords dropped, whitespace
	// collapsed.
	var rest []string
	for _, t := range strings.Fields(f.Residual) {
		if consumed[t] || stopwords[t] {
			continue
		}
		rest = append(rest, t)
	}
	f.Residual = strings.Join(rest, " ")

	return f
}

// detectDate resolves date phrases and tokens to a concrete range and
// returns the query with the matched phrase removed.
func detectDate(q string, tokens []string, now time.Time, weekStart time.Weekday, consumed map[string]bool) (*DateRange, string) {
	midnight := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
	ms := func(t time.Time) int64 { return t.UnixMilli() }

	startOfWeek := func(t time.Time) time.Time {
		d := midnight(t)
		for d.Weekday() != weekStart {
			d = d.AddDate(0, 0, -1)
		}
		return d
	}

	phrases := []struct {
		phrase string
		rng    func() DateRange
	}{
		{"this week", func() DateRange {
			return DateRange{ms(startOfWeek(now)), ms(now)}
		}},
		{"last week", func() DateRange {
			end := startOfWeek(now)
			return DateRange{ms(end.AddDate(0, 0, -7)), ms(end)}
		}},
		{"this month", func() DateRange {
			y, m, _ := now.Date()
			return DateRange{ms(time.Date(y, m, 1, 0, 0, 0, 0, now.Location())), ms(now)}
		}},
		{"last month", func() DateRange {
			y, m, _ := now.Date()
			first := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
			return DateRange{ms(first.AddDate(0, -1, 0)), ms(first)}
		}},
		{"today", func() DateRange {
			start := midnight(now)
			return DateRange{ms(start), ms(start.AddDate(0, 0, 1))}
		}},
		{"yesterday", func() DateRange {
			end := midnight(now)
			return DateRange{ms(end.AddDate(0, 0, -1)), ms(end)}
		}},
	}

	for _, p := range phrases {
		if strings.Contains(q, p.phrase) {
			r := p.rng()
			return &r, strings.ReplaceAll(q, p.phrase, " ")
		}
	}

	for _, t := range tokens {
		// 4-digit years within the supported window
		if len(t) == 4 {
			if y, err := strconv.Atoi(t); err == nil && y >= 2010 && y <= 2029 {
				start := time.Date(y, 1, 1, 0, 0, 0, 0, now.Location())
				consumed[t] = true
				return &DateRange{ms(start), ms(start.AddDate(1, 0, 0))}, q
			}
		}
		if m, ok := monthNames[t]; ok {
			year := now.Year()
			// A bare month name means the most recent occurrence.
			if m > now.Month() {
				year--
			}
			start := time.Date(year, m, 1, 0, 0, 0, 0, now.Location())
			consumed[t] = true
			return &DateRange{ms(start), ms(start.AddDate(0, 1, 0))}, q
		}
	}

	return nil, q
}

// Route is one resolved query variant: the list options to run plus
// whether the residual term should also match ML labels.
type Route struct {
	Name      string
	Options   repository.ListOptions
	UseLabels bool
}

// routeKey is the detected-filter combination driving the decision table.
type routeKey struct {
	special SpecialRoute
	hasType bool
	hasSize bool
	hasDate bool
}

// routeName is data, not branching: the combination of detected filter
// kinds maps to the variant name used for logging and tests.
var routeNames = map[routeKey]string{
	{SpecialScreenshot, false, false, false}: "screenshot",
	{SpecialCamera, false, false, false}:     "camera",
	{SpecialGIF, false, false, false}:        "gif",
	{SpecialNone, true, true, true}:          "type+size+date",
	{SpecialNone, true, false, true}:         "type+date",
	{SpecialNone, true, true, false}:         "type+size",
	{SpecialNone, false, true, true}:         "size+date",
	{SpecialNone, true, false, false}:        "type",
	{SpecialNone, false, true, false}:        "size",
	{SpecialNone, false, false, true}:        "date",
	{SpecialNone, false, false, false}:       "text",
}

// Resolve maps detected filters to the query variant that serves them.
// Special keyword routes short-circuit the general combinator but still
// carry any size/date bounds detected alongside them.
func Resolve(f Filters) Route {
	opts := repository.ListOptions{}

	switch f.Size {
	case SizeSmall:
		opts.MaxSize = sizeSmall
	case SizeMedium:
		opts.MinSize = sizeSmall
		opts.MaxSize = sizeMedium
	case SizeLarge:
		opts.MinSize = sizeMedium
	}
	if f.Date != nil {
		opts.DateStartMs = f.Date.StartMs
		opts.DateEndMs = f.Date.EndMs
	}
	if f.Residual != "" {
		opts.NameLike = f.Residual
	}

	// Special routes take priority over the combinator.
	switch f.Special {
	case SpecialScreenshot:
		opts.Kind = repository.KindImages
		opts.PathLike = "screenshot"
		return Route{Name: routeNames[routeKey{SpecialScreenshot, false, false, false}], Options: opts}
	case SpecialCamera:
		opts.PathLike = "dcim"
		return Route{Name: routeNames[routeKey{SpecialCamera, false, false, false}], Options: opts}
	case SpecialGIF:
		opts.GIFOnly = true
		return Route{Name: routeNames[routeKey{SpecialGIF, false, false, false}], Options: opts}
	}

	switch f.Type {
	case TypeVideo:
		opts.Kind = repository.KindVideos
	case TypePhoto:
		opts.Kind = repository.KindImages
	}

	key := routeKey{SpecialNone, f.Type != TypeNone, f.Size != SizeNone, f.Date != nil}
	return Route{
		Name:      routeNames[key],
		Options:   opts,
		UseLabels: f.Residual != "",
	}
}
