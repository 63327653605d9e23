package query

import (
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Параметры URL, которыми владеет контроллер.
const (
	ParamSkip      = "skip"
	ParamLimit     = "limit"
	ParamSearch    = "search"
	ParamSortBy    = "sortBy"
	ParamSortOrder = "sortOrder"
	ParamTag       = "tag"
)

// Encode сериализует состояние; параметры со значением по умолчанию опускаются.
// Это чистая функция состояния.
func Encode(s State) url.Values {
	v := url.Values{}
	if s.Skip != 0 {
		v.Set(ParamSkip, strconv.Itoa(s.Skip))
	}
	if s.Limit != DefaultLimit {
		v.Set(ParamLimit, strconv.Itoa(s.Limit))
	}
	if s.Search != "" {
		v.Set(ParamSearch, s.Search)
	}
	if s.SortBy != "" {
		v.Set(ParamSortBy, s.SortBy)
	}
	if s.SortOrder != DefaultSortOrder {
		v.Set(ParamSortOrder, s.SortOrder)
	}
	if s.Tag != "" {
		v.Set(ParamTag, s.Tag)
	}
	return v
}

// Decode разбирает параметры URL. Некорректные значения заменяются
// значениями по умолчанию, поэтому результат всегда проходит Validate.
func Decode(v url.Values, log *slog.Logger) State {
	if log == nil {
		log = slog.Default()
	}
	s := DefaultState()

	if raw := v.Get(ParamSkip); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			s.Skip = n
		} else {
			log.Warn("ignoring invalid url param", "param", ParamSkip, "value", raw)
		}
	}
	if raw := v.Get(ParamLimit); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && slices.Contains(LimitMenu, n) {
			s.Limit = n
		} else {
			log.Warn("ignoring invalid url param", "param", ParamLimit, "value", raw)
		}
	}
	s.Search = v.Get(ParamSearch)
	s.Tag = v.Get(ParamTag)
	if raw := v.Get(ParamSortBy); raw != "" {
		if slices.Contains(SortKeys, raw) {
			s.SortBy = raw
		} else {
			log.Warn("ignoring invalid url param", "param", ParamSortBy, "value", raw)
		}
	}
	if raw := v.Get(ParamSortOrder); raw != "" {
		if raw == "asc" || raw == "desc" {
			s.SortOrder = raw
		} else {
			log.Warn("ignoring invalid url param", "param", ParamSortOrder, "value", raw)
		}
	}
	return s
}

// ParseLocation разбирает строку запроса ("?skip=10&tag=love" или полный URL).
func ParseLocation(location string, log *slog.Logger) (State, error) {
	raw := location
	if i := strings.IndexByte(location, '?'); i >= 0 {
		raw = location[i+1:]
	} else if strings.Contains(location, "://") || strings.HasPrefix(location, "/") {
		raw = ""
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	v, err := url.ParseQuery(raw)
	if err != nil {
		return DefaultState(), err
	}
	return Decode(v, log), nil
}
