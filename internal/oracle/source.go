package oracle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/tartampluch/go-coursebox/internal/config"
)

// Format selects the parser for a time source's response body. The shapes
// cover the public time APIs the launcher has shipped with: a JSON-wrapped
// millisecond timestamp, a second-granular datetime string, a loosely
// formatted JSON-ish body carrying a unix timestamp, and an RFC 3339 field.
type Format string

const (
	FormatUnixMilliJSON Format = "unix_milli_json"
	FormatSysTimeJSON   Format = "systime_json"
	FormatUnixRegex     Format = "unix_regex"
	FormatRFC3339JSON   Format = "rfc3339_json"
)

// Source describes one remote time endpoint. Sources are tried in list order.
type Source struct {
	Name   string
	URL    string
	Format Format

	// TZ names the location second-granular datetime strings are expressed
	// in. Empty means UTC.
	TZ string

	// Username enables HTTP basic auth for institution-hosted endpoints; the
	// password is resolved from the OS keyring at fetch time.
	Username string
}

// DefaultSources lists the built-in endpoints, fastest and most reliable
// first. Commerce time APIs answer in tens of milliseconds domestically; the
// worldtime endpoint is the slow international fallback.
func DefaultSources() []Source {
	return []Source{
		{
			Name:   "taobao",
			URL:    "http://api.m.taobao.com/rest/api3.do?api=mtop.common.getTimestamp",
			Format: FormatUnixMilliJSON,
		},
		{
			Name:   "suning",
			URL:    "http://quan.suning.com/getSysTime.do",
			Format: FormatSysTimeJSON,
			TZ:     "Asia/Shanghai",
		},
		{
			Name:   "tencent",
			URL:    "http://vv.video.qq.com/checktime?otype=json",
			Format: FormatUnixRegex,
		},
		{
			Name:   "worldtime",
			URL:    "http://worldtimeapi.org/api/timezone/Etc/UTC",
			Format: FormatRFC3339JSON,
		},
	}
}

var unixSecondsPattern = regexp.MustCompile(`"t":\s*(\d+)`)

// parseResponse converts a raw response body into a UTC timestamp according
// to the source's declared format.
func parseResponse(src Source, body []byte) (time.Time, error) {
	switch src.Format {
	case FormatUnixMilliJSON:
		// {"data": {"t": "<milliseconds>"}}
		var doc struct {
			Data struct {
				T string `json:"t"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", config.ErrTimeParse, err)
		}
		ms, err := strconv.ParseInt(doc.Data.T, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", config.ErrTimeParse, err)
		}
		return time.UnixMilli(ms).UTC(), nil

	case FormatSysTimeJSON:
		// {"sysTime2": "2006-01-02 15:04:05", ...} in the source's location.
		var doc struct {
			SysTime2 string `json:"sysTime2"`
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", config.ErrTimeParse, err)
		}
		loc, err := sourceLocation(src)
		if err != nil {
			return time.Time{}, err
		}
		ts, err := time.ParseInLocation(config.TimeLayoutSysTime, doc.SysTime2, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", config.ErrTimeParse, err)
		}
		return ts.UTC(), nil

	case FormatUnixRegex:
		// Body may be JSONP-wrapped; extract the first "t":<seconds> pair.
		m := unixSecondsPattern.FindSubmatch(body)
		if m == nil {
			return time.Time{}, fmt.Errorf("%s: no timestamp in body", config.ErrTimeParse)
		}
		secs, err := strconv.ParseInt(string(m[1]), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", config.ErrTimeParse, err)
		}
		return time.Unix(secs, 0).UTC(), nil

	case FormatRFC3339JSON:
		// {"datetime": "2024-01-01T12:00:00.123456+00:00", ...}
		var doc struct {
			Datetime string `json:"datetime"`
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", config.ErrTimeParse, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, doc.Datetime)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", config.ErrTimeParse, err)
		}
		return ts.UTC(), nil

	default:
		return time.Time{}, fmt.Errorf("%s: unknown format %q", config.ErrTimeParse, src.Format)
	}
}

func sourceLocation(src Source) (*time.Location, error) {
	if src.TZ == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(src.TZ)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrTimeParse, err)
	}
	return loc, nil
}
