// Package schedule renders the registry's availability windows as an
// iCalendar feed and serves it over HTTP on localhost, so teachers can
// subscribe to the opening times from a regular calendar client.
package schedule

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/registry"
)

// TitleFunc resolves an app identifier to its localized display name.
type TitleFunc func(appID string) string

// BuildFeed renders one VEVENT per registered window. The feed carries
// absolute UTC times; calendar clients localize for display.
func BuildFeed(entries []registry.Entry, titleFor TitleFunc) ([]byte, error) {
	if len(entries) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(time.Now().UTC())

	for _, e := range entries {
		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, e.AppID, config.ICalDomain))

		summary := e.AppID
		if titleFor != nil {
			summary = titleFor(e.AppID)
		}
		event.Props.SetText(config.PropSummary, summary)

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDateTime(e.Window.Start)
		event.Props.Set(dtStartProp)

		dtEndProp := ical.NewProp(config.PropDTEnd)
		dtEndProp.SetDateTime(e.Window.End)
		event.Props.Set(dtEndProp)

		event.Props.Set(dtStampProp)
		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}
