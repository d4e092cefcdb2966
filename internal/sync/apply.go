package sync

import (
	"fmt"
	"strconv"

	"github.com/bgmd/bgmd/internal/remote"
	"github.com/bgmd/bgmd/internal/store"
	"github.com/bgmd/bgmd/pkg/logger"
)

// buildUpdate translates the remote configuration payload into the
// store's normalized update. Weekday assignments become WEEKDAY_1..7
// entries, each holiday date gets its own entry sharing the holiday
// window list, and specials keep their literal dates.
func buildUpdate(version string, cfg *remote.Configuration, log logger.Logger) store.ConfigUpdate {
	update := store.ConfigUpdate{Version: version}

	for _, s := range cfg.Resources {
		update.Songs = append(update.Songs, store.Song{
			ID:    s.ID,
			Title: s.Title,
			MD5:   s.MD5,
			URL:   s.URL,
			Size:  s.Size,
		})
	}

	for key, windows := range cfg.Assignments.Weekdays {
		day, err := strconv.Atoi(key)
		if err != nil || day < 1 || day > 7 {
			log.Warning("sync: skipping weekday assignment with bad key %q", key)
			continue
		}
		update.Schedules = append(update.Schedules, store.ScheduleEntry{
			DateKey:  fmt.Sprintf("WEEKDAY_%d", day),
			Priority: store.PriorityWeekday,
			Windows:  toWindows(windows),
		})
	}

	if len(cfg.Assignments.Holidays) > 0 {
		for _, date := range cfg.HolidayDates {
			update.Schedules = append(update.Schedules, store.ScheduleEntry{
				DateKey:  date,
				Priority: store.PriorityHoliday,
				Windows:  toWindows(cfg.Assignments.Holidays),
			})
		}
	}

	for date, windows := range cfg.Assignments.Specials {
		update.Schedules = append(update.Schedules, store.ScheduleEntry{
			DateKey:  date,
			Priority: store.PrioritySpecial,
			Windows:  toWindows(windows),
		})
	}

	for key, spec := range cfg.Playlists {
		id, err := strconv.Atoi(key)
		if err != nil {
			log.Warning("sync: skipping playlist with non-numeric id %q", key)
			continue
		}
		mode := store.ModeSequence
		if spec.Mode == "random" {
			mode = store.ModeRandom
		}
		update.Playlists = append(update.Playlists, store.Playlist{
			ID:      id,
			Name:    "Playlist_" + key,
			Mode:    mode,
			SongIDs: append([]int(nil), spec.IDs...),
		})
	}

	return update
}

func toWindows(in []remote.TimeWindow) []store.TimeWindow {
	out := make([]store.TimeWindow, 0, len(in))
	for _, w := range in {
		out = append(out, store.TimeWindow{Start: w.Start, End: w.End, PlaylistID: w.PlaylistID})
	}
	return out
}
