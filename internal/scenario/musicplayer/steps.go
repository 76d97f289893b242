// Package musicplayer defines the fixed end-to-end scenario for the music
// player application: navigation, search, playback control, lyrics, tab
// switching and responsive layout checks.
package musicplayer

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/encore-e2e/internal/scenario"
)

// Fixed settle delays, used where the UI renders asynchronously with no
// observable completion signal. Known imprecision, kept named and tunable
// in one place.
const (
	homepageSettle      = 2 * time.Second
	notificationSettle  = 3 * time.Second
	searchResultsSettle = 5 * time.Second
	songLoadSettle      = 5 * time.Second
	toggleSettle        = 1 * time.Second
	trackChangeSettle   = 3 * time.Second
	favoriteSettle      = 1 * time.Second
	tabSettle           = 1 * time.Second
	viewportSettle      = 2 * time.Second
)

// Keys published into the run state for later steps' preconditions.
const (
	keySearchCount = "search.count"
)

// Steps returns the main scenario in execution order. searchTerm is the
// artist typed into the search box.
func Steps(searchTerm string) []scenario.Step {
	return []scenario.Step{
		{
			Key:        "homepage",
			Label:      "Load homepage",
			Screenshot: true,
			Action: func(ctx context.Context, pg scenario.Page, run *scenario.RunState) (string, error) {
				if err := pg.Sleep(ctx, homepageSettle); err != nil {
					return "", err
				}
				missing := ""
				if err := pg.WaitVisible(ctx, "#searchInput"); err != nil {
					missing += " search-input-missing"
				}
				if err := pg.WaitVisible(ctx, "#playBtn"); err != nil {
					missing += " play-button-missing"
				}
				title, err := pg.Title(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("homepage loaded (title: %s)%s", title, missing), nil
			},
		},
		{
			Key:      "notification",
			Label:    "Check API notification",
			Optional: true,
			Action: func(ctx context.Context, pg scenario.Page, run *scenario.RunState) (string, error) {
				if err := pg.Sleep(ctx, notificationSettle); err != nil {
					return "", err
				}
				text, err := pg.Text(ctx, ".notification")
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("notification: %s", text), nil
			},
		},
		{
			Key:        "search",
			Label:      "Search for songs",
			Screenshot: true,
			Action: func(ctx context.Context, pg scenario.Page, run *scenario.RunState) (string, error) {
				if err := pg.Fill(ctx, "#searchInput", searchTerm); err != nil {
					return "", err
				}
				if err := pg.Click(ctx, ".search-btn"); err != nil {
					return "", err
				}
				if err := pg.Sleep(ctx, searchResultsSettle); err != nil {
					return "", err
				}
				count, err := pg.Count(ctx, ".song-item")
				if err != nil {
					return "", err
				}
				run.Put(keySearchCount, count)
				return fmt.Sprintf("found %d songs for %q", count, searchTerm), nil
			},
		},
		{
			Key:        "play",
			Label:      "Play first search result",
			Screenshot: true,
			Requires: &scenario.Precondition{
				Step:   "search",
				Check:  func(run *scenario.RunState) bool { return run.Int(keySearchCount) > 0 },
				Reason: "search returned no results",
			},
			Action: func(ctx context.Context, pg scenario.Page, run *scenario.RunState) (string, error) {
				if err := pg.Click(ctx, "#searchResults .song-item"); err != nil {
					return "", err
				}
				if err := pg.Sleep(ctx, songLoadSettle); err != nil {
					return "", err
				}
				icon, _, err := pg.Attribute(ctx, "#playBtn i", "class")
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("playback started (play button: %s)", icon), nil
			},
		},
		{
			Key:      "nowplaying",
			Label:    "Read now-playing info",
			Optional: true,
			Requires: &scenario.Precondition{Step: "play", Reason: "no song is playing"},
			Action: func(ctx context.Context, pg scenario.Page, run *scenario.RunState) (string, error) {
				title, err := pg.Text(ctx, "#currentTitle")
				if err != nil {
					return "", err
				}
				artist, err := pg.Text(ctx, "#currentArtist")
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("now playing: %s - %s", title, artist), nil
			},
		},
		{
			Key:      "lyrics",
			Label:    "Check lyrics display",
			Requires: &scenario.Precondition{Step: "play", Reason: "no song is playing"},
			Action: func(ctx context.Context, pg scenario.Page, run *scenario.RunState) (string, error) {
				lines, err := pg.Count(ctx, "#lyricsContainer .lyric-line")
				if err != nil {
					return "", err
				}
				translations, err := pg.Count(ctx, "#lyricsContainer .lyric-translation")
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("lyric lines: %d, translated lines: %d", lines, translations), nil
			},
		},
		{
			Key:      "playpause",
			Label:    "Toggle play/pause",
			Requires: &scenario.Precondition{Step: "play", Reason: "no song is playing"},
			Action: func(ctx context.Context, pg scenario.Page, run *scenario.RunState) (string, error) {
				if err := pg.Click(ctx, "#playBtn"); err != nil {
					return "", err
				}
				if err := pg.Sleep(ctx, toggleSettle); err != nil {
					return "", err
				}
				paused, _, err := pg.Attribute(ctx, "#playBtn i", "class")
				if err != nil {
					return "", err
				}
				if err := pg.Click(ctx, "#playBtn"); err != nil {
					return "", err
				}
				if err := pg.Sleep(ctx, toggleSettle); err != nil {
					return "", err
				}
				resumed, _, err := pg.Attribute(ctx, "#playBtn i", "class")
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("paused: %s, resumed: %s", paused, resumed), nil
			},
		},
		{
			Key:        "next",
			Label:      "Skip to next track",
			Optional:   true,
			Screenshot: true,
			Requires:   &scenario.Precondition{Step: "play", Reason: "no song is playing"},
			Settle:     trackChangeSettle,
			Action: func(ctx context.Context, pg scenario.Page, run *scenario.RunState) (string, error) {
				if err := pg.Click(ctx, "#nextBtn"); err != nil {
					return "", err
				}
				return "advanced to next track", nil
			},
		},
		{
			Key:        "favorite",
			Label:      "Favorite current track",
			Optional:   true,
			Screenshot: true,
			Requires:   &scenario.Precondition{Step: "play", Reason: "no song is playing"},
			Settle:     favoriteSettle,
			Action: func(ctx context.Context, pg scenario.Page, run *scenario.RunState) (string, error) {
				if err := pg.Click(ctx, "#playerFavoriteBtn"); err != nil {
					return "", err
				}
				return "track favorited", nil
			},
		},
		tabStep("tab_ranking", "Switch to ranking tab", "ranking"),
		tabStep("tab_playlist", "Switch to playlist tab", "playlist"),
		tabStep("tab_my", "Switch to my-music tab", "my"),
	}
}

func tabStep(key, label, tab string) scenario.Step {
	selector := fmt.Sprintf(`button[data-tab=%q]`, tab)
	return scenario.Step{
		Key:        key,
		Label:      label,
		Screenshot: true,
		Settle:     tabSettle,
		Action: func(ctx context.Context, pg scenario.Page, run *scenario.RunState) (string, error) {
			if err := pg.Click(ctx, selector); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s tab active", tab), nil
		},
	}
}

// ViewportSteps returns the single-step scenario used for a responsive
// layout check in a fresh session at an alternate viewport size.
func ViewportSteps(name string) []scenario.Step {
	return []scenario.Step{
		{
			Key:        fmt.Sprintf("%s_view", name),
			Label:      fmt.Sprintf("Responsive layout (%s)", name),
			Screenshot: true,
			Settle:     viewportSettle,
			Action: func(ctx context.Context, pg scenario.Page, run *scenario.RunState) (string, error) {
				title, err := pg.Title(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%s view rendered (title: %s)", name, title), nil
			},
		},
	}
}
