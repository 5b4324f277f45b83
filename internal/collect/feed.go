package collect

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/ClicheCounter/internal/database"
)

// minInlineTranscript is the length above which feed item content is
// taken as the transcript itself.
const minInlineTranscript = 500

// PlaylistEntry represents one video or episode of a playlist feed.
type PlaylistEntry struct {
	URL           string
	VideoID       string
	Title         string
	PublishedDate string // YYYY-MM-DD or empty
	Text          string // inline transcript, if the feed carries one
	Organization  string
	Speaker       string
	Label         string
}

func (e PlaylistEntry) transcript() database.Transcript {
	t := database.Transcript{
		URL:          e.URL,
		Organization: e.Organization,
		Source:       database.SourcePlaylist,
	}
	if e.VideoID != "" {
		t.VideoID = &e.VideoID
	}
	if e.Speaker != "" {
		t.Speaker = &e.Speaker
	}
	label := e.Label
	if label == "" {
		label = e.Title
	}
	if label != "" {
		t.Label = &label
	}
	if e.PublishedDate != "" {
		t.PublishedDate = &e.PublishedDate
	}
	if e.Text != "" {
		t.Text = &e.Text
	}
	return t
}

// Playlist represents a single playlist feed configuration.
type Playlist struct {
	URL          string
	Organization string
	Speaker      string
	Label        string
}

// PlaylistParser parses playlist feeds (YouTube playlist RSS, podcast
// RSS, Atom).
type PlaylistParser struct {
	playlists []Playlist
	timeout   time.Duration
}

// NewPlaylistParser creates a new PlaylistParser.
func NewPlaylistParser(playlists []Playlist) *PlaylistParser {
	return &PlaylistParser{playlists: playlists, timeout: 30 * time.Second}
}

// ParseAll parses all configured playlists. A failing feed is logged and
// skipped.
func (pp *PlaylistParser) ParseAll(ctx context.Context) []PlaylistEntry {
	var all []PlaylistEntry

	parser := gofeed.NewParser()
	for _, pl := range pp.playlists {
		fctx, cancel := context.WithTimeout(ctx, pp.timeout)
		entries, err := parsePlaylist(fctx, parser, pl)
		cancel()
		if err != nil {
			log.Printf("Failed to parse playlist %s: %v", pl.URL, err)
			continue
		}
		all = append(all, entries...)
		log.Printf("Parsed %d entries for %s", len(entries), pl.Organization)
	}

	return all
}

func parsePlaylist(ctx context.Context, parser *gofeed.Parser, pl Playlist) ([]PlaylistEntry, error) {
	feed, err := parser.ParseURLWithContext(pl.URL, ctx)
	if err != nil {
		return nil, err
	}

	var entries []PlaylistEntry
	for _, item := range feed.Items {
		entry := parseItem(item, pl)
		if entry == nil {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func parseItem(item *gofeed.Item, pl Playlist) *PlaylistEntry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.UTC().Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.UTC().Format("2006-01-02")
	}

	var text string
	if content := stripHTML(item.Content); len(content) >= minInlineTranscript {
		text = content
	}

	return &PlaylistEntry{
		URL:           itemURL,
		VideoID:       videoID(item),
		Title:         strings.TrimSpace(item.Title),
		PublishedDate: publishedDate,
		Text:          text,
		Organization:  pl.Organization,
		Speaker:       pl.Speaker,
		Label:         pl.Label,
	}
}

// videoID returns the YouTube video ID from the yt:videoId extension or
// the watch URL.
func videoID(item *gofeed.Item) string {
	if yt, ok := item.Extensions["yt"]; ok {
		if ids := yt["videoId"]; len(ids) > 0 && ids[0].Value != "" {
			return ids[0].Value
		}
	}
	u, err := url.Parse(item.Link)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}

func stripHTML(text string) string {
	// Simple HTML tag removal
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	// Decode common entities
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	// Normalize whitespace
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
