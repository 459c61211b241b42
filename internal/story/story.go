// Package story holds the story records the pipeline narrates and the text
// transforms applied to them before synthesis.
package story

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZacxDev/story-reels/internal/config"
	"github.com/yuin/goldmark"
)

// Story is one fetched post. It is not modified after fetching.
type Story struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Score    int    `json:"score"`
	Comments int    `json:"comments"`
}

const expandedAITA = "Am I the Asshole?"

var (
	urlRe    = regexp.MustCompile(`https?://\S+`)
	aitaRe   = regexp.MustCompile(`(?i)\bAITAH?\b\??`)
	prefixRe = regexp.MustCompile(`(?i)^am i the asshole\??\s+(?:for\s+)?`)
	unsafeRe = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// CleanText renders markdown to plain text, drops links, collapses
// whitespace and spells out the AITA acronym.
func CleanText(s string) string {
	s = markdownToText(s)
	s = urlRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return aitaRe.ReplaceAllString(s, expandedAITA)
}

func markdownToText(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return md
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return md
	}
	return doc.Text()
}

// Clean returns a copy with title and body cleaned.
func (s Story) Clean() Story {
	s.Title = CleanText(s.Title)
	s.Body = CleanText(s.Body)
	return s
}

// Narration is the text read aloud: the title, then the body.
func (s Story) Narration() string {
	title := strings.TrimSpace(s.Title)
	body := strings.TrimSpace(s.Body)
	switch {
	case title == "":
		return body
	case body == "":
		return title
	case strings.ContainsAny(title[len(title)-1:], ".?!"):
		return title + " " + body
	default:
		return title + ". " + body
	}
}

// ShortTitle strips the leading "Am I the Asshole for" question.
func ShortTitle(title string) string {
	return strings.TrimSpace(prefixRe.ReplaceAllString(strings.TrimSpace(title), ""))
}

// Slug derives the shared base filename for a story's artifacts.
func (s Story) Slug() string {
	if slug := Slug(s.Title); slug != "" {
		return slug
	}
	return Slug(s.ID)
}

// Slug makes a lowercase, underscore-joined, filesystem-safe name from title.
func Slug(title string) string {
	s := ShortTitle(CleanText(title))
	s = unsafeRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(strings.TrimSpace(s), "_")
	s = truncateRunes(s, config.MaxSlugLength)
	return strings.ToLower(strings.Trim(s, "_"))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
