package bot

import (
	"context"
	"fmt"
	"regexp"

	"AviaxMusic/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// https://golang.org/s/re2syntax
var ytRe = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/|youtube\.com/live/)([0-9A-Za-z_-]+)`)

// extractVideoID pulls the video ID out of a YouTube link.
func extractVideoID(s string) (string, bool) {
	m := ytRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// handleInline answers inline queries with YouTube search results. Picking
// one pastes a /play command for the chosen video into the chat.
func (b *Bot) handleInline(ctx context.Context, q *tgbotapi.InlineQuery) {
	if q.Query == "" {
		return
	}

	results, err := b.resolver.Search(ctx, q.Query, 10)
	if err != nil {
		logger.Warn("inline search failed", logger.String("query", q.Query), logger.ErrorField(err))
		return
	}

	articles := make([]interface{}, 0, len(results))
	for i, res := range results {
		article := tgbotapi.NewInlineQueryResultArticle(
			fmt.Sprintf("%s-%d", q.ID, i),
			res.Title,
			fmt.Sprintf("/play https://youtu.be/%s", res.VidID),
		)
		article.Description = res.Channel
		article.ThumbURL = res.Thumbnail
		articles = append(articles, article)
	}

	answer := tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       articles,
		CacheTime:     60,
	}
	if _, err := b.api.Request(answer); err != nil {
		logger.Warn("inline answer failed", logger.ErrorField(err))
	}
}
