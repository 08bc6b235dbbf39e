package ai

import (
	"fmt"
	"strings"

	"github.com/fiercfly/proteinHunt/internal/models"
	"github.com/fiercfly/proteinHunt/internal/util"
)

const messageSeparator = "\n\n---\n\n"

const systemPrompt = `You parse posts for an Indian protein and supplement deals site.
Posts come from Telegram channels and fitness subreddits. You will receive N numbered
messages. Reply with a JSON array of exactly N objects, in the same order as the messages.

Links and images:
- Only return "link" or "image" when that exact URL appears verbatim in the message.
- Never guess, complete or construct a URL. Use null when none is present.

Fields for each object:
- "isDeal": true for any post about a protein or supplement product (deals, restocks,
  price drops, reviews, freebies, brand updates). false for off-topic posts, spam and
  channel promotion.
- "postType": one of "Deal", "Restock", "PriceDrop", "Review", "Freebie", "Update", "Other".
- "title": clean product name without emojis, at most 100 characters.
- "brand": brand name, or null.
- "store": retailer name (Amazon, Flipkart, Healthkart, ...), or null.
- "price": offer price in INR as a plain number, or null.
- "originalPrice": MRP in INR as a plain number, or null.
- "discount": percentage off as a plain number; compute it from the prices when not stated; null if unknown.
- "link": product URL from the message, or null.
- "image": direct image URL (.jpg, .jpeg, .png, .webp) from the message, or null.
- "keyFeatures": up to 3 short strings such as "1kg" or "24g protein/serving"; [] if none.
- "description": one sentence summary, or null.

Output only the JSON array. No markdown fences, no commentary.`

// buildPrompt renders one batch as numbered, channel-labelled blocks, each
// clipped to maxChars.
func buildPrompt(msgs []models.RawMessage, maxChars int) string {
	blocks := make([]string, len(msgs))
	for i, m := range msgs {
		channel := m.SourceChannel
		if channel == "" {
			channel = "unknown"
		}
		blocks[i] = fmt.Sprintf("MSG_%d [%s]:\n%s", i+1, channel, util.Clip(m.RawText, maxChars))
	}
	return fmt.Sprintf("Parse these %d messages:\n\n%s", len(msgs), strings.Join(blocks, messageSeparator))
}
