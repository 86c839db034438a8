package decide

import (
	"fmt"
	"os"
	"strings"

	"github.com/TobiSchelling/tweetcurator/internal/database"
)

// BaseInstructions is the built-in judge brief.
const BaseInstructions = `You curate tweets about software engineering and AI for a quote-tweet account.

For each tweet you are given, decide whether it is worth quote-tweeting.

If it is NOT worth it, reply with a single line starting with "Rejected:" followed by a short reason.

If it IS worth it, reply with the quote text to post (at most 280 characters, no hashtags, no emojis), then on its own final line:
Percentile: N

where N is an integer from 0 to 100 estimating how this tweet ranks against everything you have seen.

Always end a rejection with a Percentile line as well.`

// LoadInstructions returns the override file's contents, or BaseInstructions when path is empty.
func LoadInstructions(path string) (string, error) {
	if path == "" {
		return BaseInstructions, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading instructions: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("instructions file %s is empty", path)
	}
	return text, nil
}

// BuildInstructions appends numbered exemplars to base, in order. With no
// examples it returns base unchanged.
func BuildInstructions(base string, examples []database.GoldExample) string {
	if len(examples) == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nHere are previous decisions a human reviewer approved. Match their tone and judgment.\n")
	for i, ex := range examples {
		fmt.Fprintf(&b, "\nExample %d (%s):\n", i+1, ex.Type)
		fmt.Fprintf(&b, "Tweet: %s\n", ex.TweetText)
		fmt.Fprintf(&b, "Response: %s\n", ex.Response)
		if ex.Correction != "" {
			fmt.Fprintf(&b, "Corrected response: %s\n", ex.Correction)
		}
	}
	return b.String()
}
