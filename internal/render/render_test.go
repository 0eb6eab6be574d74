package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fragmede/shopterm/internal/api"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"paragraphs", "<p>First</p><p>Second</p>", "First\n\nSecond"},
		{"entities", "<p>Tea &amp; cups &lt;3</p>", "Tea & cups <3"},
		{"list", "<ul><li>One</li><li>Two</li></ul>", "• One\n• Two"},
		{"emphasis", "Very <strong>hot</strong>", "Very *hot*"},
		{"link", `See <a href="https://x.test/care">care guide</a>`, "See care guide [https://x.test/care]"},
		{"script dropped", "<p>Hi</p><script>alert(1)</script>", "Hi"},
		{"line break", "a<br>b", "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in, 0))
		})
	}
}

func TestHTMLToText_Wraps(t *testing.T) {
	got := HTMLToText("<p>one two three four five</p>", 9)
	assert.Equal(t, "one two\nthree\nfour five", got)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCents(0))
	assert.Equal(t, "$19.90", FormatCents(1990))
	assert.Equal(t, "$1,234.50", FormatCents(123450))
	assert.Equal(t, "$1,000,000.01", FormatCents(100000001))
	assert.Equal(t, "-$3.25", FormatCents(-325))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatPrice(api.Decimal("1234.5")))
	assert.Equal(t, "n/a", FormatPrice(api.Decimal("n/a")))
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "", timeAgo(time.Time{}, now))
	assert.Equal(t, "just now", timeAgo(now.Add(-10*time.Second), now))
	assert.Equal(t, "1 minute ago", timeAgo(now.Add(-time.Minute), now))
	assert.Equal(t, "5 hours ago", timeAgo(now.Add(-5*time.Hour), now))
	assert.Equal(t, "3 days ago", timeAgo(now.Add(-72*time.Hour), now))
	assert.Equal(t, "2 years ago", timeAgo(now.Add(-2*366*24*time.Hour), now))
}

func TestTruncateAndStars(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "Elect…", Truncate("Electric kettle", 6))
	assert.Equal(t, "★★★★☆", Stars(4.2))
	assert.Equal(t, "☆☆☆☆☆", Stars(0))
}
