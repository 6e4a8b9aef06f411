package selector

import (
	"fmt"
	"strings"

	"github.com/tenkigen/tenkigen/internal/models"
)

// buildPrompt renders the arbitration prompt for one candidate pool. The
// model is instructed to reply with the candidate index only.
func buildPrompt(f *models.WeatherForecast, trendText string, candidates []models.PastComment, half models.CommentType, suggestions []string) string {
	var sb strings.Builder

	sb.WriteString("あなたは天気コメントの選定者です。\n\n")
	sb.WriteString("【現在の予報】\n")
	fmt.Fprintf(&sb, "地点: %s\n", f.LocationName)
	fmt.Fprintf(&sb, "日時: %s\n", f.DateTime.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "天気: %s (%s)\n", f.WeatherDescription, f.WeatherCondition)
	fmt.Fprintf(&sb, "気温: %.1f°C / 降水量: %.1fmm/h / 湿度: %.0f%% / 風速: %.1fm/s\n",
		f.Temperature, f.Precipitation, f.Humidity, f.WindSpeed)
	if trendText != "" {
		fmt.Fprintf(&sb, "気象の推移: %s\n", trendText)
	}

	kind := "天気コメント"
	if half == models.TypeAdvice {
		kind = "アドバイス"
	}
	fmt.Fprintf(&sb, "\n【%s候補】\n", kind)
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d: %s (天気: %s, 使用回数: %d)\n", i, c.CommentText, c.WeatherCondition, c.UsageCount)
	}

	sb.WriteString("\n【選定基準】\n")
	sb.WriteString("- 予報の天気・気温・降水量と矛盾しないこと\n")
	sb.WriteString("- 悪天候時は注意喚起を優先すること\n")
	sb.WriteString("- 自然で簡潔な表現であること\n")
	if len(suggestions) > 0 {
		sb.WriteString("\n【前回の改善点】\n")
		for _, s := range suggestions {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}
	sb.WriteString("\n最も適切な候補の番号のみで答えてください。\n")
	return sb.String()
}
