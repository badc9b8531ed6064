package crawl

import (
	"fmt"
)

// progressURLWidth is the column width of URLs in progress lines.
const progressURLWidth = 60

// FormatProgress renders a progress event as a single status line.
func FormatProgress(event ProgressEvent) string {
	u := TruncateURL(event.URL, progressURLWidth)
	switch event.Type {
	case ProgressFailed:
		if event.StatusCode > 0 {
			return fmt.Sprintf("FAIL  d=%d  %-*s  status %d", event.Depth, progressURLWidth, u, event.StatusCode)
		}
		return fmt.Sprintf("FAIL  d=%d  %-*s  %s", event.Depth, progressURLWidth, u, errorSummary(event.Error))
	default:
		return fmt.Sprintf("OK    d=%d  %-*s  %s, %d links", event.Depth, progressURLWidth, u, FormatBytes(event.Bytes), event.Links)
	}
}

func errorSummary(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// TruncateURL shortens a URL for display, keeping the end which is more informative.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		// No room for the "..." prefix.
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}

// FormatBytes formats bytes in human-readable form.
func FormatBytes(bytes int) string {
	const (
		KB = 1024
		MB = KB * 1024
	)
	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
