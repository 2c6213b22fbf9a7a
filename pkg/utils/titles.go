package utils

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// ParseTitles reads one chapter title per line. Blank lines are kept so the
// n-th line always belongs to chapter n. An empty path means no titles.
func ParseTitles(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening titles file: %w", err)
	}
	defer f.Close()

	var titles []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if len(titles) == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		titles = append(titles, norm.NFC.String(strings.TrimSpace(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading titles file: %w", err)
	}
	return titles, nil
}

// SanitizeFileName replaces characters that are unsafe in file names.
// Slashes, backslashes, colons and asterisks become dashes, the rest are dropped.
func SanitizeFileName(name string) string {
	return strings.TrimSpace(fileNameReplacer.Replace(strings.TrimSpace(name)))
}

// ChapterTitle returns the title for 1-based chapter n, or "Chapter NN"
// when titles has no usable entry for it.
func ChapterTitle(n int, titles []string) string {
	if n >= 1 && n <= len(titles) {
		if t := strings.TrimSpace(titles[n-1]); t != "" {
			return t
		}
	}
	return fmt.Sprintf("Chapter %02d", n)
}

// ChapterFileName builds "Chapter NN - Title.ext", or "Chapter NN.ext"
// when chapter n has no title.
func ChapterFileName(n int, titles []string, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if n >= 1 && n <= len(titles) {
		if t := SanitizeFileName(titles[n-1]); t != "" {
			return fmt.Sprintf("Chapter %02d - %s.%s", n, t, ext)
		}
	}
	return fmt.Sprintf("Chapter %02d.%s", n, ext)
}

// FormatLength renders seconds as MM:SS.cc. Minutes are not wrapped into hours.
func FormatLength(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	cs := int(math.Round(sec * 100))
	s := cs / 100
	return fmt.Sprintf("%02d:%02d.%02d", s/60, s%60, cs%100)
}
