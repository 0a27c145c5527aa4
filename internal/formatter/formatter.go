// package formatter provides functions to export a valued saved-card list to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
)

// Formats lists the supported export formats.
var Formats = []string{"json", "csv", "markdown", "txt"}

// ExportToCSV converts a Portfolio to CSV format with columns: ID, Name, Set, Rarity, Market, Saved At, Stale, Error
func ExportToCSV(p *models.Portfolio) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Set", "Rarity", "Market", "Saved At", "Stale", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, v := range p.Cards {
		var rarity, market string
		if v.Card != nil {
			rarity = v.Card.Rarity
		}
		if v.Market > 0 {
			market = strconv.FormatFloat(v.Market, 'f', 2, 64)
		}

		record := []string{
			v.Saved.CardID,
			v.Saved.CardName,
			v.Saved.CardSet,
			rarity,
			market,
			formatSavedAt(v.Saved.CreatedAt),
			strconv.FormatBool(v.Stale),
			v.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Portfolio to a Markdown table.
//
// images maps card IDs to image references; cards without an entry fall back to the catalog's small image URL.
func ExportToMarkdown(p *models.Portfolio, title string, images map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Saved Cards"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Cards**: %d\n", len(p.Cards)))
	buf.WriteString(fmt.Sprintf("**Market Total**: %s\n", shared.FormatPrice(p.Total)))
	if p.Stale > 0 {
		buf.WriteString(fmt.Sprintf("**Renamed Upstream**: %d\n", p.Stale))
	}
	if p.Failed > 0 {
		buf.WriteString(fmt.Sprintf("**Unavailable**: %d\n", p.Failed))
	}

	buf.WriteString("\n| | Card | Set | Rarity | Market |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	for _, v := range p.Cards {
		img := images[v.Saved.CardID]
		if img == "" && v.Card != nil {
			img = v.Card.Images.Small
		}

		imgCell := ""
		if img != "" {
			imgCell = fmt.Sprintf("![%s](%s)", mdEscape(v.Saved.CardName), img)
		}

		name := mdEscape(v.Saved.CardName)
		switch {
		case v.Error != "":
			name += " ⚠ unavailable"
		case v.Stale:
			name += fmt.Sprintf(" (now %s, %s)", mdEscape(v.Card.Name), mdEscape(v.Card.Set.Name))
		}

		rarity := ""
		if v.Card != nil {
			rarity = mdEscape(v.Card.Rarity)
		}

		buf.WriteString(fmt.Sprintf("| %s | %s `%s` | %s | %s | %s |\n",
			imgCell, name, v.Saved.CardID, mdEscape(v.Saved.CardSet), rarity, shared.FormatPrice(v.Market)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Portfolio to plain text format
func ExportToText(p *models.Portfolio) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Saved cards: %d\n", len(p.Cards)))
	buf.WriteString(fmt.Sprintf("Market total: %s (%d priced)\n\n", shared.FormatPrice(p.Total), p.Priced))

	for i, v := range p.Cards {
		line := fmt.Sprintf("%d. %s - %s [%s] %s", i+1, v.Saved.CardName, v.Saved.CardSet, v.Saved.CardID, shared.FormatPrice(v.Market))
		switch {
		case v.Error != "":
			line += " (unavailable)"
		case v.Stale:
			line += " (renamed upstream)"
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a Portfolio to indented JSON
func ExportToJSON(p *models.Portfolio) ([]byte, error) {
	return shared.MarshalJSON(p, true)
}

// Export renders p in the named format.
func Export(p *models.Portfolio, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "csv":
		return ExportToCSV(p)
	case "markdown", "md":
		return ExportToMarkdown(p, "", nil)
	case "txt", "text":
		return ExportToText(p)
	case "json", "":
		return ExportToJSON(p)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q (want one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats, ", "))
	}
}

// Extension returns the file extension for format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return "csv"
	case "markdown", "md":
		return "md"
	case "txt", "text":
		return "txt"
	default:
		return "json"
	}
}

// WriteExport writes p in format to path.
//
// Defaults to saved_cards.{ext} in the working directory.
func WriteExport(p *models.Portfolio, format, path string) (string, error) {
	if path == "" {
		path = "saved_cards." + Extension(format)
	}

	data, err := Export(p, format)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Images    int
	Warnings  []string
}

// WriteMarkdownExport exports p to {outputDir}/README.md, downloading card images into {outputDir}/images.
//
// Image failures are reported as warnings and the README falls back to the remote URL.
func WriteMarkdownExport(p *models.Portfolio, outputDir string, client *http.Client) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "saved_cards"
	}

	imageDir := filepath.Join(outputDir, "images")
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}
	images := make(map[string]string)

	for _, v := range p.Cards {
		if v.Card == nil || v.Card.Images.Small == "" {
			continue
		}

		data, err := DownloadImage(client, v.Card.Images.Small)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", v.Saved.CardID, err))
			continue
		}

		name := safeFilename(v.Saved.CardID) + imageExt(v.Card.Images.Small)
		path := filepath.Join(imageDir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: failed to save image: %v", v.Saved.CardID, err))
			continue
		}

		images[v.Saved.CardID] = "images/" + name
		result.Files = append(result.Files, path)
		result.Images++
	}

	mdData, err := ExportToMarkdown(p, "", images)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

func formatSavedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func safeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

func imageExt(url string) string {
	if ext := filepath.Ext(url); ext == ".png" || ext == ".jpg" || ext == ".jpeg" || ext == ".webp" {
		return ext
	}
	return ".png"
}
