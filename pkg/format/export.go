package format

import (
	"bytes"
	"encoding/csv"
	"html"
	"strings"
	"unicode"
)

// BOM makes spreadsheet programs read the CSV as UTF-8.
const BOM = "\ufeff"

// BuildCSV renders a semicolon separated sheet with a UTF-8 BOM and CRLF line ends.
// Cells containing the delimiter, quotes or line breaks are quoted.
func BuildCSV(header []string, rows [][]string) string {
	var buf bytes.Buffer
	buf.WriteString(BOM)
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	w.UseCRLF = true
	if len(header) > 0 {
		w.Write(header)
	}
	for _, row := range rows {
		w.Write(row)
	}
	w.Flush()
	return buf.String()
}

// BuildXLS renders an HTML table that Excel opens as a sheet.
func BuildXLS(header []string, rows [][]string) string {
	var sb strings.Builder
	sb.WriteString(`<html><head><meta charset="utf-8"></head><body><table border="1">`)
	if len(header) > 0 {
		sb.WriteString("<thead><tr>")
		for _, h := range header {
			sb.WriteString("<th>" + html.EscapeString(h) + "</th>")
		}
		sb.WriteString("</tr></thead>")
	}
	sb.WriteString("<tbody>")
	for _, row := range rows {
		sb.WriteString("<tr>")
		for _, c := range row {
			sb.WriteString("<td>" + html.EscapeString(c) + "</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table></body></html>")
	return sb.String()
}

// SanitizeFilename keeps letters, digits, '-' and '.', turns every other run of
// characters into a single '_' and trims separators from both ends.
// An empty result becomes "export".
func SanitizeFilename(name string) string {
	var sb strings.Builder
	pending := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' {
			if pending && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pending = false
			sb.WriteRune(r)
			continue
		}
		pending = true
	}
	out := strings.Trim(sb.String(), "._-")
	if out == "" {
		return "export"
	}
	return out
}
