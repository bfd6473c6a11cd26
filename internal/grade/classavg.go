package grade

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/agnivade/levenshtein"
)

// courseGroupPatterns locate the course-group id, most specific first.
var courseGroupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:dersDetay|grupDetay)\s*\(\s*(\d+)`),
	regexp.MustCompile(`dersGrupId\s*[:=]\s*(\d+)`),
	regexp.MustCompile(`/Grup/(\d+)`),
	regexp.MustCompile(`\.load\(['"].*?/(\d+)['"]\)`),
}

var (
	leadingOrdinal = regexp.MustCompile(`^(\d+)\.\s*`)
	numberSuffix   = regexp.MustCompile(`_\d+$`)
	averageText    = regexp.MustCompile(`(?i)(?:Sınıf|Genel)\s*Ortalamas?ı?\s*[:\s]\s*([\d,.]+)`)
)

// maxTypoDistance bounds the fuzzy work-type match.
const maxTypoDistance = 2

// FindCourseGroupID returns the course-group id referenced in a course card
// or page, or "" when none is present.
func FindCourseGroupID(html string) string {
	for _, p := range courseGroupPatterns {
		if m := p.FindStringSubmatch(html); m != nil {
			return m[1]
		}
	}
	return ""
}

// ParseSummaryAverage reads the overall class average from a grade summary
// fragment (the "Notlar" endpoint). Only rows labelled as a general, success
// or year-end average count.
func ParseSummaryAverage(doc *goquery.Document) *float64 {
	var found *float64
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}
		rowText := strings.ToLower(strings.TrimSpace(row.Text()))
		if !containsAnyOf(rowText, "ortalama", "başarı", "sonu") {
			return true
		}
		if !containsAnyOf(rowText, "genel", "başarı", "yıl sonu") {
			return true
		}
		if v := lastPercentage(cells); v != nil {
			found = v
			return false
		}
		return true
	})
	return found
}

// ParseClassAverage reads the class average from the "SinifOrtalama"
// fragment: a value next to an average label, then the last numeric cell
// of the last row, then a "Sınıf Ortalaması: N" phrase anywhere.
func ParseClassAverage(doc *goquery.Document) *float64 {
	var found *float64
	doc.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		label := strings.ToLower(strings.TrimSpace(cell.Text()))
		if !containsAnyOf(label, "sınıf ort", "genel", "ortalama") {
			return true
		}
		for sib := cell.Next(); sib.Length() > 0; sib = sib.Next() {
			if v := percentage(sib.Text()); v != nil {
				found = v
				return false
			}
		}
		return true
	})
	if found != nil {
		return found
	}

	if rows := doc.Find("tr"); rows.Length() > 0 {
		if v := lastPercentage(rows.Last().Find("td")); v != nil {
			return v
		}
	}

	if m := averageText.FindStringSubmatch(doc.Find("body").Text()); m != nil {
		return percentage(m[1])
	}
	return nil
}

// ParseRowAverages reads per-work-type class averages keyed by NormalizeWorkType.
// The first cell names the work type and the last holds the average.
func ParseRowAverages(doc *goquery.Document) map[string]float64 {
	result := map[string]float64{}
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		workType := strings.TrimSpace(cells.First().Text())
		lower := strings.ToLower(workType)
		if workType == "" || containsAnyOf(lower, "başarı", "genel", "toplam") {
			return
		}
		if v := percentage(cells.Last().Text()); v != nil {
			result[NormalizeWorkType(workType)] = *v
		}
	})
	return result
}

// MeanAverage is the plain mean of a row-average map, or nil when empty.
func MeanAverage(averages map[string]float64) *float64 {
	if len(averages) == 0 {
		return nil
	}
	var sum float64
	for _, v := range averages {
		sum += v
	}
	mean := sum / float64(len(averages))
	return &mean
}

// NormalizeWorkType maps a work-type label to a matching key. A leading
// ordinal is kept as a suffix: "1. Kısa Sınav" becomes "kisa_1".
func NormalizeWorkType(label string) string {
	lower := strings.TrimSpace(strings.ToLower(label))

	number := ""
	if m := leadingOrdinal.FindStringSubmatch(lower); m != nil {
		number = m[1]
	}
	clean := strings.TrimSpace(leadingOrdinal.ReplaceAllString(lower, ""))

	var base string
	switch {
	case containsAnyOf(clean, "vize", "ara sınav", "arasınav"):
		base = "vize"
	case strings.Contains(clean, "final"):
		base = "final"
	case strings.Contains(clean, "ödev"):
		base = "odev"
	case containsAnyOf(clean, "proje", "tasarım"):
		base = "proje"
	case containsAnyOf(clean, "performans", "seminer"):
		base = "performans"
	case containsAnyOf(clean, "kısa", "quiz"):
		base = "kisa"
	case strings.Contains(clean, "bütünleme"):
		base = "butunleme"
	default:
		base = clean
	}

	if number != "" {
		return base + "_" + number
	}
	return base
}

// RowAverage pairs a grade-table row with its class average, if found.
type RowAverage struct {
	Label   string   `json:"label"`
	Key     string   `json:"key"`
	Average *float64 `json:"average"`
}

// MatchRowAverages assigns class averages to the rows of a grade table.
// Lookup order per row: exact key, base type plus occurrence counter, bare
// base type, then the closest key within a small edit distance.
func MatchRowAverages(table *goquery.Selection, averages map[string]float64) []RowAverage {
	counters := map[string]int{}
	var out []RowAverage

	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		label := strings.TrimSpace(cells.Eq(1).Text())
		lower := strings.ToLower(label)
		if containsAnyOf(lower, "ortalama", "başarı notu") {
			return
		}

		clean := strings.TrimSpace(leadingOrdinal.ReplaceAllString(lower, ""))
		counters[clean]++

		key := NormalizeWorkType(label)
		out = append(out, RowAverage{
			Label:   label,
			Key:     key,
			Average: lookupAverage(averages, key, counters[clean]),
		})
	})
	return out
}

func lookupAverage(averages map[string]float64, key string, occurrence int) *float64 {
	if v, ok := averages[key]; ok {
		return &v
	}
	base := numberSuffix.ReplaceAllString(key, "")
	if v, ok := averages[base+"_"+strconv.Itoa(occurrence)]; ok {
		return &v
	}
	if v, ok := averages[base]; ok {
		return &v
	}

	best, bestDist := "", maxTypoDistance+1
	for k := range averages {
		d := levenshtein.ComputeDistance(key, k)
		if d < bestDist || (d == bestDist && k < best) {
			best, bestDist = k, d
		}
	}
	if best != "" {
		v := averages[best]
		return &v
	}
	return nil
}

// percentage parses a 0..100 value.
func percentage(s string) *float64 {
	v := parseNumber(s)
	if v == nil || *v < 0 || *v > 100 {
		return nil
	}
	return v
}

// lastPercentage scans cells right to left for a 0..100 value.
func lastPercentage(cells *goquery.Selection) *float64 {
	for i := cells.Length() - 1; i >= 0; i-- {
		if v := percentage(cells.Eq(i).Text()); v != nil {
			return v
		}
	}
	return nil
}

func containsAnyOf(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// LookupRowAverage finds the class average for a single grade-table label.
func LookupRowAverage(averages map[string]float64, label string) *float64 {
	return lookupAverage(averages, NormalizeWorkType(label), 1)
}

// IsAnnounced reports the letter already published in the table's
// "başarı notu" row.
func IsAnnounced(table *goquery.Selection) (string, bool) {
	letter := ReadTable(table).Announced
	return letter, letter != ""
}
