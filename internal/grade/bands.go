package grade

// AssumedStdDev is the fixed class standard deviation used for the T-score.
const AssumedStdDev = 14.5

// Band is one row of a letter-grade table.
type Band struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Letter      string  `json:"letter"`
	Name        string  `json:"name"`
	Coefficient float64 `json:"coefficient"`
}

// AbsoluteScale maps a 0-100 course score to a letter, highest band first.
var AbsoluteScale = []Band{
	{Min: 90, Max: 100, Letter: "AA", Name: "Pekiyi", Coefficient: 4.00},
	{Min: 85, Max: 89.99, Letter: "BA", Name: "İyi-Pekiyi", Coefficient: 3.50},
	{Min: 80, Max: 84.99, Letter: "BB", Name: "İyi", Coefficient: 3.00},
	{Min: 75, Max: 79.99, Letter: "CB", Name: "Orta-İyi", Coefficient: 2.50},
	{Min: 65, Max: 74.99, Letter: "CC", Name: "Orta", Coefficient: 2.00},
	{Min: 58, Max: 64.99, Letter: "DC", Name: "Zayıf-Orta", Coefficient: 1.50},
	{Min: 50, Max: 57.99, Letter: "DD", Name: "Zayıf", Coefficient: 1.00},
	{Min: 40, Max: 49.99, Letter: "FD", Name: "Başarısız", Coefficient: 0.50},
	{Min: 0, Max: 39.99, Letter: "FF", Name: "Başarısız", Coefficient: 0.00},
}

// RelativeScale maps a T-score to a letter, highest band first. The top band is open-ended.
var RelativeScale = []Band{
	{Min: 67, Max: 999, Letter: "AA", Name: "Pekiyi", Coefficient: 4.00},
	{Min: 62, Max: 66.99, Letter: "BA", Name: "İyi-Pekiyi", Coefficient: 3.50},
	{Min: 57, Max: 61.99, Letter: "BB", Name: "İyi", Coefficient: 3.00},
	{Min: 52, Max: 56.99, Letter: "CB", Name: "Orta-İyi", Coefficient: 2.50},
	{Min: 47, Max: 51.99, Letter: "CC", Name: "Orta", Coefficient: 2.00},
	{Min: 42, Max: 46.99, Letter: "DC", Name: "Zayıf-Orta", Coefficient: 1.50},
	{Min: 37, Max: 41.99, Letter: "DD", Name: "Zayıf", Coefficient: 1.00},
	{Min: 32, Max: 36.99, Letter: "FD", Name: "Başarısız", Coefficient: 0.50},
	{Min: 0, Max: 31.99, Letter: "FF", Name: "Başarısız", Coefficient: 0.00},
}

var gradeColors = map[string]string{
	"AA": "#22c55e",
	"BA": "#84cc16",
	"BB": "#a3e635",
	"CB": "#facc15",
	"CC": "#fbbf24",
	"DC": "#f97316",
	"DD": "#fb923c",
	"FD": "#ef4444",
	"FF": "#dc2626",
}

// defaultColor is used for letters outside the scale (YT, YZ, ...).
const defaultColor = "#6b7280"

// lookup returns the first band, scanning highest first, whose lower bound
// v reaches. Values between two printed bounds (89.995) land in the lower
// band; anything below every bound is FF. Averages above 100 (possible when
// row weights exceed 100) land in AA.
func lookup(scale []Band, v float64) Band {
	for _, b := range scale {
		if v >= b.Min {
			return b
		}
	}
	return scale[len(scale)-1]
}

// Absolute maps a course score onto the fixed scale.
func Absolute(score float64) Band {
	return lookup(AbsoluteScale, score)
}

// TScore is 10z + 50 with z computed against AssumedStdDev.
func TScore(score, classAverage float64) float64 {
	z := (score - classAverage) / AssumedStdDev
	return z*10 + 50
}

// Relative maps a score onto the curved scale for the given class average.
func Relative(score, classAverage float64) Band {
	return lookup(RelativeScale, TScore(score, classAverage))
}

// MaxBenefit returns the relative grade only when its coefficient is
// strictly higher than the absolute one; ties keep the absolute grade.
func MaxBenefit(score, classAverage float64) Band {
	abs := Absolute(score)
	rel := Relative(score, classAverage)
	if rel.Coefficient > abs.Coefficient {
		return rel
	}
	return abs
}

// ByLetter finds a band on the absolute scale.
func ByLetter(letter string) (Band, bool) {
	for _, b := range AbsoluteScale {
		if b.Letter == letter {
			return b, true
		}
	}
	return Band{}, false
}

// GradeColor returns the badge color for a letter.
func GradeColor(letter string) string {
	if c, ok := gradeColors[letter]; ok {
		return c
	}
	return defaultColor
}
