package grade

// Scenario is one what-if curve placement.
type Scenario struct {
	Title       string  `json:"title"`
	Description string  `json:"desc"`
	Avg         float64 `json:"avg"`
	Grade       Band    `json:"grade"`
	Color       string  `json:"color"`
	Icon        string  `json:"icon"`
}

// Assumed class averages used when the real one is unknown.
const (
	assumedLowAvg  = 40
	assumedMidAvg  = 55
	assumedHighAvg = 70
)

// Scenarios returns best, likely and worst placements. With a known class
// average the average is shifted by -12, 0 and +8 (clamped to 0..100);
// otherwise fixed averages of 40, 55 and 70 are assumed.
func Scenarios(score float64, classAverage *float64) []Scenario {
	if classAverage != nil {
		avg := *classAverage
		best := max(0, avg-12)
		worst := min(100, avg+8)
		return []Scenario{
			{Title: "🤩 En İyi Senaryo", Description: "Hoca ortalamayı düşürürse",
				Avg: best, Grade: MaxBenefit(score, best), Color: "#22c55e", Icon: "🚀"},
			{Title: "🤔 Olası Senaryo", Description: "Mevcut ortalama ile",
				Avg: avg, Grade: MaxBenefit(score, avg), Color: "#3b82f6", Icon: "📊"},
			{Title: "😬 En Kötü Senaryo", Description: "Sert değerlendirme",
				Avg: worst, Grade: MaxBenefit(score, worst), Color: "#ef4444", Icon: "🛡️"},
		}
	}

	return []Scenario{
		{Title: "🤩 Düşük Ortalama", Description: "Sınıf Ort: ~40",
			Avg: assumedLowAvg, Grade: MaxBenefit(score, assumedLowAvg), Color: "#22c55e", Icon: "📉"},
		{Title: "🤔 Orta Ortalama", Description: "Sınıf Ort: ~55",
			Avg: assumedMidAvg, Grade: MaxBenefit(score, assumedMidAvg), Color: "#eab308", Icon: "➖"},
		{Title: "😬 Yüksek Ortalama", Description: "Sınıf Ort: ~70",
			Avg: assumedHighAvg, Grade: MaxBenefit(score, assumedHighAvg), Color: "#ef4444", Icon: "📈"},
	}
}
