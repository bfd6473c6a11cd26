package grade

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

func mustTable(t *testing.T, rows string) *goquery.Selection {
	t.Helper()
	doc := mustDoc(t, "<table><thead><tr><th>Oran</th><th>Çalışma</th><th>Not</th></tr></thead><tbody>"+rows+"</tbody></table>")
	return doc.Find("table").First()
}

func TestReadTable_MakeupSupersedesFinal(t *testing.T) {
	table := mustTable(t, `
<tr><td>40</td><td>Vize</td><td>60</td></tr>
<tr><td>60</td><td>Final</td><td>30</td></tr>
<tr><td>60</td><td>Bütünleme</td><td>75</td></tr>`)

	res := ReadTable(table)

	require.True(t, res.HasMakeup)
	require.InDelta(t, 69.0, res.Average, 1e-9)
	require.InDelta(t, 100.0, res.TotalRatio, 1e-9)
	require.Len(t, res.Components, 2)
	require.NotNil(t, res.FinalNote)
	require.Equal(t, 30.0, *res.FinalNote)
	require.NotNil(t, res.MakeupNote)
	require.Equal(t, 75.0, *res.MakeupNote)
}

func TestReadTable_FinalCountsWithoutMakeup(t *testing.T) {
	table := mustTable(t, `
<tr><td>40</td><td>Vize</td><td>60</td></tr>
<tr><td>60</td><td>Final</td><td>30</td></tr>`)

	res := ReadTable(table)

	require.False(t, res.HasMakeup)
	require.InDelta(t, 42.0, res.Average, 1e-9)
	require.Equal(t, TonePoor, res.Tone)
}

func TestReadTable_PartialRatiosAndInputs(t *testing.T) {
	table := mustTable(t, `
<tr><td>50</td><td>Vize</td><td><input type="text" value="72,5"></td></tr>
<tr><td>50</td><td>Final</td><td></td></tr>
<tr><td></td><td>Ortalama</td><td>61</td></tr>
<tr><td></td><td>Başarı Notu</td><td>BA</td></tr>`)

	res := ReadTable(table)

	require.InDelta(t, 36.25, res.Average, 1e-9)
	require.InDelta(t, 50.0, res.TotalRatio, 1e-9)
	require.InDelta(t, 72.5, res.ColorScore, 1e-9)
	require.Equal(t, ToneAverage, res.Tone)
	require.Len(t, res.Components, 2)
	require.Nil(t, res.Components[1].Score)
	require.Equal(t, "BA", res.Announced)

	letter, ok := IsAnnounced(table)
	require.True(t, ok)
	require.Equal(t, "BA", letter)
}

func TestWeightedAverage_NoQualifyingRows(t *testing.T) {
	table := mustTable(t, `<tr><td>-</td><td>Vize</td><td>girilmedi</td></tr>`)
	require.Equal(t, 0.0, WeightedAverage(table))
}

func TestToneFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Tone
	}{
		{80, ToneGood},
		{75, ToneAverage},
		{55, ToneAverage},
		{54.9, TonePoor},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ToneFor(tt.score), "score %v", tt.score)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"85", ptr(85)},
		{" 72,5 ", ptr(72.5)},
		{"40.25abc", ptr(40.25)},
		{"", nil},
		{"AA", nil},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, parseNumber(tt.in), "input %q", tt.in)
	}
}

func TestParsePeriodAndRule(t *testing.T) {
	require.Equal(t, &Period{Year: 2025, Semester: 1}, ParsePeriod("https://obs.sabis.sakarya.edu.tr/Ders/2025/1"))
	require.Nil(t, ParsePeriod("/Ders/Grup/42"))

	rule := DefaultFinalRule()
	tests := []struct {
		name   string
		period *Period
		want   bool
	}{
		{"earlier year", &Period{Year: 2024, Semester: 2}, false},
		{"threshold term", &Period{Year: 2025, Semester: 1}, true},
		{"later semester", &Period{Year: 2025, Semester: 2}, true},
		{"later year", &Period{Year: 2026, Semester: 1}, true},
		{"unknown term", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, rule.Active(tt.period))
		})
	}
}

func TestFinalRule_Evaluate(t *testing.T) {
	rule := DefaultFinalRule()
	period := &Period{Year: 2025, Semester: 1}

	info := rule.Evaluate(period, TableResult{FinalNote: ptr(30), MakeupNote: ptr(45)})
	require.NotNil(t, info)
	require.Equal(t, "Bütünleme", info.NoteType)
	require.False(t, info.Failed)

	info = rule.Evaluate(period, TableResult{FinalNote: ptr(35)})
	require.NotNil(t, info)
	require.Equal(t, "Final", info.NoteType)
	require.True(t, info.Failed)

	require.Nil(t, rule.Evaluate(period, TableResult{}))
	require.Nil(t, rule.Evaluate(&Period{Year: 2024, Semester: 1}, TableResult{FinalNote: ptr(10)}))
}

func TestProject(t *testing.T) {
	t.Run("relative wins", func(t *testing.T) {
		p := Project(ProjectInput{Score: 88, ClassAverage: ptr(57)})
		require.Equal(t, "AA", p.Projected.Letter)
		require.Equal(t, MethodRelative, p.Method)
		require.Equal(t, "BA", p.Absolute.Letter)
		require.NotNil(t, p.TScore)
		require.Len(t, p.Scenarios, 3)
		require.Equal(t, GradeColor("AA"), p.Color)
	})

	t.Run("no class average", func(t *testing.T) {
		p := Project(ProjectInput{Score: 66})
		require.Equal(t, "CC", p.Projected.Letter)
		require.Equal(t, MethodAbsolute, p.Method)
		require.Nil(t, p.Relative)
		require.Len(t, p.Scenarios, 3)
	})

	t.Run("failed final softens to FD", func(t *testing.T) {
		final := &FinalInfo{Note: 35, NoteType: "Final", Failed: true, RuleActive: true}
		p := Project(ProjectInput{Score: 70, Final: final})
		require.Equal(t, "FD", p.Projected.Letter)
		require.Equal(t, MethodFinalFailure, p.Method)
		require.Empty(t, p.Scenarios)
	})

	t.Run("failed final stays FF", func(t *testing.T) {
		final := &FinalInfo{Note: 35, NoteType: "Final", Failed: true, RuleActive: true}
		p := Project(ProjectInput{Score: 30, ClassAverage: ptr(60), Final: final})
		require.Equal(t, "FF", p.Projected.Letter)
		require.Empty(t, p.Scenarios)
	})

	t.Run("passed final keeps scenarios", func(t *testing.T) {
		final := &FinalInfo{Note: 55, NoteType: "Final", RuleActive: true}
		p := Project(ProjectInput{Score: 70, Final: final})
		require.Equal(t, "CC", p.Projected.Letter)
		require.Len(t, p.Scenarios, 3)
	})
}

func TestNormalizeWorkType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Vize", "vize"},
		{"Ara Sınav", "vize"},
		{"Final", "final"},
		{"Ödev", "odev"},
		{"2. Ödev", "odev_2"},
		{"1. Kısa Sınav", "kisa_1"},
		{"Quiz", "kisa"},
		{"Proje", "proje"},
		{"Seminer", "performans"},
		{"Bütünleme", "butunleme"},
		{"Laboratuvar", "laboratuvar"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeWorkType(tt.in))
		})
	}
}

func TestFindCourseGroupID(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"detail handler", `<a onclick="dersDetay( 12345, 'x')">Ders</a>`, "12345"},
		{"script variable", `<script>var dersGrupId = 777;</script>`, "777"},
		{"group link", `<a href="/Ders/Grup/42">Notlar</a>`, "42"},
		{"jquery load", `<script>$('#x').load("/Ders/Icerik/99")</script>`, "99"},
		{"none", `<p>yok</p>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FindCourseGroupID(tt.html))
		})
	}
}

func TestParseSummaryAverage(t *testing.T) {
	doc := mustDoc(t, `<table>
<tr><td>Vize Ortalaması</td><td>50</td></tr>
<tr><td>Genel Ortalama</td><td>47,25</td><td>-</td></tr>
</table>`)
	got := ParseSummaryAverage(doc)
	require.NotNil(t, got)
	require.InDelta(t, 47.25, *got, 1e-9)

	require.Nil(t, ParseSummaryAverage(mustDoc(t, `<table><tr><td>Vize</td><td>50</td></tr></table>`)))
}

func TestParseClassAverage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want *float64
	}{
		{"labelled cell", `<table><tr><td>Sınıf Ortalaması</td><td>-</td><td>54,3</td></tr></table>`, ptr(54.3)},
		{"last row", `<table><tr><td>Vize</td><td>48</td></tr><tr><td>Final</td><td>52</td></tr></table>`, ptr(52)},
		{"free text", `<p>Genel Ortalama: 61.5</p>`, ptr(61.5)},
		{"out of range", `<p>Genel Ortalama: 161</p>`, nil},
		{"nothing", `<p>Kayıt bulunamadı</p>`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseClassAverage(mustDoc(t, tt.html))
			if tt.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestRowAverages(t *testing.T) {
	doc := mustDoc(t, `<table>
<tr><td>Vize</td><td>45</td></tr>
<tr><td>1. Kısa Sınav</td><td>70</td></tr>
<tr><td>Toplam</td><td>55</td></tr>
<tr><td>Proje</td><td>yok</td></tr>
</table>`)

	averages := ParseRowAverages(doc)
	require.Equal(t, map[string]float64{"vize": 45, "kisa_1": 70}, averages)

	mean := MeanAverage(averages)
	require.NotNil(t, mean)
	require.InDelta(t, 57.5, *mean, 1e-9)
	require.Nil(t, MeanAverage(nil))
}

func TestMatchRowAverages(t *testing.T) {
	table := mustTable(t, `
<tr><td>30</td><td>Vize</td><td>60</td></tr>
<tr><td>10</td><td>Kısa Sınav</td><td>80</td></tr>
<tr><td>10</td><td>Kısa Sınav</td><td>90</td></tr>
<tr><td>10</td><td>Proj</td><td>70</td></tr>
<tr><td>10</td><td>Laboratuvar</td><td>70</td></tr>
<tr><td></td><td>Ortalama</td><td>70</td></tr>`)
	averages := map[string]float64{"vize": 45, "kisa_1": 70, "kisa_2": 80, "proje": 65}

	rows := MatchRowAverages(table, averages)

	require.Len(t, rows, 5)
	want := []*float64{ptr(45), ptr(70), ptr(80), ptr(65), nil}
	for i, row := range rows {
		require.Equal(t, want[i], row.Average, "row %d (%s)", i, row.Label)
	}

	require.Equal(t, ptr(45), LookupRowAverage(averages, "Vize"))
	require.Equal(t, ptr(70), LookupRowAverage(averages, "Kısa Sınav"))
}

func ptr(v float64) *float64 { return &v }
