package enem

import (
	"fmt"
	"math"

	"observatorio-backend/internal/sheet"

	"github.com/montanaflynn/stats"
)

var SummaryColumns = []string{
	"Categoria",
	"Segmento",
	"Área",
	"Anos",
	"Média",
	"Mediana",
	"Mínimo",
	"Máximo",
}

var areas = []struct {
	name  string
	score func(Score) int
}{
	{"Matemática", func(s Score) int { return s.Math }},
	{"Linguagens", func(s Score) int { return s.Languages }},
	{"Ciências Humanas", func(s Score) int { return s.Humanities }},
	{"Ciências Sociais", func(s Score) int { return s.SocialSciences }},
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Summary aggregates each (category, segment, area) over the transcribed years. Years with
// all scores at 0 had no candidates and are left out.
func Summary() (*sheet.Table, error) {
	table := sheet.NewTable("Resumo", SummaryColumns...)
	groups := []struct {
		category string
		scores   []Score
	}{
		{CategoryGender, Gender},
		{CategoryLocation, Location},
		{CategoryAdministration, Administration},
	}

	for _, g := range groups {
		var segments []string
		bySegment := map[string][]Score{}
		for _, s := range g.scores {
			if s.Math == 0 && s.Languages == 0 && s.Humanities == 0 && s.SocialSciences == 0 {
				continue
			}
			if _, ok := bySegment[s.Segment]; !ok {
				segments = append(segments, s.Segment)
			}
			bySegment[s.Segment] = append(bySegment[s.Segment], s)
		}

		for _, segment := range segments {
			scores := bySegment[segment]
			for _, area := range areas {
				data := make(stats.Float64Data, len(scores))
				for i, s := range scores {
					data[i] = float64(area.score(s))
				}

				mean, err := stats.Mean(data)
				if err != nil {
					return nil, fmt.Errorf("%s %s %s: %w", g.category, segment, area.name, err)
				}
				median, err := stats.Median(data)
				if err != nil {
					return nil, fmt.Errorf("%s %s %s: %w", g.category, segment, area.name, err)
				}
				lowest, _ := stats.Min(data)
				highest, _ := stats.Max(data)

				table.Append(
					g.category,
					segment,
					area.name,
					len(scores),
					round1(mean),
					round1(median),
					lowest,
					highest,
				)
			}
		}
	}
	return table, nil
}
