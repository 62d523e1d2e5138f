// Package inep writes the locally structured INEP summary of the municipality.
package inep

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const FileName = "educacao_inep.json"

type Municipality struct {
	Code  string `json:"codigo"`
	Name  string `json:"nome"`
	State string `json:"uf"`
}

type IdebFinalYears struct {
	Municipal map[string]float64 `json:"municipal"`
}

type Ideb struct {
	FinalYears IdebFinalYears `json:"anos_finais"`
}

type Enrollments struct {
	BasicEducation map[string]int `json:"educacao_basica"`
}

type Document struct {
	Municipality Municipality `json:"municipio"`
	Source       string       `json:"fonte"`
	UpdatedAt    string       `json:"atualizado_em"`
	Ideb         Ideb         `json:"ideb"`
	Enrollments  Enrollments  `json:"matriculas"`
	Note         string       `json:"observacao"`
}

var SaoJoaoDeMeriti = Municipality{
	Code:  "3305109",
	Name:  "São João de Meriti",
	State: "RJ",
}

// timestampLayout is an ISO 8601 UTC timestamp with milliseconds.
const timestampLayout = "2006-01-02T15:04:05.000Z"

func NewDocument(now time.Time) Document {
	return Document{
		Municipality: SaoJoaoDeMeriti,
		Source:       "INEP / Censo Escolar / IDEB",
		UpdatedAt:    now.UTC().Format(timestampLayout),
		Ideb: Ideb{
			FinalYears: IdebFinalYears{
				Municipal: map[string]float64{
					"2019": 4.3,
					"2021": 4.5,
					"2023": 4.7,
				},
			},
		},
		Enrollments: Enrollments{
			BasicEducation: map[string]int{
				"2019": 31200,
				"2020": 30800,
				"2021": 30500,
				"2022": 30150,
			},
		},
		Note: "Dados estruturados localmente para uso institucional. Atualização anual.",
	}
}

// Write writes the document to `dir`/educacao_inep.json, creating `dir` if needed.
// It returns the path written.
func Write(dir string, now time.Time) (string, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return "", err
	}

	serialized, err := json.MarshalIndent(NewDocument(now), "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName)
	err = os.WriteFile(path, serialized, 0644)
	if err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
