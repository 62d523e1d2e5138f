package qedu

import (
	"fmt"
	"strconv"
	"time"

	"observatorio-backend/internal/browser"
)

// Stage is a school stage as exposed by the stage buttons of the learning page.
type Stage struct {
	// Button is the text of the button that selects the stage.
	Button string
	Name   string
	Grade  string
}

// Label is how a stage is written in the proficiency sheet, ex. "Anos Iniciais (5º ano)".
func (s Stage) Label() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Grade)
}

type Subject struct {
	Name string
	// Aliases are tried in order when no button with Name exists.
	Aliases []string
}

// StageBlock is a fixed card of the census page holding the enrollments of a stage.
type StageBlock struct {
	Name  string
	XPath string
}

var ProficiencyLevels = []string{"Insuficiente", "Básico", "Proficiente", "Avançado"}

var DefaultStages = []Stage{
	{Button: "5º ano", Name: "Anos Iniciais", Grade: "5º ano"},
	{Button: "9º ano", Name: "Anos Finais", Grade: "9º ano"},
}

var DefaultSubjects = []Subject{
	{Name: "Língua Portuguesa", Aliases: []string{"Português"}},
	{Name: "Matemática"},
}

var DefaultModalityTerms = []string{
	"Creche", "Pré-escola",
	"Anos Iniciais", "Anos Finais",
	"1º ano", "2º ano", "3º ano", "4º ano", "5º ano",
	"6º ano", "7º ano", "8º ano", "9º ano",
	"EJA", "Educação Especial",
}

const censusPanel = `//*[@id="main"]/main/div/div[2]/div[1]`

var DefaultStageBlocks = []StageBlock{
	{Name: "Creche", XPath: censusPanel + "/div[3]/div[2]/div[5]"},
	{Name: "Pré-escola", XPath: censusPanel + "/div[3]/div[2]/div[6]"},
	{Name: "Anos Iniciais", XPath: censusPanel + "/div[3]/div[2]/div[7]"},
	{Name: "Anos Finais", XPath: censusPanel + "/div[3]/div[2]/div[8]"},
	{Name: "EJA", XPath: censusPanel + "/div[3]/div[2]/div[10]"},
	{Name: "Educação Especial", XPath: censusPanel + "/div[3]/div[2]/div[11]"},
}

// Settle are the waits after each dropdown selection, the census page refetches its cards
// on every change.
type Settle struct {
	Year    time.Duration
	Network time.Duration
	// Filter is the wait after the filter select of the enrollments job.
	Filter time.Duration
	// CensusFilter is the wait after the filter select of the census job.
	CensusFilter time.Duration
}

type Config struct {
	BaseURL          string
	MunicipalityCode string
	MunicipalitySlug string

	SaebYears []string
	Stages    []Stage
	Subjects  []Subject

	CensusYears   []string
	CensusFilters []string
	Network       string
	ModalityTerms []string
	StageBlocks   []StageBlock

	YearSelect    string
	NetworkSelect string
	FilterSelect  string
	SchoolsXPath  string
	MainXPath     string

	Settle Settle
	// LearningClick times the learning job clicks, zero means the browser defaults.
	LearningClick browser.Click
	// ProficiencyClick times the proficiency job clicks, whose buttons sit under overlays
	// that swallow native clicks.
	ProficiencyClick browser.Click
}

// CensusYearRange returns the years from `from` down to `to` as strings.
func CensusYearRange(from, to int) []string {
	var years []string
	for y := from; y >= to; y-- {
		years = append(years, strconv.Itoa(y))
	}
	return years
}

func DefaultConfig() Config {
	return Config{
		BaseURL:          "https://qedu.org.br",
		MunicipalityCode: "3305109",
		MunicipalitySlug: "sao-joao-de-meriti",

		SaebYears: []string{"2023", "2021", "2019", "2017", "2015"},
		Stages:    DefaultStages,
		Subjects:  DefaultSubjects,

		CensusYears: CensusYearRange(2024, 2010),
		CensusFilters: []string{
			"Com Ensino Infantil Regular",
			"Com Ensino Fundamental Regular",
		},
		Network:       "Municipal",
		ModalityTerms: DefaultModalityTerms,
		StageBlocks:   DefaultStageBlocks,

		YearSelect:    censusPanel + "/div[1]/select[1]",
		NetworkSelect: censusPanel + "/div[1]/select[2]",
		FilterSelect:  censusPanel + "/div[1]/select[4]",
		SchoolsXPath:  censusPanel + "/div[3]/div[2]/div[1]/div[2]/span[1]",
		MainXPath:     `//*[@id="main"]`,

		Settle: Settle{
			Year:         3 * time.Second,
			Network:      3 * time.Second,
			Filter:       4 * time.Second,
			CensusFilter: 5 * time.Second,
		},
		ProficiencyClick: browser.Click{
			Timeout:      3 * time.Second,
			ScrollSettle: 500 * time.Millisecond,
			Settle:       3 * time.Second,
			JSFirst:      true,
		},
	}
}

func (c Config) municipalityURL(page string) string {
	return fmt.Sprintf("%s/municipio/%s-%s/%s", c.BaseURL, c.MunicipalityCode, c.MunicipalitySlug, page)
}

func (c Config) LearningURL() string {
	return c.municipalityURL("aprendizado")
}

func (c Config) CensusURL() string {
	return c.municipalityURL("censo-escolar")
}

// stageRank orders census stage blocks as they are configured.
func (c Config) stageRank(name string) int {
	for i, b := range c.StageBlocks {
		if b.Name == name {
			return i
		}
	}
	return len(c.StageBlocks)
}
