package bank

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Questions []seedQuestion `yaml:"questions"`
}

type seedQuestion struct {
	Text         string  `yaml:"text"`
	Type         string  `yaml:"type"`
	PrimaryCO    string  `yaml:"primary_co"`
	UnitID       string  `yaml:"unit_id"`
	BloomLevel   int     `yaml:"bloom_level"`
	Difficulty   string  `yaml:"difficulty"`
	Marks        int     `yaml:"marks"`
	TimeMinutes  int     `yaml:"time_minutes"`
	CourseCode   string  `yaml:"course_code"`
	QualityScore float64 `yaml:"quality_score"`
	ReviewStatus string  `yaml:"review_status"`
	AuthorID     string  `yaml:"author_id"`
}

// SeedFromYAML loads questions from a YAML file into the bank.
// Returns the number of questions inserted.
func (s *Store) SeedFromYAML(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}
	if len(file.Questions) == 0 {
		return 0, fmt.Errorf("seed file %s contains no questions", path)
	}

	inserted := 0
	for idx, sq := range file.Questions {
		q := Question{
			Text:         sq.Text,
			QuestionType: sq.Type,
			PrimaryCO:    sq.PrimaryCO,
			UnitID:       sq.UnitID,
			BloomLevel:   sq.BloomLevel,
			Difficulty:   sq.Difficulty,
			Marks:        sq.Marks,
			TimeMinutes:  sq.TimeMinutes,
			CourseCode:   sq.CourseCode,
			QualityScore: sq.QualityScore,
			ReviewStatus: sq.ReviewStatus,
			AuthorID:     sq.AuthorID,
		}
		if _, err := s.AddQuestion(q); err != nil {
			return inserted, fmt.Errorf("seed question %d: %w", idx, err)
		}
		inserted++
	}
	return inserted, nil
}
