package bank

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages the question bank and assembled papers in SQLite.
type Store struct {
	DBPath string
	db     *sql.DB
}

// PaperRecord is a persisted exam paper row.
type PaperRecord struct {
	ID                string
	PaperName         string
	CourseCode        string
	ExamType          string
	TotalMarks        int
	DurationMinutes   int
	BlueprintJSON     string
	QuestionIDs       []int64
	Status            string
	CreatedAt         time.Time
	FinalizedAt       *time.Time
	COCoverageJSON    string
	UnitCoverageJSON  string
	BloomCoverageJSON string
}

// Open opens or creates the question bank database.
func Open(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve bank db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure bank db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open bank db: %w", err)
	}

	store := &Store{
		DBPath: absPath,
		db:     db,
	}

	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question_text TEXT NOT NULL,
	question_type TEXT,
	primary_co TEXT NOT NULL,
	unit_id TEXT NOT NULL,
	bloom_level INTEGER NOT NULL,
	difficulty TEXT NOT NULL,
	marks INTEGER NOT NULL,
	time_minutes INTEGER,
	course_code TEXT,
	quality_score REAL,
	review_status TEXT NOT NULL DEFAULT 'pending',
	author_id TEXT,
	created_at TEXT NOT NULL,
	reviewed_at TEXT,
	times_used INTEGER NOT NULL DEFAULT 0,
	last_used_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_questions_course_status ON questions(course_code, review_status);
CREATE INDEX IF NOT EXISTS idx_questions_co ON questions(primary_co);
CREATE INDEX IF NOT EXISTS idx_questions_unit ON questions(unit_id);

CREATE TABLE IF NOT EXISTS exam_papers (
	id TEXT PRIMARY KEY,
	paper_name TEXT NOT NULL,
	course_code TEXT NOT NULL,
	exam_type TEXT,
	total_marks INTEGER NOT NULL,
	duration_minutes INTEGER NOT NULL,
	blueprint_json TEXT NOT NULL,
	question_ids_json TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'draft',
	created_at TEXT NOT NULL,
	finalized_at TEXT,
	co_coverage_json TEXT,
	unit_coverage_json TEXT,
	bloom_coverage_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_papers_course ON exam_papers(course_code, created_at);
`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("create bank schema: %w", err)
	}
	return nil
}

// AddQuestion inserts a question and returns its assigned id.
func (s *Store) AddQuestion(q Question) (int64, error) {
	if strings.TrimSpace(q.Text) == "" {
		return 0, fmt.Errorf("question text is required")
	}
	if q.BloomLevel < 1 || q.BloomLevel > 6 {
		return 0, fmt.Errorf("bloom level must be between 1 and 6")
	}
	if q.Marks <= 0 {
		return 0, fmt.Errorf("marks must be positive")
	}
	if q.ReviewStatus == "" {
		q.ReviewStatus = ReviewPending
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(`
INSERT INTO questions (
	question_text, question_type, primary_co, unit_id, bloom_level, difficulty,
	marks, time_minutes, course_code, quality_score, review_status, author_id,
	created_at, reviewed_at, times_used, last_used_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.Text, nullString(q.QuestionType), q.PrimaryCO, q.UnitID, q.BloomLevel, q.Difficulty,
		q.Marks, q.TimeMinutes, nullString(q.CourseCode), q.QualityScore, q.ReviewStatus, nullString(q.AuthorID),
		q.CreatedAt.Format(time.RFC3339), nullTime(q.ReviewedAt), q.TimesUsed, nullTime(q.LastUsedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("question id: %w", err)
	}
	return id, nil
}

// GetQuestion returns the question with the given id.
func (s *Store) GetQuestion(id int64) (Question, error) {
	row := s.db.QueryRow(selectQuestion+" WHERE id = ?", id)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return Question{}, fmt.Errorf("question %d not found", id)
	}
	if err != nil {
		return Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// UpdateQuestionMarks sets the marks awarded when a question is placed on a paper.
func (s *Store) UpdateQuestionMarks(id int64, marks int) error {
	if marks <= 0 {
		return fmt.Errorf("marks must be positive")
	}
	res, err := s.db.Exec(`UPDATE questions SET marks = ? WHERE id = ?`, marks, id)
	if err != nil {
		return fmt.Errorf("update question marks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update question marks: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("question %d not found", id)
	}
	return nil
}

// UpdateReviewStatus transitions a question's review state.
func (s *Store) UpdateReviewStatus(id int64, status string) error {
	switch status {
	case ReviewPending, ReviewAccepted, ReviewEdited, ReviewRejected:
	default:
		return fmt.Errorf("invalid review status %q", status)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE questions SET review_status = ?, reviewed_at = ? WHERE id = ?`, status, now, id)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("question %d not found", id)
	}
	return nil
}

// MarkUsed records that the questions appeared on an assembled paper.
func (s *Store) MarkUsed(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("mark used: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.Exec(`UPDATE questions SET times_used = times_used + 1, last_used_at = ? WHERE id = ?`, now, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("mark used %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// QueryQuestions returns questions matching the filters, newest first.
func (s *Store) QueryQuestions(f Filters) ([]Question, error) {
	query := selectQuestion
	var conds []string
	var args []any

	if f.CourseCode != "" {
		conds = append(conds, "course_code = ?")
		args = append(args, f.CourseCode)
	}
	if f.PrimaryCO != "" {
		conds = append(conds, "primary_co = ?")
		args = append(args, f.PrimaryCO)
	}
	if f.UnitID != "" {
		conds = append(conds, "unit_id = ?")
		args = append(args, f.UnitID)
	}
	if f.BloomLevel != 0 {
		conds = append(conds, "bloom_level = ?")
		args = append(args, f.BloomLevel)
	}
	if f.Difficulty != "" {
		conds = append(conds, "difficulty = ?")
		args = append(args, f.Difficulty)
	}
	if f.ReviewStatus != "" {
		conds = append(conds, "review_status = ?")
		args = append(args, f.ReviewStatus)
	}
	if f.AuthorID != "" {
		conds = append(conds, "author_id = ?")
		args = append(args, f.AuthorID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// EligiblePool returns accepted questions for a course. When authorID is
// given and that author has accepted questions, only theirs are returned;
// otherwise the pool falls back to all accepted questions.
func (s *Store) EligiblePool(courseCode, authorID string) ([]Question, error) {
	if authorID != "" {
		pool, err := s.QueryQuestions(Filters{
			CourseCode:   courseCode,
			ReviewStatus: ReviewAccepted,
			AuthorID:     authorID,
		})
		if err != nil {
			return nil, err
		}
		if len(pool) > 0 {
			return pool, nil
		}
	}
	return s.QueryQuestions(Filters{
		CourseCode:   courseCode,
		ReviewStatus: ReviewAccepted,
	})
}

// CountQuestions counts questions matching the filters.
func (s *Store) CountQuestions(f Filters) (int, error) {
	pool, err := s.QueryQuestions(f)
	if err != nil {
		return 0, err
	}
	return len(pool), nil
}

// SavePaper persists an assembled paper row.
func (s *Store) SavePaper(p PaperRecord) error {
	if p.ID == "" {
		return fmt.Errorf("paper id is required")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	idsJSON, err := json.Marshal(p.QuestionIDs)
	if err != nil {
		return fmt.Errorf("encode question ids: %w", err)
	}

	_, err = s.db.Exec(`
INSERT INTO exam_papers (
	id, paper_name, course_code, exam_type, total_marks, duration_minutes,
	blueprint_json, question_ids_json, status, created_at, finalized_at,
	co_coverage_json, unit_coverage_json, bloom_coverage_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PaperName, p.CourseCode, nullString(p.ExamType), p.TotalMarks, p.DurationMinutes,
		p.BlueprintJSON, string(idsJSON), p.Status, p.CreatedAt.Format(time.RFC3339), nullTime(p.FinalizedAt),
		nullString(p.COCoverageJSON), nullString(p.UnitCoverageJSON), nullString(p.BloomCoverageJSON),
	)
	if err != nil {
		return fmt.Errorf("insert paper: %w", err)
	}
	return nil
}

// GetPaper returns a persisted paper by id.
func (s *Store) GetPaper(id string) (PaperRecord, error) {
	row := s.db.QueryRow(`
SELECT id, paper_name, course_code, exam_type, total_marks, duration_minutes,
	blueprint_json, question_ids_json, status, created_at, finalized_at,
	co_coverage_json, unit_coverage_json, bloom_coverage_json
FROM exam_papers WHERE id = ?`, id)

	var p PaperRecord
	var examType, finalizedAt, coCov, unitCov, bloomCov sql.NullString
	var idsJSON, createdAt string
	err := row.Scan(&p.ID, &p.PaperName, &p.CourseCode, &examType, &p.TotalMarks, &p.DurationMinutes,
		&p.BlueprintJSON, &idsJSON, &p.Status, &createdAt, &finalizedAt,
		&coCov, &unitCov, &bloomCov)
	if err == sql.ErrNoRows {
		return PaperRecord{}, fmt.Errorf("paper %s not found", id)
	}
	if err != nil {
		return PaperRecord{}, fmt.Errorf("get paper: %w", err)
	}

	p.ExamType = examType.String
	p.COCoverageJSON = coCov.String
	p.UnitCoverageJSON = unitCov.String
	p.BloomCoverageJSON = bloomCov.String
	if err := json.Unmarshal([]byte(idsJSON), &p.QuestionIDs); err != nil {
		return PaperRecord{}, fmt.Errorf("decode question ids: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = t
	}
	if finalizedAt.Valid {
		if t, err := time.Parse(time.RFC3339, finalizedAt.String); err == nil {
			p.FinalizedAt = &t
		}
	}
	return p, nil
}

// ListPapers returns paper ids and names for a course, newest first.
func (s *Store) ListPapers(courseCode string) ([]PaperRecord, error) {
	query := `
SELECT id, paper_name, course_code, total_marks, status, created_at
FROM exam_papers`
	var args []any
	if courseCode != "" {
		query += " WHERE course_code = ?"
		args = append(args, courseCode)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	var out []PaperRecord
	for rows.Next() {
		var p PaperRecord
		var createdAt string
		if err := rows.Scan(&p.ID, &p.PaperName, &p.CourseCode, &p.TotalMarks, &p.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			p.CreatedAt = t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const selectQuestion = `
SELECT id, question_text, question_type, primary_co, unit_id, bloom_level, difficulty,
	marks, time_minutes, course_code, quality_score, review_status, author_id,
	created_at, reviewed_at, times_used, last_used_at
FROM questions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	var questionType, courseCode, authorID, reviewedAt, lastUsedAt sql.NullString
	var quality sql.NullFloat64
	var timeMinutes sql.NullInt64
	var createdAt string

	err := row.Scan(&q.ID, &q.Text, &questionType, &q.PrimaryCO, &q.UnitID, &q.BloomLevel, &q.Difficulty,
		&q.Marks, &timeMinutes, &courseCode, &quality, &q.ReviewStatus, &authorID,
		&createdAt, &reviewedAt, &q.TimesUsed, &lastUsedAt)
	if err != nil {
		return Question{}, err
	}

	q.QuestionType = questionType.String
	q.CourseCode = courseCode.String
	q.AuthorID = authorID.String
	q.QualityScore = quality.Float64
	q.TimeMinutes = int(timeMinutes.Int64)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		q.CreatedAt = t
	}
	if reviewedAt.Valid {
		if t, err := time.Parse(time.RFC3339, reviewedAt.String); err == nil {
			q.ReviewedAt = &t
		}
	}
	if lastUsedAt.Valid {
		if t, err := time.Parse(time.RFC3339, lastUsedAt.String); err == nil {
			q.LastUsedAt = &t
		}
	}
	return q, nil
}

func scanQuestions(rows *sql.Rows) ([]Question, error) {
	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
