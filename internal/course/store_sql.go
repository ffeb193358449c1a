package course

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/mindengage-progress/internal/apperr"
)

// SQLStore implements Store on sqlite or postgres through sqlx.
// Queries use $N placeholders, which both drivers accept.
type SQLStore struct {
	db dbtx
}

// dbtx is satisfied by both *sqlx.DB and *sqlx.Tx.
type dbtx interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// WithTx returns a store bound to tx.
func (s *SQLStore) WithTx(tx *sqlx.Tx) *SQLStore {
	return &SQLStore{db: tx}
}

// ---- rows ----

type courseRow struct {
	ID            int64  `db:"id"`
	Title         string `db:"title"`
	FreeItemCount int    `db:"free_item_count"`
	ModuleIDs     string `db:"module_ids_json"`
}

type moduleRow struct {
	ID       int64  `db:"id"`
	CourseID int64  `db:"course_id"`
	Title    string `db:"title"`
	Contents string `db:"contents_json"`
}

type lessonRow struct {
	ID              int64  `db:"id"`
	CourseID        int64  `db:"course_id"`
	ModuleID        int64  `db:"module_id"`
	Title           string `db:"title"`
	Order           int    `db:"sort_order"`
	DurationSeconds int    `db:"duration_seconds"`
}

type quizRow struct {
	ID               int64         `db:"id"`
	CourseID         int64         `db:"course_id"`
	ModuleID         int64         `db:"module_id"`
	LessonID         sql.NullInt64 `db:"lesson_id"`
	Title            string        `db:"title"`
	Status           string        `db:"status"`
	Order            int           `db:"sort_order"`
	QuestionIDs      string        `db:"question_ids_json"`
	MaxAttempts      sql.NullInt64 `db:"max_attempts"`
	PassingScore     sql.NullInt64 `db:"passing_score"`
	AvailableFrom    sql.NullInt64 `db:"available_from"`
	AvailableUntil   sql.NullInt64 `db:"available_until"`
	TotalAttempts    int           `db:"analytics_total_attempts"`
	AverageScore     int           `db:"analytics_average_score"`
	PassRate         int           `db:"analytics_pass_rate"`
	AverageTimeSpent int           `db:"analytics_average_time_spent"`
}

type questionRow struct {
	ID                int64        `db:"id"`
	Type              string       `db:"type"`
	Prompt            string       `db:"prompt"`
	Options           string       `db:"options_json"`
	CorrectBool       sql.NullBool `db:"correct_bool"`
	AcceptableAnswers string       `db:"acceptable_answers_json"`
	CorrectAnswer     string       `db:"correct_answer"`
	Points            float64      `db:"points"`
}

type attemptRow struct {
	ID            int64         `db:"id"`
	UserID        int64         `db:"user_id"`
	QuizID        int64         `db:"quiz_id"`
	AttemptNumber int           `db:"attempt_number"`
	Status        string        `db:"status"`
	Answers       string        `db:"answers_json"`
	TotalPoints   float64       `db:"total_points"`
	MaxPoints     float64       `db:"max_points"`
	Score         int           `db:"score"`
	Passed        bool          `db:"passed"`
	StartedAt     int64         `db:"started_at"`
	CompletedAt   sql.NullInt64 `db:"completed_at"`
	TimeSpent     int64         `db:"time_spent"`
}

type progressRow struct {
	ID                 int64         `db:"id"`
	UserID             int64         `db:"user_id"`
	CourseID           int64         `db:"course_id"`
	CompletedLessons   string        `db:"completed_lessons_json"`
	LessonStates       string        `db:"lesson_states_json"`
	QuizScores         string        `db:"quiz_scores_json"`
	LessonScores       string        `db:"lesson_scores_json"`
	Status             string        `db:"status"`
	ProgressPercentage int           `db:"progress_percentage"`
	EnrolledAt         int64         `db:"enrolled_at"`
	StartedAt          sql.NullInt64 `db:"started_at"`
	CompletedAt        sql.NullInt64 `db:"completed_at"`
	LastAccessedAt     int64         `db:"last_accessed_at"`
}

const (
	quizColumns = `id,course_id,module_id,lesson_id,title,status,sort_order,question_ids_json,
		max_attempts,passing_score,available_from,available_until,
		analytics_total_attempts,analytics_average_score,analytics_pass_rate,analytics_average_time_spent`
	attemptColumns = `id,user_id,quiz_id,attempt_number,status,answers_json,total_points,max_points,
		score,passed,started_at,completed_at,time_spent`
	progressColumns = `id,user_id,course_id,completed_lessons_json,lesson_states_json,quiz_scores_json,
		lesson_scores_json,status,progress_percentage,enrolled_at,started_at,completed_at,last_accessed_at`
)

// ---- catalog writes ----

func (s *SQLStore) PutCourse(ctx context.Context, c Course) error {
	ids, err := marshalJSON(nonNil(c.ModuleIDs))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO courses (id,title,free_item_count,module_ids_json,created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, free_item_count=EXCLUDED.free_item_count,
			module_ids_json=EXCLUDED.module_ids_json`,
		c.ID, c.Title, c.FreeItemCount, ids, time.Now().Unix())
	return err
}

func (s *SQLStore) PutModule(ctx context.Context, m Module) error {
	contents, err := marshalJSON(nonNil(m.Contents))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO modules (id,course_id,title,contents_json)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, title=EXCLUDED.title,
			contents_json=EXCLUDED.contents_json`,
		m.ID, m.CourseID, m.Title, contents)
	return err
}

func (s *SQLStore) PutLesson(ctx context.Context, l Lesson) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO lessons (id,course_id,module_id,title,sort_order,duration_seconds)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, module_id=EXCLUDED.module_id,
			title=EXCLUDED.title, sort_order=EXCLUDED.sort_order, duration_seconds=EXCLUDED.duration_seconds`,
		l.ID, l.CourseID, l.ModuleID, l.Title, l.Order, l.DurationSeconds)
	return err
}

func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) error {
	qids, err := marshalJSON(nonNil(q.QuestionIDs))
	if err != nil {
		return err
	}
	status := q.Status
	if status == "" {
		status = QuizPublished
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,course_id,module_id,lesson_id,title,status,sort_order,
			question_ids_json,max_attempts,passing_score,available_from,available_until)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, module_id=EXCLUDED.module_id,
			lesson_id=EXCLUDED.lesson_id, title=EXCLUDED.title, status=EXCLUDED.status,
			sort_order=EXCLUDED.sort_order, question_ids_json=EXCLUDED.question_ids_json,
			max_attempts=EXCLUDED.max_attempts, passing_score=EXCLUDED.passing_score,
			available_from=EXCLUDED.available_from, available_until=EXCLUDED.available_until`,
		q.ID, q.CourseID, q.ModuleID, nullID(q.LessonID), q.Title, status, q.Order, qids,
		nullInt(q.Settings.MaxAttempts), nullInt(q.Settings.PassingScore),
		nullUnix(q.Availability.AvailableFrom), nullUnix(q.Availability.AvailableUntil))
	return err
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	opts, err := marshalJSON(nonNil(q.Options))
	if err != nil {
		return err
	}
	acc, err := marshalJSON(nonNil(q.AcceptableAnswers))
	if err != nil {
		return err
	}
	var cb sql.NullBool
	if q.CorrectBool != nil {
		cb = sql.NullBool{Bool: *q.CorrectBool, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO questions (id,type,prompt,options_json,correct_bool,
			acceptable_answers_json,correct_answer,points)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET type=EXCLUDED.type, prompt=EXCLUDED.prompt,
			options_json=EXCLUDED.options_json, correct_bool=EXCLUDED.correct_bool,
			acceptable_answers_json=EXCLUDED.acceptable_answers_json,
			correct_answer=EXCLUDED.correct_answer, points=EXCLUDED.points`,
		q.ID, string(q.Type), q.Prompt, opts, cb, acc, q.CorrectAnswer, q.Weight())
	return err
}

// ---- catalog reads ----

func (s *SQLStore) GetCourse(ctx context.Context, id int64) (Course, error) {
	var row courseRow
	err := s.db.GetContext(ctx, &row, `SELECT id,title,free_item_count,module_ids_json FROM courses WHERE id=$1`, id)
	if err != nil {
		return Course{}, notFound(err, "course %d not found", id)
	}
	c := Course{ID: row.ID, Title: row.Title, FreeItemCount: row.FreeItemCount}
	if err := unmarshalJSON(row.ModuleIDs, &c.ModuleIDs); err != nil {
		return Course{}, fmt.Errorf("course %d module ids: %w", id, err)
	}
	return c, nil
}

func (s *SQLStore) LoadCurriculum(ctx context.Context, courseID int64) (Course, error) {
	c, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return Course{}, err
	}

	var mods []moduleRow
	if err := s.db.SelectContext(ctx, &mods,
		`SELECT id,course_id,title,contents_json FROM modules WHERE course_id=$1`, courseID); err != nil {
		return Course{}, err
	}
	var lessons []lessonRow
	if err := s.db.SelectContext(ctx, &lessons,
		`SELECT id,course_id,module_id,title,sort_order,duration_seconds FROM lessons WHERE course_id=$1 ORDER BY id`,
		courseID); err != nil {
		return Course{}, err
	}
	var quizzes []quizRow
	if err := s.db.SelectContext(ctx, &quizzes,
		`SELECT `+quizColumns+` FROM quizzes WHERE course_id=$1 AND status<>$2 ORDER BY id`,
		courseID, QuizArchived); err != nil {
		return Course{}, err
	}

	byID := make(map[int64]moduleRow, len(mods))
	for _, m := range mods {
		byID[m.ID] = m
	}
	lessonSet := make(map[int64]struct{}, len(lessons))
	for _, l := range lessons {
		lessonSet[l.ID] = struct{}{}
	}
	quizSet := make(map[int64]struct{}, len(quizzes))
	for _, q := range quizzes {
		quizSet[q.ID] = struct{}{}
	}

	c.Modules = make([]Module, 0, len(c.ModuleIDs))
	for _, mid := range c.ModuleIDs {
		row, ok := byID[mid]
		if !ok {
			continue
		}
		m := Module{ID: row.ID, CourseID: row.CourseID, Title: row.Title}
		var refs []ContentRef
		if err := unmarshalJSON(row.Contents, &refs); err != nil {
			return Course{}, fmt.Errorf("module %d contents: %w", mid, err)
		}
		for _, ref := range refs {
			switch ref.Kind {
			case KindLesson:
				if _, ok := lessonSet[ref.RefID]; ok {
					m.Contents = append(m.Contents, ref)
				}
			case KindQuiz:
				if _, ok := quizSet[ref.RefID]; ok {
					m.Contents = append(m.Contents, ref)
				}
			}
		}
		for _, l := range lessons {
			if l.ModuleID == mid {
				m.Lessons = append(m.Lessons, OrderedRef{ID: l.ID, Order: l.Order})
			}
		}
		for _, q := range quizzes {
			if q.ModuleID == mid {
				m.Quizzes = append(m.Quizzes, OrderedRef{ID: q.ID, Order: q.Order})
			}
		}
		c.Modules = append(c.Modules, m)
	}
	return c, nil
}

func (s *SQLStore) GetLesson(ctx context.Context, id int64) (Lesson, error) {
	var row lessonRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id,course_id,module_id,title,sort_order,duration_seconds FROM lessons WHERE id=$1`, id)
	if err != nil {
		return Lesson{}, notFound(err, "lesson %d not found", id)
	}
	return Lesson(row), nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, id int64) (Quiz, error) {
	var row quizRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, id); err != nil {
		return Quiz{}, notFound(err, "quiz %d not found", id)
	}
	return row.toQuiz()
}

func (r quizRow) toQuiz() (Quiz, error) {
	q := Quiz{
		ID:       r.ID,
		CourseID: r.CourseID,
		ModuleID: r.ModuleID,
		Title:    r.Title,
		Status:   r.Status,
		Order:    r.Order,
		Analytics: QuizAnalytics{
			TotalAttempts:    r.TotalAttempts,
			AverageScore:     r.AverageScore,
			PassRate:         r.PassRate,
			AverageTimeSpent: r.AverageTimeSpent,
		},
	}
	if r.LessonID.Valid {
		id := r.LessonID.Int64
		q.LessonID = &id
	}
	q.Settings.MaxAttempts = intPtr(r.MaxAttempts)
	q.Settings.PassingScore = intPtr(r.PassingScore)
	q.Availability.AvailableFrom = timePtr(r.AvailableFrom)
	q.Availability.AvailableUntil = timePtr(r.AvailableUntil)
	if err := unmarshalJSON(r.QuestionIDs, &q.QuestionIDs); err != nil {
		return Quiz{}, fmt.Errorf("quiz %d question ids: %w", r.ID, err)
	}
	return q, nil
}

func (s *SQLStore) GetQuestions(ctx context.Context, ids []int64) ([]Question, error) {
	if len(ids) == 0 {
		return []Question{}, nil
	}
	query, args, err := sqlx.In(`SELECT id,type,prompt,options_json,correct_bool,acceptable_answers_json,
		correct_answer,points FROM questions WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []questionRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	byID := make(map[int64]Question, len(rows))
	for _, r := range rows {
		q := Question{
			ID:            r.ID,
			Type:          QuestionType(r.Type),
			Prompt:        r.Prompt,
			CorrectAnswer: r.CorrectAnswer,
			Points:        r.Points,
		}
		if r.CorrectBool.Valid {
			b := r.CorrectBool.Bool
			q.CorrectBool = &b
		}
		if err := unmarshalJSON(r.Options, &q.Options); err != nil {
			return nil, fmt.Errorf("question %d options: %w", r.ID, err)
		}
		if err := unmarshalJSON(r.AcceptableAnswers, &q.AcceptableAnswers); err != nil {
			return nil, fmt.Errorf("question %d acceptable answers: %w", r.ID, err)
		}
		byID[q.ID] = q
	}
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *SQLStore) UpdateQuizAnalytics(ctx context.Context, quizID int64, a QuizAnalytics) error {
	res, err := s.db.ExecContext(ctx, `UPDATE quizzes SET analytics_total_attempts=$1, analytics_average_score=$2,
			analytics_pass_rate=$3, analytics_average_time_spent=$4 WHERE id=$5`,
		a.TotalAttempts, a.AverageScore, a.PassRate, a.AverageTimeSpent, quizID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("quiz %d not found", quizID)
	}
	return nil
}

// ---- attempts ----

func attemptWhere(opts AttemptListOpts) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if opts.QuizID != 0 {
		conds = append(conds, "quiz_id=?")
		args = append(args, opts.QuizID)
	}
	if opts.UserID != 0 {
		conds = append(conds, "user_id=?")
		args = append(args, opts.UserID)
	}
	if opts.Status != "" {
		conds = append(conds, "status=?")
		args = append(args, string(opts.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SQLStore) CountAttempts(ctx context.Context, opts AttemptListOpts) (int, error) {
	where, args := attemptWhere(opts)
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM quiz_attempts`+where), args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]QuizAttempt, error) {
	where, args := attemptWhere(opts)
	var rows []attemptRow
	if err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT `+attemptColumns+` FROM quiz_attempts`+where+` ORDER BY id`), args...); err != nil {
		return nil, err
	}
	out := make([]QuizAttempt, 0, len(rows))
	for _, r := range rows {
		a, err := r.toAttempt()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a QuizAttempt) (QuizAttempt, error) {
	answers, err := marshalJSON(nonNil(a.Answers))
	if err != nil {
		return QuizAttempt{}, err
	}
	err = s.db.QueryRowxContext(ctx, `INSERT INTO quiz_attempts (user_id,quiz_id,attempt_number,status,answers_json,
			total_points,max_points,score,passed,started_at,time_spent)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id`,
		a.UserID, a.QuizID, a.AttemptNumber, string(a.Status), answers,
		a.Scoring.TotalPoints, a.Scoring.MaxPoints, a.Scoring.Score, a.Scoring.Passed,
		a.StartedAt.Unix(), a.TimeSpent).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return QuizAttempt{}, apperr.Wrap(apperr.KindInvalid, err,
				fmt.Sprintf("attempt %d for quiz %d already exists", a.AttemptNumber, a.QuizID))
		}
		return QuizAttempt{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id int64) (QuizAttempt, error) {
	var row attemptRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+attemptColumns+` FROM quiz_attempts WHERE id=$1`, id); err != nil {
		return QuizAttempt{}, notFound(err, "attempt %d not found", id)
	}
	return row.toAttempt()
}

func (s *SQLStore) CompleteAttempt(ctx context.Context, a QuizAttempt) error {
	answers, err := marshalJSON(nonNil(a.Answers))
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE quiz_attempts SET status=$1, answers_json=$2, total_points=$3,
			max_points=$4, score=$5, passed=$6, completed_at=$7, time_spent=$8 WHERE id=$9`,
		string(a.Status), answers, a.Scoring.TotalPoints, a.Scoring.MaxPoints, a.Scoring.Score,
		a.Scoring.Passed, nullUnix(a.CompletedAt), a.TimeSpent, a.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("attempt %d not found", a.ID)
	}
	return nil
}

func (r attemptRow) toAttempt() (QuizAttempt, error) {
	a := QuizAttempt{
		ID:            r.ID,
		UserID:        r.UserID,
		QuizID:        r.QuizID,
		AttemptNumber: r.AttemptNumber,
		Status:        AttemptStatus(r.Status),
		Scoring: Scoring{
			TotalPoints: r.TotalPoints,
			MaxPoints:   r.MaxPoints,
			Score:       r.Score,
			Passed:      r.Passed,
		},
		StartedAt:   time.Unix(r.StartedAt, 0).UTC(),
		CompletedAt: timePtr(r.CompletedAt),
		TimeSpent:   r.TimeSpent,
	}
	if err := unmarshalJSON(r.Answers, &a.Answers); err != nil {
		return QuizAttempt{}, fmt.Errorf("attempt %d answers: %w", r.ID, err)
	}
	return a, nil
}

// ---- progress ----

func (s *SQLStore) FindOrCreateProgress(ctx context.Context, userID, courseID int64, now time.Time) (UserProgress, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO user_progress (user_id,course_id,status,progress_percentage,
			enrolled_at,last_accessed_at)
		VALUES ($1,$2,$3,0,$4,$5)
		ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID, courseID, string(StatusNotStarted), now.Unix(), now.Unix())
	if err != nil {
		return UserProgress{}, err
	}
	var row progressRow
	if err := s.db.GetContext(ctx, &row,
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id=$1 AND course_id=$2`, userID, courseID); err != nil {
		return UserProgress{}, err
	}
	return row.toProgress()
}

func (s *SQLStore) SaveProgress(ctx context.Context, p UserProgress) error {
	completed, err := marshalJSON(nonNil(p.CompletedLessons))
	if err != nil {
		return err
	}
	states, err := marshalJSON(nonNil(p.LessonStates))
	if err != nil {
		return err
	}
	quizScores, err := marshalJSON(nonNil(p.QuizScores))
	if err != nil {
		return err
	}
	lessonScores, err := marshalJSON(nonNil(p.Scores))
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE user_progress SET completed_lessons_json=$1, lesson_states_json=$2,
			quiz_scores_json=$3, lesson_scores_json=$4, status=$5, progress_percentage=$6,
			started_at=$7, completed_at=$8, last_accessed_at=$9
		WHERE user_id=$10 AND course_id=$11`,
		completed, states, quizScores, lessonScores, string(p.Status), p.ProgressPercentage,
		nullUnix(p.StartedAt), nullUnix(p.CompletedAt), p.LastAccessedAt.Unix(), p.UserID, p.CourseID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("progress for user %d course %d not found", p.UserID, p.CourseID)
	}
	return nil
}

func (r progressRow) toProgress() (UserProgress, error) {
	p := UserProgress{
		ID:                 r.ID,
		UserID:             r.UserID,
		CourseID:           r.CourseID,
		Status:             ProgressStatus(r.Status),
		ProgressPercentage: r.ProgressPercentage,
		EnrolledAt:         time.Unix(r.EnrolledAt, 0).UTC(),
		StartedAt:          timePtr(r.StartedAt),
		CompletedAt:        timePtr(r.CompletedAt),
		LastAccessedAt:     time.Unix(r.LastAccessedAt, 0).UTC(),
	}
	for _, f := range []struct {
		raw string
		dst any
	}{
		{r.CompletedLessons, &p.CompletedLessons},
		{r.LessonStates, &p.LessonStates},
		{r.QuizScores, &p.QuizScores},
		{r.LessonScores, &p.Scores},
	} {
		if err := unmarshalJSON(f.raw, f.dst); err != nil {
			return UserProgress{}, fmt.Errorf("progress %d: %w", r.ID, err)
		}
	}
	if p.CompletedLessons == nil {
		p.CompletedLessons = []int64{}
	}
	if p.LessonStates == nil {
		p.LessonStates = []LessonState{}
	}
	if p.QuizScores == nil {
		p.QuizScores = []QuizScore{}
	}
	if p.Scores == nil {
		p.Scores = []LessonScore{}
	}
	return p, nil
}

// ---- helpers ----

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(format, args...)
	}
	return err
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalJSON(raw string, dst any) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

// nonNil keeps JSON columns as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
