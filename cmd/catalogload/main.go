// Command catalogload upserts a JSON course catalog into the database.
//
//	catalogload -file catalog.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/mindengage-progress/internal/config"
	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/logger"
)

type catalog struct {
	Courses   []course.Course   `json:"courses"`
	Modules   []course.Module   `json:"modules"`
	Lessons   []course.Lesson   `json:"lessons"`
	Quizzes   []course.Quiz     `json:"quizzes"`
	Questions []course.Question `json:"questions"`
}

func main() {
	file := flag.String("file", "catalog.json", "catalog JSON file")
	flag.Parse()

	cfg := config.FromEnv()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("read catalog", "file", *file, "error", err)
	}
	var cat catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		log.Fatal("parse catalog", "file", *file, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatal("bad DB_DRIVER", "error", err)
	}
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		log.Fatal("db open failed", "error", err)
	}
	defer dbh.Close()

	store := course.NewSQLStore(dbh)
	err = db.WithTx(ctx, dbh, func(tx *sqlx.Tx) error {
		return load(ctx, store.WithTx(tx), cat)
	})
	if err != nil {
		log.Fatal("load catalog", "error", err)
	}
	log.Info("catalog loaded",
		"courses", len(cat.Courses),
		"modules", len(cat.Modules),
		"lessons", len(cat.Lessons),
		"quizzes", len(cat.Quizzes),
		"questions", len(cat.Questions),
	)
}

// load writes parents before children so foreign keys hold.
func load(ctx context.Context, w course.CatalogWriter, cat catalog) error {
	for _, c := range cat.Courses {
		if err := w.PutCourse(ctx, c); err != nil {
			return fmt.Errorf("course %d: %w", c.ID, err)
		}
	}
	for _, m := range cat.Modules {
		if err := w.PutModule(ctx, m); err != nil {
			return fmt.Errorf("module %d: %w", m.ID, err)
		}
	}
	for _, l := range cat.Lessons {
		if err := w.PutLesson(ctx, l); err != nil {
			return fmt.Errorf("lesson %d: %w", l.ID, err)
		}
	}
	for _, q := range cat.Questions {
		if err := w.PutQuestion(ctx, q); err != nil {
			return fmt.Errorf("question %d: %w", q.ID, err)
		}
	}
	for _, q := range cat.Quizzes {
		if err := w.PutQuiz(ctx, q); err != nil {
			return fmt.Errorf("quiz %d: %w", q.ID, err)
		}
	}
	return nil
}
