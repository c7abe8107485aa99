package projects

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alantheprice/council/pkg/consensus"
)

// ErrNotFound is returned when a project or run does not exist.
var ErrNotFound = errors.New("not found")

// InitDB opens (creating if necessary) the sqlite database at path and
// migrates the schema. ":memory:" is accepted for tests.
func InitDB(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Project{}, &RunRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

// Store is the persistence layer for projects and run records.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an initialized database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertProject creates a project by name or, when one already exists,
// replaces its task, files and messages.
func (s *Store) UpsertProject(name, task string, files map[string]string, messages []consensus.Message) (*Project, error) {
	var project Project
	err := s.db.Where("name = ?", name).First(&project).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		project = Project{ID: uuid.NewString(), Name: name}
	case err != nil:
		return nil, err
	}

	project.Task = task
	if err := project.SetFiles(files); err != nil {
		return nil, err
	}
	if err := project.SetMessages(messages); err != nil {
		return nil, err
	}

	if err := s.db.Save(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List returns every project, newest first.
func (s *Store) List() ([]Project, error) {
	var list []Project
	err := s.db.Order("created_at desc").Find(&list).Error
	return list, err
}

// Get fetches one project with its runs.
func (s *Store) Get(id string) (*Project, error) {
	var project Project
	err := s.db.Preload("Runs").Where("id = ?", id).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetByName fetches one project by its unique name.
func (s *Store) GetByName(name string) (*Project, error) {
	var project Project
	err := s.db.Where("name = ?", name).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// SaveRun records a terminal consensus session, optionally attached to a
// project. Saving the same session twice updates the earlier record.
func (s *Store) SaveRun(projectID string, sess *consensus.Session) (*RunRecord, error) {
	filesJSON, err := json.Marshal(sess.Files)
	if err != nil {
		return nil, err
	}
	transcriptJSON, err := json.Marshal(sess.Transcript)
	if err != nil {
		return nil, err
	}

	record := RunRecord{
		ProjectID:      projectID,
		SessionID:      sess.ID,
		Task:           sess.Task,
		Phase:          string(sess.Phase),
		Status:         string(sess.Status),
		Error:          sess.Error,
		Passed:         sess.TestResult != nil && sess.TestResult.Passed,
		FilesJSON:      string(filesJSON),
		TranscriptJSON: string(transcriptJSON),
		CreatedAt:      time.Now(),
	}

	var existing RunRecord
	err = s.db.Where("session_id = ?", sess.ID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record.ID = uuid.NewString()
	case err != nil:
		return nil, err
	default:
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	}

	if err := s.db.Save(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Runs lists the run records for a project, newest first.
func (s *Store) Runs(projectID string) ([]RunRecord, error) {
	var runs []RunRecord
	err := s.db.Where("project_id = ?", projectID).Order("created_at desc").Find(&runs).Error
	return runs, err
}

// RunBySession fetches the record for one session id.
func (s *Store) RunBySession(sessionID string) (*RunRecord, error) {
	var record RunRecord
	err := s.db.Where("session_id = ?", sessionID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
