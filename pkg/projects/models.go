// Package projects persists named projects and finished consensus runs in
// sqlite.
package projects

import (
	"encoding/json"
	"time"

	"github.com/alantheprice/council/pkg/consensus"
)

// Project is a named collection of generated files, updated in place by
// successive runs and chat sessions.
type Project struct {
	ID           string    `json:"id" gorm:"primaryKey;size:64"`
	Name         string    `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Task         string    `json:"task" gorm:"type:text"`
	FilesJSON    string    `json:"-" gorm:"column:files;type:text"`
	MessagesJSON string    `json:"-" gorm:"column:messages;type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Runs []RunRecord `json:"runs,omitempty" gorm:"foreignKey:ProjectID"`
}

// RunRecord is the durable trace of one finished consensus session.
type RunRecord struct {
	ID             string    `json:"id" gorm:"primaryKey;size:64"`
	ProjectID      string    `json:"project_id" gorm:"index;size:64"`
	SessionID      string    `json:"session_id" gorm:"size:64;uniqueIndex"`
	Task           string    `json:"task" gorm:"type:text"`
	Phase          string    `json:"phase" gorm:"size:32"`
	Status         string    `json:"status" gorm:"size:32"`
	Error          string    `json:"error" gorm:"type:text"`
	Passed         bool      `json:"passed"`
	FilesJSON      string    `json:"-" gorm:"column:files;type:text"`
	TranscriptJSON string    `json:"-" gorm:"column:transcript;type:text"`
	CreatedAt      time.Time `json:"created_at"`
}

// SetFiles stores the file map as a JSON text column.
func (p *Project) SetFiles(files map[string]string) error {
	data, err := json.Marshal(files)
	if err != nil {
		return err
	}
	p.FilesJSON = string(data)
	return nil
}

// Files decodes the stored file map. An empty column yields an empty map.
func (p *Project) Files() (map[string]string, error) {
	files := make(map[string]string)
	if p.FilesJSON == "" {
		return files, nil
	}
	if err := json.Unmarshal([]byte(p.FilesJSON), &files); err != nil {
		return nil, err
	}
	return files, nil
}

// SetMessages stores the transcript as a JSON text column.
func (p *Project) SetMessages(messages []consensus.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	p.MessagesJSON = string(data)
	return nil
}

// Messages decodes the stored transcript.
func (p *Project) Messages() ([]consensus.Message, error) {
	if p.MessagesJSON == "" {
		return nil, nil
	}
	var messages []consensus.Message
	if err := json.Unmarshal([]byte(p.MessagesJSON), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Files decodes the run's stored file map.
func (r *RunRecord) Files() (map[string]string, error) {
	files := make(map[string]string)
	if r.FilesJSON == "" {
		return files, nil
	}
	if err := json.Unmarshal([]byte(r.FilesJSON), &files); err != nil {
		return nil, err
	}
	return files, nil
}

// Transcript decodes the run's stored transcript.
func (r *RunRecord) Transcript() ([]consensus.Message, error) {
	if r.TranscriptJSON == "" {
		return nil, nil
	}
	var messages []consensus.Message
	if err := json.Unmarshal([]byte(r.TranscriptJSON), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
