// Package models defines the persisted entities of the COGENT backend.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is an authenticated account. OAuth ids are nullable because a user may
// sign in through either provider.
type User struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	GithubID  *string   `gorm:"type:varchar(255);uniqueIndex" json:"githubId,omitempty"`
	GoogleID  *string   `gorm:"type:varchar(255);uniqueIndex" json:"googleId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	Projects []Project `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Project belongs to exactly one user. The api key is generated at creation
// and never rotated here.
type Project struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	UserID    uuid.UUID `gorm:"type:varchar(36);index;not null" json:"userId"`
	RepoURL   *string   `gorm:"type:varchar(512)" json:"repoUrl,omitempty"`
	APIKey    string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"apiKey"`
	CreatedAt time.Time `json:"createdAt"`

	Documents []Document `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Usage     []Usage    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Document is one file's content plus summary inside a project. A project
// holds at most one document per file path; the upsert handler enforces it.
type Document struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:varchar(36);not null;index:idx_documents_project_path,priority:1" json:"projectId"`
	FilePath  string    `gorm:"type:varchar(512);not null;index:idx_documents_project_path,priority:2" json:"filePath"`
	Content   string    `gorm:"type:text" json:"content"`
	Summary   string    `gorm:"type:text" json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	SearchIndex *SearchIndex `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// SearchIndex mirrors a document's content for keyword search. ContentVector
// is reserved for embedding-based retrieval and stays null.
type SearchIndex struct {
	ID            uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"id"`
	DocumentID    uuid.UUID `gorm:"type:varchar(36);uniqueIndex;not null" json:"documentId"`
	FullText      string    `gorm:"type:text" json:"-"`
	ContentVector *string   `gorm:"type:text" json:"-"`
}

// Operation types recorded in the usage ledger.
const (
	OpSearch             = "search"
	OpDocumentGeneration = "document_generation"
	OpMCPCall            = "mcp_call"
)

// Usage is an append-only ledger row; nothing updates or deletes individual
// entries, they only go away with their project.
type Usage struct {
	ID                uuid.UUID      `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProjectID         uuid.UUID      `gorm:"type:varchar(36);index;not null" json:"projectId"`
	Timestamp         time.Time      `gorm:"index;not null" json:"timestamp"`
	TokensUsed        int            `gorm:"not null;default:0" json:"tokensUsed"`
	Cost              float64        `gorm:"not null;default:0" json:"cost"`
	OperationType     string         `gorm:"type:varchar(32);index;not null" json:"operationType"`
	OperationMetadata datatypes.JSON `json:"operationMetadata,omitempty"`
}

// AutoMigrate creates or updates the schema for all entities. Order matters
// for foreign keys.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Project{},
		&Document{},
		&SearchIndex{},
		&Usage{},
	)
}
