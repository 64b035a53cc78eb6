package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// APIKey represents the api_keys table. Every key belongs to one congregation.
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	KeyPreview string     `json:"key_preview"`
	Name       string     `gorm:"not null" json:"name"`
	UnitID     string     `gorm:"index;not null" json:"unit_id"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
	RevokedAt  *time.Time `json:"revoked_at"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	KeyID             uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date              string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount      int    `gorm:"default:0" json:"request_count"`
	TotalParts        int    `gorm:"default:0" json:"total_parts"`
	TotalParticipants int    `gorm:"default:0" json:"total_participants"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Participant represents the participants table (the congregation roster)
type Participant struct {
	ID              string     `gorm:"primaryKey" json:"id"`
	UnitID          string     `gorm:"index;not null" json:"unit_id"`
	Name            string     `json:"name"`
	Active          bool       `gorm:"not null" json:"active"`
	Gender          string     `gorm:"size:10;not null" json:"gender"`
	Capabilities    []string   `gorm:"serializer:json" json:"capabilities"`
	Privilege       string     `gorm:"size:32" json:"privilege"`
	Minor           bool       `json:"minor"`
	GuardianID      string     `json:"guardian_id"`
	FamilyID        string     `gorm:"index" json:"family_id"`
	AssignmentCount int        `gorm:"default:0" json:"assignment_count"`
	LastAssigned    *time.Time `json:"last_assigned"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FamilyLink represents the family_relationships table. A and B are stored
// with A < B so that each unordered pair has one row per kind.
type FamilyLink struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UnitID string `gorm:"index;not null" json:"unit_id"`
	A      string `gorm:"uniqueIndex:idx_family_pair;not null" json:"a"`
	B      string `gorm:"uniqueIndex:idx_family_pair;not null" json:"b"`
	Kind   string `gorm:"uniqueIndex:idx_family_pair;size:20;not null" json:"kind"`
}

func (FamilyLink) TableName() string { return "family_relationships" }

// Program represents the programs table
type Program struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UnitID    string    `gorm:"index;not null" json:"unit_id"`
	WeekStart time.Time `json:"week_start"`
	WeekEnd   time.Time `json:"week_end"`
	Parts     []Part    `gorm:"foreignKey:ProgramID;constraint:OnDelete:CASCADE" json:"parts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Part represents the program_parts table
type Part struct {
	ID             string `gorm:"primaryKey" json:"id"`
	ProgramID      string `gorm:"index;not null" json:"program_id"`
	Position       int    `gorm:"not null" json:"position"`
	Type           string `gorm:"size:40;not null" json:"type"`
	Title          string `json:"title"`
	RequiredGender string `gorm:"size:10" json:"required_gender"`
	Minutes        int    `json:"minutes"`
}

func (Part) TableName() string { return "program_parts" }

// Assignment represents the assignments table. part_id is unique so a
// regeneration updates the row in place.
type Assignment struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	ProgramID   string    `gorm:"index;not null" json:"program_id"`
	PartID      string    `gorm:"uniqueIndex;not null" json:"part_id"`
	PrincipalID *string   `json:"principal_id"`
	AssistantID *string   `json:"assistant_id"`
	Status      string    `gorm:"size:16;not null" json:"status"`
	Notes       string    `json:"notes"`
	ReviewState string    `gorm:"size:16;not null;default:'draft'" json:"review_state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HistoryEntry represents the assignment_history table: one row per
// participant per assigned part. Rows of a program are replaced on every run.
type HistoryEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UnitID        string    `gorm:"index;not null" json:"unit_id"`
	ProgramID     string    `gorm:"index;not null" json:"program_id"`
	PartID        string    `gorm:"not null" json:"part_id"`
	ParticipantID string    `gorm:"index;not null" json:"participant_id"`
	Role          string    `gorm:"size:16;not null" json:"role"`
	WeekStart     time.Time `json:"week_start"`
	CreatedAt     time.Time `json:"created_at"`
}

func (HistoryEntry) TableName() string { return "assignment_history" }

// Options selects the backing database
type Options struct {
	// DatabaseURL selects Postgres when set.
	DatabaseURL string
	// DataPath is the SQLite file used otherwise.
	DataPath string
	Debug    bool
}

// Open connects to the database and migrates the schema
func Open(opts Options) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	cfg := &gorm.Config{PrepareStmt: false}
	if !opts.Debug {
		cfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	if opts.DatabaseURL != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  opts.DatabaseURL,
			PreferSimpleProtocol: true,
		}), cfg)
	} else {
		dbPath := opts.DataPath
		if dbPath == "" {
			dbPath = "assignments.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&APIKey{}, &APIUsage{}, &MasterUser{},
		&Participant{}, &FamilyLink{}, &Program{}, &Part{}, &Assignment{}, &HistoryEntry{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
