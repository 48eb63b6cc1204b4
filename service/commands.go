package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"geostream/app/repositories"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// ErrCancelled is returned when the operator declines a confirmation.
var ErrCancelled = errors.New("operation cancelled")

// Maintenance runs database maintenance against the Badger directory at
// DBPath. Prompts are read from In and messages written to Out.
type Maintenance struct {
	DBPath string
	In     io.Reader
	Out    io.Writer
	Logger *zap.Logger
	// Yes skips confirmation prompts.
	Yes bool
}

func (m *Maintenance) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

func (m *Maintenance) open() (*badger.DB, error) {
	return repositories.OpenDB(repositories.Options{Path: m.DBPath, SyncWrites: true}, m.logger())
}

func (m *Maintenance) confirm(question string) bool {
	if m.Yes {
		return true
	}
	fmt.Fprintf(m.Out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(m.In).ReadString('\n')
	response := strings.TrimSpace(line)
	return response == "y" || response == "Y"
}

// Init initializes a new empty database.
func (m *Maintenance) Init() error {
	if _, err := os.Stat(m.DBPath); err == nil {
		return fmt.Errorf("database already exists at %s; use 'db clean' first to reinitialize", m.DBPath)
	}
	if err := os.MkdirAll(m.DBPath, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := m.open()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Close(); err != nil {
		return err
	}

	fmt.Fprintln(m.Out, "Database initialized successfully")
	return nil
}

// Clean removes the database.
func (m *Maintenance) Clean() error {
	if _, err := os.Stat(m.DBPath); os.IsNotExist(err) {
		fmt.Fprintln(m.Out, "Database is already clean (does not exist)")
		return nil
	}
	if !m.confirm("Are you sure you want to clean the database? This cannot be undone.") {
		return ErrCancelled
	}
	if err := os.RemoveAll(m.DBPath); err != nil {
		return fmt.Errorf("failed to clean database: %w", err)
	}
	fmt.Fprintln(m.Out, "Database cleaned successfully")
	return nil
}

// Backup writes a full backup into backupDir and returns its path.
func (m *Maintenance) Backup(backupDir string) (string, error) {
	if _, err := os.Stat(m.DBPath); os.IsNotExist(err) {
		return "", fmt.Errorf("no database exists at %s to backup", m.DBPath)
	}
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	db, err := m.open()
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	backupFile := filepath.Join(backupDir, fmt.Sprintf("backup_%d.db", time.Now().UnixNano()))
	f, err := os.Create(backupFile)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	if _, err := db.Backup(f, 0); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", err
	}

	fmt.Fprintf(m.Out, "Database backed up successfully to %s\n", backupFile)
	return backupFile, nil
}

// Restore replaces the database with the contents of backupFile.
func (m *Maintenance) Restore(backupFile string) (err error) {
	fi, err := os.Stat(backupFile)
	if os.IsNotExist(err) {
		return fmt.Errorf("backup file does not exist: %s", backupFile)
	}
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return fmt.Errorf("backup file is empty: %s", backupFile)
	}

	if _, err := os.Stat(m.DBPath); err == nil {
		if !m.confirm("Existing database found. Do you want to replace it?") {
			return ErrCancelled
		}
		if err := os.RemoveAll(m.DBPath); err != nil {
			return fmt.Errorf("failed to remove existing database: %w", err)
		}
	}
	if err := os.MkdirAll(m.DBPath, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := m.open()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	f, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	err = func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic occurred during restore: %v", r)
			}
		}()
		return db.Load(f, 4)
	}()
	if err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}

	fmt.Fprintln(m.Out, "Database restored successfully")
	return nil
}
