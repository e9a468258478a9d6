package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"faceattend/internal/app"
	"faceattend/internal/config"
	"faceattend/internal/logger"
	"faceattend/internal/model"
	"faceattend/internal/repository"
)

// rosterFile is the YAML listing of students to import. Each photo is
// <images>/<id>.jpg (or .jpeg/.png).
type rosterFile struct {
	Students []rosterEntry `yaml:"students"`
}

type rosterEntry struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Department string `yaml:"department"`
	Batch      string `yaml:"batch"`
}

var photoExtensions = []string{".jpg", ".jpeg", ".png"}

func main() {
	cfg := config.Load()

	imagesDir := flag.String("images", "student_photos", "Directory containing <student_id>.jpg photos")
	rosterPath := flag.String("roster", "roster.yaml", "YAML file with student details")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Database path")
	flag.StringVar(&cfg.ModelsDir, "models", cfg.ModelsDir, "Directory holding the dlib model files")
	flag.Parse()

	entries, err := loadRoster(*rosterPath)
	if err != nil {
		log.Fatalf("Failed to read roster: %v", err)
	}

	fmt.Printf("Importing %d students from %s into %s\n", len(entries), *imagesDir, cfg.DBPath)

	roster, err := app.OpenRoster(cfg, logger.NewWriter(os.Stderr), nil, true)
	if err != nil {
		log.Fatalf("Failed to open roster: %v", err)
	}
	defer roster.Close()

	imported, skipped := 0, 0
	for _, e := range entries {
		photo, err := findPhoto(*imagesDir, e.ID)
		if err != nil {
			log.Printf("Skipping %s: %v", e.ID, err)
			skipped++
			continue
		}

		st := &model.Student{
			StudentID:  e.ID,
			Name:       e.Name,
			Email:      e.Email,
			Department: e.Department,
			Batch:      e.Batch,
		}
		if err := roster.Students.RegisterFromFile(st, photo); err != nil {
			if errors.Is(err, repository.ErrStudentExists) {
				log.Printf("Skipping %s: already registered", e.ID)
			} else {
				log.Printf("Skipping %s: %v", e.ID, err)
			}
			skipped++
			continue
		}
		imported++
	}

	fmt.Printf("Imported %d students\n", imported)
	if skipped > 0 {
		fmt.Printf("Skipped %d students\n", skipped)
	}

	total, err := roster.StudentRepo.Count()
	if err == nil {
		fmt.Printf("Roster now has %d students\n", total)
	}
}

func loadRoster(path string) ([]rosterEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(rf.Students))
	entries := make([]rosterEntry, 0, len(rf.Students))
	for i, e := range rf.Students {
		e.ID = strings.TrimSpace(e.ID)
		e.Name = strings.TrimSpace(e.Name)
		if e.ID == "" {
			return nil, fmt.Errorf("student %d has no id", i+1)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("student %s listed twice", e.ID)
		}
		seen[e.ID] = true
		entries = append(entries, e)
	}
	return entries, nil
}

func findPhoto(dir, studentID string) (string, error) {
	for _, ext := range photoExtensions {
		p := filepath.Join(dir, studentID+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("no photo named %s.jpg in %s", studentID, dir)
}
