package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func main() {
	name := flag.String("name", "", "migration name, e.g. add_twist_metadata")
	flag.Parse()

	slug := strings.ToLower(strings.TrimSpace(*name))
	if slug == "" {
		log.Fatal("migration name is required")
	}
	for _, r := range slug {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			log.Fatalf("migration name must be lowercase letters, digits and underscores: %q", slug)
		}
	}

	version := time.Now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s_%s", version, slug)
	upPath := filepath.Join("db", "migrations", base+".up.sql")
	downPath := filepath.Join("db", "migrations", base+".down.sql")

	if err := os.MkdirAll(filepath.Dir(upPath), 0o755); err != nil {
		log.Fatalf("create migrations dir: %v", err)
	}
	if err := writeStub(upPath, "-- up migration\n"); err != nil {
		log.Fatalf("create up migration: %v", err)
	}
	if err := writeStub(downPath, "-- down migration\n"); err != nil {
		log.Fatalf("create down migration: %v", err)
	}

	log.Printf("created %s and %s", upPath, downPath)
}

func writeStub(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
