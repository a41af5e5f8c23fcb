package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <normalize|add-ids|remove-ids> <cache-file> [video-id...]")
	}

	command := os.Args[1]
	cacheFile := os.Args[2]
	ids := os.Args[3:]

	var err error
	switch command {
	case "normalize":
		err = normalize(cacheFile)
	case "add-ids":
		err = addIDs(cacheFile, ids)
	case "remove-ids":
		err = removeIDs(cacheFile, ids, bufio.NewReader(os.Stdin))
	default:
		log.Fatalf("Unknown command %q", command)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// normalize rewrites the cache sorted and without duplicates or blanks
func normalize(cacheFile string) error {
	ids, err := readIDs(cacheFile)
	if err != nil {
		return err
	}
	unique := uniqueSorted(ids)
	log.Printf("Normalized %s: %d entries -> %d", cacheFile, len(ids), len(unique))
	return writeIDs(cacheFile, unique)
}

// addIDs marks videos as processed without summarizing them
func addIDs(cacheFile string, newIDs []string) error {
	if len(newIDs) == 0 {
		return errors.New("no video IDs given")
	}
	ids, err := readIDs(cacheFile)
	if errors.Is(err, os.ErrNotExist) {
		ids = nil
	} else if err != nil {
		return err
	}

	before := len(uniqueSorted(ids))
	ids = uniqueSorted(append(ids, newIDs...))
	log.Printf("Added %d IDs to %s", len(ids)-before, cacheFile)
	return writeIDs(cacheFile, ids)
}

// removeIDs forgets videos so the next run summarizes them again
func removeIDs(cacheFile string, remove []string, reader *bufio.Reader) error {
	ids, err := readIDs(cacheFile)
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(remove))
	for _, id := range remove {
		drop[id] = true
	}

	kept := make([]string, 0, len(ids))
	removed := 0
	for _, id := range uniqueSorted(ids) {
		if drop[id] && confirmRemove(reader, id) {
			removed++
			fmt.Printf("  REMOVED: %s\n", id)
			continue
		}
		kept = append(kept, id)
	}

	fmt.Printf("\nRemoved %d IDs\n", removed)
	return writeIDs(cacheFile, kept)
}

func readIDs(cacheFile string) ([]string, error) {
	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cacheFile, err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cacheFile, err)
	}
	return ids, nil
}

func writeIDs(cacheFile string, ids []string) error {
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(cacheFile), ".tube-letter-*.tmp")
	if err != nil {
		return err
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(cacheFile); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), cacheFile)
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func confirmRemove(reader *bufio.Reader, id string) bool {
	for {
		fmt.Printf("  REMOVE %s? [y/N]: ", id)
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			log.Printf("Error reading input: %v", err)
			return false
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			if err != nil {
				return false
			}
			fmt.Println("  Please enter y or n.")
		}
	}
}
