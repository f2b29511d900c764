package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lee-tech/locations/config"
	"github.com/lee-tech/locations/internal/constants"
	"github.com/lee-tech/locations/internal/models"
)

// locimport loads gazetteer rows from CSV and rebuilds the denormalized
// hierarchy columns (L0..L5 names and the ancestor ID path) from parent
// links. CSV columns: id,parent_id,level,name,end_date. The optional names
// file carries localized names: location_id,language,name_l10n.
func main() {
	locationsFile := flag.String("locations", "", "CSV file with location rows")
	namesFile := flag.String("names", "", "CSV file with localized names")
	rebuild := flag.Bool("rebuild", true, "rebuild denormalized level names and paths after import")
	batchSize := flag.Int("batch", 500, "insert batch size")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.Location{}, &models.LocationName{}); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	start := time.Now()

	if *locationsFile != "" {
		count, err := importLocations(db, *locationsFile, *batchSize)
		if err != nil {
			log.Fatalf("failed to import locations: %v", err)
		}
		log.Printf("imported %d locations", count)
	}

	if *namesFile != "" {
		count, err := importNames(db, *namesFile, *batchSize)
		if err != nil {
			log.Fatalf("failed to import localized names: %v", err)
		}
		log.Printf("imported %d localized names", count)
	}

	if *rebuild {
		count, err := rebuildTree(db)
		if err != nil {
			log.Fatalf("failed to rebuild hierarchy columns: %v", err)
		}
		log.Printf("rebuilt hierarchy columns for %d locations", count)
	}

	log.Printf("done in %v", time.Since(start))
}

func importLocations(db *gorm.DB, path string, batchSize int) (int, error) {
	records, err := readCSV(path)
	if err != nil {
		return 0, err
	}

	bar := progressbar.Default(int64(len(records)), "locations")
	batch := make([]*models.Location, 0, batchSize)
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := db.Save(batch).Error; err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for i, record := range records {
		loc, err := parseLocation(record)
		if err != nil {
			return total, fmt.Errorf("line %d: %w", i+2, err)
		}
		batch = append(batch, loc)
		_ = bar.Add(1)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	return total, flush()
}

func parseLocation(record []string) (*models.Location, error) {
	if len(record) < 4 {
		return nil, fmt.Errorf("expected at least 4 columns, got %d", len(record))
	}

	id, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", record[0])
	}

	loc := &models.Location{ID: id, Name: strings.TrimSpace(record[3])}
	if loc.Name == "" {
		return nil, fmt.Errorf("location %d has no name", id)
	}

	if raw := strings.TrimSpace(record[1]); raw != "" {
		parent, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid parent_id %q", record[1])
		}
		loc.ParentID = &parent
	}

	if raw := strings.TrimSpace(record[2]); raw != "" {
		level := raw
		loc.Level = &level
	}

	if len(record) > 4 {
		if raw := strings.TrimSpace(record[4]); raw != "" {
			endDate, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("invalid end_date %q", record[4])
			}
			loc.EndDate = &endDate
		}
	}

	return loc, nil
}

func importNames(db *gorm.DB, path string, batchSize int) (int, error) {
	records, err := readCSV(path)
	if err != nil {
		return 0, err
	}

	bar := progressbar.Default(int64(len(records)), "names")
	batch := make([]*models.LocationName, 0, batchSize)
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := db.Save(batch).Error; err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for i, record := range records {
		if len(record) < 3 {
			return total, fmt.Errorf("line %d: expected 3 columns, got %d", i+2, len(record))
		}
		locationID, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 64)
		if err != nil {
			return total, fmt.Errorf("line %d: invalid location_id %q", i+2, record[0])
		}
		batch = append(batch, &models.LocationName{
			LocationID: locationID,
			Language:   strings.TrimSpace(record[1]),
			NameL10n:   strings.TrimSpace(record[2]),
		})
		_ = bar.Add(1)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	return total, flush()
}

// rebuildTree recomputes the L0..L5 name columns and the ancestor ID path
// for every location by climbing parent links in memory. Hops are capped at
// the configured hierarchy depth so malformed data cannot loop.
func rebuildTree(db *gorm.DB) (int, error) {
	var locations []*models.Location
	if err := db.Order("id ASC").Find(&locations).Error; err != nil {
		return 0, err
	}

	byID := make(map[uint64]*models.Location, len(locations))
	for _, loc := range locations {
		byID[loc.ID] = loc
	}

	bar := progressbar.Default(int64(len(locations)), "rebuild")
	updated := 0

	for _, loc := range locations {
		chain := ancestorChain(loc, byID)

		updates := map[string]any{"path": pathOf(chain)}
		for _, tag := range constants.LevelTags {
			name := ""
			for _, node := range chain {
				if node.Level != nil && *node.Level == tag {
					name = node.Name
					break
				}
			}
			updates[strings.ToLower(tag)] = name
		}

		if err := db.Model(&models.Location{}).Where("id = ?", loc.ID).Updates(updates).Error; err != nil {
			return updated, err
		}
		updated++
		_ = bar.Add(1)
	}

	return updated, nil
}

// ancestorChain returns the root-to-self chain for a location, bounded by
// the configured hierarchy depth.
func ancestorChain(loc *models.Location, byID map[uint64]*models.Location) []*models.Location {
	chain := []*models.Location{loc}
	node := loc
	for hops := 0; hops < len(constants.LevelTags); hops++ {
		if node.ParentID == nil {
			break
		}
		parent, ok := byID[*node.ParentID]
		if !ok {
			break
		}
		chain = append([]*models.Location{parent}, chain...)
		node = parent
	}
	return chain
}

func pathOf(chain []*models.Location) string {
	parts := make([]string, len(chain))
	for i, node := range chain {
		parts[i] = strconv.FormatUint(node.ID, 10)
	}
	return strings.Join(parts, "/")
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	// Skip the header row.
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	return reader.ReadAll()
}
