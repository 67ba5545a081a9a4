package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"tourdesk/internal/database"
	"tourdesk/internal/models"
	"tourdesk/internal/service"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type ToursConfig struct {
	Tours []models.Tour `yaml:"tours"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		toursPath = flag.String("tours", "configs/tours.yaml", "path to tours.yaml")
		dbPath    = flag.String("db", "./data/tourdesk.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*toursPath)
	if err != nil {
		return fmt.Errorf("read tours: %w", err)
	}
	var cfg ToursConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse tours: %w", err)
	}
	if len(cfg.Tours) == 0 {
		return fmt.Errorf("no tours in yaml")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, updated, err := importTours(ctx, service.NewTourService(db, nil, &logger), cfg.Tours)
	if err != nil {
		return err
	}
	fmt.Printf("done: created=%d updated=%d\n", created, updated)
	return nil
}

// importTours creates tours from the file and updates the ones that already
// exist, matching on destination and start date.
func importTours(ctx context.Context, tours *service.TourService, in []models.Tour) (created, updated int, err error) {
	existing, err := tours.List(ctx, true, "")
	if err != nil {
		return 0, 0, fmt.Errorf("list tours: %w", err)
	}
	byKey := make(map[string]int64, len(existing))
	for _, t := range existing {
		byKey[tourKey(t.Destination, t.StartDate)] = t.ID
	}

	for i := range in {
		t := in[i]
		if strings.TrimSpace(t.Destination) == "" {
			continue
		}
		if id, ok := byKey[tourKey(t.Destination, t.StartDate)]; ok {
			patch := models.TourPatch{
				Description: &t.Description,
				EndDate:     &t.EndDate,
				Capacity:    &t.Capacity,
				Price:       &t.Price,
				ImageURL:    &t.ImageURL,
			}
			if t.Status != "" {
				patch.Status = &t.Status
			}
			if _, err := tours.Update(ctx, id, patch); err != nil {
				return created, updated, fmt.Errorf("update %s: %w", t.Destination, err)
			}
			updated++
			continue
		}

		input := models.TourInput{
			Destination: t.Destination,
			Description: t.Description,
			StartDate:   t.StartDate,
			EndDate:     t.EndDate,
			Capacity:    &t.Capacity,
			Price:       &t.Price,
			Status:      t.Status,
			ImageURL:    t.ImageURL,
		}
		view, err := tours.Create(ctx, input)
		if err != nil {
			return created, updated, fmt.Errorf("create %s: %w", t.Destination, err)
		}
		byKey[tourKey(view.Destination, view.StartDate)] = view.ID
		created++
	}
	return created, updated, nil
}

func tourKey(destination, startDate string) string {
	return strings.ToLower(strings.TrimSpace(destination)) + "|" + startDate
}
