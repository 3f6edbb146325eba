package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/resource"
)

// catalog is the YAML document loaded by the import command, eg:
//
//	events:
//	  - title: CAD Workshop
//	    category: Workshop
//	    status: open
//	    starts_at: 2026-11-02T09:00:00Z
//	    fee: 500
//	resources:
//	  - title: Rulebook 2026
//	    type: document
//	    category: Rules
//	competitions:
//	  - name: BAJA SAE India 2026
//	    deadlines:
//	      - title: Technical Report
//	        due_at: 2026-12-01T18:00:00Z
//	        formats: [PDF, DOCX]
//	        max_size_mb: 20
type catalog struct {
	Events       []catalogEvent       `yaml:"events"`
	Resources    []catalogResource    `yaml:"resources"`
	Competitions []catalogCompetition `yaml:"competitions"`
}

type catalogEvent struct {
	Title                string         `yaml:"title"`
	Category             event.Category `yaml:"category"`
	Status               event.Status   `yaml:"status"`
	Phase                string         `yaml:"phase"`
	Level                string         `yaml:"level"`
	Location             string         `yaml:"location"`
	Online               bool           `yaml:"online"`
	Instructor           string         `yaml:"instructor"`
	Topics               []string       `yaml:"topics"`
	Schedule             string         `yaml:"schedule"`
	StartsAt             time.Time      `yaml:"starts_at"`
	RegistrationDeadline time.Time      `yaml:"registration_deadline"`
	Fee                  float64        `yaml:"fee"`
	Currency             string         `yaml:"currency"`
	Capacity             int            `yaml:"capacity"`
	Description          string         `yaml:"description"`
	Requirements         []string       `yaml:"requirements"`
	Tags                 []string       `yaml:"tags"`
	Priority             string         `yaml:"priority"`
}

type catalogResource struct {
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Type        resource.Type `yaml:"type"`
	Category    string        `yaml:"category"`
	Tags        []string      `yaml:"tags"`
	FileType    string        `yaml:"file_type"`
	FileSize    string        `yaml:"file_size"`
	DownloadURL string        `yaml:"download_url"`
	ExternalURL string        `yaml:"external_url"`
	Featured    bool          `yaml:"featured"`
}

type catalogCompetition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Deadlines   []struct {
		Title     string                     `yaml:"title"`
		DueAt     time.Time                  `yaml:"due_at"`
		Status    competition.DeadlineStatus `yaml:"status"`
		Formats   []string                   `yaml:"formats"`
		MaxSizeMB int                        `yaml:"max_size_mb"`
	} `yaml:"deadlines"`
}

func (cli *commandLine) importCatalog(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading catalog")
	}
	var cat catalog
	if err = yaml.Unmarshal(raw, &cat); err != nil {
		return errors.Wrap(err, "parsing catalog")
	}

	ctx := context.Background()

	for _, e := range cat.Events {
		currency := e.Currency
		if currency == "" {
			currency = "INR"
		}
		_, err = cli.events.Create(ctx, event.Event{
			Title:                e.Title,
			Category:             e.Category,
			Status:               e.Status,
			Phase:                e.Phase,
			Level:                e.Level,
			Location:             e.Location,
			Online:               e.Online,
			Instructor:           e.Instructor,
			Topics:               e.Topics,
			Schedule:             e.Schedule,
			StartsAt:             e.StartsAt.UTC(),
			RegistrationDeadline: e.RegistrationDeadline.UTC(),
			Fee:                  e.Fee,
			Currency:             currency,
			Capacity:             e.Capacity,
			Description:          e.Description,
			Requirements:         e.Requirements,
			Tags:                 e.Tags,
			Priority:             e.Priority,
		})
		if err != nil {
			return errors.Wrapf(err, "importing event %q", e.Title)
		}
	}

	for _, r := range cat.Resources {
		_, err = cli.resources.Create(ctx, resource.Resource{
			Title:       r.Title,
			Description: r.Description,
			Type:        r.Type,
			Category:    r.Category,
			Tags:        r.Tags,
			FileType:    r.FileType,
			FileSize:    r.FileSize,
			DownloadURL: r.DownloadURL,
			ExternalURL: r.ExternalURL,
			Featured:    r.Featured,
		})
		if err != nil {
			return errors.Wrapf(err, "importing resource %q", r.Title)
		}
	}

	for _, c := range cat.Competitions {
		comp := competition.Competition{Name: c.Name, Description: c.Description}
		for _, d := range c.Deadlines {
			comp.Deadlines = append(comp.Deadlines, competition.Deadline{
				Title:     d.Title,
				DueAt:     d.DueAt.UTC(),
				Status:    d.Status,
				Formats:   d.Formats,
				MaxSizeMB: d.MaxSizeMB,
			})
		}
		if _, err = cli.competitions.Create(ctx, comp); err != nil {
			return errors.Wrapf(err, "importing competition %q", c.Name)
		}
	}

	_, _ = fmt.Fprintf(cli.out, "imported %d events, %d resources, %d competitions\n",
		len(cat.Events), len(cat.Resources), len(cat.Competitions))
	return nil
}
