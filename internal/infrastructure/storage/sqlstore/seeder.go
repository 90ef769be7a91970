package sqlstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"docnum/internal/core/id"
	"docnum/internal/core/tx"
)

// Fixtures describes reference data owned by neighbouring services (projects,
// document types, series, submissions) for local runs and tests.
type Fixtures struct {
	Projects      []ProjectFixture      `yaml:"projects"`
	DocumentTypes []DocumentTypeFixture `yaml:"document_types"`
	Series        []SeriesFixture       `yaml:"series"`
	Submissions   []SubmissionFixture   `yaml:"submissions"`
}

type ProjectFixture struct {
	ID   string `yaml:"id"`
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type DocumentTypeFixture struct {
	ID        string `yaml:"id"`
	ProjectID string `yaml:"project_id"`
	Name      string `yaml:"name"`
}

type SeriesFixture struct {
	ID              string `yaml:"id"`
	Code            string `yaml:"code"`
	ProjectID       string `yaml:"project_id"`
	Template        string `yaml:"template"`
	ResetPolicy     string `yaml:"reset_policy"`
	GenerateOn      string `yaml:"generate_on"`
	SequenceStart   int64  `yaml:"sequence_start"`
	SequencePadding int    `yaml:"sequence_padding"`
	Inactive        bool   `yaml:"inactive"`
}

type SubmissionFixture struct {
	ID             string `yaml:"id"`
	SeriesID       string `yaml:"series_id"`
	DocumentTypeID string `yaml:"document_type_id"`
	DocumentNumber string `yaml:"document_number"`
	SubmittedBy    string `yaml:"submitted_by"`
}

// DecodeFixtures reads a YAML fixture document.
func DecodeFixtures(r io.Reader) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &f, nil
}

// SeedResult counts rows inserted per table. Rows whose id already exists are skipped.
type SeedResult struct {
	Projects      int64
	DocumentTypes int64
	Series        int64
	Submissions   int64
}

// Seeder loads fixtures in one transaction.
type Seeder struct {
	base
	txm tx.Manager
}

func NewSeeder(txm tx.Manager, src Source, dialect Dialect) *Seeder {
	return &Seeder{base: base{src: src, dialect: dialect}, txm: txm}
}

func (s *Seeder) Seed(ctx context.Context, f *Fixtures) (*SeedResult, error) {
	res := &SeedResult{}
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		for _, p := range f.Projects {
			pid, err := parseID("project", p.ID)
			if err != nil {
				return err
			}
			n, err := s.insert(ctx, TableProjects, map[string]any{
				"id": pid, "code": p.Code, "name": p.Name,
			})
			if err != nil {
				return err
			}
			res.Projects += n
		}

		for _, dt := range f.DocumentTypes {
			dtID, err := parseID("document type", dt.ID)
			if err != nil {
				return err
			}
			pid, err := parseID("document type project", dt.ProjectID)
			if err != nil {
				return err
			}
			n, err := s.insert(ctx, TableDocumentTypes, map[string]any{
				"id": dtID, "project_id": pid, "name": dt.Name,
			})
			if err != nil {
				return err
			}
			res.DocumentTypes += n
		}

		for _, sr := range f.Series {
			sid, err := parseID("series", sr.ID)
			if err != nil {
				return err
			}
			pid, err := parseOptionalID("series project", sr.ProjectID)
			if err != nil {
				return err
			}
			n, err := s.insert(ctx, TableSeries, map[string]any{
				"id":               sid,
				"code":             sr.Code,
				"project_id":       pid,
				"template":         sr.Template,
				"reset_policy":     sr.ResetPolicy,
				"generate_on":      sr.GenerateOn,
				"sequence_start":   sr.SequenceStart,
				"sequence_padding": sr.SequencePadding,
				"next_number":      0,
				"is_active":        !sr.Inactive,
				"deletion_mark":    false,
			})
			if err != nil {
				return err
			}
			res.Series += n
		}

		for _, sub := range f.Submissions {
			subID, err := parseID("submission", sub.ID)
			if err != nil {
				return err
			}
			sid, err := parseID("submission series", sub.SeriesID)
			if err != nil {
				return err
			}
			dtID, err := parseOptionalID("submission document type", sub.DocumentTypeID)
			if err != nil {
				return err
			}
			n, err := s.insert(ctx, TableSubmissions, map[string]any{
				"id":               subID,
				"series_id":        sid,
				"document_type_id": dtID,
				"document_number":  sub.DocumentNumber,
				"submitted_by":     sub.SubmittedBy,
				"deletion_mark":    false,
				"created_at":       now,
				"updated_at":       now,
			})
			if err != nil {
				return err
			}
			res.Submissions += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Seeder) insert(ctx context.Context, table string, values map[string]any) (int64, error) {
	n, err := s.exec(ctx, s.builder().
		Insert(table).
		SetMap(values).
		Suffix("ON CONFLICT (id) DO NOTHING"))
	if err != nil {
		return 0, fmt.Errorf("seed %s: %w", table, err)
	}
	return n, nil
}

func parseID(what, v string) (id.ID, error) {
	parsed, err := id.Parse(v)
	if err != nil {
		return id.ID{}, fmt.Errorf("%s id %q: %w", what, v, err)
	}
	return parsed, nil
}

func parseOptionalID(what, v string) (id.Optional, error) {
	if v == "" {
		return id.Optional{}, nil
	}
	parsed, err := parseID(what, v)
	if err != nil {
		return id.Optional{}, err
	}
	return id.Some(parsed), nil
}
