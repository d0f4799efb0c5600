package odmtest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

// prefixes maps an entity kind to the accession prefix the fake assigns.
var prefixes = map[string]string{
	"study":          "STUDY",
	"samples":        "SAMP",
	"libraries":      "LIB",
	"preparations":   "PREP",
	"expression":     "GSF",
	"variant":        "VAR",
	"flow-cytometry": "FC",
	"mapping-file":   "MAP",
}

// Job is one import job row.
type Job struct {
	ID              int64
	Kind            string
	DataLink        string
	MetadataLink    string
	TemplateID      string
	Source          string
	PreviousVersion string
	PollsLeft       int
	Failure         string
	Accession       string
}

// Link is one relation row.
type Link struct {
	Relation string
	Source   string
	Target   string
}

// store keeps the fake service state in SQLite.
type store struct {
	db     *sql.DB
	logger *slog.Logger
}

func newStore(ctx context.Context, logger *slog.Logger) (*store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &store{db: db, logger: logger.With("component", "odmtest-store")}, nil
}

func (s *store) close() error {
	return s.db.Close()
}

// nextAccession allocates the next accession for kind, e.g. SAMP1, SAMP2.
func (s *store) nextAccession(ctx context.Context, kind string) (string, error) {
	prefix, ok := prefixes[kind]
	if !ok {
		return "", fmt.Errorf("unknown kind %q", kind)
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE kind = ?`, kind).Scan(&n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", prefix, n+1), nil
}

func (s *store) createEntity(ctx context.Context, kind, dataLink string) (string, error) {
	acc, err := s.nextAccession(ctx, kind)
	if err != nil {
		return "", err
	}
	return acc, s.putEntity(ctx, acc, kind, dataLink)
}

func (s *store) putEntity(ctx context.Context, acc, kind, dataLink string) error {
	s.logger.Debug("sql", "op", "insert", "table", "entities", "accession", acc)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (accession, kind, data_link) VALUES (?, ?, ?)`, acc, kind, dataLink)
	return err
}

// entityKind returns the kind of an entity, or "" when it does not exist.
func (s *store) entityKind(ctx context.Context, acc string) (string, error) {
	var kind string
	err := s.db.QueryRowContext(ctx, `SELECT kind FROM entities WHERE accession = ?`, acc).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return kind, err
}

// entityByLink returns the accession created from dataLink, or "".
func (s *store) entityByLink(ctx context.Context, kind, dataLink string) (string, error) {
	var acc string
	err := s.db.QueryRowContext(ctx,
		`SELECT accession FROM entities WHERE kind = ? AND data_link = ?`, kind, dataLink).Scan(&acc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return acc, err
}

func (s *store) createJob(ctx context.Context, j *Job) error {
	s.logger.Debug("sql", "op", "insert", "table", "jobs", "kind", j.Kind)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (kind, data_link, metadata_link, template_id, source, previous_version, polls_left, failure, accession)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.Kind, j.DataLink, j.MetadataLink, j.TemplateID, j.Source, j.PreviousVersion, j.PollsLeft, j.Failure, j.Accession)
	if err != nil {
		return err
	}
	j.ID, err = res.LastInsertId()
	return err
}

const jobColumns = `id, kind, data_link, metadata_link, template_id, source, previous_version, polls_left, failure, accession`

func scanJob(row interface{ Scan(...any) error }) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.Kind, &j.DataLink, &j.MetadataLink, &j.TemplateID, &j.Source,
		&j.PreviousVersion, &j.PollsLeft, &j.Failure, &j.Accession)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *store) getJob(ctx context.Context, id int64) (*Job, error) {
	return scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
}

func (s *store) findJob(ctx context.Context, kind, dataLink string) (*Job, error) {
	return scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE kind = ? AND data_link = ?`, kind, dataLink))
}

func (s *store) listJobs(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *store) decrementPolls(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET polls_left = polls_left - 1 WHERE id = ? AND polls_left > 0`, id)
	return err
}

// addLink records a relation. Repeating an identical link is a no-op.
func (s *store) addLink(ctx context.Context, l Link) error {
	s.logger.Debug("sql", "op", "insert", "table", "links", "relation", l.Relation)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO links (relation, source, target, seq)
		 VALUES (?, ?, ?, (SELECT COUNT(*) FROM links))`,
		l.Relation, l.Source, l.Target)
	return err
}

func (s *store) listLinks(ctx context.Context) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT relation, source, target FROM links ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.Relation, &l.Source, &l.Target); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// studyGroups lists the groups of kind reachable from study through links:
// samples link to the study, libraries and preparations link to samples.
func (s *store) studyGroups(ctx context.Context, study, kind string) ([]string, error) {
	var query string
	var args []any
	switch kind {
	case "samples":
		query = `SELECT source FROM links WHERE relation = 'samples_to_study' AND target = ? ORDER BY seq`
		args = []any{study}
	case "libraries", "preparations":
		query = `SELECT l.source FROM links l
			JOIN links s ON s.relation = 'samples_to_study' AND s.source = l.target AND s.target = ?
			WHERE l.relation = ? ORDER BY l.seq`
		args = []any{study, kind + "_to_samples"}
	default:
		return nil, fmt.Errorf("groups of kind %q are not listed", kind)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []string{}
	for rows.Next() {
		var acc string
		if err := rows.Scan(&acc); err != nil {
			return nil, err
		}
		groups = append(groups, acc)
	}
	return groups, rows.Err()
}

func (s *store) putTemplate(ctx context.Context, acc, name string, isDefault bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO templates (accession, name, is_default) VALUES (?, ?, ?)`,
		acc, name, isDefault)
	return err
}

type templateRow struct {
	Accession string `json:"accession"`
	Name      string `json:"name,omitempty"`
	Default   bool   `json:"default"`
}

func (s *store) listTemplates(ctx context.Context) ([]templateRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT accession, name, is_default FROM templates ORDER BY accession`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []templateRow{}
	for rows.Next() {
		var t templateRow
		if err := rows.Scan(&t.Accession, &t.Name, &t.Default); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// relationKinds splits a relation name such as "expression_to_samples"
// into its source and target kinds.
func relationKinds(relation string) (string, string, bool) {
	src, dst, ok := strings.Cut(relation, "_to_")
	if !ok {
		return "", "", false
	}
	return src, strings.ReplaceAll(dst, "_", "-"), true
}
