// Package registry keeps versioned model packages in a SQLite database.
//
// Each training run registers its artifact under a model package group.
// Versions count up from 1 within a group, and a package waits for manual
// approval before it is served.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("registry: model package not found")

type Status string

const (
	PendingManualApproval Status = "PendingManualApproval"
	Approved              Status = "Approved"
	Rejected              Status = "Rejected"
)

// ParseStatus accepts a status name, case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{PendingManualApproval, Approved, Rejected} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", errtypes.InvalidParameter("unknown approval status %q", s)
}

// Package is one registered model version.
type Package struct {
	Group     string
	Version   int
	ModelID   string
	Artifact  string // location of the model artifact
	Accuracy  float64
	Status    Status
	CreatedAt time.Time
}

type Registry struct {
	db *sql.DB
}

const schema = `
create table if not exists "model_package" (
	"group"      text    not null,
	"version"    integer not null,
	"model_id"   text    not null,
	"artifact"   text    not null,
	"accuracy"   real    not null,
	"status"     text    not null,
	"created_at" text    not null,
	primary key ("group", "version")
)`

const columns = `"group", "version", "model_id", "artifact", "accuracy", "status", "created_at"`

// Open opens (and creates, if needed) the registry at dsn, a sqlite3 file
// path or URI.
func Open(ctx context.Context, dsn string) (*Registry, error) {
	if dsn == "" {
		return nil, errtypes.InvalidParameter("registry dsn is empty")
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), os.FileMode(0o755)); err != nil {
			return nil, errtypes.IO(err, "create directory for %s", dsn)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errtypes.IO(err, "open registry %s", dsn)
	}
	// one connection: sqlite has a single writer, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errtypes.IO(err, "initialise registry %s", dsn)
	}
	return &Registry{db: db}, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// Register stores p as the next version of p.Group and returns it as stored.
// An empty status means PendingManualApproval.
func (r *Registry) Register(ctx context.Context, p Package) (Package, error) {
	if p.Group == "" || p.Artifact == "" {
		return Package{}, errtypes.InvalidParameter("model package needs a group and an artifact")
	}
	if p.Status == "" {
		p.Status = PendingManualApproval
	}
	if _, err := ParseStatus(string(p.Status)); err != nil {
		return Package{}, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Package{}, errtypes.IO(err, "begin")
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(
		ctx,
		`select coalesce(max("version"), 0) + 1 from "model_package" where "group" = ?`,
		p.Group,
	).Scan(&p.Version); err != nil {
		return Package{}, errtypes.IO(err, "next version of %s", p.Group)
	}

	if _, err := tx.ExecContext(
		ctx,
		`insert into "model_package" (`+columns+`) values (?, ?, ?, ?, ?, ?, ?)`,
		p.Group, p.Version, p.ModelID, p.Artifact, p.Accuracy, string(p.Status),
		p.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return Package{}, errtypes.IO(err, "register %s", p.Group)
	}
	if err := tx.Commit(); err != nil {
		return Package{}, errtypes.IO(err, "commit")
	}
	return p, nil
}

// Get returns a version of group. ErrNotFound when there is none.
func (r *Registry) Get(ctx context.Context, group string, version int) (Package, error) {
	row := r.db.QueryRowContext(
		ctx,
		`select `+columns+` from "model_package" where "group" = ? and "version" = ?`,
		group, version,
	)
	return scanPackage(row)
}

// LatestApproved returns the approved package of group with the highest version.
func (r *Registry) LatestApproved(ctx context.Context, group string) (Package, error) {
	row := r.db.QueryRowContext(
		ctx,
		`
		select `+columns+` from "model_package"
		where "group" = ? and "status" = ?
		order by "version" desc
		limit 1
		`,
		group, string(Approved),
	)
	return scanPackage(row)
}

// List returns all packages of group, oldest version first.
func (r *Registry) List(ctx context.Context, group string) ([]Package, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`select `+columns+` from "model_package" where "group" = ? order by "version"`,
		group,
	)
	if err != nil {
		return nil, errtypes.IO(err, "list %s", group)
	}
	defer rows.Close()

	pkgs := []Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errtypes.IO(err, "list %s", group)
	}
	return pkgs, nil
}

// UpdateApproval sets the status of a version of group.
func (r *Registry) UpdateApproval(ctx context.Context, group string, version int, status Status) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	res, err := r.db.ExecContext(
		ctx,
		`update "model_package" set "status" = ? where "group" = ? and "version" = ?`,
		string(status), group, version,
	)
	if err != nil {
		return errtypes.IO(err, "update %s v%d", group, version)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errtypes.IO(err, "update %s v%d", group, version)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPackage(s scanner) (Package, error) {
	var p Package
	var status, created string
	if err := s.Scan(
		&p.Group, &p.Version, &p.ModelID, &p.Artifact, &p.Accuracy, &status, &created,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Package{}, ErrNotFound
		}
		return Package{}, errtypes.IO(err, "read model package")
	}
	p.Status = Status(status)
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Package{}, errtypes.DataFormat("model package %s v%d: created_at %q", p.Group, p.Version, created)
	}
	p.CreatedAt = t
	return p, nil
}
