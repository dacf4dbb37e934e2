package repomanager

import (
	"context"
	"database/sql"

	"github.com/morlov/photofeed/internal/dbx"
	"github.com/morlov/photofeed/internal/server/repositories/photos"
)

// RepositoryManager vends repositories bound to a DBTX and owns schema
// migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Photos(db dbx.DBTX) photos.Repository
}
