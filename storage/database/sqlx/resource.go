package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/resource"
)

type resourceRow struct {
	ID          string     `db:"id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	Type        string     `db:"type"`
	Category    string     `db:"category"`
	Tags        stringList `db:"tags"`
	FileType    string     `db:"file_type"`
	FileSize    string     `db:"file_size"`
	DownloadURL string     `db:"download_url"`
	ExternalURL string     `db:"external_url"`
	Featured    bool       `db:"featured"`
	UploadedAt  int64      `db:"uploaded_at"`
}

func (r resourceRow) resource() resource.Resource {
	return resource.Resource{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Type:        resource.Type(r.Type),
		Category:    r.Category,
		Tags:        r.Tags,
		FileType:    r.FileType,
		FileSize:    r.FileSize,
		DownloadURL: r.DownloadURL,
		ExternalURL: r.ExternalURL,
		Featured:    r.Featured,
		UploadedAt:  fromMillis(r.UploadedAt),
	}
}

type resourceRepository struct {
	db *sqlx.DB
}

var _ resource.Repository = (*resourceRepository)(nil) // interface compliance check

func NewResourceRepository(db *sqlx.DB) *resourceRepository {
	return &resourceRepository{db: db}
}

func (repo resourceRepository) QueryResources(
	ctx context.Context,
	filter resource.QueryFilter,
	page core.Page,
	ordering []core.DBOrdering,
) ([]resource.Resource, int, error) {
	var w where
	w.search(filter.Search, "title", "description", "tags")
	if filter.Category != "" {
		w.add("LOWER(category) = LOWER(?)", filter.Category)
	}
	if filter.Type != "" {
		w.add("type = ?", string(filter.Type))
	}
	if filter.Featured != nil {
		w.add("featured = ?", *filter.Featured)
	}

	var rows []resourceRow
	total, err := selectPage(
		ctx, repo.db, &rows,
		"SELECT COUNT(*) FROM resources"+w.String(), w.args,
		"SELECT * FROM resources"+w.String()+orderBy(ordering, "id"), w.args,
		page,
	)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying resources")
	}

	res := make([]resource.Resource, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.resource())
	}
	return res, total, nil
}

func (repo resourceRepository) GetResource(ctx context.Context, id string) (resource.Resource, error) {
	var row resourceRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT * FROM resources WHERE id = ?"), id); err != nil {
		return resource.Resource{}, trapNoRowsErr(err, resource.ErrNotFound, "getting resource")
	}
	return row.resource(), nil
}

func (repo resourceRepository) CreateResource(ctx context.Context, r resource.Resource) (resource.Resource, error) {
	r.ID = newID()
	row := resourceRow{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Type:        string(r.Type),
		Category:    r.Category,
		Tags:        r.Tags,
		FileType:    r.FileType,
		FileSize:    r.FileSize,
		DownloadURL: r.DownloadURL,
		ExternalURL: r.ExternalURL,
		Featured:    r.Featured,
		UploadedAt:  millis(r.UploadedAt),
	}
	q := `INSERT INTO resources
		(id, title, description, type, category, tags, file_type, file_size, download_url, external_url, featured, uploaded_at)
		VALUES (:id, :title, :description, :type, :category, :tags, :file_type, :file_size, :download_url, :external_url,
		 :featured, :uploaded_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return resource.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return r, nil
}
