// Package resource is the society's library of documents, templates, videos and software.
package resource

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
)

var ErrNotFound = errors.New("resource not found")

type Type string

const (
	TypeDocument Type = "document"
	TypeVideo    Type = "video"
	TypeTemplate Type = "template"
	TypeSoftware Type = "software"
	TypeCourse   Type = "course"
)

// CategoryAll is the catch-all category of the library's tabs: it does not filter.
const CategoryAll = "all"

type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        Type      `json:"type"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	FileType    string    `json:"file_type,omitempty"` // eg: PDF, DWG
	FileSize    string    `json:"file_size,omitempty"` // eg: 2.4 MB
	DownloadURL string    `json:"download_url,omitempty"`
	ExternalURL string    `json:"external_url,omitempty"`
	Featured    bool      `json:"featured"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type QueryFilter struct {
	Search   string // title, description or tags
	Category string
	Type     Type
	Featured *bool
}

func (f *QueryFilter) Clean() {
	f.Search = strings.ToLower(strings.TrimSpace(f.Search))
	f.Category = strings.TrimSpace(f.Category)
	if strings.EqualFold(f.Category, CategoryAll) {
		f.Category = ""
	}
}

// Groups splits a listing the way the library tabs show it.
type Groups struct {
	Documents []Resource `json:"documents"`
	Templates []Resource `json:"templates"`
	Videos    []Resource `json:"videos"` // videos and courses
	Software  []Resource `json:"software"`
}

func Group(resources []Resource) Groups {
	g := Groups{
		Documents: []Resource{},
		Templates: []Resource{},
		Videos:    []Resource{},
		Software:  []Resource{},
	}
	for _, r := range resources {
		switch r.Type {
		case TypeDocument:
			g.Documents = append(g.Documents, r)
		case TypeTemplate:
			g.Templates = append(g.Templates, r)
		case TypeVideo, TypeCourse:
			g.Videos = append(g.Videos, r)
		case TypeSoftware:
			g.Software = append(g.Software, r)
		}
	}
	return g
}

var orderingColumns = map[string]string{
	"uploaded_at": "uploaded_at",
	"title":       "title",
}

type (
	Repository interface {
		QueryResources(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) ([]Resource, int, error)
		GetResource(ctx context.Context, id string) (Resource, error)
		CreateResource(ctx context.Context, r Resource) (Resource, error)
	}

	Service interface {
		List(ctx context.Context, filter QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]Resource, int, error)
		Get(ctx context.Context, id string) (Resource, error)
		Create(ctx context.Context, r Resource) (Resource, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// List returns a page of matching resources, featured ones first then newest first by default.
func (svc *service) List(ctx context.Context, filter QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]Resource, int, error) {
	filter.Clean()
	page.Clean()
	cols := core.Columns(ordering, orderingColumns)
	if len(cols) == 0 {
		cols = []core.DBOrdering{{Field: "featured"}, {Field: "uploaded_at"}}
	}
	res, total, err := svc.repo.QueryResources(ctx, filter, page, cols)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying resources")
	}
	return res, total, nil
}

func (svc *service) Get(ctx context.Context, id string) (Resource, error) {
	return svc.repo.GetResource(ctx, id)
}

func (svc *service) Create(ctx context.Context, r Resource) (Resource, error) {
	r.Title = core.CleanString(r.Title)
	r.Category = core.CleanString(r.Category)
	r.Tags = core.CleanStrings(r.Tags)
	if r.UploadedAt.IsZero() {
		r.UploadedAt = core.Now()
	}
	return svc.repo.CreateResource(ctx, r)
}
