package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
)

type competitionRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	CreatedAt   int64  `db:"created_at"`
}

type deadlineRow struct {
	ID            string     `db:"id"`
	CompetitionID string     `db:"competition_id"`
	Title         string     `db:"title"`
	DueAt         int64      `db:"due_at"`
	Status        string     `db:"status"`
	Formats       stringList `db:"formats"`
	MaxSizeMB     int        `db:"max_size_mb"`
}

func toDeadlineRow(d competition.Deadline) deadlineRow {
	return deadlineRow{
		ID:            d.ID,
		CompetitionID: d.CompetitionID,
		Title:         d.Title,
		DueAt:         millis(d.DueAt),
		Status:        string(d.Status),
		Formats:       d.Formats,
		MaxSizeMB:     d.MaxSizeMB,
	}
}

func (r deadlineRow) deadline() competition.Deadline {
	return competition.Deadline{
		ID:            r.ID,
		CompetitionID: r.CompetitionID,
		Title:         r.Title,
		DueAt:         fromMillis(r.DueAt),
		Status:        competition.DeadlineStatus(r.Status),
		Formats:       r.Formats,
		MaxSizeMB:     r.MaxSizeMB,
	}
}

type submissionRow struct {
	ID              string      `db:"id"`
	Title           string      `db:"title"`
	Description     string      `db:"description"`
	CompetitionID   string      `db:"competition_id"`
	CompetitionName string      `db:"competition_name"`
	DeadlineID      string      `db:"deadline_id"`
	DeadlineTitle   string      `db:"deadline_title"`
	MemberID        string      `db:"member_id"`
	TeamID          null.String `db:"team_id"`
	TeamName        null.String `db:"team_name"`
	Status          string      `db:"status"`
	Feedback        null.String `db:"feedback"`
	SubmittedAt     null.Int64  `db:"submitted_at"`
	CreatedAt       int64       `db:"created_at"`
}

func (r submissionRow) submission() competition.Submission {
	sub := competition.Submission{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		CompetitionID:   r.CompetitionID,
		CompetitionName: r.CompetitionName,
		DeadlineID:      r.DeadlineID,
		DeadlineTitle:   r.DeadlineTitle,
		MemberID:        r.MemberID,
		TeamID:          r.TeamID,
		TeamName:        r.TeamName,
		Status:          competition.SubmissionStatus(r.Status),
		Feedback:        r.Feedback,
		CreatedAt:       fromMillis(r.CreatedAt),
		Files:           []competition.File{},
	}
	if r.SubmittedAt.Valid {
		sub.SubmittedAt = null.TimeFrom(fromMillis(r.SubmittedAt.Int64))
	}
	return sub
}

type fileRow struct {
	ID           string `db:"id"`
	SubmissionID string `db:"submission_id"`
	Name         string `db:"name"`
	Size         int64  `db:"size"`
	Type         string `db:"type"`
	ContentID    string `db:"content_id"`
}

type competitionRepository struct {
	db *sqlx.DB
}

var _ competition.Repository = (*competitionRepository)(nil) // interface compliance check

func NewCompetitionRepository(db *sqlx.DB) *competitionRepository {
	return &competitionRepository{db: db}
}

func (repo competitionRepository) CreateCompetition(ctx context.Context, c competition.Competition) (competition.Competition, error) {
	c.ID = newID()
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx,
			"INSERT INTO competitions (id, name, description, created_at) VALUES (:id, :name, :description, :created_at)",
			competitionRow{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: millis(c.CreatedAt)})
		if err != nil {
			return errors.Wrap(err, "inserting competition")
		}
		for i := range c.Deadlines {
			d := &c.Deadlines[i]
			d.ID = newID()
			d.CompetitionID = c.ID
			_, err = tx.NamedExecContext(ctx, `INSERT INTO deadlines
				(id, competition_id, title, due_at, status, formats, max_size_mb)
				VALUES (:id, :competition_id, :title, :due_at, :status, :formats, :max_size_mb)`, toDeadlineRow(*d))
			if err != nil {
				return errors.Wrap(err, "inserting deadline")
			}
		}
		return nil
	})
	if err != nil {
		return competition.Competition{}, err
	}
	return c, nil
}

func (repo competitionRepository) GetCompetition(ctx context.Context, id string) (competition.Competition, error) {
	var row competitionRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT * FROM competitions WHERE id = ?"), id); err != nil {
		return competition.Competition{}, trapNoRowsErr(err, competition.ErrNotFound, "getting competition")
	}

	var dlRows []deadlineRow
	q := repo.db.Rebind("SELECT * FROM deadlines WHERE competition_id = ? ORDER BY due_at ASC, id ASC")
	if err := repo.db.SelectContext(ctx, &dlRows, q, id); err != nil {
		return competition.Competition{}, errors.Wrap(err, "querying deadlines")
	}

	c := competition.Competition{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		CreatedAt:   fromMillis(row.CreatedAt),
		Deadlines:   make([]competition.Deadline, 0, len(dlRows)),
	}
	for _, dl := range dlRows {
		c.Deadlines = append(c.Deadlines, dl.deadline())
	}
	return c, nil
}

func (repo competitionRepository) GetDeadline(ctx context.Context, id string) (competition.Deadline, error) {
	var row deadlineRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT * FROM deadlines WHERE id = ?"), id); err != nil {
		return competition.Deadline{}, trapNoRowsErr(err, competition.ErrDeadlineNotFound, "getting deadline")
	}
	return row.deadline(), nil
}

func (repo competitionRepository) CreateSubmission(ctx context.Context, sub competition.Submission) (competition.Submission, error) {
	sub.ID = newID()
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		row := submissionRow{
			ID:            sub.ID,
			Title:         sub.Title,
			Description:   sub.Description,
			CompetitionID: sub.CompetitionID,
			DeadlineID:    sub.DeadlineID,
			MemberID:      sub.MemberID,
			TeamID:        sub.TeamID,
			Status:        string(sub.Status),
			Feedback:      sub.Feedback,
			CreatedAt:     millis(sub.CreatedAt),
		}
		if sub.SubmittedAt.Valid {
			row.SubmittedAt = null.Int64From(millis(sub.SubmittedAt.Time))
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO submissions
			(id, title, description, competition_id, deadline_id, member_id, team_id, status, feedback, submitted_at, created_at)
			VALUES (:id, :title, :description, :competition_id, :deadline_id, :member_id, :team_id, :status, :feedback,
			 :submitted_at, :created_at)`, row)
		if err != nil {
			return errors.Wrap(err, "inserting submission")
		}

		for i := range sub.Files {
			f := &sub.Files[i]
			f.ID = newID()
			f.SubmissionID = sub.ID
			_, err = tx.NamedExecContext(ctx, `INSERT INTO submission_files
				(id, submission_id, name, size, type, content_id)
				VALUES (:id, :submission_id, :name, :size, :type, :content_id)`, fileRow(*f))
			if err != nil {
				return errors.Wrap(err, "inserting submission file")
			}
		}
		return nil
	})
	if err != nil {
		return competition.Submission{}, err
	}
	return repo.GetSubmission(ctx, sub.ID)
}

const submissionsFrom = ` FROM submissions s
	JOIN competitions c ON c.id = s.competition_id
	JOIN deadlines d ON d.id = s.deadline_id
	LEFT JOIN teams t ON t.id = s.team_id`

const submissionsSelect = "SELECT s.*, c.name AS competition_name, d.title AS deadline_title, t.name AS team_name" +
	submissionsFrom

func (repo competitionRepository) GetSubmission(ctx context.Context, id string) (competition.Submission, error) {
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(submissionsSelect+" WHERE s.id = ?"), id); err != nil {
		return competition.Submission{}, trapNoRowsErr(err, competition.ErrSubmissionNotFound, "getting submission")
	}
	subs, err := repo.withFiles(ctx, []submissionRow{row})
	if err != nil {
		return competition.Submission{}, err
	}
	return subs[0], nil
}

func (repo competitionRepository) QuerySubmissions(
	ctx context.Context,
	filter competition.QueryFilter,
	page core.Page,
	ordering []core.DBOrdering,
) ([]competition.Submission, int, error) {
	var w where
	if filter.MemberID != "" {
		w.add("s.member_id = ?", filter.MemberID)
	}
	if filter.Status != "" {
		w.add("s.status = ?", string(filter.Status))
	}
	w.search(filter.Search, "s.title", "c.name", "t.name", "d.title")

	var rows []submissionRow
	total, err := selectPage(
		ctx, repo.db, &rows,
		"SELECT COUNT(*)"+submissionsFrom+w.String(), w.args,
		submissionsSelect+w.String()+orderBy(ordering, "s.id"), w.args,
		page,
	)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying submissions")
	}
	subs, err := repo.withFiles(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// withFiles converts the rows and loads their files.
func (repo competitionRepository) withFiles(ctx context.Context, rows []submissionRow) ([]competition.Submission, error) {
	subs := make([]competition.Submission, 0, len(rows))
	if len(rows) == 0 {
		return subs, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	q, args, err := sqlx.In("SELECT * FROM submission_files WHERE submission_id IN (?) ORDER BY name ASC, id ASC", ids)
	if err != nil {
		return nil, errors.Wrap(err, "expanding files query")
	}
	var fileRows []fileRow
	if err = repo.db.SelectContext(ctx, &fileRows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying submission files")
	}
	files := make(map[string][]competition.File, len(rows))
	for _, f := range fileRows {
		files[f.SubmissionID] = append(files[f.SubmissionID], competition.File(f))
	}

	for _, row := range rows {
		sub := row.submission()
		if fs, ok := files[row.ID]; ok {
			sub.Files = fs
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (repo competitionRepository) CountSubmissions(ctx context.Context, memberID string) (map[competition.SubmissionStatus]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	q := repo.db.Rebind("SELECT status, COUNT(*) AS count FROM submissions WHERE member_id = ? GROUP BY status")
	if err := repo.db.SelectContext(ctx, &rows, q, memberID); err != nil {
		return nil, errors.Wrap(err, "counting submissions")
	}
	counts := make(map[competition.SubmissionStatus]int, len(rows))
	for _, row := range rows {
		counts[competition.SubmissionStatus(row.Status)] = row.Count
	}
	return counts, nil
}

func (repo competitionRepository) ReviewSubmission(
	ctx context.Context,
	id string,
	status competition.SubmissionStatus,
	feedback null.String,
) (competition.Submission, error) {
	q := repo.db.Rebind("UPDATE submissions SET status = ?, feedback = ? WHERE id = ?")
	res, err := repo.db.ExecContext(ctx, q, string(status), feedback, id)
	if err != nil {
		return competition.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return competition.Submission{}, competition.ErrSubmissionNotFound
	}
	return repo.GetSubmission(ctx, id)
}
