package domain

import "time"

type ProjectStatus string

const (
	ProjectActive  ProjectStatus = "active"
	ProjectDeleted ProjectStatus = "deleted"
)

type Project struct {
	ID        string
	TenantID  string
	Name      string
	Status    ProjectStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Project) Deleted() bool { return p.Status == ProjectDeleted }
