package domain

import (
	"slices"
	"time"
)

// Progress is the three-state lifecycle of a project.
type Progress string

const (
	ProgressNotStarted Progress = "not started"
	ProgressInProgress Progress = "in progress"
	ProgressCompleted  Progress = "completed"
)

func (p Progress) Valid() bool {
	switch p {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted:
		return true
	}
	return false
}

// Project fields that a patch may touch.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldDeadline    = "deadline"
	FieldProgress    = "progress"
	FieldClient      = "client"
	FieldStaff       = "staff"
)

// Project is owned by exactly one client user and worked on by zero or more staff.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	Progress    Progress  `json:"progress"`
	ClientID    string    `json:"client"`
	StaffIDs    []string  `json:"staff"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasStaff reports whether userID is assigned to the project.
func (p *Project) HasStaff(userID string) bool {
	return userID != "" && slices.Contains(p.StaffIDs, userID)
}

// ProjectPatch is a sparse update; nil fields are left untouched.
type ProjectPatch struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	Progress    *Progress
	ClientID    *string
	StaffIDs    *[]string
}

// Fields lists the names of the fields set on the patch.
func (p ProjectPatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, FieldTitle)
	}
	if p.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if p.Deadline != nil {
		fields = append(fields, FieldDeadline)
	}
	if p.Progress != nil {
		fields = append(fields, FieldProgress)
	}
	if p.ClientID != nil {
		fields = append(fields, FieldClient)
	}
	if p.StaffIDs != nil {
		fields = append(fields, FieldStaff)
	}
	return fields
}

// OnlyProgress returns a copy of the patch keeping nothing but Progress.
func (p ProjectPatch) OnlyProgress() ProjectPatch {
	return ProjectPatch{Progress: p.Progress}
}

// Apply merges the patch into the project in place.
func (p ProjectPatch) Apply(project *Project) {
	if p.Title != nil {
		project.Title = *p.Title
	}
	if p.Description != nil {
		project.Description = *p.Description
	}
	if p.Deadline != nil {
		project.Deadline = *p.Deadline
	}
	if p.Progress != nil {
		project.Progress = *p.Progress
	}
	if p.ClientID != nil {
		project.ClientID = *p.ClientID
	}
	if p.StaffIDs != nil {
		project.StaffIDs = slices.Clone(*p.StaffIDs)
	}
}
