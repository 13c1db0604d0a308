// Package progress derives project completion from the tasks that link to a
// project. Nothing here touches storage.
package progress

import "github.com/kingrea/gtdvault/internal/gtd"

// Stats summarises a project's member tasks.
type Stats struct {
	Total      int
	Completed  int
	InProgress int
	NotStarted int
	Progress   int
}

// Members returns the tasks linked to project, whatever their status.
func Members(project *gtd.Project, tasks []*gtd.Task) []*gtd.Task {
	var out []*gtd.Task
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if project.Matches(t.Project) {
			out = append(out, t)
		}
	}
	return out
}

// Calculate returns the rounded completion percentage. A project without
// members is at 0.
func Calculate(project *gtd.Project, tasks []*gtd.Task) int {
	members := Members(project, tasks)
	done := 0
	for _, t := range members {
		if t.Completed {
			done++
		}
	}
	return percent(done, len(members))
}

// Statistics buckets member tasks. Waiting and trashed tasks count toward
// Total only.
func Statistics(project *gtd.Project, tasks []*gtd.Task) Stats {
	var s Stats
	for _, t := range Members(project, tasks) {
		s.Total++
		switch {
		case t.Completed:
			s.Completed++
		case t.Status == gtd.StatusToday || t.Status == gtd.StatusNextAction:
			s.InProgress++
		case t.Status == gtd.StatusInbox || t.Status == gtd.StatusSomeday:
			s.NotStarted++
		}
	}
	s.Progress = percent(s.Completed, s.Total)
	return s
}

// RecomputeAll maps every project id to its current progress.
func RecomputeAll(projects []*gtd.Project, tasks []*gtd.Task) map[string]int {
	out := make(map[string]int, len(projects))
	for _, p := range projects {
		out[p.ID] = Calculate(p, tasks)
	}
	return out
}

// Changed lists the projects whose stored progress differs from the derived
// value, paired with the new value.
func Changed(projects []*gtd.Project, tasks []*gtd.Task) map[string]int {
	out := make(map[string]int)
	for _, p := range projects {
		if value := Calculate(p, tasks); value != p.Progress {
			out[p.ID] = value
		}
	}
	return out
}

// percent rounds half up like the board's progress bars.
func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return (200*done + total) / (2 * total)
}
