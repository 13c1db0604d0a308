package tui

import (
	"fmt"
	"strings"

	"github.com/kingrea/gtdvault/internal/document"
	"github.com/kingrea/gtdvault/internal/gtd"
)

// column is one status bucket on the board.
type column struct {
	title  string
	status gtd.TaskStatus
}

// boardColumns is the left-to-right order; the 1-5 keys follow it.
var boardColumns = []column{
	{title: "Today", status: gtd.StatusToday},
	{title: "Next Actions", status: gtd.StatusNextAction},
	{title: "Inbox", status: gtd.StatusInbox},
	{title: "Waiting", status: gtd.StatusWaiting},
	{title: "Someday", status: gtd.StatusSomeday},
}

// taskItem implements list.Item for one task.
type taskItem struct {
	task *gtd.Task
}

func (i taskItem) Title() string {
	box := "[ ]"
	if i.task.Completed {
		box = "[x]"
	}
	return box + " " + i.task.Title
}

func (i taskItem) Description() string {
	var parts []string
	if i.task.Project != "" {
		parts = append(parts, i.task.ProjectName())
	}
	if i.task.Date != nil {
		parts = append(parts, document.FormatDate(*i.task.Date))
	}
	if i.task.Priority != gtd.PriorityMedium {
		parts = append(parts, fmt.Sprintf("%s priority", i.task.Priority))
	}
	if i.task.Broken {
		parts = append(parts, "unreadable")
	}
	return strings.Join(parts, " · ")
}

func (i taskItem) FilterValue() string { return i.task.Title }
