package service

import (
	"path"
	"strings"
)

// TasksHeading introduces the task list in a project body.
const TasksHeading = "## Tasks"

// backlinkLine is the list entry a project body carries for one task.
func backlinkLine(name string) string {
	return "- [[" + name + "]]"
}

// documentName is the link target for a task document: its file name without
// the extension.
func documentName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// tasksSection returns the [start, end) line range of the tasks section
// (heading excluded), or ok=false when the heading is absent.
func tasksSection(lines []string) (start, end int, ok bool) {
	for i, line := range lines {
		if strings.TrimSpace(line) != TasksHeading {
			continue
		}
		end = len(lines)
		for j := i + 1; j < len(lines); j++ {
			if strings.HasPrefix(strings.TrimSpace(lines[j]), "#") {
				end = j
				break
			}
		}
		return i + 1, end, true
	}
	return 0, 0, false
}

// hasBacklink reports whether body already lists name.
func hasBacklink(body, name string) bool {
	lines := strings.Split(body, "\n")
	start, end, ok := tasksSection(lines)
	if !ok {
		return false
	}
	want := backlinkLine(name)
	for _, line := range lines[start:end] {
		if strings.TrimSpace(line) == want {
			return true
		}
	}
	return false
}

// addBacklink lists name under the tasks heading, creating the heading when
// needed. Adding an existing link is a no-op.
func addBacklink(body, name string) string {
	if name == "" || hasBacklink(body, name) {
		return body
	}
	entry := backlinkLine(name)
	lines := strings.Split(body, "\n")
	start, end, ok := tasksSection(lines)
	if !ok {
		trimmed := strings.TrimRight(body, "\n ")
		if trimmed == "" {
			return TasksHeading + "\n\n" + entry
		}
		return trimmed + "\n\n" + TasksHeading + "\n\n" + entry
	}
	// Insert after the last non-blank line of the section.
	at := start
	for i := start; i < end; i++ {
		if strings.TrimSpace(lines[i]) != "" {
			at = i + 1
		}
	}
	insert := []string{entry}
	if at == start {
		insert = []string{"", entry}
	}
	if at < len(lines) && strings.TrimSpace(lines[at]) != "" {
		insert = append(insert, "")
	}
	out := make([]string, 0, len(lines)+len(insert))
	out = append(out, lines[:at]...)
	out = append(out, insert...)
	out = append(out, lines[at:]...)
	return strings.Join(out, "\n")
}

// removeBacklink drops every entry for name from the tasks section.
func removeBacklink(body, name string) string {
	lines := strings.Split(body, "\n")
	start, end, ok := tasksSection(lines)
	if !ok || name == "" {
		return body
	}
	want := backlinkLine(name)
	out := make([]string, 0, len(lines))
	out = append(out, lines[:start]...)
	for _, line := range lines[start:end] {
		if strings.TrimSpace(line) != want {
			out = append(out, line)
		}
	}
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n")
}
