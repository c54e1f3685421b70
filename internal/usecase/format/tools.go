package format

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"toolfeed/internal/domain"
)

var (
	lineNumberPrefix = regexp.MustCompile(`^\s*\d+:\s*`)
	returnCode       = regexp.MustCompile(`returncode: ([-\d]+)`)
)

func builtinFormatters() [toolKindCount]Formatter {
	return [toolKindCount]Formatter{
		ToolViewFile:        formatViewFile,
		ToolFindFiles:       formatFindFiles,
		ToolSearchText:      formatFindFiles,
		ToolBashExec:        formatBashExec,
		ToolFetchURL:        verbPair("Fetching %s", "Fetched %s", "url"),
		ToolCreateFile:      verbPair("Creating file %s", "Created file %s", "path"),
		ToolCreateDirectory: verbPair("Creating directory %s", "Created directory %s", "path"),
		ToolMoveFile:        formatMoveFile,
		ToolRemoveFile:      verbPair("Removing %s", "Removed %s", "path"),
		ToolFileStrReplace:  verbPair("Replacing in %s", "Replaced in %s", "path"),
		ToolAskUser:         formatAskUser,
	}
}

// verbPair builds a formatter that prints one escaped argument on start and finish.
func verbPair(start, finish, arg string) Formatter {
	return func(ev domain.ProgressEvent, _ Linker) (string, error) {
		v := Escape(argText(ev.Args[arg], ""))
		switch ev.Phase {
		case domain.PhaseStart:
			return fmt.Sprintf(start, v), nil
		case domain.PhaseFinish:
			return fmt.Sprintf(finish, v), nil
		}
		return "", nil
	}
}

func languageFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return "python"
	case ".sh":
		return "bash"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	case ".go":
		return "go"
	}
	return ""
}

func formatViewFile(ev domain.ProgressEvent, links Linker) (string, error) {
	path := ev.StringArg("path")
	switch ev.Phase {
	case domain.PhaseStart:
		return fmt.Sprintf("Viewing %s lines %s to %s",
			Escape(path),
			Escape(argText(ev.Args["start_line"], "1")),
			Escape(argText(ev.Args["end_line"], "end")),
		), nil
	case domain.PhaseFinish:
		var content string
		if s, ok := ev.Result.(string); ok {
			lines := lineBreak.Split(s, -1)
			for i, line := range lines {
				lines[i] = lineNumberPrefix.ReplaceAllString(line, "")
			}
			content = strings.Join(lines, "\n")
		}
		link := links.Link(content, languageFor(path))
		return fmt.Sprintf("%s (%s)", plural(countContentLines(content), "line"), link), nil
	}
	return "", nil
}

func formatFindFiles(ev domain.ProgressEvent, links Linker) (string, error) {
	switch ev.Phase {
	case domain.PhaseStart:
		return fmt.Sprintf("Searching in %s", Escape(argText(ev.Args["directory"], ""))), nil
	case domain.PhaseFinish:
		var content string
		var count int
		switch r := ev.Result.(type) {
		case []any:
			items := make([]string, len(r))
			for i, item := range r {
				items[i] = argText(item, "")
			}
			content = strings.Join(items, "\n")
			count = len(r)
		case []string:
			content = strings.Join(r, "\n")
			count = len(r)
		case string:
			content = r
			count = countNonEmptyLines(r)
		}
		return fmt.Sprintf("Found %s (%s)", plural(count, "item"), links.Link(content, "")), nil
	}
	return "", nil
}

func formatBashExec(ev domain.ProgressEvent, links Linker) (string, error) {
	switch ev.Phase {
	case domain.PhaseStart:
		return "Running command", nil
	case domain.PhaseFinish:
		var output string
		switch r := ev.Result.(type) {
		case nil:
		case string:
			output = r
		default:
			return "", fmt.Errorf("bash_exec result: unexpected type %T", ev.Result)
		}
		code := "?"
		if m := returnCode.FindStringSubmatch(output); m != nil {
			code = m[1]
		}
		line := fmt.Sprintf("Command finished (code %s)", code)
		if strings.TrimSpace(output) != "" {
			line += fmt.Sprintf(" (%s)", links.Link(output, "bash"))
		}
		return line, nil
	}
	return "", nil
}

func formatMoveFile(ev domain.ProgressEvent, _ Linker) (string, error) {
	src := Escape(ev.StringArg("source_path"))
	dst := Escape(ev.StringArg("destination_path"))
	switch ev.Phase {
	case domain.PhaseStart:
		return fmt.Sprintf("Moving %s → %s", src, dst), nil
	case domain.PhaseFinish:
		return fmt.Sprintf("Moved %s → %s", src, dst), nil
	}
	return "", nil
}

func formatAskUser(ev domain.ProgressEvent, _ Linker) (string, error) {
	switch ev.Phase {
	case domain.PhaseStart:
		return "Waiting for user input", nil
	case domain.PhaseFinish:
		return "User input done", nil
	}
	return "", nil
}
