package format

// ToolKind enumerates the tools the feed knows how to describe.
type ToolKind int

const (
	ToolUnknown ToolKind = iota
	ToolViewFile
	ToolFindFiles
	ToolSearchText
	ToolBashExec
	ToolFetchURL
	ToolCreateFile
	ToolCreateDirectory
	ToolMoveFile
	ToolRemoveFile
	ToolFileStrReplace
	ToolAskUser

	toolKindCount
)

var toolNames = [toolKindCount]string{
	ToolUnknown:         "",
	ToolViewFile:        "view_file",
	ToolFindFiles:       "find_files",
	ToolSearchText:      "search_text",
	ToolBashExec:        "bash_exec",
	ToolFetchURL:        "fetch_url",
	ToolCreateFile:      "create_file",
	ToolCreateDirectory: "create_directory",
	ToolMoveFile:        "move_file",
	ToolRemoveFile:      "remove_file",
	ToolFileStrReplace:  "file_str_replace",
	ToolAskUser:         "ask_user",
}

var toolsByName = func() map[string]ToolKind {
	m := make(map[string]ToolKind, toolKindCount)
	for k := ToolKind(1); k < toolKindCount; k++ {
		m[toolNames[k]] = k
	}
	return m
}()

// ParseToolKind maps a wire tool name to its kind. Unmapped names are ToolUnknown.
func ParseToolKind(name string) ToolKind {
	if k, ok := toolsByName[name]; ok {
		return k
	}
	return ToolUnknown
}

// String returns the wire name of k, or "unknown".
func (k ToolKind) String() string {
	if k <= ToolUnknown || k >= toolKindCount {
		return "unknown"
	}
	return toolNames[k]
}
