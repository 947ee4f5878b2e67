package index

import (
	"path/filepath"
	"strings"

	"github.com/thomascherickal/bloop.ai/pkg/types"
)

// extLangs maps file extensions to language tags when the repository
// head info has no entry for a path.
var extLangs = map[string]string{
	".c":     "C",
	".cc":    "C++",
	".cpp":   "C++",
	".cs":    "C#",
	".css":   "CSS",
	".go":    "Go",
	".h":     "C",
	".hpp":   "C++",
	".html":  "HTML",
	".java":  "Java",
	".js":    "JavaScript",
	".json":  "JSON",
	".jsx":   "JSX",
	".kt":    "Kotlin",
	".md":    "Markdown",
	".php":   "PHP",
	".py":    "Python",
	".rb":    "Ruby",
	".rs":    "Rust",
	".scala": "Scala",
	".sh":    "Shell",
	".sql":   "SQL",
	".swift": "Swift",
	".toml":  "TOML",
	".ts":    "TypeScript",
	".tsx":   "TSX",
	".txt":   "Text",
	".yaml":  "YAML",
	".yml":   "YAML",
}

// detectLang resolves the language tag for an absolute file path,
// preferring the precomputed language map.
func detectLang(fileDiskPath string, info *types.RepoHeadInfo) string {
	if info != nil {
		if lang, ok := info.Langs[fileDiskPath]; ok {
			return lang
		}
	}
	return extLangs[strings.ToLower(filepath.Ext(fileDiskPath))]
}
