// Package language maps the friendly language names shown in the editor
// dropdown to the numeric IDs understood by the Judge0 execution service.
package language

import "strings"

// Language is one of the supported editor languages.
type Language int

const (
	C Language = iota
	CPP
	CSharp
	Java
	Node
	TypeScript
	Python
	Go
	Ruby
	Kotlin
	SQL
	Rust
)

// judge0IDs holds the Judge0 CE language ID for each supported language.
var judge0IDs = map[Language]int{
	C:          50, // C (GCC)
	CPP:        54, // C++ (G++)
	CSharp:     51, // C# (Mono)
	Java:       62, // Java (OpenJDK)
	Node:       63, // JavaScript (Node.js)
	TypeScript: 74,
	Python:     71, // Python 3
	Go:         60,
	Ruby:       72,
	Kotlin:     78,
	SQL:        82,
	Rust:       73,
}

// aliases maps every accepted spelling to its language. Lookups are
// case-insensitive and ignore surrounding whitespace.
var aliases = map[string]Language{
	"c":          C,
	"c++":        CPP,
	"cpp":        CPP,
	"csharp":     CSharp,
	"c#":         CSharp,
	"java":       Java,
	"javascript": Node,
	"node":       Node,
	"typescript": TypeScript,
	"ts":         TypeScript,
	"python":     Python,
	"py":         Python,
	"go":         Go,
	"golang":     Go,
	"ruby":       Ruby,
	"rb":         Ruby,
	"kotlin":     Kotlin,
	"kt":         Kotlin,
	"sql":        SQL,
	"rust":       Rust,
	"rs":         Rust,
}

// JudgeID returns the Judge0 ID for l.
func (l Language) JudgeID() int {
	return judge0IDs[l]
}

// Resolve maps a friendly name or alias to its Judge0 language ID.
// The second return is false when the name is not recognized.
func Resolve(name string) (int, bool) {
	l, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, false
	}
	return l.JudgeID(), true
}
