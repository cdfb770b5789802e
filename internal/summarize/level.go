package summarize

import "fmt"

// DetailLevel selects the target length and depth of the final summary.
type DetailLevel string

const (
	LevelConcise       DetailLevel = "concise"
	LevelBalanced      DetailLevel = "balanced"
	LevelComprehensive DetailLevel = "comprehensive"
)

// ParseLevel converts user input into a DetailLevel.
func ParseLevel(s string) (DetailLevel, error) {
	switch DetailLevel(s) {
	case LevelConcise, LevelBalanced, LevelComprehensive:
		return DetailLevel(s), nil
	}
	return "", fmt.Errorf("unknown detail level %q (valid: concise, balanced, comprehensive)", s)
}

// TargetWords is the overall word target for the final summary.
func (l DetailLevel) TargetWords() int {
	switch l {
	case LevelComprehensive:
		return 5000
	case LevelBalanced:
		return 2500
	default:
		return 800
	}
}

// description is interpolated into system prompts to fix the summary register.
func (l DetailLevel) description() string {
	switch l {
	case LevelComprehensive:
		return "extremely comprehensive and detailed"
	case LevelBalanced:
		return "balanced and substantial"
	default:
		return "concise but complete"
	}
}

// instruction is the per-level task framing shared by the chunk and
// synthesis prompts.
func (l DetailLevel) instruction() string {
	switch l {
	case LevelComprehensive:
		return "Provide an extremely comprehensive, detailed, and thorough summary. Include all key arguments, evidence, examples, data points, and nuances."
	case LevelBalanced:
		return "Provide a balanced, substantial summary that covers all main points, key arguments, and important details while maintaining readability and flow."
	default:
		return "Provide a concise summary focusing on the most critical points, main arguments, and key takeaways while ensuring completeness."
	}
}
