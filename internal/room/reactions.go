package room

// Reactions 表情目录，下标即 reactionId
var Reactions = []string{"👍", "😂", "😮", "😢", "🔥", "👏", "🎉", "🤔"}

// ValidReaction reactionId 是否在目录内
func ValidReaction(id int) bool {
	return id >= 0 && id < len(Reactions)
}
